package export

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/poravv/cuencly-backend/pkg/models"
)

func TestDescribeItems_JoinsNames(t *testing.T) {
	items := []models.Item{
		{ArticleName: "Harina 000"},
		{ArticleName: "   "},
		{ArticleName: "Azúcar"},
	}

	got := describeItems(items)
	if got != "Harina 000; Azúcar" {
		t.Errorf("describeItems = %q", got)
	}
}

func TestDescribeItems_TruncatesLongSummary(t *testing.T) {
	items := []models.Item{{ArticleName: strings.Repeat("x", 200)}}

	got := describeItems(items)
	if len(got) != maxDescriptionLen {
		t.Errorf("len = %d, want %d", len(got), maxDescriptionLen)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("got %q, want ellipsis suffix", got)
	}
}

func TestDescribeItems_TruncatesOnRuneBoundary(t *testing.T) {
	// 100 two-byte runes force the cut point into the middle of a rune
	// unless the truncation backs up to a boundary first.
	items := []models.Item{{ArticleName: strings.Repeat("á", 100)}}

	got := describeItems(items)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated summary is not valid UTF-8: %q", got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("got %q, want ellipsis suffix", got)
	}
	if len(got) > maxDescriptionLen {
		t.Errorf("len = %d, want at most %d", len(got), maxDescriptionLen)
	}
	if !strings.HasPrefix(got, "á") || strings.ContainsRune(got, utf8.RuneError) {
		t.Errorf("truncated summary mangled: %q", got)
	}
}
