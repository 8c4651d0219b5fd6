package models

import "testing"

const cdc44 = "01800123456001001000001234567890123456789012"

func TestIsValidCDC(t *testing.T) {
	tests := []struct {
		name string
		cdc  string
		want bool
	}{
		{"exactly 44 digits", cdc44, true},
		{"44 digits with spaces", "0180 0123 4560 0100 1000 0012 3456 7890 1234 5678 9012", true},
		{"44 digits with hyphens", "0180-0123-4560-0100-1000-0012-3456-7890-1234-5678-9012", true},
		{"43 digits", cdc44[:43], false},
		{"45 digits", cdc44 + "9", false},
		{"letters inside", cdc44[:40] + "abcd", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidCDC(tt.cdc); got != tt.want {
				t.Errorf("IsValidCDC(%q) = %v, want %v", tt.cdc, got, tt.want)
			}
		})
	}
}

func TestFormatCDC(t *testing.T) {
	want := "0180 0123 4560 0100 1000 0012 3456 7890 1234 5678 9012"
	if got := FormatCDC(cdc44); got != want {
		t.Errorf("FormatCDC() = %q, want %q", got, want)
	}

	// Formatting is idempotent.
	if got := FormatCDC(want); got != want {
		t.Errorf("FormatCDC(formatted) = %q, want unchanged", got)
	}

	// Invalid values pass through untouched.
	if got := FormatCDC("12345"); got != "12345" {
		t.Errorf("FormatCDC(invalid) = %q, want pass-through", got)
	}
	if got := FormatCDC(""); got != "" {
		t.Errorf("FormatCDC(empty) = %q, want empty", got)
	}
}

func TestDocTypeCode(t *testing.T) {
	tests := []struct {
		cond string
		want string
	}{
		{"CONTADO", "CO"},
		{"CREDITO", "CR"},
		{"Crédito", "CR"},
		{"credit 30 dias", "CR"},
		{"", "CO"},
		{"whatever", "CO"},
	}
	for _, tt := range tests {
		if got := DocTypeCode(tt.cond); got != tt.want {
			t.Errorf("DocTypeCode(%q) = %q, want %q", tt.cond, got, tt.want)
		}
	}
}
