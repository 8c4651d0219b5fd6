package cmd

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poravv/cuencly-backend/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DatabasePath:        filepath.Join(t.TempDir(), "cuencly.db"),
		SnapshotDir:         t.TempDir(),
		BatchTimeoutSeconds: 600,
		BatchWorkers:        2,
	}
}

func TestBuildPipeline_NoScanBackend(t *testing.T) {
	cfg := testConfig(t)

	db, _, exporter, err := openExporter(cfg)
	if err != nil {
		t.Fatalf("openExporter: %v", err)
	}
	defer db.Close()

	pipe, err := buildPipeline(context.Background(), cfg, exporter)
	if err != nil {
		t.Fatalf("buildPipeline: %v", err)
	}
	if pipe == nil {
		t.Fatal("expected a pipeline even without a scan backend")
	}
}

func TestScanExtractor_DocumentAIRequiresProject(t *testing.T) {
	cfg := testConfig(t)
	cfg.DocumentAIProcessorID = "abc123"

	_, err := scanExtractor(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected error when the Google Cloud project is not configured")
	}
	if !strings.Contains(err.Error(), "Document AI") {
		t.Errorf("error = %q, want the Document AI backend named", err)
	}
}

func TestScanExtractor_None(t *testing.T) {
	cfg := testConfig(t)

	scan, err := scanExtractor(context.Background(), cfg)
	if err != nil {
		t.Fatalf("scanExtractor: %v", err)
	}
	if scan != nil {
		t.Errorf("scan extractor = %v, want nil", scan)
	}
}
