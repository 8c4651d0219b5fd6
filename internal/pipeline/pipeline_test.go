package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poravv/cuencly-backend/internal/export"
	"github.com/poravv/cuencly-backend/internal/extract"
	"github.com/poravv/cuencly-backend/internal/reconcile"
	"github.com/poravv/cuencly-backend/pkg/models"
)

const sampleRDE = `<?xml version="1.0" encoding="UTF-8"?>
<rDE>
  <DE Id="01800123456001001000001234567890123456789012">
    <gTimb>
      <dNumTim>12345678</dNumTim>
      <dEst>001</dEst>
      <dPunExp>001</dPunExp>
      <dNumDoc>0000123</dNumDoc>
    </gTimb>
    <gDatGralOpe>
      <dFeEmiDE>2026-08-15T10:30:00</dFeEmiDE>
      <gEmis>
        <dRucEm>80012345</dRucEm>
        <dDVEmi>6</dDVEmi>
        <dNomEmi>Distribuidora Central S.A.</dNomEmi>
      </gEmis>
    </gDatGralOpe>
    <gTotSub>
      <dSub10>136364</dSub10>
      <dIVA10>13636</dIVA10>
      <dTotGralOpe>150000</dTotGralOpe>
    </gTotSub>
  </DE>
</rDE>`

type memStore struct {
	rows  map[string][]models.ExportRow
	items map[string][]models.ItemRow
}

func newMemStore() *memStore {
	return &memStore{
		rows:  make(map[string][]models.ExportRow),
		items: make(map[string][]models.ItemRow),
	}
}

func (m *memStore) LoadPartition(_ context.Context, partition string) ([]models.ExportRow, []models.ItemRow, error) {
	return m.rows[partition], m.items[partition], nil
}

func (m *memStore) ReplacePartition(_ context.Context, partition string, rows []models.ExportRow, items []models.ItemRow) error {
	m.rows[partition] = rows
	m.items[partition] = items
	return nil
}

func newTestPipeline(t *testing.T, store export.Store) *Pipeline {
	t.Helper()
	svc := export.NewService(store, t.TempDir(), reconcile.DefaultConfig())
	cfg := DefaultConfig()
	cfg.Workers = 2
	cfg.Timeout = 30 * time.Second
	return New(extract.NewNativeXMLExtractor(), nil, svc, cfg)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRun_ProcessesAndExports(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "factura1.xml", sampleRDE)
	writeFile(t, dir, "broken.xml", "this is not xml")
	writeFile(t, dir, "notes.txt", "ignored")

	store := newMemStore()
	p := newTestPipeline(t, store)

	result, err := p.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !result.Success || result.TimedOut {
		t.Errorf("result = %+v, want success without timeout", result)
	}
	if result.InvoiceCount != 1 {
		t.Errorf("InvoiceCount = %d, want 1", result.InvoiceCount)
	}
	if result.Failed != 1 {
		t.Errorf("Failed = %d, want 1 (broken XML isolated)", result.Failed)
	}
	if result.Export == nil || result.Export.Inserted != 1 {
		t.Fatalf("Export = %+v, want 1 inserted", result.Export)
	}

	rows := store.rows["2026-08"]
	if len(rows) != 1 || rows[0].InvoiceNumber != "001-001-0000123" {
		t.Errorf("stored rows = %+v", rows)
	}
}

func TestRun_EmptyDirectory(t *testing.T) {
	p := newTestPipeline(t, newMemStore())

	result, err := p.Run(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Success || result.InvoiceCount != 0 {
		t.Errorf("result = %+v, want success with zero documents", result)
	}
}

// stallExtractor parses well-formed XML normally and blocks on anything else
// until the run context is cancelled.
type stallExtractor struct {
	inner extract.Extractor
}

func (s *stallExtractor) Source() string { return s.inner.Source() }

func (s *stallExtractor) Extract(ctx context.Context, doc io.Reader) (*models.Invoice, error) {
	data, err := io.ReadAll(doc)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(string(data), "<?xml") {
		return s.inner.Extract(ctx, strings.NewReader(string(data)))
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRun_WatchdogExpiry(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "factura1.xml", sampleRDE)
	writeFile(t, dir, "stuck.xml", "never finishes")

	store := newMemStore()
	svc := export.NewService(store, t.TempDir(), reconcile.DefaultConfig())
	cfg := Config{Timeout: 50 * time.Millisecond, Workers: 2}
	p := New(&stallExtractor{inner: extract.NewNativeXMLExtractor()}, nil, svc, cfg)

	result, err := p.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !result.TimedOut {
		t.Fatal("expected the watchdog to report a timeout")
	}
	if result.Success {
		t.Error("a timed-out run must not be reported as success")
	}
	if result.InvoiceCount != 1 {
		t.Errorf("InvoiceCount = %d, want 1 extracted before the deadline", result.InvoiceCount)
	}
	if result.Export != nil {
		t.Errorf("Export = %+v, want no export after a timeout", result.Export)
	}
	if len(store.rows) != 0 {
		t.Errorf("store partitions = %v, want none written", store.rows)
	}
}

func TestRun_ScannedDocumentWithoutBackend(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "scan.pdf", "%PDF-1.7 fake")

	p := newTestPipeline(t, newMemStore())

	result, err := p.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Failed != 1 {
		t.Errorf("Failed = %d, want 1 when no AI backend is configured", result.Failed)
	}
}
