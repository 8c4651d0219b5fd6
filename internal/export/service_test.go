package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poravv/cuencly-backend/internal/reconcile"
	"github.com/poravv/cuencly-backend/pkg/models"
)

// memStore keeps partitions in memory for service tests.
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

func sampleInvoice() models.Invoice {
	return models.Invoice{
		IssuerRUC:     "80011111-1",
		InvoiceNumber: "001-001-0000001",
		IssuerName:    "Distribuidora Central S.A.",
		IssueDate:     time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
		TaxedBase10:   dec("136364"),
		Total:         dec("150000"),
		Currency:      "GS",
		SaleCondition: "CONTADO",
		Source:        models.SourceNative,
		CDC:           validCDC,
		Items: []models.Item{
			{ArticleName: "mercaderia", Qty: dec("1"), Price: dec("150000"), Total: dec("150000"), IVARate: 10},
		},
	}
}

func TestService_ExportAndReRun(t *testing.T) {
	dir := t.TempDir()
	store := newMemStore()
	svc := NewService(store, dir, reconcile.DefaultConfig())

	result, err := svc.Export(context.Background(), []models.Invoice{sampleInvoice()})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if result.Inserted != 1 || result.Updated != 0 {
		t.Errorf("inserted=%d updated=%d, want 1/0", result.Inserted, result.Updated)
	}
	if len(result.Partitions) != 1 || result.Partitions[0] != "2026-08" {
		t.Errorf("partitions = %v, want [2026-08]", result.Partitions)
	}

	rows := store.rows["2026-08"]
	if len(rows) != 1 {
		t.Fatalf("stored %d rows, want 1", len(rows))
	}
	// The missing IVA amount was derived before persisting.
	if !rows[0].Tax10.Equal(dec("13636")) {
		t.Errorf("Tax10 = %s, want 13636", rows[0].Tax10)
	}
	if rows[0].DocType != "CO" {
		t.Errorf("DocType = %q, want CO", rows[0].DocType)
	}
	if !rows[0].HasValidCDC() {
		t.Errorf("stored CDC %q not valid", rows[0].CDC)
	}

	// Re-running the same batch changes nothing and inserts nothing.
	again, err := svc.Export(context.Background(), []models.Invoice{sampleInvoice()})
	if err != nil {
		t.Fatalf("second Export: %v", err)
	}
	if again.Inserted != 0 {
		t.Errorf("re-run inserted = %d, want 0", again.Inserted)
	}
	if got := store.rows["2026-08"]; len(got) != 1 || !got[0].Total.Equal(rows[0].Total) {
		t.Errorf("re-run altered the partition: %+v", got)
	}
}

func TestService_SnapshotFiles(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(newMemStore(), dir, reconcile.DefaultConfig())

	result, err := svc.Export(context.Background(), []models.Invoice{sampleInvoice()})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(result.Snapshots) != 2 {
		t.Fatalf("got %d snapshot files, want invoice and item CSV", len(result.Snapshots))
	}

	data, err := os.ReadFile(filepath.Join(dir, "facturas_2026-08.csv"))
	if err != nil {
		t.Fatalf("reading invoice snapshot: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "80011111-1") || !strings.Contains(content, "150000") {
		t.Errorf("snapshot missing expected row data:\n%s", content)
	}
	if !strings.HasPrefix(content, "fecha,ruc_emisor") {
		t.Errorf("snapshot missing header:\n%s", content)
	}

	infos, err := svc.Snapshots()
	if err != nil {
		t.Fatalf("Snapshots: %v", err)
	}
	if len(infos) != 1 || infos[0].Partition != "2026-08" || infos[0].Rows != 1 {
		t.Errorf("snapshot listing = %+v, want one 2026-08 snapshot with 1 row", infos)
	}
}

func TestService_Summary(t *testing.T) {
	dir := t.TempDir()
	store := newMemStore()
	svc := NewService(store, dir, reconcile.DefaultConfig())

	if _, err := svc.Export(context.Background(), []models.Invoice{sampleInvoice()}); err != nil {
		t.Fatalf("Export: %v", err)
	}

	sum, err := svc.Summary(context.Background(), "2026-08")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Invoices != 1 || sum.WithCDC != 1 {
		t.Errorf("summary = %+v, want 1 invoice with CDC", sum)
	}
	if !sum.Total.Equal(dec("150000")) {
		t.Errorf("summary total = %s, want 150000", sum.Total)
	}
}
