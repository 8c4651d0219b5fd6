package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/poravv/cuencly-backend/pkg/models"
)

func newTestRepo(t *testing.T) *InvoiceRepo {
	t.Helper()
	db, err := InitDB(":memory:")
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewInvoiceRepo(db)
}

func testRow() models.ExportRow {
	return models.ExportRow{
		IssuerRUC:     "80011111-1",
		InvoiceNumber: "001-001-0000001",
		IssueDate:     time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
		IssuerName:    "Distribuidora Central S.A.",
		DocType:       "CO",
		TaxedBase10:   decimal.NewFromInt(136364),
		Tax10:         decimal.NewFromInt(13636),
		TaxedBase5:    decimal.Zero,
		Tax5:          decimal.Zero,
		Exempt:        decimal.Zero,
		Total:         decimal.NewFromInt(150000),
		Currency:      "GS",
		CDC:           "0180 0123 4560 0100 1000 0012 3456 7890 1234 5678 9012",
		Source:        models.SourceNative,
		ProcessedAt:   time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
	}
}

func TestReplaceAndLoadPartition(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	row := testRow()
	items := []models.ItemRow{{
		IssuerRUC:     row.IssuerRUC,
		InvoiceNumber: row.InvoiceNumber,
		IssueDate:     row.IssueDate,
		Article:       "mercaderia",
		Quantity:      decimal.NewFromInt(1),
		UnitPrice:     decimal.NewFromInt(150000),
		Total:         decimal.NewFromInt(150000),
		TaxRate:       10,
		Currency:      "GS",
	}}

	if err := repo.ReplacePartition(ctx, "2026-08", []models.ExportRow{row}, items); err != nil {
		t.Fatalf("ReplacePartition: %v", err)
	}

	rows, gotItems, err := repo.LoadPartition(ctx, "2026-08")
	if err != nil {
		t.Fatalf("LoadPartition: %v", err)
	}
	if len(rows) != 1 || len(gotItems) != 1 {
		t.Fatalf("got %d rows, %d items; want 1 and 1", len(rows), len(gotItems))
	}

	got := rows[0]
	if got.Key() != row.Key() {
		t.Errorf("key = %v, want %v", got.Key(), row.Key())
	}
	// Amounts survive the round trip exactly.
	if !got.TaxedBase10.Equal(row.TaxedBase10) || !got.Total.Equal(row.Total) {
		t.Errorf("amounts changed: base10=%s total=%s", got.TaxedBase10, got.Total)
	}
	if got.CDC != row.CDC {
		t.Errorf("CDC = %q, want %q", got.CDC, row.CDC)
	}
	if !got.IssueDate.Equal(row.IssueDate) {
		t.Errorf("IssueDate = %v, want %v", got.IssueDate, row.IssueDate)
	}
	if !gotItems[0].UnitPrice.Equal(items[0].UnitPrice) {
		t.Errorf("item unit price = %s, want %s", gotItems[0].UnitPrice, items[0].UnitPrice)
	}
}

func TestReplacePartition_SwapsContents(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first := testRow()
	if err := repo.ReplacePartition(ctx, "2026-08", []models.ExportRow{first}, nil); err != nil {
		t.Fatalf("ReplacePartition: %v", err)
	}

	second := testRow()
	second.InvoiceNumber = "001-001-0000002"
	if err := repo.ReplacePartition(ctx, "2026-08", []models.ExportRow{second}, nil); err != nil {
		t.Fatalf("ReplacePartition: %v", err)
	}

	rows, _, err := repo.LoadPartition(ctx, "2026-08")
	if err != nil {
		t.Fatalf("LoadPartition: %v", err)
	}
	if len(rows) != 1 || rows[0].InvoiceNumber != "001-001-0000002" {
		t.Errorf("partition not fully replaced: %+v", rows)
	}
}

func TestLoadPartition_Empty(t *testing.T) {
	repo := newTestRepo(t)

	rows, items, err := repo.LoadPartition(context.Background(), "1999-01")
	if err != nil {
		t.Fatalf("LoadPartition: %v", err)
	}
	if len(rows) != 0 || len(items) != 0 {
		t.Errorf("expected empty partition, got %d rows, %d items", len(rows), len(items))
	}
}

func TestListMonthsAndStats(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, partition := range []string{"2026-07", "2026-08"} {
		row := testRow()
		if err := repo.ReplacePartition(ctx, partition, []models.ExportRow{row}, nil); err != nil {
			t.Fatalf("ReplacePartition %s: %v", partition, err)
		}
	}

	months, err := repo.ListMonths(ctx)
	if err != nil {
		t.Fatalf("ListMonths: %v", err)
	}
	if len(months) != 2 || months[0] != "2026-08" || months[1] != "2026-07" {
		t.Errorf("months = %v, want [2026-08 2026-07]", months)
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats["2026-07"] != 1 || stats["2026-08"] != 1 {
		t.Errorf("stats = %v, want 1 per partition", stats)
	}
}
