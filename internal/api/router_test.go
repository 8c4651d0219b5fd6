package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/poravv/cuencly-backend/internal/export"
	"github.com/poravv/cuencly-backend/internal/reconcile"
	"github.com/poravv/cuencly-backend/internal/store"
	"github.com/poravv/cuencly-backend/pkg/models"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := store.InitDB(":memory:")
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := store.NewInvoiceRepo(db)
	svc := export.NewService(repo, t.TempDir(), reconcile.DefaultConfig())

	row := models.ExportRow{
		IssuerRUC:     "80012345-6",
		InvoiceNumber: "001-001-0000123",
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
		ExchangeRate:  decimal.Zero,
		Source:        "xml",
		ProcessedAt:   time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC),
	}
	if err := repo.ReplacePartition(context.Background(), "2026-08", []models.ExportRow{row}, nil); err != nil {
		t.Fatalf("ReplacePartition: %v", err)
	}

	srv := httptest.NewServer(NewRouter(repo, svc, nil, ""))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, wantStatus int, out any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s: status = %d, want %d", url, resp.StatusCode, wantStatus)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	var body map[string]string
	getJSON(t, srv.URL+"/healthz", http.StatusOK, &body)
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestListMonths(t *testing.T) {
	srv := newTestServer(t)

	var body struct {
		Months []struct {
			Partition string `json:"partition"`
			Invoices  int    `json:"invoices"`
		} `json:"months"`
		Total int `json:"total"`
	}
	getJSON(t, srv.URL+"/api/v1/months", http.StatusOK, &body)

	if body.Total != 1 || len(body.Months) != 1 {
		t.Fatalf("months = %+v", body)
	}
	if body.Months[0].Partition != "2026-08" || body.Months[0].Invoices != 1 {
		t.Errorf("month entry = %+v", body.Months[0])
	}
}

func TestGetMonth(t *testing.T) {
	srv := newTestServer(t)

	var body struct {
		Partition string             `json:"partition"`
		Invoices  []models.ExportRow `json:"invoices"`
	}
	getJSON(t, srv.URL+"/api/v1/months/2026-08", http.StatusOK, &body)

	if len(body.Invoices) != 1 {
		t.Fatalf("invoices = %+v", body.Invoices)
	}
	got := body.Invoices[0]
	if got.InvoiceNumber != "001-001-0000123" || !got.Total.Equal(decimal.NewFromInt(150000)) {
		t.Errorf("invoice = %+v", got)
	}
}

func TestGetMonth_Errors(t *testing.T) {
	srv := newTestServer(t)

	getJSON(t, srv.URL+"/api/v1/months/not-a-month", http.StatusBadRequest, nil)
	getJSON(t, srv.URL+"/api/v1/months/2020-01", http.StatusNotFound, nil)
}

func TestGetMonthSummary(t *testing.T) {
	srv := newTestServer(t)

	var summary models.MonthlySummary
	getJSON(t, srv.URL+"/api/v1/months/2026-08/summary", http.StatusOK, &summary)

	if summary.Invoices != 1 {
		t.Errorf("Invoices = %d, want 1", summary.Invoices)
	}
	if !summary.Tax10.Equal(decimal.NewFromInt(13636)) {
		t.Errorf("Tax10 = %s, want 13636", summary.Tax10)
	}
	if summary.WithCDC != 0 {
		t.Errorf("WithCDC = %d, want 0", summary.WithCDC)
	}
}

func TestGetStats(t *testing.T) {
	srv := newTestServer(t)

	var body struct {
		ByPartition   map[string]int `json:"by_partition"`
		TotalInvoices int            `json:"total_invoices"`
	}
	getJSON(t, srv.URL+"/api/v1/stats", http.StatusOK, &body)

	if body.TotalInvoices != 1 || body.ByPartition["2026-08"] != 1 {
		t.Errorf("stats = %+v", body)
	}
}

func TestTriggerProcess_NoPipeline(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/process", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}
