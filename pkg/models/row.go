package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExportRow is the finalized, fixed-point view of an invoice as it appears in
// a persisted partition. It is derived from an Invoice at the export
// boundary; the amounts already satisfy the bucket and grand-total
// invariants for the row's currency.
type ExportRow struct {
	IssuerRUC     string `json:"issuer_ruc"`
	InvoiceNumber string `json:"invoice_number"`

	IssueDate  time.Time `json:"issue_date"`
	IssuerName string    `json:"issuer_name"`
	DocType    string    `json:"doc_type"` // CO or CR

	TaxedBase10 decimal.Decimal `json:"taxed_base_10"`
	Tax10       decimal.Decimal `json:"tax_10"`
	TaxedBase5  decimal.Decimal `json:"taxed_base_5"`
	Tax5        decimal.Decimal `json:"tax_5"`
	Exempt      decimal.Decimal `json:"exempt"`
	Total       decimal.Decimal `json:"total"`

	Currency     string          `json:"currency"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`

	Timbrado string `json:"timbrado,omitempty"`
	CDC      string `json:"cdc,omitempty"` // formatted for display

	CustomerRUC  string `json:"customer_ruc,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
	Description  string `json:"description,omitempty"`

	Source        string    `json:"source"`
	OriginChannel string    `json:"origin_channel,omitempty"`
	ProcessedAt   time.Time `json:"processed_at"`
}

// Key returns the row's business key.
func (r *ExportRow) Key() BusinessKey {
	return BusinessKey{IssuerRUC: r.IssuerRUC, InvoiceNumber: r.InvoiceNumber}
}

// HasValidCDC reports whether the row carries a valid 44-digit control code.
func (r *ExportRow) HasValidCDC() bool {
	return IsValidCDC(r.CDC)
}

// ItemRow is one flattened line item in a persisted partition, keyed by
// (business key, article).
type ItemRow struct {
	IssuerRUC     string          `json:"issuer_ruc"`
	InvoiceNumber string          `json:"invoice_number"`
	IssueDate     time.Time       `json:"issue_date"`
	Article       string          `json:"article"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Total         decimal.Decimal `json:"total"`
	TaxRate       int             `json:"tax_rate"`
	Currency      string          `json:"currency"`
}

// MonthlySummary aggregates the key amounts of one partition.
type MonthlySummary struct {
	Partition   string          `json:"partition"`
	Invoices    int             `json:"invoices"`
	TaxedBase10 decimal.Decimal `json:"taxed_base_10"`
	Tax10       decimal.Decimal `json:"tax_10"`
	TaxedBase5  decimal.Decimal `json:"taxed_base_5"`
	Tax5        decimal.Decimal `json:"tax_5"`
	Exempt      decimal.Decimal `json:"exempt"`
	Total       decimal.Decimal `json:"total"`
	WithCDC     int             `json:"with_cdc"`
}

// SnapshotInfo describes one monthly snapshot file on disk.
type SnapshotInfo struct {
	Filename     string    `json:"filename"`
	Partition    string    `json:"partition"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	Rows         int       `json:"rows"`
}
