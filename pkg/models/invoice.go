package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Extraction sources, recorded as provenance on every invoice.
const (
	SourceNative = "XML_NATIVO"    // structured SIFEN XML parse
	SourceVision = "OPENAI_VISION" // OCR + AI extraction from a PDF
)

// Invoice is the central entity of the pipeline. It is created by an
// extractor with possibly-partial monetary fields, completed in place by the
// reconciliation engine, and converted to a fixed-point ExportRow at the
// export boundary.
type Invoice struct {
	// Business key
	IssuerRUC     string `json:"issuer_ruc"`
	InvoiceNumber string `json:"invoice_number"`

	IssuerName   string    `json:"issuer_name"`
	CustomerRUC  string    `json:"customer_ruc,omitempty"`
	CustomerName string    `json:"customer_name,omitempty"`
	IssueDate    time.Time `json:"issue_date"`

	// Monetary breakdown. TaxedBase5/TaxedBase10 are the taxable bases
	// (without IVA); Tax5/Tax10 the corresponding IVA amounts; Exempt the
	// untaxed portion; Total the declared invoice total.
	TaxedBase5  decimal.Decimal `json:"taxed_base_5"`
	Tax5        decimal.Decimal `json:"tax_5"`
	TaxedBase10 decimal.Decimal `json:"taxed_base_10"`
	Tax10       decimal.Decimal `json:"tax_10"`
	Exempt      decimal.Decimal `json:"exempt"`
	Total       decimal.Decimal `json:"total"`

	// GS/PYG implies whole guaraníes; any other currency two decimals.
	Currency     string          `json:"currency"`
	ExchangeRate decimal.Decimal `json:"exchange_rate,omitempty"`

	SaleCondition string `json:"sale_condition,omitempty"` // CONTADO / CREDITO

	// Document validation fields issued by the tax authority (SIFEN).
	CDC      string `json:"cdc,omitempty"`      // 44-digit control code
	Timbrado string `json:"timbrado,omitempty"` // fiscal stamp number

	Items []Item `json:"items,omitempty"`

	// Provenance
	Source        string    `json:"source"`
	OriginChannel string    `json:"origin_channel,omitempty"`
	ProcessedAt   time.Time `json:"processed_at"`

	// ProcessMonth overrides the partition key when set ("YYYY-MM").
	ProcessMonth string `json:"process_month,omitempty"`
}

// Key returns the business key identifying the invoice within a partition.
func (inv *Invoice) Key() BusinessKey {
	return BusinessKey{IssuerRUC: inv.IssuerRUC, InvoiceNumber: inv.InvoiceNumber}
}

// IsGuarani reports whether the invoice is denominated in guaraníes, which
// have no fractional sub-unit. An empty currency defaults to GS.
func (inv *Invoice) IsGuarani() bool {
	switch strings.ToUpper(strings.TrimSpace(inv.Currency)) {
	case "", "GS", "PYG":
		return true
	}
	return false
}

// DecimalPlaces returns the fixed-point precision for the invoice currency.
func (inv *Invoice) DecimalPlaces() int32 {
	if inv.IsGuarani() {
		return 0
	}
	return 2
}

// LineItems exposes the items through the LineItem capability interface the
// reconciliation algorithms consume.
func (inv *Invoice) LineItems() []LineItem {
	if len(inv.Items) == 0 {
		return nil
	}
	items := make([]LineItem, len(inv.Items))
	for i := range inv.Items {
		items[i] = &inv.Items[i]
	}
	return items
}

// BusinessKey uniquely identifies an invoice within a partition.
type BusinessKey struct {
	IssuerRUC     string
	InvoiceNumber string
}

func (k BusinessKey) String() string {
	return k.IssuerRUC + "/" + k.InvoiceNumber
}

// LineItem is the capability interface through which the reconciliation
// engine reads invoice lines, independent of how an extractor built them.
type LineItem interface {
	// Article returns the product or service description.
	Article() string
	// Quantity returns the billed quantity; zero when unknown.
	Quantity() decimal.Decimal
	// UnitPrice returns the unit price; zero when unknown.
	UnitPrice() decimal.Decimal
	// LineTotal returns the line total as printed on the document. It may
	// include IVA for taxed lines.
	LineTotal() decimal.Decimal
	// TaxRate returns the applicable IVA rate: 0, 5 or 10.
	TaxRate() int
}

// Item is the concrete line-item representation produced by the extractors.
type Item struct {
	ArticleName string          `json:"article"`
	Qty         decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
	IVARate     int             `json:"tax_rate"`
}

func (it *Item) Article() string            { return it.ArticleName }
func (it *Item) Quantity() decimal.Decimal  { return it.Qty }
func (it *Item) UnitPrice() decimal.Decimal { return it.Price }
func (it *Item) LineTotal() decimal.Decimal { return it.Total }
func (it *Item) TaxRate() int               { return it.IVARate }
