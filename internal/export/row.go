package export

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/poravv/cuencly-backend/pkg/models"
)

// maxDescriptionLen caps the article summary carried on a row.
const maxDescriptionLen = 120

// buildRow converts a reconciled invoice into its persisted row plus its
// flattened line items. Amounts are fixed-point after this call; the CDC is
// stored in display form.
func buildRow(inv *models.Invoice) (models.ExportRow, []models.ItemRow) {
	amounts := fixAmounts(inv)

	row := models.ExportRow{
		IssuerRUC:     inv.IssuerRUC,
		InvoiceNumber: inv.InvoiceNumber,
		IssueDate:     inv.IssueDate,
		IssuerName:    inv.IssuerName,
		DocType:       models.DocTypeCode(inv.SaleCondition),

		TaxedBase10: amounts.Base10,
		Tax10:       amounts.Tax10,
		TaxedBase5:  amounts.Base5,
		Tax5:        amounts.Tax5,
		Exempt:      amounts.Exempt,
		Total:       amounts.Total,

		Currency:     currencyCode(inv),
		ExchangeRate: inv.ExchangeRate,

		Timbrado: inv.Timbrado,
		CDC:      models.FormatCDC(inv.CDC),

		CustomerRUC:  inv.CustomerRUC,
		CustomerName: inv.CustomerName,
		Description:  describeItems(inv.Items),

		Source:        inv.Source,
		OriginChannel: inv.OriginChannel,
		ProcessedAt:   inv.ProcessedAt,
	}
	if row.ProcessedAt.IsZero() {
		row.ProcessedAt = time.Now()
	}

	items := make([]models.ItemRow, 0, len(inv.Items))
	for _, it := range inv.Items {
		if strings.TrimSpace(it.ArticleName) == "" {
			continue
		}
		items = append(items, models.ItemRow{
			IssuerRUC:     inv.IssuerRUC,
			InvoiceNumber: inv.InvoiceNumber,
			IssueDate:     inv.IssueDate,
			Article:       it.ArticleName,
			Quantity:      it.Qty,
			UnitPrice:     it.Price,
			Total:         it.Total,
			TaxRate:       it.IVARate,
			Currency:      row.Currency,
		})
	}
	return row, items
}

// currencyCode normalizes the currency for persistence; empty means GS.
func currencyCode(inv *models.Invoice) string {
	c := strings.ToUpper(strings.TrimSpace(inv.Currency))
	if c == "" || c == "PYG" {
		return "GS"
	}
	return c
}

// describeItems summarizes the articles of an invoice for the row's
// description column.
func describeItems(items []models.Item) string {
	var parts []string
	for _, it := range items {
		name := strings.TrimSpace(it.ArticleName)
		if name == "" {
			continue
		}
		parts = append(parts, name)
	}
	desc := strings.Join(parts, "; ")
	if len(desc) > maxDescriptionLen {
		// Cut on a rune boundary so accented article names survive intact.
		cut := maxDescriptionLen - 3
		for cut > 0 && !utf8.RuneStart(desc[cut]) {
			cut--
		}
		desc = desc[:cut] + "..."
	}
	return desc
}
