package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/poravv/cuencly-backend/pkg/models"
)

// NeedsRecalculation reports whether any base/tax field can still be derived
// from the data the record carries. Callers skip Recalculate when it returns
// false, so repeated application never recomputes settled fields.
func NeedsRecalculation(inv *models.Invoice) bool {
	if inv.TaxedBase5.IsZero() && !inv.Tax5.IsZero() {
		return true
	}
	if inv.TaxedBase10.IsZero() && !inv.Tax10.IsZero() {
		return true
	}
	if !inv.TaxedBase5.IsZero() && inv.Tax5.IsZero() {
		return true
	}
	if !inv.TaxedBase10.IsZero() && inv.Tax10.IsZero() {
		return true
	}
	// Nothing at all, but line items to infer from.
	if inv.TaxedBase5.IsZero() && inv.TaxedBase10.IsZero() && inv.Exempt.IsZero() &&
		inv.Tax5.IsZero() && inv.Tax10.IsZero() && len(inv.Items) > 0 {
		return true
	}
	return false
}

// Recalculate fills missing taxed-base/IVA fields in place using the most
// authoritative data available. Exactly one rule applies:
//
//  1. A non-zero base exists: bases are authoritative, missing IVA amounts
//     are base * rate.
//  2. No base but a non-zero IVA amount exists: bases are recovered by
//     inverting the rate.
//  3. Neither, but line items exist: bases are accumulated per line into the
//     5%/10%/exempt buckets, then IVA derived as in rule 1.
//  4. Nothing available: fields stay zero. Not an error.
//
// Fields already holding non-zero values are never overwritten, and the
// declared total is never touched.
func Recalculate(inv *models.Invoice) {
	// Rule 1: bases present.
	if !inv.TaxedBase5.IsZero() || !inv.TaxedBase10.IsZero() {
		if inv.Tax5.IsZero() && !inv.TaxedBase5.IsZero() {
			inv.Tax5 = inv.TaxedBase5.Mul(rate5)
		}
		if inv.Tax10.IsZero() && !inv.TaxedBase10.IsZero() {
			inv.Tax10 = inv.TaxedBase10.Mul(rate10)
		}
		return
	}

	// Rule 2: no bases, but IVA amounts present.
	if !inv.Tax5.IsZero() || !inv.Tax10.IsZero() {
		if !inv.Tax5.IsZero() {
			inv.TaxedBase5 = inv.Tax5.Mul(invRate5)
		}
		if !inv.Tax10.IsZero() {
			inv.TaxedBase10 = inv.Tax10.Mul(invRate10)
		}
		return
	}

	// Rule 3: infer from line items.
	if items := inv.LineItems(); len(items) > 0 {
		base5, base10, exempt := accumulateLines(items)
		inv.TaxedBase5 = base5
		inv.TaxedBase10 = base10
		inv.Exempt = exempt
		inv.Tax5 = base5.Mul(rate5)
		inv.Tax10 = base10.Mul(rate10)
	}

	// Rule 4: nothing available, fields remain zero.
}

// accumulateLines sums line-item bases into the 5%/10%/exempt buckets.
// quantity*unit price is preferred when both are positive; otherwise the base
// is backed out of the printed line total, which is assumed to include IVA
// for taxed lines.
func accumulateLines(items []models.LineItem) (base5, base10, exempt decimal.Decimal) {
	for _, it := range items {
		qty := it.Quantity()
		price := it.UnitPrice()
		total := it.LineTotal()

		var base decimal.Decimal
		haveBase := qty.IsPositive() && price.IsPositive()
		if haveBase {
			base = qty.Mul(price)
		}

		switch it.TaxRate() {
		case 5:
			if haveBase {
				base5 = base5.Add(base)
			} else if !total.IsZero() {
				base5 = base5.Add(total.Div(gross5))
			}
		case 10:
			if haveBase {
				base10 = base10.Add(base)
			} else if !total.IsZero() {
				base10 = base10.Add(total.Div(gross10))
			}
		default:
			if !total.IsZero() {
				exempt = exempt.Add(total)
			} else if haveBase {
				exempt = exempt.Add(base)
			}
		}
	}
	return base5, base10, exempt
}

// Apply runs recalculation and residual correction on one record according to
// cfg. It returns a warning when a residual exceeded the tolerance and was
// left uncorrected; the record remains valid for persistence either way.
func Apply(inv *models.Invoice, cfg Config) *models.Warning {
	if cfg.RecalcEnabled && NeedsRecalculation(inv) {
		Recalculate(inv)
	}
	if cfg.ReconcileEnabled {
		return CorrectResidual(inv, cfg.Tolerance)
	}
	return nil
}
