package export

import (
	"github.com/shopspring/decimal"

	"github.com/poravv/cuencly-backend/pkg/models"
)

// totalTolerance is the largest gap, in minor currency units, between the
// declared total and the recomputed bucket sum that the rounder closes
// silently. Anything larger keeps the recomputed sum, so arithmetic
// inconsistencies stay visible instead of being papered over.
const totalTolerance = 2

// fixedAmounts is the fixed-point monetary breakdown of one invoice at the
// export boundary. Every bucket satisfies total = base + tax exactly at the
// currency's precision.
type fixedAmounts struct {
	Base10, Tax10 decimal.Decimal
	Base5, Tax5   decimal.Decimal
	Exempt        decimal.Decimal
	Total         decimal.Decimal
}

// fixBucket rounds one (base, tax) pair without letting the per-field
// roundings drift apart: the bucket total is rounded first, the base second,
// and the tax takes the remainder so the identity holds by construction.
func fixBucket(base, tax decimal.Decimal, places int32) (decimal.Decimal, decimal.Decimal, decimal.Decimal) {
	total := base.Add(tax).Round(places)
	base = base.Round(places)
	tax = total.Sub(base)
	return base, tax, total
}

// fixAmounts converts a reconciled invoice to its fixed-point export form.
// Rounding is half-up at the currency's precision: whole guaraníes, two
// decimals otherwise.
//
// The grand total is recomputed from the rounded buckets. When the declared
// total differs by no more than totalTolerance minor units, the declared
// value is kept and the gap is folded into the largest base bucket, matching
// how residual correction distributes differences. Beyond that the
// recomputed sum wins.
func fixAmounts(inv *models.Invoice) fixedAmounts {
	places := inv.DecimalPlaces()

	base5, tax5, total5 := fixBucket(inv.TaxedBase5, inv.Tax5, places)
	base10, tax10, total10 := fixBucket(inv.TaxedBase10, inv.Tax10, places)
	exempt := inv.Exempt.Round(places)

	total := total5.Add(total10).Add(exempt)

	if !inv.Total.IsZero() {
		declared := inv.Total.Round(places)
		diff := declared.Sub(total)
		if !diff.IsZero() && withinMinorUnits(diff, places, totalTolerance) {
			switch {
			case base10.Abs().GreaterThanOrEqual(base5.Abs()) && base10.Abs().GreaterThanOrEqual(exempt.Abs()):
				base10 = base10.Add(diff)
			case base5.Abs().GreaterThanOrEqual(exempt.Abs()):
				base5 = base5.Add(diff)
			default:
				exempt = exempt.Add(diff)
			}
			total = declared
		}
	}

	return fixedAmounts{
		Base10: base10, Tax10: tax10,
		Base5: base5, Tax5: tax5,
		Exempt: exempt,
		Total:  total,
	}
}

// withinMinorUnits reports whether |d| is at most n minor units at the given
// precision (n whole units at 0 places, n cents at 2).
func withinMinorUnits(d decimal.Decimal, places int32, n int64) bool {
	limit := decimal.New(n, -places)
	return d.Abs().LessThanOrEqual(limit)
}
