package reconcile

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/poravv/cuencly-backend/pkg/models"
)

// CorrectResidual closes a small arithmetic gap between the sum of the
// reconciled buckets and the declared total. The residual is measured in
// whole currency units, half-up.
//
// IVA amounts are legally derived from declared rates and are never altered;
// only one base bucket absorbs the residual: the one among taxed-base-10,
// taxed-base-5 and exempt with the largest positive value, ties resolved in
// that fixed order. When no bucket carries a positive value there is nothing
// to correct against and the amounts are left untouched.
//
// A residual beyond the tolerance is left in place and reported as a warning
// carrying the business key, so the record can be reviewed manually.
func CorrectResidual(inv *models.Invoice, tolerance int64) *models.Warning {
	if inv.Total.IsZero() {
		return nil
	}

	sum := inv.Exempt.Add(inv.TaxedBase5).Add(inv.Tax5).Add(inv.TaxedBase10).Add(inv.Tax10)
	diff := inv.Total.Round(0).Sub(sum.Round(0))
	if diff.IsZero() {
		return nil
	}

	if diff.Abs().GreaterThan(decimal.NewFromInt(tolerance)) {
		return &models.Warning{
			Kind: models.WarnResidualOutOfTolerance,
			Key:  inv.Key(),
			Message: fmt.Sprintf("residual %s exceeds tolerance %d; amounts left unadjusted",
				diff.String(), tolerance),
		}
	}

	target, ok := largestBucket(inv.TaxedBase10, inv.TaxedBase5, inv.Exempt)
	if !ok {
		return nil
	}
	switch target {
	case bucket10:
		inv.TaxedBase10 = inv.TaxedBase10.Add(diff)
	case bucket5:
		inv.TaxedBase5 = inv.TaxedBase5.Add(diff)
	case bucketExempt:
		inv.Exempt = inv.Exempt.Add(diff)
	}
	return nil
}

type bucketID int

// Priority order for tie-breaking: 10% before 5% before exempt.
const (
	bucket10 bucketID = iota
	bucket5
	bucketExempt
)

// largestBucket picks the bucket with the largest positive value; on ties the
// earlier bucket in priority order wins. The second return is false when no
// bucket holds a positive value.
func largestBucket(b10, b5, exempt decimal.Decimal) (bucketID, bool) {
	winner := bucket10
	best := b10
	if b5.GreaterThan(best) {
		winner, best = bucket5, b5
	}
	if exempt.GreaterThan(best) {
		winner, best = bucketExempt, exempt
	}
	return winner, best.IsPositive()
}
