package export

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/poravv/cuencly-backend/pkg/models"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestFixBucket_IdentityHolds(t *testing.T) {
	tests := []struct {
		name   string
		base   string
		tax    string
		places int32
	}{
		{"whole guaranies", "136364", "13636.4", 0},
		{"half up on base", "100.5", "10.05", 0},
		{"half up on total", "99.2", "0.3", 0},
		{"two decimals", "123.456", "12.3456", 2},
		{"negative credit note", "-136364", "-13636.4", 0},
		{"zero bucket", "0", "0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, tax, total := fixBucket(dec(tt.base), dec(tt.tax), tt.places)

			if !base.Add(tax).Equal(total) {
				t.Errorf("base %s + tax %s != total %s", base, tax, total)
			}
			if want := dec(tt.base).Add(dec(tt.tax)).Round(tt.places); !total.Equal(want) {
				t.Errorf("total = %s, want %s", total, want)
			}
			if base.Exponent() < -tt.places || tax.Exponent() < -tt.places {
				t.Errorf("precision leak: base %s tax %s at %d places", base, tax, tt.places)
			}
		})
	}
}

func TestFixBucket_HalfUp(t *testing.T) {
	base, _, _ := fixBucket(dec("100.5"), dec("0"), 0)
	if !base.Equal(dec("101")) {
		t.Errorf("Round(100.5) = %s, want 101 (half-up)", base)
	}
}

func TestFixAmounts_DeclaredTotalWithinTolerance(t *testing.T) {
	inv := &models.Invoice{
		Currency:    "GS",
		TaxedBase10: dec("136364"),
		Tax10:       dec("13636"),
		Total:       dec("150002"),
	}

	a := fixAmounts(inv)

	// The declared total survives; the gap lands on the largest base.
	if !a.Total.Equal(dec("150002")) {
		t.Errorf("Total = %s, want declared 150002", a.Total)
	}
	if !a.Base10.Equal(dec("136366")) {
		t.Errorf("Base10 = %s, want 136366", a.Base10)
	}
	if !a.Tax10.Equal(dec("13636")) {
		t.Errorf("Tax10 = %s, want unchanged 13636", a.Tax10)
	}
}

func TestFixAmounts_DeclaredTotalBeyondTolerance(t *testing.T) {
	inv := &models.Invoice{
		Currency:    "GS",
		TaxedBase10: dec("136364"),
		Tax10:       dec("13636"),
		Total:       dec("150010"),
	}

	a := fixAmounts(inv)

	// Too far off: the recomputed bucket sum wins and the gap stays visible.
	if !a.Total.Equal(dec("150000")) {
		t.Errorf("Total = %s, want recomputed 150000", a.Total)
	}
	if !a.Base10.Equal(dec("136364")) {
		t.Errorf("Base10 = %s, want unchanged 136364", a.Base10)
	}
}

func TestFixAmounts_ForeignCurrencyTwoDecimals(t *testing.T) {
	inv := &models.Invoice{
		Currency:    "USD",
		TaxedBase10: dec("90.909"),
		Tax10:       dec("9.0909"),
		Total:       dec("100"),
	}

	a := fixAmounts(inv)

	if !a.Base10.Add(a.Tax10).Add(a.Base5).Add(a.Tax5).Add(a.Exempt).Equal(a.Total) {
		t.Errorf("buckets %s+%s do not sum to total %s", a.Base10, a.Tax10, a.Total)
	}
	if !a.Total.Equal(dec("100")) {
		t.Errorf("Total = %s, want 100.00", a.Total)
	}
}

func TestFixAmounts_GrandTotalIdentity(t *testing.T) {
	tests := []struct {
		name          string
		base5, tax5   string
		base10, tax10 string
		exempt, total string
	}{
		{"mixed buckets", "100000", "5000", "136364", "13636.4", "30000", "285000"},
		{"exempt only", "0", "0", "0", "0", "50000", "50000"},
		{"fractional drift", "33333.3", "1666.67", "0", "0", "0", "35000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &models.Invoice{
				Currency:    "GS",
				TaxedBase5:  dec(tt.base5),
				Tax5:        dec(tt.tax5),
				TaxedBase10: dec(tt.base10),
				Tax10:       dec(tt.tax10),
				Exempt:      dec(tt.exempt),
				Total:       dec(tt.total),
			}

			a := fixAmounts(inv)

			sum := a.Base5.Add(a.Tax5).Add(a.Base10).Add(a.Tax10).Add(a.Exempt)
			if !sum.Equal(a.Total) {
				t.Errorf("bucket sum %s != total %s", sum, a.Total)
			}
		})
	}
}
