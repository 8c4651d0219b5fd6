// Package reconcile completes and squares the monetary breakdown of an
// invoice before it reaches the export boundary.
//
// Two steps run against each record, both pure functions of that record:
//
//  1. Recalculate fills missing taxed-base/IVA amounts from whatever partial
//     data is available, including inference from line items.
//  2. CorrectResidual closes small gaps between the bucket sum and the
//     declared total by adjusting a single base bucket, never an IVA amount.
//
// Absence of data is never an error here: a record with no usable monetary
// information simply keeps zero fields.
package reconcile

import "github.com/shopspring/decimal"

// DefaultTolerance is the largest residual, in whole currency units, that
// CorrectResidual absorbs automatically.
const DefaultTolerance = 2

// Config controls the reconciliation steps. It is passed in explicitly so the
// engine never reads process-wide state.
type Config struct {
	// RecalcEnabled enables filling missing base/tax fields.
	RecalcEnabled bool
	// ReconcileEnabled enables residual correction against the declared total.
	ReconcileEnabled bool
	// Tolerance is the maximum absorbable residual in whole currency units.
	Tolerance int64
}

// DefaultConfig enables both steps with the default tolerance.
func DefaultConfig() Config {
	return Config{
		RecalcEnabled:    true,
		ReconcileEnabled: true,
		Tolerance:        DefaultTolerance,
	}
}

// IVA rates and derived factors used throughout the package.
var (
	rate5   = decimal.New(5, -2)   // 0.05
	rate10  = decimal.New(1, -1)   // 0.10
	gross5  = decimal.New(105, -2) // 1.05, line total including 5% IVA
	gross10 = decimal.New(11, -1)  // 1.10, line total including 10% IVA

	// Inverting a rate: base = tax / 0.05 = tax * 20, base = tax / 0.10 = tax * 10.
	invRate5  = decimal.NewFromInt(20)
	invRate10 = decimal.NewFromInt(10)
)
