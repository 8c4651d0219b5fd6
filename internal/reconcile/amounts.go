package reconcile

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseOutcome tells a caller why ParseAmount returned the value it did, so
// "field absent, default applied" and "field malformed, zero applied" stay
// distinguishable in logs and tests.
type ParseOutcome int

const (
	// AmountPresent: the input parsed cleanly.
	AmountPresent ParseOutcome = iota
	// AmountAbsent: the input was empty; zero was applied as the default.
	AmountAbsent
	// AmountMalformed: the input was non-empty but unparseable; zero was
	// applied and the caller should log a low-severity warning.
	AmountMalformed
)

// ParseAmount converts a free-form monetary string, as produced by AI
// extraction, into a decimal. It tolerates thousands separators and both
// comma and dot decimal marks ("1.234.567", "1,234.56", "1234,56").
// Malformed input never aborts a record; it yields zero plus the outcome.
func ParseAmount(raw string) (decimal.Decimal, ParseOutcome) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, AmountAbsent
	}

	s = strings.ReplaceAll(s, " ", "")
	s = normalizeSeparators(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, AmountMalformed
	}
	return d, AmountPresent
}

// normalizeSeparators rewrites the number to use '.' as the decimal mark.
// When both separators appear, the rightmost one is the decimal mark; a lone
// separator followed by exactly three digits is treated as a thousands
// separator only when it repeats.
func normalizeSeparators(s string) string {
	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			// "1.234.567,89"
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// "1,234,567.89"
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			// "1,234,567"
			s = strings.ReplaceAll(s, ",", "")
		} else {
			// "1234,56"
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastDot >= 0 && strings.Count(s, ".") > 1:
		// "1.234.567"
		s = strings.ReplaceAll(s, ".", "")
	}
	return s
}
