package reconcile

import "testing"

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		outcome ParseOutcome
	}{
		{"plain integer", "150000", "150000", AmountPresent},
		{"dot decimal", "1234.56", "1234.56", AmountPresent},
		{"comma decimal", "1234,56", "1234.56", AmountPresent},
		{"dot thousands comma decimal", "1.234.567,89", "1234567.89", AmountPresent},
		{"comma thousands dot decimal", "1,234,567.89", "1234567.89", AmountPresent},
		{"dot thousands only", "1.234.567", "1234567", AmountPresent},
		{"comma thousands only", "1,234,567", "1234567", AmountPresent},
		{"single comma decimal mark", "105,5", "105.5", AmountPresent},
		{"embedded spaces", " 1 500 000 ", "1500000", AmountPresent},
		{"negative", "-2500", "-2500", AmountPresent},
		{"empty", "", "0", AmountAbsent},
		{"whitespace only", "   ", "0", AmountAbsent},
		{"garbage", "N/A", "0", AmountMalformed},
		{"currency symbol", "Gs. 150000", "0", AmountMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, outcome := ParseAmount(tt.raw)
			if outcome != tt.outcome {
				t.Errorf("ParseAmount(%q) outcome = %d, want %d", tt.raw, outcome, tt.outcome)
			}
			if got.String() != tt.want {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.raw, got, tt.want)
			}
		})
	}
}
