package models

import "strings"

// cdcLength is the fixed length of a SIFEN control code.
const cdcLength = 44

// NormalizeCDC strips whitespace and hyphens from a control code.
func NormalizeCDC(cdc string) string {
	var b strings.Builder
	b.Grow(len(cdc))
	for _, r := range cdc {
		switch r {
		case ' ', '\t', '-':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsValidCDC reports whether the control code is exactly 44 numeric
// characters after removing separators. Presence of a valid CDC marks a
// record as authoritative during merge.
func IsValidCDC(cdc string) bool {
	s := NormalizeCDC(cdc)
	if len(s) != cdcLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FormatCDC renders a valid control code in groups of four digits for
// display. Invalid values pass through unchanged.
func FormatCDC(cdc string) string {
	if cdc == "" {
		return ""
	}
	s := NormalizeCDC(cdc)
	if !IsValidCDC(s) {
		return cdc
	}
	groups := make([]string, 0, cdcLength/4)
	for i := 0; i < len(s); i += 4 {
		groups = append(groups, s[i:i+4])
	}
	return strings.Join(groups, " ")
}

// NormalizeSaleCondition maps a free-form sale condition to CONTADO or
// CREDITO.
func NormalizeSaleCondition(cond string) string {
	cu := strings.ToUpper(cond)
	if strings.Contains(cu, "CREDITO") || strings.Contains(cu, "CRÉDITO") || strings.Contains(cu, "CREDIT") {
		return "CREDITO"
	}
	return "CONTADO"
}

// DocTypeCode derives the accounting document type: CR for credit sales, CO
// otherwise.
func DocTypeCode(saleCondition string) string {
	if NormalizeSaleCondition(saleCondition) == "CREDITO" {
		return "CR"
	}
	return "CO"
}
