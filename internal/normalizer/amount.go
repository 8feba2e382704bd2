package normalizer

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount coerces a cell to a decimal. It accepts surrounding whitespace,
// thousands separators and accounting-style parentheses for negatives. The
// second result is false for empty or non-numeric cells.
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.ReplaceAll(s, ",", "")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}
