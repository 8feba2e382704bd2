package reporter

import (
	"strconv"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"portfolio-reconciliation-service/internal/models"
)

type columnKind int

const (
	kindText columnKind = iota
	kindAmount
	kindCount
)

var amountColumns = map[string]bool{
	models.ColumnLimit:   true,
	models.ColumnBalance: true,
	"Amount":             true,
	"Curr_Bal":           true,
	"Prev_Bal":           true,
	"Change":             true,
	"Prev_Sum":           true,
	"New_Sum":            true,
}

var countColumns = map[string]bool{
	"Total":     true,
	"Accounts":  true,
	"Prev_Cnt":  true,
	"New_Cnt":   true,
	"No of Acs": true,
}

func init() {
	for _, c := range models.CategoryNames() {
		countColumns[c] = true
	}
}

func kindOf(column string) columnKind {
	switch {
	case amountColumns[column]:
		return kindAmount
	case countColumns[column]:
		return kindCount
	default:
		return kindText
	}
}

// FormatMoney renders amount in the currency's display format, e.g.
// "$1,234.50". Unknown currencies fall back to two decimals.
func FormatMoney(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.StringFixed(2)
	}

	factor, err := decimal.NewFromInt(10).PowInt32(int32(cur.Fraction))
	if err != nil {
		return amount.StringFixed(2)
	}
	minor := amount.Mul(factor).Round(0)
	return money.New(minor.IntPart(), currency).Display()
}

// IsKnownCurrency reports whether code is an ISO currency known to go-money.
func IsKnownCurrency(code string) bool {
	return money.GetCurrency(code) != nil
}

// displayCell formats a cell for human-readable output.
func displayCell(column, value, currency string) string {
	if kindOf(column) != kindAmount || currency == "" {
		return value
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return value
	}
	return FormatMoney(amount, currency)
}

// typedCell converts numeric cells so spreadsheets see numbers, not text.
func typedCell(column, value string) interface{} {
	switch kindOf(column) {
	case kindAmount:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	case kindCount:
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return value
}
