package models

import (
	"strings"
)

// RiskCode is the single-letter provision classification of an account.
type RiskCode string

const (
	RiskCodeGood        RiskCode = "G"
	RiskCodeWatchlist   RiskCode = "W"
	RiskCodeSubstandard RiskCode = "S"
	RiskCodeDoubtful    RiskCode = "D"
	RiskCodeBad         RiskCode = "B"
)

// Category is the human name of a risk code.
type Category string

const (
	CategoryGood        Category = "Good"
	CategoryWatchlist   Category = "Watchlist"
	CategorySubstandard Category = "Substandard"
	CategoryDoubtful    Category = "Doubtful"
	CategoryBad         Category = "Bad"
)

// CategoryCount is the number of risk categories.
const CategoryCount = 5

// CategoryOrder is the column order of every aggregated table, best to worst.
var CategoryOrder = [CategoryCount]Category{
	CategoryGood,
	CategoryWatchlist,
	CategorySubstandard,
	CategoryDoubtful,
	CategoryBad,
}

var riskTable = map[RiskCode]struct {
	rank     int
	category Category
}{
	RiskCodeGood:        {1, CategoryGood},
	RiskCodeWatchlist:   {2, CategoryWatchlist},
	RiskCodeSubstandard: {3, CategorySubstandard},
	RiskCodeDoubtful:    {4, CategoryDoubtful},
	RiskCodeBad:         {5, CategoryBad},
}

// String returns the string representation of RiskCode
func (c RiskCode) String() string {
	return string(c)
}

// IsValid checks if the code is one of G, W, S, D or B
func (c RiskCode) IsValid() bool {
	_, ok := riskTable[c]
	return ok
}

// ParseRiskCode derives a risk code from a provision value: its upper-cased
// first character, untrimmed, so " Good" yields the invalid code " ". The
// second result reports whether the code is valid; an empty provision yields
// an empty, invalid code.
func ParseRiskCode(provision string) (RiskCode, bool) {
	if provision == "" {
		return "", false
	}
	code := RiskCode(strings.ToUpper(string([]rune(provision)[0])))
	return code, code.IsValid()
}

// Categorize maps a risk code to its rank (1..5) and category. Unknown codes
// return 0 and an empty category; callers validate codes beforehand.
func Categorize(code RiskCode) (int, Category) {
	entry, ok := riskTable[code]
	if !ok {
		return 0, ""
	}
	return entry.rank, entry.category
}

// Index returns the 0-based column of the category in CategoryOrder, or -1.
func (c Category) Index() int {
	for i, cat := range CategoryOrder {
		if cat == c {
			return i
		}
	}
	return -1
}

// CategoryNames returns CategoryOrder as plain strings, for table headers.
func CategoryNames() []string {
	names := make([]string, len(CategoryOrder))
	for i, c := range CategoryOrder {
		names[i] = string(c)
	}
	return names
}
