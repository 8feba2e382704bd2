package models

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// DimensionNone builds an ungrouped, portfolio-wide matrix.
const DimensionNone Dimension = ""

// MatrixRow counts the matched accounts of one group by previous category.
type MatrixRow struct {
	GroupKey         string             `json:"groupKey"`
	PreviousCategory Category           `json:"previousCategory,omitempty"`
	Counts           [CategoryCount]int `json:"counts"`
	Total            int                `json:"total"`
}

// TransitionMatrix is a category count matrix, grouped by Dimension or
// ungrouped when Dimension is DimensionNone.
type TransitionMatrix struct {
	Dimension Dimension   `json:"dimension,omitempty"`
	Rows      []MatrixRow `json:"rows"`
}

// Grouped reports whether the matrix has one row per group value.
func (m *TransitionMatrix) Grouped() bool {
	return m.Dimension != DimensionNone
}

// Table renders the matrix with one column per category in CategoryOrder.
func (m *TransitionMatrix) Table(name string) *Table {
	var columns []string
	if m.Grouped() {
		columns = append(columns, m.Dimension.Column(), "Previous Category")
	}
	columns = append(columns, CategoryNames()...)
	columns = append(columns, "Total")

	t := NewTable(name, columns...)
	for _, row := range m.Rows {
		var cells []string
		if m.Grouped() {
			cells = append(cells, row.GroupKey, string(row.PreviousCategory))
		}
		for _, c := range row.Counts {
			cells = append(cells, strconv.Itoa(c))
		}
		cells = append(cells, strconv.Itoa(row.Total))
		t.AddRow(cells...)
	}
	return t
}

// MovementSummary counts migration records per movement.
type MovementSummary struct {
	Slippage int `json:"slippage"`
	Upgrade  int `json:"upgrade"`
	Stable   int `json:"stable"`
}

// Add counts one movement.
func (s *MovementSummary) Add(m Movement) {
	switch m {
	case MovementSlippage:
		s.Slippage++
	case MovementUpgrade:
		s.Upgrade++
	case MovementStable:
		s.Stable++
	}
}

// Count returns the number of records with movement m.
func (s MovementSummary) Count(m Movement) int {
	switch m {
	case MovementSlippage:
		return s.Slippage
	case MovementUpgrade:
		return s.Upgrade
	case MovementStable:
		return s.Stable
	}
	return 0
}

func (s MovementSummary) Table(name string) *Table {
	t := NewTable(name, "Movement", "Accounts")
	for _, m := range MovementOrder {
		t.AddRow(string(m), strconv.Itoa(s.Count(m)))
	}
	return t
}

// SlippageTable renders migration records with current-period attributes.
func SlippageTable(name string, records []MigrationRecord) *Table {
	t := NewTable(name,
		ColumnBranchName, ColumnMainCode, ColumnAcTypeDesc, ColumnName,
		ColumnLimit, ColumnBalance, "cat_prev", "cat_curr", "Movement")
	for _, r := range records {
		cur := r.Current
		t.AddRow(cur.Branch, cur.AccountKey, cur.AccountType, cur.HolderName,
			FormatAmount(cur.Limit), FormatAmount(cur.Balance),
			string(r.Previous.RiskCategory), string(cur.RiskCategory), string(r.Movement))
	}
	return t
}

// Ladder step descriptions, in order.
const (
	StepOpening  = "Opening"
	StepSettled  = "Settled"
	StepNew      = "New"
	StepIncDec   = "Inc/Dec"
	StepAdjusted = "Adjusted"
	StepClosing  = "Closing"
)

// LadderStep is one row of the reconciliation ladder. Accounts is nil for
// steps that carry no account count.
type LadderStep struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Accounts    *int            `json:"accounts,omitempty"`
}

// ReconciliationLadder bridges the opening balance to the closing balance.
type ReconciliationLadder struct {
	Opening  LadderStep `json:"opening"`
	Settled  LadderStep `json:"settled"`
	New      LadderStep `json:"new"`
	IncDec   LadderStep `json:"incDec"`
	Adjusted LadderStep `json:"adjusted"`
	Closing  LadderStep `json:"closing"`
}

// Steps returns the six steps in ladder order.
func (l *ReconciliationLadder) Steps() []LadderStep {
	return []LadderStep{l.Opening, l.Settled, l.New, l.IncDec, l.Adjusted, l.Closing}
}

// Balanced reports whether Adjusted equals Closing.
func (l *ReconciliationLadder) Balanced() bool {
	return l.Adjusted.Amount.Equal(l.Closing.Amount)
}

// Difference returns Closing minus Adjusted.
func (l *ReconciliationLadder) Difference() decimal.Decimal {
	return l.Closing.Amount.Sub(l.Adjusted.Amount)
}

func (l *ReconciliationLadder) Table(name string) *Table {
	t := NewTable(name, "Description", "Amount", "No of Acs")
	for _, step := range l.Steps() {
		count := ""
		if step.Accounts != nil {
			count = strconv.Itoa(*step.Accounts)
		}
		t.AddRow(step.Description, FormatAmount(step.Amount), count)
	}
	return t
}

// MovementRow is the balance change of one continuing account.
type MovementRow struct {
	AccountKey      string          `json:"accountKey"`
	AccountType     string          `json:"accountType"`
	Branch          string          `json:"branch"`
	HolderName      string          `json:"holderName"`
	CurrentBalance  decimal.Decimal `json:"currentBalance"`
	PreviousBalance decimal.Decimal `json:"previousBalance"`
	Change          decimal.Decimal `json:"change"`
}

// MovementTable renders continuing-account balance changes.
func MovementTable(name string, rows []MovementRow) *Table {
	t := NewTable(name, ColumnMainCode, ColumnAcTypeDesc, ColumnBranchName, ColumnName,
		"Curr_Bal", "Prev_Bal", "Change")
	for _, r := range rows {
		t.AddRow(r.AccountKey, r.AccountType, r.Branch, r.HolderName,
			FormatAmount(r.CurrentBalance), FormatAmount(r.PreviousBalance), FormatAmount(r.Change))
	}
	return t
}

// ComparisonRow holds per-period balance sums and counts for one group.
type ComparisonRow struct {
	GroupKey      string          `json:"groupKey"`
	PreviousSum   decimal.Decimal `json:"previousSum"`
	PreviousCount int             `json:"previousCount"`
	CurrentSum    decimal.Decimal `json:"currentSum"`
	CurrentCount  int             `json:"currentCount"`
	Change        decimal.Decimal `json:"change"`
	PercentChange decimal.Decimal `json:"percentChange"`
}

// GroupComparisonTable compares balances per group across the two periods.
// The last row is the grand total, keyed by TotalKey.
type GroupComparisonTable struct {
	Dimension Dimension       `json:"dimension"`
	Rows      []ComparisonRow `json:"rows"`
}

// Total returns the grand-total row, or nil for an empty table.
func (g *GroupComparisonTable) Total() *ComparisonRow {
	if len(g.Rows) == 0 {
		return nil
	}
	last := &g.Rows[len(g.Rows)-1]
	if last.GroupKey != TotalKey {
		return nil
	}
	return last
}

func (g *GroupComparisonTable) Table(name string) *Table {
	t := NewTable(name, g.Dimension.Column(), "Prev_Sum", "Prev_Cnt", "New_Sum", "New_Cnt", "Change", "Pct")
	for _, r := range g.Rows {
		t.AddRow(r.GroupKey,
			FormatAmount(r.PreviousSum), strconv.Itoa(r.PreviousCount),
			FormatAmount(r.CurrentSum), strconv.Itoa(r.CurrentCount),
			FormatAmount(r.Change), FormatPercent(r.PercentChange))
	}
	return t
}

// FormatPercent renders a percentage with two decimals and a percent sign.
func FormatPercent(p decimal.Decimal) string {
	return p.StringFixed(2) + "%"
}
