package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tiendc/go-deepcopy"
)

// Column names of the portfolio extracts.
const (
	ColumnBranchName = "Branch Name"
	ColumnMainCode   = "Main Code"
	ColumnAcTypeDesc = "Ac Type Desc"
	ColumnName       = "Name"
	ColumnLimit      = "Limit"
	ColumnBalance    = "Balance"
	ColumnProvision  = "Provision"
)

// TotalKey is the group value that marks a synthetic grand-total row.
const TotalKey = "Total"

// Table is a named grid of string cells. Ingestion hands the engine one per
// snapshot and the engine hands its results back as Tables.
type Table struct {
	Name    string     `json:"name"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// NewTable creates an empty table with the given header
func NewTable(name string, columns ...string) *Table {
	return &Table{Name: name, Columns: append([]string(nil), columns...), Rows: [][]string{}}
}

// AddRow appends a row of cells
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Clone returns an independent deep copy of the table.
func (t *Table) Clone() (*Table, error) {
	var out Table
	if err := deepcopy.Copy(&out, t); err != nil {
		return nil, fmt.Errorf("failed to copy table %s: %w", t.Name, err)
	}
	return &out, nil
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Cell returns the cell at row/column, or "" when the row is short.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// IsTotalRow reports whether the row's first cell is the grand-total sentinel.
func (t *Table) IsTotalRow(row int) bool {
	return t.Cell(row, 0) == TotalKey
}

// Period identifies which side of the reconciliation a snapshot belongs to.
type Period string

const (
	PeriodPrevious Period = "previous"
	PeriodCurrent  Period = "current"
)

// Context selects the normalization rules applied to a snapshot.
type Context string

const (
	// ContextSlippage requires provision codes and feeds the migration matrices.
	ContextSlippage Context = "slippage"
	// ContextComparison drops staff loans and subtotal rows and feeds the bridge.
	ContextComparison Context = "comparison"
)

// AccountRecord is one normalized row of a snapshot.
type AccountRecord struct {
	Branch       string          `json:"branch"`
	AccountKey   string          `json:"accountKey"`
	AccountType  string          `json:"accountType"`
	HolderName   string          `json:"holderName"`
	Limit        decimal.Decimal `json:"limit"`
	Balance      decimal.Decimal `json:"balance"`
	RiskCode     RiskCode        `json:"riskCode,omitempty"`
	RiskRank     int             `json:"riskRank,omitempty"`
	RiskCategory Category        `json:"riskCategory,omitempty"`

	// Raw holds the source cells after normalization, aligned with Snapshot.Columns.
	Raw []string `json:"-"`
}

// String returns a string representation of the AccountRecord
func (r *AccountRecord) String() string {
	return fmt.Sprintf("AccountRecord{Key: %s, Type: %s, Balance: %s, Risk: %s}",
		r.AccountKey, r.AccountType, r.Balance.String(), r.RiskCode)
}

// Stats counts what normalization kept and dropped.
type Stats struct {
	RowsRead         int `json:"rowsRead"`
	DroppedMissing   int `json:"droppedMissing"`
	DroppedZeroLimit int `json:"droppedZeroLimit"`
	DroppedStaffLoan int `json:"droppedStaffLoan"`
	DroppedSentinel  int `json:"droppedSentinel"`
	Retained         int `json:"retained"`
}

// Snapshot is a normalized portfolio extract for one period.
type Snapshot struct {
	Name    string           `json:"name"`
	Period  Period           `json:"period"`
	Context Context          `json:"context"`
	Columns []string         `json:"columns"`
	Records []*AccountRecord `json:"records"`
	Stats   Stats            `json:"stats"`
}

// HasColumn reports whether the source extract carried the named column.
func (s *Snapshot) HasColumn(name string) bool {
	for _, c := range s.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// TotalBalance sums the balance of every record.
func (s *Snapshot) TotalBalance() decimal.Decimal {
	total := decimal.Zero
	for _, r := range s.Records {
		total = total.Add(r.Balance)
	}
	return total
}

// MatchedPair links the previous and current record of one account key.
type MatchedPair struct {
	Previous *AccountRecord `json:"previous"`
	Current  *AccountRecord `json:"current"`
}

// Key returns the shared account key
func (p MatchedPair) Key() string {
	return p.Current.AccountKey
}

// Movement is the direction of a risk-category change.
type Movement string

const (
	MovementSlippage Movement = "Slippage"
	MovementUpgrade  Movement = "Upgrade"
	MovementStable   Movement = "Stable"
)

// MovementOrder is the display order of movements.
var MovementOrder = []Movement{MovementSlippage, MovementUpgrade, MovementStable}

// MigrationRecord is a matched pair with its movement verdict.
type MigrationRecord struct {
	MatchedPair
	Movement Movement `json:"movement"`
}

// FormatAmount renders a money value with two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// NormalizeHeader trims a column name.
func NormalizeHeader(h string) string {
	return strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
}
