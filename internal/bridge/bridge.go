// Package bridge explains the change in total portfolio balance between two
// snapshots as a reconciliation ladder: opening balance, settled accounts,
// new accounts, balance movement on continuing accounts, and closing balance.
package bridge

import (
	"github.com/shopspring/decimal"

	"portfolio-reconciliation-service/internal/matcher"
	"portfolio-reconciliation-service/internal/models"
	"portfolio-reconciliation-service/pkg/errors"
)

// Bridge holds the ladder and the account-level tables behind it.
type Bridge struct {
	Settled  []*models.AccountRecord     `json:"settled"`
	New      []*models.AccountRecord     `json:"new"`
	Movement []models.MovementRow        `json:"movement"`
	Ladder   models.ReconciliationLadder `json:"ladder"`

	previousColumns []string
	currentColumns  []string
}

// SettledTable renders accounts present only in the previous snapshot with
// the previous extract's columns.
func (b *Bridge) SettledTable(name string) *models.Table {
	return rawTable(name, b.previousColumns, b.Settled)
}

// NewTable renders accounts present only in the current snapshot with the
// current extract's columns.
func (b *Bridge) NewTable(name string) *models.Table {
	return rawTable(name, b.currentColumns, b.New)
}

// MovementTable renders the balance change of every continuing account.
func (b *Bridge) MovementTable(name string) *models.Table {
	return models.MovementTable(name, b.Movement)
}

func rawTable(name string, columns []string, records []*models.AccountRecord) *models.Table {
	t := models.NewTable(name, columns...)
	for _, r := range records {
		t.AddRow(append([]string(nil), r.Raw...)...)
	}
	return t
}

var requiredColumns = []string{models.ColumnMainCode, models.ColumnBalance}

// Build computes the bridge from normalized snapshots and their partitions.
func Build(prev, curr *models.Snapshot, parts *matcher.Partitions) (*Bridge, error) {
	for _, snap := range []*models.Snapshot{prev, curr} {
		var missing []string
		for _, col := range requiredColumns {
			if !snap.HasColumn(col) {
				missing = append(missing, col)
			}
		}
		if len(missing) > 0 {
			return nil, errors.NewMissingColumnsError(string(snap.Period), missing, snap.Columns)
		}
	}

	b := &Bridge{
		Settled:         parts.OnlyPrevious,
		New:             parts.OnlyCurrent,
		Movement:        make([]models.MovementRow, 0, len(parts.Matched)),
		previousColumns: prev.Columns,
		currentColumns:  curr.Columns,
	}

	incDec := decimal.Zero
	for _, p := range parts.Matched {
		change := p.Current.Balance.Sub(p.Previous.Balance)
		incDec = incDec.Add(change)
		b.Movement = append(b.Movement, models.MovementRow{
			AccountKey:      p.Current.AccountKey,
			AccountType:     p.Current.AccountType,
			Branch:          p.Current.Branch,
			HolderName:      p.Current.HolderName,
			CurrentBalance:  p.Current.Balance,
			PreviousBalance: p.Previous.Balance,
			Change:          change,
		})
	}

	opening := prev.TotalBalance()
	settled := sum(parts.OnlyPrevious).Neg()
	added := sum(parts.OnlyCurrent)
	closing := curr.TotalBalance()

	b.Ladder = models.ReconciliationLadder{
		Opening:  models.LadderStep{Description: models.StepOpening, Amount: opening, Accounts: count(parts.PreviousKeys())},
		Settled:  models.LadderStep{Description: models.StepSettled, Amount: settled, Accounts: count(-parts.OnlyPreviousKeys())},
		New:      models.LadderStep{Description: models.StepNew, Amount: added, Accounts: count(parts.OnlyCurrentKeys())},
		IncDec:   models.LadderStep{Description: models.StepIncDec, Amount: incDec},
		Adjusted: models.LadderStep{Description: models.StepAdjusted, Amount: opening.Add(settled).Add(added).Add(incDec)},
		Closing:  models.LadderStep{Description: models.StepClosing, Amount: closing, Accounts: count(parts.CurrentKeys())},
	}

	return b, nil
}

func sum(records []*models.AccountRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Balance)
	}
	return total
}

func count(n int) *int {
	return &n
}
