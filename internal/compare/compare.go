// Package compare aggregates balances per group for both periods and
// reports the change between them.
package compare

import (
	"sort"

	"github.com/shopspring/decimal"

	"portfolio-reconciliation-service/internal/models"
	"portfolio-reconciliation-service/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// Compare builds the grouped comparison of prev and curr along dim. Groups
// present in only one period get zero sums and counts on the other side.
// Rows are sorted by group value and followed by a grand-total row.
func Compare(prev, curr *models.Snapshot, dim models.Dimension) (*models.GroupComparisonTable, error) {
	if !dim.IsValid() {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "dimension", dim, nil)
	}

	column := dim.Column()
	for _, snap := range []*models.Snapshot{prev, curr} {
		if !snap.HasColumn(column) {
			return nil, errors.NewMissingColumnsError(string(snap.Period), []string{column}, snap.Columns)
		}
	}

	groups := make(map[string]*models.ComparisonRow)
	row := func(key string) *models.ComparisonRow {
		r, ok := groups[key]
		if !ok {
			r = &models.ComparisonRow{GroupKey: key}
			groups[key] = r
		}
		return r
	}

	for _, rec := range prev.Records {
		r := row(dim.Value(rec))
		r.PreviousSum = r.PreviousSum.Add(rec.Balance)
		r.PreviousCount++
	}
	for _, rec := range curr.Records {
		r := row(dim.Value(rec))
		r.CurrentSum = r.CurrentSum.Add(rec.Balance)
		r.CurrentCount++
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := &models.GroupComparisonTable{
		Dimension: dim,
		Rows:      make([]models.ComparisonRow, 0, len(keys)+1),
	}
	total := models.ComparisonRow{GroupKey: models.TotalKey}

	for _, k := range keys {
		r := groups[k]
		finish(r)
		table.Rows = append(table.Rows, *r)

		total.PreviousSum = total.PreviousSum.Add(r.PreviousSum)
		total.PreviousCount += r.PreviousCount
		total.CurrentSum = total.CurrentSum.Add(r.CurrentSum)
		total.CurrentCount += r.CurrentCount
	}
	finish(&total)
	table.Rows = append(table.Rows, total)

	return table, nil
}

// finish derives Change and PercentChange from the sums.
func finish(r *models.ComparisonRow) {
	r.Change = r.CurrentSum.Sub(r.PreviousSum)
	r.PercentChange = PercentChange(r.PreviousSum, r.CurrentSum)
}

// PercentChange returns (current-previous)/previous*100 rounded to two
// decimals, or zero when previous is zero.
func PercentChange(previous, current decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		return decimal.Zero
	}
	return current.Sub(previous).Div(previous).Mul(hundred).Round(2)
}
