package migration

import (
	"sort"

	"portfolio-reconciliation-service/internal/models"
	"portfolio-reconciliation-service/pkg/errors"
)

// BuildMatrix counts records by previous category. With DimensionNone the
// result is a single portfolio row; otherwise there is one row per group
// value, sorted by value. A grouped row's PreviousCategory is the previous
// category of the group's first record in input order.
func BuildMatrix(records []models.MigrationRecord, dim models.Dimension) (*models.TransitionMatrix, error) {
	operation := "transition matrix"
	if dim != models.DimensionNone {
		operation += " by " + dim.String()
	}
	if len(records) == 0 {
		return nil, errors.NewEmptyJoinError(operation)
	}

	matrix := &models.TransitionMatrix{Dimension: dim}

	if dim == models.DimensionNone {
		row := models.MatrixRow{}
		for _, r := range records {
			count(&row, r)
		}
		matrix.Rows = []models.MatrixRow{row}
		return matrix, nil
	}

	rows := make(map[string]*models.MatrixRow)
	for _, r := range records {
		key := dim.Value(r.Current)
		row, ok := rows[key]
		if !ok {
			row = &models.MatrixRow{GroupKey: key, PreviousCategory: r.Previous.RiskCategory}
			rows[key] = row
		}
		count(row, r)
	}

	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	matrix.Rows = make([]models.MatrixRow, len(keys))
	for i, k := range keys {
		matrix.Rows[i] = *rows[k]
	}
	return matrix, nil
}

func count(row *models.MatrixRow, r models.MigrationRecord) {
	if idx := r.Previous.RiskCategory.Index(); idx >= 0 {
		row.Counts[idx]++
	}
	row.Total++
}
