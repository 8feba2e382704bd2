package reconciler

import (
	"portfolio-reconciliation-service/internal/bridge"
	"portfolio-reconciliation-service/internal/models"
	"portfolio-reconciliation-service/pkg/logger"
)

// Output table names, in export order.
const (
	TableSlippageDetail  = "Slippage_Detail"
	TableSummaryTotal    = "Summary_Total"
	TableMovementSummary = "Movement_Summary"
	TableSettled         = "Settled"
	TableNew             = "New"
	TableMovement        = "Movement"
	TableReco            = "Reco"
)

// SnapshotStats pairs the normalization stats of both periods.
type SnapshotStats struct {
	Previous models.Stats `json:"previous"`
	Current  models.Stats `json:"current"`
}

// Result contains the complete results of one reconciliation
type Result struct {
	RunID string `json:"run_id"`

	Slippage        []models.MigrationRecord   `json:"slippage"`
	MovementSummary models.MovementSummary     `json:"movement_summary"`
	Total           *models.TransitionMatrix   `json:"total"`
	Summaries       []*models.TransitionMatrix `json:"summaries"`

	Bridge      *bridge.Bridge                 `json:"bridge"`
	Comparisons []*models.GroupComparisonTable `json:"comparisons"`

	SlippageSnapshots   SnapshotStats        `json:"slippage_snapshots"`
	ComparisonSnapshots SnapshotStats        `json:"comparison_snapshots"`
	Warnings            []string             `json:"warnings"`
	Stages              []logger.StageTiming `json:"-"`
}

// Tables renders the result as named tables in export order. The output is a
// pure function of the input tables and configuration.
func (r *Result) Tables() []*models.Table {
	tables := []*models.Table{
		models.SlippageTable(TableSlippageDetail, r.Slippage),
		r.Total.Table(TableSummaryTotal),
	}
	for _, m := range r.Summaries {
		tables = append(tables, m.Table(m.Dimension.SummaryTableName()))
	}
	tables = append(tables,
		r.MovementSummary.Table(TableMovementSummary),
		r.Bridge.SettledTable(TableSettled),
		r.Bridge.NewTable(TableNew),
		r.Bridge.MovementTable(TableMovement),
		r.Bridge.Ladder.Table(TableReco),
	)
	for _, c := range r.Comparisons {
		tables = append(tables, c.Table(c.Dimension.CompareTableName()))
	}
	return tables
}

// Table returns the named output table, or nil.
func (r *Result) Table(name string) *models.Table {
	for _, t := range r.Tables() {
		if t.Name == name {
			return t
		}
	}
	return nil
}
