// Package migration classifies risk-category movement of matched accounts
// and aggregates it into transition matrices.
package migration

import (
	"portfolio-reconciliation-service/internal/models"
)

// MovementFor compares two risk ranks. A higher current rank is a slippage,
// a lower one an upgrade; equal ranks are stable.
func MovementFor(previousRank, currentRank int) models.Movement {
	switch {
	case currentRank > previousRank:
		return models.MovementSlippage
	case currentRank < previousRank:
		return models.MovementUpgrade
	default:
		return models.MovementStable
	}
}

// Classify derives the movement of every matched pair, keeping pair order.
func Classify(pairs []models.MatchedPair) []models.MigrationRecord {
	records := make([]models.MigrationRecord, len(pairs))
	for i, p := range pairs {
		records[i] = models.MigrationRecord{
			MatchedPair: p,
			Movement:    MovementFor(p.Previous.RiskRank, p.Current.RiskRank),
		}
	}
	return records
}

// Summarize counts records per movement.
func Summarize(records []models.MigrationRecord) models.MovementSummary {
	var s models.MovementSummary
	for _, r := range records {
		s.Add(r.Movement)
	}
	return s
}
