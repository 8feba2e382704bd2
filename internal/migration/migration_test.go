package migration

import (
	"errors"
	"fmt"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-reconciliation-service/internal/models"
	apperrors "portfolio-reconciliation-service/pkg/errors"
)

var codes = []models.RiskCode{
	models.RiskCodeGood,
	models.RiskCodeWatchlist,
	models.RiskCodeSubstandard,
	models.RiskCodeDoubtful,
	models.RiskCodeBad,
}

func record(key, branch string, code models.RiskCode) *models.AccountRecord {
	rank, cat := models.Categorize(code)
	return &models.AccountRecord{
		AccountKey:   key,
		Branch:       branch,
		AccountType:  "HOME LOAN",
		RiskCode:     code,
		RiskRank:     rank,
		RiskCategory: cat,
	}
}

func pair(key, branch string, prev, curr models.RiskCode) models.MatchedPair {
	return models.MatchedPair{Previous: record(key, branch, prev), Current: record(key, branch, curr)}
}

func TestMovementForExhaustive(t *testing.T) {
	for prev := 1; prev <= 5; prev++ {
		for curr := 1; curr <= 5; curr++ {
			t.Run(fmt.Sprintf("%d->%d", prev, curr), func(t *testing.T) {
				got := MovementFor(prev, curr)
				switch {
				case curr == prev:
					assert.Equal(t, models.MovementStable, got)
				case curr > prev:
					assert.Equal(t, models.MovementSlippage, got)
				default:
					assert.Equal(t, models.MovementUpgrade, got)
				}
			})
		}
	}
}

func TestClassifyScenarioSlippage(t *testing.T) {
	records := Classify([]models.MatchedPair{pair("A1", "KTM", models.RiskCodeGood, models.RiskCodeSubstandard)})

	require.Len(t, records, 1)
	assert.Equal(t, models.MovementSlippage, records[0].Movement)
	assert.Equal(t, 1, records[0].Previous.RiskRank)
	assert.Equal(t, 3, records[0].Current.RiskRank)

	matrix, err := BuildMatrix(records, models.DimensionNone)
	require.NoError(t, err)
	require.Len(t, matrix.Rows, 1)
	assert.Equal(t, [models.CategoryCount]int{1, 0, 0, 0, 0}, matrix.Rows[0].Counts)
	assert.Equal(t, 1, matrix.Rows[0].Total)
}

func TestBuildMatrixGrouped(t *testing.T) {
	records := Classify([]models.MatchedPair{
		pair("A1", "PKR", models.RiskCodeWatchlist, models.RiskCodeGood),
		pair("A2", "KTM", models.RiskCodeBad, models.RiskCodeBad),
		pair("A3", "PKR", models.RiskCodeGood, models.RiskCodeDoubtful),
		pair("A4", "KTM", models.RiskCodeGood, models.RiskCodeGood),
	})

	matrix, err := BuildMatrix(records, models.DimensionBranch)
	require.NoError(t, err)
	require.Len(t, matrix.Rows, 2)

	ktm, pkr := matrix.Rows[0], matrix.Rows[1]
	assert.Equal(t, "KTM", ktm.GroupKey)
	assert.Equal(t, models.CategoryBad, ktm.PreviousCategory)
	assert.Equal(t, [models.CategoryCount]int{1, 0, 0, 0, 1}, ktm.Counts)

	assert.Equal(t, "PKR", pkr.GroupKey)
	assert.Equal(t, models.CategoryWatchlist, pkr.PreviousCategory)
	assert.Equal(t, [models.CategoryCount]int{1, 1, 0, 0, 0}, pkr.Counts)
	assert.Equal(t, 2, pkr.Total)

	table := matrix.Table("Summary_Branch")
	assert.Equal(t, []string{"Branch Name", "Previous Category", "Good", "Watchlist", "Substandard", "Doubtful", "Bad", "Total"}, table.Columns)
}

func TestBuildMatrixEmpty(t *testing.T) {
	_, err := BuildMatrix(nil, models.DimensionAccountType)

	var empty *apperrors.EmptyJoinError
	require.True(t, errors.As(err, &empty))
	assert.Contains(t, empty.Operation, "account_type")
}

func TestMatrixRowSumsProperty(t *testing.T) {
	faker := gofakeit.New(42)
	branches := []string{"KTM", "PKR", "BRT", "BTL"}

	for run := 0; run < 20; run++ {
		n := faker.Number(1, 200)
		pairs := make([]models.MatchedPair, n)
		perGroup := map[string]int{}
		for i := range pairs {
			branch := branches[faker.Number(0, len(branches)-1)]
			perGroup[branch]++
			pairs[i] = pair(fmt.Sprintf("K%d", i), branch,
				codes[faker.Number(0, 4)], codes[faker.Number(0, 4)])
		}
		records := Classify(pairs)

		matrix, err := BuildMatrix(records, models.DimensionBranch)
		require.NoError(t, err)

		for _, row := range matrix.Rows {
			sum := 0
			for _, c := range row.Counts {
				sum += c
			}
			assert.Equal(t, perGroup[row.GroupKey], sum, "row sum for %s", row.GroupKey)
			assert.Equal(t, sum, row.Total)
		}

		summary := Summarize(records)
		assert.Equal(t, n, summary.Slippage+summary.Upgrade+summary.Stable)
	}
}
