package matcher

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-reconciliation-service/internal/models"
	apperrors "portfolio-reconciliation-service/pkg/errors"
	"portfolio-reconciliation-service/pkg/logger"
)

func snapshot(period models.Period, keys ...string) *models.Snapshot {
	s := &models.Snapshot{Period: period}
	for i, k := range keys {
		s.Records = append(s.Records, &models.AccountRecord{
			AccountKey: k,
			Balance:    decimal.NewFromInt(int64(i + 1)),
		})
	}
	return s
}

func keysOf(records []*models.AccountRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.AccountKey
	}
	return out
}

func TestMatchPartitions(t *testing.T) {
	prev := snapshot(models.PeriodPrevious, "P1", "A1", "P2", "A2")
	curr := snapshot(models.PeriodCurrent, "A2", "C1", "A1")

	parts, err := NewMatcher(DuplicatesAllow, logger.Discard()).Match(prev, curr)
	require.NoError(t, err)

	assert.Equal(t, []string{"P1", "P2"}, keysOf(parts.OnlyPrevious))
	assert.Equal(t, []string{"C1"}, keysOf(parts.OnlyCurrent))

	require.Len(t, parts.Matched, 2)
	assert.Equal(t, "A2", parts.Matched[0].Key())
	assert.Equal(t, "A1", parts.Matched[1].Key())
	assert.Same(t, prev.Records[3], parts.Matched[0].Previous)
	assert.Same(t, curr.Records[0], parts.Matched[0].Current)

	assert.Equal(t, 4, parts.PreviousKeys())
	assert.Equal(t, 3, parts.CurrentKeys())
	assert.Equal(t, 2, parts.OnlyPreviousKeys())
	assert.Equal(t, 1, parts.OnlyCurrentKeys())
	assert.True(t, parts.Duplicates.Empty())
}

func TestMatchNoOverlap(t *testing.T) {
	parts, err := Match(snapshot(models.PeriodPrevious, "A"), snapshot(models.PeriodCurrent, "B"), DuplicatesAllow)
	require.NoError(t, err)

	assert.Empty(t, parts.Matched)
	assert.Len(t, parts.OnlyPrevious, 1)
	assert.Len(t, parts.OnlyCurrent, 1)
}

func TestMatchDuplicatesAllowMultiplies(t *testing.T) {
	prev := snapshot(models.PeriodPrevious, "A", "A", "B")
	curr := snapshot(models.PeriodCurrent, "A", "B", "B")

	parts, err := NewMatcher(DuplicatesAllow, logger.Discard()).Match(prev, curr)
	require.NoError(t, err)

	// A: 2x1, B: 1x2
	assert.Len(t, parts.Matched, 4)
	assert.Equal(t, []string{"A"}, parts.Duplicates.Previous)
	assert.Equal(t, []string{"B"}, parts.Duplicates.Current)
}

func TestMatchDuplicatesReject(t *testing.T) {
	prev := snapshot(models.PeriodPrevious, "A", "B")
	curr := snapshot(models.PeriodCurrent, "A", "B", "B")

	_, err := NewMatcher(DuplicatesReject, logger.Discard()).Match(prev, curr)
	require.Error(t, err)

	var dup *apperrors.DuplicateKeyError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "current", dup.Table)
	assert.Equal(t, []string{"B"}, dup.Keys)
}

func TestParseDuplicatePolicy(t *testing.T) {
	tests := []struct {
		input    string
		expected DuplicatePolicy
		wantErr  bool
	}{
		{"allow", DuplicatesAllow, false},
		{"REJECT", DuplicatesReject, false},
		{"", DuplicatesAllow, false},
		{"dedupe", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDuplicatePolicy(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
