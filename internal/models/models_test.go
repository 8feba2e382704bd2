package models

import (
	"testing"

	"github.com/shopspring/decimal"

	apperrors "portfolio-reconciliation-service/pkg/errors"
)

func TestParseRiskCode(t *testing.T) {
	tests := []struct {
		provision string
		expected  RiskCode
		valid     bool
	}{
		{"G", RiskCodeGood, true},
		{"good", RiskCodeGood, true},
		{"Watchlist", RiskCodeWatchlist, true},
		{" Watchlist", " ", false},
		{"SUB", RiskCodeSubstandard, true},
		{"d", RiskCodeDoubtful, true},
		{"Bad Loan", RiskCodeBad, true},
		{"X", "X", false},
		{"", "", false},
		{"   ", " ", false},
	}

	for _, tt := range tests {
		t.Run(tt.provision, func(t *testing.T) {
			code, ok := ParseRiskCode(tt.provision)
			if code != tt.expected || ok != tt.valid {
				t.Errorf("ParseRiskCode(%q) = %q, %v; want %q, %v", tt.provision, code, ok, tt.expected, tt.valid)
			}
		})
	}
}

func TestCategorize(t *testing.T) {
	codes := []RiskCode{RiskCodeGood, RiskCodeWatchlist, RiskCodeSubstandard, RiskCodeDoubtful, RiskCodeBad}

	prev := 0
	for i, code := range codes {
		rank, cat := Categorize(code)
		if rank != i+1 {
			t.Errorf("expected rank %d for %s, got %d", i+1, code, rank)
		}
		if rank <= prev {
			t.Errorf("rank for %s is not strictly increasing: %d after %d", code, rank, prev)
		}
		if cat != CategoryOrder[i] {
			t.Errorf("expected category %s for %s, got %s", CategoryOrder[i], code, cat)
		}
		if cat.Index() != i {
			t.Errorf("expected category index %d, got %d", i, cat.Index())
		}
		prev = rank
	}

	if rank, cat := Categorize("X"); rank != 0 || cat != "" {
		t.Errorf("expected zero values for unknown code, got %d %q", rank, cat)
	}
}

func TestParseDimension(t *testing.T) {
	tests := []struct {
		input    string
		expected Dimension
		wantErr  bool
	}{
		{"branch", DimensionBranch, false},
		{"Branch Name", DimensionBranch, false},
		{"ACCOUNT_TYPE", DimensionAccountType, false},
		{"ac type desc", DimensionAccountType, false},
		{"region", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDimension(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				rerr, ok := apperrors.AsReconcilerError(err)
				if !ok || rerr.Category != apperrors.CategoryConfiguration {
					t.Errorf("expected configuration error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestParseDimensionsDeduplicates(t *testing.T) {
	dims, err := ParseDimensions([]string{"account_type", "branch", "Ac Type Desc", ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dims) != 2 || dims[0] != DimensionAccountType || dims[1] != DimensionBranch {
		t.Errorf("unexpected dimensions: %v", dims)
	}
}

func TestTableClone(t *testing.T) {
	original := NewTable("previous", "Main Code", "Balance")
	original.AddRow("A1", "100")

	clone, err := original.Clone()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clone.Rows[0][1] = "999"
	clone.Columns[0] = "Changed"

	if original.Rows[0][1] != "100" {
		t.Errorf("clone shares row storage with original")
	}
	if original.Columns[0] != "Main Code" {
		t.Errorf("clone shares column storage with original")
	}
}

func TestLadderTable(t *testing.T) {
	one, two := 1, 2
	ladder := &ReconciliationLadder{
		Opening:  LadderStep{Description: StepOpening, Amount: decimal.NewFromInt(300), Accounts: &two},
		Settled:  LadderStep{Description: StepSettled, Amount: decimal.NewFromInt(-200), Accounts: &one},
		New:      LadderStep{Description: StepNew, Amount: decimal.Zero},
		IncDec:   LadderStep{Description: StepIncDec, Amount: decimal.NewFromInt(50)},
		Adjusted: LadderStep{Description: StepAdjusted, Amount: decimal.NewFromInt(150)},
		Closing:  LadderStep{Description: StepClosing, Amount: decimal.NewFromInt(150), Accounts: &one},
	}

	if !ladder.Balanced() {
		t.Error("expected ladder to be balanced")
	}

	table := ladder.Table("Reco")
	if len(table.Rows) != 6 {
		t.Fatalf("expected 6 rows, got %d", len(table.Rows))
	}
	if table.Rows[1][1] != "-200.00" || table.Rows[1][2] != "1" {
		t.Errorf("unexpected settled row: %v", table.Rows[1])
	}
	if table.Rows[3][2] != "" {
		t.Errorf("expected Inc/Dec to carry no account count, got %q", table.Rows[3][2])
	}
}

func TestGroupComparisonTotal(t *testing.T) {
	g := &GroupComparisonTable{
		Dimension: DimensionBranch,
		Rows: []ComparisonRow{
			{GroupKey: "KTM", PercentChange: decimal.NewFromFloat(12.5)},
			{GroupKey: TotalKey, PercentChange: decimal.Zero},
		},
	}

	if g.Total() == nil || g.Total().GroupKey != TotalKey {
		t.Fatal("expected total row")
	}

	table := g.Table("Branch")
	if table.Columns[0] != ColumnBranchName {
		t.Errorf("expected first column %q, got %q", ColumnBranchName, table.Columns[0])
	}
	if table.Rows[0][6] != "12.50%" {
		t.Errorf("expected pct 12.50%%, got %s", table.Rows[0][6])
	}
	if !table.IsTotalRow(1) || table.IsTotalRow(0) {
		t.Error("expected only the last row to be the total row")
	}
}

func TestMovementSummary(t *testing.T) {
	var s MovementSummary
	for _, m := range []Movement{MovementSlippage, MovementSlippage, MovementStable} {
		s.Add(m)
	}
	if s.Slippage != 2 || s.Upgrade != 0 || s.Stable != 1 {
		t.Errorf("unexpected summary: %+v", s)
	}
	if rows := s.Table("Movement_Summary").Rows; rows[0][0] != "Slippage" || rows[0][1] != "2" {
		t.Errorf("unexpected first row: %v", rows[0])
	}
}

func TestDimensionNamesAreDistinct(t *testing.T) {
	seen := map[string]bool{}
	for _, d := range AllDimensions {
		for _, name := range []string{d.SummaryTableName(), d.CompareTableName()} {
			if seen[name] {
				t.Errorf("table name %s used twice", name)
			}
			seen[name] = true
		}
	}
}
