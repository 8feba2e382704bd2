package models

import (
	"strings"

	"portfolio-reconciliation-service/pkg/errors"
)

// Dimension is a grouping attribute for matrices and comparisons.
type Dimension string

const (
	DimensionBranch      Dimension = "branch"
	DimensionAccountType Dimension = "account_type"
)

// AllDimensions lists every recognized dimension.
var AllDimensions = []Dimension{DimensionBranch, DimensionAccountType}

// Column returns the snapshot column the dimension groups by.
func (d Dimension) Column() string {
	switch d {
	case DimensionBranch:
		return ColumnBranchName
	case DimensionAccountType:
		return ColumnAcTypeDesc
	default:
		return ""
	}
}

// SummaryTableName returns the name of the transition matrix table for d.
func (d Dimension) SummaryTableName() string {
	switch d {
	case DimensionBranch:
		return "Summary_Branch"
	case DimensionAccountType:
		return "Summary_AcType"
	default:
		return "Summary_" + string(d)
	}
}

// CompareTableName returns the name of the grouped comparison table for d.
func (d Dimension) CompareTableName() string {
	switch d {
	case DimensionAccountType:
		return "Compare"
	case DimensionBranch:
		return "Branch"
	default:
		return "Compare_" + string(d)
	}
}

// Value returns the record's value for the dimension.
func (d Dimension) Value(r *AccountRecord) string {
	switch d {
	case DimensionBranch:
		return r.Branch
	case DimensionAccountType:
		return r.AccountType
	default:
		return ""
	}
}

func (d Dimension) String() string {
	return string(d)
}

// IsValid checks if the dimension is recognized
func (d Dimension) IsValid() bool {
	return d == DimensionBranch || d == DimensionAccountType
}

// ParseDimension accepts a dimension name or the column it groups by,
// case-insensitively.
func ParseDimension(s string) (Dimension, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	switch key {
	case "branch", "branch_name", strings.ToLower(ColumnBranchName):
		return DimensionBranch, nil
	case "account_type", "actype", "ac_type", strings.ToLower(ColumnAcTypeDesc):
		return DimensionAccountType, nil
	}
	return "", errors.ConfigurationError(errors.CodeInvalidConfig, "dimension", s, nil).
		WithSuggestion("valid dimensions are: branch, account_type")
}

// ParseDimensions parses a list of names, dropping duplicates and keeping order.
func ParseDimensions(names []string) ([]Dimension, error) {
	var dims []Dimension
	seen := make(map[Dimension]bool)
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		d, err := ParseDimension(name)
		if err != nil {
			return nil, err
		}
		if !seen[d] {
			seen[d] = true
			dims = append(dims, d)
		}
	}
	return dims, nil
}
