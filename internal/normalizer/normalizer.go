// Package normalizer validates raw snapshot tables and turns them into typed
// account records.
//
// Two rule sets exist. The slippage context requires provision codes and
// rejects the whole table when any retained row carries an unknown code. The
// comparison context ignores provisions and instead drops staff loans and the
// subtotal rows that portfolio extracts append to each account type.
package normalizer

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"portfolio-reconciliation-service/internal/models"
	"portfolio-reconciliation-service/pkg/errors"
	"portfolio-reconciliation-service/pkg/logger"
)

// DefaultStaffLoans are account types excluded from balance comparison.
var DefaultStaffLoans = []string{
	"STAFF SOCIAL LOAN",
	"STAFF VEHICLE LOAN",
	"STAFF HOME LOAN",
	"STAFF FLEXIBLE LOAN",
	"STAFF HOME LOAN(COF)",
	"STAFF VEHICLE FACILITY LOAN (EVF)",
}

// DefaultSentinels are Main Code values that mark subtotal rows.
var DefaultSentinels = []string{"AcType Total", "Grand Total"}

// Options holds the exclusion sets applied in the comparison context.
type Options struct {
	StaffLoans []string `json:"staff_loans" mapstructure:"staff_loans"`
	Sentinels  []string `json:"sentinels" mapstructure:"sentinels"`
}

// DefaultOptions returns the exclusion sets of the standard extract
func DefaultOptions() *Options {
	return &Options{
		StaffLoans: append([]string(nil), DefaultStaffLoans...),
		Sentinels:  append([]string(nil), DefaultSentinels...),
	}
}

// Validate checks that no exclusion entry is blank
func (o *Options) Validate() error {
	return validation.ValidateStruct(o,
		validation.Field(&o.StaffLoans, validation.Each(validation.Required)),
		validation.Field(&o.Sentinels, validation.Each(validation.Required)),
	)
}

var requiredColumns = map[models.Context][]string{
	models.ContextSlippage: {
		models.ColumnBranchName, models.ColumnMainCode, models.ColumnAcTypeDesc,
		models.ColumnName, models.ColumnLimit, models.ColumnBalance, models.ColumnProvision,
	},
	models.ContextComparison: {
		models.ColumnAcTypeDesc, models.ColumnMainCode, models.ColumnLimit, models.ColumnBalance,
	},
}

// Normalizer applies the normalization rules with a fixed set of options.
// It holds no per-call state and is safe for concurrent use.
type Normalizer struct {
	staffLoans map[string]struct{}
	sentinels  map[string]struct{}
	logger     logger.Logger
}

// New creates a Normalizer. A nil options value selects DefaultOptions.
func New(opts *Options, log logger.Logger) (*Normalizer, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "normalizer", err.Error(), err)
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	n := &Normalizer{
		staffLoans: make(map[string]struct{}, len(opts.StaffLoans)),
		sentinels:  make(map[string]struct{}, len(opts.Sentinels)),
		logger:     log.WithComponent("normalizer"),
	}
	for _, s := range opts.StaffLoans {
		n.staffLoans[strings.ToUpper(strings.TrimSpace(s))] = struct{}{}
	}
	for _, s := range opts.Sentinels {
		n.sentinels[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	return n, nil
}

// Normalize validates one raw table and returns its snapshot. The input
// table is copied and never modified.
func Normalize(table *models.Table, period models.Period, ctx models.Context, opts *Options) (*models.Snapshot, error) {
	n, err := New(opts, nil)
	if err != nil {
		return nil, err
	}
	return n.Normalize(table, period, ctx)
}

// columnSet maps trimmed header names to their first position.
type columnSet map[string]int

func (c columnSet) cell(row []string, name string) string {
	return strings.TrimSpace(c.raw(row, name))
}

func (c columnSet) raw(row []string, name string) string {
	idx, ok := c[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// Normalize validates one raw table in the given context.
func (n *Normalizer) Normalize(table *models.Table, period models.Period, ctx models.Context) (*models.Snapshot, error) {
	label := string(period)
	if table == nil {
		return nil, errors.ParseError(errors.CodeEmptyTable, label, 0, nil)
	}
	if _, ok := requiredColumns[ctx]; !ok {
		return nil, errors.InternalError(errors.CodeUnexpectedError, "normalization",
			fmt.Errorf("unknown context %q", ctx))
	}

	raw, err := table.Clone()
	if err != nil {
		return nil, errors.InternalError(errors.CodeUnexpectedError, "copying input table", err)
	}

	headers := make([]string, len(raw.Columns))
	cols := make(columnSet, len(raw.Columns))
	for i, h := range raw.Columns {
		headers[i] = models.NormalizeHeader(h)
		if _, dup := cols[headers[i]]; !dup {
			cols[headers[i]] = i
		}
	}

	var missing []string
	for _, name := range requiredColumns[ctx] {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		n.logger.WithFields(logger.Fields{
			"table":             label,
			"missing_columns":   missing,
			"available_columns": headers,
		}).Error("Required columns are missing")
		return nil, errors.NewMissingColumnsError(label, missing, headers)
	}

	snap := &models.Snapshot{
		Name:    raw.Name,
		Period:  period,
		Context: ctx,
		Columns: headers,
		Records: make([]*models.AccountRecord, 0, len(raw.Rows)),
	}

	var invalidCodes []string
	seenInvalid := make(map[string]bool)

	for _, row := range raw.Rows {
		if isBlankRow(row) {
			continue
		}
		snap.Stats.RowsRead++

		cells := make([]string, len(headers))
		copy(cells, row)

		rec := &models.AccountRecord{
			Branch:      cols.cell(cells, models.ColumnBranchName),
			AccountKey:  cols.cell(cells, models.ColumnMainCode),
			AccountType: cols.cell(cells, models.ColumnAcTypeDesc),
			HolderName:  cols.cell(cells, models.ColumnName),
		}

		if ctx == models.ContextComparison {
			rec.AccountType = strings.ToUpper(rec.AccountType)
			cells[cols[models.ColumnAcTypeDesc]] = rec.AccountType

			if _, staff := n.staffLoans[rec.AccountType]; staff {
				snap.Stats.DroppedStaffLoan++
				continue
			}
			if _, sentinel := n.sentinels[strings.ToLower(rec.AccountKey)]; sentinel {
				snap.Stats.DroppedSentinel++
				continue
			}
		}

		limit, okLimit := ParseAmount(cols.cell(cells, models.ColumnLimit))
		balance, okBalance := ParseAmount(cols.cell(cells, models.ColumnBalance))
		if !okLimit || !okBalance {
			snap.Stats.DroppedMissing++
			continue
		}
		if limit.IsZero() {
			snap.Stats.DroppedZeroLimit++
			continue
		}
		rec.Limit = limit
		rec.Balance = balance

		if ctx == models.ContextSlippage {
			code, valid := models.ParseRiskCode(cols.raw(cells, models.ColumnProvision))
			if !valid {
				if !seenInvalid[string(code)] {
					seenInvalid[string(code)] = true
					invalidCodes = append(invalidCodes, string(code))
				}
				continue
			}
			rec.RiskCode = code
			rec.RiskRank, rec.RiskCategory = models.Categorize(code)
		}

		rec.Raw = cells
		snap.Records = append(snap.Records, rec)
	}

	if len(invalidCodes) > 0 {
		n.logger.WithFields(logger.Fields{
			"table": label,
			"codes": invalidCodes,
		}).Error("Invalid provision codes")
		return nil, errors.NewInvalidProvisionCodeError(label, invalidCodes)
	}

	snap.Stats.Retained = len(snap.Records)
	n.logger.WithFields(logger.Fields{
		"table":              label,
		"context":            ctx,
		"rows_read":          snap.Stats.RowsRead,
		"dropped_missing":    snap.Stats.DroppedMissing,
		"dropped_zero_limit": snap.Stats.DroppedZeroLimit,
		"dropped_staff_loan": snap.Stats.DroppedStaffLoan,
		"dropped_sentinel":   snap.Stats.DroppedSentinel,
		"retained":           snap.Stats.Retained,
	}).Debug("Normalized snapshot")

	return snap, nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
