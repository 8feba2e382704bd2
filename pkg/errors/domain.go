package errors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// MissingColumnsError reports required columns absent from an input table.
type MissingColumnsError struct {
	*ReconcilerError
	Table   string
	Missing []string
}

// Unwrap exposes the embedded ReconcilerError to errors.As.
func (e *MissingColumnsError) Unwrap() error { return e.ReconcilerError }

// NewMissingColumnsError builds the error and suggests the closest available
// header for each missing column when one is near enough to be a typo.
func NewMissingColumnsError(table string, missing, available []string) *MissingColumnsError {
	base := New(CategoryValidation, CodeMissingColumn,
		fmt.Sprintf("%s table is missing required columns: %s", table, strings.Join(missing, ", "))).
		WithContext("table", table).
		WithContext("missing_columns", missing).
		WithContext("available_columns", available)

	var hints []string
	for _, col := range missing {
		if near, ok := ClosestColumn(col, available); ok {
			hints = append(hints, fmt.Sprintf("'%s' looks like '%s'", near, col))
		}
	}
	if len(hints) > 0 {
		base.WithSuggestion("rename the headers: " + strings.Join(hints, "; "))
	} else {
		base.WithSuggestion("ensure the extract contains these headers: " + strings.Join(missing, ", "))
	}

	return &MissingColumnsError{ReconcilerError: base, Table: table, Missing: missing}
}

// ClosestColumn returns the available header with the smallest edit distance
// to want, provided the distance is small relative to the name length.
func ClosestColumn(want string, available []string) (string, bool) {
	target := []rune(strings.ToLower(want))
	best, bestDist := "", -1
	for _, candidate := range available {
		d := levenshtein.DistanceForStrings(target, []rune(strings.ToLower(candidate)), levenshtein.DefaultOptions)
		if bestDist == -1 || d < bestDist {
			best, bestDist = candidate, d
		}
	}
	limit := len(target) / 3
	if limit < 2 {
		limit = 2
	}
	if bestDist < 0 || bestDist > limit {
		return "", false
	}
	return best, true
}

// InvalidProvisionCodeError reports rows whose risk code is not G/W/S/D/B.
type InvalidProvisionCodeError struct {
	*ReconcilerError
	Table string
	Codes []string
}

func (e *InvalidProvisionCodeError) Unwrap() error { return e.ReconcilerError }

// NewInvalidProvisionCodeError lists the distinct offending codes in the order they were seen.
func NewInvalidProvisionCodeError(table string, codes []string) *InvalidProvisionCodeError {
	quoted := make([]string, len(codes))
	for i, c := range codes {
		quoted[i] = fmt.Sprintf("'%s'", c)
	}
	base := New(CategoryValidation, CodeInvalidProvisionCode,
		fmt.Sprintf("%s table has invalid provision codes: {%s}", table, strings.Join(quoted, ", "))).
		WithSuggestion("provision values must start with one of G, W, S, D or B").
		WithContext("table", table).
		WithContext("codes", codes)

	return &InvalidProvisionCodeError{ReconcilerError: base, Table: table, Codes: codes}
}

// EmptyJoinError reports that the two snapshots share no account keys.
type EmptyJoinError struct {
	*ReconcilerError
	Operation string
}

func (e *EmptyJoinError) Unwrap() error { return e.ReconcilerError }

func NewEmptyJoinError(operation string) *EmptyJoinError {
	return &EmptyJoinError{
		ReconcilerError: ReconciliationError(CodeEmptyJoin, operation, nil),
		Operation:       operation,
	}
}

// DuplicateKeyError reports account keys that occur more than once in a snapshot.
type DuplicateKeyError struct {
	*ReconcilerError
	Table string
	Keys  []string
}

func (e *DuplicateKeyError) Unwrap() error { return e.ReconcilerError }

func NewDuplicateKeyError(table string, keys []string) *DuplicateKeyError {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	shown := sorted
	if len(shown) > 10 {
		shown = shown[:10]
	}
	msg := fmt.Sprintf("%s table has %d duplicated Main Code values: %s", table, len(sorted), strings.Join(shown, ", "))
	if len(sorted) > len(shown) {
		msg += ", ..."
	}

	base := New(CategoryValidation, CodeDuplicateKey, msg).
		WithSuggestion("deduplicate the extract or rerun with --duplicate-keys=allow").
		WithContext("table", table).
		WithContext("duplicate_keys", sorted)

	return &DuplicateKeyError{ReconcilerError: base, Table: table, Keys: sorted}
}

// LadderImbalanceError reports a reconciliation ladder whose Adjusted row differs from Closing.
type LadderImbalanceError struct {
	*ReconcilerError
	Adjusted decimal.Decimal
	Closing  decimal.Decimal
}

func (e *LadderImbalanceError) Unwrap() error { return e.ReconcilerError }

func NewLadderImbalanceError(adjusted, closing decimal.Decimal) *LadderImbalanceError {
	base := ReconciliationError(CodeDataInconsistent, "balance bridge", nil).
		WithContext("adjusted", adjusted.String()).
		WithContext("closing", closing.String()).
		WithContext("difference", closing.Sub(adjusted).String())
	base.Message = fmt.Sprintf("reconciliation ladder does not close: adjusted %s != closing %s",
		adjusted.StringFixed(2), closing.StringFixed(2))

	return &LadderImbalanceError{ReconcilerError: base, Adjusted: adjusted, Closing: closing}
}
