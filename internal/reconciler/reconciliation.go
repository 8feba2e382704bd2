// Package reconciler runs a complete two-snapshot portfolio reconciliation:
// normalization, matching, migration classification, transition matrices,
// the balance bridge and grouped comparisons.
package reconciler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"portfolio-reconciliation-service/internal/bridge"
	"portfolio-reconciliation-service/internal/compare"
	"portfolio-reconciliation-service/internal/matcher"
	"portfolio-reconciliation-service/internal/migration"
	"portfolio-reconciliation-service/internal/models"
	"portfolio-reconciliation-service/internal/normalizer"
	"portfolio-reconciliation-service/pkg/errors"
	"portfolio-reconciliation-service/pkg/logger"
)

const tracerName = "portfolio-reconciliation-service/reconciler"

// Request carries the two raw extracts of one reconciliation.
type Request struct {
	Previous *models.Table
	Current  *models.Table
}

// Validate validates the reconciliation request
func (r *Request) Validate() error {
	if r == nil || r.Previous == nil {
		return errors.New(errors.CategoryValidation, errors.CodeMissingField, "previous snapshot is required")
	}
	if r.Current == nil {
		return errors.New(errors.CategoryValidation, errors.CodeMissingField, "current snapshot is required")
	}
	return nil
}

// Service orchestrates the complete reconciliation process. It holds only
// immutable configuration and may serve concurrent requests.
type Service struct {
	config     *Config
	normalizer *normalizer.Normalizer
	matcher    *matcher.Matcher
	logger     logger.Logger
	tracer     trace.Tracer
}

// NewService creates a Service. A nil config selects DefaultConfig.
func NewService(config *Config, log logger.Logger) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "reconciler", err.Error(), err)
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	norm, err := normalizer.New(config.Normalizer, log)
	if err != nil {
		return nil, err
	}

	return &Service{
		config:     config,
		normalizer: norm,
		matcher:    matcher.NewMatcher(config.DuplicatePolicy, log),
		logger:     log.WithComponent("reconciler"),
		tracer:     otel.Tracer(tracerName),
	}, nil
}

// run holds the state of a single Reconcile call.
type run struct {
	*Service
	ctx     context.Context
	id      string
	log     logger.Logger
	tracker *logger.StageTracker
	result  *Result
}

// stage runs fn inside a span and the stage tracker.
func (r *run) stage(name string, fn func() (int, error)) error {
	_, span := r.tracer.Start(r.ctx, name, trace.WithAttributes(attribute.String("run_id", r.id)))
	defer span.End()

	err := r.tracker.Stage(name, fn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *run) warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.log.Warn(msg)
	r.result.Warnings = append(r.result.Warnings, msg)
}

// Reconcile runs every stage on the request. Any error aborts the run and no
// partial result is returned.
func (s *Service) Reconcile(ctx context.Context, req *Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	id := uuid.NewString()
	ctx, span := s.tracer.Start(ctx, "reconcile", trace.WithAttributes(attribute.String("run_id", id)))
	defer span.End()

	log := s.logger.WithField("run_id", id)
	r := &run{
		Service: s,
		ctx:     ctx,
		id:      id,
		log:     log,
		tracker: logger.NewStageTracker("reconcile", log),
		result:  &Result{RunID: id, Warnings: []string{}},
	}

	log.WithFields(logger.Fields{
		"previous_rows": len(req.Previous.Rows),
		"current_rows":  len(req.Current.Rows),
	}).Info("Starting reconciliation")

	if err := r.migration(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if err := r.balances(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	r.result.Stages = r.tracker.Complete()
	log.WithFields(logger.Fields{
		"matched":  len(r.result.Slippage),
		"slippage": r.result.MovementSummary.Slippage,
		"warnings": len(r.result.Warnings),
	}).Info("Reconciliation completed")

	return r.result, nil
}

// migration normalizes both tables in slippage context and builds the
// movement classification and transition matrices.
func (r *run) migration(req *Request) error {
	var prev, curr *models.Snapshot
	err := r.stage("normalize_slippage", func() (int, error) {
		var err error
		if prev, err = r.normalizer.Normalize(req.Previous, models.PeriodPrevious, models.ContextSlippage); err != nil {
			return 0, err
		}
		if curr, err = r.normalizer.Normalize(req.Current, models.PeriodCurrent, models.ContextSlippage); err != nil {
			return len(prev.Records), err
		}
		return len(prev.Records) + len(curr.Records), nil
	})
	if err != nil {
		return err
	}
	r.result.SlippageSnapshots = SnapshotStats{Previous: prev.Stats, Current: curr.Stats}

	var parts *matcher.Partitions
	if err := r.stage("match_slippage", func() (int, error) {
		var err error
		parts, err = r.matcher.Match(prev, curr)
		if err != nil {
			return 0, err
		}
		return len(parts.Matched), nil
	}); err != nil {
		return err
	}
	r.duplicateWarnings("slippage", parts.Duplicates)

	if err := r.stage("classify", func() (int, error) {
		r.result.Slippage = migration.Classify(parts.Matched)
		r.result.MovementSummary = migration.Summarize(r.result.Slippage)
		return len(r.result.Slippage), nil
	}); err != nil {
		return err
	}

	return r.stage("transition_matrices", func() (int, error) {
		total, err := migration.BuildMatrix(r.result.Slippage, models.DimensionNone)
		if err != nil {
			return 0, err
		}
		r.result.Total = total
		rows := len(total.Rows)

		for _, dim := range r.config.Dimensions {
			m, err := migration.BuildMatrix(r.result.Slippage, dim)
			if err != nil {
				return rows, err
			}
			r.result.Summaries = append(r.result.Summaries, m)
			rows += len(m.Rows)
		}
		return rows, nil
	})
}

// balances normalizes both tables in comparison context and builds the
// bridge and grouped comparisons.
func (r *run) balances(req *Request) error {
	var prev, curr *models.Snapshot
	err := r.stage("normalize_comparison", func() (int, error) {
		var err error
		if prev, err = r.normalizer.Normalize(req.Previous, models.PeriodPrevious, models.ContextComparison); err != nil {
			return 0, err
		}
		if curr, err = r.normalizer.Normalize(req.Current, models.PeriodCurrent, models.ContextComparison); err != nil {
			return len(prev.Records), err
		}
		return len(prev.Records) + len(curr.Records), nil
	})
	if err != nil {
		return err
	}
	r.result.ComparisonSnapshots = SnapshotStats{Previous: prev.Stats, Current: curr.Stats}

	var parts *matcher.Partitions
	if err := r.stage("match_comparison", func() (int, error) {
		var err error
		parts, err = r.matcher.Match(prev, curr)
		if err != nil {
			return 0, err
		}
		return len(parts.Matched), nil
	}); err != nil {
		return err
	}
	r.duplicateWarnings("comparison", parts.Duplicates)

	if err := r.stage("balance_bridge", func() (int, error) {
		b, err := bridge.Build(prev, curr, parts)
		if err != nil {
			return 0, err
		}
		r.result.Bridge = b
		return len(b.Settled) + len(b.New) + len(b.Movement), nil
	}); err != nil {
		return err
	}

	if ladder := r.result.Bridge.Ladder; !ladder.Balanced() {
		if r.config.RequireLadderBalance {
			return errors.NewLadderImbalanceError(ladder.Adjusted.Amount, ladder.Closing.Amount)
		}
		r.warn("reconciliation ladder does not close: adjusted %s, closing %s, difference %s",
			models.FormatAmount(ladder.Adjusted.Amount),
			models.FormatAmount(ladder.Closing.Amount),
			models.FormatAmount(ladder.Difference()))
	}

	return r.stage("grouped_comparisons", func() (int, error) {
		rows := 0
		for _, dim := range r.config.ComparisonDimensions {
			table, err := compare.Compare(prev, curr, dim)
			if err != nil {
				return rows, err
			}
			r.result.Comparisons = append(r.result.Comparisons, table)
			rows += len(table.Rows)
		}
		return rows, nil
	})
}

func (r *run) duplicateWarnings(pass string, d matcher.DuplicateKeys) {
	if len(d.Previous) > 0 {
		r.warn("%s pass: previous snapshot has %d duplicated Main Code values", pass, len(d.Previous))
	}
	if len(d.Current) > 0 {
		r.warn("%s pass: current snapshot has %d duplicated Main Code values", pass, len(d.Current))
	}
}
