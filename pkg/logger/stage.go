package logger

import (
	"fmt"
	"sync"
	"time"
)

// StageTracker times the named stages of a single reconciliation run.
type StageTracker struct {
	logger    Logger
	operation string
	startTime time.Time
	stages    []StageTiming
	mutex     sync.Mutex
}

// StageTiming records how long one stage took and how many rows it produced.
type StageTiming struct {
	Name     string        `json:"name"`
	Rows     int           `json:"rows"`
	Duration time.Duration `json:"duration"`
}

// NewStageTracker creates a tracker and logs the start of the operation.
func NewStageTracker(operation string, log Logger) *StageTracker {
	if log == nil {
		log = GetGlobalLogger()
	}

	tracker := &StageTracker{
		logger:    log.WithComponent("stages"),
		operation: operation,
		startTime: time.Now(),
	}
	tracker.logger.WithField("operation", operation).Debug("Starting operation")
	return tracker
}

// Stage runs fn as a named stage. fn reports the number of rows it produced.
func (s *StageTracker) Stage(name string, fn func() (int, error)) error {
	started := time.Now()
	rows, err := fn()
	elapsed := time.Since(started)

	s.mutex.Lock()
	s.stages = append(s.stages, StageTiming{Name: name, Rows: rows, Duration: elapsed})
	s.mutex.Unlock()

	entry := s.logger.WithFields(Fields{
		"operation": s.operation,
		"stage":     name,
		"rows":      rows,
		"duration":  elapsed.String(),
	})
	if err != nil {
		entry.WithError(err).Error("Stage failed")
		return err
	}
	entry.Debug("Stage completed")
	return nil
}

// Complete logs the overall duration and returns the recorded timings.
func (s *StageTracker) Complete() []StageTiming {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.logger.WithFields(Fields{
		"operation": s.operation,
		"stages":    len(s.stages),
		"duration":  time.Since(s.startTime).String(),
	}).Info("Operation completed")

	out := make([]StageTiming, len(s.stages))
	copy(out, s.stages)
	return out
}

// String returns a one-line summary of the recorded stages.
func (t StageTiming) String() string {
	return fmt.Sprintf("%s: %d rows in %v", t.Name, t.Rows, t.Duration)
}
