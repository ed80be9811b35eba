// Package pipeline implements the four-stage ingestion flow:
// Ingest, Clean, Normalize, Publish. Stages hand ownership of their output
// sequence to the next stage and never mutate their inputs.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"disclosure-lab/internal/config"
)

// Status is the outcome class of one stage run.
type Status string

const (
	StatusSuccess        Status = "success"
	StatusPartialSuccess Status = "partial_success"
	StatusFailed         Status = "failed"
	StatusSkipped        Status = "skipped"
)

// Context is shared across the stages of one run. Stages treat it as
// read-only except for Metadata additions.
type Context struct {
	SourceName string
	SourceType string
	JobID      string
	Config     *config.Config
	Metadata   map[string]any
	StartedAt  time.Time
	Logger     *zap.Logger
}

// NewContext creates a run context for one source.
func NewContext(sourceName, sourceType string, cfg *config.Config, logger *zap.Logger) *Context {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	return &Context{
		SourceName: sourceName,
		SourceType: sourceType,
		Config:     cfg,
		Metadata:   map[string]any{},
		StartedAt:  time.Now().UTC(),
		Logger:     logger,
	}
}

// Metrics are the per-stage counters.
type Metrics struct {
	RecordsInput    int
	RecordsOutput   int
	RecordsSkipped  int
	RecordsFailed   int
	DurationSeconds float64
	Errors          []string
	Warnings        []string
}

// Result carries one stage's output. The stage exclusively owns Data until
// the next stage consumes it.
type Result[T any] struct {
	Status    Status
	Data      []T
	Metrics   Metrics
	StageName string

	// Err is the terminal stage error, set alongside a failed status so the
	// caller can inspect its cause. Record-level failures live in Metrics.
	Err error
}

// Stage transforms a sequence of records.
type Stage[In, Out any] interface {
	Name() string
	Process(ctx context.Context, data []In, pc *Context) Result[Out]
}

// statusFor applies the shared stage status rule: output with no failures is
// success, output despite failures is partial success, nothing out is failed.
func statusFor(m Metrics) Status {
	switch {
	case m.RecordsOutput > 0 && m.RecordsFailed == 0:
		return StatusSuccess
	case m.RecordsOutput > 0:
		return StatusPartialSuccess
	default:
		return StatusFailed
	}
}
