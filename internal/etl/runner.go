package etl

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Result summarizes one ETL run.
type Result struct {
	RecordsProcessed int
	RecordsInserted  int
	RecordsUpdated   int
	RecordsSkipped   int
	RecordsFailed    int
	Errors           []string
	Warnings         []string
	StartedAt        time.Time
	CompletedAt      time.Time
	DurationSeconds  float64
	Metadata         map[string]any
}

// SuccessRate is (processed - failed) / processed. A run with no records is
// vacuously perfect.
func (r *Result) SuccessRate() float64 {
	if r.RecordsProcessed == 0 {
		return 1
	}
	return float64(r.RecordsProcessed-r.RecordsFailed) / float64(r.RecordsProcessed)
}

// IsSuccess reports whether the run finished without errors.
func (r *Result) IsSuccess() bool { return len(r.Errors) == 0 }

// Runner drives a Service through one full run.
type Runner struct {
	tracker *StatusTracker
	logger  *zap.Logger
}

// NewRunner creates a runner. tracker may be nil.
func NewRunner(tracker *StatusTracker, logger *zap.Logger) *Runner {
	if tracker == nil {
		tracker = NewStatusTracker()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{tracker: tracker, logger: logger}
}

// Tracker exposes the live job statuses.
func (r *Runner) Tracker() *StatusTracker { return r.tracker }

// Run executes one ETL pass: fetch, then parse-validate-upload per item.
// Per-item failures are recorded and the run continues; a fetch failure
// fails the whole run and is returned.
func (r *Runner) Run(ctx context.Context, svc Service, jobID string, limit int, updateMode bool, params map[string]string) (*Result, error) {
	result := &Result{
		StartedAt: time.Now().UTC(),
		Metadata: map[string]any{
			"source_id":   svc.SourceID(),
			"source_name": svc.SourceName(),
			"update_mode": updateMode,
		},
	}
	logger := r.logger.With(zap.String("job_id", jobID), zap.String("source", svc.SourceID()))

	r.tracker.Start(jobID, "starting")
	if err := svc.OnStart(ctx, jobID); err != nil {
		r.finishFailed(ctx, svc, jobID, result, err)
		return result, err
	}

	r.tracker.Progress(jobID, "Fetching disclosures...", 0, 0)
	logger.Info("fetching disclosures")

	raws, err := svc.FetchDisclosures(ctx, params)
	if err != nil {
		r.finishFailed(ctx, svc, jobID, result, err)
		return result, fmt.Errorf("fetch disclosures: %w", err)
	}

	if len(raws) == 0 {
		result.Warnings = append(result.Warnings, "no disclosures returned")
		r.finish(ctx, svc, jobID, result, JobStateCompleted, "no disclosures returned")
		return result, nil
	}

	if limit > 0 && len(raws) > limit {
		raws = raws[:limit]
	}
	total := len(raws)
	r.tracker.Progress(jobID, fmt.Sprintf("processing %d disclosures", total), 0, total)

	for i, raw := range raws {
		if err := ctx.Err(); err != nil {
			r.finishFailed(ctx, svc, jobID, result, err)
			return result, err
		}

		result.RecordsProcessed++
		if err := r.processOne(ctx, svc, raw, updateMode, result); err != nil {
			result.RecordsFailed++
			result.Errors = append(result.Errors, err.Error())
			logger.Warn("record failed", zap.Int("index", i), zap.Error(err))
		}
		r.tracker.Progress(jobID,
			fmt.Sprintf("processed %d/%d", i+1, total), i+1, total)
	}

	r.finish(ctx, svc, jobID, result, JobStateCompleted,
		fmt.Sprintf("processed %d, inserted %d, updated %d, skipped %d, failed %d",
			result.RecordsProcessed, result.RecordsInserted, result.RecordsUpdated,
			result.RecordsSkipped, result.RecordsFailed))
	logger.Info("run finished",
		zap.Int("processed", result.RecordsProcessed),
		zap.Int("inserted", result.RecordsInserted),
		zap.Int("failed", result.RecordsFailed),
		zap.Float64("success_rate", result.SuccessRate()))
	return result, nil
}

func (r *Runner) processOne(ctx context.Context, svc Service, raw Raw, updateMode bool, result *Result) error {
	rec, err := svc.ParseDisclosure(raw)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if rec == nil || !svc.ValidateDisclosure(rec) {
		result.RecordsSkipped++
		return nil
	}

	outcome, err := svc.UploadDisclosure(ctx, rec, updateMode)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	switch outcome {
	case OutcomeInserted:
		result.RecordsInserted++
	case OutcomeUpdated:
		result.RecordsUpdated++
	case OutcomeSkipped:
		result.RecordsSkipped++
	}
	return nil
}

func (r *Runner) finish(ctx context.Context, svc Service, jobID string, result *Result, state JobState, message string) {
	result.CompletedAt = time.Now().UTC()
	result.DurationSeconds = result.CompletedAt.Sub(result.StartedAt).Seconds()
	r.tracker.Finish(jobID, state, message)
	svc.OnComplete(ctx, jobID, result)
}

func (r *Runner) finishFailed(ctx context.Context, svc Service, jobID string, result *Result, err error) {
	result.Errors = append(result.Errors, err.Error())
	r.finish(ctx, svc, jobID, result, JobStateFailed, err.Error())
}
