// Package orchestrator wires a source adapter to the four pipeline stages
// and runs them end to end for one source.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"disclosure-lab/internal/artifacts"
	"disclosure-lab/internal/config"
	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/observability"
	"disclosure-lab/internal/pipeline"
	"disclosure-lab/internal/publish"
	"disclosure-lab/internal/sources"
	"disclosure-lab/internal/storage"
	"disclosure-lab/internal/transform"
)

// StageSummary is the recorded outcome of one stage.
type StageSummary struct {
	Stage           string
	Status          pipeline.Status
	RecordsInput    int
	RecordsOutput   int
	RecordsSkipped  int
	RecordsFailed   int
	DurationSeconds float64
	Errors          []string
}

// RunSummary aggregates one full pipeline run.
type RunSummary struct {
	RunID           string
	Source          string
	Status          pipeline.Status
	Stages          []StageSummary
	StartedAt       time.Time
	CompletedAt     time.Time
	DurationSeconds float64
	PublishStats    *publish.Stats
}

// Orchestrator runs the ingestion pipeline for configured sources.
type Orchestrator struct {
	cfg         *config.Config
	politicians storage.PoliticianStore
	disclosures storage.DisclosureStore
	corrections storage.CorrectionStore // optional
	runMetrics  storage.RunMetricStore  // optional
	archiver    *artifacts.Manager      // optional
	logger      *zap.Logger
}

// New creates an orchestrator. corrections, runMetrics and archiver may be
// nil.
func New(cfg *config.Config, politicians storage.PoliticianStore, disclosures storage.DisclosureStore,
	corrections storage.CorrectionStore, runMetrics storage.RunMetricStore, archiver *artifacts.Manager, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	return &Orchestrator{
		cfg:         cfg,
		politicians: politicians,
		disclosures: disclosures,
		corrections: corrections,
		runMetrics:  runMetrics,
		archiver:    archiver,
		logger:      logger,
	}
}

// Run executes Ingest, Clean, Normalize and Publish for one source type.
// Record-level failures degrade the status; only an aborted stage or an
// unresolvable source yields an error.
func (o *Orchestrator) Run(ctx context.Context, sourceType string) (*RunSummary, error) {
	src, overrides, err := o.buildSource(sourceType)
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{
		RunID:     uuid.NewString(),
		Source:    sourceType,
		StartedAt: time.Now().UTC(),
	}
	pc := pipeline.NewContext(src.Name(), sourceType, o.cfg, o.logger)
	pc.JobID = summary.RunID

	lookback := overrides.LookbackDays
	if lookback <= 0 {
		lookback = 30
	}

	ingest := pipeline.NewIngestionStage(src, lookback, nil)
	rawRes := ingest.Process(ctx, nil, pc)
	if rawRes.Status == pipeline.StatusFailed {
		if recovered, ok := o.browserFallback(ctx, src, rawRes.Err, lookback); ok {
			rawRes.Status = pipeline.StatusPartialSuccess
			rawRes.Data = recovered
			rawRes.Metrics.RecordsOutput = len(recovered)
		}
	}
	o.record(summary, rawRes.StageName, rawRes.Status, rawRes.Metrics)
	if rawRes.Status == pipeline.StatusFailed {
		return o.finish(ctx, summary, pipeline.StatusFailed), nil
	}

	clean := pipeline.NewCleaningStage(o.cfg.RemoveDuplicates, o.cfg.StrictValidation)
	cleanRes := clean.Process(ctx, rawRes.Data, pc)
	o.record(summary, cleanRes.StageName, cleanRes.Status, cleanRes.Metrics)
	if cleanRes.Status == pipeline.StatusFailed {
		return o.finish(ctx, summary, pipeline.StatusFailed), nil
	}

	matcher := transform.NewPoliticianMatcher(o.politicians)
	normalize := pipeline.NewNormalizationStage(matcher)
	normRes := normalize.Process(ctx, cleanRes.Data, pc)
	o.record(summary, normRes.StageName, normRes.Status, normRes.Metrics)
	if normRes.Status == pipeline.StatusFailed {
		return o.finish(ctx, summary, pipeline.StatusFailed), nil
	}

	publisher := publish.NewPublisher(o.politicians, o.disclosures, matcher, publish.Options{
		SkipDuplicates: o.cfg.SkipDuplicates,
		UpdateExisting: o.cfg.UpdateExisting,
		Batch:          len(normRes.Data) > 100,
	}, o.logger).WithCorrections(o.corrections)
	publishStage := pipeline.NewPublishingStage(publisher)
	pubRes := publishStage.Process(ctx, normRes.Data, pc)
	o.record(summary, pubRes.StageName, pubRes.Status, pubRes.Metrics)

	if stats, ok := pc.Metadata["publish_stats"].(*publish.Stats); ok {
		summary.PublishStats = stats
	}

	return o.finish(ctx, summary, overallStatus(summary)), nil
}

// buildSource resolves the adapter with per-source overrides applied.
func (o *Orchestrator) buildSource(sourceType string) (sources.Source, config.SourceOverrides, error) {
	overrides := o.cfg.Sources[sourceType]

	cfg := sources.Config{
		Name:         sourceType,
		SourceType:   sourceType,
		BaseURL:      overrides.BaseURL,
		RequestDelay: time.Duration(overrides.RequestDelaySeconds * float64(time.Second)),
		MaxRetries:   overrides.MaxRetries,
		Timeout:      time.Duration(overrides.TimeoutSeconds) * time.Second,
		DownloadPDFs: overrides.DownloadPDFs,
		Logger:       o.logger,
	}
	if sourceType == domain.SourceQuiverQuant.String() {
		cfg.APIKey = o.cfg.QuiverQuantAPIKey
	}

	src, err := sources.New(sourceType, cfg)
	if err != nil {
		return nil, overrides, fmt.Errorf("resolve source %q: %w", sourceType, err)
	}

	if o.cfg.ArchiveRaw && o.archiver != nil {
		if a, ok := src.(sources.Archivable); ok {
			a.AttachArchiver(o.archiver)
		}
	}
	return src, overrides, nil
}

// browserFallback reruns a WAF-blocked fetch through a driven browser.
// Returns false when the failure has another cause, no browser endpoint is
// configured, or the source cannot use one.
func (o *Orchestrator) browserFallback(ctx context.Context, src sources.Source, cause error, lookback int) ([]*domain.RawDisclosure, bool) {
	if cause == nil || !errors.Is(cause, sources.ErrBlocked) {
		return nil, false
	}
	observability.RecordBlocked(src.Name())

	bc, ok := src.(sources.BrowserCapable)
	if !ok || o.cfg.BrowserDevtoolsURL == "" {
		return nil, false
	}

	session := sources.NewBrowserSession(o.cfg.BrowserDevtoolsURL)
	if err := session.Connect(ctx); err != nil {
		o.logger.Warn("browser fallback connect failed", zap.Error(err))
		return nil, false
	}
	defer session.Close()

	records, err := bc.FetchViaBrowser(ctx, session, lookback)
	if err != nil {
		o.logger.Warn("browser fallback fetch failed",
			zap.String("source", src.Name()), zap.Error(err))
		return nil, false
	}

	o.logger.Info("browser fallback recovered blocked fetch",
		zap.String("source", src.Name()),
		zap.Int("records", len(records)))
	return records, true
}

func (o *Orchestrator) record(summary *RunSummary, stage string, status pipeline.Status, m pipeline.Metrics) {
	summary.Stages = append(summary.Stages, StageSummary{
		Stage:           stage,
		Status:          status,
		RecordsInput:    m.RecordsInput,
		RecordsOutput:   m.RecordsOutput,
		RecordsSkipped:  m.RecordsSkipped,
		RecordsFailed:   m.RecordsFailed,
		DurationSeconds: m.DurationSeconds,
		Errors:          m.Errors,
	})
}

// finish closes out the summary, emits metrics and persists run history.
func (o *Orchestrator) finish(ctx context.Context, summary *RunSummary, status pipeline.Status) *RunSummary {
	summary.Status = status
	summary.CompletedAt = time.Now().UTC()
	summary.DurationSeconds = summary.CompletedAt.Sub(summary.StartedAt).Seconds()

	observability.DefaultMetrics.PipelineRunsTotal.WithLabelValues(summary.Source, string(status)).Inc()
	observability.DefaultMetrics.PipelineDuration.WithLabelValues(summary.Source).Observe(summary.DurationSeconds)
	if status == pipeline.StatusSuccess || status == pipeline.StatusPartialSuccess {
		observability.DefaultMetrics.LastSuccessfulRun.SetToCurrentTime()
	}

	o.logger.Info("pipeline run finished",
		zap.String("run_id", summary.RunID),
		zap.String("source", summary.Source),
		zap.String("status", string(status)),
		zap.Float64("duration_seconds", summary.DurationSeconds),
		zap.Int("stages", len(summary.Stages)))

	o.persistRunMetrics(ctx, summary)
	return summary
}

// persistRunMetrics appends per-stage history rows when a metric store is
// configured. Failures are logged, never surfaced.
func (o *Orchestrator) persistRunMetrics(ctx context.Context, summary *RunSummary) {
	if o.runMetrics == nil {
		return
	}

	rows := make([]*domain.PipelineRunMetric, 0, len(summary.Stages))
	for _, st := range summary.Stages {
		rows = append(rows, &domain.PipelineRunMetric{
			RunID:           summary.RunID,
			Source:          summary.Source,
			Stage:           st.Stage,
			Status:          string(st.Status),
			RecordsInput:    int64(st.RecordsInput),
			RecordsOutput:   int64(st.RecordsOutput),
			RecordsSkipped:  int64(st.RecordsSkipped),
			RecordsFailed:   int64(st.RecordsFailed),
			DurationSeconds: st.DurationSeconds,
			StartedAt:       summary.StartedAt,
		})
	}
	if err := o.runMetrics.InsertBulk(ctx, rows); err != nil {
		o.logger.Warn("persist run metrics", zap.String("run_id", summary.RunID), zap.Error(err))
	}
}

// overallStatus collapses the stage outcomes: any partial stage makes the
// run partial; an empty-success stage list should not happen but maps to
// failed.
func overallStatus(summary *RunSummary) pipeline.Status {
	if len(summary.Stages) == 0 {
		return pipeline.StatusFailed
	}
	status := pipeline.StatusSuccess
	for _, st := range summary.Stages {
		switch st.Status {
		case pipeline.StatusFailed:
			return pipeline.StatusFailed
		case pipeline.StatusPartialSuccess:
			status = pipeline.StatusPartialSuccess
		}
	}
	return status
}
