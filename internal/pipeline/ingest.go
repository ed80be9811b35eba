package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/observability"
	"disclosure-lab/internal/sources"
)

// defaultBatchSize is the page size for batch-capable sources.
const defaultBatchSize = 100

// IngestionStage pulls raw records from one source adapter.
type IngestionStage struct {
	source       sources.Source
	lookbackDays int
	params       map[string]string
}

// NewIngestionStage creates the ingest stage for a source.
func NewIngestionStage(source sources.Source, lookbackDays int, params map[string]string) *IngestionStage {
	return &IngestionStage{source: source, lookbackDays: lookbackDays, params: params}
}

// Name returns the stage name.
func (s *IngestionStage) Name() string { return "ingest" }

// Process fetches the full raw record set. The input sequence is ignored;
// ingestion is the head of the pipeline.
func (s *IngestionStage) Process(ctx context.Context, _ []*domain.RawDisclosure, pc *Context) Result[*domain.RawDisclosure] {
	start := time.Now()
	records, err := s.source.Fetch(ctx, s.lookbackDays, s.params)

	m := Metrics{
		RecordsInput:    len(records),
		RecordsOutput:   len(records),
		DurationSeconds: time.Since(start).Seconds(),
	}
	if err != nil {
		// A partial fetch keeps what arrived and surfaces the failure.
		m.Errors = append(m.Errors, err.Error())
		m.RecordsFailed = 1
	}

	status := statusFor(m)
	pc.Logger.Info("ingest stage finished",
		zap.String("source", pc.SourceName),
		zap.Int("records", len(records)),
		zap.String("status", string(status)),
		zap.Error(err))
	observability.RecordStage(s.Name(), m.RecordsOutput, m.RecordsSkipped, m.RecordsFailed, m.DurationSeconds)

	return Result[*domain.RawDisclosure]{
		Status:    status,
		Data:      records,
		Metrics:   m,
		StageName: s.Name(),
		Err:       err,
	}
}

// BatchIngestionStage pages through a batch-capable source with a pause
// between pages.
type BatchIngestionStage struct {
	source       sources.BatchSource
	lookbackDays int
	batchSize    int
	delay        time.Duration
}

// NewBatchIngestionStage creates a paged ingest stage.
func NewBatchIngestionStage(source sources.BatchSource, lookbackDays int, delay time.Duration) *BatchIngestionStage {
	return &BatchIngestionStage{
		source:       source,
		lookbackDays: lookbackDays,
		batchSize:    defaultBatchSize,
		delay:        delay,
	}
}

// Name returns the stage name.
func (s *BatchIngestionStage) Name() string { return "ingest" }

// Process fetches pages until the source returns an empty one.
func (s *BatchIngestionStage) Process(ctx context.Context, _ []*domain.RawDisclosure, pc *Context) Result[*domain.RawDisclosure] {
	start := time.Now()
	var records []*domain.RawDisclosure
	var fetchErr error

	for offset := 0; ; offset += s.batchSize {
		page, err := s.source.FetchBatch(ctx, offset, s.batchSize, s.lookbackDays)
		records = append(records, page...)
		if err != nil {
			fetchErr = err
			break
		}
		if len(page) < s.batchSize {
			break
		}
		if s.delay > 0 {
			select {
			case <-ctx.Done():
				fetchErr = ctx.Err()
			case <-time.After(s.delay):
			}
			if fetchErr != nil {
				break
			}
		}
	}

	m := Metrics{
		RecordsInput:    len(records),
		RecordsOutput:   len(records),
		DurationSeconds: time.Since(start).Seconds(),
	}
	if fetchErr != nil {
		m.Errors = append(m.Errors, fetchErr.Error())
		m.RecordsFailed = 1
	}

	status := statusFor(m)
	pc.Logger.Info("batch ingest stage finished",
		zap.String("source", pc.SourceName),
		zap.Int("records", len(records)),
		zap.String("status", string(status)))
	observability.RecordStage(s.Name(), m.RecordsOutput, m.RecordsSkipped, m.RecordsFailed, m.DurationSeconds)

	return Result[*domain.RawDisclosure]{
		Status:    status,
		Data:      records,
		Metrics:   m,
		StageName: s.Name(),
		Err:       fetchErr,
	}
}
