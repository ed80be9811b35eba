package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/observability"
	"disclosure-lab/internal/publish"
)

// PublishingStage writes normalized records through the shared publisher.
type PublishingStage struct {
	publisher *publish.Publisher
}

// NewPublishingStage creates the publish stage.
func NewPublishingStage(publisher *publish.Publisher) *PublishingStage {
	return &PublishingStage{publisher: publisher}
}

// Name returns the stage name.
func (s *PublishingStage) Name() string { return "publish" }

// Process publishes the records. Output counts inserted and updated rows;
// skipped duplicates and failures never fail the stage on their own.
func (s *PublishingStage) Process(ctx context.Context, data []*domain.NormalizedDisclosure, pc *Context) Result[*domain.NormalizedDisclosure] {
	start := time.Now()
	stats := s.publisher.Publish(ctx, data)

	m := Metrics{
		RecordsInput:    len(data),
		RecordsOutput:   stats.DisclosuresInserted + stats.DisclosuresUpdated,
		RecordsSkipped:  stats.DisclosuresSkipped,
		RecordsFailed:   stats.Failed,
		DurationSeconds: time.Since(start).Seconds(),
		Errors:          stats.Errors,
	}

	status := statusFor(m)
	// A run where every record was a known duplicate is a clean no-op, not
	// a failure.
	if status == StatusFailed && m.RecordsFailed == 0 && m.RecordsSkipped == m.RecordsInput {
		status = StatusSuccess
	}

	pc.Logger.Info("publish stage finished",
		zap.String("source", pc.SourceName),
		zap.Int("inserted", stats.DisclosuresInserted),
		zap.Int("updated", stats.DisclosuresUpdated),
		zap.Int("skipped", stats.DisclosuresSkipped),
		zap.Int("failed", stats.Failed),
		zap.Int("politicians_created", stats.PoliticiansCreated),
		zap.String("status", string(status)))
	observability.RecordStage(s.Name(), m.RecordsOutput, m.RecordsSkipped, m.RecordsFailed, m.DurationSeconds)
	recordPublishActions(stats)

	pc.Metadata["publish_stats"] = stats

	return Result[*domain.NormalizedDisclosure]{
		Status:    status,
		Data:      data,
		Metrics:   m,
		StageName: s.Name(),
	}
}

func recordPublishActions(stats *publish.Stats) {
	for i := 0; i < stats.DisclosuresInserted; i++ {
		observability.RecordPublishAction("inserted")
	}
	for i := 0; i < stats.DisclosuresUpdated; i++ {
		observability.RecordPublishAction("updated")
	}
	for i := 0; i < stats.DisclosuresSkipped; i++ {
		observability.RecordPublishAction("skipped")
	}
}
