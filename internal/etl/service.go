// Package etl is the per-source extract-transform-load framework. A Service
// wraps one upstream feed; the Runner drives its lifecycle and the Registry
// tracks the services available in the process.
package etl

import (
	"context"

	"go.uber.org/zap"

	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/publish"
	"disclosure-lab/internal/storage"
)

// Raw is one unparsed upstream item.
type Raw = map[string]any

// Outcome classifies a single upload.
type Outcome string

const (
	OutcomeInserted Outcome = "inserted"
	OutcomeUpdated  Outcome = "updated"
	OutcomeSkipped  Outcome = "skipped"
)

// Service is the contract a per-source ETL implementation fulfils. Embed
// BaseService to inherit validation, upload and the lifecycle hooks.
type Service interface {
	SourceID() string
	SourceName() string

	FetchDisclosures(ctx context.Context, params map[string]string) ([]Raw, error)
	ParseDisclosure(raw Raw) (*domain.NormalizedDisclosure, error)

	ValidateDisclosure(rec *domain.NormalizedDisclosure) bool
	UploadDisclosure(ctx context.Context, rec *domain.NormalizedDisclosure, updateMode bool) (Outcome, error)

	OnStart(ctx context.Context, jobID string) error
	OnComplete(ctx context.Context, jobID string, result *Result)
}

// BaseService carries the shared stores and default behavior.
type BaseService struct {
	Politicians storage.PoliticianStore
	Disclosures storage.DisclosureStore
	Logger      *zap.Logger
}

// NewBaseService creates the shared base over the two stores.
func NewBaseService(politicians storage.PoliticianStore, disclosures storage.DisclosureStore, logger *zap.Logger) BaseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return BaseService{Politicians: politicians, Disclosures: disclosures, Logger: logger}
}

// ValidateDisclosure is the default check: the asset name must be present.
func (b *BaseService) ValidateDisclosure(rec *domain.NormalizedDisclosure) bool {
	return rec != nil && rec.AssetName != ""
}

// UploadDisclosure writes one record through the shared publisher. The
// publisher is built per call because update mode is a call-time argument,
// not service state.
func (b *BaseService) UploadDisclosure(ctx context.Context, rec *domain.NormalizedDisclosure, updateMode bool) (Outcome, error) {
	opts := publish.Options{SkipDuplicates: !updateMode, UpdateExisting: updateMode}
	pub := publish.NewPublisher(b.Politicians, b.Disclosures, nil, opts, b.Logger)

	stats := pub.Publish(ctx, []*domain.NormalizedDisclosure{rec})
	switch {
	case stats.Failed > 0:
		return "", &UploadError{Record: rec.AssetName, Messages: stats.Errors}
	case stats.DisclosuresUpdated > 0:
		return OutcomeUpdated, nil
	case stats.DisclosuresInserted > 0:
		return OutcomeInserted, nil
	default:
		return OutcomeSkipped, nil
	}
}

// OnStart is a no-op hook.
func (b *BaseService) OnStart(ctx context.Context, jobID string) error { return nil }

// OnComplete is a no-op hook.
func (b *BaseService) OnComplete(ctx context.Context, jobID string, result *Result) {}

// UploadError carries the per-record publish failure detail.
type UploadError struct {
	Record   string
	Messages []string
}

func (e *UploadError) Error() string {
	if len(e.Messages) > 0 {
		return e.Messages[0]
	}
	return "upload failed: " + e.Record
}
