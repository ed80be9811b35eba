// Package publish performs the idempotent upsert of politicians and trading
// disclosures at the end of a pipeline run.
package publish

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/storage"
	"disclosure-lab/internal/transform"
)

// batchSize is the insert batch used by high-volume sources.
const batchSize = 50

// tickerCorrectedBy identifies rebrand rewrites in the audit trail.
const tickerCorrectedBy = "ticker_autocorrect"

// Options controls duplicate handling.
type Options struct {
	// SkipDuplicates counts an existing disclosure as skipped.
	SkipDuplicates bool
	// UpdateExisting rewrites the mutable fields of an existing disclosure
	// instead of skipping it.
	UpdateExisting bool
	// Batch groups inserts into batches of 50 with row-by-row fallback.
	Batch bool
}

// Stats summarizes one publish pass.
type Stats struct {
	PoliticiansCreated  int
	PoliticiansMatched  int
	DisclosuresInserted int
	DisclosuresUpdated  int
	DisclosuresSkipped  int
	Failed              int
	Errors              []string
}

// Publisher writes normalized disclosures to storage. Each politician upsert
// and each disclosure write is its own unit; there is no cross-record
// transaction, so partial progress survives a mid-run failure.
type Publisher struct {
	politicians storage.PoliticianStore
	disclosures storage.DisclosureStore
	corrections storage.CorrectionStore // optional
	matcher     *transform.PoliticianMatcher
	opts        Options
	logger      *zap.Logger
}

// NewPublisher creates a publisher. matcher may be nil; when set, newly
// created politicians are registered in its live index.
func NewPublisher(politicians storage.PoliticianStore, disclosures storage.DisclosureStore, matcher *transform.PoliticianMatcher, opts Options, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		politicians: politicians,
		disclosures: disclosures,
		matcher:     matcher,
		opts:        opts,
		logger:      logger,
	}
}

// WithCorrections enables the asset_ticker audit trail: every auto-applied
// rebrand rewrite gets a data_quality_corrections row against the stored
// disclosure. Returns the publisher for chaining.
func (p *Publisher) WithCorrections(corrections storage.CorrectionStore) *Publisher {
	p.corrections = corrections
	return p
}

// Publish writes the records and returns per-outcome counts. Record-level
// failures are counted, not returned as an error.
func (p *Publisher) Publish(ctx context.Context, records []*domain.NormalizedDisclosure) *Stats {
	stats := &Stats{}
	if p.opts.Batch {
		p.publishBatched(ctx, records, stats)
		return stats
	}
	for _, rec := range records {
		p.publishOne(ctx, rec, stats)
	}
	return stats
}

func (p *Publisher) publishOne(ctx context.Context, rec *domain.NormalizedDisclosure, stats *Stats) {
	politicianID, err := p.ensurePolitician(ctx, rec, stats)
	if err != nil {
		stats.Failed++
		stats.Errors = append(stats.Errors, fmt.Sprintf("politician %q: %v", rec.PoliticianName, err))
		return
	}

	existing, err := p.disclosures.FindExisting(ctx, politicianID, rec.TransactionDate, rec.AssetName, rec.TransactionType)
	switch {
	case err == nil:
		p.handleExisting(ctx, rec, existing, stats)
		return
	case !errors.Is(err, storage.ErrNotFound):
		stats.Failed++
		stats.Errors = append(stats.Errors, fmt.Sprintf("lookup %q: %v", rec.AssetName, err))
		return
	}

	id, err := p.disclosures.Insert(ctx, p.toRow(rec, politicianID))
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			// Lost a race against a concurrent writer; same outcome as the
			// duplicate-check hit.
			p.logger.Debug("duplicate disclosure skipped",
				zap.Int64("politician_id", politicianID),
				zap.String("asset", rec.AssetName))
			stats.DisclosuresSkipped++
			return
		}
		stats.Failed++
		stats.Errors = append(stats.Errors, fmt.Sprintf("insert %q: %v", rec.AssetName, err))
		return
	}
	stats.DisclosuresInserted++
	p.auditTicker(ctx, rec, id)
}

// handleExisting applies the configured duplicate policy.
func (p *Publisher) handleExisting(ctx context.Context, rec *domain.NormalizedDisclosure, existing *domain.TradingDisclosure, stats *Stats) {
	if p.opts.UpdateExisting {
		existing.AssetTicker = rec.AssetTicker
		existing.AssetType = rec.AssetType
		existing.AmountRangeMin = rec.AmountRangeMin
		existing.AmountRangeMax = rec.AmountRangeMax
		existing.AmountExact = rec.AmountExact
		existing.SourceURL = rec.SourceURL
		existing.RawData = rec.RawData
		if err := p.disclosures.Update(ctx, existing); err != nil {
			stats.Failed++
			stats.Errors = append(stats.Errors, fmt.Sprintf("update %q: %v", rec.AssetName, err))
			return
		}
		stats.DisclosuresUpdated++
		p.auditTicker(ctx, rec, existing.ID)
		return
	}
	stats.DisclosuresSkipped++
}

// publishBatched groups fresh inserts into batches of 50. A batch-level
// duplicate error falls back to row-by-row publishing of that batch.
func (p *Publisher) publishBatched(ctx context.Context, records []*domain.NormalizedDisclosure, stats *Stats) {
	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		rows := make([]*domain.TradingDisclosure, 0, len(batch))
		pending := make([]*domain.NormalizedDisclosure, 0, len(batch))
		for _, rec := range batch {
			politicianID, err := p.ensurePolitician(ctx, rec, stats)
			if err != nil {
				stats.Failed++
				stats.Errors = append(stats.Errors, fmt.Sprintf("politician %q: %v", rec.PoliticianName, err))
				continue
			}
			rec.PoliticianID = &politicianID
			rows = append(rows, p.toRow(rec, politicianID))
			pending = append(pending, rec)
		}
		if len(rows) == 0 {
			continue
		}

		err := p.disclosures.InsertBatch(ctx, rows)
		if err == nil {
			stats.DisclosuresInserted += len(rows)
			p.auditBatchTickers(ctx, pending)
			continue
		}
		if !errors.Is(err, storage.ErrDuplicateKey) {
			stats.Failed += len(rows)
			stats.Errors = append(stats.Errors, fmt.Sprintf("batch insert: %v", err))
			continue
		}

		p.logger.Debug("batch hit duplicate, retrying row by row",
			zap.Int("batch_size", len(rows)))
		for _, rec := range pending {
			p.publishOne(ctx, rec, stats)
		}
	}
}

// ensurePolitician resolves or creates the politician for a record.
func (p *Publisher) ensurePolitician(ctx context.Context, rec *domain.NormalizedDisclosure, stats *Stats) (int64, error) {
	if rec.PoliticianID != nil {
		stats.PoliticiansMatched++
		return *rec.PoliticianID, nil
	}

	if rec.BioguideID != "" {
		existing, err := p.politicians.GetByBioguideID(ctx, rec.BioguideID)
		if err == nil {
			stats.PoliticiansMatched++
			return existing.ID, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return 0, fmt.Errorf("bioguide lookup: %w", err)
		}
	}

	existing, err := p.politicians.FindByName(ctx, rec.PoliticianFirstName, rec.PoliticianLastName, rec.PoliticianRole)
	if err == nil {
		stats.PoliticiansMatched++
		return existing.ID, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return 0, fmt.Errorf("name lookup: %w", err)
	}

	created := &domain.Politician{
		FirstName:      rec.PoliticianFirstName,
		LastName:       rec.PoliticianLastName,
		Role:           rec.PoliticianRole,
		Party:          rec.PoliticianParty,
		StateOrCountry: rec.PoliticianState,
		District:       rec.PoliticianDistrict,
		BioguideID:     rec.BioguideID,
		Chamber:        chamberForRole(rec.PoliticianRole),
	}
	id, err := p.politicians.Insert(ctx, created)
	if err != nil {
		return 0, fmt.Errorf("create politician: %w", err)
	}
	created.ID = id
	if p.matcher != nil {
		p.matcher.Add(created)
	}

	p.logger.Info("politician created",
		zap.Int64("id", id),
		zap.String("name", rec.PoliticianFirstName+" "+rec.PoliticianLastName),
		zap.String("role", rec.PoliticianRole))
	stats.PoliticiansCreated++
	return id, nil
}

func (p *Publisher) toRow(rec *domain.NormalizedDisclosure, politicianID int64) *domain.TradingDisclosure {
	return &domain.TradingDisclosure{
		PoliticianID:     politicianID,
		TransactionDate:  rec.TransactionDate,
		DisclosureDate:   rec.DisclosureDate,
		AssetName:        rec.AssetName,
		AssetTicker:      rec.AssetTicker,
		AssetType:        rec.AssetType,
		TransactionType:  rec.TransactionType,
		AmountRangeMin:   rec.AmountRangeMin,
		AmountRangeMax:   rec.AmountRangeMax,
		AmountExact:      rec.AmountExact,
		SourceURL:        rec.SourceURL,
		SourceDocumentID: rec.SourceDocumentID,
		Source:           rec.Source,
		RawData:          rec.RawData,
		Status:           domain.DisclosureStatusActive,
	}
}

// auditTicker records an auto-applied rebrand rewrite against the stored
// disclosure row. A failed audit insert never fails the record.
func (p *Publisher) auditTicker(ctx context.Context, rec *domain.NormalizedDisclosure, recordID int64) {
	if p.corrections == nil || rec.AssetTickerOriginal == "" || rec.AssetTickerOriginal == rec.AssetTicker {
		return
	}
	err := p.corrections.Insert(ctx, &domain.DataQualityCorrection{
		TableName:   "trading_disclosures",
		RecordID:    recordID,
		FieldName:   "asset_ticker",
		OldValue:    rec.AssetTickerOriginal,
		NewValue:    rec.AssetTicker,
		Confidence:  1.0,
		CorrectedBy: tickerCorrectedBy,
		Status:      domain.CorrectionApplied,
	})
	if err != nil {
		p.logger.Warn("ticker correction audit failed",
			zap.Int64("disclosure_id", recordID),
			zap.Error(err))
	}
}

// auditBatchTickers resolves the stored ids of freshly batch-inserted rows
// that carry a rebrand rewrite, then audits them.
func (p *Publisher) auditBatchTickers(ctx context.Context, records []*domain.NormalizedDisclosure) {
	if p.corrections == nil {
		return
	}
	for _, rec := range records {
		if rec.AssetTickerOriginal == "" || rec.PoliticianID == nil {
			continue
		}
		existing, err := p.disclosures.FindExisting(ctx, *rec.PoliticianID, rec.TransactionDate, rec.AssetName, rec.TransactionType)
		if err != nil {
			p.logger.Debug("ticker audit lookup failed",
				zap.String("asset", rec.AssetName), zap.Error(err))
			continue
		}
		p.auditTicker(ctx, rec, existing.ID)
	}
}

func chamberForRole(role string) string {
	switch role {
	case domain.RoleRepresentative:
		return domain.ChamberHouse
	case domain.RoleSenator:
		return domain.ChamberSenate
	}
	return ""
}
