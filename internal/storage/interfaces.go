package storage

import (
	"context"
	"time"

	"disclosure-lab/internal/domain"
)

// PoliticianStore provides access to politicians storage.
type PoliticianStore interface {
	// Insert adds a new politician and returns its id.
	// Returns ErrDuplicateKey when a non-empty bioguide_id already exists.
	Insert(ctx context.Context, p *domain.Politician) (int64, error)

	// GetByID retrieves a politician by id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id int64) (*domain.Politician, error)

	// GetByBioguideID retrieves a politician by external id.
	// Returns ErrNotFound if not exists.
	GetByBioguideID(ctx context.Context, bioguideID string) (*domain.Politician, error)

	// FindByName retrieves a politician by normalized (first, last, role).
	// Empty role matches any role. Returns ErrNotFound if not exists.
	FindByName(ctx context.Context, first, last, role string) (*domain.Politician, error)

	// GetAll retrieves every politician, ordered by id ASC.
	// Used by the matcher to build its in-memory index.
	GetAll(ctx context.Context) ([]*domain.Politician, error)

	// Update rewrites the mutable fields of an existing politician.
	Update(ctx context.Context, p *domain.Politician) error
}

// DisclosureStore provides access to trading_disclosures storage.
type DisclosureStore interface {
	// Insert adds a new disclosure and returns its id. Returns ErrDuplicateKey
	// on the (politician_id, transaction_date, asset_name, transaction_type,
	// disclosure_date) unique constraint.
	Insert(ctx context.Context, d *domain.TradingDisclosure) (int64, error)

	// InsertBatch adds multiple disclosures in one statement. Any duplicate
	// fails the whole batch with ErrDuplicateKey; the publisher then falls
	// back to row-by-row inserts.
	InsertBatch(ctx context.Context, ds []*domain.TradingDisclosure) error

	// FindExisting looks up a disclosure by the duplicate-check tuple.
	// Returns ErrNotFound if not exists.
	FindExisting(ctx context.Context, politicianID int64, transactionDate time.Time, assetName, transactionType string) (*domain.TradingDisclosure, error)

	// Update rewrites the mutable fields (asset_ticker, asset_type, amounts,
	// source_url, raw_data, updated_at) of an existing disclosure.
	// transaction_type is part of the idempotence key and is never updated.
	Update(ctx context.Context, d *domain.TradingDisclosure) error

	// LinkStoredFile sets has_raw_pdf and source_file_id on a disclosure.
	LinkStoredFile(ctx context.Context, disclosureID, fileID int64) error

	// GetByPolitician retrieves disclosures for a politician, ordered by
	// transaction_date ASC.
	GetByPolitician(ctx context.Context, politicianID int64) ([]*domain.TradingDisclosure, error)
}

// StoredFileStore provides access to stored_files metadata.
type StoredFileStore interface {
	// Insert adds a metadata row and returns its id. Returns ErrDuplicateKey
	// on the (storage_bucket, file_hash_sha256) unique constraint.
	Insert(ctx context.Context, f *domain.StoredFile) (int64, error)

	// GetByID retrieves a row by id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id int64) (*domain.StoredFile, error)

	// GetByHash retrieves a row by bucket and content hash.
	// Returns ErrNotFound if not exists.
	GetByHash(ctx context.Context, bucket, sha256Hex string) (*domain.StoredFile, error)

	// MarkParsed transitions parse_status to success with the transaction count.
	MarkParsed(ctx context.Context, id int64, transactionsFound int) error

	// MarkFailed transitions parse_status to failed with the error message.
	MarkFailed(ctx context.Context, id int64, parseError string) error

	// ListPending returns rows with parse_status = pending in the bucket,
	// ordered by created_at ASC, capped at limit.
	ListPending(ctx context.Context, bucket string, limit int) ([]*domain.StoredFile, error)
}

// JobStore provides access to the durable scheduled_jobs registry.
type JobStore interface {
	// Upsert registers or replaces a job definition keyed by job_id.
	Upsert(ctx context.Context, j *domain.JobDefinition) error

	// Get retrieves a definition by job_id. Returns ErrNotFound if not exists.
	Get(ctx context.Context, jobID string) (*domain.JobDefinition, error)

	// ListEnabled retrieves every enabled definition, ordered by job_id ASC.
	ListEnabled(ctx context.Context) ([]*domain.JobDefinition, error)

	// ListDueForRecovery retrieves enabled jobs with auto_retry_on_startup,
	// next_scheduled_run <= now, and consecutive_failures below their max.
	ListDueForRecovery(ctx context.Context, now time.Time) ([]*domain.JobDefinition, error)

	// UpdateAfterExecution bumps last_run_at, resets or increments
	// consecutive_failures, and records the next scheduled run.
	UpdateAfterExecution(ctx context.Context, jobID string, success bool, nextRun *time.Time) error

	// SetEnabled pauses or resumes a job.
	SetEnabled(ctx context.Context, jobID string, enabled bool) error

	// Delete removes a definition. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, jobID string) error
}

// ExecutionStore provides access to job_executions history.
type ExecutionStore interface {
	// Insert adds a new execution row (status running or queued).
	Insert(ctx context.Context, e *domain.JobExecution) error

	// Update rewrites status, completion time, duration, error and logs.
	Update(ctx context.Context, e *domain.JobExecution) error

	// ListRecent retrieves the most recent executions across all jobs,
	// ordered by started_at DESC, capped at limit.
	ListRecent(ctx context.Context, limit int) ([]*domain.JobExecution, error)

	// ListByJob retrieves recent executions of one job, started_at DESC.
	ListByJob(ctx context.Context, jobID string, limit int) ([]*domain.JobExecution, error)
}

// RunMetricStore provides access to pipeline_run_metrics history.
type RunMetricStore interface {
	// InsertBulk appends stage metrics for one or more runs.
	InsertBulk(ctx context.Context, metrics []*domain.PipelineRunMetric) error

	// ListByRun retrieves all stage metrics of one run, started_at ASC.
	ListByRun(ctx context.Context, runID string) ([]*domain.PipelineRunMetric, error)

	// ListBySource retrieves recent stage metrics of one source,
	// started_at DESC, capped at limit.
	ListBySource(ctx context.Context, source string, limit int) ([]*domain.PipelineRunMetric, error)
}

// CorrectionStore provides access to the data_quality_corrections audit trail.
type CorrectionStore interface {
	// Insert adds an audit row.
	Insert(ctx context.Context, c *domain.DataQualityCorrection) error

	// ListByRecord retrieves corrections for one record, created_at ASC.
	ListByRecord(ctx context.Context, tableName string, recordID int64) ([]*domain.DataQualityCorrection, error)
}
