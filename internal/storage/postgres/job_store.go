package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/storage"
)

// JobStore implements storage.JobStore using PostgreSQL.
type JobStore struct {
	pool *Pool
}

// NewJobStore creates a new JobStore.
func NewJobStore(pool *Pool) *JobStore {
	return &JobStore{pool: pool}
}

// Compile-time interface check.
var _ storage.JobStore = (*JobStore)(nil)

const jobColumns = `
	job_id, name, function_ref, schedule_type, schedule_value, enabled,
	next_scheduled_run, last_run_at, consecutive_failures,
	max_consecutive_failures, auto_retry_on_startup, metadata,
	created_at, updated_at
`

// Upsert registers or replaces a job definition keyed by job_id.
func (s *JobStore) Upsert(ctx context.Context, j *domain.JobDefinition) error {
	query := `
		INSERT INTO scheduled_jobs (
			job_id, name, function_ref, schedule_type, schedule_value, enabled,
			next_scheduled_run, consecutive_failures, max_consecutive_failures,
			auto_retry_on_startup, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (job_id) DO UPDATE SET
			name = EXCLUDED.name,
			function_ref = EXCLUDED.function_ref,
			schedule_type = EXCLUDED.schedule_type,
			schedule_value = EXCLUDED.schedule_value,
			enabled = EXCLUDED.enabled,
			next_scheduled_run = EXCLUDED.next_scheduled_run,
			max_consecutive_failures = EXCLUDED.max_consecutive_failures,
			auto_retry_on_startup = EXCLUDED.auto_retry_on_startup,
			metadata = EXCLUDED.metadata,
			updated_at = now()
	`

	meta, err := marshalMetadata(j.Metadata)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, query,
		j.JobID,
		j.Name,
		j.FunctionRef,
		string(j.ScheduleType),
		j.ScheduleValue,
		j.Enabled,
		j.NextScheduledRun,
		j.ConsecutiveFailures,
		j.MaxConsecutiveFailures,
		j.AutoRetryOnStartup,
		meta,
	)
	if err != nil {
		return fmt.Errorf("upsert job definition: %w", err)
	}
	return nil
}

// Get retrieves a definition by job_id.
func (s *JobStore) Get(ctx context.Context, jobID string) (*domain.JobDefinition, error) {
	query := `SELECT ` + jobColumns + ` FROM scheduled_jobs WHERE job_id = $1`

	row := s.pool.QueryRow(ctx, query, jobID)
	j, err := scanJob(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get job definition: %w", err)
	}
	return j, nil
}

// ListEnabled retrieves every enabled definition, job_id ASC.
func (s *JobStore) ListEnabled(ctx context.Context) ([]*domain.JobDefinition, error) {
	query := `SELECT ` + jobColumns + ` FROM scheduled_jobs WHERE enabled ORDER BY job_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list enabled jobs: %w", err)
	}
	defer rows.Close()

	return scanJobs(rows)
}

// ListDueForRecovery retrieves enabled jobs eligible for missed-job recovery.
func (s *JobStore) ListDueForRecovery(ctx context.Context, now time.Time) ([]*domain.JobDefinition, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM scheduled_jobs
		WHERE enabled
		  AND auto_retry_on_startup
		  AND next_scheduled_run IS NOT NULL
		  AND next_scheduled_run <= $1
		  AND consecutive_failures < max_consecutive_failures
		ORDER BY next_scheduled_run ASC
	`

	rows, err := s.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("list jobs due for recovery: %w", err)
	}
	defer rows.Close()

	return scanJobs(rows)
}

// UpdateAfterExecution bumps last_run_at, adjusts consecutive_failures and
// records the next scheduled run.
func (s *JobStore) UpdateAfterExecution(ctx context.Context, jobID string, success bool, nextRun *time.Time) error {
	query := `
		UPDATE scheduled_jobs
		SET last_run_at = now(),
		    consecutive_failures = CASE WHEN $2 THEN 0 ELSE consecutive_failures + 1 END,
		    next_scheduled_run = $3,
		    updated_at = now()
		WHERE job_id = $1
	`

	tag, err := s.pool.Exec(ctx, query, jobID, success, nextRun)
	if err != nil {
		return fmt.Errorf("update job after execution: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SetEnabled pauses or resumes a job.
func (s *JobStore) SetEnabled(ctx context.Context, jobID string, enabled bool) error {
	query := `UPDATE scheduled_jobs SET enabled = $2, updated_at = now() WHERE job_id = $1`

	tag, err := s.pool.Exec(ctx, query, jobID, enabled)
	if err != nil {
		return fmt.Errorf("set job enabled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes a definition.
func (s *JobStore) Delete(ctx context.Context, jobID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM scheduled_jobs WHERE job_id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("delete job definition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanJob scans a single row into a JobDefinition.
func scanJob(row pgx.Row) (*domain.JobDefinition, error) {
	var j domain.JobDefinition
	var scheduleType string
	var meta []byte

	err := row.Scan(
		&j.JobID,
		&j.Name,
		&j.FunctionRef,
		&scheduleType,
		&j.ScheduleValue,
		&j.Enabled,
		&j.NextScheduledRun,
		&j.LastRunAt,
		&j.ConsecutiveFailures,
		&j.MaxConsecutiveFailures,
		&j.AutoRetryOnStartup,
		&meta,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	j.ScheduleType = domain.ScheduleType(scheduleType)
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &j.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal job metadata: %w", err)
		}
	}
	return &j, nil
}

// scanJobs scans multiple rows into a slice of JobDefinition.
func scanJobs(rows pgx.Rows) ([]*domain.JobDefinition, error) {
	var jobs []*domain.JobDefinition

	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		jobs = append(jobs, j)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job rows: %w", err)
	}
	return jobs, nil
}

// marshalMetadata encodes job metadata as JSONB, nil-safe.
func marshalMetadata(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return raw, nil
}

// unmarshalMetadata decodes a JSONB metadata column.
func unmarshalMetadata(raw []byte, dst *map[string]any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("unmarshal metadata: %w", err)
	}
	return nil
}
