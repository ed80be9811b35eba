package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/storage"
)

// ExecutionStore implements storage.ExecutionStore using PostgreSQL.
// Logs are stored newline-joined in a TEXT column.
type ExecutionStore struct {
	pool *Pool
}

// NewExecutionStore creates a new ExecutionStore.
func NewExecutionStore(pool *Pool) *ExecutionStore {
	return &ExecutionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ExecutionStore = (*ExecutionStore)(nil)

const executionColumns = `
	id, job_id, status, started_at, completed_at, duration_seconds,
	error_message, logs, metadata
`

// Insert adds a new execution row.
func (s *ExecutionStore) Insert(ctx context.Context, e *domain.JobExecution) error {
	query := `
		INSERT INTO job_executions (
			id, job_id, status, started_at, completed_at, duration_seconds,
			error_message, logs, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	meta, err := marshalMetadata(e.Metadata)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, query,
		e.ID,
		e.JobID,
		string(e.Status),
		e.StartedAt,
		e.CompletedAt,
		e.DurationSeconds,
		e.ErrorMessage,
		strings.Join(e.Logs, "\n"),
		meta,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert job execution: %w", err)
	}
	return nil
}

// Update rewrites status, completion time, duration, error and logs.
func (s *ExecutionStore) Update(ctx context.Context, e *domain.JobExecution) error {
	query := `
		UPDATE job_executions
		SET status = $2, completed_at = $3, duration_seconds = $4,
		    error_message = $5, logs = $6
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		e.ID,
		string(e.Status),
		e.CompletedAt,
		e.DurationSeconds,
		e.ErrorMessage,
		strings.Join(e.Logs, "\n"),
	)
	if err != nil {
		return fmt.Errorf("update job execution: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListRecent retrieves the most recent executions across all jobs.
func (s *ExecutionStore) ListRecent(ctx context.Context, limit int) ([]*domain.JobExecution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM job_executions
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent executions: %w", err)
	}
	defer rows.Close()

	return scanExecutions(rows)
}

// ListByJob retrieves recent executions of one job.
func (s *ExecutionStore) ListByJob(ctx context.Context, jobID string, limit int) ([]*domain.JobExecution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM job_executions
		WHERE job_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("list executions by job: %w", err)
	}
	defer rows.Close()

	return scanExecutions(rows)
}

// scanExecutions scans rows into JobExecution values.
func scanExecutions(rows pgx.Rows) ([]*domain.JobExecution, error) {
	var out []*domain.JobExecution

	for rows.Next() {
		var e domain.JobExecution
		var status, logs string
		var meta []byte

		err := rows.Scan(
			&e.ID,
			&e.JobID,
			&status,
			&e.StartedAt,
			&e.CompletedAt,
			&e.DurationSeconds,
			&e.ErrorMessage,
			&logs,
			&meta,
		)
		if err != nil {
			return nil, fmt.Errorf("scan execution row: %w", err)
		}

		e.Status = domain.JobStatus(status)
		if logs != "" {
			e.Logs = strings.Split(logs, "\n")
		}
		if len(meta) > 0 {
			if err := unmarshalMetadata(meta, &e.Metadata); err != nil {
				return nil, err
			}
		}
		out = append(out, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate execution rows: %w", err)
	}
	return out, nil
}
