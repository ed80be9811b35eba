package clickhouse

import (
	"context"
	"fmt"

	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/storage"
)

// RunMetricStore implements storage.RunMetricStore using ClickHouse.
// Rows are append-only; MergeTree does not enforce uniqueness and the
// orchestrator generates a fresh run_id per run, so no duplicate checks
// are needed.
type RunMetricStore struct {
	conn *Conn
}

// NewRunMetricStore creates a new RunMetricStore.
func NewRunMetricStore(conn *Conn) *RunMetricStore {
	return &RunMetricStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RunMetricStore = (*RunMetricStore)(nil)

// InsertBulk appends stage metrics for one or more runs.
func (s *RunMetricStore) InsertBulk(ctx context.Context, metrics []*domain.PipelineRunMetric) error {
	if len(metrics) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO pipeline_run_metrics (
			run_id, source, stage, status, records_input, records_output,
			records_skipped, records_failed, duration_seconds, started_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, m := range metrics {
		err = batch.Append(
			m.RunID, m.Source, m.Stage, m.Status,
			uint64(m.RecordsInput), uint64(m.RecordsOutput),
			uint64(m.RecordsSkipped), uint64(m.RecordsFailed),
			m.DurationSeconds, m.StartedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// ListByRun retrieves all stage metrics of one run, started_at ASC.
func (s *RunMetricStore) ListByRun(ctx context.Context, runID string) ([]*domain.PipelineRunMetric, error) {
	query := `
		SELECT run_id, source, stage, status, records_input, records_output,
		       records_skipped, records_failed, duration_seconds, started_at
		FROM pipeline_run_metrics
		WHERE run_id = ?
		ORDER BY started_at ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run id: %w", err)
	}
	defer rows.Close()

	return scanRunMetrics(rows)
}

// ListBySource retrieves recent stage metrics of one source, started_at DESC.
func (s *RunMetricStore) ListBySource(ctx context.Context, source string, limit int) ([]*domain.PipelineRunMetric, error) {
	query := `
		SELECT run_id, source, stage, status, records_input, records_output,
		       records_skipped, records_failed, duration_seconds, started_at
		FROM pipeline_run_metrics
		WHERE source = ?
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, source, uint64(limit))
	if err != nil {
		return nil, fmt.Errorf("query by source: %w", err)
	}
	defer rows.Close()

	return scanRunMetrics(rows)
}

// scanRunMetrics scans multiple rows.
func scanRunMetrics(rows chRows) ([]*domain.PipelineRunMetric, error) {
	var metrics []*domain.PipelineRunMetric

	for rows.Next() {
		var m domain.PipelineRunMetric
		var input, output, skipped, failed uint64

		err := rows.Scan(
			&m.RunID, &m.Source, &m.Stage, &m.Status,
			&input, &output, &skipped, &failed,
			&m.DurationSeconds, &m.StartedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan run metric row: %w", err)
		}

		m.RecordsInput = int64(input)
		m.RecordsOutput = int64(output)
		m.RecordsSkipped = int64(skipped)
		m.RecordsFailed = int64(failed)
		metrics = append(metrics, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run metric rows: %w", err)
	}

	return metrics, nil
}
