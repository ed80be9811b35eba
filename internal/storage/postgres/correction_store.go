package postgres

import (
	"context"
	"fmt"

	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/storage"
)

// CorrectionStore implements storage.CorrectionStore using PostgreSQL.
type CorrectionStore struct {
	pool *Pool
}

// NewCorrectionStore creates a new CorrectionStore.
func NewCorrectionStore(pool *Pool) *CorrectionStore {
	return &CorrectionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CorrectionStore = (*CorrectionStore)(nil)

// Insert adds an audit row.
func (s *CorrectionStore) Insert(ctx context.Context, c *domain.DataQualityCorrection) error {
	query := `
		INSERT INTO data_quality_corrections (
			table_name, record_id, field_name, old_value, new_value,
			confidence, corrected_by, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		c.TableName,
		c.RecordID,
		c.FieldName,
		c.OldValue,
		c.NewValue,
		c.Confidence,
		c.CorrectedBy,
		c.Status,
	)
	if err != nil {
		return fmt.Errorf("insert correction: %w", err)
	}
	return nil
}

// ListByRecord retrieves corrections for one record, created_at ASC.
func (s *CorrectionStore) ListByRecord(ctx context.Context, tableName string, recordID int64) ([]*domain.DataQualityCorrection, error) {
	query := `
		SELECT id, table_name, record_id, field_name, old_value, new_value,
		       confidence, corrected_by, status, created_at
		FROM data_quality_corrections
		WHERE table_name = $1 AND record_id = $2
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, tableName, recordID)
	if err != nil {
		return nil, fmt.Errorf("list corrections by record: %w", err)
	}
	defer rows.Close()

	var out []*domain.DataQualityCorrection
	for rows.Next() {
		var c domain.DataQualityCorrection
		err := rows.Scan(
			&c.ID,
			&c.TableName,
			&c.RecordID,
			&c.FieldName,
			&c.OldValue,
			&c.NewValue,
			&c.Confidence,
			&c.CorrectedBy,
			&c.Status,
			&c.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan correction row: %w", err)
		}
		out = append(out, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate correction rows: %w", err)
	}
	return out, nil
}
