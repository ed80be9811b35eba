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

// DisclosureStore implements storage.DisclosureStore using PostgreSQL.
type DisclosureStore struct {
	pool *Pool
}

// NewDisclosureStore creates a new DisclosureStore.
func NewDisclosureStore(pool *Pool) *DisclosureStore {
	return &DisclosureStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DisclosureStore = (*DisclosureStore)(nil)

const disclosureColumns = `
	id, politician_id, transaction_date, disclosure_date, asset_name,
	asset_ticker, asset_type, transaction_type, amount_range_min,
	amount_range_max, amount_exact, source_url, source_document_id, source,
	raw_data, status, has_raw_pdf, source_file_id, created_at, updated_at
`

// Insert adds a new disclosure and returns its id.
func (s *DisclosureStore) Insert(ctx context.Context, d *domain.TradingDisclosure) (int64, error) {
	query := `
		INSERT INTO trading_disclosures (
			politician_id, transaction_date, disclosure_date, asset_name,
			asset_ticker, asset_type, transaction_type, amount_range_min,
			amount_range_max, amount_exact, source_url, source_document_id,
			source, raw_data, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id
	`

	raw, err := marshalRawData(d.RawData)
	if err != nil {
		return 0, err
	}

	status := d.Status
	if status == "" {
		status = domain.DisclosureStatusActive
	}

	var id int64
	err = s.pool.QueryRow(ctx, query,
		d.PoliticianID,
		d.TransactionDate,
		d.DisclosureDate,
		d.AssetName,
		d.AssetTicker,
		d.AssetType,
		d.TransactionType,
		d.AmountRangeMin,
		d.AmountRangeMax,
		d.AmountExact,
		d.SourceURL,
		d.SourceDocumentID,
		d.Source,
		raw,
		status,
	).Scan(&id)
	if err != nil {
		if isDuplicateKeyError(err) {
			return 0, storage.ErrDuplicateKey
		}
		return 0, fmt.Errorf("insert disclosure: %w", err)
	}
	return id, nil
}

// InsertBatch adds multiple disclosures in one round-trip via pgx.Batch.
// Any duplicate fails the whole batch with ErrDuplicateKey.
func (s *DisclosureStore) InsertBatch(ctx context.Context, ds []*domain.TradingDisclosure) error {
	if len(ds) == 0 {
		return nil
	}

	query := `
		INSERT INTO trading_disclosures (
			politician_id, transaction_date, disclosure_date, asset_name,
			asset_ticker, asset_type, transaction_type, amount_range_min,
			amount_range_max, amount_exact, source_url, source_document_id,
			source, raw_data, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch insert: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, d := range ds {
		raw, err := marshalRawData(d.RawData)
		if err != nil {
			return err
		}
		status := d.Status
		if status == "" {
			status = domain.DisclosureStatusActive
		}
		batch.Queue(query,
			d.PoliticianID, d.TransactionDate, d.DisclosureDate, d.AssetName,
			d.AssetTicker, d.AssetType, d.TransactionType, d.AmountRangeMin,
			d.AmountRangeMax, d.AmountExact, d.SourceURL, d.SourceDocumentID,
			d.Source, raw, status,
		)
	}

	results := tx.SendBatch(ctx, batch)
	var batchErr error
	for range ds {
		if _, err := results.Exec(); err != nil && batchErr == nil {
			batchErr = err
		}
	}
	if err := results.Close(); err != nil && batchErr == nil {
		batchErr = err
	}
	if batchErr != nil {
		if isDuplicateKeyError(batchErr) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("batch insert disclosures: %w", batchErr)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch insert: %w", err)
	}
	return nil
}

// FindExisting looks up a disclosure by the duplicate-check tuple.
func (s *DisclosureStore) FindExisting(ctx context.Context, politicianID int64, transactionDate time.Time, assetName, transactionType string) (*domain.TradingDisclosure, error) {
	query := `
		SELECT ` + disclosureColumns + `
		FROM trading_disclosures
		WHERE politician_id = $1 AND transaction_date = $2
		  AND asset_name = $3 AND transaction_type = $4
		ORDER BY disclosure_date ASC
		LIMIT 1
	`

	row := s.pool.QueryRow(ctx, query, politicianID, transactionDate, assetName, transactionType)
	d, err := scanDisclosure(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("find existing disclosure: %w", err)
	}
	return d, nil
}

// Update rewrites the mutable fields of an existing disclosure.
// The column list is deliberately explicit: transaction_type is part of the
// idempotence key and is never touched.
func (s *DisclosureStore) Update(ctx context.Context, d *domain.TradingDisclosure) error {
	query := `
		UPDATE trading_disclosures
		SET asset_ticker = $2, asset_type = $3, amount_range_min = $4,
		    amount_range_max = $5, amount_exact = $6, source_url = $7,
		    raw_data = $8, updated_at = now()
		WHERE id = $1
	`

	raw, err := marshalRawData(d.RawData)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, query,
		d.ID,
		d.AssetTicker,
		d.AssetType,
		d.AmountRangeMin,
		d.AmountRangeMax,
		d.AmountExact,
		d.SourceURL,
		raw,
	)
	if err != nil {
		return fmt.Errorf("update disclosure: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// LinkStoredFile sets has_raw_pdf and source_file_id on a disclosure.
func (s *DisclosureStore) LinkStoredFile(ctx context.Context, disclosureID, fileID int64) error {
	query := `
		UPDATE trading_disclosures
		SET has_raw_pdf = TRUE, source_file_id = $2, updated_at = now()
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query, disclosureID, fileID)
	if err != nil {
		return fmt.Errorf("link stored file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByPolitician retrieves disclosures for a politician, transaction_date ASC.
func (s *DisclosureStore) GetByPolitician(ctx context.Context, politicianID int64) ([]*domain.TradingDisclosure, error) {
	query := `
		SELECT ` + disclosureColumns + `
		FROM trading_disclosures
		WHERE politician_id = $1
		ORDER BY transaction_date ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, politicianID)
	if err != nil {
		return nil, fmt.Errorf("get disclosures by politician: %w", err)
	}
	defer rows.Close()

	var out []*domain.TradingDisclosure
	for rows.Next() {
		d, err := scanDisclosure(rows)
		if err != nil {
			return nil, fmt.Errorf("scan disclosure row: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate disclosure rows: %w", err)
	}
	return out, nil
}

// scanDisclosure scans a single row into a TradingDisclosure.
func scanDisclosure(row pgx.Row) (*domain.TradingDisclosure, error) {
	var d domain.TradingDisclosure
	var raw []byte

	err := row.Scan(
		&d.ID,
		&d.PoliticianID,
		&d.TransactionDate,
		&d.DisclosureDate,
		&d.AssetName,
		&d.AssetTicker,
		&d.AssetType,
		&d.TransactionType,
		&d.AmountRangeMin,
		&d.AmountRangeMax,
		&d.AmountExact,
		&d.SourceURL,
		&d.SourceDocumentID,
		&d.Source,
		&raw,
		&d.Status,
		&d.HasRawPDF,
		&d.SourceFileID,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &d.RawData); err != nil {
			return nil, fmt.Errorf("unmarshal raw_data: %w", err)
		}
	}
	return &d, nil
}

// marshalRawData encodes the opaque source mapping as JSONB, nil-safe.
func marshalRawData(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal raw_data: %w", err)
	}
	return raw, nil
}
