package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/storage"
)

// StoredFileStore implements storage.StoredFileStore using PostgreSQL.
type StoredFileStore struct {
	pool *Pool
}

// NewStoredFileStore creates a new StoredFileStore.
func NewStoredFileStore(pool *Pool) *StoredFileStore {
	return &StoredFileStore{pool: pool}
}

// Compile-time interface check.
var _ storage.StoredFileStore = (*StoredFileStore)(nil)

const storedFileColumns = `
	id, storage_bucket, storage_path, file_type, file_size_bytes,
	file_hash_sha256, mime_type, source_url, source_type, parse_status,
	parse_error, parsed_at, transactions_found, expires_at, disclosure_id,
	created_at
`

// Insert adds a metadata row and returns its id.
func (s *StoredFileStore) Insert(ctx context.Context, f *domain.StoredFile) (int64, error) {
	query := `
		INSERT INTO stored_files (
			storage_bucket, storage_path, file_type, file_size_bytes,
			file_hash_sha256, mime_type, source_url, source_type,
			parse_status, expires_at, disclosure_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	status := f.ParseStatus
	if status == "" {
		status = domain.ParseStatusPending
	}

	var id int64
	err := s.pool.QueryRow(ctx, query,
		f.StorageBucket,
		f.StoragePath,
		f.FileType,
		f.FileSizeBytes,
		f.FileHashSHA256,
		f.MimeType,
		f.SourceURL,
		f.SourceType,
		string(status),
		f.ExpiresAt,
		f.DisclosureID,
	).Scan(&id)
	if err != nil {
		if isDuplicateKeyError(err) {
			return 0, storage.ErrDuplicateKey
		}
		return 0, fmt.Errorf("insert stored file: %w", err)
	}
	return id, nil
}

// GetByID retrieves a row by id. Returns ErrNotFound if not exists.
func (s *StoredFileStore) GetByID(ctx context.Context, id int64) (*domain.StoredFile, error) {
	query := `SELECT ` + storedFileColumns + ` FROM stored_files WHERE id = $1`

	row := s.pool.QueryRow(ctx, query, id)
	f, err := scanStoredFile(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get stored file by id: %w", err)
	}
	return f, nil
}

// GetByHash retrieves a row by bucket and content hash.
func (s *StoredFileStore) GetByHash(ctx context.Context, bucket, sha256Hex string) (*domain.StoredFile, error) {
	query := `
		SELECT ` + storedFileColumns + `
		FROM stored_files
		WHERE storage_bucket = $1 AND file_hash_sha256 = $2
	`

	row := s.pool.QueryRow(ctx, query, bucket, sha256Hex)
	f, err := scanStoredFile(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get stored file by hash: %w", err)
	}
	return f, nil
}

// MarkParsed transitions parse_status to success with the transaction count.
func (s *StoredFileStore) MarkParsed(ctx context.Context, id int64, transactionsFound int) error {
	query := `
		UPDATE stored_files
		SET parse_status = 'success', transactions_found = $2,
		    parse_error = '', parsed_at = now()
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query, id, transactionsFound)
	if err != nil {
		return fmt.Errorf("mark stored file parsed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// MarkFailed transitions parse_status to failed with the error message.
func (s *StoredFileStore) MarkFailed(ctx context.Context, id int64, parseError string) error {
	query := `
		UPDATE stored_files
		SET parse_status = 'failed', parse_error = $2, parsed_at = now()
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query, id, parseError)
	if err != nil {
		return fmt.Errorf("mark stored file failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListPending returns pending rows in the bucket, created_at ASC.
func (s *StoredFileStore) ListPending(ctx context.Context, bucket string, limit int) ([]*domain.StoredFile, error) {
	query := `
		SELECT ` + storedFileColumns + `
		FROM stored_files
		WHERE storage_bucket = $1 AND parse_status = 'pending'
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, bucket, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending stored files: %w", err)
	}
	defer rows.Close()

	var out []*domain.StoredFile
	for rows.Next() {
		f, err := scanStoredFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stored file row: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stored file rows: %w", err)
	}
	return out, nil
}

// scanStoredFile scans a single row into a StoredFile.
func scanStoredFile(row pgx.Row) (*domain.StoredFile, error) {
	var f domain.StoredFile
	var status string

	err := row.Scan(
		&f.ID,
		&f.StorageBucket,
		&f.StoragePath,
		&f.FileType,
		&f.FileSizeBytes,
		&f.FileHashSHA256,
		&f.MimeType,
		&f.SourceURL,
		&f.SourceType,
		&status,
		&f.ParseError,
		&f.ParsedAt,
		&f.TransactionsFound,
		&f.ExpiresAt,
		&f.DisclosureID,
		&f.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	f.ParseStatus = domain.ParseStatus(status)
	return &f, nil
}
