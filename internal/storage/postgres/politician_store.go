package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/storage"
)

// PoliticianStore implements storage.PoliticianStore using PostgreSQL.
type PoliticianStore struct {
	pool *Pool
}

// NewPoliticianStore creates a new PoliticianStore.
func NewPoliticianStore(pool *Pool) *PoliticianStore {
	return &PoliticianStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PoliticianStore = (*PoliticianStore)(nil)

const politicianColumns = `
	id, first_name, last_name, role, party, chamber, state_or_country,
	district, bioguide_id, created_at, updated_at
`

// Insert adds a new politician and returns its id.
func (s *PoliticianStore) Insert(ctx context.Context, p *domain.Politician) (int64, error) {
	query := `
		INSERT INTO politicians (
			first_name, last_name, role, party, chamber, state_or_country, district, bioguide_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	var id int64
	err := s.pool.QueryRow(ctx, query,
		p.FirstName,
		p.LastName,
		p.Role,
		p.Party,
		p.Chamber,
		p.StateOrCountry,
		p.District,
		p.BioguideID,
	).Scan(&id)
	if err != nil {
		if isDuplicateKeyError(err) {
			return 0, storage.ErrDuplicateKey
		}
		return 0, fmt.Errorf("insert politician: %w", err)
	}
	return id, nil
}

// GetByID retrieves a politician by id. Returns ErrNotFound if not exists.
func (s *PoliticianStore) GetByID(ctx context.Context, id int64) (*domain.Politician, error) {
	query := `SELECT ` + politicianColumns + ` FROM politicians WHERE id = $1`

	row := s.pool.QueryRow(ctx, query, id)
	p, err := scanPolitician(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get politician by id: %w", err)
	}
	return p, nil
}

// GetByBioguideID retrieves a politician by external id.
func (s *PoliticianStore) GetByBioguideID(ctx context.Context, bioguideID string) (*domain.Politician, error) {
	if bioguideID == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `SELECT ` + politicianColumns + ` FROM politicians WHERE bioguide_id = $1`

	row := s.pool.QueryRow(ctx, query, bioguideID)
	p, err := scanPolitician(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get politician by bioguide id: %w", err)
	}
	return p, nil
}

// FindByName retrieves a politician by normalized (first, last, role).
// Empty role matches any role.
func (s *PoliticianStore) FindByName(ctx context.Context, first, last, role string) (*domain.Politician, error) {
	query := `
		SELECT ` + politicianColumns + `
		FROM politicians
		WHERE lower(first_name) = $1 AND lower(last_name) = $2
		  AND ($3 = '' OR role = $3)
		ORDER BY id ASC
		LIMIT 1
	`

	row := s.pool.QueryRow(ctx, query, strings.ToLower(first), strings.ToLower(last), role)
	p, err := scanPolitician(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("find politician by name: %w", err)
	}
	return p, nil
}

// GetAll retrieves every politician, ordered by id ASC.
func (s *PoliticianStore) GetAll(ctx context.Context) ([]*domain.Politician, error) {
	query := `SELECT ` + politicianColumns + ` FROM politicians ORDER BY id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all politicians: %w", err)
	}
	defer rows.Close()

	return scanPoliticians(rows)
}

// Update rewrites the mutable fields of an existing politician.
func (s *PoliticianStore) Update(ctx context.Context, p *domain.Politician) error {
	query := `
		UPDATE politicians
		SET first_name = $2, last_name = $3, role = $4, party = $5,
		    chamber = $6, state_or_country = $7, district = $8,
		    bioguide_id = $9, updated_at = now()
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		p.ID,
		p.FirstName,
		p.LastName,
		p.Role,
		p.Party,
		p.Chamber,
		p.StateOrCountry,
		p.District,
		p.BioguideID,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("update politician: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanPolitician scans a single row into a Politician.
func scanPolitician(row pgx.Row) (*domain.Politician, error) {
	var p domain.Politician
	err := row.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.Role,
		&p.Party,
		&p.Chamber,
		&p.StateOrCountry,
		&p.District,
		&p.BioguideID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// scanPoliticians scans multiple rows into a slice of Politician.
func scanPoliticians(rows pgx.Rows) ([]*domain.Politician, error) {
	var politicians []*domain.Politician

	for rows.Next() {
		p, err := scanPolitician(rows)
		if err != nil {
			return nil, fmt.Errorf("scan politician row: %w", err)
		}
		politicians = append(politicians, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate politician rows: %w", err)
	}

	return politicians, nil
}
