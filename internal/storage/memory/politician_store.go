package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/storage"
)

// PoliticianStore is an in-memory implementation of storage.PoliticianStore.
type PoliticianStore struct {
	mu     sync.RWMutex
	nextID int64
	data   map[int64]*domain.Politician
}

// NewPoliticianStore creates a new in-memory politician store.
func NewPoliticianStore() *PoliticianStore {
	return &PoliticianStore{data: make(map[int64]*domain.Politician)}
}

// Compile-time interface check.
var _ storage.PoliticianStore = (*PoliticianStore)(nil)

// Insert adds a new politician and returns its id.
func (s *PoliticianStore) Insert(_ context.Context, p *domain.Politician) (int64, error) {
	if p == nil || p.LastName == "" {
		return 0, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p.BioguideID != "" {
		for _, existing := range s.data {
			if existing.BioguideID == p.BioguideID {
				return 0, storage.ErrDuplicateKey
			}
		}
	}

	s.nextID++
	cp := *p
	cp.ID = s.nextID
	now := time.Now().UTC()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.data[cp.ID] = &cp
	return cp.ID, nil
}

// GetByID retrieves a politician by id.
func (s *PoliticianStore) GetByID(_ context.Context, id int64) (*domain.Politician, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// GetByBioguideID retrieves a politician by external id.
func (s *PoliticianStore) GetByBioguideID(_ context.Context, bioguideID string) (*domain.Politician, error) {
	if bioguideID == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.data {
		if p.BioguideID == bioguideID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

// FindByName retrieves a politician by normalized (first, last, role).
func (s *PoliticianStore) FindByName(_ context.Context, first, last, role string) (*domain.Politician, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []int64
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		p := s.data[id]
		if strings.EqualFold(p.FirstName, first) && strings.EqualFold(p.LastName, last) &&
			(role == "" || p.Role == role) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

// GetAll retrieves every politician, ordered by id ASC.
func (s *PoliticianStore) GetAll(_ context.Context) ([]*domain.Politician, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Politician
	for _, p := range s.data {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Update rewrites the mutable fields of an existing politician.
func (s *PoliticianStore) Update(_ context.Context, p *domain.Politician) error {
	if p == nil || p.ID == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.data[p.ID]
	if !exists {
		return storage.ErrNotFound
	}

	cp := *p
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = time.Now().UTC()
	s.data[p.ID] = &cp
	return nil
}
