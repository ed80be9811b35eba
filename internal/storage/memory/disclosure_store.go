package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/storage"
)

// DisclosureStore is an in-memory implementation of storage.DisclosureStore.
type DisclosureStore struct {
	mu     sync.RWMutex
	nextID int64
	data   map[int64]*domain.TradingDisclosure
}

// NewDisclosureStore creates a new in-memory disclosure store.
func NewDisclosureStore() *DisclosureStore {
	return &DisclosureStore{data: make(map[int64]*domain.TradingDisclosure)}
}

// Compile-time interface check.
var _ storage.DisclosureStore = (*DisclosureStore)(nil)

// Insert adds a new disclosure and returns its id.
func (s *DisclosureStore) Insert(_ context.Context, d *domain.TradingDisclosure) (int64, error) {
	if d == nil || d.PoliticianID == 0 || d.AssetName == "" {
		return 0, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findDuplicateLocked(d) != nil {
		return 0, storage.ErrDuplicateKey
	}

	s.nextID++
	cp := copyDisclosure(d)
	cp.ID = s.nextID
	if cp.Status == "" {
		cp.Status = domain.DisclosureStatusActive
	}
	now := time.Now().UTC()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.data[cp.ID] = cp
	return cp.ID, nil
}

// InsertBatch adds multiple disclosures atomically. Any duplicate fails the
// whole batch with ErrDuplicateKey.
func (s *DisclosureStore) InsertBatch(_ context.Context, ds []*domain.TradingDisclosure) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, d := range ds {
		if s.findDuplicateLocked(d) != nil {
			return storage.ErrDuplicateKey
		}
		for _, prev := range ds[:i] {
			if sameKey(prev, d) {
				return storage.ErrDuplicateKey
			}
		}
	}

	now := time.Now().UTC()
	for _, d := range ds {
		s.nextID++
		cp := copyDisclosure(d)
		cp.ID = s.nextID
		if cp.Status == "" {
			cp.Status = domain.DisclosureStatusActive
		}
		cp.CreatedAt = now
		cp.UpdatedAt = now
		s.data[cp.ID] = cp
	}
	return nil
}

// FindExisting looks up a disclosure by the duplicate-check tuple.
func (s *DisclosureStore) FindExisting(_ context.Context, politicianID int64, transactionDate time.Time, assetName, transactionType string) (*domain.TradingDisclosure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []int64
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		d := s.data[id]
		if d.PoliticianID == politicianID &&
			sameDay(d.TransactionDate, transactionDate) &&
			d.AssetName == assetName &&
			d.TransactionType == transactionType {
			return copyDisclosure(d), nil
		}
	}
	return nil, storage.ErrNotFound
}

// Update rewrites the mutable fields of an existing disclosure.
// transaction_type is part of the idempotence key and is never touched.
func (s *DisclosureStore) Update(_ context.Context, d *domain.TradingDisclosure) error {
	if d == nil || d.ID == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.data[d.ID]
	if !exists {
		return storage.ErrNotFound
	}

	existing.AssetTicker = d.AssetTicker
	existing.AssetType = d.AssetType
	existing.AmountRangeMin = copyFloat(d.AmountRangeMin)
	existing.AmountRangeMax = copyFloat(d.AmountRangeMax)
	existing.AmountExact = copyFloat(d.AmountExact)
	existing.SourceURL = d.SourceURL
	existing.RawData = copyRawData(d.RawData)
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

// LinkStoredFile sets has_raw_pdf and source_file_id on a disclosure.
func (s *DisclosureStore) LinkStoredFile(_ context.Context, disclosureID, fileID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.data[disclosureID]
	if !exists {
		return storage.ErrNotFound
	}

	existing.HasRawPDF = true
	existing.SourceFileID = &fileID
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

// GetByPolitician retrieves disclosures for a politician, transaction_date ASC.
func (s *DisclosureStore) GetByPolitician(_ context.Context, politicianID int64) ([]*domain.TradingDisclosure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.TradingDisclosure
	for _, d := range s.data {
		if d.PoliticianID == politicianID {
			out = append(out, copyDisclosure(d))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TransactionDate.Equal(out[j].TransactionDate) {
			return out[i].TransactionDate.Before(out[j].TransactionDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// findDuplicateLocked checks the unique tuple against stored rows.
// Caller must hold the lock.
func (s *DisclosureStore) findDuplicateLocked(d *domain.TradingDisclosure) *domain.TradingDisclosure {
	for _, existing := range s.data {
		if sameKey(existing, d) {
			return existing
		}
	}
	return nil
}

func sameKey(a, b *domain.TradingDisclosure) bool {
	return a.PoliticianID == b.PoliticianID &&
		sameDay(a.TransactionDate, b.TransactionDate) &&
		a.AssetName == b.AssetName &&
		a.TransactionType == b.TransactionType &&
		sameDay(a.DisclosureDate, b.DisclosureDate)
}

func sameDay(a, b time.Time) bool {
	return a.UTC().Truncate(24 * time.Hour).Equal(b.UTC().Truncate(24 * time.Hour))
}

func copyDisclosure(d *domain.TradingDisclosure) *domain.TradingDisclosure {
	cp := *d
	cp.AmountRangeMin = copyFloat(d.AmountRangeMin)
	cp.AmountRangeMax = copyFloat(d.AmountRangeMax)
	cp.AmountExact = copyFloat(d.AmountExact)
	if d.SourceFileID != nil {
		id := *d.SourceFileID
		cp.SourceFileID = &id
	}
	cp.RawData = copyRawData(d.RawData)
	return &cp
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func copyRawData(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
