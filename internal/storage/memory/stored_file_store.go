package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/storage"
)

// StoredFileStore is an in-memory implementation of storage.StoredFileStore.
type StoredFileStore struct {
	mu     sync.RWMutex
	nextID int64
	data   map[int64]*domain.StoredFile
}

// NewStoredFileStore creates a new in-memory stored file store.
func NewStoredFileStore() *StoredFileStore {
	return &StoredFileStore{data: make(map[int64]*domain.StoredFile)}
}

// Compile-time interface check.
var _ storage.StoredFileStore = (*StoredFileStore)(nil)

// Insert adds a metadata row and returns its id.
func (s *StoredFileStore) Insert(_ context.Context, f *domain.StoredFile) (int64, error) {
	if f == nil || f.StorageBucket == "" || f.FileHashSHA256 == "" {
		return 0, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.data {
		if existing.StorageBucket == f.StorageBucket && existing.FileHashSHA256 == f.FileHashSHA256 {
			return 0, storage.ErrDuplicateKey
		}
	}

	s.nextID++
	cp := copyStoredFile(f)
	cp.ID = s.nextID
	if cp.ParseStatus == "" {
		cp.ParseStatus = domain.ParseStatusPending
	}
	cp.CreatedAt = time.Now().UTC()
	s.data[cp.ID] = cp
	return cp.ID, nil
}

// GetByID retrieves a row by id.
func (s *StoredFileStore) GetByID(_ context.Context, id int64) (*domain.StoredFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyStoredFile(f), nil
}

// GetByHash retrieves a row by bucket and content hash.
func (s *StoredFileStore) GetByHash(_ context.Context, bucket, sha256Hex string) (*domain.StoredFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, f := range s.data {
		if f.StorageBucket == bucket && f.FileHashSHA256 == sha256Hex {
			return copyStoredFile(f), nil
		}
	}
	return nil, storage.ErrNotFound
}

// MarkParsed transitions parse_status to success with the transaction count.
func (s *StoredFileStore) MarkParsed(_ context.Context, id int64, transactionsFound int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}

	now := time.Now().UTC()
	f.ParseStatus = domain.ParseStatusSuccess
	f.TransactionsFound = transactionsFound
	f.ParseError = ""
	f.ParsedAt = &now
	return nil
}

// MarkFailed transitions parse_status to failed with the error message.
func (s *StoredFileStore) MarkFailed(_ context.Context, id int64, parseError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}

	now := time.Now().UTC()
	f.ParseStatus = domain.ParseStatusFailed
	f.ParseError = parseError
	f.ParsedAt = &now
	return nil
}

// ListPending returns pending rows in the bucket, created_at ASC.
func (s *StoredFileStore) ListPending(_ context.Context, bucket string, limit int) ([]*domain.StoredFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.StoredFile
	for _, f := range s.data {
		if f.StorageBucket == bucket && f.ParseStatus == domain.ParseStatusPending {
			out = append(out, copyStoredFile(f))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func copyStoredFile(f *domain.StoredFile) *domain.StoredFile {
	cp := *f
	if f.ParsedAt != nil {
		t := *f.ParsedAt
		cp.ParsedAt = &t
	}
	if f.DisclosureID != nil {
		id := *f.DisclosureID
		cp.DisclosureID = &id
	}
	return &cp
}
