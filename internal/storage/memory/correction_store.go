package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/storage"
)

// CorrectionStore is an in-memory implementation of storage.CorrectionStore.
type CorrectionStore struct {
	mu     sync.RWMutex
	nextID int64
	data   []*domain.DataQualityCorrection
}

// NewCorrectionStore creates a new in-memory correction store.
func NewCorrectionStore() *CorrectionStore {
	return &CorrectionStore{}
}

// Compile-time interface check.
var _ storage.CorrectionStore = (*CorrectionStore)(nil)

// Insert adds an audit row.
func (s *CorrectionStore) Insert(_ context.Context, c *domain.DataQualityCorrection) error {
	if c == nil || c.TableName == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	cp := *c
	cp.ID = s.nextID
	cp.CreatedAt = time.Now().UTC()
	s.data = append(s.data, &cp)
	return nil
}

// ListByRecord retrieves corrections for one record, created_at ASC.
func (s *CorrectionStore) ListByRecord(_ context.Context, tableName string, recordID int64) ([]*domain.DataQualityCorrection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.DataQualityCorrection
	for _, c := range s.data {
		if c.TableName == tableName && c.RecordID == recordID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
