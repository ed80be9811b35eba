package memory

import (
	"context"
	"sort"
	"sync"

	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/storage"
)

// ExecutionStore is an in-memory implementation of storage.ExecutionStore.
type ExecutionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.JobExecution
}

// NewExecutionStore creates a new in-memory execution store.
func NewExecutionStore() *ExecutionStore {
	return &ExecutionStore{data: make(map[string]*domain.JobExecution)}
}

// Compile-time interface check.
var _ storage.ExecutionStore = (*ExecutionStore)(nil)

// Insert adds a new execution row.
func (s *ExecutionStore) Insert(_ context.Context, e *domain.JobExecution) error {
	if e == nil || e.ID == "" || e.JobID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.ID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[e.ID] = copyExecution(e)
	return nil
}

// Update rewrites status, completion time, duration, error and logs.
func (s *ExecutionStore) Update(_ context.Context, e *domain.JobExecution) error {
	if e == nil || e.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.data[e.ID]
	if !exists {
		return storage.ErrNotFound
	}

	existing.Status = e.Status
	existing.CompletedAt = copyTime(e.CompletedAt)
	existing.DurationSeconds = copyFloat(e.DurationSeconds)
	existing.ErrorMessage = e.ErrorMessage
	existing.Logs = append([]string(nil), e.Logs...)
	return nil
}

// ListRecent retrieves the most recent executions across all jobs.
func (s *ExecutionStore) ListRecent(_ context.Context, limit int) ([]*domain.JobExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.JobExecution
	for _, e := range s.data {
		out = append(out, copyExecution(e))
	}
	sortExecutions(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListByJob retrieves recent executions of one job.
func (s *ExecutionStore) ListByJob(_ context.Context, jobID string, limit int) ([]*domain.JobExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.JobExecution
	for _, e := range s.data {
		if e.JobID == jobID {
			out = append(out, copyExecution(e))
		}
	}
	sortExecutions(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// sortExecutions orders by started_at DESC, id as tiebreaker.
func sortExecutions(es []*domain.JobExecution) {
	sort.Slice(es, func(i, j int) bool {
		if !es[i].StartedAt.Equal(es[j].StartedAt) {
			return es[i].StartedAt.After(es[j].StartedAt)
		}
		return es[i].ID < es[j].ID
	})
}

func copyExecution(e *domain.JobExecution) *domain.JobExecution {
	cp := *e
	cp.CompletedAt = copyTime(e.CompletedAt)
	cp.DurationSeconds = copyFloat(e.DurationSeconds)
	cp.Logs = append([]string(nil), e.Logs...)
	if e.Metadata != nil {
		cp.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}
