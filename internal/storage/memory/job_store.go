package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/storage"
)

// JobStore is an in-memory implementation of storage.JobStore.
type JobStore struct {
	mu   sync.RWMutex
	data map[string]*domain.JobDefinition
}

// NewJobStore creates a new in-memory job store.
func NewJobStore() *JobStore {
	return &JobStore{data: make(map[string]*domain.JobDefinition)}
}

// Compile-time interface check.
var _ storage.JobStore = (*JobStore)(nil)

// Upsert registers or replaces a job definition keyed by job_id.
func (s *JobStore) Upsert(_ context.Context, j *domain.JobDefinition) error {
	if j == nil || j.JobID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	cp := copyJob(j)
	if existing, exists := s.data[j.JobID]; exists {
		cp.CreatedAt = existing.CreatedAt
		cp.LastRunAt = copyTime(existing.LastRunAt)
		cp.ConsecutiveFailures = existing.ConsecutiveFailures
	} else {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	s.data[j.JobID] = cp
	return nil
}

// Get retrieves a definition by job_id.
func (s *JobStore) Get(_ context.Context, jobID string) (*domain.JobDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, exists := s.data[jobID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyJob(j), nil
}

// ListEnabled retrieves every enabled definition, job_id ASC.
func (s *JobStore) ListEnabled(_ context.Context) ([]*domain.JobDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.JobDefinition
	for _, j := range s.data {
		if j.Enabled {
			out = append(out, copyJob(j))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobID < out[j].JobID })
	return out, nil
}

// ListDueForRecovery retrieves enabled jobs eligible for missed-job recovery.
func (s *JobStore) ListDueForRecovery(_ context.Context, now time.Time) ([]*domain.JobDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.JobDefinition
	for _, j := range s.data {
		if j.Enabled && j.AutoRetryOnStartup &&
			j.NextScheduledRun != nil && !j.NextScheduledRun.After(now) &&
			j.ConsecutiveFailures < j.MaxConsecutiveFailures {
			out = append(out, copyJob(j))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].NextScheduledRun.Before(*out[j].NextScheduledRun)
	})
	return out, nil
}

// UpdateAfterExecution bumps last_run_at, adjusts consecutive_failures and
// records the next scheduled run.
func (s *JobStore) UpdateAfterExecution(_ context.Context, jobID string, success bool, nextRun *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, exists := s.data[jobID]
	if !exists {
		return storage.ErrNotFound
	}

	now := time.Now().UTC()
	j.LastRunAt = &now
	if success {
		j.ConsecutiveFailures = 0
	} else {
		j.ConsecutiveFailures++
	}
	j.NextScheduledRun = copyTime(nextRun)
	j.UpdatedAt = now
	return nil
}

// SetEnabled pauses or resumes a job.
func (s *JobStore) SetEnabled(_ context.Context, jobID string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, exists := s.data[jobID]
	if !exists {
		return storage.ErrNotFound
	}
	j.Enabled = enabled
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// Delete removes a definition.
func (s *JobStore) Delete(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[jobID]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, jobID)
	return nil
}

func copyJob(j *domain.JobDefinition) *domain.JobDefinition {
	cp := *j
	cp.NextScheduledRun = copyTime(j.NextScheduledRun)
	cp.LastRunAt = copyTime(j.LastRunAt)
	if j.Metadata != nil {
		cp.Metadata = make(map[string]any, len(j.Metadata))
		for k, v := range j.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
