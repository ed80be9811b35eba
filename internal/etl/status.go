package etl

import (
	"sync"
	"time"
)

// JobState is the coarse job lifecycle state.
type JobState string

const (
	JobStateRunning   JobState = "running"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
)

// JobStatus is the live view of one job run.
type JobStatus struct {
	JobID     string
	Status    JobState
	Message   string
	Total     int
	Processed int
	StartedAt time.Time
	UpdatedAt time.Time
}

// StatusTracker holds the live status of running jobs. Safe for concurrent
// use; the scheduler reads it while the runner writes.
type StatusTracker struct {
	mu   sync.RWMutex
	jobs map[string]*JobStatus
}

// NewStatusTracker creates an empty tracker.
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{jobs: make(map[string]*JobStatus)}
}

// Start registers a running job.
func (t *StatusTracker) Start(jobID, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now().UTC()
	t.jobs[jobID] = &JobStatus{
		JobID:     jobID,
		Status:    JobStateRunning,
		Message:   message,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// Progress updates the rolling message and counters of a running job.
func (t *StatusTracker) Progress(jobID, message string, processed, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.jobs[jobID]; ok {
		s.Message = message
		s.Processed = processed
		s.Total = total
		s.UpdatedAt = time.Now().UTC()
	}
}

// Finish moves a job to a terminal state.
func (t *StatusTracker) Finish(jobID string, state JobState, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.jobs[jobID]; ok {
		s.Status = state
		s.Message = message
		s.UpdatedAt = time.Now().UTC()
	}
}

// Get returns a copy of the job status.
func (t *StatusTracker) Get(jobID string) (JobStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if s, ok := t.jobs[jobID]; ok {
		return *s, true
	}
	return JobStatus{}, false
}
