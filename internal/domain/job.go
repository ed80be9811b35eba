package domain

import "time"

// ScheduleType distinguishes cron from interval triggers.
type ScheduleType string

const (
	ScheduleCron     ScheduleType = "cron"
	ScheduleInterval ScheduleType = "interval"
)

// IsValid checks if the schedule type is a valid value.
func (s ScheduleType) IsValid() bool {
	return s == ScheduleCron || s == ScheduleInterval
}

// JobDefinition is a durable scheduled-job registration.
// Corresponds to scheduled_jobs table in PostgreSQL; the in-memory scheduler
// is a cache rebuilt from these rows on startup.
type JobDefinition struct {
	JobID                  string // unique
	Name                   string
	FunctionRef            string // registered function name the scheduler resolves at startup
	ScheduleType           ScheduleType
	ScheduleValue          string // cron expression, or interval seconds as decimal string
	Enabled                bool
	NextScheduledRun       *time.Time
	LastRunAt              *time.Time
	ConsecutiveFailures    int
	MaxConsecutiveFailures int
	AutoRetryOnStartup     bool
	Metadata               map[string]any
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// JobStatus is the lifecycle state of a single job execution.
type JobStatus string

const (
	JobStatusQueued  JobStatus = "queued"
	JobStatusRunning JobStatus = "running"
	JobStatusSuccess JobStatus = "success"
	JobStatusFailed  JobStatus = "failed"
)

// IsValid checks if the job status is a valid value.
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusQueued, JobStatusRunning, JobStatusSuccess, JobStatusFailed:
		return true
	}
	return false
}

// JobExecution is one run of a scheduled job, with captured logs.
// Corresponds to job_executions table in PostgreSQL.
type JobExecution struct {
	ID              string // UUID
	JobID           string
	Status          JobStatus
	StartedAt       time.Time
	CompletedAt     *time.Time
	DurationSeconds *float64
	ErrorMessage    string
	Logs            []string // ordered lines, capped at 1000; stored newline-joined
	Metadata        map[string]any
}
