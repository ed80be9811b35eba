package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/storage"
)

// JobOptions tune a registration. The zero value matches the defaults used
// by every production job.
type JobOptions struct {
	// ReplaceExisting silently replaces a definition with the same job id.
	// Registration of a duplicate fails when disabled.
	ReplaceExisting *bool
	// AutoRetryOnStartup opts the job into missed-job recovery.
	AutoRetryOnStartup bool
	// MaxConsecutiveFailures caps recovery retries. Zero means 3.
	MaxConsecutiveFailures int
	Metadata               map[string]any
}

func (o JobOptions) replaceExisting() bool {
	if o.ReplaceExisting == nil {
		return true
	}
	return *o.ReplaceExisting
}

func (o JobOptions) maxFailures() int {
	if o.MaxConsecutiveFailures <= 0 {
		return 3
	}
	return o.MaxConsecutiveFailures
}

// AddCronJob registers a job on a 5-field cron expression.
func (s *Scheduler) AddCronJob(ctx context.Context, jobID, name, functionRef, spec string, opts JobOptions) error {
	if _, err := parseCron(spec); err != nil {
		return err
	}
	return s.addJob(ctx, jobID, name, functionRef, domain.ScheduleCron, spec, opts)
}

// AddCronComponents registers a job from component-wise cron parts.
func (s *Scheduler) AddCronComponents(ctx context.Context, jobID, name, functionRef string, spec CronSpec, opts JobOptions) error {
	return s.AddCronJob(ctx, jobID, name, functionRef, spec.Expression(), opts)
}

// AddIntervalJob registers a job firing every fixed duration.
func (s *Scheduler) AddIntervalJob(ctx context.Context, jobID, name, functionRef string, every time.Duration, opts JobOptions) error {
	if every <= 0 {
		return fmt.Errorf("interval must be positive, got %s", every)
	}
	return s.addJob(ctx, jobID, name, functionRef, domain.ScheduleInterval, intervalValue(every), opts)
}

func (s *Scheduler) addJob(ctx context.Context, jobID, name, functionRef string, st domain.ScheduleType, value string, opts JobOptions) error {
	if !opts.replaceExisting() {
		if _, err := s.jobs.Get(ctx, jobID); err == nil {
			return fmt.Errorf("job %q already exists", jobID)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
	}

	def := &domain.JobDefinition{
		JobID:                  jobID,
		Name:                   name,
		FunctionRef:            functionRef,
		ScheduleType:           st,
		ScheduleValue:          value,
		Enabled:                true,
		AutoRetryOnStartup:     opts.AutoRetryOnStartup,
		MaxConsecutiveFailures: opts.maxFailures(),
		Metadata:               opts.Metadata,
	}
	sched, err := scheduleFor(def)
	if err != nil {
		return err
	}
	next := sched.Next(time.Now().UTC())
	def.NextScheduledRun = &next

	if err := s.jobs.Upsert(ctx, def); err != nil {
		return fmt.Errorf("persist job %q: %w", jobID, err)
	}
	return s.schedule(def)
}

// RemoveJob deletes the definition and stops its loop.
func (s *Scheduler) RemoveJob(ctx context.Context, jobID string) error {
	s.unschedule(jobID)
	return s.jobs.Delete(ctx, jobID)
}

// PauseJob disables the job and stops its loop; the definition stays.
func (s *Scheduler) PauseJob(ctx context.Context, jobID string) error {
	s.unschedule(jobID)
	return s.jobs.SetEnabled(ctx, jobID, false)
}

// ResumeJob re-enables a paused job and restarts its loop.
func (s *Scheduler) ResumeJob(ctx context.Context, jobID string) error {
	if err := s.jobs.SetEnabled(ctx, jobID, true); err != nil {
		return err
	}
	def, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}
	return s.schedule(def)
}

// RunJobNow fires one immediate execution, subject to the at-most-one rule.
func (s *Scheduler) RunJobNow(ctx context.Context, jobID string) error {
	if _, err := s.jobs.Get(ctx, jobID); err != nil {
		return err
	}
	s.execute(ctx, jobID)
	return nil
}

// Jobs lists every enabled job definition.
func (s *Scheduler) Jobs(ctx context.Context) ([]*domain.JobDefinition, error) {
	return s.jobs.ListEnabled(ctx)
}

// JobInfo is the detailed view of one job.
type JobInfo struct {
	Definition *domain.JobDefinition
	Running    bool
	Executions []*domain.JobExecution
}

// GetJobInfo returns the definition, live state and recent executions.
func (s *Scheduler) GetJobInfo(ctx context.Context, jobID string) (*JobInfo, error) {
	def, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	execs, err := s.execs.ListByJob(ctx, jobID, 10)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	running := s.running[jobID]
	s.mu.Unlock()

	return &JobInfo{Definition: def, Running: running, Executions: execs}, nil
}
