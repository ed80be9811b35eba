// Package scheduler runs registered jobs on durable cron or interval
// triggers. Job definitions live in storage; the in-memory state is a cache
// rebuilt from those rows on startup.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/logging"
	"disclosure-lab/internal/observability"
	"disclosure-lab/internal/storage"
)

const (
	// misfireGrace is how late a firing may be and still run. Later firings
	// are dropped; the loop simply waits for the next one.
	misfireGrace = 5 * time.Minute

	// historySize is the in-memory execution history depth.
	historySize = 100

	// maxLogLines caps the per-execution log capture.
	maxLogLines = 1000
)

// JobFunc is the unit of work a job executes.
type JobFunc func(ctx context.Context, logger *zap.Logger) error

// entry is one live scheduled job.
type entry struct {
	def      *domain.JobDefinition
	schedule cron.Schedule
	stop     chan struct{}
}

// Scheduler owns the job loops. One scheduler exists per process; Stop is
// non-blocking and running jobs finish in the background.
type Scheduler struct {
	jobs   storage.JobStore
	execs  storage.ExecutionStore
	logger *zap.Logger

	mu      sync.Mutex
	funcs   map[string]JobFunc
	entries map[string]*entry
	running map[string]bool
	history []*domain.JobExecution
	started bool

	stopOnce sync.Once
	stopped  chan struct{}
}

// New creates a scheduler over the durable stores.
func New(jobs storage.JobStore, execs storage.ExecutionStore, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		jobs:    jobs,
		execs:   execs,
		logger:  logger,
		funcs:   make(map[string]JobFunc),
		entries: make(map[string]*entry),
		running: make(map[string]bool),
		stopped: make(chan struct{}),
	}
}

// RegisterFunc binds a function name to its implementation. Durable job
// definitions reference functions by this name.
func (s *Scheduler) RegisterFunc(name string, fn JobFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.funcs[name] = fn
}

// Start loads the durable definitions, runs missed-job recovery and begins
// scheduling. It must be called once.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already started")
	}
	s.started = true
	s.mu.Unlock()

	if err := s.seedHistory(ctx); err != nil {
		s.logger.Warn("load execution history", zap.Error(err))
	}

	defs, err := s.jobs.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("load job definitions: %w", err)
	}
	for _, def := range defs {
		if err := s.schedule(def); err != nil {
			s.logger.Error("schedule job", zap.String("job_id", def.JobID), zap.Error(err))
		}
	}

	s.recoverMissed(ctx)
	s.logger.Info("scheduler started", zap.Int("jobs", len(defs)))
	return nil
}

// Stop halts the job loops without waiting for in-flight executions.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopped) })
}

// schedule adds a live loop for a definition, replacing any existing one.
// Caller must not hold s.mu.
func (s *Scheduler) schedule(def *domain.JobDefinition) error {
	sched, err := scheduleFor(def)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.entries[def.JobID]; ok {
		close(old.stop)
	}
	e := &entry{def: def, schedule: sched, stop: make(chan struct{})}
	s.entries[def.JobID] = e
	go s.loop(e)
	return nil
}

// unschedule stops the live loop of a job. Caller must not hold s.mu.
func (s *Scheduler) unschedule(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[jobID]; ok {
		close(e.stop)
		delete(s.entries, jobID)
	}
}

// loop fires the job at each scheduled time. Execution is synchronous inside
// the loop, so missed firings during a long run coalesce into the next one
// and at most one instance of a job ever runs.
func (s *Scheduler) loop(e *entry) {
	for {
		next := e.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-s.stopped:
			timer.Stop()
			return
		case <-e.stop:
			timer.Stop()
			return
		case now := <-timer.C:
			if now.Sub(next) > misfireGrace {
				s.logger.Warn("misfired job skipped",
					zap.String("job_id", e.def.JobID),
					zap.Time("scheduled", next))
				continue
			}
			s.execute(context.Background(), e.def.JobID)
		}
	}
}

// execute runs one job now, capturing logs and recording the execution.
// A job already running is skipped.
func (s *Scheduler) execute(ctx context.Context, jobID string) {
	s.mu.Lock()
	if s.running[jobID] {
		s.mu.Unlock()
		s.logger.Info("job still running, firing skipped", zap.String("job_id", jobID))
		return
	}
	fn, e := s.funcs[s.functionRef(jobID)], s.entries[jobID]
	s.running[jobID] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.running, jobID)
		s.mu.Unlock()
	}()

	observability.DefaultMetrics.JobsRunning.Inc()
	defer observability.DefaultMetrics.JobsRunning.Dec()

	captureLogger, buf := logging.NewCapture(s.logger.With(zap.String("job_id", jobID)), maxLogLines)

	exec := &domain.JobExecution{
		ID:        uuid.NewString(),
		JobID:     jobID,
		Status:    domain.JobStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := s.execs.Insert(ctx, exec); err != nil {
		s.logger.Error("record execution start", zap.String("job_id", jobID), zap.Error(err))
	}

	var runErr error
	if fn == nil {
		runErr = fmt.Errorf("no function registered for job %q", jobID)
	} else {
		runErr = fn(ctx, captureLogger)
	}

	completed := time.Now().UTC()
	duration := completed.Sub(exec.StartedAt).Seconds()
	exec.CompletedAt = &completed
	exec.DurationSeconds = &duration
	exec.Logs = buf.Lines()
	if runErr != nil {
		exec.Status = domain.JobStatusFailed
		exec.ErrorMessage = runErr.Error()
		s.logger.Error("job failed", zap.String("job_id", jobID), zap.Error(runErr))
	} else {
		exec.Status = domain.JobStatusSuccess
	}

	if err := s.execs.Update(ctx, exec); err != nil {
		s.logger.Error("record execution result", zap.String("job_id", jobID), zap.Error(err))
	}
	observability.DefaultMetrics.JobExecutionsTotal.WithLabelValues(jobID, string(exec.Status)).Inc()
	s.remember(exec)

	var nextRun *time.Time
	if e != nil {
		n := e.schedule.Next(time.Now())
		nextRun = &n
	}
	if err := s.jobs.UpdateAfterExecution(ctx, jobID, runErr == nil, nextRun); err != nil {
		s.logger.Error("update job after execution", zap.String("job_id", jobID), zap.Error(err))
	}
}

// recoverMissed runs every job whose scheduled time passed while the process
// was down, each exactly once.
func (s *Scheduler) recoverMissed(ctx context.Context) {
	due, err := s.jobs.ListDueForRecovery(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error("query missed jobs", zap.Error(err))
		return
	}
	for _, def := range due {
		s.logger.Info("recovering missed job",
			zap.String("job_id", def.JobID),
			zap.Timep("was_due", def.NextScheduledRun))
		s.execute(ctx, def.JobID)
		observability.DefaultMetrics.MissedJobsRecovered.Inc()
	}
}

// remember prepends an execution to the bounded in-memory history.
func (s *Scheduler) remember(exec *domain.JobExecution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append([]*domain.JobExecution{exec}, s.history...)
	if len(s.history) > historySize {
		s.history = s.history[:historySize]
	}
}

// seedHistory loads the most recent executions from storage.
func (s *Scheduler) seedHistory(ctx context.Context) error {
	recent, err := s.execs.ListRecent(ctx, historySize)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.history = recent
	s.mu.Unlock()
	return nil
}

// History returns a copy of the in-memory execution history, newest first.
func (s *Scheduler) History() []*domain.JobExecution {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.JobExecution, len(s.history))
	copy(out, s.history)
	return out
}

// functionRef resolves the registered function name for a job. Caller must
// hold s.mu.
func (s *Scheduler) functionRef(jobID string) string {
	if e, ok := s.entries[jobID]; ok {
		return e.def.FunctionRef
	}
	return jobID
}
