package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/storage"
)

func testJob(jobID string) *domain.JobDefinition {
	next := time.Now().UTC().Add(time.Hour)
	return &domain.JobDefinition{
		JobID:                  jobID,
		Name:                   "Test job " + jobID,
		FunctionRef:            "pipeline.run_all",
		ScheduleType:           domain.ScheduleCron,
		ScheduleValue:          "0 */6 * * *",
		Enabled:                true,
		NextScheduledRun:       &next,
		MaxConsecutiveFailures: 5,
		AutoRetryOnStartup:     true,
	}
}

func TestJobStore_UpsertPreservesRunState(t *testing.T) {
	ctx := context.Background()
	store := NewJobStore()

	if err := store.Upsert(ctx, testJob("j1")); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := store.UpdateAfterExecution(ctx, "j1", false, nil); err != nil {
		t.Fatalf("UpdateAfterExecution failed: %v", err)
	}

	// Re-registering the same job must not reset failure tracking.
	j := testJob("j1")
	j.Name = "Renamed"
	if err := store.Upsert(ctx, j); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	got, err := store.Get(ctx, "j1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name != "Renamed" {
		t.Errorf("expected renamed job, got %q", got.Name)
	}
	if got.ConsecutiveFailures != 1 {
		t.Errorf("expected consecutive_failures preserved at 1, got %d", got.ConsecutiveFailures)
	}
	if got.LastRunAt == nil {
		t.Error("expected last_run_at preserved")
	}
}

func TestJobStore_ListEnabled(t *testing.T) {
	ctx := context.Background()
	store := NewJobStore()

	for _, id := range []string{"b", "a", "c"} {
		if err := store.Upsert(ctx, testJob(id)); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}
	if err := store.SetEnabled(ctx, "c", false); err != nil {
		t.Fatalf("SetEnabled failed: %v", err)
	}

	jobs, err := store.ListEnabled(ctx)
	if err != nil {
		t.Fatalf("ListEnabled failed: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 enabled jobs, got %d", len(jobs))
	}
	if jobs[0].JobID != "a" || jobs[1].JobID != "b" {
		t.Errorf("expected job_id ASC order, got %q %q", jobs[0].JobID, jobs[1].JobID)
	}
}

func TestJobStore_ListDueForRecovery(t *testing.T) {
	ctx := context.Background()
	store := NewJobStore()
	now := time.Now().UTC()

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	due := testJob("due")
	due.NextScheduledRun = &past

	notDue := testJob("not-due")
	notDue.NextScheduledRun = &future

	noRetry := testJob("no-retry")
	noRetry.NextScheduledRun = &past
	noRetry.AutoRetryOnStartup = false

	exhausted := testJob("exhausted")
	exhausted.NextScheduledRun = &past

	for _, j := range []*domain.JobDefinition{due, notDue, noRetry, exhausted} {
		if err := store.Upsert(ctx, j); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}
	// ConsecutiveFailures is run state; reach it through executions.
	for i := 0; i < 5; i++ {
		if err := store.UpdateAfterExecution(ctx, "exhausted", false, &past); err != nil {
			t.Fatalf("UpdateAfterExecution failed: %v", err)
		}
	}

	jobs, err := store.ListDueForRecovery(ctx, now)
	if err != nil {
		t.Fatalf("ListDueForRecovery failed: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected exactly 1 recoverable job, got %d", len(jobs))
	}
	if jobs[0].JobID != "due" {
		t.Errorf("expected job due, got %q", jobs[0].JobID)
	}
}

func TestJobStore_UpdateAfterExecution(t *testing.T) {
	ctx := context.Background()
	store := NewJobStore()

	if err := store.Upsert(ctx, testJob("j1")); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	next := time.Now().UTC().Add(6 * time.Hour)
	if err := store.UpdateAfterExecution(ctx, "j1", false, &next); err != nil {
		t.Fatalf("UpdateAfterExecution failed: %v", err)
	}
	if err := store.UpdateAfterExecution(ctx, "j1", false, &next); err != nil {
		t.Fatalf("UpdateAfterExecution failed: %v", err)
	}

	got, _ := store.Get(ctx, "j1")
	if got.ConsecutiveFailures != 2 {
		t.Errorf("expected 2 consecutive failures, got %d", got.ConsecutiveFailures)
	}

	if err := store.UpdateAfterExecution(ctx, "j1", true, &next); err != nil {
		t.Fatalf("UpdateAfterExecution failed: %v", err)
	}
	got, _ = store.Get(ctx, "j1")
	if got.ConsecutiveFailures != 0 {
		t.Errorf("expected failures reset on success, got %d", got.ConsecutiveFailures)
	}
	if got.NextScheduledRun == nil || !got.NextScheduledRun.Equal(next) {
		t.Errorf("expected next run %v, got %v", next, got.NextScheduledRun)
	}

	if err := store.UpdateAfterExecution(ctx, "missing", true, nil); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestJobStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewJobStore()

	if err := store.Upsert(ctx, testJob("j1")); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := store.Delete(ctx, "j1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "j1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, "j1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound on double delete, got %v", err)
	}
}
