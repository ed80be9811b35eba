package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/storage"
)

func testExecution(id, jobID string, startedAt time.Time) *domain.JobExecution {
	return &domain.JobExecution{
		ID:        id,
		JobID:     jobID,
		Status:    domain.JobStatusRunning,
		StartedAt: startedAt,
	}
}

func TestExecutionStore_InsertUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewExecutionStore()
	now := time.Now().UTC()

	e := testExecution("e1", "j1", now)
	if err := store.Insert(ctx, e); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, e); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	done := now.Add(3 * time.Second)
	dur := 3.0
	e.Status = domain.JobStatusSuccess
	e.CompletedAt = &done
	e.DurationSeconds = &dur
	e.Logs = []string{"started", "fetched 10 records", "done"}
	if err := store.Update(ctx, e); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := store.ListByJob(ctx, "j1", 10)
	if err != nil {
		t.Fatalf("ListByJob failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 execution, got %d", len(got))
	}
	if got[0].Status != domain.JobStatusSuccess {
		t.Errorf("expected success status, got %q", got[0].Status)
	}
	if len(got[0].Logs) != 3 {
		t.Errorf("expected 3 log lines, got %d", len(got[0].Logs))
	}

	if err := store.Update(ctx, testExecution("missing", "j1", now)); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestExecutionStore_ListRecentOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	store := NewExecutionStore()
	base := time.Now().UTC()

	for i, id := range []string{"e1", "e2", "e3"} {
		e := testExecution(id, "j1", base.Add(time.Duration(i)*time.Minute))
		if err := store.Insert(ctx, e); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	recent, err := store.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 executions, got %d", len(recent))
	}
	if recent[0].ID != "e3" || recent[1].ID != "e2" {
		t.Errorf("expected started_at DESC order, got %q %q", recent[0].ID, recent[1].ID)
	}
}

func TestExecutionStore_CopySemantics(t *testing.T) {
	ctx := context.Background()
	store := NewExecutionStore()

	e := testExecution("e1", "j1", time.Now().UTC())
	e.Logs = []string{"line 1"}
	if err := store.Insert(ctx, e); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Mutating the caller's slice must not leak into the store.
	e.Logs[0] = "mutated"

	got, _ := store.ListByJob(ctx, "j1", 1)
	if got[0].Logs[0] != "line 1" {
		t.Errorf("store leaked caller mutation: %q", got[0].Logs[0])
	}
}
