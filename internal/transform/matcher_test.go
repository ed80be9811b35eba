package transform

import (
	"context"
	"testing"

	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/storage/memory"
)

func TestPoliticianMatcher_ExactHit(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPoliticianStore()

	p := &domain.Politician{
		FirstName:      "Nancy",
		LastName:       "Pelosi",
		Role:           domain.RoleRepresentative,
		Party:          "D",
		StateOrCountry: "CA",
	}
	id, err := store.Insert(ctx, p)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	p.ID = id

	m := NewPoliticianMatcher(store)
	got, err := m.Match(ctx, "nancy", "PELOSI", "us_house")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if got.ID == nil || *got.ID != p.ID {
		t.Fatalf("ID = %v, want %d", got.ID, p.ID)
	}
	if got.Role != domain.RoleRepresentative || got.State != "CA" {
		t.Fatalf("got %+v", got)
	}
}

func TestPoliticianMatcher_FuzzyLastName(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPoliticianStore()

	p := &domain.Politician{
		FirstName: "Sherrod",
		LastName:  "Brown",
		Role:      domain.RoleSenator,
	}
	id, err := store.Insert(ctx, p)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	p.ID = id

	m := NewPoliticianMatcher(store)
	// First name differs; the last-name pass still resolves it.
	got, err := m.Match(ctx, "S.", "Brown", "us_senate")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if got.ID == nil || *got.ID != p.ID {
		t.Fatalf("ID = %v, want %d", got.ID, p.ID)
	}
}

func TestPoliticianMatcher_MissInfersRoleFromSource(t *testing.T) {
	ctx := context.Background()
	m := NewPoliticianMatcher(memory.NewPoliticianStore())

	got, err := m.Match(ctx, "Jane", "Doe", "us_senate")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if got.ID != nil {
		t.Fatalf("ID = %v, want nil", got.ID)
	}
	if got.Role != domain.RoleSenator {
		t.Fatalf("Role = %q, want %q", got.Role, domain.RoleSenator)
	}
}

func TestPoliticianMatcher_AddVisibleWithoutReload(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPoliticianStore()
	m := NewPoliticianMatcher(store)

	if got, err := m.Match(ctx, "Ro", "Khanna", "us_house"); err != nil || got.ID != nil {
		t.Fatalf("got %+v, err %v; want miss", got, err)
	}

	id := int64(42)
	m.Add(&domain.Politician{ID: id, FirstName: "Ro", LastName: "Khanna", Role: domain.RoleRepresentative})

	got, err := m.Match(ctx, "Ro", "Khanna", "us_house")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if got.ID == nil || *got.ID != id {
		t.Fatalf("ID = %v, want %d", got.ID, id)
	}
}

func TestPoliticianMatcher_InvalidateReloads(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPoliticianStore()
	m := NewPoliticianMatcher(store)

	if got, _ := m.Match(ctx, "Jon", "Ossoff", "us_senate"); got.ID != nil {
		t.Fatalf("want miss before insert")
	}

	p := &domain.Politician{FirstName: "Jon", LastName: "Ossoff", Role: domain.RoleSenator}
	id, err := store.Insert(ctx, p)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	p.ID = id

	// Cache still holds the pre-insert snapshot.
	if got, _ := m.Match(ctx, "Jon", "Ossoff", "us_senate"); got.ID != nil {
		t.Fatalf("stale cache should miss")
	}

	m.Invalidate()
	got, err := m.Match(ctx, "Jon", "Ossoff", "us_senate")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if got.ID == nil || *got.ID != p.ID {
		t.Fatalf("ID = %v, want %d", got.ID, p.ID)
	}
}
