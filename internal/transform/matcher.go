package transform

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"disclosure-lab/internal/domain"
	"disclosure-lab/internal/storage"
)

// Match is the outcome of a politician lookup. ID is nil when no existing
// politician matched; the publisher then creates one with the returned role.
type Match struct {
	ID    *int64
	Role  string
	Party string
	State string
}

// PoliticianMatcher resolves disclosure names against known politicians.
// The full politicians table is loaded once on first use and indexed by
// lower(first)_lower(last).
type PoliticianMatcher struct {
	store storage.PoliticianStore

	mu     sync.Mutex
	loaded bool
	index  map[string]*domain.Politician
}

// NewPoliticianMatcher creates a matcher over the given store.
func NewPoliticianMatcher(store storage.PoliticianStore) *PoliticianMatcher {
	return &PoliticianMatcher{store: store}
}

// Match looks up (first, last). On an exact key hit the stored identity is
// reused. Otherwise one fuzzy pass runs: any cached key containing the
// lower-cased last name is a hit. With no hit at all the role is inferred
// from the source and ID stays nil.
func (m *PoliticianMatcher) Match(ctx context.Context, first, last, source string) (Match, error) {
	if err := m.ensureLoaded(ctx); err != nil {
		return Match{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.index[matchKey(first, last)]; ok {
		return matchOf(p), nil
	}

	if needle := strings.ToLower(strings.TrimSpace(last)); needle != "" {
		for key, p := range m.index {
			if strings.Contains(key, needle) {
				return matchOf(p), nil
			}
		}
	}

	return Match{Role: domain.SourceType(source).InferredRole()}, nil
}

// Invalidate drops the cached index so newly created politicians become
// visible to subsequent runs.
func (m *PoliticianMatcher) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = false
	m.index = nil
}

// Add registers a politician in the live index without a reload.
// The publisher calls this after creating a row mid-run.
func (m *PoliticianMatcher) Add(p *domain.Politician) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index == nil {
		m.index = make(map[string]*domain.Politician)
	}
	m.index[matchKey(p.FirstName, p.LastName)] = p
}

func (m *PoliticianMatcher) ensureLoaded(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded {
		return nil
	}

	politicians, err := m.store.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load politician index: %w", err)
	}

	m.index = make(map[string]*domain.Politician, len(politicians))
	for _, p := range politicians {
		m.index[matchKey(p.FirstName, p.LastName)] = p
	}
	m.loaded = true
	return nil
}

func matchKey(first, last string) string {
	return strings.ToLower(strings.TrimSpace(first)) + "_" + strings.ToLower(strings.TrimSpace(last))
}

func matchOf(p *domain.Politician) Match {
	id := p.ID
	return Match{
		ID:    &id,
		Role:  p.Role,
		Party: p.Party,
		State: p.StateOrCountry,
	}
}
