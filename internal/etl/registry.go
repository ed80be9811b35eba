package etl

import (
	"fmt"
	"sort"
	"sync"
)

// Registry tracks the ETL services available in the process, keyed by
// source id.
type Registry struct {
	mu       sync.RWMutex
	services map[string]Service
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{services: make(map[string]Service)}
}

// Register adds a service. Registering the same source id twice is an error.
func (r *Registry) Register(svc Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := svc.SourceID()
	if _, exists := r.services[id]; exists {
		return fmt.Errorf("etl service %q already registered", id)
	}
	r.services[id] = svc
	return nil
}

// Get returns the service for a source id.
func (r *Registry) Get(sourceID string) (Service, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[sourceID]
	return svc, ok
}

// SourceIDs returns the registered ids sorted.
func (r *Registry) SourceIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.services))
	for id := range r.services {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
