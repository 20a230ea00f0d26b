// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds providers by id and indexes them by declared capability so
// callers can discover providers without hard-coding ids. Register and
// Unregister update both indexes under one lock so readers never observe a
// half-applied change.
type Registry struct {
	mu           sync.RWMutex
	byID         map[string]Provider
	byCapability map[string][]Provider
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:         make(map[string]Provider),
		byCapability: make(map[string][]Provider),
	}
}

// Register adds p under its id and each declared capability. Registering an
// id twice is an error; unregister first.
func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := p.ID()
	if _, exists := r.byID[id]; exists {
		return fmt.Errorf("provider %q already registered", id)
	}
	r.byID[id] = p
	for _, cap := range p.Capabilities() {
		r.byCapability[cap] = append(r.byCapability[cap], p)
	}
	return nil
}

// Unregister removes the provider with the given id from both indexes.
// Removing an unknown id is a no-op.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	for _, cap := range p.Capabilities() {
		entries := r.byCapability[cap]
		for i, candidate := range entries {
			if candidate.ID() == id {
				r.byCapability[cap] = append(entries[:i], entries[i+1:]...)
				break
			}
		}
		if len(r.byCapability[cap]) == 0 {
			delete(r.byCapability, cap)
		}
	}
}

// Get returns the provider registered under id.
func (r *Registry) Get(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	return p, ok
}

// ByCapability returns all providers declaring the capability, in
// registration order.
func (r *Registry) ByCapability(cap string) []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := r.byCapability[cap]
	out := make([]Provider, len(entries))
	copy(out, entries)
	return out
}

// IDs returns the registered provider ids, sorted for stable output.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HealthReport runs every provider's health check and returns the results
// keyed by id.
func (r *Registry) HealthReport() map[string]Health {
	r.mu.RLock()
	providers := make([]Provider, 0, len(r.byID))
	for _, p := range r.byID {
		providers = append(providers, p)
	}
	r.mu.RUnlock()

	report := make(map[string]Health, len(providers))
	for _, p := range providers {
		report[p.ID()] = p.Health()
	}
	return report
}
