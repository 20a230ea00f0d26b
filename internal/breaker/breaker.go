// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package breaker implements the per-provider and per-source circuit
// breaker: a failure counter that disables invocation once it crosses a
// threshold and auto-resets after a cooldown window.
package breaker

import (
	"sync"
	"time"
)

// State is a point-in-time snapshot of one breaker.
type State struct {
	Failures    int
	LastFailure time.Time
	Open        bool
}

// Breaker tracks consecutive failures for one provider or source id.
// All methods are safe for concurrent use; breaker state is shared across
// requests, so it takes a mutex rather than relying on cooperative
// scheduling.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	failures  int
	last      time.Time
	open      bool

	// now is swapped in tests to step through the cooldown window.
	now func() time.Time
}

// New returns a closed breaker that opens after threshold failures within
// the cooldown window.
func New(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 60 * time.Second
	}
	return &Breaker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

// Allow reports whether an invocation may proceed. Reading an open breaker
// after the cooldown has elapsed closes it and zeroes the counter.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeExpire()
	return !b.open
}

// RecordFailure counts one failure, opening the breaker at the threshold.
// Failures older than the cooldown window have already been discarded by
// the expiry check, so the count only reflects the uncooled window.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeExpire()
	b.failures++
	b.last = b.now()
	if b.failures >= b.threshold {
		b.open = true
	}
}

// Reset closes the breaker and zeroes its counter, used after a success.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.open = false
	b.last = time.Time{}
}

// Snapshot returns the current state after applying cooldown expiry.
func (b *Breaker) Snapshot() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeExpire()
	return State{Failures: b.failures, LastFailure: b.last, Open: b.open}
}

// maybeExpire closes and zeroes the breaker once the cooldown window has
// passed since the last failure. Callers must hold the mutex.
func (b *Breaker) maybeExpire() {
	if b.last.IsZero() {
		return
	}
	if b.now().Sub(b.last) >= b.cooldown {
		b.failures = 0
		b.open = false
		b.last = time.Time{}
	}
}

// Set holds one breaker per id, created on first use with shared settings.
type Set struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	breakers  map[string]*Breaker
}

// NewSet returns an empty breaker set.
func NewSet(threshold int, cooldown time.Duration) *Set {
	return &Set{
		threshold: threshold,
		cooldown:  cooldown,
		breakers:  make(map[string]*Breaker),
	}
}

// Get returns the breaker for id, creating it if needed.
func (s *Set) Get(id string) *Breaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.breakers[id]
	if !ok {
		b = New(s.threshold, s.cooldown)
		s.breakers[id] = b
	}
	return b
}
