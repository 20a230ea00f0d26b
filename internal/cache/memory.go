// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"sync"
	"time"
)

// MemoryTier is the in-process tier, bounded by a configured byte budget.
// When a set pushes the tier past its budget it evicts the entry with the
// lowest access count, breaking ties by oldest last access.
type MemoryTier struct {
	mu        sync.Mutex
	budget    int64
	bytes     int64
	entries   map[string]*Entry
	evictions int64

	// now is swapped in tests to exercise TTL expiry without sleeping.
	now func() time.Time
}

// NewMemoryTier returns an empty memory tier with the given byte budget.
func NewMemoryTier(budgetBytes int64) *MemoryTier {
	if budgetBytes <= 0 {
		budgetBytes = 4 << 20
	}
	return &MemoryTier{
		budget:  budgetBytes,
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
}

func (m *MemoryTier) Name() string { return "memory" }

func (m *MemoryTier) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	now := m.now()
	if e.Expired(now) {
		m.removeLocked(key)
		return nil, false
	}
	e.AccessCount++
	e.LastAccess = now
	return e.Payload, true
}

func (m *MemoryTier) Set(key string, payload []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()

	if _, exists := m.entries[key]; exists {
		m.removeLocked(key)
	}
	e := &Entry{
		Key:        key,
		Payload:    payload,
		CreatedAt:  now,
		TTL:        ttl,
		LastAccess: now,
	}
	m.entries[key] = e
	m.bytes += e.Size()

	// Evict until back under budget. The freshly-set entry is spared so a
	// single oversized set does not immediately cancel itself; it goes too
	// if it alone exceeds the budget.
	for m.bytes > m.budget && len(m.entries) > 1 {
		if victim := m.victimLocked(key); victim != "" {
			m.removeLocked(victim)
			m.evictions++
		} else {
			break
		}
	}
	if m.bytes > m.budget && len(m.entries) == 1 {
		m.removeLocked(key)
		m.evictions++
	}
	return nil
}

func (m *MemoryTier) Invalidate(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(key)
	return nil
}

func (m *MemoryTier) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Evictions returns how many entries the budget has pushed out.
func (m *MemoryTier) Evictions() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evictions
}

// victimLocked picks the eviction candidate: lowest access count, ties
// broken by oldest last access. The spare key is never selected.
func (m *MemoryTier) victimLocked(spare string) string {
	var victim *Entry
	for key, e := range m.entries {
		if key == spare {
			continue
		}
		if victim == nil {
			victim = e
			continue
		}
		if e.AccessCount < victim.AccessCount ||
			(e.AccessCount == victim.AccessCount && e.LastAccess.Before(victim.LastAccess)) {
			victim = e
		}
	}
	if victim == nil {
		return ""
	}
	return victim.Key
}

func (m *MemoryTier) removeLocked(key string) {
	if e, ok := m.entries[key]; ok {
		m.bytes -= e.Size()
		delete(m.entries, key)
	}
}
