// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"sync"
	"time"
)

// SessionTier is the caller-local tier: a small entry-bounded map that keeps
// the most recent answers close to the caller. When full it drops the
// oldest-written entry.
type SessionTier struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[string]*Entry
	now        func() time.Time
}

// NewSessionTier returns a session tier bounded to maxEntries entries.
func NewSessionTier(maxEntries int) *SessionTier {
	if maxEntries <= 0 {
		maxEntries = 128
	}
	return &SessionTier{
		maxEntries: maxEntries,
		entries:    make(map[string]*Entry),
		now:        time.Now,
	}
}

func (s *SessionTier) Name() string { return "session" }

func (s *SessionTier) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	now := s.now()
	if e.Expired(now) {
		delete(s.entries, key)
		return nil, false
	}
	e.AccessCount++
	e.LastAccess = now
	return e.Payload, true
}

func (s *SessionTier) Set(key string, payload []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()

	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.maxEntries {
		s.dropOldestLocked()
	}
	s.entries[key] = &Entry{
		Key:        key,
		Payload:    payload,
		CreatedAt:  now,
		TTL:        ttl,
		LastAccess: now,
	}
	return nil
}

func (s *SessionTier) Invalidate(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *SessionTier) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *SessionTier) dropOldestLocked() {
	var oldest *Entry
	for _, e := range s.entries {
		if oldest == nil || e.CreatedAt.Before(oldest.CreatedAt) {
			oldest = e
		}
	}
	if oldest != nil {
		delete(s.entries, oldest.Key)
	}
}
