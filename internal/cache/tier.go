// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache implements the multi-tier read-through/write-through cache:
// an in-process memory tier bounded by a byte budget, a durable SQLite tier,
// and a caller-local session tier. Reads check tiers fastest-first and
// promote hits; writes cascade to every enabled tier; TTL expiry is lazy.
package cache

import "time"

// Entry is one cached value with its TTL and access bookkeeping. Size
// accounting is approximate: key plus payload bytes.
type Entry struct {
	Key         string
	Payload     []byte
	CreatedAt   time.Time
	TTL         time.Duration
	AccessCount int64
	LastAccess  time.Time
}

// Size returns the entry's approximate footprint in bytes.
func (e *Entry) Size() int64 {
	return int64(len(e.Key) + len(e.Payload))
}

// Expired reports whether the entry's TTL has elapsed at now.
func (e *Entry) Expired(now time.Time) bool {
	if e.TTL <= 0 {
		return false
	}
	return now.Sub(e.CreatedAt) >= e.TTL
}

// Tier is one cache layer. Implementations are safe for concurrent use.
type Tier interface {
	Name() string

	// Get returns the payload for key, or false on miss. A read past the
	// entry's TTL counts as a miss and removes the entry.
	Get(key string) ([]byte, bool)

	// Set stores payload under key with the given TTL.
	Set(key string, payload []byte, ttl time.Duration) error

	// Invalidate removes key if present.
	Invalidate(key string) error

	// Len returns the number of live entries.
	Len() int
}
