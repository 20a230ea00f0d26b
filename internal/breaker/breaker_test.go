// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package breaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock lets tests step through the cooldown window without sleeping.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int, cooldown time.Duration) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)}
	b := New(threshold, cooldown)
	b.now = clock.now
	return b, clock
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(5, time.Minute)

	for i := 0; i < 4; i++ {
		b.RecordFailure()
		assert.True(t, b.Allow(), "breaker should stay closed below threshold (failure %d)", i+1)
	}
	b.RecordFailure()
	assert.False(t, b.Allow(), "5th failure should open the breaker")
}

func TestBreakerCooldownResets(t *testing.T) {
	b, clock := newTestBreaker(3, time.Minute)

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	assert.False(t, b.Allow())

	clock.advance(61 * time.Second)
	assert.True(t, b.Allow(), "a read past the cooldown should close the breaker")

	snap := b.Snapshot()
	assert.Zero(t, snap.Failures, "cooldown expiry should zero the counter")
	assert.False(t, snap.Open)
}

func TestBreakerResetOnSuccess(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	b.Reset()

	snap := b.Snapshot()
	assert.Zero(t, snap.Failures)
	assert.True(t, b.Allow())
}

func TestBreakerStaleFailuresDiscarded(t *testing.T) {
	b, clock := newTestBreaker(3, time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	clock.advance(2 * time.Minute)

	// The old failures have cooled off; one new failure must not open it.
	b.RecordFailure()
	assert.True(t, b.Allow())
	assert.Equal(t, 1, b.Snapshot().Failures)
}

func TestSetCreatesPerID(t *testing.T) {
	s := NewSet(3, time.Minute)

	a := s.Get("arxiv")
	b := s.Get("pubmed")
	assert.NotSame(t, a, b)
	assert.Same(t, a, s.Get("arxiv"), "same id should return the same breaker")

	a.RecordFailure()
	assert.Equal(t, 1, a.Snapshot().Failures)
	assert.Zero(t, b.Snapshot().Failures, "breakers must be independent")
}
