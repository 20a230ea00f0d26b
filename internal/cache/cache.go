// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/assistant-core/internal/provider"
	"github.com/pdiddy/assistant-core/pkg/types"
)

// Stats are the cache's running observability counters.
type Stats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Sets      int64   `json:"sets"`
	Evictions int64   `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`
}

// PrefetchFunc produces a speculative payload for a predicted key, or false
// when it has nothing to offer. The default is nil: prediction enqueues
// nothing, a safe no-op.
type PrefetchFunc func(key string) (types.CachedAnswer, bool)

// Cache composes the enabled tiers. Reads check memory, then durable, then
// session, promoting hits into the faster tiers they missed; writes and
// invalidations cascade to every enabled tier.
type Cache struct {
	memory  *MemoryTier
	durable *SQLiteTier
	session *SessionTier

	defaultTTL time.Duration
	prefetch   PrefetchFunc
	log        zerolog.Logger

	mu     sync.Mutex
	hits   int64
	misses int64
	sets   int64
}

// New builds the cache from configuration. The durable tier is only opened
// when cfg.DurablePath is set; without it the cache runs on memory and
// session alone.
func New(cfg types.CacheConfig, log zerolog.Logger) (*Cache, error) {
	if cfg.MemoryBudgetBytes <= 0 {
		cfg.MemoryBudgetBytes = 4 << 20
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 15 * time.Minute
	}

	c := &Cache{
		memory:     NewMemoryTier(cfg.MemoryBudgetBytes),
		defaultTTL: cfg.DefaultTTL,
		log:        log.With().Str("component", "cache").Logger(),
	}
	if cfg.DurablePath != "" {
		durable, err := NewSQLiteTier(cfg.DurablePath)
		if err != nil {
			return nil, fmt.Errorf("opening durable tier: %w", err)
		}
		c.durable = durable
	}
	if cfg.SessionEnabled {
		c.session = NewSessionTier(cfg.SessionMaxEntries)
	}
	return c, nil
}

// SetPrefetchFunc installs the speculative payload generator.
func (c *Cache) SetPrefetchFunc(fn PrefetchFunc) {
	c.prefetch = fn
}

// Close releases the durable tier, if open.
func (c *Cache) Close() error {
	if c.durable != nil {
		return c.durable.Close()
	}
	return nil
}

// tiers returns the enabled tiers fastest-first.
func (c *Cache) tiers() []Tier {
	out := []Tier{c.memory}
	if c.durable != nil {
		out = append(out, c.durable)
	}
	if c.session != nil {
		out = append(out, c.session)
	}
	return out
}

// Get returns the payload for key from the fastest tier holding it,
// promoting the value into the tiers it missed.
func (c *Cache) Get(key string) ([]byte, bool) {
	tiers := c.tiers()
	for i, tier := range tiers {
		payload, ok := tier.Get(key)
		if !ok {
			continue
		}
		for j := 0; j < i; j++ {
			tiers[j].Set(key, payload, c.defaultTTL)
		}
		c.count(true)
		return payload, true
	}
	c.count(false)
	return nil, false
}

// Set writes payload to every enabled tier. A non-positive ttl uses the
// configured default.
func (c *Cache) Set(key string, payload []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	for _, tier := range c.tiers() {
		if err := tier.Set(key, payload, ttl); err != nil {
			c.log.Warn().Str("tier", tier.Name()).Err(err).Msg("cache write failed")
		}
	}
	c.mu.Lock()
	c.sets++
	c.mu.Unlock()
}

// Invalidate removes key from every enabled tier.
func (c *Cache) Invalidate(key string) {
	for _, tier := range c.tiers() {
		if err := tier.Invalidate(key); err != nil {
			c.log.Warn().Str("tier", tier.Name()).Err(err).Msg("cache invalidate failed")
		}
	}
}

// GetAnswer fetches and decodes a cached answer.
func (c *Cache) GetAnswer(key string) (*types.CachedAnswer, bool) {
	payload, ok := c.Get(key)
	if !ok {
		return nil, false
	}
	var ans types.CachedAnswer
	if err := json.Unmarshal(payload, &ans); err != nil {
		c.log.Warn().Str("key", key).Err(err).Msg("corrupt cache payload, dropping")
		c.Invalidate(key)
		return nil, false
	}
	return &ans, true
}

// SetAnswer encodes and stores an answer under key.
func (c *Cache) SetAnswer(key string, ans types.CachedAnswer, ttl time.Duration) {
	payload, err := json.Marshal(ans)
	if err != nil {
		c.log.Warn().Str("key", key).Err(err).Msg("cache encode failed")
		return
	}
	c.Set(key, payload, ttl)
}

// Prefetch derives speculative keys for likely follow-up requests and, when
// a generator is installed, stores its payloads ahead of demand.
func (c *Cache) Prefetch(rc *types.RequestContext) {
	if c.prefetch == nil {
		return
	}
	for _, key := range speculativeKeys(rc) {
		ans, ok := c.prefetch(key)
		if !ok {
			continue
		}
		c.SetAnswer(key, ans, c.defaultTTL)
	}
}

// speculativeKeys predicts cache keys worth warming: related items for the
// referenced paper and the likely follow-up to the latest message.
func speculativeKeys(rc *types.RequestContext) []string {
	var keys []string
	if rc.Paper != nil && rc.Paper.Title != "" {
		keys = append(keys, "related:"+hashFacet(rc.Paper.Title))
	}
	if msg := rc.LastUserMessage(); msg != "" {
		keys = append(keys, "followup:"+hashFacet(msg))
	}
	return keys
}

// Stats returns a snapshot of the running counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Sets:      c.sets,
		Evictions: c.memory.Evictions(),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

func (c *Cache) count(hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}

// CacheProvider adapts the cache to the capability-provider contract: a
// Process call is a lookup by the request's derived key, and a miss is a
// clean failure the orchestrator moves past.
type CacheProvider struct {
	cache *Cache
}

// NewProvider wraps c in the provider contract.
func NewProvider(c *Cache) *CacheProvider {
	return &CacheProvider{cache: c}
}

func (p *CacheProvider) ID() string { return provider.IDCache }

func (p *CacheProvider) Capabilities() []string {
	return []string{provider.CapCacheRetrieval}
}

func (p *CacheProvider) CanHandle(rc *types.RequestContext) bool {
	return KeyFromContext(rc) != ""
}

func (p *CacheProvider) Health() provider.Health {
	if p.cache.durable != nil {
		if err := p.cache.durable.Ping(); err != nil {
			return provider.Health{Healthy: false, Details: fmt.Sprintf("durable tier unreachable: %v", err)}
		}
	}
	return provider.Health{Healthy: true}
}

func (p *CacheProvider) Process(_ context.Context, rc *types.RequestContext) *types.ProviderResponse {
	start := time.Now()
	key := KeyFromContext(rc)
	if key == "" {
		return provider.Failure(p.ID(), start, "no cacheable facets in request")
	}
	ans, ok := p.cache.GetAnswer(key)
	if !ok {
		return provider.Failure(p.ID(), start, "cache miss for key %s", key)
	}
	return &types.ProviderResponse{
		Success: true,
		Data:    ans,
		Metadata: types.ProviderMetadata{
			ProviderID:       p.ID(),
			ProcessingTimeMs: time.Since(start).Milliseconds(),
			Confidence:       ans.Confidence,
			Sources:          ans.Sources,
		},
	}
}
