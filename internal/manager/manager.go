// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package manager implements the facade in front of the pipeline: it admits
// requests, consults the cache, delegates to the orchestrator, shapes the
// outbound response, and absorbs every failure. Handle never returns an
// error; the caller always gets a usable Response.
package manager

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pdiddy/assistant-core/internal/cache"
	"github.com/pdiddy/assistant-core/internal/errtrans"
	"github.com/pdiddy/assistant-core/internal/orchestrate"
	"github.com/pdiddy/assistant-core/internal/provider"
	"github.com/pdiddy/assistant-core/internal/retrieval"
	"github.com/pdiddy/assistant-core/internal/validate"
	"github.com/pdiddy/assistant-core/pkg/types"
)

// apologyConfidence marks the absolute last-resort response.
const apologyConfidence = 0.2

const apologyContent = "I'm sorry, I wasn't able to process your request right now. " +
	"Please try again in a few moments."

// Stats are the manager's running request counters.
type Stats struct {
	Total        int64   `json:"total"`
	Successful   int64   `json:"successful"`
	Failed       int64   `json:"failed"`
	Rejected     int64   `json:"rejected"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// Manager is the composition root and facade. Build one with New, serve
// requests with Handle, and drain with Shutdown.
type Manager struct {
	cfg      types.ManagerConfig
	registry *provider.Registry
	orch     *orchestrate.Orchestrator

	cache      *cache.Cache
	retrieval  *retrieval.Provider
	validator  *validate.Validator
	translator *errtrans.Translator

	log zerolog.Logger

	inFlight atomic.Int64
	wg       sync.WaitGroup

	mu             sync.Mutex
	total          int64
	successful     int64
	failed         int64
	rejected       int64
	totalLatencyMs int64
}

// New wires every enabled provider into a fresh registry and builds the
// orchestrator over it. The orchestrator is registered last, once the
// registry holds everything it depends on. secrets supplies retrieval
// source API keys.
func New(cfg types.Config, secrets map[string]string, log zerolog.Logger) (*Manager, error) {
	m := &Manager{
		cfg:      cfg.Manager,
		registry: provider.NewRegistry(),
		log:      log.With().Str("component", "manager").Logger(),
	}
	if m.cfg.MaxConcurrent <= 0 {
		m.cfg.MaxConcurrent = 50
	}
	if m.cfg.ShutdownGrace <= 0 {
		m.cfg.ShutdownGrace = 10 * time.Second
	}

	if m.cfg.Providers.Cache {
		c, err := cache.New(cfg.Cache, log)
		if err != nil {
			return nil, err
		}
		m.cache = c
		if err := m.registry.Register(cache.NewProvider(c)); err != nil {
			return nil, err
		}
	}
	if m.cfg.Providers.Retrieval {
		m.retrieval = retrieval.New(cfg.Retrieval, secrets, log)
		if err := m.registry.Register(m.retrieval); err != nil {
			return nil, err
		}
	}
	if m.cfg.Providers.Validation {
		m.validator = validate.New(cfg.Validation, log)
		if err := m.registry.Register(validate.NewProvider(m.validator)); err != nil {
			return nil, err
		}
	}
	if m.cfg.Providers.ErrorTranslation {
		m.translator = errtrans.New(log)
		if err := m.registry.Register(errtrans.NewProvider(m.translator)); err != nil {
			return nil, err
		}
	}

	m.orch = orchestrate.New(m.registry, cfg.Orchestrator, log)
	if err := m.registry.Register(m.orch); err != nil {
		return nil, err
	}
	return m, nil
}

// Handle serves one request end to end. It never returns nil and never
// panics; every failure path degrades to a lower-confidence response.
func (m *Manager) Handle(ctx context.Context, req *types.Request) *types.Response {
	start := time.Now()

	// Admission: work past the cap is rejected immediately, never queued.
	if m.inFlight.Add(1) > int64(m.cfg.MaxConcurrent) {
		m.inFlight.Add(-1)
		m.recordRejected()
		return &types.Response{
			Content:    "The assistant is handling too many requests right now. Please try again shortly.",
			Confidence: apologyConfidence,
			Error:      "at capacity",
			Metadata:   types.ResponseMetadata{ProcessingTimeMs: time.Since(start).Milliseconds()},
		}
	}
	m.wg.Add(1)
	defer func() {
		m.inFlight.Add(-1)
		m.wg.Done()
	}()

	rc := &types.RequestContext{
		RequestID:      uuid.NewString(),
		SessionID:      req.SessionID,
		UserID:         req.UserID,
		Timestamp:      start,
		Message:        req.Message,
		Specialization: req.Specialization,
		Paper:          req.Paper,
		History:        req.History,
		Metadata:       make(map[string]any),
	}
	log := m.log.With().Str("request_id", rc.RequestID).Logger()

	// Read-through: a cached answer short-circuits the whole pipeline.
	var cacheKey string
	if m.cache != nil {
		cacheKey = cache.KeyFromContext(rc)
		if ans, ok := m.cache.GetAnswer(cacheKey); ok {
			log.Debug().Str("key", cacheKey).Msg("served from cache")
			resp := &types.Response{
				Content:    ans.Content,
				Confidence: ans.Confidence,
				Sources:    ans.Sources,
				Metadata: types.ResponseMetadata{
					ProvidersUsed:    []string{provider.IDCache},
					ProcessingTimeMs: time.Since(start).Milliseconds(),
					Cached:           true,
				},
			}
			m.recordOutcome(true, time.Since(start))
			return resp
		}
	}

	presp, err := m.orch.Execute(ctx, rc)
	if err != nil {
		log.Warn().Err(err).Msg("pipeline exhausted, building emergency response")
		resp := m.emergencyResponse(rc, err)
		resp.Metadata.ProcessingTimeMs = time.Since(start).Milliseconds()
		m.recordOutcome(false, time.Since(start))
		return resp
	}

	resp := m.shapeResponse(rc, presp)
	resp.Metadata.ProcessingTimeMs = time.Since(start).Milliseconds()

	// Winning fresh answers feed the cache for the next identical question.
	if m.cache != nil && cacheKey != "" && !resp.Metadata.Cached && resp.Content != "" {
		m.cache.SetAnswer(cacheKey, types.CachedAnswer{
			Content:    resp.Content,
			Confidence: resp.Confidence,
			Sources:    resp.Sources,
		}, 0)
	}

	m.recordOutcome(true, time.Since(start))
	return resp
}

// shapeResponse turns the winning provider response into the outbound shape,
// annotating fresh content with a post-hoc validation pass when the
// validator is enabled.
func (m *Manager) shapeResponse(rc *types.RequestContext, presp *types.ProviderResponse) *types.Response {
	resp := &types.Response{
		Confidence: presp.Metadata.Confidence,
		Sources:    dedup(presp.Metadata.Sources),
		Metadata: types.ResponseMetadata{
			ProvidersUsed: providersUsed(rc, presp),
		},
	}

	switch data := presp.Data.(type) {
	case *types.RetrievalResult:
		resp.Content = data.Content
		if len(resp.Sources) == 0 && data.Source != "" {
			resp.Sources = []string{data.Source}
		}
	case *types.CachedAnswer:
		resp.Content = data.Content
		if len(resp.Sources) == 0 {
			resp.Sources = dedup(data.Sources)
		}
		resp.Metadata.Cached = presp.Metadata.ProviderID == provider.IDCache
	case types.ValidationResult:
		// Validation won the chain: the content it judged is whatever the
		// pipeline carried; surface it with the validation verdict attached.
		resp.Content = contentFromMetadata(rc)
		resp.Metadata.Validated = true
		resp.Metadata.QualityScore = data.QualityScore
	case string:
		resp.Content = data
	}

	if resp.Content == "" {
		resp.Content = apologyContent
		if resp.Confidence > apologyConfidence {
			resp.Confidence = apologyConfidence
		}
	}

	if fallback, _ := rc.Metadata[types.MetaFallbackMode].(bool); fallback {
		resp.Metadata.ErrorRecovered = true
	}
	if presp.Metadata.ProviderID == provider.IDErrorTranslation {
		resp.Metadata.ErrorRecovered = true
	}

	// Fresh unvalidated content gets a post-hoc quality annotation. The
	// result is advisory: a poor score lowers confidence but the answer
	// still goes out.
	if m.validator != nil && !resp.Metadata.Validated && !resp.Metadata.Cached && resp.Content != "" {
		vr := m.validator.Validate(resp.Content)
		resp.Metadata.Validated = true
		resp.Metadata.QualityScore = vr.QualityScore
		if !vr.IsValid && resp.Confidence > vr.QualityScore {
			resp.Confidence = vr.QualityScore
		}
	}

	return resp
}

// emergencyResponse is the never-fail floor under the pipeline. With the
// translator enabled the last error is softened into topical guidance;
// without it a fixed apology goes out.
func (m *Manager) emergencyResponse(rc *types.RequestContext, err error) *types.Response {
	if m.translator != nil {
		translation := m.translator.Translate(err.Error())
		return &types.Response{
			Content:    m.translator.FallbackContent(err.Error(), rc.LastUserMessage()),
			Confidence: 0.3,
			Error:      translation.ErrorCategory,
			Metadata: types.ResponseMetadata{
				ProvidersUsed:  []string{provider.IDErrorTranslation},
				ErrorRecovered: true,
			},
		}
	}
	return &types.Response{
		Content:    apologyContent,
		Confidence: apologyConfidence,
		Error:      "request processing failed",
		Metadata:   types.ResponseMetadata{ErrorRecovered: true},
	}
}

// providersUsed reconstructs the chain trace from the context and the winner.
func providersUsed(rc *types.RequestContext, presp *types.ProviderResponse) []string {
	var used []string
	if prev, ok := rc.Metadata[types.MetaPreviousAgent].(string); ok && prev != "" && prev != presp.Metadata.ProviderID {
		used = append(used, prev)
	}
	if presp.Metadata.ProviderID != "" {
		used = append(used, presp.Metadata.ProviderID)
	}
	return used
}

// contentFromMetadata recovers carried content when the winner did not
// return any of its own.
func contentFromMetadata(rc *types.RequestContext) string {
	switch v := rc.Metadata[types.MetaPreviousResult].(type) {
	case string:
		return v
	case *types.RetrievalResult:
		return v.Content
	case *types.CachedAnswer:
		return v.Content
	}
	return ""
}

func dedup(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func (m *Manager) recordRejected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total++
	m.rejected++
}

func (m *Manager) recordOutcome(ok bool, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total++
	if ok {
		m.successful++
	} else {
		m.failed++
	}
	m.totalLatencyMs += latency.Milliseconds()
}

// Stats returns a snapshot of the running counters. Average latency covers
// completed requests only; rejections are too cheap to skew it.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Stats{
		Total:      m.total,
		Successful: m.successful,
		Failed:     m.failed,
		Rejected:   m.rejected,
	}
	if completed := m.successful + m.failed; completed > 0 {
		s.AvgLatencyMs = float64(m.totalLatencyMs) / float64(completed)
	}
	return s
}

// CacheStats reports cache counters, or zeroes when the cache is disabled.
func (m *Manager) CacheStats() cache.Stats {
	if m.cache == nil {
		return cache.Stats{}
	}
	return m.cache.Stats()
}

// InvalidateCache removes one cached key, a no-op when the cache is disabled.
func (m *Manager) InvalidateCache(key string) {
	if m.cache != nil {
		m.cache.Invalidate(key)
	}
}

// SourceStatuses reports retrieval source state; empty when retrieval is
// disabled.
func (m *Manager) SourceStatuses() []types.SourceStatus {
	if m.retrieval == nil {
		return nil
	}
	return m.retrieval.SourceStatuses()
}

// HealthReport surfaces every registered provider's health, keyed by ID.
func (m *Manager) HealthReport() map[string]provider.Health {
	return m.registry.HealthReport()
}

// Shutdown waits for in-flight requests to drain, bounded by the configured
// grace period and the caller's context, then releases the cache.
func (m *Manager) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(m.cfg.ShutdownGrace)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		m.log.Warn().Int64("in_flight", m.inFlight.Load()).Msg("shutdown grace elapsed with requests in flight")
	case <-ctx.Done():
	}

	if m.cache != nil {
		return m.cache.Close()
	}
	return nil
}
