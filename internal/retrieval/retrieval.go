// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/assistant-core/internal/breaker"
	"github.com/pdiddy/assistant-core/internal/provider"
	"github.com/pdiddy/assistant-core/pkg/types"
)

// failurePenalty is subtracted from blended confidence per recent failure.
const failurePenalty = 0.05

// managedSource pairs a Source with its configuration, breaker, and health
// bookkeeping. The bookkeeping is shared across requests, so it is
// mutex-guarded.
type managedSource struct {
	src     Source
	cfg     types.SourceConfig
	breaker *breaker.Breaker

	mu          sync.Mutex
	available   bool
	lastChecked time.Time
}

func (m *managedSource) markResult(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = ok
	m.lastChecked = time.Now()
}

// Provider is the data-retrieval capability: it tries sources in priority
// order, skipping open circuits, and always produces an answer.
type Provider struct {
	sources      []*managedSource
	queryTimeout time.Duration
	log          zerolog.Logger
}

// defaultSources returns the built-in source set used when none are
// configured.
func defaultSources() []types.SourceConfig {
	return []types.SourceConfig{
		{ID: "internal-corpus", Name: "Internal Research Corpus", Priority: 1, BaseTrust: 0.9},
		{ID: "archive-mirror", Name: "Open Archive Mirror", Priority: 2, BaseTrust: 0.8},
	}
}

// New builds the provider from configuration. Sources with an Endpoint are
// HTTP-backed; the rest use the built-in static corpus. secrets supplies
// API keys named by each source's APIKeySecret.
func New(cfg types.RetrievalConfig, secrets map[string]string, log zerolog.Logger) *Provider {
	sourceCfgs := cfg.Sources
	if len(sourceCfgs) == 0 {
		sourceCfgs = defaultSources()
	}

	var sources []Source
	for _, sc := range sourceCfgs {
		if sc.Endpoint != "" {
			sources = append(sources, NewHTTPSource(sc.ID, sc.Endpoint, secrets[sc.APIKeySecret], cfg.HTTPConfig))
		} else {
			sources = append(sources, NewStaticSource(sc.ID))
		}
	}
	return NewWithSources(cfg, sourceCfgs, sources, log)
}

// NewWithSources wires explicit Source implementations to their configs,
// matched by position. It is the seam tests and custom backends use.
func NewWithSources(cfg types.RetrievalConfig, sourceCfgs []types.SourceConfig, sources []Source, log zerolog.Logger) *Provider {
	threshold := cfg.BreakerThreshold
	if threshold <= 0 {
		threshold = 3
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = 60 * time.Second
	}
	queryTimeout := cfg.QueryTimeout
	if queryTimeout <= 0 {
		queryTimeout = 10 * time.Second
	}

	p := &Provider{
		queryTimeout: queryTimeout,
		log:          log.With().Str("component", "retrieval").Logger(),
	}
	for i, src := range sources {
		sc := sourceCfgs[i]
		if sc.BaseTrust <= 0 {
			sc.BaseTrust = 0.8
		}
		p.sources = append(p.sources, &managedSource{
			src:       src,
			cfg:       sc,
			breaker:   breaker.New(threshold, cooldown),
			available: true,
		})
	}
	sort.SliceStable(p.sources, func(i, j int) bool {
		return p.sources[i].cfg.Priority < p.sources[j].cfg.Priority
	})
	return p
}

func (p *Provider) ID() string { return provider.IDRetrieval }

func (p *Provider) Capabilities() []string {
	return []string{provider.CapDataRetrieval}
}

func (p *Provider) CanHandle(rc *types.RequestContext) bool {
	return rc.Message != ""
}

func (p *Provider) Health() provider.Health {
	open := 0
	for _, m := range p.sources {
		if !m.breaker.Allow() {
			open++
		}
	}
	if open == len(p.sources) {
		return provider.Health{Healthy: false, Details: "all source circuits open"}
	}
	return provider.Health{Healthy: true, Details: fmt.Sprintf("%d/%d sources available", len(p.sources)-open, len(p.sources))}
}

// Process tries each source in priority order and returns the first clean
// answer with a blended confidence. When every source fails it falls back
// to a low-confidence canned answer instead of failing the step.
func (p *Provider) Process(ctx context.Context, rc *types.RequestContext) *types.ProviderResponse {
	start := time.Now()
	query := rc.Message
	if query == "" {
		return provider.Failure(p.ID(), start, "empty query")
	}

	for _, m := range p.sources {
		if !m.breaker.Allow() {
			p.log.Debug().Str("source", m.cfg.ID).Msg("skipping source, circuit open")
			continue
		}

		attemptStart := time.Now()
		// Failures recorded before this attempt feed the confidence penalty.
		priorFailures := m.breaker.Snapshot().Failures

		result, err := p.querySource(ctx, m, query)
		if err != nil {
			m.breaker.RecordFailure()
			m.markResult(false)
			p.log.Warn().Str("source", m.cfg.ID).Err(err).Msg("source query failed")
			continue
		}

		m.breaker.Reset()
		m.markResult(true)

		result.Confidence = blendConfidence(m.cfg.BaseTrust, result.Confidence, priorFailures)
		result.ResponseTimeMs = time.Since(attemptStart).Milliseconds()
		result.CostUSD = m.cfg.CostPerQuery

		return &types.ProviderResponse{
			Success: true,
			Data:    result,
			Metadata: types.ProviderMetadata{
				ProviderID:       p.ID(),
				ProcessingTimeMs: time.Since(start).Milliseconds(),
				Confidence:       result.Confidence,
				Sources:          []string{m.cfg.ID},
			},
		}
	}

	p.log.Warn().Str("query", query).Msg("all sources failed, serving emergency answer")
	result := emergencyAnswer(query)
	return &types.ProviderResponse{
		Success: true,
		Data:    result,
		Metadata: types.ProviderMetadata{
			ProviderID:       p.ID(),
			ProcessingTimeMs: time.Since(start).Milliseconds(),
			Confidence:       result.Confidence,
			Sources:          []string{result.Source},
		},
	}
}

// querySource time-boxes one source attempt. A slow source loses the race
// and keeps running to completion in the background; its result is
// discarded.
func (p *Provider) querySource(ctx context.Context, m *managedSource, query string) (*types.RetrievalResult, error) {
	qctx, cancel := context.WithTimeout(ctx, p.queryTimeout)
	defer cancel()

	type outcome struct {
		result *types.RetrievalResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := m.src.Query(qctx, query)
		done <- outcome{result: result, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return nil, o.err
		}
		if o.result == nil || o.result.Content == "" {
			return nil, fmt.Errorf("source %s returned no content", m.cfg.ID)
		}
		return o.result, nil
	case <-qctx.Done():
		return nil, fmt.Errorf("source %s timed out after %s", m.cfg.ID, p.queryTimeout)
	}
}

// blendConfidence averages the source's base trust with the payload's
// self-reported confidence and applies the recent-failure penalty, clamped
// to [0.1, 1.0].
func blendConfidence(baseTrust, reported float64, recentFailures int) float64 {
	if reported <= 0 {
		reported = baseTrust
	}
	conf := (baseTrust+reported)/2 - failurePenalty*float64(recentFailures)
	return clamp(conf, 0.1, 1.0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SourceStatuses reports the observable state of every source in priority
// order.
func (p *Provider) SourceStatuses() []types.SourceStatus {
	out := make([]types.SourceStatus, 0, len(p.sources))
	for _, m := range p.sources {
		snap := m.breaker.Snapshot()
		m.mu.Lock()
		status := types.SourceStatus{
			ID:           m.cfg.ID,
			Name:         m.cfg.Name,
			Priority:     m.cfg.Priority,
			Available:    m.available && !snap.Open,
			FailureCount: snap.Failures,
			CircuitOpen:  snap.Open,
			LastChecked:  m.lastChecked,
			CostPerQuery: m.cfg.CostPerQuery,
		}
		m.mu.Unlock()
		out = append(out, status)
	}
	return out
}

// emergencyAnswer selects a canned low-confidence answer by keyword bucket
// when no source can respond.
func emergencyAnswer(query string) *types.RetrievalResult {
	q := strings.ToLower(query)
	content := "Research sources are temporarily unavailable. For reliable information " +
		"on this topic, consult peer-reviewed sources such as PubMed or the Cochrane Library."
	switch {
	case strings.Contains(q, "clinical trial") || strings.Contains(q, "trial"):
		content = "Research sources are temporarily unavailable. For clinical trial " +
			"information, ClinicalTrials.gov and peer-reviewed trial registries are the " +
			"authoritative starting points."
	case strings.Contains(q, "drug") || strings.Contains(q, "medication"):
		content = "Research sources are temporarily unavailable. Drug research questions " +
			"are best answered from peer-reviewed pharmacology literature and official " +
			"prescribing information."
	case strings.Contains(q, "treatment") || strings.Contains(q, "therapy"):
		content = "Research sources are temporarily unavailable. Treatment evidence is " +
			"best assessed through systematic reviews and clinical practice guidelines."
	}
	return &types.RetrievalResult{
		Source:     "emergency-fallback",
		Content:    content,
		Confidence: 0.4,
	}
}
