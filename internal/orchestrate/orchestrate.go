// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package orchestrate implements the execution engine: it classifies each
// request, builds a plan, and runs the plan's providers in order with
// circuit-breaker gating and per-step timeout races. The first clean
// success wins; exhaustion falls through to the fallback chain.
package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/assistant-core/internal/breaker"
	"github.com/pdiddy/assistant-core/internal/provider"
	"github.com/pdiddy/assistant-core/pkg/types"
)

// defaultConfidence applies when a winning provider does not report one.
const defaultConfidence = 0.8

// ErrPlanExhausted is returned when both the primary plan and the fallback
// chain produced no result. The facade must not let it escape.
var ErrPlanExhausted = errors.New("execution plan exhausted")

// Orchestrator drives plans against the registry. It is itself a provider
// and is registered last, once the registry holds everything it depends on.
type Orchestrator struct {
	registry    *provider.Registry
	breakers    *breaker.Set
	stepTimeout time.Duration
	log         zerolog.Logger
}

// New builds the orchestrator over an already-populated registry.
func New(registry *provider.Registry, cfg types.OrchestratorConfig, log zerolog.Logger) *Orchestrator {
	stepTimeout := cfg.StepTimeout
	if stepTimeout <= 0 {
		stepTimeout = 30 * time.Second
	}
	threshold := cfg.BreakerThreshold
	if threshold <= 0 {
		threshold = 5
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = 60 * time.Second
	}
	return &Orchestrator{
		registry:    registry,
		breakers:    breaker.NewSet(threshold, cooldown),
		stepTimeout: stepTimeout,
		log:         log.With().Str("component", "orchestrator").Logger(),
	}
}

func (o *Orchestrator) ID() string { return provider.IDOrchestrator }

func (o *Orchestrator) Capabilities() []string {
	return []string{provider.CapOrchestration}
}

func (o *Orchestrator) CanHandle(_ *types.RequestContext) bool { return true }

func (o *Orchestrator) Health() provider.Health {
	return provider.Health{Healthy: true}
}

// Process satisfies the provider contract by wrapping Execute's error into
// a failed response.
func (o *Orchestrator) Process(ctx context.Context, rc *types.RequestContext) *types.ProviderResponse {
	start := time.Now()
	resp, err := o.Execute(ctx, rc)
	if err != nil {
		return provider.Failure(o.ID(), start, "%v", err)
	}
	return resp
}

// Execute classifies the request, builds its plan, and runs it. Exactly one
// outcome occurs: a response with err nil, or a nil response with the last
// observed error.
func (o *Orchestrator) Execute(ctx context.Context, rc *types.RequestContext) (*types.ProviderResponse, error) {
	category := Classify(rc)
	plan := BuildPlan(category)
	o.log.Debug().
		Str("request_id", rc.RequestID).
		Str("category", string(category)).
		Strs("plan", plan.ProviderIDs).
		Msg("plan built")

	if resp, lastErr := o.runChain(ctx, rc, plan.ProviderIDs); resp != nil {
		return resp, nil
	} else if lastErr != "" {
		rc.Metadata[types.MetaLastError] = lastErr
	}

	// Primary exhausted: run the fallback chain with the context tagged
	// for diagnostics.
	rc.Metadata[types.MetaFallbackMode] = true
	o.log.Warn().Str("request_id", rc.RequestID).Msg("primary plan exhausted, entering fallback chain")

	if resp, lastErr := o.runChain(ctx, rc, plan.FallbackChain); resp != nil {
		return resp, nil
	} else if lastErr != "" {
		rc.Metadata[types.MetaLastError] = lastErr
	}

	lastErr, _ := rc.Metadata[types.MetaLastError].(string)
	if lastErr == "" {
		return nil, ErrPlanExhausted
	}
	return nil, fmt.Errorf("%w: %s", ErrPlanExhausted, lastErr)
}

// runChain executes providers in order and returns the first clean success,
// or (nil, lastError) when the chain is exhausted.
func (o *Orchestrator) runChain(ctx context.Context, rc *types.RequestContext, ids []string) (*types.ProviderResponse, string) {
	var lastErr string

	for _, id := range ids {
		p, ok := o.registry.Get(id)
		if !ok {
			lastErr = fmt.Sprintf("provider %s not registered", id)
			continue
		}

		b := o.breakers.Get(id)
		if !b.Allow() {
			o.log.Debug().Str("provider", id).Msg("skipping provider, circuit open")
			continue
		}
		if health := p.Health(); !health.Healthy {
			o.log.Debug().Str("provider", id).Str("details", health.Details).Msg("skipping unhealthy provider")
			continue
		}
		if !p.CanHandle(rc) {
			continue
		}

		resp := o.invoke(ctx, p, rc)
		if resp.Success {
			b.Reset()
			rc.Metadata[types.MetaPreviousAgent] = id
			rc.Metadata[types.MetaPreviousResult] = resp.Data
			if resp.Metadata.Confidence <= 0 {
				resp.Metadata.Confidence = defaultConfidence
			}
			return resp, ""
		}

		b.RecordFailure()
		lastErr = resp.Error
		o.log.Debug().Str("provider", id).Str("error", resp.Error).Msg("provider step failed")
	}

	return nil, lastErr
}

// invoke races the provider against the step timeout. A timer win counts
// as a provider failure; the abandoned invocation may still complete in
// the background and its result is discarded.
func (o *Orchestrator) invoke(ctx context.Context, p provider.Provider, rc *types.RequestContext) *types.ProviderResponse {
	start := time.Now()
	done := make(chan *types.ProviderResponse, 1)
	go func() {
		done <- safeProcess(p, ctx, rc, start)
	}()

	timer := time.NewTimer(o.stepTimeout)
	defer timer.Stop()

	select {
	case resp := <-done:
		if resp == nil || (!resp.Success && resp.Error == "") {
			// Providers must report failures with an error; normalize
			// anything that slipped through.
			return provider.Failure(p.ID(), start, "provider %s returned no result", p.ID())
		}
		return resp
	case <-timer.C:
		return provider.Failure(p.ID(), start, "provider %s timed out after %s", p.ID(), o.stepTimeout)
	case <-ctx.Done():
		return provider.Failure(p.ID(), start, "request cancelled: %v", ctx.Err())
	}
}

// safeProcess keeps a panicking provider from escaping its boundary.
func safeProcess(p provider.Provider, ctx context.Context, rc *types.RequestContext, start time.Time) (resp *types.ProviderResponse) {
	defer func() {
		if r := recover(); r != nil {
			resp = provider.Failure(p.ID(), start, "provider %s panicked: %v", p.ID(), r)
		}
	}()
	return p.Process(ctx, rc)
}

// BreakerState exposes a provider breaker snapshot for diagnostics.
func (o *Orchestrator) BreakerState(id string) breaker.State {
	return o.breakers.Get(id).Snapshot()
}
