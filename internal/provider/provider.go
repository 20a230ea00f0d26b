// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package provider defines the capability-provider contract every pipeline
// component implements, and the registry the orchestrator resolves them from.
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/pdiddy/assistant-core/pkg/types"
)

// Stable provider ids used in execution plans.
const (
	IDCache            = "cache"
	IDRetrieval        = "data-retrieval"
	IDValidation       = "content-validation"
	IDErrorTranslation = "error-translation"
	IDOrchestrator     = "orchestrator"
)

// Capability names providers declare for registry discovery.
const (
	CapCacheRetrieval    = "cache-retrieval"
	CapDataRetrieval     = "data-retrieval"
	CapContentValidation = "content-validation"
	CapErrorTranslation  = "error-translation"
	CapOrchestration     = "orchestration"
)

// Health is a provider's self-reported liveness.
type Health struct {
	Healthy bool   `json:"healthy"`
	Details string `json:"details,omitempty"`
}

// Provider is the unit every capability implements. Process always
// completes: failures surface as Success=false with a non-empty Error,
// never as a panic past the provider boundary.
type Provider interface {
	// ID returns the stable identifier plans refer to.
	ID() string

	// Capabilities lists the capability names this provider serves.
	Capabilities() []string

	// CanHandle is a coarse applicability check for the given context.
	CanHandle(rc *types.RequestContext) bool

	// Process performs the unit of work.
	Process(ctx context.Context, rc *types.RequestContext) *types.ProviderResponse

	// Health reports whether the provider is fit to be invoked.
	Health() Health
}

// Failure builds a failed ProviderResponse for id with elapsed timing.
func Failure(id string, start time.Time, format string, args ...any) *types.ProviderResponse {
	return &types.ProviderResponse{
		Success: false,
		Error:   fmt.Sprintf(format, args...),
		Metadata: types.ProviderMetadata{
			ProviderID:       id,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		},
	}
}
