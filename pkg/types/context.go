// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Metadata keys the orchestrator writes into a RequestContext between plan
// steps. They exist for the next provider in the chain; nothing persists them.
const (
	MetaPreviousAgent  = "previousAgent"
	MetaPreviousResult = "previousResult"
	MetaFallbackMode   = "fallbackMode"
	MetaLastError      = "lastError"
)

// RequestContext is the per-call bundle threaded through the pipeline.
// Created once per inbound call, mutated only by the orchestrator, and
// discarded when the call ends.
type RequestContext struct {
	RequestID      string
	SessionID      string
	UserID         string
	Timestamp      time.Time
	Message        string
	Specialization string
	Paper          *ResearchPaper
	History        []Message
	Metadata       map[string]any
}

// LastUserMessage returns the most recent user-role history entry, falling
// back to the request message itself.
func (rc *RequestContext) LastUserMessage() string {
	for i := len(rc.History) - 1; i >= 0; i-- {
		if rc.History[i].Role == "user" && rc.History[i].Content != "" {
			return rc.History[i].Content
		}
	}
	return rc.Message
}

// ProviderMetadata describes how a provider produced its response.
type ProviderMetadata struct {
	ProviderID       string   `json:"provider_id"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
	Confidence       float64  `json:"confidence"`
	Sources          []string `json:"sources,omitempty"`
	NextAgentHint    string   `json:"next_agent_hint,omitempty"`
}

// ProviderResponse is the unit of work result every provider returns.
// Exactly one of Data/Error is meaningful depending on Success; a failed
// response must carry a non-empty Error.
type ProviderResponse struct {
	Success  bool             `json:"success"`
	Data     any              `json:"data,omitempty"`
	Error    string           `json:"error,omitempty"`
	Metadata ProviderMetadata `json:"metadata"`
}

// ExecutionPlan is the ordered provider chain chosen for one request.
// Built fresh per request and never persisted.
type ExecutionPlan struct {
	ProviderIDs   []string
	FallbackChain []string
	// Parallel is reserved: the executor runs every plan strictly
	// sequentially and never consults it.
	Parallel bool
	Priority int
}
