// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the value and configuration structs shared across the
// assistant core: the public request/response boundary, the per-call request
// context threaded through the provider pipeline, and the config tree.
package types

import "time"

// Message is one entry of a conversation history.
type Message struct {
	Role      string    `json:"role" yaml:"role"` // "user" or "assistant"
	Content   string    `json:"content" yaml:"content"`
	Timestamp time.Time `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// ResearchPaper identifies a paper the user is asking about.
type ResearchPaper struct {
	Title   string   `json:"title" yaml:"title"`
	DOI     string   `json:"doi,omitempty" yaml:"doi,omitempty"`
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`
	Year    int      `json:"year,omitempty" yaml:"year,omitempty"`
}

// Request is the core's inbound boundary shape. The transport layer (HTTP,
// CLI) translates its own protocol into this and nothing else.
type Request struct {
	Message        string         `json:"message"`
	SessionID      string         `json:"session_id"`
	UserID         string         `json:"user_id,omitempty"`
	Specialization string         `json:"specialization,omitempty"`
	Paper          *ResearchPaper `json:"research_paper,omitempty"`
	History        []Message      `json:"conversation_history,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// ResponseMetadata carries diagnostics about how a response was produced.
type ResponseMetadata struct {
	ProvidersUsed    []string `json:"providers_used"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
	Cached           bool     `json:"cached"`
	Validated        bool     `json:"validated"`
	QualityScore     float64  `json:"quality_score,omitempty"`
	ErrorRecovered   bool     `json:"error_recovered"`
}

// Response is the core's outbound boundary shape. The manager guarantees one
// is always produced; Error is diagnostic and never raw failure text.
type Response struct {
	Content    string           `json:"content"`
	Confidence float64          `json:"confidence"`
	Sources    []string         `json:"sources"`
	Metadata   ResponseMetadata `json:"metadata"`
	Error      string           `json:"error,omitempty"`
}
