// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RetrievalResult is the payload a data source returns for one query.
type RetrievalResult struct {
	Source         string   `json:"source"`
	Content        string   `json:"content"`
	Confidence     float64  `json:"confidence"`
	ResponseTimeMs int64    `json:"response_time_ms"`
	CostUSD        float64  `json:"cost_usd,omitempty"`
	Citations      []string `json:"citations,omitempty"`
}

// SourceStatus is the observable state of one retrieval source, updated
// after every query attempt.
type SourceStatus struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Priority     int       `json:"priority"`
	Available    bool      `json:"available"`
	FailureCount int       `json:"failure_count"`
	CircuitOpen  bool      `json:"circuit_open"`
	LastChecked  time.Time `json:"last_checked"`
	CostPerQuery float64   `json:"cost_per_query,omitempty"`
}

// CachedAnswer is the shape stored in and served from the cache tiers.
type CachedAnswer struct {
	Content    string   `json:"content"`
	Confidence float64  `json:"confidence"`
	Sources    []string `json:"sources,omitempty"`
}
