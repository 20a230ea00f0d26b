// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieval implements the data-retrieval provider: a priority-
// ordered fan-out across named sources, each guarded by its own circuit
// breaker, with confidence blending and a static emergency fallback when
// every source fails.
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/assistant-core/internal/httputil"
	"github.com/pdiddy/assistant-core/pkg/types"
)

// Source answers a single query against one external system. Implementations
// must honor ctx cancellation; the provider time-boxes every call.
type Source interface {
	ID() string
	Query(ctx context.Context, query string) (*types.RetrievalResult, error)
}

// --- static corpus source ---

// staticTopic is one canned answer bucket in the built-in corpus.
type staticTopic struct {
	keywords  []string
	content   string
	citations []string
}

// StaticSource serves deterministic answers from a small built-in corpus.
// It stands in for a real research database in default configurations and
// keeps the pipeline usable offline.
type StaticSource struct {
	id     string
	topics []staticTopic
}

// NewStaticSource returns the built-in corpus source with the given id.
func NewStaticSource(id string) *StaticSource {
	return &StaticSource{
		id: id,
		topics: []staticTopic{
			{
				keywords: []string{"aspirin", "cardiovascular", "stroke", "heart"},
				content: "Low-dose aspirin has been studied extensively for cardiovascular " +
					"prevention. A large randomized trial (ASPREE, 2018) found no significant " +
					"primary-prevention benefit in healthy older adults, while secondary-prevention " +
					"studies show consistent risk reduction (Antithrombotic Trialists' Collaboration, 2009). " +
					"Findings should be weighed against bleeding risk in research contexts.",
				citations: []string{"doi:10.1056/NEJMoa1805819", "doi:10.1016/S0140-6736(09)60503-1"},
			},
			{
				keywords: []string{"trial", "clinical", "randomized", "rct"},
				content: "Clinical trial design determines how much weight a finding carries. " +
					"Randomized controlled trials remain the reference standard (Sibbald & Roland, 1998), " +
					"and studies show pre-registration and adequate power materially affect reproducibility " +
					"(Ioannidis, 2005). Registry data can complement but not replace randomization.",
				citations: []string{"doi:10.1136/bmj.316.7126.201", "doi:10.1371/journal.pmed.0020124"},
			},
			{
				keywords: []string{"treatment", "therapy", "intervention"},
				content: "Evidence for treatment effectiveness is best assessed through systematic " +
					"reviews that pool randomized studies (Higgins et al., 2019). Individual study " +
					"results vary with population and protocol; peer-reviewed meta-analyses give the " +
					"most reliable effect estimates available in the research literature.",
				citations: []string{"doi:10.1002/9781119536604"},
			},
		},
	}
}

func (s *StaticSource) ID() string { return s.id }

func (s *StaticSource) Query(ctx context.Context, query string) (*types.RetrievalResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	for _, topic := range s.topics {
		for _, kw := range topic.keywords {
			if strings.Contains(q, kw) {
				return &types.RetrievalResult{
					Source:     s.id,
					Content:    topic.content,
					Confidence: 0.9,
					Citations:  topic.citations,
				}, nil
			}
		}
	}
	return &types.RetrievalResult{
		Source: s.id,
		Content: "The internal corpus has no targeted entry for this question. Current " +
			"peer-reviewed literature should be consulted directly; studies show that " +
			"source quality varies widely outside indexed databases (Bramer et al., 2017).",
		Confidence: 0.6,
		Citations:  []string{"doi:10.1186/s13643-017-0644-y"},
	}, nil
}

// --- HTTP source ---

// httpAnswer is the JSON shape an HTTP-backed source returns.
type httpAnswer struct {
	Content    string   `json:"content"`
	Confidence float64  `json:"confidence"`
	Citations  []string `json:"citations,omitempty"`
}

// HTTPSource queries a remote research database over HTTP, retrying
// transient failures with backoff.
type HTTPSource struct {
	id        string
	endpoint  string
	apiKey    string
	client    *http.Client
	userAgent string
}

// NewHTTPSource returns a source that issues GET <endpoint>?q=<query>.
func NewHTTPSource(id, endpoint, apiKey string, httpCfg types.HTTPConfig) *HTTPSource {
	timeout := httpCfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		id:        id,
		endpoint:  endpoint,
		apiKey:    apiKey,
		client:    &http.Client{Timeout: timeout},
		userAgent: httpCfg.UserAgent,
	}
}

func (s *HTTPSource) ID() string { return s.id }

func (s *HTTPSource) Query(ctx context.Context, query string) (*types.RetrievalResult, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint for %s: %w", s.id, err)
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", s.id, err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	if s.apiKey != "" {
		req.Header.Set("X-API-Key", s.apiKey)
	}

	resp, err := httputil.DoWithRetry(ctx, s.client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", s.id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("querying %s: unexpected status %d", s.id, resp.StatusCode)
	}

	var ans httpAnswer
	if err := json.NewDecoder(resp.Body).Decode(&ans); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", s.id, err)
	}
	if ans.Content == "" {
		return nil, fmt.Errorf("source %s returned an empty answer", s.id)
	}
	return &types.RetrievalResult{
		Source:     s.id,
		Content:    ans.Content,
		Confidence: ans.Confidence,
		Citations:  ans.Citations,
	}, nil
}
