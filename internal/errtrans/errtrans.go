// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package errtrans implements the error-translation provider: it classifies
// raw failures into a fixed category set and maps each category to a
// user-safe message, suggested action, and recovery options. Raw failure
// text never reaches the user.
package errtrans

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/assistant-core/internal/provider"
	"github.com/pdiddy/assistant-core/pkg/types"
)

// Error categories.
const (
	CategoryRateLimit        = "rate-limit"
	CategoryUpstreamTimeout  = "upstream-timeout"
	CategoryNetwork          = "network"
	CategoryUnauthorized     = "unauthorized"
	CategoryDatabase         = "database"
	CategoryParse            = "parse"
	CategoryValidationFailed = "validation-failed"
	CategoryUnavailable      = "service-unavailable"
	CategoryUnknown          = "unknown"
)

// categoryMarker pairs substrings with the category they indicate. Order
// matters: the first match wins.
type categoryMarker struct {
	category string
	markers  []string
}

var classification = []categoryMarker{
	{CategoryRateLimit, []string{"rate limit", "too many requests", "429"}},
	{CategoryUpstreamTimeout, []string{"timed out", "timeout", "deadline exceeded"}},
	{CategoryUnauthorized, []string{"unauthorized", "forbidden", "401", "403", "api key"}},
	{CategoryDatabase, []string{"database", "sqlite", "sql:"}},
	{CategoryParse, []string{"parse", "unmarshal", "decode", "invalid character"}},
	{CategoryValidationFailed, []string{"validation failed", "invalid content", "quality score"}},
	{CategoryUnavailable, []string{"unavailable", "circuit open", "all sources failed", "503"}},
	{CategoryNetwork, []string{"connection refused", "no such host", "network", "dial tcp", "eof"}},
}

// highSeverity and lowSeverity partition the categories; everything else,
// including unclassified failures, is medium.
var (
	highSeverity = map[string]bool{
		CategoryDatabase:     true,
		CategoryUnauthorized: true,
		CategoryUnavailable:  true,
	}
	lowSeverity = map[string]bool{
		CategoryRateLimit:        true,
		CategoryValidationFailed: true,
	}
)

// Translator classifies failures and renders them safely. The translation
// table is static and built once at construction.
type Translator struct {
	table map[string]types.ErrorTranslation
	log   zerolog.Logger
}

// New returns a translator with its full category table loaded.
func New(log zerolog.Logger) *Translator {
	t := &Translator{
		table: make(map[string]types.ErrorTranslation),
		log:   log.With().Str("component", "errtrans").Logger(),
	}
	for _, entry := range []types.ErrorTranslation{
		{
			ErrorCategory:   CategoryRateLimit,
			UserMessage:     "The research service is receiving a lot of requests right now.",
			SuggestedAction: "Wait a moment and ask again.",
			RecoveryOptions: []string{"retry in a minute", "narrow the question"},
		},
		{
			ErrorCategory:   CategoryUpstreamTimeout,
			UserMessage:     "A research database took too long to respond.",
			SuggestedAction: "Try again; slow sources are skipped automatically on retry.",
			RecoveryOptions: []string{"retry now", "ask a more specific question"},
		},
		{
			ErrorCategory:   CategoryNetwork,
			UserMessage:     "We could not reach the research databases.",
			SuggestedAction: "Check connectivity and try again.",
			RecoveryOptions: []string{"retry shortly", "use previously retrieved results"},
		},
		{
			ErrorCategory:   CategoryUnauthorized,
			UserMessage:     "Access to a research source was declined.",
			SuggestedAction: "The operator needs to review the source credentials.",
			RecoveryOptions: []string{"contact the administrator"},
		},
		{
			ErrorCategory:   CategoryDatabase,
			UserMessage:     "The assistant's local store had a problem.",
			SuggestedAction: "Try again; if it persists, contact the administrator.",
			RecoveryOptions: []string{"retry now", "contact the administrator"},
		},
		{
			ErrorCategory:   CategoryParse,
			UserMessage:     "A research source returned data we could not read.",
			SuggestedAction: "Try rephrasing the question.",
			RecoveryOptions: []string{"rephrase the question", "retry later"},
		},
		{
			ErrorCategory:   CategoryValidationFailed,
			UserMessage:     "The answer we assembled did not meet quality standards, so it was withheld.",
			SuggestedAction: "Rephrase the question or ask for sources directly.",
			RecoveryOptions: []string{"rephrase the question", "ask for the underlying studies"},
		},
		{
			ErrorCategory:   CategoryUnavailable,
			UserMessage:     "The research services are temporarily unavailable.",
			SuggestedAction: "Try again in a few minutes.",
			RecoveryOptions: []string{"retry in a few minutes", "consult PubMed directly"},
		},
		{
			ErrorCategory:   CategoryUnknown,
			UserMessage:     "Something unexpected went wrong while answering.",
			SuggestedAction: "Try asking again.",
			RecoveryOptions: []string{"retry now", "rephrase the question"},
		},
	} {
		t.table[entry.ErrorCategory] = entry
	}
	return t
}

// Classify maps raw failure text to a category by case-insensitive
// substring matching.
func Classify(raw string) string {
	lowered := strings.ToLower(raw)
	for _, cm := range classification {
		for _, marker := range cm.markers {
			if strings.Contains(lowered, marker) {
				return cm.category
			}
		}
	}
	return CategoryUnknown
}

// SeverityOf returns the fixed severity partition for a category.
func SeverityOf(category string) types.Severity {
	switch {
	case highSeverity[category]:
		return types.SeverityHigh
	case lowSeverity[category]:
		return types.SeverityLow
	default:
		return types.SeverityMedium
	}
}

// Translate classifies raw failure text and returns the static user-safe
// entry for its category.
func (t *Translator) Translate(raw string) types.ErrorTranslation {
	category := Classify(raw)
	entry := t.table[category]
	entry.Severity = SeverityOf(category)
	return entry
}

// FallbackContent builds a substitute answer when the caller needs content
// rather than an explanation, appending topic-specific guidance keyed off
// the user's last message.
func (t *Translator) FallbackContent(raw string, lastUserMessage string) string {
	entry := t.Translate(raw)
	content := entry.UserMessage + " " + entry.SuggestedAction

	topic := strings.ToLower(lastUserMessage)
	switch {
	case strings.Contains(topic, "clinical trial") || strings.Contains(topic, "trial"):
		content += " In the meantime, ClinicalTrials.gov is the authoritative registry for trial protocols and status."
	case strings.Contains(topic, "drug") || strings.Contains(topic, "medication"):
		content += " In the meantime, official prescribing information and peer-reviewed pharmacology reviews are the safest references for drug questions."
	case strings.Contains(topic, "treatment") || strings.Contains(topic, "therapy"):
		content += " In the meantime, clinical practice guidelines and Cochrane systematic reviews summarize treatment evidence reliably."
	}
	return content
}

// Provider adapts the translator to the capability contract. As the last
// link of every fallback chain it always succeeds, turning the last
// recorded error into safe content.
type Provider struct {
	translator *Translator
}

// NewProvider wraps t in the provider contract.
func NewProvider(t *Translator) *Provider {
	return &Provider{translator: t}
}

func (p *Provider) ID() string { return provider.IDErrorTranslation }

func (p *Provider) Capabilities() []string {
	return []string{provider.CapErrorTranslation}
}

func (p *Provider) CanHandle(_ *types.RequestContext) bool { return true }

func (p *Provider) Health() provider.Health {
	return provider.Health{Healthy: true}
}

func (p *Provider) Process(_ context.Context, rc *types.RequestContext) *types.ProviderResponse {
	start := time.Now()

	raw, _ := rc.Metadata[types.MetaLastError].(string)
	if raw == "" {
		raw = "unknown failure"
	}

	translation := p.translator.Translate(raw)
	content := p.translator.FallbackContent(raw, rc.LastUserMessage())

	return &types.ProviderResponse{
		Success: true,
		Data: &types.CachedAnswer{
			Content:    content,
			Confidence: 0.3,
		},
		Metadata: types.ProviderMetadata{
			ProviderID:       p.ID(),
			ProcessingTimeMs: time.Since(start).Milliseconds(),
			Confidence:       0.3,
			NextAgentHint:    translation.ErrorCategory,
		},
	}
}
