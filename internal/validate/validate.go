// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package validate implements the content-validation provider: a fixed,
// ordered battery of independent checks that each contribute a
// multiplicative quality factor and zero or more issues.
package validate

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/assistant-core/internal/provider"
	"github.com/pdiddy/assistant-core/pkg/types"
)

const (
	minScore           = 0.1
	validityThreshold  = 0.5
	defaultConfidence  = 0.8
	maxRecommendations = 5
)

// genericGuidance maps an issue type to advice appended to the
// recommendation list alongside each issue's specific recommendation.
var genericGuidance = map[string]string{
	"citation":       "support claims with verifiable citations",
	"safety":         "keep content informational, never prescriptive",
	"dosage":         "present dosages only as reported study parameters",
	"consistency":    "review the content for internal contradictions",
	"staleness":      "prefer literature from the last decade",
	"overclaiming":   "avoid absolute language in research summaries",
	"source-quality": "prefer peer-reviewed sources",
	"structure":      "keep responses concise and properly disclaimed",
	"multi-source":   "corroborate findings across independent sources",
}

// Validator runs the check battery over candidate content.
type Validator struct {
	cfg    types.ValidationConfig
	checks []checkFunc
	log    zerolog.Logger
}

// New returns a validator with the fixed, ordered battery.
func New(cfg types.ValidationConfig, log zerolog.Logger) *Validator {
	return &Validator{
		cfg: cfg,
		checks: []checkFunc{
			checkCitations,
			checkSafety,
			checkFactConsistency,
			checkSourceQuality,
			checkStructure,
			checkMultiSource,
		},
		log: log.With().Str("component", "validate").Logger(),
	}
}

// Validate runs every check and folds the outcomes into one result.
// QualityScore is the clamped product of the per-check factors; any
// critical issue forces IsValid false regardless of the score.
func (v *Validator) Validate(content string) types.ValidationResult {
	score := 1.0
	confidence := 0.0
	confidenceSeen := false
	var issues []types.ValidationIssue

	for _, check := range v.checks {
		r := check(content, v.cfg)
		score *= r.factor
		issues = append(issues, r.issues...)
		if r.confidence > 0 {
			if !confidenceSeen || r.confidence < confidence {
				confidence = r.confidence
			}
			confidenceSeen = true
		}
	}

	if !confidenceSeen {
		confidence = defaultConfidence
	}

	result := types.ValidationResult{
		QualityScore:    clamp(score),
		Confidence:      clamp(confidence),
		Issues:          issues,
		Recommendations: buildRecommendations(issues),
	}
	result.IsValid = !result.HasCritical() && result.QualityScore > validityThreshold
	return result
}

// buildRecommendations merges per-issue recommendations with the generic
// guidance for each issue type, deduplicated and capped.
func buildRecommendations(issues []types.ValidationIssue) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(rec string) {
		if rec == "" || seen[rec] || len(out) >= maxRecommendations {
			return
		}
		seen[rec] = true
		out = append(out, rec)
	}
	for _, iss := range issues {
		add(iss.Recommendation)
		add(genericGuidance[iss.Type])
	}
	return out
}

func clamp(v float64) float64 {
	if v < minScore {
		return minScore
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}

// Provider adapts the validator to the capability contract. It validates
// the content the previous pipeline step left in the context metadata.
type Provider struct {
	validator *Validator
}

// NewProvider wraps v in the provider contract.
func NewProvider(v *Validator) *Provider {
	return &Provider{validator: v}
}

func (p *Provider) ID() string { return provider.IDValidation }

func (p *Provider) Capabilities() []string {
	return []string{provider.CapContentValidation}
}

func (p *Provider) CanHandle(rc *types.RequestContext) bool {
	return contentFromContext(rc) != ""
}

func (p *Provider) Health() provider.Health {
	return provider.Health{Healthy: true}
}

func (p *Provider) Process(_ context.Context, rc *types.RequestContext) *types.ProviderResponse {
	start := time.Now()
	content := contentFromContext(rc)
	if content == "" {
		return provider.Failure(p.ID(), start, "no candidate content to validate")
	}

	result := p.validator.Validate(content)
	return &types.ProviderResponse{
		Success: true,
		Data:    result,
		Metadata: types.ProviderMetadata{
			ProviderID:       p.ID(),
			ProcessingTimeMs: time.Since(start).Milliseconds(),
			Confidence:       result.Confidence,
		},
	}
}

// contentFromContext extracts validatable content from the previous step's
// result, whatever payload shape it carried.
func contentFromContext(rc *types.RequestContext) string {
	prev, ok := rc.Metadata[types.MetaPreviousResult]
	if !ok {
		return ""
	}
	switch v := prev.(type) {
	case string:
		return v
	case *types.RetrievalResult:
		return v.Content
	case *types.CachedAnswer:
		return v.Content
	case *types.ProviderResponse:
		if s, ok := v.Data.(string); ok {
			return s
		}
	}
	return ""
}
