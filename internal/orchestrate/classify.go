// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrate

import (
	"strings"

	"github.com/pdiddy/assistant-core/internal/provider"
	"github.com/pdiddy/assistant-core/pkg/types"
)

// Category is the request class a plan is built from.
type Category string

const (
	CategoryResearch Category = "research"
	CategoryChat     Category = "chat"
	CategoryUnknown  Category = "unknown"
)

// researchHints mark a message as a research query even without a paper
// reference.
var researchHints = []string{
	"research", "study", "studies", "paper", "trial", "clinical",
	"evidence", "pubmed", "findings", "meta-analysis",
}

// chatHints mark a message as conversational.
var chatHints = []string{"hello", "hi ", "thanks", "thank you", "what do you think", "can you explain"}

// Classify buckets a request: a paper reference or research wording makes
// it a research query; conversation history or chat wording makes it chat;
// anything else is unknown and gets the degenerate plan.
func Classify(rc *types.RequestContext) Category {
	msg := strings.ToLower(rc.Message)

	if rc.Paper != nil {
		return CategoryResearch
	}
	for _, hint := range researchHints {
		if strings.Contains(msg, hint) {
			return CategoryResearch
		}
	}

	if len(rc.History) > 0 {
		return CategoryChat
	}
	for _, hint := range chatHints {
		if strings.Contains(msg, hint) {
			return CategoryChat
		}
	}

	return CategoryUnknown
}

// BuildPlan maps a category to its execution plan. Plans are built fresh
// per request; the fallback chain is the error translator in every case.
func BuildPlan(category Category) types.ExecutionPlan {
	fallback := []string{provider.IDErrorTranslation}
	switch category {
	case CategoryResearch:
		return types.ExecutionPlan{
			ProviderIDs:   []string{provider.IDRetrieval, provider.IDValidation, provider.IDCache},
			FallbackChain: fallback,
			Priority:      1,
		}
	case CategoryChat:
		return types.ExecutionPlan{
			ProviderIDs:   []string{provider.IDCache, provider.IDRetrieval, provider.IDValidation},
			FallbackChain: fallback,
			Priority:      2,
		}
	default:
		return types.ExecutionPlan{
			ProviderIDs:   []string{provider.IDErrorTranslation},
			FallbackChain: fallback,
			Priority:      3,
		}
	}
}
