// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package errtrans

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/assistant-core/pkg/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"HTTP 429 Too Many Requests", CategoryRateLimit},
		{"context deadline exceeded", CategoryUpstreamTimeout},
		{"source pubmed timed out after 10s", CategoryUpstreamTimeout},
		{"dial tcp 10.0.0.1:443: connection refused", CategoryNetwork},
		{"401 Unauthorized", CategoryUnauthorized},
		{"missing API key", CategoryUnauthorized},
		{"sqlite: database is locked", CategoryDatabase},
		{"json: cannot unmarshal string", CategoryParse},
		{"validation failed: quality below threshold", CategoryValidationFailed},
		{"all sources failed", CategoryUnavailable},
		{"something entirely novel", CategoryUnknown},
		{"", CategoryUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.raw))
		})
	}
}

func TestSeverityPartition(t *testing.T) {
	assert.Equal(t, types.SeverityHigh, SeverityOf(CategoryDatabase))
	assert.Equal(t, types.SeverityHigh, SeverityOf(CategoryUnavailable))
	assert.Equal(t, types.SeverityLow, SeverityOf(CategoryRateLimit))
	assert.Equal(t, types.SeverityMedium, SeverityOf(CategoryNetwork))
	assert.Equal(t, types.SeverityMedium, SeverityOf(CategoryUnknown))
	assert.Equal(t, types.SeverityMedium, SeverityOf("not-a-category"))
}

func TestTranslateNeverExposesRawText(t *testing.T) {
	tr := New(zerolog.Nop())
	raw := "dial tcp 192.168.1.50:5432: connection refused (password=hunter2)"

	entry := tr.Translate(raw)
	assert.Equal(t, CategoryNetwork, entry.ErrorCategory)
	assert.NotContains(t, entry.UserMessage, "hunter2")
	assert.NotContains(t, entry.UserMessage, "192.168")
	assert.NotEmpty(t, entry.SuggestedAction)
	assert.NotEmpty(t, entry.RecoveryOptions)
}

func TestTranslateEveryCategoryHasEntry(t *testing.T) {
	tr := New(zerolog.Nop())
	categories := []string{
		CategoryRateLimit, CategoryUpstreamTimeout, CategoryNetwork,
		CategoryUnauthorized, CategoryDatabase, CategoryParse,
		CategoryValidationFailed, CategoryUnavailable, CategoryUnknown,
	}
	for _, cat := range categories {
		entry, ok := tr.table[cat]
		require.True(t, ok, "missing table entry for %s", cat)
		assert.NotEmpty(t, entry.UserMessage)
		assert.NotEmpty(t, entry.SuggestedAction)
		assert.NotEmpty(t, entry.RecoveryOptions)
	}
}

func TestFallbackContentTopicBuckets(t *testing.T) {
	tr := New(zerolog.Nop())

	content := tr.FallbackContent("all sources failed", "what clinical trials exist for this?")
	assert.Contains(t, content, "ClinicalTrials.gov")

	content = tr.FallbackContent("all sources failed", "is this drug safe?")
	assert.Contains(t, content, "prescribing information")

	content = tr.FallbackContent("all sources failed", "best treatment for migraines?")
	assert.Contains(t, content, "Cochrane")

	content = tr.FallbackContent("all sources failed", "what is the meaning of life?")
	assert.NotContains(t, content, "ClinicalTrials.gov")
	assert.NotEmpty(t, content)
}

func TestProviderAlwaysSucceeds(t *testing.T) {
	p := NewProvider(New(zerolog.Nop()))
	rc := &types.RequestContext{
		Message:  "tell me about treatment options",
		Metadata: map[string]any{types.MetaLastError: "source pubmed timed out after 10s"},
	}

	resp := p.Process(context.Background(), rc)
	require.True(t, resp.Success)

	ans, ok := resp.Data.(*types.CachedAnswer)
	require.True(t, ok)
	assert.NotEmpty(t, ans.Content)
	assert.InDelta(t, 0.3, resp.Metadata.Confidence, 1e-9)
	assert.Equal(t, CategoryUpstreamTimeout, resp.Metadata.NextAgentHint)
}

func TestProviderHandlesMissingError(t *testing.T) {
	p := NewProvider(New(zerolog.Nop()))
	rc := &types.RequestContext{Message: "hello", Metadata: map[string]any{}}

	resp := p.Process(context.Background(), rc)
	require.True(t, resp.Success)
	assert.NotEmpty(t, resp.Data.(*types.CachedAnswer).Content)
}
