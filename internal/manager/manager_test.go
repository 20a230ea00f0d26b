// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package manager

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/assistant-core/internal/provider"
	"github.com/pdiddy/assistant-core/pkg/types"
)

func testConfig() types.Config {
	cfg := types.DefaultConfig()
	// Keep tests off the disk and off long timers.
	cfg.Cache.DurablePath = ""
	cfg.Orchestrator.StepTimeout = 2 * time.Second
	cfg.Retrieval.QueryTimeout = time.Second
	return cfg
}

func newManager(t *testing.T, cfg types.Config) *Manager {
	t.Helper()
	m, err := New(cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	return m
}

func TestHealthyPipelineAnswersResearchQuery(t *testing.T) {
	m := newManager(t, testConfig())

	resp := m.Handle(context.Background(), &types.Request{
		Message:   "what does the aspirin cardiovascular trial evidence say?",
		SessionID: "s1",
		UserID:    "alice",
	})
	require.NotNil(t, resp)

	assert.NotEmpty(t, resp.Content)
	assert.GreaterOrEqual(t, resp.Confidence, 0.8)
	assert.Empty(t, resp.Error)
	assert.False(t, resp.Metadata.Cached)
	assert.True(t, resp.Metadata.Validated)
	assert.Greater(t, resp.Metadata.QualityScore, 0.5)
	assert.Contains(t, resp.Metadata.ProvidersUsed, provider.IDRetrieval)
	assert.NotEmpty(t, resp.Sources)
}

func TestRepeatedQueryServedFromCache(t *testing.T) {
	m := newManager(t, testConfig())
	req := &types.Request{
		Message:   "aspirin cardiovascular prevention evidence",
		SessionID: "s1",
		UserID:    "alice",
	}

	first := m.Handle(context.Background(), req)
	require.False(t, first.Metadata.Cached)

	second := m.Handle(context.Background(), req)
	assert.True(t, second.Metadata.Cached)
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, []string{provider.IDCache}, second.Metadata.ProvidersUsed)
}

func TestCacheKeyIsPerUser(t *testing.T) {
	m := newManager(t, testConfig())
	msg := "clinical trial design evidence"

	m.Handle(context.Background(), &types.Request{Message: msg, SessionID: "s1", UserID: "alice"})
	resp := m.Handle(context.Background(), &types.Request{Message: msg, SessionID: "s1", UserID: "bob"})
	assert.False(t, resp.Metadata.Cached, "a different user must not hit alice's entry")
}

func TestAllProvidersDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Manager.Providers = types.ProviderToggles{}
	m := newManager(t, cfg)

	resp := m.Handle(context.Background(), &types.Request{Message: "any research question", SessionID: "s1"})
	require.NotNil(t, resp)

	assert.NotEmpty(t, resp.Content, "even total failure produces content")
	assert.NotEmpty(t, resp.Error)
	assert.LessOrEqual(t, resp.Confidence, 0.2)
	assert.True(t, resp.Metadata.ErrorRecovered)
}

func TestOnlyErrorTranslationEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.Manager.Providers = types.ProviderToggles{ErrorTranslation: true}
	m := newManager(t, cfg)

	resp := m.Handle(context.Background(), &types.Request{
		Message:   "what clinical trials cover this treatment?",
		SessionID: "s1",
	})
	require.NotNil(t, resp)

	assert.NotEmpty(t, resp.Content)
	assert.Empty(t, resp.Error, "the fallback chain recovered, so no error surfaces")
	assert.True(t, resp.Metadata.ErrorRecovered)
	assert.InDelta(t, 0.3, resp.Confidence, 1e-9)
}

func TestRejectsPastConcurrencyCap(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		started <- struct{}{}
		<-release
		w.Write([]byte(`{"content":"slow answer from the archive","confidence":0.9}`))
	}))
	defer srv.Close()
	defer close(release)

	cfg := testConfig()
	cfg.Manager.MaxConcurrent = 1
	cfg.Manager.Providers = types.ProviderToggles{Retrieval: true}
	cfg.Orchestrator.StepTimeout = 10 * time.Second
	cfg.Retrieval.QueryTimeout = 10 * time.Second
	cfg.Retrieval.Sources = []types.SourceConfig{
		{ID: "slow-archive", Priority: 1, BaseTrust: 0.9, Endpoint: srv.URL},
	}
	m := newManager(t, cfg)

	go m.Handle(context.Background(), &types.Request{Message: "slow clinical study", SessionID: "s1"})
	<-started

	resp := m.Handle(context.Background(), &types.Request{Message: "second clinical study", SessionID: "s2"})
	assert.Equal(t, "at capacity", resp.Error)
	assert.LessOrEqual(t, resp.Confidence, 0.2)
	assert.Equal(t, int64(1), m.Stats().Rejected)
}

func TestStatsTracking(t *testing.T) {
	m := newManager(t, testConfig())

	for i := 0; i < 3; i++ {
		m.Handle(context.Background(), &types.Request{Message: "treatment evidence", SessionID: "s1"})
	}

	s := m.Stats()
	assert.Equal(t, int64(3), s.Total)
	assert.Equal(t, int64(3), s.Successful)
	assert.Zero(t, s.Failed)
	assert.GreaterOrEqual(t, s.AvgLatencyMs, float64(0))
}

func TestHealthReportListsEveryProvider(t *testing.T) {
	m := newManager(t, testConfig())

	report := m.HealthReport()
	for _, id := range []string{
		provider.IDCache, provider.IDRetrieval, provider.IDValidation,
		provider.IDErrorTranslation, provider.IDOrchestrator,
	} {
		h, ok := report[id]
		require.True(t, ok, "missing health for %s", id)
		assert.True(t, h.Healthy)
	}
}

func TestSourceStatusesPassthrough(t *testing.T) {
	m := newManager(t, testConfig())
	statuses := m.SourceStatuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, "internal-corpus", statuses[0].ID)

	cfg := testConfig()
	cfg.Manager.Providers.Retrieval = false
	m2 := newManager(t, cfg)
	assert.Empty(t, m2.SourceStatuses())
}

func TestShutdownDrains(t *testing.T) {
	m, err := New(testConfig(), nil, zerolog.Nop())
	require.NoError(t, err)

	m.Handle(context.Background(), &types.Request{Message: "clinical question", SessionID: "s1"})
	require.NoError(t, m.Shutdown(context.Background()))
}
