// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/assistant-core/pkg/types"
)

// stubProvider is a minimal Provider for registry tests.
type stubProvider struct {
	id      string
	caps    []string
	healthy bool
}

func (s *stubProvider) ID() string                                 { return s.id }
func (s *stubProvider) Capabilities() []string                     { return s.caps }
func (s *stubProvider) CanHandle(_ *types.RequestContext) bool     { return true }
func (s *stubProvider) Health() Health                             { return Health{Healthy: s.healthy} }
func (s *stubProvider) Process(_ context.Context, _ *types.RequestContext) *types.ProviderResponse {
	return &types.ProviderResponse{Success: true, Metadata: types.ProviderMetadata{ProviderID: s.id}}
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	p := &stubProvider{id: IDCache, caps: []string{CapCacheRetrieval}, healthy: true}
	require.NoError(t, r.Register(p))

	got, ok := r.Get(IDCache)
	require.True(t, ok)
	assert.Equal(t, IDCache, got.ID())

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistryDuplicateID(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubProvider{id: IDCache}))
	assert.Error(t, r.Register(&stubProvider{id: IDCache}))
}

func TestRegistryCapabilityIndex(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubProvider{id: "a", caps: []string{CapDataRetrieval}}))
	require.NoError(t, r.Register(&stubProvider{id: "b", caps: []string{CapDataRetrieval, CapCacheRetrieval}}))

	byRetrieval := r.ByCapability(CapDataRetrieval)
	require.Len(t, byRetrieval, 2)
	assert.Equal(t, "a", byRetrieval[0].ID())
	assert.Equal(t, "b", byRetrieval[1].ID())

	assert.Len(t, r.ByCapability(CapCacheRetrieval), 1)
	assert.Empty(t, r.ByCapability("unknown"))
}

func TestRegistryUnregisterUpdatesBothIndexes(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubProvider{id: "a", caps: []string{CapDataRetrieval}}))
	require.NoError(t, r.Register(&stubProvider{id: "b", caps: []string{CapDataRetrieval}}))

	r.Unregister("a")

	_, ok := r.Get("a")
	assert.False(t, ok)
	byCap := r.ByCapability(CapDataRetrieval)
	require.Len(t, byCap, 1)
	assert.Equal(t, "b", byCap[0].ID())

	// Unknown id is a no-op.
	r.Unregister("never-registered")
	assert.Equal(t, []string{"b"}, r.IDs())
}

func TestRegistryHealthReport(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubProvider{id: "a", healthy: true}))
	require.NoError(t, r.Register(&stubProvider{id: "b", healthy: false}))

	report := r.HealthReport()
	require.Len(t, report, 2)
	assert.True(t, report["a"].Healthy)
	assert.False(t, report["b"].Healthy)
}
