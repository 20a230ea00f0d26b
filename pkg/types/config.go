package types

import "time"

// HTTPConfig holds shared HTTP settings for components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "assistant-core/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// LoggingConfig controls the zerolog setup.
type LoggingConfig struct {
	// Level is the minimum level to emit: debug, info, warn, error.
	Level string `json:"level" yaml:"level"`

	// Pretty enables the human-readable console writer instead of JSON.
	Pretty bool `json:"pretty" yaml:"pretty"`
}

// ProviderToggles enables or disables each capability provider independently.
// A disabled provider is simply never registered.
type ProviderToggles struct {
	Cache            bool `json:"cache" yaml:"cache"`
	Retrieval        bool `json:"retrieval" yaml:"retrieval"`
	Validation       bool `json:"validation" yaml:"validation"`
	ErrorTranslation bool `json:"error_translation" yaml:"error_translation"`
}

// ManagerConfig holds settings for the request manager facade.
type ManagerConfig struct {
	// MaxConcurrent caps in-flight requests; work past the cap is
	// rejected immediately, never queued (default 50).
	MaxConcurrent int `json:"max_concurrent" yaml:"max_concurrent"`

	// ShutdownGrace bounds how long Shutdown waits for in-flight
	// requests to drain (default 10s).
	ShutdownGrace time.Duration `json:"shutdown_grace" yaml:"shutdown_grace"`

	// Providers selects which capability providers are registered.
	Providers ProviderToggles `json:"providers" yaml:"providers"`
}

// OrchestratorConfig holds settings for plan execution.
type OrchestratorConfig struct {
	// StepTimeout bounds each provider invocation (default 30s).
	StepTimeout time.Duration `json:"step_timeout" yaml:"step_timeout"`

	// BreakerThreshold is the failure count that opens a provider's
	// circuit breaker (default 5).
	BreakerThreshold int `json:"breaker_threshold" yaml:"breaker_threshold"`

	// BreakerCooldown is how long an open breaker stays open before a
	// read resets it (default 60s).
	BreakerCooldown time.Duration `json:"breaker_cooldown" yaml:"breaker_cooldown"`
}

// CacheConfig holds settings for the multi-tier cache.
type CacheConfig struct {
	// MemoryBudgetBytes bounds the in-process tier (default 4 MiB).
	MemoryBudgetBytes int64 `json:"memory_budget_bytes" yaml:"memory_budget_bytes"`

	// DefaultTTL applies when a set does not specify one (default 15m).
	DefaultTTL time.Duration `json:"default_ttl" yaml:"default_ttl"`

	// DurablePath is the SQLite file backing the durable tier. Empty
	// disables the tier and the cache degrades to memory+session.
	DurablePath string `json:"durable_path,omitempty" yaml:"durable_path,omitempty"`

	// SessionEnabled turns the caller-local tier on (default true).
	SessionEnabled bool `json:"session_enabled" yaml:"session_enabled"`

	// SessionMaxEntries bounds the caller-local tier (default 128).
	SessionMaxEntries int `json:"session_max_entries" yaml:"session_max_entries"`
}

// SourceConfig describes one retrieval data source.
type SourceConfig struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`

	// Priority orders source attempts; lower is tried first.
	Priority int `json:"priority" yaml:"priority"`

	// BaseTrust is the fixed trust score blended into result confidence.
	BaseTrust float64 `json:"base_trust" yaml:"base_trust"`

	// Endpoint, when set, makes this an HTTP-backed source.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// APIKeySecret names the secrets-directory file holding this
	// source's API key (e.g. "pubmed-api-key").
	APIKeySecret string `json:"api_key_secret,omitempty" yaml:"api_key_secret,omitempty"`

	CostPerQuery float64 `json:"cost_per_query,omitempty" yaml:"cost_per_query,omitempty"`
}

// RetrievalConfig holds settings for the data-retrieval provider.
type RetrievalConfig struct {
	HTTPConfig `yaml:",inline"`

	// QueryTimeout bounds each single-source attempt (default 10s).
	QueryTimeout time.Duration `json:"query_timeout" yaml:"query_timeout"`

	// BreakerThreshold opens a source's breaker (default 3).
	BreakerThreshold int `json:"breaker_threshold" yaml:"breaker_threshold"`

	// BreakerCooldown is the per-source breaker cooldown (default 60s).
	BreakerCooldown time.Duration `json:"breaker_cooldown" yaml:"breaker_cooldown"`

	// Sources lists the data sources in no particular order; the
	// provider sorts by Priority. Empty gets the built-in defaults.
	Sources []SourceConfig `json:"sources" yaml:"sources"`
}

// ValidationConfig holds settings for the content-validation provider.
type ValidationConfig struct {
	// MaxContentLength is the structural check's length bound (default 8000).
	MaxContentLength int `json:"max_content_length" yaml:"max_content_length"`
}

// Config is the full configuration tree loaded by the composition root.
type Config struct {
	Logging      LoggingConfig      `json:"logging" yaml:"logging"`
	Manager      ManagerConfig      `json:"manager" yaml:"manager"`
	Orchestrator OrchestratorConfig `json:"orchestrator" yaml:"orchestrator"`
	Cache        CacheConfig        `json:"cache" yaml:"cache"`
	Retrieval    RetrievalConfig    `json:"retrieval" yaml:"retrieval"`
	Validation   ValidationConfig   `json:"validation" yaml:"validation"`
}

// DefaultConfig returns the configuration used when no file overrides it.
func DefaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Pretty: true},
		Manager: ManagerConfig{
			MaxConcurrent: 50,
			ShutdownGrace: 10 * time.Second,
			Providers: ProviderToggles{
				Cache:            true,
				Retrieval:        true,
				Validation:       true,
				ErrorTranslation: true,
			},
		},
		Orchestrator: OrchestratorConfig{
			StepTimeout:      30 * time.Second,
			BreakerThreshold: 5,
			BreakerCooldown:  60 * time.Second,
		},
		Cache: CacheConfig{
			MemoryBudgetBytes: 4 << 20,
			DefaultTTL:        15 * time.Minute,
			SessionEnabled:    true,
			SessionMaxEntries: 128,
		},
		Retrieval: RetrievalConfig{
			HTTPConfig:       HTTPConfig{Timeout: 10 * time.Second, UserAgent: "assistant-core/0.1"},
			QueryTimeout:     10 * time.Second,
			BreakerThreshold: 3,
			BreakerCooldown:  60 * time.Second,
		},
		Validation: ValidationConfig{MaxContentLength: 8000},
	}
}
