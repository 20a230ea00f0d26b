// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the assistant-core CLI. It wires the
// configuration, secrets, and logger into the request manager and exposes
// the pipeline as subcommands: ask, sources, cache, and config.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/assistant-core/internal/manager"
	"github.com/pdiddy/assistant-core/internal/secrets"
	"github.com/pdiddy/assistant-core/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the assistant-core CLI.
var rootCmd = &cobra.Command{
	Use:   "assistant-core",
	Short: "Resilient research-assistant request pipeline",
	Long: `assistant-core answers research questions through a provider pipeline:
a multi-tier cache, prioritized data-retrieval sources with circuit breakers,
content validation, and error translation, composed by an orchestrator behind
a facade that always produces an answer.

Ask a question with "ask"; inspect the pipeline with "sources" and "cache".`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./assistant-core.yaml or ~/.config/assistant-core/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("assistant-core")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "assistant-core"))
		}
	}

	viper.SetEnvPrefix("ASSISTANT_CORE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig layers the discovered YAML file and environment overrides over
// the defaults.
func loadConfig() (types.Config, error) {
	cfg := types.DefaultConfig()

	if path := viper.ConfigFileUsed(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	// Environment overrides for the settings worth flipping per invocation.
	if v := viper.GetString("logging.level"); v != "" {
		cfg.Logging.Level = v
	}
	if viper.IsSet("logging.pretty") {
		cfg.Logging.Pretty = viper.GetBool("logging.pretty")
	}
	if v := viper.GetString("cache.durable_path"); v != "" {
		cfg.Cache.DurablePath = v
	}
	if v := viper.GetInt("manager.max_concurrent"); v > 0 {
		cfg.Manager.MaxConcurrent = v
	}
	return cfg, nil
}

// newLogger builds the process logger from configuration.
func newLogger(cfg types.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	var w io.Writer = os.Stderr
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// buildManager is the composition root shared by the pipeline subcommands.
func buildManager() (*manager.Manager, types.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, cfg, err
	}
	log := newLogger(cfg.Logging)
	m, err := manager.New(cfg, loadedSecrets, log)
	if err != nil {
		return nil, cfg, fmt.Errorf("building manager: %w", err)
	}
	return m, cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
