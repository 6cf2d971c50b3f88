// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viper Contributors

// Package config loads server configuration from an optional YAML file
// and command-line flags. Flags take precedence over file values.
package config

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/viperhq/viper/internal/auth"
)

// Default values applied before any file or flag overrides.
const (
	DefaultHTTPAddr       = "localhost:8080"
	DefaultMetricsAddr    = "127.0.0.1:9100"
	DefaultLogFormat      = "json"
	DefaultRequestTimeout = 5 * time.Second
)

// Config holds the full server configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Auth     AuthConfig     `koanf:"auth"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr    string        `koanf:"addr"`
	Timeout time.Duration `koanf:"timeout"`
}

// MetricsConfig configures the observability listener. An empty Addr
// disables the metrics/health server.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// DatabaseConfig configures the Postgres connection.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// LogConfig configures structured logging output.
type LogConfig struct {
	Format string `koanf:"format"`
}

// AuthConfig configures credential generation.
type AuthConfig struct {
	TokenLength   int    `koanf:"token_length"`
	TokenAlphabet string `koanf:"token_alphabet"`
	ResetLength   int    `koanf:"reset_length"`
	ResetAlphabet string `koanf:"reset_alphabet"`
}

// Generator converts the auth section into a generator config,
// filling unset fields with defaults.
func (c *AuthConfig) Generator() auth.GeneratorConfig {
	cfg := auth.DefaultGeneratorConfig()
	if c.TokenLength > 0 {
		cfg.TokenLength = c.TokenLength
	}
	if c.TokenAlphabet != "" {
		cfg.TokenAlphabet = c.TokenAlphabet
	}
	if c.ResetLength > 0 {
		cfg.ResetLength = c.ResetLength
	}
	if c.ResetAlphabet != "" {
		cfg.ResetAlphabet = c.ResetAlphabet
	}
	return cfg
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive, got %s", c.HTTP.Timeout)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	gen := c.Auth.Generator()
	if err := gen.Validate(); err != nil {
		return fmt.Errorf("invalid auth config: %w", err)
	}
	return nil
}

// Flags returns a flag set covering the overridable configuration keys.
// Flag names use dots so they map directly onto config file paths.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("viper", pflag.ContinueOnError)
	fs.String("http.addr", DefaultHTTPAddr, "API listen address")
	fs.Duration("http.timeout", DefaultRequestTimeout, "per-request timeout")
	fs.String("metrics.addr", DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.String("database.url", "", "Postgres connection URL")
	fs.String("log.format", DefaultLogFormat, "log format (json or text)")
	return fs
}

// Load builds a Config from defaults, an optional YAML file, and the
// given flag set, in increasing order of precedence. Flags that were
// not set on the command line do not override file values.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]any{
		"http.addr":    DefaultHTTPAddr,
		"http.timeout": DefaultRequestTimeout,
		"metrics.addr": DefaultMetricsAddr,
		"log.format":   DefaultLogFormat,
	}
	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
