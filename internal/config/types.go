// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config types define the configuration structures used throughout
// sirseer-report. These types represent settings that can be loaded from
// YAML or TOML configuration files, environment variables, or command-line
// flags.
package config

import (
	"time"

	"github.com/sirseerhq/sirseer-report/internal/github"
)

// Config represents the complete configuration for sirseer-report.
// It consolidates settings from various sources and provides a unified
// interface for accessing configuration values throughout the application.
type Config struct {
	GitHub       GitHubConfig          `yaml:"github" toml:"github"`
	Defaults     DefaultsConfig        `yaml:"defaults" toml:"defaults"`
	Repositories map[string]RepoConfig `yaml:"repositories" toml:"repositories"`
	Retry        RetryConfig           `yaml:"retry" toml:"retry"`
	Log          LogConfig             `yaml:"log" toml:"log"`
	Cache        CacheConfig           `yaml:"cache" toml:"cache"`
}

// GitHubConfig contains GitHub-specific settings including the API endpoint
// and authentication configuration. This allows easy configuration for
// GitHub Enterprise deployments by specifying a custom endpoint.
type GitHubConfig struct {
	GraphQLEndpoint string `yaml:"graphql_endpoint" toml:"graphql_endpoint"`
	TokenEnv        string `yaml:"token_env" toml:"token_env"`
}

// DefaultsConfig contains default settings that apply to all fetch operations
// unless overridden by repository-specific settings or command-line flags.
type DefaultsConfig struct {
	ChunkSize int           `yaml:"chunk_size" toml:"chunk_size"`
	CacheDir  string        `yaml:"cache_dir" toml:"cache_dir"`
	Timeout   time.Duration `yaml:"timeout" toml:"timeout"`
}

// RepoConfig contains repository-specific overrides. This is useful when
// certain repositories need smaller pages, such as repositories whose
// records carry many labels.
type RepoConfig struct {
	ChunkSize int `yaml:"chunk_size" toml:"chunk_size"`
}

// RetryConfig controls how transient API failures are retried.
type RetryConfig struct {
	MaxRetries     int           `yaml:"max_retries" toml:"max_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff" toml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" toml:"max_backoff"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// CacheConfig controls the fetch cache.
type CacheConfig struct {
	// Namespace isolates cache entries written under different settings.
	Namespace string `yaml:"namespace" toml:"namespace"`

	// MaxAge expires entries older than this. Zero keeps them forever.
	MaxAge time.Duration `yaml:"max_age" toml:"max_age"`

	// Disabled keeps the cache in memory for the current run only.
	Disabled bool `yaml:"disabled" toml:"disabled"`
}

// DefaultConfig returns a Config with sensible defaults suitable for most
// use cases. These defaults are optimized for public GitHub.com usage but
// can be overridden for GitHub Enterprise or special requirements.
func DefaultConfig() *Config {
	retry := github.DefaultRetryConfig()
	return &Config{
		GitHub: GitHubConfig{
			GraphQLEndpoint: "https://api.github.com/graphql",
			TokenEnv:        "GITHUB_TOKEN",
		},
		Defaults: DefaultsConfig{
			ChunkSize: github.DefaultChunkSize,
			CacheDir:  "~/.sirseer/cache",
			Timeout:   30 * time.Minute,
		},
		Repositories: make(map[string]RepoConfig),
		Retry: RetryConfig{
			MaxRetries:     retry.MaxRetries,
			InitialBackoff: retry.InitialBackoff,
			MaxBackoff:     retry.MaxBackoff,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// RetryPolicy converts the retry settings for github.NewRetryClient.
func (c *Config) RetryPolicy() *github.RetryConfig {
	policy := github.DefaultRetryConfig()
	policy.MaxRetries = c.Retry.MaxRetries
	if c.Retry.InitialBackoff > 0 {
		policy.InitialBackoff = c.Retry.InitialBackoff
	}
	if c.Retry.MaxBackoff > 0 {
		policy.MaxBackoff = c.Retry.MaxBackoff
	}
	return policy
}
