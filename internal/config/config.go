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

// Package config provides configuration management for sirseer-report with
// support for multiple configuration sources and a well-defined precedence
// order.
//
// Configuration sources (in precedence order, highest to lowest):
//  1. Command-line flags
//  2. Environment variables (including a .env file in the working directory)
//  3. Repository-specific configuration
//  4. Global configuration file (YAML or TOML)
//  5. Built-in defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sirseerhq/sirseer-report/internal/github"
	"github.com/sirseerhq/sirseer-report/internal/logger"
)

// DotEnvFile is loaded from the working directory when present. Variables
// already set in the environment are not overwritten.
const DotEnvFile = ".env"

// LoadConfig loads configuration from multiple sources and applies them in
// the correct precedence order. If configPath is provided, it loads from
// that specific file. Otherwise, it searches standard locations:
//   - .sirseer-report.yaml, .sirseer-report.yml, .sirseer-report.toml
//     (current directory)
//   - ~/.sirseer/config.yaml, ~/.sirseer/config.yml, ~/.sirseer/config.toml
//
// Environment variables are applied after loading the config file, allowing
// runtime overrides. Path expansion (~ and environment variables) is performed
// on directory paths.
//
// Returns an error if the specified config file cannot be loaded, but will
// succeed with defaults if no config file is found in standard locations.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if err := loadConfigFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		for _, path := range defaultPaths() {
			if _, err := os.Stat(path); err == nil {
				if err := loadConfigFile(path, cfg); err != nil {
					return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
				}
				break
			}
		}
	}

	if err := loadDotEnv(DotEnvFile); err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	cfg.Defaults.CacheDir = expandPath(cfg.Defaults.CacheDir)

	return cfg, nil
}

// LoadConfigForRepo loads configuration and applies repository-specific
// overrides. The repo parameter should be in "owner/repo" format.
func LoadConfigForRepo(configPath, repo string) (*Config, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if repoConfig, ok := cfg.Repositories[repo]; ok {
		if repoConfig.ChunkSize > 0 {
			cfg.Defaults.ChunkSize = repoConfig.ChunkSize
		}
	}

	return cfg, nil
}

func defaultPaths() []string {
	home, _ := os.UserHomeDir()
	return []string{
		".sirseer-report.yaml",
		".sirseer-report.yml",
		".sirseer-report.toml",
		filepath.Join(home, ".sirseer", "config.yaml"),
		filepath.Join(home, ".sirseer", "config.yml"),
		filepath.Join(home, ".sirseer", "config.toml"),
	}
}

// loadConfigFile reads and parses a config file. Files ending in .toml are
// parsed as TOML; everything else as YAML.
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		return nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

// loadDotEnv loads path into the environment if it exists.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
// Malformed numeric or duration values are reported rather than ignored.
func applyEnvOverrides(cfg *Config) error {
	if endpoint := os.Getenv("GITHUB_GRAPHQL_ENDPOINT"); endpoint != "" {
		cfg.GitHub.GraphQLEndpoint = endpoint
	}

	if chunkSize := os.Getenv("SIRSEER_CHUNK_SIZE"); chunkSize != "" {
		size, err := parsePositiveInt(chunkSize)
		if err != nil {
			return fmt.Errorf("invalid SIRSEER_CHUNK_SIZE: %w", err)
		}
		cfg.Defaults.ChunkSize = size
	}
	if cacheDir := os.Getenv("SIRSEER_CACHE_DIR"); cacheDir != "" {
		cfg.Defaults.CacheDir = cacheDir
	}
	if timeout := os.Getenv("SIRSEER_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("invalid SIRSEER_TIMEOUT: %w", err)
		}
		cfg.Defaults.Timeout = d
	}

	if retries := os.Getenv("SIRSEER_MAX_RETRIES"); retries != "" {
		var n int
		if _, err := fmt.Sscanf(retries, "%d", &n); err != nil {
			return fmt.Errorf("invalid SIRSEER_MAX_RETRIES: %w", err)
		}
		cfg.Retry.MaxRetries = n
	}

	if level := os.Getenv("SIRSEER_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if format := os.Getenv("SIRSEER_LOG_FORMAT"); format != "" {
		cfg.Log.Format = format
	}

	if ns := os.Getenv("SIRSEER_CACHE_NAMESPACE"); ns != "" {
		cfg.Cache.Namespace = ns
	}
	if maxAge := os.Getenv("SIRSEER_CACHE_MAX_AGE"); maxAge != "" {
		d, err := time.ParseDuration(maxAge)
		if err != nil {
			return fmt.Errorf("invalid SIRSEER_CACHE_MAX_AGE: %w", err)
		}
		cfg.Cache.MaxAge = d
	}
	if disabled := os.Getenv("SIRSEER_CACHE_DISABLED"); disabled != "" {
		cfg.Cache.Disabled = parseBool(disabled)
	}

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home := os.Getenv("HOME")
		if home == "" {
			home = os.Getenv("USERPROFILE") // Windows
		}
		path = filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// parsePositiveInt parses a string to a positive integer
func parsePositiveInt(s string) (int, error) {
	var i int
	_, err := fmt.Sscanf(s, "%d", &i)
	if err != nil {
		return 0, fmt.Errorf("failed to parse integer from '%s': %w", s, err)
	}
	if i <= 0 {
		return 0, fmt.Errorf("value must be positive, got: %d", i)
	}
	return i, nil
}

// parseBool parses various boolean representations
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "yes" || s == "1" || s == "on"
}

// GetChunkSize returns the effective page size for a repository, taking
// into account repository-specific overrides.
func (c *Config) GetChunkSize(repo string) int {
	if repoConfig, ok := c.Repositories[repo]; ok && repoConfig.ChunkSize > 0 {
		return repoConfig.ChunkSize
	}
	return c.Defaults.ChunkSize
}

// Validate checks if the configuration contains valid values. It ensures
// page sizes are within GitHub's limits, the endpoint is not empty, and
// other constraints are met. This should be called after loading configuration
// to catch invalid settings early.
func (c *Config) Validate() error {
	if c.Defaults.ChunkSize <= 0 {
		return fmt.Errorf("default chunk size must be positive, got: %d", c.Defaults.ChunkSize)
	}
	if c.Defaults.ChunkSize > github.MaxPageSize {
		return fmt.Errorf("default chunk size %d exceeds GitHub API limit of %d", c.Defaults.ChunkSize, github.MaxPageSize)
	}
	for repo, rc := range c.Repositories {
		if rc.ChunkSize < 0 || rc.ChunkSize > github.MaxPageSize {
			return fmt.Errorf("chunk size %d for %s must be between 1 and %d", rc.ChunkSize, repo, github.MaxPageSize)
		}
	}
	if c.GitHub.GraphQLEndpoint == "" {
		return fmt.Errorf("GitHub GraphQL endpoint cannot be empty")
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got: %d", c.Retry.MaxRetries)
	}
	if c.Defaults.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got: %s", c.Defaults.Timeout)
	}
	if c.Log.Level != "" && !logger.ValidLevel(c.Log.Level) {
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	if c.Log.Format != "" && !logger.ValidFormat(c.Log.Format) {
		return fmt.Errorf("unknown log format %q (want auto, console or json)", c.Log.Format)
	}
	return nil
}
