// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dotandev/wasmdec/internal/errors"
)

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Config represents the general configuration for wasmdec
type Config struct {
	LogLevel string `json:"log_level,omitempty"`
	// CachePath is the directory that holds the sqlite decompilation cache.
	CachePath string `json:"cache_path,omitempty"`
	// CacheMaxEntries bounds the cache before LRU pruning kicks in.
	CacheMaxEntries int `json:"cache_max_entries,omitempty"`
	// Workers bounds the per-module decompilation pool. Zero means GOMAXPROCS.
	Workers int `json:"workers,omitempty"`
	// Telemetry enables OTLP trace export for pipeline stages.
	// Set via telemetry = true in config or WASMDEC_TELEMETRY=true.
	Telemetry bool `json:"telemetry,omitempty"`
	// TelemetryURL is the OTLP HTTP collector endpoint.
	TelemetryURL string `json:"telemetry_url,omitempty"`
	// CrashReporting enables opt-in anonymous crash reporting.
	// Set via crash_reporting = true in config or WASMDEC_CRASH_REPORTING=true.
	CrashReporting bool `json:"crash_reporting,omitempty"`
	// CrashEndpoint is a custom HTTPS URL that receives JSON crash reports.
	CrashEndpoint string `json:"crash_endpoint,omitempty"`
	// CrashSentryDSN is a Sentry Data Source Name for crash reporting.
	CrashSentryDSN string `json:"crash_sentry_dsn,omitempty"`
}

var defaultConfig = &Config{
	LogLevel:        "info",
	CachePath:       filepath.Join(os.ExpandEnv("$HOME"), ".wasmdec", "cache"),
	CacheMaxEntries: 256,
	Workers:         0,
	TelemetryURL:    "localhost:4318",
}

// GetConfigPath returns the wasmdec configuration directory
func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.WrapConfigError("failed to resolve home directory", err)
	}
	return filepath.Join(home, ".wasmdec"), nil
}

// GetGeneralConfigPath returns the path to the general configuration file
func GetGeneralConfigPath() (string, error) {
	configDir, err := GetConfigPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// LoadConfig loads the general configuration from disk (JSON format)
func LoadConfig() (*Config, error) {
	configPath, err := GetGeneralConfigPath()
	if err != nil {
		return nil, err
	}

	// If file doesn't exist, return default config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.WrapConfigError("failed to read config file", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, errors.WrapConfigError("failed to parse config file", err)
	}

	return config, nil
}

// Load loads the configuration from TOML files and WASMDEC_* environment
// variables. Environment variables take precedence over file values.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.loadFromFile(); err != nil {
		return nil, err
	}

	cfg.LogLevel = getEnv("WASMDEC_LOG_LEVEL", cfg.LogLevel)
	cfg.CachePath = getEnv("WASMDEC_CACHE_PATH", cfg.CachePath)
	cfg.CacheMaxEntries = getEnvInt("WASMDEC_CACHE_MAX_ENTRIES", cfg.CacheMaxEntries)
	cfg.Workers = getEnvInt("WASMDEC_WORKERS", cfg.Workers)
	cfg.TelemetryURL = getEnv("WASMDEC_TELEMETRY_URL", cfg.TelemetryURL)
	cfg.CrashEndpoint = getEnv("WASMDEC_CRASH_ENDPOINT", cfg.CrashEndpoint)
	cfg.CrashSentryDSN = getEnv("WASMDEC_SENTRY_DSN", cfg.CrashSentryDSN)

	// Boolean env vars only override when actually set, so a file-enabled
	// flag survives an absent variable.
	if _, ok := os.LookupEnv("WASMDEC_TELEMETRY"); ok {
		cfg.Telemetry = envBool("WASMDEC_TELEMETRY")
	}
	if _, ok := os.LookupEnv("WASMDEC_CRASH_REPORTING"); ok {
		cfg.CrashReporting = envBool("WASMDEC_CRASH_REPORTING")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFromFile() error {
	paths := []string{
		".wasmdec.toml",
		filepath.Join(os.ExpandEnv("$HOME"), ".wasmdec.toml"),
		"/etc/wasmdec/config.toml",
	}

	for _, path := range paths {
		if err := c.loadTOML(path); err == nil {
			return nil
		}
	}

	return nil
}

func (c *Config) loadTOML(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return c.parseTOML(string(data))
}

func (c *Config) parseTOML(content string) error {
	lines := strings.Split(content, "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), "\"'")

		switch key {
		case "log_level":
			c.LogLevel = value
		case "cache_path":
			c.CachePath = value
		case "cache_max_entries":
			if n, err := strconv.Atoi(value); err == nil {
				c.CacheMaxEntries = n
			}
		case "workers":
			if n, err := strconv.Atoi(value); err == nil {
				c.Workers = n
			}
		case "telemetry":
			c.Telemetry = value == "true" || value == "1" || value == "yes"
		case "telemetry_url":
			c.TelemetryURL = value
		case "crash_reporting":
			c.CrashReporting = value == "true" || value == "1" || value == "yes"
		case "crash_endpoint":
			c.CrashEndpoint = value
		case "crash_sentry_dsn":
			c.CrashSentryDSN = value
		}
	}

	return nil
}

// SaveConfig saves the configuration to disk (JSON format)
func SaveConfig(config *Config) error {
	configPath, err := GetGeneralConfigPath()
	if err != nil {
		return err
	}

	// Ensure config directory exists
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return errors.WrapConfigError("failed to create config directory", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return errors.WrapConfigError("failed to marshal config", err)
	}

	// Write with restricted permissions (owner only)
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return errors.WrapConfigError("failed to write config file", err)
	}

	return nil
}

func (c *Config) Validate() error {
	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("%w: log_level %q. Must be one of: debug, info, warn, error",
			errors.ErrConfigInvalid, c.LogLevel)
	}

	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", errors.ErrConfigInvalid)
	}

	if c.CacheMaxEntries < 0 {
		return fmt.Errorf("%w: cache_max_entries must not be negative", errors.ErrConfigInvalid)
	}

	return nil
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{LogLevel: %s, CachePath: %s, Workers: %d}",
		c.LogLevel, c.CachePath, c.Workers,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func DefaultConfig() *Config {
	cfg := *defaultConfig
	return &cfg
}

func (c *Config) WithLogLevel(level string) *Config {
	c.LogLevel = level
	return c
}

func (c *Config) WithCachePath(path string) *Config {
	c.CachePath = path
	return c
}

func (c *Config) WithWorkers(n int) *Config {
	c.Workers = n
	return c
}
