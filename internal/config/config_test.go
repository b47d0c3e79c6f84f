// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LogLevel == "" {
		t.Error("expected non-empty LogLevel")
	}

	if cfg.CachePath == "" {
		t.Error("expected non-empty CachePath")
	}

	if cfg.CacheMaxEntries <= 0 {
		t.Error("expected positive CacheMaxEntries")
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{
			"valid debug level",
			&Config{LogLevel: "debug"},
			false,
		},
		{
			"valid info level",
			&Config{LogLevel: "info"},
			false,
		},
		{
			"empty log level",
			&Config{LogLevel: ""},
			false,
		},
		{
			"invalid log level",
			&Config{LogLevel: "loud"},
			true,
		},
		{
			"negative workers",
			&Config{LogLevel: "info", Workers: -1},
			true,
		},
		{
			"negative cache bound",
			&Config{LogLevel: "info", CacheMaxEntries: -10},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigBuilder(t *testing.T) {
	cfg := DefaultConfig().
		WithLogLevel("debug").
		WithCachePath("/custom/cache").
		WithWorkers(4)

	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.LogLevel)
	}

	if cfg.CachePath != "/custom/cache" {
		t.Errorf("expected cache path /custom/cache, got %s", cfg.CachePath)
	}

	if cfg.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Workers)
	}
}

func TestConfigString(t *testing.T) {
	cfg := DefaultConfig().WithLogLevel("warn")
	str := cfg.String()

	if !strings.Contains(str, "warn") {
		t.Error("expected LogLevel in string representation")
	}
}

func TestParseTOML(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    *Config
	}{
		{
			"simple TOML",
			`log_level = "debug"
cache_path = "/custom/cache"`,
			&Config{LogLevel: "debug", CachePath: "/custom/cache"},
		},
		{
			"TOML with comments",
			`# Configuration
log_level = "warn"
# Worker pool
workers = 8`,
			&Config{LogLevel: "warn", Workers: 8},
		},
		{
			"TOML with all fields",
			`log_level = "debug"
cache_path = "/custom/cache"
cache_max_entries = 128
workers = 2
telemetry = true
telemetry_url = "collector:4318"`,
			&Config{
				LogLevel:        "debug",
				CachePath:       "/custom/cache",
				CacheMaxEntries: 128,
				Workers:         2,
				Telemetry:       true,
				TelemetryURL:    "collector:4318",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			err := cfg.parseTOML(tt.content)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if cfg.LogLevel != tt.want.LogLevel {
				t.Errorf("LogLevel: expected %s, got %s", tt.want.LogLevel, cfg.LogLevel)
			}

			if cfg.CachePath != tt.want.CachePath {
				t.Errorf("CachePath: expected %s, got %s", tt.want.CachePath, cfg.CachePath)
			}

			if cfg.CacheMaxEntries != tt.want.CacheMaxEntries {
				t.Errorf("CacheMaxEntries: expected %d, got %d", tt.want.CacheMaxEntries, cfg.CacheMaxEntries)
			}

			if cfg.Workers != tt.want.Workers {
				t.Errorf("Workers: expected %d, got %d", tt.want.Workers, cfg.Workers)
			}

			if cfg.Telemetry != tt.want.Telemetry {
				t.Errorf("Telemetry: expected %v, got %v", tt.want.Telemetry, cfg.Telemetry)
			}

			if cfg.TelemetryURL != tt.want.TelemetryURL {
				t.Errorf("TelemetryURL: expected %s, got %s", tt.want.TelemetryURL, cfg.TelemetryURL)
			}
		})
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	origLog := os.Getenv("WASMDEC_LOG_LEVEL")
	origWorkers := os.Getenv("WASMDEC_WORKERS")

	defer func() {
		os.Setenv("WASMDEC_LOG_LEVEL", origLog)
		os.Setenv("WASMDEC_WORKERS", origWorkers)
	}()

	os.Setenv("WASMDEC_LOG_LEVEL", "debug")
	os.Setenv("WASMDEC_WORKERS", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("expected LogLevel from env, got %s", cfg.LogLevel)
	}

	if cfg.Workers != 3 {
		t.Errorf("expected Workers from env, got %d", cfg.Workers)
	}
}

func TestLoadTOMLFile(t *testing.T) {
	tmpdir := t.TempDir()
	configPath := filepath.Join(tmpdir, "test.toml")

	content := `log_level = "error"
cache_path = "/file/cache"`

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	cfg := &Config{}
	err := cfg.loadTOML(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.LogLevel != "error" {
		t.Errorf("expected LogLevel from file, got %s", cfg.LogLevel)
	}

	if cfg.CachePath != "/file/cache" {
		t.Errorf("expected CachePath from file, got %s", cfg.CachePath)
	}
}

func TestConfigCopy(t *testing.T) {
	original := DefaultConfig().
		WithLogLevel("debug").
		WithCachePath("/cache")

	copy := &Config{
		LogLevel:  original.LogLevel,
		CachePath: original.CachePath,
		Workers:   original.Workers,
	}

	if original.LogLevel != copy.LogLevel {
		t.Error("LogLevel mismatch in copy")
	}

	copy.LogLevel = "info"
	if original.LogLevel == copy.LogLevel {
		t.Error("copy should not affect original")
	}
}

func BenchmarkConfigValidation(b *testing.B) {
	cfg := DefaultConfig()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cfg.Validate()
	}
}

func BenchmarkParseTOML(b *testing.B) {
	content := `log_level = "info"
cache_path = "/cache"
cache_max_entries = 64
workers = 4`

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cfg := &Config{}
		_ = cfg.parseTOML(content)
	}
}

// ---- Crash reporting config -------------------------------------------------

func TestParseTOML_CrashReportingFields(t *testing.T) {
	content := `log_level = "info"
crash_reporting = true
crash_endpoint = "https://custom.example.com/crash"
crash_sentry_dsn = "https://key@o0.ingest.sentry.io/1"`

	cfg := &Config{}
	if err := cfg.parseTOML(content); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !cfg.CrashReporting {
		t.Error("expected CrashReporting=true")
	}
	if cfg.CrashEndpoint != "https://custom.example.com/crash" {
		t.Errorf("expected CrashEndpoint from TOML, got %q", cfg.CrashEndpoint)
	}
	if cfg.CrashSentryDSN != "https://key@o0.ingest.sentry.io/1" {
		t.Errorf("expected CrashSentryDSN from TOML, got %q", cfg.CrashSentryDSN)
	}
}

func TestParseTOML_CrashReportingDisabledByDefault(t *testing.T) {
	cfg := &Config{}
	if err := cfg.parseTOML(`log_level = "info"`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.CrashReporting {
		t.Error("CrashReporting should default to false")
	}
	if cfg.CrashEndpoint != "" {
		t.Errorf("CrashEndpoint should default to empty, got %q", cfg.CrashEndpoint)
	}
	if cfg.CrashSentryDSN != "" {
		t.Errorf("CrashSentryDSN should default to empty, got %q", cfg.CrashSentryDSN)
	}
}

func TestLoad_CrashReportingEnvVars(t *testing.T) {
	keys := []string{
		"WASMDEC_CRASH_REPORTING",
		"WASMDEC_CRASH_ENDPOINT",
		"WASMDEC_SENTRY_DSN",
	}
	orig := make(map[string]string, len(keys))
	for _, k := range keys {
		orig[k] = os.Getenv(k)
	}
	defer func() {
		for k, v := range orig {
			os.Setenv(k, v)
		}
	}()

	os.Setenv("WASMDEC_CRASH_REPORTING", "true")
	os.Setenv("WASMDEC_CRASH_ENDPOINT", "https://custom.example.com/crash")
	os.Setenv("WASMDEC_SENTRY_DSN", "https://key@o0.ingest.sentry.io/2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !cfg.CrashReporting {
		t.Error("expected CrashReporting=true from WASMDEC_CRASH_REPORTING")
	}
	if cfg.CrashEndpoint != "https://custom.example.com/crash" {
		t.Errorf("expected CrashEndpoint from env, got %q", cfg.CrashEndpoint)
	}
	if cfg.CrashSentryDSN != "https://key@o0.ingest.sentry.io/2" {
		t.Errorf("expected CrashSentryDSN from env, got %q", cfg.CrashSentryDSN)
	}
}

func TestLoad_CrashReportingOffByDefault(t *testing.T) {
	for _, k := range []string{"WASMDEC_CRASH_REPORTING", "WASMDEC_CRASH_ENDPOINT", "WASMDEC_SENTRY_DSN"} {
		os.Unsetenv(k)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.CrashReporting {
		t.Error("CrashReporting should be off by default")
	}
}
