package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv unsets every variable the loader reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range GetEnvVars() {
		t.Setenv(key, "")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("Expected default port 8000, got %s", cfg.Port)
	}
	if cfg.Address != "127.0.0.1" {
		t.Errorf("Expected default address 127.0.0.1, got %s", cfg.Address)
	}
	if cfg.Env != EnvDevelopment {
		t.Errorf("Expected default env dev, got %s", cfg.Env)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level info, got %s", cfg.LogLevel)
	}
	if cfg.LogDir != "logs" {
		t.Errorf("Expected default log dir logs, got %s", cfg.LogDir)
	}
	if cfg.CatalogPath != "" {
		t.Errorf("Expected embedded catalog by default, got %q", cfg.CatalogPath)
	}
	if cfg.AuditInterval != time.Hour {
		t.Errorf("Expected hourly audit, got %v", cfg.AuditInterval)
	}
	if cfg.ListenAddr() != "127.0.0.1:8000" {
		t.Errorf("Unexpected listen address %s", cfg.ListenAddr())
	}
}

func TestLoadValidConfig(t *testing.T) {
	clearEnv(t)
	catalogFile := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(catalogFile, []byte("{}"), 0o644); err != nil {
		t.Fatalf("Failed to write catalog file: %v", err)
	}

	t.Setenv("PORT", "8002")
	t.Setenv("ADDRESS", "10.0.0.4")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("CATALOG_PATH", catalogFile)
	t.Setenv("AUDIT_INTERVAL_MINUTES", "15")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8002" || cfg.Address != "10.0.0.4" {
		t.Errorf("Unexpected bind %s:%s", cfg.Address, cfg.Port)
	}
	if cfg.Env != EnvProduction {
		t.Errorf("Expected env prod, got %s", cfg.Env)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level debug, got %s", cfg.LogLevel)
	}
	if cfg.CatalogPath != catalogFile {
		t.Errorf("Expected catalog path %s, got %s", catalogFile, cfg.CatalogPath)
	}
	if cfg.AuditInterval != 15*time.Minute {
		t.Errorf("Expected 15m audit interval, got %v", cfg.AuditInterval)
	}
}

func TestLoadInvalid(t *testing.T) {
	testCases := []struct {
		key      string
		value    string
		expected string
	}{
		{"PORT", "abc", "PORT must be a valid number"},
		{"PORT", "0", "PORT must be between 1 and 65535"},
		{"PORT", "65536", "PORT must be between 1 and 65535"},
		{"PORT", "80", "PORT 80 is privileged"},
		{"ADDRESS", "invalid", "ADDRESS must be a valid IP address"},
		{"ADDRESS", "8.8.8.8", "is a public IP"},
		{"ENV", "invalid", "ENV must be one of"},
		{"LOG_LEVEL", "invalid", "LOG_LEVEL must be one of"},
		{"LOG_RETENTION_WEEKS", "0", "must be positive"},
		{"LOG_RETENTION_WEEKS", "53", "too large"},
		{"MAX_LOG_FILE_SIZE", "1024", "too small"},
		{"MAX_REQUEST_BODY", "-1", "must be positive"},
		{"MAX_HEADER_SIZE", "209715200", "too large"},
		{"CATALOG_PATH", "/does/not/exist.json", "CATALOG_PATH is not readable"},
		{"AUDIT_INTERVAL_MINUTES", "0", "must be at least 1"},
		{"AUDIT_INTERVAL_MINUTES", "20000", "too large"},
	}

	for _, tc := range testCases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			if err == nil {
				t.Fatalf("Expected error for %s=%s, got nil", tc.key, tc.value)
			}
			if !strings.Contains(err.Error(), tc.expected) {
				t.Errorf("Expected error containing %q, got %v", tc.expected, err)
			}
		})
	}
}

func TestCatalogPathDirectory(t *testing.T) {
	clearEnv(t)
	t.Setenv("CATALOG_PATH", t.TempDir())

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "must be a file") {
		t.Errorf("Expected directory to be rejected, got %v", err)
	}
}

func TestParseEnvironment(t *testing.T) {
	tests := []struct {
		input    string
		expected Environment
		hasError bool
	}{
		{"dev", EnvDevelopment, false},
		{"development", EnvDevelopment, false},
		{"staging", EnvStaging, false},
		{"prod", EnvProduction, false},
		{"production", EnvProduction, false},
		{"Test", EnvTest, false},
		{"invalid", EnvDevelopment, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			env, err := ParseEnvironment(tt.input)
			if tt.hasError {
				if err == nil {
					t.Errorf("Expected error for %s, got none", tt.input)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error for %s: %v", tt.input, err)
			}
			if env != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, env)
			}
		})
	}
}

func TestEnvironmentString(t *testing.T) {
	tests := []struct {
		env      Environment
		expected string
	}{
		{EnvDevelopment, "dev"},
		{EnvStaging, "staging"},
		{EnvProduction, "prod"},
		{EnvTest, "test"},
	}

	for _, tt := range tests {
		if got := tt.env.String(); got != tt.expected {
			t.Errorf("Expected %s, got %s", tt.expected, got)
		}
	}
}
