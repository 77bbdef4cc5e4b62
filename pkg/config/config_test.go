package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/unklstewy/ads-bcoverage/pkg/coverage"
)

// TestDefaultConfig verifies that DefaultConfig returns valid defaults.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Server defaults
	if cfg.Server.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Expected default host 0.0.0.0, got %s", cfg.Server.Host)
	}
	if cfg.Server.TLSEnabled {
		t.Error("Expected TLS disabled by default")
	}

	// Feed defaults
	if cfg.Feed.URL != "https://1090mhz.uk/station_perf.php" {
		t.Errorf("Expected default feed URL, got %s", cfg.Feed.URL)
	}
	if cfg.Feed.APIKey != "" {
		t.Error("Expected no feed key in defaults")
	}
	if cfg.Feed.RefreshInterval() != 5*time.Minute {
		t.Errorf("Expected 5m refresh interval, got %v", cfg.Feed.RefreshInterval())
	}

	// Coverage defaults
	if cfg.Coverage.ContainmentMode() != coverage.Planar {
		t.Errorf("Expected planar containment, got %v", cfg.Coverage.ContainmentMode())
	}
	if len(cfg.Coverage.RingRadiiNM) != 3 {
		t.Errorf("Expected 3 reference rings, got %d", len(cfg.Coverage.RingRadiiNM))
	}

	// Auth defaults
	if cfg.Auth.TokenDuration() != time.Hour {
		t.Errorf("Expected 1h token duration, got %v", cfg.Auth.TokenDuration())
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

// TestLoadNonExistentFile tests that Load returns default config when file doesn't exist.
func TestLoadNonExistentFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.json")
	if err != nil {
		t.Fatalf("Expected no error for non-existent file, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected default config, got nil")
	}
	if cfg.Server.Port != "8080" {
		t.Error("Did not get default config for non-existent file")
	}
}

// TestLoadPartialConfig tests that fields missing from the file keep defaults.
func TestLoadPartialConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "partial.json")
	data := `{"server": {"port": "9090"}, "coverage": {"containment": "spherical"}}`
	if err := os.WriteFile(configPath, []byte(data), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Expected default host to survive, got %s", cfg.Server.Host)
	}
	if cfg.Coverage.ContainmentMode() != coverage.Spherical {
		t.Errorf("Expected spherical containment, got %v", cfg.Coverage.ContainmentMode())
	}
	if cfg.Feed.MaxRetries != 3 {
		t.Errorf("Expected default max retries 3, got %d", cfg.Feed.MaxRetries)
	}
}

// TestLoadInvalidJSON tests error handling for malformed JSON.
func TestLoadInvalidJSON(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.json")
	if err := os.WriteFile(configPath, []byte("{ invalid json }"), 0644); err != nil {
		t.Fatalf("Failed to write invalid config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Expected error for invalid JSON, got nil")
	}
	if !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("Expected parse error, got: %v", err)
	}
}

// TestSaveConfig tests saving configuration to file and loading it back.
func TestSaveConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "dir", "config.json")

	cfg := DefaultConfig()
	cfg.Server.Port = "9999"
	cfg.Coverage.RingRadiiNM = []float64{50, 150}

	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}

	if loaded.Server.Port != "9999" {
		t.Errorf("Expected port 9999, got %s", loaded.Server.Port)
	}
	if len(loaded.Coverage.RingRadiiNM) != 2 || loaded.Coverage.RingRadiiNM[1] != 150 {
		t.Errorf("Expected rings [50 150], got %v", loaded.Coverage.RingRadiiNM)
	}
}

// TestEnvironmentOverrides tests environment variable overrides.
func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("ADS_BCOVERAGE_PORT", "7777")
	t.Setenv("ADS_BCOVERAGE_FEED_URL", "http://feed.local/perf")
	t.Setenv("ADS_BCOVERAGE_FEED_KEY", "env-feed-key")
	t.Setenv("ADS_BCOVERAGE_JWT_SECRET", "env-secret")
	t.Setenv("ADS_BCOVERAGE_ADMIN_PASSWORD_HASH", "$2a$10$hash")
	t.Setenv("ADS_BCOVERAGE_LOG_LEVEL", "debug")

	configPath := filepath.Join(t.TempDir(), "config.json")
	if err := DefaultConfig().Save(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != "7777" {
		t.Errorf("Expected port 7777 from env, got %s", cfg.Server.Port)
	}
	if cfg.Feed.URL != "http://feed.local/perf" {
		t.Errorf("Expected feed URL from env, got %s", cfg.Feed.URL)
	}
	if cfg.Feed.APIKey != "env-feed-key" {
		t.Errorf("Expected feed key from env, got %s", cfg.Feed.APIKey)
	}
	if cfg.Auth.JWTSecret != "env-secret" {
		t.Errorf("Expected JWT secret from env, got %s", cfg.Auth.JWTSecret)
	}
	if cfg.Auth.AdminPasswordHash != "$2a$10$hash" {
		t.Errorf("Expected password hash from env, got %s", cfg.Auth.AdminPasswordHash)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected debug log level from env, got %s", cfg.Logging.Level)
	}
}

// TestValidate tests rejection of unusable settings.
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"No feed", func(c *Config) { c.Feed.URL = "" }},
		{"Zero refresh interval", func(c *Config) { c.Feed.RefreshIntervalSeconds = 0 }},
		{"Zero timeout", func(c *Config) { c.Feed.TimeoutSeconds = 0 }},
		{"Negative retries", func(c *Config) { c.Feed.MaxRetries = -1 }},
		{"Unknown containment", func(c *Config) { c.Coverage.Containment = "geodesic" }},
		{"Negative ring", func(c *Config) { c.Coverage.RingRadiiNM = []float64{-5} }},
		{"Negative cache", func(c *Config) { c.Coverage.QueryCacheSize = -1 }},
		{"Login without secret", func(c *Config) { c.Auth.AdminPasswordHash = "$2a$10$x" }},
		{"Unknown log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	t.Run("File without URL is valid", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Feed.URL = ""
		cfg.Feed.File = "stations.json"
		if err := cfg.Validate(); err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
	})
}
