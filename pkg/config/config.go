package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/unklstewy/ads-bcoverage/pkg/coverage"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Feed     FeedConfig     `json:"feed"`
	Coverage CoverageConfig `json:"coverage"`
	Auth     AuthConfig     `json:"auth"`
	Logging  LoggingConfig  `json:"logging"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Port is the HTTP server port (default: 8080)
	Port string `json:"port"`

	// Host is the server bind address (default: "0.0.0.0")
	Host string `json:"host"`

	// TLSEnabled determines if HTTPS should be used
	TLSEnabled bool `json:"tls_enabled"`

	// TLSCertFile is the path to the TLS certificate
	TLSCertFile string `json:"tls_cert_file"`

	// TLSKeyFile is the path to the TLS private key
	TLSKeyFile string `json:"tls_key_file"`

	// ReadTimeoutSeconds and WriteTimeoutSeconds bound each request
	ReadTimeoutSeconds  int `json:"read_timeout_seconds"`
	WriteTimeoutSeconds int `json:"write_timeout_seconds"`

	// AllowedOrigins for CORS (default: all)
	AllowedOrigins []string `json:"allowed_origins"`
}

// FeedConfig contains station feed settings.
type FeedConfig struct {
	// URL is the station performance feed endpoint
	URL string `json:"url"`

	// APIKey is passed as the "key" query parameter.
	// Keep it out of config files; use ADS_BCOVERAGE_FEED_KEY.
	APIKey string `json:"api_key,omitempty"`

	// File loads a saved feed document instead of calling URL
	File string `json:"file,omitempty"`

	// TimeoutSeconds bounds a single feed request
	TimeoutSeconds int `json:"timeout_seconds"`

	// RequestsPerMinute limits how often the feed is requested
	RequestsPerMinute float64 `json:"requests_per_minute"`

	// RefreshIntervalSeconds is how often the station set is rebuilt
	RefreshIntervalSeconds int `json:"refresh_interval_seconds"`

	// MaxRetries for transient feed failures
	MaxRetries int `json:"max_retries"`
}

// CoverageConfig contains coverage engine settings.
type CoverageConfig struct {
	// Containment is "planar" (map-plane test, default) or "spherical"
	Containment string `json:"containment"`

	// RingRadiiNM are the reference range rings drawn around a station
	RingRadiiNM []float64 `json:"ring_radii_nm"`

	// RingSegments is the number of vertices per ring
	RingSegments int `json:"ring_segments"`

	// QueryCacheSize is the number of cached coverage answers (0 disables)
	QueryCacheSize int `json:"query_cache_size"`

	// BuildWorkers caps parallel station construction (0 = GOMAXPROCS)
	BuildWorkers int `json:"build_workers"`
}

// AuthConfig contains admin authentication settings.
type AuthConfig struct {
	// AdminUsername may trigger a forced reload
	AdminUsername string `json:"admin_username"`

	// AdminPasswordHash is a bcrypt hash. Empty disables login.
	AdminPasswordHash string `json:"admin_password_hash,omitempty"`

	// JWTSecret signs admin tokens (use ADS_BCOVERAGE_JWT_SECRET)
	JWTSecret string `json:"jwt_secret,omitempty"`

	// TokenDurationMinutes is the admin token lifetime
	TokenDurationMinutes int `json:"token_duration_minutes"`
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	// Level is debug, info, warn or error
	Level string `json:"level"`

	// Format is "console" or "json"
	Format string `json:"format"`

	// File enables rotated file output in addition to stderr
	File string `json:"file,omitempty"`

	MaxSizeMB  int `json:"max_size_mb"`
	MaxBackups int `json:"max_backups"`
	MaxAgeDays int `json:"max_age_days"`
}

// Load reads configuration from a JSON file.
// If the file doesn't exist, returns a default configuration.
// Fields missing from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg.applyEnvironmentOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvironmentOverrides()

	return cfg, nil
}

// Save writes the configuration to a JSON file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                "8080",
			Host:                "0.0.0.0",
			ReadTimeoutSeconds:  15,
			WriteTimeoutSeconds: 30,
			AllowedOrigins:      []string{"*"},
		},
		Feed: FeedConfig{
			URL:                    "https://1090mhz.uk/station_perf.php",
			TimeoutSeconds:         15,
			RequestsPerMinute:      6,
			RefreshIntervalSeconds: 300,
			MaxRetries:             3,
		},
		Coverage: CoverageConfig{
			Containment:    coverage.Planar.String(),
			RingRadiiNM:    []float64{100, 200, 300},
			RingSegments:   coverage.DefaultRingSegments,
			QueryCacheSize: coverage.DefaultCacheSize,
		},
		Auth: AuthConfig{
			AdminUsername:        "admin",
			TokenDurationMinutes: 60,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
	}
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	var errs []error

	if c.Feed.URL == "" && c.Feed.File == "" {
		errs = append(errs, errors.New("feed: url or file is required"))
	}
	if c.Feed.RefreshIntervalSeconds <= 0 {
		errs = append(errs, fmt.Errorf("feed: refresh_interval_seconds must be positive, got %d", c.Feed.RefreshIntervalSeconds))
	}
	if c.Feed.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("feed: timeout_seconds must be positive, got %d", c.Feed.TimeoutSeconds))
	}
	if c.Feed.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("feed: max_retries must not be negative, got %d", c.Feed.MaxRetries))
	}
	if _, err := coverage.ParseContainment(c.Coverage.Containment); err != nil {
		errs = append(errs, fmt.Errorf("coverage: %w", err))
	}
	for _, r := range c.Coverage.RingRadiiNM {
		if r <= 0 || r > coverage.MaxRingRadiusNM {
			errs = append(errs, fmt.Errorf("coverage: ring radius %v out of range", r))
		}
	}
	if c.Coverage.QueryCacheSize < 0 || c.Coverage.BuildWorkers < 0 {
		errs = append(errs, errors.New("coverage: query_cache_size and build_workers must not be negative"))
	}
	if c.Auth.AdminPasswordHash != "" && c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth: jwt_secret is required when admin login is enabled"))
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging: unknown format %q", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// ContainmentMode returns the parsed containment mode. Call Validate first.
func (c *CoverageConfig) ContainmentMode() coverage.Containment {
	mode, err := coverage.ParseContainment(c.Containment)
	if err != nil {
		return coverage.Planar
	}
	return mode
}

// RefreshInterval returns the feed refresh period.
func (c *FeedConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSeconds) * time.Second
}

// Timeout returns the per-request feed timeout.
func (c *FeedConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TokenDuration returns the admin token lifetime.
func (c *AuthConfig) TokenDuration() time.Duration {
	return time.Duration(c.TokenDurationMinutes) * time.Minute
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
// This allows secrets like the feed key to be kept out of config files.
func (c *Config) applyEnvironmentOverrides() {
	if port := os.Getenv("ADS_BCOVERAGE_PORT"); port != "" {
		c.Server.Port = port
	}
	if url := os.Getenv("ADS_BCOVERAGE_FEED_URL"); url != "" {
		c.Feed.URL = url
	}
	if key := os.Getenv("ADS_BCOVERAGE_FEED_KEY"); key != "" {
		c.Feed.APIKey = key
	}
	if secret := os.Getenv("ADS_BCOVERAGE_JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
	if hash := os.Getenv("ADS_BCOVERAGE_ADMIN_PASSWORD_HASH"); hash != "" {
		c.Auth.AdminPasswordHash = hash
	}
	if level := os.Getenv("ADS_BCOVERAGE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}
