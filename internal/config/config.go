// Package config loads yanote's configuration from environment variables,
// validates it, and fills in defaults.
//
// A .env file in the working directory is loaded by the CLI before Load runs,
// so every setting here can live there during development.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/kuitang/yanote/internal/ratelimit"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	BaseURL    string `env:"BASE_URL"`

	// Database
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./data/yanote.db"`
	DatabaseKey  string `env:"DATABASE_KEY"` // 64 hex characters; empty leaves the file unencrypted

	// Sessions
	SessionDuration time.Duration `env:"SESSION_DURATION" envDefault:"336h"`
	SecureCookies   *bool         `env:"SECURE_COOKIES"` // nil derives the value from BaseURL

	// Login and signup throttling
	LoginRateLimit ratelimit.Config `envPrefix:"LOGIN_RATE_"`

	// Tracing (opt-in)
	OTelEndpoint string `env:"OTEL_ENDPOINT"`
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Load reads configuration from the environment. A non-empty addr overrides
// LISTEN_ADDR.
func Load(addr string) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if addr = strings.TrimSpace(addr); addr != "" {
		cfg.ListenAddr = addr
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost" + cfg.ListenAddr
	}
	cfg.DatabaseKey = strings.TrimSpace(cfg.DatabaseKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that all required configuration is present and valid. It
// reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.ListenAddr) == "" {
		errs = append(errs, "LISTEN_ADDR must not be empty")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		errs = append(errs, "DATABASE_PATH is required")
	}
	if c.DatabaseKey != "" {
		if len(c.DatabaseKey) != 64 {
			errs = append(errs, "DATABASE_KEY must be 64 hex characters (generate with: openssl rand -hex 32)")
		} else if _, err := hex.DecodeString(c.DatabaseKey); err != nil {
			errs = append(errs, "DATABASE_KEY must be hex encoded")
		}
	}
	if c.SessionDuration <= 0 {
		errs = append(errs, "SESSION_DURATION must be positive")
	}

	if c.LoginRateLimit.RPS <= 0 {
		errs = append(errs, "LOGIN_RATE_RPS must be positive")
	}
	if c.LoginRateLimit.Burst <= 0 {
		errs = append(errs, "LOGIN_RATE_BURST must be positive")
	}
	if c.LoginRateLimit.CleanupInterval <= 0 {
		errs = append(errs, "LOGIN_RATE_CLEANUP_INTERVAL must be positive")
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// RequireSecureCookies reports whether session cookies get the Secure flag.
// SECURE_COOKIES wins when set; otherwise localhost URLs are treated as
// development.
func (c *Config) RequireSecureCookies() bool {
	if c.SecureCookies != nil {
		return *c.SecureCookies
	}
	return !strings.HasPrefix(c.BaseURL, "http://localhost") &&
		!strings.HasPrefix(c.BaseURL, "http://127.0.0.1")
}

// Encrypted reports whether the database is opened with a SQLCipher key.
func (c *Config) Encrypted() bool {
	return c.DatabaseKey != ""
}

// PrintStartupSummary prints a human-readable summary of the configuration to stderr.
func (c *Config) PrintStartupSummary() {
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "yanote server starting...")
	if c.Encrypted() {
		fmt.Fprintf(os.Stderr, "  Database: %s (encrypted)\n", c.DatabasePath)
	} else {
		fmt.Fprintf(os.Stderr, "  Database: %s (plaintext, DATABASE_KEY unset)\n", c.DatabasePath)
	}
	if c.OTelEndpoint != "" {
		fmt.Fprintf(os.Stderr, "  Tracing:  %s\n", c.OTelEndpoint)
	}
	fmt.Fprintf(os.Stderr, "  Listen:   %s\n", c.ListenAddr)
	fmt.Fprintf(os.Stderr, "  Base:     %s\n", c.BaseURL)
	fmt.Fprintln(os.Stderr, "")
}
