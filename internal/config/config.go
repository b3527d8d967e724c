// Package config loads the client configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables.
const (
	EnvBaseURL     = "RESALE_API_BASE_URL"
	EnvSessionFile = "RESALE_SESSION_FILE"
	EnvHTTPTimeout = "RESALE_HTTP_TIMEOUT"
)

// Defaults.
const (
	DefaultBaseURL     = "http://localhost:3000"
	DefaultHTTPTimeout = 30 * time.Second
)

// Config holds the client settings.
type Config struct {
	BaseURL     string
	SessionFile string
	HTTPTimeout time.Duration
}

// Load reads .env files (if present) and then the environment. Variables
// already set in the environment win over .env entries.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	cfg := &Config{
		BaseURL:     strings.TrimRight(getEnv(EnvBaseURL, DefaultBaseURL), "/"),
		SessionFile: getEnv(EnvSessionFile, defaultSessionFile()),
		HTTPTimeout: getEnvAsDuration(EnvHTTPTimeout, DefaultHTTPTimeout),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", EnvBaseURL, c.BaseURL)
	}
	if c.SessionFile == "" {
		return fmt.Errorf("%s is required", EnvSessionFile)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvHTTPTimeout)
	}
	return nil
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "resale", "session.json")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
