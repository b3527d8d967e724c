package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvBaseURL, "")
	t.Setenv(EnvHTTPTimeout, "")
	t.Setenv(EnvSessionFile, filepath.Join(t.TempDir(), "s.json"))

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("expected %q, got %q", DefaultBaseURL, cfg.BaseURL)
	}
	if cfg.HTTPTimeout != DefaultHTTPTimeout {
		t.Errorf("expected %v, got %v", DefaultHTTPTimeout, cfg.HTTPTimeout)
	}
}

func TestLoadDotEnv(t *testing.T) {
	t.Setenv(EnvSessionFile, filepath.Join(t.TempDir(), "s.json"))
	t.Setenv(EnvBaseURL, "")
	os.Unsetenv(EnvBaseURL)
	t.Setenv(EnvHTTPTimeout, "")
	os.Unsetenv(EnvHTTPTimeout)

	env := filepath.Join(t.TempDir(), ".env")
	os.WriteFile(env, []byte("RESALE_API_BASE_URL=https://shop.example.com/\nRESALE_HTTP_TIMEOUT=5s\n"), 0o600)

	cfg, err := Load(env)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != "https://shop.example.com" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.BaseURL)
	}
	if cfg.HTTPTimeout != 5*time.Second {
		t.Errorf("expected 5s, got %v", cfg.HTTPTimeout)
	}
}

func TestValidate(t *testing.T) {
	bad := []Config{
		{BaseURL: "ftp://x", SessionFile: "s", HTTPTimeout: time.Second},
		{BaseURL: "http://x", SessionFile: "", HTTPTimeout: time.Second},
		{BaseURL: "http://x", SessionFile: "s", HTTPTimeout: 0},
	}
	for _, c := range bad {
		if err := c.Validate(); err == nil {
			t.Errorf("expected %+v to be invalid", c)
		}
	}
}
