package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	yaml := `
telegram:
  token: test-token
upstream:
  primary_url: https://demo-api.kalshi.co/trade-api/v2
database:
  host: localhost
  port: 5432
  name: whalewatch
  user: testuser
  password: testpass
poller:
  interval: 5s
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Telegram.Token != "test-token" {
		t.Errorf("Telegram.Token = %q, want %q", cfg.Telegram.Token, "test-token")
	}
	if cfg.Upstream.PrimaryURL != "https://demo-api.kalshi.co/trade-api/v2" {
		t.Errorf("Upstream.PrimaryURL = %q, want %q", cfg.Upstream.PrimaryURL, "https://demo-api.kalshi.co/trade-api/v2")
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("Database.Host = %q, want %q", cfg.Database.Host, "localhost")
	}
	if cfg.Poller.Interval != 5*time.Second {
		t.Errorf("Poller.Interval = %v, want %v", cfg.Poller.Interval, 5*time.Second)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_TG_TOKEN", "secret123")

	yaml := `
telegram:
  token: ${TEST_TG_TOKEN}
database:
  host: localhost
  name: whalewatch
  user: testuser
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Telegram.Token != "secret123" {
		t.Errorf("Telegram.Token = %q, want %q", cfg.Telegram.Token, "secret123")
	}
}

func TestLoadAndValidate(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		yaml := `
telegram:
  token: test-token
database:
  host: localhost
  name: whalewatch
  user: testuser
`
		path := writeTempFile(t, yaml)

		cfg, err := LoadAndValidate(path)
		if err != nil {
			t.Fatalf("LoadAndValidate failed: %v", err)
		}

		if cfg.Upstream.PrimaryURL != DefaultPrimaryURL {
			t.Errorf("Upstream.PrimaryURL = %q, want default %q", cfg.Upstream.PrimaryURL, DefaultPrimaryURL)
		}
		if len(cfg.Upstream.FallbackURLs) != 1 || cfg.Upstream.FallbackURLs[0] != DefaultFallbackURL {
			t.Errorf("Upstream.FallbackURLs = %v, want [%q]", cfg.Upstream.FallbackURLs, DefaultFallbackURL)
		}
		if cfg.Poller.Interval != DefaultPollInterval {
			t.Errorf("Poller.Interval = %v, want %v", cfg.Poller.Interval, DefaultPollInterval)
		}
		if cfg.Poller.FetchLimit != DefaultFetchLimit {
			t.Errorf("Poller.FetchLimit = %d, want %d", cfg.Poller.FetchLimit, DefaultFetchLimit)
		}
		if cfg.Alerts.DefaultThresholdUSD != DefaultThresholdUSD {
			t.Errorf("Alerts.DefaultThresholdUSD = %v, want %v", cfg.Alerts.DefaultThresholdUSD, float64(DefaultThresholdUSD))
		}
		if cfg.Database.Port != DefaultDBPort {
			t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, DefaultDBPort)
		}
		if cfg.Metrics.Port != DefaultMetricsPort {
			t.Errorf("Metrics.Port = %d, want %d", cfg.Metrics.Port, DefaultMetricsPort)
		}
	})

	t.Run("missing telegram token", func(t *testing.T) {
		yaml := `
database:
  host: localhost
  name: whalewatch
  user: testuser
`
		path := writeTempFile(t, yaml)

		_, err := LoadAndValidate(path)
		if err == nil {
			t.Fatal("expected validation error, got nil")
		}
		if !strings.Contains(err.Error(), "telegram.token") {
			t.Errorf("error = %v, want mention of telegram.token", err)
		}
	})

	t.Run("missing database host", func(t *testing.T) {
		yaml := `
telegram:
  token: test-token
database:
  name: whalewatch
  user: testuser
`
		path := writeTempFile(t, yaml)

		_, err := LoadAndValidate(path)
		if err == nil {
			t.Fatal("expected validation error, got nil")
		}
		if !strings.Contains(err.Error(), "database.host") {
			t.Errorf("error = %v, want mention of database.host", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadAndValidate(filepath.Join(t.TempDir(), "nope.yaml"))
		if err == nil {
			t.Fatal("expected error for missing file, got nil")
		}
	})
}

func TestUpstreamHosts(t *testing.T) {
	t.Run("primary then fallbacks", func(t *testing.T) {
		u := UpstreamConfig{
			PrimaryURL:   "https://a.example.com",
			FallbackURLs: []string{"https://b.example.com"},
		}
		hosts := u.Hosts()
		if len(hosts) != 2 || hosts[0] != "https://a.example.com" || hosts[1] != "https://b.example.com" {
			t.Errorf("Hosts() = %v", hosts)
		}
	})

	t.Run("drops duplicate of primary", func(t *testing.T) {
		u := UpstreamConfig{
			PrimaryURL:   "https://a.example.com",
			FallbackURLs: []string{"https://a.example.com", "https://b.example.com"},
		}
		hosts := u.Hosts()
		if len(hosts) != 2 {
			t.Errorf("Hosts() = %v, want 2 entries", hosts)
		}
	})
}
