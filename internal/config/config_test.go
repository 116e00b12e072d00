package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ALLOW_ORIGINS", "")
	t.Setenv("VEDIC_SERVER_PORT", "")
	t.Setenv("VEDIC_SERVER_ALLOW_ORIGINS", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Fatalf("expected default port 3000, got %d", cfg.Server.Port)
	}
	if !cfg.AllowAllOrigins() {
		t.Fatalf("expected empty origin list to allow all, got %v", cfg.Server.AllowOrigins)
	}
	if cfg.Upstream.Source != "vedicstandardtime.com" || cfg.Upstream.URL != "https://vedicstandardtime.com/" {
		t.Fatalf("unexpected upstream defaults: %+v", cfg.Upstream)
	}
	if got := cfg.ThrottleWindow(); got != 5*time.Second {
		t.Fatalf("expected throttle 5s, got %v", got)
	}
	if got := cfg.RefreshWindow(); got != 5*time.Minute {
		t.Fatalf("expected refresh 5m, got %v", got)
	}
	if got := cfg.NavTimeout(); got != 60*time.Second {
		t.Fatalf("expected nav timeout 60s, got %v", got)
	}
	if !cfg.Headless.NoSandbox {
		t.Fatal("expected sandbox to be disabled by default")
	}
	if cfg.Metrics.Enabled || cfg.RateLimit.RPS != 0 {
		t.Fatalf("expected metrics and rate limiting off by default: %+v %+v", cfg.Metrics, cfg.RateLimit)
	}
}

func TestLoadPlainEnvOverrides(t *testing.T) {
	t.Setenv("VEDIC_SERVER_PORT", "")
	t.Setenv("VEDIC_SERVER_ALLOW_ORIGINS", "")
	t.Setenv("PORT", "8081")
	t.Setenv("ALLOW_ORIGINS", "https://a.example, https://b.example ,,")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8081 {
		t.Fatalf("expected PORT to apply, got %d", cfg.Server.Port)
	}
	want := []string{"https://a.example", "https://b.example"}
	if strings.Join(cfg.Server.AllowOrigins, "|") != strings.Join(want, "|") {
		t.Fatalf("expected origins %v, got %v", want, cfg.Server.AllowOrigins)
	}
	if cfg.AllowAllOrigins() {
		t.Fatal("expected explicit origins to restrict CORS")
	}
}

func TestLoadPrefixedEnvWins(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("VEDIC_SERVER_PORT", "9091")
	t.Setenv("VEDIC_CACHE_THROTTLE_MS", "2500")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9091 {
		t.Fatalf("expected prefixed port to win, got %d", cfg.Server.Port)
	}
	if got := cfg.ThrottleWindow(); got != 2500*time.Millisecond {
		t.Fatalf("expected throttle override, got %v", got)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("VEDIC_SERVER_PORT", "")
	t.Setenv("ALLOW_ORIGINS", "")
	t.Setenv("VEDIC_SERVER_ALLOW_ORIGINS", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
  allow_origins: ["https://clock.example"]
  request_timeout_seconds: 30
upstream:
  url: https://mirror.example/clock
  source: mirror.example
  nav_timeout_seconds: 20
headless:
  no_sandbox: false
  exec_path: /usr/bin/chromium
cache:
  throttle_ms: 1000
  refresh_ms: 60000
ratelimit:
  rps: 2
  burst: 4
metrics:
  enabled: true
logging:
  development: true
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if len(cfg.Server.AllowOrigins) != 1 || cfg.Server.AllowOrigins[0] != "https://clock.example" {
		t.Fatalf("expected file origins, got %v", cfg.Server.AllowOrigins)
	}
	if cfg.Upstream.URL != "https://mirror.example/clock" || cfg.Upstream.Source != "mirror.example" {
		t.Fatalf("expected upstream overrides: %+v", cfg.Upstream)
	}
	if cfg.Headless.NoSandbox || cfg.Headless.ExecPath != "/usr/bin/chromium" {
		t.Fatalf("expected headless overrides: %+v", cfg.Headless)
	}
	if cfg.RateLimit.RPS != 2 || cfg.RateLimit.Burst != 4 {
		t.Fatalf("expected rate limit overrides: %+v", cfg.RateLimit)
	}
	if !cfg.Metrics.Enabled || !cfg.Logging.Development {
		t.Fatal("expected metrics and development logging enabled")
	}
	if got := cfg.RequestTimeout(); got != 30*time.Second {
		t.Fatalf("expected request timeout 30s, got %v", got)
	}
	if got := cfg.ShutdownTimeout(); got != 10*time.Second {
		t.Fatalf("expected default shutdown timeout 10s, got %v", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:   ServerConfig{Port: 3000, RequestTimeoutSeconds: 90},
		Upstream: UpstreamConfig{URL: "https://vedicstandardtime.com/", NavTimeoutSeconds: 60},
		Cache:    CacheConfig{ThrottleMs: 5000, RefreshMs: 300000},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected base config to be valid, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"invalid port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"invalid request timeout", func(c *Config) { c.Server.RequestTimeoutSeconds = 0 }, "server.request_timeout_seconds"},
		{"relative upstream", func(c *Config) { c.Upstream.URL = "/clock" }, "upstream.url"},
		{"invalid nav timeout", func(c *Config) { c.Upstream.NavTimeoutSeconds = 0 }, "upstream.nav_timeout_seconds"},
		{"invalid throttle", func(c *Config) { c.Cache.ThrottleMs = 0 }, "cache.throttle_ms"},
		{"refresh shorter than throttle", func(c *Config) { c.Cache.RefreshMs = 1000 }, "cache.refresh_ms"},
		{"rate limit without burst", func(c *Config) { c.RateLimit = RateLimitConfig{RPS: 1} }, "ratelimit.burst"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
