// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Headless  HeadlessConfig  `mapstructure:"headless"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                   int      `mapstructure:"port"`
	AllowOrigins           []string `mapstructure:"allow_origins"`
	RequestTimeoutSeconds  int      `mapstructure:"request_timeout_seconds"`
	ShutdownTimeoutSeconds int      `mapstructure:"shutdown_timeout_seconds"`
}

// UpstreamConfig describes the page being scraped.
type UpstreamConfig struct {
	URL               string `mapstructure:"url"`
	Source            string `mapstructure:"source"`
	UserAgent         string `mapstructure:"user_agent"`
	NavTimeoutSeconds int    `mapstructure:"nav_timeout_seconds"`
}

// HeadlessConfig configures the Chrome process.
type HeadlessConfig struct {
	NoSandbox bool   `mapstructure:"no_sandbox"`
	ExecPath  string `mapstructure:"exec_path"`
}

// CacheConfig sets the throttle and refresh windows.
type CacheConfig struct {
	ThrottleMs int `mapstructure:"throttle_ms"`
	RefreshMs  int `mapstructure:"refresh_ms"`
}

// RateLimitConfig controls per-client API rate limiting. RPS <= 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// MetricsConfig toggles the Prometheus route.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VEDIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindPlainEnv(v); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Server.AllowOrigins = normalizeOrigins(cfg.Server.AllowOrigins)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.allow_origins", []string{})
	v.SetDefault("server.request_timeout_seconds", 90)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("upstream.url", "https://vedicstandardtime.com/")
	v.SetDefault("upstream.source", "vedicstandardtime.com")
	v.SetDefault("upstream.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 "+
		"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	v.SetDefault("upstream.nav_timeout_seconds", 60)
	v.SetDefault("headless.no_sandbox", true)
	v.SetDefault("headless.exec_path", "")
	v.SetDefault("cache.throttle_ms", 5000)
	v.SetDefault("cache.refresh_ms", 300000)
	v.SetDefault("ratelimit.rps", 0)
	v.SetDefault("ratelimit.burst", 10)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("logging.development", false)
}

// bindPlainEnv accepts the unprefixed variables common to container platforms.
// The prefixed form wins when both are set.
func bindPlainEnv(v *viper.Viper) error {
	if err := v.BindEnv("server.port", "VEDIC_SERVER_PORT", "PORT"); err != nil {
		return fmt.Errorf("bind port env: %w", err)
	}
	if err := v.BindEnv("server.allow_origins", "VEDIC_SERVER_ALLOW_ORIGINS", "ALLOW_ORIGINS"); err != nil {
		return fmt.Errorf("bind allow origins env: %w", err)
	}
	return nil
}

func normalizeOrigins(raw []string) []string {
	var origins []string
	for _, entry := range raw {
		for _, origin := range strings.Split(entry, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
	}
	return origins
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("server.request_timeout_seconds must be > 0")
	}
	if u, err := url.Parse(c.Upstream.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("upstream.url must be an absolute URL")
	}
	if c.Upstream.NavTimeoutSeconds <= 0 {
		return fmt.Errorf("upstream.nav_timeout_seconds must be > 0")
	}
	if c.Cache.ThrottleMs <= 0 {
		return fmt.Errorf("cache.throttle_ms must be > 0")
	}
	if c.Cache.RefreshMs < c.Cache.ThrottleMs {
		return fmt.Errorf("cache.refresh_ms must be >= cache.throttle_ms")
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		return fmt.Errorf("ratelimit.burst must be > 0 when rate limiting is enabled")
	}
	return nil
}

// AllowAllOrigins reports whether CORS should accept any origin.
func (c Config) AllowAllOrigins() bool {
	return len(c.Server.AllowOrigins) == 0
}

// NavTimeout converts the navigation timeout into a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Upstream.NavTimeoutSeconds) * time.Second
}

// ThrottleWindow converts cache.throttle_ms into a duration.
func (c Config) ThrottleWindow() time.Duration {
	return time.Duration(c.Cache.ThrottleMs) * time.Millisecond
}

// RefreshWindow converts cache.refresh_ms into a duration.
func (c Config) RefreshWindow() time.Duration {
	return time.Duration(c.Cache.RefreshMs) * time.Millisecond
}

// RequestTimeout bounds a single API request.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// ShutdownTimeout bounds the graceful drain on exit.
func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}
