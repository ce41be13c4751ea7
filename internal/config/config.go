package config

import "time"

// Config is the root configuration for a whale-watch instance.
type Config struct {
	Upstream UpstreamConfig `yaml:"upstream"`
	Database DBConfig       `yaml:"database"`
	Poller   PollerConfig   `yaml:"poller"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Telegram TelegramConfig `yaml:"telegram"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// UpstreamConfig holds the trade-feed API settings.
type UpstreamConfig struct {
	// PrimaryURL overrides the default host list. When set, it is tried
	// first and the built-in fallback host second.
	PrimaryURL   string        `yaml:"primary_url"`
	FallbackURLs []string      `yaml:"fallback_urls"`
	APIKey       string        `yaml:"api_key"`
	Timeout      time.Duration `yaml:"timeout"`
}

// DBConfig holds the Postgres connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// PollerConfig holds ingestion loop settings.
type PollerConfig struct {
	Interval   time.Duration `yaml:"interval"`
	FetchLimit int           `yaml:"fetch_limit"`
	// Lookback bounds the first-run watermark: ingestion starts at
	// now - lookback when no watermark has been persisted yet.
	Lookback time.Duration `yaml:"lookback"`
}

// AlertsConfig holds alerting thresholds.
type AlertsConfig struct {
	// DefaultThresholdUSD seeds new subscribers and drives the
	// accumulation detector's high-value window.
	DefaultThresholdUSD float64 `yaml:"default_threshold_usd"`
	// MinThresholdUSD is the floor a subscriber may set via the bot.
	MinThresholdUSD float64 `yaml:"min_threshold_usd"`
}

// TelegramConfig holds the bot transport settings.
type TelegramConfig struct {
	Token string `yaml:"token"`
}

// MetricsConfig holds the health/metrics HTTP server settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
