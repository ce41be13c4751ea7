package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultPrimaryURL  = "https://api.kalshi.com/trade-api/v2"
	DefaultFallbackURL = "https://api.elections.kalshi.com/trade-api/v2"

	DefaultAPITimeout = 10 * time.Second

	DefaultDBPort    = 5432
	DefaultDBSSLMode = "prefer"
	DefaultMaxConns  = 10
	DefaultMinConns  = 2

	DefaultPollInterval = 10 * time.Second
	DefaultFetchLimit   = 1000
	DefaultLookback     = 10 * time.Minute

	DefaultThresholdUSD    = 5000
	DefaultMinThresholdUSD = 500

	DefaultMetricsPort = 8080
	DefaultMetricsPath = "/metrics"
)

func (c *Config) applyDefaults() {
	// Upstream defaults. A configured primary keeps only the built-in
	// fallback behind it; an unset primary gets both built-in hosts.
	if c.Upstream.PrimaryURL == "" {
		c.Upstream.PrimaryURL = DefaultPrimaryURL
	}
	if len(c.Upstream.FallbackURLs) == 0 {
		c.Upstream.FallbackURLs = []string{DefaultFallbackURL}
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = DefaultAPITimeout
	}

	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// Poller defaults
	if c.Poller.Interval == 0 {
		c.Poller.Interval = DefaultPollInterval
	}
	if c.Poller.FetchLimit == 0 {
		c.Poller.FetchLimit = DefaultFetchLimit
	}
	if c.Poller.Lookback == 0 {
		c.Poller.Lookback = DefaultLookback
	}

	// Alerts defaults
	if c.Alerts.DefaultThresholdUSD == 0 {
		c.Alerts.DefaultThresholdUSD = DefaultThresholdUSD
	}
	if c.Alerts.MinThresholdUSD == 0 {
		c.Alerts.MinThresholdUSD = DefaultMinThresholdUSD
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

// Hosts returns the ordered host candidate list: primary first, then
// fallbacks, duplicates removed.
func (u UpstreamConfig) Hosts() []string {
	hosts := []string{u.PrimaryURL}
	for _, h := range u.FallbackURLs {
		if h != "" && h != u.PrimaryURL {
			hosts = append(hosts, h)
		}
	}
	return hosts
}
