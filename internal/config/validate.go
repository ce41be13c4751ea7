package config

import "fmt"

// Validate checks that required fields are set and values are sane.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Poller.Interval <= 0 {
		return fmt.Errorf("poller.interval must be positive")
	}
	if c.Poller.FetchLimit <= 0 {
		return fmt.Errorf("poller.fetch_limit must be positive")
	}
	if c.Alerts.DefaultThresholdUSD <= 0 {
		return fmt.Errorf("alerts.default_threshold_usd must be positive")
	}
	return nil
}
