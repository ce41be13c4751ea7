// Package title resolves human-readable market titles for instrument
// tickers, caching lookups in memory for the life of the process.
package title

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// Fetcher looks up a market title upstream.
type Fetcher interface {
	GetMarketTitle(ctx context.Context, ticker string) (string, error)
}

// Cache memoizes title lookups. Market titles do not change once listed,
// so entries never expire.
type Cache struct {
	fetcher Fetcher
	logger  *slog.Logger

	mu     sync.Mutex
	titles map[string]string
}

// New creates a Cache over the given fetcher.
func New(fetcher Fetcher, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		fetcher: fetcher,
		logger:  logger,
		titles:  make(map[string]string),
	}
}

// Resolve returns the title for a ticker, falling back to the ticker
// itself when the lookup fails. The fallback is cached too, so a dead
// upstream is asked about each ticker at most once.
func (c *Cache) Resolve(ctx context.Context, ticker string) string {
	key := strings.ToUpper(strings.TrimSpace(ticker))
	if key == "" {
		return ticker
	}

	c.mu.Lock()
	if t, ok := c.titles[key]; ok {
		c.mu.Unlock()
		return t
	}
	c.mu.Unlock()

	t, err := c.fetcher.GetMarketTitle(ctx, key)
	if err != nil {
		c.logger.Debug("title lookup failed, using ticker", "ticker", key, "error", err)
		t = key
	}

	c.mu.Lock()
	c.titles[key] = t
	c.mu.Unlock()
	return t
}
