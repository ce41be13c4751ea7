package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// ErrHostsExhausted indicates every configured host failed for one call.
// The ingestion loop treats it as transient and retries on the next tick.
var ErrHostsExhausted = errors.New("all upstream hosts exhausted")

// APIError represents an HTTP-level error from the upstream feed.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream api error %d: %s", e.StatusCode, e.Message)
}

// IsServerError reports whether the error should trigger host failover.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500
}

// doRequest performs a single GET against one host.
func (c *Client) doRequest(ctx context.Context, host, path string, query url.Values) ([]byte, error) {
	fullURL := host + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       body,
		}
	}

	return body, nil
}

// probeHosts checks each candidate with a cheap read-only call and pins the
// first that succeeds. If every probe fails, the last candidate is pinned
// anyway so subsequent calls keep trying instead of stalling.
func (c *Client) probeHosts(ctx context.Context) {
	if len(c.hosts) == 0 {
		return
	}

	probe := url.Values{}
	probe.Set("limit", "1")
	probe.Set("status", "open")

	for _, h := range c.hosts {
		if _, err := c.doRequest(ctx, h, "/markets", probe); err != nil {
			c.logger.Warn("host failed probe, trying next", "host", h, "error", err)
			continue
		}
		c.pinHost(h)
		c.logger.Info("pinned upstream host", "host", h)
		return
	}

	last := c.hosts[len(c.hosts)-1]
	c.pinHost(last)
	c.logger.Warn("all probes failed, defaulting to last host", "host", last)
}

// resilientGet performs a GET with host failover: the pinned host first,
// then the remaining candidates in list order. Server-side (5xx) and
// network failures advance to the next host; any other error is surfaced
// immediately. A host that succeeds after a failover becomes the new pin.
func (c *Client) resilientGet(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if len(c.hosts) == 0 {
		return nil, fmt.Errorf("%w: no hosts configured", ErrHostsExhausted)
	}

	pinned := c.pinnedHost()
	if pinned == "" {
		c.probeHosts(ctx)
		pinned = c.pinnedHost()
	}

	order := make([]string, 0, len(c.hosts))
	order = append(order, pinned)
	for _, h := range c.hosts {
		if h != pinned {
			order = append(order, h)
		}
	}

	var lastErr error
	for _, h := range order {
		body, err := c.doRequest(ctx, h, path, query)
		if err == nil {
			if h != pinned {
				c.pinHost(h)
				c.logger.Info("pinned upstream host after failover", "host", h)
			}
			return body, nil
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.IsServerError() {
			// Client-side error: not a failover trigger.
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		c.logger.Warn("upstream request failed, trying next host",
			"host", h,
			"path", path,
			"error", err,
		)
	}

	return nil, fmt.Errorf("%w: %v", ErrHostsExhausted, lastErr)
}
