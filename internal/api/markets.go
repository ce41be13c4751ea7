package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// GetMarketTitle fetches the display title for a market ticker. It is a
// best-effort enrichment call; callers fall back to the raw ticker.
func (c *Client) GetMarketTitle(ctx context.Context, ticker string) (string, error) {
	tk := strings.ToUpper(strings.TrimSpace(ticker))
	if tk == "" {
		return "", fmt.Errorf("empty ticker")
	}

	body, err := c.resilientGet(ctx, "/markets/"+tk, nil)
	if err != nil {
		return "", err
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("unmarshal market response: %w", err)
	}

	// The market object may be wrapped or may be the envelope itself.
	obj := body
	for _, key := range []string{"market", "data"} {
		if raw, ok := payload[key]; ok {
			obj = raw
			break
		}
	}

	var market struct {
		Title string `json:"title"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal(obj, &market); err != nil {
		return "", fmt.Errorf("unmarshal market object: %w", err)
	}

	if market.Title != "" {
		return market.Title, nil
	}
	if market.Name != "" {
		return market.Name, nil
	}
	return "", fmt.Errorf("market %s has no title", tk)
}

// Ping issues the cheap read-only probe call against the current pin. Used
// by health reporting.
func (c *Client) Ping(ctx context.Context) error {
	query := url.Values{}
	query.Set("limit", "1")
	query.Set("status", "open")
	_, err := c.resilientGet(ctx, "/markets", query)
	return err
}
