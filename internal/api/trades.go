package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// RawTrade is one upstream trade record before normalization. Upstream
// deployments disagree on field names, so records stay schemaless here and
// the normalizer resolves them against candidate field lists.
type RawTrade map[string]any

// FetchTradesSince fetches trades with event time >= minTSMillis, up to
// limit records. When the upstream rejects server-side min_ts filtering the
// call transparently degrades to latest-trades mode; the caller is then
// responsible for client-side filtering against its watermark.
func (c *Client) FetchTradesSince(ctx context.Context, minTSMillis int64, limit int) ([]RawTrade, error) {
	if c.capability() == CapabilityUnknown {
		if err := c.probeMinTS(ctx, minTSMillis); err != nil {
			return nil, err
		}
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if c.capability() == CapabilitySupported {
		query.Set("min_ts", strconv.FormatInt(minTSMillis, 10))
	}

	body, err := c.resilientGet(ctx, "/markets/trades", query)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 400 && c.capability() == CapabilitySupported {
			// The filter worked before but is rejected now. Downgrade for
			// the rest of the session and retry once without it.
			c.setCapability(CapabilityUnsupported)
			c.logger.Info("min_ts rejected after prior success, disabling for this session")
			query.Del("min_ts")
			body, err = c.resilientGet(ctx, "/markets/trades", query)
			if err != nil {
				return nil, err
			}
		} else {
			return nil, err
		}
	}

	return parseTradesPayload(body)
}

// probeMinTS issues a minimal filtered call to learn whether the upstream
// accepts min_ts. The answer is cached for the process lifetime.
func (c *Client) probeMinTS(ctx context.Context, minTSMillis int64) error {
	query := url.Values{}
	query.Set("limit", "1")
	query.Set("min_ts", strconv.FormatInt(minTSMillis, 10))

	_, err := c.resilientGet(ctx, "/markets/trades", query)
	if err == nil {
		c.setCapability(CapabilitySupported)
		c.logger.Info("min_ts supported by upstream")
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 400 {
			c.setCapability(CapabilityUnsupported)
			c.logger.Info("min_ts not supported, switching to latest-trades mode")
			return nil
		}
		return err
	}

	// Hosts exhausted or network-level failure: inconclusive, fall back to
	// latest-trades mode rather than stalling ingestion.
	c.setCapability(CapabilityUnsupported)
	c.logger.Info("min_ts probe inconclusive, using latest-trades mode", "error", err)
	return nil
}

// parseTradesPayload extracts the trade list from the response envelope,
// whichever of the known list keys the deployment uses.
func parseTradesPayload(body []byte) ([]RawTrade, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal trades response: %w", err)
	}

	for _, key := range []string{"trades", "data", "results"} {
		raw, ok := payload[key]
		if !ok {
			continue
		}
		var trades []RawTrade
		if err := json.Unmarshal(raw, &trades); err != nil {
			return nil, fmt.Errorf("unmarshal trade list %q: %w", key, err)
		}
		return trades, nil
	}

	return nil, nil
}
