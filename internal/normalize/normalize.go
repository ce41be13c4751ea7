// Package normalize maps heterogeneous upstream trade records into the
// canonical trade form.
//
// Upstream deployments disagree on field names (count vs size, yes_price vs
// price, created_time vs ts), so each logical field resolves against an
// ordered candidate list, first match wins. Normalization never fails a
// batch: unparseable timestamps fall back to the current wall clock and
// missing prices yield a zero notional, which excludes the trade from
// storage and alerting downstream.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/valshi/whalewatch/internal/api"
	"github.com/valshi/whalewatch/internal/model"
)

// Timestamps below this are epoch seconds and get scaled to milliseconds.
const millisThreshold = 10_000_000_000

// Namespace for deterministic synthesized trade ids.
var tradeIDNamespace = uuid.MustParse("5f2de1a7-993c-4b46-9c29-7a0dc0b2e311")

// Candidate field names per logical field, in priority order.
var (
	idFields     = []string{"id", "trade_id"}
	tsFields     = []string{"created_time", "ts"}
	tickerFields = []string{"ticker", "market"}
	sideFields   = []string{"side", "direction"}
	sizeFields   = []string{"count", "size"}
	centsFields  = []string{"yes_price", "price"}
)

// Normalizer converts raw upstream records into canonical trades.
type Normalizer struct {
	now func() time.Time
}

// New creates a Normalizer using the real clock.
func New() *Normalizer {
	return &Normalizer{now: time.Now}
}

// NewWithClock creates a Normalizer with an injected clock, for tests.
func NewWithClock(now func() time.Time) *Normalizer {
	return &Normalizer{now: now}
}

// Normalize maps one raw trade into canonical form. It returns an error
// only when the record carries no instrument symbol at all; every other
// defect degrades to a usable default.
func (n *Normalizer) Normalize(raw api.RawTrade) (model.Trade, error) {
	ticker := strings.ToUpper(stringField(raw, tickerFields))
	if ticker == "" {
		return model.Trade{}, fmt.Errorf("trade record has no instrument symbol")
	}

	tsMillis := n.parseTimestamp(rawField(raw, tsFields))

	side := strings.ToUpper(stringField(raw, sideFields))
	if side == "" {
		side = "UNKNOWN"
	}

	size := intField(raw, sizeFields)
	if size < 0 {
		size = 0
	}

	cents := intField(raw, centsFields)

	trade := model.Trade{
		ID:          tradeID(raw, ticker, tsMillis, size),
		TSMillis:    tsMillis,
		Ticker:      ticker,
		Side:        side,
		Size:        size,
		PriceCents:  cents,
		NotionalUSD: notionalUSD(raw, size),
	}
	return trade, nil
}

// tradeID prefers the upstream id; absent one, it synthesizes a
// deterministic uuid from instrument, timestamp and size so the same trade
// observed twice dedupes to the same key.
func tradeID(raw api.RawTrade, ticker string, tsMillis int64, size int) string {
	if id := stringField(raw, idFields); id != "" {
		return id
	}
	seed := fmt.Sprintf("%s|%d|%d", ticker, tsMillis, size)
	return uuid.NewSHA1(tradeIDNamespace, []byte(seed)).String()
}

// notionalUSD computes size * price dollars, preferring an explicit dollar
// price over a cents-scaled one. Missing both yields zero.
func notionalUSD(raw api.RawTrade, size int) float64 {
	if v, ok := raw["yes_price_dollars"]; ok {
		if dollars, ok := toFloat(v); ok {
			return float64(size) * dollars
		}
	}
	for _, key := range centsFields {
		if v, ok := raw[key]; ok {
			if cents, ok := toFloat(v); ok {
				return float64(size) * cents / 100.0
			}
		}
	}
	return 0
}

// parseTimestamp accepts integer epoch seconds, integer epoch milliseconds
// and ISO-8601 strings. Anything else falls back to the current wall clock.
func (n *Normalizer) parseTimestamp(v any) int64 {
	if v == nil {
		return n.now().UnixMilli()
	}

	s := strings.TrimSpace(fmt.Sprintf("%v", v))
	if f, ok := toFloat(v); ok {
		return scaleEpoch(int64(f))
	}
	if iv, err := strconv.ParseInt(s, 10, 64); err == nil {
		return scaleEpoch(iv)
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UnixMilli()
	}
	// ISO-8601 without an offset is treated as UTC.
	if ts, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return ts.UnixMilli()
	}
	return n.now().UnixMilli()
}

func scaleEpoch(v int64) int64 {
	if v > millisThreshold {
		return v
	}
	return v * 1000
}

// rawField returns the first present candidate value.
func rawField(raw api.RawTrade, keys []string) any {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// stringField returns the first present candidate rendered as a string.
func stringField(raw api.RawTrade, keys []string) string {
	v := rawField(raw, keys)
	if v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		// JSON numbers decode as float64; ids are sometimes numeric.
		return strconv.FormatInt(int64(s), 10)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

// intField returns the first present candidate coerced to int, 0 otherwise.
func intField(raw api.RawTrade, keys []string) int {
	if f, ok := toFloat(rawField(raw, keys)); ok {
		return int(f)
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
