package normalize

import (
	"testing"
	"time"

	"github.com/valshi/whalewatch/internal/api"
)

var fixedNow = time.Date(2024, 11, 15, 12, 0, 0, 0, time.UTC)

func testNormalizer() *Normalizer {
	return NewWithClock(func() time.Time { return fixedNow })
}

// TestNormalize tests canonical mapping of upstream field variants.
func TestNormalize(t *testing.T) {
	t.Run("kalshi-style record", func(t *testing.T) {
		n := testNormalizer()
		tr, err := n.Normalize(api.RawTrade{
			"trade_id":     "abc-123",
			"created_time": "2024-11-15T10:30:00Z",
			"ticker":       "btcusd-24dec31",
			"side":         "yes",
			"count":        float64(120),
			"yes_price":    float64(45),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tr.ID != "abc-123" {
			t.Errorf("ID = %q, want %q", tr.ID, "abc-123")
		}
		if tr.Ticker != "BTCUSD-24DEC31" {
			t.Errorf("Ticker = %q, want upper-cased", tr.Ticker)
		}
		if tr.Side != "YES" {
			t.Errorf("Side = %q, want YES", tr.Side)
		}
		if tr.Size != 120 {
			t.Errorf("Size = %d, want 120", tr.Size)
		}
		if tr.PriceCents != 45 {
			t.Errorf("PriceCents = %d, want 45", tr.PriceCents)
		}
		want := 120 * 0.45
		if tr.NotionalUSD != want {
			t.Errorf("NotionalUSD = %v, want %v", tr.NotionalUSD, want)
		}
		wantTS := time.Date(2024, 11, 15, 10, 30, 0, 0, time.UTC).UnixMilli()
		if tr.TSMillis != wantTS {
			t.Errorf("TSMillis = %d, want %d", tr.TSMillis, wantTS)
		}
	})

	t.Run("alternate field names", func(t *testing.T) {
		n := testNormalizer()
		tr, err := n.Normalize(api.RawTrade{
			"id":        "t9",
			"ts":        float64(1700000000), // epoch seconds
			"market":    "cpi-24nov",
			"direction": "no",
			"size":      float64(10),
			"price":     float64(80),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tr.Ticker != "CPI-24NOV" {
			t.Errorf("Ticker = %q", tr.Ticker)
		}
		if tr.Side != "NO" {
			t.Errorf("Side = %q, want NO", tr.Side)
		}
		if tr.TSMillis != 1700000000000 {
			t.Errorf("TSMillis = %d, want seconds scaled to ms", tr.TSMillis)
		}
		if tr.NotionalUSD != 8.0 {
			t.Errorf("NotionalUSD = %v, want 8.0", tr.NotionalUSD)
		}
	})

	t.Run("dollar price preferred over cents", func(t *testing.T) {
		n := testNormalizer()
		tr, err := n.Normalize(api.RawTrade{
			"id":                "t1",
			"ticker":            "X",
			"count":             float64(100),
			"yes_price":         float64(50),
			"yes_price_dollars": "0.52",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tr.NotionalUSD != 52.0 {
			t.Errorf("NotionalUSD = %v, want 52.0 from dollar field", tr.NotionalUSD)
		}
	})

	t.Run("missing price yields zero notional", func(t *testing.T) {
		n := testNormalizer()
		tr, err := n.Normalize(api.RawTrade{
			"id":     "t2",
			"ticker": "X",
			"count":  float64(100),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tr.NotionalUSD != 0 {
			t.Errorf("NotionalUSD = %v, want 0", tr.NotionalUSD)
		}
	})

	t.Run("missing side becomes UNKNOWN", func(t *testing.T) {
		n := testNormalizer()
		tr, err := n.Normalize(api.RawTrade{"id": "t3", "ticker": "X"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tr.Side != "UNKNOWN" {
			t.Errorf("Side = %q, want UNKNOWN", tr.Side)
		}
	})

	t.Run("missing instrument is malformed", func(t *testing.T) {
		n := testNormalizer()
		if _, err := n.Normalize(api.RawTrade{"id": "t4", "count": float64(5)}); err == nil {
			t.Fatal("expected error, got nil")
		}
	})

	t.Run("negative size clamps to zero", func(t *testing.T) {
		n := testNormalizer()
		tr, err := n.Normalize(api.RawTrade{"id": "t5", "ticker": "X", "count": float64(-3)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tr.Size != 0 {
			t.Errorf("Size = %d, want 0", tr.Size)
		}
	})
}

// TestParseTimestamp tests the timestamp format tolerance.
func TestParseTimestamp(t *testing.T) {
	n := testNormalizer()

	tests := []struct {
		name string
		in   any
		want int64
	}{
		{"epoch millis", float64(1700000000123), 1700000000123},
		{"epoch seconds", float64(1700000000), 1700000000000},
		{"epoch seconds string", "1700000000", 1700000000000},
		{"iso8601 with zone", "2024-11-15T10:30:00Z", time.Date(2024, 11, 15, 10, 30, 0, 0, time.UTC).UnixMilli()},
		{"iso8601 with offset", "2024-11-15T10:30:00+02:00", time.Date(2024, 11, 15, 8, 30, 0, 0, time.UTC).UnixMilli()},
		{"iso8601 naive", "2024-11-15T10:30:00", time.Date(2024, 11, 15, 10, 30, 0, 0, time.UTC).UnixMilli()},
		{"nil falls back to now", nil, fixedNow.UnixMilli()},
		{"garbage falls back to now", "yesterday-ish", fixedNow.UnixMilli()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.parseTimestamp(tt.in); got != tt.want {
				t.Errorf("parseTimestamp(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}

	t.Run("boundary value is seconds", func(t *testing.T) {
		// 10_000_000_000 itself scales; 10_000_000_001 is millis.
		if got := n.parseTimestamp(float64(10_000_000_000)); got != 10_000_000_000_000 {
			t.Errorf("got %d, want scaled", got)
		}
		if got := n.parseTimestamp(float64(10_000_000_001)); got != 10_000_000_001 {
			t.Errorf("got %d, want unscaled", got)
		}
	})
}

// TestTradeID tests synthesized id determinism.
func TestTradeID(t *testing.T) {
	t.Run("deterministic without upstream id", func(t *testing.T) {
		n := testNormalizer()
		raw := api.RawTrade{
			"ticker":       "BTCUSD-24",
			"created_time": float64(1700000000),
			"count":        float64(7),
			"yes_price":    float64(50),
		}
		a, err := n.Normalize(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b, err := n.Normalize(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.ID == "" {
			t.Fatal("synthesized ID is empty")
		}
		if a.ID != b.ID {
			t.Errorf("same record produced different ids: %q vs %q", a.ID, b.ID)
		}
	})

	t.Run("distinct trades get distinct ids", func(t *testing.T) {
		n := testNormalizer()
		a, _ := n.Normalize(api.RawTrade{"ticker": "X", "ts": float64(1700000000), "count": float64(1), "price": float64(10)})
		b, _ := n.Normalize(api.RawTrade{"ticker": "X", "ts": float64(1700000000), "count": float64(2), "price": float64(10)})
		if a.ID == b.ID {
			t.Errorf("different sizes produced identical ids: %q", a.ID)
		}
	})
}
