package store

import (
	"context"
	"fmt"
)

// TradeRecord is one stored trade row as read back for display.
type TradeRecord struct {
	ID          string
	TSMillis    int64
	Ticker      string
	Side        string
	Size        int
	PriceCents  int
	NotionalUSD float64
	Tags        []string
}

// TopEntry is the largest observed trade for one instrument over a window.
type TopEntry struct {
	Ticker      string
	Side        string
	NotionalUSD float64
	TSMillis    int64
}

// RecentWhales returns the newest stored trades at or above minNotional,
// newest first, capped at limit rows.
func (s *Store) RecentWhales(ctx context.Context, minNotional float64, limit int) ([]TradeRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT trade_id, ts_ms, ticker, side, size, price_cents, notional_usd, tags
		 FROM trades
		 WHERE notional_usd >= $1
		 ORDER BY ts_ms DESC
		 LIMIT $2`,
		minNotional, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent whales: %w", err)
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var rec TradeRecord
		var tags string
		if err := rows.Scan(&rec.ID, &rec.TSMillis, &rec.Ticker, &rec.Side, &rec.Size, &rec.PriceCents, &rec.NotionalUSD, &tags); err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		rec.Tags = SplitTags(tags)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// TopBySince returns the largest trade per instrument and side since
// sinceMs, ordered by notional descending, capped at limit rows.
func (s *Store) TopBySince(ctx context.Context, sinceMs int64, limit int) ([]TopEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT ticker, side, MAX(notional_usd), MAX(ts_ms)
		 FROM trades
		 WHERE ts_ms >= $1
		 GROUP BY ticker, side
		 ORDER BY MAX(notional_usd) DESC
		 LIMIT $2`,
		sinceMs, limit)
	if err != nil {
		return nil, fmt.Errorf("query top trades: %w", err)
	}
	defer rows.Close()

	var out []TopEntry
	for rows.Next() {
		var e TopEntry
		if err := rows.Scan(&e.Ticker, &e.Side, &e.NotionalUSD, &e.TSMillis); err != nil {
			return nil, fmt.Errorf("scan top row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
