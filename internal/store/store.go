package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/valshi/whalewatch/internal/model"
)

const watermarkKey = "watermark_ms"

// Store persists trades and engine state in Postgres.
type Store struct {
	db *pgxpool.Pool
}

// New creates a Store on top of an existing connection pool.
func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// InsertTrade inserts a trade with its anomaly tags. It reports whether a
// row was actually written; a duplicate trade_id is absorbed and reported
// as not inserted.
func (s *Store) InsertTrade(ctx context.Context, tr model.Trade, tags []string) (bool, error) {
	ct, err := s.db.Exec(ctx,
		`INSERT INTO trades (trade_id, ts_ms, ticker, side, size, price_cents, notional_usd, tags)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (trade_id) DO NOTHING`,
		tr.ID, tr.TSMillis, tr.Ticker, tr.Side, tr.Size, tr.PriceCents, tr.NotionalUSD, joinTags(tags))
	if err != nil {
		return false, fmt.Errorf("insert trade %s: %w", tr.ID, err)
	}
	return ct.RowsAffected() > 0, nil
}

// RecentSizes returns the sizes of stored trades for one instrument since
// sinceMs, newest first, capped at limit rows.
func (s *Store) RecentSizes(ctx context.Context, ticker string, sinceMs int64, limit int) ([]int, error) {
	rows, err := s.db.Query(ctx,
		`SELECT size FROM trades
		 WHERE ticker = $1 AND ts_ms >= $2
		 ORDER BY ts_ms DESC
		 LIMIT $3`,
		ticker, sinceMs, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent sizes: %w", err)
	}
	defer rows.Close()

	var sizes []int
	for rows.Next() {
		var sz int
		if err := rows.Scan(&sz); err != nil {
			return nil, fmt.Errorf("scan size: %w", err)
		}
		sizes = append(sizes, sz)
	}
	return sizes, rows.Err()
}

// RecentHighValueCount counts stored trades for one instrument since
// sinceMs whose notional meets minNotional.
func (s *Store) RecentHighValueCount(ctx context.Context, ticker string, sinceMs int64, minNotional float64) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM trades
		 WHERE ticker = $1 AND ts_ms >= $2 AND notional_usd >= $3`,
		ticker, sinceMs, minNotional).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count high-value trades: %w", err)
	}
	return n, nil
}

// InstrumentLastTradeTS returns the last observed trade timestamp for an
// instrument in epoch milliseconds, or 0 when the instrument is unseen.
func (s *Store) InstrumentLastTradeTS(ctx context.Context, ticker string) (int64, error) {
	var ts int64
	err := s.db.QueryRow(ctx,
		`SELECT last_trade_ts_ms FROM instrument_stats WHERE ticker = $1`, ticker).Scan(&ts)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query instrument state: %w", err)
	}
	return ts, nil
}

// UpsertInstrumentLastTradeTS records a trade timestamp for an instrument.
// The stored value only ever moves forward.
func (s *Store) UpsertInstrumentLastTradeTS(ctx context.Context, ticker string, tsMillis int64) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO instrument_stats (ticker, last_trade_ts_ms)
		 VALUES ($1, $2)
		 ON CONFLICT (ticker) DO UPDATE
		 SET last_trade_ts_ms = GREATEST(instrument_stats.last_trade_ts_ms, EXCLUDED.last_trade_ts_ms)`,
		ticker, tsMillis)
	if err != nil {
		return fmt.Errorf("upsert instrument state: %w", err)
	}
	return nil
}

// Watermark returns the persisted ingestion watermark in epoch
// milliseconds, or 0 when none has been written yet.
func (s *Store) Watermark(ctx context.Context) (int64, error) {
	var value string
	err := s.db.QueryRow(ctx,
		`SELECT value FROM meta WHERE key = $1`, watermarkKey).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query watermark: %w", err)
	}
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse watermark %q: %w", value, err)
	}
	return ms, nil
}

// SetWatermark persists the ingestion watermark.
func (s *Store) SetWatermark(ctx context.Context, tsMillis int64) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO meta (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		watermarkKey, strconv.FormatInt(tsMillis, 10))
	if err != nil {
		return fmt.Errorf("set watermark: %w", err)
	}
	return nil
}

// joinTags renders anomaly tags for storage in a single text column.
func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

// SplitTags parses a stored tags column back into a slice. An empty
// column yields nil.
func SplitTags(col string) []string {
	if col == "" {
		return nil
	}
	return strings.Split(col, ",")
}
