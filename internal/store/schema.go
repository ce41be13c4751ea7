package store

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS trades (
		trade_id     TEXT PRIMARY KEY,
		ts_ms        BIGINT NOT NULL,
		ticker       TEXT NOT NULL,
		side         TEXT NOT NULL,
		size         INTEGER NOT NULL,
		price_cents  INTEGER NOT NULL,
		notional_usd DOUBLE PRECISION NOT NULL,
		tags         TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_ts ON trades (ts_ms)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_ticker_ts ON trades (ticker, ts_ms)`,
	`CREATE TABLE IF NOT EXISTS instrument_stats (
		ticker           TEXT PRIMARY KEY,
		last_trade_ts_ms BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS subs (
		user_id       BIGINT PRIMARY KEY,
		alerts_on     BOOLEAN NOT NULL DEFAULT FALSE,
		threshold_usd DOUBLE PRECISION NOT NULL,
		topic         TEXT NOT NULL DEFAULT 'all',
		tz            TEXT NOT NULL DEFAULT 'UTC',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Init creates the schema if it does not exist yet.
func (s *Store) Init(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
