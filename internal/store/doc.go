// Package store implements durable persistence for observed trades,
// per-instrument state, the ingestion watermark, and subscriber
// preferences, backed by Postgres.
//
// All operations are idempotent or safely retryable. Trades are
// append-only and deduplicated by trade_id via ON CONFLICT DO NOTHING;
// a duplicate insert is not an error. The watermark is a single scalar
// written only after a full poll cycle commits, so a crash mid-cycle
// re-processes the cycle and dedup absorbs the overlap.
package store
