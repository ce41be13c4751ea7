// Package model defines shared data types used across the whale-watch engine.
//
// Conventions:
//   - Prices: integer cents (0-100 = $0.00-$1.00 probability price)
//   - Timestamps: int64 milliseconds since Unix epoch (upstream event time)
//   - IDs: string trade ids; the store deduplicates on them
package model
