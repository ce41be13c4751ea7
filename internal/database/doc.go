// Package database manages the Postgres connection pool owned by the
// durable store.
package database
