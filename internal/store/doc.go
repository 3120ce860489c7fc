// Package store is the durable record of tourneys, players, signups and
// submitted times.
//
// It is a thin layer over SQLite:
//   - Every mutation is a single logical write (no partially-visible state)
//   - Roster and verification writes are idempotent upserts, not insert-or-fail
//   - Withdrawals flip a status column; signup rows are never deleted
package store
