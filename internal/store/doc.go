// Package store provides the SQLite-backed replay journal.
//
// The journal is an append-only audit trail of what reconcile runs
// published. It is written during replay and read only by the journal
// command; reconciliation never consults it.
//
// # Tables
//
//   - runs: one row per reconcile invocation, keyed by UUIDv7 run ID
//   - replays: one row per processed record, keyed by (run_id, seq)
//
// # Ordering
//
// All queries order by seq ASC (within a run) or id ASC COLLATE BINARY
// (across runs). UUIDv7 IDs sort by creation time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
