// Package store provides the SQLite-backed run ledger for aqsync.
//
// Every fetch run appends one row: when it ran, how it ended, which step
// failed and the reconciliation counts. The ledger is optional and purely
// diagnostic; the output JSON files remain the only state a run depends on.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Schema changes are applied through PRAGMA user_version migrations.
package store
