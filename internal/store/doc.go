// Package store provides a SQLite-backed results log for computed
// comparisons.
//
// The log is append-only: each recorded run gets a time-sortable UUIDv7
// id, a creation timestamp, the estimator configuration, the two rate
// rows, and the ratio row. Undefined confidence bounds and ratios are
// stored as NULL, never as sentinel numbers, so a replayed row is
// indistinguishable from the original result.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: rate rows always belong to a comparison
//
// The connection pool is capped at a single connection; SQLite allows
// one writer at a time and the log sees no concurrent writers in
// practice.
package store
