// Package store provides SQLite-backed storage for fuzz runs and fixtures.
//
// The store holds three tables:
//   - runs: one row per classified execution (test id, seed, mutated
//     query, outcome). Replays look runs up by (test id, seed).
//   - fixtures: rows of named source sets, stored as canonical JSON. The
//     Store implements engine.DataSource over this table.
//   - sets: names of declared source sets, so a set loaded with no rows
//     reads as empty rather than unknown.
//
// # Ordering
//
// All queries order by the INTEGER primary key, NEVER by timestamps, so a
// ledger reads back in the order it was written.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Fixture values and run keys use the canonical JSON encoding from
// internal/ir.
package store
