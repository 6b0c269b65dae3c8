// Package store provides SQLite-backed durable storage for the local copy of
// users, delivery agents and orders.
//
// Every mutation runs in a single transaction; a write either commits fully
// or leaves the store untouched. The replication layer relies on this: it
// only propagates after the local commit has succeeded.
//
// # Identity
//
//   - id INTEGER: private, assigned here, never leaves the process
//   - external_id TEXT: UUID shared with the peer, UNIQUE per table
//
// Orders reference users and delivery agents by private id. Reads join the
// referenced external ids back in so callers never see private keys of
// other rows.
//
// # Errors
//
//   - ErrNotFound: the addressed row (or a referenced row) does not exist;
//     *NotFoundError says which one
//   - ErrConflict: a UNIQUE constraint was violated
//   - ErrReferenced: a foreign key constraint was violated
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// All queries order by id so listings are deterministic.
package store
