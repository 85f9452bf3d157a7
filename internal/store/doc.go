// Package store provides SQLite-backed durable storage for the local ledger.
//
// Two tables:
//   - accounts: one row per derived address, holding the owning program id
//     and the raw account bytes
//   - batches: an append-only log of every submitted batch and its outcome
//
// # Critical Patterns
//
// Create-if-absent
//   - Tx.CreateAccount uses INSERT ... ON CONFLICT(address) DO NOTHING and
//     reports ErrAccountExists when no row was inserted
//   - Replay markers and user records rely on this to fail deterministically
//
// All-or-nothing batches
//   - Every account write of a batch goes through one Tx
//   - The ledger commits the Tx only when every operation succeeded
//
// Logical time
//   - Rows carry the batch seq (logical clock), never wall-clock time
//   - Batch log queries ORDER BY seq ASC
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
