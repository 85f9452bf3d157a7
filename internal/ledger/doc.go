// Package ledger simulates the host execution platform a claim program runs on.
//
// The host supplies four things and nothing more:
//   - atomic batches: every operation of a batch commits together or not at all
//   - deterministic addresses derived from a program id and seeds
//   - a trusted clock (unix seconds) that programs cannot influence
//   - a fixed-identity Ed25519 verification facility (package sigverify)
//
// ARCHITECTURE:
//
// Single-Writer Loop:
// Batches are submitted from any goroutine with Submit and executed one at a
// time by Run, in FIFO order. Concurrent submissions touching the same
// account are therefore totally ordered; the second observes the first's
// committed effects. Executors in other processes sharing the database
// file are ordered by the store's write lock.
//
// Batch Processing:
//  1. Check the submitter's signature over ir.BatchDigest
//  2. Run the verification facility over every verification operation
//  3. Open one store transaction, take the next log seq inside it and
//     dispatch each remaining operation to its registered Program
//  4. On success write the log entry in the same transaction and commit
//  5. On the first error roll back, then log the rejection on its own
//  6. Tell every BatchObserver the final outcome
//
// Programs never retry and never observe partial state.
package ledger
