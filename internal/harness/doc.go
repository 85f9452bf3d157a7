// Package harness runs claim scenarios end to end against a fresh ledger.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: consecutive_days
//	description: "Three consecutive days build a streak of three"
//	start_time: 1700000000
//	dev_mode:
//	  enabled: true
//	  allow_list: [alice]
//	steps:
//	  - op: init_user
//	    user: alice
//	  - op: claim
//	    user: alice
//	    day: 100
//	    nonce: 1
//	    attestation: valid
//	    expect: ok
//	  - op: advance
//	    seconds: 86400
//	assertions:
//	  - type: final_state
//	    user: alice
//	    state: { streak: 1, last_day_claimed: 100, total_claims: 1 }
//
// Users are names; each name maps to a deterministic key, so traces are
// byte-stable. A step's signer defaults to its user.
//
// # Attestation Variants
//
//   - valid: the oracle's companion operation for the exact payload
//   - missing: no companion operation
//   - wrong_key: a companion signed by a key other than the oracle's
//   - wrong_signature: a companion whose signature does not verify
//   - wrong_message: the oracle's companion for a different payload
//
// # Assertion Types
//
//   - final_state: the user's committed streak state
//   - nonce_used: whether a (user, nonce) replay marker exists
//   - batch_count: how many logged batches have a given status
//
// # Deterministic Testing
//
// Every run uses an in-memory SQLite store, a fixed trusted clock, fixed
// batch ids and fixed nonces, so the trace compares against golden files.
package harness
