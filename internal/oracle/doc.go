// Package oracle is the off-chain signing service that attests a user
// completed a qualifying session on a given day.
//
// The oracle holds one long-term Ed25519 key. For each accepted session it
// picks a fresh random nonce, sets an expiry, encodes the 100-byte claim
// payload and signs it. The resulting Attestation carries everything a
// client needs to build the companion verification operation and the claim
// operation of one batch.
package oracle
