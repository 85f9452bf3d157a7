// Package ir holds the fixed-width identifiers shared by every layer of
// cavityproof, the canonical JSON encoder and the domain-separated hashes
// built on top of it.
//
// ir imports nothing internal. Everything else may import ir.
//
// Key design constraints:
//   - Identifiers are fixed-width byte arrays, never variable-length slices
//   - No float types in canonical JSON; use integer milliseconds or basis points
//   - Every hash carries a versioned domain prefix
package ir
