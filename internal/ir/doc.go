// Package ir provides the shared data model for edunews.
//
// This package contains value types only. All other internal packages
// import ir; ir imports nothing internal. It is the foundational layer
// that every ledger adapter, the engine and the front ends agree on.
//
// Key design constraints:
//   - Digest is the only join key between the three ledgers
//   - Article is a view model, recomputed on every read and never persisted
//   - Every JSON tag uses snake_case
//   - Canonical JSON (RFC 8785, NFC strings) is the only encoding that is
//     hashed or signed
package ir
