// Package devnet runs edunews ledgers in-process.
//
// A Node is a single-authority ledger with instant finality: every accepted
// extrinsic is executed, committed and finalized in its own block before
// SubmitAndWatch returns. Nodes check signatures and account nonces and
// dispatch calls to a small set of pallets (nfts, news, identity) whose
// behaviour mirrors the parts of the public pallets edunews relies on.
//
// State lives in a Backend. MemoryBackend is volatile; the store package
// provides a SQLite backend so a devnet survives restarts.
package devnet
