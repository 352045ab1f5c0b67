// Package ledger defines the capability edunews consumes from each of its
// three ledgers: read a storage item at the latest finalized state, and
// submit a signed extrinsic and wait until it is finalized.
//
// Storage items are addressed by Query (pallet, item, keys) and values are
// JSON documents. Extrinsics carry a JSON call, the signer's address, the
// signer's account nonce and a signature over the canonical encoding of all
// three.
//
// Implementations live elsewhere: devnet runs a ledger in-process and
// grpcledger talks to one over the network.
package ledger
