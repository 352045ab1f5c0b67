// Package store provides SQLite-backed persistence for devnet ledgers.
//
// One database file holds the state of all three ledgers. Every ledger has
// its own key space in the storage table and its own chain in the blocks
// table:
//
//   - storage(ledger, key, value): latest finalized value of each item
//   - blocks(ledger, number, ...): finalized block headers, gapless from 1
//
// A block and the state writes it carries are committed in one transaction,
// so a reader never observes a block whose writes are missing.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait up to 5s on lock contention
//   - foreign_keys=ON
//   - A single open connection serializes writers
//
// Schema changes are tracked with PRAGMA user_version.
package store
