// Package runtime groups the storage layouts and call definitions of the
// pallets edunews talks to. Each subpackage is the typed view of one pallet:
// query builders for its storage items, argument types for its calls, event
// payloads and dispatch error names.
//
//   - nfts: collections and items on the issuance ledger
//   - news: article records on the registry ledger
//   - people: identity records on the identity ledger
package runtime
