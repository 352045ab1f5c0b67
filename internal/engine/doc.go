// Package engine coordinates registration and verification across the
// issuance, registry and identity ledgers.
//
// ARCHITECTURE:
//
// Registration (Orchestrator.Register) is a strictly sequential workflow:
//
//  1. hash the content
//  2. ensure the publisher's container exists on the issuance ledger
//  3. mint a unit carrying the content hash as metadata
//  4. sign the binding payload for the content hash
//  5. record the article on the registry ledger
//
// Each step is finalized before the next starts. There is no cross-ledger
// atomicity: an error aborts the remaining steps and leaves earlier writes
// in place. The error names the phase that was reached so the caller can
// resume without duplicating a write.
//
// Verification (Aggregator) only reads. Registry and issuance reads fan out
// concurrently; a ledger that cannot be reached degrades its flag to false
// instead of failing the whole answer.
//
// Every workflow carries a flow token (UUIDv7 in production) that appears
// on each log line of that workflow and on the returned receipt.
//
// Concurrency: the ledgers assign unit ids from a read-then-write, so two
// registrations for the same publisher must not overlap. PublisherGuard
// rejects the second one in-process; across processes the caller must
// serialize.
package engine
