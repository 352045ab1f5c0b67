// Package harness runs YAML scenarios against an in-memory three-ledger
// network and checks the outcome.
//
// # Scenario Format
//
//	name: first_registration
//	description: "A new publisher registers one article"
//	flow_token: scenario-flow
//	setup:
//	  - action: set_identity
//	    args: { signer: Alice, display: Alice }
//	flow:
//	  - invoke: register
//	    args: { signer: Alice, title: Test, url: "http://x", content: "hello world" }
//	    expect:
//	      case: ok
//	      result: { collection_id: 0, item_id: 0 }
//	  - invoke: verify
//	    args: { collection_id: 0, item_id: 0 }
//	    expect:
//	      case: ok
//	      result: { article_exists: true, nft_exists: true }
//	assertions:
//	  - type: trace_count
//	    action: register
//	    count: 1
//	  - type: final_state
//	    ledger: issuance
//	    pallet: nfts
//	    item: item
//	    keys: ["0", "0"]
//	    expect: { owner: "@Alice" }
//
// # Operations
//
// register, resume, verify, show, list, identity, set_identity, audit,
// fail and heal. fail injects a fault into one ledger (every read, or
// submissions of one call) and heal removes it.
//
// An expect clause names the outcome case: "ok", or the engine error code
// of a failed step (MALFORMED_INPUT, PARTIAL_WRITE, NOT_FOUND, ...). Its
// result is matched as a subset of the JSON form of the step's output.
//
// Wherever an address is expected, "@Name" stands for the address of the
// development account Name. Signer args name development accounts directly.
//
// # Assertion Types
//
//   - trace_contains: an operation appears in the trace with matching args
//   - trace_order: operations appear in the given order
//   - trace_count: an operation appears exactly N times
//   - final_state: a ledger storage item holds the expected fields
//
// # Deterministic Testing
//
// Every scenario runs on a fresh memory network with the deterministic
// block clock from testutil and the fixed flow token
// scenario.flow_token, so traces compare byte for byte against golden files.
// Only the fields an expect clause names are recorded in a completion, so
// hashes and timestamps stay out of golden files.
package harness
