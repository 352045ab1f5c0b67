// Package grpcledger carries the ledger.Client contract over gRPC.
//
// A Server hosts any number of named ledgers in one process; a Client is
// bound to exactly one of them. Ledger errors cross the wire as gRPC status
// codes and are mapped back to the ledger package's error types on the
// client side.
package grpcledger
