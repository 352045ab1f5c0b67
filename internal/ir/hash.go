package ir

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Domain prefixes for hashed and signed ledger payloads.
// Version suffix enables future algorithm migration.
const (
	DomainExtrinsic = "edunews/extrinsic/v1"
	DomainSigning   = "edunews/signing/v1"
)

// domainMessage builds domain + 0x00 + data.
// The null byte separator prevents domain/data boundary ambiguity.
func domainMessage(domain string, data []byte) []byte {
	out := make([]byte, 0, len(domain)+1+len(data))
	out = append(out, domain...)
	out = append(out, 0x00)
	out = append(out, data...)
	return out
}

// hashWithDomain computes Blake2b-256 with domain separation and returns
// "0x"-prefixed hex.
func hashWithDomain(domain string, data []byte) string {
	sum := blake2b.Sum256(domainMessage(domain, data))
	return "0x" + hex.EncodeToString(sum[:])
}

// ExtrinsicHash computes the content-addressed hash of a signed extrinsic
// from its canonical JSON encoding.
func ExtrinsicHash(canonical []byte) string {
	return hashWithDomain(DomainExtrinsic, canonical)
}

// ExtrinsicSigningMessage returns the bytes an account signs to authorize an
// extrinsic whose unsigned canonical encoding is canonical.
func ExtrinsicSigningMessage(canonical []byte) []byte {
	return domainMessage(DomainSigning, canonical)
}
