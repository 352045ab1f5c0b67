// Package keys owns account key material.
//
// Accounts are addressed with SS58 strings. Signers are derived from secret
// URIs of the form
//
//	<phrase>[//hard...][///password]
//
// where phrase is a BIP-39 mnemonic or a 0x-prefixed 32 byte seed. An empty
// phrase selects the well-known development phrase, so "//Alice" names the
// usual development account.
//
// Two schemes are supported: ed25519 (the default) and secp256k1 ecdsa.
// Only hard junctions can be derived for either scheme.
package keys
