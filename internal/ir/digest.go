package ir

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"golang.org/x/crypto/blake2b"
)

// DigestSize is the fixed size of a content digest in bytes.
const DigestSize = 32

// multihashBlake2b256 is the multicodec code for blake2b with a 256-bit output.
const multihashBlake2b256 = multihash.BLAKE2B_MIN + 31

// ErrInvalidContentHash is returned when a digest is not 32 bytes of hex.
var ErrInvalidContentHash = errors.New("invalid content hash")

// Digest is the Blake2b-256 hash of article content.
// It is the join key between the registry and issuance ledgers.
type Digest [DigestSize]byte

// HashContent returns the Blake2b-256 digest of content.
// Pure and deterministic; no normalization is applied to content.
func HashContent(content []byte) Digest {
	return Digest(blake2b.Sum256(content))
}

// ParseDigest parses a "0x"-prefixed (or bare) 64 character hex digest.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(raw) != hex.EncodedLen(DigestSize) {
		return d, fmt.Errorf("%w: %q", ErrInvalidContentHash, s)
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return d, fmt.Errorf("%w: %q", ErrInvalidContentHash, s)
	}
	copy(d[:], b)
	return d, nil
}

// Bytes returns a copy of the digest bytes.
func (d Digest) Bytes() []byte {
	b := make([]byte, DigestSize)
	copy(b, d[:])
	return b
}

// Hex returns the digest as lowercase hex without prefix.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

// String returns the "0x"-prefixed hex form used on the ledgers.
func (d Digest) String() string {
	return "0x" + d.Hex()
}

// IsZero reports whether d is the zero digest.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// CID returns a CIDv1 (raw codec, blake2b-256 multihash) naming the content.
func (d Digest) CID() (cid.Cid, error) {
	mh, err := multihash.Encode(d[:], multihashBlake2b256)
	if err != nil {
		return cid.Undef, fmt.Errorf("encode multihash: %w", err)
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}

// MarshalJSON encodes the digest as its "0x" hex string.
func (d Digest) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a "0x" hex string.
func (d *Digest) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDigest(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
