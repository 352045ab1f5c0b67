package keys

import (
	"bytes"
	"fmt"

	becdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/cloudflare/circl/sign/ed25519"
	"golang.org/x/crypto/blake2b"

	"github.com/w3f/edunews/internal/ir"
)

// Verify reports whether sig is a valid signature of msg by the account
// behind addr. A malformed address is an error; a malformed signature is
// simply invalid.
func Verify(addr ir.Address, msg []byte, sig ir.Signature) (bool, error) {
	id, _, err := Decode(addr)
	if err != nil {
		return false, err
	}
	switch sig.Scheme {
	case ir.SchemeEd25519:
		if len(sig.Bytes) != ed25519.SignatureSize {
			return false, nil
		}
		return ed25519.Verify(ed25519.PublicKey(id[:]), msg, sig.Bytes), nil
	case ir.SchemeEcdsa:
		pub, ok := recoverEcdsa(msg, sig.Bytes)
		if !ok {
			return false, nil
		}
		recovered := ecdsaAccountID(pub)
		return bytes.Equal(recovered[:], id[:]), nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownScheme, sig.Scheme)
	}
}

// recoverEcdsa returns the compressed public key that produced an r || s || v
// signature over blake2b-256(msg).
func recoverEcdsa(msg, sig []byte) ([]byte, bool) {
	if len(sig) != 65 || sig[64] > 3 {
		return nil, false
	}
	compact := make([]byte, 65)
	compact[0] = sig[64] + 31
	copy(compact[1:], sig[:64])

	hash := blake2b.Sum256(msg)
	pub, _, err := becdsa.RecoverCompact(compact, hash[:])
	if err != nil {
		return nil, false
	}
	return pub.SerializeCompressed(), true
}
