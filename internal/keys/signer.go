package keys

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	becdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/cloudflare/circl/sign/ed25519"
	"golang.org/x/crypto/blake2b"

	"github.com/w3f/edunews/internal/ir"
)

// ErrUnknownScheme is returned for signature schemes this package cannot handle.
var ErrUnknownScheme = errors.New("unknown signature scheme")

// Signer produces signatures with a key it never exposes.
type Signer interface {
	Address() ir.Address
	PublicKey() []byte
	Scheme() ir.SignatureScheme
	Sign(msg []byte) (ir.Signature, error)
}

// FromURI derives a signer for the given scheme from a secret URI.
func FromURI(secret string, scheme ir.SignatureScheme, prefix uint16) (Signer, error) {
	uri, err := ParseSecretURI(secret)
	if err != nil {
		return nil, err
	}
	switch scheme {
	case ir.SchemeEd25519, "":
		seed, err := uri.deriveSeed("Ed25519HDKD")
		if err != nil {
			return nil, err
		}
		return newEd25519Signer(seed, prefix)
	case ir.SchemeEcdsa:
		seed, err := uri.deriveSeed("Secp256k1HDKD")
		if err != nil {
			return nil, err
		}
		return newEcdsaSigner(seed, prefix)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
}

// Dev returns the ed25519 development account with the given name, e.g. "Alice".
func Dev(name string) (Signer, error) {
	return FromURI("//"+name, ir.SchemeEd25519, DefaultPrefix)
}

// Ed25519Signer signs with an ed25519 key. The account id is the public key.
type Ed25519Signer struct {
	priv    ed25519.PrivateKey
	pub     ed25519.PublicKey
	address ir.Address
}

func newEd25519Signer(seed []byte, prefix uint16) (*Ed25519Signer, error) {
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	var id AccountID
	copy(id[:], pub)
	addr, err := Encode(id, prefix)
	if err != nil {
		return nil, err
	}
	return &Ed25519Signer{priv: priv, pub: pub, address: addr}, nil
}

func (s *Ed25519Signer) Address() ir.Address        { return s.address }
func (s *Ed25519Signer) Scheme() ir.SignatureScheme { return ir.SchemeEd25519 }

func (s *Ed25519Signer) PublicKey() []byte {
	out := make([]byte, len(s.pub))
	copy(out, s.pub)
	return out
}

func (s *Ed25519Signer) Sign(msg []byte) (ir.Signature, error) {
	return ir.Signature{Scheme: ir.SchemeEd25519, Bytes: ed25519.Sign(s.priv, msg)}, nil
}

// EcdsaSigner signs blake2b-256(msg) with a secp256k1 key. The account id is
// blake2b-256 of the compressed public key.
type EcdsaSigner struct {
	priv    *btcec.PrivateKey
	address ir.Address
}

func newEcdsaSigner(seed []byte, prefix uint16) (*EcdsaSigner, error) {
	priv, pub := btcec.PrivKeyFromBytes(seed)
	addr, err := Encode(ecdsaAccountID(pub.SerializeCompressed()), prefix)
	if err != nil {
		return nil, err
	}
	return &EcdsaSigner{priv: priv, address: addr}, nil
}

func (s *EcdsaSigner) Address() ir.Address        { return s.address }
func (s *EcdsaSigner) Scheme() ir.SignatureScheme { return ir.SchemeEcdsa }

// PublicKey returns the 33 byte compressed public key.
func (s *EcdsaSigner) PublicKey() []byte {
	return s.priv.PubKey().SerializeCompressed()
}

// Sign returns a 65 byte r || s || v signature.
func (s *EcdsaSigner) Sign(msg []byte) (ir.Signature, error) {
	hash := blake2b.Sum256(msg)
	compact, err := becdsa.SignCompact(s.priv, hash[:], true)
	if err != nil {
		return ir.Signature{}, fmt.Errorf("sign: %w", err)
	}
	// compact is [27+4+v] || r || s
	out := make([]byte, 65)
	copy(out, compact[1:])
	out[64] = compact[0] - 31
	return ir.Signature{Scheme: ir.SchemeEcdsa, Bytes: out}, nil
}

func ecdsaAccountID(compressed []byte) AccountID {
	return AccountID(blake2b.Sum256(compressed))
}
