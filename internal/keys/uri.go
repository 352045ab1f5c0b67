package keys

import (
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/pbkdf2"
)

// DevPhrase is the publicly known development mnemonic.
const DevPhrase = "bottom drive obey lake curtain smoke basket hold race lonely fit walk"

var (
	// ErrInvalidMnemonic is returned when a secret URI cannot produce a key.
	ErrInvalidMnemonic = errors.New("invalid mnemonic phrase")

	// ErrSoftDerivation is returned for soft junctions, which neither
	// supported scheme can derive.
	ErrSoftDerivation = errors.New("soft derivation is not supported")
)

// Junction is one step of a derivation path.
type Junction struct {
	Hard  bool
	Value string
}

// SecretURI is a parsed "<phrase>//junction///password" string.
type SecretURI struct {
	Phrase    string
	Junctions []Junction
	Password  string
}

// ParseSecretURI splits a secret URI into its phrase, junctions and password.
// An empty phrase is replaced by DevPhrase.
func ParseSecretURI(s string) (SecretURI, error) {
	var uri SecretURI
	s = strings.TrimSpace(s)
	if s == "" {
		return uri, fmt.Errorf("%w: empty secret", ErrInvalidMnemonic)
	}

	if i := strings.Index(s, "///"); i >= 0 {
		uri.Password = s[i+3:]
		s = s[:i]
	}

	path := ""
	if i := strings.Index(s, "/"); i >= 0 {
		path = s[i:]
		s = s[:i]
	}
	uri.Phrase = strings.Join(strings.Fields(s), " ")
	if uri.Phrase == "" {
		uri.Phrase = DevPhrase
	}

	for path != "" {
		hard := strings.HasPrefix(path, "//")
		if hard {
			path = path[2:]
		} else {
			path = path[1:]
		}
		end := strings.Index(path, "/")
		if end < 0 {
			end = len(path)
		}
		value := path[:end]
		if value == "" {
			return uri, fmt.Errorf("%w: empty junction", ErrInvalidMnemonic)
		}
		uri.Junctions = append(uri.Junctions, Junction{Hard: hard, Value: value})
		path = path[end:]
	}
	return uri, nil
}

// miniSecret turns the phrase into a 32 byte seed. Mnemonics are stretched
// from their entropy, not their words, with PBKDF2-HMAC-SHA512.
func (u SecretURI) miniSecret() ([]byte, error) {
	if strings.HasPrefix(u.Phrase, "0x") {
		seed, err := hex.DecodeString(u.Phrase[2:])
		if err != nil || len(seed) != 32 {
			return nil, fmt.Errorf("%w: seed must be 32 bytes of hex", ErrInvalidMnemonic)
		}
		return seed, nil
	}
	entropy, err := bip39.EntropyFromMnemonic(u.Phrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	salt := []byte("mnemonic" + u.Password)
	return pbkdf2.Key(entropy, salt, 2048, 64, sha512.New)[:32], nil
}

// deriveSeed applies every hard junction to the mini secret. label names the
// scheme's derivation domain.
func (u SecretURI) deriveSeed(label string) ([]byte, error) {
	seed, err := u.miniSecret()
	if err != nil {
		return nil, err
	}
	for _, j := range u.Junctions {
		if !j.Hard {
			return nil, fmt.Errorf("%w: /%s", ErrSoftDerivation, j.Value)
		}
		seed = hardDerive(label, seed, chainCode(j.Value))
	}
	return seed, nil
}

func hardDerive(label string, seed []byte, cc [32]byte) []byte {
	msg := scaleString(label)
	msg = append(msg, seed...)
	msg = append(msg, cc[:]...)
	sum := blake2b.Sum256(msg)
	return sum[:]
}

// chainCode encodes a junction: numbers as little endian u64, anything else
// as a length-prefixed string, hashed when longer than 32 bytes.
func chainCode(value string) [32]byte {
	var cc [32]byte
	if n, err := strconv.ParseUint(value, 10, 64); err == nil {
		binary.LittleEndian.PutUint64(cc[:8], n)
		return cc
	}
	enc := scaleString(value)
	if len(enc) > 32 {
		sum := blake2b.Sum256(enc)
		return sum
	}
	copy(cc[:], enc)
	return cc
}

// scaleString prefixes s with its compact-encoded length.
func scaleString(s string) []byte {
	n := len(s)
	var out []byte
	switch {
	case n < 1<<6:
		out = []byte{byte(n << 2)}
	case n < 1<<14:
		out = binary.LittleEndian.AppendUint16(nil, uint16(n<<2|0b01))
	default:
		out = binary.LittleEndian.AppendUint32(nil, uint32(n<<2|0b10))
	}
	return append(out, s...)
}
