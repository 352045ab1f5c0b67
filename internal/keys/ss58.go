package keys

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"

	"github.com/w3f/edunews/internal/ir"
)

// DefaultPrefix is the generic substrate network prefix.
const DefaultPrefix uint16 = 42

const (
	accountIDSize = 32
	checksumSize  = 2
	maxPrefix     = 16383
)

var ss58Context = []byte("SS58PRE")

// ErrInvalidAddress is returned for strings that are not SS58 account addresses.
var ErrInvalidAddress = errors.New("invalid address")

// AccountID is the raw 32 byte account identifier behind an address.
type AccountID [accountIDSize]byte

// Encode renders id as an SS58 address under the given network prefix.
func Encode(id AccountID, prefix uint16) (ir.Address, error) {
	pre, err := encodePrefix(prefix)
	if err != nil {
		return "", err
	}
	body := append(pre, id[:]...)
	sum := checksum(body)
	return ir.Address(base58.Encode(append(body, sum[:checksumSize]...))), nil
}

// Decode parses an SS58 address and returns the account id and prefix.
func Decode(addr ir.Address) (AccountID, uint16, error) {
	var id AccountID
	raw, err := base58.Decode(string(addr))
	if err != nil {
		return id, 0, fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	if len(raw) < 1 {
		return id, 0, fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}

	prefixLen := 1
	var prefix uint16
	switch {
	case raw[0] < 64:
		prefix = uint16(raw[0])
	case raw[0] < 128:
		if len(raw) < 2 {
			return id, 0, fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
		}
		lower := (raw[0] << 2) | (raw[1] >> 6)
		upper := raw[1] & 0x3f
		prefix = uint16(lower) | uint16(upper)<<8
		prefixLen = 2
	default:
		return id, 0, fmt.Errorf("%w: reserved prefix in %q", ErrInvalidAddress, addr)
	}

	if len(raw) != prefixLen+accountIDSize+checksumSize {
		return id, 0, fmt.Errorf("%w: %q has wrong length", ErrInvalidAddress, addr)
	}
	body := raw[:prefixLen+accountIDSize]
	sum := checksum(body)
	if !bytes.Equal(sum[:checksumSize], raw[prefixLen+accountIDSize:]) {
		return id, 0, fmt.Errorf("%w: bad checksum in %q", ErrInvalidAddress, addr)
	}
	copy(id[:], body[prefixLen:])
	return id, prefix, nil
}

// ValidateAddress reports whether addr is a well-formed SS58 address.
func ValidateAddress(addr ir.Address) error {
	_, _, err := Decode(addr)
	return err
}

func encodePrefix(prefix uint16) ([]byte, error) {
	switch {
	case prefix < 64:
		return []byte{byte(prefix)}, nil
	case prefix <= maxPrefix:
		first := byte((prefix&0x00fc)>>2) | 0x40
		second := byte(prefix>>8) | byte((prefix&0x0003)<<6)
		return []byte{first, second}, nil
	default:
		return nil, fmt.Errorf("ss58 prefix %d out of range", prefix)
	}
}

func checksum(body []byte) [blake2b.Size]byte {
	msg := make([]byte, 0, len(ss58Context)+len(body))
	msg = append(msg, ss58Context...)
	msg = append(msg, body...)
	return blake2b.Sum512(msg)
}
