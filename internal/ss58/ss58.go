// Package ss58 encodes and decodes chain addresses in the SS58 format.
package ss58

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"

	"github.com/dbsmedya/godelegate/internal/types"
)

const (
	checksumLength = 2
	// MaxPrefix is the largest network identifier the two-byte form can carry.
	MaxPrefix = 16383
)

var checksumPreimage = []byte("SS58PRE")

var (
	ErrInvalidPrefix   = errors.New("ss58: invalid address prefix")
	ErrInvalidChecksum = errors.New("ss58: checksum mismatch")
	ErrInvalidLength   = errors.New("ss58: unexpected payload length")
)

// Encode renders id as an address for the network identified by prefix.
func Encode(id types.AccountID, prefix uint16) (string, error) {
	head, err := encodePrefix(prefix)
	if err != nil {
		return "", err
	}

	body := make([]byte, 0, len(head)+types.AccountIDLength+checksumLength)
	body = append(body, head...)
	body = append(body, id[:]...)
	sum := checksum(body)
	body = append(body, sum[:checksumLength]...)

	return base58.Encode(body), nil
}

// MustEncode is Encode for prefixes known to be valid.
func MustEncode(id types.AccountID, prefix uint16) string {
	s, err := Encode(id, prefix)
	if err != nil {
		panic(err)
	}
	return s
}

// Decode parses an address and returns the account id and network prefix.
func Decode(address string) (types.AccountID, uint16, error) {
	var id types.AccountID

	raw, err := base58.Decode(address)
	if err != nil {
		return id, 0, fmt.Errorf("ss58: %w", err)
	}
	if len(raw) < 1 {
		return id, 0, ErrInvalidLength
	}

	prefix, prefixLen, err := decodePrefix(raw)
	if err != nil {
		return id, 0, err
	}

	if len(raw) != prefixLen+types.AccountIDLength+checksumLength {
		return id, 0, fmt.Errorf("%w: %d bytes", ErrInvalidLength, len(raw))
	}

	body := raw[:len(raw)-checksumLength]
	sum := checksum(body)
	if !bytes.Equal(sum[:checksumLength], raw[len(raw)-checksumLength:]) {
		return id, 0, ErrInvalidChecksum
	}

	copy(id[:], body[prefixLen:])
	return id, prefix, nil
}

// DecodeForPrefix decodes address and checks it belongs to the given network.
func DecodeForPrefix(address string, prefix uint16) (types.AccountID, error) {
	id, got, err := Decode(address)
	if err != nil {
		return id, err
	}
	if got != prefix {
		return id, fmt.Errorf("%w: address has prefix %d, want %d", ErrInvalidPrefix, got, prefix)
	}
	return id, nil
}

func encodePrefix(prefix uint16) ([]byte, error) {
	switch {
	case prefix < 64:
		return []byte{byte(prefix)}, nil
	case prefix <= MaxPrefix:
		first := byte((prefix&0x00FC)>>2) | 0x40
		second := byte(prefix>>8) | byte((prefix&0x0003)<<6)
		return []byte{first, second}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidPrefix, prefix)
	}
}

func decodePrefix(raw []byte) (uint16, int, error) {
	d0 := raw[0]
	switch {
	case d0 < 64:
		return uint16(d0), 1, nil
	case d0 < 128:
		if len(raw) < 2 {
			return 0, 0, ErrInvalidLength
		}
		d1 := raw[1]
		lower := (d0 << 2) | (d1 >> 6)
		upper := d1 & 0x3F
		return uint16(lower) | uint16(upper)<<8, 2, nil
	default:
		return 0, 0, fmt.Errorf("%w: leading byte %#x", ErrInvalidPrefix, d0)
	}
}

func checksum(body []byte) [blake2b.Size]byte {
	buf := make([]byte, 0, len(checksumPreimage)+len(body))
	buf = append(buf, checksumPreimage...)
	buf = append(buf, body...)
	return blake2b.Sum512(buf)
}
