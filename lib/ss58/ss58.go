package ss58

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"golang.org/x/crypto/blake2b"
)

const (
	// generic substrate prefix
	DefaultPrefix uint16 = 42

	checksumLength = 2
	maxPrefix      = 16383
)

var checksumPrefix = []byte("SS58PRE")

var (
	ErrInvalidPrefix   = errors.New("ss58 prefix out of range")
	ErrInvalidAddress  = errors.New("malformed ss58 address")
	ErrInvalidChecksum = errors.New("ss58 checksum mismatch")
)

func checksum(data []byte) []byte {
	h, _ := blake2b.New512(nil)
	h.Write(checksumPrefix)
	h.Write(data)
	return h.Sum(nil)[:checksumLength]
}

func prefixBytes(prefix uint16) ([]byte, error) {
	switch {
	case prefix < 64:
		return []byte{byte(prefix)}, nil
	case prefix <= maxPrefix:
		return []byte{
			byte((prefix&0b1111_1100)>>2) | 0b0100_0000,
			byte(prefix>>8) | byte((prefix&0b11)<<6),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidPrefix, prefix)
	}
}

// Encode renders a 32 byte account id as an ss58 address.
func Encode(prefix uint16, account [32]byte) (string, error) {
	data, err := prefixBytes(prefix)
	if err != nil {
		return "", err
	}
	data = append(data, account[:]...)
	data = append(data, checksum(data)...)
	return base58.Encode(data), nil
}

// MustEncode is Encode for prefixes known to be valid.
func MustEncode(prefix uint16, account [32]byte) string {
	s, err := Encode(prefix, account)
	if err != nil {
		panic(err)
	}
	return s
}

// Decode parses an ss58 address of a 32 byte account id.
func Decode(address string) (uint16, [32]byte, error) {
	var account [32]byte
	raw := base58.Decode(address)
	if len(raw) < 1 {
		return 0, account, ErrInvalidAddress
	}

	var prefix uint16
	prefixLen := 1
	switch {
	case raw[0] < 64:
		prefix = uint16(raw[0])
	case raw[0] < 128:
		if len(raw) < 2 {
			return 0, account, ErrInvalidAddress
		}
		lower := (raw[0] << 2) | (raw[1] >> 6)
		upper := raw[1] & 0b0011_1111
		prefix = uint16(lower) | uint16(upper)<<8
		prefixLen = 2
	default:
		return 0, account, ErrInvalidAddress
	}

	if len(raw) != prefixLen+32+checksumLength {
		return 0, account, fmt.Errorf("%w: length %d", ErrInvalidAddress, len(raw))
	}

	body := raw[:prefixLen+32]
	sum := checksum(body)
	if sum[0] != raw[len(raw)-2] || sum[1] != raw[len(raw)-1] {
		return 0, account, ErrInvalidChecksum
	}

	copy(account[:], raw[prefixLen:prefixLen+32])
	return prefix, account, nil
}
