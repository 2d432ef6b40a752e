// Package value holds the in-memory representation of decoded Move data. Field values of an
// Instance are one of: bool, uint8, uint16, uint32, uint64, U128, U256, Address, []byte
// (vector<u8>), string (Move strings), []any (other vectors), *Instance, Option, Table or
// ResourceRef.
package value

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Address is a 32 byte account address.
type Address [32]byte

// ParseAddress parses a hex address. The "0x" prefix is optional and leading zeros may be
// omitted, so "0x1" and the 64 digit form are the same address.
func ParseAddress(s string) (Address, error) {
	var a Address
	h := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if h == "" || len(h) > 64 {
		return a, fmt.Errorf("invalid address %q", s)
	}
	if len(h)%2 == 1 {
		h = "0" + h
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return a, fmt.Errorf("invalid address %q: %w", s, err)
	}
	copy(a[32-len(b):], b)
	return a, nil
}

// MustAddress is ParseAddress that panics.
func MustAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddressFromBytes returns the address whose big-endian value is b. b may be shorter than 32 bytes.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) > len(a) {
		return a, fmt.Errorf("address of %d bytes", len(b))
	}
	copy(a[32-len(b):], b)
	return a, nil
}

// String returns the short form: "0x" followed by hex without leading zeros.
func (a Address) String() string {
	s := strings.TrimLeft(hex.EncodeToString(a[:]), "0")
	if s == "" {
		s = "0"
	}
	return "0x" + s
}

// Long returns "0x" followed by all 64 hex digits.
func (a Address) Long() string {
	return "0x" + hex.EncodeToString(a[:])
}

// IsZero reports if a is 0x0.
func (a Address) IsZero() bool {
	return a == Address{}
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(b []byte) error {
	n, err := ParseAddress(string(b))
	if err != nil {
		return err
	}
	*a = n
	return nil
}
