package value

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"
)

// U128 is a Move u128.
type U128 struct {
	Hi, Lo uint64
}

// U128From64 returns v as a U128.
func U128From64(v uint64) U128 {
	return U128{Lo: v}
}

// ParseU128 parses a decimal string, or hex with a "0x" prefix.
func ParseU128(s string) (U128, error) {
	b, err := parseBig(s, 128)
	if err != nil {
		return U128{}, fmt.Errorf("u128: %w", err)
	}
	var buf [16]byte
	b.FillBytes(buf[:])
	return U128{Hi: binary.BigEndian.Uint64(buf[:8]), Lo: binary.BigEndian.Uint64(buf[8:])}, nil
}

// Big returns u as a big.Int.
func (u U128) Big() *big.Int {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], u.Hi)
	binary.BigEndian.PutUint64(buf[8:], u.Lo)
	return new(big.Int).SetBytes(buf[:])
}

// IsZero reports if u == 0.
func (u U128) IsZero() bool {
	return u == U128{}
}

// String returns u in decimal.
func (u U128) String() string {
	if u.Hi == 0 {
		return fmt.Sprint(u.Lo)
	}
	return u.Big().String()
}

// U256 is a Move u256. Words are big-endian: W[0] holds the most significant 64 bits.
type U256 struct {
	W [4]uint64
}

// U256From64 returns v as a U256.
func U256From64(v uint64) U256 {
	return U256{W: [4]uint64{0, 0, 0, v}}
}

// ParseU256 parses a decimal string, or hex with a "0x" prefix.
func ParseU256(s string) (U256, error) {
	b, err := parseBig(s, 256)
	if err != nil {
		return U256{}, fmt.Errorf("u256: %w", err)
	}
	var buf [32]byte
	b.FillBytes(buf[:])
	var u U256
	for i := range u.W {
		u.W[i] = binary.BigEndian.Uint64(buf[i*8:])
	}
	return u, nil
}

// Big returns u as a big.Int.
func (u U256) Big() *big.Int {
	var buf [32]byte
	for i, w := range u.W {
		binary.BigEndian.PutUint64(buf[i*8:], w)
	}
	return new(big.Int).SetBytes(buf[:])
}

// IsZero reports if u == 0.
func (u U256) IsZero() bool {
	return u == U256{}
}

// String returns u in decimal.
func (u U256) String() string {
	if u.W[0] == 0 && u.W[1] == 0 && u.W[2] == 0 {
		return fmt.Sprint(u.W[3])
	}
	return u.Big().String()
}

func parseBig(s string, bits int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	base := 10
	if h, ok := strings.CutPrefix(s, "0x"); ok {
		s, base = h, 16
	}
	if s == "" || s[0] == '-' || s[0] == '+' {
		return nil, fmt.Errorf("invalid unsigned integer %q", s)
	}
	b, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, fmt.Errorf("invalid unsigned integer %q", s)
	}
	if b.BitLen() > bits {
		return nil, fmt.Errorf("%s overflows %d bits", s, bits)
	}
	return b, nil
}
