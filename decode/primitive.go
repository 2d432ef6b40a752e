package decode

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"
	jsonv2 "github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/bearlytools/chainstate/errors"
	"github.com/bearlytools/chainstate/internal/conversions"
	"github.com/bearlytools/chainstate/typetag"
	"github.com/bearlytools/chainstate/value"
)

// kindOf returns the JSON kind of raw the way jsontext.Kind spells it: 'n', 't', 'f', '"', '0',
// '{' or '['. Invalid input returns 0.
func kindOf(raw jsontext.Value) byte {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 {
		return 0
	}
	switch c := b[0]; {
	case c == 'n', c == 't', c == 'f', c == '"', c == '{', c == '[':
		return c
	case c == '-', c >= '0' && c <= '9':
		return '0'
	}
	return 0
}

// mismatch returns an errors.ErrTypeMismatch that shows a bounded part of raw.
func mismatch(want string, raw jsontext.Value) error {
	b := bytes.TrimSpace(raw)
	const limit = 64
	suffix := ""
	if len(b) > limit {
		b, suffix = b[:limit], "..."
	}
	return fmt.Errorf("want %s, got %s%s: %w", want, conversions.ByteSlice2String(b), suffix, errors.ErrTypeMismatch)
}

func unquote(raw jsontext.Value) (string, error) {
	if kindOf(raw) != '"' {
		return "", mismatch("string", raw)
	}
	var s string
	if err := jsonv2.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: %w", errors.ErrTypeMismatch, err)
	}
	return s, nil
}

// numericText returns the digits of a JSON number or of a string holding a number.
func numericText(raw jsontext.Value) (string, error) {
	switch kindOf(raw) {
	case '0':
		return string(bytes.TrimSpace(raw)), nil
	case '"':
		return unquote(raw)
	}
	return "", mismatch("integer", raw)
}

func parseUint64(raw jsontext.Value) (uint64, error) {
	s, err := numericText(raw)
	if err != nil {
		return 0, err
	}
	u, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, mismatch("unsigned integer", raw)
	}
	return u, nil
}

// narrow parses raw and converts it to a smaller unsigned type, failing on overflow.
func narrow[T uint8 | uint16 | uint32](raw jsontext.Value) (T, error) {
	u, err := parseUint64(raw)
	if err != nil {
		return 0, err
	}
	v, err := safecast.Conv[T](u)
	if err != nil {
		var zero T
		return 0, fmt.Errorf("%d out of range for %T: %w", u, zero, errors.ErrTypeMismatch)
	}
	return v, nil
}

func decodeAtomic(raw jsontext.Value, tag typetag.Tag, _ *Registry) (any, error) {
	a, ok := tag.(typetag.Atomic)
	if !ok {
		return nil, fmt.Errorf("atomic decoder given %s: %w", tag, errors.ErrTypeMismatch)
	}

	switch a {
	case typetag.Bool:
		switch kindOf(raw) {
		case 't':
			return true, nil
		case 'f':
			return false, nil
		}
		return nil, mismatch("bool", raw)
	case typetag.U8:
		return narrow[uint8](raw)
	case typetag.U16:
		return narrow[uint16](raw)
	case typetag.U32:
		return narrow[uint32](raw)
	case typetag.U64:
		return parseUint64(raw)
	case typetag.U128:
		s, err := numericText(raw)
		if err != nil {
			return nil, err
		}
		u, err := value.ParseU128(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errors.ErrTypeMismatch, err)
		}
		return u, nil
	case typetag.U256:
		s, err := numericText(raw)
		if err != nil {
			return nil, err
		}
		u, err := value.ParseU256(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errors.ErrTypeMismatch, err)
		}
		return u, nil
	case typetag.Address, typetag.Signer:
		s, err := unquote(raw)
		if err != nil {
			return nil, err
		}
		addr, err := value.ParseAddress(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errors.ErrTypeMismatch, err)
		}
		return addr, nil
	}
	return nil, fmt.Errorf("unknown atomic %s: %w", a, errors.ErrNotRegistered)
}

// decodeHex decodes a "0x" prefixed hex string.
func decodeHex(raw jsontext.Value) ([]byte, error) {
	s, err := unquote(raw)
	if err != nil {
		return nil, err
	}
	h, ok := strings.CutPrefix(s, "0x")
	if !ok {
		return nil, mismatch("0x prefixed hex", raw)
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrTypeMismatch, err)
	}
	return b, nil
}

func decodeVector(raw jsontext.Value, tag typetag.Tag, r *Registry) (any, error) {
	v, ok := tag.(typetag.Vector)
	if !ok {
		return nil, fmt.Errorf("vector decoder given %s: %w", tag, errors.ErrTypeMismatch)
	}

	if a, ok := v.Elem.(typetag.Atomic); ok && a == typetag.U8 {
		if kindOf(raw) == '"' {
			return decodeHex(raw)
		}
		elems, err := array(raw)
		if err != nil {
			return nil, err
		}
		b := make([]byte, len(elems))
		for i, e := range elems {
			n, err := narrow[uint8](e)
			if err != nil {
				return nil, atIndex(err, i)
			}
			b[i] = n
		}
		return b, nil
	}

	elems, err := array(raw)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(elems))
	for i, e := range elems {
		d, err := r.decode(e, v.Elem)
		if err != nil {
			return nil, atIndex(err, i)
		}
		out[i] = d
	}
	return out, nil
}

func array(raw jsontext.Value) ([]jsontext.Value, error) {
	if kindOf(raw) != '[' {
		return nil, mismatch("array", raw)
	}
	var elems []jsontext.Value
	if err := jsonv2.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrTypeMismatch, err)
	}
	return elems, nil
}

func object(raw jsontext.Value) (map[string]jsontext.Value, error) {
	if kindOf(raw) != '{' {
		return nil, mismatch("object", raw)
	}
	var obj map[string]jsontext.Value
	if err := jsonv2.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrTypeMismatch, err)
	}
	return obj, nil
}
