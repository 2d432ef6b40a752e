package typetag

import (
	"fmt"
	"strings"

	"github.com/bearlytools/chainstate/errors"
)

// Canonical returns the name the node uses for t: "0x1::coin::CoinStore<0x1::aptos_coin::AptosCoin>".
// Generic arguments are separated by ", ". Canonical fails with errors.ErrUnresolvedType if t
// holds a Param.
func Canonical(t Tag) (string, error) {
	var b strings.Builder
	if err := write(&b, t, true); err != nil {
		return "", err
	}
	return b.String(), nil
}

// MustCanonical is Canonical that panics on error. Use it only with tags known to be resolved.
func MustCanonical(t Tag) string {
	s, err := Canonical(t)
	if err != nil {
		panic(err)
	}
	return s
}

// write renders t into b. With strict set, a Param is an error.
func write(b *strings.Builder, t Tag, strict bool) error {
	switch t := t.(type) {
	case nil:
		return fmt.Errorf("nil type tag: %w", errors.ErrUnresolvedType)
	case Atomic:
		b.WriteString(t.String())
	case Vector:
		b.WriteString("vector<")
		if err := write(b, t.Elem, strict); err != nil {
			return err
		}
		b.WriteByte('>')
	case Struct:
		b.WriteString(t.Ident.String())
		if len(t.Args) == 0 {
			return nil
		}
		b.WriteByte('<')
		for i, a := range t.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			if err := write(b, a, strict); err != nil {
				return err
			}
		}
		b.WriteByte('>')
	case Param:
		if strict {
			return fmt.Errorf("%s: %w", t, errors.ErrUnresolvedType)
		}
		b.WriteString(t.String())
	default:
		return fmt.Errorf("unknown type tag %T", t)
	}
	return nil
}

// Substitute replaces every Param(i) in declared with args[i]. A Param with an index past the
// end of args is an errors.ErrArityMismatch. A resolved declared is returned unchanged, so
// substituting an already substituted tag is a no-op.
func Substitute(declared Tag, args []Tag) (Tag, error) {
	switch t := declared.(type) {
	case Atomic:
		return t, nil
	case Param:
		if int(t.Index) >= len(args) {
			return nil, fmt.Errorf("%s with %d type arguments: %w", t, len(args), errors.ErrArityMismatch)
		}
		return args[t.Index], nil
	case Vector:
		if Resolved(t) {
			return t, nil
		}
		elem, err := Substitute(t.Elem, args)
		if err != nil {
			return nil, err
		}
		return Vector{Elem: elem}, nil
	case Struct:
		if Resolved(t) {
			return t, nil
		}
		n := make([]Tag, len(t.Args))
		for i, a := range t.Args {
			sub, err := Substitute(a, args)
			if err != nil {
				return nil, err
			}
			n[i] = sub
		}
		return Struct{Ident: t.Ident, Args: n}, nil
	case nil:
		return nil, fmt.Errorf("nil type tag: %w", errors.ErrUnresolvedType)
	}
	return nil, fmt.Errorf("unknown type tag %T", declared)
}

// normalizeLoose lowercases an address and strips leading zeros. Strings that are not hex
// addresses are returned lowercased so that NewIdent never fails; Parse rejects them.
func normalizeLoose(addr string) string {
	s, err := NormalizeAddress(addr)
	if err != nil {
		return strings.ToLower(addr)
	}
	return s
}

// NormalizeAddress returns addr in short form: "0x" followed by lowercase hex without leading
// zeros ("0x1"). The input may omit the "0x" prefix and may be up to 64 hex digits.
func NormalizeAddress(addr string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(addr))
	s = strings.TrimPrefix(s, "0x")
	if s == "" || len(s) > 64 {
		return "", fmt.Errorf("invalid address %q", addr)
	}
	for _, r := range s {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			return "", fmt.Errorf("invalid address %q", addr)
		}
	}
	s = strings.TrimLeft(s, "0")
	if s == "" {
		s = "0"
	}
	return "0x" + s, nil
}
