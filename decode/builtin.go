package decode

import (
	"fmt"
	"strings"

	"github.com/go-json-experiment/json/jsontext"

	"github.com/bearlytools/chainstate/errors"
	"github.com/bearlytools/chainstate/typetag"
	"github.com/bearlytools/chainstate/value"
)

func structArgs(tag typetag.Tag, n int) (typetag.Struct, error) {
	st, ok := tag.(typetag.Struct)
	if !ok {
		return typetag.Struct{}, fmt.Errorf("struct decoder given %s: %w", tag, errors.ErrTypeMismatch)
	}
	if len(st.Args) != n {
		return typetag.Struct{}, fmt.Errorf("%s takes %d type arguments, got %d: %w", st.Ident, n, len(st.Args), errors.ErrArityMismatch)
	}
	return st, nil
}

// decodeOption decodes {"vec": []} or {"vec": [x]}. Anything else, null included, is a mismatch.
func decodeOption(raw jsontext.Value, tag typetag.Tag, r *Registry) (any, error) {
	st, err := structArgs(tag, 1)
	if err != nil {
		return nil, err
	}
	o := value.Option{Type: st}
	obj, err := object(raw)
	if err != nil {
		return nil, err
	}
	vec, ok := obj["vec"]
	if !ok {
		return nil, atField(errors.ErrFieldMissing, "vec")
	}
	elems, err := array(vec)
	if err != nil {
		return nil, atField(err, "vec")
	}
	switch len(elems) {
	case 0:
		return o, nil
	case 1:
		v, err := r.decode(elems[0], st.Args[0])
		if err != nil {
			return nil, atField(atIndex(err, 0), "vec")
		}
		o.Value, o.Some = v, true
		return o, nil
	}
	return nil, atField(fmt.Errorf("option holds %d elements: %w", len(elems), errors.ErrTypeMismatch), "vec")
}

// decodeTable decodes {"handle": "0x..."}. Older nodes render the handle as a u128 string.
func decodeTable(raw jsontext.Value, tag typetag.Tag, _ *Registry) (any, error) {
	st, err := structArgs(tag, 2)
	if err != nil {
		return nil, err
	}
	obj, err := object(raw)
	if err != nil {
		return nil, err
	}
	h, ok := obj["handle"]
	if !ok {
		return nil, atField(errors.ErrFieldMissing, "handle")
	}
	addr, err := handle(h)
	if err != nil {
		return nil, atField(err, "handle")
	}
	return value.Table{Type: st, Handle: addr, KeyType: st.Args[0], ValueType: st.Args[1]}, nil
}

// decodeTableWithLength decodes {"inner": {"handle": ...}, "length": "3"}.
func decodeTableWithLength(raw jsontext.Value, tag typetag.Tag, r *Registry) (any, error) {
	st, err := structArgs(tag, 2)
	if err != nil {
		return nil, err
	}
	obj, err := object(raw)
	if err != nil {
		return nil, err
	}
	inner, ok := obj["inner"]
	if !ok {
		return nil, atField(errors.ErrFieldMissing, "inner")
	}
	length, ok := obj["length"]
	if !ok {
		return nil, atField(errors.ErrFieldMissing, "length")
	}

	t, err := decodeTable(inner, st, r)
	if err != nil {
		return nil, atField(err, "inner")
	}
	n, err := parseUint64(length)
	if err != nil {
		return nil, atField(err, "length")
	}
	tbl := t.(value.Table)
	tbl.Length, tbl.HasLength = n, true
	return tbl, nil
}

func handle(raw jsontext.Value) (value.Address, error) {
	s, err := unquote(raw)
	if err != nil {
		return value.Address{}, err
	}
	if strings.HasPrefix(s, "0x") {
		a, err := value.ParseAddress(s)
		if err != nil {
			return value.Address{}, fmt.Errorf("%w: %w", errors.ErrTypeMismatch, err)
		}
		return a, nil
	}
	u, err := value.ParseU128(s)
	if err != nil {
		return value.Address{}, fmt.Errorf("%w: %w", errors.ErrTypeMismatch, err)
	}
	return value.AddressFromBytes(u.Big().Bytes())
}

// decodeString decodes a Move string. Nodes render it as a JSON string; the struct form
// {"bytes": "0x..."} is also accepted.
func decodeString(raw jsontext.Value, _ typetag.Tag, _ *Registry) (any, error) {
	switch kindOf(raw) {
	case '"':
		return unquote(raw)
	case '{':
		obj, err := object(raw)
		if err != nil {
			return nil, err
		}
		b, ok := obj["bytes"]
		if !ok {
			return nil, atField(errors.ErrFieldMissing, "bytes")
		}
		h, err := decodeHex(b)
		if err != nil {
			return nil, atField(err, "bytes")
		}
		return string(h), nil
	}
	return nil, mismatch("string", raw)
}
