package decode

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/go-json-experiment/json/jsontext"
	"golang.org/x/exp/constraints"

	"github.com/bearlytools/chainstate/value"
)

// encodeOptions provides options for writing decoded values as node JSON.
type encodeOptions struct {
	InlineResources bool
}

// EncodeOption provides options for Encode.
type EncodeOption func(encodeOptions) (encodeOptions, error)

// WithInlineResources writes a loaded value.ResourceRef as the resource object instead of its
// address. The output then no longer decodes back to the same value.
func WithInlineResources(inline bool) EncodeOption {
	return func(o encodeOptions) (encodeOptions, error) {
		o.InlineResources = inline
		return o, nil
	}
}

// Encode writes v the way the node renders it, so decoding the output with v's type yields v.
// It is used to build table keys and to print decoded state.
func Encode(v any, options ...EncodeOption) (jsontext.Value, error) {
	opts := encodeOptions{}
	for _, opt := range options {
		var err error
		opts, err = opt(opts)
		if err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	enc := jsontext.NewEncoder(&buf)
	if err := opts.write(enc, v); err != nil {
		return nil, err
	}
	return jsontext.Value(bytes.TrimSpace(buf.Bytes())), nil
}

func unsigned[T constraints.Unsigned](v T) jsontext.Token {
	return jsontext.Uint(uint64(v))
}

func quoted[T constraints.Unsigned](v T) jsontext.Token {
	return jsontext.String(strconv.FormatUint(uint64(v), 10))
}

func (o encodeOptions) write(enc *jsontext.Encoder, v any) error {
	switch t := v.(type) {
	case nil:
		return enc.WriteToken(jsontext.Null)
	case bool:
		return enc.WriteToken(jsontext.Bool(t))
	case uint8:
		return enc.WriteToken(unsigned(t))
	case uint16:
		return enc.WriteToken(unsigned(t))
	case uint32:
		return enc.WriteToken(unsigned(t))
	case uint64:
		return enc.WriteToken(quoted(t))
	case value.U128:
		return enc.WriteToken(jsontext.String(t.String()))
	case value.U256:
		return enc.WriteToken(jsontext.String(t.String()))
	case value.Address:
		return enc.WriteToken(jsontext.String(t.String()))
	case []byte:
		return enc.WriteToken(jsontext.String("0x" + hex.EncodeToString(t)))
	case string:
		return enc.WriteToken(jsontext.String(t))
	case []any:
		if err := enc.WriteToken(jsontext.BeginArray); err != nil {
			return err
		}
		for _, e := range t {
			if err := o.write(enc, e); err != nil {
				return err
			}
		}
		return enc.WriteToken(jsontext.EndArray)
	case *value.Instance:
		if t == nil {
			return enc.WriteToken(jsontext.Null)
		}
		if err := enc.WriteToken(jsontext.BeginObject); err != nil {
			return err
		}
		for _, f := range t.Fields {
			if err := enc.WriteToken(jsontext.String(f.Name)); err != nil {
				return err
			}
			if err := o.write(enc, f.Value); err != nil {
				return fmt.Errorf("%s.%s: %w", t.Type.Name, f.Name, err)
			}
		}
		return enc.WriteToken(jsontext.EndObject)
	case value.Option:
		if err := writeTokens(enc, jsontext.BeginObject, jsontext.String("vec"), jsontext.BeginArray); err != nil {
			return err
		}
		if t.Some {
			if err := o.write(enc, t.Value); err != nil {
				return err
			}
		}
		return writeTokens(enc, jsontext.EndArray, jsontext.EndObject)
	case value.Table:
		h := jsontext.String(t.Handle.String())
		if !t.HasLength {
			return writeTokens(enc, jsontext.BeginObject, jsontext.String("handle"), h, jsontext.EndObject)
		}
		return writeTokens(enc,
			jsontext.BeginObject,
			jsontext.String("inner"), jsontext.BeginObject, jsontext.String("handle"), h, jsontext.EndObject,
			jsontext.String("length"), quoted(t.Length),
			jsontext.EndObject,
		)
	case value.ResourceRef:
		if o.InlineResources && t.Resource != nil {
			return o.write(enc, t.Resource)
		}
		return enc.WriteToken(jsontext.String(t.Address.String()))
	}
	return fmt.Errorf("cannot encode %T", v)
}

func writeTokens(enc *jsontext.Encoder, toks ...jsontext.Token) error {
	for _, tok := range toks {
		if err := enc.WriteToken(tok); err != nil {
			return err
		}
	}
	return nil
}
