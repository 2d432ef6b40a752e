package decode

import (
	"fmt"

	"github.com/go-json-experiment/json/jsontext"

	"github.com/bearlytools/chainstate/errors"
	"github.com/bearlytools/chainstate/typetag"
	"github.com/bearlytools/chainstate/value"
)

// DecodeStruct is the generic struct decoder. It looks up the declaration for tag, checks the
// argument count, and decodes each declared field in order after substituting tag's arguments
// into the field's declared type. Keys in raw that are not declared are ignored. The result is
// a *value.Instance.
func DecodeStruct(raw jsontext.Value, tag typetag.Tag, r *Registry) (any, error) {
	st, ok := tag.(typetag.Struct)
	if !ok {
		return nil, fmt.Errorf("struct decoder given %s: %w", tag, errors.ErrTypeMismatch)
	}
	return r.decodeStruct(raw, st)
}

func (r *Registry) decodeStruct(raw jsontext.Value, st typetag.Struct) (*value.Instance, error) {
	m, err := r.decls.Lookup(st.Ident)
	if err != nil {
		return nil, err
	}
	if len(st.Args) != len(m.TypeParams) {
		return nil, fmt.Errorf("%s declared with %d type parameters, got %d arguments: %w", st.Ident, len(m.TypeParams), len(st.Args), errors.ErrArityMismatch)
	}

	obj, err := object(raw)
	if err != nil {
		return nil, err
	}

	inst := &value.Instance{Type: st, Fields: make([]value.Field, 0, len(m.Fields))}
	for _, f := range m.Fields {
		ft, err := typetag.Substitute(f.Type, st.Args)
		if err != nil {
			return nil, atField(err, f.Name)
		}
		fraw, ok := obj[f.Name]
		if !ok {
			return nil, atField(errors.ErrFieldMissing, f.Name)
		}
		v, err := r.decode(fraw, ft)
		if err != nil {
			return nil, atField(err, f.Name)
		}
		inst.Fields = append(inst.Fields, value.Field{Name: f.Name, Value: v})
	}
	return inst, nil
}
