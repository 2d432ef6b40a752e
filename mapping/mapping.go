// Package mapping holds the struct declarations used to decode Move values. A Map describes one
// generic struct declaration: its identity, its type parameters and its fields in declared order.
// A Registry is the immutable, validated set of Maps a decoder works against.
package mapping

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bearlytools/chainstate/errors"
	"github.com/bearlytools/chainstate/typetag"
)

// TypeParam is a generic parameter of a struct declaration.
type TypeParam struct {
	// Name is the name used in the Move source, such as "CoinType". It is informational.
	Name string
	// Phantom parameters take part in the type's identity but never in its field data.
	Phantom bool
}

// FieldDescr describes a field.
type FieldDescr struct {
	// Name is the name of the field as it appears in the JSON object.
	Name string
	// Type is the declared type. It may hold typetag.Param values that refer to the
	// declaration's TypeParams.
	Type typetag.Tag
}

func (f *FieldDescr) validate(params []TypeParam) error {
	if f.Name == "" {
		return fmt.Errorf("field with empty name")
	}
	if f.Type == nil {
		return fmt.Errorf(".%s: nil type", f.Name)
	}
	if err := checkParams(f.Type, params, false); err != nil {
		return fmt.Errorf(".%s: %w", f.Name, err)
	}
	return nil
}

// checkParams makes sure every Param in t refers to a declared parameter, and that phantom
// parameters only show up as struct type arguments.
func checkParams(t typetag.Tag, params []TypeParam, inStructArg bool) error {
	switch t := t.(type) {
	case typetag.Param:
		if int(t.Index) >= len(params) {
			return fmt.Errorf("%s but only %d type parameters: %w", t, len(params), errors.ErrArityMismatch)
		}
		if params[t.Index].Phantom && !inStructArg {
			return fmt.Errorf("phantom parameter %s used as field data: %w", t, errors.ErrSchemaConflict)
		}
	case typetag.Vector:
		return checkParams(t.Elem, params, inStructArg)
	case typetag.Struct:
		for _, a := range t.Args {
			if err := checkParams(a, params, true); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *FieldDescr) equal(o *FieldDescr) bool {
	return f.Name == o.Name && typetag.Equal(f.Type, o.Type)
}

// Map describes a Move struct declaration.
type Map struct {
	// Ident is address::module::name of the struct.
	Ident typetag.Ident
	// TypeParams are the generic parameters in declared order.
	TypeParams []TypeParam
	// Fields are the field descriptions in declared order. Decoded instances keep this order.
	Fields []*FieldDescr
	// Resource is set for structs with the key ability. Such a struct lives at an address and a
	// field holding only that address can be loaded from the node.
	Resource bool
}

// Validate checks the declaration on its own. Registry construction calls it for every Map.
func (m *Map) Validate() error {
	if m.Ident.Address == "" || m.Ident.Module == "" || m.Ident.Name == "" {
		return fmt.Errorf("declaration %q: incomplete identity", m.Ident)
	}
	seen := make(map[string]bool, len(m.Fields))
	for _, f := range m.Fields {
		if f == nil {
			return fmt.Errorf("%s: nil field", m.Ident)
		}
		if seen[f.Name] {
			return fmt.Errorf("%s: duplicate field %q: %w", m.Ident, f.Name, errors.ErrSchemaConflict)
		}
		seen[f.Name] = true
		if err := f.validate(m.TypeParams); err != nil {
			return fmt.Errorf("%s%w", m.Ident, err)
		}
	}
	return nil
}

// MustValidate is Validate that panics.
func (m *Map) MustValidate() {
	if err := m.Validate(); err != nil {
		panic(err)
	}
}

// ByName retrieves the FieldDescr by name.
func (m *Map) ByName(name string) (*FieldDescr, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Tag instantiates the declaration with args. The count must match TypeParams.
func (m *Map) Tag(args ...typetag.Tag) (typetag.Struct, error) {
	if len(args) != len(m.TypeParams) {
		return typetag.Struct{}, fmt.Errorf("%s takes %d type arguments, got %d: %w", m.Ident, len(m.TypeParams), len(args), errors.ErrArityMismatch)
	}
	return m.Ident.Tag(args...), nil
}

// String renders the declaration header, such as "0x1::table::Table<phantom K, phantom V>".
func (m *Map) String() string {
	if len(m.TypeParams) == 0 {
		return m.Ident.String()
	}
	params := make([]string, len(m.TypeParams))
	for i, p := range m.TypeParams {
		name := p.Name
		if name == "" {
			name = typetag.NewParam(uint32(i)).String()
		}
		if p.Phantom {
			name = "phantom " + name
		}
		params[i] = name
	}
	return m.Ident.String() + "<" + strings.Join(params, ", ") + ">"
}

func (m *Map) equal(o *Map) bool {
	if m.Ident != o.Ident || m.Resource != o.Resource {
		return false
	}
	if !slices.Equal(m.TypeParams, o.TypeParams) {
		return false
	}
	return slices.EqualFunc(m.Fields, o.Fields, (*FieldDescr).equal)
}

// Registry is an immutable set of validated declarations keyed by identity.
type Registry struct {
	byIdent map[typetag.Ident]*Map
	sorted  []*Map
}

// New validates maps and builds a Registry. The same identity may be given more than once only
// if every copy is identical; differing copies are an errors.ErrSchemaConflict.
func New(maps ...*Map) (*Registry, error) {
	r := &Registry{byIdent: make(map[typetag.Ident]*Map, len(maps))}
	for _, m := range maps {
		if m == nil {
			return nil, fmt.Errorf("nil declaration")
		}
		if err := m.Validate(); err != nil {
			return nil, err
		}
		if prev, ok := r.byIdent[m.Ident]; ok {
			if !prev.equal(m) {
				return nil, fmt.Errorf("%s declared twice with different metadata: %w", m.Ident, errors.ErrSchemaConflict)
			}
			continue
		}
		r.byIdent[m.Ident] = m
		r.sorted = append(r.sorted, m)
	}
	slices.SortFunc(r.sorted, func(a, b *Map) int {
		return strings.Compare(a.Ident.String(), b.Ident.String())
	})
	return r, nil
}

// MustNew is New that panics.
func MustNew(maps ...*Map) *Registry {
	r, err := New(maps...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the declaration for id.
func (r *Registry) Lookup(id typetag.Ident) (*Map, error) {
	m, ok := r.byIdent[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, errors.ErrDeclarationNotFound)
	}
	return m, nil
}

// All returns every declaration sorted by identity. The slice must not be modified.
func (r *Registry) All() []*Map {
	return r.sorted
}

// Len returns the number of declarations.
func (r *Registry) Len() int {
	return len(r.sorted)
}
