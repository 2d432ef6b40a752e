// Package decode turns raw node JSON into value types. A Registry maps decoder names to Funcs:
// atomic kinds are registered under their primitive name, vectors under "vector" and structs
// under "address::module::name" without type arguments, so one Func serves every
// instantiation of a generic struct.
package decode

import (
	"fmt"

	"github.com/go-json-experiment/json/jsontext"
	"github.com/gostdlib/base/concurrency/sync"

	"github.com/bearlytools/chainstate/errors"
	"github.com/bearlytools/chainstate/mapping"
	"github.com/bearlytools/chainstate/typetag"
	"github.com/bearlytools/chainstate/value"
)

// Func decodes raw as tag. tag is always resolved. Funcs that decode nested values call
// r.DecodeValue.
type Func func(raw jsontext.Value, tag typetag.Tag, r *Registry) (any, error)

// ErrSealed is returned when registering with a sealed Registry.
var ErrSealed = errors.New("decoder registry is sealed")

// Well known decoder names.
const (
	NameVector          = "vector"
	NameOption          = "0x1::option::Option"
	NameTable           = "0x1::table::Table"
	NameTableWithLength = "0x1::table_with_length::TableWithLength"
	NameString          = "0x1::string::String"
	NameASCIIString     = "0x1::ascii::String"
)

// Registry holds the decoders and the declarations the generic struct decoder works from.
// Decoders are registered during start up; after Seal the Registry is read only.
type Registry struct {
	decls *mapping.Registry

	mu     sync.RWMutex
	funcs  map[string]Func
	sealed bool
}

// NewRegistry returns a Registry with the built in decoders registered.
func NewRegistry(decls *mapping.Registry) *Registry {
	r := &Registry{
		decls: decls,
		funcs: map[string]Func{},
	}
	for _, a := range typetag.Atomics {
		r.funcs[a.String()] = decodeAtomic
	}
	r.funcs[NameVector] = decodeVector
	r.funcs[NameOption] = decodeOption
	r.funcs[NameTable] = decodeTable
	r.funcs[NameTableWithLength] = decodeTableWithLength
	r.funcs[NameString] = decodeString
	r.funcs[NameASCIIString] = decodeString
	return r
}

// Declarations returns the declaration registry.
func (r *Registry) Declarations() *mapping.Registry {
	return r.decls
}

// Register registers fn under name. Registering a name twice is an errors.ErrSchemaConflict.
func (r *Registry) Register(name string, fn Func) error {
	if fn == nil {
		return fmt.Errorf("nil decoder for %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("%w: cannot register %q", ErrSealed, name)
	}
	if _, exists := r.funcs[name]; exists {
		return fmt.Errorf("decoder %q registered twice: %w", name, errors.ErrSchemaConflict)
	}
	r.funcs[name] = fn
	return nil
}

// RegisterDeclared registers DecodeStruct for every declaration that has no decoder yet.
func (r *Registry) RegisterDeclared() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("%w: cannot register declarations", ErrSealed)
	}
	for _, m := range r.decls.All() {
		name := m.Ident.String()
		if _, ok := r.funcs[name]; ok {
			continue
		}
		r.funcs[name] = DecodeStruct
	}
	return nil
}

// Seal makes the Registry read only. It is safe to call more than once.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Sealed reports if Seal was called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Resolve returns the decoder registered under name. There is no fallback: an unknown name is
// an errors.ErrNotRegistered.
func (r *Registry) Resolve(name string) (Func, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.funcs[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, errors.ErrNotRegistered)
	}
	return fn, nil
}

// Name returns the decoder name for tag.
func Name(tag typetag.Tag) (string, error) {
	switch t := tag.(type) {
	case typetag.Atomic:
		return t.String(), nil
	case typetag.Vector:
		return NameVector, nil
	case typetag.Struct:
		return t.Ident.String(), nil
	case typetag.Param:
		return "", fmt.Errorf("%s: %w", t, errors.ErrUnresolvedType)
	}
	return "", fmt.Errorf("no decoder name for %T: %w", tag, errors.ErrUnresolvedType)
}

// Decode decodes raw as tag. Errors inside a struct carry the path to the failing field,
// starting at the struct's name, such as "MarketAccount.asks.root".
func (r *Registry) Decode(raw jsontext.Value, tag typetag.Tag) (any, error) {
	v, err := r.DecodeValue(raw, tag)
	if err != nil {
		if st, ok := tag.(typetag.Struct); ok {
			return nil, atField(err, st.Name)
		}
		return nil, err
	}
	return v, nil
}

// DecodeValue decodes raw as tag without naming the root in error paths. Funcs use it for
// nested values.
func (r *Registry) DecodeValue(raw jsontext.Value, tag typetag.Tag) (any, error) {
	if !typetag.Resolved(tag) {
		return nil, fmt.Errorf("decoding %s: %w", tag, errors.ErrUnresolvedType)
	}
	return r.decode(raw, tag)
}

// decode dispatches on the decoder name. tag must be resolved.
func (r *Registry) decode(raw jsontext.Value, tag typetag.Tag) (any, error) {
	if st, ok := tag.(typetag.Struct); ok && kindOf(raw) == '"' {
		if m, err := r.decls.Lookup(st.Ident); err == nil && m.Resource {
			return decodeRef(raw, st)
		}
	}

	name, err := Name(tag)
	if err != nil {
		return nil, err
	}
	fn, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	return fn(raw, tag, r)
}

// decodeRef decodes a resource that is given by the address it lives at.
func decodeRef(raw jsontext.Value, st typetag.Struct) (any, error) {
	s, err := unquote(raw)
	if err != nil {
		return nil, err
	}
	addr, err := value.ParseAddress(s)
	if err != nil {
		return nil, fmt.Errorf("%s reference: %w: %w", st, errors.ErrTypeMismatch, err)
	}
	return value.ResourceRef{Type: st, Address: addr}, nil
}
