package value

import (
	"fmt"

	"github.com/bearlytools/chainstate/typetag"
)

// Field is a decoded field. Name matches the declaration's field name.
type Field struct {
	Name  string
	Value any
}

// Instance is a decoded struct. Fields are in declared order.
type Instance struct {
	// Type is the resolved struct type the instance was decoded as.
	Type   typetag.Struct
	Fields []Field
}

// Get returns the value of field name.
func (i *Instance) Get(name string) (any, bool) {
	for _, f := range i.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Set replaces the value of field name. It returns false if there is no such field.
func (i *Instance) Set(name string, v any) bool {
	for n := range i.Fields {
		if i.Fields[n].Name == name {
			i.Fields[n].Value = v
			return true
		}
	}
	return false
}

// Clone returns a deep copy of i. Type tags are shared, they are immutable.
func (i *Instance) Clone() *Instance {
	if i == nil {
		return nil
	}
	n := &Instance{Type: i.Type, Fields: make([]Field, len(i.Fields))}
	for x, f := range i.Fields {
		n.Fields[x] = Field{Name: f.Name, Value: Clone(f.Value)}
	}
	return n
}

// FieldAs returns field name of i as a T.
func FieldAs[T any](i *Instance, name string) (T, error) {
	var zero T
	v, ok := i.Get(name)
	if !ok {
		return zero, fmt.Errorf("%s has no field %q", i.Type, name)
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%s.%s is %T, not %T", i.Type, name, v, zero)
	}
	return t, nil
}

// Option is a Move 0x1::option::Option<T>.
type Option struct {
	// Type is the Option<T> type.
	Type typetag.Struct
	// Value holds the element when Some is set.
	Value any
	Some  bool
}

// Elem returns T of Option<T>, or nil if Type carries no argument.
func (o Option) Elem() typetag.Tag {
	if len(o.Type.Args) != 1 {
		return nil
	}
	return o.Type.Args[0]
}

// Table is a handle to a Move table. It is never expanded: entries are read one at a time.
type Table struct {
	// Type is the table's own type, such as 0x1::table::Table<u64, address>.
	Type      typetag.Struct
	Handle    Address
	KeyType   typetag.Tag
	ValueType typetag.Tag
	// Length is the entry count, only known for table_with_length.
	Length    uint64
	HasLength bool
}

// ResourceRef is a field that names a resource by the address it lives at.
type ResourceRef struct {
	Type    typetag.Struct
	Address Address
	// Resource is nil until the reference is loaded.
	Resource *Instance
}

// Loaded reports if the referenced resource has been loaded.
func (r ResourceRef) Loaded() bool {
	return r.Resource != nil
}

// Clone deep copies a decoded value.
func Clone(v any) any {
	switch t := v.(type) {
	case *Instance:
		return t.Clone()
	case []any:
		if t == nil {
			return t
		}
		n := make([]any, len(t))
		for i, e := range t {
			n[i] = Clone(e)
		}
		return n
	case []byte:
		if t == nil {
			return t
		}
		n := make([]byte, len(t))
		copy(n, t)
		return n
	case Option:
		t.Value = Clone(t.Value)
		return t
	case ResourceRef:
		t.Resource = t.Resource.Clone()
		return t
	}
	// Everything else is a value type.
	return v
}
