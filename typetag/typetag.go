// Package typetag describes Move data types as values. A Tag is one of Atomic, Vector, Struct or
// Param. Struct tags may carry generic arguments, and Param is a placeholder for the i-th generic
// parameter of an enclosing declaration. Only declared field types may contain a Param; every tag
// handed to a decoder must be resolved (see Resolved and Substitute).
//
// Tags are immutable. Two tags are the same type if Equal reports true; do not compare tags
// with == since Struct holds a slice.
package typetag

import (
	"strconv"
	"strings"
)

// Tag is a Move type. It is implemented by Atomic, Vector, Struct and Param.
type Tag interface {
	// String renders the tag. Unlike Canonical, it never fails: Param renders as "T<index>".
	String() string

	isTag()
}

// Atomic is a primitive Move type.
type Atomic uint8

const (
	// Bool is the Move bool type.
	Bool Atomic = iota + 1
	U8
	U16
	U32
	U64
	U128
	U256
	// Address is a 32 byte account address.
	Address
	// Signer is only seen in function signatures, it decodes like Address.
	Signer
)

var atomicNames = [...]string{
	Bool:    "bool",
	U8:      "u8",
	U16:     "u16",
	U32:     "u32",
	U64:     "u64",
	U128:    "u128",
	U256:    "u256",
	Address: "address",
	Signer:  "signer",
}

// Atomics lists every Atomic kind.
var Atomics = []Atomic{Bool, U8, U16, U32, U64, U128, U256, Address, Signer}

func (a Atomic) isTag() {}

// String returns the primitive name, such as "u64".
func (a Atomic) String() string {
	if a == 0 || int(a) >= len(atomicNames) {
		return "atomic(" + strconv.Itoa(int(a)) + ")"
	}
	return atomicNames[a]
}

// AtomicByName returns the Atomic named s.
func AtomicByName(s string) (Atomic, bool) {
	for _, a := range Atomics {
		if atomicNames[a] == s {
			return a, true
		}
	}
	return 0, false
}

// Vector is a Move vector<Elem>.
type Vector struct {
	Elem Tag
}

// NewVector returns vector<elem>.
func NewVector(elem Tag) Vector {
	return Vector{Elem: elem}
}

func (v Vector) isTag() {}

func (v Vector) String() string {
	var b strings.Builder
	write(&b, v, false)
	return b.String()
}

// Ident is the identity of a struct declaration: address::module::name.
type Ident struct {
	Address string
	Module  string
	Name    string
}

// NewIdent returns an Ident with a normalized address.
func NewIdent(addr, module, name string) Ident {
	return Ident{Address: normalizeLoose(addr), Module: module, Name: name}
}

// String returns "address::module::name". This is the key decoders are registered under.
func (i Ident) String() string {
	return i.Address + "::" + i.Module + "::" + i.Name
}

// Tag builds the Struct i<args...>. This is how ad hoc instantiations such as a table's
// value node type are built at a call site.
func (i Ident) Tag(args ...Tag) Struct {
	return Struct{Ident: i, Args: args}
}

// Struct is a Move struct type with its generic arguments.
type Struct struct {
	Ident

	// Args are the generic arguments, including phantom ones.
	Args []Tag
}

// NewStruct returns address::module::name<args...>.
func NewStruct(addr, module, name string, args ...Tag) Struct {
	return NewIdent(addr, module, name).Tag(args...)
}

func (s Struct) isTag() {}

func (s Struct) String() string {
	var b strings.Builder
	write(&b, s, false)
	return b.String()
}

// Param is a reference to the Index-th generic parameter of the enclosing declaration.
type Param struct {
	Index uint32
}

// NewParam returns a reference to generic parameter i.
func NewParam(i uint32) Param {
	return Param{Index: i}
}

func (p Param) isTag() {}

// String returns "T<index>", the form Parse accepts.
func (p Param) String() string {
	return "T" + strconv.FormatUint(uint64(p.Index), 10)
}

// Resolved reports if t contains no Param.
func Resolved(t Tag) bool {
	switch t := t.(type) {
	case Atomic:
		return true
	case Vector:
		return Resolved(t.Elem)
	case Struct:
		for _, a := range t.Args {
			if !Resolved(a) {
				return false
			}
		}
		return true
	}
	return false
}

// Equal reports if a and b describe the same type.
func Equal(a, b Tag) bool {
	switch x := a.(type) {
	case Atomic:
		y, ok := b.(Atomic)
		return ok && x == y
	case Vector:
		y, ok := b.(Vector)
		return ok && Equal(x.Elem, y.Elem)
	case Param:
		y, ok := b.(Param)
		return ok && x.Index == y.Index
	case Struct:
		y, ok := b.(Struct)
		if !ok || x.Ident != y.Ident || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !Equal(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	}
	return false
}
