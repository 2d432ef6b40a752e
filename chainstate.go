// Package chainstate reads Move resources from an Aptos style node and decodes them into typed,
// generically parameterized values.
//
// Most programs only need New:
//
//	client, err := rest.New("https://fullnode.mainnet.aptoslabs.com")
//	if err != nil {
//	    return err
//	}
//	l, err := chainstate.New(client)
//	if err != nil {
//	    return err
//	}
//	store, err := l.LoadResource(ctx, addr, schema.CoinStore, schema.AptosCoin.Tag())
//
// The packages underneath can be used on their own: typetag for type tags, mapping for struct
// declarations, decode for decoding raw node JSON, loader and cache for reading through a cache.
package chainstate

import (
	"github.com/bearlytools/chainstate/decode"
	"github.com/bearlytools/chainstate/loader"
	"github.com/bearlytools/chainstate/mapping"
	"github.com/bearlytools/chainstate/node"
	"github.com/bearlytools/chainstate/schema"
	"github.com/bearlytools/chainstate/typetag"
	"github.com/bearlytools/chainstate/value"
)

// Common types, so callers of New rarely need the subpackages.
type (
	// Loader loads resources and table entries.
	Loader = loader.Loader
	// Instance is a decoded struct.
	Instance = value.Instance
	// Address is an account address or table handle.
	Address = value.Address
	// Tag is a type tag.
	Tag = typetag.Tag
	// Ident is a struct identity without type arguments.
	Ident = typetag.Ident
)

// NewRegistry returns a decoder registry for the built in declarations plus extra. The generic
// struct decoder is registered for every declaration. More decoders may be registered before
// the registry is handed to a Loader, which seals it.
func NewRegistry(extra ...*mapping.Map) (*decode.Registry, error) {
	decls, err := mapping.New(append(schema.Default(), extra...)...)
	if err != nil {
		return nil, err
	}
	reg := decode.NewRegistry(decls)
	if err := reg.RegisterDeclared(); err != nil {
		return nil, err
	}
	return reg, nil
}

// New returns a Loader reading from client that knows the built in declarations.
func New(client node.Client, opts ...loader.Option) (*Loader, error) {
	reg, err := NewRegistry()
	if err != nil {
		return nil, err
	}
	return loader.New(client, reg, opts...)
}
