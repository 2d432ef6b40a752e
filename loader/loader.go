// Package loader reads resources and table entries from a node and decodes them.
//
// A Loader resolves a resource by its type and address, reading through a cache so concurrent
// loads of the same resource share one remote read. Tables are never expanded: entries are
// read one at a time with GetTableItem, TableItem or IterableTable.
//
// Example:
//
//	l, err := loader.New(client, reg)
//	if err != nil {
//	    return err
//	}
//	info, err := l.LoadResource(ctx, value.MustAddress("0x1"), coinInfo, aptosCoin)
//	if errors.Is(err, errors.ErrResourceNotFound) {
//	    // Nothing at that address.
//	}
package loader

import (
	stdctx "context"
	"fmt"
	"log/slog"

	"github.com/go-json-experiment/json/jsontext"
	"github.com/gostdlib/base/context"

	"github.com/bearlytools/chainstate/cache"
	"github.com/bearlytools/chainstate/decode"
	"github.com/bearlytools/chainstate/errors"
	"github.com/bearlytools/chainstate/node"
	"github.com/bearlytools/chainstate/typetag"
	"github.com/bearlytools/chainstate/value"
)

// Loader loads resources from a node. It is safe for concurrent use.
type Loader struct {
	client node.Client
	reg    *decode.Registry
	cache  *cache.Cache
	config *config
	log    *slog.Logger
}

// New creates a Loader reading from client and decoding with reg. reg is sealed: every decoder
// must be registered before New is called.
func New(client node.Client, reg *decode.Registry, opts ...Option) (*Loader, error) {
	if client == nil {
		return nil, errors.New("loader: node client is nil")
	}
	if reg == nil {
		return nil, errors.New("loader: decoder registry is nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.concurrency < 1 {
		return nil, fmt.Errorf("loader: concurrency must be at least 1, got %d", cfg.concurrency)
	}
	c := cfg.cache
	if c == nil {
		c = cache.New()
	}

	reg.Seal()
	return &Loader{
		client: client,
		reg:    reg,
		cache:  c,
		config: cfg,
		log:    cfg.logger,
	}, nil
}

// Registry returns the decoder registry.
func (l *Loader) Registry() *decode.Registry {
	return l.reg
}

// Cache returns the cache the Loader reads through.
func (l *Loader) Cache() *cache.Cache {
	return l.cache
}

// LoadResource loads the resource ident<args...> stored at addr. A missing resource is an
// errors.ErrResourceNotFound.
func (l *Loader) LoadResource(ctx context.Context, addr value.Address, ident typetag.Ident, args ...typetag.Tag) (*value.Instance, error) {
	return l.Load(ctx, addr, ident.Tag(args...))
}

// Load is LoadResource for a type that is already built.
func (l *Loader) Load(ctx context.Context, addr value.Address, tag typetag.Struct) (*value.Instance, error) {
	inst, err := l.load(ctx, addr, tag)
	if err != nil {
		return nil, errors.Wrap(ctx, err)
	}
	return inst, nil
}

func (l *Loader) load(ctx context.Context, addr value.Address, tag typetag.Struct) (*value.Instance, error) {
	k, err := key(addr, tag)
	if err != nil {
		return nil, err
	}

	inst, shared, err := l.cache.Do(ctx, k, func(ctx context.Context) (*value.Instance, error) {
		return l.fetch(ctx, k, tag)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		l.log.DebugContext(ctx, "resource shared", "key", k.String())
	}
	return inst, nil
}

// fetch reads and decodes the resource for k. It runs once per cache miss.
func (l *Loader) fetch(ctx context.Context, k cache.Key, tag typetag.Struct) (*value.Instance, error) {
	l.log.DebugContext(ctx, "reading resource", "type", k.Type, "address", k.Address.String())

	raw, err := l.client.Resource(ctx, k.Address, k.Type)
	if err != nil {
		return nil, remote(err, errors.ErrResourceNotFound, k.String())
	}
	v, err := l.reg.Decode(raw, tag)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", k, err)
	}
	inst, ok := v.(*value.Instance)
	if !ok {
		return nil, fmt.Errorf("decoder for %s returned %T, not a struct: %w", tag.Ident, v, errors.ErrTypeMismatch)
	}
	return inst, nil
}

// GetTableItem reads the entry stored under key in the table at handle and decodes it as
// valueType. key is the key as node JSON. An absent key is an errors.ErrEntryNotFound and no
// decoder runs.
func (l *Loader) GetTableItem(ctx context.Context, handle value.Address, keyType, valueType typetag.Tag, key jsontext.Value) (any, error) {
	v, err := l.tableItem(ctx, handle, keyType, valueType, key)
	if err != nil {
		return nil, errors.Wrap(ctx, err)
	}
	return v, nil
}

func (l *Loader) tableItem(ctx context.Context, handle value.Address, keyType, valueType typetag.Tag, key jsontext.Value) (any, error) {
	kt, err := typetag.Canonical(keyType)
	if err != nil {
		return nil, fmt.Errorf("table key type: %w", err)
	}
	vt, err := typetag.Canonical(valueType)
	if err != nil {
		return nil, fmt.Errorf("table value type: %w", err)
	}

	l.log.DebugContext(ctx, "reading table item", "handle", handle.String(), "key_type", kt, "key", string(key))

	raw, err := l.client.TableItem(ctx, handle, kt, vt, key)
	if err != nil {
		return nil, remote(err, errors.ErrEntryNotFound, fmt.Sprintf("table %s key %s", handle, key))
	}
	v, err := l.reg.Decode(raw, valueType)
	if err != nil {
		return nil, fmt.Errorf("decoding table %s item %s: %w", handle, key, err)
	}
	return v, nil
}

// TableItem reads the entry of tbl stored under key. key must be the Go value decoding a
// tbl.KeyType yields, such as a uint64 for u64 or a value.Address for address.
func (l *Loader) TableItem(ctx context.Context, tbl value.Table, key any) (any, error) {
	raw, err := decode.Encode(key)
	if err != nil {
		return nil, errors.E(ctx, errors.CatUser, errors.TypeParameter, fmt.Errorf("encoding table key %v: %w", key, err))
	}
	return l.GetTableItem(ctx, tbl.Handle, tbl.KeyType, tbl.ValueType, raw)
}

// Cached returns the cached copy of the resource tag at addr, if there is one.
func (l *Loader) Cached(addr value.Address, tag typetag.Struct) (*value.Instance, bool) {
	k, err := key(addr, tag)
	if err != nil {
		return nil, false
	}
	return l.cache.Get(k)
}

// Invalidate drops the cached resource tag at addr, so the next load reads the node again.
func (l *Loader) Invalidate(addr value.Address, tag typetag.Struct) error {
	k, err := key(addr, tag)
	if err != nil {
		return err
	}
	l.cache.Invalidate(k)
	return nil
}

func key(addr value.Address, tag typetag.Struct) (cache.Key, error) {
	typ, err := typetag.Canonical(tag)
	if err != nil {
		return cache.Key{}, err
	}
	return cache.Key{Type: typ, Address: addr}, nil
}

// remote maps a node.Client error. node.ErrNotFound becomes absent, cancellation is passed
// through and everything else is errors.ErrNodeUnavailable.
func remote(err error, absent error, what string) error {
	switch {
	case errors.Is(err, node.ErrNotFound):
		return fmt.Errorf("%s: %w", what, absent)
	case errors.Is(err, errors.ErrNodeUnavailable):
		return fmt.Errorf("%s: %w", what, err)
	case errors.Is(err, stdctx.Canceled), errors.Is(err, stdctx.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%s: %w: %w", what, errors.ErrNodeUnavailable, err)
}
