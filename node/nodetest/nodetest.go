// Package nodetest provides an in-memory node.Client for tests.
package nodetest

import (
	"fmt"
	"sync/atomic"

	jsonv2 "github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/gostdlib/base/concurrency/sync"
	"github.com/gostdlib/base/context"

	"github.com/bearlytools/chainstate/internal/conversions"
	"github.com/bearlytools/chainstate/node"
	"github.com/bearlytools/chainstate/value"
)

// Fake is an in-memory node. Reads of unknown resources or keys return node.ErrNotFound.
type Fake struct {
	mu        sync.Mutex
	resources map[string]jsontext.Value
	items     map[string]jsontext.Value
	err       error
	gate      chan struct{}

	resourceReads atomic.Int64
	tableReads    atomic.Int64
}

var _ node.Client = (*Fake)(nil)

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		resources: map[string]jsontext.Value{},
		items:     map[string]jsontext.Value{},
	}
}

// SetResource stores data as the resource of type typ at addr. typ is the canonical type string.
func (f *Fake) SetResource(addr value.Address, typ string, data string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resources[resourceKey(addr, typ)] = jsontext.Value(conversions.String2ByteSlice(data))
}

// SetTableItem stores data under key in the table at handle.
func (f *Fake) SetTableItem(handle value.Address, keyType, valueType, key, data string) error {
	k, err := itemKey(handle, keyType, valueType, jsontext.Value(key))
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[k] = jsontext.Value(conversions.String2ByteSlice(data))
	return nil
}

// FailWith makes every read return err. A nil err restores normal reads.
func (f *Fake) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Hold makes reads block until the returned release func is called or the read's context ends.
// Reads are counted before they block.
func (f *Fake) Hold() (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gate = ch
	f.mu.Unlock()

	released := false
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if released {
			return
		}
		released = true
		if f.gate == ch {
			f.gate = nil
		}
		close(ch)
	}
}

// ResourceReads returns how many Resource calls were made.
func (f *Fake) ResourceReads() int64 {
	return f.resourceReads.Load()
}

// TableReads returns how many TableItem calls were made.
func (f *Fake) TableReads() int64 {
	return f.tableReads.Load()
}

// Resource implements node.Client.Resource.
func (f *Fake) Resource(ctx context.Context, addr value.Address, resourceType string) (jsontext.Value, error) {
	f.resourceReads.Add(1)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.resources[resourceKey(addr, resourceType)]
	if !ok {
		return nil, fmt.Errorf("resource %s at %s: %w", resourceType, addr, node.ErrNotFound)
	}
	return append(jsontext.Value(nil), v...), nil
}

// TableItem implements node.Client.TableItem.
func (f *Fake) TableItem(ctx context.Context, handle value.Address, keyType, valueType string, key jsontext.Value) (jsontext.Value, error) {
	f.tableReads.Add(1)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}

	k, err := itemKey(handle, keyType, valueType, key)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.items[k]
	if !ok {
		return nil, fmt.Errorf("table %s key %s: %w", handle, key, node.ErrNotFound)
	}
	return append(jsontext.Value(nil), v...), nil
}

func (f *Fake) wait(ctx context.Context) error {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func resourceKey(addr value.Address, typ string) string {
	return addr.String() + "/" + typ
}

// itemKey normalizes key so that formatting differences in the JSON do not matter.
func itemKey(handle value.Address, keyType, valueType string, key jsontext.Value) (string, error) {
	var v any
	if err := jsonv2.Unmarshal(key, &v); err != nil {
		return "", fmt.Errorf("bad table key %s: %w", key, err)
	}
	b, err := jsonv2.Marshal(v, jsonv2.Deterministic(true))
	if err != nil {
		return "", err
	}
	return handle.String() + "/" + keyType + "/" + valueType + "/" + string(b), nil
}
