// Package cache holds loaded resources keyed by canonical type and address. Concurrent loads of
// the same key share one remote read.
package cache

import (
	stdctx "context"
	"sync/atomic"

	"github.com/gostdlib/base/concurrency/sync"
	"github.com/gostdlib/base/context"
	"golang.org/x/sync/singleflight"

	"github.com/bearlytools/chainstate/value"
)

// Key identifies a resource. Type is the canonical type string.
type Key struct {
	Type    string
	Address value.Address
}

// String renders the key as "type@address".
func (k Key) String() string {
	return k.Type + "@" + k.Address.String()
}

// LoadFunc reads and decodes the resource for a key.
type LoadFunc func(ctx context.Context) (*value.Instance, error)

// Stats are counters for a Cache.
type Stats struct {
	Hits   uint64
	Misses uint64
	// Loads is the number of LoadFunc calls. Misses - Loads is the number of collapsed loads.
	Loads uint64
}

type entry struct {
	inst *value.Instance
}

// Cache is safe for concurrent use. Instances are cloned on the way in and on the way out, so
// callers never share state with the cache or with each other.
type Cache struct {
	group singleflight.Group

	mu      sync.Mutex
	entries map[Key]entry
	// gens and epoch are bumped by Invalidate and Reset so loads that started before do not store.
	gens  map[Key]uint64
	epoch uint64

	hits, misses, loads atomic.Uint64
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{
		entries: map[Key]entry{},
		gens:    map[Key]uint64{},
	}
}

// Get returns a copy of the instance for k.
func (c *Cache) Get(k Key) (*value.Instance, bool) {
	c.mu.Lock()
	e, ok := c.entries[k]
	c.mu.Unlock()

	if !ok {
		return nil, false
	}
	return e.inst.Clone(), true
}

// Set stores a copy of inst under k. Setting the same key again replaces the entry.
func (c *Cache) Set(k Key, inst *value.Instance) {
	if inst == nil {
		return
	}
	inst = inst.Clone()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[k] = entry{inst: inst}
}

// Invalidate drops k. A load of k that is in flight finishes for its callers but is not stored.
func (c *Cache) Invalidate(k Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, k)
	c.gens[k]++
	c.group.Forget(k.String())
}

// Reset drops every entry.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k := range c.entries {
		c.group.Forget(k.String())
	}
	clear(c.entries)
	clear(c.gens)
	c.epoch++
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns the counters.
func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Loads: c.loads.Load()}
}

// Do returns the instance for k, calling load on a miss. Concurrent callers for the same key
// wait on a single load. A caller whose ctx ends stops waiting and gets ctx's error; the load
// itself runs on until it finishes for the remaining callers, detached from any one caller's
// cancellation. Only successful loads are stored. shared reports if the result came from the
// cache or from another caller's load.
func (c *Cache) Do(ctx context.Context, k Key, load LoadFunc) (inst *value.Instance, shared bool, err error) {
	if inst, ok := c.Get(k); ok {
		c.hits.Add(1)
		return inst, true, nil
	}
	c.misses.Add(1)

	detached := stdctx.WithoutCancel(ctx)
	ch := c.group.DoChan(k.String(), func() (any, error) {
		gen := c.genOf(k)

		// A load for k may have stored between our Get and joining the flight.
		if inst, ok := c.peek(k); ok {
			return inst, nil
		}

		c.loads.Add(1)
		inst, err := load(detached)
		if err != nil {
			return nil, err
		}
		c.storeIf(k, inst, gen)
		return inst, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Shared, res.Err
		}
		return res.Val.(*value.Instance).Clone(), res.Shared, nil
	}
}

func (c *Cache) peek(k Key) (*value.Instance, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[k]
	return e.inst, ok
}

type generation struct {
	epoch, key uint64
}

func (c *Cache) genOf(k Key) generation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return generation{epoch: c.epoch, key: c.gens[k]}
}

// storeIf stores inst unless k was invalidated or the cache reset since gen was taken.
func (c *Cache) storeIf(k Key, inst *value.Instance, gen generation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != (generation{epoch: c.epoch, key: c.gens[k]}) {
		return
	}
	c.entries[k] = entry{inst: inst.Clone()}
}
