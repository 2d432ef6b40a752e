package loader

import (
	"fmt"

	"github.com/gostdlib/base/context"
	"golang.org/x/sync/errgroup"

	"github.com/bearlytools/chainstate/cache"
	"github.com/bearlytools/chainstate/errors"
	"github.com/bearlytools/chainstate/value"
)

// LoadFullState returns a copy of inst where every value.ResourceRef reachable through fields,
// vectors, options and nested structs is loaded, and the loaded resources are in turn fully
// loaded. Tables are not expanded and an empty option causes no read. A reference back to a
// resource that is already being expanded on the same path is loaded but not expanded again,
// which breaks reference cycles. Repeated reads of the same resource are served by the cache.
func (l *Loader) LoadFullState(ctx context.Context, inst *value.Instance) (*value.Instance, error) {
	if inst == nil {
		return nil, errors.E(ctx, errors.CatUser, errors.TypeParameter, errors.New("LoadFullState: instance is nil"))
	}

	out := inst.Clone()
	w := &walker{l: l}
	if err := w.expand(ctx, out, nil); err != nil {
		return nil, errors.Wrap(ctx, err)
	}
	return out, nil
}

type walker struct {
	l *Loader
}

// path is the chain of resources being expanded above a reference. It is never modified, so
// sibling goroutines can share it.
type path struct {
	key cache.Key
	up  *path
}

func (p *path) contains(k cache.Key) bool {
	for ; p != nil; p = p.up {
		if p.key == k {
			return true
		}
	}
	return false
}

// job is a reference waiting to be loaded. set writes the loaded reference back into the slot
// it came from.
type job struct {
	ref    value.ResourceRef
	set    func(any)
	loaded value.ResourceRef
}

// expand loads the references held by inst, siblings concurrently, and writes them back once
// all of them have loaded.
func (w *walker) expand(ctx context.Context, inst *value.Instance, above *path) error {
	jobs := collect(inst, func(any) {}, nil)
	if len(jobs) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.l.config.concurrency)
	for _, j := range jobs {
		g.Go(func() error {
			loaded, err := w.resolve(gctx, j.ref, above)
			if err != nil {
				return err
			}
			j.loaded = loaded
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, j := range jobs {
		j.set(j.loaded)
	}
	return nil
}

// resolve loads ref and expands the loaded resource unless it is already being expanded above.
func (w *walker) resolve(ctx context.Context, ref value.ResourceRef, above *path) (value.ResourceRef, error) {
	k, err := key(ref.Address, ref.Type)
	if err != nil {
		return ref, err
	}

	inst, err := w.l.load(ctx, ref.Address, ref.Type)
	if err != nil {
		return ref, fmt.Errorf("loading %s: %w", k, err)
	}
	if !above.contains(k) {
		if err := w.expand(ctx, inst, &path{key: k, up: above}); err != nil {
			return ref, err
		}
	}
	ref.Resource = inst
	return ref, nil
}

// collect appends a job for every unloaded reference under v. set replaces v in its parent.
// References that are already loaded are walked into instead of read again.
func collect(v any, set func(any), jobs []*job) []*job {
	switch t := v.(type) {
	case *value.Instance:
		if t == nil {
			return jobs
		}
		for i := range t.Fields {
			f := &t.Fields[i]
			jobs = collect(f.Value, func(n any) { f.Value = n }, jobs)
		}
	case []any:
		for i := range t {
			jobs = collect(t[i], func(n any) { t[i] = n }, jobs)
		}
	case value.Option:
		if !t.Some {
			return jobs
		}
		jobs = collect(t.Value, func(n any) {
			t.Value = n
			set(t)
		}, jobs)
	case value.ResourceRef:
		if t.Loaded() {
			return collect(t.Resource, func(any) {}, jobs)
		}
		jobs = append(jobs, &job{ref: t, set: set})
	}
	return jobs
}
