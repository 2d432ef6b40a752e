package loader

import (
	"fmt"
	"iter"

	"github.com/gostdlib/base/context"

	"github.com/bearlytools/chainstate/decode"
	"github.com/bearlytools/chainstate/errors"
	"github.com/bearlytools/chainstate/typetag"
	"github.com/bearlytools/chainstate/value"
)

var (
	// IterableTableIdent is 0x1::iterable_table::IterableTable<K, V>.
	IterableTableIdent = typetag.NewIdent("0x1", "iterable_table", "IterableTable")
	// IterableValueIdent is 0x1::iterable_table::IterableValue<K, V>, the value type of an
	// iterable table's inner table.
	IterableValueIdent = typetag.NewIdent("0x1", "iterable_table", "IterableValue")
)

// Entry is an entry of an iterable table.
type Entry struct {
	Key   any
	Value any
}

// IterableTable walks the entries of inst, a decoded IterableTable<K, V>, from head to tail.
// Each entry is one table read. The walk stops at the first error, which is yielded.
func (l *Loader) IterableTable(ctx context.Context, inst *value.Instance) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		w, err := newIterWalk(inst)
		if err != nil {
			yield(Entry{}, errors.Wrap(ctx, err))
			return
		}

		seen := map[string]bool{}
		cur := w.head
		for n := uint64(0); cur.Some; n++ {
			if w.inner.HasLength && n >= w.inner.Length {
				yield(Entry{}, errors.Wrap(ctx, fmt.Errorf("iterable table %s links more than its %d entries: %w", w.inner.Handle, w.inner.Length, errors.ErrTypeMismatch)))
				return
			}

			raw, err := decode.Encode(cur.Value)
			if err != nil {
				yield(Entry{}, errors.Wrap(ctx, fmt.Errorf("iterable table %s: encoding key: %w", w.inner.Handle, err)))
				return
			}
			if seen[string(raw)] {
				yield(Entry{}, errors.Wrap(ctx, fmt.Errorf("iterable table %s: key %s links back to itself: %w", w.inner.Handle, raw, errors.ErrTypeMismatch)))
				return
			}
			seen[string(raw)] = true

			item, err := l.GetTableItem(ctx, w.inner.Handle, w.keyType, w.valueType, raw)
			if err != nil {
				yield(Entry{}, err)
				return
			}
			iv, ok := item.(*value.Instance)
			if !ok {
				yield(Entry{}, errors.Wrap(ctx, fmt.Errorf("iterable table item decoded as %T: %w", item, errors.ErrTypeMismatch)))
				return
			}
			val, ok := iv.Get("val")
			if !ok {
				yield(Entry{}, errors.Wrap(ctx, fmt.Errorf("%s has no field %q: %w", iv.Type, "val", errors.ErrTypeMismatch)))
				return
			}
			next, err := value.FieldAs[value.Option](iv, "next")
			if err != nil {
				yield(Entry{}, errors.Wrap(ctx, fmt.Errorf("%w: %w", errors.ErrTypeMismatch, err)))
				return
			}

			if !yield(Entry{Key: cur.Value, Value: val}, nil) {
				return
			}
			cur = next
		}
	}
}

type iterWalk struct {
	inner     value.Table
	head      value.Option
	keyType   typetag.Tag
	valueType typetag.Struct
}

func newIterWalk(inst *value.Instance) (iterWalk, error) {
	if inst == nil {
		return iterWalk{}, fmt.Errorf("iterable table is nil: %w", errors.ErrTypeMismatch)
	}
	if inst.Type.Ident != IterableTableIdent || len(inst.Type.Args) != 2 {
		return iterWalk{}, fmt.Errorf("%s is not an %s<K, V>: %w", inst.Type, IterableTableIdent, errors.ErrTypeMismatch)
	}
	inner, err := value.FieldAs[value.Table](inst, "inner")
	if err != nil {
		return iterWalk{}, fmt.Errorf("%w: %w", errors.ErrTypeMismatch, err)
	}
	head, err := value.FieldAs[value.Option](inst, "head")
	if err != nil {
		return iterWalk{}, fmt.Errorf("%w: %w", errors.ErrTypeMismatch, err)
	}

	k, v := inst.Type.Args[0], inst.Type.Args[1]
	return iterWalk{
		inner:     inner,
		head:      head,
		keyType:   k,
		valueType: IterableValueIdent.Tag(k, v),
	}, nil
}
