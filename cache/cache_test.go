package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/bearlytools/chainstate/errors"
	"github.com/bearlytools/chainstate/typetag"
	"github.com/bearlytools/chainstate/value"
)

var testKey = Key{Type: "0x1::account::Account", Address: value.MustAddress("0x1")}

func account(seq uint64) *value.Instance {
	return &value.Instance{
		Type:   typetag.NewStruct("0x1", "account", "Account"),
		Fields: []value.Field{{Name: "sequence_number", Value: seq}},
	}
}

func TestKeyString(t *testing.T) {
	if got, want := testKey.String(), "0x1::account::Account@0x1"; got != want {
		t.Errorf("[TestKeyString]: got %q, want %q", got, want)
	}
}

func TestSingleFlight(t *testing.T) {
	c := New()

	var loads atomic.Int64
	release := make(chan struct{})
	load := func(ctx context.Context) (*value.Instance, error) {
		loads.Add(1)
		<-release
		return account(7), nil
	}

	const callers = 16
	var wg sync.WaitGroup
	results := make([]*value.Instance, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _, errs[i] = c.Do(t.Context(), testKey, load)
		}()
	}
	close(release)
	wg.Wait()

	if got := loads.Load(); got != 1 {
		t.Errorf("[TestSingleFlight]: got %d loads, want 1", got)
	}
	for i := range callers {
		if errs[i] != nil {
			t.Fatalf("[TestSingleFlight]: caller %d: got err == %s", i, errs[i])
		}
		if v, _ := results[i].Get("sequence_number"); v != uint64(7) {
			t.Errorf("[TestSingleFlight]: caller %d: got %v, want 7", i, v)
		}
	}
	// Callers get their own copies.
	results[0].Fields[0].Value = uint64(99)
	if v, _ := results[1].Get("sequence_number"); v != uint64(7) {
		t.Errorf("[TestSingleFlight]: callers share an instance")
	}
	if c.Len() != 1 {
		t.Errorf("[TestSingleFlight]: Len() = %d, want 1", c.Len())
	}
}

func TestErrorsAreNotStored(t *testing.T) {
	c := New()

	calls := 0
	load := func(ctx context.Context) (*value.Instance, error) {
		calls++
		if calls == 1 {
			return nil, errors.ErrNodeUnavailable
		}
		return account(1), nil
	}

	if _, _, err := c.Do(t.Context(), testKey, load); !errors.Is(err, errors.ErrNodeUnavailable) {
		t.Fatalf("[TestErrorsAreNotStored]: first Do: got %v, want ErrNodeUnavailable", err)
	}
	if c.Len() != 0 {
		t.Fatalf("[TestErrorsAreNotStored]: failed load was stored")
	}
	if _, _, err := c.Do(t.Context(), testKey, load); err != nil {
		t.Fatalf("[TestErrorsAreNotStored]: second Do: got err == %s", err)
	}
	if calls != 2 {
		t.Errorf("[TestErrorsAreNotStored]: got %d loads, want 2", calls)
	}

	_, shared, err := c.Do(t.Context(), testKey, load)
	if err != nil || !shared || calls != 2 {
		t.Errorf("[TestErrorsAreNotStored]: cached Do: shared=%v err=%v calls=%d", shared, err, calls)
	}
}

func TestCallerCancel(t *testing.T) {
	c := New()

	release := make(chan struct{})
	done := make(chan struct{})
	load := func(ctx context.Context) (*value.Instance, error) {
		defer close(done)
		<-release
		// The load does not see the caller's cancellation.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return account(3), nil
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if _, _, err := c.Do(ctx, testKey, load); !errors.Is(err, context.Canceled) {
		t.Fatalf("[TestCallerCancel]: got %v, want context.Canceled", err)
	}

	close(release)
	<-done

	inst, _, err := c.Do(t.Context(), testKey, func(ctx context.Context) (*value.Instance, error) {
		t.Errorf("[TestCallerCancel]: abandoned load was not stored")
		return account(0), nil
	})
	if err != nil {
		t.Fatalf("[TestCallerCancel]: got err == %s", err)
	}
	if v, _ := inst.Get("sequence_number"); v != uint64(3) {
		t.Errorf("[TestCallerCancel]: got %v, want 3", v)
	}
}

func TestInvalidate(t *testing.T) {
	c := New()
	c.Set(testKey, account(1))

	other := Key{Type: testKey.Type, Address: value.MustAddress("0x2")}
	c.Set(other, account(2))

	c.Invalidate(testKey)
	if _, ok := c.Get(testKey); ok {
		t.Errorf("[TestInvalidate]: entry survived Invalidate")
	}
	if _, ok := c.Get(other); !ok {
		t.Errorf("[TestInvalidate]: Invalidate dropped another key")
	}

	// A load after Invalidate is stored again.
	if _, _, err := c.Do(t.Context(), testKey, func(ctx context.Context) (*value.Instance, error) { return account(5), nil }); err != nil {
		t.Fatalf("[TestInvalidate]: Do: %s", err)
	}
	if inst, ok := c.Get(testKey); !ok {
		t.Errorf("[TestInvalidate]: reload not stored")
	} else if v, _ := inst.Get("sequence_number"); v != uint64(5) {
		t.Errorf("[TestInvalidate]: got %v, want 5", v)
	}

	c.Reset()
	if c.Len() != 0 {
		t.Errorf("[TestInvalidate]: Len() after Reset = %d", c.Len())
	}
}

func TestInvalidateDuringLoad(t *testing.T) {
	c := New()

	started := make(chan struct{})
	release := make(chan struct{})
	load := func(ctx context.Context) (*value.Instance, error) {
		close(started)
		<-release
		return account(1), nil
	}

	errc := make(chan error, 1)
	go func() {
		_, _, err := c.Do(t.Context(), testKey, load)
		errc <- err
	}()
	<-started
	c.Invalidate(testKey)
	close(release)

	if err := <-errc; err != nil {
		t.Fatalf("[TestInvalidateDuringLoad]: got err == %s", err)
	}
	if _, ok := c.Get(testKey); ok {
		t.Errorf("[TestInvalidateDuringLoad]: load that raced Invalidate was stored")
	}
}
