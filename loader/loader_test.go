package loader

import (
	"sync"
	"testing"
	"time"

	"github.com/go-json-experiment/json/jsontext"
	"github.com/kylelemons/godebug/pretty"

	"github.com/bearlytools/chainstate/cache"
	"github.com/bearlytools/chainstate/decode"
	"github.com/bearlytools/chainstate/errors"
	"github.com/bearlytools/chainstate/mapping"
	"github.com/bearlytools/chainstate/node/nodetest"
	"github.com/bearlytools/chainstate/typetag"
	"github.com/bearlytools/chainstate/value"
)

var (
	pairIdent   = typetag.NewIdent("0xabc", "test", "Pair")
	boxIdent    = typetag.NewIdent("0xabc", "test", "Box")
	vaultIdent  = typetag.NewIdent("0xabc", "test", "Vault")
	holdIdent   = typetag.NewIdent("0xabc", "test", "Holder")
	peerIdent   = typetag.NewIdent("0xabc", "test", "Peer")
	nodeIdent   = typetag.NewIdent("0xabc", "test", "Node")
	rootIdent   = typetag.NewIdent("0xabc", "test", "Root")
	ghostIdent  = typetag.NewIdent("0xabc", "test", "Ghost")
	optionIdent = typetag.NewIdent("0x1", "option", "Option")
)

func holderBookType() typetag.Struct {
	return typetag.NewStruct("0x1", "table", "Table", typetag.U64, vaultIdent.Tag())
}

func testDecls(t *testing.T) *mapping.Registry {
	t.Helper()

	k, v := typetag.NewParam(0), typetag.NewParam(1)
	decls, err := mapping.New(
		&mapping.Map{
			Ident: pairIdent,
			Fields: []*mapping.FieldDescr{
				{Name: "a", Type: typetag.U64},
				{Name: "b", Type: typetag.NewVector(typetag.U64)},
			},
			Resource: true,
		},
		&mapping.Map{
			Ident:      boxIdent,
			TypeParams: []mapping.TypeParam{{Name: "T"}},
			Fields:     []*mapping.FieldDescr{{Name: "value", Type: typetag.NewParam(0)}},
			Resource:   true,
		},
		&mapping.Map{
			Ident:    vaultIdent,
			Fields:   []*mapping.FieldDescr{{Name: "owner", Type: typetag.Address}},
			Resource: true,
		},
		&mapping.Map{
			Ident: holdIdent,
			Fields: []*mapping.FieldDescr{
				{Name: "maybe", Type: optionIdent.Tag(vaultIdent.Tag())},
				{Name: "vaults", Type: typetag.NewVector(vaultIdent.Tag())},
				{Name: "book", Type: holderBookType()},
			},
			Resource: true,
		},
		&mapping.Map{
			Ident: peerIdent,
			Fields: []*mapping.FieldDescr{
				{Name: "id", Type: typetag.U64},
				{Name: "peer", Type: peerIdent.Tag()},
			},
			Resource: true,
		},
		&mapping.Map{
			Ident: nodeIdent,
			Fields: []*mapping.FieldDescr{
				{Name: "id", Type: typetag.U64},
				{Name: "next", Type: optionIdent.Tag(nodeIdent.Tag())},
			},
			Resource: true,
		},
		&mapping.Map{
			Ident: rootIdent,
			Fields: []*mapping.FieldDescr{
				{Name: "left", Type: nodeIdent.Tag()},
				{Name: "right", Type: nodeIdent.Tag()},
			},
			Resource: true,
		},
		&mapping.Map{
			Ident:      IterableTableIdent,
			TypeParams: []mapping.TypeParam{{Name: "K"}, {Name: "V"}},
			Fields: []*mapping.FieldDescr{
				{Name: "inner", Type: typetag.NewStruct("0x1", "table_with_length", "TableWithLength", k, IterableValueIdent.Tag(k, v))},
				{Name: "head", Type: optionIdent.Tag(k)},
				{Name: "tail", Type: optionIdent.Tag(k)},
			},
		},
		&mapping.Map{
			Ident:      IterableValueIdent,
			TypeParams: []mapping.TypeParam{{Name: "K"}, {Name: "V"}},
			Fields: []*mapping.FieldDescr{
				{Name: "val", Type: v},
				{Name: "prev", Type: optionIdent.Tag(k)},
				{Name: "next", Type: optionIdent.Tag(k)},
			},
		},
	)
	if err != nil {
		t.Fatalf("mapping.New: %s", err)
	}
	return decls
}

func newLoader(t *testing.T, opts ...Option) (*Loader, *nodetest.Fake) {
	t.Helper()

	reg := decode.NewRegistry(testDecls(t))
	if err := reg.RegisterDeclared(); err != nil {
		t.Fatalf("RegisterDeclared: %s", err)
	}
	fake := nodetest.New()
	l, err := New(fake, reg, opts...)
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	return l, fake
}

func vault(owner string) *value.Instance {
	return &value.Instance{Type: vaultIdent.Tag(), Fields: []value.Field{{Name: "owner", Value: value.MustAddress(owner)}}}
}

func TestNew(t *testing.T) {
	reg := decode.NewRegistry(testDecls(t))

	tests := []struct {
		name    string
		opts    []Option
		wantErr bool
	}{
		{name: "Success: defaults"},
		{name: "Success: shared cache and concurrency", opts: []Option{WithCache(cache.New()), WithConcurrency(2), WithLogger(nil)}},
		{name: "Error: zero concurrency", opts: []Option{WithConcurrency(0)}, wantErr: true},
	}

	for _, test := range tests {
		_, err := New(nodetest.New(), reg, test.opts...)
		switch {
		case err == nil && test.wantErr:
			t.Errorf("[TestNew](%s): got err == nil, want err != nil", test.name)
		case err != nil && !test.wantErr:
			t.Errorf("[TestNew](%s): got err == %s, want err == nil", test.name, err)
		}
	}

	if !reg.Sealed() {
		t.Errorf("[TestNew]: registry was not sealed")
	}
	if err := reg.Register("0xabc::late::Late", decode.DecodeStruct); !errors.Is(err, decode.ErrSealed) {
		t.Errorf("[TestNew]: Register after New: got %v, want decode.ErrSealed", err)
	}
	if _, err := New(nil, reg); err == nil {
		t.Errorf("[TestNew]: nil client: got err == nil")
	}
}

func TestLoadResource(t *testing.T) {
	l, fake := newLoader(t)
	addr := value.MustAddress("0x1")
	fake.SetResource(addr, "0xabc::test::Pair", `{"a":"5","b":["1","2","3"]}`)
	fake.SetResource(addr, "0xabc::test::Box<u8>", `{"value":"7"}`)
	fake.SetResource(addr, "0xabc::test::Box<0xabc::test::Box<u8>>", `{"value":{"value":"7"}}`)
	fake.SetResource(addr, "0xabc::test::Ghost", `{}`)
	fake.SetResource(value.MustAddress("0x2"), "0xabc::test::Pair", `{"a":"5","b":"nope"}`)

	boxU8 := boxIdent.Tag(typetag.U8)

	tests := []struct {
		name    string
		addr    string
		ident   typetag.Ident
		args    []typetag.Tag
		want    *value.Instance
		wantErr error
	}{
		{
			name:  "Success: atomic and vector fields",
			addr:  "0x1",
			ident: pairIdent,
			want: &value.Instance{
				Type: pairIdent.Tag(),
				Fields: []value.Field{
					{Name: "a", Value: uint64(5)},
					{Name: "b", Value: []any{uint64(1), uint64(2), uint64(3)}},
				},
			},
		},
		{
			name:  "Success: generic instantiation",
			addr:  "0x1",
			ident: boxIdent,
			args:  []typetag.Tag{typetag.U8},
			want:  &value.Instance{Type: boxU8, Fields: []value.Field{{Name: "value", Value: uint8(7)}}},
		},
		{
			name:  "Success: nested generic instantiation",
			addr:  "0x1",
			ident: boxIdent,
			args:  []typetag.Tag{boxU8},
			want: &value.Instance{
				Type:   boxIdent.Tag(boxU8),
				Fields: []value.Field{{Name: "value", Value: &value.Instance{Type: boxU8, Fields: []value.Field{{Name: "value", Value: uint8(7)}}}}},
			},
		},
		{name: "Error: nothing at address", addr: "0x3", ident: pairIdent, wantErr: errors.ErrResourceNotFound},
		{name: "Error: payload does not match", addr: "0x2", ident: pairIdent, wantErr: errors.ErrTypeMismatch},
		{name: "Error: no decoder", addr: "0x1", ident: ghostIdent, wantErr: errors.ErrNotRegistered},
		{name: "Error: unresolved argument", addr: "0x1", ident: boxIdent, args: []typetag.Tag{typetag.NewParam(0)}, wantErr: errors.ErrUnresolvedType},
	}

	for _, test := range tests {
		got, err := l.LoadResource(t.Context(), value.MustAddress(test.addr), test.ident, test.args...)
		switch {
		case test.wantErr != nil && !errors.Is(err, test.wantErr):
			t.Errorf("[TestLoadResource](%s): got err == %v, want %v", test.name, err, test.wantErr)
			continue
		case test.wantErr != nil:
			continue
		case err != nil:
			t.Errorf("[TestLoadResource](%s): got err == %s, want err == nil", test.name, err)
			continue
		}
		if diff := pretty.Compare(test.want, got); diff != "" {
			t.Errorf("[TestLoadResource](%s): -want/+got:\n%s", test.name, diff)
		}
	}
}

func TestLoadResourceUnavailable(t *testing.T) {
	l, fake := newLoader(t)
	fake.FailWith(errors.New("connection refused"))

	_, err := l.LoadResource(t.Context(), value.MustAddress("0x1"), pairIdent)
	if !errors.IsRetryable(err) {
		t.Errorf("[TestLoadResourceUnavailable]: got %v, want ErrNodeUnavailable", err)
	}
	if l.Cache().Len() != 0 {
		t.Errorf("[TestLoadResourceUnavailable]: failed load was cached")
	}
}

func TestLoadResourceSharesReads(t *testing.T) {
	l, fake := newLoader(t)
	addr := value.MustAddress("0x1")
	fake.SetResource(addr, "0xabc::test::Pair", `{"a":"5","b":[]}`)
	release := fake.Hold()
	defer release()

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	results := make([]*value.Instance, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = l.LoadResource(t.Context(), addr, pairIdent)
		}()
	}
	for fake.ResourceReads() == 0 {
		time.Sleep(time.Millisecond)
	}
	release()
	wg.Wait()

	if got := fake.ResourceReads(); got != 1 {
		t.Errorf("[TestLoadResourceSharesReads]: got %d reads, want 1", got)
	}
	for i := range callers {
		if errs[i] != nil {
			t.Fatalf("[TestLoadResourceSharesReads]: caller %d: got err == %s", i, errs[i])
		}
	}
	if results[0] == results[1] {
		t.Errorf("[TestLoadResourceSharesReads]: callers share an instance")
	}
}

func TestCachedAndInvalidate(t *testing.T) {
	l, fake := newLoader(t)
	addr := value.MustAddress("0x1")
	fake.SetResource(addr, "0xabc::test::Pair", `{"a":"1","b":[]}`)

	if _, ok := l.Cached(addr, pairIdent.Tag()); ok {
		t.Fatalf("[TestCachedAndInvalidate]: cached before load")
	}
	if _, err := l.LoadResource(t.Context(), addr, pairIdent); err != nil {
		t.Fatalf("[TestCachedAndInvalidate]: LoadResource: %s", err)
	}
	if _, ok := l.Cached(addr, pairIdent.Tag()); !ok {
		t.Fatalf("[TestCachedAndInvalidate]: not cached after load")
	}

	fake.SetResource(addr, "0xabc::test::Pair", `{"a":"2","b":[]}`)
	inst, _ := l.LoadResource(t.Context(), addr, pairIdent)
	if a, _ := inst.Get("a"); a != uint64(1) {
		t.Errorf("[TestCachedAndInvalidate]: got a == %v from cache, want 1", a)
	}

	if err := l.Invalidate(addr, pairIdent.Tag()); err != nil {
		t.Fatalf("[TestCachedAndInvalidate]: Invalidate: %s", err)
	}
	inst, err := l.LoadResource(t.Context(), addr, pairIdent)
	if err != nil {
		t.Fatalf("[TestCachedAndInvalidate]: reload: %s", err)
	}
	if a, _ := inst.Get("a"); a != uint64(2) {
		t.Errorf("[TestCachedAndInvalidate]: got a == %v after Invalidate, want 2", a)
	}
	if got := fake.ResourceReads(); got != 2 {
		t.Errorf("[TestCachedAndInvalidate]: got %d reads, want 2", got)
	}
	if err := l.Invalidate(addr, boxIdent.Tag(typetag.NewParam(0))); !errors.Is(err, errors.ErrUnresolvedType) {
		t.Errorf("[TestCachedAndInvalidate]: Invalidate unresolved: got %v", err)
	}
}

func TestGetTableItem(t *testing.T) {
	l, fake := newLoader(t)
	handle := value.MustAddress("0x99")
	ghost := ghostIdent.Tag()
	if err := fake.SetTableItem(handle, "u64", "0xabc::test::Vault", `"1"`, `{"owner":"0xa"}`); err != nil {
		t.Fatal(err)
	}
	if err := fake.SetTableItem(handle, "u64", "0xabc::test::Ghost", `"1"`, `{}`); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		valueType typetag.Tag
		key       string
		want      any
		wantErr   error
	}{
		{name: "Success: inline struct value", valueType: vaultIdent.Tag(), key: `"1"`, want: vault("0xa")},
		{name: "Success: key formatting does not matter", valueType: vaultIdent.Tag(), key: ` "1" `, want: vault("0xa")},
		{name: "Error: absent key", valueType: vaultIdent.Tag(), key: `"2"`, wantErr: errors.ErrEntryNotFound},
		// The value type has no decoder. An absent key still reports absence.
		{name: "Error: absent key without decoder", valueType: ghost, key: `"2"`, wantErr: errors.ErrEntryNotFound},
		{name: "Error: present key without decoder", valueType: ghost, key: `"1"`, wantErr: errors.ErrNotRegistered},
		{name: "Error: unresolved value type", valueType: typetag.NewParam(1), key: `"1"`, wantErr: errors.ErrUnresolvedType},
	}

	for _, test := range tests {
		got, err := l.GetTableItem(t.Context(), handle, typetag.U64, test.valueType, jsontext.Value(test.key))
		switch {
		case test.wantErr != nil && !errors.Is(err, test.wantErr):
			t.Errorf("[TestGetTableItem](%s): got err == %v, want %v", test.name, err, test.wantErr)
			continue
		case test.wantErr != nil:
			continue
		case err != nil:
			t.Errorf("[TestGetTableItem](%s): got err == %s, want err == nil", test.name, err)
			continue
		}
		if diff := pretty.Compare(test.want, got); diff != "" {
			t.Errorf("[TestGetTableItem](%s): -want/+got:\n%s", test.name, diff)
		}
	}
}

func TestTableItem(t *testing.T) {
	l, fake := newLoader(t)
	addr := value.MustAddress("0x5")
	fake.SetResource(addr, "0xabc::test::Holder", `{"maybe":{"vec":[]},"vaults":[],"book":{"handle":"0x99"}}`)
	if err := fake.SetTableItem(value.MustAddress("0x99"), "u64", "0xabc::test::Vault", `"42"`, `"0xa"`); err != nil {
		t.Fatal(err)
	}

	holder, err := l.LoadResource(t.Context(), addr, holdIdent)
	if err != nil {
		t.Fatalf("[TestTableItem]: LoadResource: %s", err)
	}
	book, err := value.FieldAs[value.Table](holder, "book")
	if err != nil {
		t.Fatalf("[TestTableItem]: %s", err)
	}

	got, err := l.TableItem(t.Context(), book, uint64(42))
	if err != nil {
		t.Fatalf("[TestTableItem]: got err == %s", err)
	}
	want := value.ResourceRef{Type: vaultIdent.Tag(), Address: value.MustAddress("0xa")}
	if diff := pretty.Compare(want, got); diff != "" {
		t.Errorf("[TestTableItem]: -want/+got:\n%s", diff)
	}

	if _, err := l.TableItem(t.Context(), book, uint64(7)); !errors.IsAbsence(err) {
		t.Errorf("[TestTableItem]: absent key: got %v, want absence", err)
	}
	if _, err := l.TableItem(t.Context(), book, struct{}{}); err == nil {
		t.Errorf("[TestTableItem]: unencodable key: got err == nil")
	}
}
