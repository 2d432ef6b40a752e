package value

import (
	"testing"

	"github.com/bearlytools/chainstate/typetag"
	"github.com/kylelemons/godebug/pretty"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantShort string
		wantErr   bool
	}{
		{name: "Success: short", in: "0x1", wantShort: "0x1"},
		{name: "Success: odd digits", in: "0xabc", wantShort: "0xabc"},
		{name: "Success: no prefix", in: "0A", wantShort: "0xa"},
		{
			name:      "Success: long form",
			in:        "0x0000000000000000000000000000000000000000000000000000000000000001",
			wantShort: "0x1",
		},
		{name: "Success: zero", in: "0x0", wantShort: "0x0"},
		{name: "Error: empty", in: "0x", wantErr: true},
		{name: "Error: not hex", in: "0xgg", wantErr: true},
		{name: "Error: too long", in: "0x1" + "0000000000000000000000000000000000000000000000000000000000000000", wantErr: true},
	}

	for _, test := range tests {
		got, err := ParseAddress(test.in)
		switch {
		case err == nil && test.wantErr:
			t.Errorf("[TestParseAddress](%s): got err == nil, want err != nil", test.name)
			continue
		case err != nil && !test.wantErr:
			t.Errorf("[TestParseAddress](%s): got err == %s, want err == nil", test.name, err)
			continue
		case err != nil:
			continue
		}
		if got.String() != test.wantShort {
			t.Errorf("[TestParseAddress](%s): got %s, want %s", test.name, got, test.wantShort)
		}
		if len(got.Long()) != 66 {
			t.Errorf("[TestParseAddress](%s): Long() = %s, want 66 chars", test.name, got.Long())
		}
	}
}

func TestWideUints(t *testing.T) {
	const max128 = "340282366920938463463374607431768211455"
	u, err := ParseU128(max128)
	if err != nil {
		t.Fatalf("[TestWideUints]: ParseU128: %s", err)
	}
	if u.String() != max128 || u.Hi != ^uint64(0) || u.Lo != ^uint64(0) {
		t.Errorf("[TestWideUints]: got %s (%x, %x)", u, u.Hi, u.Lo)
	}
	if _, err := ParseU128("340282366920938463463374607431768211456"); err == nil {
		t.Errorf("[TestWideUints]: u128 overflow: got err == nil")
	}
	if _, err := ParseU128("-1"); err == nil {
		t.Errorf("[TestWideUints]: negative u128: got err == nil")
	}
	if got := U128From64(42).String(); got != "42" {
		t.Errorf("[TestWideUints]: U128From64: got %s", got)
	}

	big := "115792089237316195423570985008687907853269984665640564039457584007913129639935"
	w, err := ParseU256(big)
	if err != nil {
		t.Fatalf("[TestWideUints]: ParseU256: %s", err)
	}
	if w.String() != big {
		t.Errorf("[TestWideUints]: u256: got %s, want %s", w, big)
	}
	w, err = ParseU256("0x10")
	if err != nil {
		t.Fatalf("[TestWideUints]: ParseU256 hex: %s", err)
	}
	if w != U256From64(16) {
		t.Errorf("[TestWideUints]: u256 hex: got %s", w)
	}
}

func TestCloneIsDeep(t *testing.T) {
	inner := &Instance{
		Type:   typetag.NewStruct("0x1", "coin", "Coin", typetag.U8),
		Fields: []Field{{Name: "value", Value: uint64(5)}},
	}
	orig := &Instance{
		Type: typetag.NewStruct("0xabc", "vault", "Vault"),
		Fields: []Field{
			{Name: "coin", Value: inner},
			{Name: "ids", Value: []any{uint64(1), uint64(2)}},
			{Name: "bytes", Value: []byte{1, 2}},
			{Name: "maybe", Value: Option{Value: inner, Some: true}},
		},
	}

	c := orig.Clone()
	if diff := pretty.Compare(orig, c); diff != "" {
		t.Fatalf("[TestCloneIsDeep]: clone differs: -want/+got:\n%s", diff)
	}

	inner.Fields[0].Value = uint64(99)
	c.Fields[1].Value.([]any)[0] = uint64(100)
	c.Fields[2].Value.([]byte)[0] = 9

	got, err := FieldAs[*Instance](c, "coin")
	if err != nil {
		t.Fatalf("[TestCloneIsDeep]: %s", err)
	}
	if v, _ := got.Get("value"); v != uint64(5) {
		t.Errorf("[TestCloneIsDeep]: clone aliases nested instance: got %v", v)
	}
	if orig.Fields[1].Value.([]any)[0] != uint64(1) {
		t.Errorf("[TestCloneIsDeep]: clone aliases vector")
	}
	if orig.Fields[2].Value.([]byte)[0] != 1 {
		t.Errorf("[TestCloneIsDeep]: clone aliases bytes")
	}
	opt := c.Fields[3].Value.(Option)
	if v, _ := opt.Value.(*Instance).Get("value"); v != uint64(5) {
		t.Errorf("[TestCloneIsDeep]: clone aliases option value: got %v", v)
	}
}
