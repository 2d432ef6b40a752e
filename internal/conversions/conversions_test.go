package conversions

import "testing"

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "Success: empty", in: ""},
		{name: "Success: json", in: `{"handle":"0x1"}`},
	}

	for _, test := range tests {
		b := String2ByteSlice(test.in)
		if len(b) != len(test.in) {
			t.Errorf("[TestRoundTrip](%s): got len %d, want %d", test.name, len(b), len(test.in))
		}
		if got := ByteSlice2String(b); got != test.in {
			t.Errorf("[TestRoundTrip](%s): got %q, want %q", test.name, got, test.in)
		}
	}
}
