package spreadsheet

import "testing"

func TestAddressRoundTrip(t *testing.T) {
	cases := []struct {
		row, col int
	}{
		{1, 0}, {10, 25}, {1, 26}, {100, 701}, {1, 1}, {5000, 0},
	}
	for _, c := range cases {
		a := Address{Row: c.row, Col: c.col}
		s := a.String()
		got, err := NewAddress(s)
		if err != nil {
			t.Fatalf("NewAddress(%q) failed: %v", s, err)
		}
		if got != a {
			t.Errorf("round trip %v -> %q -> %v, want %v", a, s, got, a)
		}
	}
}

func TestAddressEncoding(t *testing.T) {
	cases := []struct {
		addr Address
		want string
	}{
		{Address{Row: 1, Col: 0}, "A1"},
		{Address{Row: 10, Col: 25}, "Z10"},
		{Address{Row: 10, Col: 26}, "AA10"},
	}
	for _, c := range cases {
		if got := c.addr.String(); got != c.want {
			t.Errorf("%v.String() = %q, want %q", c.addr, got, c.want)
		}
	}
}

func TestNewAddressCaseInsensitive(t *testing.T) {
	a, err := NewAddress("aa10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.String() != "AA10" {
		t.Errorf("got %q, want AA10", a.String())
	}
}

func TestNewAddressInvalid(t *testing.T) {
	for _, s := range []string{"", "1A", "A", "A0", "A-1", "A1B"} {
		if _, err := NewAddress(s); err == nil {
			t.Errorf("NewAddress(%q) should have failed", s)
		} else if ce, ok := err.(*CoreError); !ok || ce.Kind != ErrInvalidAddress {
			t.Errorf("NewAddress(%q) error = %v, want ErrInvalidAddress", s, err)
		}
	}
}
