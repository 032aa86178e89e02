package whitelevel

import "testing"

func TestFromRawLevel(t *testing.T) {
	cases := []struct {
		raw  uint32
		nits float32
	}{
		{0, 0},
		{1000, 80},
		{500, 40},
		{2000, 160},
	}
	for _, c := range cases {
		if got := FromRawLevel(c.raw); got != c.nits {
			t.Fatalf("FromRawLevel(%d) = %v, want %v", c.raw, got, c.nits)
		}
	}
}

func TestDefaultNitsIsBT709Reference(t *testing.T) {
	if DefaultNits != 80.0 {
		t.Fatalf("DefaultNits = %v, want 80.0", DefaultNits)
	}
}
