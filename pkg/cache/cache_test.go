package cache

import "testing"

func TestHitRate(t *testing.T) {
	cases := []struct {
		hits, misses uint64
		want         float64
	}{
		{0, 0, 0},
		{1, 0, 100},
		{0, 1, 0},
		{1, 1, 50},
		{3, 1, 75},
	}
	for _, c := range cases {
		if got := hitRate(c.hits, c.misses); got != c.want {
			t.Errorf("hitRate(%d,%d) = %v, want %v", c.hits, c.misses, got, c.want)
		}
	}
}
