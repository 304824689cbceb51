package schedule

import (
	"testing"

	"github.com/star/cesched/internal/patch"
)

func TestComparePriority(t *testing.T) {
	tests := []struct {
		name  string
		hitsA int
		wA    float64
		hitsB int
		wB    float64
		want  int
	}{
		{"fewer hits first", 0, 0.5, 1, 0.5, -1},
		{"more hits later", 2, 0.5, 1, 0.5, 1},
		{"equal", 1, 0.5, 1, 0.5, 0},
		{"heavier weight absorbs hits", 2, 0.75, 1, 0.25, -1},
		{"weighted tie", 3, 0.75, 1, 0.25, 0},
		{"zero weight does not divide", 1, 0, 1, 0.5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := comparePriority(tt.hitsA, tt.wA, tt.hitsB, tt.wB)
			if got != tt.want {
				t.Errorf("comparePriority = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPrioritize(t *testing.T) {
	ps := []patch.Patch{
		{Name: "a", Weight: 0.5},
		{Name: "b", Weight: 0.25},
		{Name: "c", Weight: 0.25},
	}
	hits := NewHitCount([]string{"a", "b", "c"})
	hits.Increment("a")
	hits.Increment("a")
	hits.Increment("b")

	got := Prioritize(ps, hits)
	want := []string{"c", "a", "b"}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("order[%d] = %s, want %s", i, got[i].Name, name)
		}
	}

	// Input is untouched.
	if ps[0].Name != "a" || ps[2].Name != "c" {
		t.Errorf("input reordered: %v", ps)
	}
}

// TestWeightedRoundRobin always scans the first prioritized patch and checks
// that equal weights never drift apart by more than one hit, and that a
// double-weight patch gets twice the scans.
func TestWeightedRoundRobin(t *testing.T) {
	t.Run("equal weights", func(t *testing.T) {
		ps := []patch.Patch{{Name: "a", Weight: 0.5}, {Name: "b", Weight: 0.5}}
		hits := NewHitCount([]string{"a", "b"})
		for i := 0; i < 25; i++ {
			hits.Increment(Prioritize(ps, hits)[0].Name)
			if d := hits.Get("a") - hits.Get("b"); d < -1 || d > 1 {
				t.Fatalf("after %d scans hits a=%d b=%d", i+1, hits.Get("a"), hits.Get("b"))
			}
		}
	})

	t.Run("double weight", func(t *testing.T) {
		ps := []patch.Patch{{Name: "a", Weight: 2.0 / 3}, {Name: "b", Weight: 1.0 / 3}}
		hits := NewHitCount([]string{"a", "b"})
		for i := 0; i < 30; i++ {
			hits.Increment(Prioritize(ps, hits)[0].Name)
		}
		if a, b := hits.Get("a"), hits.Get("b"); a != 20 || b != 10 {
			t.Errorf("hits a=%d b=%d, want 20/10", a, b)
		}
	})
}

func TestHitCountSnapshot(t *testing.T) {
	hits := NewHitCount([]string{"a"})
	if n := hits.Increment("a"); n != 1 {
		t.Errorf("Increment = %d, want 1", n)
	}
	snap := hits.Snapshot()
	snap["a"] = 10
	if hits.Get("a") != 1 {
		t.Error("snapshot aliases hit counts")
	}
}
