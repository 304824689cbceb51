package schedule

import (
	"maps"
	"slices"

	"github.com/star/cesched/internal/patch"
)

// HitCount tracks completed scans per patch for one run. It is owned by the
// scheduler loop and mutated only when a scan is emitted.
type HitCount struct {
	counts map[string]int
}

// NewHitCount creates a zeroed HitCount for the named patches.
func NewHitCount(names []string) *HitCount {
	h := &HitCount{counts: make(map[string]int, len(names))}
	for _, n := range names {
		h.counts[n] = 0
	}
	return h
}

// Get returns the number of scans credited to name.
func (h *HitCount) Get(name string) int {
	return h.counts[name]
}

// Increment credits one scan to name and returns the new count.
func (h *HitCount) Increment(name string) int {
	h.counts[name]++
	return h.counts[name]
}

// Snapshot returns a copy of the counts.
func (h *HitCount) Snapshot() map[string]int {
	return maps.Clone(h.counts)
}

// comparePriority orders two patches by weight-normalized hit count without
// dividing: a goes first when hitsA/weightA < hitsB/weightB.
func comparePriority(hitsA int, weightA float64, hitsB int, weightB float64) int {
	lhs := float64(hitsA) * weightB
	rhs := float64(hitsB) * weightA
	switch {
	case lhs < rhs:
		return -1
	case lhs > rhs:
		return 1
	default:
		return 0
	}
}

// Prioritize returns visible ordered so that patches with fewer
// weight-normalized hits come first. Ties keep their input order.
func Prioritize(visible []patch.Patch, hits *HitCount) []patch.Patch {
	out := slices.Clone(visible)
	slices.SortStableFunc(out, func(a, b patch.Patch) int {
		return comparePriority(hits.Get(a.Name), a.Weight, hits.Get(b.Name), b.Weight)
	})
	return out
}
