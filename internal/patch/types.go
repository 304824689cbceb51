// Package patch defines the sky patches the scheduler targets and builds them
// from definition strings or YAML catalog files.
package patch

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/star/cesched/internal/transform"
)

// Configuration errors, detected before a run starts.
var (
	ErrEmptyCatalog   = errors.New("patch catalog is empty")
	ErrTooFewCorners  = errors.New("patch needs at least 3 corners")
	ErrCircumpolar    = errors.New("patch has a circumpolar corner (|dec| > 80 deg)")
	ErrInvalidWeight  = errors.New("patch weight must be positive and finite")
	ErrDuplicateName  = errors.New("duplicate patch name")
	ErrInvalidName    = errors.New("patch name must be non-empty and contain no whitespace")
	ErrMalformedCoord = errors.New("malformed coordinate")
	ErrUnknownCoord   = errors.New("unknown coordinate system")
)

// MinCorners is the smallest polygon a patch may have.
const MinCorners = 3

// maxDec bounds corner declinations; circumpolar targeting is unsupported.
var maxDec = transform.Rad(80)

// Patch is a bounded sky region: an ordered polygon of J2000 corner
// directions plus a scheduling weight. Immutable after construction.
type Patch struct {
	Name    string
	Weight  float64
	Corners []transform.Equatorial
}

// Validate checks the patch in isolation.
func (p Patch) Validate() error {
	if p.Name == "" || strings.IndexFunc(p.Name, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%q: %w", p.Name, ErrInvalidName)
	}
	if !(p.Weight > 0) || math.IsInf(p.Weight, 0) {
		return fmt.Errorf("%s: weight %v: %w", p.Name, p.Weight, ErrInvalidWeight)
	}
	if len(p.Corners) < MinCorners {
		return fmt.Errorf("%s: %d corners: %w", p.Name, len(p.Corners), ErrTooFewCorners)
	}
	for i, c := range p.Corners {
		if math.Abs(c.Dec) > maxDec {
			return fmt.Errorf("%s: corner %d at dec %.2f: %w", p.Name, i, transform.Deg(c.Dec), ErrCircumpolar)
		}
	}
	return nil
}

// Catalog is a validated, weight-normalized set of patches in definition
// order. Catalog order is the tie-break for scheduling priority.
type Catalog struct {
	patches []Patch
	index   map[string]int
}

// NewCatalog validates patches and normalizes their weights to sum to 1.
// The input slice is not modified.
func NewCatalog(patches []Patch) (*Catalog, error) {
	if len(patches) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		patches: make([]Patch, len(patches)),
		index:   make(map[string]int, len(patches)),
	}

	var total float64
	for i, p := range patches {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.index[p.Name]; dup {
			return nil, fmt.Errorf("%s: %w", p.Name, ErrDuplicateName)
		}
		c.index[p.Name] = i
		total += p.Weight

		corners := make([]transform.Equatorial, len(p.Corners))
		copy(corners, p.Corners)
		c.patches[i] = Patch{Name: p.Name, Weight: p.Weight, Corners: corners}
	}

	for i := range c.patches {
		c.patches[i].Weight /= total
	}
	return c, nil
}

// Len returns the number of patches.
func (c *Catalog) Len() int { return len(c.patches) }

// At returns the i-th patch in catalog order.
func (c *Catalog) At(i int) Patch { return c.patches[i] }

// Patches returns the patches in catalog order. Callers must not modify the
// returned corners.
func (c *Catalog) Patches() []Patch {
	out := make([]Patch, len(c.patches))
	copy(out, c.patches)
	return out
}

// Index returns the catalog position of the named patch.
func (c *Catalog) Index(name string) (int, bool) {
	i, ok := c.index[name]
	return i, ok
}

// Names returns the patch names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.patches))
	for i, p := range c.patches {
		names[i] = p.Name
	}
	return names
}
