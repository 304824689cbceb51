package patch

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/star/cesched/internal/transform"
)

// File is the YAML patch catalog layout:
//
//	coord: C
//	patches:
//	  - name: deep
//	    weight: 1
//	    center: {lon: "02:00:00", lat: -30, width: 10}
//	  - name: wide
//	    weight: 2
//	    coord: G
//	    rectangle: {lon_left: 40, lat_top: -40, lon_right: 0, lat_bottom: -60}
//	  - name: strip
//	    weight: 1
//	    corners: [[10, -20], [30, -20], [30, -25], [10, -25]]
type File struct {
	Coord   string      `yaml:"coord"`
	Patches []FileEntry `yaml:"patches"`
}

// FileEntry is one patch in a catalog file. Exactly one of Center,
// Rectangle and Corners must be set.
type FileEntry struct {
	Name      string         `yaml:"name"`
	Weight    float64        `yaml:"weight"`
	Coord     string         `yaml:"coord,omitempty"`
	Center    *FileCenter    `yaml:"center,omitempty"`
	Rectangle *FileRectangle `yaml:"rectangle,omitempty"`
	Corners   [][]Angle      `yaml:"corners,omitempty"`
}

// FileCenter is the center-and-width form.
type FileCenter struct {
	Lon   Angle   `yaml:"lon"`
	Lat   Angle   `yaml:"lat"`
	Width float64 `yaml:"width"`
}

// FileRectangle is the rectangle form.
type FileRectangle struct {
	LonLeft   Angle `yaml:"lon_left"`
	LatTop    Angle `yaml:"lat_top"`
	LonRight  Angle `yaml:"lon_right"`
	LatBottom Angle `yaml:"lat_bottom"`
}

// Angle holds a coordinate exactly as written: a number of degrees or a
// sexagesimal string.
type Angle string

// UnmarshalYAML accepts any scalar node.
func (a *Angle) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: coordinate must be a scalar: %w", node.Line, ErrMalformedCoord)
	}
	*a = Angle(node.Value)
	return nil
}

// LoadFile reads a YAML catalog file. defaultCoord applies to entries when
// neither the file nor the entry names a coordinate system.
func LoadFile(path string, defaultCoord transform.CoordSystem, logger *slog.Logger) ([]Patch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading patch file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing patch file %s: %w", path, err)
	}

	fileCoord := defaultCoord
	if f.Coord != "" {
		fileCoord, err = ParseCoord(f.Coord)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	patches := make([]Patch, 0, len(f.Patches))
	for i, e := range f.Patches {
		p, err := e.build(fileCoord)
		if err != nil {
			return nil, fmt.Errorf("%s: entry %d: %w", path, i, err)
		}
		logger.Debug("loaded patch", "file", path, "name", p.Name, "weight", p.Weight, "corners", len(p.Corners))
		patches = append(patches, p)
	}
	return patches, nil
}

func (e FileEntry) build(fileCoord transform.CoordSystem) (Patch, error) {
	c := fileCoord
	if e.Coord != "" {
		var err error
		if c, err = ParseCoord(e.Coord); err != nil {
			return Patch{}, fmt.Errorf("%s: %w", e.Name, err)
		}
	}

	forms := 0
	for _, set := range []bool{e.Center != nil, e.Rectangle != nil, len(e.Corners) > 0} {
		if set {
			forms++
		}
	}
	if forms != 1 {
		return Patch{}, fmt.Errorf("%s: exactly one of center, rectangle or corners is required", e.Name)
	}

	p := Patch{Name: e.Name, Weight: e.Weight}
	switch {
	case e.Center != nil:
		lon, lat, err := lonLat(c, string(e.Center.Lon), string(e.Center.Lat))
		if err != nil {
			return Patch{}, fmt.Errorf("%s: %w", e.Name, err)
		}
		if e.Center.Width <= 0 {
			return Patch{}, fmt.Errorf("%s: width %v: %w", e.Name, e.Center.Width, ErrMalformedCoord)
		}
		p.Corners = CenterWidth(c, lon, lat, transform.Rad(e.Center.Width))

	case e.Rectangle != nil:
		r := e.Rectangle
		lonLeft, latTop, err := lonLat(c, string(r.LonLeft), string(r.LatTop))
		if err != nil {
			return Patch{}, fmt.Errorf("%s: %w", e.Name, err)
		}
		lonRight, latBottom, err := lonLat(c, string(r.LonRight), string(r.LatBottom))
		if err != nil {
			return Patch{}, fmt.Errorf("%s: %w", e.Name, err)
		}
		p.Corners = Rectangle(c, lonLeft, latTop, lonRight, latBottom)

	default:
		pairs := make([][2]float64, len(e.Corners))
		for i, pair := range e.Corners {
			if len(pair) != 2 {
				return Patch{}, fmt.Errorf("%s: corner %d: want [lon, lat]: %w", e.Name, i, ErrMalformedCoord)
			}
			lon, lat, err := lonLat(c, string(pair[0]), string(pair[1]))
			if err != nil {
				return Patch{}, fmt.Errorf("%s: corner %d: %w", e.Name, i, err)
			}
			pairs[i] = [2]float64{lon, lat}
		}
		p.Corners = Explicit(c, pairs)
	}

	if err := p.Validate(); err != nil {
		return Patch{}, err
	}
	return p, nil
}

// ParseCoord maps "C", "E" or "G" to a coordinate system.
func ParseCoord(s string) (transform.CoordSystem, error) {
	if len(s) == 1 {
		if c := transform.CoordSystem(s[0]); c.Valid() {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%q: %w", s, ErrUnknownCoord)
}
