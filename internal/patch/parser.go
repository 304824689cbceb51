package patch

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/star/cesched/internal/transform"
)

// ParseDefinition builds a patch from a comma-separated definition:
//
//	name,weight,lon,lat,width                        center and width
//	name,weight,lon_left,lat_top,lon_right,lat_bot   rectangle
//	name,weight,lon1,lat1,lon2,lat2,lon3,lat3[,...]  explicit corners
//
// Coordinates are in system c, in degrees or sexagesimal (hh:mm:ss for
// equatorial longitude, dd:mm:ss otherwise). The returned patch is validated
// but its weight is not normalized.
func ParseDefinition(def string, c transform.CoordSystem) (Patch, error) {
	if !c.Valid() {
		return Patch{}, fmt.Errorf("%q: %w", string(c), ErrUnknownCoord)
	}

	parts := strings.Split(def, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < 5 {
		return Patch{}, fmt.Errorf("patch definition %q: want name,weight,lon,lat,width or corner list", def)
	}

	p := Patch{Name: parts[0]}
	w, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return Patch{}, fmt.Errorf("%s: weight %q: %w", p.Name, parts[1], ErrInvalidWeight)
	}
	p.Weight = w

	fields := parts[2:]
	switch {
	case len(fields) == 3:
		lon, lat, err := lonLat(c, fields[0], fields[1])
		if err != nil {
			return Patch{}, fmt.Errorf("%s: %w", p.Name, err)
		}
		width, err := strconv.ParseFloat(fields[2], 64)
		if err != nil || width <= 0 {
			return Patch{}, fmt.Errorf("%s: width %q: %w", p.Name, fields[2], ErrMalformedCoord)
		}
		p.Corners = CenterWidth(c, lon, lat, transform.Rad(width))

	case len(fields) == 4:
		lonLeft, latTop, err := lonLat(c, fields[0], fields[1])
		if err != nil {
			return Patch{}, fmt.Errorf("%s: %w", p.Name, err)
		}
		lonRight, latBottom, err := lonLat(c, fields[2], fields[3])
		if err != nil {
			return Patch{}, fmt.Errorf("%s: %w", p.Name, err)
		}
		p.Corners = Rectangle(c, lonLeft, latTop, lonRight, latBottom)

	case len(fields)%2 == 0:
		pairs := make([][2]float64, 0, len(fields)/2)
		for i := 0; i < len(fields); i += 2 {
			lon, lat, err := lonLat(c, fields[i], fields[i+1])
			if err != nil {
				return Patch{}, fmt.Errorf("%s: corner %d: %w", p.Name, i/2, err)
			}
			pairs = append(pairs, [2]float64{lon, lat})
		}
		p.Corners = Explicit(c, pairs)

	default:
		return Patch{}, fmt.Errorf("%s: odd number of corner coordinates: %w", p.Name, ErrMalformedCoord)
	}

	if err := p.Validate(); err != nil {
		return Patch{}, err
	}
	return p, nil
}

// Parse reads one patch definition per line from r. Blank lines and lines
// starting with '#' are skipped. Any malformed definition is an error.
func Parse(r io.Reader, c transform.CoordSystem, logger *slog.Logger) ([]Patch, error) {
	scanner := bufio.NewScanner(r)
	var patches []Patch
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p, err := ParseDefinition(line, c)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		logger.Debug("parsed patch", "name", p.Name, "weight", p.Weight, "corners", len(p.Corners))
		patches = append(patches, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading patch definitions: %w", err)
	}
	return patches, nil
}

// lonLat parses a coordinate pair and returns radians.
func lonLat(c transform.CoordSystem, lonStr, latStr string) (float64, float64, error) {
	lon, err := ParseAngle(lonStr, c == transform.Celestial)
	if err != nil {
		return 0, 0, err
	}
	lat, err := ParseAngle(latStr, false)
	if err != nil {
		return 0, 0, err
	}
	return transform.Rad(lon), transform.Rad(lat), nil
}

// ParseAngle parses a decimal-degree or sexagesimal angle and returns degrees.
// Sexagesimal values (d:m[:s]) are read as hours when hours is true.
func ParseAngle(s string, hours bool) (float64, error) {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, nil
	}
	if !strings.Contains(s, ":") {
		return 0, fmt.Errorf("%q: %w", s, ErrMalformedCoord)
	}

	body := s
	sign := 1.0
	switch {
	case strings.HasPrefix(body, "-"):
		sign = -1
		body = body[1:]
	case strings.HasPrefix(body, "+"):
		body = body[1:]
	}

	fields := strings.Split(body, ":")
	if len(fields) > 3 {
		return 0, fmt.Errorf("%q: %w", s, ErrMalformedCoord)
	}

	var v float64
	scale := 1.0
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil || x < 0 || (i > 0 && x >= 60) {
			return 0, fmt.Errorf("%q: %w", s, ErrMalformedCoord)
		}
		v += x / scale
		scale *= 60
	}
	if hours {
		v *= 15
	}
	return sign * v, nil
}
