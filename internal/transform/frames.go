// Package transform provides the spherical-astronomy primitives used by the
// scheduler: time scales, sidereal time, frame rotations between equatorial,
// ecliptic and galactic coordinates, precession, and the equatorial to
// horizontal (azimuth/elevation) conversion for a ground observer.
//
// All angles are radians. Azimuth is measured from north through east.
//
// Frame rotations, precession and refraction are delegated to
// github.com/soniakeys/meeus (Meeus, "Astronomical Algorithms"). Nutation,
// aberration and polar motion are ignored for fixed directions, which
// introduces well under an arcminute of error, far below any focal-plane
// margin.
package transform

import (
	"math"

	"github.com/soniakeys/meeus/v3/coord"
	"github.com/soniakeys/meeus/v3/precess"
	"github.com/soniakeys/unit"
)

// Equatorial is a direction in right ascension / declination (radians).
type Equatorial struct {
	RA, Dec float64
}

// Horizontal is a direction in azimuth / elevation (radians).
type Horizontal struct {
	Az, El float64
}

// CoordSystem identifies the frame a sky coordinate is given in.
type CoordSystem byte

const (
	Celestial CoordSystem = 'C' // equatorial J2000
	Ecliptic  CoordSystem = 'E' // ecliptic J2000
	Galactic  CoordSystem = 'G' // galactic
)

// Valid reports whether c is a known coordinate system.
func (c CoordSystem) Valid() bool {
	return c == Celestial || c == Ecliptic || c == Galactic
}

func (c CoordSystem) String() string {
	return string(c)
}

// obliquityJ2000 is the mean obliquity of the ecliptic at J2000.0.
const obliquityJ2000 = 23.4392911 * math.Pi / 180.0

// Galactic coordinates convert to the B1950 equator. Julian year 1950.0
// stands in for B1950.0; the difference is below 0.02 arcsec.
const (
	epochB1950 = 1950.0
	epochJ2000 = 2000.0
)

// Deg converts radians to degrees.
func Deg(rad float64) float64 { return rad * 180.0 / math.Pi }

// Rad converts degrees to radians.
func Rad(deg float64) float64 { return deg * math.Pi / 180.0 }

// NormalizeAngle wraps a into [0, 2π).
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	// Tiny negative inputs round up to exactly 2π.
	if a >= 2*math.Pi {
		a = 0
	}
	return a
}

// ToEquatorial converts a (lon, lat) pair given in system c to J2000 equatorial.
func ToEquatorial(c CoordSystem, lon, lat float64) Equatorial {
	switch c {
	case Ecliptic:
		return EclipticToEquatorial(lon, lat)
	case Galactic:
		return GalacticToEquatorial(lon, lat)
	default:
		return Equatorial{RA: NormalizeAngle(lon), Dec: lat}
	}
}

// EclipticToEquatorial rotates J2000 ecliptic longitude/latitude about the
// equinox direction by the J2000 obliquity.
func EclipticToEquatorial(lon, lat float64) Equatorial {
	sinE, cosE := math.Sincos(obliquityJ2000)
	ra, dec := coord.EclToEq(unit.Angle(lon), unit.Angle(lat), sinE, cosE)
	return Equatorial{RA: NormalizeAngle(ra.Rad()), Dec: dec.Rad()}
}

// GalacticToEquatorial converts galactic (l, b) to J2000 equatorial.
func GalacticToEquatorial(l, b float64) Equatorial {
	ra, dec := coord.GalToEq(unit.Angle(l), unit.Angle(b))
	b1950 := Equatorial{RA: ra.Rad(), Dec: dec.Rad()}
	return precessEpochs(b1950, epochB1950, epochJ2000)
}

// Precess moves a J2000 mean position to the mean equinox of date, T Julian
// centuries after J2000.0 (IAU 1976 angles).
func Precess(eq Equatorial, T float64) Equatorial {
	return precessEpochs(eq, epochJ2000, epochJ2000+100*T)
}

// precessEpochs precesses a mean position between two epochs given as
// Julian years.
func precessEpochs(eq Equatorial, from, to float64) Equatorial {
	in := &coord.Equatorial{RA: unit.RAFromRad(eq.RA), Dec: unit.Angle(eq.Dec)}
	out := precess.Position(in, &coord.Equatorial{}, from, to, 0, 0)
	return Equatorial{RA: NormalizeAngle(out.RA.Rad()), Dec: out.Dec.Rad()}
}

// Separation returns the great-circle angle between two horizontal directions.
// Uses the Vincenty form, which stays accurate for both tiny and near-antipodal
// separations.
func Separation(a, b Horizontal) float64 {
	return greatCircle(a.Az, a.El, b.Az, b.El)
}

// SeparationEquatorial returns the great-circle angle between two equatorial directions.
func SeparationEquatorial(a, b Equatorial) float64 {
	return greatCircle(a.RA, a.Dec, b.RA, b.Dec)
}

func greatCircle(lon1, lat1, lon2, lat2 float64) float64 {
	sin1, cos1 := math.Sincos(lat1)
	sin2, cos2 := math.Sincos(lat2)
	sinDL, cosDL := math.Sincos(lon2 - lon1)

	x := cos2 * sinDL
	y := cos1*sin2 - sin1*cos2*cosDL
	num := math.Sqrt(x*x + y*y)
	den := sin1*sin2 + cos1*cos2*cosDL
	return math.Atan2(num, den)
}
