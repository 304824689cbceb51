package ephem

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/coord"
	"github.com/soniakeys/meeus/v3/moonillum"
	"github.com/soniakeys/meeus/v3/moonposition"
	"github.com/soniakeys/meeus/v3/nutation"
	"github.com/soniakeys/meeus/v3/solar"
	"github.com/soniakeys/unit"

	"github.com/star/cesched/internal/transform"
)

// Almanac computes Sun, Moon and fixed-direction positions from the Meeus
// solar and lunar theories. UT stands in for dynamical time, a difference of
// about a minute that moves the Moon by well under 0.01 deg.
type Almanac struct {
	obs transform.Observer
}

// NewAlmanac creates an Almanac for the given observer.
func NewAlmanac(obs transform.Observer) *Almanac {
	return &Almanac{obs: obs}
}

// Observer returns the site the almanac is bound to.
func (a *Almanac) Observer() transform.Observer {
	return a.obs
}

// Sun returns the apparent horizontal position of the Sun at t.
func (a *Almanac) Sun(t time.Time) transform.Horizontal {
	eq, _ := SunEquatorial(t)
	return a.apparent(eq, 0, t)
}

// Moon returns the apparent horizontal position and phase of the Moon at t.
func (a *Almanac) Moon(t time.Time) MoonState {
	moonEq, parallax := MoonEquatorial(t)
	sunEq, _ := SunEquatorial(t)

	return MoonState{
		Horizontal: a.apparent(moonEq, parallax, t),
		Phase:      illuminatedFraction(sunEq, moonEq),
	}
}

// Fixed returns the apparent horizontal position of a J2000 direction at t.
func (a *Almanac) Fixed(t time.Time, dir transform.Equatorial) transform.Horizontal {
	return transform.ApparentHorizontal(dir, a.obs, t)
}

// apparent converts a geocentric equatorial position of date to the observer's
// horizon, removing horizontal parallax and adding refraction.
func (a *Almanac) apparent(eq transform.Equatorial, parallax float64, t time.Time) transform.Horizontal {
	hz := transform.EquatorialToHorizontal(eq, a.obs, transform.LocalSiderealTime(t, a.obs.LonRad))
	if parallax != 0 {
		hz.El -= math.Asin(math.Sin(parallax) * math.Cos(hz.El))
	}
	hz.El += transform.Refraction(hz.El, a.obs.PressureMbar, a.obs.TemperatureC)
	return hz
}

// SunEquatorial returns the Sun's apparent geocentric right ascension and
// declination (equinox of date) and its distance in AU.
func SunEquatorial(t time.Time) (transform.Equatorial, float64) {
	ra, dec := solar.ApparentEquatorial(transform.JulianDate(t))
	dist := solar.Radius(transform.JulianCenturies(t))
	return transform.Equatorial{RA: transform.NormalizeAngle(ra.Rad()), Dec: dec.Rad()}, dist
}

// MoonEquatorial returns the Moon's geocentric right ascension and declination
// (mean equinox of date) and its horizontal parallax (radians).
func MoonEquatorial(t time.Time) (transform.Equatorial, float64) {
	jde := transform.JulianDate(t)
	lon, lat, distKm := moonposition.Position(jde)
	sinE, cosE := math.Sincos(nutation.MeanObliquity(jde).Rad())
	ra, dec := coord.EclToEq(lon, lat, sinE, cosE)
	parallax := moonposition.Parallax(distKm)
	return transform.Equatorial{RA: transform.NormalizeAngle(ra.Rad()), Dec: dec.Rad()}, parallax.Rad()
}

// illuminatedFraction returns (1 + cos i) / 2 where i is the Sun-Moon-Earth
// phase angle.
func illuminatedFraction(sun, moon transform.Equatorial) float64 {
	i := moonillum.PhaseAngleEq2(
		unit.RAFromRad(moon.RA), unit.Angle(moon.Dec),
		unit.RAFromRad(sun.RA), unit.Angle(sun.Dec))
	return (1 + math.Cos(i.Rad())) / 2
}
