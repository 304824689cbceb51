package transform

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/coord"
	"github.com/soniakeys/meeus/v3/refraction"
	"github.com/soniakeys/unit"
)

// Standard atmosphere at sea level, used to derive site pressure from altitude.
const (
	seaLevelPressureMbar = 1013.25
	seaLevelTempK        = 288.15
	lapseRateKPerM       = 0.0065
	barometricExponent   = 5.2558761
)

// Observer holds a ground site's geodetic position and the atmospheric
// conditions used for refraction.
type Observer struct {
	LatRad, LonRad, AltM float64 // geodetic (radians, meters above ellipsoid)
	PressureMbar         float64
	TemperatureC         float64
}

// NewObserver creates an Observer from geodetic coordinates.
// Latitude and longitude are in degrees (east positive), altitude in meters.
// Pressure follows the standard atmosphere at that altitude and the
// temperature is 0 C.
func NewObserver(latDeg, lonDeg, altM float64) Observer {
	return Observer{
		LatRad:       Rad(latDeg),
		LonRad:       Rad(lonDeg),
		AltM:         altM,
		PressureMbar: StandardPressure(altM),
		TemperatureC: 0,
	}
}

// StandardPressure returns the ICAO standard-atmosphere pressure (mbar) at altM.
func StandardPressure(altM float64) float64 {
	return seaLevelPressureMbar * math.Pow(1-lapseRateKPerM*altM/seaLevelTempK, barometricExponent)
}

// EquatorialToHorizontal converts an equatorial direction (of date) to
// azimuth/elevation for the observer, given local sidereal time lst (radians).
// No refraction is applied.
func EquatorialToHorizontal(eq Equatorial, obs Observer, lst float64) Horizontal {
	// With zero longitude the sidereal time argument is the local one.
	st := unit.Time(lst / (2 * math.Pi) * 86400)
	A, h := coord.EqToHz(unit.RAFromRad(eq.RA), unit.Angle(eq.Dec), unit.Angle(obs.LatRad), 0, st)

	// Meeus measures azimuth westward from south.
	return Horizontal{Az: NormalizeAngle(A.Rad() + math.Pi), El: h.Rad()}
}

// ApparentHorizontal converts a J2000 direction to the apparent horizontal
// position at t: precession to date, hour angle from local sidereal time, and
// atmospheric refraction.
func ApparentHorizontal(eq Equatorial, obs Observer, t time.Time) Horizontal {
	ofDate := Precess(eq, JulianCenturies(t))
	hz := EquatorialToHorizontal(ofDate, obs, LocalSiderealTime(t, obs.LonRad))
	hz.El += Refraction(hz.El, obs.PressureMbar, obs.TemperatureC)
	return hz
}

// Refraction returns the refraction correction (radians) to add to a true
// elevation, using Saemundsson's formula scaled for pressure and temperature.
// Below one degree under the horizon no correction is applied.
func Refraction(el, pressureMbar, tempC float64) float64 {
	h := Deg(el)
	if h < -1 {
		return 0
	}
	// The constant term makes the correction vanish at the zenith.
	r := refraction.Saemundsson(unit.Angle(el)).Rad() + Rad(0.0019279/60)
	return r * (pressureMbar / 1010.0) * (283.0 / (273.0 + tempC))
}
