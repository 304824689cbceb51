package transform

import (
	"math"
	"time"
)

// Time scales. UTC stands in for UT1 and TT; the difference is far below the
// resolution the scheduler works at.
const (
	j2000JD   = 2451545.0 // Julian Date of J2000.0
	j2000MJD  = 51544.5
	j2000Unix = 946728000 // 2000-01-01 12:00:00 UTC
)

// DaysSinceJ2000 returns the days elapsed since 2000-01-01 12:00 UTC.
// Integer seconds are subtracted before conversion to keep sub-millisecond
// precision.
func DaysSinceJ2000(t time.Time) float64 {
	return float64(t.Unix()-j2000Unix)/86400 + float64(t.Nanosecond())/86400e9
}

// JulianDate returns the Julian Date of t.
func JulianDate(t time.Time) float64 {
	return j2000JD + DaysSinceJ2000(t)
}

// ModifiedJulianDate returns the MJD (days since 1858-11-17 00:00 UTC) of t.
func ModifiedJulianDate(t time.Time) float64 {
	return j2000MJD + DaysSinceJ2000(t)
}

// JulianCenturies returns Julian centuries elapsed since J2000.0.
func JulianCenturies(t time.Time) float64 {
	return DaysSinceJ2000(t) / 36525
}

// GMST returns Greenwich mean sidereal time in radians, IAU 1982 model in its
// degree form (Meeus 12.4):
//
//	θ = 280.46061837° + 360.98564736629°·d + 0.000387933°·T² − T³/38710000
//
// with d days and T Julian centuries since J2000.0.
func GMST(t time.Time) float64 {
	d := DaysSinceJ2000(t)
	T := d / 36525
	theta := 280.46061837 + 360.98564736629*d + T*T*(0.000387933-T/38710000)
	return NormalizeAngle(Rad(math.Mod(theta, 360)))
}

// LocalSiderealTime returns the local mean sidereal time in radians for an
// observer at longitude lonRad (east positive).
func LocalSiderealTime(t time.Time, lonRad float64) float64 {
	return NormalizeAngle(GMST(t) + lonRad)
}
