package schedule

import (
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/star/cesched/internal/ephem"
	"github.com/star/cesched/internal/patch"
	"github.com/star/cesched/internal/transform"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

var epoch = time.Unix(0, 0).UTC()

var deg = transform.Rad

// fakeSky is a deterministic Provider assembled from closures.
type fakeSky struct {
	sun   func(t time.Time) transform.Horizontal
	moon  func(t time.Time) ephem.MoonState
	fixed func(t time.Time, dir transform.Equatorial) transform.Horizontal
}

func (f fakeSky) Sun(t time.Time) transform.Horizontal { return f.sun(t) }

func (f fakeSky) Moon(t time.Time) ephem.MoonState { return f.moon(t) }

func (f fakeSky) Fixed(t time.Time, dir transform.Equatorial) transform.Horizontal {
	return f.fixed(t, dir)
}

func darkSun(time.Time) transform.Horizontal {
	return transform.Horizontal{Az: 0, El: deg(-30)}
}

func darkMoon(time.Time) ephem.MoonState {
	return ephem.MoonState{Horizontal: transform.Horizontal{Az: math.Pi, El: deg(-30)}, Phase: 0.5}
}

// staticSky treats a direction's RA/Dec as its azimuth/elevation at all times.
func staticSky(sun transform.Horizontal, moon transform.Horizontal) fakeSky {
	return fakeSky{
		sun:  func(time.Time) transform.Horizontal { return sun },
		moon: func(time.Time) ephem.MoonState { return ephem.MoonState{Horizontal: moon, Phase: 0.3} },
		fixed: func(_ time.Time, dir transform.Equatorial) transform.Horizontal {
			return transform.Horizontal{Az: dir.RA, El: dir.Dec}
		},
	}
}

// conveyor moves every direction straight up at rate (radians per second)
// from its starting elevation, 35 deg plus its Dec, at a fixed azimuth equal
// to its RA.
func conveyor(start time.Time, rate float64) fakeSky {
	return fakeSky{
		sun:  darkSun,
		moon: darkMoon,
		fixed: func(t time.Time, dir transform.Equatorial) transform.Horizontal {
			return transform.Horizontal{
				Az: dir.RA,
				El: deg(35) + dir.Dec + rate*t.Sub(start).Seconds(),
			}
		},
	}
}

// siderealRate is the apparent sky rotation rate in radians per second.
const siderealRate = 2 * math.Pi / 86164.0905

// equatorSky is a site on the equator at longitude 0 whose local sidereal
// time is zero at epoch. There is no precession or refraction.
func equatorSky() fakeSky {
	obs := transform.Observer{}
	return fakeSky{
		sun:  darkSun,
		moon: darkMoon,
		fixed: func(t time.Time, dir transform.Equatorial) transform.Horizontal {
			lst := transform.NormalizeAngle(siderealRate * t.Sub(epoch).Seconds())
			return transform.EquatorialToHorizontal(dir, obs, lst)
		},
	}
}

// box is a patch whose corners, read as (az, el) by staticSky or conveyor,
// span az [az0, az1] and el offsets [0, dEl].
func box(name string, weight, az0, az1, dEl float64) patch.Patch {
	return patch.Patch{
		Name:   name,
		Weight: weight,
		Corners: []transform.Equatorial{
			{RA: az0, Dec: 0},
			{RA: az1, Dec: 0},
			{RA: az1, Dec: dEl},
			{RA: az0, Dec: dEl},
		},
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Start = epoch
	cfg.Stop = epoch.Add(12 * time.Hour)
	return cfg
}

func mustCatalog(patches ...patch.Patch) *patch.Catalog {
	c, err := patch.NewCatalog(patches)
	if err != nil {
		panic(err)
	}
	return c
}
