// Package schedule builds a greedy, constraint-aware sequence of
// constant-elevation scans (CES) over a patch catalog for one ground site.
//
// A single virtual-time cursor advances from Config.Start to Config.Stop. At
// each cursor value the patches are filtered for visibility, ordered by
// weighted hit count, and searched for a rising or setting scan; the first
// scan found is split into bounded sub-scans and emitted, and the cursor
// jumps past it. When nothing can be scanned the cursor advances by one
// coarse step.
package schedule

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/star/cesched/internal/transform"
)

// ErrInvalidConfig is returned for configurations rejected before a run.
var ErrInvalidConfig = errors.New("invalid schedule configuration")

// Config holds the scheduling thresholds. Angles are radians.
type Config struct {
	SunElMax     float64 // no scanning while the Sun is above this elevation
	SunAvoidance float64 // Sun proximity is only enforced above this elevation
	SunAngleMin  float64 // minimum corner-to-Sun separation
	MoonAngleMin float64 // minimum corner-to-Moon separation while the Moon is up
	ElMin        float64
	ElMax        float64
	FPRadius     float64 // focal-plane margin added around every patch

	Gap        time.Duration // idle time after each scan
	GapSmall   time.Duration // idle time between sub-scans of one scan
	CESMaxTime time.Duration // longest sub-scan
	CoarseStep time.Duration // cursor advance when nothing can be scanned
	FineStep   time.Duration // crossing-search resolution

	// MaxScanTime bounds how long one scan search may track a patch.
	MaxScanTime time.Duration

	Start time.Time
	Stop  time.Time
}

// DefaultConfig returns the standard thresholds for a one-day run starting
// 2000-01-01 00:00 UTC.
func DefaultConfig() Config {
	start := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	return Config{
		SunElMax:     transform.Rad(90),
		SunAvoidance: transform.Rad(-15),
		SunAngleMin:  transform.Rad(30),
		MoonAngleMin: transform.Rad(20),
		ElMin:        transform.Rad(30),
		ElMax:        transform.Rad(80),
		FPRadius:     0,
		Gap:          100 * time.Second,
		GapSmall:     10 * time.Second,
		CESMaxTime:   900 * time.Second,
		CoarseStep:   600 * time.Second,
		FineStep:     60 * time.Second,
		MaxScanTime:  24 * time.Hour,
		Start:        start,
		Stop:         start.Add(24 * time.Hour),
	}
}

// Validate reports the first configuration error, wrapping ErrInvalidConfig.
func (c Config) Validate() error {
	angles := []struct {
		name string
		v    float64
	}{
		{"sun_el_max", c.SunElMax},
		{"sun_avoidance_angle", c.SunAvoidance},
		{"sun_angle_min", c.SunAngleMin},
		{"moon_angle_min", c.MoonAngleMin},
		{"el_min", c.ElMin},
		{"el_max", c.ElMax},
		{"fp_radius", c.FPRadius},
	}
	for _, a := range angles {
		if math.IsNaN(a.v) || math.IsInf(a.v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidConfig, a.name)
		}
	}

	switch {
	case c.ElMin >= c.ElMax:
		return fmt.Errorf("%w: el_min %.2f >= el_max %.2f", ErrInvalidConfig, transform.Deg(c.ElMin), transform.Deg(c.ElMax))
	case c.ElMin < -math.Pi/2 || c.ElMax > math.Pi/2:
		return fmt.Errorf("%w: elevation limits outside [-90, 90]", ErrInvalidConfig)
	case c.FPRadius < 0 || c.FPRadius >= math.Pi/2:
		return fmt.Errorf("%w: fp_radius %.2f outside [0, 90)", ErrInvalidConfig, transform.Deg(c.FPRadius))
	case c.SunAngleMin < 0 || c.MoonAngleMin < 0:
		return fmt.Errorf("%w: avoidance angles must be non-negative", ErrInvalidConfig)
	case c.Gap < 0 || c.GapSmall < 0:
		return fmt.Errorf("%w: gaps must be non-negative", ErrInvalidConfig)
	case c.CESMaxTime <= 0:
		return fmt.Errorf("%w: ces_max_time must be positive", ErrInvalidConfig)
	case c.CoarseStep <= 0 || c.FineStep <= 0:
		return fmt.Errorf("%w: time steps must be positive", ErrInvalidConfig)
	case c.MaxScanTime <= 0:
		return fmt.Errorf("%w: max_scan_time must be positive", ErrInvalidConfig)
	case !c.Stop.After(c.Start):
		return fmt.Errorf("%w: stop %s is not after start %s", ErrInvalidConfig, c.Stop.Format(time.DateTime), c.Start.Format(time.DateTime))
	}
	return nil
}

// Site is the ground observatory. Coordinates are degrees (east positive),
// altitude is meters.
type Site struct {
	Name string
	Lat  float64
	Lon  float64
	Alt  float64
}

// Validate checks the site name and coordinate ranges.
func (s Site) Validate() error {
	if s.Name == "" || strings.IndexFunc(s.Name, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: site name %q must be non-empty without whitespace", ErrInvalidConfig, s.Name)
	}
	if s.Lat < -90 || s.Lat > 90 {
		return fmt.Errorf("%w: site latitude %v outside [-90, 90]", ErrInvalidConfig, s.Lat)
	}
	if s.Lon < -180 || s.Lon > 360 {
		return fmt.Errorf("%w: site longitude %v outside [-180, 360]", ErrInvalidConfig, s.Lon)
	}
	return nil
}

// Observer returns the site as a transform observer with a standard atmosphere.
func (s Site) Observer() transform.Observer {
	return transform.NewObserver(s.Lat, s.Lon, s.Alt)
}
