// Package ephem provides the celestial position oracle used by the scheduler:
// apparent azimuth/elevation of the Sun, the Moon (with its illuminated
// fraction), and of any fixed J2000 sky direction, for one ground site.
package ephem

import (
	"time"

	"github.com/star/cesched/internal/transform"
)

// MoonState is the apparent position of the Moon plus its illuminated fraction.
type MoonState struct {
	transform.Horizontal
	Phase float64 // illuminated fraction in [0, 1]
}

// Provider defines the interface for celestial position sources bound to a site.
// Implementations must be pure functions of their arguments.
type Provider interface {
	// Sun returns the apparent horizontal position of the Sun at t.
	Sun(t time.Time) transform.Horizontal

	// Moon returns the apparent horizontal position and phase of the Moon at t.
	Moon(t time.Time) MoonState

	// Fixed returns the apparent horizontal position of a J2000 direction at t.
	Fixed(t time.Time, dir transform.Equatorial) transform.Horizontal
}
