package schedule

import (
	"fmt"
	"math"
)

// Direction is the sense of a constant-elevation scan.
type Direction byte

const (
	Rising  Direction = 'R' // patch crossing upward, east of the meridian
	Setting Direction = 'S' // patch crossing downward, west of the meridian
)

func (d Direction) String() string {
	if d == 0 {
		return "-"
	}
	return string(d)
}

// onSide reports whether azimuth az lies on the side of the meridian scanned
// in direction d. Both sides include the meridian itself.
func (d Direction) onSide(az float64) bool {
	if d == Rising {
		return az <= math.Pi
	}
	return az >= math.Pi
}

// RejectKind classifies why a patch or scan was not scheduled. Kinds are
// diagnostic only; control flow never depends on them.
type RejectKind int

const (
	RejectSunTooHigh RejectKind = iota + 1
	RejectSunProximity
	RejectMoonProximity
	RejectBelowHorizon
	RejectNoRisingCorners
	RejectNoSettingCorners
	RejectElevationTooLow
	RejectElevationTooHigh
	RejectOutOfTime
	RejectSunIntrusion
)

var rejectNames = map[RejectKind]string{
	RejectSunTooHigh:       "sun_too_high",
	RejectSunProximity:     "sun_proximity",
	RejectMoonProximity:    "moon_proximity",
	RejectBelowHorizon:     "below_horizon",
	RejectNoRisingCorners:  "no_rising_corners",
	RejectNoSettingCorners: "no_setting_corners",
	RejectElevationTooLow:  "elevation_too_low",
	RejectElevationTooHigh: "elevation_too_high",
	RejectOutOfTime:        "out_of_time",
	RejectSunIntrusion:     "sun_intrusion",
}

func (k RejectKind) String() string {
	if s, ok := rejectNames[k]; ok {
		return s
	}
	return fmt.Sprintf("reject(%d)", int(k))
}

// Rejection records one visibility or scan rejection. Patch is empty for
// rejections that apply to the whole instant; Direction is zero for
// visibility rejections.
type Rejection struct {
	Patch     string
	Kind      RejectKind
	Direction Direction
	Detail    string
}

func (r Rejection) String() string {
	return fmt.Sprintf("%s %s [%s] %s", r.Patch, r.Kind, r.Direction, r.Detail)
}
