package schedule

import (
	"fmt"
	"math"
	"time"

	"github.com/star/cesched/internal/ephem"
	"github.com/star/cesched/internal/patch"
	"github.com/star/cesched/internal/transform"
)

// Sample is one crossing sample: the azimuth range over which the patch
// outline crosses the scan elevation at an instant.
type Sample struct {
	At    time.Time
	AzMin float64
	AzMax float64
}

// Scan is a successful scan search: the patch is observed at constant
// elevation El from Start until Stop, when every corner has crossed El.
type Scan struct {
	Patch     patch.Patch
	Direction Direction
	El        float64
	Start     time.Time
	Stop      time.Time
	Samples   []Sample
}

// Duration returns the length of the scan.
func (s Scan) Duration() time.Duration {
	return s.Stop.Sub(s.Start)
}

// Searcher finds constant-elevation scans for a single patch.
type Searcher struct {
	cfg      Config
	provider ephem.Provider
}

// NewSearcher creates a Searcher.
func NewSearcher(cfg Config, provider ephem.Provider) *Searcher {
	return &Searcher{cfg: cfg, provider: provider}
}

// Search tries to scan p in direction dir starting at t. The scan elevation
// is set by the corners on the direction's side of the meridian, then time is
// stepped by FineStep until every corner on that side has moved past the
// elevation. Along the way each adjacent corner pair that brackets a target
// elevation contributes an interpolated crossing azimuth to that step's
// sample. On failure the returned Rejection says why.
func (s *Searcher) Search(p patch.Patch, dir Direction, t time.Time) (Scan, Rejection, bool) {
	reject := func(kind RejectKind, format string, args ...any) (Scan, Rejection, bool) {
		return Scan{}, Rejection{Patch: p.Name, Kind: kind, Direction: dir, Detail: fmt.Sprintf(format, args...)}, false
	}

	n := len(p.Corners)
	azs := make([]float64, n)
	els := make([]float64, n)
	s.observe(p, t, azs, els)

	el, ok := s.scanElevation(dir, azs, els)
	if !ok {
		if dir == Rising {
			return reject(RejectNoRisingCorners, "no rising corners")
		}
		return reject(RejectNoSettingCorners, "no setting corners")
	}
	if el < s.cfg.ElMin {
		return reject(RejectElevationTooLow, "el < el_min (%.2f < %.2f)", transform.Deg(el), transform.Deg(s.cfg.ElMin))
	}
	if el > s.cfg.ElMax {
		return reject(RejectElevationTooHigh, "el > el_max (%.2f > %.2f)", transform.Deg(el), transform.Deg(s.cfg.ElMax))
	}

	fp := s.cfg.FPRadius
	// The margin elevation is listed twice; both slots hold el - fp.
	levels := [...]float64{el, el - fp, el - fp}

	toCross := make([]bool, n)
	for i := range toCross {
		toCross[i] = true
	}
	remaining := n

	var samples []Sample
	tstop := t
	for {
		tstop = tstop.Add(s.cfg.FineStep)
		if tstop.After(s.cfg.Stop) || tstop.Sub(t) > s.cfg.MaxScanTime {
			return reject(RejectOutOfTime, "ran out of time after %s", tstop.Sub(t))
		}
		if sun := s.provider.Sun(tstop); sun.El > s.cfg.SunElMax {
			return reject(RejectSunIntrusion, "sun too high %.2f at %s", transform.Deg(sun.El), tstop.UTC().Format(time.DateTime))
		}

		s.observe(p, tstop, azs, els)
		for i := range toCross {
			if toCross[i] && dir.onSide(azs[i]) && crossed(dir, els[i], el, fp) {
				toCross[i] = false
				remaining--
			}
		}

		if lo, hi, ok := crossings(dir, azs, els, levels[:]); ok {
			samples = append(samples, Sample{At: tstop, AzMin: lo, AzMax: hi})
		}

		if remaining == 0 {
			break
		}
	}

	if len(samples) == 0 {
		samples = append(samples, cornerSample(dir, tstop, azs))
	}

	return Scan{
		Patch:     p,
		Direction: dir,
		El:        el,
		Start:     t,
		Stop:      tstop,
		Samples:   samples,
	}, Rejection{}, true
}

// observe fills azs and els with the corner positions at t.
func (s *Searcher) observe(p patch.Patch, t time.Time, azs, els []float64) {
	for i, c := range p.Corners {
		hz := s.provider.Fixed(t, c)
		azs[i] = hz.Az
		els[i] = hz.El
	}
}

// scanElevation picks the elevation every corner on dir's side will cross:
// the highest such corner plus the margin for rising scans, the lowest minus
// the margin for setting scans.
func (s *Searcher) scanElevation(dir Direction, azs, els []float64) (float64, bool) {
	found := false
	var el float64
	for i := range azs {
		if !dir.onSide(azs[i]) {
			continue
		}
		switch {
		case !found:
			el = els[i]
		case dir == Rising:
			el = math.Max(el, els[i])
		default:
			el = math.Min(el, els[i])
		}
		found = true
	}
	if !found {
		return 0, false
	}
	if dir == Rising {
		return el + s.cfg.FPRadius, true
	}
	return el - s.cfg.FPRadius, true
}

// crossed reports whether a corner at elevation cornerEl has moved past the
// scan elevation el by more than the margin, in the direction of travel.
func crossed(dir Direction, cornerEl, el, fp float64) bool {
	if dir == Rising {
		return cornerEl > el+fp
	}
	return cornerEl < el-fp
}

// crossings interpolates, for every cyclically adjacent corner pair that
// brackets a target elevation, the azimuth where the segment between them
// crosses that elevation. Only crossings on dir's side are kept; the result is
// their azimuth range.
func crossings(dir Direction, azs, els, levels []float64) (lo, hi float64, ok bool) {
	n := len(azs)
	lo, hi = math.Inf(1), math.Inf(-1)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		for _, el0 := range levels {
			e1 := els[i] - el0
			e2 := els[j] - el0
			if e1*e2 >= 0 {
				continue
			}
			az1, az2 := azs[i], azs[j]
			// Take the short way around between the two corners.
			if az2-az1 > math.Pi {
				az2 -= 2 * math.Pi
			} else if az1-az2 > math.Pi {
				az2 += 2 * math.Pi
			}
			az := transform.NormalizeAngle(az1 + e1*(az2-az1)/(e1-e2))
			if !dir.onSide(az) {
				continue
			}
			lo = math.Min(lo, az)
			hi = math.Max(hi, az)
			ok = true
		}
	}
	return lo, hi, ok
}

// cornerSample builds a sample from the corner azimuths on dir's side, or
// from every corner if none is on that side. Used when a scan completes
// without any recorded crossing.
func cornerSample(dir Direction, at time.Time, azs []float64) Sample {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, az := range azs {
		if dir.onSide(az) {
			lo = math.Min(lo, az)
			hi = math.Max(hi, az)
		}
	}
	if math.IsInf(lo, 1) {
		for _, az := range azs {
			lo = math.Min(lo, az)
			hi = math.Max(hi, az)
		}
	}
	return Sample{At: at, AzMin: lo, AzMax: hi}
}
