package schedule

import (
	"math"
	"time"

	"github.com/star/cesched/internal/transform"
)

// SubScan is one bounded slice of a scan with its own azimuth range.
type SubScan struct {
	Index int
	Start time.Time
	Stop  time.Time
	AzMin float64
	AzMax float64
}

type window struct {
	start, stop time.Time
}

// Split slices scan into sub-scans no longer than maxTime, separated by
// gapSmall, and bounds each one in azimuth from the crossing samples that
// fall inside it, widened by the focal-plane margin fp.
func Split(scan Scan, maxTime, gapSmall time.Duration, fp float64) []SubScan {
	windows := insertGaps(partition(scan.Start, scan.Stop, maxTime), gapSmall, scan.Stop)

	subs := make([]SubScan, len(windows))
	for i, w := range windows {
		lo, hi := azBounds(scan.Samples, w, scan.El, fp)
		subs[i] = SubScan{Index: i, Start: w.start, Stop: w.stop, AzMin: lo, AzMax: hi}
	}
	return subs
}

// partition divides [start, stop] into ceil(d/maxTime) contiguous windows of
// equal length, or a single window when it already fits.
func partition(start, stop time.Time, maxTime time.Duration) []window {
	total := stop.Sub(start)
	if total <= maxTime {
		return []window{{start, stop}}
	}

	nsub := int((total + maxTime - 1) / maxTime)
	length := total / time.Duration(nsub)

	out := make([]window, nsub)
	for k := range out {
		out[k] = window{
			start: start.Add(time.Duration(k) * length),
			stop:  start.Add(time.Duration(k+1) * length),
		}
	}
	out[nsub-1].stop = stop
	return out
}

// insertGaps delays the k-th window by k*gap, clipping at stop and dropping
// windows pushed entirely past it.
func insertGaps(windows []window, gap time.Duration, stop time.Time) []window {
	out := make([]window, 0, len(windows))
	for k, w := range windows {
		shift := time.Duration(k) * gap
		s := w.start.Add(shift)
		if !s.Before(stop) {
			break
		}
		e := w.stop.Add(shift)
		if e.After(stop) {
			e = stop
		}
		out = append(out, window{s, e})
	}
	return out
}

// azBounds returns the azimuth range of the samples inside w, falling back to
// the single nearest sample when none lies inside. A raw range wider than
// 180 deg means the samples straddle azimuth zero; the scan then runs from
// the smallest upper edge through north to the largest lower edge. Both
// bounds are widened by fp/cos(el) and wrapped into [0, 2pi).
func azBounds(samples []Sample, w window, el, fp float64) (float64, float64) {
	sel := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if !s.At.Before(w.start) && !s.At.After(w.stop) {
			sel = append(sel, s)
		}
	}
	if len(sel) == 0 && len(samples) > 0 {
		sel = append(sel, nearest(samples, w))
	}
	if len(sel) == 0 {
		return 0, 0
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range sel {
		lo = math.Min(lo, s.AzMin)
		hi = math.Max(hi, s.AzMax)
	}
	if hi-lo > math.Pi {
		lo, hi = math.Inf(1), math.Inf(-1)
		for _, s := range sel {
			lo = math.Min(lo, s.AzMax)
			hi = math.Max(hi, s.AzMin)
		}
	}

	margin := fp / math.Cos(el)
	return transform.NormalizeAngle(lo - margin), transform.NormalizeAngle(hi + margin)
}

// nearest returns the sample closest in time to w.
func nearest(samples []Sample, w window) Sample {
	best := samples[0]
	bestDist := time.Duration(math.MaxInt64)
	for _, s := range samples {
		var d time.Duration
		switch {
		case s.At.Before(w.start):
			d = w.start.Sub(s.At)
		case s.At.After(w.stop):
			d = s.At.Sub(w.stop)
		}
		if d < bestDist {
			best, bestDist = s, d
		}
	}
	return best
}
