package schedule

import (
	"fmt"
	"time"

	"github.com/star/cesched/internal/ephem"
	"github.com/star/cesched/internal/patch"
	"github.com/star/cesched/internal/transform"
)

// Visibility partitions the catalog at one instant. Visible keeps catalog
// order.
type Visibility struct {
	At         time.Time
	Visible    []patch.Patch
	Rejections []Rejection
}

// SunTooHigh reports whether the instant was skipped without evaluating
// patches because the Sun was above the elevation limit.
func (v Visibility) SunTooHigh() bool {
	return len(v.Rejections) == 1 && v.Rejections[0].Kind == RejectSunTooHigh && v.Rejections[0].Patch == ""
}

// Evaluator classifies patches as visible or not at a given instant.
// It is a pure function of its inputs.
type Evaluator struct {
	cfg      Config
	provider ephem.Provider
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(cfg Config, provider ephem.Provider) *Evaluator {
	return &Evaluator{cfg: cfg, provider: provider}
}

// Evaluate checks every patch at t. Corners are examined in order and the
// first corner too close to the Sun (while the Sun is above the avoidance
// elevation) or to the Moon (while the Moon is up) rejects the patch. A patch
// with no corner at or above ElMin is below the horizon.
func (e *Evaluator) Evaluate(t time.Time, patches []patch.Patch) Visibility {
	v := Visibility{At: t}

	sun := e.provider.Sun(t)
	if sun.El > e.cfg.SunElMax {
		v.Rejections = []Rejection{{
			Kind:   RejectSunTooHigh,
			Detail: fmt.Sprintf("sun el %.2f > %.2f", transform.Deg(sun.El), transform.Deg(e.cfg.SunElMax)),
		}}
		return v
	}
	moon := e.provider.Moon(t)

	for _, p := range patches {
		if rej, ok := e.check(t, p, sun, moon.Horizontal); !ok {
			v.Rejections = append(v.Rejections, rej)
			continue
		}
		v.Visible = append(v.Visible, p)
	}
	return v
}

func (e *Evaluator) check(t time.Time, p patch.Patch, sun, moon transform.Horizontal) (Rejection, bool) {
	inView := false
	for _, c := range p.Corners {
		hz := e.provider.Fixed(t, c)
		if hz.El >= e.cfg.ElMin {
			inView = true
		}
		if sun.El > e.cfg.SunAvoidance {
			if sep := transform.Separation(hz, sun); sep < e.cfg.SunAngleMin {
				return Rejection{
					Patch:  p.Name,
					Kind:   RejectSunProximity,
					Detail: fmt.Sprintf("too close to Sun %.2f", transform.Deg(sep)),
				}, false
			}
		}
		if moon.El > 0 {
			if sep := transform.Separation(hz, moon); sep < e.cfg.MoonAngleMin {
				return Rejection{
					Patch:  p.Name,
					Kind:   RejectMoonProximity,
					Detail: fmt.Sprintf("too close to Moon %.2f", transform.Deg(sep)),
				}, false
			}
		}
	}
	if !inView {
		return Rejection{Patch: p.Name, Kind: RejectBelowHorizon, Detail: "below the horizon"}, false
	}
	return Rejection{}, true
}
