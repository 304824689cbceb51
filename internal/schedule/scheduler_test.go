package schedule

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/star/cesched/internal/ephem"
	"github.com/star/cesched/internal/patch"
	"github.com/star/cesched/internal/transform"
)

var testSite = Site{Name: "TEST", Lat: 0, Lon: 0, Alt: 0}

// checkOrdering verifies that records never overlap and respect the gaps.
func checkOrdering(t *testing.T, recs []Record, cfg Config) {
	t.Helper()
	for i, r := range recs {
		if !r.Stop.After(r.Start) {
			t.Errorf("record %d: stop %s not after start %s", i, r.Stop, r.Start)
		}
		if r.El < cfg.ElMin || r.El > cfg.ElMax {
			t.Errorf("record %d: el %.3f outside limits", i, transform.Deg(r.El))
		}
		if i == 0 {
			continue
		}
		prev := recs[i-1]
		gap := cfg.Gap
		if r.Sub > 0 {
			gap = cfg.GapSmall
		}
		if r.Start.Before(prev.Stop.Add(gap)) {
			t.Errorf("record %d starts %s, less than %s after record %d stops %s",
				i, r.Start.Format(time.DateTime), gap, i-1, prev.Stop.Format(time.DateTime))
		}
	}
}

// TestZenithRoundTrip follows a small patch through the zenith of an
// equatorial site. It is too high to scan until it has set to below el_max,
// 40 minutes in, and is then scanned setting.
func TestZenithRoundTrip(t *testing.T) {
	cfg := testConfig()
	cat := mustCatalog(patch.Patch{
		Name:   "zenith",
		Weight: 1,
		Corners: []transform.Equatorial{
			{RA: deg(359), Dec: deg(-1)},
			{RA: deg(1), Dec: deg(-1)},
			{RA: deg(1), Dec: deg(1)},
			{RA: deg(359), Dec: deg(1)},
		},
	})

	s, err := New(cfg, testSite, cat, equatorSky(), testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var out Collector
	sum, err := s.Run(context.Background(), &out)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out.Records) == 0 {
		t.Fatal("no records emitted")
	}

	first := out.Records[0]
	if first.Direction != Setting {
		t.Errorf("direction = %s, want S", first.Direction)
	}
	if got := first.Start.Format(time.DateTime); got != "1970-01-01 00:40:00" {
		t.Errorf("start = %s, want 1970-01-01 00:40:00", got)
	}
	if got := first.Stop.Sub(first.Start); got != 8*time.Minute {
		t.Errorf("duration = %s, want 8m", got)
	}
	if el := transform.Deg(first.El); math.Abs(el-78.93) > 0.05 {
		t.Errorf("el = %.3f, want 78.93", el)
	}
	if first.Pass != 1 || first.Sub != 0 {
		t.Errorf("pass/sub = %d/%d, want 1/0", first.Pass, first.Sub)
	}
	if first.AzMin < math.Pi || first.AzMax < math.Pi || first.AzMin > first.AzMax {
		t.Errorf("az range = [%.2f, %.2f], want west of the meridian", transform.Deg(first.AzMin), transform.Deg(first.AzMax))
	}

	checkOrdering(t, out.Records, cfg)

	passes := 0
	for _, r := range out.Records {
		if r.Sub == 0 {
			passes++
			if r.Pass != passes {
				t.Errorf("pass = %d, want %d", r.Pass, passes)
			}
		}
	}
	if sum.Scans != passes || sum.Records != len(out.Records) || sum.Hits["zenith"] != passes {
		t.Errorf("summary = %+v, want %d scans and %d records", sum, passes, len(out.Records))
	}
	if sum.Rejections[RejectElevationTooHigh] == 0 {
		t.Error("expected elevation_too_high rejections before the first scan")
	}
}

// TestContention runs two identical, always visible patches of equal weight
// and checks that they alternate without overlapping.
func TestContention(t *testing.T) {
	cfg := testConfig()
	sky := conveyor(epoch, conveyorRate)
	cat := mustCatalog(
		box("A", 1, deg(80), deg(100), deg(1)),
		box("B", 1, deg(80), deg(100), deg(1)),
	)

	s, err := New(cfg, testSite, cat, sky, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var out Collector
	sum, err := s.Run(context.Background(), &out)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	checkOrdering(t, out.Records, cfg)

	counts := map[string]int{}
	scans := 0
	for _, r := range out.Records {
		if r.Sub != 0 {
			continue
		}
		scans++
		counts[r.Patch] = r.Pass
		if d := counts["A"] - counts["B"]; d < -1 || d > 1 {
			t.Fatalf("after %d scans hits A=%d B=%d", scans, counts["A"], counts["B"])
		}
	}
	if scans < 10 {
		t.Fatalf("scans = %d, want at least 10", scans)
	}
	if scans != 29 {
		t.Errorf("scans = %d, want 29", scans)
	}
	if out.Records[0].Patch != "A" || out.Records[2].Patch != "B" {
		t.Errorf("first scans = %s, %s; want A then B", out.Records[0].Patch, out.Records[2].Patch)
	}

	// 23 minute scans split into two sub-scans.
	if len(out.Records) != 2*scans {
		t.Errorf("records = %d, want %d", len(out.Records), 2*scans)
	}
	if !reflect.DeepEqual(sum.Hits, s.Hits()) || sum.Hits["A"]+sum.Hits["B"] != scans {
		t.Errorf("hits = %v, want %d total", sum.Hits, scans)
	}
}

// TestCachedProviderMatches checks that memoizing the provider does not
// change the schedule.
func TestCachedProviderMatches(t *testing.T) {
	cfg := testConfig()
	cfg.Stop = epoch.Add(4 * time.Hour)
	cat := mustCatalog(
		box("A", 2, deg(80), deg(100), deg(1)),
		box("B", 1, deg(60), deg(90), deg(2)),
	)

	run := func(p ephem.Provider) []Record {
		s, err := New(cfg, testSite, cat, p, testLogger())
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		var out Collector
		if _, err := s.Run(context.Background(), &out); err != nil {
			t.Fatalf("Run: %v", err)
		}
		return out.Records
	}

	sky := conveyor(epoch, conveyorRate)
	cache := ephem.NewCache(sky, testLogger())
	plain, cached := run(sky), run(cache)
	if len(plain) == 0 {
		t.Fatal("no records emitted")
	}
	if !reflect.DeepEqual(plain, cached) {
		t.Errorf("cached schedule differs: %d vs %d records", len(plain), len(cached))
	}

	stats := cache.Stats()
	if stats.Hits == 0 || stats.Evictions == 0 {
		t.Errorf("cache stats = %+v, want hits and evictions", stats)
	}
}

func TestSunAlwaysUp(t *testing.T) {
	cfg := testConfig()
	cfg.SunElMax = 0
	sky := staticSky(hzDeg(180, 10), hzDeg(0, -30))
	cat := mustCatalog(box("A", 1, deg(80), deg(100), deg(40)))

	s, err := New(cfg, testSite, cat, sky, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var out Collector
	sum, err := s.Run(context.Background(), &out)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out.Records) != 0 {
		t.Errorf("records = %d, want 0", len(out.Records))
	}
	if sum.CoarseSteps != 72 {
		t.Errorf("coarse steps = %d, want 72", sum.CoarseSteps)
	}
	if sum.Rejections[RejectSunTooHigh] != 72 {
		t.Errorf("sun_too_high = %d, want 72", sum.Rejections[RejectSunTooHigh])
	}
}

func TestRunCancelled(t *testing.T) {
	cfg := testConfig()
	cat := mustCatalog(box("A", 1, deg(80), deg(100), deg(1)))
	s, err := New(cfg, testSite, cat, conveyor(epoch, conveyorRate), testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out Collector
	if _, err := s.Run(ctx, &out); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if len(out.Records) != 0 {
		t.Errorf("records = %d, want 0", len(out.Records))
	}
}

type failingSink struct{ err error }

func (f failingSink) WriteRecord(Record) error { return f.err }

func TestRunSinkError(t *testing.T) {
	cfg := testConfig()
	cat := mustCatalog(box("A", 1, deg(80), deg(100), deg(1)))
	s, err := New(cfg, testSite, cat, conveyor(epoch, conveyorRate), testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	diskFull := errors.New("disk full")
	if _, err := s.Run(context.Background(), failingSink{diskFull}); !errors.Is(err, diskFull) {
		t.Errorf("err = %v, want disk full", err)
	}
}

func TestNewValidation(t *testing.T) {
	cat := mustCatalog(box("A", 1, deg(80), deg(100), deg(1)))
	sky := conveyor(epoch, conveyorRate)

	bad := testConfig()
	bad.ElMin = bad.ElMax
	if _, err := New(bad, testSite, cat, sky, testLogger()); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("el_min == el_max: err = %v, want ErrInvalidConfig", err)
	}

	if _, err := New(testConfig(), Site{Name: "two words"}, cat, sky, testLogger()); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("bad site: err = %v, want ErrInvalidConfig", err)
	}

	if _, err := New(testConfig(), testSite, nil, sky, testLogger()); !errors.Is(err, patch.ErrEmptyCatalog) {
		t.Errorf("nil catalog: err = %v, want ErrEmptyCatalog", err)
	}
}
