package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/star/cesched/internal/ephem"
	"github.com/star/cesched/internal/metrics"
	"github.com/star/cesched/internal/patch"
	"github.com/star/cesched/internal/transform"
)

// state is a step of the scheduling loop.
type state int

const (
	stateScanning   state = iota // check for cancellation and the end of the run
	stateEvaluating              // classify patches at the cursor
	stateSearching               // try candidates in priority order
	stateEmitting                // split and write the winning scan
	stateAdvancing               // nothing scanned; move one coarse step
	stateDone
)

func (s state) String() string {
	switch s {
	case stateScanning:
		return "scanning"
	case stateEvaluating:
		return "evaluating"
	case stateSearching:
		return "searching"
	case stateEmitting:
		return "emitting"
	case stateAdvancing:
		return "advancing"
	case stateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// evictor is implemented by providers that can drop entries older than the
// cursor, such as ephem.Cache.
type evictor interface {
	Evict(before time.Time) int
}

// Summary describes a completed run.
type Summary struct {
	CoarseSteps int
	Scans       int
	Records     int
	Scheduled   time.Duration // total time covered by records
	Hits        map[string]int
	Rejections  map[RejectKind]int
}

// Scheduler produces a schedule for one site, catalog, and configuration.
// A Scheduler runs once; its hit counts live for the duration of that run.
type Scheduler struct {
	cfg      Config
	site     Site
	patches  []patch.Patch
	provider ephem.Provider
	logger   *slog.Logger

	evaluator *Evaluator
	searcher  *Searcher
	hits      *HitCount
}

// New validates the configuration and creates a Scheduler. The provider must
// be bound to site.
func New(cfg Config, site Site, catalog *patch.Catalog, provider ephem.Provider, logger *slog.Logger) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := site.Validate(); err != nil {
		return nil, err
	}
	if catalog == nil || catalog.Len() == 0 {
		return nil, patch.ErrEmptyCatalog
	}

	return &Scheduler{
		cfg:       cfg,
		site:      site,
		patches:   catalog.Patches(),
		provider:  provider,
		logger:    logger,
		evaluator: NewEvaluator(cfg, provider),
		searcher:  NewSearcher(cfg, provider),
		hits:      NewHitCount(catalog.Names()),
	}, nil
}

// Hits returns a copy of the current hit counts.
func (s *Scheduler) Hits() map[string]int {
	return s.hits.Snapshot()
}

// Run drives the scheduling loop from cfg.Start to cfg.Stop, writing records
// to sink in time order. It stops early only on a sink error or context
// cancellation, which is checked once per cursor position. Running out of
// schedulable time is not an error.
func (s *Scheduler) Run(ctx context.Context, sink Sink) (Summary, error) {
	sum := Summary{Rejections: make(map[RejectKind]int)}
	metrics.ResetScheduledTime()

	cursor := s.cfg.Start
	st := stateScanning
	var (
		candidates []patch.Patch
		scan       Scan
	)

	s.logger.Info("schedule run starting",
		"site", s.site.Name,
		"start", s.cfg.Start.UTC().Format(time.DateTime),
		"stop", s.cfg.Stop.UTC().Format(time.DateTime),
		"patches", len(s.patches),
	)

	for st != stateDone {
		switch st {
		case stateScanning:
			if err := ctx.Err(); err != nil {
				sum.Hits = s.hits.Snapshot()
				return sum, fmt.Errorf("schedule run cancelled at %s: %w", cursor.UTC().Format(time.DateTime), err)
			}
			if !cursor.Before(s.cfg.Stop) {
				st = stateDone
				continue
			}
			if ev, ok := s.provider.(evictor); ok {
				ev.Evict(cursor)
			}
			st = stateEvaluating

		case stateEvaluating:
			vis := s.evaluator.Evaluate(cursor, s.patches)
			s.reject(&sum, cursor, vis.Rejections)
			if len(vis.Visible) == 0 {
				st = stateAdvancing
				continue
			}
			candidates = Prioritize(vis.Visible, s.hits)
			st = stateSearching

		case stateSearching:
			var ok bool
			scan, ok = s.search(&sum, cursor, candidates)
			if ok {
				st = stateEmitting
			} else {
				st = stateAdvancing
			}

		case stateEmitting:
			if err := s.emit(&sum, scan, sink); err != nil {
				sum.Hits = s.hits.Snapshot()
				return sum, err
			}
			cursor = scan.Stop.Add(s.cfg.Gap)
			st = stateScanning

		case stateAdvancing:
			cursor = cursor.Add(s.cfg.CoarseStep)
			sum.CoarseSteps++
			metrics.IncCoarseSteps()
			st = stateScanning
		}
	}

	sum.Hits = s.hits.Snapshot()
	s.logger.Info("schedule run complete",
		"scans", sum.Scans,
		"records", sum.Records,
		"coarse_steps", sum.CoarseSteps,
		"scheduled", sum.Scheduled.String(),
	)
	return sum, nil
}

// search tries each candidate rising then setting and returns the first
// successful scan.
func (s *Scheduler) search(sum *Summary, t time.Time, candidates []patch.Patch) (Scan, bool) {
	start := time.Now()
	defer func() { metrics.ObserveSearchDuration(time.Since(start)) }()

	var rejections []Rejection
	for _, p := range candidates {
		for _, dir := range [...]Direction{Rising, Setting} {
			scan, rej, ok := s.searcher.Search(p, dir, t)
			if ok {
				s.reject(sum, t, rejections)
				return scan, true
			}
			rejections = append(rejections, rej)
		}
	}
	s.reject(sum, t, rejections)
	s.logger.Debug("no patch could be scanned", "at", t.UTC().Format(time.DateTime), "candidates", len(candidates))
	return Scan{}, false
}

// emit credits the scan to its patch and writes one record per sub-scan.
func (s *Scheduler) emit(sum *Summary, scan Scan, sink Sink) error {
	subs := Split(scan, s.cfg.CESMaxTime, s.cfg.GapSmall, s.cfg.FPRadius)
	pass := s.hits.Increment(scan.Patch.Name)

	for _, rec := range records(s.provider, scan, subs, pass) {
		if err := sink.WriteRecord(rec); err != nil {
			return fmt.Errorf("writing schedule record for %s: %w", rec.Patch, err)
		}
		sum.Records++
		d := rec.Stop.Sub(rec.Start)
		sum.Scheduled += d
		metrics.AddScheduledTime(d)
	}

	sum.Scans++
	metrics.IncScans(scan.Direction.String())
	metrics.AddSubscans(len(subs))

	s.logger.Info("scan scheduled",
		"patch", scan.Patch.Name,
		"direction", scan.Direction.String(),
		"el_deg", transform.Deg(scan.El),
		"start", scan.Start.UTC().Format(time.DateTime),
		"stop", scan.Stop.UTC().Format(time.DateTime),
		"subscans", len(subs),
		"pass", pass,
	)
	return nil
}

// reject tallies diagnostic rejections.
func (s *Scheduler) reject(sum *Summary, t time.Time, rejections []Rejection) {
	for _, r := range rejections {
		sum.Rejections[r.Kind]++
		metrics.IncRejections(r.Kind.String())
		if s.logger.Enabled(context.Background(), slog.LevelDebug) {
			s.logger.Debug("rejected",
				"at", t.UTC().Format(time.DateTime),
				"patch", r.Patch,
				"kind", r.Kind.String(),
				"direction", r.Direction.String(),
				"detail", r.Detail,
			)
		}
	}
}
