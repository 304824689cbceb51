package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	coarseStepsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cesched_coarse_steps_total",
			Help: "Total number of coarse time steps taken by the scheduler.",
		},
	)

	scansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cesched_scans_total",
			Help: "Total number of constant-elevation scans scheduled.",
		},
		[]string{"direction"},
	)

	subscansTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cesched_subscans_total",
			Help: "Total number of sub-scan records emitted.",
		},
	)

	rejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cesched_rejections_total",
			Help: "Total number of patch candidates rejected, by reason.",
		},
		[]string{"kind"},
	)

	searchDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cesched_search_duration_seconds",
			Help:    "Wall-clock duration of a single scan search.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
	)

	ephemCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cesched_ephem_cache_hits_total",
			Help: "Total number of ephemeris cache hits.",
		},
	)

	ephemCacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cesched_ephem_cache_misses_total",
			Help: "Total number of ephemeris cache misses.",
		},
	)

	ephemCacheEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cesched_ephem_cache_evictions_total",
			Help: "Total number of ephemeris cache entries evicted.",
		},
	)

	scheduledSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cesched_scheduled_seconds",
			Help: "Observing time covered by emitted scans in the current run.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		coarseStepsTotal,
		scansTotal,
		subscansTotal,
		rejectionsTotal,
		searchDurationSeconds,
		ephemCacheHitsTotal,
		ephemCacheMissesTotal,
		ephemCacheEvictionsTotal,
		scheduledSeconds,
	)
}

// IncCoarseSteps counts one advance of the scheduler cursor by the coarse step.
func IncCoarseSteps() { coarseStepsTotal.Inc() }

// IncScans counts one scheduled scan. direction is "R" or "S".
func IncScans(direction string) { scansTotal.WithLabelValues(direction).Inc() }

// AddSubscans counts emitted sub-scan records.
func AddSubscans(n int) { subscansTotal.Add(float64(n)) }

// IncRejections counts a rejected candidate under the given reason label.
func IncRejections(kind string) { rejectionsTotal.WithLabelValues(normalizeKind(kind)).Inc() }

// ObserveSearchDuration records how long one scan search took.
func ObserveSearchDuration(d time.Duration) { searchDurationSeconds.Observe(d.Seconds()) }

// IncEphemCacheHits counts an ephemeris cache hit.
func IncEphemCacheHits() { ephemCacheHitsTotal.Inc() }

// IncEphemCacheMisses counts an ephemeris cache miss.
func IncEphemCacheMisses() { ephemCacheMissesTotal.Inc() }

// AddEphemCacheEvictions counts evicted ephemeris cache entries.
func AddEphemCacheEvictions(n int) { ephemCacheEvictionsTotal.Add(float64(n)) }

// AddScheduledTime adds d to the scheduled-time gauge.
func AddScheduledTime(d time.Duration) { scheduledSeconds.Add(d.Seconds()) }

// ResetScheduledTime zeroes the scheduled-time gauge at the start of a run.
func ResetScheduledTime() { scheduledSeconds.Set(0) }

// WriteTextfile dumps the default registry to path in the Prometheus text
// exposition format, for pickup by a node_exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
