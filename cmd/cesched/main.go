// Command cesched builds a constant-elevation-scan schedule for a ground
// site and writes it as a fixed-width text file.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/star/cesched/internal/config"
	"github.com/star/cesched/internal/ephem"
	"github.com/star/cesched/internal/logging"
	"github.com/star/cesched/internal/metrics"
	"github.com/star/cesched/internal/schedfile"
	"github.com/star/cesched/internal/schedule"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "cesched",
	Short: "Greedy constant-elevation scan scheduler",
	Long: `cesched walks a time window for one ground site and schedules constant-elevation
scans of the configured sky patches as they rise or set through the scan
elevation, honoring Sun and Moon avoidance and balancing observing time by
patch weight.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSchedule,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (default cesched.yaml in the working or home directory)")
	config.RegisterFlags(rootCmd.Flags())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	v, err := config.New(cmd.Flags(), cfgFile)
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(os.Stderr, v.GetString(config.KeyLogLevel), v.GetString(config.KeyLogFormat))
	if err != nil {
		return err
	}
	logger = logger.With("run_id", uuid.NewString())

	opts, err := config.Load(v, logger)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	provider := newProvider(opts, logger)
	sched, err := schedule.New(opts.Schedule, opts.Site, opts.Catalog, provider, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sum, err := writeSchedule(ctx, sched, opts)
	if err != nil {
		return err
	}
	logSummary(logger, sum)

	if c, ok := provider.(*ephem.Cache); ok {
		st := c.Stats()
		logger.Info("ephemeris cache", "entries", st.Entries, "hits", st.Hits, "misses", st.Misses, "evictions", st.Evictions)
	}

	if opts.MetricsFile != "" {
		if err := metrics.WriteTextfile(opts.MetricsFile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
		logger.Info("metrics written", "path", opts.MetricsFile)
	}
	return nil
}

func newProvider(opts config.Options, logger *slog.Logger) ephem.Provider {
	almanac := ephem.NewAlmanac(opts.Site.Observer())
	if !opts.EphemCache {
		return almanac
	}
	return ephem.NewCache(almanac, logger)
}

// writeSchedule runs the scheduler into opts.Out, "-" meaning stdout.
func writeSchedule(ctx context.Context, sched *schedule.Scheduler, opts config.Options) (schedule.Summary, error) {
	var out io.Writer = os.Stdout
	if opts.Out != "-" {
		f, err := os.Create(opts.Out)
		if err != nil {
			return schedule.Summary{}, fmt.Errorf("create schedule file: %w", err)
		}
		defer f.Close()
		out = f
	}

	w, err := schedfile.NewWriter(out, opts.Site)
	if err != nil {
		return schedule.Summary{}, err
	}
	sum, runErr := sched.Run(ctx, w)
	if err := w.Flush(); err != nil && runErr == nil {
		runErr = fmt.Errorf("flush schedule: %w", err)
	}
	if f, ok := out.(*os.File); ok && f != os.Stdout {
		if err := f.Sync(); err != nil && runErr == nil {
			runErr = fmt.Errorf("sync schedule: %w", err)
		}
	}
	return sum, runErr
}

func logSummary(logger *slog.Logger, sum schedule.Summary) {
	kinds := make([]schedule.RejectKind, 0, len(sum.Rejections))
	for k := range sum.Rejections {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	rejections := make([]any, 0, len(kinds))
	for _, k := range kinds {
		rejections = append(rejections, slog.Int(k.String(), sum.Rejections[k]))
	}

	names := make([]string, 0, len(sum.Hits))
	for name := range sum.Hits {
		names = append(names, name)
	}
	slices.Sort(names)
	hits := make([]any, 0, len(names))
	for _, name := range names {
		hits = append(hits, slog.Int(name, sum.Hits[name]))
	}

	logger.Info("schedule summary",
		"scans", sum.Scans,
		"records", sum.Records,
		"scheduled_hours", sum.Scheduled.Hours(),
		"coarse_steps", sum.CoarseSteps,
		slog.Group("hits", hits...),
		slog.Group("rejections", rejections...),
	)
}
