// Command diag prints the Sun, the Moon and the visibility and scan
// prospects of every configured patch at one instant.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/star/cesched/internal/config"
	"github.com/star/cesched/internal/ephem"
	"github.com/star/cesched/internal/logging"
	"github.com/star/cesched/internal/schedule"
	"github.com/star/cesched/internal/transform"
)

var (
	cfgFile string
	at      string
)

var rootCmd = &cobra.Command{
	Use:           "diag",
	Short:         "Show patch visibility and scan search results at one instant",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDiag,
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "YAML config file (default cesched.yaml in the working or home directory)")
	rootCmd.Flags().StringVar(&at, "at", "", "instant to inspect, UTC (default: start)")
	config.RegisterFlags(rootCmd.Flags())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}

func runDiag(cmd *cobra.Command, _ []string) error {
	v, err := config.New(cmd.Flags(), cfgFile)
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(os.Stderr, v.GetString(config.KeyLogLevel), v.GetString(config.KeyLogFormat))
	if err != nil {
		return err
	}
	opts, err := config.Load(v, logger)
	if err != nil {
		return err
	}

	t := opts.Schedule.Start
	if at != "" {
		if t, err = config.ParseTime(at); err != nil {
			return err
		}
	}

	provider := ephem.NewAlmanac(opts.Site.Observer())
	obs := provider.Observer()
	sun, moon := provider.Sun(t), provider.Moon(t)

	fmt.Printf("Site %s lat=%.4f lon=%.4f alt=%.0fm\n", opts.Site.Name, opts.Site.Lat, opts.Site.Lon, opts.Site.Alt)
	fmt.Printf("Atmosphere %.1f mbar %.1f C\n", obs.PressureMbar, obs.TemperatureC)
	fmt.Printf("Instant %s (MJD %.6f, LST %.3fh)\n", t.Format(config.TimeLayout), transform.ModifiedJulianDate(t),
		transform.Deg(transform.LocalSiderealTime(t, obs.LonRad))/15)
	fmt.Printf("Sun  az=%7.2f el=%7.2f\n", transform.Deg(sun.Az), transform.Deg(sun.El))
	fmt.Printf("Moon az=%7.2f el=%7.2f phase=%.2f\n", transform.Deg(moon.Az), transform.Deg(moon.El), moon.Phase)

	vis := schedule.NewEvaluator(opts.Schedule, provider).Evaluate(t, opts.Catalog.Patches())
	if vis.SunTooHigh() {
		fmt.Printf("\nSun above %.1f deg, nothing is observable\n", transform.Deg(opts.Schedule.SunElMax))
		return nil
	}

	fmt.Printf("\nVisibility:\n")
	for _, r := range vis.Rejections {
		fmt.Printf("  %-15s %-16s %s\n", r.Patch, r.Kind, r.Detail)
	}
	for _, p := range vis.Visible {
		fmt.Printf("  %-15s visible\n", p.Name)
	}

	fmt.Printf("\nScan search:\n")
	searcher := schedule.NewSearcher(opts.Schedule, provider)
	for _, p := range vis.Visible {
		for _, dir := range []schedule.Direction{schedule.Rising, schedule.Setting} {
			scan, rej, ok := searcher.Search(p, dir, t)
			if !ok {
				fmt.Printf("  %-15s %s  %-18s %s\n", p.Name, dir, rej.Kind, rej.Detail)
				continue
			}
			fmt.Printf("  %-15s %s  el=%.2f %s - %s (%s, %d sub-scans)\n",
				p.Name, dir, transform.Deg(scan.El),
				scan.Start.Format(time.TimeOnly), scan.Stop.Format(time.TimeOnly), scan.Duration(),
				len(schedule.Split(scan, opts.Schedule.CESMaxTime, opts.Schedule.GapSmall, opts.Schedule.FPRadius)))
		}
	}
	return nil
}
