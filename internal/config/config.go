// Package config merges command-line flags, CESCHED_* environment variables
// and an optional YAML file into a scheduling run description.
//
// Precedence, highest first: explicitly set flags, environment, config file,
// flag defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/star/cesched/internal/patch"
	"github.com/star/cesched/internal/schedule"
	"github.com/star/cesched/internal/transform"
)

// EnvPrefix prefixes every environment override, e.g. CESCHED_EL_MIN.
const EnvPrefix = "CESCHED"

// TimeLayout is the primary start/stop format. RFC 3339 is also accepted.
const TimeLayout = "2006-01-02 15:04:05"

// Configuration keys. Flags use the same names.
const (
	KeySiteName     = "site_name"
	KeySiteLat      = "site_lat"
	KeySiteLon      = "site_lon"
	KeySiteAlt      = "site_alt"
	KeyPatch        = "patch"
	KeyPatchCoord   = "patch_coord"
	KeyPatchFile    = "patch_file"
	KeyElMin        = "el_min"
	KeyElMax        = "el_max"
	KeyFPRadius     = "fp_radius"
	KeySunAvoidance = "sun_avoidance_angle"
	KeySunAngleMin  = "sun_angle_min"
	KeyMoonAngleMin = "moon_angle_min"
	KeySunElMax     = "sun_el_max"
	KeyStart        = "start"
	KeyStop         = "stop"
	KeyGap          = "gap"
	KeyGapSmall     = "gap_small"
	KeyCESMaxTime   = "ces_max_time"
	KeyCoarseStep   = "coarse_step"
	KeyFineStep     = "fine_step"
	KeyMaxScanTime  = "max_scan_time"
	KeyOut          = "out"
	KeyEphemCache   = "ephem_cache"
	KeyLogLevel     = "log_level"
	KeyLogFormat    = "log_format"
	KeyMetricsFile  = "metrics_file"
)

// ErrNoPatches is returned when neither patch definitions nor a patch file
// are configured.
var ErrNoPatches = errors.New("no patches configured: use --patch or --patch_file")

// Options is a fully resolved run description.
type Options struct {
	Schedule   schedule.Config
	Site       schedule.Site
	Catalog    *patch.Catalog
	PatchCoord transform.CoordSystem

	Out         string
	EphemCache  bool
	LogLevel    string
	LogFormat   string
	MetricsFile string
}

// RegisterFlags adds the site, threshold and output flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := schedule.DefaultConfig()

	fs.String(KeySiteName, "LBL", "observing site name")
	fs.String(KeySiteLat, "37.876", "site latitude [deg or d:m:s]")
	fs.String(KeySiteLon, "-122.247", "site longitude, east positive [deg or d:m:s]")
	fs.Float64(KeySiteAlt, 100, "site altitude [m]")

	fs.StringArray(KeyPatch, nil, "patch definition: name,weight,lon,lat,width | name,weight,lon_left,lat_top,lon_right,lat_bottom | name,weight,lon1,lat1,... (repeatable)")
	fs.String(KeyPatchCoord, "C", "patch coordinate system: C (equatorial), E (ecliptic) or G (galactic)")
	fs.String(KeyPatchFile, "", "patch catalog file (YAML, or one definition per line)")

	fs.Float64(KeyElMin, transform.Deg(d.ElMin), "minimum scan elevation [deg]")
	fs.Float64(KeyElMax, transform.Deg(d.ElMax), "maximum scan elevation [deg]")
	fs.Float64(KeyFPRadius, transform.Deg(d.FPRadius), "focal plane radius [deg]")
	fs.Float64(KeySunAvoidance, transform.Deg(d.SunAvoidance), "Sun elevation above which Sun proximity is enforced [deg]")
	fs.Float64(KeySunAngleMin, transform.Deg(d.SunAngleMin), "minimum angular distance between a patch and the Sun [deg]")
	fs.Float64(KeyMoonAngleMin, transform.Deg(d.MoonAngleMin), "minimum angular distance between a patch and the Moon [deg]")
	fs.Float64(KeySunElMax, transform.Deg(d.SunElMax), "maximum allowed Sun elevation [deg]")

	fs.String(KeyStart, d.Start.Format(TimeLayout), "schedule start time, UTC")
	fs.String(KeyStop, d.Stop.Format(TimeLayout), "schedule stop time, UTC")
	// Durations stay strings so plain seconds ("100") reach ParseSeconds.
	fs.String(KeyGap, d.Gap.String(), "gap after each scan (seconds or duration)")
	fs.String(KeyGapSmall, d.GapSmall.String(), "gap between sub-scans (seconds or duration)")
	fs.String(KeyCESMaxTime, d.CESMaxTime.String(), "maximum sub-scan length (seconds or duration)")
	fs.String(KeyCoarseStep, d.CoarseStep.String(), "cursor advance when nothing is observable (seconds or duration)")
	fs.String(KeyFineStep, d.FineStep.String(), "crossing search resolution (seconds or duration)")
	fs.String(KeyMaxScanTime, d.MaxScanTime.String(), "longest time a single scan search may track a patch (seconds or duration)")

	fs.String(KeyOut, "schedule.txt", "output schedule file, - for stdout")
	fs.Bool(KeyEphemCache, true, "memoize Sun, Moon and patch positions")
	fs.String(KeyLogLevel, "info", "log level: debug, info, warn, error")
	fs.String(KeyLogFormat, "text", "log format: text or json")
	fs.String(KeyMetricsFile, "", "write Prometheus metrics to this file after the run")
}

// New returns a viper instance bound to fs and the environment. When
// configFile is empty, cesched.yaml is read from the working directory or
// the home directory if present.
func New(fs *pflag.FlagSet, configFile string) (*viper.Viper, error) {
	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigName("cesched")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return v, nil
}

// Load resolves v into Options, parsing the patch catalog and validating the
// thresholds and site.
func Load(v *viper.Viper, logger *slog.Logger) (Options, error) {
	var opts Options
	var err error

	if opts.Site, err = loadSite(v); err != nil {
		return Options{}, err
	}
	if err := opts.Site.Validate(); err != nil {
		return Options{}, err
	}
	if opts.Schedule, err = loadSchedule(v); err != nil {
		return Options{}, err
	}
	if err := opts.Schedule.Validate(); err != nil {
		return Options{}, err
	}

	if opts.PatchCoord, err = patch.ParseCoord(strings.ToUpper(strings.TrimSpace(v.GetString(KeyPatchCoord)))); err != nil {
		return Options{}, err
	}
	patches, err := loadPatches(v, opts.PatchCoord, logger)
	if err != nil {
		return Options{}, err
	}
	if opts.Catalog, err = patch.NewCatalog(patches); err != nil {
		return Options{}, err
	}

	opts.Out = v.GetString(KeyOut)
	opts.EphemCache = v.GetBool(KeyEphemCache)
	opts.LogLevel = v.GetString(KeyLogLevel)
	opts.LogFormat = v.GetString(KeyLogFormat)
	opts.MetricsFile = v.GetString(KeyMetricsFile)

	logger.Info("schedule config",
		"site", opts.Site.Name,
		"start", opts.Schedule.Start.Format(time.RFC3339),
		"stop", opts.Schedule.Stop.Format(time.RFC3339),
		"el_min", transform.Deg(opts.Schedule.ElMin),
		"el_max", transform.Deg(opts.Schedule.ElMax),
		"fp_radius", transform.Deg(opts.Schedule.FPRadius),
		"patches", opts.Catalog.Len(),
		"patch_coord", opts.PatchCoord.String(),
	)
	return opts, nil
}

func loadSite(v *viper.Viper) (schedule.Site, error) {
	lat, err := patch.ParseAngle(strings.TrimSpace(v.GetString(KeySiteLat)), false)
	if err != nil {
		return schedule.Site{}, fmt.Errorf("%w: %s: %v", schedule.ErrInvalidConfig, KeySiteLat, err)
	}
	lon, err := patch.ParseAngle(strings.TrimSpace(v.GetString(KeySiteLon)), false)
	if err != nil {
		return schedule.Site{}, fmt.Errorf("%w: %s: %v", schedule.ErrInvalidConfig, KeySiteLon, err)
	}
	return schedule.Site{
		Name: v.GetString(KeySiteName),
		Lat:  lat,
		Lon:  lon,
		Alt:  v.GetFloat64(KeySiteAlt),
	}, nil
}

func loadSchedule(v *viper.Viper) (schedule.Config, error) {
	cfg := schedule.Config{
		SunElMax:     transform.Rad(v.GetFloat64(KeySunElMax)),
		SunAvoidance: transform.Rad(v.GetFloat64(KeySunAvoidance)),
		SunAngleMin:  transform.Rad(v.GetFloat64(KeySunAngleMin)),
		MoonAngleMin: transform.Rad(v.GetFloat64(KeyMoonAngleMin)),
		ElMin:        transform.Rad(v.GetFloat64(KeyElMin)),
		ElMax:        transform.Rad(v.GetFloat64(KeyElMax)),
		FPRadius:     transform.Rad(v.GetFloat64(KeyFPRadius)),
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{KeyGap, &cfg.Gap},
		{KeyGapSmall, &cfg.GapSmall},
		{KeyCESMaxTime, &cfg.CESMaxTime},
		{KeyCoarseStep, &cfg.CoarseStep},
		{KeyFineStep, &cfg.FineStep},
		{KeyMaxScanTime, &cfg.MaxScanTime},
	}
	for _, d := range durations {
		val, err := ParseSeconds(v.GetString(d.key))
		if err != nil {
			return schedule.Config{}, fmt.Errorf("%w: %s: %v", schedule.ErrInvalidConfig, d.key, err)
		}
		*d.dst = val
	}

	var err error
	if cfg.Start, err = ParseTime(v.Get(KeyStart)); err != nil {
		return schedule.Config{}, fmt.Errorf("%w: %s: %v", schedule.ErrInvalidConfig, KeyStart, err)
	}
	if cfg.Stop, err = ParseTime(v.Get(KeyStop)); err != nil {
		return schedule.Config{}, fmt.Errorf("%w: %s: %v", schedule.ErrInvalidConfig, KeyStop, err)
	}
	return cfg, nil
}

// loadPatches collects inline definitions followed by the patch file entries.
func loadPatches(v *viper.Viper, c transform.CoordSystem, logger *slog.Logger) ([]patch.Patch, error) {
	var patches []patch.Patch
	for _, def := range v.GetStringSlice(KeyPatch) {
		p, err := patch.ParseDefinition(strings.TrimSpace(def), c)
		if err != nil {
			return nil, fmt.Errorf("patch %q: %w", def, err)
		}
		patches = append(patches, p)
	}

	if path := v.GetString(KeyPatchFile); path != "" {
		fromFile, err := loadPatchFile(path, c, logger)
		if err != nil {
			return nil, err
		}
		patches = append(patches, fromFile...)
	}

	if len(patches) == 0 {
		return nil, ErrNoPatches
	}
	return patches, nil
}

func loadPatchFile(path string, c transform.CoordSystem, logger *slog.Logger) ([]patch.Patch, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return patch.LoadFile(path, c, logger)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening patch file: %w", err)
	}
	defer f.Close()
	patches, err := patch.Parse(f, c, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return patches, nil
}

// ParseSeconds parses a plain number of seconds or a Go duration string.
func ParseSeconds(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(f * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

// ParseTime accepts a time.Time (as decoded from YAML) or a string in
// TimeLayout or RFC 3339. Results are UTC.
func ParseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range []string{TimeLayout, time.RFC3339} {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("invalid time %q, want %q or RFC 3339", s, TimeLayout)
	default:
		return time.Time{}, fmt.Errorf("invalid time value %v", v)
	}
}
