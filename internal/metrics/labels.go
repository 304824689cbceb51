package metrics

// knownKinds bounds the cardinality of the rejection label.
var knownKinds = map[string]bool{
	"sun_too_high":       true,
	"sun_proximity":      true,
	"moon_proximity":     true,
	"below_horizon":      true,
	"no_rising_corners":  true,
	"no_setting_corners": true,
	"elevation_too_low":  true,
	"elevation_too_high": true,
	"out_of_time":        true,
	"sun_intrusion":      true,
}

// normalizeKind maps a rejection reason to a bounded label value.
// Unknown reasons collapse to "other".
func normalizeKind(kind string) string {
	if knownKinds[kind] {
		return kind
	}
	return "other"
}
