// Package schedfile reads and writes the plain-text CES schedule consumed by
// downstream simulation tools: a site block followed by one fixed-width row
// per (sub-)scan. Angles on disk are degrees.
package schedfile

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/star/cesched/internal/schedule"
	"github.com/star/cesched/internal/transform"
)

// TimeLayout is the UTC timestamp format of the start and stop columns.
const TimeLayout = "2006-01-02 15:04:05"

const (
	siteHeaderFormat = "#%-15s %-15s %-15s %-15s\n"
	siteRowFormat    = " %-15s %-15s %-15s %15.6f\n"

	columnHeaderFormat = "#%-20s %-20s %-14s %-14s %-15s %-8s %-8s %-8s %-5s " +
		"%-8s %-8s %-8s %-8s %-8s %-8s %-8s %-8s %-5s %-5s %-3s\n"

	rowFormat = " %-20s %-20s %14.6f %14.6f %-15s %8.2f %8.2f %8.2f %-5s " +
		"%8.2f %8.2f %8.2f %8.2f %8.2f %8.2f %8.2f %8.2f %5.2f %5d %3d\n"
)

var columns = []any{
	"Start time UTC", "Stop time UTC", "Start MJD", "Stop MJD",
	"Patch name", "Az min", "Az max", "El", "R/S",
	"Sun el1", "Sun az1", "Sun el2", "Sun az2",
	"Moon el1", "Moon az1", "Moon el2", "Moon az2",
	"Phase", "Pass", "Sub",
}

// Writer formats schedule records. It implements schedule.Sink.
type Writer struct {
	w *bufio.Writer
}

// NewWriter writes the site and column headers to w and returns a Writer for
// the rows. Call Flush when done.
func NewWriter(w io.Writer, site schedule.Site) (*Writer, error) {
	sw := &Writer{w: bufio.NewWriter(w)}

	_, err := fmt.Fprintf(sw.w, siteHeaderFormat, "Site", "Latitude [deg]", "Longitude [deg]", "Altitude [m]")
	if err == nil {
		_, err = fmt.Fprintf(sw.w, siteRowFormat, site.Name, formatCoord(site.Lat), formatCoord(site.Lon), site.Alt)
	}
	if err == nil {
		_, err = fmt.Fprintf(sw.w, columnHeaderFormat, columns...)
	}
	if err != nil {
		return nil, fmt.Errorf("writing schedule header: %w", err)
	}
	return sw, nil
}

// WriteRecord writes one row.
func (w *Writer) WriteRecord(r schedule.Record) error {
	_, err := fmt.Fprintf(w.w, rowFormat,
		r.Start.UTC().Format(TimeLayout),
		r.Stop.UTC().Format(TimeLayout),
		transform.ModifiedJulianDate(r.Start),
		transform.ModifiedJulianDate(r.Stop),
		r.Patch,
		transform.Deg(r.AzMin),
		transform.Deg(r.AzMax),
		transform.Deg(r.El),
		r.Direction.String(),
		transform.Deg(r.SunStart.El),
		transform.Deg(r.SunStart.Az),
		transform.Deg(r.SunStop.El),
		transform.Deg(r.SunStop.Az),
		transform.Deg(r.MoonStart.El),
		transform.Deg(r.MoonStart.Az),
		transform.Deg(r.MoonStop.El),
		transform.Deg(r.MoonStop.Az),
		r.MoonPhase,
		r.Pass,
		r.Sub,
	)
	return err
}

// Flush writes any buffered rows to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// formatCoord prints a site coordinate in the shortest exact decimal form.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
