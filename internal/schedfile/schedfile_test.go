package schedfile

import (
	"bytes"
	"errors"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/star/cesched/internal/schedule"
	"github.com/star/cesched/internal/transform"
)

var deg = transform.Rad

func hz(el, az float64) transform.Horizontal {
	return transform.Horizontal{Az: deg(az), El: deg(el)}
}

var testSite = schedule.Site{Name: "LBL", Lat: 37.876, Lon: -122.247, Alt: 100}

func testRecords() []schedule.Record {
	t0 := time.Date(2000, 1, 1, 0, 40, 0, 0, time.UTC)
	t1 := t0.Add(8*time.Minute + 10*time.Second)
	return []schedule.Record{
		{
			Start: t0, Stop: t0.Add(8 * time.Minute), Patch: "deep",
			AzMin: deg(264.12), AzMax: deg(276.5), El: deg(78.93), Direction: schedule.Setting,
			SunStart: hz(-30, 0), SunStop: hz(-29.5, 1.25),
			MoonStart: hz(-12.34, 180), MoonStop: hz(-11, 181.5),
			MoonPhase: 0.5, Pass: 1, Sub: 0,
		},
		{
			Start: t1, Stop: t1.Add(8 * time.Minute), Patch: "deep",
			AzMin: deg(3.5), AzMax: deg(359.75), El: deg(45), Direction: schedule.Rising,
			SunStart: hz(-31, 10), SunStop: hz(-31.5, 11),
			MoonStart: hz(5, 90), MoonStop: hz(6.5, 91),
			MoonPhase: 0.97, Pass: 12, Sub: 1,
		},
	}
}

const golden = "#Site            Latitude [deg]  Longitude [deg] Altitude [m]   \n" +
	" LBL             37.876          -122.247             100.000000\n" +
	"#Start time UTC       Stop time UTC        Start MJD      Stop MJD       Patch name      Az min   Az max   El       R/S   Sun el1  Sun az1  Sun el2  Sun az2  Moon el1 Moon az1 Moon el2 Moon az2 Phase Pass  Sub\n" +
	" 2000-01-01 00:40:00  2000-01-01 00:48:00    51544.027778   51544.033333 deep              264.12   276.50    78.93 S       -30.00     0.00   -29.50     1.25   -12.34   180.00   -11.00   181.50  0.50     1   0\n" +
	" 2000-01-01 00:48:10  2000-01-01 00:56:10    51544.033449   51544.039005 deep                3.50   359.75    45.00 R       -31.00    10.00   -31.50    11.00     5.00    90.00     6.50    91.00  0.97    12   1\n"

func writeAll(t *testing.T, recs []schedule.Record) string {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, testSite)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	for _, r := range recs {
		if err := w.WriteRecord(r); err != nil {
			t.Fatalf("WriteRecord: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	return buf.String()
}

func TestWriterGolden(t *testing.T) {
	got := writeAll(t, testRecords())
	if got != golden {
		gl, wl := strings.Split(got, "\n"), strings.Split(golden, "\n")
		for i := range min(len(gl), len(wl)) {
			if gl[i] != wl[i] {
				t.Fatalf("line %d:\n got %q\nwant %q", i+1, gl[i], wl[i])
			}
		}
		t.Fatalf("got %d lines, want %d", len(gl), len(wl))
	}
}

func TestWriterHeaderOnly(t *testing.T) {
	got := writeAll(t, nil)
	if n := strings.Count(got, "\n"); n != 3 {
		t.Errorf("empty schedule has %d lines, want 3", n)
	}
}

func TestRoundTrip(t *testing.T) {
	recs := testRecords()
	site, entries, err := ReadAll(strings.NewReader(writeAll(t, recs)))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if site != testSite {
		t.Errorf("site = %+v, want %+v", site, testSite)
	}
	if len(entries) != len(recs) {
		t.Fatalf("got %d entries, want %d", len(entries), len(recs))
	}
	for i, e := range entries {
		r := recs[i]
		if !e.Start.Equal(r.Start) || !e.Stop.Equal(r.Stop) {
			t.Errorf("entry %d: times %v-%v, want %v-%v", i, e.Start, e.Stop, r.Start, r.Stop)
		}
		if e.Patch != r.Patch || e.Direction != r.Direction || e.Pass != r.Pass || e.Sub != r.Sub {
			t.Errorf("entry %d: %+v does not match %+v", i, e, r)
		}
		for _, c := range []struct {
			name      string
			got, want float64
		}{
			{"az min", e.AzMin, transform.Deg(r.AzMin)},
			{"az max", e.AzMax, transform.Deg(r.AzMax)},
			{"el", e.El, transform.Deg(r.El)},
			{"sun el2", e.SunEl2, transform.Deg(r.SunStop.El)},
			{"moon az1", e.MoonAz1, transform.Deg(r.MoonStart.Az)},
			{"phase", e.Phase, r.MoonPhase},
			{"start mjd", e.StartMJD, transform.ModifiedJulianDate(r.Start)},
		} {
			if math.Abs(c.got-c.want) > 1e-5 {
				t.Errorf("entry %d %s = %v, want %v", i, c.name, c.got, c.want)
			}
		}
	}
}

func TestReaderNextEOF(t *testing.T) {
	r := NewReader(strings.NewReader(writeAll(t, testRecords()[:1])))
	if _, err := r.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("Next after last row = %v, want io.EOF", err)
	}
}

func TestReaderErrors(t *testing.T) {
	header := strings.SplitAfterN(golden, "\n", 4)
	site := header[0] + header[1] + header[2]
	row := strings.TrimSuffix(header[3][:strings.Index(header[3], "\n")+1], "\n")

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"short site", " LBL 37.876 -122.247\n"},
		{"bad altitude", " LBL 37.876 -122.247 high\n"},
		{"short row", site + " 2000-01-01 00:40:00 deep\n"},
		{"bad direction", site + strings.Replace(row, " S ", " X ", 1) + "\n"},
		{"bad pass", site + strings.Replace(row, "     1   0", "   one   0", 1) + "\n"},
		{"bad time", site + strings.Replace(row, "00:40:00", "00:40:xx", 1) + "\n"},
		{"mjd mismatch", site + strings.Replace(row, "51544.027778", "51545.027778", 1) + "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ReadAll(strings.NewReader(tt.input))
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("ReadAll error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestMJDTime(t *testing.T) {
	want := time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)
	if got := mjdTime(51544.5); !got.Equal(want) {
		t.Errorf("mjdTime(51544.5) = %v, want %v", got, want)
	}
}
