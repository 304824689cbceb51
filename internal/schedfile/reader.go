package schedfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/star/cesched/internal/schedule"
)

// Field counts of the whitespace-separated rows. Timestamps contain one
// space each.
const (
	siteFields = 4
	rowFields  = 22
)

// ErrMalformed is wrapped by every parse error.
var ErrMalformed = errors.New("malformed schedule file")

// Entry is one parsed schedule row. Angles are degrees as written.
type Entry struct {
	Start     time.Time
	Stop      time.Time
	StartMJD  float64
	StopMJD   float64
	Patch     string
	AzMin     float64
	AzMax     float64
	El        float64
	Direction schedule.Direction
	SunEl1    float64
	SunAz1    float64
	SunEl2    float64
	SunAz2    float64
	MoonEl1   float64
	MoonAz1   float64
	MoonEl2   float64
	MoonAz2   float64
	Phase     float64
	Pass      int
	Sub       int
}

// Reader parses a schedule file row by row.
type Reader struct {
	scanner *bufio.Scanner
	line    int
	site    *schedule.Site
}

// NewReader creates a Reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Site returns the site block, reading it if necessary.
func (r *Reader) Site() (schedule.Site, error) {
	if r.site != nil {
		return *r.site, nil
	}
	fields, err := r.next()
	if err == io.EOF {
		return schedule.Site{}, fmt.Errorf("%w: missing site row", ErrMalformed)
	}
	if err != nil {
		return schedule.Site{}, err
	}
	site, err := parseSite(fields)
	if err != nil {
		return schedule.Site{}, fmt.Errorf("line %d: %w", r.line, err)
	}
	r.site = &site
	return site, nil
}

// Next returns the next row, or io.EOF after the last one.
func (r *Reader) Next() (Entry, error) {
	if _, err := r.Site(); err != nil {
		return Entry{}, err
	}
	fields, err := r.next()
	if err != nil {
		return Entry{}, err
	}
	e, err := parseEntry(fields)
	if err != nil {
		return Entry{}, fmt.Errorf("line %d: %w", r.line, err)
	}
	return e, nil
}

// ReadAll parses a whole schedule file.
func ReadAll(r io.Reader) (schedule.Site, []Entry, error) {
	rd := NewReader(r)
	site, err := rd.Site()
	if err != nil {
		return schedule.Site{}, nil, err
	}
	var entries []Entry
	for {
		e, err := rd.Next()
		if err == io.EOF {
			return site, entries, nil
		}
		if err != nil {
			return site, entries, err
		}
		entries = append(entries, e)
	}
}

// next returns the fields of the next non-comment, non-blank line.
func (r *Reader) next() ([]string, error) {
	for r.scanner.Scan() {
		r.line++
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return strings.Fields(line), nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading schedule: %w", err)
	}
	return nil, io.EOF
}

func parseSite(f []string) (schedule.Site, error) {
	if len(f) != siteFields {
		return schedule.Site{}, fmt.Errorf("%w: site row has %d fields, want %d", ErrMalformed, len(f), siteFields)
	}
	var p fieldParser
	site := schedule.Site{
		Name: f[0],
		Lat:  p.number(f[1]),
		Lon:  p.number(f[2]),
		Alt:  p.number(f[3]),
	}
	return site, p.err
}

func parseEntry(f []string) (Entry, error) {
	if len(f) != rowFields {
		return Entry{}, fmt.Errorf("%w: row has %d fields, want %d", ErrMalformed, len(f), rowFields)
	}
	var p fieldParser
	e := Entry{
		Start:    p.stamp(f[0], f[1]),
		Stop:     p.stamp(f[2], f[3]),
		StartMJD: p.number(f[4]),
		StopMJD:  p.number(f[5]),
		Patch:    f[6],
		AzMin:    p.number(f[7]),
		AzMax:    p.number(f[8]),
		El:       p.number(f[9]),
		SunEl1:   p.number(f[11]),
		SunAz1:   p.number(f[12]),
		SunEl2:   p.number(f[13]),
		SunAz2:   p.number(f[14]),
		MoonEl1:  p.number(f[15]),
		MoonAz1:  p.number(f[16]),
		MoonEl2:  p.number(f[17]),
		MoonAz2:  p.number(f[18]),
		Phase:    p.number(f[19]),
		Pass:     p.integer(f[20]),
		Sub:      p.integer(f[21]),
	}
	switch f[10] {
	case "R":
		e.Direction = schedule.Rising
	case "S":
		e.Direction = schedule.Setting
	default:
		return Entry{}, fmt.Errorf("%w: direction %q", ErrMalformed, f[10])
	}
	if p.err != nil {
		return Entry{}, p.err
	}
	if d := e.Start.Sub(mjdTime(e.StartMJD)); d > time.Second || d < -time.Second {
		return Entry{}, fmt.Errorf("%w: start %s disagrees with MJD %.6f", ErrMalformed, e.Start.Format(TimeLayout), e.StartMJD)
	}
	return e, nil
}

// fieldParser keeps the first conversion error.
type fieldParser struct {
	err error
}

func (p *fieldParser) number(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%w: %q is not a number", ErrMalformed, s)
	}
	return v
}

func (p *fieldParser) integer(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%w: %q is not an integer", ErrMalformed, s)
	}
	return v
}

func (p *fieldParser) stamp(date, clock string) time.Time {
	t, err := time.Parse(TimeLayout, date+" "+clock)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%w: timestamp %q", ErrMalformed, date+" "+clock)
	}
	return t
}

// mjdTime converts a Modified Julian Date back to a UTC time, rounded to the
// microsecond.
func mjdTime(mjd float64) time.Time {
	us := (mjd - 40587) * 86400e6
	return time.UnixMicro(int64(us + 0.5)).UTC()
}
