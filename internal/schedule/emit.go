package schedule

import (
	"time"

	"github.com/star/cesched/internal/ephem"
	"github.com/star/cesched/internal/transform"
)

// Record is one emitted (sub-)scan. Angles are radians.
type Record struct {
	Start     time.Time
	Stop      time.Time
	Patch     string
	AzMin     float64
	AzMax     float64
	El        float64
	Direction Direction

	SunStart  transform.Horizontal
	SunStop   transform.Horizontal
	MoonStart transform.Horizontal
	MoonStop  transform.Horizontal
	MoonPhase float64 // mean illuminated fraction over the record

	Pass int // patch hit count including this scan
	Sub  int // position within the split scan
}

// Sink receives records in increasing start order.
type Sink interface {
	WriteRecord(Record) error
}

// Collector is a Sink that keeps records in memory.
type Collector struct {
	Records []Record
}

// WriteRecord appends r.
func (c *Collector) WriteRecord(r Record) error {
	c.Records = append(c.Records, r)
	return nil
}

// records builds the output records for a scan's sub-scans. pass is the
// patch's hit count after crediting the scan.
func records(provider ephem.Provider, scan Scan, subs []SubScan, pass int) []Record {
	out := make([]Record, len(subs))
	for i, sub := range subs {
		sun1, moon1 := provider.Sun(sub.Start), provider.Moon(sub.Start)
		sun2, moon2 := provider.Sun(sub.Stop), provider.Moon(sub.Stop)
		out[i] = Record{
			Start:     sub.Start,
			Stop:      sub.Stop,
			Patch:     scan.Patch.Name,
			AzMin:     sub.AzMin,
			AzMax:     sub.AzMax,
			El:        scan.El,
			Direction: scan.Direction,
			SunStart:  sun1,
			SunStop:   sun2,
			MoonStart: moon1.Horizontal,
			MoonStop:  moon2.Horizontal,
			MoonPhase: (moon1.Phase + moon2.Phase) / 2,
			Pass:      pass,
			Sub:       sub.Index,
		}
	}
	return out
}
