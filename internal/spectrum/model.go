package spectrum

import (
	"fmt"
	"time"
)

// MHzToHz converts between the MHz used for display/export and the Hz used
// internally. All planning, sweeping and stitching math stays in Hz; traces
// are converted once, on output.
const MHzToHz = 1e6

// Band is a named contiguous frequency range selected for scanning.
// A band is immutable once a scan has started.
type Band struct {
	Name    string  `yaml:"name" json:"name"`
	StartHz float64 `yaml:"startHz" json:"startHz"`
	StopHz  float64 `yaml:"stopHz" json:"stopHz"`
}

// Validate reports whether the band describes a usable frequency range.
func (b Band) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("band has no name")
	}
	if b.StartHz >= b.StopHz {
		return fmt.Errorf("band %s: start %.0f Hz is not below stop %.0f Hz", b.Name, b.StartHz, b.StopHz)
	}
	return nil
}

// WidthHz returns the band width in Hz.
func (b Band) WidthHz() float64 {
	return b.StopHz - b.StartHz
}

// OverallRange returns the combined [min start, max stop] range of the given
// bands. Returns zeros for an empty selection.
func OverallRange(bands []Band) (startHz, stopHz float64) {
	for i, b := range bands {
		if i == 0 || b.StartHz < startHz {
			startHz = b.StartHz
		}
		if i == 0 || b.StopHz > stopHz {
			stopHz = b.StopHz
		}
	}
	return startHz, stopHz
}

// Segment is a sub-range of a band sized to fit the instrument's
// single-sweep span limit. Segments are transient: the planner derives them
// per band and they are never persisted.
type Segment struct {
	CenterHz float64
	SpanHz   float64
}

// StartHz returns the lower edge of the segment.
func (s Segment) StartHz() float64 {
	return s.CenterHz - s.SpanHz/2
}

// StopHz returns the upper edge of the segment.
func (s Segment) StopHz() float64 {
	return s.CenterHz + s.SpanHz/2
}

// RawSample is one (frequency, power) pair returned by a single sweep.
// Samples within one segment arrive in ascending frequency order from the
// instrument.
type RawSample struct {
	FrequencyHz float64
	PowerDBm    float64
}

// SegmentRecord tags the samples of one completed segment sweep with their
// provenance: band name, segment bounds and acquisition time.
type SegmentRecord struct {
	Band      string
	Segment   Segment
	Timestamp time.Time
	Samples   []RawSample
}

// FlattenRecords concatenates the samples of all records in acquisition
// order. The stitcher's keep-last duplicate policy depends on this ordering.
func FlattenRecords(records []SegmentRecord) []RawSample {
	var n int
	for _, r := range records {
		n += len(r.Samples)
	}

	out := make([]RawSample, 0, n)
	for _, r := range records {
		out = append(out, r.Samples...)
	}
	return out
}

// TracePoint is one point of a stitched trace, in the MHz output
// representation.
type TracePoint struct {
	FrequencyMHz float64 `json:"frequencyMHz"`
	PowerDBm     float64 `json:"powerDBm"`
}

// Trace is the stitched result of one scan: unique by frequency, sorted
// ascending, bounded to the overall requested range. Immutable after
// creation.
type Trace struct {
	StartHz float64      `json:"startHz"`
	StopHz  float64      `json:"stopHz"`
	Points  []TracePoint `json:"points,omitempty"`
}

// ScanSession captures metadata about one persisted scan.
type ScanSession struct {
	ID              int64     `json:"ID"`
	StartTime       time.Time `json:"startTime"`
	InstrumentModel string    `json:"instrumentModel"`
	ScanName        string    `json:"scanName"`
	Config          *string   `json:"config,omitempty"` // config snapshot in JSON format
}
