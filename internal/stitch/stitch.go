// Package stitch combines the raw samples of all swept segments into one
// deduplicated, ordered, range-bounded trace.
package stitch

import (
	"sort"

	"github.com/openair-rf/openair/internal/spectrum"
)

// Stitch deduplicates, sorts and range-filters raw samples into a single
// contiguous trace. Duplicate frequencies are expected at segment-boundary
// overlaps; the later-occurring sample wins, favouring data from segments
// acquired later in the sweep. The bounds are inclusive. All comparisons
// run in Hz; frequencies are converted to MHz only for the output
// representation. Empty input yields an empty trace.
//
// The function is pure and performs no I/O.
func Stitch(samples []spectrum.RawSample, overallStartHz, overallStopHz float64) spectrum.Trace {
	trace := spectrum.Trace{StartHz: overallStartHz, StopHz: overallStopHz}
	if len(samples) == 0 {
		return trace
	}

	latest := make(map[float64]float64, len(samples))
	for _, s := range samples {
		latest[s.FrequencyHz] = s.PowerDBm
	}

	freqs := make([]float64, 0, len(latest))
	for f := range latest {
		if f < overallStartHz || f > overallStopHz {
			continue
		}
		freqs = append(freqs, f)
	}
	sort.Float64s(freqs)

	points := make([]spectrum.TracePoint, len(freqs))
	for i, f := range freqs {
		points[i] = spectrum.TracePoint{
			FrequencyMHz: f / spectrum.MHzToHz,
			PowerDBm:     latest[f],
		}
	}

	trace.Points = points
	return trace
}

// StitchRecords stitches the accumulated segment records of one scan,
// flattening them in acquisition order first.
func StitchRecords(records []spectrum.SegmentRecord, overallStartHz, overallStopHz float64) spectrum.Trace {
	return Stitch(spectrum.FlattenRecords(records), overallStartHz, overallStopHz)
}
