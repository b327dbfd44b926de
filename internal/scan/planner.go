package scan

import (
	"math"

	"github.com/openair-rf/openair/internal/spectrum"
)

// PlanSegments computes the sequence of (center, span) segments covering
// [bandStartHz, bandStopHz] contiguously and without overlap. The band is
// split evenly: the segment count is ceil(width/maxSegmentSpanHz) and every
// segment gets width/count, rather than tiling at the maximum span and
// leaving a short final segment. The last segment's stop is clamped to the
// band edge to absorb floating-point drift.
//
// A non-positive maxSegmentSpanHz is a documented fallback, not an error:
// the whole band is returned as a single segment.
func PlanSegments(bandStartHz, bandStopHz, maxSegmentSpanHz float64) []spectrum.Segment {
	width := bandStopHz - bandStartHz
	if width <= 0 {
		return nil
	}

	if maxSegmentSpanHz <= 0 {
		return []spectrum.Segment{{CenterHz: bandStartHz + width/2, SpanHz: width}}
	}

	count := int(math.Ceil(width / maxSegmentSpanHz))
	if count < 1 {
		count = 1
	}
	span := width / float64(count)

	segments := make([]spectrum.Segment, 0, count)
	cur := bandStartHz
	for i := 0; i < count; i++ {
		segSpan := span
		if i == count-1 {
			segSpan = bandStopHz - cur
		}
		segments = append(segments, spectrum.Segment{
			CenterHz: cur + segSpan/2,
			SpanHz:   segSpan,
		})
		cur += span
	}
	return segments
}
