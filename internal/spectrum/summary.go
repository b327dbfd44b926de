package spectrum

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// TraceSummary holds aggregate statistics over one stitched trace.
type TraceSummary struct {
	Points      int
	StartMHz    float64
	StopMHz     float64
	MeanDBm     float64
	MedianDBm   float64
	PeakDBm     float64
	PeakFreqMHz float64
}

// Summarize computes aggregate statistics for a stitched trace. An empty
// trace yields a zero summary.
func Summarize(t Trace) TraceSummary {
	if len(t.Points) == 0 {
		return TraceSummary{}
	}

	powers := make([]float64, len(t.Points))
	peak := 0
	for i, p := range t.Points {
		powers[i] = p.PowerDBm
		if p.PowerDBm > t.Points[peak].PowerDBm {
			peak = i
		}
	}

	mean := stat.Mean(powers, nil)

	sorted := make([]float64, len(powers))
	copy(sorted, powers)
	sort.Float64s(sorted)
	median := stat.Quantile(0.5, stat.Empirical, sorted, nil)

	return TraceSummary{
		Points:      len(t.Points),
		StartMHz:    t.Points[0].FrequencyMHz,
		StopMHz:     t.Points[len(t.Points)-1].FrequencyMHz,
		MeanDBm:     mean,
		MedianDBm:   median,
		PeakDBm:     t.Points[peak].PowerDBm,
		PeakFreqMHz: t.Points[peak].FrequencyMHz,
	}
}
