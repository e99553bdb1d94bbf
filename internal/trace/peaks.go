package trace

import (
	"sort"
)

// PeakOptions configures DetectPeaks.
type PeakOptions struct {
	MaxPeaks      int     `yaml:"max_peaks" json:"max_peaks"`
	MinProminence float64 `yaml:"min_prominence" json:"min_prominence"`
	MinDistance   int     `yaml:"min_distance_points" json:"min_distance_points"` // in samples
}

// DefaultPeakOptions returns default detection options for normalized traces.
func DefaultPeakOptions() PeakOptions {
	return PeakOptions{
		MaxPeaks:      12,
		MinProminence: 0.06,
		MinDistance:   10,
	}
}

// Peak is a detected local maximum.
type Peak struct {
	Index      int     `json:"index"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Prominence float64 `json:"prominence"`
}

// DetectPeaks finds strict interior local maxima whose prominence over the
// lower neighbour reaches MinProminence. The most prominent candidates are
// accepted first, skipping any closer than MinDistance samples to an accepted
// peak, until MaxPeaks are found. The result is ordered by ascending x.
func DetectPeaks(x, y []float64, opts PeakOptions) []Peak {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	if n < 3 || opts.MaxPeaks <= 0 {
		return nil
	}

	var candidates []Peak
	for i := 1; i < n-1; i++ {
		if !(y[i] > y[i-1] && y[i] > y[i+1]) {
			continue
		}
		base := y[i-1]
		if y[i+1] < base {
			base = y[i+1]
		}
		prom := y[i] - base
		if prom < opts.MinProminence {
			continue
		}
		candidates = append(candidates, Peak{Index: i, X: x[i], Y: y[i], Prominence: prom})
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].Prominence > candidates[b].Prominence
	})

	accepted := make([]Peak, 0, opts.MaxPeaks)
	for _, c := range candidates {
		if len(accepted) >= opts.MaxPeaks {
			break
		}
		if tooClose(c.Index, accepted, opts.MinDistance) {
			continue
		}
		accepted = append(accepted, c)
	}

	sort.SliceStable(accepted, func(a, b int) bool {
		if accepted[a].X != accepted[b].X {
			return accepted[a].X < accepted[b].X
		}
		return accepted[a].Index < accepted[b].Index
	})
	return accepted
}

func tooClose(idx int, accepted []Peak, minDist int) bool {
	for _, p := range accepted {
		d := idx - p.Index
		if d < 0 {
			d = -d
		}
		if d < minDist {
			return true
		}
	}
	return false
}
