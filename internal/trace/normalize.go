package trace

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// NormalizeOptions configures Normalize.
type NormalizeOptions struct {
	InvertY       bool    `yaml:"invert_y" json:"invert_y"`
	FloorQuantile float64 `yaml:"floor_quantile" json:"floor_quantile"`
	CeilQuantile  float64 `yaml:"ceil_quantile" json:"ceil_quantile"`
}

// DefaultNormalizeOptions returns the plotting defaults: 2nd to 98th percentile, no inversion.
func DefaultNormalizeOptions() NormalizeOptions {
	return NormalizeOptions{
		FloorQuantile: 0.02,
		CeilQuantile:  0.98,
	}
}

// Normalize rescales y into [0,1] between its floor and ceiling quantiles.
// Values outside the quantile band are clamped. x is returned unchanged and
// both outputs are truncated to the shorter input.
func Normalize(x, y []float64, opts NormalizeOptions) ([]float64, []float64) {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}

	outX := make([]float64, n)
	copy(outX, x[:n])

	outY := make([]float64, n)
	for i := 0; i < n; i++ {
		v := y[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		outY[i] = v
	}
	if n == 0 {
		return outX, outY
	}

	sorted := make([]float64, n)
	copy(sorted, outY)
	sort.Float64s(sorted)

	lo := Quantile(sorted, opts.FloorQuantile)
	hi := Quantile(sorted, opts.CeilQuantile)
	den := hi - lo
	if den == 0 {
		den = 1
	}

	for i, v := range outY {
		v = math.Max(lo, math.Min(hi, v))
		outY[i] = (v - lo) / den
	}
	if opts.InvertY {
		floats.Scale(-1, outY)
		floats.AddConst(1, outY)
	}
	return outX, outY
}

// Quantile returns the q-quantile of an ascending slice by linear
// interpolation between the order statistics at q*(n-1). q is clamped to [0,1].
func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if math.IsNaN(q) || q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}
	pos := q * float64(n-1)
	i := int(math.Floor(pos))
	if i >= n-1 {
		return sorted[n-1]
	}
	frac := pos - float64(i)
	return sorted[i] + frac*(sorted[i+1]-sorted[i])
}
