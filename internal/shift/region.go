package shift

import "math"

// Region is a named chemical-environment range of 1H shifts.
type Region int

const (
	RegionUnknown Region = iota
	RegionAldehyde
	RegionCarboxylicAcid
	RegionAromatic
	RegionVinylic
	RegionHeteroAdjacent
	RegionAllylicBenzylic
	RegionAlkyl
	RegionUnusualLow
	RegionUnusualHigh
)

func (r Region) String() string {
	switch r {
	case RegionAldehyde:
		return "aldehyde"
	case RegionCarboxylicAcid:
		return "carboxylic acid"
	case RegionAromatic:
		return "aromatic"
	case RegionVinylic:
		return "vinylic"
	case RegionHeteroAdjacent:
		return "hetero-adjacent"
	case RegionAllylicBenzylic:
		return "allylic/benzylic"
	case RegionAlkyl:
		return "alkyl"
	case RegionUnusualLow:
		return "unusual (low)"
	case RegionUnusualHigh:
		return "unusual (high)"
	default:
		return "unknown"
	}
}

// bounded is an inclusive [lo, hi] range. Order matters: ranges overlap
// (10.0-10.5 is both aldehyde and acid) and the first match wins.
var bounded = []struct {
	region Region
	lo, hi float64
}{
	{RegionAldehyde, 9.0, 10.5},
	{RegionCarboxylicAcid, 10.0, 13.5},
	{RegionAromatic, 6.0, 8.5},
	{RegionVinylic, 4.5, 6.5},
	{RegionHeteroAdjacent, 3.0, 4.5},
	{RegionAllylicBenzylic, 2.0, 3.0},
	{RegionAlkyl, 0.5, 2.0},
}

// Classify returns the region for a shift in ppm.
func Classify(ppm float64) Region {
	if math.IsNaN(ppm) {
		return RegionUnknown
	}
	for _, b := range bounded {
		if ppm >= b.lo && ppm <= b.hi {
			return b.region
		}
	}
	if ppm < 0.5 {
		return RegionUnusualLow
	}
	if ppm > 13.5 {
		return RegionUnusualHigh
	}
	return RegionUnknown
}

// ClassifyShift classifies an optional shift; nil is RegionUnknown.
func ClassifyShift(ppm *float64) Region {
	if ppm == nil {
		return RegionUnknown
	}
	return Classify(*ppm)
}
