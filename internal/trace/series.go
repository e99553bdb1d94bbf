// Package trace provides spectroscopic trace parsing, normalization and peak picking.
package trace

import (
	"gonum.org/v1/gonum/floats"
)

// Series is an ordered numeric trace with the metadata it was parsed with.
// A Series is never mutated after it is produced; loads replace it wholesale.
type Series struct {
	X    []float64         `json:"x"`
	Y    []float64         `json:"y"`
	Meta map[string]string `json:"meta,omitempty"`
}

// Len returns the number of samples.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.X)
}

// Title returns the TITLE metadata value, if any.
func (s *Series) Title() string {
	if s == nil {
		return ""
	}
	return s.Meta["TITLE"]
}

// Bounds returns the x and y extent of the series. ok is false for an empty series.
func (s *Series) Bounds() (minX, maxX, minY, maxY float64, ok bool) {
	if s.Len() == 0 {
		return 0, 0, 0, 0, false
	}
	return floats.Min(s.X), floats.Max(s.X), floats.Min(s.Y), floats.Max(s.Y), true
}

// Normalized returns a new series with y rescaled by Normalize. Metadata is shared.
func (s *Series) Normalized(opts NormalizeOptions) *Series {
	if s == nil {
		return nil
	}
	x, y := Normalize(s.X, s.Y, opts)
	return &Series{X: x, Y: y, Meta: s.Meta}
}
