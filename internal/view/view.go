// Package view holds the world<->canvas transforms used by the spectrum,
// structure and trace views.
package view

import (
	"math"

	"nmr-annotator/pkg/geometry"
)

const (
	DefaultMinScale = 0.1
	DefaultMaxScale = 10.0
	DefaultZoomStep = 1.25
)

// Limits bounds the scale a zoom may reach.
type Limits struct {
	Min float64 `yaml:"min_scale" json:"min_scale"`
	Max float64 `yaml:"max_scale" json:"max_scale"`
}

// DefaultLimits returns the default zoom limits.
func DefaultLimits() Limits {
	return Limits{Min: DefaultMinScale, Max: DefaultMaxScale}
}

func (l Limits) clamp(s float64) float64 {
	if l.Min > 0 && s < l.Min {
		return l.Min
	}
	if l.Max > 0 && s > l.Max {
		return l.Max
	}
	return s
}

// Mapper converts between world and canvas coordinates.
type Mapper interface {
	ToCanvas(p geometry.Point2D) geometry.Point2D
	ToWorld(p geometry.Point2D) geometry.Point2D
}

// Transform is a uniform scale plus offset: canvas = world*Scale + Offset.
type Transform struct {
	Scale  float64          `json:"scale"`
	Offset geometry.Point2D `json:"offset"`
}

// Identity returns the unit transform.
func Identity() Transform {
	return Transform{Scale: 1}
}

func (t Transform) ToCanvas(p geometry.Point2D) geometry.Point2D {
	return geometry.Point2D{X: p.X*t.Scale + t.Offset.X, Y: p.Y*t.Scale + t.Offset.Y}
}

func (t Transform) ToWorld(p geometry.Point2D) geometry.Point2D {
	return geometry.Point2D{X: (p.X - t.Offset.X) / t.Scale, Y: (p.Y - t.Offset.Y) / t.Scale}
}

// ZoomAt multiplies the scale by factor, keeping the world point under
// cursor fixed on screen. The scale is clamped to lim.
func (t *Transform) ZoomAt(cursor geometry.Point2D, factor float64, lim Limits) {
	if !validFactor(factor) || t.Scale == 0 {
		return
	}
	w := t.ToWorld(cursor)
	t.Scale = lim.clamp(t.Scale * factor)
	t.Offset = geometry.Point2D{X: cursor.X - w.X*t.Scale, Y: cursor.Y - w.Y*t.Scale}
}

// Pan moves the view by a canvas-space delta.
func (t *Transform) Pan(dx, dy float64) {
	t.Offset.X += dx
	t.Offset.Y += dy
}

// Fit returns the transform that shows content centred in frame at the
// largest scale that fits, clamped to lim.
func Fit(content, frame geometry.Size, lim Limits) Transform {
	if content.Empty() || frame.Empty() {
		return Identity()
	}
	s := lim.clamp(math.Min(frame.Width/content.Width, frame.Height/content.Height))
	return Transform{
		Scale: s,
		Offset: geometry.Point2D{
			X: (frame.Width - content.Width*s) / 2,
			Y: (frame.Height - content.Height*s) / 2,
		},
	}
}

func validFactor(f float64) bool {
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}
