package view

import (
	"math"

	"nmr-annotator/pkg/geometry"
)

// AxisTransform scales x and y independently. It backs the trace view,
// where x is the measurement axis and y the normalized intensity.
// FitX and FitY record the scales of the last fit; zoom limits are
// applied relative to them.
type AxisTransform struct {
	ScaleX float64          `json:"scale_x"`
	ScaleY float64          `json:"scale_y"`
	Offset geometry.Point2D `json:"offset"`
	FitX   float64          `json:"fit_x,omitempty"`
	FitY   float64          `json:"fit_y,omitempty"`
}

// Bounds is a world-space extent.
type Bounds struct {
	MinX, MaxX, MinY, MaxY float64
}

func (t AxisTransform) ToCanvas(p geometry.Point2D) geometry.Point2D {
	return geometry.Point2D{X: p.X*t.ScaleX + t.Offset.X, Y: p.Y*t.ScaleY + t.Offset.Y}
}

func (t AxisTransform) ToWorld(p geometry.Point2D) geometry.Point2D {
	return geometry.Point2D{X: (p.X - t.Offset.X) / t.ScaleX, Y: (p.Y - t.Offset.Y) / t.ScaleY}
}

// ZoomAt zooms each axis by its own factor about cursor. A factor of 1
// leaves that axis alone.
func (t *AxisTransform) ZoomAt(cursor geometry.Point2D, fx, fy float64, lim Limits) {
	if !validFactor(fx) || !validFactor(fy) || t.ScaleX == 0 || t.ScaleY == 0 {
		return
	}
	w := t.ToWorld(cursor)
	t.ScaleX = clampRelative(t.ScaleX*fx, t.FitX, lim)
	t.ScaleY = clampRelative(t.ScaleY*fy, t.FitY, lim)
	t.Offset = geometry.Point2D{X: cursor.X - w.X*t.ScaleX, Y: cursor.Y - w.Y*t.ScaleY}
}

// Pan moves the view by a canvas-space delta.
func (t *AxisTransform) Pan(dx, dy float64) {
	t.Offset.X += dx
	t.Offset.Y += dy
}

func clampRelative(s, base float64, lim Limits) float64 {
	if base == 0 {
		return s
	}
	r := lim.clamp(math.Abs(s / base))
	return math.Copysign(r*math.Abs(base), s)
}

// FitAxis maps b into frame inset by margin pixels. Larger y is drawn
// higher. With invertX the largest x is on the left, the usual way NMR
// spectra are plotted.
func FitAxis(b Bounds, frame geometry.Size, margin float64, invertX bool) AxisTransform {
	w := math.Max(frame.Width-2*margin, 1)
	h := math.Max(frame.Height-2*margin, 1)
	dx := b.MaxX - b.MinX
	if dx == 0 {
		dx = 1
	}
	dy := b.MaxY - b.MinY
	if dy == 0 {
		dy = 1
	}

	t := AxisTransform{ScaleX: w / dx, ScaleY: -h / dy}
	t.Offset.X = margin - b.MinX*t.ScaleX
	if invertX {
		t.ScaleX = -t.ScaleX
		t.Offset.X = margin - b.MaxX*t.ScaleX
	}
	t.Offset.Y = margin + h - b.MinY*t.ScaleY
	t.FitX, t.FitY = t.ScaleX, t.ScaleY
	return t
}
