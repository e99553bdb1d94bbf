package view

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"nmr-annotator/pkg/geometry"
)

func near(t *testing.T, want, got geometry.Point2D) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-9)
	assert.InDelta(t, want.Y, got.Y, 1e-9)
}

func TestTransformRoundTrip(t *testing.T) {
	tr := Transform{Scale: 2.5, Offset: geometry.Point2D{X: -40, Y: 17}}
	for _, p := range []geometry.Point2D{{X: 0, Y: 0}, {X: 13.2, Y: -8}, {X: 1e4, Y: 3e3}} {
		near(t, p, tr.ToWorld(tr.ToCanvas(p)))
		near(t, p, tr.ToCanvas(tr.ToWorld(p)))
	}
}

func TestZoomAtKeepsCursorStationary(t *testing.T) {
	tr := Identity()
	cursor := geometry.Point2D{X: 120, Y: 80}
	world := tr.ToWorld(cursor)

	for i := 0; i < 40; i++ {
		f := DefaultZoomStep
		if i%3 == 2 {
			f = 1 / DefaultZoomStep
		}
		tr.ZoomAt(cursor, f, DefaultLimits())
		near(t, cursor, tr.ToCanvas(world))
	}
}

func TestZoomAtClamps(t *testing.T) {
	tr := Identity()
	for i := 0; i < 100; i++ {
		tr.ZoomAt(geometry.Point2D{X: 5, Y: 5}, 2, DefaultLimits())
	}
	assert.Equal(t, DefaultMaxScale, tr.Scale)
	for i := 0; i < 100; i++ {
		tr.ZoomAt(geometry.Point2D{X: 5, Y: 5}, 0.5, DefaultLimits())
	}
	assert.Equal(t, DefaultMinScale, tr.Scale)
}

func TestZoomAtIgnoresBadFactor(t *testing.T) {
	tr := Transform{Scale: 2, Offset: geometry.Point2D{X: 1, Y: 1}}
	tr.ZoomAt(geometry.Point2D{}, 0, DefaultLimits())
	tr.ZoomAt(geometry.Point2D{}, -3, DefaultLimits())
	assert.Equal(t, Transform{Scale: 2, Offset: geometry.Point2D{X: 1, Y: 1}}, tr)
}

func TestPan(t *testing.T) {
	tr := Identity()
	tr.Pan(10, -4)
	near(t, geometry.Point2D{X: 10, Y: -4}, tr.ToCanvas(geometry.Point2D{}))
}

func TestFit(t *testing.T) {
	tr := Fit(geometry.NewSize(200, 100), geometry.NewSize(400, 400), DefaultLimits())
	assert.Equal(t, 2.0, tr.Scale)
	near(t, geometry.Point2D{X: 0, Y: 100}, tr.Offset)
	assert.Equal(t, Identity(), Fit(geometry.Size{}, geometry.NewSize(1, 1), DefaultLimits()))
}

func TestAxisRoundTripAndZoom(t *testing.T) {
	tr := FitAxis(Bounds{MinX: 0, MaxX: 12, MinY: 0, MaxY: 1}, geometry.NewSize(640, 480), 20, true)
	p := geometry.Point2D{X: 7.26, Y: 0.4}
	near(t, p, tr.ToWorld(tr.ToCanvas(p)))

	cursor := geometry.Point2D{X: 300, Y: 200}
	world := tr.ToWorld(cursor)
	tr.ZoomAt(cursor, 1.25, 1, DefaultLimits())
	near(t, cursor, tr.ToCanvas(world))
	tr.ZoomAt(cursor, 1, 0.8, DefaultLimits())
	near(t, cursor, tr.ToCanvas(world))
	assert.InDelta(t, tr.FitX*1.25, tr.ScaleX, 1e-9)
	assert.InDelta(t, tr.FitY*0.8, tr.ScaleY, 1e-9)
}

func TestAxisZoomClampKeepsSign(t *testing.T) {
	tr := FitAxis(Bounds{MinX: 0, MaxX: 10, MinY: 0, MaxY: 1}, geometry.NewSize(100, 100), 0, true)
	for i := 0; i < 50; i++ {
		tr.ZoomAt(geometry.Point2D{X: 50, Y: 50}, 2, 1, DefaultLimits())
	}
	assert.InDelta(t, tr.FitX*DefaultMaxScale, tr.ScaleX, 1e-9)
	assert.Less(t, tr.ScaleX, 0.0)
}

func TestFitAxis(t *testing.T) {
	b := Bounds{MinX: 0, MaxX: 10, MinY: 0, MaxY: 1}
	frame := geometry.NewSize(220, 120)

	tr := FitAxis(b, frame, 10, false)
	near(t, geometry.Point2D{X: 10, Y: 110}, tr.ToCanvas(geometry.Point2D{X: 0, Y: 0}))
	near(t, geometry.Point2D{X: 210, Y: 10}, tr.ToCanvas(geometry.Point2D{X: 10, Y: 1}))

	inv := FitAxis(b, frame, 10, true)
	near(t, geometry.Point2D{X: 210, Y: 110}, inv.ToCanvas(geometry.Point2D{X: 0, Y: 0}))
	near(t, geometry.Point2D{X: 10, Y: 10}, inv.ToCanvas(geometry.Point2D{X: 10, Y: 1}))
}

func TestFitAxisDegenerate(t *testing.T) {
	tr := FitAxis(Bounds{MinX: 3, MaxX: 3, MinY: 0.5, MaxY: 0.5}, geometry.NewSize(100, 100), 0, false)
	p := geometry.Point2D{X: 3, Y: 0.5}
	near(t, p, tr.ToWorld(tr.ToCanvas(p)))
}
