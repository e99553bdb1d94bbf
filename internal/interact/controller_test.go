package interact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nmr-annotator/internal/trace"
	"nmr-annotator/internal/workspace"
	"nmr-annotator/pkg/geometry"
)

func pt(x, y float64) geometry.Point2D { return geometry.Point2D{X: x, Y: y} }

var (
	spec   = workspace.ViewSpectrum
	struc  = workspace.ViewStructure
	noMods = Modifiers{}
	ctrl   = Modifiers{Ctrl: true}
)

// newController returns a controller over an 800x400 spectrum image shown
// at scale 1 and a 400x400 structure image at scale 1.
func newController(t *testing.T) *Controller {
	t.Helper()
	s := workspace.NewSession(workspace.DefaultOptions(), nil)
	s.SetFrame(spec, geometry.NewSize(800, 400))
	s.SetFrame(struc, geometry.NewSize(400, 400))
	s.LoadSpectrumImage("s.png", 800, 400)
	s.LoadStructure("m.png", 400, 400)
	s.History().Clear()
	require.Equal(t, 1.0, s.Workspace().SpectrumView.Scale)
	return New(s, DefaultOptions(), nil)
}

func TestTransitionTableHitWins(t *testing.T) {
	for _, tool := range Tools() {
		assert.Equal(t, actSelectPeak, lookup(spec, tool, hitPeak), tool.String())
		assert.Equal(t, actSelectMarker, lookup(struc, tool, hitMarker), tool.String())
	}
	assert.Equal(t, actAddPeak, lookup(spec, ToolPeak, hitNone))
	assert.Equal(t, actClear, lookup(struc, ToolPeak, hitNone))
	assert.Equal(t, actClear, lookup(spec, ToolAtom, hitNone))
	assert.Equal(t, actPan, lookup(struc, ToolPanStructure, hitNone))
}

func TestClickAddsPeakThenSelectsIt(t *testing.T) {
	c := newController(t)
	e := c.PointerDown(spec, pt(100, 100))
	assert.True(t, e.Has(EffectWorkspace))
	c.PointerUp(spec, pt(100, 100))
	require.Len(t, c.Session().Workspace().Peaks, 1)
	id := c.Session().Workspace().Peaks[0].ID

	// Clicking within the radius selects instead of adding.
	c.s.ClearSelection()
	c.PointerDown(spec, pt(110, 105))
	c.PointerUp(spec, pt(110, 105))
	assert.Len(t, c.Session().Workspace().Peaks, 1)
	sel, _ := c.Session().Selection()
	assert.Equal(t, id, sel)

	// Just outside the radius adds a second peak.
	c.PointerDown(spec, pt(115, 100))
	assert.Len(t, c.Session().Workspace().Peaks, 2)
}

func TestHitTestNewestFirst(t *testing.T) {
	c := newController(t)
	c.s.AddPeak(pt(50, 50))
	newer := c.s.AddPeak(pt(55, 50))
	id, ok := c.HitPeak(pt(52, 50))
	require.True(t, ok)
	assert.Equal(t, newer, id)

	_, ok = c.HitMarker(pt(52, 50))
	assert.False(t, ok)
	m := c.s.AddMarker(pt(100, 100))
	id, ok = c.HitMarker(pt(111, 108))
	require.True(t, ok)
	assert.Equal(t, m, id)
}

func TestDragIsOneUndoStep(t *testing.T) {
	c := newController(t)
	id := c.s.AddPeak(pt(100, 100))
	u0, _ := c.s.History().Depths()

	c.PointerDown(spec, pt(102, 100))
	for i := 1; i <= 20; i++ {
		c.PointerMove(spec, pt(102+float64(i), 100+float64(i)))
	}
	c.PointerUp(spec, pt(122, 120))

	p, _ := c.s.Workspace().FindPeak(id)
	assert.Equal(t, pt(120, 120), p.Pos)
	u1, _ := c.s.History().Depths()
	assert.Equal(t, u0+1, u1)

	require.True(t, c.s.Undo())
	p, _ = c.s.Workspace().FindPeak(id)
	assert.Equal(t, pt(100, 100), p.Pos)
}

func TestPointerLeaveEndsDrag(t *testing.T) {
	c := newController(t)
	id := c.s.AddPeak(pt(100, 100))
	c.PointerDown(spec, pt(100, 100))
	c.PointerMove(spec, pt(110, 100))
	assert.True(t, c.Dragging())
	c.PointerLeave(spec)
	assert.False(t, c.Dragging())
	assert.False(t, c.s.InGesture())

	c.PointerMove(spec, pt(300, 300))
	p, _ := c.s.Workspace().FindPeak(id)
	assert.Equal(t, pt(110, 100), p.Pos)
}

func TestPanUsesGestureStart(t *testing.T) {
	c := newController(t)
	c.SetTool(ToolPanSpectrum)
	start := c.s.ViewOffset(spec)

	c.PointerDown(spec, pt(10, 10))
	c.PointerMove(spec, pt(20, 10))
	c.PointerMove(spec, pt(40, 30))
	c.PointerUp(spec, pt(40, 30))

	assert.Equal(t, start.Add(pt(30, 20)), c.s.ViewOffset(spec))
	assert.False(t, c.s.History().CanUndo(), "panning is not undoable")
}

func TestCalibrateTool(t *testing.T) {
	c := newController(t)
	c.KeyDown("c", noMods)
	require.Equal(t, ToolCalibrate, c.Tool())
	c.PointerDown(spec, pt(100, 10))
	c.PointerDown(spec, pt(300, 10))
	cal := c.s.Workspace().Calibration
	require.NotNil(t, cal.P2)
	assert.Equal(t, 100.0, cal.P1.WorldX)
	assert.Equal(t, 300.0, cal.P2.WorldX)
}

func TestAtomToolAndDeleteCascade(t *testing.T) {
	c := newController(t)
	peak := c.s.AddPeak(pt(100, 100))
	c.KeyDown("a", noMods)
	c.PointerDown(struc, pt(50, 50))
	c.PointerUp(struc, pt(50, 50))
	_, marker := c.s.Selection()
	require.NotEmpty(t, marker)

	c.s.SelectPeak(peak)
	assert.True(t, c.KeyDown("l", noMods).Has(EffectWorkspace))
	p, _ := c.s.Workspace().FindPeak(peak)
	assert.Equal(t, marker, p.MarkerID)

	c.s.ClearSelection()
	c.s.SelectMarker(marker)
	selPeak, _ := c.s.Selection()
	assert.Equal(t, peak, selPeak)

	// peak wins over marker
	c.KeyDown("Delete", noMods)
	assert.Empty(t, c.s.Workspace().Peaks)
	assert.Len(t, c.s.Workspace().Markers, 1)
	c.KeyDown("backspace", noMods)
	assert.Empty(t, c.s.Workspace().Markers)
}

func TestDeleteRemovesLastSelected(t *testing.T) {
	c := newController(t)
	c.PointerDown(spec, pt(100, 100))
	c.PointerUp(spec, pt(100, 100))
	require.Len(t, c.s.Workspace().Peaks, 1)

	c.KeyDown("a", noMods)
	c.PointerDown(struc, pt(50, 50))
	c.PointerUp(struc, pt(50, 50))
	peak, marker := c.s.Selection()
	require.NotEmpty(t, peak)
	require.NotEmpty(t, marker)

	assert.True(t, c.KeyDown("delete", noMods).Has(EffectWorkspace))
	assert.Len(t, c.s.Workspace().Peaks, 1)
	assert.Empty(t, c.s.Workspace().Markers)

	// the peak is still selected and goes next
	c.KeyDown("delete", noMods)
	assert.Empty(t, c.s.Workspace().Peaks)
}

func TestUndoRedoKeys(t *testing.T) {
	c := newController(t)
	c.PointerDown(spec, pt(10, 10))
	c.PointerUp(spec, pt(10, 10))
	require.Len(t, c.s.Workspace().Peaks, 1)

	assert.Equal(t, EffectNone, c.KeyDown("z", noMods), "undo requires a modifier")
	c.KeyDown("z", ctrl)
	assert.Empty(t, c.s.Workspace().Peaks)
	c.KeyDown("z", Modifiers{Ctrl: true, Shift: true})
	assert.Len(t, c.s.Workspace().Peaks, 1)
	c.KeyDown("z", ctrl)
	c.KeyDown("Y", Modifiers{Meta: true})
	assert.Len(t, c.s.Workspace().Peaks, 1)
	assert.Equal(t, EffectNone, c.KeyDown("y", ctrl))
}

func TestToolKeysNeedNoModifier(t *testing.T) {
	c := newController(t)
	c.KeyDown("g", ctrl)
	assert.Equal(t, ToolPeak, c.Tool())
	for key, want := range toolKeys {
		c.KeyDown(key, noMods)
		assert.Equal(t, want, c.Tool())
		assert.Equal(t, key, ToolKey(want))
	}
}

func TestSpaceTemporaryPan(t *testing.T) {
	c := newController(t)
	c.KeyDown("space", noMods)
	assert.Equal(t, ToolPeak, c.Tool(), "no hovered view")

	c.PointerMove(struc, pt(5, 5))
	c.KeyDown("space", noMods)
	assert.Equal(t, ToolPanStructure, c.Tool())
	c.KeyUp("space")
	assert.Equal(t, ToolPeak, c.Tool())
}

func TestWheelZoomsAtCursor(t *testing.T) {
	c := newController(t)
	cursor := pt(200, 100)
	world := c.s.Mapper(spec).ToWorld(cursor)
	c.Wheel(spec, cursor, 1, noMods)
	assert.InDelta(t, 1.25, c.s.Workspace().SpectrumView.Scale, 1e-12)
	got := c.s.Mapper(spec).ToCanvas(world)
	assert.InDelta(t, cursor.X, got.X, 1e-9)
	assert.InDelta(t, cursor.Y, got.Y, 1e-9)

	c.Wheel(spec, cursor, -1, noMods)
	assert.InDelta(t, 1.0, c.s.Workspace().SpectrumView.Scale, 1e-12)
	assert.Equal(t, EffectNone, c.Wheel(spec, cursor, 0, noMods))
}

func traceController(t *testing.T) *Controller {
	t.Helper()
	opts := workspace.DefaultOptions()
	opts.Normalize = trace.NormalizeOptions{FloorQuantile: 0, CeilQuantile: 1}
	s := workspace.NewSession(opts, nil)
	s.SetFrame(spec, geometry.NewSize(800, 400))
	raw := &trace.Series{X: make([]float64, 100), Y: make([]float64, 100)}
	for i := range raw.X {
		raw.X[i] = float64(i)
	}
	raw.Y[30], raw.Y[70] = 4, 2
	s.LoadTrace("t.jdx", raw)
	return New(s, DefaultOptions(), nil)
}

func TestTraceModeShiftWheelZoomsXOnly(t *testing.T) {
	c := traceController(t)
	before := c.s.Workspace().TraceView
	c.Wheel(spec, pt(400, 200), 1, Modifiers{Shift: true})
	after := c.s.Workspace().TraceView
	assert.InDelta(t, before.ScaleX*1.25, after.ScaleX, 1e-9)
	assert.Equal(t, before.ScaleY, after.ScaleY)
}

func TestTraceModePeakToolDoesNotAdd(t *testing.T) {
	c := traceController(t)
	c.PointerDown(spec, pt(400, 200))
	assert.Empty(t, c.s.Workspace().Peaks)

	assert.True(t, c.KeyDown("d", noMods).Has(EffectWorkspace))
	assert.Len(t, c.s.Workspace().Peaks, 2)
}

func TestEscapeClearsSelection(t *testing.T) {
	c := newController(t)
	id := c.s.AddPeak(pt(1, 1))
	c.s.SelectPeak(id)
	c.KeyDown("Escape", noMods)
	p, m := c.s.Selection()
	assert.Empty(t, p)
	assert.Empty(t, m)
}

func TestResetViewUnderPointer(t *testing.T) {
	c := newController(t)
	c.PointerMove(struc, pt(1, 1))
	c.Wheel(struc, pt(1, 1), 1, noMods)
	c.KeyDown("r", noMods)
	assert.Equal(t, 1.0, c.s.Workspace().StructureView.Scale)
}
