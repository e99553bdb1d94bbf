package interact

import (
	"errors"
	"strings"

	"go.uber.org/zap"

	"nmr-annotator/internal/view"
	"nmr-annotator/internal/workspace"
	"nmr-annotator/pkg/geometry"
)

// Options configures hit testing and wheel zoom.
type Options struct {
	PeakHitRadius   float64
	MarkerHitRadius float64
	ZoomStep        float64
}

// DefaultOptions returns the default radii (canvas pixels) and zoom step.
func DefaultOptions() Options {
	return Options{
		PeakHitRadius:   14,
		MarkerHitRadius: 16,
		ZoomStep:        view.DefaultZoomStep,
	}
}

type gestureKind int

const (
	gesturePan gestureKind = iota
	gestureDragPeak
	gestureDragMarker
)

// gesture is a pointer-down..pointer-up interaction. Moves are applied
// against the start state, never accumulated.
type gesture struct {
	kind        gestureKind
	view        workspace.ViewID
	id          string
	startCanvas geometry.Point2D
	startWorld  geometry.Point2D
	startPos    geometry.Point2D // entity position, or view offset for pans
}

// Controller routes input events to a workspace session.
type Controller struct {
	s    *workspace.Session
	opts Options
	log  *zap.Logger

	tool    Tool
	gesture *gesture

	hover    workspace.ViewID
	hovering bool

	spaceHeld  bool
	spaceSaved Tool
}

// New creates a controller over s with the peak tool active.
func New(s *workspace.Session, opts Options, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.ZoomStep <= 1 {
		opts.ZoomStep = view.DefaultZoomStep
	}
	return &Controller{s: s, opts: opts, log: log, tool: ToolPeak}
}

// Session returns the controlled session.
func (c *Controller) Session() *workspace.Session { return c.s }

// Tool returns the active tool.
func (c *Controller) Tool() Tool { return c.tool }

// SetTool switches tools. Any open gesture ends.
func (c *Controller) SetTool(t Tool) Effect {
	if t == c.tool {
		return EffectNone
	}
	c.endGesture()
	c.tool = t
	c.log.Debug("tool", zap.Stringer("tool", t))
	return EffectTool
}

// Dragging reports whether a pointer gesture is open.
func (c *Controller) Dragging() bool { return c.gesture != nil }

// HitPeak returns the id of the topmost peak within the hit radius of a
// spectrum canvas point.
func (c *Controller) HitPeak(p geometry.Point2D) (string, bool) {
	ws := c.s.Workspace()
	m := ws.Mapper(workspace.ViewSpectrum)
	r2 := c.opts.PeakHitRadius * c.opts.PeakHitRadius
	for i := len(ws.Peaks) - 1; i >= 0; i-- {
		if m.ToCanvas(ws.Peaks[i].Pos).DistanceSquared(p) <= r2 {
			return ws.Peaks[i].ID, true
		}
	}
	return "", false
}

// HitMarker returns the id of the topmost marker within the hit radius of
// a structure canvas point.
func (c *Controller) HitMarker(p geometry.Point2D) (string, bool) {
	ws := c.s.Workspace()
	m := ws.Mapper(workspace.ViewStructure)
	r2 := c.opts.MarkerHitRadius * c.opts.MarkerHitRadius
	for i := len(ws.Markers) - 1; i >= 0; i-- {
		if m.ToCanvas(ws.Markers[i].Pos).DistanceSquared(p) <= r2 {
			return ws.Markers[i].ID, true
		}
	}
	return "", false
}

func (c *Controller) hitTest(v workspace.ViewID, p geometry.Point2D) (hitKind, string) {
	if v == workspace.ViewStructure {
		if id, ok := c.HitMarker(p); ok {
			return hitMarker, id
		}
		return hitNone, ""
	}
	if id, ok := c.HitPeak(p); ok {
		return hitPeak, id
	}
	return hitNone, ""
}

// PointerDown handles a primary button press at canvas point p of view v.
func (c *Controller) PointerDown(v workspace.ViewID, p geometry.Point2D) Effect {
	c.endGesture()
	c.hover, c.hovering = v, true

	hit, id := c.hitTest(v, p)
	act := lookup(v, c.tool, hit)
	ws := c.s.Workspace()
	world := ws.Mapper(v).ToWorld(p)
	c.log.Debug("pointer down",
		zap.Stringer("view", v), zap.Stringer("tool", c.tool), zap.Stringer("action", act))

	switch act {
	case actSelectPeak:
		c.s.SelectPeak(id)
		pk, _ := ws.FindPeak(id)
		c.begin(gestureDragPeak, v, id, p, world, pk.Pos)
		return EffectSelection
	case actSelectMarker:
		c.s.SelectMarker(id)
		mk, _ := ws.FindMarker(id)
		c.begin(gestureDragMarker, v, id, p, world, mk.Pos)
		return EffectSelection
	case actAddPeak:
		if ws.Mode == workspace.ModeTrace {
			// trace peaks come from the detector
			c.s.ClearSelection()
			return EffectSelection
		}
		c.s.SelectPeak(c.s.AddPeak(world))
		return EffectWorkspace | EffectSelection
	case actCalibrate:
		c.s.SetCalibrationPoint(world.X)
		return EffectWorkspace
	case actAddMarker:
		c.s.SelectMarker(c.s.AddMarker(world))
		return EffectWorkspace | EffectSelection
	case actPan:
		c.begin(gesturePan, v, "", p, world, c.s.ViewOffset(v))
		return EffectNone
	default:
		c.s.ClearSelection()
		return EffectSelection
	}
}

func (c *Controller) begin(kind gestureKind, v workspace.ViewID, id string, canvas, world, start geometry.Point2D) {
	c.gesture = &gesture{kind: kind, view: v, id: id, startCanvas: canvas, startWorld: world, startPos: start}
	if kind != gesturePan {
		c.s.BeginGesture()
	}
}

// PointerMove handles pointer motion. While a gesture is open it drags or
// pans; otherwise it only tracks the hovered view.
func (c *Controller) PointerMove(v workspace.ViewID, p geometry.Point2D) Effect {
	c.hover, c.hovering = v, true
	g := c.gesture
	if g == nil || g.view != v {
		return EffectNone
	}

	switch g.kind {
	case gesturePan:
		c.s.SetViewOffset(v, g.startPos.Add(p.Sub(g.startCanvas)))
		return EffectView
	case gestureDragPeak, gestureDragMarker:
		// The view is fixed during a drag, so world deltas are exact.
		delta := c.s.Mapper(v).ToWorld(p).Sub(g.startWorld)
		pos := g.startPos.Add(delta)
		var err error
		if g.kind == gestureDragPeak {
			err = c.s.MovePeak(g.id, pos)
		} else {
			err = c.s.MoveMarker(g.id, pos)
		}
		if err != nil {
			// deleted under us (undo mid-drag)
			c.endGesture()
			return EffectNone
		}
		return EffectWorkspace
	}
	return EffectNone
}

// PointerUp ends any open gesture.
func (c *Controller) PointerUp(v workspace.ViewID, p geometry.Point2D) Effect {
	if c.gesture == nil {
		return EffectNone
	}
	c.endGesture()
	return EffectView
}

// PointerLeave ends any open gesture, so a lost button release cannot
// leave a drag stuck.
func (c *Controller) PointerLeave(v workspace.ViewID) Effect {
	if c.hovering && c.hover == v {
		c.hovering = false
	}
	if c.gesture == nil {
		return EffectNone
	}
	c.endGesture()
	return EffectView
}

func (c *Controller) endGesture() {
	if c.gesture == nil {
		return
	}
	if c.gesture.kind != gesturePan {
		c.s.EndGesture()
	}
	c.gesture = nil
}

// Wheel zooms v about p. Positive dy zooms in. With shift held the trace
// view zooms horizontally only.
func (c *Controller) Wheel(v workspace.ViewID, p geometry.Point2D, dy float64, mods Modifiers) Effect {
	if dy == 0 {
		return EffectNone
	}
	f := c.opts.ZoomStep
	if dy < 0 {
		f = 1 / f
	}
	fx, fy := f, f
	if mods.Shift && v == workspace.ViewSpectrum && c.s.Workspace().Mode == workspace.ModeTrace {
		fy = 1
	}
	c.s.ZoomView(v, p, fx, fy)
	return EffectView
}

// KeyDown handles a key press. Key names are matched case-insensitively
// ("z", "delete", "space", ...).
func (c *Controller) KeyDown(key string, mods Modifiers) Effect {
	key = strings.ToLower(key)

	if mods.command() {
		switch {
		case key == "z" && mods.Shift, key == "y":
			return c.redo()
		case key == "z":
			return c.undo()
		}
		return EffectNone
	}

	if t, ok := toolKeys[key]; ok && mods.none() {
		if c.spaceHeld {
			c.spaceSaved = t
			return EffectTool
		}
		return c.SetTool(t)
	}

	switch key {
	case "delete", "backspace":
		return c.deleteSelected()
	case "escape":
		c.endGesture()
		c.s.ClearSelection()
		return EffectSelection
	case "r":
		v := workspace.ViewSpectrum
		if c.hovering {
			v = c.hover
		}
		c.s.ResetView(v)
		return EffectView
	case "l":
		return c.link()
	case "d":
		return c.detect()
	case "space":
		if c.spaceHeld || !c.hovering {
			return EffectNone
		}
		c.spaceHeld = true
		c.spaceSaved = c.tool
		return c.SetTool(panToolFor(c.hover))
	}
	return EffectNone
}

// KeyUp handles a key release. Releasing space restores the tool that was
// active before the temporary pan.
func (c *Controller) KeyUp(key string) Effect {
	if strings.ToLower(key) != "space" || !c.spaceHeld {
		return EffectNone
	}
	c.spaceHeld = false
	return c.SetTool(c.spaceSaved)
}

func (c *Controller) undo() Effect {
	c.endGesture()
	if !c.s.Undo() {
		return EffectNone
	}
	return EffectWorkspace | EffectSelection | EffectView
}

func (c *Controller) redo() Effect {
	c.endGesture()
	if !c.s.Redo() {
		return EffectNone
	}
	return EffectWorkspace | EffectSelection | EffectView
}

func (c *Controller) deleteSelected() Effect {
	c.endGesture()
	peak, marker := c.s.Selection()
	if marker != "" && c.s.Focus() == workspace.ViewStructure {
		// A peak selected through its link goes first; an unrelated
		// earlier peak does not.
		if p, ok := c.s.Workspace().FindPeak(peak); !ok || p.MarkerID != marker {
			peak = ""
		}
	}
	switch {
	case peak != "":
		if err := c.s.DeletePeak(peak); err != nil {
			return EffectNone
		}
	case marker != "":
		if err := c.s.DeleteMarker(marker); err != nil {
			return EffectNone
		}
	default:
		return EffectNone
	}
	return EffectWorkspace | EffectSelection
}

func (c *Controller) link() Effect {
	peak, marker := c.s.Selection()
	if peak == "" || marker == "" {
		return EffectNone
	}
	if err := c.s.LinkPeak(peak, marker); err != nil {
		c.log.Debug("link failed", zap.Error(err))
		return EffectNone
	}
	return EffectWorkspace
}

func (c *Controller) detect() Effect {
	if _, err := c.s.DetectPeaks(c.s.Options().Peaks); err != nil {
		if !errors.Is(err, workspace.ErrNoTrace) {
			c.log.Warn("peak detection failed", zap.Error(err))
		}
		return EffectNone
	}
	return EffectWorkspace | EffectSelection
}
