// Package canvas provides the spectrum and structure view widgets.
package canvas

import (
	"image"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"nmr-annotator/internal/app"
	"nmr-annotator/internal/interact"
	"nmr-annotator/internal/render"
	"nmr-annotator/internal/workspace"
	"nmr-annotator/pkg/geometry"
)

// ViewCanvas draws one view of the workspace and feeds pointer input to
// the interaction controller.
type ViewCanvas struct {
	widget.BaseWidget

	state *app.State
	view  workspace.ViewID

	raster *fynecanvas.Raster
	frame  fyne.Size
	mods   interact.Modifiers

	// Hover feedback (status bar)
	onHover func(v workspace.ViewID, world geometry.Point2D)
}

var (
	_ desktop.Mouseable = (*ViewCanvas)(nil)
	_ desktop.Hoverable = (*ViewCanvas)(nil)
	_ fyne.Scrollable   = (*ViewCanvas)(nil)
	_ fyne.Draggable    = (*ViewCanvas)(nil)
)

// NewViewCanvas creates a canvas for view v.
func NewViewCanvas(state *app.State, v workspace.ViewID) *ViewCanvas {
	vc := &ViewCanvas{state: state, view: v}
	vc.raster = fynecanvas.NewRaster(vc.draw)
	vc.raster.SetMinSize(fyne.NewSize(200, 150))
	vc.ExtendBaseWidget(vc)
	return vc
}

// View returns which view the canvas shows.
func (vc *ViewCanvas) View() workspace.ViewID { return vc.view }

// OnHover sets a callback for the world position under the pointer.
func (vc *ViewCanvas) OnHover(f func(v workspace.ViewID, world geometry.Point2D)) {
	vc.onHover = f
}

func (vc *ViewCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &viewRenderer{vc: vc}
}

// draw renders at the widget's logical size so that pointer positions
// and pixels share one coordinate space; the raster scales to the device.
func (vc *ViewCanvas) draw(w, h int) image.Image {
	size := vc.Size()
	lw, lh := int(size.Width), int(size.Height)
	if lw <= 0 || lh <= 0 {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}
	return vc.state.RenderView(vc.view, lw, lh)
}

func (vc *ViewCanvas) resized(size fyne.Size) {
	if size == vc.frame {
		return
	}
	vc.frame = size
	vc.state.SetFrame(vc.view, geometry.NewSize(float64(size.Width), float64(size.Height)))
}

func toPoint(p fyne.Position) geometry.Point2D {
	return geometry.Point2D{X: float64(p.X), Y: float64(p.Y)}
}

func toModifiers(m fyne.KeyModifier) interact.Modifiers {
	return interact.Modifiers{
		Shift: m&fyne.KeyModifierShift != 0,
		Ctrl:  m&fyne.KeyModifierControl != 0,
		Alt:   m&fyne.KeyModifierAlt != 0,
		Meta:  m&fyne.KeyModifierSuper != 0,
	}
}

func (vc *ViewCanvas) input(f func(c *interact.Controller) interact.Effect) {
	if e := vc.state.Input(f); e != interact.EffectNone {
		vc.raster.Refresh()
	}
}

// MouseDown starts a gesture with the primary button.
func (vc *ViewCanvas) MouseDown(ev *desktop.MouseEvent) {
	vc.mods = toModifiers(ev.Modifier)
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	p := toPoint(ev.Position)
	vc.input(func(c *interact.Controller) interact.Effect { return c.PointerDown(vc.view, p) })
}

// MouseUp ends the gesture.
func (vc *ViewCanvas) MouseUp(ev *desktop.MouseEvent) {
	p := toPoint(ev.Position)
	vc.input(func(c *interact.Controller) interact.Effect { return c.PointerUp(vc.view, p) })
}

func (vc *ViewCanvas) MouseIn(ev *desktop.MouseEvent) {
	vc.MouseMoved(ev)
}

// MouseMoved tracks the hovered view and reports the world position.
func (vc *ViewCanvas) MouseMoved(ev *desktop.MouseEvent) {
	vc.mods = toModifiers(ev.Modifier)
	p := toPoint(ev.Position)
	vc.input(func(c *interact.Controller) interact.Effect { return c.PointerMove(vc.view, p) })
	if vc.onHover != nil {
		var world geometry.Point2D
		vc.state.View(func(ws *workspace.Workspace, _ render.Selection) {
			world = ws.Mapper(vc.view).ToWorld(p)
		})
		vc.onHover(vc.view, world)
	}
}

func (vc *ViewCanvas) MouseOut() {
	vc.input(func(c *interact.Controller) interact.Effect { return c.PointerLeave(vc.view) })
}

// Dragged is delivered instead of MouseMoved while a button is held.
func (vc *ViewCanvas) Dragged(ev *fyne.DragEvent) {
	p := toPoint(ev.Position)
	vc.input(func(c *interact.Controller) interact.Effect { return c.PointerMove(vc.view, p) })
}

func (vc *ViewCanvas) DragEnd() {}

// Scrolled zooms about the pointer. Shift (from the last mouse event)
// restricts trace zoom to x.
func (vc *ViewCanvas) Scrolled(ev *fyne.ScrollEvent) {
	p := toPoint(ev.Position)
	dy := float64(ev.Scrolled.DY)
	mods := vc.mods
	vc.input(func(c *interact.Controller) interact.Effect { return c.Wheel(vc.view, p, dy, mods) })
}

type viewRenderer struct {
	vc *ViewCanvas
}

func (r *viewRenderer) Layout(size fyne.Size) {
	r.vc.raster.Resize(size)
	r.vc.resized(size)
}

func (r *viewRenderer) MinSize() fyne.Size {
	return r.vc.raster.MinSize()
}

func (r *viewRenderer) Refresh() {
	r.vc.raster.Refresh()
}

func (r *viewRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.vc.raster}
}

func (r *viewRenderer) Destroy() {}
