// Package render rasterizes the spectrum and structure views with their
// annotations. The desktop canvas and PNG export share it.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"nmr-annotator/internal/shift"
	"nmr-annotator/internal/view"
	"nmr-annotator/internal/workspace"
	"nmr-annotator/pkg/colorutil"
	"nmr-annotator/pkg/geometry"
)

const (
	peakRadius      = 6
	markerRadius    = 7
	selectedExtra   = 4
	labelOffsetX    = 9
	labelOffsetY    = -8
	calibrationDash = 6
)

// Selection marks entities drawn highlighted.
type Selection struct {
	PeakID   string
	MarkerID string
}

// Sources are the decoded images behind image-mode views. Either may be nil.
type Sources struct {
	Spectrum  image.Image
	Structure image.Image
}

// Options controls composite export.
type Options struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
	// Fit refits every view to the pane before drawing.
	Fit         bool    `yaml:"fit" json:"fit"`
	TraceMargin float64 `yaml:"trace_margin" json:"trace_margin"`
	ShowLinks   bool    `yaml:"show_links" json:"show_links"`
}

// DefaultOptions returns the default export layout.
func DefaultOptions() Options {
	return Options{Width: 800, Height: 500, Fit: true, TraceMargin: 24, ShowLinks: true}
}

// regionColors assigns each region a stable hue.
var regionColors = func() map[shift.Region]color.RGBA {
	regions := []shift.Region{
		shift.RegionAldehyde, shift.RegionCarboxylicAcid, shift.RegionAromatic,
		shift.RegionVinylic, shift.RegionHeteroAdjacent, shift.RegionAllylicBenzylic,
		shift.RegionAlkyl,
	}
	pal := colorutil.Palette(len(regions), 0.85, 0.8)
	m := map[shift.Region]color.RGBA{
		shift.RegionUnknown:     colorutil.Gray,
		shift.RegionUnusualLow:  colorutil.Red,
		shift.RegionUnusualHigh: colorutil.Red,
	}
	for i, r := range regions {
		m[r] = pal[i]
	}
	return m
}()

// RegionColor returns the annotation color for r.
func RegionColor(r shift.Region) color.RGBA {
	if c, ok := regionColors[r]; ok {
		return c
	}
	return colorutil.Gray
}

func newCanvas(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(img, img.Bounds(), image.NewUniform(colorutil.White), image.Point{}, xdraw.Src)
	return img
}

// drawImage paints src through a uniform view transform.
func drawImage(dst *image.RGBA, src image.Image, t view.Transform) {
	if src == nil || t.Scale <= 0 {
		return
	}
	b := src.Bounds()
	// src pixel (x,y) lands at canvas (x-minX)*s + off.
	m := f64.Aff3{
		t.Scale, 0, t.Offset.X - float64(b.Min.X)*t.Scale,
		0, t.Scale, t.Offset.Y - float64(b.Min.Y)*t.Scale,
	}
	xdraw.ApproxBiLinear.Transform(dst, m, src, b, xdraw.Over, nil)
}

func canvasXY(m view.Mapper, p geometry.Point2D) (int, int, bool) {
	c := m.ToCanvas(p)
	if !c.IsFinite() {
		return 0, 0, false
	}
	return int(math.Round(c.X)), int(math.Round(c.Y)), true
}

// Spectrum draws the spectrum view at size: the image or trace, the
// calibration references and the peaks.
func Spectrum(ws *workspace.Workspace, src image.Image, size image.Point, sel Selection) *image.RGBA {
	dst := newCanvas(size.X, size.Y)
	m := ws.Mapper(workspace.ViewSpectrum)

	if ws.Mode == workspace.ModeTrace {
		drawTrace(dst, ws, m)
	} else {
		drawImage(dst, src, ws.SpectrumView)
	}

	for i, p := range []*shift.RefPoint{ws.Calibration.P1, ws.Calibration.P2} {
		if p == nil {
			continue
		}
		x, _, ok := canvasXY(m, geometry.Point2D{X: p.WorldX})
		if !ok {
			continue
		}
		drawDashedVLine(dst, x, colorutil.Magenta, calibrationDash)
		label := fmt.Sprintf("R%d", i+1)
		if p.Target != "" {
			label += " " + p.Target
		}
		drawLabel(dst, label, x+3, 14+14*i, colorutil.Magenta, colorutil.White)
	}

	for _, p := range ws.Peaks {
		x, y, ok := canvasXY(m, p.Pos)
		if !ok {
			continue
		}
		col := RegionColor(p.Region())
		r := float64(peakRadius)
		if p.ID == sel.PeakID {
			drawCircle(dst, float64(x), float64(y), r+selectedExtra, colorutil.Orange, false, 2)
		}
		drawCircle(dst, float64(x), float64(y), r, col, false, 2)
		if label := PeakLabel(ws, p); label != "" {
			drawLabel(dst, label, x+labelOffsetX, y+labelOffsetY, colorutil.Black, colorutil.White)
		}
	}
	return dst
}

func drawTrace(dst *image.RGBA, ws *workspace.Workspace, m view.Mapper) {
	s := ws.Series
	if s.Len() < 2 {
		return
	}
	px, py, ok := canvasXY(m, geometry.Point2D{X: s.X[0], Y: s.Y[0]})
	for i := 1; i < s.Len(); i++ {
		x, y, ok2 := canvasXY(m, geometry.Point2D{X: s.X[i], Y: s.Y[i]})
		if ok && ok2 {
			drawLine(dst, px, py, x, y, colorutil.Blue, 1)
		}
		px, py, ok = x, y, ok2
	}
}

// PeakLabel is the text drawn next to a peak: its effective shift and
// the label of the marker it is linked to.
func PeakLabel(ws *workspace.Workspace, p workspace.Peak) string {
	label := ""
	if v := p.EffectiveShift(); v != nil {
		label = fmt.Sprintf("%.2f", *v)
	}
	if p.MarkerID != "" {
		if mk, ok := ws.FindMarker(p.MarkerID); ok {
			if label != "" {
				label += " "
			}
			label += mk.Label
		}
	}
	return label
}

// Structure draws the structure view at size with its markers.
func Structure(ws *workspace.Workspace, src image.Image, size image.Point, sel Selection) *image.RGBA {
	dst := newCanvas(size.X, size.Y)
	m := ws.Mapper(workspace.ViewStructure)
	drawImage(dst, src, ws.StructureView)

	for _, mk := range ws.Markers {
		x, y, ok := canvasXY(m, mk.Pos)
		if !ok {
			continue
		}
		if mk.ID == sel.MarkerID {
			drawCircle(dst, float64(x), float64(y), markerRadius+selectedExtra, colorutil.Orange, false, 2)
		}
		drawCircle(dst, float64(x), float64(y), markerRadius, colorutil.Cyan, true, 0)
		drawLabel(dst, mk.Label, x+labelOffsetX, y+labelOffsetY, colorutil.Black, colorutil.White)
	}
	return dst
}

// Composite draws the spectrum pane and the structure pane side by side,
// with link lines from each linked peak to its marker.
func Composite(ws *workspace.Workspace, src Sources, opts Options) *image.RGBA {
	if opts.Width <= 0 || opts.Height <= 0 {
		d := DefaultOptions()
		opts.Width, opts.Height = d.Width, d.Height
	}
	pane := image.Pt(opts.Width, opts.Height)
	if opts.Fit {
		ws = fitted(ws, pane, opts.TraceMargin)
	}
	left := Spectrum(ws, src.Spectrum, pane, Selection{})
	right := Structure(ws, src.Structure, pane, Selection{})

	dst := image.NewRGBA(image.Rect(0, 0, 2*opts.Width, opts.Height))
	xdraw.Draw(dst, left.Bounds(), left, image.Point{}, xdraw.Src)
	xdraw.Draw(dst, left.Bounds().Add(image.Pt(opts.Width, 0)), right, image.Point{}, xdraw.Src)
	drawLine(dst, opts.Width, 0, opts.Width, opts.Height-1, colorutil.LightGray, 1)

	if opts.ShowLinks {
		sm := ws.Mapper(workspace.ViewSpectrum)
		mm := ws.Mapper(workspace.ViewStructure)
		for _, p := range ws.Peaks {
			mk, ok := ws.FindMarker(p.MarkerID)
			if p.MarkerID == "" || !ok {
				continue
			}
			x1, y1, ok1 := canvasXY(sm, p.Pos)
			x2, y2, ok2 := canvasXY(mm, mk.Pos)
			if ok1 && ok2 {
				drawLine(dst, x1, y1, x2+opts.Width, y2, colorutil.Orange, 1)
			}
		}
	}
	return dst
}

// fitted returns a copy of ws with every view fitted to pane.
func fitted(ws *workspace.Workspace, pane image.Point, margin float64) *workspace.Workspace {
	out := ws.Clone()
	frame := geometry.NewSize(float64(pane.X), float64(pane.Y))
	lim := view.Limits{}
	out.SpectrumView = view.Fit(ws.SpectrumSize, frame, lim)
	out.StructureView = view.Fit(ws.StructureSize, frame, lim)
	if minX, maxX, minY, maxY, ok := ws.Series.Bounds(); ok {
		out.TraceView = view.FitAxis(view.Bounds{MinX: minX, MaxX: maxX, MinY: minY, MaxY: maxY}, frame, margin, true)
	}
	return out
}

// WritePNG encodes img as PNG.
func WritePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// SavePNG writes img to path.
func SavePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WritePNG(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
