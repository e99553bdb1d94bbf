package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nmr-annotator/internal/shift"
	"nmr-annotator/internal/trace"
	"nmr-annotator/internal/workspace"
	"nmr-annotator/pkg/colorutil"
	"nmr-annotator/pkg/geometry"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func session() *workspace.Session {
	s := workspace.NewSession(workspace.DefaultOptions(), nil)
	s.SetFrame(workspace.ViewSpectrum, geometry.NewSize(200, 100))
	s.SetFrame(workspace.ViewStructure, geometry.NewSize(100, 100))
	s.LoadSpectrumImage("s.png", 200, 100)
	s.LoadStructure("m.png", 100, 100)
	return s
}

func TestSpectrumDrawsImageAndPeaks(t *testing.T) {
	s := session()
	id := s.AddPeak(geometry.Point2D{X: 150, Y: 50})
	src := solid(200, 100, color.RGBA{R: 10, G: 200, B: 10, A: 255})

	img := Spectrum(s.Workspace(), src, image.Pt(200, 100), Selection{PeakID: id})
	assert.Equal(t, image.Rect(0, 0, 200, 100), img.Bounds())

	// background comes from the source image
	assert.NotEqual(t, colorutil.White, img.RGBAAt(20, 80))
	// ring of the uncalibrated peak is drawn in the unknown-region color
	assert.Equal(t, RegionColor(shift.RegionUnknown), img.RGBAAt(150+peakRadius-1, 50))
	// selection ring
	assert.Equal(t, colorutil.Orange, img.RGBAAt(150+peakRadius+selectedExtra-1, 50))
}

func TestSpectrumCalibrationLines(t *testing.T) {
	s := session()
	s.SetCalibrationPoint(40)
	img := Spectrum(s.Workspace(), nil, image.Pt(200, 100), Selection{})
	assert.Equal(t, colorutil.Magenta, img.RGBAAt(40, 86))
}

func TestSpectrumTrace(t *testing.T) {
	s := session()
	raw := &trace.Series{X: []float64{0, 1, 2, 3}, Y: []float64{0, 1, 0, 1}}
	s.LoadTrace("t", raw)
	img := Spectrum(s.Workspace(), nil, image.Pt(200, 100), Selection{})

	m := s.Workspace().Mapper(workspace.ViewSpectrum)
	c := m.ToCanvas(geometry.Point2D{X: 1, Y: 1})
	assert.Equal(t, colorutil.Blue, img.RGBAAt(int(c.X+0.5), int(c.Y+0.5)))
}

func TestStructureMarkers(t *testing.T) {
	s := session()
	s.AddMarker(geometry.Point2D{X: 30, Y: 70})
	img := Structure(s.Workspace(), nil, image.Pt(100, 100), Selection{})
	assert.Equal(t, colorutil.Cyan, img.RGBAAt(30, 70))
}

func TestPeakLabel(t *testing.T) {
	s := session()
	p := s.AddPeak(geometry.Point2D{X: 1, Y: 1})
	m := s.AddMarker(geometry.Point2D{})
	ws := s.Workspace()
	pk, _ := ws.FindPeak(p)
	assert.Empty(t, PeakLabel(ws, pk))

	override := "7.259"
	require.NoError(t, s.UpdatePeak(p, workspace.PeakFields{ShiftOverride: &override}))
	require.NoError(t, s.LinkPeak(p, m))
	ws = s.Workspace()
	pk, _ = ws.FindPeak(p)
	assert.Equal(t, "7.26 Ha", PeakLabel(ws, pk))
}

func TestRegionColorsDistinct(t *testing.T) {
	seen := map[color.RGBA]shift.Region{}
	for r := shift.RegionAldehyde; r <= shift.RegionAlkyl; r++ {
		c := RegionColor(r)
		_, dup := seen[c]
		assert.False(t, dup, r.String())
		seen[c] = r
	}
	assert.Equal(t, colorutil.Gray, RegionColor(shift.Region(42)))
}

func TestCompositeAndPNG(t *testing.T) {
	s := session()
	p := s.AddPeak(geometry.Point2D{X: 20, Y: 20})
	m := s.AddMarker(geometry.Point2D{X: 50, Y: 50})
	require.NoError(t, s.LinkPeak(p, m))

	img := Composite(s.Workspace(), Sources{}, Options{Width: 120, Height: 80, Fit: true, ShowLinks: true})
	assert.Equal(t, image.Rect(0, 0, 240, 80), img.Bounds())

	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, img))
	back, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), back.Bounds())

	path := filepath.Join(t.TempDir(), "out.png")
	require.NoError(t, SavePNG(path, img))
	assert.Error(t, SavePNG(filepath.Join(t.TempDir(), "missing", "out.png"), img))
}

func TestCompositeDefaultsSize(t *testing.T) {
	img := Composite(workspace.New(), Sources{}, Options{})
	d := DefaultOptions()
	assert.Equal(t, image.Rect(0, 0, 2*d.Width, d.Height), img.Bounds())
}
