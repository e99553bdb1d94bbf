package project

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nmr-annotator/internal/trace"
	"nmr-annotator/internal/workspace"
	"nmr-annotator/pkg/geometry"
)

func annotated(t *testing.T) *workspace.Workspace {
	t.Helper()
	s := workspace.NewSession(workspace.DefaultOptions(), nil)
	s.SetFrame(workspace.ViewSpectrum, geometry.NewSize(640, 320))
	s.SetFrame(workspace.ViewStructure, geometry.NewSize(300, 300))
	s.LoadTrace("ethanol.jdx", &trace.Series{
		X:    []float64{0.5, 1.0, 1.5, 2.0, 2.5, 3.0, 3.5, 4.0},
		Y:    []float64{0.1, 0.9, 0.2, 0.1, 0.3, 0.1, 0.7, 0.1},
		Meta: map[string]string{"TITLE": "ethanol"},
	})
	s.LoadStructure("ethanol_structure.png", 200, 150)
	_, err := s.DetectPeaks(trace.PeakOptions{MaxPeaks: 5, MinProminence: 0.01, MinDistance: 1})
	require.NoError(t, err)
	ws := s.Workspace()
	m := s.AddMarker(geometry.Point2D{X: 12.5, Y: 80.25})
	require.NoError(t, s.LinkPeak(ws.Peaks[0].ID, m))
	s.SetCalibrationPoint(1.0)
	s.SetCalibrationPoint(3.5)
	require.NoError(t, s.SetCalibrationTarget(1, "1.2"))
	require.NoError(t, s.SetCalibrationTarget(2, "3.7"))
	note, mult := "CH3", "t"
	require.NoError(t, s.UpdatePeak(ws.Peaks[0].ID, workspace.PeakFields{Note: &note, Multiplicity: &mult}))
	s.ZoomView(workspace.ViewSpectrum, geometry.Point2D{X: 100, Y: 40}, 1.7, 0.9)
	return s.Snapshot()
}

func TestRoundTripIsExact(t *testing.T) {
	ws := annotated(t)
	require.NotEmpty(t, ws.Peaks)
	require.NotNil(t, ws.Peaks[0].Shift)

	var buf bytes.Buffer
	require.NoError(t, New("ethanol", ws).Write(&buf))
	got, err := Read(&buf)
	require.NoError(t, err)

	if diff := cmp.Diff(ws, got.Workspace); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, CurrentVersion, got.Version)
	assert.Equal(t, "ethanol", got.Name)
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "exports", "a.nmrws.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))

	f := New("a", annotated(t))
	f.SetSpectrumSource(path, filepath.Join(dir, "data", "ethanol.jdx"))
	f.SetStructureSource(path, "")
	require.NoError(t, f.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("..", "data", "ethanol.jdx"), got.SpectrumPath)
	assert.Equal(t, filepath.Join(dir, "data", "ethanol.jdx"), got.SpectrumSource(path))
	assert.Empty(t, got.StructureSource(path))
	assert.True(t, f.ExportedAt.Equal(got.ExportedAt))
	assert.Empty(t, cmp.Diff(f.Workspace, got.Workspace))
}

func TestReadRejects(t *testing.T) {
	_, err := Read(strings.NewReader(`{"version": 1}`))
	assert.ErrorIs(t, err, ErrNoWorkspace)

	_, err = Read(strings.NewReader(`{"version": 99, "workspace": {}}`))
	assert.ErrorContains(t, err, "newer")

	_, err = Read(strings.NewReader(`{`))
	assert.Error(t, err)
}

func TestReadFillsEmptyCollections(t *testing.T) {
	got, err := Read(strings.NewReader(`{"version": 1, "workspace": {"mode": "image"}}`))
	require.NoError(t, err)
	assert.NotNil(t, got.Workspace.Peaks)
	assert.NotNil(t, got.Workspace.Markers)
}

func TestNewCopiesWorkspace(t *testing.T) {
	ws := workspace.New()
	f := New("x", ws)
	ws.SpectrumName = "changed"
	assert.Empty(t, f.Workspace.SpectrumName)
}
