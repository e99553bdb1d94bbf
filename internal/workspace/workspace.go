// Package workspace holds the annotation aggregate (peaks, markers,
// calibration, views) and the undo/redo session that mutates it.
package workspace

import (
	"errors"
	"fmt"

	"nmr-annotator/internal/shift"
	"nmr-annotator/internal/trace"
	"nmr-annotator/internal/view"
	"nmr-annotator/pkg/geometry"
)

var (
	ErrNotFound = errors.New("not found")
	ErrNoTrace  = errors.New("no trace loaded")
)

// Mode selects what backs the spectrum view.
type Mode int

const (
	ModeImage Mode = iota
	ModeTrace
)

func (m Mode) String() string {
	if m == ModeTrace {
		return "trace"
	}
	return "image"
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "image":
		*m = ModeImage
	case "trace":
		*m = ModeTrace
	default:
		return fmt.Errorf("unknown mode %q", b)
	}
	return nil
}

// ViewID names one of the two canvases.
type ViewID int

const (
	ViewSpectrum ViewID = iota
	ViewStructure
)

func (v ViewID) String() string {
	if v == ViewStructure {
		return "structure"
	}
	return "spectrum"
}

// Peak is an annotated point on the spectrum view.
type Peak struct {
	ID  string           `json:"id"`
	Pos geometry.Point2D `json:"pos"`

	// ShiftOverride is user text; when it parses it wins over Shift.
	ShiftOverride string `json:"shift_override,omitempty"`
	// Shift is derived from the calibration; nil when unavailable.
	Shift *float64 `json:"shift,omitempty"`

	Multiplicity string `json:"multiplicity,omitempty"`
	Integration  string `json:"integration,omitempty"`
	Note         string `json:"note,omitempty"`
	MarkerID     string `json:"marker_id,omitempty"`
}

// EffectiveShift is the parsed override if there is one, else the
// calibrated shift.
func (p Peak) EffectiveShift() *float64 {
	if v, ok := shift.ParseShift(p.ShiftOverride); ok {
		return &v
	}
	if p.Shift == nil {
		return nil
	}
	v := *p.Shift
	return &v
}

// Region classifies the effective shift.
func (p Peak) Region() shift.Region {
	return shift.ClassifyShift(p.EffectiveShift())
}

// Marker is a labelled position on the structure view.
type Marker struct {
	ID    string           `json:"id"`
	Pos   geometry.Point2D `json:"pos"`
	Label string           `json:"label"`
	Note  string           `json:"note,omitempty"`
}

// Workspace is the unit of undo/redo.
type Workspace struct {
	SpectrumName  string        `json:"spectrum_name,omitempty"`
	SpectrumSize  geometry.Size `json:"spectrum_size"`
	StructureName string        `json:"structure_name,omitempty"`
	StructureSize geometry.Size `json:"structure_size"`
	Mode          Mode          `json:"mode"`
	// Series is the plotted (normalized) trace. It is never mutated, so
	// snapshots share it.
	Series *trace.Series `json:"series,omitempty"`

	Calibration shift.Calibration `json:"calibration"`
	Peaks       []Peak            `json:"peaks"`
	Markers     []Marker          `json:"markers"`

	SpectrumView  view.Transform     `json:"spectrum_view"`
	StructureView view.Transform     `json:"structure_view"`
	TraceView     view.AxisTransform `json:"trace_view"`

	NextLabel int `json:"next_label"`
}

// New returns an empty workspace with identity views.
func New() *Workspace {
	return &Workspace{
		Peaks:         []Peak{},
		Markers:       []Marker{},
		SpectrumView:  view.Identity(),
		StructureView: view.Identity(),
		TraceView:     view.AxisTransform{ScaleX: 1, ScaleY: 1},
	}
}

// Clone deep-copies peaks, markers and calibration. The series is shared.
func (w *Workspace) Clone() *Workspace {
	out := *w
	out.Calibration = w.Calibration.Clone()
	out.Peaks = make([]Peak, len(w.Peaks))
	for i, p := range w.Peaks {
		if p.Shift != nil {
			v := *p.Shift
			p.Shift = &v
		}
		out.Peaks[i] = p
	}
	out.Markers = make([]Marker, len(w.Markers))
	copy(out.Markers, w.Markers)
	return &out
}

// PeakIndex returns the index of the peak with id, or -1.
func (w *Workspace) PeakIndex(id string) int {
	for i := range w.Peaks {
		if w.Peaks[i].ID == id {
			return i
		}
	}
	return -1
}

// MarkerIndex returns the index of the marker with id, or -1.
func (w *Workspace) MarkerIndex(id string) int {
	for i := range w.Markers {
		if w.Markers[i].ID == id {
			return i
		}
	}
	return -1
}

// FindPeak returns the peak with id.
func (w *Workspace) FindPeak(id string) (Peak, bool) {
	if i := w.PeakIndex(id); i >= 0 {
		return w.Peaks[i], true
	}
	return Peak{}, false
}

// FindMarker returns the marker with id.
func (w *Workspace) FindMarker(id string) (Marker, bool) {
	if i := w.MarkerIndex(id); i >= 0 {
		return w.Markers[i], true
	}
	return Marker{}, false
}

// RecomputeShifts refreshes every peak's derived shift from the calibration.
func (w *Workspace) RecomputeShifts() {
	for i := range w.Peaks {
		w.Peaks[i].Shift = w.Calibration.ShiftPtr(w.Peaks[i].Pos.X)
	}
}

// Annotations returns the advisory input for the current peaks.
func (w *Workspace) Annotations() []shift.Annotated {
	out := make([]shift.Annotated, len(w.Peaks))
	for i, p := range w.Peaks {
		out[i] = shift.Annotated{ID: p.ID, Shift: p.EffectiveShift(), Linked: p.MarkerID != ""}
	}
	return out
}

// Advisories runs the advisory rules over the workspace.
func (w *Workspace) Advisories() []shift.Advisory {
	return shift.Advise(w.Annotations(), len(w.Markers), w.Calibration.Complete())
}

// SpectrumMapper returns the transform backing the spectrum view in the
// current mode.
func (w *Workspace) SpectrumMapper() view.Mapper {
	if w.Mode == ModeTrace {
		return w.TraceView
	}
	return w.SpectrumView
}

// Mapper returns the transform for v.
func (w *Workspace) Mapper(v ViewID) view.Mapper {
	if v == ViewStructure {
		return w.StructureView
	}
	return w.SpectrumMapper()
}

// MarkerLabel returns the default label for the n-th marker: Ha..Hz, Haa...
func MarkerLabel(n int) string {
	var b []byte
	for n++; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('a' + (n-1)%26)}, b...)
	}
	return "H" + string(b)
}
