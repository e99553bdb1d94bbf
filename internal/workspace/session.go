package workspace

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nmr-annotator/internal/shift"
	"nmr-annotator/internal/trace"
	"nmr-annotator/internal/view"
	"nmr-annotator/pkg/geometry"
)

// Options configures a Session.
type Options struct {
	UndoDepth    int
	Limits       view.Limits
	TraceMargin  float64
	TraceInvertX bool
	Normalize    trace.NormalizeOptions
	Peaks        trace.PeakOptions
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		UndoDepth:    DefaultUndoDepth,
		Limits:       view.DefaultLimits(),
		TraceMargin:  24,
		TraceInvertX: true,
		Normalize:    trace.DefaultNormalizeOptions(),
		Peaks:        trace.DefaultPeakOptions(),
	}
}

// PeakFields is a partial update of a peak's free-text fields.
// Nil fields are left alone.
type PeakFields struct {
	ShiftOverride *string
	Multiplicity  *string
	Integration   *string
	Note          *string
}

// MarkerFields is a partial update of a marker.
type MarkerFields struct {
	Label *string
	Note  *string
}

// Session owns the current workspace, its history and the selection.
// It is not safe for concurrent use; callers serialize access.
type Session struct {
	ws   *Workspace
	hist *History
	opts Options
	log  *zap.Logger

	selPeak   string
	selMarker string
	focus     ViewID

	frames map[ViewID]geometry.Size

	// Inside a gesture only the first mutation checkpoints.
	inGesture   bool
	gestureSnap bool
}

// NewSession creates a session over an empty workspace.
func NewSession(opts Options, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		ws:     New(),
		hist:   NewHistory(opts.UndoDepth),
		opts:   opts,
		log:    log,
		frames: make(map[ViewID]geometry.Size),
	}
}

// Workspace returns the live workspace. Callers must not mutate it.
func (s *Session) Workspace() *Workspace { return s.ws }

// Snapshot returns a deep copy of the workspace.
func (s *Session) Snapshot() *Workspace { return s.ws.Clone() }

// Options returns the session options.
func (s *Session) Options() Options { return s.opts }

// History exposes the undo/redo stacks.
func (s *Session) History() *History { return s.hist }

func (s *Session) checkpoint() {
	if s.inGesture {
		if s.gestureSnap {
			return
		}
		s.gestureSnap = true
	}
	s.hist.Push(s.ws.Clone())
}

// BeginGesture groups the mutations that follow into one undo entry.
func (s *Session) BeginGesture() {
	s.inGesture = true
	s.gestureSnap = false
}

// EndGesture closes the current gesture.
func (s *Session) EndGesture() {
	s.inGesture = false
	s.gestureSnap = false
}

// InGesture reports whether a gesture is open.
func (s *Session) InGesture() bool { return s.inGesture }

// AddPeak places a new peak at a spectrum world position and returns its id.
func (s *Session) AddPeak(pos geometry.Point2D) string {
	s.checkpoint()
	p := Peak{ID: uuid.NewString(), Pos: pos, Shift: s.ws.Calibration.ShiftPtr(pos.X)}
	s.ws.Peaks = append(s.ws.Peaks, p)
	s.log.Debug("peak added", zap.String("peak", p.ID), zap.Float64("x", pos.X), zap.Float64("y", pos.Y))
	return p.ID
}

// MovePeak moves a peak and refreshes its shift.
func (s *Session) MovePeak(id string, pos geometry.Point2D) error {
	i := s.ws.PeakIndex(id)
	if i < 0 {
		return fmt.Errorf("peak %s: %w", id, ErrNotFound)
	}
	s.checkpoint()
	s.ws.Peaks[i].Pos = pos
	s.ws.Peaks[i].Shift = s.ws.Calibration.ShiftPtr(pos.X)
	return nil
}

// DeletePeak removes a peak.
func (s *Session) DeletePeak(id string) error {
	i := s.ws.PeakIndex(id)
	if i < 0 {
		return fmt.Errorf("peak %s: %w", id, ErrNotFound)
	}
	s.checkpoint()
	s.ws.Peaks = append(s.ws.Peaks[:i], s.ws.Peaks[i+1:]...)
	if s.selPeak == id {
		s.selPeak = ""
	}
	s.log.Debug("peak deleted", zap.String("peak", id))
	return nil
}

// UpdatePeak edits a peak's free-text fields.
func (s *Session) UpdatePeak(id string, f PeakFields) error {
	i := s.ws.PeakIndex(id)
	if i < 0 {
		return fmt.Errorf("peak %s: %w", id, ErrNotFound)
	}
	s.checkpoint()
	p := &s.ws.Peaks[i]
	if f.ShiftOverride != nil {
		p.ShiftOverride = *f.ShiftOverride
	}
	if f.Multiplicity != nil {
		p.Multiplicity = *f.Multiplicity
	}
	if f.Integration != nil {
		p.Integration = *f.Integration
	}
	if f.Note != nil {
		p.Note = *f.Note
	}
	return nil
}

// ReplacePeaks clears all peaks and adds one per point, as one undo step.
// It returns the new ids in order.
func (s *Session) ReplacePeaks(points []geometry.Point2D) []string {
	s.checkpoint()
	s.ws.Peaks = make([]Peak, 0, len(points))
	ids := make([]string, 0, len(points))
	for _, pt := range points {
		p := Peak{ID: uuid.NewString(), Pos: pt, Shift: s.ws.Calibration.ShiftPtr(pt.X)}
		s.ws.Peaks = append(s.ws.Peaks, p)
		ids = append(ids, p.ID)
	}
	s.selPeak = ""
	s.log.Debug("peaks replaced", zap.Int("count", len(points)))
	return ids
}

// DetectPeaks runs the detector over the plotted trace and replaces the
// peaks with its results.
func (s *Session) DetectPeaks(opts trace.PeakOptions) ([]string, error) {
	if s.ws.Mode != ModeTrace || s.ws.Series.Len() == 0 {
		return nil, ErrNoTrace
	}
	found := trace.DetectPeaks(s.ws.Series.X, s.ws.Series.Y, opts)
	pts := make([]geometry.Point2D, len(found))
	for i, p := range found {
		pts[i] = geometry.Point2D{X: p.X, Y: p.Y}
	}
	s.log.Info("peaks detected", zap.Int("count", len(found)))
	return s.ReplacePeaks(pts), nil
}

// AddMarker places a structural marker with the next default label.
func (s *Session) AddMarker(pos geometry.Point2D) string {
	s.checkpoint()
	m := Marker{ID: uuid.NewString(), Pos: pos, Label: MarkerLabel(s.ws.NextLabel)}
	s.ws.NextLabel++
	s.ws.Markers = append(s.ws.Markers, m)
	s.log.Debug("marker added", zap.String("marker", m.ID), zap.String("label", m.Label))
	return m.ID
}

// MoveMarker moves a marker.
func (s *Session) MoveMarker(id string, pos geometry.Point2D) error {
	i := s.ws.MarkerIndex(id)
	if i < 0 {
		return fmt.Errorf("marker %s: %w", id, ErrNotFound)
	}
	s.checkpoint()
	s.ws.Markers[i].Pos = pos
	return nil
}

// DeleteMarker removes a marker and clears every peak link to it.
func (s *Session) DeleteMarker(id string) error {
	i := s.ws.MarkerIndex(id)
	if i < 0 {
		return fmt.Errorf("marker %s: %w", id, ErrNotFound)
	}
	s.checkpoint()
	s.ws.Markers = append(s.ws.Markers[:i], s.ws.Markers[i+1:]...)
	unlinked := 0
	for j := range s.ws.Peaks {
		if s.ws.Peaks[j].MarkerID == id {
			s.ws.Peaks[j].MarkerID = ""
			unlinked++
		}
	}
	if s.selMarker == id {
		s.selMarker = ""
	}
	s.log.Debug("marker deleted", zap.String("marker", id), zap.Int("unlinked", unlinked))
	return nil
}

// UpdateMarker edits a marker's label or note.
func (s *Session) UpdateMarker(id string, f MarkerFields) error {
	i := s.ws.MarkerIndex(id)
	if i < 0 {
		return fmt.Errorf("marker %s: %w", id, ErrNotFound)
	}
	s.checkpoint()
	if f.Label != nil {
		s.ws.Markers[i].Label = *f.Label
	}
	if f.Note != nil {
		s.ws.Markers[i].Note = *f.Note
	}
	return nil
}

// LinkPeak points a peak at a marker. An empty markerID unlinks.
func (s *Session) LinkPeak(peakID, markerID string) error {
	i := s.ws.PeakIndex(peakID)
	if i < 0 {
		return fmt.Errorf("peak %s: %w", peakID, ErrNotFound)
	}
	if markerID != "" && s.ws.MarkerIndex(markerID) < 0 {
		return fmt.Errorf("marker %s: %w", markerID, ErrNotFound)
	}
	s.checkpoint()
	s.ws.Peaks[i].MarkerID = markerID
	return nil
}

// SetCalibrationPoint applies a calibration-tool click at worldX and
// returns which reference point (1 or 2) it set.
func (s *Session) SetCalibrationPoint(worldX float64) int {
	s.checkpoint()
	n := s.ws.Calibration.Pick(worldX)
	s.ws.RecomputeShifts()
	s.log.Debug("calibration point", zap.Int("index", n), zap.Float64("x", worldX))
	return n
}

// SetCalibrationTarget sets the shift text of reference point index.
func (s *Session) SetCalibrationTarget(index int, text string) error {
	p := s.ws.Calibration.Point(index)
	if p == nil {
		return fmt.Errorf("calibration point %d: %w", index, ErrNotFound)
	}
	s.checkpoint()
	p.Target = text
	s.ws.RecomputeShifts()
	return nil
}

// ApplyCalibration recomputes every peak's shift. It reports whether the
// calibration is complete.
func (s *Session) ApplyCalibration() bool {
	s.checkpoint()
	s.ws.RecomputeShifts()
	ok := s.ws.Calibration.Complete()
	s.log.Info("calibration applied", zap.Bool("complete", ok), zap.Int("peaks", len(s.ws.Peaks)))
	return ok
}

// LoadSpectrumImage switches to image mode for a w x h spectrum image.
// Peaks and calibration are reset.
func (s *Session) LoadSpectrumImage(name string, w, h int) {
	s.checkpoint()
	s.ws.SpectrumName = name
	s.ws.SpectrumSize = geometry.NewSize(float64(w), float64(h))
	s.ws.Mode = ModeImage
	s.ws.Series = nil
	s.resetSpectrum()
	s.ws.SpectrumView = view.Fit(s.ws.SpectrumSize, s.frame(ViewSpectrum), s.opts.Limits)
	s.log.Info("spectrum image loaded", zap.String("name", name), zap.Int("width", w), zap.Int("height", h))
}

// LoadTrace switches to trace mode, plotting raw normalized with the
// session options. Peaks and calibration are reset.
func (s *Session) LoadTrace(name string, raw *trace.Series) {
	s.checkpoint()
	s.ws.SpectrumName = name
	s.ws.Mode = ModeTrace
	s.ws.Series = raw.Normalized(s.opts.Normalize)
	s.ws.SpectrumSize = geometry.Size{}
	s.resetSpectrum()
	s.ws.TraceView = s.fitTrace()
	s.log.Info("trace loaded", zap.String("name", name), zap.Int("samples", s.ws.Series.Len()))
}

func (s *Session) resetSpectrum() {
	s.ws.Peaks = []Peak{}
	s.ws.Calibration = shift.Calibration{}
	s.selPeak = ""
}

// LoadStructure replaces the structure image. Markers are dropped and
// peak links cleared.
func (s *Session) LoadStructure(name string, w, h int) {
	s.checkpoint()
	s.ws.StructureName = name
	s.ws.StructureSize = geometry.NewSize(float64(w), float64(h))
	s.ws.Markers = []Marker{}
	s.ws.NextLabel = 0
	for i := range s.ws.Peaks {
		s.ws.Peaks[i].MarkerID = ""
	}
	s.selMarker = ""
	s.ws.StructureView = view.Fit(s.ws.StructureSize, s.frame(ViewStructure), s.opts.Limits)
	s.log.Info("structure loaded", zap.String("name", name), zap.Int("width", w), zap.Int("height", h))
}

// Restore replaces the workspace wholesale, as one undo step.
func (s *Session) Restore(ws *Workspace) {
	s.checkpoint()
	s.ws = ws.Clone()
	s.ClearSelection()
}

// Undo steps back. It returns false when there is nothing to undo.
func (s *Session) Undo() bool {
	prev, ok := s.hist.Undo(s.ws)
	if !ok {
		return false
	}
	s.ws = prev
	s.pruneSelection()
	return true
}

// Redo steps forward. It returns false when there is nothing to redo.
func (s *Session) Redo() bool {
	next, ok := s.hist.Redo(s.ws)
	if !ok {
		return false
	}
	s.ws = next
	s.pruneSelection()
	return true
}

func (s *Session) pruneSelection() {
	if s.selPeak != "" && s.ws.PeakIndex(s.selPeak) < 0 {
		s.selPeak = ""
	}
	if s.selMarker != "" && s.ws.MarkerIndex(s.selMarker) < 0 {
		s.selMarker = ""
	}
}

// Selection returns the selected peak and marker ids.
func (s *Session) Selection() (peakID, markerID string) {
	return s.selPeak, s.selMarker
}

// Focus returns the view whose entity was selected last.
func (s *Session) Focus() ViewID {
	return s.focus
}

// SelectPeak selects a peak, and the marker it is linked to.
func (s *Session) SelectPeak(id string) {
	p, ok := s.ws.FindPeak(id)
	if !ok {
		return
	}
	s.selPeak = id
	s.focus = ViewSpectrum
	if p.MarkerID != "" {
		s.selMarker = p.MarkerID
	}
}

// SelectMarker selects a marker, and the first peak linked to it.
func (s *Session) SelectMarker(id string) {
	if s.ws.MarkerIndex(id) < 0 {
		return
	}
	s.selMarker = id
	s.focus = ViewStructure
	for _, p := range s.ws.Peaks {
		if p.MarkerID == id {
			s.selPeak = p.ID
			return
		}
	}
}

// ClearSelection deselects everything.
func (s *Session) ClearSelection() {
	s.selPeak, s.selMarker = "", ""
}

// SetFrame records the canvas size of a view. A view that was never
// fitted is fitted now.
func (s *Session) SetFrame(v ViewID, size geometry.Size) {
	first := s.frames[v].Empty()
	s.frames[v] = size
	if first {
		s.ResetView(v)
	}
}

func (s *Session) frame(v ViewID) geometry.Size {
	return s.frames[v]
}

// Mapper returns the current transform of v.
func (s *Session) Mapper(v ViewID) view.Mapper {
	return s.ws.Mapper(v)
}

// ZoomView zooms v about a canvas point. fy only applies to the trace view;
// uniform views use fx.
func (s *Session) ZoomView(v ViewID, cursor geometry.Point2D, fx, fy float64) {
	switch {
	case v == ViewStructure:
		s.ws.StructureView.ZoomAt(cursor, fx, s.opts.Limits)
	case s.ws.Mode == ModeTrace:
		s.ws.TraceView.ZoomAt(cursor, fx, fy, s.opts.Limits)
	default:
		s.ws.SpectrumView.ZoomAt(cursor, fx, s.opts.Limits)
	}
}

// PanView moves v by a canvas delta.
func (s *Session) PanView(v ViewID, dx, dy float64) {
	switch {
	case v == ViewStructure:
		s.ws.StructureView.Pan(dx, dy)
	case s.ws.Mode == ModeTrace:
		s.ws.TraceView.Pan(dx, dy)
	default:
		s.ws.SpectrumView.Pan(dx, dy)
	}
}

// ViewOffset returns the canvas offset of v.
func (s *Session) ViewOffset(v ViewID) geometry.Point2D {
	switch {
	case v == ViewStructure:
		return s.ws.StructureView.Offset
	case s.ws.Mode == ModeTrace:
		return s.ws.TraceView.Offset
	default:
		return s.ws.SpectrumView.Offset
	}
}

// SetViewOffset sets the canvas offset of v.
func (s *Session) SetViewOffset(v ViewID, off geometry.Point2D) {
	switch {
	case v == ViewStructure:
		s.ws.StructureView.Offset = off
	case s.ws.Mode == ModeTrace:
		s.ws.TraceView.Offset = off
	default:
		s.ws.SpectrumView.Offset = off
	}
}

// ResetView fits v's content into its frame.
func (s *Session) ResetView(v ViewID) {
	switch {
	case v == ViewStructure:
		s.ws.StructureView = view.Fit(s.ws.StructureSize, s.frame(ViewStructure), s.opts.Limits)
	case s.ws.Mode == ModeTrace:
		s.ws.TraceView = s.fitTrace()
	default:
		s.ws.SpectrumView = view.Fit(s.ws.SpectrumSize, s.frame(ViewSpectrum), s.opts.Limits)
	}
}

func (s *Session) fitTrace() view.AxisTransform {
	minX, maxX, minY, maxY, ok := s.ws.Series.Bounds()
	frame := s.frame(ViewSpectrum)
	if !ok || frame.Empty() {
		return view.AxisTransform{ScaleX: 1, ScaleY: 1}
	}
	return view.FitAxis(view.Bounds{MinX: minX, MaxX: maxX, MinY: minY, MaxY: maxY},
		frame, s.opts.TraceMargin, s.opts.TraceInvertX)
}
