// Package app ties the annotation session to file loading, export and
// change events.
package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"nmr-annotator/internal/archive"
	"nmr-annotator/internal/config"
	layer "nmr-annotator/internal/image"
	"nmr-annotator/internal/interact"
	"nmr-annotator/internal/project"
	"nmr-annotator/internal/render"
	"nmr-annotator/internal/shift"
	"nmr-annotator/internal/trace"
	"nmr-annotator/internal/workspace"
	"nmr-annotator/pkg/geometry"
)

// ErrSuperseded is reported by a load that finished after a newer load
// for the same slot had started.
var ErrSuperseded = errors.New("load superseded by a newer load")

// Slot identifies what a load replaces.
type Slot int

const (
	SlotSpectrum Slot = iota
	SlotStructure
)

// EventType identifies different application events.
type EventType int

const (
	EventSpectrumLoaded EventType = iota
	EventStructureLoaded
	EventLoadFailed
	EventWorkspaceChanged
	EventSelectionChanged
	EventViewChanged
	EventToolChanged
	EventExported
	EventImported
	EventModified
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// State holds the session, the loaded images and the export location.
// All access goes through its methods, which serialize on mu.
type State struct {
	mu sync.Mutex

	cfg     *config.Config
	log     *zap.Logger
	session *workspace.Session
	ctrl    *interact.Controller

	spectrumLayer  *layer.Layer
	structureLayer *layer.Layer
	spectrumPath   string
	structurePath  string

	exportPath string
	modified   bool

	gen      map[Slot]uint64
	loads    sync.WaitGroup
	dispatch func(func())

	lmu       sync.RWMutex
	listeners map[EventType][]EventListener
}

// NewState creates the application state. A nil cfg uses the defaults.
func NewState(cfg *config.Config, log *zap.Logger) *State {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}
	sess := workspace.NewSession(cfg.SessionOptions(), log.Named("workspace"))
	return &State{
		cfg:       cfg,
		log:       log,
		session:   sess,
		ctrl:      interact.New(sess, cfg.ControllerOptions(), log.Named("interact")),
		gen:       make(map[Slot]uint64),
		dispatch:  func(f func()) { f() },
		listeners: make(map[EventType][]EventListener),
	}
}

// SetDispatcher sets how load completions are delivered to the event
// thread. The default runs them on the loading goroutine.
func (s *State) SetDispatcher(d func(func())) {
	s.mu.Lock()
	s.dispatch = d
	s.mu.Unlock()
}

// Config returns the configuration.
func (s *State) Config() *config.Config { return s.cfg }

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.lmu.RLock()
	listeners := s.listeners[event]
	s.lmu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

func (s *State) emitEffect(e interact.Effect) {
	if e.Has(interact.EffectWorkspace) {
		s.Emit(EventWorkspaceChanged, nil)
		s.Emit(EventModified, true)
	}
	if e.Has(interact.EffectSelection) {
		s.Emit(EventSelectionChanged, nil)
	}
	if e.Has(interact.EffectView) {
		s.Emit(EventViewChanged, nil)
	}
	if e.Has(interact.EffectTool) {
		s.Emit(EventToolChanged, nil)
	}
}

// Input runs an input handler against the controller and emits events
// for whatever it changed.
func (s *State) Input(fn func(c *interact.Controller) interact.Effect) interact.Effect {
	s.mu.Lock()
	e := fn(s.ctrl)
	if e.Has(interact.EffectWorkspace) {
		s.modified = true
	}
	s.mu.Unlock()
	s.emitEffect(e)
	return e
}

// Update runs a session edit, such as a panel changing a peak's note.
func (s *State) Update(fn func(sess *workspace.Session) error) error {
	s.mu.Lock()
	err := fn(s.session)
	if err == nil {
		s.modified = true
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.emitEffect(interact.EffectWorkspace | interact.EffectSelection)
	return nil
}

// View runs fn with the live workspace and selection. fn must not keep
// or mutate ws.
func (s *State) View(fn func(ws *workspace.Workspace, sel render.Selection)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, m := s.session.Selection()
	fn(s.session.Workspace(), render.Selection{PeakID: p, MarkerID: m})
}

// SetFrame records the canvas size of view v. The first frame fits the
// view to it.
func (s *State) SetFrame(v workspace.ViewID, size geometry.Size) {
	s.mu.Lock()
	s.session.SetFrame(v, size)
	s.mu.Unlock()
	s.Emit(EventViewChanged, v)
}

// Snapshot returns a deep copy of the workspace.
func (s *State) Snapshot() *workspace.Workspace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Snapshot()
}

// Tool returns the active tool.
func (s *State) Tool() interact.Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.Tool()
}

// Advisories evaluates the advisory rules on the current workspace.
func (s *State) Advisories() []shift.Advisory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Workspace().Advisories()
}

// Modified reports whether there are changes since the last export.
func (s *State) Modified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modified
}

// RenderView rasterizes view v at the given size.
func (s *State) RenderView(v workspace.ViewID, w, h int) *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, m := s.session.Selection()
	sel := render.Selection{PeakID: p, MarkerID: m}
	ws := s.session.Workspace()
	if v == workspace.ViewStructure {
		return render.Structure(ws, layerImage(s.structureLayer), image.Pt(w, h), sel)
	}
	return render.Spectrum(ws, layerImage(s.spectrumLayer), image.Pt(w, h), sel)
}

// SourcePaths returns the files the spectrum and structure were loaded from.
func (s *State) SourcePaths() (spectrum, structure string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spectrumPath, s.structurePath
}

// Export writes the workspace to path.
func (s *State) Export(path string) error {
	s.mu.Lock()
	f := project.New(exportName(path), s.session.Workspace())
	f.SetSpectrumSource(path, s.spectrumPath)
	f.SetStructureSource(path, s.structurePath)
	s.mu.Unlock()

	if err := f.Save(path); err != nil {
		return fmt.Errorf("export workspace: %w", err)
	}

	s.mu.Lock()
	s.exportPath = path
	s.modified = false
	s.mu.Unlock()
	s.log.Info("workspace exported", zap.String("path", path))
	s.Emit(EventExported, path)
	s.Emit(EventModified, false)
	return nil
}

// Import restores a workspace export. Source images referenced by the
// export are re-attached in the background without touching annotations.
func (s *State) Import(path string) error {
	f, err := project.Load(path)
	if err != nil {
		return fmt.Errorf("import workspace: %w", err)
	}

	s.mu.Lock()
	// Loads still in flight belong to the replaced workspace.
	s.gen[SlotSpectrum]++
	s.gen[SlotStructure]++
	s.session.Restore(f.Workspace)
	s.exportPath = path
	s.modified = false
	s.spectrumLayer, s.structureLayer = nil, nil
	s.spectrumPath, s.structurePath = f.SpectrumSource(path), f.StructureSource(path)
	spectrum, structure := s.spectrumPath, s.structurePath
	mode := f.Workspace.Mode
	s.mu.Unlock()

	if mode == workspace.ModeImage && spectrum != "" {
		s.attachAsync(SlotSpectrum, spectrum)
	}
	if structure != "" {
		s.attachAsync(SlotStructure, structure)
	}
	s.log.Info("workspace imported", zap.String("path", path))
	s.Emit(EventImported, path)
	s.emitEffect(interact.EffectWorkspace | interact.EffectSelection | interact.EffectView)
	return nil
}

// ExportPNG renders the composite of both views to path.
func (s *State) ExportPNG(path string) error {
	s.mu.Lock()
	img := render.Composite(s.session.Workspace(), render.Sources{
		Spectrum:  layerImage(s.spectrumLayer),
		Structure: layerImage(s.structureLayer),
	}, s.cfg.RenderOptions())
	s.mu.Unlock()

	if err := render.SavePNG(path, img); err != nil {
		return err
	}
	s.log.Info("png exported", zap.String("path", path))
	return nil
}

// Archive stores the workspace in a local snapshot archive.
func (s *State) Archive(ctx context.Context, store *archive.Store, name string) (int64, error) {
	s.mu.Lock()
	f := project.New(name, s.session.Workspace())
	s.mu.Unlock()
	return store.Save(ctx, f)
}

func exportName(path string) string {
	base := filepath.Base(path)
	for ext := filepath.Ext(base); ext != ""; ext = filepath.Ext(base) {
		base = base[:len(base)-len(ext)]
	}
	return base
}

// IsTracePath reports whether path is loaded as a trace rather than an image.
func IsTracePath(path string) bool {
	return trace.IsTraceFile(path)
}

func layerImage(l *layer.Layer) image.Image {
	if l == nil {
		return nil
	}
	return l.Image
}
