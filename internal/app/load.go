package app

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	layer "nmr-annotator/internal/image"
	"nmr-annotator/internal/interact"
	"nmr-annotator/internal/trace"
)

// Pending is a load running in the background.
type Pending struct {
	done chan struct{}
	err  error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func (p *Pending) finish(err error) {
	p.err = err
	close(p.done)
}

// Done is closed once the load has been applied or dropped.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Err returns the load result. It is only meaningful after Done is closed.
func (p *Pending) Err() error { return p.err }

// Wait blocks until the load completes or ctx ends.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LoadError is the payload of EventLoadFailed.
type LoadError struct {
	Slot Slot
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// begin claims a new generation for slot. Any load still running for the
// slot becomes stale.
func (s *State) begin(slot Slot) uint64 {
	s.loads.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen[slot]++
	return s.gen[slot]
}

// complete hands the result to the dispatcher. apply runs under mu and
// only when gen is still current; it reports whether the workspace changed.
func (s *State) complete(p *Pending, slot Slot, gen uint64, path string, loadErr error, apply func() bool, event EventType) {
	s.mu.Lock()
	dispatch := s.dispatch
	s.mu.Unlock()

	dispatch(func() {
		defer s.loads.Done()
		s.mu.Lock()
		if s.gen[slot] != gen {
			s.mu.Unlock()
			s.log.Warn("dropping stale load",
				zap.String("path", path), zap.Uint64("generation", gen))
			p.finish(ErrSuperseded)
			return
		}
		if loadErr != nil {
			s.mu.Unlock()
			s.log.Error("load failed", zap.String("path", path), zap.Error(loadErr))
			lerr := &LoadError{Slot: slot, Path: path, Err: loadErr}
			p.finish(lerr)
			s.Emit(EventLoadFailed, lerr)
			return
		}
		changed := apply()
		if changed {
			s.modified = true
		}
		s.mu.Unlock()

		s.log.Info("loaded", zap.String("path", path))
		p.finish(nil)
		s.Emit(event, path)
		if changed {
			s.emitEffect(interact.EffectWorkspace | interact.EffectSelection | interact.EffectView)
		} else {
			s.emitEffect(interact.EffectView)
		}
	})
}

// LoadSpectrumAsync loads path as the spectrum, as a trace or an image
// depending on its extension.
func (s *State) LoadSpectrumAsync(path string) *Pending {
	if trace.IsTraceFile(path) {
		return s.LoadTraceAsync(path)
	}
	return s.LoadSpectrumImageAsync(path)
}

// LoadTraceAsync parses a JCAMP-DX file and switches the spectrum to trace mode.
func (s *State) LoadTraceAsync(path string) *Pending {
	p := newPending()
	gen := s.begin(SlotSpectrum)
	go func() {
		series, err := trace.ParseFile(path)
		s.complete(p, SlotSpectrum, gen, path, err, func() bool {
			s.session.LoadTrace(filepath.Base(path), series)
			s.spectrumLayer = nil
			s.spectrumPath = path
			return true
		}, EventSpectrumLoaded)
	}()
	return p
}

// LoadSpectrumImageAsync decodes an image and switches the spectrum to image mode.
func (s *State) LoadSpectrumImageAsync(path string) *Pending {
	p := newPending()
	gen := s.begin(SlotSpectrum)
	go func() {
		l, err := layer.Load(path)
		s.complete(p, SlotSpectrum, gen, path, err, func() bool {
			l.Kind = layer.KindSpectrum
			s.session.LoadSpectrumImage(filepath.Base(path), l.Width(), l.Height())
			s.spectrumLayer = l
			s.spectrumPath = path
			return true
		}, EventSpectrumLoaded)
	}()
	return p
}

// LoadStructureAsync decodes the structure image. Markers are cleared.
func (s *State) LoadStructureAsync(path string) *Pending {
	p := newPending()
	gen := s.begin(SlotStructure)
	go func() {
		l, err := layer.Load(path)
		s.complete(p, SlotStructure, gen, path, err, func() bool {
			l.Kind = layer.KindStructure
			s.session.LoadStructure(filepath.Base(path), l.Width(), l.Height())
			s.structureLayer = l
			s.structurePath = path
			return true
		}, EventStructureLoaded)
	}()
	return p
}

// attachAsync decodes an image for an imported workspace. Annotations and
// history are left alone.
func (s *State) attachAsync(slot Slot, path string) *Pending {
	p := newPending()
	gen := s.begin(slot)
	event := EventSpectrumLoaded
	if slot == SlotStructure {
		event = EventStructureLoaded
	}
	go func() {
		l, err := layer.Load(path)
		s.complete(p, slot, gen, path, err, func() bool {
			if slot == SlotStructure {
				l.Kind = layer.KindStructure
				s.structureLayer = l
			} else {
				l.Kind = layer.KindSpectrum
				s.spectrumLayer = l
			}
			return false
		}, event)
	}()
	return p
}

// WaitLoads blocks until every background load has completed.
func (s *State) WaitLoads() {
	s.loads.Wait()
}
