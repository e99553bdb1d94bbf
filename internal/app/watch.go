package app

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long a file must stay quiet before a change fires.
const DefaultDebounce = 250 * time.Millisecond

// SourceWatcher calls back when a single file changes on disk. Editors
// and instruments often write a file in several steps, so events are
// debounced.
type SourceWatcher struct {
	path     string
	debounce time.Duration
	onChange func(path string)
	log      *zap.Logger

	fw      *fsnotify.Watcher
	runDone chan struct{}

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
	fires  sync.WaitGroup
}

// NewSourceWatcher starts watching path. The parent directory is watched
// so that replace-by-rename saves are seen.
func NewSourceWatcher(path string, debounce time.Duration, onChange func(path string), log *zap.Logger) (*SourceWatcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	w := &SourceWatcher{
		path:     abs,
		debounce: debounce,
		onChange: onChange,
		log:      log,
		fw:       fw,
		runDone:  make(chan struct{}),
	}
	go w.run()
	log.Info("watching file", zap.String("path", abs))
	return w, nil
}

// Path returns the absolute path being watched.
func (w *SourceWatcher) Path() string { return w.path }

func (w *SourceWatcher) run() {
	defer close(w.runDone)
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				w.log.Debug("file event", zap.String("op", ev.Op.String()))
				w.schedule()
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", zap.Error(err))
		}
	}
}

// schedule (re)arms the debounce timer.
func (w *SourceWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil && w.timer.Stop() {
		w.fires.Done()
	}
	w.fires.Add(1)
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *SourceWatcher) fire() {
	defer w.fires.Done()
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return
	}
	w.log.Info("file changed", zap.String("path", w.path))
	w.onChange(w.path)
}

// Close stops watching and waits for a running callback to return.
func (w *SourceWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil && w.timer.Stop() {
		w.fires.Done()
	}
	w.mu.Unlock()

	err := w.fw.Close()
	<-w.runDone
	w.fires.Wait()
	return err
}

// WatchSpectrum reloads the current spectrum source whenever it changes.
// Each reload is a normal load: it replaces peaks and can be undone.
func (s *State) WatchSpectrum(debounce time.Duration) (*SourceWatcher, error) {
	s.mu.Lock()
	path := s.spectrumPath
	s.mu.Unlock()
	if path == "" {
		return nil, fmt.Errorf("watch spectrum: nothing loaded")
	}
	return NewSourceWatcher(path, debounce, func(p string) {
		s.LoadSpectrumAsync(p)
	}, s.log.Named("watch"))
}
