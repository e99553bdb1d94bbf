package app

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceWatcherFiresOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "t.jdx", smallTrace)
	writeFile(t, dir, "other.jdx", smallTrace)

	got := make(chan string, 8)
	w, err := NewSourceWatcher(path, 20*time.Millisecond, func(p string) {
		select {
		case got <- p:
		default:
		}
	}, nil)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.jdx"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte(smallTrace+"\n"), 0o644))

	select {
	case p := <-got:
		assert.Equal(t, w.Path(), p)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestSourceWatcherCloseStopsCallbacks(t *testing.T) {
	path := writeFile(t, t.TempDir(), "t.jdx", smallTrace)

	var calls atomic.Int32
	w, err := NewSourceWatcher(path, time.Hour, func(string) { calls.Add(1) }, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(smallTrace), 0o644))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.Zero(t, calls.Load())
}

func TestSourceWatcherMissingDir(t *testing.T) {
	_, err := NewSourceWatcher(filepath.Join(t.TempDir(), "gone", "t.jdx"), 0, func(string) {}, nil)
	assert.Error(t, err)
}

func TestWatchSpectrumReloads(t *testing.T) {
	s := newState(t)
	path := writeFile(t, t.TempDir(), "t.jdx", smallTrace)

	_, err := s.WatchSpectrum(10 * time.Millisecond)
	require.Error(t, err)

	require.NoError(t, wait(t, s.LoadTraceAsync(path)))

	loaded := make(chan struct{}, 8)
	s.On(EventSpectrumLoaded, func(interface{}) {
		select {
		case loaded <- struct{}{}:
		default:
		}
	})

	w, err := s.WatchSpectrum(20 * time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("##TITLE=t\n##XYDATA=(X++(Y..Y))\n0 1 2 3 4 5\n##END=\n"), 0o644))

	select {
	case <-loaded:
	case <-time.After(5 * time.Second):
		t.Fatal("trace was not reloaded")
	}
	require.NoError(t, w.Close())
	s.WaitLoads()
	assert.Equal(t, 5, s.Snapshot().Series.Len())
}
