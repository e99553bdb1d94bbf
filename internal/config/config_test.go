package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingReturnsDefaults(t *testing.T) {
	t.Setenv("NMR_QA_URL", "")
	t.Setenv("NMR_ARCHIVE", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(DefaultConfig(), cfg))
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	t.Setenv("NMR_QA_URL", "")
	t.Setenv("NMR_ARCHIVE", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
peaks:
  max_peaks: 5
qa:
  timeout: 5s
interaction:
  peak_hit_radius: 20
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Peaks.MaxPeaks)
	assert.Equal(t, 0.06, cfg.Peaks.MinProminence)
	assert.Equal(t, 5*time.Second, cfg.QA.Timeout)
	assert.Equal(t, 20.0, cfg.Interaction.PeakHitRadius)
	assert.Equal(t, 16.0, cfg.Interaction.MarkerHitRadius)
	assert.Equal(t, 20.0, cfg.ControllerOptions().PeakHitRadius)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("NMR_QA_URL", "")
	t.Setenv("NMR_ARCHIVE", "")
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := DefaultConfig()
	cfg.Normalize.InvertY = true
	cfg.Watch.Debounce = time.Second
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(cfg, got))
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NMR_QA_URL", "http://qa.local:9000")
	t.Setenv("NMR_ARCHIVE", "/tmp/a.db")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://qa.local:9000", cfg.QA.BaseURL)
	assert.Equal(t, "/tmp/a.db", cfg.Archive.Path)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"quantiles", func(c *Config) { c.Normalize.FloorQuantile = 0.9; c.Normalize.CeilQuantile = 0.1 }},
		{"max peaks", func(c *Config) { c.Peaks.MaxPeaks = -1 }},
		{"radius", func(c *Config) { c.Interaction.PeakHitRadius = 0 }},
		{"zoom step", func(c *Config) { c.Interaction.ZoomStep = 1 }},
		{"scales", func(c *Config) { c.Interaction.MaxScale = 0.01 }},
	}
	require.NoError(t, DefaultConfig().Validate())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("peaks: [unterminated"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestDerivedOptions(t *testing.T) {
	cfg := DefaultConfig()
	so := cfg.SessionOptions()
	assert.Equal(t, cfg.Interaction.UndoDepth, so.UndoDepth)
	assert.Equal(t, cfg.Interaction.MaxScale, so.Limits.Max)
	assert.True(t, so.TraceInvertX)
	ro := cfg.RenderOptions()
	assert.Equal(t, 800, ro.Width)
	assert.True(t, ro.Fit)
}
