// Package config loads the YAML configuration shared by nmrctl and the
// desktop app.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"nmr-annotator/internal/interact"
	"nmr-annotator/internal/render"
	"nmr-annotator/internal/trace"
	"nmr-annotator/internal/view"
	"nmr-annotator/internal/workspace"
)

const appDir = "nmr-annotator"

// Config holds all configuration.
type Config struct {
	Normalize   trace.NormalizeOptions `yaml:"normalize"`
	Peaks       trace.PeakOptions      `yaml:"peaks"`
	Interaction Interaction            `yaml:"interaction"`
	Render      Render                 `yaml:"render"`
	QA          QA                     `yaml:"qa"`
	Archive     Archive                `yaml:"archive"`
	Watch       Watch                  `yaml:"watch"`
}

// Interaction tunes hit testing, history and zoom.
type Interaction struct {
	PeakHitRadius   float64 `yaml:"peak_hit_radius"`
	MarkerHitRadius float64 `yaml:"marker_hit_radius"`
	UndoDepth       int     `yaml:"undo_depth"`
	ZoomStep        float64 `yaml:"zoom_step"`
	MinScale        float64 `yaml:"min_scale"`
	MaxScale        float64 `yaml:"max_scale"`
	TraceMargin     float64 `yaml:"trace_margin"`
	// InvertX draws larger x on the left, as NMR spectra are plotted.
	InvertX bool `yaml:"invert_x"`
}

// Render configures PNG export.
type Render struct {
	Width     int  `yaml:"width"`
	Height    int  `yaml:"height"`
	ShowLinks bool `yaml:"show_links"`
}

// QA configures the question-answering backend client.
type QA struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	TopK    int           `yaml:"top_k"`
}

// Archive configures the local snapshot archive.
type Archive struct {
	Path string `yaml:"path"`
}

// Watch configures trace file watching.
type Watch struct {
	Debounce time.Duration `yaml:"debounce"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Normalize: trace.DefaultNormalizeOptions(),
		Peaks:     trace.DefaultPeakOptions(),
		Interaction: Interaction{
			PeakHitRadius:   14,
			MarkerHitRadius: 16,
			UndoDepth:       workspace.DefaultUndoDepth,
			ZoomStep:        view.DefaultZoomStep,
			MinScale:        view.DefaultMinScale,
			MaxScale:        view.DefaultMaxScale,
			TraceMargin:     24,
			InvertX:         true,
		},
		Render: Render{Width: 800, Height: 500, ShowLinks: true},
		QA: QA{
			BaseURL: "http://localhost:8000",
			Timeout: 30 * time.Second,
			TopK:    4,
		},
		Archive: Archive{Path: filepath.Join(dataDir(), "archive.db")},
		Watch:   Watch{Debounce: 250 * time.Millisecond},
	}
}

func dataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, appDir)
}

// DefaultPath returns ~/.config/nmr-annotator/config.yaml.
func DefaultPath() string {
	return filepath.Join(dataDir(), "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Keys absent from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("NMR_QA_URL"); url != "" {
		c.QA.BaseURL = url
	}
	if path := os.Getenv("NMR_ARCHIVE"); path != "" {
		c.Archive.Path = path
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	n := c.Normalize
	if n.FloorQuantile < 0 || n.CeilQuantile > 1 || n.FloorQuantile > n.CeilQuantile {
		return fmt.Errorf("invalid normalize quantiles: floor %.3f, ceil %.3f", n.FloorQuantile, n.CeilQuantile)
	}
	if c.Peaks.MaxPeaks < 0 || c.Peaks.MinDistance < 0 {
		return fmt.Errorf("invalid peak options: max_peaks %d, min_distance_points %d", c.Peaks.MaxPeaks, c.Peaks.MinDistance)
	}
	i := c.Interaction
	if i.PeakHitRadius <= 0 || i.MarkerHitRadius <= 0 {
		return fmt.Errorf("hit radii must be positive")
	}
	if i.ZoomStep <= 1 {
		return fmt.Errorf("zoom_step must be greater than 1, got %v", i.ZoomStep)
	}
	if i.MinScale <= 0 || i.MaxScale < i.MinScale {
		return fmt.Errorf("invalid scale range [%v, %v]", i.MinScale, i.MaxScale)
	}
	return nil
}

// SessionOptions derives workspace session options.
func (c *Config) SessionOptions() workspace.Options {
	return workspace.Options{
		UndoDepth:    c.Interaction.UndoDepth,
		Limits:       view.Limits{Min: c.Interaction.MinScale, Max: c.Interaction.MaxScale},
		TraceMargin:  c.Interaction.TraceMargin,
		TraceInvertX: c.Interaction.InvertX,
		Normalize:    c.Normalize,
		Peaks:        c.Peaks,
	}
}

// ControllerOptions derives interaction controller options.
func (c *Config) ControllerOptions() interact.Options {
	return interact.Options{
		PeakHitRadius:   c.Interaction.PeakHitRadius,
		MarkerHitRadius: c.Interaction.MarkerHitRadius,
		ZoomStep:        c.Interaction.ZoomStep,
	}
}

// RenderOptions derives PNG export options.
func (c *Config) RenderOptions() render.Options {
	return render.Options{
		Width:       c.Render.Width,
		Height:      c.Render.Height,
		Fit:         true,
		TraceMargin: c.Interaction.TraceMargin,
		ShowLinks:   c.Render.ShowLinks,
	}
}
