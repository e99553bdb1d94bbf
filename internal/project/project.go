// Package project reads and writes workspace export files.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"nmr-annotator/internal/workspace"
)

// CurrentVersion is the export format version written by this build.
const CurrentVersion = 1

var ErrNoWorkspace = errors.New("export has no workspace")

// File is a workspace export (.nmrws.json).
type File struct {
	Version    int       `json:"version"`
	Name       string    `json:"name,omitempty"`
	ExportedAt time.Time `json:"exported_at"`

	// Source paths (relative to the export file)
	SpectrumPath  string `json:"spectrum_path,omitempty"`
	StructurePath string `json:"structure_path,omitempty"`

	Workspace *workspace.Workspace `json:"workspace"`
}

// New wraps a copy of ws in an export file.
func New(name string, ws *workspace.Workspace) *File {
	return &File{
		Version:    CurrentVersion,
		Name:       name,
		ExportedAt: time.Now().UTC().Round(0),
		Workspace:  ws.Clone(),
	}
}

// Read decodes an export from r.
func Read(r io.Reader) (*File, error) {
	var f File
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode workspace export: %w", err)
	}
	if f.Version > CurrentVersion {
		return nil, fmt.Errorf("workspace export version %d is newer than supported version %d", f.Version, CurrentVersion)
	}
	if f.Workspace == nil {
		return nil, ErrNoWorkspace
	}
	if f.Workspace.Peaks == nil {
		f.Workspace.Peaks = []workspace.Peak{}
	}
	if f.Workspace.Markers == nil {
		f.Workspace.Markers = []workspace.Marker{}
	}
	return &f, nil
}

// Load loads an export from path.
func Load(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return Read(fh)
}

// Write encodes the export as indented JSON.
func (p *File) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode workspace export: %w", err)
	}
	return nil
}

// Marshal returns the JSON encoding of the export.
func (p *File) Marshal() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// Save writes the export to path.
func (p *File) Save(path string) error {
	data, err := p.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// SetSpectrumSource records the spectrum source path relative to the export.
func (p *File) SetSpectrumSource(exportPath, sourcePath string) {
	p.SpectrumPath = relTo(exportPath, sourcePath)
}

// SetStructureSource records the structure source path relative to the export.
func (p *File) SetStructureSource(exportPath, sourcePath string) {
	p.StructurePath = relTo(exportPath, sourcePath)
}

// SpectrumSource returns the absolute spectrum source path, or "".
func (p *File) SpectrumSource(exportPath string) string {
	return absFrom(exportPath, p.SpectrumPath)
}

// StructureSource returns the absolute structure source path, or "".
func (p *File) StructureSource(exportPath string) string {
	return absFrom(exportPath, p.StructurePath)
}

func relTo(exportPath, sourcePath string) string {
	if sourcePath == "" {
		return ""
	}
	rel, err := filepath.Rel(filepath.Dir(exportPath), sourcePath)
	if err != nil {
		return sourcePath
	}
	return rel
}

func absFrom(exportPath, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(exportPath), p)
}
