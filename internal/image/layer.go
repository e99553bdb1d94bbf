// Package image loads the spectrum and structure images.
package image

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"nmr-annotator/pkg/geometry"
)

// Kind is what an image shows.
type Kind int

const (
	KindUnknown Kind = iota
	KindSpectrum
	KindStructure
)

func (k Kind) String() string {
	switch k {
	case KindSpectrum:
		return "spectrum"
	case KindStructure:
		return "structure"
	default:
		return "unknown"
	}
}

// Layer is a decoded image with its source.
type Layer struct {
	Path  string
	Image image.Image
	Kind  Kind
	DPI   float64 // from TIFF resolution tags, 0 if unknown
}

// Load reads and decodes the image at path.
func Load(path string) (*Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	l, err := Decode(bytes.NewReader(data), path)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".tiff" || ext == ".tif" {
		if dpi, err := tiffDPI(bytes.NewReader(data)); err == nil {
			l.DPI = dpi
		}
	}
	return l, nil
}

// Decode decodes an image from r. name is used for Path and to guess Kind.
func Decode(r io.Reader, name string) (*Layer, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", filepath.Base(name), err)
	}
	return &Layer{Path: name, Image: img, Kind: GuessKind(name)}, nil
}

// Name returns the file name without directory.
func (l *Layer) Name() string {
	return filepath.Base(l.Path)
}

// Width returns the image width in pixels.
func (l *Layer) Width() int {
	if l == nil || l.Image == nil {
		return 0
	}
	return l.Image.Bounds().Dx()
}

// Height returns the image height in pixels.
func (l *Layer) Height() int {
	if l == nil || l.Image == nil {
		return 0
	}
	return l.Image.Bounds().Dy()
}

// Size returns the image dimensions.
func (l *Layer) Size() geometry.Size {
	return geometry.Size{Width: float64(l.Width()), Height: float64(l.Height())}
}

// GuessKind guesses what an image shows from its file name.
func GuessKind(path string) Kind {
	base := strings.ToLower(filepath.Base(path))
	for _, kw := range []string{"structure", "struct", "mol", "smiles"} {
		if strings.Contains(base, kw) {
			return KindStructure
		}
	}
	for _, kw := range []string{"spectrum", "spec", "nmr", "1h", "13c"} {
		if strings.Contains(base, kw) {
			return KindSpectrum
		}
	}
	return KindUnknown
}

const (
	tagXResolution    = 282
	tagYResolution    = 283
	tagResolutionUnit = 296

	typeShort    = 3
	typeRational = 5

	unitCentimeter = 3
)

// tiffDPI reads the resolution from the first IFD of a TIFF stream.
func tiffDPI(r io.ReadSeeker) (float64, error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, err
	}
	var order binary.ByteOrder
	switch string(header[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return 0, errors.New("not a valid TIFF file")
	}

	if _, err := r.Seek(int64(order.Uint32(header[4:8])), io.SeekStart); err != nil {
		return 0, err
	}
	var n uint16
	if err := binary.Read(r, order, &n); err != nil {
		return 0, err
	}

	entries := make([]byte, 12*int(n))
	if _, err := io.ReadFull(r, entries); err != nil {
		return 0, err
	}

	var xRes, yRes float64
	unit := uint16(2)
	for i := 0; i < int(n); i++ {
		e := entries[12*i : 12*i+12]
		tag := order.Uint16(e[0:2])
		typ := order.Uint16(e[2:4])
		switch {
		case tag == tagXResolution && typ == typeRational:
			xRes = rational(r, int64(order.Uint32(e[8:12])), order)
		case tag == tagYResolution && typ == typeRational:
			yRes = rational(r, int64(order.Uint32(e[8:12])), order)
		case tag == tagResolutionUnit && typ == typeShort:
			unit = order.Uint16(e[8:10])
		}
	}

	dpi := xRes
	if dpi == 0 {
		dpi = yRes
	}
	if dpi == 0 {
		return 0, errors.New("no resolution tags found")
	}
	if unit == unitCentimeter {
		dpi *= 2.54
	}
	return dpi, nil
}

func rational(r io.ReadSeeker, offset int64, order binary.ByteOrder) float64 {
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return 0
	}
	var v [2]uint32
	if err := binary.Read(r, order, &v); err != nil || v[1] == 0 {
		return 0
	}
	return float64(v[0]) / float64(v[1])
}

// SupportedFormats returns the image extensions that can be loaded.
func SupportedFormats() []string {
	return []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tiff", ".tif"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
