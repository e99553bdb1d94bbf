package trace

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

const (
	tagMarker       = "##"
	dataBlockMarker = "XYDATA"
	commentMarker   = "$$"
)

// header collects the decoding parameters seen so far in a file.
type header struct {
	firstX, lastX, deltaX *float64
	nPoints               int
	xFactor, yFactor      float64
}

func newHeader() header {
	return header{xFactor: 1, yFactor: 1}
}

// apply records a tag value. Non-numeric values leave decoding unchanged.
func (h *header) apply(tag, value string) {
	v, ok := parseFinite(value)
	if !ok {
		return
	}
	switch tag {
	case "FIRSTX":
		h.firstX = &v
	case "LASTX":
		h.lastX = &v
	case "DELTAX":
		h.deltaX = &v
	case "XFACTOR":
		h.xFactor = v
	case "YFACTOR":
		h.yFactor = v
	case "NPOINTS":
		if v >= 2 {
			h.nPoints = int(v)
		}
	}
}

// step returns the x spacing between successive samples on a data line
// holding n y-values.
func (h *header) step(n int) float64 {
	if h.deltaX != nil {
		return *h.deltaX * h.xFactor
	}
	if h.firstX != nil && h.lastX != nil {
		span := *h.lastX - *h.firstX
		if h.nPoints >= 2 {
			return span / float64(h.nPoints-1) * h.xFactor
		}
		if n > 1 {
			return span / float64(n-1) * h.xFactor
		}
	}
	return h.xFactor
}

// Parse reads an instrument text export in the JCAMP-DX tag/value style.
// Metadata lines are "##TAG=VALUE"; a tag starting with XYDATA opens a data
// block of "x y1 y2 ..." lines which any later tag closes. Malformed lines are
// skipped; only read errors are returned.
//
// The x step is DELTAX when present. Otherwise NPOINTS, when given with
// FIRSTX and LASTX, fixes the step for every line ahead of the per-line
// (LASTX-FIRSTX)/(n-1) rule.
func Parse(r io.Reader) (*Series, error) {
	s := &Series{Meta: make(map[string]string)}
	h := newHeader()
	inData := false

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, tagMarker) {
			tag, value := splitTag(line)
			s.Meta[tag] = value
			h.apply(tag, value)
			inData = strings.HasPrefix(tag, dataBlockMarker)
			continue
		}

		if !inData {
			continue
		}
		appendDataLine(s, &h, line)
	}

	if err := scanner.Err(); err != nil {
		return s, fmt.Errorf("read trace: %w", err)
	}
	return s, nil
}

// ParseString is Parse over an in-memory document.
func ParseString(text string) *Series {
	s, _ := Parse(strings.NewReader(text))
	return s
}

// splitTag splits "##TAG=VALUE" into an uppercased tag and its raw value.
func splitTag(line string) (string, string) {
	body := strings.TrimPrefix(line, tagMarker)
	tag, value, _ := strings.Cut(body, "=")
	return strings.ToUpper(strings.TrimSpace(tag)), strings.TrimSpace(value)
}

func appendDataLine(s *Series, h *header, line string) {
	if i := strings.Index(line, commentMarker); i >= 0 {
		line = line[:i]
	}

	var nums []float64
	for _, tok := range strings.FieldsFunc(line, isSeparator) {
		if v, ok := parseFinite(tok); ok {
			nums = append(nums, v)
		}
	}
	if len(nums) < 2 {
		return
	}

	x0 := nums[0] * h.xFactor
	ys := nums[1:]
	dx := h.step(len(ys))
	for i, y := range ys {
		s.X = append(s.X, x0+float64(i)*dx)
		s.Y = append(s.Y, y*h.yFactor)
	}
}

func isSeparator(r rune) bool {
	return r == ' ' || r == '\t' || r == ','
}

func parseFinite(tok string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(tok), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
