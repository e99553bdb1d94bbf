// Package shift maps raw spectrum coordinates to chemical shift and classifies
// shifts into chemical environments.
package shift

import (
	"math"
	"strconv"
	"strings"
)

// RefPoint is a user-picked calibration reference: a world x on the
// spectrum view and the shift the user says it corresponds to.
type RefPoint struct {
	WorldX float64 `json:"world_x"`
	Target string  `json:"target"`
}

// TargetValue parses the target text. ok is false unless it is a finite number.
func (r RefPoint) TargetValue() (float64, bool) {
	return ParseShift(r.Target)
}

// Calibration holds up to two reference points. It is complete when both
// points exist and their targets parse with ParseShift, which also accepts a
// trailing "ppm" and a comma decimal separator.
type Calibration struct {
	P1 *RefPoint `json:"p1,omitempty"`
	P2 *RefPoint `json:"p2,omitempty"`
}

// Clone returns a deep copy.
func (c Calibration) Clone() Calibration {
	out := Calibration{}
	if c.P1 != nil {
		p := *c.P1
		out.P1 = &p
	}
	if c.P2 != nil {
		p := *c.P2
		out.P2 = &p
	}
	return out
}

// Pick applies one calibration-tool click: the first click sets point 1,
// the second sets point 2 and a third starts over with a fresh point 1.
// It returns the 1-based index of the point that was set.
func (c *Calibration) Pick(worldX float64) int {
	switch {
	case c.P1 == nil:
		c.P1 = &RefPoint{WorldX: worldX}
		return 1
	case c.P2 == nil:
		c.P2 = &RefPoint{WorldX: worldX}
		return 2
	default:
		c.P1 = &RefPoint{WorldX: worldX}
		c.P2 = nil
		return 1
	}
}

// Point returns reference point 1 or 2, or nil.
func (c *Calibration) Point(index int) *RefPoint {
	switch index {
	case 1:
		return c.P1
	case 2:
		return c.P2
	}
	return nil
}

// Complete reports whether both points exist, both targets are finite
// numbers and the two world x coordinates differ.
func (c Calibration) Complete() bool {
	_, _, _, _, ok := c.coefficients()
	return ok
}

func (c Calibration) coefficients() (x1, t1, x2, t2 float64, ok bool) {
	if c.P1 == nil || c.P2 == nil {
		return 0, 0, 0, 0, false
	}
	t1, ok1 := c.P1.TargetValue()
	t2, ok2 := c.P2.TargetValue()
	if !ok1 || !ok2 || c.P1.WorldX == c.P2.WorldX {
		return 0, 0, 0, 0, false
	}
	return c.P1.WorldX, t1, c.P2.WorldX, t2, true
}

// ShiftAt maps a world x to chemical shift by the line through the two
// reference points, extrapolating outside them. ok is false when the
// calibration is incomplete.
func (c Calibration) ShiftAt(worldX float64) (float64, bool) {
	x1, t1, x2, t2, ok := c.coefficients()
	if !ok {
		return 0, false
	}
	return t1 + ((worldX-x1)/(x2-x1))*(t2-t1), true
}

// ShiftPtr is ShiftAt with nil for unavailable.
func (c Calibration) ShiftPtr(worldX float64) *float64 {
	v, ok := c.ShiftAt(worldX)
	if !ok {
		return nil
	}
	return &v
}

// ParseShift parses user-entered shift text such as "7.26" or " 3,5 ".
func ParseShift(text string) (float64, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, false
	}
	s = strings.TrimSpace(strings.TrimSuffix(s, "ppm"))
	s = strings.Replace(s, ",", ".", 1)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
