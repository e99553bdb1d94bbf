package shift

import "fmt"

// Plausible 1H shift window; anything outside is flagged.
const (
	PlausibleMin = -1.0
	PlausibleMax = 14.0
)

// Severity grades an advisory. Advisories never block editing.
type Severity int

const (
	SeverityHint Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "hint"
}

// Advisory codes.
const (
	CodeCalibrationMissing = "calibration-missing"
	CodeMultipleAldehyde   = "multiple-aldehyde"
	CodeOutOfRange         = "out-of-range"
	CodeUnlinkedPeaks      = "unlinked-peaks"
)

// Advisory is an informational finding shown next to the data.
type Advisory struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	PeakIDs  []string `json:"peak_ids,omitempty"`
}

// Annotated is the per-peak input to Advise.
type Annotated struct {
	ID     string
	Shift  *float64 // effective shift, nil when unavailable
	Linked bool
}

// Advise runs the rule set over the current annotations.
func Advise(peaks []Annotated, markers int, calibrated bool) []Advisory {
	var out []Advisory

	if len(peaks) > 0 && !calibrated {
		out = append(out, Advisory{
			Code:     CodeCalibrationMissing,
			Severity: SeverityHint,
			Message:  "Calibration is not configured: pick two reference points and enter their shifts.",
		})
	}

	var aldehydes, outside, unlinked []string
	for _, p := range peaks {
		if !p.Linked {
			unlinked = append(unlinked, p.ID)
		}
		if p.Shift == nil {
			continue
		}
		v := *p.Shift
		if Classify(v) == RegionAldehyde {
			aldehydes = append(aldehydes, p.ID)
		}
		if v < PlausibleMin || v > PlausibleMax {
			outside = append(outside, p.ID)
		}
	}

	if len(aldehydes) > 1 {
		out = append(out, Advisory{
			Code:     CodeMultipleAldehyde,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("%d peaks fall in the aldehyde region; most compounds have at most one aldehyde proton environment.", len(aldehydes)),
			PeakIDs:  aldehydes,
		})
	}
	if len(outside) > 0 {
		out = append(out, Advisory{
			Code:     CodeOutOfRange,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("%d peak(s) lie outside %.0f to %.0f ppm; check the calibration.", len(outside), PlausibleMin, PlausibleMax),
			PeakIDs:  outside,
		})
	}
	if markers > 0 && len(unlinked) > 0 {
		out = append(out, Advisory{
			Code:     CodeUnlinkedPeaks,
			Severity: SeverityHint,
			Message:  fmt.Sprintf("%d peak(s) are not linked to a structure position.", len(unlinked)),
			PeakIDs:  unlinked,
		})
	}
	return out
}
