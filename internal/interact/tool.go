// Package interact turns pointer, wheel and key events into workspace
// operations.
package interact

import "nmr-annotator/internal/workspace"

// Tool is the active editing tool. Tools are mutually exclusive.
type Tool int

const (
	ToolPeak Tool = iota
	ToolCalibrate
	ToolPanSpectrum
	ToolAtom
	ToolPanStructure
)

var toolNames = map[Tool]string{
	ToolPeak:         "peak",
	ToolCalibrate:    "calibrate",
	ToolPanSpectrum:  "pan-spectrum",
	ToolAtom:         "atom",
	ToolPanStructure: "pan-structure",
}

func (t Tool) String() string {
	if n, ok := toolNames[t]; ok {
		return n
	}
	return "unknown"
}

// Tools lists every tool in toolbar order.
func Tools() []Tool {
	return []Tool{ToolPeak, ToolCalibrate, ToolPanSpectrum, ToolAtom, ToolPanStructure}
}

// ToolKey returns the shortcut key for t.
func ToolKey(t Tool) string {
	for k, tool := range toolKeys {
		if tool == t {
			return k
		}
	}
	return ""
}

var toolKeys = map[string]Tool{
	"p": ToolPeak,
	"c": ToolCalibrate,
	"h": ToolPanSpectrum,
	"a": ToolAtom,
	"g": ToolPanStructure,
}

func panToolFor(v workspace.ViewID) Tool {
	if v == workspace.ViewStructure {
		return ToolPanStructure
	}
	return ToolPanSpectrum
}

// Modifiers is the modifier key state of an event.
type Modifiers struct {
	Ctrl  bool
	Shift bool
	Alt   bool
	Meta  bool
}

func (m Modifiers) command() bool { return m.Ctrl || m.Meta }

func (m Modifiers) none() bool { return !m.Ctrl && !m.Meta && !m.Alt }

// Effect reports what an event changed so the caller knows what to redraw.
type Effect uint8

const (
	EffectView Effect = 1 << iota
	EffectWorkspace
	EffectSelection
	EffectTool
)

// EffectNone means the event was ignored.
const EffectNone Effect = 0

// Has reports whether all bits of o are set.
func (e Effect) Has(o Effect) bool { return e&o == o }
