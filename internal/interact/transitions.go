package interact

import "nmr-annotator/internal/workspace"

type hitKind int

const (
	hitNone hitKind = iota
	hitPeak
	hitMarker
)

type action int

const (
	actClear action = iota
	actSelectPeak
	actSelectMarker
	actAddPeak
	actCalibrate
	actPan
	actAddMarker
)

var actionNames = [...]string{"clear", "select-peak", "select-marker", "add-peak", "calibrate", "pan", "add-marker"}

func (a action) String() string { return actionNames[a] }

type transitionKey struct {
	view workspace.ViewID
	tool Tool
	hit  hitKind
}

// transitions maps a pointer-down to its action. A hit on an entity wins
// over the tool. Anything missing clears the selection.
var transitions = map[transitionKey]action{
	{workspace.ViewSpectrum, ToolPeak, hitPeak}:         actSelectPeak,
	{workspace.ViewSpectrum, ToolCalibrate, hitPeak}:    actSelectPeak,
	{workspace.ViewSpectrum, ToolPanSpectrum, hitPeak}:  actSelectPeak,
	{workspace.ViewSpectrum, ToolAtom, hitPeak}:         actSelectPeak,
	{workspace.ViewSpectrum, ToolPanStructure, hitPeak}: actSelectPeak,

	{workspace.ViewStructure, ToolPeak, hitMarker}:         actSelectMarker,
	{workspace.ViewStructure, ToolCalibrate, hitMarker}:    actSelectMarker,
	{workspace.ViewStructure, ToolPanSpectrum, hitMarker}:  actSelectMarker,
	{workspace.ViewStructure, ToolAtom, hitMarker}:         actSelectMarker,
	{workspace.ViewStructure, ToolPanStructure, hitMarker}: actSelectMarker,

	{workspace.ViewSpectrum, ToolPeak, hitNone}:          actAddPeak,
	{workspace.ViewSpectrum, ToolCalibrate, hitNone}:     actCalibrate,
	{workspace.ViewSpectrum, ToolPanSpectrum, hitNone}:   actPan,
	{workspace.ViewStructure, ToolAtom, hitNone}:         actAddMarker,
	{workspace.ViewStructure, ToolPanStructure, hitNone}: actPan,
}

func lookup(v workspace.ViewID, t Tool, h hitKind) action {
	if a, ok := transitions[transitionKey{v, t, h}]; ok {
		return a
	}
	return actClear
}
