// Package panels provides UI panels for the application.
package panels

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"

	"nmr-annotator/internal/app"
	"nmr-annotator/internal/qa"
)

// SidePanel provides the main side panel with tabbed sections.
type SidePanel struct {
	state     *app.State
	container *container.AppTabs

	peaksPanel       *PeaksPanel
	markersPanel     *MarkersPanel
	calibrationPanel *CalibrationPanel
	qaPanel          *QAPanel
}

// NewSidePanel creates a new side panel.
func NewSidePanel(state *app.State, client *qa.Client) *SidePanel {
	sp := &SidePanel{state: state}

	sp.peaksPanel = NewPeaksPanel(state)
	sp.markersPanel = NewMarkersPanel(state)
	sp.calibrationPanel = NewCalibrationPanel(state)
	sp.qaPanel = NewQAPanel(client, state.Config().QA.TopK)

	sp.container = container.NewAppTabs(
		container.NewTabItem("Peaks", sp.peaksPanel.Container()),
		container.NewTabItem("Markers", sp.markersPanel.Container()),
		container.NewTabItem("Calibration", sp.calibrationPanel.Container()),
		container.NewTabItem("Ask", sp.qaPanel.Container()),
	)

	for _, ev := range []app.EventType{
		app.EventWorkspaceChanged,
		app.EventSelectionChanged,
		app.EventImported,
	} {
		state.On(ev, func(interface{}) { sp.Sync() })
	}
	sp.Sync()
	return sp
}

// Container returns the panel container.
func (sp *SidePanel) Container() fyne.CanvasObject {
	return sp.container
}

// Sync reloads every panel from the workspace.
func (sp *SidePanel) Sync() {
	sp.peaksPanel.Sync()
	sp.markersPanel.Sync()
	sp.calibrationPanel.Sync()
}

// SetWindow sets the parent window for dialogs.
func (sp *SidePanel) SetWindow(w fyne.Window) {
	sp.peaksPanel.window = w
	sp.markersPanel.window = w
	sp.calibrationPanel.window = w
	sp.qaPanel.window = w
}
