package panels

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"nmr-annotator/internal/app"
	"nmr-annotator/internal/render"
	"nmr-annotator/internal/shift"
	"nmr-annotator/internal/workspace"
)

// CalibrationPanel edits the two reference points. Points are placed
// with the calibrate tool; their ppm targets are typed here.
type CalibrationPanel struct {
	state     *app.State
	window    fyne.Window
	container fyne.CanvasObject

	x       [2]*widget.Label
	targets [2]*widget.Entry
	status  *widget.Label
}

// NewCalibrationPanel creates the calibration panel.
func NewCalibrationPanel(state *app.State) *CalibrationPanel {
	cp := &CalibrationPanel{state: state}

	form := widget.NewForm()
	for i := range cp.targets {
		index := i + 1
		cp.x[i] = widget.NewLabel("-")
		cp.targets[i] = widget.NewEntry()
		cp.targets[i].SetPlaceHolder("ppm")
		cp.targets[i].OnSubmitted = func(text string) { cp.setTarget(index, text) }
		form.Append(fmt.Sprintf("Point %d x", index), cp.x[i])
		form.Append(fmt.Sprintf("Point %d ppm", index), cp.targets[i])
	}

	cp.status = widget.NewLabel("")
	cp.status.Wrapping = fyne.TextWrapWord

	help := widget.NewLabel("Press C and click two known signals on the spectrum, then enter their shifts.")
	help.Wrapping = fyne.TextWrapWord

	cp.container = container.NewVBox(
		help,
		form,
		container.NewHBox(
			widget.NewButton("Set Targets", func() {
				cp.setTarget(1, cp.targets[0].Text)
				cp.setTarget(2, cp.targets[1].Text)
			}),
			widget.NewButton("Recompute Shifts", cp.apply),
		),
		cp.status,
	)
	return cp
}

// Container returns the panel container.
func (cp *CalibrationPanel) Container() fyne.CanvasObject {
	return cp.container
}

// Sync shows the current reference points.
func (cp *CalibrationPanel) Sync() {
	var cal shift.Calibration
	cp.state.View(func(ws *workspace.Workspace, _ render.Selection) {
		cal = ws.Calibration.Clone()
	})

	for i := range cp.targets {
		p := cal.Point(i + 1)
		if p == nil {
			cp.x[i].SetText("-")
			cp.targets[i].SetText("")
			continue
		}
		cp.x[i].SetText(fmt.Sprintf("%.4g", p.WorldX))
		if cp.targets[i].Text != p.Target {
			cp.targets[i].SetText(p.Target)
		}
	}

	switch {
	case cal.Complete():
		cp.status.SetText("Calibrated")
	case cal.P1 == nil || cal.P2 == nil:
		cp.status.SetText("Needs two reference points")
	default:
		cp.status.SetText("Targets must be numbers and the points must differ")
	}
}

func (cp *CalibrationPanel) setTarget(index int, text string) {
	err := cp.state.Update(func(s *workspace.Session) error {
		return s.SetCalibrationTarget(index, text)
	})
	if err != nil && cp.window != nil {
		dialog.ShowError(err, cp.window)
	}
}

func (cp *CalibrationPanel) apply() {
	_ = cp.state.Update(func(s *workspace.Session) error {
		s.ApplyCalibration()
		return nil
	})
}
