package panels

import (
	"fmt"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"nmr-annotator/internal/app"
	"nmr-annotator/internal/render"
	"nmr-annotator/internal/shift"
	"nmr-annotator/internal/workspace"
)

// PeaksPanel lists peaks and edits the selected one.
type PeaksPanel struct {
	state     *app.State
	window    fyne.Window
	container fyne.CanvasObject

	rows     []string
	ids      []string
	selected string
	syncing  bool

	list       *widget.List
	override   *widget.Entry
	mult       *widget.Entry
	integ      *widget.Entry
	note       *widget.Entry
	shiftLabel *widget.Label
	advisories *widget.Label
	detectBtn  *widget.Button
}

// NewPeaksPanel creates the peaks panel.
func NewPeaksPanel(state *app.State) *PeaksPanel {
	pp := &PeaksPanel{state: state}

	pp.list = widget.NewList(
		func() int { return len(pp.rows) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			o.(*widget.Label).SetText(pp.rows[i])
		},
	)
	pp.list.OnSelected = func(i widget.ListItemID) {
		if pp.syncing || i >= len(pp.ids) {
			return
		}
		state.Input(selectPeak(pp.ids[i]))
	}

	pp.override = widget.NewEntry()
	pp.override.SetPlaceHolder("computed")
	pp.mult = widget.NewEntry()
	pp.mult.SetPlaceHolder("s, d, t, q, m...")
	pp.integ = widget.NewEntry()
	pp.note = widget.NewEntry()
	pp.shiftLabel = widget.NewLabel("")
	pp.advisories = widget.NewLabel("")
	pp.advisories.Wrapping = fyne.TextWrapWord

	form := widget.NewForm(
		widget.NewFormItem("Shift", pp.shiftLabel),
		widget.NewFormItem("Override", pp.override),
		widget.NewFormItem("Multiplicity", pp.mult),
		widget.NewFormItem("Integration", pp.integ),
		widget.NewFormItem("Note", pp.note),
	)
	for _, e := range []*widget.Entry{pp.override, pp.mult, pp.integ, pp.note} {
		e.OnSubmitted = func(string) { pp.apply() }
	}

	applyBtn := widget.NewButton("Apply", pp.apply)
	deleteBtn := widget.NewButton("Delete", pp.deleteSelected)
	pp.detectBtn = widget.NewButton("Detect Peaks", pp.detect)

	editor := container.NewVBox(
		form,
		container.NewHBox(applyBtn, deleteBtn),
		widget.NewSeparator(),
		pp.detectBtn,
		widget.NewLabel("Advisories"),
		pp.advisories,
	)
	pp.container = container.NewVSplit(pp.list, container.NewVScroll(editor))
	return pp
}

// Container returns the panel container.
func (pp *PeaksPanel) Container() fyne.CanvasObject {
	return pp.container
}

// Sync reloads the list and the editor.
func (pp *PeaksPanel) Sync() {
	var (
		sel     workspace.Peak
		hasSel  bool
		mode    workspace.Mode
		rows    []string
		ids     []string
		advText []string
	)
	pp.state.View(func(ws *workspace.Workspace, s render.Selection) {
		mode = ws.Mode
		for i, p := range ws.Peaks {
			rows = append(rows, peakRow(ws, i, p))
			ids = append(ids, p.ID)
		}
		sel, hasSel = ws.FindPeak(s.PeakID)
		for _, a := range ws.Advisories() {
			prefix := "•"
			if a.Severity == shift.SeverityWarning {
				prefix = "⚠"
			}
			advText = append(advText, prefix+" "+a.Message)
		}
	})

	pp.syncing = true
	defer func() { pp.syncing = false }()

	pp.rows, pp.ids = rows, ids
	pp.list.Refresh()
	pp.selected = ""
	if hasSel {
		pp.selected = sel.ID
		for i, id := range ids {
			if id == sel.ID {
				pp.list.Select(i)
			}
		}
		pp.shiftLabel.SetText(fmt.Sprintf("%s (%s)", formatShift(sel.EffectiveShift()), sel.Region()))
		pp.override.SetText(sel.ShiftOverride)
		pp.mult.SetText(sel.Multiplicity)
		pp.integ.SetText(sel.Integration)
		pp.note.SetText(sel.Note)
	} else {
		pp.list.UnselectAll()
		pp.shiftLabel.SetText("no peak selected")
		for _, e := range []*widget.Entry{pp.override, pp.mult, pp.integ, pp.note} {
			e.SetText("")
		}
	}

	if mode == workspace.ModeTrace {
		pp.detectBtn.Enable()
	} else {
		pp.detectBtn.Disable()
	}
	if len(advText) == 0 {
		pp.advisories.SetText("none")
	} else {
		pp.advisories.SetText(strings.Join(advText, "\n"))
	}
}

func (pp *PeaksPanel) apply() {
	id := pp.selected
	if id == "" {
		return
	}
	err := pp.state.Update(func(s *workspace.Session) error {
		return s.UpdatePeak(id, workspace.PeakFields{
			ShiftOverride: strp(pp.override.Text),
			Multiplicity:  strp(pp.mult.Text),
			Integration:   strp(pp.integ.Text),
			Note:          strp(pp.note.Text),
		})
	})
	pp.showError(err)
}

func (pp *PeaksPanel) deleteSelected() {
	id := pp.selected
	if id == "" {
		return
	}
	pp.showError(pp.state.Update(func(s *workspace.Session) error {
		return s.DeletePeak(id)
	}))
}

func (pp *PeaksPanel) detect() {
	opts := pp.state.Config().Peaks
	pp.showError(pp.state.Update(func(s *workspace.Session) error {
		_, err := s.DetectPeaks(opts)
		return err
	}))
}

func (pp *PeaksPanel) showError(err error) {
	if err != nil && pp.window != nil {
		dialog.ShowError(err, pp.window)
	}
}
