package panels

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"nmr-annotator/internal/app"
	"nmr-annotator/internal/render"
	"nmr-annotator/internal/workspace"
)

// MarkersPanel lists structure markers and links them to peaks.
type MarkersPanel struct {
	state     *app.State
	window    fyne.Window
	container fyne.CanvasObject

	rows     []string
	ids      []string
	selected string
	selPeak  string
	syncing  bool

	list    *widget.List
	label   *widget.Entry
	note    *widget.Entry
	linkBtn *widget.Button
	linked  *widget.Label
}

// NewMarkersPanel creates the markers panel.
func NewMarkersPanel(state *app.State) *MarkersPanel {
	mp := &MarkersPanel{state: state}

	mp.list = widget.NewList(
		func() int { return len(mp.rows) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			o.(*widget.Label).SetText(mp.rows[i])
		},
	)
	mp.list.OnSelected = func(i widget.ListItemID) {
		if mp.syncing || i >= len(mp.ids) {
			return
		}
		state.Input(selectMarker(mp.ids[i]))
	}

	mp.label = widget.NewEntry()
	mp.note = widget.NewEntry()
	mp.label.OnSubmitted = func(string) { mp.apply() }
	mp.note.OnSubmitted = func(string) { mp.apply() }
	mp.linked = widget.NewLabel("")
	mp.linked.Wrapping = fyne.TextWrapWord

	mp.linkBtn = widget.NewButton("Link Selected Peak", mp.link)

	editor := container.NewVBox(
		widget.NewForm(
			widget.NewFormItem("Label", mp.label),
			widget.NewFormItem("Note", mp.note),
		),
		container.NewHBox(
			widget.NewButton("Apply", mp.apply),
			widget.NewButton("Delete", mp.deleteSelected),
		),
		widget.NewSeparator(),
		mp.linkBtn,
		mp.linked,
	)
	mp.container = container.NewVSplit(mp.list, container.NewVScroll(editor))
	return mp
}

// Container returns the panel container.
func (mp *MarkersPanel) Container() fyne.CanvasObject {
	return mp.container
}

// Sync reloads the list and the editor.
func (mp *MarkersPanel) Sync() {
	var (
		rows, ids []string
		sel       workspace.Marker
		hasSel    bool
		peakSel   string
		linked    int
	)
	mp.state.View(func(ws *workspace.Workspace, s render.Selection) {
		counts := make(map[string]int)
		for _, p := range ws.Peaks {
			if p.MarkerID != "" {
				counts[p.MarkerID]++
			}
		}
		for _, m := range ws.Markers {
			rows = append(rows, fmt.Sprintf("%s  (%d peaks)  %s", m.Label, counts[m.ID], m.Note))
			ids = append(ids, m.ID)
		}
		sel, hasSel = ws.FindMarker(s.MarkerID)
		linked = counts[s.MarkerID]
		peakSel = s.PeakID
	})

	mp.syncing = true
	defer func() { mp.syncing = false }()

	mp.rows, mp.ids = rows, ids
	mp.list.Refresh()
	mp.selPeak = peakSel
	mp.selected = ""
	if hasSel {
		mp.selected = sel.ID
		for i, id := range ids {
			if id == sel.ID {
				mp.list.Select(i)
			}
		}
		mp.label.SetText(sel.Label)
		mp.note.SetText(sel.Note)
		mp.linked.SetText(fmt.Sprintf("%d linked peaks", linked))
	} else {
		mp.list.UnselectAll()
		mp.label.SetText("")
		mp.note.SetText("")
		mp.linked.SetText("no marker selected")
	}

	if mp.selected != "" && mp.selPeak != "" {
		mp.linkBtn.Enable()
	} else {
		mp.linkBtn.Disable()
	}
}

func (mp *MarkersPanel) apply() {
	id := mp.selected
	if id == "" {
		return
	}
	mp.showError(mp.state.Update(func(s *workspace.Session) error {
		return s.UpdateMarker(id, workspace.MarkerFields{
			Label: strp(mp.label.Text),
			Note:  strp(mp.note.Text),
		})
	}))
}

func (mp *MarkersPanel) deleteSelected() {
	id := mp.selected
	if id == "" {
		return
	}
	mp.showError(mp.state.Update(func(s *workspace.Session) error {
		return s.DeleteMarker(id)
	}))
}

func (mp *MarkersPanel) link() {
	peak, marker := mp.selPeak, mp.selected
	if peak == "" || marker == "" {
		return
	}
	mp.showError(mp.state.Update(func(s *workspace.Session) error {
		return s.LinkPeak(peak, marker)
	}))
}

func (mp *MarkersPanel) showError(err error) {
	if err != nil && mp.window != nil {
		dialog.ShowError(err, mp.window)
	}
}
