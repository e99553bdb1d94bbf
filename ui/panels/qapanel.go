package panels

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"nmr-annotator/internal/qa"
)

// QAPanel asks the document QA service and shows the answer with its
// sources.
type QAPanel struct {
	client    *qa.Client
	topK      int
	window    fyne.Window
	container fyne.CanvasObject

	question *widget.Entry
	askBtn   *widget.Button
	answer   *widget.Label
	sources  *widget.Label
}

// NewQAPanel creates the QA panel.
func NewQAPanel(client *qa.Client, topK int) *QAPanel {
	qp := &QAPanel{client: client, topK: topK}

	qp.question = widget.NewEntry()
	qp.question.SetPlaceHolder("Where does residual CHCl3 appear?")
	qp.question.OnSubmitted = func(string) { qp.ask() }
	qp.askBtn = widget.NewButton("Ask", qp.ask)

	qp.answer = widget.NewLabel("")
	qp.answer.Wrapping = fyne.TextWrapWord
	qp.sources = widget.NewLabel("")
	qp.sources.Wrapping = fyne.TextWrapWord

	qp.container = container.NewBorder(
		container.NewBorder(nil, nil, nil, qp.askBtn, qp.question),
		nil, nil, nil,
		container.NewVScroll(container.NewVBox(qp.answer, widget.NewSeparator(), qp.sources)),
	)
	return qp
}

// Container returns the panel container.
func (qp *QAPanel) Container() fyne.CanvasObject {
	return qp.container
}

func (qp *QAPanel) ask() {
	question := strings.TrimSpace(qp.question.Text)
	if question == "" || qp.client == nil {
		return
	}
	qp.askBtn.Disable()
	qp.answer.SetText("Asking...")
	qp.sources.SetText("")

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		res, err := qp.client.Ask(ctx, question, qp.topK)
		qp.show(res, err)
	}()
}

func (qp *QAPanel) show(res *qa.AskResponse, err error) {
	defer qp.askBtn.Enable()
	if err != nil {
		qp.answer.SetText("Error: " + err.Error())
		return
	}
	qp.answer.SetText(res.Answer)
	var sb strings.Builder
	for _, c := range res.Contexts {
		fmt.Fprintf(&sb, "%s #%d (%.2f)\n%s\n\n", c.StoredFilename, c.ChunkID, c.Score, c.Snippet)
	}
	qp.sources.SetText(sb.String())
}
