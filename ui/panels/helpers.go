package panels

import (
	"fmt"

	"nmr-annotator/internal/interact"
	"nmr-annotator/internal/workspace"
)

func formatShift(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f ppm", *v)
}

func peakRow(ws *workspace.Workspace, i int, p workspace.Peak) string {
	row := fmt.Sprintf("%d. %s  %s", i+1, formatShift(p.EffectiveShift()), p.Region())
	if mk, ok := ws.FindMarker(p.MarkerID); ok {
		row += "  → " + mk.Label
	}
	if p.Multiplicity != "" {
		row += "  " + p.Multiplicity
	}
	return row
}

func strp(s string) *string { return &s }

// selectPeak selects without touching history.
func selectPeak(id string) func(c *interact.Controller) interact.Effect {
	return func(c *interact.Controller) interact.Effect {
		c.Session().SelectPeak(id)
		return interact.EffectSelection
	}
}

func selectMarker(id string) func(c *interact.Controller) interact.Effect {
	return func(c *interact.Controller) interact.Effect {
		c.Session().SelectMarker(id)
		return interact.EffectSelection
	}
}
