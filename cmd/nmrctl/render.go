package main

import (
	"fmt"
	"image"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	layer "nmr-annotator/internal/image"
	"nmr-annotator/internal/project"
	"nmr-annotator/internal/render"
	"nmr-annotator/internal/shift"
	"nmr-annotator/internal/workspace"
)

var (
	renderOut    string
	renderWidth  int
	renderHeight int
)

var renderCmd = &cobra.Command{
	Use:   "render WORKSPACE.json",
	Short: "Render an exported workspace to PNG",
	Long: `Draws the spectrum and structure views side by side with peaks,
markers and their links. Source images referenced by the export are
loaded when they can be found next to it.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "Output PNG file (required)")
	renderCmd.Flags().IntVar(&renderWidth, "width", 0, "Pane width (default from config)")
	renderCmd.Flags().IntVar(&renderHeight, "height", 0, "Pane height (default from config)")
	renderCmd.MarkFlagRequired("out")
}

func loadSource(path string) image.Image {
	if path == "" {
		return nil
	}
	l, err := layer.Load(path)
	if err != nil {
		logger.Warn("source image unavailable", zap.String("path", path), zap.Error(err))
		return nil
	}
	return l.Image
}

func runRender(cmd *cobra.Command, args []string) error {
	f, err := project.Load(args[0])
	if err != nil {
		return err
	}

	opts := cfg.RenderOptions()
	if renderWidth > 0 {
		opts.Width = renderWidth
	}
	if renderHeight > 0 {
		opts.Height = renderHeight
	}

	src := render.Sources{Structure: loadSource(f.StructureSource(args[0]))}
	if f.Workspace.Mode == workspace.ModeImage {
		src.Spectrum = loadSource(f.SpectrumSource(args[0]))
	}

	img := render.Composite(f.Workspace, src, opts)
	if err := render.SavePNG(renderOut, img); err != nil {
		return err
	}
	logger.Info("rendered", zap.String("workspace", args[0]), zap.String("out", renderOut))
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%dx%d)\n", renderOut, img.Bounds().Dx(), img.Bounds().Dy())
	return nil
}

// writeWorkspace prints the peaks of a workspace and its advisories.
func writeWorkspace(w io.Writer, title string, ws *workspace.Workspace) error {
	t := newTable(title, "#", "x", "ppm", "region", "label", "multiplicity", "integration", "note")
	for i, p := range ws.Peaks {
		ppm := "-"
		if v := p.EffectiveShift(); v != nil {
			ppm = fmt.Sprintf("%.2f", *v)
		}
		label := ""
		if mk, ok := ws.FindMarker(p.MarkerID); ok {
			label = mk.Label
		}
		t.add(fmt.Sprint(i+1), fmt.Sprintf("%.4g", p.Pos.X), ppm, p.Region().String(), label, p.Multiplicity, p.Integration, p.Note)
	}
	if err := t.write(w); err != nil {
		return err
	}
	for _, a := range ws.Advisories() {
		style := mutedStyle
		if a.Severity == shift.SeverityWarning {
			style = warnStyle
		}
		fmt.Fprintf(w, "%s %s\n", style.Render(a.Severity.String()+":"), a.Message)
	}
	return nil
}
