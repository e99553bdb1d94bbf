// Package main provides the entry point for the NMR Annotator desktop app.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	fyneapp "fyne.io/fyne/v2/app"
	"go.uber.org/zap"

	"nmr-annotator/internal/app"
	"nmr-annotator/internal/config"
	"nmr-annotator/internal/version"
	"nmr-annotator/ui/mainwindow"
	"nmr-annotator/ui/prefs"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "config file")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Info("starting", zap.String("version", version.String()))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("loading config", zap.Error(err))
	}

	fyneApp := fyneapp.NewWithID("io.github.nmr-annotator")
	fyneApp.Settings().SetTheme(&app.AnnotatorTheme{})

	state := app.NewState(cfg, logger)
	appPrefs := prefs.Load()
	win := mainwindow.New(fyneApp, state, appPrefs, logger)

	// nmr-annotator [workspace.json | spectrum [structure]]
	args := flag.Args()
	switch {
	case len(args) > 0 && strings.HasSuffix(strings.ToLower(args[0]), ".json"):
		if err := state.Import(args[0]); err != nil {
			logger.Error("import failed", zap.String("path", args[0]), zap.Error(err))
		}
	case len(args) > 0:
		state.LoadSpectrumAsync(args[0])
		if len(args) > 1 {
			state.LoadStructureAsync(args[1])
		}
	default:
		win.RestoreLast()
	}

	win.ShowAndRun()
	state.WaitLoads()
}
