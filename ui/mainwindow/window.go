// Package mainwindow provides the main application window.
package mainwindow

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"nmr-annotator/internal/app"
	"nmr-annotator/internal/archive"
	layer "nmr-annotator/internal/image"
	"nmr-annotator/internal/interact"
	"nmr-annotator/internal/qa"
	"nmr-annotator/internal/trace"
	"nmr-annotator/internal/version"
	"nmr-annotator/internal/workspace"
	"nmr-annotator/pkg/geometry"
	"nmr-annotator/ui/canvas"
	"nmr-annotator/ui/panels"
	"nmr-annotator/ui/prefs"
)

const appTitle = "NMR Annotator"

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app   fyne.App
	state *app.State
	prefs *prefs.Prefs
	log   *zap.Logger

	spectrum  *canvas.ViewCanvas
	structure *canvas.ViewCanvas
	sidePanel *panels.SidePanel
	toolRadio *widget.RadioGroup
	statusBar *widget.Label
	split     *container.Split

	watcher   *app.SourceWatcher
	watchItem *fyne.MenuItem

	mods    interact.Modifiers
	docName string
}

// New creates a new main window.
func New(fyneApp fyne.App, state *app.State, p *prefs.Prefs, log *zap.Logger) *MainWindow {
	mw := &MainWindow{
		Window:  fyneApp.NewWindow(appTitle),
		app:     fyneApp,
		state:   state,
		prefs:   p,
		log:     log,
		docName: "Untitled",
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupKeys()
	mw.setupEventHandlers()
	mw.updateTitle(false)

	mw.Resize(fyne.NewSize(
		float32(p.FloatWithFallback(prefs.KeyWindowWidth, 1280)),
		float32(p.FloatWithFallback(prefs.KeyWindowHeight, 800)),
	))
	mw.SetCloseIntercept(mw.onClose)
	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.spectrum = canvas.NewViewCanvas(mw.state, workspace.ViewSpectrum)
	mw.structure = canvas.NewViewCanvas(mw.state, workspace.ViewStructure)
	hover := func(v workspace.ViewID, world geometry.Point2D) {
		mw.statusBar.SetText(fmt.Sprintf("%s  x=%.4g  y=%.4g", v, world.X, world.Y))
	}
	mw.spectrum.OnHover(hover)
	mw.structure.OnHover(hover)

	client := qa.NewClient(mw.state.Config().QA.BaseURL, mw.state.Config().QA.Timeout,
		mw.state.Config().QA.TopK, mw.log.Named("qa"))
	mw.sidePanel = panels.NewSidePanel(mw.state, client)
	mw.sidePanel.SetWindow(mw.Window)

	mw.statusBar = widget.NewLabel("Ready")

	views := container.NewVSplit(mw.spectrum, mw.structure)
	views.SetOffset(0.55)

	mw.split = container.NewHSplit(views, mw.sidePanel.Container())
	mw.split.SetOffset(mw.prefs.FloatWithFallback(prefs.KeySplit, 0.72))

	content := container.NewBorder(
		mw.createToolbar(),                // top
		container.NewPadded(mw.statusBar), // bottom
		nil,                               // left
		nil,                               // right
		mw.split,                          // center
	)
	mw.SetContent(content)
}

// createToolbar creates the tool selector.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	var names []string
	byName := make(map[string]interact.Tool)
	for _, t := range interact.Tools() {
		name := fmt.Sprintf("%s (%s)", t, strings.ToUpper(interact.ToolKey(t)))
		names = append(names, name)
		byName[name] = t
	}
	mw.toolRadio = widget.NewRadioGroup(names, func(sel string) {
		t, ok := byName[sel]
		if !ok || t == mw.state.Tool() {
			return
		}
		mw.state.Input(func(c *interact.Controller) interact.Effect { return c.SetTool(t) })
	})
	mw.toolRadio.Horizontal = true
	mw.toolRadio.Required = true
	mw.syncTool()

	return container.NewHBox(
		widget.NewLabel("Tool:"),
		mw.toolRadio,
		widget.NewButton("Undo", mw.onUndo),
		widget.NewButton("Redo", mw.onRedo),
	)
}

func (mw *MainWindow) syncTool() {
	t := mw.state.Tool()
	mw.toolRadio.SetSelected(fmt.Sprintf("%s (%s)", t, strings.ToUpper(interact.ToolKey(t))))
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	mw.watchItem = fyne.NewMenuItem("Watch Spectrum File", mw.onToggleWatch)

	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Spectrum...", mw.onOpenSpectrum),
		fyne.NewMenuItem("Open Structure...", mw.onOpenStructure),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Import Workspace...", mw.onImport),
		fyne.NewMenuItem("Export Workspace...", mw.onExport),
		fyne.NewMenuItem("Export PNG...", mw.onExportPNG),
		fyne.NewMenuItem("Archive Snapshot", mw.onArchive),
		fyne.NewMenuItemSeparator(),
		mw.watchItem,
	)

	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Undo", mw.onUndo),
		fyne.NewMenuItem("Redo", mw.onRedo),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Delete Selected", func() { mw.key("delete") }),
		fyne.NewMenuItem("Link Peak to Marker", func() { mw.key("l") }),
		fyne.NewMenuItem("Detect Peaks", func() { mw.key("d") }),
	)

	var toolItems []*fyne.MenuItem
	for _, t := range interact.Tools() {
		toolItems = append(toolItems, fyne.NewMenuItem(t.String(), func() {
			mw.state.Input(func(c *interact.Controller) interact.Effect { return c.SetTool(t) })
		}))
	}
	toolsMenu := fyne.NewMenu("Tools", toolItems...)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Reset Spectrum View", func() { mw.resetView(workspace.ViewSpectrum) }),
		fyne.NewMenuItem("Reset Structure View", func() { mw.resetView(workspace.ViewStructure) }),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, viewMenu, toolsMenu, helpMenu))
}

// setupKeys routes keyboard input to the controller. Text entries keep
// their own keys because the canvas only sees unfocused input.
func (mw *MainWindow) setupKeys() {
	dc, ok := mw.Canvas().(desktop.Canvas)
	if !ok {
		return
	}
	dc.SetOnKeyDown(func(ev *fyne.KeyEvent) {
		if mw.trackModifier(ev.Name, true) {
			return
		}
		mw.state.Input(func(c *interact.Controller) interact.Effect {
			return c.KeyDown(keyName(ev.Name), mw.mods)
		})
	})
	dc.SetOnKeyUp(func(ev *fyne.KeyEvent) {
		if mw.trackModifier(ev.Name, false) {
			return
		}
		mw.state.Input(func(c *interact.Controller) interact.Effect {
			return c.KeyUp(keyName(ev.Name))
		})
	})
}

func (mw *MainWindow) trackModifier(k fyne.KeyName, down bool) bool {
	switch k {
	case desktop.KeyShiftLeft, desktop.KeyShiftRight:
		mw.mods.Shift = down
	case desktop.KeyControlLeft, desktop.KeyControlRight:
		mw.mods.Ctrl = down
	case desktop.KeyAltLeft, desktop.KeyAltRight:
		mw.mods.Alt = down
	case desktop.KeySuperLeft, desktop.KeySuperRight:
		mw.mods.Meta = down
	default:
		return false
	}
	return true
}

func keyName(k fyne.KeyName) string {
	return strings.ToLower(string(k))
}

func (mw *MainWindow) key(name string) {
	mw.state.Input(func(c *interact.Controller) interact.Effect {
		return c.KeyDown(name, interact.Modifiers{})
	})
}

// setupEventHandlers registers for application events.
func (mw *MainWindow) setupEventHandlers() {
	refresh := func(interface{}) {
		mw.spectrum.Refresh()
		mw.structure.Refresh()
	}
	for _, ev := range []app.EventType{
		app.EventWorkspaceChanged,
		app.EventSelectionChanged,
		app.EventViewChanged,
		app.EventSpectrumLoaded,
		app.EventStructureLoaded,
	} {
		mw.state.On(ev, refresh)
	}

	mw.state.On(app.EventToolChanged, func(interface{}) { mw.syncTool() })

	mw.state.On(app.EventSpectrumLoaded, func(data interface{}) {
		if path, ok := data.(string); ok {
			mw.prefs.SetString(prefs.KeyLastSpectrum, path)
			mw.updateStatus("Spectrum loaded: " + filepath.Base(path))
		}
	})
	mw.state.On(app.EventStructureLoaded, func(data interface{}) {
		if path, ok := data.(string); ok {
			mw.prefs.SetString(prefs.KeyLastStruct, path)
			mw.updateStatus("Structure loaded: " + filepath.Base(path))
		}
	})
	mw.state.On(app.EventLoadFailed, func(data interface{}) {
		if err, ok := data.(error); ok {
			dialog.ShowError(err, mw.Window)
		}
	})
	mw.state.On(app.EventImported, func(data interface{}) {
		if path, ok := data.(string); ok {
			mw.docName = filepath.Base(path)
			mw.updateStatus("Workspace imported: " + path)
		}
	})
	mw.state.On(app.EventExported, func(data interface{}) {
		if path, ok := data.(string); ok {
			mw.docName = filepath.Base(path)
			mw.updateStatus("Workspace exported: " + path)
		}
	})
	mw.state.On(app.EventModified, func(data interface{}) {
		if modified, ok := data.(bool); ok {
			mw.updateTitle(modified)
		}
	})
}

func (mw *MainWindow) updateTitle(modified bool) {
	title := fmt.Sprintf("%s %s - %s", appTitle, version.String(), mw.docName)
	if modified {
		title += " *"
	}
	mw.SetTitle(title)
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// RestoreLast reopens the files from the previous session.
func (mw *MainWindow) RestoreLast() {
	if path := mw.prefs.String(prefs.KeyLastSpectrum); path != "" {
		mw.state.LoadSpectrumAsync(path)
	}
	if path := mw.prefs.String(prefs.KeyLastStruct); path != "" {
		mw.state.LoadStructureAsync(path)
	}
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.String(prefs.KeyLastDir)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given file path.
func (mw *MainWindow) saveLastDir(filePath string) {
	mw.prefs.SetString(prefs.KeyLastDir, filepath.Dir(filePath))
}

func (mw *MainWindow) openFile(exts []string, onPath func(path string)) {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)
		onPath(path)
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter(exts))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) saveFile(name, ext string, onPath func(path string)) {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		if filepath.Ext(path) != ext {
			path += ext
		}
		mw.saveLastDir(path)
		onPath(path)
	}, mw.Window)
	fd.SetFileName(name + ext)
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func dotted(exts []string) []string {
	out := make([]string, len(exts))
	for i, e := range exts {
		out[i] = "." + e
	}
	return out
}

func (mw *MainWindow) onOpenSpectrum() {
	exts := append(dotted(layer.SupportedFormats()), trace.Extensions...)
	mw.openFile(exts, func(path string) {
		mw.stopWatch()
		mw.updateStatus("Loading " + filepath.Base(path) + "...")
		mw.state.LoadSpectrumAsync(path)
	})
}

func (mw *MainWindow) onOpenStructure() {
	mw.openFile(dotted(layer.SupportedFormats()), func(path string) {
		mw.updateStatus("Loading " + filepath.Base(path) + "...")
		mw.state.LoadStructureAsync(path)
	})
}

func (mw *MainWindow) onImport() {
	mw.openFile([]string{".json"}, func(path string) {
		if err := mw.state.Import(path); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	})
}

func (mw *MainWindow) onExport() {
	mw.saveFile(strings.TrimSuffix(mw.docName, ".json"), ".json", func(path string) {
		if err := mw.state.Export(path); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	})
}

func (mw *MainWindow) onExportPNG() {
	mw.saveFile(strings.TrimSuffix(mw.docName, ".json"), ".png", func(path string) {
		if err := mw.state.ExportPNG(path); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.updateStatus("PNG exported: " + path)
	})
}

func (mw *MainWindow) onArchive() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := archive.Open(ctx, mw.state.Config().Archive.Path, mw.log.Named("archive"))
	if err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}
	defer store.Close()

	id, err := mw.state.Archive(ctx, store, strings.TrimSuffix(mw.docName, ".json"))
	if err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}
	mw.updateStatus(fmt.Sprintf("Archived as snapshot %d", id))
}

func (mw *MainWindow) onToggleWatch() {
	if mw.watcher != nil {
		mw.stopWatch()
		return
	}
	w, err := mw.state.WatchSpectrum(mw.state.Config().Watch.Debounce)
	if err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}
	mw.watcher = w
	mw.watchItem.Checked = true
	mw.updateStatus("Watching " + w.Path())
}

func (mw *MainWindow) stopWatch() {
	if mw.watcher == nil {
		return
	}
	if err := mw.watcher.Close(); err != nil {
		mw.log.Warn("closing watcher", zap.Error(err))
	}
	mw.watcher = nil
	mw.watchItem.Checked = false
}

func (mw *MainWindow) onUndo() {
	mw.state.Input(func(c *interact.Controller) interact.Effect {
		return c.KeyDown("z", interact.Modifiers{Ctrl: true})
	})
}

func (mw *MainWindow) onRedo() {
	mw.state.Input(func(c *interact.Controller) interact.Effect {
		return c.KeyDown("y", interact.Modifiers{Ctrl: true})
	})
}

func (mw *MainWindow) resetView(v workspace.ViewID) {
	mw.state.Input(func(c *interact.Controller) interact.Effect {
		c.Session().ResetView(v)
		return interact.EffectView
	})
}

// SavePreferences stores the window layout.
func (mw *MainWindow) SavePreferences() {
	size := mw.Canvas().Size()
	mw.prefs.SetFloat(prefs.KeyWindowWidth, float64(size.Width))
	mw.prefs.SetFloat(prefs.KeyWindowHeight, float64(size.Height))
	mw.prefs.SetFloat(prefs.KeySplit, mw.split.Offset)
	if err := mw.prefs.Save(); err != nil {
		mw.log.Warn("saving preferences", zap.Error(err))
	}
}

func (mw *MainWindow) onClose() {
	mw.stopWatch()
	mw.SavePreferences()
	if !mw.state.Modified() {
		mw.Close()
		return
	}
	dialog.ShowConfirm("Unsaved Changes",
		"The workspace has changes that were not exported. Quit anyway?",
		func(quit bool) {
			if quit {
				mw.Close()
			}
		}, mw.Window)
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About "+appTitle,
		fmt.Sprintf("%s %s\n\n"+
			"Annotates 1H NMR spectra: peaks, calibration,\n"+
			"chemical-shift regions and structure links.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			appTitle, version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}
