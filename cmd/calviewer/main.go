// calviewer is the interactive calibration report viewer: load a report CSV,
// filter and select variables, inspect the error convergence and value
// evolution charts with pan/zoom, and export the current view as PNG or CSV.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	png "image/png"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	fyne "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/JamesVaughan/visualize-calibration-report/src/analysis"
	"github.com/JamesVaughan/visualize-calibration-report/src/export"
	"github.com/JamesVaughan/visualize-calibration-report/src/logging"
	"github.com/JamesVaughan/visualize-calibration-report/src/plot"
	"github.com/JamesVaughan/visualize-calibration-report/src/viewstate"
)

type uiState struct {
	app    fyne.App
	window fyne.Window

	state  *viewstate.State
	loader viewstate.Loader

	filePath   string
	filterText string
	maxVars    int
	darkMode   bool
	loading    bool

	// widgets
	fileLabel      *widget.Label
	statusLabel    *widget.Label
	filterEntry    *widget.Entry
	varsBox        *fyne.Container
	varsScroll     *container.Scroll
	varsCountLabel *widget.Label
	selCountLabel  *widget.Label
	errImgCanvas   *canvas.Image
	valImgCanvas   *canvas.Image
	errOverlay     *panZoomOverlay
	valOverlay     *panZoomOverlay
	summaryTable   *widget.Table
	summaryHeader  *widget.Label

	summary     analysis.Summary
	haveSummary bool
}

// dark/light theme wrappers pin the variant regardless of the OS setting.
type darkTheme struct{}

func (d *darkTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	return theme.DefaultTheme().Color(name, theme.VariantDark)
}
func (d *darkTheme) Font(style fyne.TextStyle) fyne.Resource { return theme.DefaultTheme().Font(style) }
func (d *darkTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}
func (d *darkTheme) Size(name fyne.ThemeSizeName) float32 { return theme.DefaultTheme().Size(name) }

type lightTheme struct{}

func (l *lightTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	return theme.DefaultTheme().Color(name, theme.VariantLight)
}
func (l *lightTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}
func (l *lightTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}
func (l *lightTheme) Size(name fyne.ThemeSizeName) float32 { return theme.DefaultTheme().Size(name) }

func main() {
	var fileFlag string
	flag.StringVar(&fileFlag, "file", "", "Path to a calibration report CSV")
	flag.Parse()

	a := app.NewWithID("com.jamesvaughan.calviewer")
	w := a.NewWindow("Calibration Report Viewer")
	w.Resize(fyne.NewSize(1600, 1000))

	ui := &uiState{
		app:      a,
		window:   w,
		state:    viewstate.New(),
		filePath: fileFlag,
		maxVars:  analysis.DefaultMaxVars,
		darkMode: true,
	}
	loadPrefs(ui)
	if fileFlag != "" {
		ui.filePath = fileFlag
	}
	applyAppTheme(ui)

	// top bar controls
	ui.fileLabel = widget.NewLabel(truncatePath(ui.filePath, 60))
	ui.statusLabel = widget.NewLabel("")
	ui.filterEntry = widget.NewEntry()
	ui.filterEntry.SetPlaceHolder("filter terms, comma separated")
	ui.filterEntry.SetText(ui.filterText)
	ui.filterEntry.OnSubmitted = func(v string) {
		ui.filterText = v
		savePrefs(ui)
		rebuildVariableList(ui)
	}

	maxVarsSelect := widget.NewSelect([]string{"10", "20", "50", "100", "200"}, nil)
	maxVarsSelect.Selected = strconv.Itoa(ui.maxVars)
	maxVarsSelect.OnChanged = func(v string) {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			ui.maxVars = n
			savePrefs(ui)
			rebuildVariableList(ui)
		}
	}

	darkChk := widget.NewCheck("Dark", nil)
	darkChk.SetChecked(ui.darkMode)
	darkChk.OnChanged = func(b bool) {
		ui.darkMode = b
		savePrefs(ui)
		applyAppTheme(ui)
		redrawCharts(ui)
	}

	selectAllBtn := widget.NewButton("Select All Filtered", func() {
		if ui.state.Dataset() == nil {
			return
		}
		names, err := filteredNames(ui)
		if err != nil {
			dialog.ShowError(err, ui.window)
			return
		}
		ui.state.SelectAll(names)
		rebuildVariableList(ui)
		redrawCharts(ui)
	})
	clearBtn := widget.NewButton("Clear Selection", func() {
		ui.state.ClearSelection()
		rebuildVariableList(ui)
		redrawCharts(ui)
	})
	cancelBtn := widget.NewButton("Cancel Load", func() { cancelLoad(ui) })

	top := container.NewHBox(
		widget.NewButton("Open…", func() { openFileDialog(ui) }),
		widget.NewButton("Reload", func() { loadAll(ui) }),
		cancelBtn,
		widget.NewLabel("Filter:"), ui.filterEntry,
		widget.NewLabel("Max vars:"), maxVarsSelect,
		selectAllBtn, clearBtn,
		darkChk,
		widget.NewLabel("File:"), ui.fileLabel,
	)

	// variable selection column
	ui.varsCountLabel = widget.NewLabel("No data loaded")
	ui.selCountLabel = widget.NewLabel("Selected: 0")
	ui.varsBox = container.NewVBox()
	ui.varsScroll = container.NewVScroll(ui.varsBox)
	ui.varsScroll.SetMinSize(fyne.NewSize(280, 600))
	left := container.NewBorder(
		container.NewVBox(ui.varsCountLabel, ui.selCountLabel, widget.NewSeparator()),
		nil, nil, nil, ui.varsScroll,
	)

	// chart canvases with pan/zoom overlays
	ui.errImgCanvas = canvas.NewImageFromImage(plot.Blank(100, 60, ui.state.Theme()))
	ui.errImgCanvas.FillMode = canvas.ImageFillContain
	ui.errImgCanvas.SetMinSize(fyne.NewSize(900, 320))
	ui.valImgCanvas = canvas.NewImageFromImage(plot.Blank(100, 60, ui.state.Theme()))
	ui.valImgCanvas.FillMode = canvas.ImageFillContain
	ui.valImgCanvas.SetMinSize(fyne.NewSize(900, 320))
	ui.errOverlay = newPanZoomOverlay(ui, viewstate.PaneError)
	ui.valOverlay = newPanZoomOverlay(ui, viewstate.PaneValue)

	chartsColumn := container.NewVBox(
		container.NewStack(ui.errImgCanvas, ui.errOverlay),
		widget.NewSeparator(),
		container.NewStack(ui.valImgCanvas, ui.valOverlay),
	)
	chartsScroll := container.NewVScroll(chartsColumn)
	chartsScroll.SetMinSize(fyne.NewSize(900, 650))

	// summary tab
	ui.summaryHeader = widget.NewLabel("No data loaded")
	buildSummaryTable(ui)
	summaryTab := container.NewBorder(ui.summaryHeader, nil, nil, nil, ui.summaryTable)

	tabs := container.NewAppTabs(
		container.NewTabItem("Charts", chartsScroll),
		container.NewTabItem("Summary", summaryTab),
	)
	tabs.SetTabLocation(container.TabLocationTop)

	content := container.NewBorder(top, ui.statusLabel, left, nil, tabs)
	w.SetContent(content)

	buildMenus(ui)

	// Redraw charts on window resize so they scale with width.
	if w.Canvas() != nil {
		prevW := int(w.Canvas().Size().Width)
		done := make(chan struct{})
		w.SetOnClosed(func() {
			savePrefs(ui)
			ui.loader.Cancel()
			close(done)
		})
		go func() {
			t := time.NewTicker(300 * time.Millisecond)
			defer t.Stop()
			for {
				select {
				case <-done:
					return
				case <-t.C:
					c := w.Canvas()
					if c == nil {
						continue
					}
					if curW := int(c.Size().Width); curW != prevW {
						prevW = curW
						fyne.Do(func() { redrawCharts(ui) })
					}
				}
			}
		}()
	}

	if ui.filePath != "" {
		loadAll(ui)
	}
	w.ShowAndRun()
}

func applyAppTheme(ui *uiState) {
	if ui.darkMode {
		ui.app.Settings().SetTheme(&darkTheme{})
		ui.state.SetTheme(plot.ThemeDark)
	} else {
		ui.app.Settings().SetTheme(&lightTheme{})
		ui.state.SetTheme(plot.ThemeLight)
	}
}

// menus and dialogs
func buildMenus(ui *uiState) {
	var items []*fyne.MenuItem
	for _, f := range recentFiles(ui) {
		f := f
		items = append(items, fyne.NewMenuItem(truncatePath(f, 60), func() {
			ui.filePath = f
			ui.fileLabel.SetText(truncatePath(f, 60))
			savePrefs(ui)
			loadAll(ui)
		}))
	}
	clearRecent := fyne.NewMenuItem("Clear Recent", func() { clearRecentFiles(ui); buildMenus(ui) })
	recentMenu := fyne.NewMenu("Open Recent", append(items, clearRecent)...)
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open…", func() { openFileDialog(ui) }),
		fyne.NewMenuItem("Reload", func() { loadAll(ui) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Export Error Chart…", func() { exportPaneImage(ui, viewstate.PaneError, "error_convergence.png") }),
		fyne.NewMenuItem("Export Value Chart…", func() { exportPaneImage(ui, viewstate.PaneValue, "value_evolution.png") }),
		fyne.NewMenuItem("Export Error Data…", func() { exportPaneCSV(ui, viewstate.PaneError, "error_convergence.csv") }),
		fyne.NewMenuItem("Export Value Data…", func() { exportPaneCSV(ui, viewstate.PaneValue, "value_evolution.csv") }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() { ui.window.Close() }),
	)
	ui.window.SetMainMenu(fyne.NewMainMenu(fileMenu, recentMenu))

	canv := ui.window.Canvas()
	if canv != nil {
		canv.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: fyne.KeyModifierSuper}, func(fyne.Shortcut) { openFileDialog(ui) })
		canv.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: fyne.KeyModifierControl}, func(fyne.Shortcut) { openFileDialog(ui) })
		canv.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyR, Modifier: fyne.KeyModifierSuper}, func(fyne.Shortcut) { loadAll(ui) })
		canv.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyR, Modifier: fyne.KeyModifierControl}, func(fyne.Shortcut) { loadAll(ui) })
		canv.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyW, Modifier: fyne.KeyModifierSuper}, func(fyne.Shortcut) { ui.window.Close() })
		canv.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyW, Modifier: fyne.KeyModifierControl}, func(fyne.Shortcut) { ui.window.Close() })
	}
}

func openFileDialog(ui *uiState) {
	d := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil || rc == nil {
			return
		}
		defer rc.Close()
		ui.filePath = rc.URI().Path()
		ui.fileLabel.SetText(truncatePath(ui.filePath, 60))
		addRecentFile(ui, ui.filePath)
		savePrefs(ui)
		loadAll(ui)
	}, ui.window)
	d.Show()
}

// loading
func loadAll(ui *uiState) {
	if ui.filePath == "" {
		return
	}
	ui.loading = true
	ui.statusLabel.SetText("Loading " + filepath.Base(ui.filePath) + "…")
	ch := ui.loader.Start(ui.filePath, func(rows int) {
		fyne.Do(func() {
			if ui.loading {
				ui.statusLabel.SetText(fmt.Sprintf("Loading %s… %d rows", filepath.Base(ui.filePath), rows))
			}
		})
	})
	go func() {
		res, ok := <-ch
		if !ok {
			return
		}
		fyne.Do(func() { applyLoadResult(ui, res) })
	}()
}

func cancelLoad(ui *uiState) {
	if !ui.loading {
		return
	}
	ui.loader.Cancel()
	ui.loading = false
	ui.statusLabel.SetText("Load cancelled")
}

// applyLoadResult installs a completed load on the UI thread. A failed load
// keeps the prior dataset active; only the error is surfaced. A result that
// crossed the channel just before a cancel landed is discarded here: once the
// user cancelled, nothing from that load may touch the session.
func applyLoadResult(ui *uiState, res viewstate.LoadResult) {
	if !ui.loading {
		logging.Debugf("dropping load result for %s after cancel", res.Path)
		return
	}
	ui.loading = false
	if res.Err != nil {
		logging.Errorf("load %s: %v", res.Path, res.Err)
		ui.statusLabel.SetText("Load failed: " + res.Err.Error())
		dialog.ShowError(res.Err, ui.window)
		return
	}
	selection, err := analysis.SelectVariables(res.Dataset, analysis.ParseTerms(ui.filterText), ui.maxVars)
	if err != nil {
		// The cap comes from a validated widget, but guard anyway.
		selection = nil
	}
	ui.state.LoadDataset(res.Dataset, res.Path, selection)
	addRecentFile(ui, res.Path)
	savePrefs(ui)
	ui.statusLabel.SetText(fmt.Sprintf("Loaded %d iterations, %d variables",
		res.Dataset.Len(), res.Dataset.VariableCount()))
	rebuildVariableList(ui)
	refreshSummary(ui)
	redrawCharts(ui)
}

// filteredNames is the ranked, capped filter result for the current controls.
func filteredNames(ui *uiState) ([]string, error) {
	return analysis.SelectVariables(ui.state.Dataset(), analysis.ParseTerms(ui.filterText), ui.maxVars)
}

// rebuildVariableList repopulates the checkbox column from the current
// filter. Selection survives filtering; only visibility changes.
func rebuildVariableList(ui *uiState) {
	ui.varsBox.RemoveAll()
	ds := ui.state.Dataset()
	if ds == nil {
		ui.varsCountLabel.SetText("No data loaded")
		ui.selCountLabel.SetText("Selected: 0")
		return
	}
	names, err := filteredNames(ui)
	if err != nil {
		dialog.ShowError(err, ui.window)
		return
	}
	ui.varsCountLabel.SetText(fmt.Sprintf("Showing %d of %d variables", len(names), ds.VariableCount()))
	ui.selCountLabel.SetText(fmt.Sprintf("Selected: %d", len(ui.state.Selection())))
	for _, name := range names {
		name := name
		chk := widget.NewCheck(name, nil)
		chk.SetChecked(ui.state.IsSelected(name))
		chk.OnChanged = func(bool) {
			if err := ui.state.ToggleVariable(name); err != nil {
				logging.Warnf("toggle %s: %v", name, err)
				return
			}
			ui.selCountLabel.SetText(fmt.Sprintf("Selected: %d", len(ui.state.Selection())))
			redrawCharts(ui)
		}
		ui.varsBox.Add(chk)
	}
	ui.varsBox.Refresh()
}

// charts
func chartSize(ui *uiState) (int, int) {
	if ui.window == nil || ui.window.Canvas() == nil {
		return 1100, 340
	}
	sz := ui.window.Canvas().Size()
	// charts sit right of the variable column; keep a margin for scrollbars
	w := int(sz.Width) - 320
	if w < 800 {
		w = 800
	}
	h := int(float32(w) * 0.40)
	if h < 280 {
		h = 280
	}
	if h > 560 {
		h = 560
	}
	return w, h
}

func redrawCharts(ui *uiState) {
	ui.redrawPane(viewstate.PaneError)
	ui.redrawPane(viewstate.PaneValue)
}

func (ui *uiState) redrawPane(pane viewstate.Pane) {
	w, h := chartSize(ui)
	var img image.Image
	series := ui.state.PaneSeries(pane)
	if ui.state.Phase() == viewstate.Empty || len(series) == 0 {
		img = plot.Blank(w, h, ui.state.Theme())
	} else {
		rendered, err := plot.Render(series, ui.state.PaneViewport(pane), plot.RenderOptions{
			Width:  w,
			Height: h,
			Theme:  ui.state.Theme(),
			Title:  pane.Title(),
			YLabel: pane.YLabel(),
		})
		if err != nil {
			logging.Errorf("%s chart render: %v; showing blank fallback", pane, err)
			img = plot.Blank(w, h, ui.state.Theme())
		} else {
			img = rendered
		}
	}
	var cv *canvas.Image
	var ov *panZoomOverlay
	if pane == viewstate.PaneError {
		cv, ov = ui.errImgCanvas, ui.errOverlay
	} else {
		cv, ov = ui.valImgCanvas, ui.valOverlay
	}
	cv.Image = img
	cv.SetMinSize(fyne.NewSize(float32(w), float32(h)))
	cv.Refresh()
	ov.Refresh()
}

// summary
func buildSummaryTable(ui *uiState) {
	ui.summaryTable = widget.NewTable(
		func() (int, int) {
			if !ui.haveSummary {
				return 1, 3
			}
			return len(ui.summary.Top) + 1, 3
		},
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(id widget.TableCellID, o fyne.CanvasObject) {
			lbl := o.(*widget.Label)
			if id.Row == 0 {
				switch id.Col {
				case 0:
					lbl.SetText("#")
				case 1:
					lbl.SetText("Variable")
				case 2:
					lbl.SetText("Final |Error|")
				}
				return
			}
			rix := id.Row - 1
			if !ui.haveSummary || rix >= len(ui.summary.Top) {
				lbl.SetText("")
				return
			}
			vf := ui.summary.Top[rix]
			switch id.Col {
			case 0:
				lbl.SetText(strconv.Itoa(rix + 1))
			case 1:
				lbl.SetText(vf.Name)
			case 2:
				lbl.SetText(fmt.Sprintf("%.6g", vf.FinalAbsError))
			}
		},
	)
	ui.summaryTable.SetColumnWidth(0, 40)
	ui.summaryTable.SetColumnWidth(1, 420)
	ui.summaryTable.SetColumnWidth(2, 160)
}

func refreshSummary(ui *uiState) {
	ds := ui.state.Dataset()
	if ds == nil {
		ui.haveSummary = false
		ui.summaryHeader.SetText("No data loaded")
		ui.summaryTable.Refresh()
		return
	}
	s, err := analysis.Summarize(ds, analysis.DefaultTopN)
	if err != nil {
		logging.Errorf("summarize: %v", err)
		return
	}
	ui.summary = s
	ui.haveSummary = true
	improvement := "undefined"
	if !math.IsNaN(s.ImprovementPct) {
		improvement = fmt.Sprintf("%.2f%%", s.ImprovementPct)
	}
	ui.summaryHeader.SetText(fmt.Sprintf(
		"Iterations: %d   Variables: %d   Total |error| first→last: %.6g → %.6g   Improvement: %s",
		s.Iterations, s.Variables, s.TotalErrorFirst, s.TotalErrorLast, improvement))
	ui.summaryTable.Refresh()
}

// exports
func exportPaneImage(ui *uiState, pane viewstate.Pane, defaultName string) {
	snap := ui.state.Snapshot()
	img, err := export.PaneImage(snap, pane, export.DefaultWidth, export.DefaultHeight)
	if err != nil {
		dialog.ShowError(err, ui.window)
		return
	}
	fs := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
		if err != nil || wc == nil {
			return
		}
		defer wc.Close()
		if err := png.Encode(wc, img); err != nil {
			dialog.ShowError(err, ui.window)
		}
	}, ui.window)
	fs.SetFileName(defaultName)
	fs.Show()
}

func exportPaneCSV(ui *uiState, pane viewstate.Pane, defaultName string) {
	snap := ui.state.Snapshot()
	data, err := export.PaneCSV(snap, pane)
	if err != nil {
		dialog.ShowError(err, ui.window)
		return
	}
	fs := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
		if err != nil || wc == nil {
			return
		}
		defer wc.Close()
		if _, err := wc.Write(data); err != nil {
			dialog.ShowError(err, ui.window)
		}
	}, ui.window)
	fs.SetFileName(defaultName)
	fs.Show()
}

// recent files
func recentFiles(ui *uiState) []string {
	raw := ui.app.Preferences().StringWithFallback("recentFiles", "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			out = append(out, p)
		}
	}
	return out
}

func addRecentFile(ui *uiState, path string) {
	list := recentFiles(ui)
	filtered := []string{path}
	for _, f := range list {
		if f != path && len(filtered) < 10 {
			filtered = append(filtered, f)
		}
	}
	ui.app.Preferences().SetString("recentFiles", strings.Join(filtered, "\n"))
}

func clearRecentFiles(ui *uiState) {
	ui.app.Preferences().SetString("recentFiles", "")
}

// prefs
func savePrefs(ui *uiState) {
	prefs := ui.app.Preferences()
	prefs.SetString("lastFile", ui.filePath)
	prefs.SetString("filterText", ui.filterText)
	prefs.SetInt("maxVars", ui.maxVars)
	prefs.SetBool("darkMode", ui.darkMode)
}

func loadPrefs(ui *uiState) {
	prefs := ui.app.Preferences()
	if f := prefs.StringWithFallback("lastFile", ui.filePath); f != "" {
		ui.filePath = f
	}
	ui.filterText = prefs.StringWithFallback("filterText", ui.filterText)
	if n := prefs.IntWithFallback("maxVars", ui.maxVars); n > 0 {
		ui.maxVars = n
	}
	ui.darkMode = prefs.BoolWithFallback("darkMode", ui.darkMode)
}

// utils
func truncatePath(p string, n int) string {
	if len(p) <= n {
		return p
	}
	base := filepath.Base(p)
	if len(base)+4 >= n {
		return "..." + base
	}
	dir := filepath.Dir(p)
	left := n - len(base) - 4
	if left <= 0 {
		return "..." + base
	}
	if len(dir) > left {
		dir = dir[:left]
	}
	return dir + "/..." + base
}
