package panels

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"biodash/internal/app"
	"biodash/internal/tabular"
	"biodash/ui/prefs"
)

const noColumn = "(none)"

// TabularPanel previews a CSV file and plots up to four columns.
type TabularPanel struct {
	state     *app.State
	prefs     *prefs.Prefs
	window    fyne.Window
	container fyne.CanvasObject
	load      loader

	mu      sync.Mutex
	preview [][]string
	columns []string
	table   *widget.Table
	selects [app.ChartSlots]*widget.Select
	views   [app.ChartSlots]*fynecanvas.Image
	status  *widget.Label
}

// NewTabularPanel creates the CSV panel.
func NewTabularPanel(state *app.State, p *prefs.Prefs, win fyne.Window) *TabularPanel {
	tp := &TabularPanel{
		state:  state,
		prefs:  p,
		window: win,
		status: widget.NewLabel("No file loaded"),
	}

	tp.table = widget.NewTable(
		tp.size,
		func() fyne.CanvasObject { return widget.NewLabel("placeholder text") },
		func(id widget.TableCellID, obj fyne.CanvasObject) {
			label := obj.(*widget.Label)
			label.TextStyle = fyne.TextStyle{Bold: id.Row == 0}
			label.SetText(tp.cell(id.Row, id.Col))
		},
	)

	var selectors []fyne.CanvasObject
	var charts []fyne.CanvasObject
	for i := range tp.selects {
		slot := i
		sel := widget.NewSelect(nil, func(col string) {
			if col == noColumn {
				col = ""
			}
			if err := tp.state.SetSlot(slot, col); err != nil {
				tp.status.SetText(err.Error())
			}
		})
		sel.PlaceHolder = fmt.Sprintf("Chart %d", slot+1)
		sel.Disable()
		tp.selects[slot] = sel
		selectors = append(selectors, sel)

		tp.views[slot] = newImageView(fyne.NewSize(300, 200))
		charts = append(charts, tp.views[slot])
	}

	loadBtn := widget.NewButton("Load CSV...", tp.onLoad)
	plotBtn := widget.NewButton("Plot", tp.onPlot)
	clearBtn := widget.NewButton("Clear", tp.state.ClearCharts)
	exportBtn := widget.NewButton("Export", tp.onExport)

	toolbar := container.NewHBox(loadBtn, plotBtn, clearBtn, exportBtn)
	top := container.NewVBox(toolbar, container.NewGridWithColumns(app.ChartSlots, selectors...))

	split := container.NewVSplit(tp.table, container.NewGridWithColumns(2, charts...))
	split.SetOffset(0.35)

	tp.container = container.NewBorder(top, container.NewPadded(tp.status), nil, nil, split)

	state.On(app.EventTableLoaded, func(data interface{}) {
		if ds, ok := data.(*tabular.Dataset); ok {
			tp.showDataset(ds)
		}
	})
	state.On(app.EventChartsChanged, func(data interface{}) {
		tp.showCharts()
	})
	state.On(app.EventLoggedOut, func(data interface{}) {
		tp.reset()
	})
	return tp
}

func (tp *TabularPanel) size() (int, int) {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	if len(tp.columns) == 0 {
		return 0, 0
	}
	return len(tp.preview) + 1, len(tp.columns)
}

// cell returns the header in row 0 and preview values below it. Cells
// outside the current table are blank.
func (tp *TabularPanel) cell(row, col int) string {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	if col < 0 || col >= len(tp.columns) {
		return ""
	}
	if row == 0 {
		return tp.columns[col]
	}
	if row-1 >= len(tp.preview) || col >= len(tp.preview[row-1]) {
		return ""
	}
	return tp.preview[row-1][col]
}

func (tp *TabularPanel) setPreview(columns []string, preview [][]string) {
	tp.mu.Lock()
	tp.columns = columns
	tp.preview = preview
	tp.mu.Unlock()
	tp.table.Refresh()
}

func (tp *TabularPanel) reset() {
	tp.setPreview(nil, nil)
	for i, sel := range tp.selects {
		sel.Options = nil
		sel.ClearSelected()
		sel.Disable()
		showChart(tp.views[i], nil)
	}
	tp.status.SetText("No file loaded")
}

// Container returns the panel's root object.
func (tp *TabularPanel) Container() fyne.CanvasObject {
	return tp.container
}

// Close cancels a pending load.
func (tp *TabularPanel) Close() {
	tp.load.stop()
}

func (tp *TabularPanel) onLoad() {
	openFile(tp.window, tp.prefs, prefs.KeyLastTableDir, []string{".csv"}, func(path string) {
		ctx := tp.load.start()
		tp.status.SetText("Loading " + filepath.Base(path) + "...")
		go func() {
			err := tp.state.LoadTable(path)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				slog.Warn("CSV load failed", "path", path, "error", err)
				tp.status.SetText("Load failed")
				dialog.ShowError(err, tp.window)
			}
		}()
	})
}

func (tp *TabularPanel) showDataset(ds *tabular.Dataset) {
	preview := ds.Preview(tabular.PreviewRows)
	tp.setPreview(ds.Columns, preview)

	options := append([]string{noColumn}, ds.Columns...)
	for _, sel := range tp.selects {
		sel.Options = options
		sel.ClearSelected()
		sel.Enable()
	}
	tp.status.SetText(fmt.Sprintf("%s: %d rows, %d columns (showing %d)",
		filepath.Base(ds.Path), ds.Len(), len(ds.Columns), len(preview)))
}

func (tp *TabularPanel) showCharts() {
	charts := tp.state.Charts()
	for i, c := range charts {
		showChart(tp.views[i], c)
	}
	if slots := tp.state.Slots(); slots == [app.ChartSlots]string{} {
		for _, sel := range tp.selects {
			sel.ClearSelected()
		}
	}
}

func (tp *TabularPanel) onPlot() {
	if _, err := tp.state.PlotSlots(); err != nil {
		if errors.Is(err, app.ErrNoSelection) || errors.Is(err, app.ErrNoTable) {
			dialog.ShowInformation("Charts", err.Error(), tp.window)
			return
		}
		dialog.ShowError(err, tp.window)
	}
}

func (tp *TabularPanel) onExport() {
	paths, err := tp.state.ExportCharts()
	if errors.Is(err, app.ErrNothingToExport) {
		dialog.ShowInformation("Export", "Plot at least one chart first", tp.window)
		return
	}
	if err != nil {
		dialog.ShowError(err, tp.window)
		return
	}
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	dialog.ShowInformation("Export", "Saved "+strings.Join(names, "\n"), tp.window)
}
