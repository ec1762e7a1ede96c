package panels

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"biodash/internal/app"
	"biodash/internal/signal"
	"biodash/ui/prefs"
)

// SignalPanel shows a .mat recording channel by channel.
type SignalPanel struct {
	state     *app.State
	prefs     *prefs.Prefs
	window    fyne.Window
	container fyne.CanvasObject
	load      loader

	info          *widget.Label
	channelSelect *widget.Select
	spectrum      *fynecanvas.Image
	histogram     *fynecanvas.Image
	stats         *widget.Label
	fftTable      *widget.Table
	status        *widget.Label

	mu       sync.Mutex
	dominant []signal.Dominant
}

// NewSignalPanel creates the signal panel.
func NewSignalPanel(state *app.State, p *prefs.Prefs, win fyne.Window) *SignalPanel {
	sp := &SignalPanel{
		state:     state,
		prefs:     p,
		window:    win,
		info:      widget.NewLabel("No signal loaded"),
		stats:     widget.NewLabel(""),
		status:    widget.NewLabel(""),
		spectrum:  newImageView(fyne.NewSize(420, 280)),
		histogram: newImageView(fyne.NewSize(420, 280)),
	}
	sp.info.Wrapping = fyne.TextWrapWord

	sp.channelSelect = widget.NewSelect(nil, func(s string) {
		if ch, err := strconv.Atoi(s); err == nil {
			sp.showChannel(ch)
		}
	})
	sp.channelSelect.PlaceHolder = "Channel"
	sp.channelSelect.Disable()

	sp.fftTable = widget.NewTable(
		func() (int, int) { return sp.rows() + 1, 3 },
		func() fyne.CanvasObject { return widget.NewLabel("000000.00") },
		func(id widget.TableCellID, obj fyne.CanvasObject) {
			obj.(*widget.Label).SetText(sp.fftCell(id.Row, id.Col))
		},
	)
	sp.fftTable.SetColumnWidth(0, 80)
	sp.fftTable.SetColumnWidth(1, 120)
	sp.fftTable.SetColumnWidth(2, 120)

	loadBtn := widget.NewButton("Load .mat...", sp.onLoad)

	charts := container.NewGridWithColumns(2, sp.spectrum, sp.histogram)
	controls := container.NewHBox(loadBtn, widget.NewLabel("Channel:"), sp.channelSelect)
	side := widget.NewCard("Dominant frequency", "", sp.fftTable)

	sp.container = container.NewBorder(
		container.NewVBox(controls, sp.info),
		container.NewVBox(sp.stats, sp.status),
		nil,
		container.NewGridWrap(fyne.NewSize(340, 400), side),
		charts,
	)

	state.On(app.EventSignalLoaded, func(data interface{}) {
		if set, ok := data.(*signal.Set); ok {
			sp.showSet(set)
		}
	})
	state.On(app.EventLoggedOut, func(data interface{}) {
		sp.reset()
	})
	return sp
}

func (sp *SignalPanel) reset() {
	sp.setDominant(nil)
	sp.channelSelect.Options = nil
	sp.channelSelect.ClearSelected()
	sp.channelSelect.Disable()
	showChart(sp.spectrum, nil)
	showChart(sp.histogram, nil)
	sp.info.SetText("No signal loaded")
	sp.stats.SetText("")
	sp.status.SetText("")
}

// Container returns the panel's root object.
func (sp *SignalPanel) Container() fyne.CanvasObject {
	return sp.container
}

// Close cancels a pending load.
func (sp *SignalPanel) Close() {
	sp.load.stop()
}

func (sp *SignalPanel) rows() int {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return len(sp.dominant)
}

func (sp *SignalPanel) setDominant(doms []signal.Dominant) {
	sp.mu.Lock()
	sp.dominant = doms
	sp.mu.Unlock()
	sp.fftTable.Refresh()
}

func (sp *SignalPanel) fftCell(row, col int) string {
	if row == 0 {
		return [...]string{"Channel", "Frequency (Hz)", "Magnitude"}[col]
	}
	sp.mu.Lock()
	if row-1 >= len(sp.dominant) {
		sp.mu.Unlock()
		return ""
	}
	d := sp.dominant[row-1]
	sp.mu.Unlock()
	switch col {
	case 0:
		return strconv.Itoa(d.Channel)
	case 1:
		return fmt.Sprintf("%.2f", d.Frequency)
	default:
		return fmt.Sprintf("%.2f", d.Magnitude)
	}
}

func (sp *SignalPanel) onLoad() {
	openFile(sp.window, sp.prefs, prefs.KeyLastSignalDir, []string{".mat"}, func(path string) {
		ctx := sp.load.start()
		sp.status.SetText("Loading " + filepath.Base(path) + "...")
		go func() {
			out, err := sp.state.LoadSignal(path)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				slog.Warn("Signal load failed", "path", path, "error", err)
				sp.status.SetText("Load failed")
				dialog.ShowError(err, sp.window)
				return
			}
			sp.status.SetText("FFT table saved to " + out)
		}()
	})
}

func (sp *SignalPanel) showSet(set *signal.Set) {
	sp.setDominant(sp.state.Dominant())

	text := fmt.Sprintf("%s: %d channels x %d samples (original shape %v)",
		set.Name, set.Channels(), set.Samples(), set.Original)
	if len(set.Warnings) > 0 {
		text += "\n" + strings.Join(set.Warnings, "\n")
	}
	sp.info.SetText(text)

	options := make([]string, set.Channels())
	for i := range options {
		options[i] = strconv.Itoa(i)
	}
	sp.channelSelect.Options = options
	sp.channelSelect.Enable()
	sp.channelSelect.SetSelected("0")
}

func (sp *SignalPanel) showChannel(ch int) {
	view, err := sp.state.ChannelView(ch)
	if err != nil {
		sp.status.SetText(err.Error())
		return
	}
	showChart(sp.spectrum, view.Spectrum)
	showChart(sp.histogram, view.Histogram)
	sp.stats.SetText(fmt.Sprintf("Channel %d  mean %.4f  std %.4f  dominant %.2f Hz",
		ch, view.Stats.Mean, view.Stats.Std, view.Dominant.Frequency))
}
