package panels

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"biodash/internal/app"
	"biodash/internal/history"
)

var historyHeaders = [...]string{"#", "User", "Login", "Actions", "Path"}

// HistoryPanel lists every recorded session.
type HistoryPanel struct {
	state     *app.State
	window    fyne.Window
	container fyne.CanvasObject
	load      loader

	mu       sync.Mutex
	sessions []history.Session
	table    *widget.Table
	status   *widget.Label
}

// NewHistoryPanel creates the history panel.
func NewHistoryPanel(state *app.State, win fyne.Window) *HistoryPanel {
	hp := &HistoryPanel{
		state:  state,
		window: win,
		status: widget.NewLabel(""),
	}

	hp.table = widget.NewTable(
		func() (int, int) { return hp.rows() + 1, len(historyHeaders) },
		func() fyne.CanvasObject { return widget.NewLabel("placeholder") },
		func(id widget.TableCellID, obj fyne.CanvasObject) {
			obj.(*widget.Label).SetText(hp.cell(id.Row, id.Col))
		},
	)
	for col, w := range []float32{50, 120, 170, 360, 200} {
		hp.table.SetColumnWidth(col, w)
	}

	refreshBtn := widget.NewButton("Refresh", hp.Refresh)
	clearBtn := widget.NewButton("Delete all", hp.onClear)

	hp.container = container.NewBorder(
		container.NewHBox(refreshBtn, clearBtn),
		container.NewPadded(hp.status),
		nil, nil,
		hp.table,
	)

	state.On(app.EventHistoryChanged, func(data interface{}) {
		hp.Refresh()
	})
	state.On(app.EventLoggedOut, func(data interface{}) {
		hp.load.stop()
		hp.setSessions(nil)
		hp.status.SetText("")
	})
	return hp
}

// Container returns the panel's root object.
func (hp *HistoryPanel) Container() fyne.CanvasObject {
	return hp.container
}

// Close cancels a pending query.
func (hp *HistoryPanel) Close() {
	hp.load.stop()
}

func (hp *HistoryPanel) rows() int {
	hp.mu.Lock()
	defer hp.mu.Unlock()
	return len(hp.sessions)
}

// setSessions swaps the listed sessions and redraws the table.
func (hp *HistoryPanel) setSessions(sessions []history.Session) {
	hp.mu.Lock()
	hp.sessions = sessions
	hp.mu.Unlock()
	hp.table.Refresh()
}

// cell returns the text of a table cell. Rows past the current list are
// blank since the list can shrink between a length query and a redraw.
func (hp *HistoryPanel) cell(row, col int) string {
	if row == 0 {
		return historyHeaders[col]
	}
	hp.mu.Lock()
	if row-1 >= len(hp.sessions) {
		hp.mu.Unlock()
		return ""
	}
	s := hp.sessions[row-1]
	hp.mu.Unlock()
	switch col {
	case 0:
		return strconv.Itoa(row)
	case 1:
		return s.User
	case 2:
		return s.LoginAt.Local().Format("2006-01-02 15:04:05")
	case 3:
		return s.ActionSummary()
	default:
		return s.Path
	}
}

// Refresh reloads the session list in the background.
func (hp *HistoryPanel) Refresh() {
	ctx := hp.load.start()
	hp.status.SetText("Loading history...")
	go func() {
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		sessions, err := hp.state.History(ctx)
		if ctx.Err() == context.Canceled {
			return
		}
		if err != nil {
			slog.Warn("History query failed", "error", err)
			hp.status.SetText(err.Error())
			return
		}
		hp.setSessions(sessions)
		hp.status.SetText(fmt.Sprintf("%d sessions", len(sessions)))
	}()
}

func (hp *HistoryPanel) onClear() {
	dialog.ShowConfirm("Delete history",
		"Delete every recorded session? This cannot be undone.",
		func(ok bool) {
			if !ok {
				return
			}
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				n, err := hp.state.ClearHistory(ctx)
				if err != nil {
					dialog.ShowError(err, hp.window)
					return
				}
				hp.status.SetText(fmt.Sprintf("Deleted %d sessions", n))
			}()
		},
		hp.window)
}
