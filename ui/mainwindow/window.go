// Package mainwindow provides the main application window.
package mainwindow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"biodash/internal/app"
	"biodash/internal/capture"
	"biodash/internal/version"
	"biodash/ui/dialogs"
	"biodash/ui/panels"
	"biodash/ui/prefs"
)

const appTitle = "Biomedical Dashboard"

// tool is one entry of the dashboard menu.
type tool struct {
	name   string
	action string
	build  func() panels.Panel
}

// MainWindow is the primary application window. It shows the login form
// first and the dashboard after a successful login.
type MainWindow struct {
	fyne.Window
	app   fyne.App
	state *app.State
	prefs *prefs.Prefs

	newCamera func() *capture.Camera

	statusBar *widget.Label
	userLabel *widget.Label
	center    *fyne.Container
	panels    map[string]panels.Panel
}

// New creates the main window. newCamera is called each time the capture
// step runs.
func New(fyneApp fyne.App, state *app.State, p *prefs.Prefs, newCamera func() *capture.Camera) *MainWindow {
	win := fyneApp.NewWindow(appTitle)

	mw := &MainWindow{
		Window:    win,
		app:       fyneApp,
		state:     state,
		prefs:     p,
		newCamera: newCamera,
		statusBar: widget.NewLabel("Ready"),
		userLabel: widget.NewLabel(""),
		panels:    make(map[string]panels.Panel),
	}

	mw.Resize(fyne.NewSize(
		float32(p.FloatWithFallback(prefs.KeyWindowWidth, 1200)),
		float32(p.FloatWithFallback(prefs.KeyWindowHeight, 800)),
	))
	mw.setupMenus()
	mw.setupEventHandlers()
	mw.SetCloseIntercept(mw.onClose)
	mw.showLogin()
	return mw
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Log out", mw.onLogout),
	)
	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)
	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, helpMenu))
}

// setupEventHandlers registers for application events.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventLoggedIn, func(data interface{}) {
		if user, ok := data.(string); ok {
			mw.prefs.SetString(prefs.KeyLastUser, user)
			mw.SetTitle(appTitle + " - " + user)
		}
	})
	mw.state.On(app.EventSaved, func(data interface{}) {
		if paths, ok := data.([]string); ok {
			mw.updateStatus(fmt.Sprintf("Saved %d file(s) to %s", len(paths), mw.state.Config().ResultsDir))
		}
	})
	mw.state.On(app.EventCredentialsReloaded, func(data interface{}) {
		mw.updateStatus(fmt.Sprintf("Credentials reloaded (%v users)", data))
	})
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

func (mw *MainWindow) showLogin() {
	mw.SetTitle(appTitle)
	form := dialogs.NewLoginForm(mw.state, mw.Window, mw.prefs.String(prefs.KeyLastUser), mw.onLoggedIn)
	mw.SetContent(form.Content())
	form.Focus()
}

func (mw *MainWindow) onLoggedIn(user string) {
	cam := mw.newCamera()
	d := dialogs.NewCaptureDialog(cam, mw.state.Config().UsersDir, user, mw.Window, func() {
		cam.Close()
		mw.showDashboard()
	})
	d.Show()
}

func (mw *MainWindow) tools() []tool {
	return []tool{
		{"Medical images", app.ActionImages, func() panels.Panel {
			return panels.NewImagePanel(mw.state, mw.prefs, mw.Window)
		}},
		{"Signals", app.ActionSignals, func() panels.Panel {
			return panels.NewSignalPanel(mw.state, mw.prefs, mw.Window)
		}},
		{"CSV", app.ActionCSV, func() panels.Panel {
			return panels.NewTabularPanel(mw.state, mw.prefs, mw.Window)
		}},
		{"History", app.ActionHistory, func() panels.Panel {
			return panels.NewHistoryPanel(mw.state, mw.Window)
		}},
	}
}

func (mw *MainWindow) showDashboard() {
	mw.userLabel.SetText("User: " + mw.state.User())

	menu := container.NewVBox(mw.userLabel, widget.NewSeparator())
	for _, t := range mw.tools() {
		t := t
		menu.Add(widget.NewButton(t.name, func() { mw.openTool(t) }))
	}
	menu.Add(widget.NewSeparator())
	menu.Add(widget.NewButton("Log out", mw.onLogout))

	welcome := widget.NewLabelWithStyle("Choose a tool on the left", fyne.TextAlignCenter, fyne.TextStyle{Italic: true})
	mw.center = container.NewStack(container.NewCenter(welcome))

	split := container.NewHSplit(container.NewPadded(menu), mw.center)
	split.SetOffset(0.15)

	mw.SetContent(container.NewBorder(nil, container.NewPadded(mw.statusBar), nil, nil, split))
}

// openTool shows a tool panel, building it on first use, and records the
// action in the session.
func (mw *MainWindow) openTool(t tool) {
	p, ok := mw.panels[t.action]
	if !ok {
		p = t.build()
		mw.panels[t.action] = p
	}
	mw.center.Objects = []fyne.CanvasObject{p.Container()}
	mw.center.Refresh()
	mw.updateStatus(t.name)

	if hp, ok := p.(*panels.HistoryPanel); ok {
		hp.Refresh()
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mw.state.RecordAction(ctx, t.action); err != nil {
			mw.updateStatus("Action not recorded: " + err.Error())
		}
	}()
}

// closePanels cancels background work. Panels clear their own views when
// the user logs out and are reused by the next session.
func (mw *MainWindow) closePanels() {
	for _, p := range mw.panels {
		p.Close()
	}
}

func (mw *MainWindow) onLogout() {
	if mw.state.User() == "" {
		return
	}
	mw.closePanels()
	mw.state.Logout()
	mw.showLogin()
}

// SavePreferences stores the window size.
func (mw *MainWindow) SavePreferences() {
	size := mw.Canvas().Size()
	mw.prefs.SetFloat(prefs.KeyWindowWidth, float64(size.Width))
	mw.prefs.SetFloat(prefs.KeyWindowHeight, float64(size.Height))
	if err := mw.prefs.Save(); err != nil {
		slog.Warn("Failed to save preferences", "error", err)
	}
}

func (mw *MainWindow) onClose() {
	mw.closePanels()
	mw.SavePreferences()
	mw.Close()
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About",
		fmt.Sprintf("%s v%s\n\n"+
			"Medical volumes, images, signals and tables.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			appTitle, version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}
