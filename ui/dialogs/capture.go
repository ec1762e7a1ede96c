package dialogs

import (
	"context"
	"errors"
	"image"
	"log/slog"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"biodash/internal/capture"
)

// CaptureDialog streams the webcam and saves a grayscale snapshot into the
// user's folder.
type CaptureDialog struct {
	camera   *capture.Camera
	usersDir string
	user     string
	window   fyne.Window

	preview   *fynecanvas.Image
	nameEntry *widget.Entry
	status    *widget.Label
	freezeBtn *widget.Button
	saveBtn   *widget.Button
	dlg       dialog.Dialog

	frozen bool
	onDone func()
}

// NewCaptureDialog creates the dialog. onDone runs once the camera has been
// released, whichever way the dialog closed.
func NewCaptureDialog(camera *capture.Camera, usersDir, user string, window fyne.Window, onDone func()) *CaptureDialog {
	d := &CaptureDialog{
		camera:    camera,
		usersDir:  usersDir,
		user:      user,
		window:    window,
		preview:   fynecanvas.NewImageFromImage(nil),
		nameEntry: widget.NewEntry(),
		status:    widget.NewLabel(""),
		onDone:    onDone,
	}
	d.preview.FillMode = fynecanvas.ImageFillContain
	d.preview.SetMinSize(fyne.NewSize(480, 360))
	d.nameEntry.SetPlaceHolder("Snapshot name")
	return d
}

// Show opens the dialog and starts the stream.
func (d *CaptureDialog) Show() {
	d.freezeBtn = widget.NewButton("Capture", d.onFreeze)
	discardBtn := widget.NewButton("Discard", d.onDiscard)
	d.saveBtn = widget.NewButton("Save", d.onSave)
	d.saveBtn.Importance = widget.HighImportance
	skipBtn := widget.NewButton("Skip", d.finish)

	content := container.NewBorder(
		nil,
		container.NewVBox(
			d.nameEntry,
			container.NewHBox(d.freezeBtn, discardBtn, d.saveBtn, skipBtn),
			d.status,
		),
		nil, nil,
		d.preview,
	)

	d.dlg = dialog.NewCustomWithoutButtons("Capture photo", content, d.window)
	d.dlg.SetOnClosed(d.release)
	d.dlg.Resize(fyne.NewSize(560, 520))
	d.dlg.Show()

	err := d.camera.Start(context.Background(), func(img image.Image) {
		if d.frozen {
			return
		}
		d.preview.Image = img
		d.preview.Refresh()
	})
	if err != nil {
		slog.Warn("Camera unavailable", "error", err)
		d.status.SetText("Camera not available. Press Skip to continue.")
		d.freezeBtn.Disable()
		d.saveBtn.Disable()
	}
}

func (d *CaptureDialog) onFreeze() {
	snap, err := d.camera.Freeze()
	if err != nil {
		d.status.SetText(err.Error())
		return
	}
	d.frozen = true
	d.preview.Image = snap
	d.preview.Refresh()
	d.status.SetText("Snapshot taken. Enter a name and press Save.")
}

func (d *CaptureDialog) onDiscard() {
	d.camera.Discard()
	d.frozen = false
	d.status.SetText("Snapshot discarded")
}

func (d *CaptureDialog) onSave() {
	path, err := capture.Save(d.usersDir, d.user, d.nameEntry.Text, d.camera.Snapshot())
	switch {
	case errors.Is(err, capture.ErrEmptyName):
		d.status.SetText("Enter a name for the snapshot")
		return
	case errors.Is(err, capture.ErrNoSnapshot):
		d.status.SetText("Take a snapshot first")
		return
	case err != nil:
		dialog.ShowError(err, d.window)
		return
	}
	slog.Info("Snapshot stored", "path", path)
	d.finish()
}

// finish hides the dialog. Hiding runs release through SetOnClosed.
func (d *CaptureDialog) finish() {
	d.dlg.Hide()
}

func (d *CaptureDialog) release() {
	d.camera.Stop()
	d.camera.Discard()
	if d.onDone != nil {
		done := d.onDone
		d.onDone = nil
		done()
	}
}
