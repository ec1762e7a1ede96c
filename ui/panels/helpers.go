// Package panels provides the dashboard tool panels.
package panels

import (
	"context"
	"image"
	"sync"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"

	"biodash/internal/chart"
	bioimage "biodash/internal/image"
	"biodash/ui/prefs"
)

// Panel is a dashboard tool view.
type Panel interface {
	Container() fyne.CanvasObject
	// Close cancels background work started by the panel.
	Close()
}

// loader runs one background job at a time and cancels the previous one
// when a new job starts.
type loader struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

func (l *loader) start() context.Context {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	return ctx
}

func (l *loader) stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

// openFile shows a file dialog starting in the directory remembered under
// key and calls onPath with the chosen file.
func openFile(win fyne.Window, p *prefs.Prefs, key string, exts []string, onPath func(string)) {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, win)
			return
		}
		if reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		if p != nil {
			p.SetDirOf(key, path)
		}
		onPath(path)
	}, win)
	if len(exts) > 0 {
		fd.SetFilter(storage.NewExtensionFileFilter(exts))
	}
	if p != nil {
		if dir := p.Dir(key); dir != "" {
			if loc, err := storage.ListerForURI(storage.NewFileURI(dir)); err == nil {
				fd.SetLocation(loc)
			}
		}
	}
	fd.Resize(fyne.NewSize(800, 560))
	fd.Show()
}

// newImageView returns an image widget that keeps its aspect ratio.
func newImageView(min fyne.Size) *fynecanvas.Image {
	img := fynecanvas.NewImageFromImage(nil)
	img.FillMode = fynecanvas.ImageFillContain
	img.ScaleMode = fynecanvas.ImageScalePixels
	img.SetMinSize(min)
	return img
}

// showPlane draws p stretched between its minimum and maximum.
func showPlane(view *fynecanvas.Image, p *bioimage.Plane) {
	if p == nil {
		view.Image = nil
	} else {
		view.Image = bioimage.Normalize(p)
	}
	view.Refresh()
}

func showChart(view *fynecanvas.Image, c *chart.Chart) {
	var img image.Image
	if c != nil {
		img = c.Render(chart.DefaultWidth, chart.DefaultHeight)
	}
	view.Image = img
	view.ScaleMode = fynecanvas.ImageScaleSmooth
	view.Refresh()
}
