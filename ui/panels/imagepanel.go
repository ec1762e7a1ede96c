package panels

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"biodash/internal/app"
	"biodash/internal/process"
	"biodash/internal/volume"
	"biodash/ui/prefs"
)

var medicalExts = []string{".dcm", ".nii", ".gz", ".jpg", ".jpeg", ".png", ".tif", ".tiff"}

func axisTitle(a volume.Axis) string {
	return cases.Title(language.English).String(a.String())
}

// axisView is one slice view with its slider.
type axisView struct {
	axis   volume.Axis
	image  *fynecanvas.Image
	slider *widget.Slider
	label  *widget.Label
	box    *fyne.Container
}

// ImagePanel shows volumes as three orthogonal slices and conventional
// images with the processing operations.
type ImagePanel struct {
	state     *app.State
	prefs     *prefs.Prefs
	window    fyne.Window
	container fyne.CanvasObject
	load      loader

	views     [3]*axisView
	sliceGrid *fyne.Container

	photo     *fynecanvas.Image
	opSelect  *widget.Select
	applyBtn  *widget.Button
	resetBtn  *widget.Button
	photoBox  *fyne.Container
	metaForm  *widget.Form
	metaItems map[string]*widget.Label
	status    *widget.Label

	// updating suppresses slider callbacks while syncing from state
	updating bool
}

// NewImagePanel creates the medical image panel.
func NewImagePanel(state *app.State, p *prefs.Prefs, win fyne.Window) *ImagePanel {
	ip := &ImagePanel{
		state:     state,
		prefs:     p,
		window:    win,
		metaItems: make(map[string]*widget.Label),
		status:    widget.NewLabel("Load a DICOM series, a NIfTI file or an image"),
	}

	var cells []fyne.CanvasObject
	for _, a := range volume.Axes {
		v := ip.newAxisView(a)
		ip.views[a] = v
		cells = append(cells, v.box)
	}
	ip.sliceGrid = container.NewGridWithColumns(3, cells...)

	ip.photo = newImageView(fyne.NewSize(420, 420))
	ip.opSelect = widget.NewSelect(process.Labels(), nil)
	ip.opSelect.PlaceHolder = "Select an operation"
	ip.applyBtn = widget.NewButton("Apply", ip.onApply)
	ip.resetBtn = widget.NewButton("Reset", ip.onReset)
	ip.photoBox = container.NewBorder(
		nil,
		container.NewHBox(ip.opSelect, ip.applyBtn, ip.resetBtn),
		nil, nil,
		ip.photo,
	)
	ip.photoBox.Hide()

	ip.metaForm = widget.NewForm()
	var defaults volume.Metadata
	for _, kv := range defaults.Fields() {
		l := widget.NewLabel(volume.NotAvailable)
		ip.metaItems[kv[0]] = l
		ip.metaForm.Append(kv[0], l)
	}

	loadBtn := widget.NewButton("Load...", ip.onLoad)
	saveBtn := widget.NewButton("Save image", ip.onSave)

	toolbar := container.NewHBox(loadBtn, saveBtn)
	side := widget.NewCard("Study", "", ip.metaForm)
	ip.container = container.NewBorder(
		toolbar,
		container.NewPadded(ip.status),
		nil,
		side,
		container.NewStack(ip.sliceGrid, ip.photoBox),
	)

	ip.setupEventHandlers()
	return ip
}

func (ip *ImagePanel) newAxisView(a volume.Axis) *axisView {
	v := &axisView{
		axis:   a,
		image:  newImageView(fyne.NewSize(240, 240)),
		slider: widget.NewSlider(0, 1),
		label:  widget.NewLabel(axisTitle(a)),
	}
	v.slider.Step = 1
	v.slider.Disable()
	v.slider.OnChanged = func(val float64) {
		if ip.updating {
			return
		}
		p, err := ip.state.SetSlice(a, int(val))
		if err != nil {
			ip.status.SetText(err.Error())
			return
		}
		showPlane(v.image, p)
		v.label.SetText(fmt.Sprintf("%s %d", axisTitle(a), int(val)))
	}
	v.box = container.NewBorder(v.label, v.slider, nil, nil, v.image)
	return v
}

func (ip *ImagePanel) setupEventHandlers() {
	ip.state.On(app.EventVolumeLoaded, func(data interface{}) {
		if vol, ok := data.(*volume.Volume); ok {
			ip.showVolume(vol)
		}
	})
	ip.state.On(app.EventImageLoaded, func(data interface{}) {
		ip.showPhoto()
	})
	ip.state.On(app.EventImageProcessed, func(data interface{}) {
		ip.showPhoto()
	})
	ip.state.On(app.EventLoggedOut, func(data interface{}) {
		ip.reset()
	})
}

func (ip *ImagePanel) reset() {
	ip.photoBox.Hide()
	showPlane(ip.photo, nil)
	ip.sliceGrid.Show()
	for _, v := range ip.views {
		showPlane(v.image, nil)
		v.slider.Disable()
		v.label.SetText(axisTitle(v.axis))
	}
	for _, l := range ip.metaItems {
		l.SetText(volume.NotAvailable)
	}
	ip.opSelect.ClearSelected()
	ip.status.SetText("Load a DICOM series, a NIfTI file or an image")
}

// Container returns the panel's root object.
func (ip *ImagePanel) Container() fyne.CanvasObject {
	return ip.container
}

// Close cancels a pending load.
func (ip *ImagePanel) Close() {
	ip.load.stop()
}

func (ip *ImagePanel) onLoad() {
	openFile(ip.window, ip.prefs, prefs.KeyLastImageDir, medicalExts, func(path string) {
		ctx := ip.load.start()
		ip.status.SetText("Loading " + filepath.Base(path) + "...")
		go func() {
			err := ip.state.LoadMedical(ctx, path)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				slog.Warn("Load failed", "path", path, "error", err)
				ip.status.SetText("Load failed")
				dialog.ShowError(err, ip.window)
				return
			}
			ip.status.SetText("Loaded " + filepath.Base(path))
		}()
	})
}

func (ip *ImagePanel) showVolume(vol *volume.Volume) {
	ip.photoBox.Hide()
	ip.sliceGrid.Show()

	ip.updating = true
	for _, v := range ip.views {
		idx := ip.state.SliceIndex(v.axis)
		v.slider.Max = float64(vol.Extent(v.axis) - 1)
		v.slider.SetValue(float64(idx))
		v.slider.Enable()
		v.label.SetText(fmt.Sprintf("%s %d", axisTitle(v.axis), idx))
		if p, err := ip.state.CurrentSlice(v.axis); err == nil {
			showPlane(v.image, p)
		}
	}
	ip.updating = false

	for _, kv := range vol.Meta.Fields() {
		if l, ok := ip.metaItems[kv[0]]; ok {
			l.SetText(kv[1])
		}
	}
}

func (ip *ImagePanel) showPhoto() {
	current, applied, ok := ip.state.ImageView()
	if !ok {
		return
	}
	ip.sliceGrid.Hide()
	ip.photoBox.Show()
	showPlane(ip.photo, current)
	for _, l := range ip.metaItems {
		l.SetText(volume.NotAvailable)
	}
	if len(applied) > 0 {
		ip.status.SetText("Applied: " + strings.Join(applied, " > "))
	}
}

func (ip *ImagePanel) onApply() {
	op, err := process.ParseOperation(ip.opSelect.Selected)
	if err != nil {
		dialog.ShowInformation("Processing", "Select an operation first", ip.window)
		return
	}
	if _, err := ip.state.ApplyOperation(op); err != nil {
		if errors.Is(err, app.ErrNoImage) {
			dialog.ShowInformation("Processing", err.Error(), ip.window)
			return
		}
		dialog.ShowError(err, ip.window)
	}
}

func (ip *ImagePanel) onReset() {
	if err := ip.state.ResetImage(); err != nil {
		ip.status.SetText(err.Error())
	}
}

func (ip *ImagePanel) onSave() {
	paths, err := ip.state.SaveImage()
	if errors.Is(err, app.ErrNothingToSave) {
		dialog.ShowInformation("Save image", "Load a volume or process an image first", ip.window)
		return
	}
	if err != nil {
		dialog.ShowError(err, ip.window)
		return
	}
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	dialog.ShowInformation("Save image", "Saved "+strings.Join(names, ", "), ip.window)
}
