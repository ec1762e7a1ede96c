package panels

import (
	"image"
	"testing"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biodash/internal/app"
	"biodash/internal/history"
	bioimage "biodash/internal/image"
	"biodash/internal/signal"
)

func newTestWindow(t *testing.T) fyne.Window {
	t.Helper()
	a := test.NewApp()
	t.Cleanup(a.Quit)
	return a.NewWindow("panels")
}

func TestShowPlaneStretchesToFullRange(t *testing.T) {
	newTestWindow(t)
	view := newImageView(fyne.NewSize(10, 10))

	p := bioimage.NewPlane(2, 1)
	copy(p.Data, []float64{10, 50})
	showPlane(view, p)

	gray, ok := view.Image.(*image.Gray)
	require.True(t, ok)
	assert.Equal(t, []uint8{0, 255}, gray.Pix)

	showPlane(view, nil)
	assert.Nil(t, view.Image)
}

func TestHistoryCellAfterListShrinks(t *testing.T) {
	win := newTestWindow(t)
	hp := NewHistoryPanel(app.NewState(nil, nil, nil), win)

	hp.setSessions([]history.Session{
		{ID: "1", User: "ana", LoginAt: time.Now(), Actions: []string{"CSV"}, Path: "resultados"},
		{ID: "2", User: "luis", LoginAt: time.Now(), Path: "resultados"},
	})
	assert.Equal(t, 2, hp.rows())
	assert.Equal(t, "luis", hp.cell(2, 1))

	hp.setSessions(nil)
	assert.Equal(t, "User", hp.cell(0, 1))
	assert.Equal(t, "", hp.cell(1, 1))
	assert.Equal(t, "", hp.cell(2, 4))
}

func TestFFTCellAfterReset(t *testing.T) {
	win := newTestWindow(t)
	sp := NewSignalPanel(app.NewState(nil, nil, nil), nil, win)

	sp.setDominant([]signal.Dominant{{Channel: 0, Frequency: 10, Magnitude: 3.5}})
	assert.Equal(t, "10.00", sp.fftCell(1, 1))

	sp.reset()
	assert.Equal(t, "Magnitude", sp.fftCell(0, 2))
	assert.Equal(t, "", sp.fftCell(1, 1))
}

func TestTabularCellOutsideTable(t *testing.T) {
	win := newTestWindow(t)
	tp := NewTabularPanel(app.NewState(nil, nil, nil), nil, win)

	tp.setPreview([]string{"hr", "ward"}, [][]string{{"60", "A"}})
	rows, cols := tp.size()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 2, cols)
	assert.Equal(t, "ward", tp.cell(0, 1))
	assert.Equal(t, "60", tp.cell(1, 0))

	tp.reset()
	rows, cols = tp.size()
	assert.Zero(t, rows)
	assert.Zero(t, cols)
	assert.Equal(t, "", tp.cell(1, 0))
}
