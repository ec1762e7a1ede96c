package chart

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"
)

func TestSeriesSkipsNaN(t *testing.T) {
	c, err := Series("age", "Index", "Value", []float64{1, math.NaN(), 3})
	require.NoError(t, err)
	assert.Equal(t, KindLine, c.Kind)

	_, err = Series("empty", "", "", []float64{math.NaN()})
	assert.Error(t, err)
}

func TestRenderSize(t *testing.T) {
	c, err := Bars("sex", "Count", []string{"F", "M"}, []float64{3, 2})
	require.NoError(t, err)

	img := c.Render(2*vg.Inch, 1*vg.Inch)
	b := img.Bounds()
	assert.Greater(t, b.Dx(), b.Dy())
}

func TestHistogramSave(t *testing.T) {
	c, err := Histogram("Channel 0", "Amplitude", []float64{0, 1, 2}, []float64{4, 1})
	require.NoError(t, err)
	assert.Equal(t, KindHistogram, c.Kind)

	path := filepath.Join(t.TempDir(), "hist.png")
	require.NoError(t, c.Save(path, DefaultWidth, DefaultHeight))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	_, err = Histogram("bad", "", []float64{0, 1}, []float64{1, 2})
	assert.Error(t, err)
}

func TestSanitizeTitle(t *testing.T) {
	assert.Equal(t, "Pressure__mmHg_", SanitizeTitle("Pressure (mmHg)"))
	assert.Equal(t, "Presión_arterial", SanitizeTitle("Presión arterial"))
}
