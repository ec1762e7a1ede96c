package image

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeConstantIsZero(t *testing.T) {
	for _, v := range []float64{0, 7, -3.5, 1e6} {
		p := NewPlane(4, 3)
		for i := range p.Data {
			p.Data[i] = v
		}
		img := Normalize(p)
		assert.Equal(t, 4, img.Bounds().Dx())
		assert.Equal(t, 3, img.Bounds().Dy())
		for _, px := range img.Pix {
			assert.Zero(t, px)
		}
	}
}

func TestNormalizeFullRange(t *testing.T) {
	p := NewPlane(3, 2)
	copy(p.Data, []float64{-10, 0, 5, 20, 7, 1})
	img := Normalize(p)

	assert.Equal(t, uint8(0), img.Pix[0])
	assert.Equal(t, uint8(255), img.Pix[3])
	for _, px := range img.Pix {
		assert.LessOrEqual(t, px, uint8(255))
	}
}

func TestNormalizeMaxIsAlways255(t *testing.T) {
	for span := 1; span <= 1000; span++ {
		p := NewPlane(2, 1)
		p.Data[1] = float64(span)
		img := Normalize(p)
		require.Equal(t, uint8(0), img.Pix[0], "span %d", span)
		require.Equal(t, uint8(255), img.Pix[1], "span %d", span)
	}

	p := NewPlane(2, 1)
	copy(p.Data, []float64{-0.3, 0.7})
	assert.Equal(t, []uint8{0, 255}, Normalize(p).Pix)
}

func TestNormalizeStretchesByteRange(t *testing.T) {
	p := NewPlane(2, 1)
	copy(p.Data, []float64{10, 50})
	assert.Equal(t, []uint8{0, 255}, Normalize(p).Pix)
}

func TestNormalizeIgnoresNaN(t *testing.T) {
	p := NewPlane(3, 1)
	copy(p.Data, []float64{math.NaN(), 1, 3})
	img := Normalize(p)
	assert.Equal(t, []uint8{0, 0, 255}, img.Pix)

	allNaN := NewPlane(2, 1)
	allNaN.Data[0], allNaN.Data[1] = math.NaN(), math.NaN()
	assert.Equal(t, []uint8{0, 0}, Normalize(allNaN).Pix)
}

func TestToGrayKeepsByteRangeForProcessing(t *testing.T) {
	p := NewPlane(2, 1)
	copy(p.Data, []float64{10, 20})
	assert.Equal(t, []uint8{10, 20}, ToGray(p).Pix)

	p.Data[1] = 1000
	assert.Equal(t, []uint8{0, 255}, ToGray(p).Pix)
}

func TestLoadConvertsToGray(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rgb.png")

	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	src.Set(0, 0, color.RGBA{255, 255, 255, 255})
	src.Set(1, 1, color.RGBA{0, 0, 0, 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, src))
	require.NoError(t, f.Close())

	layer, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, layer.Width())
	assert.Equal(t, 2, layer.Height())
	assert.Equal(t, 255.0, layer.Current.At(0, 0))
	assert.Equal(t, 0.0, layer.Current.At(1, 1))

	layer.Replace(NewPlane(2, 2), "blur")
	assert.Equal(t, []string{"blur"}, layer.Applied)
	layer.Reset()
	assert.Empty(t, layer.Applied)
	assert.Equal(t, 255.0, layer.Current.At(0, 0))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.png"))
	assert.Error(t, err)
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("a.JPG"))
	assert.True(t, Supported("b.png"))
	assert.True(t, Supported("c.tiff"))
	assert.False(t, Supported("d.dcm"))
}
