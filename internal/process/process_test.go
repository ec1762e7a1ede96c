package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bioimage "biodash/internal/image"
)

func TestParseOperation(t *testing.T) {
	cases := map[string]Operation{
		"binarize":        Binarize,
		"  Binarization ": Binarize,
		"EDGES":           Edges,
		"edge detection":  Edges,
		"Gaussian Filter": Blur,
		"normalizatión":   Normalize,
		"otsuthreshold":   Otsu,
		"dilate":          Dilate,
	}
	for in, want := range cases {
		got, err := ParseOperation(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "sharpen", "dilat", "umbral"} {
		_, err := ParseOperation(bad)
		assert.ErrorIs(t, err, ErrUnknownOperation, bad)
	}
}

func TestIDsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, o := range All {
		assert.False(t, seen[o.ID()], o.ID())
		seen[o.ID()] = true
	}
	assert.Len(t, Labels(), 6)
}

func gradient(w, h int) *bioimage.Plane {
	p := bioimage.NewPlane(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p.Set(x, y, float64(x*255/(w-1)))
		}
	}
	return p
}

func TestApplyThresholdsAreBinary(t *testing.T) {
	src := gradient(16, 8)
	for _, op := range []Operation{Binarize, Otsu} {
		out, err := Apply(op, src)
		require.NoError(t, err)
		assert.Equal(t, 16, out.Width)
		assert.Equal(t, 8, out.Height)
		for _, v := range out.Data {
			assert.True(t, v == 0 || v == 255, "%s produced %v", op, v)
		}
	}
	assert.Equal(t, 0.0, src.At(0, 0), "input untouched")
}

func TestApplyKeepsShape(t *testing.T) {
	src := gradient(20, 10)
	for _, op := range All {
		out, err := Apply(op, src)
		require.NoError(t, err, op.ID())
		assert.Equal(t, src.Width, out.Width, op.ID())
		assert.Equal(t, src.Height, out.Height, op.ID())
	}
}

func TestApplyNormalizesWideRange(t *testing.T) {
	p := bioimage.NewPlane(2, 1)
	p.Data[0], p.Data[1] = -1000, 3000
	out, err := Apply(Normalize, p)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 255}, out.Data)
}

func TestApplyRejectsEmpty(t *testing.T) {
	_, err := Apply(Blur, nil)
	assert.ErrorIs(t, err, ErrEmptyImage)
}
