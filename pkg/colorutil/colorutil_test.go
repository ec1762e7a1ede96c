package colorutil

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHex(t *testing.T) {
	c, err := Hex("#1f77b4")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}, c)

	c, err = Hex("00000080")
	require.NoError(t, err)
	assert.Equal(t, uint8(0x80), c.A)

	_, err = Hex("#abc")
	assert.Error(t, err)
	_, err = Hex("#gggggg")
	assert.Error(t, err)
}

func TestWithAlpha(t *testing.T) {
	assert.Equal(t, uint8(0), WithAlpha(White, -1).A)
	assert.Equal(t, uint8(255), WithAlpha(White, 2).A)
}
