// Package image provides the 2D grayscale plane used for display, processing
// and export, together with its file loading and 8-bit normalisation.
package image

import (
	"fmt"
	"image"
	"math"
)

// Plane is a row-major 2D array of samples.
type Plane struct {
	Width  int
	Height int
	Data   []float64
}

// NewPlane allocates a zeroed plane.
func NewPlane(width, height int) *Plane {
	return &Plane{
		Width:  width,
		Height: height,
		Data:   make([]float64, width*height),
	}
}

// At returns the sample at column x, row y.
func (p *Plane) At(x, y int) float64 {
	return p.Data[y*p.Width+x]
}

// Set stores a sample at column x, row y.
func (p *Plane) Set(x, y int, v float64) {
	p.Data[y*p.Width+x] = v
}

// Clone returns a deep copy of the plane.
func (p *Plane) Clone() *Plane {
	out := &Plane{Width: p.Width, Height: p.Height, Data: make([]float64, len(p.Data))}
	copy(out.Data, p.Data)
	return out
}

// Range returns the minimum and maximum ignoring NaN. ok is false when
// every sample is NaN or the plane is empty.
func (p *Plane) Range() (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range p.Data {
		if math.IsNaN(v) {
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
		ok = true
	}
	return lo, hi, ok
}

// Normalize stretches the plane to 8 bits between its observed minimum and
// maximum. A constant plane (or one with no finite samples) maps to zeros.
// NaN samples map to zero.
func Normalize(p *Plane) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, p.Width, p.Height))
	lo, hi, ok := p.Range()
	if !ok || hi == lo {
		return img
	}
	span := hi - lo
	for y := 0; y < p.Height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+p.Width]
		for x := range row {
			v := p.Data[y*p.Width+x]
			if math.IsNaN(v) {
				continue
			}
			row[x] = uint8((v - lo) / span * 255)
		}
	}
	return img
}

// FromGray converts an 8-bit image into a plane.
func FromGray(img *image.Gray) *Plane {
	b := img.Bounds()
	p := NewPlane(b.Dx(), b.Dy())
	for y := 0; y < p.Height; y++ {
		off := (y+b.Min.Y-img.Rect.Min.Y)*img.Stride + (b.Min.X - img.Rect.Min.X)
		for x := 0; x < p.Width; x++ {
			p.Data[y*p.Width+x] = float64(img.Pix[off+x])
		}
	}
	return p
}

// ToGray returns the plane as 8-bit pixels for the processing operations.
// Planes whose samples already lie in 0..255 are copied directly; anything
// else is normalised first. Display goes through Normalize instead.
func ToGray(p *Plane) *image.Gray {
	lo, hi, ok := p.Range()
	if !ok || lo < 0 || hi > 255 {
		return Normalize(p)
	}
	img := image.NewGray(image.Rect(0, 0, p.Width, p.Height))
	for i, v := range p.Data {
		if math.IsNaN(v) {
			continue
		}
		img.Pix[i] = uint8(v)
	}
	return img
}

func (p *Plane) String() string {
	return fmt.Sprintf("%dx%d", p.Width, p.Height)
}
