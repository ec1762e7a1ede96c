package image

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/tiff"
)

// Layer is a loaded conventional image. Original keeps the decoded
// grayscale samples; Current is what is displayed and is replaced by each
// processing step.
type Layer struct {
	Path     string // Original file path
	Original *Plane
	Current  *Plane
	Applied  []string // Operations applied to Current, in order
}

// Supported reports whether path has a conventional image extension.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".tif", ".tiff":
		return true
	}
	return false
}

// Load decodes the image at path and converts it to grayscale.
func Load(path string) (*Layer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	plane := FromGray(toGray(img))
	return &Layer{
		Path:     path,
		Original: plane,
		Current:  plane.Clone(),
	}, nil
}

// Replace swaps in a processed plane and records the operation name.
func (l *Layer) Replace(p *Plane, op string) {
	l.Current = p
	l.Applied = append(l.Applied, op)
}

// Reset restores the decoded plane.
func (l *Layer) Reset() {
	l.Current = l.Original.Clone()
	l.Applied = nil
}

// Width returns the image width in pixels.
func (l *Layer) Width() int {
	if l.Current == nil {
		return 0
	}
	return l.Current.Width
}

// Height returns the image height in pixels.
func (l *Layer) Height() int {
	if l.Current == nil {
		return 0
	}
	return l.Current.Height
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.SetGray(x-b.Min.X, y-b.Min.Y, color.GrayModel.Convert(img.At(x, y)).(color.Gray))
		}
	}
	return gray
}

// SavePNG normalises p to 8 bits and writes it to path.
func SavePNG(path string, p *Plane) error {
	return WritePNG(path, Normalize(p))
}

// WritePNG encodes img to path.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return f.Close()
}
