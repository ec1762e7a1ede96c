package process

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	bioimage "biodash/internal/image"
)

// Apply runs op on a copy of p. Planes outside 0..255 are normalised to
// 8 bits first. The input is never modified.
func Apply(op Operation, p *bioimage.Plane) (*bioimage.Plane, error) {
	if p == nil || p.Width == 0 || p.Height == 0 {
		return nil, ErrEmptyImage
	}
	gray := bioimage.ToGray(p)

	if op == Normalize {
		return bioimage.FromGray(bioimage.Normalize(bioimage.FromGray(gray))), nil
	}

	src, err := gocv.NewMatFromBytes(p.Height, p.Width, gocv.MatTypeCV8UC1, gray.Pix)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap image: %w", err)
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	switch op {
	case Binarize:
		gocv.Threshold(src, &dst, 128, 255, gocv.ThresholdBinary)
	case Edges:
		gocv.Canny(src, &dst, 50, 150)
	case Blur:
		gocv.GaussianBlur(src, &dst, image.Point{5, 5}, 0, 0, gocv.BorderDefault)
	case Otsu:
		gocv.Threshold(src, &dst, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)
	case Dilate:
		kernel := gocv.Ones(5, 5, gocv.MatTypeCV8U)
		defer kernel.Close()
		gocv.Dilate(src, &dst, kernel)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownOperation, int(op))
	}

	if dst.Empty() {
		return nil, fmt.Errorf("%s produced no output", op)
	}
	return matToPlane(dst), nil
}

func matToPlane(m gocv.Mat) *bioimage.Plane {
	rows, cols := m.Rows(), m.Cols()
	out := bioimage.NewPlane(cols, rows)
	pix := m.ToBytes()
	for i := 0; i < rows*cols && i < len(pix); i++ {
		out.Data[i] = float64(pix[i])
	}
	return out
}
