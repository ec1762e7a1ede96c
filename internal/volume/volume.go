// Package volume loads 3D medical volumes from DICOM series and NIfTI files
// and extracts the three orthogonal planes for display.
package volume

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	bioimage "biodash/internal/image"
)

// Axis selects one of the orthogonal viewing planes.
type Axis int

const (
	Axial    Axis = iota // Y×X plane at fixed Z
	Coronal              // Z×X plane at fixed Y
	Sagittal             // Z×Y plane at fixed X
)

// Axes lists the planes in display order.
var Axes = []Axis{Axial, Coronal, Sagittal}

func (a Axis) String() string {
	switch a {
	case Axial:
		return "axial"
	case Coronal:
		return "coronal"
	case Sagittal:
		return "sagittal"
	default:
		return "unknown"
	}
}

// NotAvailable is the placeholder for metadata fields the source lacks.
const NotAvailable = "N/A"

// Metadata describes the study a volume was loaded from.
type Metadata struct {
	PatientID        string
	PatientName      string
	StudyUID         string
	StudyDescription string
	StudyDate        string
	Modality         string
	Slope            float64
	Intercept        float64
}

func defaultMetadata() Metadata {
	return Metadata{
		PatientID:        NotAvailable,
		PatientName:      NotAvailable,
		StudyUID:         NotAvailable,
		StudyDescription: NotAvailable,
		StudyDate:        NotAvailable,
		Modality:         NotAvailable,
		Slope:            1,
		Intercept:        0,
	}
}

// Fields returns the exported metadata as ordered name/value pairs.
func (m Metadata) Fields() [][2]string {
	return [][2]string{
		{"PatientID", m.PatientID},
		{"PatientName", m.PatientName},
		{"StudyUID", m.StudyUID},
		{"StudyDescription", m.StudyDescription},
		{"StudyDate", m.StudyDate},
		{"Modality", m.Modality},
	}
}

// Volume is a row-major (Z,Y,X) array of samples.
type Volume struct {
	Depth  int
	Height int
	Width  int
	Data   []float64
	Meta   Metadata
	Source string
}

// New allocates a zeroed volume.
func New(depth, height, width int) *Volume {
	return &Volume{
		Depth:  depth,
		Height: height,
		Width:  width,
		Data:   make([]float64, depth*height*width),
		Meta:   defaultMetadata(),
	}
}

// At returns the voxel at (z, y, x).
func (v *Volume) At(z, y, x int) float64 {
	return v.Data[(z*v.Height+y)*v.Width+x]
}

// Shape returns the (Z, Y, X) extents.
func (v *Volume) Shape() [3]int {
	return [3]int{v.Depth, v.Height, v.Width}
}

// Extent returns the number of indices along the axis that selects a plane.
func (v *Volume) Extent(a Axis) int {
	switch a {
	case Axial:
		return v.Depth
	case Coronal:
		return v.Height
	case Sagittal:
		return v.Width
	}
	return 0
}

// Midpoint returns the default plane index for an axis.
func (v *Volume) Midpoint(a Axis) int {
	return v.Extent(a) / 2
}

// Slice extracts the plane at index along axis.
func (v *Volume) Slice(a Axis, index int) (*bioimage.Plane, error) {
	if n := v.Extent(a); index < 0 || index >= n {
		return nil, fmt.Errorf("%s index %d out of range [0,%d)", a, index, n)
	}

	var p *bioimage.Plane
	switch a {
	case Axial:
		p = bioimage.NewPlane(v.Width, v.Height)
		copy(p.Data, v.Data[index*v.Height*v.Width:(index+1)*v.Height*v.Width])
	case Coronal:
		p = bioimage.NewPlane(v.Width, v.Depth)
		for z := 0; z < v.Depth; z++ {
			for x := 0; x < v.Width; x++ {
				p.Set(x, z, v.At(z, index, x))
			}
		}
	case Sagittal:
		p = bioimage.NewPlane(v.Height, v.Depth)
		for z := 0; z < v.Depth; z++ {
			for y := 0; y < v.Height; y++ {
				p.Set(y, z, v.At(z, y, index))
			}
		}
	default:
		return nil, fmt.Errorf("unknown axis %d", a)
	}
	return p, nil
}

// Load dispatches on the file extension: any .dcm file loads its folder as a
// series; .nii and .nii.gz load a NIfTI-1 image.
func Load(ctx context.Context, path string) (*Volume, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".dcm"):
		return LoadDICOMSeries(ctx, path)
	case strings.HasSuffix(lower, ".nii"), strings.HasSuffix(lower, ".nii.gz"):
		return LoadNIfTI(path)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
}

// Supported reports whether Load accepts path.
func Supported(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".dcm") || strings.HasSuffix(lower, ".nii") || strings.HasSuffix(lower, ".nii.gz")
}
