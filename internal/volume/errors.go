package volume

import "errors"

var (
	// ErrNotVolume is returned when a DICOM folder holds fewer than two
	// readable slices.
	ErrNotVolume = errors.New("not a volume: fewer than two slices with pixel data")

	// ErrUnsupportedDims is returned for arrays that are not 3D or 4D.
	ErrUnsupportedDims = errors.New("unsupported dimensionality")

	// ErrShapeMismatch is returned when series slices differ in size.
	ErrShapeMismatch = errors.New("slices differ in size")

	// ErrUnsupportedFormat is returned for unknown extensions and for NIfTI
	// headers or datatypes that cannot be read.
	ErrUnsupportedFormat = errors.New("unsupported volume format")
)
