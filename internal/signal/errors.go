package signal

import "errors"

var (
	// ErrMATv73 is returned for HDF5-based MATLAB files.
	ErrMATv73 = errors.New("MATLAB v7.3 (HDF5) files are not supported; save as v7")

	// ErrNotMAT is returned when the file lacks a level 5 MAT header.
	ErrNotMAT = errors.New("not a MATLAB level 5 file")

	// ErrNoVariables is returned when a file holds no usable variable.
	ErrNoVariables = errors.New("file has no valid variables")

	// ErrNotNumeric is returned when the selected variable is not a real
	// numeric array.
	ErrNotNumeric = errors.New("variable is not a real numeric array")

	// ErrUnsupportedShape is returned for arrays with more than three
	// non-singleton dimensions.
	ErrUnsupportedShape = errors.New("unsupported signal shape")

	// ErrChannelRange is returned for a channel index outside the set.
	ErrChannelRange = errors.New("channel out of range")
)
