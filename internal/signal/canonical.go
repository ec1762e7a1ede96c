package signal

import (
	"fmt"
	"log/slog"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Set is a recording in channels × samples form together with the shape
// heuristics that produced it.
type Set struct {
	Name       string
	Source     string
	Original   []int
	Data       *mat.Dense
	Averaged   bool // trials axis was averaged
	Transposed bool // rows were swapped with columns
	Ambiguous  bool // channel/sample orientation could not be inferred
	Warnings   []string
}

// Channels returns the number of channels.
func (s *Set) Channels() int {
	r, _ := s.Data.Dims()
	return r
}

// Samples returns the number of samples per channel.
func (s *Set) Samples() int {
	_, c := s.Data.Dims()
	return c
}

// Channel returns a copy of one channel's samples.
func (s *Set) Channel(i int) ([]float64, error) {
	if i < 0 || i >= s.Channels() {
		return nil, fmt.Errorf("%w: %d of %d", ErrChannelRange, i, s.Channels())
	}
	return mat.Row(nil, i, s.Data), nil
}

// Load reads a MAT file and canonicalises its first user variable.
func Load(path string) (*Set, error) {
	vars, err := ReadMATFile(path)
	if err != nil {
		return nil, err
	}
	v, err := Select(vars)
	if err != nil {
		return nil, err
	}
	set, err := Canonicalize(v)
	if err != nil {
		return nil, err
	}
	set.Source = path
	slog.Info("Loaded signal", "path", path, "variable", v.Name, "shape", v.Dims,
		"channels", set.Channels(), "samples", set.Samples())
	for _, w := range set.Warnings {
		slog.Warn("Signal shape heuristic", "path", path, "detail", w)
	}
	return set, nil
}

// Select returns the first variable whose name does not start with "__".
func Select(vars []Variable) (Variable, error) {
	for _, v := range vars {
		if strings.HasPrefix(v.Name, "__") {
			continue
		}
		if !v.Numeric() {
			return v, fmt.Errorf("%w: %q", ErrNotNumeric, v.Name)
		}
		return v, nil
	}
	return Variable{}, ErrNoVariables
}

// Canonicalize squeezes singleton dimensions, averages a trailing trials axis
// and orients the result as channels × samples, assuming recordings have more
// samples than channels.
func Canonicalize(v Variable) (*Set, error) {
	set := &Set{Name: v.Name, Original: append([]int(nil), v.Dims...)}

	var shape []int
	total := 1
	for _, d := range v.Dims {
		total *= d
		if d != 1 {
			shape = append(shape, d)
		}
	}
	if total != len(v.Data) {
		return nil, fmt.Errorf("%w: %v holds %d values", ErrUnsupportedShape, v.Dims, len(v.Data))
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: empty array", ErrUnsupportedShape)
	}

	// Squeezing keeps the column-major order, so data is indexed
	// i0 + d0*(i1 + d1*i2) against the squeezed shape.
	var rows, cols int
	var at func(r, c int) float64
	switch len(shape) {
	case 0, 1:
		rows, cols = 1, total
		at = func(_, c int) float64 { return v.Data[c] }
	case 2:
		rows, cols = shape[0], shape[1]
		at = func(r, c int) float64 { return v.Data[r+rows*c] }
	case 3:
		rows, cols = shape[0], shape[1]
		trials := shape[2]
		means := make([]float64, rows*cols)
		for k := 0; k < trials; k++ {
			for c := 0; c < cols; c++ {
				for r := 0; r < rows; r++ {
					means[r+rows*c] += v.Data[r+rows*(c+cols*k)]
				}
			}
		}
		for i := range means {
			means[i] /= float64(trials)
		}
		at = func(r, c int) float64 { return means[r+rows*c] }
		set.Averaged = true
		set.Warnings = append(set.Warnings,
			fmt.Sprintf("averaged %d trials along the third axis of %v", trials, shape))
	default:
		return nil, fmt.Errorf("%w: %d non-singleton dimensions %v", ErrUnsupportedShape, len(shape), shape)
	}

	switch {
	case rows > cols:
		set.Transposed = true
		set.Warnings = append(set.Warnings,
			fmt.Sprintf("transposed %dx%d to %d channels x %d samples", rows, cols, cols, rows))
		set.Data = mat.NewDense(cols, rows, nil)
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				set.Data.Set(c, r, at(r, c))
			}
		}
		return set, nil
	case rows == cols && rows > 1:
		set.Ambiguous = true
		set.Warnings = append(set.Warnings,
			fmt.Sprintf("square %dx%d array: rows taken as channels", rows, cols))
	}

	set.Data = mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			set.Data.Set(r, c, at(r, c))
		}
	}
	return set, nil
}
