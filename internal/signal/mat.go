// Package signal reads multichannel recordings from MATLAB files, brings them
// into channels × samples form and computes spectra and summary statistics.
package signal

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// MAT v5 element types.
const (
	miINT8       = 1
	miUINT8      = 2
	miINT16      = 3
	miUINT16     = 4
	miINT32      = 5
	miUINT32     = 6
	miSINGLE     = 7
	miDOUBLE     = 9
	miINT64      = 12
	miUINT64     = 13
	miMATRIX     = 14
	miCOMPRESSED = 15
)

// MAT array classes.
const (
	mxDOUBLE = 6
	mxUINT64 = 15
)

const (
	matHeaderSize = 128
	flagComplex   = 0x0800
)

// Variable is one array from a MAT file. Data holds the real part in
// column-major order; it is nil for non-numeric classes.
type Variable struct {
	Name    string
	Class   int
	Dims    []int
	Complex bool
	Data    []float64
}

// Numeric reports whether the variable is a real numeric array.
func (v Variable) Numeric() bool {
	return v.Class >= mxDOUBLE && v.Class <= mxUINT64 && !v.Complex && v.Data != nil
}

// ReadMATFile parses every top-level variable in a Level 5 MAT file.
func ReadMATFile(path string) ([]Variable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mat file: %w", err)
	}
	return ParseMAT(raw)
}

// ParseMAT parses the bytes of a Level 5 MAT file.
func ParseMAT(raw []byte) ([]Variable, error) {
	if len(raw) < matHeaderSize {
		if bytes.HasPrefix(raw, []byte("MATLAB 7.3")) {
			return nil, ErrMATv73
		}
		return nil, ErrNotMAT
	}
	text := string(raw[:116])
	if strings.HasPrefix(text, "MATLAB 7.3") {
		return nil, ErrMATv73
	}

	var order binary.ByteOrder
	switch string(raw[126:128]) {
	case "IM":
		order = binary.LittleEndian
	case "MI":
		order = binary.BigEndian
	default:
		return nil, ErrNotMAT
	}

	r := &matReader{order: order}
	return r.elements(raw[matHeaderSize:])
}

type matReader struct {
	order binary.ByteOrder
}

// tag splits an element header. Small elements pack type and size into the
// first word and carry up to four bytes of data inline.
func (r *matReader) tag(b []byte) (typ, size int, body []byte, next int, err error) {
	if len(b) < 8 {
		return 0, 0, nil, 0, fmt.Errorf("truncated element tag")
	}
	first := r.order.Uint32(b[0:4])
	if first>>16 != 0 {
		typ = int(first & 0xFFFF)
		size = int(first >> 16)
		if size > 4 {
			return 0, 0, nil, 0, fmt.Errorf("bad small element size %d", size)
		}
		return typ, size, b[4 : 4+size], 8, nil
	}
	typ = int(first)
	size = int(r.order.Uint32(b[4:8]))
	if 8+size > len(b) {
		return 0, 0, nil, 0, fmt.Errorf("element of %d bytes overruns file", size)
	}
	next = 8 + size
	if typ != miCOMPRESSED {
		if pad := next % 8; pad != 0 {
			next += 8 - pad
		}
		if next > len(b) {
			next = len(b)
		}
	}
	return typ, size, b[8 : 8+size], next, nil
}

func (r *matReader) elements(b []byte) ([]Variable, error) {
	var vars []Variable
	for len(b) >= 8 {
		typ, _, body, next, err := r.tag(b)
		if err != nil {
			return vars, err
		}
		switch typ {
		case miCOMPRESSED:
			zr, err := zlib.NewReader(bytes.NewReader(body))
			if err != nil {
				return vars, fmt.Errorf("failed to open compressed element: %w", err)
			}
			inner, err := io.ReadAll(zr)
			zr.Close()
			if err != nil {
				return vars, fmt.Errorf("failed to inflate element: %w", err)
			}
			sub, err := r.elements(inner)
			if err != nil {
				return vars, err
			}
			vars = append(vars, sub...)
		case miMATRIX:
			v, err := r.matrix(body)
			if err != nil {
				return vars, err
			}
			vars = append(vars, v)
		}
		b = b[next:]
	}
	return vars, nil
}

func (r *matReader) matrix(b []byte) (Variable, error) {
	var v Variable
	if len(b) == 0 {
		return v, nil
	}

	typ, _, flags, next, err := r.tag(b)
	if err != nil || typ != miUINT32 || len(flags) < 8 {
		return v, fmt.Errorf("bad array flags")
	}
	f := r.order.Uint32(flags[0:4])
	v.Class = int(f & 0xFF)
	v.Complex = f&flagComplex != 0
	b = b[next:]

	typ, _, dims, next, err := r.tag(b)
	if err != nil || typ != miINT32 {
		return v, fmt.Errorf("bad dimensions")
	}
	for i := 0; i+4 <= len(dims); i += 4 {
		v.Dims = append(v.Dims, int(int32(r.order.Uint32(dims[i:]))))
	}
	b = b[next:]

	typ, _, name, next, err := r.tag(b)
	if err != nil || typ != miINT8 {
		return v, fmt.Errorf("bad array name")
	}
	v.Name = string(name)
	b = b[next:]

	if v.Class < mxDOUBLE || v.Class > mxUINT64 {
		return v, nil
	}
	typ, _, re, _, err := r.tag(b)
	if err != nil {
		return v, fmt.Errorf("%s: bad real part: %w", v.Name, err)
	}
	v.Data, err = r.numbers(typ, re)
	if err != nil {
		return v, fmt.Errorf("%s: %w", v.Name, err)
	}
	return v, nil
}

func (r *matReader) numbers(typ int, b []byte) ([]float64, error) {
	var size int
	var read func([]byte) float64
	switch typ {
	case miINT8:
		size, read = 1, func(p []byte) float64 { return float64(int8(p[0])) }
	case miUINT8:
		size, read = 1, func(p []byte) float64 { return float64(p[0]) }
	case miINT16:
		size, read = 2, func(p []byte) float64 { return float64(int16(r.order.Uint16(p))) }
	case miUINT16:
		size, read = 2, func(p []byte) float64 { return float64(r.order.Uint16(p)) }
	case miINT32:
		size, read = 4, func(p []byte) float64 { return float64(int32(r.order.Uint32(p))) }
	case miUINT32:
		size, read = 4, func(p []byte) float64 { return float64(r.order.Uint32(p)) }
	case miINT64:
		size, read = 8, func(p []byte) float64 { return float64(int64(r.order.Uint64(p))) }
	case miUINT64:
		size, read = 8, func(p []byte) float64 { return float64(r.order.Uint64(p)) }
	case miSINGLE:
		size, read = 4, func(p []byte) float64 { return float64(math.Float32frombits(r.order.Uint32(p))) }
	case miDOUBLE:
		size, read = 8, func(p []byte) float64 { return math.Float64frombits(r.order.Uint64(p)) }
	default:
		return nil, fmt.Errorf("unsupported element type %d", typ)
	}
	out := make([]float64, len(b)/size)
	for i := range out {
		out[i] = read(b[i*size:])
	}
	return out, nil
}
