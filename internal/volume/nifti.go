package volume

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
)

const niftiHeaderSize = 348

// NIfTI-1 datatype codes.
const (
	niftiUint8   = 2
	niftiInt16   = 4
	niftiInt32   = 8
	niftiFloat32 = 16
	niftiFloat64 = 64
	niftiInt8    = 256
	niftiUint16  = 512
	niftiUint32  = 768
	niftiInt64   = 1024
	niftiUint64  = 1280
)

type niftiHeader struct {
	order    binary.ByteOrder
	dims     [8]int16
	datatype int16
	bitpix   int16
	offset   int
	slope    float32
	inter    float32
	descrip  string
}

// LoadNIfTI reads a single-file NIfTI-1 image (.nii or .nii.gz). 4D images
// keep only the first volume. The result is permuted to (Z,Y,X).
func LoadNIfTI(path string) (*Volume, error) {
	raw, err := readNIfTIBytes(path)
	if err != nil {
		return nil, err
	}
	vol, err := decodeNIfTI(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	base := filepath.Base(path)
	vol.Source = path
	vol.Meta.StudyUID = base
	vol.Meta.Modality = "NIfTI"
	if vol.Meta.StudyDescription == "" {
		vol.Meta.StudyDescription = NotAvailable
	}
	slog.Info("Loaded NIfTI", "path", path, "shape", vol.Shape())
	return vol, nil
}

func readNIfTIBytes(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open nifti: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read nifti: %w", err)
	}
	return raw, nil
}

func parseNIfTIHeader(raw []byte) (*niftiHeader, error) {
	if len(raw) < niftiHeaderSize {
		return nil, fmt.Errorf("%w: file shorter than nifti header", ErrUnsupportedFormat)
	}

	h := &niftiHeader{}
	switch {
	case binary.LittleEndian.Uint32(raw[0:4]) == niftiHeaderSize:
		h.order = binary.LittleEndian
	case binary.BigEndian.Uint32(raw[0:4]) == niftiHeaderSize:
		h.order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: bad sizeof_hdr", ErrUnsupportedFormat)
	}

	magic := string(bytes.TrimRight(raw[344:348], "\x00"))
	if magic != "n+1" {
		return nil, fmt.Errorf("%w: magic %q (only single-file .nii is supported)", ErrUnsupportedFormat, magic)
	}

	for i := range h.dims {
		h.dims[i] = int16(h.order.Uint16(raw[40+2*i:]))
	}
	h.datatype = int16(h.order.Uint16(raw[70:]))
	h.bitpix = int16(h.order.Uint16(raw[72:]))
	h.offset = int(math.Float32frombits(h.order.Uint32(raw[108:])))
	h.slope = math.Float32frombits(h.order.Uint32(raw[112:]))
	h.inter = math.Float32frombits(h.order.Uint32(raw[116:]))
	h.descrip = strings.TrimSpace(string(bytes.TrimRight(raw[148:228], "\x00")))
	if h.offset < niftiHeaderSize {
		h.offset = niftiHeaderSize
	}
	return h, nil
}

func decodeNIfTI(raw []byte) (*Volume, error) {
	h, err := parseNIfTIHeader(raw)
	if err != nil {
		return nil, err
	}

	ndim := int(h.dims[0])
	if ndim < 3 || ndim > 7 {
		return nil, fmt.Errorf("%w: %dD", ErrUnsupportedDims, ndim)
	}
	for i := 5; i <= ndim; i++ {
		if h.dims[i] > 1 {
			return nil, fmt.Errorf("%w: %dD", ErrUnsupportedDims, ndim)
		}
	}
	nx, ny, nz := int(h.dims[1]), int(h.dims[2]), int(h.dims[3])
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, fmt.Errorf("%w: dims %dx%dx%d", ErrUnsupportedDims, nx, ny, nz)
	}

	size, read, err := voxelReader(h.datatype, h.order)
	if err != nil {
		return nil, err
	}

	// Storage is x-fastest, so the first nx*ny*nz voxels are already the
	// row-major (Z,Y,X) layout of the first timepoint.
	count := nx * ny * nz
	need := h.offset + count*size
	if len(raw) < need {
		return nil, fmt.Errorf("truncated nifti data: have %d bytes, need %d", len(raw), need)
	}

	vol := New(nz, ny, nx)
	data := raw[h.offset:need]
	for i := 0; i < count; i++ {
		vol.Data[i] = read(data[i*size:])
	}

	slope, inter := float64(h.slope), float64(h.inter)
	if slope != 0 && !math.IsNaN(slope) && (slope != 1 || inter != 0) {
		for i, v := range vol.Data {
			vol.Data[i] = v*slope + inter
		}
		vol.Meta.Slope, vol.Meta.Intercept = slope, inter
	}
	vol.Meta.StudyDescription = h.descrip
	return vol, nil
}

func voxelReader(datatype int16, order binary.ByteOrder) (int, func([]byte) float64, error) {
	switch datatype {
	case niftiUint8:
		return 1, func(b []byte) float64 { return float64(b[0]) }, nil
	case niftiInt8:
		return 1, func(b []byte) float64 { return float64(int8(b[0])) }, nil
	case niftiInt16:
		return 2, func(b []byte) float64 { return float64(int16(order.Uint16(b))) }, nil
	case niftiUint16:
		return 2, func(b []byte) float64 { return float64(order.Uint16(b)) }, nil
	case niftiInt32:
		return 4, func(b []byte) float64 { return float64(int32(order.Uint32(b))) }, nil
	case niftiUint32:
		return 4, func(b []byte) float64 { return float64(order.Uint32(b)) }, nil
	case niftiInt64:
		return 8, func(b []byte) float64 { return float64(int64(order.Uint64(b))) }, nil
	case niftiUint64:
		return 8, func(b []byte) float64 { return float64(order.Uint64(b)) }, nil
	case niftiFloat32:
		return 4, func(b []byte) float64 { return float64(math.Float32frombits(order.Uint32(b))) }, nil
	case niftiFloat64:
		return 8, func(b []byte) float64 { return math.Float64frombits(order.Uint64(b)) }, nil
	}
	return 0, nil, fmt.Errorf("%w: nifti datatype %d", ErrUnsupportedFormat, datatype)
}
