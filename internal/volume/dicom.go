package volume

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// dicomSlice is one parsed file of a series, reduced to what assembly needs.
type dicomSlice struct {
	Path        string
	Instance    int
	Photometric string
	Rows        int
	Cols        int
	Pixels      []float64
	Meta        Metadata
}

// LoadDICOMSeries loads every .dcm file in the folder containing path as one
// volume. Files that fail to parse or carry no pixel data are skipped.
func LoadDICOMSeries(ctx context.Context, path string) (*Volume, error) {
	dir := filepath.Dir(path)
	files, err := seriesFiles(dir)
	if err != nil {
		return nil, err
	}

	var slices []dicomSlice
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := readSlice(f)
		if err != nil {
			slog.Debug("Skipping DICOM file", "path", f, "error", err)
			continue
		}
		slices = append(slices, s)
	}

	vol, err := assembleSeries(slices)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	vol.Source = dir
	slog.Info("Loaded DICOM series", "dir", dir, "slices", vol.Depth, "rows", vol.Height, "cols", vol.Width)
	return vol, nil
}

func seriesFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".dcm") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func readSlice(path string) (dicomSlice, error) {
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return dicomSlice{}, err
	}

	pixEl, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return dicomSlice{}, fmt.Errorf("no pixel data: %w", err)
	}
	info := dicom.MustGetPixelDataInfo(pixEl.Value)
	if len(info.Frames) == 0 {
		return dicomSlice{}, fmt.Errorf("pixel data has no frames")
	}

	s := dicomSlice{
		Path:        path,
		Photometric: strings.ToUpper(strings.TrimSpace(elementString(ds, tag.PhotometricInterpretation))),
		Meta:        defaultMetadata(),
	}
	if n, err := strconv.Atoi(strings.TrimSpace(elementString(ds, tag.InstanceNumber))); err == nil {
		s.Instance = n
	}

	fr := info.Frames[0]
	if !fr.Encapsulated {
		nd := fr.NativeData
		s.Rows, s.Cols = nd.Rows, nd.Cols
		s.Pixels = make([]float64, len(nd.Data))
		for i, sample := range nd.Data {
			if len(sample) > 0 {
				s.Pixels[i] = float64(sample[0])
			}
		}
	} else {
		img, err := fr.GetImage()
		if err != nil {
			return dicomSlice{}, fmt.Errorf("failed to decode encapsulated frame: %w", err)
		}
		s.Rows, s.Cols, s.Pixels = imageSamples(img)
	}
	if len(s.Pixels) != s.Rows*s.Cols || s.Rows == 0 {
		return dicomSlice{}, fmt.Errorf("pixel count %d does not match %dx%d", len(s.Pixels), s.Rows, s.Cols)
	}

	for field, t := range map[*string]tag.Tag{
		&s.Meta.PatientID:        tag.PatientID,
		&s.Meta.PatientName:      tag.PatientName,
		&s.Meta.StudyUID:         tag.StudyInstanceUID,
		&s.Meta.StudyDescription: tag.StudyDescription,
		&s.Meta.StudyDate:        tag.StudyDate,
		&s.Meta.Modality:         tag.Modality,
	} {
		if v := strings.TrimSpace(elementString(ds, t)); v != "" {
			*field = v
		}
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(elementString(ds, tag.RescaleSlope)), 64); err == nil {
		s.Meta.Slope = v
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(elementString(ds, tag.RescaleIntercept)), 64); err == nil {
		s.Meta.Intercept = v
	}
	return s, nil
}

// elementString flattens an element value to text, or "" when absent.
func elementString(ds dicom.Dataset, t tag.Tag) string {
	el, err := ds.FindElementByTag(t)
	if err != nil || el.Value == nil {
		return ""
	}
	switch v := el.Value.GetValue().(type) {
	case []string:
		return strings.Join(v, `\`)
	case []int:
		parts := make([]string, len(v))
		for i, n := range v {
			parts[i] = strconv.Itoa(n)
		}
		return strings.Join(parts, `\`)
	case []float64:
		parts := make([]string, len(v))
		for i, f := range v {
			parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return strings.Join(parts, `\`)
	}
	return ""
}

func imageSamples(img image.Image) (rows, cols int, pix []float64) {
	b := img.Bounds()
	rows, cols = b.Dy(), b.Dx()
	pix = make([]float64, 0, rows*cols)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.Gray16Model.Convert(img.At(x, y)).(color.Gray16)
			pix = append(pix, float64(g.Y))
		}
	}
	return rows, cols, pix
}

// assembleSeries orders slices by instance number and stacks them. The
// rescale of the first ordered slice applies to the whole volume.
func assembleSeries(slices []dicomSlice) (*Volume, error) {
	if len(slices) < 2 {
		return nil, ErrNotVolume
	}
	sort.SliceStable(slices, func(i, j int) bool {
		return slices[i].Instance < slices[j].Instance
	})

	rows, cols := slices[0].Rows, slices[0].Cols
	vol := New(len(slices), rows, cols)
	plane := rows * cols
	for z, s := range slices {
		if s.Rows != rows || s.Cols != cols {
			return nil, fmt.Errorf("%w: %s is %dx%d, expected %dx%d", ErrShapeMismatch, s.Path, s.Rows, s.Cols, rows, cols)
		}
		dst := vol.Data[z*plane : (z+1)*plane]
		copy(dst, s.Pixels)
		if s.Photometric == "MONOCHROME1" {
			invert(dst)
		}
	}

	vol.Meta = slices[0].Meta
	if vol.Meta.Slope != 1 || vol.Meta.Intercept != 0 {
		for i, v := range vol.Data {
			vol.Data[i] = v*vol.Meta.Slope + vol.Meta.Intercept
		}
	}
	return vol, nil
}

// invert maps MONOCHROME1 samples to MONOCHROME2 by subtracting from the
// slice maximum.
func invert(pix []float64) {
	hi := math.Inf(-1)
	for _, v := range pix {
		if v > hi {
			hi = v
		}
	}
	for i, v := range pix {
		pix[i] = hi - v
	}
}
