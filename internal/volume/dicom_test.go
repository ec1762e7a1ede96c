package volume

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"
	"github.com/suyashkumar/dicom/pkg/uid"
)

// dicomFile describes a 2x2 single-frame slice written by writeDICOM.
type dicomFile struct {
	instance    string
	photometric string
	slope       string
	intercept   string
	pixels      []int
}

func mustElement(t *testing.T, tg tag.Tag, data interface{}) *dicom.Element {
	t.Helper()
	el, err := dicom.NewElement(tg, data)
	require.NoError(t, err)
	return el
}

func writeDICOM(t *testing.T, path string, f dicomFile) {
	t.Helper()
	elems := []*dicom.Element{
		mustElement(t, tag.MediaStorageSOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.2"}),
		mustElement(t, tag.MediaStorageSOPInstanceUID, []string{"1.2.826.0.1." + f.instance}),
		mustElement(t, tag.TransferSyntaxUID, []string{uid.ImplicitVRLittleEndian}),
		mustElement(t, tag.StudyDate, []string{"20240105"}),
		mustElement(t, tag.Modality, []string{"CT"}),
		mustElement(t, tag.PatientName, []string{"Doe^Jane"}),
		mustElement(t, tag.PatientID, []string{"P-001"}),
		mustElement(t, tag.StudyInstanceUID, []string{"1.2.826.0.1.99"}),
		mustElement(t, tag.InstanceNumber, []string{f.instance}),
	}
	if f.pixels != nil {
		data := make([][]int, len(f.pixels))
		for i, v := range f.pixels {
			data[i] = []int{v}
		}
		elems = append(elems,
			mustElement(t, tag.SamplesPerPixel, []int{1}),
			mustElement(t, tag.PhotometricInterpretation, []string{f.photometric}),
			mustElement(t, tag.NumberOfFrames, []string{"1"}),
			mustElement(t, tag.Rows, []int{2}),
			mustElement(t, tag.Columns, []int{2}),
			mustElement(t, tag.BitsAllocated, []int{16}),
			mustElement(t, tag.RescaleIntercept, []string{f.intercept}),
			mustElement(t, tag.RescaleSlope, []string{f.slope}),
			mustElement(t, tag.PixelData, dicom.PixelDataInfo{
				Frames: []*frame.Frame{{
					NativeData: frame.NativeFrame{BitsPerSample: 16, Rows: 2, Cols: 2, Data: data},
				}},
			}),
		)
	}

	out, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, dicom.Write(out, dicom.Dataset{Elements: elems}))
	require.NoError(t, out.Close())
}

func TestReadSliceParsesTags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slice.dcm")
	writeDICOM(t, path, dicomFile{
		instance: "12", photometric: "monochrome1", slope: "2.5", intercept: "-1024",
		pixels: []int{1, 2, 3, 4},
	})

	s, err := readSlice(path)
	require.NoError(t, err)
	assert.Equal(t, 12, s.Instance)
	assert.Equal(t, "MONOCHROME1", s.Photometric)
	assert.Equal(t, 2, s.Rows)
	assert.Equal(t, 2, s.Cols)
	assert.Equal(t, []float64{1, 2, 3, 4}, s.Pixels)
	assert.Equal(t, 2.5, s.Meta.Slope)
	assert.Equal(t, -1024.0, s.Meta.Intercept)
	assert.Equal(t, "P-001", s.Meta.PatientID)
	assert.Equal(t, "CT", s.Meta.Modality)
	assert.Equal(t, "20240105", s.Meta.StudyDate)
}

func TestReadSliceWithoutPixelData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.dcm")
	writeDICOM(t, path, dicomFile{instance: "1"})

	_, err := readSlice(path)
	assert.Error(t, err)
}

func TestLoadDICOMSeriesSingleValidFile(t *testing.T) {
	dir := t.TempDir()
	only := filepath.Join(dir, "a.dcm")
	writeDICOM(t, only, dicomFile{instance: "1", photometric: "MONOCHROME2", slope: "1", intercept: "0", pixels: []int{1, 2, 3, 4}})
	writeDICOM(t, filepath.Join(dir, "b.dcm"), dicomFile{instance: "2"})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.dcm"), []byte("garbage"), 0644))

	_, err := LoadDICOMSeries(context.Background(), only)
	assert.ErrorIs(t, err, ErrNotVolume)
}

func TestLoadDICOMSeriesFromFiles(t *testing.T) {
	dir := t.TempDir()
	// file names sort opposite to instance numbers
	writeDICOM(t, filepath.Join(dir, "a.dcm"), dicomFile{
		instance: "2", photometric: "MONOCHROME1", slope: "1", intercept: "0",
		pixels: []int{0, 10, 20, 30},
	})
	writeDICOM(t, filepath.Join(dir, "b.dcm"), dicomFile{
		instance: "1", photometric: "MONOCHROME2", slope: "2", intercept: "-1",
		pixels: []int{1, 2, 3, 4},
	})
	writeDICOM(t, filepath.Join(dir, "c.dcm"), dicomFile{instance: "3"})

	vol, err := LoadDICOMSeries(context.Background(), filepath.Join(dir, "c.dcm"))
	require.NoError(t, err)
	assert.Equal(t, [3]int{2, 2, 2}, vol.Shape())
	assert.Equal(t, dir, vol.Source)
	// instance 1 rescaled, then instance 2 inverted to {30,20,10,0} and rescaled
	assert.Equal(t, []float64{1, 3, 5, 7, 59, 39, 19, -1}, vol.Data)
	assert.Equal(t, 2.0, vol.Meta.Slope)
	assert.Equal(t, "P-001", vol.Meta.PatientID)
	assert.Equal(t, "1.2.826.0.1.99", vol.Meta.StudyUID)
}
