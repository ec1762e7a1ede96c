package results

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biodash/internal/chart"
	bioimage "biodash/internal/image"
	"biodash/internal/signal"
	"biodash/internal/volume"
)

func fixedWriter(t *testing.T) *Writer {
	w := NewWriter(filepath.Join(t.TempDir(), "out"))
	w.Now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC) }
	return w
}

func readCSV(t *testing.T, path string) [][]string {
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "brain", BaseName("/data/brain.nii.gz"))
	assert.Equal(t, "IM0001", BaseName("series/IM0001.dcm"))
	assert.Equal(t, "Sujeto 1 EEG", SafeName("Sujeto 1 (EEG)!"))
}

func TestWriteMetadataNeverOverwrites(t *testing.T) {
	w := fixedWriter(t)
	meta := volume.New(1, 1, 1).Meta
	meta.PatientID = "P-7"

	first, err := w.WriteMetadata("/x/scan.nii", meta)
	require.NoError(t, err)
	assert.Equal(t, "scan_metadata_20240309_140507.csv", filepath.Base(first))

	second, err := w.WriteMetadata("/x/scan.nii", meta)
	require.NoError(t, err)
	assert.Equal(t, "scan_metadata_20240309_140507_1.csv", filepath.Base(second))

	rows := readCSV(t, first)
	assert.Equal(t, []string{"field", "value"}, rows[0])
	assert.Equal(t, []string{"PatientID", "P-7"}, rows[1])
	assert.Len(t, rows, 7)
}

func TestAppendStudyWritesHeaderOnce(t *testing.T) {
	w := fixedWriter(t)
	meta := volume.New(1, 1, 1).Meta
	require.NoError(t, w.AppendStudy("/a/one.dcm", meta))
	require.NoError(t, w.AppendStudy("/a/two.nii", meta))

	rows := readCSV(t, filepath.Join(w.Dir, StudiesFile))
	require.Len(t, rows, 3)
	assert.Equal(t, studiesHeader, rows[0])
	assert.Equal(t, "one.dcm", rows[1][1])
	assert.Equal(t, "20240309_140507", rows[2][0])
}

func TestWriteFFT(t *testing.T) {
	w := fixedWriter(t)
	path, err := w.WriteFFT("rec/s01.mat", []signal.Dominant{{Channel: 0, Frequency: 10, Magnitude: 499.999}})
	require.NoError(t, err)
	assert.Equal(t, "fft_s01_20240309_140507.csv", filepath.Base(path))

	rows := readCSV(t, path)
	assert.Equal(t, []string{"0", "10.00", "500.00"}, rows[1])
}

func TestSaveImages(t *testing.T) {
	w := fixedWriter(t)
	p := bioimage.NewPlane(3, 2)
	p.Data[0] = 9

	path, err := w.SaveProcessed(p)
	require.NoError(t, err)
	assert.Equal(t, "processed_20240309_140507.png", filepath.Base(path))

	paths, err := w.SaveSlices(map[volume.Axis]*bioimage.Plane{
		volume.Sagittal: p,
		volume.Axial:    p,
	})
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, "axial_20240309_140507.png", filepath.Base(paths[0]))
	assert.Equal(t, "sagittal_20240309_140507.png", filepath.Base(paths[1]))

	c, err := chart.Series("Heart rate", "Index", "Value", []float64{60, 62, 61})
	require.NoError(t, err)
	cp, err := w.SaveChart(c, 2)
	require.NoError(t, err)
	assert.Equal(t, "Heart_rate_G2_20240309_140507.png", filepath.Base(cp))
}
