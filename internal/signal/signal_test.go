package signal

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var le = binary.LittleEndian

func element(typ uint32, data []byte) []byte {
	var buf bytes.Buffer
	hdr := make([]byte, 8)
	le.PutUint32(hdr[0:], typ)
	le.PutUint32(hdr[4:], uint32(len(data)))
	buf.Write(hdr)
	buf.Write(data)
	if pad := len(data) % 8; pad != 0 {
		buf.Write(make([]byte, 8-pad))
	}
	return buf.Bytes()
}

func matrixElement(name string, class uint32, dims []int32, values []float64) []byte {
	flags := make([]byte, 8)
	le.PutUint32(flags, class)

	dimBytes := make([]byte, 4*len(dims))
	for i, d := range dims {
		le.PutUint32(dimBytes[4*i:], uint32(d))
	}

	var body bytes.Buffer
	body.Write(element(miUINT32, flags))
	body.Write(element(miINT32, dimBytes))
	body.Write(element(miINT8, []byte(name)))
	if class >= mxDOUBLE {
		data := make([]byte, 8*len(values))
		for i, v := range values {
			le.PutUint64(data[8*i:], math.Float64bits(v))
		}
		body.Write(element(miDOUBLE, data))
	} else {
		body.Write(element(miUINT16, []byte("ab")))
	}
	return element(miMATRIX, body.Bytes())
}

func matHeader(text string) []byte {
	hdr := make([]byte, matHeaderSize)
	for i := range hdr[:116] {
		hdr[i] = ' '
	}
	copy(hdr, text)
	le.PutUint16(hdr[124:], 0x0100)
	copy(hdr[126:], "IM")
	return hdr
}

func writeMAT(t *testing.T, elements ...[]byte) string {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(matHeader("MATLAB 5.0 MAT-file, test"))
	for _, e := range elements {
		buf.Write(e)
	}
	path := filepath.Join(t.TempDir(), "rec.mat")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func compressed(t *testing.T, inner []byte) []byte {
	var z bytes.Buffer
	w := zlib.NewWriter(&z)
	_, err := w.Write(inner)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	hdr := make([]byte, 8)
	le.PutUint32(hdr[0:], miCOMPRESSED)
	le.PutUint32(hdr[4:], uint32(z.Len()))
	return append(hdr, z.Bytes()...)
}

func sine(freq, fs float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / fs)
	}
	return out
}

func TestDominantFrequencyOfSine(t *testing.T) {
	const fs, n = 250.0, 1000
	for _, f := range []float64{10, 7.5, 42} {
		freq, mag := ComputeSpectrum(sine(f, fs, n), fs).Dominant()
		assert.InDelta(t, f, freq, fs/n)
		assert.Greater(t, mag, 0.0)
	}
}

func TestDominantDCOnly(t *testing.T) {
	freq, mag := ComputeSpectrum([]float64{3}, DefaultSampleRate).Dominant()
	assert.Zero(t, freq)
	assert.Zero(t, mag)
}

func TestLoadTransposesColumnChannels(t *testing.T) {
	const n = 500
	a, b := sine(10, DefaultSampleRate, n), sine(25, DefaultSampleRate, n)
	// column-major n×2: first column is channel a
	values := append(append([]float64(nil), a...), b...)
	path := writeMAT(t, matrixElement("eeg", mxDOUBLE, []int32{n, 2}, values))

	set, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Channels())
	assert.Equal(t, n, set.Samples())
	assert.True(t, set.Transposed)
	assert.NotEmpty(t, set.Warnings)

	doms := set.DominantAll(DefaultSampleRate)
	require.Len(t, doms, 2)
	assert.Equal(t, 10.0, doms[0].Frequency)
	assert.Equal(t, 25.0, doms[1].Frequency)
}

func TestLoadCompressedVariable(t *testing.T) {
	path := writeMAT(t, compressed(t, matrixElement("x", mxDOUBLE, []int32{1, 4}, []float64{1, 2, 3, 4})))

	set, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, set.Channels())
	assert.Equal(t, 4, set.Samples())
	assert.False(t, set.Transposed)

	row, err := set.Channel(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, row)
}

func TestSelectSkipsInternalNames(t *testing.T) {
	vars := []Variable{
		{Name: "__header__", Class: mxDOUBLE, Dims: []int{1, 1}, Data: []float64{0}},
		{Name: "sig", Class: mxDOUBLE, Dims: []int{1, 2}, Data: []float64{1, 2}},
	}
	v, err := Select(vars)
	require.NoError(t, err)
	assert.Equal(t, "sig", v.Name)

	_, err = Select(vars[:1])
	assert.ErrorIs(t, err, ErrNoVariables)
}

func TestLoadRejectsCharVariable(t *testing.T) {
	path := writeMAT(t, matrixElement("label", 4, []int32{1, 2}, nil))
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrNotNumeric)
}

func TestParseMATv73(t *testing.T) {
	raw := matHeader("MATLAB 7.3 MAT-file, Platform: GLNXA64")
	_, err := ParseMAT(raw)
	assert.ErrorIs(t, err, ErrMATv73)

	_, err = ParseMAT([]byte("short"))
	assert.ErrorIs(t, err, ErrNotMAT)
}

func TestCanonicalizeAveragesTrials(t *testing.T) {
	// 2 channels × 3 samples × 2 trials, trial 2 is trial 1 + 2
	trial := []float64{1, 4, 2, 5, 3, 6}
	values := append(append([]float64(nil), trial...), 3, 6, 4, 7, 5, 8)
	set, err := Canonicalize(Variable{Name: "erp", Class: mxDOUBLE, Dims: []int{2, 3, 2}, Data: values})
	require.NoError(t, err)
	assert.True(t, set.Averaged)
	assert.False(t, set.Transposed)

	ch0, _ := set.Channel(0)
	ch1, _ := set.Channel(1)
	assert.Equal(t, []float64{2, 3, 4}, ch0)
	assert.Equal(t, []float64{5, 6, 7}, ch1)
}

func TestCanonicalizeSqueezesAndFlags(t *testing.T) {
	set, err := Canonicalize(Variable{Class: mxDOUBLE, Dims: []int{3, 1, 1}, Data: []float64{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, 1, set.Channels())
	assert.Equal(t, 3, set.Samples())

	square, err := Canonicalize(Variable{Class: mxDOUBLE, Dims: []int{2, 2}, Data: []float64{1, 2, 3, 4}})
	require.NoError(t, err)
	assert.True(t, square.Ambiguous)
	assert.NotEmpty(t, square.Warnings)

	_, err = Canonicalize(Variable{Class: mxDOUBLE, Dims: []int{2, 2, 2, 2}, Data: make([]float64, 16)})
	assert.ErrorIs(t, err, ErrUnsupportedShape)
}

func TestStatsAndHistogram(t *testing.T) {
	set, err := Canonicalize(Variable{Class: mxDOUBLE, Dims: []int{1, 4}, Data: []float64{1, 2, 3, 4}})
	require.NoError(t, err)

	st, err := set.Stats(0)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, st.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(1.25), st.Std, 1e-12)

	h, err := set.Histogram(0)
	require.NoError(t, err)
	assert.Len(t, h.Edges, HistogramBins+1)
	assert.Len(t, h.Counts, HistogramBins)
	total := 0.0
	for _, c := range h.Counts {
		total += c
	}
	assert.Equal(t, 4.0, total)
	assert.Equal(t, 1.0, h.Counts[HistogramBins-1])

	_, err = set.Stats(3)
	assert.ErrorIs(t, err, ErrChannelRange)
}

func TestHistogramConstantSeries(t *testing.T) {
	h := ComputeHistogram([]float64{5, 5, 5}, 10)
	assert.Equal(t, 4.5, h.Edges[0])
	assert.Equal(t, 5.5, h.Edges[10])
	total := 0.0
	for _, c := range h.Counts {
		total += c
	}
	assert.Equal(t, 3.0, total)
}
