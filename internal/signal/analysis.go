package signal

import (
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultSampleRate is used when no rate is configured.
const DefaultSampleRate = 250.0

// HistogramBins is the bin count of per-channel histograms.
const HistogramBins = 30

// Spectrum is the one-sided magnitude spectrum of a real series.
type Spectrum struct {
	Freqs      []float64
	Magnitudes []float64
}

// Dominant is the strongest non-DC component of one channel.
type Dominant struct {
	Channel   int
	Frequency float64
	Magnitude float64
}

// Stats holds the population standard deviation and mean of a channel.
type Stats struct {
	Std  float64
	Mean float64
}

// Histogram holds bin edges (one more than counts) and per-bin counts.
type Histogram struct {
	Edges  []float64
	Counts []float64
}

// ComputeSpectrum returns the unwindowed real FFT magnitudes of series with
// bins at k*fs/N.
func ComputeSpectrum(series []float64, fs float64) Spectrum {
	n := len(series)
	if n == 0 {
		return Spectrum{}
	}
	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, series)
	sp := Spectrum{
		Freqs:      make([]float64, len(coeffs)),
		Magnitudes: make([]float64, len(coeffs)),
	}
	for i, c := range coeffs {
		sp.Freqs[i] = fft.Freq(i) * fs
		sp.Magnitudes[i] = cmplx.Abs(c)
	}
	return sp
}

// Dominant returns the frequency and magnitude of the largest bin after
// the zero-frequency bin. Both are zero when only the DC bin exists.
func (sp Spectrum) Dominant() (freq, mag float64) {
	if len(sp.Magnitudes) < 2 {
		return 0, 0
	}
	idx := floats.MaxIdx(sp.Magnitudes[1:]) + 1
	return sp.Freqs[idx], sp.Magnitudes[idx]
}

// DominantAll computes the dominant component for every channel, rounded to
// two decimals.
func (s *Set) DominantAll(fs float64) []Dominant {
	out := make([]Dominant, 0, s.Channels())
	for ch := 0; ch < s.Channels(); ch++ {
		row, _ := s.Channel(ch)
		f, m := ComputeSpectrum(row, fs).Dominant()
		out = append(out, Dominant{Channel: ch, Frequency: round2(f), Magnitude: round2(m)})
	}
	return out
}

// Spectrum computes the magnitude spectrum of one channel.
func (s *Set) Spectrum(ch int, fs float64) (Spectrum, error) {
	row, err := s.Channel(ch)
	if err != nil {
		return Spectrum{}, err
	}
	return ComputeSpectrum(row, fs), nil
}

// Stats returns the population standard deviation and mean of a channel.
func (s *Set) Stats(ch int) (Stats, error) {
	row, err := s.Channel(ch)
	if err != nil {
		return Stats{}, err
	}
	mean, std := stat.PopMeanStdDev(row, nil)
	return Stats{Std: std, Mean: mean}, nil
}

// Histogram bins one channel into HistogramBins equal-width bins spanning its
// range. The last bin includes the maximum.
func (s *Set) Histogram(ch int) (Histogram, error) {
	row, err := s.Channel(ch)
	if err != nil {
		return Histogram{}, err
	}
	return ComputeHistogram(row, HistogramBins), nil
}

// ComputeHistogram bins x into equal-width bins between its minimum and
// maximum. A constant series spans value±0.5.
func ComputeHistogram(x []float64, bins int) Histogram {
	if len(x) == 0 || bins <= 0 {
		return Histogram{}
	}
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}

	edges := make([]float64, bins+1)
	floats.Span(edges, lo, hi)
	dividers := append([]float64(nil), edges...)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))

	counts := stat.Histogram(nil, dividers, sorted, nil)
	return Histogram{Edges: edges, Counts: counts}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
