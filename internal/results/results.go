// Package results writes everything the dashboard exports into a single
// output folder. Names carry a timestamp and existing files are never
// overwritten.
package results

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"biodash/internal/chart"
	bioimage "biodash/internal/image"
	"biodash/internal/signal"
	"biodash/internal/volume"
)

// TimestampLayout formats the suffix of exported file names.
const TimestampLayout = "20060102_150405"

// StudiesFile is the append-only index of loaded studies.
const StudiesFile = "studies.csv"

var studiesHeader = []string{
	"timestamp", "file", "PatientID", "PatientName",
	"StudyUID", "StudyDescription", "StudyDate", "Modality",
}

// Writer owns the output folder.
type Writer struct {
	Dir string
	Now func() time.Time
}

// NewWriter returns a writer for dir. The folder is created on first use.
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir, Now: time.Now}
}

func (w *Writer) timestamp() string {
	return w.Now().Format(TimestampLayout)
}

func (w *Writer) ensure() error {
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create results folder: %w", err)
	}
	return nil
}

// unique returns a path in Dir for name, adding _1, _2, ... before the
// extension while the candidate exists.
func (w *Writer) unique(name string) string {
	path := filepath.Join(w.Dir, name)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return path
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := filepath.Join(w.Dir, fmt.Sprintf("%s_%d%s", stem, i, ext))
		if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate
		}
	}
}

// BaseName strips the directory and every known extension from a source
// path.
func BaseName(source string) string {
	base := filepath.Base(source)
	lower := strings.ToLower(base)
	if strings.HasSuffix(lower, ".nii.gz") {
		return base[:len(base)-len(".nii.gz")]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SafeName keeps letters, digits, spaces, hyphens and underscores.
func SafeName(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			return r
		}
		return -1
	}, s)
	return strings.TrimSpace(s)
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	cw := csv.NewWriter(f)
	if err := cw.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// WriteMetadata writes <base>_metadata_<timestamp>.csv for a loaded volume.
func (w *Writer) WriteMetadata(source string, meta volume.Metadata) (string, error) {
	if err := w.ensure(); err != nil {
		return "", err
	}
	path := w.unique(fmt.Sprintf("%s_metadata_%s.csv", BaseName(source), w.timestamp()))
	rows := [][]string{{"field", "value"}}
	for _, f := range meta.Fields() {
		rows = append(rows, []string{f[0], f[1]})
	}
	if err := writeCSV(path, rows); err != nil {
		return "", err
	}
	slog.Info("Wrote metadata", "path", path)
	return path, nil
}

// AppendStudy adds one row to the studies index, writing the header when
// the file is new.
func (w *Writer) AppendStudy(source string, meta volume.Metadata) error {
	if err := w.ensure(); err != nil {
		return err
	}
	path := filepath.Join(w.Dir, StudiesFile)
	_, statErr := os.Stat(path)
	fresh := errors.Is(statErr, os.ErrNotExist)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	cw := csv.NewWriter(f)
	if fresh {
		cw.Write(studiesHeader)
	}
	row := []string{w.timestamp(), filepath.Base(source)}
	for _, fv := range meta.Fields() {
		row = append(row, fv[1])
	}
	cw.Write(row)
	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to append study: %w", err)
	}
	return f.Close()
}

// WriteFFT writes the dominant-frequency table of a signal file.
func (w *Writer) WriteFFT(source string, doms []signal.Dominant) (string, error) {
	if err := w.ensure(); err != nil {
		return "", err
	}
	base := SafeName(BaseName(source))
	if base == "" {
		base = "signal"
	}
	path := w.unique(fmt.Sprintf("fft_%s_%s.csv", base, w.timestamp()))
	rows := [][]string{{"channel", "dominant_hz", "magnitude"}}
	for _, d := range doms {
		rows = append(rows, []string{
			strconv.Itoa(d.Channel),
			strconv.FormatFloat(d.Frequency, 'f', 2, 64),
			strconv.FormatFloat(d.Magnitude, 'f', 2, 64),
		})
	}
	if err := writeCSV(path, rows); err != nil {
		return "", err
	}
	slog.Info("Wrote FFT table", "path", path, "channels", len(doms))
	return path, nil
}

// SaveProcessed writes processed_<timestamp>.png.
func (w *Writer) SaveProcessed(p *bioimage.Plane) (string, error) {
	if err := w.ensure(); err != nil {
		return "", err
	}
	path := w.unique(fmt.Sprintf("processed_%s.png", w.timestamp()))
	if err := bioimage.SavePNG(path, p); err != nil {
		return "", err
	}
	return path, nil
}

// SaveSlices writes one <axis>_<timestamp>.png per plane, in axis order.
func (w *Writer) SaveSlices(planes map[volume.Axis]*bioimage.Plane) ([]string, error) {
	if err := w.ensure(); err != nil {
		return nil, err
	}
	t := w.timestamp()
	var paths []string
	for _, a := range volume.Axes {
		p, ok := planes[a]
		if !ok {
			continue
		}
		path := w.unique(fmt.Sprintf("%s_%s.png", a, t))
		if err := bioimage.SavePNG(path, p); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// SaveChart writes <title>_G<slot>_<timestamp>.png. slot is 1-based.
func (w *Writer) SaveChart(c *chart.Chart, slot int) (string, error) {
	if err := w.ensure(); err != nil {
		return "", err
	}
	path := w.unique(fmt.Sprintf("%s_G%d_%s.png", chart.SanitizeTitle(c.Title), slot, w.timestamp()))
	if err := c.Save(path, chart.DefaultWidth, chart.DefaultHeight); err != nil {
		return "", err
	}
	return path, nil
}
