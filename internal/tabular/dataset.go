// Package tabular holds CSV tables in memory and classifies their columns
// for charting.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

// NumericThreshold is the share of parseable cells above which a column is
// treated as numeric.
const NumericThreshold = 0.8

// PreviewRows is the number of rows shown in table previews.
const PreviewRows = 100

var (
	ErrEmpty         = errors.New("csv has no header row")
	ErrUnknownColumn = errors.New("unknown column")
)

// Dataset is a table loaded from CSV. Every row has len(Columns) cells.
type Dataset struct {
	Path    string
	Columns []string
	Rows    [][]string
	index   map[string]int
}

// Count is one distinct value and the number of times it occurs.
type Count struct {
	Value string
	N     int
}

// Load reads a CSV file whose first row is the header.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	ds, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	ds.Path = path
	return ds, nil
}

// Read parses CSV from r. Short rows are padded and long rows truncated to
// the header width.
func Read(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	ds := &Dataset{index: make(map[string]int)}
	seen := make(map[string]int)
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n := seen[name]; n > 0 {
			base := name
			for {
				name = fmt.Sprintf("%s.%d", base, n)
				n++
				if seen[name] == 0 {
					break
				}
			}
			seen[base] = n
		}
		seen[name]++
		ds.index[name] = i
		ds.Columns = append(ds.Columns, name)
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(ds.Rows)+2, err)
		}
		row := make([]string, len(ds.Columns))
		copy(row, rec)
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

// Len returns the number of data rows.
func (d *Dataset) Len() int {
	return len(d.Rows)
}

// Column returns the raw cells of a column.
func (d *Dataset) Column(name string) ([]string, error) {
	i, ok := d.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	out := make([]string, len(d.Rows))
	for r, row := range d.Rows {
		out[r] = row[i]
	}
	return out, nil
}

// Preview returns at most n rows.
func (d *Dataset) Preview(n int) [][]string {
	if n > len(d.Rows) {
		n = len(d.Rows)
	}
	return d.Rows[:n]
}

// Numeric parses a column as numbers. Unparseable cells become NaN. ok is
// true when strictly more than NumericThreshold of the cells parse.
func (d *Dataset) Numeric(name string) (values []float64, ok bool, err error) {
	cells, err := d.Column(name)
	if err != nil {
		return nil, false, err
	}
	values = make([]float64, len(cells))
	parsed := 0
	for i, c := range cells {
		v, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
		if err != nil || math.IsNaN(v) {
			values[i] = math.NaN()
			continue
		}
		values[i] = v
		parsed++
	}
	if len(cells) == 0 {
		return values, false, nil
	}
	return values, float64(parsed)/float64(len(cells)) > NumericThreshold, nil
}

// ValueCounts counts distinct non-empty values, most frequent first. Ties
// keep the order of first appearance.
func (d *Dataset) ValueCounts(name string) ([]Count, error) {
	cells, err := d.Column(name)
	if err != nil {
		return nil, err
	}
	pos := make(map[string]int)
	var counts []Count
	for _, c := range cells {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if i, ok := pos[c]; ok {
			counts[i].N++
			continue
		}
		pos[c] = len(counts)
		counts = append(counts, Count{Value: c, N: 1})
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].N > counts[j].N })
	return counts, nil
}
