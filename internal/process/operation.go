// Package process applies the fixed set of grayscale image operations
// offered for conventional images.
package process

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Operation is one of the supported image operations.
type Operation int

const (
	Binarize Operation = iota
	Edges
	Blur
	Normalize
	Otsu
	Dilate
)

// All lists the operations in menu order.
var All = []Operation{Binarize, Edges, Blur, Normalize, Otsu, Dilate}

var ids = map[Operation]string{
	Binarize:  "binarize",
	Edges:     "edges",
	Blur:      "blur",
	Normalize: "normalize",
	Otsu:      "otsu",
	Dilate:    "dilate",
}

var labels = map[Operation]string{
	Binarize:  "Binarization",
	Edges:     "Edge detection",
	Blur:      "Gaussian filter",
	Normalize: "Normalization",
	Otsu:      "Otsu threshold",
	Dilate:    "Dilation",
}

// ID returns the canonical identifier.
func (o Operation) ID() string {
	if id, ok := ids[o]; ok {
		return id
	}
	return fmt.Sprintf("operation(%d)", int(o))
}

// Label returns the display name.
func (o Operation) Label() string {
	if l, ok := labels[o]; ok {
		return l
	}
	return o.ID()
}

func (o Operation) String() string {
	return o.ID()
}

// Labels returns the display names in menu order.
func Labels() []string {
	out := make([]string, len(All))
	for i, o := range All {
		out[i] = o.Label()
	}
	return out
}

// ParseOperation resolves a canonical identifier or display label. Case,
// accents and whitespace are ignored.
func ParseOperation(s string) (Operation, error) {
	key := fold(s)
	if key != "" {
		for _, o := range All {
			if key == fold(o.ID()) || key == fold(o.Label()) {
				return o, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOperation, s)
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, out)
}
