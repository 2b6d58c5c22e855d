package dataprep

import (
	"sort"

	"github.com/cnoret/retail-data-analysis/pkg/failure"
)

// LabelEncoder maps category labels to dense integer codes.
// Codes follow the sorted order of the labels seen at fit time, so the
// mapping is a bijection onto 0..k-1.
type LabelEncoder struct {
	classes []string
	codes   map[string]int
	fit     bool
}

// NewLabelEncoder returns an encoder that still needs Fit.
func NewLabelEncoder() *LabelEncoder { return &LabelEncoder{} }

// Fit derives the mapping from the distinct labels in data.
func (e *LabelEncoder) Fit(data []string) error {
	unique := map[string]struct{}{}
	for _, v := range data {
		unique[v] = struct{}{}
	}
	if len(unique) == 0 {
		return failure.Newf(failure.SchemaViolation, "encode", "no category labels to fit")
	}
	e.classes = make([]string, 0, len(unique))
	for v := range unique {
		e.classes = append(e.classes, v)
	}
	sort.Strings(e.classes)
	e.codes = make(map[string]int, len(e.classes))
	for i, v := range e.classes {
		e.codes[v] = i
	}
	e.fit = true
	return nil
}

// Encode returns the code of a label. Labels not seen at fit time are a
// ParseFailure; the encoder never assigns new codes.
func (e *LabelEncoder) Encode(label string) (int, error) {
	if !e.fit {
		return 0, failure.Newf(failure.ModelNotFit, "encode", "label encoder has not been fit")
	}
	code, ok := e.codes[label]
	if !ok {
		return 0, failure.Newf(failure.ParseFailure, "encode", "unknown category %q (known: %v)", label, e.classes)
	}
	return code, nil
}

// Transform encodes every label in data.
func (e *LabelEncoder) Transform(data []string) ([]int, error) {
	out := make([]int, len(data))
	for i, v := range data {
		c, err := e.Encode(v)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// Classes returns the labels in code order.
func (e *LabelEncoder) Classes() []string {
	return append([]string(nil), e.classes...)
}
