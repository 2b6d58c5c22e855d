package data

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cnoret/retail-data-analysis/pkg/failure"
)

// Table is a header-indexed CSV file held in memory as raw strings.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string
	index   map[string]int
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Column returns the index of a header. A missing header is a SchemaViolation.
func (t *Table) Column(name string) (int, error) {
	if i, ok := t.index[name]; ok {
		return i, nil
	}
	return -1, schemaError(t.Name, name)
}

// ReadTable reads a comma-delimited file with a header row.
// A missing file is NotFound, a file without data rows is Empty and a ragged
// or unparsable file is a SchemaViolation.
func ReadTable(path string) (*Table, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	file, err := os.Open(path)
	if err != nil {
		// An unreadable location is reported the same way as a missing one.
		return nil, failure.New(failure.NotFound, "read "+name, err)
	}
	defer file.Close()
	return ReadTableFrom(name, file)
}

// ReadTableFrom reads a table from r. name is used in diagnostics.
func ReadTableFrom(name string, r io.Reader) (*Table, error) {
	op := "read " + name
	reader := csv.NewReader(bufio.NewReader(r))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, failure.Newf(failure.Empty, op, "no columns to parse from file")
	}
	if err != nil {
		return nil, failure.New(failure.SchemaViolation, op, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t := &Table{Name: name, Headers: header, index: make(map[string]int, len(header))}
	for i, h := range header {
		t.index[strings.TrimSpace(h)] = i
	}

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, failure.New(failure.SchemaViolation, op, err)
		}
		t.Rows = append(t.Rows, rec)
	}
	if len(t.Rows) == 0 {
		return nil, failure.Newf(failure.Empty, op, "file has a header but no data rows")
	}
	return t, nil
}

// IsMissing reports whether a raw cell holds an absent value.
func IsMissing(v string) bool {
	switch strings.TrimSpace(v) {
	case "", "NA", "NaN", "nan":
		return true
	}
	return false
}
