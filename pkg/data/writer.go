package data

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cnoret/retail-data-analysis/pkg/failure"
)

// FormatFloat renders a float cell; NaN becomes an empty cell.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// MergedRow renders one merged record in MergedSchema column order.
func MergedRow(m MergedRecord) []string {
	row := make([]string, 0, len(MergedSchema.Columns))
	row = append(row,
		strconv.Itoa(m.Sales.Store),
		strconv.Itoa(m.Sales.Dept),
		m.Sales.Date.Format(MergedDateLayout),
		FormatFloat(m.Sales.WeeklySales),
		formatBool(m.Sales.IsHoliday),
	)
	if f := m.Features; f != nil {
		row = append(row, FormatFloat(f.Temperature), FormatFloat(f.FuelPrice))
		for _, v := range f.MarkDown {
			row = append(row, FormatFloat(v))
		}
		row = append(row, FormatFloat(f.CPI), FormatFloat(f.Unemployment), formatBool(f.IsHoliday))
	} else {
		for range 2 + len(MarkDownColumns) + 3 {
			row = append(row, "")
		}
	}
	if s := m.Store; s != nil {
		row = append(row, s.Type, strconv.Itoa(s.Size))
	} else {
		row = append(row, "", "")
	}
	return row
}

// WriteMerged persists rows at path. The data is written to a temporary file in
// the same directory and renamed over path, so a failed write leaves any
// previous file untouched. Failures are PersistenceFailure.
func WriteMerged(path string, rows []MergedRecord) (err error) {
	const op = "write merged"
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return failure.New(failure.PersistenceFailure, op, err)
	}
	tmp, err := os.CreateTemp(dir, ".merged-*.csv")
	if err != nil {
		return failure.New(failure.PersistenceFailure, op, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	buf := bufio.NewWriter(tmp)
	w := csv.NewWriter(buf)
	if err := w.Write(MergedSchema.Columns); err != nil {
		return failure.New(failure.PersistenceFailure, op, err)
	}
	for i, m := range rows {
		if err := w.Write(MergedRow(m)); err != nil {
			return failure.New(failure.PersistenceFailure, op, fmt.Errorf("row %d: %w", i+1, err))
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return failure.New(failure.PersistenceFailure, op, err)
	}
	if err := buf.Flush(); err != nil {
		return failure.New(failure.PersistenceFailure, op, err)
	}
	if err := tmp.Sync(); err != nil {
		return failure.New(failure.PersistenceFailure, op, err)
	}
	if err := tmp.Close(); err != nil {
		return failure.New(failure.PersistenceFailure, op, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return failure.New(failure.PersistenceFailure, op, err)
	}
	return nil
}
