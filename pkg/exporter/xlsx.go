// Package exporter writes the merged dataset as a spreadsheet.
package exporter

import (
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/cnoret/retail-data-analysis/pkg/data"
	"github.com/cnoret/retail-data-analysis/pkg/failure"
)

// SheetName is the name of the single sheet written.
const SheetName = "merged"

// DefaultRows caps the exported rows when no limit is given.
const DefaultRows = 1000

// WriteMergedXLSX writes the header and the first limit rows to w.
func WriteMergedXLSX(w io.Writer, rows []data.MergedRecord, limit int) error {
	const op = "export xlsx"
	if limit <= 0 {
		limit = DefaultRows
	}
	rows = rows[:min(limit, len(rows))]

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return failure.New(failure.PersistenceFailure, op, err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return failure.New(failure.PersistenceFailure, op, err)
	}
	header := make([]interface{}, len(data.MergedSchema.Columns))
	for i, c := range data.MergedSchema.Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return failure.New(failure.PersistenceFailure, op, err)
	}
	for i, m := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return failure.New(failure.PersistenceFailure, op, err)
		}
		if err := sw.SetRow(cell, values(m)); err != nil {
			return failure.New(failure.PersistenceFailure, op, fmt.Errorf("row %d: %w", i+1, err))
		}
	}
	if err := sw.Flush(); err != nil {
		return failure.New(failure.PersistenceFailure, op, err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return failure.New(failure.PersistenceFailure, op, err)
	}
	return nil
}

// values lays a record out in MergedSchema order. Absent fields are empty cells.
func values(m data.MergedRecord) []interface{} {
	num := func(v float64) interface{} {
		if math.IsNaN(v) {
			return nil
		}
		return v
	}
	row := []interface{}{
		m.Sales.Store, m.Sales.Dept, m.Sales.Date.Format(data.MergedDateLayout),
		m.Sales.WeeklySales, m.Sales.IsHoliday,
	}
	if f := m.Features; f != nil {
		row = append(row, num(f.Temperature), num(f.FuelPrice))
		for _, v := range f.MarkDown {
			row = append(row, num(v))
		}
		row = append(row, num(f.CPI), num(f.Unemployment), f.IsHoliday)
	} else {
		row = append(row, make([]interface{}, 2+len(data.MarkDownColumns)+3)...)
	}
	if s := m.Store; s != nil {
		row = append(row, s.Type, s.Size)
	} else {
		row = append(row, nil, nil)
	}
	return row
}
