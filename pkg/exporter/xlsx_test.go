package exporter

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/cnoret/retail-data-analysis/pkg/data"
)

func TestWriteMergedXLSX(t *testing.T) {
	d := time.Date(2010, 2, 5, 0, 0, 0, 0, time.UTC)
	rows := []data.MergedRecord{
		{
			Sales:    data.SalesRecord{Store: 1, Dept: 1, Date: d, WeeklySales: 24924.5},
			Features: &data.FeatureRecord{Store: 1, Date: d, Temperature: 42.31, FuelPrice: 2.572, CPI: math.NaN(), Unemployment: 8.106},
			Store:    &data.StoreRecord{Store: 1, Type: "A", Size: 151315},
		},
		{Sales: data.SalesRecord{Store: 9, Dept: 3, Date: d, WeeklySales: 10}},
		{Sales: data.SalesRecord{Store: 9, Dept: 4, Date: d, WeeklySales: 11}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteMergedXLSX(&buf, rows, 2))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, got, 3, "header plus the first two rows")
	assert.Equal(t, data.MergedSchema.Columns, got[0])
	assert.Equal(t, "2010-02-05", got[1][2])
	assert.Equal(t, "A", got[1][15])

	cpi, err := f.GetCellValue(SheetName, "M2")
	require.NoError(t, err)
	assert.Empty(t, cpi)
	assert.Equal(t, "9", got[2][0])
}
