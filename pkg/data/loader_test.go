package data

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cnoret/retail-data-analysis/pkg/failure"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestReadTableFailures(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		path    string
		kind    failure.Kind
		message string
	}{
		{
			name: "missing file",
			path: filepath.Join(dir, "nope.csv"),
			kind: failure.NotFound,
		},
		{
			name:    "zero bytes",
			path:    writeFile(t, dir, "empty.csv", ""),
			kind:    failure.Empty,
			message: "no columns to parse from file",
		},
		{
			name: "header only",
			path: writeFile(t, dir, "header.csv", "Store,Type,Size\n"),
			kind: failure.Empty,
		},
		{
			name: "ragged rows",
			path: writeFile(t, dir, "ragged.csv", "Store,Type,Size\n1,A\n"),
			kind: failure.SchemaViolation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTable(tt.path)
			require.Error(t, err)
			assert.Equal(t, tt.kind, failure.KindOf(err))
			if tt.message != "" {
				assert.Contains(t, err.Error(), tt.message)
			}
		})
	}
}

func TestReadTableKeepsOriginalDiagnostic(t *testing.T) {
	_, err := ReadTable(filepath.Join(t.TempDir(), "stores.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such file or directory")
	assert.True(t, strings.HasPrefix(err.Error(), "read stores: "))
}

func TestColumnSchemaViolation(t *testing.T) {
	tbl, err := ReadTableFrom("stores", strings.NewReader("Store,Kind\n1,A\n"))
	require.NoError(t, err)

	_, err = tbl.Column("Type")
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.SchemaViolation))
	assert.Contains(t, err.Error(), `"Type"`)

	_, err = LoadStores(tbl)
	assert.True(t, failure.Is(err, failure.SchemaViolation))
}

func TestLoadFeaturesAbsentValues(t *testing.T) {
	csvData := `Store,Date,Temperature,Fuel_Price,MarkDown1,MarkDown2,MarkDown3,MarkDown4,MarkDown5,CPI,Unemployment,IsHoliday
1,05/02/2010,42.31,2.572,NA,NA,NA,NA,NA,211.0963582,8.106,FALSE
1,12/02/2010,38.51,2.548,10.5,,NA,NA,NA,NA,NA,TRUE`

	tbl, err := ReadTableFrom("features", strings.NewReader(csvData))
	require.NoError(t, err)
	rows, err := LoadFeatures(tbl)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "05/02/2010", rows[0].RawDate)
	assert.True(t, math.IsNaN(rows[0].MarkDown[0]))
	assert.InDelta(t, 211.0963582, rows[0].CPI, 1e-9)
	assert.False(t, rows[0].IsHoliday)

	assert.Equal(t, 10.5, rows[1].MarkDown[0])
	assert.True(t, math.IsNaN(rows[1].MarkDown[1]))
	assert.True(t, math.IsNaN(rows[1].CPI))
	assert.True(t, rows[1].IsHoliday)
}

func TestLoadSalesParseFailure(t *testing.T) {
	csvData := "Store,Dept,Date,Weekly_Sales,IsHoliday\n1,1,05/02/2010,abc,FALSE\n"
	tbl, err := ReadTableFrom("sales", strings.NewReader(csvData))
	require.NoError(t, err)

	_, err = LoadSales(tbl)
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.ParseFailure))
	assert.Contains(t, err.Error(), `row 1 column "Weekly_Sales"`)
}

func TestLoadRejectsInfinity(t *testing.T) {
	tests := []struct {
		name   string
		table  string
		csv    string
		load   func(*Table) error
		column string
	}{
		{
			name:  "sales",
			table: "sales",
			csv:   "Store,Dept,Date,Weekly_Sales,IsHoliday\n1,1,05/02/2010,1.5,FALSE\n1,1,12/02/2010,Inf,FALSE\n",
			load: func(t *Table) error {
				_, err := LoadSales(t)
				return err
			},
			column: `row 2 column "Weekly_Sales"`,
		},
		{
			name:  "features",
			table: "features",
			csv: "Store,Date,Temperature,Fuel_Price,MarkDown1,MarkDown2,MarkDown3,MarkDown4,MarkDown5,CPI,Unemployment,IsHoliday\n" +
				"1,05/02/2010,42.31,2.572,NA,NA,NA,NA,NA,-Inf,8.106,FALSE\n",
			load: func(t *Table) error {
				_, err := LoadFeatures(t)
				return err
			},
			column: `row 1 column "CPI"`,
		},
		{
			name:  "merged",
			table: "merged",
			csv: strings.Join(MergedSchema.Columns, ",") + "\n" +
				"1,1,2010-02-05,+Inf,False,42.31,2.572,0,0,0,0,0,211.1,8.1,False,A,151315\n",
			load: func(t *Table) error {
				_, err := LoadMergedTable(t)
				return err
			},
			column: `row 1 column "Weekly_Sales"`,
		},
		{
			name:  "integer",
			table: "stores",
			csv:   "Store,Type,Size\n1,A,Inf\n",
			load: func(t *Table) error {
				_, err := LoadStores(t)
				return err
			},
			column: `row 1 column "Size"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := ReadTableFrom(tt.table, strings.NewReader(tt.csv))
			require.NoError(t, err)
			err = tt.load(tbl)
			require.Error(t, err)
			assert.True(t, failure.Is(err, failure.ParseFailure))
			assert.Contains(t, err.Error(), tt.column)
		})
	}
}

func TestWriteMergedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "merged_retail_data.csv")
	date := time.Date(2010, 2, 5, 0, 0, 0, 0, time.UTC)

	rows := []MergedRecord{
		{
			Sales: SalesRecord{Store: 1, Dept: 1, Date: date, WeeklySales: 24924.5, IsHoliday: false},
			Features: &FeatureRecord{
				Store: 1, Date: date, Temperature: 42.31, FuelPrice: 2.572,
				CPI: 211.0963582, Unemployment: math.NaN(), IsHoliday: false,
			},
			Store: &StoreRecord{Store: 1, Type: "A", Size: 151315},
		},
		{
			Sales: SalesRecord{Store: 99, Dept: 3, Date: date, WeeklySales: 10, IsHoliday: true},
		},
	}
	require.NoError(t, WriteMerged(path, rows))

	got, err := LoadMerged(path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, date, got[0].Sales.Date)
	require.NotNil(t, got[0].Features)
	assert.Equal(t, 2.572, got[0].Features.FuelPrice)
	assert.True(t, math.IsNaN(got[0].Features.Unemployment))
	require.NotNil(t, got[0].Store)
	assert.Equal(t, "A", got[0].Store.Type)
	assert.Equal(t, 151315, got[0].Store.Size)

	assert.Nil(t, got[1].Features)
	assert.Nil(t, got[1].Store)
	assert.True(t, got[1].Sales.IsHoliday)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must not be left behind")
}

func TestWriteMergedFailureKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "merged.csv")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0o644))

	// A regular file where the target directory should be makes the write fail.
	blocked := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocked, nil, 0o644))
	err := WriteMerged(filepath.Join(blocked, "merged.csv"), nil)
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.PersistenceFailure))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(b))
}
