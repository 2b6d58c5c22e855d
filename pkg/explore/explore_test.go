package explore

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cnoret/retail-data-analysis/pkg/data"
	"github.com/cnoret/retail-data-analysis/pkg/failure"
)

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "stores.csv")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestOverview(t *testing.T) {
	p := writeCSV(t, "Store,Type,Size\n1,A,151315\n2,,202307\n3,B,NA\n4,A,1\n5,C,2\n6,A,3\n")

	ov, err := Overview(data.StoresSchema, p)
	require.NoError(t, err)
	assert.Equal(t, 6, ov.Rows)
	assert.Equal(t, 3, ov.Columns)
	assert.Equal(t, []string{"Store", "Type", "Size"}, ov.Headers)
	require.Len(t, ov.Head, HeadRows)
	assert.Equal(t, "1", ov.Head[0][0])

	missing := map[string]int{}
	for _, m := range ov.Missing {
		missing[m.Column] = m.Count
	}
	assert.Equal(t, map[string]int{"Store": 0, "Type": 1, "Size": 1}, missing)
}

func TestOverviewFailures(t *testing.T) {
	_, err := Overview(data.StoresSchema, filepath.Join(t.TempDir(), "nope.csv"))
	assert.True(t, failure.Is(err, failure.NotFound))

	_, err = Overview(data.StoresSchema, writeCSV(t, ""))
	assert.True(t, failure.Is(err, failure.Empty))

	_, err = Overview(data.StoresSchema, writeCSV(t, "Store,Size\n1,2\n"))
	assert.True(t, failure.Is(err, failure.SchemaViolation))
	assert.Contains(t, err.Error(), "Type")
}

func mergedRows() []data.MergedRecord {
	d := time.Date(2010, 2, 5, 0, 0, 0, 0, time.UTC)
	feat := func(temp float64) *data.FeatureRecord {
		return &data.FeatureRecord{Store: 1, Date: d, Temperature: temp, FuelPrice: 2.5, CPI: 211, Unemployment: 8}
	}
	return []data.MergedRecord{
		{Sales: data.SalesRecord{Store: 1, Dept: 1, Date: d, WeeklySales: 100}, Features: feat(40), Store: &data.StoreRecord{Store: 1, Type: "A", Size: 10}},
		{Sales: data.SalesRecord{Store: 1, Dept: 2, Date: d, WeeklySales: 200}, Features: feat(50), Store: &data.StoreRecord{Store: 1, Type: "A", Size: 10}},
		{Sales: data.SalesRecord{Store: 2, Dept: 1, Date: d.AddDate(0, 0, 7), WeeklySales: 300}, Features: feat(60), Store: &data.StoreRecord{Store: 2, Type: "B", Size: 20}},
		{Sales: data.SalesRecord{Store: 3, Dept: 1, Date: d.AddDate(0, 0, 14), WeeklySales: 50}},
	}
}

func TestAggregate(t *testing.T) {
	v, err := Aggregate(mergedRows(), 0)
	require.NoError(t, err)

	assert.Equal(t, 4, v.Rows)
	require.Len(t, v.Histogram, HistogramBins)
	total := 0
	for _, b := range v.Histogram {
		total += b.Count
	}
	assert.Equal(t, 4, total)

	assert.Equal(t, []StoreTotal{{1, 300}, {2, 300}, {3, 50}}, v.StoreTotals)
	assert.Equal(t, []StoreTotal{{1, 300}, {2, 300}, {3, 50}}, v.StoreTotalsSorted)

	// Temperature rises with Weekly_Sales over the rows that have it.
	assert.InDelta(t, 1.0, float64(v.Correlation.Values[3][5]), 1e-12)
	// Fuel_Price is constant.
	assert.True(t, math.IsNaN(float64(v.Correlation.Values[3][6])))

	body, err := json.Marshal(v.Correlation)
	require.NoError(t, err)
	assert.Contains(t, string(body), "null")
}

func TestAggregateEmpty(t *testing.T) {
	_, err := Aggregate(nil, 10)
	assert.True(t, failure.Is(err, failure.Empty))
}

func TestSortedTotals(t *testing.T) {
	in := []StoreTotal{{1, 5}, {2, 9}, {3, 7}}
	assert.Equal(t, []StoreTotal{{2, 9}, {3, 7}, {1, 5}}, SortedTotals(in))
	assert.Equal(t, 1, in[0].Store, "input is not reordered")
}

func TestRenderCharts(t *testing.T) {
	png := []byte("\x89PNG")

	var buf bytes.Buffer
	require.NoError(t, RenderSalesHistogram(&buf, []float64{1, 2, 2, 3, math.NaN()}, 5))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), png))

	buf.Reset()
	require.NoError(t, RenderStoreTotals(&buf, []StoreTotal{{1, 10}, {2, 20}}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), png))

	assert.True(t, failure.Is(RenderSalesHistogram(&buf, nil, 5), failure.Empty))
	assert.True(t, failure.Is(RenderStoreTotals(&buf, nil), failure.Empty))
}
