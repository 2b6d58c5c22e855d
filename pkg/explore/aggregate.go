package explore

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/cnoret/retail-data-analysis/pkg/data"
	"github.com/cnoret/retail-data-analysis/pkg/dataprep"
	"github.com/cnoret/retail-data-analysis/pkg/failure"
	"github.com/cnoret/retail-data-analysis/pkg/stats"
)

// HistogramBins is the number of weekly-sales bins.
const HistogramBins = 50

// Value is a float that encodes NaN as JSON null.
type Value float64

func (v Value) MarshalJSON() ([]byte, error) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// CorrelationMatrix holds pairwise Pearson coefficients of Columns.
type CorrelationMatrix struct {
	Columns []string  `json:"columns"`
	Values  [][]Value `json:"values"`
}

// StoreTotal is the summed weekly sales of one store.
type StoreTotal struct {
	Store int     `json:"store"`
	Total float64 `json:"total"`
}

// Visualization groups the aggregates behind the charts.
type Visualization struct {
	Rows              int               `json:"rows"`
	Correlation       CorrelationMatrix `json:"correlation"`
	Histogram         []stats.Bin       `json:"histogram"`
	StoreTotals       []StoreTotal      `json:"store_totals"`
	StoreTotalsSorted []StoreTotal      `json:"store_totals_sorted"`
}

// correlationColumns are the merged columns after encoding Type, mapping the
// holiday flags to 0/1 and Date to a Unix timestamp.
var correlationColumns = []string{
	data.ColStore, data.ColDept, data.ColDate, data.ColWeeklySales, data.ColIsHolidaySales,
	data.ColTemperature, data.ColFuelPrice,
	data.MarkDownColumns[0], data.MarkDownColumns[1], data.MarkDownColumns[2],
	data.MarkDownColumns[3], data.MarkDownColumns[4],
	data.ColCPI, data.ColUnemployment, data.ColIsHolidayFeatures, data.ColType, data.ColSize,
}

// Aggregate computes the correlation matrix, the weekly-sales histogram and
// the per-store totals of the merged rows.
func Aggregate(rows []data.MergedRecord, bins int) (*Visualization, error) {
	if len(rows) == 0 {
		return nil, failure.Newf(failure.Empty, "visualization", "merged dataset has no rows")
	}
	if bins <= 0 {
		bins = HistogramBins
	}

	cols, err := numericColumns(rows)
	if err != nil {
		return nil, err
	}
	v := &Visualization{Rows: len(rows)}
	v.Correlation = correlate(cols)
	v.Histogram = stats.Histogram(cols[3], bins)
	v.StoreTotals = StoreTotals(rows)
	v.StoreTotalsSorted = SortedTotals(v.StoreTotals)
	return v, nil
}

// numericColumns lays the merged rows out column-wise in correlationColumns
// order. Absent joined fields are NaN.
func numericColumns(rows []data.MergedRecord) ([][]float64, error) {
	enc := dataprep.NewLabelEncoder()
	var labels []string
	for _, m := range rows {
		if m.Store != nil {
			labels = append(labels, m.Store.Type)
		}
	}
	if len(labels) > 0 {
		if err := enc.Fit(labels); err != nil {
			return nil, err
		}
	}

	cols := make([][]float64, len(correlationColumns))
	for j := range cols {
		cols[j] = make([]float64, len(rows))
	}
	nan := math.NaN()
	for i, m := range rows {
		s := m.Sales
		cols[0][i] = float64(s.Store)
		cols[1][i] = float64(s.Dept)
		cols[2][i] = float64(s.Date.Unix())
		cols[3][i] = s.WeeklySales
		cols[4][i] = flag(s.IsHoliday)
		for j := 5; j < len(cols); j++ {
			cols[j][i] = nan
		}
		if f := m.Features; f != nil {
			cols[5][i] = f.Temperature
			cols[6][i] = f.FuelPrice
			for k, md := range f.MarkDown {
				cols[7+k][i] = md
			}
			cols[12][i] = f.CPI
			cols[13][i] = f.Unemployment
			cols[14][i] = flag(f.IsHoliday)
		}
		if st := m.Store; st != nil {
			code, err := enc.Encode(st.Type)
			if err != nil {
				return nil, err
			}
			cols[15][i] = float64(code)
			cols[16][i] = float64(st.Size)
		}
	}
	return cols, nil
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func correlate(cols [][]float64) CorrelationMatrix {
	m := CorrelationMatrix{
		Columns: correlationColumns,
		Values:  make([][]Value, len(cols)),
	}
	for i := range cols {
		m.Values[i] = make([]Value, len(cols))
	}
	for i := range cols {
		for j := i; j < len(cols); j++ {
			r := Value(stats.Correlation(cols[i], cols[j]))
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m
}

// StoreTotals sums weekly sales per store, in ascending store order.
func StoreTotals(rows []data.MergedRecord) []StoreTotal {
	sums := map[int]float64{}
	for _, m := range rows {
		sums[m.Sales.Store] += m.Sales.WeeklySales
	}
	out := make([]StoreTotal, 0, len(sums))
	for s, total := range sums {
		out = append(out, StoreTotal{Store: s, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Store < out[j].Store })
	return out
}

// SortedTotals returns a copy of totals ordered by descending total.
func SortedTotals(totals []StoreTotal) []StoreTotal {
	out := append([]StoreTotal(nil), totals...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out
}
