package dataprep

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/cnoret/retail-data-analysis/pkg/data"
	"github.com/cnoret/retail-data-analysis/pkg/failure"
)

// DefaultDateLayout is the day/month/year format of sales.csv and features.csv.
const DefaultDateLayout = "02/01/2006"

// ColumnMissing is the absent-value count of one column.
type ColumnMissing struct {
	Column  string  `json:"column"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// CleanReport describes what the cleaner saw and changed.
type CleanReport struct {
	// MissingBefore lists, per table, the columns with absent raw cells.
	MissingBefore map[string][]ColumnMissing `json:"missing_before"`
	// MarkDownFilled counts the zero-filled cells per markdown column.
	MarkDownFilled map[string]int `json:"markdown_filled"`
	// ForwardFilled counts the carried-forward cells for CPI and Unemployment.
	ForwardFilled map[string]int `json:"forward_filled"`
	// RemainingMissing lists the features columns still holding absent values.
	RemainingMissing []ColumnMissing `json:"remaining_missing"`
	// Duplicates counts fully duplicated raw rows per table.
	Duplicates map[string]int `json:"duplicates"`
}

// Cleaned holds the cleaned records. Dates are parsed, markdowns are total.
type Cleaned struct {
	Stores   []data.StoreRecord
	Sales    []data.SalesRecord
	Features []data.FeatureRecord
}

// Clean parses the date columns, zero-fills the markdown columns and forward
// fills CPI and Unemployment per store in date order. A date that does not
// match layout fails the whole step and nothing is returned.
func Clean(src *data.Sources, layout string) (*Cleaned, *CleanReport, error) {
	if layout == "" {
		layout = DefaultDateLayout
	}
	report := &CleanReport{
		MissingBefore:  make(map[string][]ColumnMissing, 3),
		MarkDownFilled: make(map[string]int, len(data.MarkDownColumns)),
		ForwardFilled:  make(map[string]int, 2),
		Duplicates:     make(map[string]int, 3),
	}
	for _, t := range []*data.Table{src.StoresTable, src.SalesTable, src.FeaturesTable} {
		if t == nil {
			continue
		}
		report.MissingBefore[t.Name] = MissingCounts(t.Headers, t.Rows)
		report.Duplicates[t.Name] = CountDuplicates(t.Rows)
	}

	out := &Cleaned{
		Stores:   append([]data.StoreRecord(nil), src.Stores...),
		Sales:    append([]data.SalesRecord(nil), src.Sales...),
		Features: append([]data.FeatureRecord(nil), src.Features...),
	}

	for i := range out.Sales {
		d, err := time.Parse(layout, out.Sales[i].RawDate)
		if err != nil {
			return nil, nil, failure.New(failure.ParseFailure, "convert dates", fmt.Errorf("sales row %d: %w", i+1, err))
		}
		out.Sales[i].Date = d
	}
	for i := range out.Features {
		d, err := time.Parse(layout, out.Features[i].RawDate)
		if err != nil {
			return nil, nil, failure.New(failure.ParseFailure, "convert dates", fmt.Errorf("features row %d: %w", i+1, err))
		}
		out.Features[i].Date = d
	}

	// Absent markdown means no promotion ran that week.
	for m, name := range data.MarkDownColumns {
		col := make([]float64, len(out.Features))
		for i := range out.Features {
			col[i] = out.Features[i].MarkDown[m]
		}
		report.MarkDownFilled[name] = ImputeConstant(col, 0)
		for i := range out.Features {
			out.Features[i].MarkDown[m] = col[i]
		}
	}

	cpi, unemp := forwardFillByStore(out.Features)
	report.ForwardFilled[data.ColCPI] = cpi
	report.ForwardFilled[data.ColUnemployment] = unemp

	report.RemainingMissing = remainingFeatureMissing(out.Features)
	return out, report, nil
}

// forwardFillByStore carries CPI and Unemployment forward within each store,
// visiting rows in ascending date order. Only values from strictly earlier
// dates are carried; rows sharing a date never fill each other.
func forwardFillByStore(rows []data.FeatureRecord) (cpiFilled, unempFilled int) {
	groups := make(map[int][]int)
	var stores []int
	for i, r := range rows {
		if _, ok := groups[r.Store]; !ok {
			stores = append(stores, r.Store)
		}
		groups[r.Store] = append(groups[r.Store], i)
	}

	for _, s := range stores {
		idx := groups[s]
		sort.SliceStable(idx, func(a, b int) bool { return rows[idx[a]].Date.Before(rows[idx[b]].Date) })
		sameDate := func(prev, cur int) bool { return rows[idx[prev]].Date.Equal(rows[idx[cur]].Date) }

		cpi := make([]float64, len(idx))
		unemp := make([]float64, len(idx))
		for k, i := range idx {
			cpi[k] = rows[i].CPI
			unemp[k] = rows[i].Unemployment
		}
		cpiFilled += ForwardFill(cpi, sameDate)
		unempFilled += ForwardFill(unemp, sameDate)
		for k, i := range idx {
			rows[i].CPI = cpi[k]
			rows[i].Unemployment = unemp[k]
		}
	}
	return cpiFilled, unempFilled
}

func remainingFeatureMissing(rows []data.FeatureRecord) []ColumnMissing {
	cols := map[string]func(data.FeatureRecord) float64{
		data.ColTemperature:  func(r data.FeatureRecord) float64 { return r.Temperature },
		data.ColFuelPrice:    func(r data.FeatureRecord) float64 { return r.FuelPrice },
		data.ColCPI:          func(r data.FeatureRecord) float64 { return r.CPI },
		data.ColUnemployment: func(r data.FeatureRecord) float64 { return r.Unemployment },
	}
	var out []ColumnMissing
	for _, name := range data.FeaturesSchema.Columns {
		get, ok := cols[name]
		if !ok {
			continue
		}
		n := 0
		for _, r := range rows {
			if math.IsNaN(get(r)) {
				n++
			}
		}
		if n > 0 {
			out = append(out, newColumnMissing(name, n, len(rows)))
		}
	}
	return out
}

// MissingCounts returns the columns of a raw table that hold absent cells.
func MissingCounts(headers []string, rows [][]string) []ColumnMissing {
	counts := make([]int, len(headers))
	for _, row := range rows {
		for j, v := range row {
			if j < len(counts) && data.IsMissing(v) {
				counts[j]++
			}
		}
	}
	var out []ColumnMissing
	for j, c := range counts {
		if c > 0 {
			out = append(out, newColumnMissing(headers[j], c, len(rows)))
		}
	}
	return out
}

func newColumnMissing(col string, n, total int) ColumnMissing {
	pct := 0.0
	if total > 0 {
		pct = math.Round(float64(n)/float64(total)*10000) / 100
	}
	return ColumnMissing{Column: col, Count: n, Percent: pct}
}

// CountDuplicates counts rows identical to an earlier row.
func CountDuplicates(rows [][]string) int {
	seen := make(map[string]struct{}, len(rows))
	dups := 0
	for _, row := range rows {
		key := strings.Join(row, "\x1f")
		if _, ok := seen[key]; ok {
			dups++
			continue
		}
		seen[key] = struct{}{}
	}
	return dups
}
