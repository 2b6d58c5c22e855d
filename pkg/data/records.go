package data

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cnoret/retail-data-analysis/pkg/failure"
)

// MergedDateLayout is the date format of the merged dataset.
const MergedDateLayout = "2006-01-02"

// StoreRecord is one row of stores.csv.
type StoreRecord struct {
	Store int
	Type  string
	Size  int
}

// FeatureRecord is one row of features.csv. Absent floats are NaN.
// Date is zero until the cleaner parses RawDate.
type FeatureRecord struct {
	Store        int
	RawDate      string
	Date         time.Time
	Temperature  float64
	FuelPrice    float64
	MarkDown     [5]float64
	CPI          float64
	Unemployment float64
	IsHoliday    bool
}

// SalesRecord is one row of sales.csv.
type SalesRecord struct {
	Store       int
	Dept        int
	RawDate     string
	Date        time.Time
	WeeklySales float64
	IsHoliday   bool
}

// MergedRecord is a sales row with its matched features and store.
// Features or Store is nil when the join found no match.
type MergedRecord struct {
	Sales    SalesRecord
	Features *FeatureRecord
	Store    *StoreRecord
}

// Sources holds the three raw input tables as typed records.
type Sources struct {
	Stores   []StoreRecord
	Sales    []SalesRecord
	Features []FeatureRecord

	// Tables are kept for missing-value reporting on the raw cells.
	StoresTable   *Table
	SalesTable    *Table
	FeaturesTable *Table
}

// Paths names the three input files.
type Paths struct {
	Stores   string
	Sales    string
	Features string
}

// LoadSources reads and types the three inputs, stopping at the first failure.
func LoadSources(p Paths) (*Sources, error) {
	st, err := ReadTable(p.Stores)
	if err != nil {
		return nil, err
	}
	sa, err := ReadTable(p.Sales)
	if err != nil {
		return nil, err
	}
	fe, err := ReadTable(p.Features)
	if err != nil {
		return nil, err
	}

	src := &Sources{StoresTable: st, SalesTable: sa, FeaturesTable: fe}
	if src.Stores, err = LoadStores(st); err != nil {
		return nil, err
	}
	if src.Sales, err = LoadSales(sa); err != nil {
		return nil, err
	}
	if src.Features, err = LoadFeatures(fe); err != nil {
		return nil, err
	}
	return src, nil
}

// rowReader converts raw cells of one table, remembering the first error.
type rowReader struct {
	t   *Table
	idx map[string]int
	row int
	err error
}

func newRowReader(t *Table, s Schema) (*rowReader, error) {
	if err := s.Validate(t); err != nil {
		return nil, err
	}
	rr := &rowReader{t: t, idx: make(map[string]int, len(s.Columns))}
	for _, c := range s.Columns {
		rr.idx[c], _ = t.Column(c)
	}
	return rr, nil
}

func (r *rowReader) cell(col string) string {
	return strings.TrimSpace(r.t.Rows[r.row][r.idx[col]])
}

func (r *rowReader) fail(col, format string, args ...any) {
	if r.err != nil {
		return
	}
	args = append([]any{r.row + 1, col}, args...)
	r.err = failure.Newf(failure.ParseFailure, "parse "+r.t.Name, "row %d column %q: "+format, args...)
}

func (r *rowReader) int(col string) int {
	v := r.cell(col)
	n, err := strconv.Atoi(v)
	if err != nil {
		// Integer columns written by float-producing tools come back as "1.0".
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil || math.IsInf(f, 0) || f != math.Trunc(f) {
			r.fail(col, "%v", err)
			return 0
		}
		n = int(f)
	}
	return n
}

// float parses a required float; absent and infinite values are an error.
func (r *rowReader) float(col string) float64 {
	v := r.cell(col)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || IsMissing(v) || math.IsInf(f, 0) {
		r.fail(col, "invalid number %q", v)
		return math.NaN()
	}
	return f
}

// optFloat parses a float that may be absent (NaN).
func (r *rowReader) optFloat(col string) float64 {
	v := r.cell(col)
	if IsMissing(v) {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(col, "%v", err)
		return math.NaN()
	}
	if math.IsInf(f, 0) {
		r.fail(col, "non-finite number %q", v)
		return math.NaN()
	}
	return f
}

func (r *rowReader) bool(col string) bool {
	v := r.cell(col)
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(col, "%v", err)
	}
	return b
}

// LoadStores types stores.csv.
func LoadStores(t *Table) ([]StoreRecord, error) {
	rr, err := newRowReader(t, StoresSchema)
	if err != nil {
		return nil, err
	}
	out := make([]StoreRecord, t.Len())
	for rr.row = range t.Rows {
		out[rr.row] = StoreRecord{
			Store: rr.int(ColStore),
			Type:  rr.cell(ColType),
			Size:  rr.int(ColSize),
		}
		if rr.err == nil && IsMissing(out[rr.row].Type) {
			rr.fail(ColType, "store type is absent")
		}
		if rr.err != nil {
			return nil, rr.err
		}
	}
	return out, nil
}

// LoadSales types sales.csv. Dates are left raw for the cleaner.
func LoadSales(t *Table) ([]SalesRecord, error) {
	rr, err := newRowReader(t, SalesSchema)
	if err != nil {
		return nil, err
	}
	out := make([]SalesRecord, t.Len())
	for rr.row = range t.Rows {
		out[rr.row] = SalesRecord{
			Store:       rr.int(ColStore),
			Dept:        rr.int(ColDept),
			RawDate:     rr.cell(ColDate),
			WeeklySales: rr.float(ColWeeklySales),
			IsHoliday:   rr.bool(ColIsHoliday),
		}
		if rr.err != nil {
			return nil, rr.err
		}
	}
	return out, nil
}

// LoadFeatures types features.csv. Dates are left raw for the cleaner.
func LoadFeatures(t *Table) ([]FeatureRecord, error) {
	rr, err := newRowReader(t, FeaturesSchema)
	if err != nil {
		return nil, err
	}
	out := make([]FeatureRecord, t.Len())
	for rr.row = range t.Rows {
		f := FeatureRecord{
			Store:        rr.int(ColStore),
			RawDate:      rr.cell(ColDate),
			Temperature:  rr.optFloat(ColTemperature),
			FuelPrice:    rr.optFloat(ColFuelPrice),
			CPI:          rr.optFloat(ColCPI),
			Unemployment: rr.optFloat(ColUnemployment),
			IsHoliday:    rr.bool(ColIsHoliday),
		}
		for i, c := range MarkDownColumns {
			f.MarkDown[i] = rr.optFloat(c)
		}
		if rr.err != nil {
			return nil, rr.err
		}
		out[rr.row] = f
	}
	return out, nil
}

// LoadMerged reads the canonical merged dataset written by WriteMerged.
func LoadMerged(path string) ([]MergedRecord, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	return LoadMergedTable(t)
}

// LoadMergedTable types an already read merged table.
func LoadMergedTable(t *Table) ([]MergedRecord, error) {
	rr, err := newRowReader(t, MergedSchema)
	if err != nil {
		return nil, err
	}
	out := make([]MergedRecord, t.Len())
	for rr.row = range t.Rows {
		raw := rr.cell(ColDate)
		date, derr := time.Parse(MergedDateLayout, raw)
		if derr != nil {
			rr.fail(ColDate, "%v", derr)
		}
		m := MergedRecord{Sales: SalesRecord{
			Store:       rr.int(ColStore),
			Dept:        rr.int(ColDept),
			RawDate:     raw,
			Date:        date,
			WeeklySales: rr.float(ColWeeklySales),
			IsHoliday:   rr.bool(ColIsHolidaySales),
		}}
		// IsHoliday_y is present in every feature row, so an empty cell means no match.
		if !IsMissing(rr.cell(ColIsHolidayFeatures)) {
			f := &FeatureRecord{
				Store:        m.Sales.Store,
				RawDate:      raw,
				Date:         date,
				Temperature:  rr.optFloat(ColTemperature),
				FuelPrice:    rr.optFloat(ColFuelPrice),
				CPI:          rr.optFloat(ColCPI),
				Unemployment: rr.optFloat(ColUnemployment),
				IsHoliday:    rr.bool(ColIsHolidayFeatures),
			}
			for i, c := range MarkDownColumns {
				f.MarkDown[i] = rr.optFloat(c)
			}
			m.Features = f
		}
		if !IsMissing(rr.cell(ColType)) {
			m.Store = &StoreRecord{Store: m.Sales.Store, Type: rr.cell(ColType), Size: rr.int(ColSize)}
		}
		if rr.err != nil {
			return nil, rr.err
		}
		out[rr.row] = m
	}
	return out, nil
}
