// Package explore computes the descriptive views of the input and merged
// datasets: table overviews, correlation and distribution aggregates, and
// their charts.
package explore

import (
	"math"

	"github.com/go-gota/gota/dataframe"

	"github.com/cnoret/retail-data-analysis/pkg/data"
	"github.com/cnoret/retail-data-analysis/pkg/dataprep"
	"github.com/cnoret/retail-data-analysis/pkg/failure"
)

// HeadRows is the number of leading rows an overview shows.
const HeadRows = 5

// missingValues are the cells gota should read as NaN, matching data.IsMissing.
var missingValues = []string{"", "NA", "NaN", "nan"}

// TableOverview summarizes one dataset.
type TableOverview struct {
	Name     string                   `json:"name"`
	Rows     int                      `json:"rows"`
	Columns  int                      `json:"columns"`
	Headers  []string                 `json:"headers"`
	Head     [][]string               `json:"head"`
	Missing  []dataprep.ColumnMissing `json:"missing"`
	Describe [][]string               `json:"describe"`
}

// Overview reads the file at path, checks it against schema and summarizes it.
// A missing file, an empty file and an absent column keep their failure kinds.
func Overview(schema data.Schema, path string) (*TableOverview, error) {
	t, err := data.ReadTable(path)
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(t); err != nil {
		return nil, err
	}
	return OverviewTable(t)
}

// OverviewTable summarizes an already loaded table.
func OverviewTable(t *data.Table) (*TableOverview, error) {
	records := make([][]string, 0, len(t.Rows)+1)
	records = append(records, t.Headers)
	records = append(records, t.Rows...)

	df := dataframe.LoadRecords(records,
		dataframe.DetectTypes(true),
		dataframe.NaNValues(missingValues),
	)
	if df.Err != nil {
		return nil, failure.New(failure.SchemaViolation, "overview "+t.Name, df.Err)
	}

	ov := &TableOverview{
		Name:    t.Name,
		Rows:    df.Nrow(),
		Columns: df.Ncol(),
		Headers: df.Names(),
	}

	n := min(HeadRows, df.Nrow())
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	head := df.Subset(idx)
	if head.Err != nil {
		return nil, failure.New(failure.SchemaViolation, "overview "+t.Name, head.Err)
	}
	// Records includes the header as its first row.
	ov.Head = head.Records()[1:]

	for _, name := range df.Names() {
		count := 0
		for _, nan := range df.Col(name).IsNaN() {
			if nan {
				count++
			}
		}
		ov.Missing = append(ov.Missing, dataprep.ColumnMissing{
			Column:  name,
			Count:   count,
			Percent: percent(count, df.Nrow()),
		})
	}

	desc := df.Describe()
	if desc.Err == nil {
		ov.Describe = desc.Records()
	}
	return ov, nil
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)/float64(total)*10000) / 100
}
