package dataprep

import (
	"time"

	"github.com/cnoret/retail-data-analysis/pkg/data"
	"github.com/cnoret/retail-data-analysis/pkg/failure"
)

// MergeReport describes the integrity of a merge.
type MergeReport struct {
	SalesRows  int             `json:"sales_rows"`
	MergedRows int             `json:"merged_rows"`
	RowDrift   int             `json:"row_drift"`
	Missing    []ColumnMissing `json:"missing"`
	Duplicates int             `json:"duplicates"`
}

type storeDate struct {
	store int
	date  time.Time
}

// Merge left-joins sales with features on (Store, Date) and the result with
// stores on Store. Duplicate keys on the right fan out like any left join;
// the resulting row drift is a JoinIntegrityViolation, returned together with
// the report so the caller can show it.
func Merge(c *Cleaned) ([]data.MergedRecord, *MergeReport, error) {
	features := make(map[storeDate][]int, len(c.Features))
	for i, f := range c.Features {
		k := storeDate{f.Store, f.Date}
		features[k] = append(features[k], i)
	}
	stores := make(map[int][]int, len(c.Stores))
	for i, s := range c.Stores {
		stores[s.Store] = append(stores[s.Store], i)
	}

	out := make([]data.MergedRecord, 0, len(c.Sales))
	for _, s := range c.Sales {
		var left []data.MergedRecord
		if idx := features[storeDate{s.Store, s.Date}]; len(idx) > 0 {
			for _, i := range idx {
				f := c.Features[i]
				left = append(left, data.MergedRecord{Sales: s, Features: &f})
			}
		} else {
			left = append(left, data.MergedRecord{Sales: s})
		}

		for _, m := range left {
			idx := stores[s.Store]
			if len(idx) == 0 {
				out = append(out, m)
				continue
			}
			for _, i := range idx {
				st := c.Stores[i]
				m.Store = &st
				out = append(out, m)
			}
		}
	}

	report := &MergeReport{
		SalesRows:  len(c.Sales),
		MergedRows: len(out),
		RowDrift:   len(out) - len(c.Sales),
	}
	cells := make([][]string, len(out))
	for i, m := range out {
		cells[i] = data.MergedRow(m)
	}
	report.Missing = MissingCounts(data.MergedSchema.Columns, cells)
	report.Duplicates = CountDuplicates(cells)

	if report.RowDrift != 0 {
		return out, report, failure.Newf(failure.JoinIntegrityViolation, "merge",
			"merged dataset has %d rows, sales has %d (drift %+d)", report.MergedRows, report.SalesRows, report.RowDrift)
	}
	return out, report, nil
}
