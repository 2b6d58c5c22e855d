package pipeline

import (
	"context"

	"github.com/cnoret/retail-data-analysis/pkg/data"
	"github.com/cnoret/retail-data-analysis/pkg/dataprep"
	"github.com/cnoret/retail-data-analysis/pkg/explore"
	"github.com/cnoret/retail-data-analysis/pkg/failure"
)

// ProcessingResult is what the processing view shows. Merge is set whenever
// the merge ran, even when it failed the integrity check.
type ProcessingResult struct {
	RunID      string                `json:"run_id"`
	Clean      *dataprep.CleanReport `json:"clean,omitempty"`
	Merge      *dataprep.MergeReport `json:"merge,omitempty"`
	Headers    []string              `json:"headers"`
	Head       [][]string            `json:"head"`
	MergedPath string                `json:"merged_path"`
	Persisted  bool                  `json:"persisted"`
}

// RunProcessing loads the three inputs, cleans them, merges them and writes
// the merged dataset. The merged file is replaced only after every earlier
// stage succeeded.
func (r *Runner) RunProcessing(ctx context.Context) (res *ProcessingResult, err error) {
	rn := r.begin("processing")
	defer func() { r.finish(ctx, rn, err) }()

	res = &ProcessingResult{RunID: rn.id, MergedPath: r.MergedPath, Headers: data.MergedSchema.Columns}
	var (
		src     *data.Sources
		cleaned *dataprep.Cleaned
		merged  []data.MergedRecord
	)

	p := r.pipeline(rn,
		Stage{Name: "load", Run: func(context.Context) error {
			var err error
			src, err = data.LoadSources(r.Sources)
			if err == nil {
				rn.log.Info("inputs loaded",
					"stores", len(src.Stores), "sales", len(src.Sales), "features", len(src.Features))
			}
			return err
		}},
		Stage{Name: "clean", Run: func(context.Context) error {
			var err error
			cleaned, res.Clean, err = dataprep.Clean(src, r.DateLayout)
			return err
		}},
		Stage{Name: "merge", Run: func(context.Context) error {
			var err error
			merged, res.Merge, err = dataprep.Merge(cleaned)
			if res.Merge != nil {
				rn.log.Info("merge report",
					"sales_rows", res.Merge.SalesRows, "merged_rows", res.Merge.MergedRows,
					"row_drift", res.Merge.RowDrift, "duplicates", res.Merge.Duplicates)
			}
			return err
		}},
		Stage{Name: "persist", Run: func(context.Context) error {
			if err := data.WriteMerged(r.MergedPath, merged); err != nil {
				return err
			}
			res.Persisted = true
			if r.Metrics != nil {
				r.Metrics.MergedRows.Set(float64(len(merged)))
			}
			return nil
		}},
	)
	if err := p.Run(ctx); err != nil {
		if failure.Is(err, failure.JoinIntegrityViolation) {
			res.Head = head(merged)
			return res, err
		}
		return nil, err
	}
	res.Head = head(merged)
	return res, nil
}

func head(rows []data.MergedRecord) [][]string {
	n := min(explore.HeadRows, len(rows))
	out := make([][]string, n)
	for i := range n {
		out[i] = data.MergedRow(rows[i])
	}
	return out
}
