package pipeline

import (
	"context"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/cnoret/retail-data-analysis/pkg/data"
	"github.com/cnoret/retail-data-analysis/pkg/explore"
	"github.com/cnoret/retail-data-analysis/pkg/exporter"
	"github.com/cnoret/retail-data-analysis/pkg/failure"
)

// ExplorationResult has one overview per dataset. A dataset that could not
// be read has its failure message instead.
type ExplorationResult struct {
	Tables []TableResult `json:"tables"`
}

// TableResult is the overview of one dataset or the reason it is missing.
type TableResult struct {
	Name      string                 `json:"name"`
	Overview  *explore.TableOverview `json:"overview,omitempty"`
	ErrorCode string                 `json:"error_code,omitempty"`
	Message   string                 `json:"message,omitempty"`
}

// RunExploration summarizes stores, sales, features and, when it exists, the
// merged dataset. Each table fails on its own.
func (r *Runner) RunExploration(ctx context.Context) (*ExplorationResult, error) {
	rn := r.begin("exploration")
	inputs := []struct {
		schema data.Schema
		path   string
	}{
		{data.StoresSchema, r.Sources.Stores},
		{data.SalesSchema, r.Sources.Sales},
		{data.FeaturesSchema, r.Sources.Features},
		{data.MergedSchema, r.MergedPath},
	}

	res := &ExplorationResult{Tables: make([]TableResult, len(inputs))}
	g, gctx := errgroup.WithContext(ctx)
	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tr := TableResult{Name: in.schema.Name}
			ov, err := explore.Overview(in.schema, in.path)
			if err != nil {
				tr.ErrorCode = failure.KindOf(err).String()
				tr.Message = err.Error()
				rn.log.Warn("overview failed", "table", in.schema.Name, "error", err.Error())
			} else {
				tr.Overview = ov
			}
			res.Tables[i] = tr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.finish(ctx, rn, err)
		return nil, err
	}
	r.finish(ctx, rn, nil)
	return res, nil
}

// loadMerged reads the persisted merged dataset.
func (r *Runner) loadMerged(rn *run) ([]data.MergedRecord, error) {
	rows, err := data.LoadMerged(r.MergedPath)
	if err != nil {
		return nil, err
	}
	rn.log.Info("merged dataset loaded", "rows", len(rows), "path", r.MergedPath)
	return rows, nil
}

// RunVisualization computes the chart aggregates of the merged dataset.
func (r *Runner) RunVisualization(ctx context.Context) (v *explore.Visualization, err error) {
	rn := r.begin("visualization")
	defer func() { r.finish(ctx, rn, err) }()

	var rows []data.MergedRecord
	err = r.pipeline(rn,
		Stage{Name: "load merged", Run: func(context.Context) error {
			var err error
			rows, err = r.loadMerged(rn)
			return err
		}},
		Stage{Name: "aggregate", Run: func(context.Context) error {
			var err error
			v, err = explore.Aggregate(rows, explore.HistogramBins)
			return err
		}},
	).Run(ctx)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// RenderChart writes the named chart of the merged dataset as PNG.
func (r *Runner) RenderChart(ctx context.Context, name string, w io.Writer) (err error) {
	rn := r.begin("chart")
	defer func() { r.finish(ctx, rn, err) }()

	switch name {
	case explore.ChartSalesHistogram, explore.ChartStoreTotals:
	default:
		return failure.Newf(failure.NotFound, "chart", "unknown chart %q", name)
	}
	rows, err := r.loadMerged(rn)
	if err != nil {
		return err
	}
	if name == explore.ChartStoreTotals {
		return explore.RenderStoreTotals(w, explore.SortedTotals(explore.StoreTotals(rows)))
	}
	sales := make([]float64, len(rows))
	for i, m := range rows {
		sales[i] = m.Sales.WeeklySales
	}
	return explore.RenderSalesHistogram(w, sales, explore.HistogramBins)
}

// ExportMerged writes the first ExportRows merged rows as XLSX.
func (r *Runner) ExportMerged(ctx context.Context, w io.Writer) (err error) {
	rn := r.begin("export")
	defer func() { r.finish(ctx, rn, err) }()

	rows, err := r.loadMerged(rn)
	if err != nil {
		return err
	}
	return exporter.WriteMergedXLSX(w, rows, r.ExportRows)
}
