package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cnoret/retail-data-analysis/pkg/config"
	"github.com/cnoret/retail-data-analysis/pkg/data"
	"github.com/cnoret/retail-data-analysis/pkg/dataprep"
	"github.com/cnoret/retail-data-analysis/pkg/logger"
	"github.com/cnoret/retail-data-analysis/pkg/metrics"
	"github.com/cnoret/retail-data-analysis/pkg/model"
	"github.com/cnoret/retail-data-analysis/pkg/runlog"
)

// Runner holds what the views share. It keeps no view state between calls;
// Cache only memoizes fitted models keyed by the merged file contents.
type Runner struct {
	Sources    data.Paths
	MergedPath string
	DateLayout string
	ExportRows int
	Defaults   TrainRequest

	Log     *logger.Logger
	Metrics *metrics.Metrics
	Runs    *runlog.Store // nil disables the run log
	Cache   *model.Cache  // nil refits on every request
}

// NewRunner wires a runner from cfg. runs may be nil.
func NewRunner(cfg *config.Config, log *logger.Logger, m *metrics.Metrics, runs *runlog.Store) *Runner {
	r := &Runner{
		Sources: data.Paths{
			Stores:   cfg.Paths.Stores,
			Sales:    cfg.Paths.Sales,
			Features: cfg.Paths.Features,
		},
		MergedPath: cfg.Paths.Merged,
		DateLayout: cfg.Paths.DateLayout,
		ExportRows: cfg.Server.ExportRows,
		Defaults: TrainRequest{
			Kind:      model.Kind(cfg.Model.Kind),
			Trees:     cfg.Model.Trees,
			Seed:      Seed(cfg.Model.Seed),
			TestRatio: cfg.Model.TestRatio,
			Missing:   dataprep.MissingPolicy(cfg.Model.MissingPolicy),
		},
		Log:     log,
		Metrics: m,
		Runs:    runs,
	}
	if cfg.Model.CacheEnabled {
		r.Cache = model.NewCache(cfg.Model.CacheSize)
	}
	return r
}

// run is the bookkeeping of one view execution.
type run struct {
	id    string
	view  string
	start time.Time
	log   *logger.Logger
}

func (r *Runner) begin(view string) *run {
	id := uuid.NewString()
	return &run{
		id:    id,
		view:  view,
		start: time.Now(),
		log:   r.Log.With("run_id", id, "view", view),
	}
}

// finish logs the outcome and stores it in the run log. A run log failure is
// logged and does not change the view result.
func (r *Runner) finish(ctx context.Context, rn *run, err error) {
	rec := runlog.Run{
		ID:        rn.id,
		View:      rn.view,
		Status:    runlog.StatusOK,
		StartedAt: rn.start,
		Duration:  time.Since(rn.start),
	}
	if err != nil {
		rec.Status = runlog.StatusFailed
		rec.Message = err.Error()
		rn.log.Error("run failed", "error", err.Error(), "duration", rec.Duration)
	} else {
		rn.log.Info("run finished", "duration", rec.Duration)
	}
	if r.Runs == nil {
		return
	}
	if lerr := r.Runs.Record(context.WithoutCancel(ctx), rec); lerr != nil {
		rn.log.Warn("run log write failed", "error", lerr.Error())
	}
}

func (r *Runner) pipeline(rn *run, steps ...Stage) *Pipeline {
	return NewPipeline(rn.log, r.Metrics, steps...)
}
