// Package pipeline runs the views of the application: exploration,
// processing (load, clean, merge, persist), visualization and modeling.
// Every view re-reads its inputs from disk and runs its stages in order.
package pipeline

import (
	"context"
	"time"

	"github.com/cnoret/retail-data-analysis/pkg/failure"
	"github.com/cnoret/retail-data-analysis/pkg/logger"
	"github.com/cnoret/retail-data-analysis/pkg/metrics"
)

// Stage is one step of a view.
type Stage struct {
	Name string
	Run  func(ctx context.Context) error
}

// Pipeline chains stages. The first failing stage stops the chain.
type Pipeline struct {
	steps   []Stage
	log     *logger.Logger
	metrics *metrics.Metrics
}

func NewPipeline(log *logger.Logger, m *metrics.Metrics, steps ...Stage) *Pipeline {
	return &Pipeline{steps: steps, log: log, metrics: m}
}

// Run executes the stages in order and returns the first error unchanged.
func (p *Pipeline) Run(ctx context.Context) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		p.log.Debug("stage started", "stage", step.Name)
		err := step.Run(ctx)
		p.metrics.ObserveStage(step.Name, start)
		if err != nil {
			kind := failure.KindOf(err).String()
			p.metrics.Failed(step.Name, kind)
			p.log.Warn("stage failed",
				"stage", step.Name, "kind", kind, "error", err.Error(), "duration", time.Since(start))
			return err
		}
		p.log.Info("stage finished", "stage", step.Name, "duration", time.Since(start))
	}
	return nil
}
