package pipeline

import (
	"context"

	"github.com/cnoret/retail-data-analysis/pkg/data"
	"github.com/cnoret/retail-data-analysis/pkg/dataprep"
	"github.com/cnoret/retail-data-analysis/pkg/failure"
	"github.com/cnoret/retail-data-analysis/pkg/model"
)

// TrainRequest selects the model and the split. Zero fields take the
// runner defaults; a nil Seed does too, so 0 stays a valid seed.
type TrainRequest struct {
	Kind      model.Kind
	Trees     int
	Seed      *int64
	TestRatio float64
	Missing   dataprep.MissingPolicy
}

// Seed returns a pointer to v for TrainRequest.Seed.
func Seed(v int64) *int64 { return &v }

func (t TrainRequest) seed() int64 {
	if t.Seed == nil {
		return 0
	}
	return *t.Seed
}

func (r *Runner) withDefaults(req TrainRequest) TrainRequest {
	d := r.Defaults
	if req.Kind == "" {
		req.Kind = d.Kind
	}
	if req.Trees <= 0 {
		req.Trees = d.Trees
	}
	if req.Seed == nil {
		req.Seed = d.Seed
	}
	if req.TestRatio == 0 {
		req.TestRatio = d.TestRatio
	}
	if req.Missing == "" {
		req.Missing = d.Missing
	}
	return req
}

// Prediction is a predicted weekly sales figure.
type Prediction struct {
	Value     float64 `json:"value"`
	Formatted string  `json:"formatted"`
}

// ModelingResult is what the modeling view shows.
type ModelingResult struct {
	RunID       string        `json:"run_id"`
	Model       string        `json:"model"`
	Kind        model.Kind    `json:"kind"`
	Seed        int64         `json:"seed"`
	Metrics     model.Metrics `json:"metrics"`
	TrainRows   int           `json:"train_rows"`
	TestRows    int           `json:"test_rows"`
	DroppedRows int           `json:"dropped_rows"`
	Types       []string      `json:"types"`
	Cached      bool          `json:"cached"`
	Prediction  *Prediction   `json:"prediction,omitempty"`
}

// RunModeling loads the merged dataset, builds the features, fits and scores
// the requested model and, when input is set, predicts it.
func (r *Runner) RunModeling(ctx context.Context, req TrainRequest, input *dataprep.FeatureRow) (res *ModelingResult, err error) {
	rn := r.begin("modeling")
	defer func() { r.finish(ctx, rn, err) }()

	req = r.withDefaults(req)
	kind, err := model.ParseKind(string(req.Kind))
	if err != nil {
		return nil, failure.New(failure.SchemaViolation, "modeling", err)
	}
	req.Kind = kind
	rn.log = rn.log.With("model", string(req.Kind))

	var tr *model.Trainer
	cached := false
	if r.Cache != nil {
		digest, err := model.FileDigest(r.MergedPath)
		if err != nil {
			return nil, err
		}
		key := model.CacheKey{
			Digest: digest, Kind: req.Kind, Trees: req.Trees, Seed: req.seed(),
			TestRatio: req.TestRatio, Missing: req.Missing,
		}
		tr, cached, err = r.Cache.Get(key, func() (*model.Trainer, error) {
			return r.fit(ctx, rn, req)
		})
		if err != nil {
			return nil, err
		}
		if r.Metrics != nil {
			result := "miss"
			if cached {
				result = "hit"
			}
			r.Metrics.CacheRequests.WithLabelValues(result).Inc()
		}
	} else {
		if tr, err = r.fit(ctx, rn, req); err != nil {
			return nil, err
		}
	}

	m, err := tr.Score()
	if err != nil {
		return nil, err
	}
	train, test, dropped := tr.Rows()
	res = &ModelingResult{
		RunID:       rn.id,
		Model:       req.Kind.DisplayName(),
		Kind:        req.Kind,
		Seed:        req.seed(),
		Metrics:     m,
		TrainRows:   train,
		TestRows:    test,
		DroppedRows: dropped,
		Types:       tr.Classes(),
		Cached:      cached,
	}

	if input != nil {
		v, err := tr.Predict(*input)
		if err != nil {
			return nil, err
		}
		res.Prediction = &Prediction{Value: v, Formatted: model.FormatCurrency(v)}
		rn.log.Info("prediction", "value", v)
	}
	return res, nil
}

// fit runs the load, feature, train and score stages and returns a scored
// trainer.
func (r *Runner) fit(ctx context.Context, rn *run, req TrainRequest) (*model.Trainer, error) {
	var (
		rows []data.MergedRecord
		fs   *dataprep.FeatureSet
		tr   = model.NewTrainer(req.Kind, req.Trees, req.seed())
	)
	err := r.pipeline(rn,
		Stage{Name: "load merged", Run: func(context.Context) error {
			var err error
			rows, err = r.loadMerged(rn)
			return err
		}},
		Stage{Name: "features", Run: func(context.Context) error {
			var err error
			fs, err = dataprep.BuildFeatures(rows, dataprep.FeatureOptions{
				TestRatio: req.TestRatio, Seed: req.seed(), Missing: req.Missing,
			})
			if err == nil {
				rn.log.Info("features built",
					"train_rows", fs.Train.Len(), "test_rows", fs.Test.Len(), "dropped_rows", fs.DroppedRows)
			}
			return err
		}},
		Stage{Name: "train", Run: func(context.Context) error {
			return tr.Fit(fs)
		}},
		Stage{Name: "score", Run: func(context.Context) error {
			m, err := tr.Score()
			if err != nil {
				return err
			}
			rn.log.Info("model scored", "mse", m.MSE, "rmse", m.RMSE, "mae", m.MAE, "r2", m.R2)
			if r.Metrics != nil {
				kind := string(req.Kind)
				r.Metrics.ModelScore.WithLabelValues(kind, "mse").Set(m.MSE)
				r.Metrics.ModelScore.WithLabelValues(kind, "rmse").Set(m.RMSE)
				r.Metrics.ModelScore.WithLabelValues(kind, "mae").Set(m.MAE)
				r.Metrics.ModelScore.WithLabelValues(kind, "r2").Set(m.R2)
			}
			return nil
		}},
	).Run(ctx)
	if err != nil {
		return nil, err
	}
	return tr, nil
}
