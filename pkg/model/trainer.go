package model

import (
	"fmt"

	"github.com/cnoret/retail-data-analysis/pkg/dataprep"
	"github.com/cnoret/retail-data-analysis/pkg/failure"
	"github.com/cnoret/retail-data-analysis/pkg/stats"
)

// State is the lifecycle position of a Trainer.
type State int

const (
	Unfit State = iota
	Fit
	Scored
)

func (s State) String() string {
	switch s {
	case Unfit:
		return "unfit"
	case Fit:
		return "fit"
	case Scored:
		return "scored"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Trainer owns one regressor together with the scaler and encoder it was fit
// with. Both are reused unchanged by Predict.
type Trainer struct {
	Kind  Kind
	Trees int
	Seed  int64

	reg     Regressor
	scaler  *stats.StandardScaler
	encoder *dataprep.LabelEncoder
	test    dataprep.Partition
	metrics Metrics
	state   State

	trainRows, droppedRows int
}

// NewTrainer returns an Unfit trainer. trees is only used by the forest.
func NewTrainer(kind Kind, trees int, seed int64) *Trainer {
	if trees <= 0 {
		trees = 100
	}
	return &Trainer{Kind: kind, Trees: trees, Seed: seed}
}

func (t *Trainer) State() State { return t.state }

// Fit scales the training partition, fits the regressor and keeps the scaled
// held-out partition for Score.
func (t *Trainer) Fit(fs *dataprep.FeatureSet) error {
	const op = "train"
	reg, err := New(t.Kind, t.Trees, t.Seed)
	if err != nil {
		return failure.New(failure.SchemaViolation, op, err)
	}
	scaler := stats.NewStandardScaler()
	xTrain, err := scaler.FitTransform(fs.Train.X)
	if err != nil {
		return err
	}
	xTest, err := scaler.Transform(fs.Test.X)
	if err != nil {
		return err
	}
	if err := reg.Fit(xTrain, fs.Train.Y); err != nil {
		return failure.New(failure.SchemaViolation, op, err)
	}

	t.reg = reg
	t.scaler = scaler
	t.encoder = fs.Encoder
	t.test = dataprep.Partition{X: xTest, Y: fs.Test.Y}
	t.trainRows, t.droppedRows = fs.Train.Len(), fs.DroppedRows
	t.metrics = Metrics{}
	t.state = Fit
	return nil
}

// Score evaluates the held-out partition. Calling it again returns the same
// metrics.
func (t *Trainer) Score() (Metrics, error) {
	switch t.state {
	case Unfit:
		return Metrics{}, failure.Newf(failure.ModelNotFit, "score", "model has not been fit")
	case Scored:
		return t.metrics, nil
	}
	pred := t.reg.Predict(t.test.X)
	t.metrics = Evaluate(t.test.Y, pred)
	t.state = Scored
	return t.metrics, nil
}

// Predict returns the weekly sales predicted for one input row.
func (t *Trainer) Predict(in dataprep.FeatureRow) (float64, error) {
	const op = "predict"
	if t.state == Unfit {
		return 0, failure.Newf(failure.ModelNotFit, op, "model has not been fit")
	}
	x, err := in.Vector(t.encoder)
	if err != nil {
		return 0, err
	}
	row, err := t.scaler.TransformRow(x)
	if err != nil {
		return 0, err
	}
	return t.reg.Predict([][]float64{row})[0], nil
}

// Rows returns the partition sizes of the last fit and the rows the
// missing-input policy removed.
func (t *Trainer) Rows() (train, test, dropped int) {
	return t.trainRows, t.test.Len(), t.droppedRows
}

// Classes returns the store types the trainer accepts.
func (t *Trainer) Classes() []string {
	if t.encoder == nil {
		return nil
	}
	return t.encoder.Classes()
}
