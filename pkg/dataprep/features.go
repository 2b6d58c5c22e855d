package dataprep

import (
	"fmt"
	"math"

	"github.com/cnoret/retail-data-analysis/pkg/data"
	"github.com/cnoret/retail-data-analysis/pkg/failure"
	"github.com/cnoret/retail-data-analysis/pkg/loader"
)

// FeatureNames are the model inputs, in column order.
var FeatureNames = []string{
	data.ColStore, data.ColDept, data.ColIsHolidaySales, data.ColTemperature,
	data.ColFuelPrice, data.ColCPI, data.ColUnemployment, data.ColType,
}

// typeColumn is the position of the encoded store type in a feature vector.
const typeColumn = 7

// MissingPolicy decides what happens to rows whose model inputs are absent.
type MissingPolicy string

const (
	// MissingDrop removes such rows before the split and counts them.
	MissingDrop MissingPolicy = "drop"
	// MissingError fails the build with a SchemaViolation.
	MissingError MissingPolicy = "error"
)

// FeatureOptions configures BuildFeatures.
type FeatureOptions struct {
	TestRatio float64
	Seed      int64
	Missing   MissingPolicy
}

// DefaultFeatureOptions mirrors the notebook: 20% held out, seed 42.
func DefaultFeatureOptions() FeatureOptions {
	return FeatureOptions{TestRatio: 0.2, Seed: 42, Missing: MissingDrop}
}

// Partition is a set of feature rows with their targets.
type Partition struct {
	X [][]float64
	Y []float64
}

// Len returns the number of rows.
func (p Partition) Len() int { return len(p.Y) }

// FeatureSet is the output of the feature builder.
type FeatureSet struct {
	Names       []string
	Encoder     *LabelEncoder
	Train       Partition
	Test        Partition
	Rows        int // rows used after the missing-input policy
	DroppedRows int
}

// FeatureRow is one user-supplied inference row, with the store type as a label.
type FeatureRow struct {
	Store        int     `json:"store" validate:"min=1"`
	Dept         int     `json:"dept" validate:"min=1"`
	IsHoliday    bool    `json:"is_holiday"`
	Temperature  float64 `json:"temperature"`
	FuelPrice    float64 `json:"fuel_price"`
	CPI          float64 `json:"cpi"`
	Unemployment float64 `json:"unemployment"`
	Type         string  `json:"type" validate:"required"`
}

// Vector encodes the row with a fitted encoder, in FeatureNames order.
func (r FeatureRow) Vector(enc *LabelEncoder) ([]float64, error) {
	code, err := enc.Encode(r.Type)
	if err != nil {
		return nil, err
	}
	return []float64{
		float64(r.Store), float64(r.Dept), boolFloat(r.IsHoliday), r.Temperature,
		r.FuelPrice, r.CPI, r.Unemployment, float64(code),
	}, nil
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// rawVector selects the numeric inputs of a merged row. The type slot is NaN
// and the label is returned separately; absent joined fields stay NaN.
func rawVector(m data.MergedRecord) ([]float64, string) {
	x := []float64{
		float64(m.Sales.Store), float64(m.Sales.Dept), boolFloat(m.Sales.IsHoliday),
		math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN(),
	}
	if f := m.Features; f != nil {
		x[3], x[4], x[5], x[6] = f.Temperature, f.FuelPrice, f.CPI, f.Unemployment
	}
	label := ""
	if m.Store != nil {
		label = m.Store.Type
	}
	return x, label
}

// BuildFeatures selects the model inputs, encodes the store type and splits
// the rows into training and held-out partitions.
func BuildFeatures(rows []data.MergedRecord, opts FeatureOptions) (*FeatureSet, error) {
	if opts.Missing == "" {
		opts.Missing = MissingDrop
	}

	X := make([][]float64, 0, len(rows))
	Y := make([]float64, 0, len(rows))
	labels := make([]string, 0, len(rows))
	dropped := 0

	for i, m := range rows {
		x, label := rawVector(m)
		absent := ""
		if label == "" {
			absent = data.ColType
		}
		for j := 0; j < typeColumn && absent == ""; j++ {
			if math.IsNaN(x[j]) {
				absent = FeatureNames[j]
			}
		}
		if absent != "" {
			if opts.Missing == MissingError {
				return nil, failure.Newf(failure.SchemaViolation, "build features",
					"row %d: model input %q is absent", i+1, absent)
			}
			dropped++
			continue
		}
		X = append(X, x)
		Y = append(Y, m.Sales.WeeklySales)
		labels = append(labels, label)
	}

	fs := &FeatureSet{Names: FeatureNames, Encoder: NewLabelEncoder(), Rows: len(X), DroppedRows: dropped}

	trainIdx, testIdx, err := loader.TrainTestSplit(len(X), opts.TestRatio, opts.Seed)
	if err != nil {
		return nil, err
	}
	if err := fs.Encoder.Fit(labels); err != nil {
		return nil, err
	}
	codes, err := fs.Encoder.Transform(labels)
	if err != nil {
		return nil, fmt.Errorf("build features: %w", err)
	}
	for i := range X {
		X[i][typeColumn] = float64(codes[i])
	}

	fs.Train = subset(X, Y, trainIdx)
	fs.Test = subset(X, Y, testIdx)
	return fs, nil
}

func subset(X [][]float64, Y []float64, idx []int) Partition {
	p := Partition{X: make([][]float64, len(idx)), Y: make([]float64, len(idx))}
	for k, i := range idx {
		p.X[k] = X[i]
		p.Y[k] = Y[i]
	}
	return p
}
