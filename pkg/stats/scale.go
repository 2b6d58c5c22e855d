package stats

import (
	"fmt"

	"github.com/cnoret/retail-data-analysis/pkg/failure"
)

// StandardScaler standardizes each column to zero mean and unit variance.
// Mean and Std are learned once by Fit and reused by every Transform.
type StandardScaler struct {
	Mean []float64
	Std  []float64
	fit  bool
}

func NewStandardScaler() *StandardScaler { return &StandardScaler{} }

// Fit learns per-column mean and population standard deviation.
// Constant columns get a scale of 1.
func (s *StandardScaler) Fit(X [][]float64) error {
	if len(X) == 0 {
		return failure.Newf(failure.Empty, "scaler fit", "no rows to fit")
	}
	c := len(X[0])
	s.Mean = make([]float64, c)
	s.Std = make([]float64, c)
	col := make([]float64, len(X))
	for j := 0; j < c; j++ {
		for i := range X {
			if len(X[i]) != c {
				return failure.New(failure.SchemaViolation, "scaler fit",
					fmt.Errorf("row %d has %d features, want %d", i+1, len(X[i]), c))
			}
			col[i] = X[i][j]
		}
		s.Mean[j] = Mean(col)
		s.Std[j] = Std(col)
		if s.Std[j] == 0 {
			s.Std[j] = 1
		}
	}
	s.fit = true
	return nil
}

// Fitted reports whether Fit has run.
func (s *StandardScaler) Fitted() bool { return s.fit }

// TransformRow scales a single row with the fitted parameters.
func (s *StandardScaler) TransformRow(x []float64) ([]float64, error) {
	if !s.fit {
		return nil, failure.Newf(failure.ModelNotFit, "scaler transform", "scaler has not been fit")
	}
	if len(x) != len(s.Mean) {
		return nil, failure.New(failure.SchemaViolation, "scaler transform",
			fmt.Errorf("row has %d features, scaler was fit on %d", len(x), len(s.Mean)))
	}
	row := make([]float64, len(x))
	for j, v := range x {
		row[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return row, nil
}

// Transform scales every row of X.
func (s *StandardScaler) Transform(X [][]float64) ([][]float64, error) {
	Y := make([][]float64, len(X))
	for i := range X {
		row, err := s.TransformRow(X[i])
		if err != nil {
			return nil, err
		}
		Y[i] = row
	}
	return Y, nil
}

// FitTransform fits on X and returns X scaled.
func (s *StandardScaler) FitTransform(X [][]float64) ([][]float64, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}
