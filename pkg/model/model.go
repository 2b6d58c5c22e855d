package model

import "fmt"

// Regressor is a supervised model predicting a continuous target.
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) []float64
}

// Kind selects the regressor the trainer fits.
type Kind string

const (
	KindLinear Kind = "linear"
	KindForest Kind = "forest"
)

// DisplayName is the label shown to users.
func (k Kind) DisplayName() string {
	switch k {
	case KindLinear:
		return "Linear Regression"
	case KindForest:
		return "Random Forest Regressor"
	}
	return string(k)
}

// ParseKind accepts the kind names and their display names.
func ParseKind(s string) (Kind, error) {
	switch s {
	case string(KindLinear), KindLinear.DisplayName():
		return KindLinear, nil
	case string(KindForest), KindForest.DisplayName():
		return KindForest, nil
	}
	return "", fmt.Errorf("unknown model %q (want %q or %q)", s, KindLinear, KindForest)
}

// New builds an unfit regressor of the given kind.
func New(kind Kind, trees int, seed int64) (Regressor, error) {
	switch kind {
	case KindLinear:
		return NewLinearRegression(), nil
	case KindForest:
		return NewRandomForest(WithNEstimators(trees), WithSeed(seed)), nil
	}
	return nil, fmt.Errorf("unknown model %q", kind)
}
