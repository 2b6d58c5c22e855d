package model

import (
	"errors"
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// LinearRegression is ordinary least squares with an intercept.
// Fit centres X and y and takes the minimum-norm least squares solution from
// an SVD, so collinear or constant columns do not fail the fit.
type LinearRegression struct {
	W   []float64 // weights
	b   float64   // bias
	fit bool
}

// NewLinearRegression returns an unfit model.
func NewLinearRegression() *LinearRegression {
	return &LinearRegression{}
}

// Fit solves min ||(y - ȳ) - (X - x̄)w|| and sets b = ȳ - x̄·w.
func (m *LinearRegression) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return errors.New("linear: empty X")
	}
	if len(y) != len(X) {
		return errors.New("linear: X and y length mismatch")
	}
	n, p := len(X), len(X[0])

	xMean := make([]float64, p)
	yMean := 0.0
	for i := range n {
		if len(X[i]) != p {
			return errors.New("linear: inconsistent number of features in X rows")
		}
		for j := range p {
			xMean[j] += X[i][j]
		}
		yMean += y[i]
	}
	for j := range p {
		xMean[j] /= float64(n)
	}
	yMean /= float64(n)

	A := mat.NewDense(n, p, nil)
	b := mat.NewVecDense(n, nil)
	for i := range n {
		for j := range p {
			A.Set(i, j, X[i][j]-xMean[j])
		}
		b.SetVec(i, y[i]-yMean)
	}

	var svd mat.SVD
	if ok := svd.Factorize(A, mat.SVDThin); !ok {
		return errors.New("linear: SVD factorization failed")
	}
	rcond := math.Nextafter(1, 2) - 1
	rank := svd.Rank(rcond * float64(max(n, p)))

	w := mat.NewVecDense(p, nil)
	if rank > 0 {
		svd.SolveVecTo(w, b, rank)
	}

	m.W = make([]float64, p)
	m.b = yMean
	for j := range p {
		m.W[j] = w.AtVec(j)
		m.b -= m.W[j] * xMean[j]
	}
	m.fit = true
	return nil
}

// Predict returns predictions for rows in X, split across CPU cores.
func (m *LinearRegression) Predict(X [][]float64) []float64 {
	if len(X) == 0 {
		return nil
	}
	pred := make([]float64, len(X))
	var wg sync.WaitGroup

	workers := runtime.GOMAXPROCS(0)
	rowsPerWorker := (len(X) + workers - 1) / workers

	for w := 0; w < workers; w++ {
		s := w * rowsPerWorker
		e := min(s+rowsPerWorker, len(X))
		if s >= e {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				sum := m.b
				for j, v := range X[i] {
					sum += m.W[j] * v
				}
				pred[i] = sum
			}
		}(s, e)
	}
	wg.Wait()
	return pred
}

// Bias returns the fitted intercept.
func (m *LinearRegression) Bias() float64 {
	return m.b
}
