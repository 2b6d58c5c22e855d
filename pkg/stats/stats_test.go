package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cnoret/retail-data-analysis/pkg/failure"
)

func TestStandardScaler(t *testing.T) {
	X := [][]float64{{1, 5}, {3, 5}, {5, 5}}
	s := NewStandardScaler()
	assert.False(t, s.Fitted())

	_, err := s.TransformRow([]float64{1, 2})
	assert.True(t, failure.Is(err, failure.ModelNotFit))

	out, err := s.FitTransform(X)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 5}, s.Mean)
	// Population std of 1,3,5 is sqrt(8/3); the constant column keeps scale 1.
	assert.InDelta(t, math.Sqrt(8.0/3.0), s.Std[0], 1e-12)
	assert.Equal(t, 1.0, s.Std[1])
	assert.InDelta(t, -1.224744871391589, out[0][0], 1e-12)
	assert.Equal(t, 0.0, out[1][0])
	assert.Equal(t, 0.0, out[2][1])

	row, err := s.TransformRow([]float64{3, 7})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 2}, row)

	_, err = s.TransformRow([]float64{1})
	assert.True(t, failure.Is(err, failure.SchemaViolation))

	assert.True(t, failure.Is(NewStandardScaler().Fit(nil), failure.Empty))
	ragged := NewStandardScaler().Fit([][]float64{{1, 2}, {3}})
	assert.True(t, failure.Is(ragged, failure.SchemaViolation))
}

func TestSummaries(t *testing.T) {
	x := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.Equal(t, 5.0, Mean(x))
	assert.Equal(t, 4.0, Variance(x))
	assert.Equal(t, 2.0, Std(x))
	assert.Equal(t, 40.0, Sum(x))
	lo, hi := MinMax(x)
	assert.Equal(t, 2.0, lo)
	assert.Equal(t, 9.0, hi)
}

func TestCorrelation(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	assert.InDelta(t, 1, Correlation(x, []float64{2, 4, 6, 8}), 1e-12)
	assert.InDelta(t, -1, Correlation(x, []float64{8, 6, 4, 2}), 1e-12)
	assert.True(t, math.IsNaN(Correlation(x, []float64{1, 1, 1, 1})))
	assert.True(t, math.IsNaN(Correlation(x, []float64{1})))

	// NaN pairs are skipped.
	withGap := []float64{2, math.NaN(), 6, 8}
	assert.InDelta(t, 1, Correlation(x, withGap), 1e-12)
}

func TestHistogram(t *testing.T) {
	bins := Histogram([]float64{0, 1, 2, 3, 4, 10}, 5)
	require.Len(t, bins, 5)
	assert.Equal(t, 0.0, bins[0].Lo)
	assert.Equal(t, 2.0, bins[0].Hi)
	assert.Equal(t, 10.0, bins[4].Hi)

	counts := make([]int, len(bins))
	for i, b := range bins {
		counts[i] = b.Count
	}
	assert.Equal(t, []int{2, 2, 1, 0, 1}, counts)

	assert.Nil(t, Histogram(nil, 5))
	assert.Nil(t, Histogram([]float64{math.NaN(), math.Inf(1)}, 5))

	withGaps := Histogram([]float64{0, math.Inf(1), 10, math.NaN(), math.Inf(-1)}, 2)
	require.Len(t, withGaps, 2)
	assert.Equal(t, 0.0, withGaps[0].Lo)
	assert.Equal(t, 10.0, withGaps[1].Hi)
	assert.Equal(t, 1, withGaps[0].Count)
	assert.Equal(t, 1, withGaps[1].Count)
	constant := Histogram([]float64{3, 3}, 4)
	assert.Equal(t, 2, constant[3].Count)
}
