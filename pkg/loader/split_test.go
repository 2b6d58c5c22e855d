package loader

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cnoret/retail-data-analysis/pkg/failure"
)

func TestTrainTestSplit(t *testing.T) {
	train, test, err := TrainTestSplit(10, 0.2, 42)
	require.NoError(t, err)
	assert.Len(t, test, 2)
	assert.Len(t, train, 8)

	all := append(append([]int(nil), train...), test...)
	sort.Ints(all)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, all)

	train2, test2, err := TrainTestSplit(10, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)
}

func TestTrainTestSplitRoundsTestUp(t *testing.T) {
	train, test, err := TrainTestSplit(72, 0.2, 7)
	require.NoError(t, err)
	assert.Len(t, test, 15)
	assert.Len(t, train, 57)

	train, test, err = TrainTestSplit(2, 0.2, 7)
	require.NoError(t, err)
	assert.Len(t, test, 1)
	assert.Len(t, train, 1)
}

func TestTrainTestSplitRejects(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		ratio float64
	}{
		{"single row", 1, 0.2},
		{"no rows", 0, 0.2},
		{"zero ratio", 10, 0},
		{"whole ratio", 10, 1},
		{"negative ratio", 10, -0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := TrainTestSplit(tt.n, tt.ratio, 42)
			require.Error(t, err)
			assert.True(t, failure.Is(err, failure.SchemaViolation))
		})
	}

	_, _, err := TrainTestSplit(1, 0.2, 42)
	assert.Contains(t, err.Error(), "a 80/20 split needs at least 2 rows, got 1")
}
