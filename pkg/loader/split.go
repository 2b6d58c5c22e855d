package loader

import (
	"math"
	"math/rand"

	"github.com/cnoret/retail-data-analysis/pkg/failure"
)

// TrainTestSplit returns shuffled train and test row indices for n rows.
// The test partition holds ceil(n*testRatio) rows. The permutation comes from
// a source seeded with seed, so equal inputs give equal partitions.
// Both partitions must be non-empty.
func TrainTestSplit(n int, testRatio float64, seed int64) (train, test []int, err error) {
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, failure.Newf(failure.SchemaViolation, "split", "test ratio %v must be in (0, 1)", testRatio)
	}
	nTest := int(math.Ceil(float64(n) * testRatio))
	if n < 2 || nTest >= n {
		return nil, nil, failure.Newf(failure.SchemaViolation, "split",
			"a %.0f/%.0f split needs at least 2 rows, got %d", (1-testRatio)*100, testRatio*100, n)
	}

	indices := rand.New(rand.NewSource(seed)).Perm(n)
	test = append([]int(nil), indices[:nTest]...)
	train = append([]int(nil), indices[nTest:]...)
	return train, test, nil
}
