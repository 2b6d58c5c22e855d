package dataprep

import "math"

// ---------- Imputation on numeric columns (absent = NaN) ----------

// ImputeConstant replaces absent values with a fixed constant and returns
// how many cells it filled.
func ImputeConstant(col []float64, constant float64) int {
	filled := 0
	for i, v := range col {
		if math.IsNaN(v) {
			col[i] = constant
			filled++
		}
	}
	return filled
}

// ForwardFill replaces each absent value with the nearest earlier non-absent
// value. Leading absent values have no predecessor and stay NaN.
// When same is non-nil, consecutive positions i-1 and i for which same
// reports true form one group, and only values from earlier groups are
// carried. It returns how many cells it filled.
func ForwardFill(col []float64, same func(prev, cur int) bool) int {
	filled := 0
	last, seen := math.NaN(), math.NaN()
	for i, v := range col {
		if i > 0 && (same == nil || !same(i-1, i)) {
			last = seen
		}
		if math.IsNaN(v) {
			if !math.IsNaN(last) {
				col[i] = last
				filled++
			}
			continue
		}
		seen = v
	}
	return filled
}

// CountMissing returns the number of NaN cells in col.
func CountMissing(col []float64) int {
	n := 0
	for _, v := range col {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}
