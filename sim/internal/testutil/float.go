// Package testutil provides shared test infrastructure for the crystal growth
// simulator: float assertion helpers used across sim/ and its sub-packages.
package testutil

import (
	"math"
	"testing"
)

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertStrictlyDecreasing fails if any element of values is not below its predecessor.
func AssertStrictlyDecreasing(t *testing.T, name string, values []float64) {
	t.Helper()
	for i := 1; i < len(values); i++ {
		if !(values[i] < values[i-1]) {
			t.Errorf("%s: value[%d]=%v is not below value[%d]=%v", name, i, values[i], i-1, values[i-1])
		}
	}
}
