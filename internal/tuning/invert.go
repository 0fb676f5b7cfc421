package tuning

import (
	"fmt"

	"gonum.org/v1/gonum/interp"

	"turbine-tuner/internal/surface"
)

// invertSlice returns the pitch angle at which a surface slice takes the
// value target. The slice is inverted along its feathering branch; targets
// outside the branch range saturate to the branch end points.
func invertSlice(slice, pitch []float64, target float64) (float64, error) {
	coeffs, pitches, err := surface.FeatherBranch(slice, pitch)
	if err != nil {
		return 0, err
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(coeffs, pitches); err != nil {
		return 0, fmt.Errorf("failed to fit inverse slice: %w", err)
	}
	return pl.Predict(target), nil
}

// branchRange returns the smallest and largest value on the feathering
// branch of a slice
func branchRange(slice, pitch []float64) (lo, hi float64, err error) {
	coeffs, _, err := surface.FeatherBranch(slice, pitch)
	if err != nil {
		return 0, 0, err
	}
	return coeffs[0], coeffs[len(coeffs)-1], nil
}
