package bucket

import (
	"cmp"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/interp"
)

// TabulatedField interpolates sampled (z [m], potential energy [C V]) pairs
// with an Akima spline and returns the potential together with its force -dU/dz.
// Outside the table the potential is held at the end values and the force is zero.
func TabulatedField(samples [][]float64) (force, potential Field, err error) {
	if len(samples) < 3 {
		return nil, nil, fmt.Errorf("%w: tabulated field needs at least 3 samples, got %d", ErrInvalidConfig, len(samples))
	}
	sorted := slices.Clone(samples)
	slices.SortFunc(sorted, func(a, b []float64) int { return cmp.Compare(a[0], b[0]) })

	zs := make([]float64, len(sorted))
	us := make([]float64, len(sorted))
	for i, s := range sorted {
		if len(s) != 2 {
			return nil, nil, fmt.Errorf("%w: sample %d has %d columns", ErrInvalidConfig, i, len(s))
		}
		if i > 0 && s[0] == sorted[i-1][0] {
			return nil, nil, fmt.Errorf("%w: duplicate z %g in tabulated field", ErrInvalidConfig, s[0])
		}
		zs[i], us[i] = s[0], s[1]
	}

	var spline interp.AkimaSpline
	if err := spline.Fit(zs, us); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	lo, hi := zs[0], zs[len(zs)-1]
	potential = func(z float64) float64 {
		return spline.Predict(min(max(z, lo), hi))
	}
	force = func(z float64) float64 {
		if z < lo || z > hi {
			return 0
		}
		return -spline.PredictDerivative(z)
	}
	return force, potential, nil
}
