package kubelka

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// RMSE returns the root-mean-square error between two reflectance curves
// sampled on the same wavelength grid.
func RMSE(pred, target *SpectralCurve) (float64, error) {
	if !pred.SameGrid(target) {
		return 0, fmt.Errorf("%w: curves use different wavelength grids", ErrInvalidInput)
	}
	return rmse(pred.reflectances, target.reflectances), nil
}

func rmse(a, b []float64) float64 {
	return floats.Distance(a, b, 2) / math.Sqrt(float64(len(a)))
}
