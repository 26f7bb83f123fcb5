package match

import (
	"gonum.org/v1/gonum/optimize"
)

// NelderMead is the default search backend: the derivative-free downhill
// simplex. It tolerates the noisy, kinked objectives that clamped
// reflectance and bound penalties produce.
type NelderMead struct{}

func (NelderMead) Minimize(objective Objective, initial []float64, s Settings) (Outcome, error) {
	problem := optimize.Problem{Func: objective}
	return runGonum(&optimize.NelderMead{}, problem, initial, s)
}
