package match

import (
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"
)

// LBFGS searches with limited-memory BFGS. The forward model has no
// analytic gradient, so central finite differences stand in for it. Faster
// than the simplex on smooth regions of the objective, but less robust close
// to the bounds.
type LBFGS struct{}

func (LBFGS) Minimize(objective Objective, initial []float64, s Settings) (Outcome, error) {
	problem := optimize.Problem{
		Func: objective,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, objective, x, &fd.Settings{Formula: fd.Central})
		},
	}
	return runGonum(&optimize.LBFGS{}, problem, initial, s)
}
