/*
Package match inverts the forward Kubelka-Munk model: given a target
reflectance curve it searches concentration space for the mixture whose
predicted curve minimizes the spectral RMSE.

The search backend is a pluggable Strategy; two are provided on top of
gonum/optimize, the derivative-free Nelder-Mead simplex (the default) and
L-BFGS with finite-difference gradients.
*/
package match

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// Status describes how a search ended.
type Status int

const (
	// Converged means the objective improvement fell below the tolerance.
	Converged Status = iota
	// MaxIterationsReached means the iteration budget ran out. The
	// best-found result is still returned; this is not an error.
	MaxIterationsReached
	// Failed means the optimizer signalled divergence or could not
	// improve. The best valid iterate seen is still returned.
	Failed
)

func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case MaxIterationsReached:
		return "max iterations reached"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Objective evaluates the match error at a concentration vector. Objectives
// handed to strategies tolerate any finite vector; bound handling is folded
// into the objective itself.
type Objective func(x []float64) float64

// Settings bound a strategy run.
type Settings struct {
	MaxIterations int
	Tolerance     float64
}

// Outcome is what a strategy returns: the best vector it found, its
// objective value and how the run ended.
type Outcome struct {
	X          []float64
	Value      float64
	Iterations int
	Status     Status
}

// Strategy is a pluggable minimization backend. Implementations must be
// usable concurrently from multiple matches.
type Strategy interface {
	Minimize(objective Objective, initial []float64, s Settings) (Outcome, error)
}

// funcConvergeIterations is the window over which the objective must stall
// before a run counts as converged.
const funcConvergeIterations = 10

func runGonum(method optimize.Method, problem optimize.Problem, initial []float64, s Settings) (Outcome, error) {
	settings := &optimize.Settings{
		MajorIterations: s.MaxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   s.Tolerance,
			Iterations: funcConvergeIterations,
		},
	}
	result, err := optimize.Minimize(problem, initial, settings, method)
	if result == nil || result.X == nil {
		return Outcome{Status: Failed}, err
	}
	out := Outcome{
		X:          result.X,
		Value:      result.F,
		Iterations: result.MajorIterations,
	}
	switch {
	case result.Status == optimize.IterationLimit:
		out.Status = MaxIterationsReached
	case errors.Is(err, optimize.ErrNoProgress) && !math.IsNaN(out.Value) && !math.IsInf(out.Value, 0):
		// A linesearcher that cannot move from its current location has
		// flattened out at the minimum; with finite-difference gradients
		// this is how L-BFGS lands on a converged run.
		out.Status = Converged
	case err == nil && result.Status != optimize.Failure && result.Status != optimize.NotTerminated:
		out.Status = Converged
	default:
		out.Status = Failed
	}
	return out, nil
}
