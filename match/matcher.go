package match

import (
	"fmt"
	"math"
	"math/rand"
	"slices"

	"github.com/colourscience/kubelka"
	"github.com/colourscience/kubelka/formulate"
)

// penaltyWeight scales the quadratic penalty on bound and total-cap
// violations added to the spectral RMSE. RMSE itself never exceeds 1, so
// even mild violations dominate the objective.
const penaltyWeight = 100

// DeltaEFunc computes a perceptual colour difference between two curves on
// the same grid. The colour-space math lives outside this module; the
// matcher consumes it as a black-box diagnostic.
type DeltaEFunc func(predicted, target *kubelka.SpectralCurve) (float64, error)

// Options configure a match. The zero value selects the defaults.
type Options struct {
	// Initial guess. Defaults to the midpoint of the bounds, scaled down
	// to respect MaxTotal. Must lie within the bounds when given.
	Initial []float64
	// Upper holds the per-pigment upper concentration bound, each in
	// (0, 1]. Defaults to 1 for every pigment.
	Upper []float64
	// MaxTotal caps the concentration sum, in (0, 1]. Defaults to 1.
	MaxTotal float64
	// MaxIterations is the deterministic cutoff of the search. Defaults
	// to 200.
	MaxIterations int
	// Tolerance is the objective improvement below which the search is
	// considered converged. Defaults to 1e-7.
	Tolerance float64
	// Retries is how many times a failed search restarts from a perturbed
	// initial guess. Defaults to 3.
	Retries int
	// Strategy selects the optimization backend. Defaults to NelderMead.
	Strategy Strategy
	// DeltaE, when set, is evaluated once on the final prediction and
	// reported on the result. It never drives the search.
	DeltaE DeltaEFunc
}

// Result reports the outcome of a match.
type Result struct {
	// Concentrations is the best vector found, always within bounds.
	Concentrations []float64
	// Predicted is the curve the formulator produces at Concentrations.
	Predicted *kubelka.SpectralCurve
	// RMSE between Predicted and the target.
	RMSE float64
	// DeltaE is the perceptual difference diagnostic, NaN unless
	// Options.DeltaE was configured.
	DeltaE float64
	// Status tells how the search ended.
	Status Status
	// Iterations and Evaluations count optimizer iterations and forward
	// model evaluations across all attempts.
	Iterations  int
	Evaluations int
	// Extrapolated and Clamped carry the forward model diagnostics of the
	// final prediction.
	Extrapolated bool
	Clamped      bool
}

// Matcher inverts a Formulator: it searches concentration space for the
// mixture whose predicted reflectance best matches a target curve. A
// Matcher is stateless between calls and safe for concurrent use.
type Matcher struct {
	formulator *formulate.Formulator
}

// New returns a Matcher over the given forward model.
func New(f *formulate.Formulator) *Matcher {
	return &Matcher{formulator: f}
}

// Match searches for the concentration vector reproducing target. The
// returned result is best-effort: MaxIterationsReached and Failed statuses
// still carry the best valid iterate seen, never one worse than the initial
// guess. Errors are reserved for invalid inputs and a forward model that
// could not be evaluated at all.
func (m *Matcher) Match(target *kubelka.SpectralCurve, opts Options) (*Result, error) {
	if target == nil {
		return nil, fmt.Errorf("%w: nil target curve", kubelka.ErrInvalidInput)
	}
	grid := m.formulator.Grid()
	if !kubelka.SameGrid(target.Wavelengths(), grid) {
		return nil, fmt.Errorf("%w: target curve and pigment models use different wavelength grids", kubelka.ErrInvalidInput)
	}
	opts, err := opts.withDefaults(m.formulator.Size())
	if err != nil {
		return nil, err
	}

	track := &tracker{bestValue: math.Inf(1)}
	objective := m.boundedObjective(target, opts, track)

	// Seed the tracker so no outcome can be worse than the initial guess.
	objective(opts.Initial)

	var outcome Outcome
	iterations := 0
	for attempt := 0; attempt <= opts.Retries; attempt++ {
		initial := opts.Initial
		if attempt > 0 {
			initial = perturbedInitial(attempt, opts)
		}
		var err error
		outcome, err = opts.Strategy.Minimize(objective, initial, Settings{
			MaxIterations: opts.MaxIterations,
			Tolerance:     opts.Tolerance,
		})
		if err != nil {
			outcome.Status = Failed
		}
		iterations += outcome.Iterations
		if outcome.Status != Failed {
			break
		}
	}

	if track.best == nil {
		if track.lastErr != nil {
			return nil, fmt.Errorf("forward model unusable during match: %w", track.lastErr)
		}
		return nil, fmt.Errorf("%w: no valid iterate produced", kubelka.ErrNumericalDegeneracy)
	}

	prediction, err := m.formulator.Predict(track.best)
	if err != nil {
		return nil, err
	}
	rmse, err := kubelka.RMSE(prediction.Curve, target)
	if err != nil {
		return nil, err
	}
	result := &Result{
		Concentrations: track.best,
		Predicted:      prediction.Curve,
		RMSE:           rmse,
		DeltaE:         math.NaN(),
		Status:         outcome.Status,
		Iterations:     iterations,
		Evaluations:    track.evaluations,
		Extrapolated:   prediction.Extrapolated,
		Clamped:        prediction.Clamped(),
	}
	if opts.DeltaE != nil {
		de, err := opts.DeltaE(prediction.Curve, target)
		if err != nil {
			return nil, fmt.Errorf("deltaE diagnostic: %w", err)
		}
		result.DeltaE = de
	}
	return result, nil
}

// tracker records the best feasible iterate seen across all attempts.
type tracker struct {
	best        []float64
	bestValue   float64
	evaluations int
	lastErr     error
}

// boundedObjective wraps the forward model into an objective defined on all
// of concentration space: trial vectors are projected into the feasible
// region before prediction (the formulator never sees an invalid mixture)
// and the violation distance comes back as a penalty.
func (m *Matcher) boundedObjective(target *kubelka.SpectralCurve, opts Options, track *tracker) Objective {
	return func(x []float64) float64 {
		track.evaluations++
		c, penalty := project(x, opts.Upper, opts.MaxTotal)
		prediction, err := m.formulator.Predict(c)
		if err != nil {
			track.lastErr = err
			return penaltyWeight * (1 + penalty)
		}
		rmse, err := kubelka.RMSE(prediction.Curve, target)
		if err != nil {
			track.lastErr = err
			return penaltyWeight * (1 + penalty)
		}
		if rmse < track.bestValue {
			track.bestValue = rmse
			track.best = slices.Clone(c)
		}
		return rmse + penaltyWeight*penalty
	}
}

// project clamps x into [0, upper] and scales it under the total cap,
// returning the feasible vector and the squared violation distance.
func project(x, upper []float64, maxTotal float64) (c []float64, penalty float64) {
	c = make([]float64, len(x))
	total := 0.0
	for i, v := range x {
		switch {
		case v < 0:
			penalty += v * v
			v = 0
		case v > upper[i]:
			d := v - upper[i]
			penalty += d * d
			v = upper[i]
		}
		c[i] = v
		total += v
	}
	if total > maxTotal {
		d := total - maxTotal
		penalty += d * d
		scale := maxTotal / total
		for i := range c {
			c[i] *= scale
		}
	}
	return c, penalty
}

// perturbedInitial draws a fresh in-bounds starting point for retry n.
// Deterministic per attempt so failed matches reproduce.
func perturbedInitial(n int, opts Options) []float64 {
	rng := rand.New(rand.NewSource(int64(n)))
	x := make([]float64, len(opts.Upper))
	total := 0.0
	for i, u := range opts.Upper {
		x[i] = u * rng.Float64()
		total += x[i]
	}
	if total > opts.MaxTotal {
		scale := opts.MaxTotal / total
		for i := range x {
			x[i] *= scale
		}
	}
	return x
}

func (o Options) withDefaults(size int) (Options, error) {
	if o.Upper == nil {
		o.Upper = make([]float64, size)
		for i := range o.Upper {
			o.Upper[i] = 1
		}
	}
	if len(o.Upper) != size {
		return o, fmt.Errorf("%w: %d upper bounds for %d pigments", kubelka.ErrInvalidInput, len(o.Upper), size)
	}
	for i, u := range o.Upper {
		if u <= 0 || u > 1 {
			return o, fmt.Errorf("%w: upper bound %g at index %d outside (0, 1]", kubelka.ErrInvalidInput, u, i)
		}
	}
	if o.MaxTotal == 0 {
		o.MaxTotal = 1
	}
	if o.MaxTotal <= 0 || o.MaxTotal > 1 {
		return o, fmt.Errorf("%w: total concentration cap %g outside (0, 1]", kubelka.ErrInvalidInput, o.MaxTotal)
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = 200
	}
	if o.MaxIterations < 0 {
		return o, fmt.Errorf("%w: negative iteration budget", kubelka.ErrInvalidInput)
	}
	if o.Tolerance == 0 {
		o.Tolerance = 1e-7
	}
	if o.Tolerance < 0 {
		return o, fmt.Errorf("%w: negative tolerance", kubelka.ErrInvalidInput)
	}
	if o.Retries == 0 {
		o.Retries = 3
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.Strategy == nil {
		o.Strategy = NelderMead{}
	}
	if o.Initial == nil {
		o.Initial = make([]float64, size)
		total := 0.0
		for i, u := range o.Upper {
			o.Initial[i] = u / 2
			total += o.Initial[i]
		}
		if total > o.MaxTotal {
			scale := o.MaxTotal / total
			for i := range o.Initial {
				o.Initial[i] *= scale
			}
		}
		return o, nil
	}
	if len(o.Initial) != size {
		return o, fmt.Errorf("%w: initial guess has %d entries for %d pigments", kubelka.ErrInvalidInput, len(o.Initial), size)
	}
	total := 0.0
	for i, v := range o.Initial {
		if v < 0 || v > o.Upper[i] {
			return o, fmt.Errorf("%w: initial concentration %g at index %d outside [0, %g]",
				kubelka.ErrInvalidInput, v, i, o.Upper[i])
		}
		total += v
	}
	if total > o.MaxTotal+concentrationSlack {
		return o, fmt.Errorf("%w: initial concentrations sum to %g, above the cap %g",
			kubelka.ErrInvalidInput, total, o.MaxTotal)
	}
	return o, nil
}

// concentrationSlack mirrors the forward model's floating point slack.
const concentrationSlack = 1e-9
