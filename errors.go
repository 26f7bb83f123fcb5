package kubelka

import "errors"

// Sentinel errors for the calibration → formulation → matching chain. Callers
// test for them with errors.Is; wrapped messages carry the pigment and
// wavelength context.
var (
	// ErrInsufficientData reports that a calibration series has too few
	// points to support the requested polynomial fit.
	ErrInsufficientData = errors.New("insufficient calibration data")

	// ErrDegenerateFit reports a rank-deficient design matrix, typically
	// all concentrations in a series being identical.
	ErrDegenerateFit = errors.New("degenerate fit")

	// ErrInvalidConcentration reports a concentration vector that is
	// physically meaningless: wrong length, negative entries, or a sum
	// above one.
	ErrInvalidConcentration = errors.New("invalid concentration vector")

	// ErrNumericalDegeneracy reports an undefined Kubelka-Munk inversion,
	// such as zero mixture scattering at some wavelength.
	ErrNumericalDegeneracy = errors.New("numerical degeneracy")

	// ErrInvalidInput reports malformed bounds, initial guesses or
	// mismatched wavelength grids detected before any computation runs.
	ErrInvalidInput = errors.New("invalid input")
)
