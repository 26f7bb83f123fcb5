package calibration

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/colourscience/kubelka"
)

// extrapolationMargin widens the fitted concentration domain by this fraction
// of its span before an evaluation counts as extrapolation.
const extrapolationMargin = 0.01

// CoefficientModel is a fitted polynomial mapping concentration to one
// optical coefficient (K, S or K/S) of one pigment at one wavelength.
// Models are immutable after fitting; re-calibration produces new models.
type CoefficientModel struct {
	pigment    string
	wavelength float64
	coeffs     []float64 // ascending powers
	cmin, cmax float64
	residual   float64
}

// Fit performs a least-squares polynomial regression of observed optical
// values against concentration. The series must hold at least degree+1
// points (else kubelka.ErrInsufficientData) and at least degree+1 distinct
// non-negative concentrations (else kubelka.ErrDegenerateFit).
func Fit(pigment string, wavelength float64, concentrations, values []float64, degree int) (*CoefficientModel, error) {
	if degree < 1 {
		return nil, fmt.Errorf("%w: polynomial degree %d, need at least 1", kubelka.ErrInvalidInput, degree)
	}
	if len(concentrations) != len(values) {
		return nil, fmt.Errorf("%w: %d concentrations but %d values for %s at %gnm",
			kubelka.ErrInvalidInput, len(concentrations), len(values), pigment, wavelength)
	}
	n := len(concentrations)
	if n < degree+1 {
		return nil, fmt.Errorf("%w: %d points for a degree-%d fit of %s at %gnm",
			kubelka.ErrInsufficientData, n, degree, pigment, wavelength)
	}
	cmin, cmax := concentrations[0], concentrations[0]
	distinct := make(map[float64]struct{}, n)
	for _, c := range concentrations {
		if c < 0 {
			return nil, fmt.Errorf("%w: negative concentration %g for %s at %gnm",
				kubelka.ErrInvalidInput, c, pigment, wavelength)
		}
		cmin = math.Min(cmin, c)
		cmax = math.Max(cmax, c)
		distinct[c] = struct{}{}
	}
	if len(distinct) < 2 {
		return nil, fmt.Errorf("%w: all %d concentrations identical for %s at %gnm",
			kubelka.ErrDegenerateFit, n, pigment, wavelength)
	}
	if len(distinct) < degree+1 {
		return nil, fmt.Errorf("%w: %d distinct concentrations cannot support a degree-%d fit for %s at %gnm",
			kubelka.ErrDegenerateFit, len(distinct), degree, pigment, wavelength)
	}

	// Vandermonde design matrix, solved through QR.
	a := mat.NewDense(n, degree+1, nil)
	for i, c := range concentrations {
		p := 1.0
		for j := 0; j <= degree; j++ {
			a.Set(i, j, p)
			p *= c
		}
	}
	b := mat.NewVecDense(n, nil)
	for i, v := range values {
		b.SetVec(i, v)
	}
	var qr mat.QR
	qr.Factorize(a)
	var x mat.VecDense
	if err := qr.SolveVecTo(&x, false, b); err != nil {
		return nil, fmt.Errorf("%w: ill-conditioned design matrix for %s at %gnm: %v",
			kubelka.ErrDegenerateFit, pigment, wavelength, err)
	}

	m := &CoefficientModel{
		pigment:    pigment,
		wavelength: wavelength,
		coeffs:     make([]float64, degree+1),
		cmin:       cmin,
		cmax:       cmax,
	}
	for j := 0; j <= degree; j++ {
		m.coeffs[j] = x.AtVec(j)
	}
	var rss float64
	for i, c := range concentrations {
		d := m.Evaluate(c) - values[i]
		rss += d * d
	}
	m.residual = math.Sqrt(rss / float64(n))
	return m, nil
}

// Evaluate returns the polynomial value at the given concentration. It
// answers outside the fitted domain as well, since inverse search must keep
// receiving predictions; use Extrapolates to flag such calls.
func (m *CoefficientModel) Evaluate(c float64) float64 {
	v := 0.0
	for j := len(m.coeffs) - 1; j >= 0; j-- {
		v = v*c + m.coeffs[j]
	}
	return v
}

// Extrapolates reports whether c lies outside the concentration domain
// observed during calibration, beyond a small margin.
func (m *CoefficientModel) Extrapolates(c float64) bool {
	margin := extrapolationMargin * (m.cmax - m.cmin)
	return c < m.cmin-margin || c > m.cmax+margin
}

// Pigment returns the pigment identifier the model was fitted for.
func (m *CoefficientModel) Pigment() string { return m.pigment }

// Wavelength returns the wavelength the model was fitted at.
func (m *CoefficientModel) Wavelength() float64 { return m.wavelength }

// Degree returns the degree of the fitted polynomial.
func (m *CoefficientModel) Degree() int { return len(m.coeffs) - 1 }

// Coefficients returns a copy of the polynomial coefficients in ascending
// power order.
func (m *CoefficientModel) Coefficients() []float64 {
	c := make([]float64, len(m.coeffs))
	copy(c, m.coeffs)
	return c
}

// Domain returns the minimum and maximum concentration observed during
// calibration.
func (m *CoefficientModel) Domain() (min, max float64) { return m.cmin, m.cmax }

// ResidualRMSE returns the root-mean-square residual of the fit over the
// calibration points.
func (m *CoefficientModel) ResidualRMSE() float64 { return m.residual }
