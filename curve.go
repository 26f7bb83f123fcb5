package kubelka

import "fmt"

// ReflectanceTolerance is the slack allowed on reflectance values outside the
// physical [0, 1] range before a curve is rejected. Measured and fitted
// spectra routinely sit a hair outside the ideal range near the extremes.
const ReflectanceTolerance = 1e-6

// SpectralCurve is a reflectance spectrum sampled on a strictly increasing
// wavelength grid. Curves are immutable once created; every curve compared or
// combined within a session must share the same grid.
type SpectralCurve struct {
	wavelengths  []float64
	reflectances []float64
}

// NewSpectralCurve validates and copies the given samples into a curve.
// The wavelength grid must be non-empty and strictly increasing, and every
// reflectance must lie in [0, 1] within ReflectanceTolerance.
func NewSpectralCurve(wavelengths, reflectances []float64) (*SpectralCurve, error) {
	if len(wavelengths) == 0 {
		return nil, fmt.Errorf("%w: empty wavelength grid", ErrInvalidInput)
	}
	if len(wavelengths) != len(reflectances) {
		return nil, fmt.Errorf("%w: %d wavelengths but %d reflectances", ErrInvalidInput, len(wavelengths), len(reflectances))
	}
	for i := 1; i < len(wavelengths); i++ {
		if wavelengths[i] <= wavelengths[i-1] {
			return nil, fmt.Errorf("%w: wavelength grid not strictly increasing at index %d (%g after %g)",
				ErrInvalidInput, i, wavelengths[i], wavelengths[i-1])
		}
	}
	for i, r := range reflectances {
		if r < -ReflectanceTolerance || r > 1+ReflectanceTolerance {
			return nil, fmt.Errorf("%w: reflectance %g at %gnm outside [0, 1]", ErrInvalidInput, r, wavelengths[i])
		}
	}
	c := &SpectralCurve{
		wavelengths:  make([]float64, len(wavelengths)),
		reflectances: make([]float64, len(reflectances)),
	}
	copy(c.wavelengths, wavelengths)
	copy(c.reflectances, reflectances)
	return c, nil
}

// Len returns the number of samples in the curve.
func (c *SpectralCurve) Len() int { return len(c.wavelengths) }

// Wavelength returns the wavelength of sample i.
func (c *SpectralCurve) Wavelength(i int) float64 { return c.wavelengths[i] }

// Reflectance returns the reflectance of sample i.
func (c *SpectralCurve) Reflectance(i int) float64 { return c.reflectances[i] }

// Wavelengths returns a copy of the wavelength grid.
func (c *SpectralCurve) Wavelengths() []float64 {
	w := make([]float64, len(c.wavelengths))
	copy(w, c.wavelengths)
	return w
}

// Reflectances returns a copy of the reflectance values.
func (c *SpectralCurve) Reflectances() []float64 {
	r := make([]float64, len(c.reflectances))
	copy(r, c.reflectances)
	return r
}

// SameGrid reports whether both curves use an identical wavelength grid.
func (c *SpectralCurve) SameGrid(o *SpectralCurve) bool {
	return SameGrid(c.wavelengths, o.wavelengths)
}

// SameGrid reports whether two wavelength grids are identical.
func SameGrid(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
