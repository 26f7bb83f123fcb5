package calibration

import (
	"fmt"
	"math"

	"github.com/colourscience/kubelka"
)

// Monochrome calibration measures films of a single pigment at several
// concentrations, each film over a dark and a light background. Inverting
// the general Kubelka-Munk relation on the two readings yields, per
// wavelength, the film's absorption and scattering for that concentration;
// dividing by the concentration gives the per-unit coefficients the mixing
// law weights by concentration. Those series are what the polynomial
// regressions are fitted to.

// MonochromeSeries holds the measurements for one pigment: films at
// len(Concentrations) concentrations, each measured over both backgrounds.
// OverDark and OverLight are indexed [concentration][wavelength].
type MonochromeSeries struct {
	Pigment        string
	Wavelengths    []float64
	Concentrations []float64
	OverDark       [][]float64
	OverLight      [][]float64
}

// Backgrounds holds the measured reflectance of the contrast card the films
// were drawn over, per wavelength. Nil slices select an ideal card: zero
// reflectance behind the dark half, full reflectance behind the light half.
type Backgrounds struct {
	Dark  []float64
	Light []float64
}

func (b Backgrounds) at(wi int) (dark, light float64) {
	dark, light = 0, 1
	if b.Dark != nil {
		dark = b.Dark[wi]
	}
	if b.Light != nil {
		light = b.Light[wi]
	}
	return dark, light
}

// MonochromeTables is the reduction output, ready for FitPigmentSet or
// FitPigmentSetKS.
type MonochromeTables struct {
	K  *CalibrationTable
	S  *CalibrationTable
	KS *CalibrationTable
}

// ReduceMonochrome derives per-unit-concentration K, S and K/S calibration
// series from dual-background monochrome measurements. Concentrations must
// be strictly positive; the unpigmented base is calibrated with ReduceBase
// instead. Each (concentration, wavelength) cell reduces independently; a
// cell where the inversion is undefined aborts with
// kubelka.ErrNumericalDegeneracy naming the wavelength.
func ReduceMonochrome(series MonochromeSeries, bg Backgrounds) (MonochromeTables, error) {
	out := MonochromeTables{
		K:  NewCalibrationTable(),
		S:  NewCalibrationTable(),
		KS: NewCalibrationTable(),
	}
	if err := series.validate(bg); err != nil {
		return out, err
	}
	for ci, c := range series.Concentrations {
		for wi, w := range series.Wavelengths {
			rgk, rgw := bg.at(wi)
			kx, sx, err := reduceCell(series.OverDark[ci][wi], series.OverLight[ci][wi], rgk, rgw)
			if err != nil {
				return out, fmt.Errorf("%s at %gnm, concentration %g: %w", series.Pigment, w, c, err)
			}
			out.K.Add(series.Pigment, w, c, kx/c)
			out.S.Add(series.Pigment, w, c, sx/c)
			out.KS.Add(series.Pigment, w, c, kx/sx/c)
		}
	}
	return out, nil
}

// ReduceBase derives the fixed K and S curves of an unpigmented base (the
// medium) from a single dual-background measurement. The result plugs
// directly into the formulate package's medium term.
func ReduceBase(wavelengths, overDark, overLight []float64, bg Backgrounds) (k, s []float64, err error) {
	if len(overDark) != len(wavelengths) || len(overLight) != len(wavelengths) {
		return nil, nil, fmt.Errorf("%w: base measurement length does not match wavelength grid", kubelka.ErrInvalidInput)
	}
	k = make([]float64, len(wavelengths))
	s = make([]float64, len(wavelengths))
	for wi, w := range wavelengths {
		rgk, rgw := bg.at(wi)
		k[wi], s[wi], err = reduceCell(overDark[wi], overLight[wi], rgk, rgw)
		if err != nil {
			return nil, nil, fmt.Errorf("base at %gnm: %w", w, err)
		}
	}
	return k, s, nil
}

// reduceCell inverts the two-background Kubelka-Munk relation for one film:
// rk and rw are the film readings over the dark and light card halves with
// reflectances rgk and rgw.
func reduceCell(rk, rw, rgk, rgw float64) (kx, sx float64, err error) {
	den := 2 * (rw*rgk - rk*rgw)
	if den == 0 {
		return 0, 0, fmt.Errorf("%w: film indistinguishable from background", kubelka.ErrNumericalDegeneracy)
	}
	a := ((rw-rk)*(1+rgw*rgk) - (rgw-rgk)*(1+rw*rk)) / den
	// a must exceed 1 or b vanishes; measurement noise can land exactly on
	// the boundary.
	if a < 1+1e-10 {
		a = 1 + 1e-10
	}
	b := math.Sqrt(a*a - 1)
	if rk == rgk {
		return 0, 0, fmt.Errorf("%w: dark reading equals dark background", kubelka.ErrNumericalDegeneracy)
	}
	arg := (1 - a*(rk+rgk) + rk*rgk) / (b * (rk - rgk))
	if math.Abs(arg) <= 1 {
		return 0, 0, fmt.Errorf("%w: acoth argument %g inside [-1, 1]", kubelka.ErrNumericalDegeneracy, arg)
	}
	sx = kubelka.Acoth(arg) / b
	if sx <= 0 || math.IsNaN(sx) || math.IsInf(sx, 0) {
		return 0, 0, fmt.Errorf("%w: non-physical scattering %g", kubelka.ErrNumericalDegeneracy, sx)
	}
	return sx * (a - 1), sx, nil
}

func (s MonochromeSeries) validate(bg Backgrounds) error {
	if len(s.Wavelengths) == 0 {
		return fmt.Errorf("%w: empty wavelength grid", kubelka.ErrInvalidInput)
	}
	for i := 1; i < len(s.Wavelengths); i++ {
		if s.Wavelengths[i] <= s.Wavelengths[i-1] {
			return fmt.Errorf("%w: wavelength grid not strictly increasing", kubelka.ErrInvalidInput)
		}
	}
	if len(s.Concentrations) == 0 {
		return fmt.Errorf("%w: no concentrations in monochrome series for %s", kubelka.ErrInsufficientData, s.Pigment)
	}
	for _, c := range s.Concentrations {
		if c <= 0 {
			return fmt.Errorf("%w: non-positive concentration %g in monochrome series for %s; calibrate the base with ReduceBase",
				kubelka.ErrInvalidInput, c, s.Pigment)
		}
	}
	if len(s.OverDark) != len(s.Concentrations) || len(s.OverLight) != len(s.Concentrations) {
		return fmt.Errorf("%w: measurement rows do not match concentrations for %s", kubelka.ErrInvalidInput, s.Pigment)
	}
	for ci := range s.Concentrations {
		if len(s.OverDark[ci]) != len(s.Wavelengths) || len(s.OverLight[ci]) != len(s.Wavelengths) {
			return fmt.Errorf("%w: measurement row %d does not match wavelength grid for %s", kubelka.ErrInvalidInput, ci, s.Pigment)
		}
	}
	for _, card := range [][]float64{bg.Dark, bg.Light} {
		if card != nil && len(card) != len(s.Wavelengths) {
			return fmt.Errorf("%w: background card does not match wavelength grid", kubelka.ErrInvalidInput)
		}
	}
	return nil
}
