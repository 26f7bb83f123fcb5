/*
Package formulate evaluates the forward Kubelka-Munk mixture model: given a
calibrated pigment set and a concentration vector it predicts the reflectance
curve of the mixture.
*/
package formulate

import (
	"fmt"
	"math"

	"github.com/colourscience/kubelka"
	"github.com/colourscience/kubelka/calibration"
)

// concentrationSlack absorbs floating point noise on the validity checks of
// concentration vectors.
const concentrationSlack = 1e-9

// smixFloor is the smallest mixture scattering for which the K/S inversion
// is still attempted.
const smixFloor = 1e-12

// Medium holds the fixed optical coefficients of the unpigmented medium
// (substrate/base), sampled on the pigment set's wavelength grid. Its
// contribution is weighted by the concentration remainder 1 - Σc. K and S
// feed TwoConstant sets; KS feeds SingleConstant sets.
type Medium struct {
	K  []float64
	S  []float64
	KS []float64
}

// Formulator predicts mixture reflectance from pigment concentrations. It is
// a pure evaluator: it never mutates the pigment set or the medium and is
// safe for concurrent use.
type Formulator struct {
	set    *calibration.PigmentSet
	grid   []float64
	medium *Medium
}

// Prediction is the forward model output: the predicted curve plus the
// non-fatal diagnostics accumulated while producing it.
type Prediction struct {
	Curve *kubelka.SpectralCurve
	// Extrapolated reports that at least one coefficient model was
	// evaluated outside its calibrated concentration domain.
	Extrapolated bool
	// ClampedWavelengths lists the wavelengths where the computed
	// reflectance fell outside [0, 1] and was clamped.
	ClampedWavelengths []float64
}

// Clamped reports whether any wavelength needed clamping.
func (p *Prediction) Clamped() bool { return len(p.ClampedWavelengths) > 0 }

// New builds a Formulator over a fitted pigment set. medium is optional: nil
// means the mixture has no baseline term and the concentration remainder
// contributes nothing.
func New(set *calibration.PigmentSet, medium *Medium) (*Formulator, error) {
	if set == nil || set.Size() == 0 {
		return nil, fmt.Errorf("%w: empty pigment set", kubelka.ErrInvalidInput)
	}
	grid := set.Grid()
	if medium != nil {
		switch set.Kind() {
		case calibration.TwoConstant:
			if len(medium.K) != len(grid) || len(medium.S) != len(grid) {
				return nil, fmt.Errorf("%w: medium K/S curves do not match the wavelength grid", kubelka.ErrInvalidInput)
			}
		case calibration.SingleConstant:
			if len(medium.KS) != len(grid) {
				return nil, fmt.Errorf("%w: medium K/S ratio curve does not match the wavelength grid", kubelka.ErrInvalidInput)
			}
		}
	}
	return &Formulator{set: set, grid: grid, medium: medium}, nil
}

// Grid returns a copy of the wavelength grid predictions are produced on.
func (f *Formulator) Grid() []float64 {
	grid := make([]float64, len(f.grid))
	copy(grid, f.grid)
	return grid
}

// Size returns the number of pigments a concentration vector must cover.
func (f *Formulator) Size() int { return f.set.Size() }

// Predict evaluates the mixture reflectance of an opaque film for the given
// concentration vector. Per wavelength the pigment models are evaluated at
// their concentrations, combined into K_mix and S_mix weighted by
// concentration (with the medium weighted by the remainder), and pushed
// through the closed-form Kubelka-Munk transform.
func (f *Formulator) Predict(concentrations []float64) (*Prediction, error) {
	total, err := f.validate(concentrations)
	if err != nil {
		return nil, err
	}
	p := &Prediction{}
	reflectances := make([]float64, len(f.grid))
	for wi, w := range f.grid {
		ks, err := f.mixtureKS(concentrations, total, wi, w, p)
		if err != nil {
			return nil, err
		}
		r, clamped := kubelka.ReflectanceInfiniteFilm(ks)
		if clamped {
			p.ClampedWavelengths = append(p.ClampedWavelengths, w)
		}
		reflectances[wi] = r
	}
	p.Curve, err = kubelka.NewSpectralCurve(f.grid, reflectances)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// PredictOver evaluates the mixture reflectance of a film of calibrated
// thickness over a background of known reflectance, using the general
// hyperbolic Kubelka-Munk form. Only TwoConstant sets support it: the
// general form needs K and S separately.
func (f *Formulator) PredictOver(concentrations, background []float64) (*Prediction, error) {
	if f.set.Kind() != calibration.TwoConstant {
		return nil, fmt.Errorf("%w: background-aware prediction needs separate K and S models", kubelka.ErrInvalidInput)
	}
	if len(background) != len(f.grid) {
		return nil, fmt.Errorf("%w: background curve has %d samples, grid has %d",
			kubelka.ErrInvalidInput, len(background), len(f.grid))
	}
	for wi, rg := range background {
		if rg < -kubelka.ReflectanceTolerance || rg > 1+kubelka.ReflectanceTolerance {
			return nil, fmt.Errorf("%w: background reflectance %g at %gnm outside [0, 1]",
				kubelka.ErrInvalidInput, rg, f.grid[wi])
		}
	}
	total, err := f.validate(concentrations)
	if err != nil {
		return nil, err
	}
	p := &Prediction{}
	reflectances := make([]float64, len(f.grid))
	for wi, w := range f.grid {
		kmix, smix := f.mixtureKandS(concentrations, total, wi, p)
		if smix < smixFloor {
			return nil, fmt.Errorf("%w: mixture scattering %g at %gnm", kubelka.ErrNumericalDegeneracy, smix, w)
		}
		r, clamped := kubelka.ReflectanceOverBackground(background[wi], kmix, smix)
		if clamped {
			p.ClampedWavelengths = append(p.ClampedWavelengths, w)
		}
		reflectances[wi] = r
	}
	p.Curve, err = kubelka.NewSpectralCurve(f.grid, reflectances)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (f *Formulator) mixtureKS(concentrations []float64, total float64, wi int, w float64, p *Prediction) (float64, error) {
	if f.set.Kind() == calibration.SingleConstant {
		ks := 0.0
		for i, c := range concentrations {
			if c <= 0 {
				continue
			}
			m := f.set.KModel(i, wi)
			if m.Extrapolates(c) {
				p.Extrapolated = true
			}
			ks += c * m.Evaluate(c)
		}
		if f.medium != nil {
			ks += (1 - total) * f.medium.KS[wi]
		}
		return ks, nil
	}
	kmix, smix := f.mixtureKandS(concentrations, total, wi, p)
	if smix < smixFloor {
		return 0, fmt.Errorf("%w: mixture scattering %g at %gnm", kubelka.ErrNumericalDegeneracy, smix, w)
	}
	return kmix / smix, nil
}

func (f *Formulator) mixtureKandS(concentrations []float64, total float64, wi int, p *Prediction) (kmix, smix float64) {
	for i, c := range concentrations {
		if c <= 0 {
			continue
		}
		km, sm := f.set.KModel(i, wi), f.set.SModel(i, wi)
		if km.Extrapolates(c) || sm.Extrapolates(c) {
			p.Extrapolated = true
		}
		kmix += c * km.Evaluate(c)
		smix += c * sm.Evaluate(c)
	}
	if f.medium != nil {
		kmix += (1 - total) * f.medium.K[wi]
		smix += (1 - total) * f.medium.S[wi]
	}
	return kmix, smix
}

func (f *Formulator) validate(concentrations []float64) (total float64, err error) {
	if len(concentrations) != f.set.Size() {
		return 0, fmt.Errorf("%w: %d concentrations for %d pigments",
			kubelka.ErrInvalidConcentration, len(concentrations), f.set.Size())
	}
	for i, c := range concentrations {
		if c < -concentrationSlack {
			return 0, fmt.Errorf("%w: negative concentration %g at index %d", kubelka.ErrInvalidConcentration, c, i)
		}
		total += math.Max(c, 0)
	}
	if total > 1+concentrationSlack {
		return 0, fmt.Errorf("%w: concentrations sum to %g, above 1", kubelka.ErrInvalidConcentration, total)
	}
	return total, nil
}
