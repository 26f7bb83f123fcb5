package calibration

import (
	"fmt"
	"slices"

	parallel "github.com/kovidgoyal/go-parallel"

	"github.com/colourscience/kubelka"
)

// Kind selects which optical quantities a PigmentSet models.
type Kind int

const (
	// TwoConstant sets carry separate K and S models per wavelength.
	TwoConstant Kind = iota
	// SingleConstant sets carry one K/S model per wavelength.
	SingleConstant
)

// FitOptions configures a batch fit.
type FitOptions struct {
	// Degree of the fitted polynomials. Defaults to 2; low orders avoid
	// over-fitting sparse calibration series.
	Degree int
	// Workers bounds the number of goroutines fitting models. Zero uses
	// one per CPU.
	Workers int
}

func (o FitOptions) withDefaults() FitOptions {
	if o.Degree == 0 {
		o.Degree = 2
	}
	return o
}

// FitFailure records one (pigment, wavelength) model that could not be
// fitted. Failures are isolated: they never abort the remaining fits.
type FitFailure struct {
	Pigment    string
	Wavelength float64
	Err        error
}

func (f FitFailure) String() string {
	return fmt.Sprintf("%s at %gnm: %v", f.Pigment, f.Wavelength, f.Err)
}

type pigmentModels struct {
	name string
	k    []*CoefficientModel // indexed by grid position; K/S models for SingleConstant sets
	s    []*CoefficientModel // nil for SingleConstant sets
}

// PigmentSet is an ordered, immutable collection of pigments with their
// fitted CoefficientModels on a shared wavelength grid. Concentration
// vectors are indexed positionally against it. A PigmentSet is safe for
// concurrent use once built.
type PigmentSet struct {
	kind     Kind
	grid     []float64
	pigments []pigmentModels
}

// FitPigmentSet fits K and S models for every (pigment, wavelength) pair in
// the two tables and assembles the results into a TwoConstant PigmentSet.
// Both tables must cover the same pigments and wavelengths. Pairs that fail
// to fit are reported in the failure list and their pigment is left out of
// the set rather than aborting the batch.
func FitPigmentSet(k, s *CalibrationTable, opts FitOptions) (*PigmentSet, []FitFailure, error) {
	if k == nil || s == nil {
		return nil, nil, fmt.Errorf("%w: nil calibration table", kubelka.ErrInvalidInput)
	}
	return fitTables([]*CalibrationTable{k, s}, TwoConstant, opts)
}

// FitPigmentSetKS fits one K/S model per (pigment, wavelength) pair and
// assembles a SingleConstant PigmentSet.
func FitPigmentSetKS(ks *CalibrationTable, opts FitOptions) (*PigmentSet, []FitFailure, error) {
	if ks == nil {
		return nil, nil, fmt.Errorf("%w: nil calibration table", kubelka.ErrInvalidInput)
	}
	return fitTables([]*CalibrationTable{ks}, SingleConstant, opts)
}

type fitJob struct {
	pigment    int
	wavelength int
	table      int
}

func fitTables(tables []*CalibrationTable, kind Kind, opts FitOptions) (*PigmentSet, []FitFailure, error) {
	opts = opts.withDefaults()

	names := tables[0].Pigments()
	grid := tables[0].Wavelengths()
	if len(names) == 0 || len(grid) == 0 {
		return nil, nil, fmt.Errorf("%w: empty calibration table", kubelka.ErrInvalidInput)
	}
	for _, t := range tables[1:] {
		if !slices.Equal(names, t.Pigments()) {
			return nil, nil, fmt.Errorf("%w: calibration tables cover different pigments", kubelka.ErrInvalidInput)
		}
		if !slices.Equal(grid, t.Wavelengths()) {
			return nil, nil, fmt.Errorf("%w: calibration tables use different wavelength grids", kubelka.ErrInvalidInput)
		}
	}

	var jobs []fitJob
	for pi := range names {
		for wi := range grid {
			for ti := range tables {
				jobs = append(jobs, fitJob{pigment: pi, wavelength: wi, table: ti})
			}
		}
	}

	// Each job writes only its own slot, so the fits can run fully in
	// parallel without coordination.
	models := make([]*CoefficientModel, len(jobs))
	errs := make([]error, len(jobs))
	run := func(start, limit int) {
		for idx := start; idx < limit; idx++ {
			j := jobs[idx]
			name, w := names[j.pigment], grid[j.wavelength]
			concentrations, values, ok := tables[j.table].Series(name, w)
			if !ok {
				errs[idx] = fmt.Errorf("%w: no samples for %s at %gnm", kubelka.ErrInsufficientData, name, w)
				continue
			}
			models[idx], errs[idx] = Fit(name, w, concentrations, values, opts.Degree)
		}
	}
	if err := parallel.Run_in_parallel_over_range(opts.Workers, run, 0, len(jobs)); err != nil {
		return nil, nil, err
	}

	var failures []FitFailure
	failed := make([]bool, len(names))
	fitted := make([][][]*CoefficientModel, len(names)) // [pigment][table][wavelength]
	for pi := range names {
		fitted[pi] = make([][]*CoefficientModel, len(tables))
		for ti := range tables {
			fitted[pi][ti] = make([]*CoefficientModel, len(grid))
		}
	}
	for idx, j := range jobs {
		if errs[idx] != nil {
			failures = append(failures, FitFailure{Pigment: names[j.pigment], Wavelength: grid[j.wavelength], Err: errs[idx]})
			failed[j.pigment] = true
			continue
		}
		fitted[j.pigment][j.table][j.wavelength] = models[idx]
	}

	set := &PigmentSet{kind: kind, grid: grid}
	for pi, name := range names {
		if failed[pi] {
			continue
		}
		pm := pigmentModels{name: name, k: fitted[pi][0]}
		if kind == TwoConstant {
			pm.s = fitted[pi][1]
		}
		set.pigments = append(set.pigments, pm)
	}
	return set, failures, nil
}

// Kind returns which optical quantities the set models.
func (ps *PigmentSet) Kind() Kind { return ps.kind }

// Size returns the number of pigments in the set.
func (ps *PigmentSet) Size() int { return len(ps.pigments) }

// Pigments returns the pigment identifiers in positional order.
func (ps *PigmentSet) Pigments() []string {
	names := make([]string, len(ps.pigments))
	for i, p := range ps.pigments {
		names[i] = p.name
	}
	return names
}

// Grid returns a copy of the shared wavelength grid.
func (ps *PigmentSet) Grid() []float64 {
	return slices.Clone(ps.grid)
}

// GridLen returns the number of wavelengths in the shared grid.
func (ps *PigmentSet) GridLen() int { return len(ps.grid) }

// KModel returns the K model (or the K/S model of a SingleConstant set) of
// pigment i at grid position wi.
func (ps *PigmentSet) KModel(i, wi int) *CoefficientModel { return ps.pigments[i].k[wi] }

// SModel returns the S model of pigment i at grid position wi. It is nil for
// SingleConstant sets.
func (ps *PigmentSet) SModel(i, wi int) *CoefficientModel {
	if ps.kind == SingleConstant {
		return nil
	}
	return ps.pigments[i].s[wi]
}
