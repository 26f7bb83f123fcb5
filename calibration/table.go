package calibration

import "slices"

// CalibrationTable is an in-memory table of measured optical values keyed by
// (pigment, wavelength), each key holding parallel concentration/value
// series. It is the hand-off format from upstream measurement processing.
type CalibrationTable struct {
	pigments []string // first-seen order
	index    map[string]map[float64]*series
}

type series struct {
	concentrations []float64
	values         []float64
}

// NewCalibrationTable returns an empty table.
func NewCalibrationTable() *CalibrationTable {
	return &CalibrationTable{index: make(map[string]map[float64]*series)}
}

// Add appends one measured sample for a pigment at a wavelength and
// concentration.
func (t *CalibrationTable) Add(pigment string, wavelength, concentration, value float64) {
	byWavelength, ok := t.index[pigment]
	if !ok {
		byWavelength = make(map[float64]*series)
		t.index[pigment] = byWavelength
		t.pigments = append(t.pigments, pigment)
	}
	s, ok := byWavelength[wavelength]
	if !ok {
		s = &series{}
		byWavelength[wavelength] = s
	}
	s.concentrations = append(s.concentrations, concentration)
	s.values = append(s.values, value)
}

// Pigments returns the pigment identifiers in first-seen order.
func (t *CalibrationTable) Pigments() []string {
	return slices.Clone(t.pigments)
}

// Wavelengths returns the sorted union of wavelengths present in the table.
func (t *CalibrationTable) Wavelengths() []float64 {
	seen := make(map[float64]struct{})
	var grid []float64
	for _, byWavelength := range t.index {
		for w := range byWavelength {
			if _, ok := seen[w]; !ok {
				seen[w] = struct{}{}
				grid = append(grid, w)
			}
		}
	}
	slices.Sort(grid)
	return grid
}

// Series returns copies of the concentration and value series recorded for a
// pigment at a wavelength, or ok=false when none exist.
func (t *CalibrationTable) Series(pigment string, wavelength float64) (concentrations, values []float64, ok bool) {
	s, ok := t.index[pigment][wavelength]
	if !ok {
		return nil, nil, false
	}
	return slices.Clone(s.concentrations), slices.Clone(s.values), true
}
