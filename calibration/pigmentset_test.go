package calibration

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/colourscience/kubelka"
)

var testGrid = []float64{400, 500, 600}

// fillTable adds a series for every pigment and wavelength with values
// generated by gen(pigment index, wavelength, concentration).
func fillTable(t *CalibrationTable, pigments []string, concentrations []float64, gen func(pi, w, c float64) float64) {
	for pi, p := range pigments {
		for _, w := range testGrid {
			for _, c := range concentrations {
				t.Add(p, w, c, gen(float64(pi), w, c))
			}
		}
	}
}

func TestFitPigmentSet(t *testing.T) {
	pigments := []string{"RED", "YELLOW"}
	concentrations := []float64{0, 0.1, 0.2, 0.3}
	k := NewCalibrationTable()
	s := NewCalibrationTable()
	fillTable(k, pigments, concentrations, func(pi, w, c float64) float64 { return (1 + pi) * c * w / 500 })
	fillTable(s, pigments, concentrations, func(pi, w, c float64) float64 { return 1 + 0.5*c })

	set, failures, err := FitPigmentSet(k, s, FitOptions{Degree: 2})
	require.NoError(t, err)
	require.Empty(t, failures)
	require.Equal(t, TwoConstant, set.Kind())
	require.Equal(t, 2, set.Size())
	require.Equal(t, pigments, set.Pigments())
	require.Equal(t, testGrid, set.Grid())

	// Fitted models reproduce the generating functions.
	for pi := range pigments {
		for wi, w := range testGrid {
			km := set.KModel(pi, wi)
			sm := set.SModel(pi, wi)
			require.NotNil(t, km)
			require.NotNil(t, sm)
			require.InDelta(t, (1+float64(pi))*0.25*w/500, km.Evaluate(0.25), 1e-9)
			require.InDelta(t, 1+0.5*0.25, sm.Evaluate(0.25), 1e-9)
		}
	}
}

func TestFitPigmentSet_PartialFailure(t *testing.T) {
	concentrations := []float64{0, 0.1, 0.2}
	k := NewCalibrationTable()
	s := NewCalibrationTable()
	fillTable(k, []string{"GOOD"}, concentrations, func(pi, w, c float64) float64 { return c })
	fillTable(s, []string{"GOOD"}, concentrations, func(pi, w, c float64) float64 { return 1 })
	// All-identical concentrations make every fit of BAD degenerate.
	fillTable(k, []string{"BAD"}, []float64{0.1, 0.1, 0.1}, func(pi, w, c float64) float64 { return c })
	fillTable(s, []string{"BAD"}, []float64{0.1, 0.1, 0.1}, func(pi, w, c float64) float64 { return 1 })

	set, failures, err := FitPigmentSet(k, s, FitOptions{Degree: 1})
	require.NoError(t, err)
	require.Equal(t, 1, set.Size())
	require.Equal(t, []string{"GOOD"}, set.Pigments())

	// One failure per (wavelength, table) of the bad pigment.
	require.Len(t, failures, 2*len(testGrid))
	for _, f := range failures {
		require.Equal(t, "BAD", f.Pigment)
		require.ErrorIs(t, f.Err, kubelka.ErrDegenerateFit)
		require.Contains(t, f.String(), "BAD")
	}
}

func TestFitPigmentSet_MismatchedTables(t *testing.T) {
	concentrations := []float64{0, 0.1}
	k := NewCalibrationTable()
	s := NewCalibrationTable()
	fillTable(k, []string{"RED"}, concentrations, func(pi, w, c float64) float64 { return c })
	fillTable(s, []string{"BLUE"}, concentrations, func(pi, w, c float64) float64 { return 1 })

	_, _, err := FitPigmentSet(k, s, FitOptions{Degree: 1})
	require.ErrorIs(t, err, kubelka.ErrInvalidInput)
}

func TestFitPigmentSet_NilAndEmpty(t *testing.T) {
	_, _, err := FitPigmentSet(nil, NewCalibrationTable(), FitOptions{})
	require.ErrorIs(t, err, kubelka.ErrInvalidInput)

	_, _, err = FitPigmentSet(NewCalibrationTable(), NewCalibrationTable(), FitOptions{})
	require.ErrorIs(t, err, kubelka.ErrInvalidInput)
}

func TestFitPigmentSetKS(t *testing.T) {
	ks := NewCalibrationTable()
	fillTable(ks, []string{"RED"}, []float64{0, 0.2, 0.4}, func(pi, w, c float64) float64 { return 0.5 * c })

	set, failures, err := FitPigmentSetKS(ks, FitOptions{Degree: 1})
	require.NoError(t, err)
	require.Empty(t, failures)
	require.Equal(t, SingleConstant, set.Kind())
	require.Equal(t, 1, set.Size())
	require.Nil(t, set.SModel(0, 0))
	require.InDelta(t, 0.15, set.KModel(0, 1).Evaluate(0.3), 1e-9)
}

func TestCalibrationTable(t *testing.T) {
	tab := NewCalibrationTable()
	tab.Add("RED", 500, 0.1, 2)
	tab.Add("RED", 500, 0.2, 3)
	tab.Add("RED", 400, 0.1, 1)
	tab.Add("BLUE", 500, 0.1, 4)

	require.Equal(t, []string{"RED", "BLUE"}, tab.Pigments())
	require.Equal(t, []float64{400, 500}, tab.Wavelengths())

	concentrations, values, ok := tab.Series("RED", 500)
	require.True(t, ok)
	require.Equal(t, []float64{0.1, 0.2}, concentrations)
	require.Equal(t, []float64{2.0, 3.0}, values)

	_, _, ok = tab.Series("BLUE", 400)
	require.False(t, ok)
}
