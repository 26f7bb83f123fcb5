package formulate

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/colourscience/kubelka"
	"github.com/colourscience/kubelka/calibration"
)

var testGrid = []float64{400, 500, 600, 700}

var fitConcentrations = []float64{0, 0.2, 0.4, 0.6}

// buildSet fits a TwoConstant pigment set from generator functions for the
// unit coefficients, over testGrid and fitConcentrations.
func buildSet(t *testing.T, pigments []string, k, s func(w, c float64) float64) *calibration.PigmentSet {
	t.Helper()
	kTab := calibration.NewCalibrationTable()
	sTab := calibration.NewCalibrationTable()
	for _, p := range pigments {
		for _, w := range testGrid {
			for _, c := range fitConcentrations {
				kTab.Add(p, w, c, k(w, c))
				sTab.Add(p, w, c, s(w, c))
			}
		}
	}
	set, failures, err := calibration.FitPigmentSet(kTab, sTab, calibration.FitOptions{Degree: 2})
	require.NoError(t, err)
	require.Empty(t, failures)
	return set
}

func unitMedium() *Medium {
	m := &Medium{K: make([]float64, len(testGrid)), S: make([]float64, len(testGrid))}
	for i := range m.S {
		m.S[i] = 1
	}
	return m
}

func one(w, c float64) float64 { return 1 }

func TestPredict_FlatMixtureByHand(t *testing.T) {
	// Two pigments with unit coefficients K=1 and S=1, concentrations
	// [0.3, 0.2] and a non-scattering medium give K_mix = 0.5, S_mix = 1
	// and R = 1.5 - sqrt(1.25) at every wavelength.
	set := buildSet(t, []string{"A", "B"}, one, one)
	f, err := New(set, unitMedium())
	require.NoError(t, err)

	p, err := f.Predict([]float64{0.3, 0.2})
	require.NoError(t, err)
	require.False(t, p.Extrapolated)
	require.False(t, p.Clamped())

	want := make([]float64, len(testGrid))
	for i := range want {
		want[i] = 1.5 - math.Sqrt(1.25)
	}
	if diff := cmp.Diff(want, p.Curve.Reflectances(), cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Fatalf("predicted curve mismatch (-want +got):\n%s", diff)
	}
}

func TestPredict_Idempotent(t *testing.T) {
	set := buildSet(t, []string{"A", "B"},
		func(w, c float64) float64 { return 0.3 + c + w/2000 },
		func(w, c float64) float64 { return 1 + 0.2*c },
	)
	f, err := New(set, unitMedium())
	require.NoError(t, err)

	first, err := f.Predict([]float64{0.25, 0.1})
	require.NoError(t, err)
	second, err := f.Predict([]float64{0.25, 0.1})
	require.NoError(t, err)

	if diff := cmp.Diff(first.Curve.Reflectances(), second.Curve.Reflectances()); diff != "" {
		t.Fatalf("predict is not pure (-first +second):\n%s", diff)
	}
}

func TestPredict_ReflectanceStaysPhysical(t *testing.T) {
	set := buildSet(t, []string{"A", "B"},
		func(w, c float64) float64 { return 0.1 + 3*c },
		func(w, c float64) float64 { return 1 + c },
	)
	f, err := New(set, unitMedium())
	require.NoError(t, err)

	steps := []float64{0, 0.1, 0.3, 0.5}
	for _, c1 := range steps {
		for _, c2 := range steps {
			if c1+c2 > 1 {
				continue
			}
			p, err := f.Predict([]float64{c1, c2})
			require.NoError(t, err)
			for i := 0; i < p.Curve.Len(); i++ {
				r := p.Curve.Reflectance(i)
				require.GreaterOrEqual(t, r, 0.0, "c=[%g %g]", c1, c2)
				require.LessOrEqual(t, r, 1.0, "c=[%g %g]", c1, c2)
			}
		}
	}
}

func TestPredict_NoMedium(t *testing.T) {
	// Without a medium the concentration remainder contributes nothing:
	// K_mix = S_mix = 0.5 and K/S = 1.
	set := buildSet(t, []string{"A", "B"}, one, one)
	f, err := New(set, nil)
	require.NoError(t, err)

	p, err := f.Predict([]float64{0.3, 0.2})
	require.NoError(t, err)
	require.InDelta(t, 2-math.Sqrt(3), p.Curve.Reflectance(0), 1e-9)
}

func TestPredict_InvalidConcentrations(t *testing.T) {
	set := buildSet(t, []string{"A", "B"}, one, one)
	f, err := New(set, unitMedium())
	require.NoError(t, err)

	cases := []struct {
		name string
		c    []float64
	}{
		{"wrong length", []float64{0.3}},
		{"negative entry", []float64{-0.1, 0.2}},
		{"sum above one", []float64{0.7, 0.5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.Predict(tc.c)
			require.ErrorIs(t, err, kubelka.ErrInvalidConcentration)
		})
	}
}

func TestPredict_ZeroScattering(t *testing.T) {
	set := buildSet(t, []string{"A"}, one, func(w, c float64) float64 { return 0 })
	f, err := New(set, nil)
	require.NoError(t, err)

	_, err = f.Predict([]float64{0.5})
	require.ErrorIs(t, err, kubelka.ErrNumericalDegeneracy)
	require.Contains(t, err.Error(), "400")
}

func TestPredict_ClampDiagnostic(t *testing.T) {
	// A negative absorption fit pushes K/S below zero; the transform clamps
	// and flags instead of failing.
	set := buildSet(t, []string{"A"}, func(w, c float64) float64 { return -0.1 }, one)
	f, err := New(set, nil)
	require.NoError(t, err)

	p, err := f.Predict([]float64{0.5})
	require.NoError(t, err)
	require.True(t, p.Clamped())
	require.Len(t, p.ClampedWavelengths, len(testGrid))
	for i := 0; i < p.Curve.Len(); i++ {
		require.InDelta(t, 1.0, p.Curve.Reflectance(i), 1e-12)
	}
}

func TestPredict_ExtrapolationDiagnostic(t *testing.T) {
	set := buildSet(t, []string{"A", "B"}, one, one)
	f, err := New(set, unitMedium())
	require.NoError(t, err)

	// Fitted domain tops out at 0.6.
	p, err := f.Predict([]float64{0.9, 0})
	require.NoError(t, err)
	require.True(t, p.Extrapolated)
}

func TestPredictOver_MatchesGeneralForm(t *testing.T) {
	set := buildSet(t, []string{"A", "B"}, one, one)
	f, err := New(set, unitMedium())
	require.NoError(t, err)

	background := []float64{0, 0.3, 0.6, 0.9}
	p, err := f.PredictOver([]float64{0.3, 0.2}, background)
	require.NoError(t, err)

	for i, rg := range background {
		want, _ := kubelka.ReflectanceOverBackground(rg, 0.5, 1)
		require.InDelta(t, want, p.Curve.Reflectance(i), 1e-9)
	}
}

func TestPredictOver_Invalid(t *testing.T) {
	set := buildSet(t, []string{"A"}, one, one)
	f, err := New(set, nil)
	require.NoError(t, err)

	_, err = f.PredictOver([]float64{0.3}, []float64{0.5})
	require.ErrorIs(t, err, kubelka.ErrInvalidInput)

	_, err = f.PredictOver([]float64{0.3}, []float64{0.5, 0.5, 0.5, 1.5})
	require.ErrorIs(t, err, kubelka.ErrInvalidInput)
}

func TestSingleConstantSet(t *testing.T) {
	ks := calibration.NewCalibrationTable()
	for _, w := range testGrid {
		for _, c := range fitConcentrations {
			ks.Add("A", w, c, 1)
		}
	}
	set, failures, err := calibration.FitPigmentSetKS(ks, calibration.FitOptions{Degree: 1})
	require.NoError(t, err)
	require.Empty(t, failures)

	f, err := New(set, &Medium{KS: make([]float64, len(testGrid))})
	require.NoError(t, err)

	p, err := f.Predict([]float64{0.5})
	require.NoError(t, err)
	want, _ := kubelka.ReflectanceInfiniteFilm(0.5)
	require.InDelta(t, want, p.Curve.Reflectance(0), 1e-9)

	// The general background form needs K and S separately.
	_, err = f.PredictOver([]float64{0.5}, []float64{0, 0, 0, 0})
	require.ErrorIs(t, err, kubelka.ErrInvalidInput)
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(nil, nil)
	require.ErrorIs(t, err, kubelka.ErrInvalidInput)

	set := buildSet(t, []string{"A"}, one, one)
	_, err = New(set, &Medium{K: []float64{0}, S: []float64{1}})
	require.ErrorIs(t, err, kubelka.ErrInvalidInput)
}
