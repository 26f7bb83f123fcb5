package kubelka

import (
	"math"
	"testing"
)

func nearlyEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

var infiniteFilmCases = []struct {
	name string
	ks   float64
	r    float64
}{
	{"half", 0.5, 1.5 - math.Sqrt(1.25)},
	{"pure scatterer", 0, 1},
	{"weak absorber", 0.01, 1.01 - math.Sqrt(0.0001+0.02)},
	{"strong absorber", 50, 51 - math.Sqrt(2500+100)},
	{"unity ratio", 1, 2 - math.Sqrt(3)},
}

func TestReflectanceInfiniteFilm_TableDriven(t *testing.T) {
	for _, tc := range infiniteFilmCases {
		t.Run(tc.name, func(t *testing.T) {
			r, clamped := ReflectanceInfiniteFilm(tc.ks)
			if clamped {
				t.Fatalf("unexpected clamp for K/S=%g", tc.ks)
			}
			if !nearlyEqual(r, tc.r, 1e-12) {
				t.Fatalf("R(K/S=%g) = %.12f, want %.12f", tc.ks, r, tc.r)
			}
			if r < 0 || r > 1 {
				t.Fatalf("R(K/S=%g) = %g outside [0,1]", tc.ks, r)
			}
		})
	}
}

func TestReflectanceInfiniteFilm_ClampsNegativeRatio(t *testing.T) {
	// A slightly negative fitted K/S has no physical root; the transform
	// must clamp and flag instead of failing.
	r, clamped := ReflectanceInfiniteFilm(-0.5)
	if !clamped {
		t.Fatal("expected clamp flag for negative K/S")
	}
	if r < 0 || r > 1 {
		t.Fatalf("clamped reflectance %g outside [0,1]", r)
	}
}

func TestKSFromReflectance_RoundTrip(t *testing.T) {
	for _, ks := range []float64{0.01, 0.1, 0.5, 1, 2, 10} {
		r, _ := ReflectanceInfiniteFilm(ks)
		got := KSFromReflectance(r)
		if !nearlyEqual(got, ks, 1e-9*math.Max(1, ks)) {
			t.Fatalf("round trip K/S=%g gave %g", ks, got)
		}
	}
}

func TestReflectanceOverBackground_ApproachesInfiniteFilm(t *testing.T) {
	// At large optical thickness the background stops mattering and the
	// general form collapses to the closed-form opaque result.
	want, _ := ReflectanceInfiniteFilm(0.5)
	for _, rg := range []float64{0, 0.25, 0.9} {
		r, clamped := ReflectanceOverBackground(rg, 25, 50)
		if clamped {
			t.Fatalf("unexpected clamp for rg=%g", rg)
		}
		if !nearlyEqual(r, want, 1e-9) {
			t.Fatalf("R(rg=%g) = %.12f, want %.12f", rg, r, want)
		}
	}
}

func TestReflectanceOverBackground_ThinFilmTracksBackground(t *testing.T) {
	// A nearly transparent film should reflect almost exactly the
	// background underneath it.
	r, _ := ReflectanceOverBackground(0.8, 1e-8, 1e-6)
	if !nearlyEqual(r, 0.8, 1e-3) {
		t.Fatalf("thin film over rg=0.8 gave %g", r)
	}
}

func TestCothAcoth(t *testing.T) {
	// coth(x) approaches 1 so fast that the round trip loses float64
	// precision beyond x≈8 and underflows entirely past x≈18.
	for _, x := range []float64{0.5, 1.2, 3, 7} {
		c := Coth(x)
		if !nearlyEqual(Acoth(c), x, 1e-9) {
			t.Fatalf("acoth(coth(%g)) = %g", x, Acoth(c))
		}
	}
	// Small-argument asymptote.
	if !nearlyEqual(Coth(1e-9), 1e9, 1) {
		t.Fatalf("coth(1e-9) = %g", Coth(1e-9))
	}
}
