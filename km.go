package kubelka

import "math"

// The two-constant Kubelka-Munk model relates the absorption coefficient K
// and scattering coefficient S of a film to its diffuse reflectance. Two
// forms are provided: the closed-form relation for an opaque (infinitely
// thick) film, and the general hyperbolic form for a film of finite optical
// thickness over a background of known reflectance. In the general form the
// scattering argument is S·X, the coefficient times the film thickness.

// cothLowerBound is the |x| below which coth(x) is replaced by its 1/x
// asymptote to avoid overflow in sinh/cosh.
const cothLowerBound = 1e-6

// Coth returns the hyperbolic cotangent of x.
func Coth(x float64) float64 {
	if math.Abs(x) < cothLowerBound {
		return 1 / x
	}
	return math.Cosh(x) / math.Sinh(x)
}

// Acoth returns the inverse hyperbolic cotangent of x. Undefined for
// x in [-1, 1].
func Acoth(x float64) float64 {
	return math.Atanh(1 / x)
}

// ReflectanceInfiniteFilm converts a K/S ratio into the reflectance of an
// opaque film:
//
//	R = 1 + K/S - sqrt((K/S)² + 2·K/S)
//
// Fitted coefficients can push the result slightly outside [0, 1] near the
// spectral extremes; the value is clamped and the second return reports
// whether clamping occurred.
func ReflectanceInfiniteFilm(ks float64) (r float64, clamped bool) {
	if ks < 0 {
		// Negative absorption has no real root; the physical limit is a
		// perfect reflector.
		return 1, true
	}
	r = 1 + ks - math.Sqrt(ks*ks+2*ks)
	return clampReflectance(r)
}

// KSFromReflectance inverts ReflectanceInfiniteFilm, returning the K/S ratio
// of an opaque film with reflectance r:
//
//	K/S = (1 - R)² / (2·R)
func KSFromReflectance(r float64) float64 {
	return (1 - r) * (1 - r) / (2 * r)
}

// ReflectanceOverBackground returns the reflectance of a film with
// absorption k and scattering sx over a background of reflectance rg:
//
//	R = (1 - Rg·(a - b·coth(b·SX))) / (a - Rg + b·coth(b·SX))
//
// with a = 1 + K/S and b = sqrt(a² - 1). k and sx carry the same thickness
// convention: passing K·X and S·X is equivalent to passing K and S for unit
// thickness. The result is clamped to [0, 1] with the clamp reported.
func ReflectanceOverBackground(rg, k, sx float64) (r float64, clamped bool) {
	a := 1 + k/sx
	// a must stay strictly above 1 or b collapses to zero and the
	// hyperbolic form is undefined.
	if a < 1+1e-10 {
		a = 1 + 1e-10
	}
	b := math.Sqrt(a*a - 1)
	cbs := Coth(b * sx)
	r = (1 - rg*(a-b*cbs)) / (a - rg + b*cbs)
	return clampReflectance(r)
}

func clampReflectance(r float64) (float64, bool) {
	switch {
	case math.IsNaN(r), r < 0:
		return 0, true
	case r > 1:
		return 1, true
	}
	return r, false
}
