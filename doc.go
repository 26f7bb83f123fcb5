/*
Package kubelka implements two-constant Kubelka-Munk colour formulation: it
predicts the reflectance spectrum of a pigment mixture from per-pigment
concentrations and, inversely, finds the concentrations that reproduce a
target spectrum.

The root package holds the foundational pieces shared by the rest of the
module: the SpectralCurve type, the Kubelka-Munk reflectance transforms and
the spectral RMSE metric. The calibration package fits per-pigment,
per-wavelength polynomial models of the optical coefficients from monochrome
measurements, the formulate package combines fitted models into a mixture
reflectance curve, and the match package inverts the forward model with a
bounded numerical search.

All computation is pure and in-memory. Instrument I/O, Saunderson correction
and colour-space conversion live outside this module; colour difference
(deltaE) is consumed through a caller-supplied function.
*/
package kubelka
