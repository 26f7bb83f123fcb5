/*
Package calibration fits per-pigment, per-wavelength polynomial models of
Kubelka-Munk optical coefficients against concentration.

Raw material is a CalibrationTable: an in-memory table keyed by (pigment,
wavelength) holding parallel concentration/value series. Tables are either
supplied directly or derived from monochrome reflectance measurements over
two backgrounds with ReduceMonochrome. FitPigmentSet fits every (pigment,
wavelength) pair independently and in parallel, then assembles the surviving
models into an immutable PigmentSet that the formulate and match packages
consume.
*/
package calibration
