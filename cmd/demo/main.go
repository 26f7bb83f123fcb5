// Command demo runs the full calibration → formulation → matching chain on
// synthetic measurements: it reduces monochrome films to optical
// coefficients, fits the pigment models, predicts a mixture curve and then
// recovers the mixture from that curve alone.
package main

import (
	"fmt"
	"os"

	"github.com/colourscience/kubelka"
	"github.com/colourscience/kubelka/calibration"
	"github.com/colourscience/kubelka/formulate"
	"github.com/colourscience/kubelka/match"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Unit absorption spectra of the synthetic pigments; scattering is 1.5 for
// all of them.
var pigmentAbsorption = []struct {
	name   string
	absorb func(w float64) float64
}{
	{"RED", func(w float64) float64 { return 0.2 + 3/(1+sq((w-530)/40)) }},
	{"YELLOW", func(w float64) float64 { return 0.2 + 3/(1+sq((w-450)/40)) }},
	{"BLACK", func(w float64) float64 { return 2 }},
}

const pigmentScattering = 1.5

func sq(x float64) float64 { return x * x }

func run() error {
	var grid []float64
	for w := 400.0; w <= 700; w += 10 {
		grid = append(grid, w)
	}
	card := calibration.Backgrounds{} // ideal contrast card

	// Synthesize dual-background monochrome measurements and reduce them
	// into shared calibration tables.
	concentrations := []float64{0.05, 0.1, 0.2, 0.4}
	kTab, sTab := calibration.NewCalibrationTable(), calibration.NewCalibrationTable()
	for _, pigment := range pigmentAbsorption {
		series := calibration.MonochromeSeries{
			Pigment:        pigment.name,
			Wavelengths:    grid,
			Concentrations: concentrations,
		}
		for _, c := range concentrations {
			dark := make([]float64, len(grid))
			light := make([]float64, len(grid))
			for wi, w := range grid {
				kx, sx := c*pigment.absorb(w), c*pigmentScattering
				dark[wi], _ = kubelka.ReflectanceOverBackground(0, kx, sx)
				light[wi], _ = kubelka.ReflectanceOverBackground(1, kx, sx)
			}
			series.OverDark = append(series.OverDark, dark)
			series.OverLight = append(series.OverLight, light)
		}
		tables, err := calibration.ReduceMonochrome(series, card)
		if err != nil {
			return err
		}
		mergeSeries(kTab, tables.K, pigment.name)
		mergeSeries(sTab, tables.S, pigment.name)
	}

	set, failures, err := calibration.FitPigmentSet(kTab, sTab, calibration.FitOptions{Degree: 2})
	if err != nil {
		return err
	}
	for _, f := range failures {
		fmt.Fprintln(os.Stderr, "calibration failure:", f)
	}
	fmt.Printf("calibrated %d pigments on %d wavelengths: %v\n", set.Size(), set.GridLen(), set.Pigments())

	// The medium comes from a single base film measurement.
	baseDark := make([]float64, len(grid))
	baseLight := make([]float64, len(grid))
	for wi := range grid {
		baseDark[wi], _ = kubelka.ReflectanceOverBackground(0, 0.05, 1.2)
		baseLight[wi], _ = kubelka.ReflectanceOverBackground(1, 0.05, 1.2)
	}
	mediumK, mediumS, err := calibration.ReduceBase(grid, baseDark, baseLight, card)
	if err != nil {
		return err
	}

	formulator, err := formulate.New(set, &formulate.Medium{K: mediumK, S: mediumS})
	if err != nil {
		return err
	}

	// Forward: predict the curve of a known mixture, then inverse: recover
	// the mixture from the curve alone.
	trueC := []float64{0.02, 0.15, 0.2}
	prediction, err := formulator.Predict(trueC)
	if err != nil {
		return err
	}
	fmt.Printf("target mixture %v predicted, clamped at %d wavelengths\n",
		trueC, len(prediction.ClampedWavelengths))

	result, err := match.New(formulator).Match(prediction.Curve, match.Options{})
	if err != nil {
		return err
	}
	fmt.Printf("match %s after %d iterations (%d evaluations)\n",
		result.Status, result.Iterations, result.Evaluations)
	for i, name := range set.Pigments() {
		fmt.Printf("  %-7s true %.4f matched %.4f\n", name, trueC[i], result.Concentrations[i])
	}
	fmt.Printf("spectral RMSE %.2e\n", result.RMSE)
	return nil
}

// mergeSeries copies one pigment's reduced series into the shared table, so
// every pigment fits from a single pair of tables.
func mergeSeries(dst, src *calibration.CalibrationTable, pigment string) {
	for _, w := range src.Wavelengths() {
		cs, vs, ok := src.Series(pigment, w)
		if !ok {
			continue
		}
		for i := range cs {
			dst.Add(pigment, w, cs[i], vs[i])
		}
	}
}
