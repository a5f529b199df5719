package analysis

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/quarklab/pixelci/internal/interpreter"
)

// ErrTooFewPoints is returned when a fit range covers fewer than two
// calibration points.
var ErrTooFewPoints = errors.New("analysis: too few calibration points")

// CalibrationPoint is the mean detector response at one injection setting.
type CalibrationPoint struct {
	PlsrDAC  int
	MeanTot  float64
	StdTot   float64
	HitCount int64
}

// Calibration is a fitted linear charge calibration, ToT as a function of
// the PlsrDAC injection setting.
type Calibration struct {
	Slope     float64
	Intercept float64
	RSquared  float64
	FitLow    int
	FitHigh   int
}

// TotAtPlsrDAC evaluates the fitted line.
func (c Calibration) TotAtPlsrDAC(dac int) float64 {
	return c.Intercept + c.Slope*float64(dac)
}

// PlsrDACAtTot inverts the fitted line.
func (c Calibration) PlsrDACAtTot(tot float64) (float64, error) {
	if c.Slope == 0 {
		return 0, errors.New("analysis: calibration slope is zero")
	}
	return (tot - c.Intercept) / c.Slope, nil
}

// CalibrationPoints reduces per-step hit tables to mean-ToT points. The
// steps slice carries the PlsrDAC setting of each plane, hitsPerStep the
// interpreted hits taken at that setting.
func CalibrationPoints(steps []int, hitsPerStep [][]interpreter.Hit) ([]CalibrationPoint, error) {
	if len(steps) != len(hitsPerStep) {
		return nil, fmt.Errorf("analysis: %d steps but %d hit tables", len(steps), len(hitsPerStep))
	}
	points := make([]CalibrationPoint, 0, len(steps))
	for i, dac := range steps {
		hits := hitsPerStep[i]
		p := CalibrationPoint{PlsrDAC: dac, HitCount: int64(len(hits))}
		if len(hits) > 0 {
			var sum, sumSq float64
			for _, h := range hits {
				tot := float64(h.Tot)
				sum += tot
				sumSq += tot * tot
			}
			n := float64(len(hits))
			p.MeanTot = sum / n
			variance := sumSq/n - p.MeanTot*p.MeanTot
			if variance > 0 {
				p.StdTot = math.Sqrt(variance)
			}
		}
		points = append(points, p)
	}
	return points, nil
}

// FitPlsrDAC fits mean ToT against PlsrDAC over [low, high]. Points with
// no hits are excluded from the fit.
func FitPlsrDAC(points []CalibrationPoint, low, high int) (Calibration, error) {
	var xs, ys []float64
	for _, p := range points {
		if p.PlsrDAC < low || p.PlsrDAC > high || p.HitCount == 0 {
			continue
		}
		xs = append(xs, float64(p.PlsrDAC))
		ys = append(ys, p.MeanTot)
	}
	if len(xs) < 2 {
		return Calibration{}, fmt.Errorf("%w: %d in range [%d, %d]", ErrTooFewPoints, len(xs), low, high)
	}
	intercept, slope := stat.LinearRegression(xs, ys, nil, false)
	r2 := stat.RSquared(xs, ys, nil, intercept, slope)
	return Calibration{
		Slope:     slope,
		Intercept: intercept,
		RSquared:  r2,
		FitLow:    low,
		FitHigh:   high,
	}, nil
}
