package forecast

import (
	"fmt"
	"math"

	"StockCast/internal/domain/models"

	"gonum.org/v1/gonum/stat"
)

const (
	DefaultTrainRatio = 0.8
	DefaultMinSamples = 5
	DefaultMaxHorizon = 365
)

// Model is y = Intercept + Slope*x.
type Model struct {
	Intercept float64 `json:"intercept"`
	Slope     float64 `json:"slope"`
}

func (m Model) Apply(x float64) float64 {
	return m.Intercept + m.Slope*x
}

// Train fits on the first ratio share of ds and scores R² on the rest.
func Train(ds Dataset, ratio float64) (Model, float64, error) {
	return train(ds, ratio, DefaultMinSamples)
}

func train(ds Dataset, ratio float64, minSamples int) (Model, float64, error) {
	if ds.Len() < minSamples {
		return Model{}, 0, fmt.Errorf("%w: need %d samples, got %d", models.ErrInsufficientData, minSamples, ds.Len())
	}
	trainSet, testSet, err := ds.Split(ratio)
	if err != nil {
		return Model{}, 0, err
	}

	alpha, beta := stat.LinearRegression(trainSet.X, trainSet.Y, nil, false)
	m := Model{Intercept: alpha, Slope: beta}
	if !finite(alpha) || !finite(beta) {
		return Model{}, 0, fmt.Errorf("%w: intercept=%v slope=%v", models.ErrDegenerateFit, alpha, beta)
	}

	return m, score(m, testSet), nil
}

// score is R² of m on ds. A constant target leaves R² undefined; that case
// scores 1 for an exact fit and 0 otherwise.
func score(m Model, ds Dataset) float64 {
	estimates := make([]float64, ds.Len())
	exact := true
	for i, x := range ds.X {
		estimates[i] = m.Apply(x)
		if math.Abs(estimates[i]-ds.Y[i]) > 1e-9 {
			exact = false
		}
	}

	r2 := stat.RSquaredFrom(estimates, ds.Y, nil)
	if finite(r2) {
		return r2
	}
	if exact {
		return 1
	}
	return 0
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
