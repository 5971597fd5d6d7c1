package forecast

import (
	"fmt"

	"StockCast/internal/domain/models"
)

// Result is one full run over a quote history.
type Result struct {
	Model       Model
	Score       float64
	Predictions []float64
	Increase    float64
	ShouldBuy   bool
}

// Forecaster bundles the tunables of the train/predict pipeline.
type Forecaster struct {
	TrainRatio float64
	MinSamples int
	MaxHorizon int
}

func NewForecaster(trainRatio float64, minSamples, maxHorizon int) *Forecaster {
	f := &Forecaster{TrainRatio: trainRatio, MinSamples: minSamples, MaxHorizon: maxHorizon}
	if f.TrainRatio <= 0 || f.TrainRatio >= 1 {
		f.TrainRatio = DefaultTrainRatio
	}
	if f.MinSamples < 2 {
		f.MinSamples = DefaultMinSamples
	}
	if f.MaxHorizon <= 0 {
		f.MaxHorizon = DefaultMaxHorizon
	}
	return f
}

// Steps caps a requested horizon at MaxHorizon.
func (f *Forecaster) Steps(requested int64) int {
	if requested > int64(f.MaxHorizon) {
		return f.MaxHorizon
	}
	return int(requested)
}

// Run maps, trains, projects and scores quotes.
func (f *Forecaster) Run(quotes []models.Quote, steps int) (*Result, error) {
	if len(quotes) == 0 {
		return nil, fmt.Errorf("%w: no quotes", models.ErrInsufficientData)
	}
	m, r2, err := train(ToDataset(quotes), f.TrainRatio, f.MinSamples)
	if err != nil {
		return nil, err
	}

	last := quotes[len(quotes)-1]
	preds, err := Predict(m, last, steps)
	if err != nil {
		return nil, err
	}

	inc, err := CalculateIncrease(last.AdjClose, preds[len(preds)-1])
	if err != nil {
		return nil, err
	}

	return &Result{
		Model:       m,
		Score:       r2,
		Predictions: preds,
		Increase:    inc,
		ShouldBuy:   ShouldBuy(inc),
	}, nil
}
