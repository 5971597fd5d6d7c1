package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"StockCast/internal/domain/models"
	drepo "StockCast/internal/domain/repository"
	"StockCast/internal/services/forecast"
	"StockCast/pkg/logger"
	"StockCast/pkg/util"
)

// Predictor fetches history for a request and runs the forecast on it.
type Predictor struct {
	quotes     drepo.QuoteProvider
	forecaster *forecast.Forecaster
	metrics    drepo.Metrics
	l          *logger.Logger
	interval   string
	now        func() time.Time
}

func NewPredictor(
	quotes drepo.QuoteProvider,
	forecaster *forecast.Forecaster,
	metrics drepo.Metrics,
	l *logger.Logger,
	defaultInterval string,
) *Predictor {
	if defaultInterval == "" {
		defaultInterval = "1d"
	}
	return &Predictor{
		quotes:     quotes,
		forecaster: forecaster,
		metrics:    metrics,
		l:          l,
		interval:   defaultInterval,
		now:        time.Now,
	}
}

// Predict runs fetch, map, train, predict, increase and signal for req.
func (p *Predictor) Predict(ctx context.Context, req models.PredictRequest) (*models.Prediction, error) {
	start := p.now()
	defer func() {
		p.metrics.RecordLatency("predict", time.Since(start).Seconds())
	}()

	if err := models.ValidateSymbol(req.Symbol); err != nil {
		p.metrics.RecordError("validation")
		return nil, err
	}
	if req.Interval == "" {
		req.Interval = p.interval
	}

	from, to, err := req.Time.Window(start)
	if err != nil {
		p.metrics.RecordError("validation")
		return nil, err
	}
	from, to = util.AlignWindow(from, to, time.Minute)
	steps := p.forecaster.Steps(req.Time.Number())

	fetchStart := time.Now()
	quotes, err := p.quotes.History(ctx, req.Symbol, from, to, req.Interval)
	p.metrics.RecordLatency("fetch", time.Since(fetchStart).Seconds())
	if err != nil {
		p.metrics.RecordError("fetch")
		return nil, fmt.Errorf("fetch %s: %w", req.Symbol, err)
	}

	res, err := p.forecaster.Run(quotes, steps)
	if err != nil {
		p.metrics.RecordError(modelErrorKind(err))
		return nil, fmt.Errorf("forecast %s: %w", req.Symbol, err)
	}

	p.metrics.RecordPrediction(req.Symbol, res.ShouldBuy)
	p.metrics.RecordLastPrice(req.Symbol, res.Predictions[len(res.Predictions)-1])
	p.l.Debug("prediction served",
		logger.String("symbol", req.Symbol),
		logger.String("period", req.Time.String()),
		logger.Int("samples", len(quotes)),
		logger.Int("steps", steps),
		logger.Float64("score", res.Score),
		logger.Float64("increase", res.Increase))

	return &models.Prediction{
		Request:     req,
		Predictions: res.Predictions,
		Increase:    res.Increase,
		ShouldBuy:   res.ShouldBuy,
		Score:       res.Score,
	}, nil
}

func modelErrorKind(err error) string {
	switch {
	case errors.Is(err, models.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, models.ErrDegenerateFit):
		return "degenerate_fit"
	default:
		return "model"
	}
}
