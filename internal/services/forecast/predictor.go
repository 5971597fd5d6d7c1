package forecast

import (
	"errors"
	"fmt"

	"StockCast/internal/domain/models"
)

var (
	ErrNoSteps   = errors.New("prediction needs at least one step")
	ErrZeroStart = errors.New("increase from a zero start is undefined")
)

// Predict projects steps values forward. The first step applies the model
// to the last adjusted close, each later step to the previous output.
func Predict(m Model, last models.Quote, steps int) ([]float64, error) {
	if steps <= 0 {
		return nil, ErrNoSteps
	}

	out := make([]float64, steps)
	x := last.AdjClose
	for i := range out {
		x = m.Apply(x)
		if !finite(x) {
			return nil, fmt.Errorf("%w: step %d diverged", models.ErrDegenerateFit, i)
		}
		out[i] = x
	}
	return out, nil
}

// CalculateIncrease returns the percentage change from start to end.
func CalculateIncrease(start, end float64) (float64, error) {
	if start == 0 {
		return 0, ErrZeroStart
	}
	return (end - start) / start * 100, nil
}

// ShouldBuy is a buy signal for a positive projected increase.
func ShouldBuy(increase float64) bool {
	return increase > 0
}
