package forecast

import (
	"testing"

	"StockCast/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// linearQuotes builds n bars where open = 2 + 0.5*adjclose exactly.
func linearQuotes(n int) []models.Quote {
	out := make([]models.Quote, n)
	for i := range out {
		x := float64(10 + i)
		out[i] = models.Quote{AdjClose: x, Close: x, Open: 2 + 0.5*x}
	}
	return out
}

func TestToDatasetUsesAdjCloseAsFeature(t *testing.T) {
	ds := ToDataset([]models.Quote{{Open: 1, AdjClose: 2}, {Open: 3, AdjClose: 4}})
	assert.Equal(t, []float64{2, 4}, ds.X)
	assert.Equal(t, []float64{1, 3}, ds.Y)
}

func TestSplitIsOrdered(t *testing.T) {
	ds := ToDataset(linearQuotes(10))
	train, test, err := ds.Split(0.8)
	require.NoError(t, err)
	assert.Equal(t, 8, train.Len())
	assert.Equal(t, 2, test.Len())
	assert.Equal(t, 18.0, test.X[0])
}

func TestSplitRejects(t *testing.T) {
	_, _, err := ToDataset(linearQuotes(1)).Split(0.8)
	assert.ErrorIs(t, err, models.ErrInsufficientData)

	_, _, err = ToDataset(linearQuotes(10)).Split(1)
	assert.Error(t, err)
}

func TestTrainRecoversLine(t *testing.T) {
	m, r2, err := Train(ToDataset(linearQuotes(20)), 0.8)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, m.Intercept, 1e-9)
	assert.InDelta(t, 0.5, m.Slope, 1e-9)
	assert.InDelta(t, 1.0, r2, 1e-9)
}

func TestTrainSingleTestSampleScoresExactFit(t *testing.T) {
	_, r2, err := Train(ToDataset(linearQuotes(5)), 0.8)
	require.NoError(t, err)
	assert.Equal(t, 1.0, r2)
}

func TestTrainErrors(t *testing.T) {
	_, _, err := Train(ToDataset(linearQuotes(4)), 0.8)
	assert.ErrorIs(t, err, models.ErrInsufficientData)

	flat := make([]models.Quote, 10)
	for i := range flat {
		flat[i] = models.Quote{AdjClose: 5, Open: float64(i)}
	}
	_, _, err = Train(ToDataset(flat), 0.8)
	assert.ErrorIs(t, err, models.ErrDegenerateFit)
}

func TestPredictFeedsBackEachStep(t *testing.T) {
	m := Model{Intercept: 2, Slope: 0.5}
	got, err := Predict(m, models.Quote{AdjClose: 20}, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{12, 8, 6}, got)

	_, err = Predict(m, models.Quote{AdjClose: 20}, 0)
	assert.ErrorIs(t, err, ErrNoSteps)
}

func TestCalculateIncreaseAndSignal(t *testing.T) {
	inc, err := CalculateIncrease(100, 110)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, inc, 1e-12)
	assert.True(t, ShouldBuy(inc))

	inc, err = CalculateIncrease(100, 90)
	require.NoError(t, err)
	assert.False(t, ShouldBuy(inc))
	assert.False(t, ShouldBuy(0))

	_, err = CalculateIncrease(0, 1)
	assert.ErrorIs(t, err, ErrZeroStart)
}

func TestForecasterRun(t *testing.T) {
	f := NewForecaster(0.8, 5, 3)
	assert.Equal(t, 3, f.Steps(30))
	assert.Equal(t, 2, f.Steps(2))

	res, err := f.Run(linearQuotes(20), f.Steps(30))
	require.NoError(t, err)
	require.Len(t, res.Predictions, 3)
	// last adjclose 29 -> 16.5 -> 10.25 -> 7.125
	assert.InDelta(t, 7.125, res.Predictions[2], 1e-9)
	assert.InDelta(t, (7.125-29)/29*100, res.Increase, 1e-9)
	assert.False(t, res.ShouldBuy)
}

func TestNewForecasterDefaults(t *testing.T) {
	f := NewForecaster(0, 0, 0)
	assert.Equal(t, DefaultTrainRatio, f.TrainRatio)
	assert.Equal(t, DefaultMinSamples, f.MinSamples)
	assert.Equal(t, DefaultMaxHorizon, f.MaxHorizon)
}
