package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/pkg/cache"
	"StockCast/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	calls  int
	quotes []models.Quote
	err    error
}

func (p *countingProvider) History(context.Context, string, time.Time, time.Time, string) ([]models.Quote, error) {
	p.calls++
	return p.quotes, p.err
}

func TestCachedQuotesHitsCacheOnSameWindow(t *testing.T) {
	next := &countingProvider{quotes: []models.Quote{{Open: 1, AdjClose: 2}}}
	c := cache.NewLayeredCache(nil)
	defer c.Close()
	q := NewCachedQuotes(next, c, time.Minute, logger.Nop())

	end := time.Now()
	for i := 0; i < 3; i++ {
		got, err := q.History(context.Background(), "AAPL", end.Add(-24*time.Hour), end, "1d")
		require.NoError(t, err)
		assert.Equal(t, 2.0, got[0].AdjClose)
	}
	assert.Equal(t, 1, next.calls)

	_, err := q.History(context.Background(), "AAPL", end.Add(-48*time.Hour), end, "1d")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls, "different window length is a different key")
}

func TestCachedQuotesDoesNotCacheErrors(t *testing.T) {
	next := &countingProvider{err: errors.New("down")}
	q := NewCachedQuotes(next, cache.NewMemoryCache(cache.WithMemoryCleanup(0)), time.Minute, logger.Nop())

	end := time.Now()
	_, err := q.History(context.Background(), "AAPL", end.Add(-time.Hour), end, "1d")
	assert.Error(t, err)
	_, err = q.History(context.Background(), "AAPL", end.Add(-time.Hour), end, "1d")
	assert.Error(t, err)
	assert.Equal(t, 2, next.calls)
}
