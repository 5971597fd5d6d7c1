package repository

import (
	"context"
	"errors"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/internal/domain/repository"
	"StockCast/pkg/cache"
	"StockCast/pkg/logger"
)

// CachedQuotes puts a cache in front of a QuoteProvider. The key uses the
// window length rather than its bounds, so repeated requests for the same
// look-back hit until the TTL expires.
type CachedQuotes struct {
	next  repository.QuoteProvider
	cache cache.Service
	ttl   time.Duration
	l     *logger.Logger
}

var _ repository.QuoteProvider = (*CachedQuotes)(nil)

func NewCachedQuotes(next repository.QuoteProvider, c cache.Service, ttl time.Duration, l *logger.Logger) *CachedQuotes {
	return &CachedQuotes{next: next, cache: c, ttl: ttl, l: l}
}

func (q *CachedQuotes) History(ctx context.Context, symbol string, start, end time.Time, interval string) ([]models.Quote, error) {
	seconds := int64(end.Sub(start) / time.Second)
	key := cache.GenerateKeyWithParams("quotes", symbol, interval, seconds)

	var quotes []models.Quote
	err := q.cache.Get(ctx, key, &quotes)
	if err == nil {
		return quotes, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		q.l.Warn("quote cache read failed", logger.String("key", key), logger.Error(err))
	}

	quotes, err = q.next.History(ctx, symbol, start, end, interval)
	if err != nil {
		return nil, err
	}

	if err := q.cache.Set(ctx, key, quotes, q.ttl); err != nil {
		q.l.Warn("quote cache write failed", logger.String("key", key), logger.Error(err))
	}
	return quotes, nil
}
