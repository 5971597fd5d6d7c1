package repository

import (
	"context"
	"time"

	"StockCast/internal/domain/models"

	"github.com/google/uuid"
)

// QuoteProvider returns daily (or finer) bars for symbol in [start, end].
type QuoteProvider interface {
	History(ctx context.Context, symbol string, start, end time.Time, interval string) ([]models.Quote, error)
}

// RequestStore persists asynchronous prediction requests. Save is an upsert
// keyed by ID; the latest UpdatedAt wins.
type RequestStore interface {
	Init(ctx context.Context) error
	Save(ctx context.Context, d *models.Data) error
	Get(ctx context.Context, id uuid.UUID) (*models.Data, error)
	Health(ctx context.Context) error
	Close() error
}

// ResultPublisher hands finished requests to the configured result sink.
type ResultPublisher interface {
	PublishResult(ctx context.Context, d *models.Data) error
	Close() error
}

type Metrics interface {
	RecordPrediction(symbol string, shouldBuy bool)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordRequestStatus(status string)
}
