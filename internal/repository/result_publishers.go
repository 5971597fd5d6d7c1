package repository

import (
	"context"
	"fmt"

	"StockCast/internal/domain/models"
	"StockCast/internal/domain/repository"
)

// StoreResultPublisher writes finished requests straight into the store.
type StoreResultPublisher struct {
	store repository.RequestStore
}

func NewStoreResultPublisher(store repository.RequestStore) *StoreResultPublisher {
	return &StoreResultPublisher{store: store}
}

func (p *StoreResultPublisher) PublishResult(ctx context.Context, d *models.Data) error {
	return p.store.Save(ctx, d)
}

func (p *StoreResultPublisher) Close() error { return nil }

// MessagePublisher is the part of the kafka producer the result sink uses.
type MessagePublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaResultPublisher publishes finished requests keyed by request id.
type KafkaResultPublisher struct {
	producer MessagePublisher
	topic    string
}

func NewKafkaResultPublisher(producer MessagePublisher, topic string) *KafkaResultPublisher {
	return &KafkaResultPublisher{producer: producer, topic: topic}
}

func (p *KafkaResultPublisher) PublishResult(ctx context.Context, d *models.Data) error {
	if err := p.producer.Publish(ctx, p.topic, []byte(d.ID.String()), d); err != nil {
		return fmt.Errorf("publish result %s: %w", d.ID, err)
	}
	return nil
}

func (p *KafkaResultPublisher) Close() error {
	return nil // producer closed by the app
}

var (
	_ repository.ResultPublisher = (*StoreResultPublisher)(nil)
	_ repository.ResultPublisher = (*KafkaResultPublisher)(nil)
)
