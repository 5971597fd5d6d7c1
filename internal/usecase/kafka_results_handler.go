package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"StockCast/internal/domain/models"
	drepo "StockCast/internal/domain/repository"
	pkgkafka "StockCast/pkg/kafka"
)

// KafkaResultsHandler persists finished requests published on the results topic.
type KafkaResultsHandler struct {
	topic   string
	store   drepo.RequestStore
	metrics drepo.Metrics
}

func NewKafkaResultsHandler(topic string, store drepo.RequestStore, metrics drepo.Metrics) *KafkaResultsHandler {
	return &KafkaResultsHandler{topic: topic, store: store, metrics: metrics}
}

func (h *KafkaResultsHandler) Topic() string { return h.topic }

func (h *KafkaResultsHandler) Handle(ctx context.Context, b []byte) error {
	var d models.Data
	if err := json.Unmarshal(b, &d); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode result: %w", err)
	}

	start := time.Now()
	err := h.store.Save(ctx, &d)
	h.metrics.RecordLatency("result_store", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaResultsHandler)(nil)
