package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"StockCast/internal/domain/models"
	pkgkafka "StockCast/pkg/kafka"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ MessagePublisher = (*pkgkafka.Producer)(nil)

type sentMessage struct {
	topic string
	key   []byte
	value interface{}
}

type fakePublisher struct {
	sent []sentMessage
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{topic: topic, key: key, value: value})
	return nil
}

func TestKafkaResultPublisherKeysByRequestID(t *testing.T) {
	fp := &fakePublisher{}
	p := NewKafkaResultPublisher(fp, "stockcast.predictions")

	d := &models.Data{ID: uuid.New(), Symbol: "AAPL", Status: models.StatusDone, UpdatedAt: time.Now()}
	require.NoError(t, p.PublishResult(context.Background(), d))

	require.Len(t, fp.sent, 1)
	assert.Equal(t, "stockcast.predictions", fp.sent[0].topic)
	assert.Equal(t, d.ID.String(), string(fp.sent[0].key))
	assert.Same(t, d, fp.sent[0].value)
	assert.NoError(t, p.Close())
}

func TestKafkaResultPublisherWrapsError(t *testing.T) {
	down := errors.New("broker down")
	p := NewKafkaResultPublisher(&fakePublisher{err: down}, "t")

	d := &models.Data{ID: uuid.New()}
	err := p.PublishResult(context.Background(), d)
	assert.ErrorIs(t, err, down)
	assert.Contains(t, err.Error(), d.ID.String())
}

func TestStoreResultPublisherSaves(t *testing.T) {
	store := NewMemoryRequestStore()
	p := NewStoreResultPublisher(store)

	d := &models.Data{ID: uuid.New(), Status: models.StatusFailed, Error: "no data", UpdatedAt: time.Now()}
	require.NoError(t, p.PublishResult(context.Background(), d))

	got, err := store.Get(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, "no data", got.Error)
}
