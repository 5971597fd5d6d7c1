package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"StockCast/pkg/logger"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func (w *fakeWriter) written() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.msgs...)
}

type fakeReader struct {
	msgs      chan kafka.Message
	mu        sync.Mutex
	committed []int64
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	ch := make(chan kafka.Message, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	return &fakeReader{msgs: ch}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

type funcHandler struct {
	topic string
	fn    func([]byte) error
}

func (h funcHandler) Topic() string { return h.topic }

func (h funcHandler) Handle(_ context.Context, b []byte) error { return h.fn(b) }

func TestProducerPublishEncodesJSON(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "gzip")

	require.NoError(t, p.Publish(context.Background(), "t", []byte("k"), map[string]int{"a": 1}))
	require.NoError(t, p.PublishMessage(context.Background(), "t", "raw"))

	msgs := w.written()
	require.Len(t, msgs, 2)
	assert.Equal(t, "t", msgs[0].Topic)
	assert.Equal(t, []byte("k"), msgs[0].Key)
	assert.JSONEq(t, `{"a":1}`, string(msgs[0].Value))
	assert.Equal(t, "raw", string(msgs[1].Value))
}

func TestProducerPublishWrapsError(t *testing.T) {
	boom := errors.New("broker down")
	p := newProducer(&fakeWriter{err: boom}, "gzip")

	err := p.Publish(context.Background(), "t", nil, "x")
	assert.ErrorIs(t, err, boom)
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)
}

func TestConsumerCommitsAfterSuccess(t *testing.T) {
	reader := newFakeReader(kafka.Message{Topic: "in", Offset: 1, Value: []byte("a")})
	got := make(chan string, 1)

	c := newConsumer(logger.Nop(), &ConsumerConfig{WorkerCount: 1, RetryMax: 0}, func(string) messageReader { return reader }, nil)
	c.RegisterHandler(funcHandler{topic: "in", fn: func(b []byte) error {
		got <- string(b)
		return nil
	}})
	require.NoError(t, c.Start())

	select {
	case v := <-got:
		assert.Equal(t, "a", v)
	case <-time.After(2 * time.Second):
		t.Fatal("handler not called")
	}
	assert.Eventually(t, func() bool { return len(reader.commits()) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Stop(context.Background()))
}

func TestConsumerRetriesThenDeadLetters(t *testing.T) {
	reader := newFakeReader(kafka.Message{Topic: "in", Offset: 9, Value: []byte("bad")})
	dlq := &fakeWriter{}
	var mu sync.Mutex
	calls := 0

	cfg := &ConsumerConfig{WorkerCount: 1, RetryMax: 2, BackoffMin: time.Millisecond, BackoffMax: 2 * time.Millisecond, DLQTopic: "in.dlq"}
	c := newConsumer(logger.Nop(), cfg, func(string) messageReader { return reader }, dlq)
	c.RegisterHandler(funcHandler{topic: "in", fn: func([]byte) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return errors.New("nope")
	}})
	require.NoError(t, c.Start())

	assert.Eventually(t, func() bool { return len(dlq.written()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return len(reader.commits()) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Stop(context.Background()))

	mu.Lock()
	assert.Equal(t, 3, calls)
	mu.Unlock()
	msg := dlq.written()[0]
	assert.Equal(t, "in.dlq", msg.Topic)
	assert.Equal(t, "source_topic", msg.Headers[0].Key)
}

func TestConsumerDropsFailedMessageWithoutDLQ(t *testing.T) {
	reader := newFakeReader(
		kafka.Message{Topic: "drop", Offset: 4, Value: []byte("bad")},
		kafka.Message{Topic: "drop", Offset: 5, Value: []byte("good")},
	)
	cfg := &ConsumerConfig{WorkerCount: 1, RetryMax: 0}
	c := newConsumer(logger.Nop(), cfg, func(string) messageReader { return reader }, nil)
	c.RegisterHandler(funcHandler{topic: "drop", fn: func(b []byte) error {
		if string(b) == "bad" {
			return errors.New("nope")
		}
		return nil
	}})
	before := testutil.ToFloat64(consumerDroppedTotal.WithLabelValues("drop"))
	require.NoError(t, c.Start())

	assert.Eventually(t, func() bool { return len(reader.commits()) == 2 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, c.Stop(context.Background()))

	assert.ElementsMatch(t, []int64{4, 5}, reader.commits())
	assert.Equal(t, before+1, testutil.ToFloat64(consumerDroppedTotal.WithLabelValues("drop")))
}

func TestConsumerDropsWhenDLQWriteFails(t *testing.T) {
	reader := newFakeReader(kafka.Message{Topic: "dlqdown", Offset: 2, Value: []byte("bad")})
	dlq := &fakeWriter{err: errors.New("dlq down")}
	cfg := &ConsumerConfig{WorkerCount: 1, RetryMax: 0, DLQTopic: "dlqdown.dlq"}
	c := newConsumer(logger.Nop(), cfg, func(string) messageReader { return reader }, dlq)
	c.RegisterHandler(funcHandler{topic: "dlqdown", fn: func([]byte) error { return errors.New("nope") }})
	before := testutil.ToFloat64(consumerDroppedTotal.WithLabelValues("dlqdown"))
	require.NoError(t, c.Start())

	assert.Eventually(t, func() bool { return len(reader.commits()) == 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, c.Stop(context.Background()))
	assert.Equal(t, before+1, testutil.ToFloat64(consumerDroppedTotal.WithLabelValues("dlqdown")))
}

func TestConsumerWithoutHandlersFailsToStart(t *testing.T) {
	c := newConsumer(logger.Nop(), &ConsumerConfig{}, func(string) messageReader { return newFakeReader() }, nil)
	assert.Error(t, c.Start())
}

func TestTracingHookPutsTraceIDInContext(t *testing.T) {
	h := TracingHook(logger.Nop())
	km := kafka.Message{Headers: []kafka.Header{{Key: "trace_id", Value: []byte("abc")}}}

	ctx, _, _, err := h.BeforeHandle(context.Background(), "t", km, nil)
	require.NoError(t, err)
	assert.Equal(t, "abc", TraceIDFrom(ctx))
}

func TestBackoffWithJitterStaysInRange(t *testing.T) {
	for attempt := 1; attempt < 10; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 80*time.Millisecond, attempt)
		assert.LessOrEqual(t, d, 80*time.Millisecond)
		assert.Greater(t, d, time.Duration(0))
	}
}
