package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"StockCast/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisQueue(t *testing.T, cfg *QueueConfig) (*miniredis.Miniredis, *RedisQueue) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisQueue(logger.Nop(), cfg, client, WithKeyPrefix("test"), WithRetryPoll(20*time.Millisecond))
}

func TestRedisQueueDeliversPayload(t *testing.T) {
	_, q := newTestRedisQueue(t, &QueueConfig{Workers: 2})
	job := &recordJob{got: make(chan int, 1)}
	q.RegisterJob(job)
	require.NoError(t, q.Start())
	defer q.Stop(context.Background())

	require.NoError(t, q.Enqueue(context.Background(), "record", payload{N: 42}))

	select {
	case n := <-job.got:
		assert.Equal(t, 42, n)
	case <-time.After(3 * time.Second):
		t.Fatal("job never ran")
	}
}

func TestRedisQueueRetriesThroughSortedSet(t *testing.T) {
	_, q := newTestRedisQueue(t, &QueueConfig{Workers: 1, RetryLimit: 2, RetryDelay: time.Millisecond})
	job := &recordJob{failFor: 1, got: make(chan int, 1)}
	q.RegisterJob(job)
	require.NoError(t, q.Start())
	defer q.Stop(context.Background())

	require.NoError(t, q.Enqueue(context.Background(), "record", payload{N: 3}))

	select {
	case n := <-job.got:
		assert.Equal(t, 3, n)
		assert.Equal(t, int32(2), job.calls.Load())
	case <-time.After(5 * time.Second):
		t.Fatal("retry never delivered")
	}

	dead, err := q.DeadLetters(context.Background())
	require.NoError(t, err)
	assert.Zero(t, dead)
}

func TestRedisQueueDeadLettersAfterRetryLimit(t *testing.T) {
	mr, q := newTestRedisQueue(t, &QueueConfig{Workers: 1, RetryLimit: 1, RetryDelay: time.Millisecond})
	job := &recordJob{failFor: 100, got: make(chan int, 1)}
	q.RegisterJob(job)
	require.NoError(t, q.Start())
	defer q.Stop(context.Background())

	require.NoError(t, q.Enqueue(context.Background(), "record", payload{}))

	assert.Eventually(t, func() bool {
		n, err := q.DeadLetters(context.Background())
		return err == nil && n == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(2), job.calls.Load())

	items, err := mr.List("test:dlq")
	require.NoError(t, err)
	require.Len(t, items, 1)
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(items[0]), &msg))
	assert.Equal(t, "record", msg.Type)
	assert.Equal(t, 1, msg.Attempts)
}

func TestRedisQueueMovesOnlyDueRetries(t *testing.T) {
	mr, q := newTestRedisQueue(t, nil)
	q.ctx = context.Background()

	q.scheduleRetry(Message{ID: "due", Type: "record"}, time.Now().Add(-time.Second))
	q.scheduleRetry(Message{ID: "later", Type: "record"}, time.Now().Add(time.Hour))
	q.processRetryMessages()

	queued, err := mr.List("test:messages")
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Contains(t, queued[0], `"due"`)

	parked, err := mr.ZMembers("test:retry")
	require.NoError(t, err)
	require.Len(t, parked, 1)
	assert.Contains(t, parked[0], `"later"`)
}

func TestRedisQueueRequeuesInterruptedMessage(t *testing.T) {
	mr, q := newTestRedisQueue(t, nil)

	q.requeue(Message{ID: "cut", Type: "record", Attempts: 1})

	queued, err := mr.List("test:messages")
	require.NoError(t, err)
	require.Len(t, queued, 1)
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(queued[0]), &msg))
	assert.Equal(t, "cut", msg.ID)
	assert.Equal(t, 1, msg.Attempts, "an interrupted run does not spend an attempt")
}

func TestRedisQueueStopLetsInFlightJobFinish(t *testing.T) {
	_, q := newTestRedisQueue(t, &QueueConfig{Workers: 1})
	job := newBlockingJob()
	q.RegisterJob(job)
	require.NoError(t, q.Start())

	require.NoError(t, q.Enqueue(context.Background(), "blocking", payload{}))
	select {
	case <-job.started:
	case <-time.After(3 * time.Second):
		t.Fatal("job never started")
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(job.release)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, q.Stop(ctx))
	assert.NoError(t, <-job.ended)
}

func TestRedisQueueRejects(t *testing.T) {
	mr, q := newTestRedisQueue(t, nil)
	assert.ErrorIs(t, q.Enqueue(context.Background(), "record", nil), ErrNotRunning)

	q.RegisterJob(&recordJob{})
	require.NoError(t, q.Start())
	defer q.Stop(context.Background())

	assert.ErrorIs(t, q.Enqueue(context.Background(), "missing", nil), ErrUnknownJob)
	assert.ErrorIs(t, q.Start(), ErrAlreadyStart)
	assert.False(t, mr.Exists("test:messages"))
}

func TestRedisQueueStartFailsWithoutRedis(t *testing.T) {
	mr, q := newTestRedisQueue(t, nil)
	mr.Close()
	assert.Error(t, q.Start())
}
