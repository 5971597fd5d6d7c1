package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"StockCast/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	N int `json:"n"`
}

type recordJob struct {
	calls   atomic.Int32
	failFor int32
	got     chan int
}

func (j *recordJob) Name() string { return "record" }
func (j *recordJob) Type() string { return "record" }

func (j *recordJob) Handle(_ context.Context, raw json.RawMessage) error {
	n := j.calls.Add(1)
	if n <= j.failFor {
		return errors.New("boom")
	}
	p, err := ParsePayload[payload](raw)
	if err != nil {
		return err
	}
	j.got <- p.N
	return nil
}

func TestLocalQueueDeliversPayload(t *testing.T) {
	q := NewLocalQueue(logger.Nop(), &QueueConfig{Workers: 2})
	job := &recordJob{got: make(chan int, 1)}
	q.RegisterJob(job)
	require.NoError(t, q.Start())
	defer q.Stop(context.Background())

	require.NoError(t, q.Enqueue(context.Background(), "record", payload{N: 7}))

	select {
	case n := <-job.got:
		assert.Equal(t, 7, n)
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran")
	}
}

func TestLocalQueueRetriesThenSucceeds(t *testing.T) {
	q := NewLocalQueue(logger.Nop(), &QueueConfig{Workers: 1, RetryLimit: 2, RetryDelay: 10 * time.Millisecond})
	job := &recordJob{failFor: 2, got: make(chan int, 1)}
	q.RegisterJob(job)
	require.NoError(t, q.Start())
	defer q.Stop(context.Background())

	require.NoError(t, q.Enqueue(context.Background(), "record", payload{N: 1}))

	select {
	case <-job.got:
		assert.Equal(t, int32(3), job.calls.Load())
	case <-time.After(2 * time.Second):
		t.Fatal("job never succeeded")
	}
	assert.Zero(t, q.DeadLetters())
}

func TestLocalQueueDeadLettersAfterRetryLimit(t *testing.T) {
	q := NewLocalQueue(logger.Nop(), &QueueConfig{Workers: 1, RetryLimit: 1, RetryDelay: time.Millisecond})
	job := &recordJob{failFor: 100, got: make(chan int, 1)}
	q.RegisterJob(job)
	require.NoError(t, q.Start())
	defer q.Stop(context.Background())

	require.NoError(t, q.Enqueue(context.Background(), "record", payload{}))

	assert.Eventually(t, func() bool { return q.DeadLetters() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(2), job.calls.Load())
}

func TestLocalQueueRejects(t *testing.T) {
	q := NewLocalQueue(logger.Nop(), nil)
	assert.ErrorIs(t, q.Enqueue(context.Background(), "record", nil), ErrNotRunning)

	require.NoError(t, q.Start())
	defer q.Stop(context.Background())
	assert.ErrorIs(t, q.Enqueue(context.Background(), "missing", nil), ErrUnknownJob)
	assert.ErrorIs(t, q.Start(), ErrAlreadyStart)
}

// blockingJob holds each call until release is closed or its context ends,
// and reports the context error it finished with.
type blockingJob struct {
	started chan struct{}
	release chan struct{}
	ended   chan error
}

func newBlockingJob() *blockingJob {
	return &blockingJob{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
		ended:   make(chan error, 1),
	}
}

func (j *blockingJob) Name() string { return "blocking" }
func (j *blockingJob) Type() string { return "blocking" }

func (j *blockingJob) Handle(ctx context.Context, _ json.RawMessage) error {
	j.started <- struct{}{}
	select {
	case <-j.release:
		j.ended <- ctx.Err()
		return nil
	case <-ctx.Done():
		j.ended <- ctx.Err()
		return ctx.Err()
	}
}

func TestLocalQueueStopLetsInFlightJobFinish(t *testing.T) {
	q := NewLocalQueue(logger.Nop(), &QueueConfig{Workers: 1})
	job := newBlockingJob()
	q.RegisterJob(job)
	require.NoError(t, q.Start())

	require.NoError(t, q.Enqueue(context.Background(), "blocking", payload{}))
	<-job.started

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(job.release)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, q.Stop(ctx))

	assert.NoError(t, <-job.ended, "job context must stay live while Stop drains")
	assert.Zero(t, q.Interrupted())
	assert.Zero(t, q.DeadLetters())
}

func TestLocalQueueStopDeadlineInterruptsJob(t *testing.T) {
	q := NewLocalQueue(logger.Nop(), &QueueConfig{Workers: 1, RetryLimit: 3})
	job := newBlockingJob()
	q.RegisterJob(job)
	require.NoError(t, q.Start())

	require.NoError(t, q.Enqueue(context.Background(), "blocking", payload{}))
	<-job.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Stop(ctx), context.DeadlineExceeded)

	assert.ErrorIs(t, <-job.ended, context.Canceled)
	assert.Eventually(t, func() bool { return q.Interrupted() == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, q.DeadLetters())
}

type errJob struct{ err error }

func (j errJob) Name() string                                   { return "err" }
func (j errJob) Type() string                                   { return "err" }
func (j errJob) Handle(context.Context, json.RawMessage) error { return j.err }

func TestProcessOutcomes(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name     string
		ctx      context.Context
		job      Job
		attempts int
		want     outcome
	}{
		{"success", context.Background(), errJob{}, 0, outcomeDone},
		{"failure retries", context.Background(), errJob{err: errors.New("boom")}, 0, outcomeRetry},
		{"failure exhausts", context.Background(), errJob{err: errors.New("boom")}, 2, outcomeDead},
		{"cancel error with live context is a failure", context.Background(), errJob{err: context.Canceled}, 0, outcomeRetry},
		{"shutdown requeues", cancelled, errJob{err: context.Canceled}, 2, outcomeRequeue},
		{"missing job", context.Background(), nil, 0, outcomeDead},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := Message{ID: "m", Type: "err", Attempts: tt.attempts}
			assert.Equal(t, tt.want, process(tt.ctx, logger.Nop(), tt.job, msg, 2))
		})
	}
}
