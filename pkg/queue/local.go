package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"StockCast/pkg/logger"
)

// LocalQueue is an in-process Dispatcher backed by a buffered channel.
// Messages do not survive a restart.
type LocalQueue struct {
	logger    *logger.Logger
	config    *QueueConfig
	jobs      map[string]Job
	messages  chan Message
	wg        sync.WaitGroup
	mu        sync.RWMutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
	jobCtx    context.Context
	jobCancel context.CancelFunc
	dead      atomic.Int64
	lost      atomic.Int64
}

// NewLocalQueue creates an in-process queue.
func NewLocalQueue(lgr *logger.Logger, config *QueueConfig) *LocalQueue {
	cfg := config.withDefaults()
	return &LocalQueue{
		logger:   lgr,
		config:   cfg,
		jobs:     make(map[string]Job),
		messages: make(chan Message, cfg.QueueSize),
	}
}

func (q *LocalQueue) RegisterJob(job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.jobs[job.Type()]; exists {
		q.logger.Warn("job already registered", logger.String("job", job.Name()))
		return
	}
	q.jobs[job.Type()] = job
}

func (q *LocalQueue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.isRunning {
		return ErrAlreadyStart
	}

	// ctx stops intake; jobCtx is only cancelled once Stop gives up waiting.
	q.ctx, q.cancel = context.WithCancel(context.Background())
	q.jobCtx, q.jobCancel = context.WithCancel(context.Background())
	q.isRunning = true
	for i := 0; i < q.config.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}

	q.logger.Info("local queue started", logger.Int("workers", q.config.Workers))
	return nil
}

func (q *LocalQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.isRunning {
		q.mu.Unlock()
		return nil
	}
	q.isRunning = false
	q.cancel()
	q.mu.Unlock()

	err := waitGroup(ctx, &q.wg, q.logger, "local queue")
	q.jobCancel()
	return err
}

// Enqueue never blocks: a full buffer returns ErrQueueFull.
func (q *LocalQueue) Enqueue(_ context.Context, msgType string, payload interface{}) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if !q.isRunning {
		return ErrNotRunning
	}
	if _, ok := q.jobs[msgType]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, msgType)
	}

	msg, err := newMessage(msgType, payload)
	if err != nil {
		return err
	}
	return q.push(msg)
}

// DeadLetters returns how many messages exhausted their retries.
func (q *LocalQueue) DeadLetters() int64 {
	return q.dead.Load()
}

// Interrupted returns how many in-flight messages were abandoned because
// Stop ran out of time. They are not persisted anywhere.
func (q *LocalQueue) Interrupted() int64 {
	return q.lost.Load()
}

func (q *LocalQueue) push(msg Message) error {
	select {
	case q.messages <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *LocalQueue) worker() {
	defer q.wg.Done()

	for {
		select {
		case <-q.ctx.Done():
			return
		case msg := <-q.messages:
			q.mu.RLock()
			job := q.jobs[msg.Type]
			q.mu.RUnlock()

			switch process(q.jobCtx, q.logger, job, msg, q.config.RetryLimit) {
			case outcomeRetry:
				msg.Attempts++
				q.retryLater(msg)
			case outcomeDead:
				q.dead.Add(1)
			case outcomeRequeue:
				q.lost.Add(1)
			}
		}
	}
}

func (q *LocalQueue) retryLater(msg Message) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		timer := time.NewTimer(q.config.RetryDelay)
		defer timer.Stop()

		select {
		case <-q.ctx.Done():
		case <-timer.C:
			if err := q.push(msg); err != nil {
				q.logger.Error("requeue failed", logger.String("id", msg.ID), logger.Error(err))
				q.dead.Add(1)
			}
		}
	}()
}
