package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"StockCast/pkg/logger"
)

type outcome int

const (
	outcomeDone outcome = iota
	outcomeRetry
	outcomeDead
	// outcomeRequeue means the job was cut short by shutdown and should run
	// again without spending an attempt.
	outcomeRequeue
)

// process runs one message through its job and decides what happens next.
func process(ctx context.Context, l *logger.Logger, job Job, msg Message, retryLimit int) outcome {
	if job == nil {
		l.Error("no job found",
			logger.String("type", msg.Type),
			logger.String("id", msg.ID))
		return outcomeDead
	}

	start := time.Now()
	err := safeHandle(ctx, job, msg)
	if err == nil {
		l.Debug("message processed",
			logger.String("id", msg.ID),
			logger.String("job", job.Name()),
			logger.Duration("elapsed_ms", time.Since(start)))
		return outcomeDone
	}

	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		l.Warn("message interrupted by shutdown",
			logger.String("id", msg.ID),
			logger.String("job", job.Name()))
		return outcomeRequeue
	}

	l.Error("message processing error",
		logger.String("id", msg.ID),
		logger.String("job", job.Name()),
		logger.Int("attempt", msg.Attempts+1),
		logger.Error(err))

	if msg.Attempts < retryLimit {
		return outcomeRetry
	}
	l.Error("max retries reached",
		logger.String("id", msg.ID),
		logger.String("job", job.Name()))
	return outcomeDead
}

func safeHandle(ctx context.Context, job Job, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name(), r)
		}
	}()
	return job.Handle(ctx, msg.Payload)
}

func waitGroup(ctx context.Context, wg *sync.WaitGroup, l *logger.Logger, name string) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		l.Warn("timeout waiting for workers", logger.String("queue", name), logger.Error(ctx.Err()))
		return fmt.Errorf("timeout: %w", ctx.Err())
	case <-done:
		l.Info("queue stopped gracefully", logger.String("queue", name))
		return nil
	}
}
