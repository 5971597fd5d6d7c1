package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"StockCast/internal/domain/models"
	drepo "StockCast/internal/domain/repository"
	"StockCast/pkg/logger"
	"StockCast/pkg/queue"

	"github.com/google/uuid"
)

// PredictJobType is the queue message type for asynchronous predictions.
const PredictJobType = "predict"

type predictJobPayload struct {
	ID      uuid.UUID             `json:"id"`
	Request models.PredictRequest `json:"request"`
}

// Requests manages asynchronous prediction requests.
type Requests struct {
	store   drepo.RequestStore
	queue   queue.Dispatcher
	metrics drepo.Metrics
	l       *logger.Logger
	now     func() time.Time
}

func NewRequests(store drepo.RequestStore, q queue.Dispatcher, metrics drepo.Metrics, l *logger.Logger) *Requests {
	return &Requests{store: store, queue: q, metrics: metrics, l: l, now: time.Now}
}

// Submit stores a pending record and enqueues the prediction.
func (r *Requests) Submit(ctx context.Context, req models.PredictRequest) (*models.Data, error) {
	if err := models.ValidateSymbol(req.Symbol); err != nil {
		return nil, err
	}
	if _, err := req.Time.AsSeconds(); err != nil {
		return nil, err
	}

	now := r.now().UTC()
	d := &models.Data{
		ID:        uuid.New(),
		Symbol:    req.Symbol,
		Period:    req.Time.String(),
		Interval:  req.Interval,
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("store request: %w", err)
	}

	if err := r.queue.Enqueue(ctx, PredictJobType, predictJobPayload{ID: d.ID, Request: req}); err != nil {
		d.Status = models.StatusFailed
		d.Error = "could not schedule prediction"
		d.UpdatedAt = r.now().UTC()
		if serr := r.store.Save(ctx, d); serr != nil {
			r.l.Error("mark request failed", logger.String("id", d.ID.String()), logger.Error(serr))
		}
		return nil, fmt.Errorf("enqueue request: %w", err)
	}

	r.metrics.RecordRequestStatus(string(models.StatusPending))
	r.l.Info("request submitted", logger.String("id", d.ID.String()), logger.String("symbol", d.Symbol))
	return d, nil
}

// Status returns the stored record or models.ErrNotFound.
func (r *Requests) Status(ctx context.Context, id uuid.UUID) (*models.Data, error) {
	return r.store.Get(ctx, id)
}

// Watch polls the record every interval and emits it whenever its status
// or update time changes. The channel closes after a terminal status, on
// ctx cancellation, or on a store error.
func (r *Requests) Watch(ctx context.Context, id uuid.UUID, interval time.Duration) (<-chan models.Data, error) {
	first, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	out := make(chan models.Data, 1)
	go func() {
		defer close(out)

		last := *first
		out <- last
		if last.Status.IsTerminal() {
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			cur, err := r.store.Get(ctx, id)
			if err != nil {
				if ctx.Err() == nil {
					r.l.Warn("watch request failed", logger.String("id", id.String()), logger.Error(err))
				}
				return
			}
			if cur.Status == last.Status && cur.UpdatedAt.Equal(last.UpdatedAt) {
				continue
			}
			last = *cur
			select {
			case out <- last:
			case <-ctx.Done():
				return
			}
			if last.Status.IsTerminal() {
				return
			}
		}
	}()
	return out, nil
}

// PredictJob runs queued predictions. Prediction failures are recorded on
// the request and not retried. Store or sink failures, and predictions cut
// short by a cancelled context, are returned so the queue runs the message
// again.
type PredictJob struct {
	predictor *Predictor
	store     drepo.RequestStore
	sink      drepo.ResultPublisher
	metrics   drepo.Metrics
	l         *logger.Logger
	now       func() time.Time
}

var _ queue.Job = (*PredictJob)(nil)

func NewPredictJob(p *Predictor, store drepo.RequestStore, sink drepo.ResultPublisher, metrics drepo.Metrics, l *logger.Logger) *PredictJob {
	return &PredictJob{predictor: p, store: store, sink: sink, metrics: metrics, l: l, now: time.Now}
}

func (j *PredictJob) Name() string { return "predict_job" }

func (j *PredictJob) Type() string { return PredictJobType }

func (j *PredictJob) Handle(ctx context.Context, raw json.RawMessage) error {
	p, err := queue.ParsePayload[predictJobPayload](raw)
	if err != nil {
		return err
	}

	d, err := j.store.Get(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("load request %s: %w", p.ID, err)
	}
	if d.Status.IsTerminal() {
		return nil
	}

	d.Status = models.StatusRunning
	d.UpdatedAt = j.now().UTC()
	if err := j.store.Save(ctx, d); err != nil {
		return fmt.Errorf("mark running: %w", err)
	}
	j.metrics.RecordRequestStatus(string(models.StatusRunning))

	pred, perr := j.predictor.Predict(ctx, p.Request)
	if perr != nil && ctx.Err() != nil && (errors.Is(perr, context.Canceled) || errors.Is(perr, context.DeadlineExceeded)) {
		// Shutdown cut the prediction short: leave the record running so the
		// redelivered message finishes it.
		return fmt.Errorf("prediction %s interrupted: %w", d.ID, perr)
	}
	if perr == nil {
		d.Data, perr = json.Marshal(pred)
	}
	if perr != nil {
		d.Status = models.StatusFailed
		d.Error = perr.Error()
		d.Data = nil
		j.l.Warn("async prediction failed", logger.String("id", d.ID.String()), logger.Error(perr))
	} else {
		d.Status = models.StatusDone
	}
	d.UpdatedAt = j.now().UTC()

	if err := j.sink.PublishResult(ctx, d); err != nil {
		return fmt.Errorf("publish result: %w", err)
	}
	j.metrics.RecordRequestStatus(string(d.Status))
	return nil
}
