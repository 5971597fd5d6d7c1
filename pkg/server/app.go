package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"StockCast/internal/domain/repository"
	"StockCast/internal/service/ratelimit"
	"StockCast/pkg/config"
	xhttp "StockCast/pkg/http"
	pkgkafka "StockCast/pkg/kafka"
	"StockCast/pkg/logger"
	"StockCast/pkg/queue"
)

const (
	limiterSweepEvery = time.Minute
	limiterIdle       = 10 * time.Minute
)

// Components are the long-lived parts the App starts and stops. Optional
// ones are nil when their backend is disabled. Connection pools are not
// listed: whoever built them closes them after Run returns.
type Components struct {
	Queue    queue.Dispatcher
	Consumer *pkgkafka.Consumer
	Store    repository.RequestStore
	Sink     repository.ResultPublisher
	Limiter  *ratelimit.Limiter
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *logger.Logger
	httpServer *xhttp.Server
	c          Components
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *logger.Logger, srv *xhttp.Server, c Components) *App {
	return &App{cfg: cfg, log: l, httpServer: srv, c: c}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts every component and blocks until ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	if err := a.c.Queue.Start(); err != nil {
		return err
	}
	a.log.Info("queue started", logger.Int("workers", a.cfg.Queue.Workers))

	if a.c.Consumer != nil {
		if err := a.c.Consumer.Start(); err != nil {
			a.log.Error("kafka consumer error", logger.Error(err))
			_ = a.c.Queue.Stop(context.Background())
			return err
		}
		a.log.Info("kafka consumer started", logger.String("topic", a.cfg.Kafka.Topic))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", logger.Error(err))
		a.stopWorkers()
		return err
	}

	if a.c.Limiter != nil {
		go a.sweepLimiter(ctx)
	}

	a.log.Info("stockcast started",
		logger.String("addr", a.httpServer.Addr()),
		logger.String("backend", a.cfg.Backend.Type),
		logger.Bool("clickhouse", a.cfg.ClickHouse.Enabled),
		logger.Bool("redis", a.cfg.Redis.Enabled))

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

// stopWorkers unwinds a partial start.
func (a *App) stopWorkers() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if a.c.Consumer != nil {
		if err := a.c.Consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", logger.Error(err))
		}
	}
	if err := a.c.Queue.Stop(ctx); err != nil {
		a.log.Warn("queue stop error", logger.Error(err))
	}
}

func (a *App) sweepLimiter(ctx context.Context) {
	ticker := time.NewTicker(limiterSweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.c.Limiter.Sweep(limiterIdle); n > 0 {
				a.log.Debug("rate limiter swept", logger.Int("buckets", n))
			}
		}
	}
}

// shutdown stops intake first, then drains workers, then closes the sink
// and store.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", logger.Error(err))
		errs = append(errs, err)
	}
	if err := a.c.Queue.Stop(ctx); err != nil {
		a.log.Warn("queue stop error", logger.Error(err))
		errs = append(errs, err)
	}
	if a.c.Consumer != nil {
		if err := a.c.Consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", logger.Error(err))
			errs = append(errs, err)
		}
	}
	if err := a.c.Sink.Close(); err != nil {
		a.log.Warn("result sink close error", logger.Error(err))
	}

	// flush collected errors while the producer is still open
	a.log.RemoveCollector()
	if err := a.c.Store.Close(); err != nil {
		a.log.Warn("request store close error", logger.Error(err))
	}

	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
