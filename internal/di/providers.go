package di

import (
	"context"
	"fmt"
	"time"

	"StockCast/internal/domain/repository"
	"StockCast/internal/handler/api"
	internalrepo "StockCast/internal/repository"
	"StockCast/internal/service/ratelimit"
	"StockCast/internal/service/yahoo"
	"StockCast/internal/services/forecast"
	"StockCast/internal/usecase"
	"StockCast/pkg/cache"
	pkgch "StockCast/pkg/clickhouse"
	"StockCast/pkg/config"
	xhttp "StockCast/pkg/http"
	pkgkafka "StockCast/pkg/kafka"
	"StockCast/pkg/logger"
	"StockCast/pkg/metrics"
	"StockCast/pkg/queue"
	"StockCast/pkg/server"

	"github.com/redis/go-redis/v9"
)

const initTimeout = 10 * time.Second

// ProvideLogger builds the application logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(logger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideRedisClient connects to Redis, or returns nil when disabled. The
// cleanup closes the client.
func ProvideRedisClient(cfg *config.Config, l *logger.Logger) (*redis.Client, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	client, err := cache.NewRedisClient(ctx,
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis client: %w", err)
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			l.Warn("redis close error", logger.Error(err))
		}
	}
	return client, cleanup, nil
}

// ProvideClickHouseClient creates a ClickHouse client, or returns nil when
// disabled. The cleanup closes the pool.
func ProvideClickHouseClient(cfg *config.Config, l *logger.Logger) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close error", logger.Error(err))
		}
	}
	return client, cleanup, nil
}

// ProvideKafkaProducer creates a Kafka producer when the kafka backend or
// the log collector needs one. The cleanup flushes and closes it.
func ProvideKafkaProducer(cfg *config.Config, l *logger.Logger) (*pkgkafka.Producer, func(), error) {
	if cfg.Backend.Type != "kafka" && cfg.Log.Collector.Topic == "" {
		return nil, func() {}, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.BatchTimeout),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	cleanup := func() {
		if err := producer.Close(); err != nil {
			l.Warn("kafka producer close error", logger.Error(err))
		}
	}
	return producer, cleanup, nil
}

// ProvideKafkaConsumer creates the results consumer for the kafka backend.
func ProvideKafkaConsumer(cfg *config.Config, l *logger.Logger) (*pkgkafka.Consumer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}

	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.TracingHook(l))
	return consumer, nil
}

// ProvideRequestStore picks the ClickHouse store when a client exists and
// creates its schema; otherwise requests live in memory.
func ProvideRequestStore(ch *pkgch.Client, l *logger.Logger) (repository.RequestStore, error) {
	if ch == nil {
		l.Warn("clickhouse disabled, requests are kept in memory")
		return internalrepo.NewMemoryRequestStore(), nil
	}

	store := internalrepo.NewCHRequestStore(ch, l)
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideResultPublisher selects the sink for finished requests by backend type.
func ProvideResultPublisher(cfg *config.Config, store repository.RequestStore, producer *pkgkafka.Producer) repository.ResultPublisher {
	if cfg.Backend.Type == "kafka" && producer != nil {
		return internalrepo.NewKafkaResultPublisher(producer, cfg.Kafka.Topic)
	}
	return internalrepo.NewStoreResultPublisher(store)
}

// ProvideQuoteCache is the layered quote cache. Redis backs L2 when enabled.
func ProvideQuoteCache(cfg *config.Config, client *redis.Client) cache.Service {
	opts := []cache.LayeredOption{
		cache.WithLayeredMemorySize(cfg.Redis.L1Size),
		cache.WithLayeredMemoryTTL(cfg.Redis.QuoteTTL),
	}
	if client == nil {
		return cache.NewLayeredCache(nil, opts...)
	}
	return cache.NewLayeredCache(cache.NewRedisCache(client, cfg.Redis.Prefix), opts...)
}

// ProvideQuoteProvider creates the Yahoo client behind the quote cache.
func ProvideQuoteProvider(cfg *config.Config, c cache.Service, l *logger.Logger) repository.QuoteProvider {
	hc := xhttp.NewClient(
		xhttp.WithTimeout(cfg.Yahoo.Timeout),
		xhttp.WithHeader("User-Agent", cfg.Yahoo.UserAgent),
	)
	client := yahoo.New(hc,
		yahoo.WithBaseURL(cfg.Yahoo.BaseURL),
		yahoo.WithDefaultInterval(cfg.Yahoo.Interval),
	)
	return internalrepo.NewCachedQuotes(client, c, cfg.Redis.QuoteTTL, l)
}

func ProvideForecaster(cfg *config.Config) *forecast.Forecaster {
	return forecast.NewForecaster(cfg.Model.TrainRatio, cfg.Model.MinSamples, cfg.Model.MaxHorizon)
}

func ProvidePredictor(
	quotes repository.QuoteProvider,
	f *forecast.Forecaster,
	m repository.Metrics,
	l *logger.Logger,
	cfg *config.Config,
) *usecase.Predictor {
	return usecase.NewPredictor(quotes, f, m, l, cfg.Yahoo.Interval)
}

// ProvideQueue uses the Redis queue when Redis is enabled, else an in-process one.
func ProvideQueue(cfg *config.Config, client *redis.Client, l *logger.Logger) queue.Dispatcher {
	qc := &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		QueueSize:  cfg.Queue.Size,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}
	if client == nil {
		return queue.NewLocalQueue(l, qc)
	}
	return queue.NewRedisQueue(l, qc, client, queue.WithKeyPrefix(cfg.Queue.KeyPrefix))
}

func ProvidePredictJob(
	p *usecase.Predictor,
	store repository.RequestStore,
	sink repository.ResultPublisher,
	m repository.Metrics,
	l *logger.Logger,
) *usecase.PredictJob {
	return usecase.NewPredictJob(p, store, sink, m, l)
}

func ProvideRequests(store repository.RequestStore, q queue.Dispatcher, m repository.Metrics, l *logger.Logger) *usecase.Requests {
	return usecase.NewRequests(store, q, m, l)
}

// ProvideKafkaResultsHandler persists results arriving on the results topic.
func ProvideKafkaResultsHandler(cfg *config.Config, store repository.RequestStore, m repository.Metrics) *usecase.KafkaResultsHandler {
	return usecase.NewKafkaResultsHandler(cfg.Kafka.Topic, store, m)
}

func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	if cfg.Server.RateLimit.Capacity <= 0 {
		return nil
	}
	return ratelimit.New(cfg.Server.RateLimit.Capacity, cfg.Server.RateLimit.RefillPerSec)
}

// ProvideHealthChecks lists the infrastructure pinged by /health.
func ProvideHealthChecks(store repository.RequestStore, client *redis.Client) api.HealthChecks {
	checks := api.HealthChecks{{Name: "store", Check: store.Health}}
	if client != nil {
		checks = append(checks, api.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return client.Ping(ctx).Err() },
		})
	}
	return checks
}

func ProvideHTTPHandler(
	l *logger.Logger,
	p *usecase.Predictor,
	r *usecase.Requests,
	limiter *ratelimit.Limiter,
	checks api.HealthChecks,
) *api.PredictEchoHandler {
	return api.NewPredictEchoHandler(l, p, r, limiter, checks)
}

// ProvideHTTPServer builds the echo server around the API handler.
func ProvideHTTPServer(cfg *config.Config, h *api.PredictEchoHandler, l *logger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(h, l,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithMetricsPath(metricsPath),
	)
}

// ProvideApp creates the application server. Clients with a cleanup are
// closed by the injector's cleanup, after the app has shut down.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	srv *xhttp.Server,
	q queue.Dispatcher,
	job *usecase.PredictJob,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaResultsHandler,
	store repository.RequestStore,
	sink repository.ResultPublisher,
	producer *pkgkafka.Producer,
	limiter *ratelimit.Limiter,
) *server.App {
	if producer != nil && cfg.Log.Collector.Topic != "" {
		l.AddCollector(&logger.CollectionConfig{
			TimeInterval:   cfg.Log.Collector.Interval,
			CountThreshold: cfg.Log.Collector.CountThreshold,
			Topic:          cfg.Log.Collector.Topic,
			Publisher:      producer,
		})
	}

	q.RegisterJob(job)
	if consumer != nil {
		consumer.RegisterHandler(kh)
	}

	return server.New(cfg, l, srv, server.Components{
		Queue:    q,
		Consumer: consumer,
		Store:    store,
		Sink:     sink,
		Limiter:  limiter,
	})
}
