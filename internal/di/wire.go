//go:build wireinject
// +build wireinject

package di

import (
	"StockCast/pkg/config"
	"StockCast/pkg/server"

	"github.com/google/wire"
)

// InfraSet holds clients for external systems; each returns nil when
// disabled. Connected clients come with a cleanup.
var InfraSet = wire.NewSet(
	ProvideRedisClient,
	ProvideClickHouseClient,
	ProvideKafkaProducer,
	ProvideKafkaConsumer,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		InfraSet,

		// Repositories
		ProvideRequestStore,
		ProvideResultPublisher,
		ProvideQuoteCache,
		ProvideQuoteProvider,

		// Use cases
		ProvideForecaster,
		ProvidePredictor,
		ProvideQueue,
		ProvideRequests,
		ProvidePredictJob,
		ProvideKafkaResultsHandler,

		// HTTP
		ProvideLimiter,
		ProvideHealthChecks,
		ProvideHTTPHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return &server.App{}, nil, nil
}
