//go:build wireinject
// +build wireinject

package di

import (
	"PairFlow/pkg/config"
	"PairFlow/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideRedis,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideTickStore,
		ProvideTickPublisher,
		ProvideMarketStream,
		ProvideRestClient,

		// Use cases
		ProvideTickProcessor,
		ProvideTickCollector,
		ProvideKafkaTicksHandler,
		ProvideAggregator,
		ProvideAlertManager,
		ProvidePairAnalytics,
		ProvideBacktest,
		ProvideTransfer,

		// HTTP surface
		ProvideMarketHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
