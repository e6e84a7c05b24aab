//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"FinAlert/pkg/config"
	"FinAlert/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation in wire_gen.go.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Telemetry
		ProvideRegistry,
		ProvideMetrics,
		ProvideLogger,

		// Infrastructure clients
		ProvidePostgresClient,
		ProvideClickHouseClient,
		ProvideCache,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideSourceStore,
		ProvideItemStore,
		ProvideAlertStore,
		ProvideCHMarketStore,
		ProvideMarketStore,

		// Services
		ProvideFeedFetcher,
		ProvideEngine,
		ProvideAlertHub,
		ProvideAlertNotifiers,

		// Use cases
		ProvideCollectionScheduler,
		ProvideAlertDeduplicator,
		ProvideAlertScheduler,
		ProvideScheduler,
		ProvideMarketIngestHandler,

		// Delivery
		ProvideSchedulerHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}
