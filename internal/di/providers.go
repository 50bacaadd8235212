package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"PairFlow/internal/domain/repository"
	"PairFlow/internal/handler/api"
	mid "PairFlow/internal/middleware"
	internalrepo "PairFlow/internal/repository"
	"PairFlow/internal/service/binance"
	icache "PairFlow/internal/service/cache"
	"PairFlow/internal/services/alerts"
	"PairFlow/internal/usecase"
	pkgcache "PairFlow/pkg/cache"
	pkgch "PairFlow/pkg/clickhouse"
	"PairFlow/pkg/config"
	pkgkafka "PairFlow/pkg/kafka"
	applogger "PairFlow/pkg/logger"
	"PairFlow/pkg/metrics"
	"PairFlow/pkg/server"
)

// ProvideLogger creates the application logger. Production gets JSON, every
// other environment the console writer.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "console"
	if cfg.Environment == "production" {
		format = "json"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideRedis creates the shared Redis cache client, or nil when Redis is
// disabled in config.
func ProvideRedis(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr %q: %w", cfg.Redis.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("redis port %q: %w", portStr, err)
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideTickStore creates the durable tick/bar store, initializes its
// schema and attaches the Redis accelerator when available.
func ProvideTickStore(chClient *pkgch.Client, rc *pkgcache.RedisCache, l *applogger.Logger, cfg *config.Config) (repository.TickStore, error) {
	store := internalrepo.NewClickHouseTickStore(chClient, cfg.ClickHouse.Database)
	store.SetLogger(l)

	if rc != nil {
		acc := internalrepo.NewRedisAccelerator(rc, pkgcache.NewLayeredCache(rc),
			internalrepo.WithTickCacheSize(cfg.Redis.TickCacheSize),
			internalrepo.WithBarCacheTTL(cfg.Redis.BarCacheTTL),
		)
		store.SetAccelerator(acc)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("tick store init: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when the backend
// does not route through Kafka.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates the Kafka consumer group, or nil when the
// backend does not route through Kafka.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideTickPublisher creates the Kafka publisher repository.
func ProvideTickPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideKafkaTicksHandler registers the handler draining the tick topic.
func ProvideKafkaTicksHandler(store repository.TickStore, metrics repository.Metrics, cfg *config.Config) *usecase.KafkaTicksHandler {
	return usecase.NewKafkaTicksHandler(cfg.Kafka.Topic, store, metrics)
}

// ProvideMarketStream creates the Binance trade WebSocket stream.
func ProvideMarketStream(cfg *config.Config) repository.MarketStream {
	return binance.New(
		cfg.Binance.WebSocketURL,
		cfg.Binance.Symbols,
		cfg.Binance.ReconnectDelay,
		cfg.Binance.PingInterval,
	)
}

// ProvideRestClient creates the Binance REST client for historical backfill.
func ProvideRestClient(cfg *config.Config) *binance.RestClient {
	return binance.NewRestClient(cfg.Binance.RestURL)
}

// ProvideTickProcessor creates the backend-routing processor.
func ProvideTickProcessor(
	pub repository.Publisher,
	store repository.TickStore,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.TickProcessor {
	return usecase.NewTickProcessor(
		pub,
		store,
		metrics,
		cfg.Backend.Type,
		cfg.Backend.BatchSize,
		cfg.Backend.BatchTimeout,
	)
}

// ProvideTickCollector creates the stream collector with the realtime
// pipeline between the WebSocket and the backend.
func ProvideTickCollector(
	stream repository.MarketStream,
	processor *usecase.TickProcessor,
	metrics repository.Metrics,
) *usecase.TickCollector {
	pipe := mid.NewRealtimePipeline(processor, metrics,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewTickCollector(stream, processor, metrics, pipe)
}

// ProvideAggregator creates the background bar aggregator.
func ProvideAggregator(store repository.TickStore, metrics repository.Metrics, l *applogger.Logger, cfg *config.Config) *usecase.Aggregator {
	var opts []usecase.AggregatorOption
	if cfg.Aggregation.Cadence > 0 {
		opts = append(opts, usecase.WithCadence(cfg.Aggregation.Cadence))
	}
	if cfg.Aggregation.Lookback > 0 {
		opts = append(opts, usecase.WithLookback(cfg.Aggregation.Lookback))
	}
	return usecase.NewAggregator(store, metrics, l, opts...)
}

// ProvideAlertManager creates the alert rule registry.
func ProvideAlertManager(l *applogger.Logger, cfg *config.Config) *alerts.Manager {
	var opts []alerts.ManagerOption
	if cfg.Analytics.AlertWindow > 0 {
		opts = append(opts, alerts.WithCooldown(cfg.Analytics.AlertWindow))
	}
	return alerts.NewManager(l, opts...)
}

// ProvidePairAnalytics creates the pair analytics use case.
func ProvidePairAnalytics(
	store repository.TickStore,
	am *alerts.Manager,
	metrics repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.PairAnalyticsUseCase {
	var opts []usecase.PairAnalyticsOption
	if cfg.Analytics.MaxBars > 0 {
		opts = append(opts, usecase.WithMaxBars(cfg.Analytics.MaxBars))
	}
	return usecase.NewPairAnalyticsUseCase(store, am, metrics, l, opts...)
}

// ProvideBacktest creates the backtest use case.
func ProvideBacktest(pa *usecase.PairAnalyticsUseCase, l *applogger.Logger) *usecase.BacktestUseCase {
	return usecase.NewBacktestUseCase(pa, l)
}

// ProvideTransfer creates the bulk CSV transfer use case.
func ProvideTransfer(store repository.TickStore, l *applogger.Logger) *usecase.TransferUseCase {
	return usecase.NewTransferUseCase(store, l)
}

// ProvideMarketHandler creates the HTTP handler with a response cache:
// Redis-backed when available, in-process TTL otherwise.
func ProvideMarketHandler(
	l *applogger.Logger,
	store repository.TickStore,
	pa *usecase.PairAnalyticsUseCase,
	bt *usecase.BacktestUseCase,
	transfer *usecase.TransferUseCase,
	am *alerts.Manager,
	rc *pkgcache.RedisCache,
) *api.MarketHandler {
	h := api.NewMarketHandler(l, store, pa, bt, transfer, am)
	if rc != nil {
		h.SetCache(icache.NewRedisCache(rc.Client()))
	} else {
		h.SetCache(icache.NewTTLCache())
	}
	return h
}

// ProvideApp assembles the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.TickCollector,
	processor *usecase.TickProcessor,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaTicksHandler,
	chClient *pkgch.Client,
	rc *pkgcache.RedisCache,
	store repository.TickStore,
	agg *usecase.Aggregator,
	rest *binance.RestClient,
	am *alerts.Manager,
	handler *api.MarketHandler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	return server.New(cfg, l, collector, processor, consumer, kh, chClient, rc, store, agg, rest, am, handler)
}
