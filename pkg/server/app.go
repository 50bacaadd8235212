package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	domrepo "PairFlow/internal/domain/repository"
	"PairFlow/internal/service/binance"
	"PairFlow/internal/services/alerts"
	"PairFlow/internal/usecase"
	pkgcache "PairFlow/pkg/cache"
	pkgch "PairFlow/pkg/clickhouse"
	"PairFlow/pkg/config"
	xhttp "PairFlow/pkg/http"
	pkgkafka "PairFlow/pkg/kafka"
	applogger "PairFlow/pkg/logger"
	"PairFlow/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	collector  *usecase.TickCollector
	processor  *usecase.TickProcessor
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	chClient   *pkgch.Client
	redis      *pkgcache.RedisCache
	store      domrepo.TickStore
	agg        *usecase.Aggregator
	rest       *binance.RestClient
	alerts     *alerts.Manager
	handler    xhttp.Handler
	httpServer *xhttp.Server
	alertQueue *queue.RedisQueue
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.TickCollector,
	processor *usecase.TickProcessor,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	redis *pkgcache.RedisCache,
	store domrepo.TickStore,
	agg *usecase.Aggregator,
	rest *binance.RestClient,
	am *alerts.Manager,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:       cfg,
		l:         l,
		collector: collector,
		processor: processor,
		consumer:  consumer,
		kh:        kh,
		chClient:  chClient,
		redis:     redis,
		store:     store,
		agg:       agg,
		rest:      rest,
		alerts:    am,
		handler:   handler,
	}
}

// timeframes returns the configured aggregation timeframes, defaulting to 1m.
func (a *App) timeframes() []domrepo.Timeframe {
	if len(a.cfg.Aggregation.Timeframes) == 0 {
		return []domrepo.Timeframe{domrepo.TF1m}
	}
	tfs := make([]domrepo.Timeframe, 0, len(a.cfg.Aggregation.Timeframes))
	for _, s := range a.cfg.Aggregation.Timeframes {
		tfs = append(tfs, domrepo.NormalizeTimeframe(s))
	}
	return tfs
}

// backfill seeds bars from the Binance REST API so analytics have history
// before the live stream accumulates any. Failures are logged and skipped.
func (a *App) backfill(ctx context.Context) {
	n := a.cfg.Binance.BackfillBars
	if n <= 0 || a.rest == nil {
		return
	}
	for _, symbol := range a.cfg.Binance.Symbols {
		for _, tf := range a.timeframes() {
			bars, err := a.rest.Klines(ctx, symbol, tf, n)
			if err != nil {
				a.l.Warn("backfill fetch failed",
					applogger.String("symbol", symbol),
					applogger.String("tf", string(tf)),
					applogger.Error(err),
				)
				continue
			}
			if len(bars) == 0 {
				continue
			}
			if err := a.store.StoreBars(ctx, symbol, tf, bars); err != nil {
				a.l.Warn("backfill store failed",
					applogger.String("symbol", symbol),
					applogger.String("tf", string(tf)),
					applogger.Error(err),
				)
				continue
			}
			a.l.Info("bars backfilled",
				applogger.String("symbol", symbol),
				applogger.String("tf", string(tf)),
				applogger.Int("bars", len(bars)),
			)
		}
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.backfill(ctx)

	// background bar aggregation for every symbol and timeframe
	a.agg.StartAll(ctx, a.cfg.Binance.Symbols, a.timeframes())

	// alert fan-out through the redis-backed notification queue
	if a.redis != nil {
		q := queue.NewRedisQueue(a.l, &queue.QueueConfig{Workers: 1, RetryLimit: 3},
			a.redis.Client(), queue.ModeProducerConsumer,
			queue.WithKeyPrefix("pairflow:alerts"),
		)
		q.RegisterJob(alerts.NewNotifyJob(a.l))
		if err := q.Start(); err != nil {
			a.l.Warn("alert queue start failed", applogger.Error(err))
		} else {
			a.alertQueue = q
			alerts.PublishTriggered(a.alerts, q, a.l)
		}
	}

	// live ingestion
	go func() {
		if err := a.collector.Start(ctx); err != nil {
			a.l.Error("collector error", applogger.Error(err))
		}
	}()
	a.l.Info("collector started", applogger.Strings("symbols", a.cfg.Binance.Symbols))

	// kafka drain when the backend routes through kafka
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithRequestMetrics(a.l, time.Second),
	)
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.collector.Shutdown(shutdownCtx); err != nil {
		a.l.Warn("collector stop error", applogger.Error(err))
	}

	if err := a.agg.Stop(shutdownCtx); err != nil {
		a.l.Warn("aggregator stop error", applogger.Error(err))
	}

	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.l.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.alertQueue != nil {
		if err := a.alertQueue.Stop(shutdownCtx); err != nil {
			a.l.Warn("alert queue stop error", applogger.Error(err))
		}
	}

	// processor owns the publisher and store handles
	if a.processor != nil {
		a.processor.Close()
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.l.Warn("redis close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
