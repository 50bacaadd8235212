package repository

import (
	"context"
	"time"

	"PairFlow/internal/domain/models"
)

type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

type Publisher interface {
	Publish(ctx context.Context, t *models.Tick) error
	PublishBatch(ctx context.Context, ticks []*models.Tick) error
	Close() error
}

// TickStore is the durable store for ticks and derived bars. Implementations
// serialize writes behind a single mutex per instance; reads may run
// concurrently with writers.
type TickStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	StoreTick(ctx context.Context, t *models.Tick) error
	StoreTickBatch(ctx context.Context, ticks []*models.Tick) error
	// GetTicks returns ticks ordered by timestamp ascending. Zero from/to
	// leave the window unbounded on that side; limit caps to the most
	// recent rows.
	GetTicks(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.Tick, error)
	// StoreBars upserts bars keyed on (symbol, timeframe, bucket). Storing
	// the same bucket twice replaces it, never duplicates.
	StoreBars(ctx context.Context, symbol string, tf Timeframe, bars []models.Bar) error
	// GetBars returns bars ordered by bucket ascending, optionally bounded
	// below by from.
	GetBars(ctx context.Context, symbol string, tf Timeframe, from time.Time) ([]models.Bar, error)
	Symbols(ctx context.Context) ([]string, error)
	Health(ctx context.Context) error
	Close() error
}

// Accelerator is an optional fast-access layer a TickStore may have
// attached. Callers check for presence; every operation is best-effort and
// failures degrade transparently to the durable path.
type Accelerator interface {
	AddTick(ctx context.Context, t *models.Tick) error
	RecentTicks(ctx context.Context, symbol string, since time.Time) ([]models.Tick, error)
	// SetBars caches the latest bar set for external consumers. It is
	// write-side only: bar reads always go to the durable store, because
	// the blob holds just the window of the most recent write.
	SetBars(ctx context.Context, symbol string, tf Timeframe, bars []models.Bar) error
}

type Metrics interface {
	RecordMessageSent(backend, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordBarsAggregated(symbol, timeframe string, n int)
}
