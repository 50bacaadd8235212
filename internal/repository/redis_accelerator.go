package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"PairFlow/internal/domain/models"
	domrepo "PairFlow/internal/domain/repository"
	pkgcache "PairFlow/pkg/cache"
)

// defaults for the fast-access layer; both tunable via options
const (
	defaultTickCacheSize = 10000
	defaultBarCacheTTL   = 5 * time.Minute
)

// RedisAccelerator implements the optional Accelerator capability on top of
// Redis. Recent ticks live in one sorted set per symbol scored by event time
// and capped at a fixed size; bar snapshots are JSON blobs with a short TTL.
// Everything here is a cache: the durable store remains the source of truth.
type RedisAccelerator struct {
	client  *redis.Client
	bars    pkgcache.Service
	maxSize int
	barTTL  time.Duration
}

type AcceleratorOption func(*RedisAccelerator)

// WithTickCacheSize caps the per-symbol recent-tick sorted set.
func WithTickCacheSize(n int) AcceleratorOption {
	return func(a *RedisAccelerator) {
		if n > 0 {
			a.maxSize = n
		}
	}
}

// WithBarCacheTTL sets the bar snapshot expiry.
func WithBarCacheTTL(ttl time.Duration) AcceleratorOption {
	return func(a *RedisAccelerator) {
		if ttl > 0 {
			a.barTTL = ttl
		}
	}
}

func NewRedisAccelerator(rc *pkgcache.RedisCache, barCache pkgcache.Service, opts ...AcceleratorOption) *RedisAccelerator {
	a := &RedisAccelerator{
		client:  rc.Client(),
		bars:    barCache,
		maxSize: defaultTickCacheSize,
		barTTL:  defaultBarCacheTTL,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func tickKey(symbol string) string {
	return pkgcache.GenerateKey("ticks", symbol)
}

func barKey(symbol string, tf domrepo.Timeframe) string {
	return pkgcache.GenerateKeyWithParams("bars", symbol, string(tf))
}

// cachedTick is the zset member payload. The stored timestamp keeps
// millisecond precision; the score is epoch seconds for range queries.
type cachedTick struct {
	TS    int64   `json:"ts"`
	Price float64 `json:"p"`
	Size  float64 `json:"s"`
}

func (a *RedisAccelerator) AddTick(ctx context.Context, t *models.Tick) error {
	if t == nil || t.Symbol == "" {
		return nil
	}
	payload, err := json.Marshal(cachedTick{
		TS:    t.Timestamp.UnixMilli(),
		Price: t.Price,
		Size:  t.Size,
	})
	if err != nil {
		return err
	}

	key := tickKey(t.Symbol)
	pipe := a.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(t.Timestamp.Unix()), Member: payload})
	// keep only the newest maxSize members
	pipe.ZRemRangeByRank(ctx, key, 0, int64(-a.maxSize-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("accelerator add tick: %w", err)
	}
	return nil
}

func (a *RedisAccelerator) RecentTicks(ctx context.Context, symbol string, since time.Time) ([]models.Tick, error) {
	min := "-inf"
	if !since.IsZero() {
		min = fmt.Sprintf("%d", since.Unix())
	}
	raw, err := a.client.ZRangeByScore(ctx, tickKey(symbol), &redis.ZRangeBy{
		Min: min,
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("accelerator recent ticks: %w", err)
	}

	out := make([]models.Tick, 0, len(raw))
	for _, member := range raw {
		var ct cachedTick
		if err := json.Unmarshal([]byte(member), &ct); err != nil {
			continue // skip corrupt member
		}
		out = append(out, models.Tick{
			Symbol:    symbol,
			Timestamp: time.UnixMilli(ct.TS),
			Price:     ct.Price,
			Size:      ct.Size,
		})
	}
	return out, nil
}

func (a *RedisAccelerator) SetBars(ctx context.Context, symbol string, tf domrepo.Timeframe, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	return a.bars.Set(ctx, barKey(symbol, tf), bars, a.barTTL)
}
