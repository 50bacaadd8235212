package usecase

import (
	"context"
	"sync"
	"time"

	"PairFlow/internal/domain/models"
	domrepo "PairFlow/internal/domain/repository"
)

// fakeTickStore is an in-memory TickStore for tests.
type fakeTickStore struct {
	mu      sync.Mutex
	ticks   map[string][]models.Tick
	bars    map[string][]models.Bar
	getErr  error
	barsPut int
}

func newFakeTickStore() *fakeTickStore {
	return &fakeTickStore{
		ticks: make(map[string][]models.Tick),
		bars:  make(map[string][]models.Bar),
	}
}

func barsKey(symbol string, tf domrepo.Timeframe) string {
	return symbol + "|" + string(tf)
}

func (f *fakeTickStore) Init(ctx context.Context) error { return nil }

func (f *fakeTickStore) StoreTick(ctx context.Context, t *models.Tick) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticks[t.Symbol] = append(f.ticks[t.Symbol], *t)
	return nil
}

func (f *fakeTickStore) StoreTickBatch(ctx context.Context, ticks []*models.Tick) error {
	for _, t := range ticks {
		if err := f.StoreTick(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeTickStore) GetTicks(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.Tick, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	var out []models.Tick
	for _, t := range f.ticks[symbol] {
		if !from.IsZero() && t.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && t.Timestamp.After(to) {
			continue
		}
		out = append(out, t)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeTickStore) StoreBars(ctx context.Context, symbol string, tf domrepo.Timeframe, bars []models.Bar) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.barsPut++
	key := barsKey(symbol, tf)
	existing := f.bars[key]
	for _, b := range bars {
		replaced := false
		for i := range existing {
			if existing[i].Bucket.Equal(b.Bucket) {
				existing[i] = b
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, b)
		}
	}
	f.bars[key] = existing
	return nil
}

func (f *fakeTickStore) GetBars(ctx context.Context, symbol string, tf domrepo.Timeframe, from time.Time) ([]models.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Bar
	for _, b := range f.bars[barsKey(symbol, tf)] {
		if !from.IsZero() && b.Bucket.Before(from) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeTickStore) Symbols(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for sym := range f.ticks {
		out = append(out, sym)
	}
	return out, nil
}

func (f *fakeTickStore) Health(ctx context.Context) error { return nil }
func (f *fakeTickStore) Close() error                     { return nil }

func (f *fakeTickStore) barsStored() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.barsPut
}

var _ domrepo.TickStore = (*fakeTickStore)(nil)

// nopMetrics satisfies Metrics without recording anything.
type nopMetrics struct{}

func (nopMetrics) RecordMessageSent(backend, symbol string)            {}
func (nopMetrics) RecordError(kind string)                             {}
func (nopMetrics) RecordLastPrice(symbol string, price float64)        {}
func (nopMetrics) RecordLatency(op string, seconds float64)            {}
func (nopMetrics) RecordBarsAggregated(symbol, timeframe string, n int) {}

var _ domrepo.Metrics = nopMetrics{}
