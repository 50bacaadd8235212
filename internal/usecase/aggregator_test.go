package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	domrepo "PairFlow/internal/domain/repository"
)

func TestAggregatorStartIdempotent(t *testing.T) {
	store := newFakeTickStore()
	agg := NewAggregator(store, nopMetrics{}, nil, WithCadence(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := agg.StartTask(ctx, "BTCUSDT", domrepo.TF1m); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !agg.Running("BTCUSDT", domrepo.TF1m) {
		t.Fatalf("task should be running")
	}
	// second start on the same key is a warning, not an error
	if err := agg.StartTask(ctx, "BTCUSDT", domrepo.TF1m); err != nil {
		t.Fatalf("duplicate start should be nil, got %v", err)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := agg.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if agg.Running("BTCUSDT", domrepo.TF1m) {
		t.Fatalf("task should be stopped")
	}
}

func TestAggregatorRejectsBadInput(t *testing.T) {
	agg := NewAggregator(newFakeTickStore(), nopMetrics{}, nil)
	ctx := context.Background()

	if err := agg.StartTask(ctx, "", domrepo.TF1m); err == nil {
		t.Errorf("empty symbol should fail")
	}
	if err := agg.StartTask(ctx, "BTCUSDT", domrepo.Timeframe("7m")); err == nil {
		t.Errorf("unsupported timeframe should fail")
	}
}

func TestAggregatorWritesBars(t *testing.T) {
	store := newFakeTickStore()
	now := time.Now().UTC().Truncate(time.Minute)
	for i := 0; i < 5; i++ {
		tk := tick("BTCUSDT", now.Add(time.Duration(i)*time.Second), 100+float64(i), 1)
		_ = store.StoreTick(context.Background(), &tk)
	}

	agg := NewAggregator(store, nopMetrics{}, nil, WithCadence(10*time.Millisecond), WithLookback(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := agg.StartTask(ctx, "BTCUSDT", domrepo.TF1m); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for store.barsStored() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := agg.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	bars, err := store.GetBars(context.Background(), "BTCUSDT", domrepo.TF1m, time.Time{})
	if err != nil {
		t.Fatalf("get bars: %v", err)
	}
	if len(bars) == 0 {
		t.Fatalf("aggregator wrote no bars")
	}
	if bars[0].TradeCount != 5 {
		t.Errorf("trade count = %d, want 5", bars[0].TradeCount)
	}
}

func TestAggregatorSurvivesReadErrors(t *testing.T) {
	store := newFakeTickStore()
	store.getErr = errors.New("boom")

	agg := NewAggregator(store, nopMetrics{}, nil, WithCadence(5*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := agg.StartTask(ctx, "BTCUSDT", domrepo.TF1m); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if !agg.Running("BTCUSDT", domrepo.TF1m) {
		t.Fatalf("read errors must not kill the task")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := agg.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
