package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	domrepo "PairFlow/internal/domain/repository"
	applogger "PairFlow/pkg/logger"
)

// Aggregator maintains one background task per (symbol, timeframe) that
// periodically folds recent ticks into bars and upserts them. Starting an
// already-running key is a no-op with a warning; Stop cancels every task
// and waits, bounded by the caller's context.
type Aggregator struct {
	store    domrepo.TickStore
	metrics  domrepo.Metrics
	l        *applogger.Logger
	cadence  time.Duration
	lookback time.Duration

	mu    sync.Mutex
	tasks map[string]*aggTask
}

type aggTask struct {
	cancel context.CancelFunc
	done   chan struct{}
}

type AggregatorOption func(*Aggregator)

// WithCadence sets the interval between aggregation cycles.
func WithCadence(d time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if d > 0 {
			a.cadence = d
		}
	}
}

// WithLookback sets how far back each cycle re-reads ticks. The window
// should cover at least a few buckets of the largest timeframe so late
// ticks still land in their bar.
func WithLookback(d time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if d > 0 {
			a.lookback = d
		}
	}
}

func NewAggregator(store domrepo.TickStore, metrics domrepo.Metrics, l *applogger.Logger, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		store:    store,
		metrics:  metrics,
		l:        l,
		cadence:  5 * time.Second,
		lookback: 10 * time.Minute,
		tasks:    make(map[string]*aggTask),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func taskKey(symbol string, tf domrepo.Timeframe) string {
	return symbol + "|" + string(tf)
}

// StartTask launches the background aggregation loop for one key. Calling
// it again while the task runs logs a warning and changes nothing.
func (a *Aggregator) StartTask(ctx context.Context, symbol string, tf domrepo.Timeframe) error {
	if symbol == "" {
		return fmt.Errorf("symbol required")
	}
	if !domrepo.IsValidTimeframe(tf) {
		return fmt.Errorf("unsupported timeframe: %s", tf)
	}

	key := taskKey(symbol, tf)

	a.mu.Lock()
	if _, running := a.tasks[key]; running {
		a.mu.Unlock()
		if a.l != nil {
			a.l.Warn("aggregation task already running",
				applogger.String("symbol", symbol),
				applogger.String("tf", string(tf)),
			)
		}
		return nil
	}
	taskCtx, cancel := context.WithCancel(ctx)
	task := &aggTask{cancel: cancel, done: make(chan struct{})}
	a.tasks[key] = task
	a.mu.Unlock()

	go a.run(taskCtx, task, symbol, tf)
	return nil
}

// StartAll launches tasks for every symbol and timeframe combination.
// A failure to start one key is logged and the rest continue.
func (a *Aggregator) StartAll(ctx context.Context, symbols []string, tfs []domrepo.Timeframe) {
	for _, sym := range symbols {
		for _, tf := range tfs {
			if err := a.StartTask(ctx, sym, tf); err != nil && a.l != nil {
				a.l.Error("start aggregation task failed",
					applogger.String("symbol", sym),
					applogger.String("tf", string(tf)),
					applogger.Error(err),
				)
			}
		}
	}
}

// StopTask cancels one task and waits for it to exit, bounded by ctx.
func (a *Aggregator) StopTask(ctx context.Context, symbol string, tf domrepo.Timeframe) error {
	key := taskKey(symbol, tf)

	a.mu.Lock()
	task, ok := a.tasks[key]
	if ok {
		delete(a.tasks, key)
	}
	a.mu.Unlock()
	if !ok {
		return nil
	}

	task.cancel()
	select {
	case <-task.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop %s: %w", key, ctx.Err())
	}
}

// Stop cancels every running task and waits for them to drain. Returns an
// error when the context expires before all tasks have exited.
func (a *Aggregator) Stop(ctx context.Context) error {
	a.mu.Lock()
	tasks := make([]*aggTask, 0, len(a.tasks))
	for key, task := range a.tasks {
		task.cancel()
		tasks = append(tasks, task)
		delete(a.tasks, key)
	}
	a.mu.Unlock()

	for _, task := range tasks {
		select {
		case <-task.done:
		case <-ctx.Done():
			return fmt.Errorf("aggregator stop: %w", ctx.Err())
		}
	}
	if a.l != nil {
		a.l.Info("aggregator stopped", applogger.Int("tasks", len(tasks)))
	}
	return nil
}

// Running reports whether the key currently has a live task.
func (a *Aggregator) Running(symbol string, tf domrepo.Timeframe) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.tasks[taskKey(symbol, tf)]
	return ok
}

func (a *Aggregator) run(ctx context.Context, task *aggTask, symbol string, tf domrepo.Timeframe) {
	defer close(task.done)

	ticker := time.NewTicker(a.cadence)
	defer ticker.Stop()

	// first cycle immediately so fresh tasks produce bars without waiting
	a.cycle(ctx, symbol, tf)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.cycle(ctx, symbol, tf)
		}
	}
}

// cycle runs one aggregation pass. Errors are recorded and swallowed so a
// bad symbol never stops the loop.
func (a *Aggregator) cycle(ctx context.Context, symbol string, tf domrepo.Timeframe) {
	start := time.Now()
	since := start.Add(-a.lookback).Truncate(tf.Duration())

	ticks, err := a.store.GetTicks(ctx, symbol, since, time.Time{}, 0)
	if err != nil {
		a.metrics.RecordError("aggregate_read")
		if a.l != nil {
			a.l.Error("aggregation read failed",
				applogger.String("symbol", symbol),
				applogger.String("tf", string(tf)),
				applogger.Error(err),
			)
		}
		return
	}
	if len(ticks) == 0 {
		return
	}

	bars := Resample(ticks, tf)
	if len(bars) == 0 {
		return
	}

	if err := a.store.StoreBars(ctx, symbol, tf, bars); err != nil {
		a.metrics.RecordError("aggregate_write")
		if a.l != nil {
			a.l.Error("aggregation write failed",
				applogger.String("symbol", symbol),
				applogger.String("tf", string(tf)),
				applogger.Error(err),
			)
		}
		return
	}

	a.metrics.RecordBarsAggregated(symbol, string(tf), len(bars))
	a.metrics.RecordLatency("aggregate_cycle", time.Since(start).Seconds())
}
