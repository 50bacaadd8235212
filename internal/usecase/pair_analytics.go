package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"PairFlow/internal/domain/models"
	domrepo "PairFlow/internal/domain/repository"
	"PairFlow/internal/services/alerts"
	"PairFlow/internal/services/analytics"
	applogger "PairFlow/pkg/logger"
)

// PairAnalyticsUseCase assembles the full analytics bundle for a symbol
// pair from stored bars and feeds the result to the alert registry.
type PairAnalyticsUseCase struct {
	store   domrepo.TickStore
	alerts  *alerts.Manager
	metrics domrepo.Metrics
	l       *applogger.Logger
	maxBars int
}

type PairAnalyticsOption func(*PairAnalyticsUseCase)

// WithMaxBars caps how many aligned bars feed one computation.
func WithMaxBars(n int) PairAnalyticsOption {
	return func(uc *PairAnalyticsUseCase) {
		if n > 0 {
			uc.maxBars = n
		}
	}
}

func NewPairAnalyticsUseCase(store domrepo.TickStore, am *alerts.Manager, metrics domrepo.Metrics, l *applogger.Logger, opts ...PairAnalyticsOption) *PairAnalyticsUseCase {
	uc := &PairAnalyticsUseCase{
		store:   store,
		alerts:  am,
		metrics: metrics,
		l:       l,
		maxBars: 2000,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

type PairAnalyticsParams struct {
	Symbol1   string
	Symbol2   string
	Timeframe domrepo.Timeframe
	Window    int
	UseKalman bool
	Robust    bool // Huber hedge fit instead of plain OLS
}

// Compute fetches bars for both symbols, aligns them on shared buckets and
// runs the full analytics stack. Every kernel guards its own degenerate
// inputs, so thin data yields zeroed sections rather than errors.
func (uc *PairAnalyticsUseCase) Compute(ctx context.Context, p PairAnalyticsParams) (*models.PairAnalytics, error) {
	if p.Symbol1 == "" || p.Symbol2 == "" {
		return nil, fmt.Errorf("both symbols required")
	}
	if p.Window < 2 {
		p.Window = 20
	}
	start := time.Now()

	snap, err := uc.loadSnapshot(ctx, p.Symbol1, p.Symbol2, p.Timeframe)
	if err != nil {
		return nil, err
	}

	out := &models.PairAnalytics{
		Symbol1:    p.Symbol1,
		Symbol2:    p.Symbol2,
		Timeframe:  string(p.Timeframe),
		DataPoints: snap.Len(),
		LastUpdate: time.Now().UTC(),
	}

	out.Stats1 = analytics.ComputePriceStats(snap.Price1)
	out.Stats2 = analytics.ComputePriceStats(snap.Price2)
	out.VWAP1 = analytics.VWAP(snap.Price1, snap.Volume1)
	out.VWAP2 = analytics.VWAP(snap.Price2, snap.Volume2)

	out.HedgeMethod = "ols"
	if p.Robust {
		out.Regression = analytics.HuberRegression(snap.Price1, snap.Price2)
		out.HedgeMethod = "huber"
	} else {
		out.Regression = analytics.OLSRegression(snap.Price1, snap.Price2)
	}

	hedgeRatio := out.Regression.Beta
	if p.UseKalman {
		kr := analytics.KalmanHedgeRatio(snap.Price1, snap.Price2)
		if len(kr.HedgeRatios) > 0 {
			out.Kalman = &kr
			hedgeRatio = kr.Last()
			out.HedgeMethod = "kalman"
		}
	}

	out.Spread = analytics.Spread(snap.Price1, snap.Price2, hedgeRatio)
	if n := len(out.Spread); n > 0 {
		out.SpreadLast = out.Spread[n-1]
	}

	out.ZScore = analytics.RollingZScore(out.Spread, p.Window)
	if n := len(out.ZScore); n > 0 {
		out.ZScoreLast = out.ZScore[n-1]
	}

	out.Stationarity = analytics.ADFTest(out.Spread)

	// correlation warm-up is NaN internally; zero-fill for transport
	corr := analytics.RollingCorrelation(snap.Price1, snap.Price2, p.Window)
	out.Correlation = make([]float64, len(corr))
	for i, v := range corr {
		if !math.IsNaN(v) {
			out.Correlation[i] = v
		}
	}
	if n := len(out.Correlation); n > 0 {
		out.CorrLast = out.Correlation[n-1]
	}

	if hl := analytics.HalfLife(out.Spread); !math.IsNaN(hl) {
		out.HalfLife = &hl
	}

	out.Liquidity1 = analytics.ComputeLiquidity(snap.Volume1, p.Window)
	out.Liquidity2 = analytics.ComputeLiquidity(snap.Volume2, p.Window)

	if uc.alerts != nil {
		uc.alerts.Evaluate(models.AnalyticsSnapshot{
			ZScore:        out.ZScoreLast,
			Spread:        out.SpreadLast,
			Correlation:   out.CorrLast,
			Price:         out.Stats1.Last,
			CurrentVolume: out.Liquidity1.LastVolume,
			AvgVolume:     out.Liquidity1.AvgVolume,
			Value:         out.ZScoreLast,
		})
	}

	if uc.metrics != nil {
		uc.metrics.RecordLatency("pair_analytics", time.Since(start).Seconds())
	}
	if uc.l != nil {
		uc.l.Debug("pair analytics computed",
			applogger.String("symbol1", p.Symbol1),
			applogger.String("symbol2", p.Symbol2),
			applogger.String("tf", string(p.Timeframe)),
			applogger.Int("points", snap.Len()),
			applogger.String("hedge", out.HedgeMethod),
		)
	}
	return out, nil
}

// loadSnapshot inner-joins both symbols' bars on bucket timestamps, keeping
// close prices and volumes. The join is the analytics input everywhere; a
// bucket missing on either side is dropped.
func (uc *PairAnalyticsUseCase) loadSnapshot(ctx context.Context, sym1, sym2 string, tf domrepo.Timeframe) (*models.PairSnapshot, error) {
	bars1, err := uc.store.GetBars(ctx, sym1, tf, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("bars %s: %w", sym1, err)
	}
	bars2, err := uc.store.GetBars(ctx, sym2, tf, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("bars %s: %w", sym2, err)
	}

	byBucket := make(map[int64]models.Bar, len(bars2))
	for _, b := range bars2 {
		byBucket[b.Bucket.Unix()] = b
	}

	snap := &models.PairSnapshot{}
	for _, b1 := range bars1 {
		b2, ok := byBucket[b1.Bucket.Unix()]
		if !ok {
			continue
		}
		snap.Index = append(snap.Index, b1.Bucket)
		snap.Price1 = append(snap.Price1, b1.Close)
		snap.Price2 = append(snap.Price2, b2.Close)
		snap.Volume1 = append(snap.Volume1, b1.Volume)
		snap.Volume2 = append(snap.Volume2, b2.Volume)
	}

	// keep the most recent maxBars rows
	if over := snap.Len() - uc.maxBars; over > 0 {
		snap.Index = snap.Index[over:]
		snap.Price1 = snap.Price1[over:]
		snap.Price2 = snap.Price2[over:]
		snap.Volume1 = snap.Volume1[over:]
		snap.Volume2 = snap.Volume2[over:]
	}
	return snap, nil
}
