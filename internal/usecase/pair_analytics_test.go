package usecase

import (
	"context"
	"math"
	"testing"
	"time"

	"PairFlow/internal/domain/models"
	domrepo "PairFlow/internal/domain/repository"
	"PairFlow/internal/services/alerts"
)

func seedPairBars(t *testing.T, store *fakeTickStore, n int, skipBucketFor2 int) {
	t.Helper()
	base := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	var bars1, bars2 []models.Bar
	for i := 0; i < n; i++ {
		bucket := base.Add(time.Duration(i) * time.Minute)
		p2 := 100 + math.Sin(float64(i)/3)*5
		p1 := 2*p2 + 10
		bars1 = append(bars1, models.Bar{
			Symbol: "AAA", Timeframe: "1m", Bucket: bucket,
			Open: p1, High: p1, Low: p1, Close: p1, Volume: 50 + float64(i%7), TradeCount: 1,
		})
		if i == skipBucketFor2 {
			continue
		}
		bars2 = append(bars2, models.Bar{
			Symbol: "BBB", Timeframe: "1m", Bucket: bucket,
			Open: p2, High: p2, Low: p2, Close: p2, Volume: 40 + float64(i%5), TradeCount: 1,
		})
	}
	ctx := context.Background()
	if err := store.StoreBars(ctx, "AAA", domrepo.TF1m, bars1); err != nil {
		t.Fatalf("seed bars1: %v", err)
	}
	if err := store.StoreBars(ctx, "BBB", domrepo.TF1m, bars2); err != nil {
		t.Fatalf("seed bars2: %v", err)
	}
}

func TestPairAnalyticsComputeOLS(t *testing.T) {
	store := newFakeTickStore()
	seedPairBars(t, store, 60, -1)

	uc := NewPairAnalyticsUseCase(store, nil, nopMetrics{}, nil)
	out, err := uc.Compute(context.Background(), PairAnalyticsParams{
		Symbol1: "AAA", Symbol2: "BBB", Timeframe: domrepo.TF1m, Window: 20,
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	if out.DataPoints != 60 {
		t.Fatalf("data points = %d, want 60", out.DataPoints)
	}
	if out.HedgeMethod != "ols" {
		t.Errorf("hedge method = %s, want ols", out.HedgeMethod)
	}
	if math.Abs(out.Regression.Beta-2) > 1e-6 {
		t.Errorf("beta = %v, want 2", out.Regression.Beta)
	}
	if math.Abs(out.Regression.Alpha-10) > 1e-6 {
		t.Errorf("alpha = %v, want 10", out.Regression.Alpha)
	}
	if len(out.Spread) != 60 || len(out.ZScore) != 60 || len(out.Correlation) != 60 {
		t.Errorf("series lengths = %d/%d/%d, want 60 each",
			len(out.Spread), len(out.ZScore), len(out.Correlation))
	}
	// exact linear relation: spread is constant 10, zscore all zero
	for i, s := range out.Spread {
		if math.Abs(s-10) > 1e-6 {
			t.Fatalf("spread[%d] = %v, want 10", i, s)
		}
	}
	for i, z := range out.ZScore {
		if z != 0 {
			t.Fatalf("zscore[%d] = %v, want 0 for constant spread", i, z)
		}
	}
	// correlation warm-up must be transported as 0, never NaN
	for i, c := range out.Correlation {
		if math.IsNaN(c) {
			t.Fatalf("correlation[%d] is NaN", i)
		}
	}
	// constant spread never mean-reverts measurably
	if out.HalfLife != nil {
		t.Errorf("half life = %v, want nil", *out.HalfLife)
	}
}

func TestPairAnalyticsInnerJoinDropsMissing(t *testing.T) {
	store := newFakeTickStore()
	seedPairBars(t, store, 30, 10) // bucket 10 missing on the second leg

	uc := NewPairAnalyticsUseCase(store, nil, nopMetrics{}, nil)
	out, err := uc.Compute(context.Background(), PairAnalyticsParams{
		Symbol1: "AAA", Symbol2: "BBB", Timeframe: domrepo.TF1m, Window: 5,
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if out.DataPoints != 29 {
		t.Errorf("data points = %d, want 29 after dropping the unmatched bucket", out.DataPoints)
	}
}

func TestPairAnalyticsKalmanHedge(t *testing.T) {
	store := newFakeTickStore()
	seedPairBars(t, store, 60, -1)

	uc := NewPairAnalyticsUseCase(store, nil, nopMetrics{}, nil)
	out, err := uc.Compute(context.Background(), PairAnalyticsParams{
		Symbol1: "AAA", Symbol2: "BBB", Timeframe: domrepo.TF1m, Window: 20, UseKalman: true,
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if out.HedgeMethod != "kalman" {
		t.Fatalf("hedge method = %s, want kalman", out.HedgeMethod)
	}
	if out.Kalman == nil || len(out.Kalman.HedgeRatios) != 60 {
		t.Fatalf("kalman series missing or wrong length")
	}
}

func TestPairAnalyticsRobustHedge(t *testing.T) {
	store := newFakeTickStore()
	seedPairBars(t, store, 60, -1)

	uc := NewPairAnalyticsUseCase(store, nil, nopMetrics{}, nil)
	out, err := uc.Compute(context.Background(), PairAnalyticsParams{
		Symbol1: "AAA", Symbol2: "BBB", Timeframe: domrepo.TF1m, Window: 20, Robust: true,
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if out.HedgeMethod != "huber" {
		t.Fatalf("hedge method = %s, want huber", out.HedgeMethod)
	}
	if math.Abs(out.Regression.Beta-2) > 1e-6 {
		t.Errorf("beta = %v, want 2", out.Regression.Beta)
	}
	if out.VWAP1 < out.Stats1.Min || out.VWAP1 > out.Stats1.Max {
		t.Errorf("vwap1 = %v outside price range [%v, %v]", out.VWAP1, out.Stats1.Min, out.Stats1.Max)
	}
	if out.VWAP2 == 0 {
		t.Errorf("vwap2 = 0, want volume-weighted price")
	}
}

func TestPairAnalyticsMaxBarsTrim(t *testing.T) {
	store := newFakeTickStore()
	seedPairBars(t, store, 50, -1)

	uc := NewPairAnalyticsUseCase(store, nil, nopMetrics{}, nil, WithMaxBars(20))
	out, err := uc.Compute(context.Background(), PairAnalyticsParams{
		Symbol1: "AAA", Symbol2: "BBB", Timeframe: domrepo.TF1m, Window: 5,
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if out.DataPoints != 20 {
		t.Errorf("data points = %d, want 20 after trim", out.DataPoints)
	}
}

func TestPairAnalyticsFeedsAlerts(t *testing.T) {
	store := newFakeTickStore()
	seedPairBars(t, store, 60, -1)

	am := alerts.NewManager(nil)
	var seen []models.Alert
	am.OnAlert(func(a models.Alert) { seen = append(seen, a) })
	// constant spread gives zscore 0; a below-threshold rule on |z| fires
	am.AddRule(alerts.NewZScoreRule("z1", []string{"AAA", "BBB"}, 1.0, "below", models.SeverityInfo))

	uc := NewPairAnalyticsUseCase(store, am, nopMetrics{}, nil)
	if _, err := uc.Compute(context.Background(), PairAnalyticsParams{
		Symbol1: "AAA", Symbol2: "BBB", Timeframe: domrepo.TF1m, Window: 20,
	}); err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(seen) != 1 {
		t.Fatalf("alert callback should fire once, got %d", len(seen))
	}
}

func TestPairAnalyticsEmptyStore(t *testing.T) {
	uc := NewPairAnalyticsUseCase(newFakeTickStore(), nil, nopMetrics{}, nil)
	out, err := uc.Compute(context.Background(), PairAnalyticsParams{
		Symbol1: "AAA", Symbol2: "BBB", Timeframe: domrepo.TF1m, Window: 20,
	})
	if err != nil {
		t.Fatalf("compute on empty store should not error, got %v", err)
	}
	if out.DataPoints != 0 {
		t.Errorf("data points = %d, want 0", out.DataPoints)
	}
	if out.Regression.Beta != 0 || out.Regression.Residuals != nil {
		t.Errorf("regression should be degenerate, got %+v", out.Regression)
	}
}
