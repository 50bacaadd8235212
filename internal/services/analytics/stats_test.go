package analytics

import (
	"math"
	"testing"

	"PairFlow/internal/domain/models"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestComputePriceStats(t *testing.T) {
	stats := ComputePriceStats([]float64{100, 110, 121, 133.1})

	if !almostEqual(stats.Mean, 116.025, 1e-9) {
		t.Errorf("mean = %v, want 116.025", stats.Mean)
	}
	if stats.Min != 100 || stats.Max != 133.1 {
		t.Errorf("min/max = %v/%v, want 100/133.1", stats.Min, stats.Max)
	}
	if stats.Last != 133.1 {
		t.Errorf("last = %v, want 133.1", stats.Last)
	}
	// constant 10% growth: every return is 0.1
	if !almostEqual(stats.ReturnMean, 0.1, 1e-12) {
		t.Errorf("return mean = %v, want 0.1", stats.ReturnMean)
	}
	if !almostEqual(stats.ReturnStd, 0, 1e-12) {
		t.Errorf("return std = %v, want 0", stats.ReturnStd)
	}
}

func TestComputePriceStatsEmpty(t *testing.T) {
	var zero models.PriceStats
	if stats := ComputePriceStats(nil); stats != zero {
		t.Errorf("empty input should produce zero stats, got %+v", stats)
	}
}

func TestComputePriceStatsSkipsZeroBase(t *testing.T) {
	stats := ComputePriceStats([]float64{0, 10, 20})
	// the 0 -> 10 step has no defined return and must be skipped
	if !almostEqual(stats.ReturnMean, 1.0, 1e-12) {
		t.Errorf("return mean = %v, want 1.0", stats.ReturnMean)
	}
}

func TestVWAP(t *testing.T) {
	got := VWAP([]float64{10, 20, 30}, []float64{1, 1, 2})
	// (10 + 20 + 60) / 4
	if !almostEqual(got, 22.5, 1e-12) {
		t.Errorf("vwap = %v, want 22.5", got)
	}
}

func TestVWAPDegenerate(t *testing.T) {
	if v := VWAP(nil, nil); v != 0 {
		t.Errorf("empty vwap = %v, want 0", v)
	}
	if v := VWAP([]float64{10, 20}, []float64{0, 0}); v != 0 {
		t.Errorf("zero-volume vwap = %v, want 0", v)
	}
}

func TestSpread(t *testing.T) {
	got := Spread([]float64{10, 12, 14}, []float64{4, 5, 6}, 2)
	want := []float64{2, 2, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("spread[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSpreadUnequalLengths(t *testing.T) {
	got := Spread([]float64{10, 12, 14, 16}, []float64{4, 5}, 1)
	if len(got) != 2 {
		t.Fatalf("spread length = %d, want 2", len(got))
	}
}

func TestRollingZScoreLengthAndWarmup(t *testing.T) {
	in := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	window := 4
	z := RollingZScore(in, window)

	if len(z) != len(in) {
		t.Fatalf("output length = %d, want %d", len(z), len(in))
	}
	for i := 0; i < window-1; i++ {
		if z[i] != 0 {
			t.Errorf("z[%d] = %v, want 0 before first full window", i, z[i])
		}
	}
	for i := window - 1; i < len(in); i++ {
		if z[i] == 0 {
			t.Errorf("z[%d] = 0, want non-zero for a trending window", i)
		}
	}
}

func TestRollingZScoreShortSeries(t *testing.T) {
	z := RollingZScore([]float64{1, 2}, 5)
	if len(z) != 2 {
		t.Fatalf("output length = %d, want 2", len(z))
	}
	if z[0] != 0 || z[1] != 0 {
		t.Errorf("short series should be all zeros, got %v", z)
	}
}

func TestRollingZScoreConstantWindow(t *testing.T) {
	z := RollingZScore([]float64{5, 5, 5, 5, 5}, 3)
	for i, v := range z {
		if v != 0 {
			t.Errorf("z[%d] = %v, want 0 for zero-variance window", i, v)
		}
	}
}

func TestRollingZScoreValue(t *testing.T) {
	// window [1,2,3]: mean 2, sample std 1, so z(3) = 1
	z := RollingZScore([]float64{1, 2, 3}, 3)
	if !almostEqual(z[2], 1, 1e-12) {
		t.Errorf("z[2] = %v, want 1", z[2])
	}
}

func TestRollingCorrelation(t *testing.T) {
	s1 := []float64{1, 2, 3, 4, 5, 6}
	s2 := []float64{2, 4, 6, 8, 10, 12}
	c := RollingCorrelation(s1, s2, 3)

	if len(c) != 6 {
		t.Fatalf("output length = %d, want 6", len(c))
	}
	for i := 0; i < 2; i++ {
		if !math.IsNaN(c[i]) {
			t.Errorf("c[%d] = %v, want NaN warm-up", i, c[i])
		}
	}
	for i := 2; i < 6; i++ {
		if !almostEqual(c[i], 1, 1e-12) {
			t.Errorf("c[%d] = %v, want 1", i, c[i])
		}
	}
}

func TestRollingCorrelationZeroVariance(t *testing.T) {
	c := RollingCorrelation([]float64{1, 1, 1, 1}, []float64{1, 2, 3, 4}, 3)
	for i := 2; i < len(c); i++ {
		if !math.IsNaN(c[i]) {
			t.Errorf("c[%d] = %v, want NaN for flat window", i, c[i])
		}
	}
}

func TestComputeLiquidity(t *testing.T) {
	vols := []float64{10, 20, 30, 40, 50}
	m := ComputeLiquidity(vols, 3)

	if !almostEqual(m.AvgVolume, 40, 1e-12) {
		t.Errorf("avg = %v, want 40", m.AvgVolume)
	}
	if m.LastVolume != 50 {
		t.Errorf("last = %v, want 50", m.LastVolume)
	}
	// trailing mean moved from mean(20,30,40)=30 to mean(30,40,50)=40
	if !almostEqual(m.VolumeTrend, 10, 1e-12) {
		t.Errorf("trend = %v, want 10", m.VolumeTrend)
	}
}

func TestComputeLiquidityShortSeries(t *testing.T) {
	var zero models.LiquidityMetrics
	if m := ComputeLiquidity([]float64{10, 20}, 5); m != zero {
		t.Errorf("short series should produce zero metrics, got %+v", m)
	}
}
