package analytics

import (
	"math"

	"PairFlow/internal/domain/models"
)

// Spread computes price1 - hedgeRatio*price2 elementwise over the shorter
// of the two series.
func Spread(price1, price2 []float64, hedgeRatio float64) []float64 {
	n := len(price1)
	if len(price2) < n {
		n = len(price2)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = price1[i] - hedgeRatio*price2[i]
	}
	return out
}

// RollingZScore computes (x - rolling mean) / rolling std over a trailing
// window. The output has the same length as the input. Positions before
// the first complete window, and positions where the window std is zero,
// are filled with 0 so downstream threshold checks never fire on warm-up.
func RollingZScore(series []float64, window int) []float64 {
	out := make([]float64, len(series))
	if window < 2 || len(series) < window {
		return out
	}
	for i := window - 1; i < len(series); i++ {
		win := series[i-window+1 : i+1]
		sd := sampleStd(win)
		if sd == 0 {
			continue
		}
		out[i] = (series[i] - mean(win)) / sd
	}
	return out
}

// RollingCorrelation computes the Pearson correlation of two series over a
// trailing window, aligned to the shorter input. Warm-up positions and
// windows with zero variance on either side are NaN; callers decide how to
// render those.
func RollingCorrelation(s1, s2 []float64, window int) []float64 {
	n := len(s1)
	if len(s2) < n {
		n = len(s2)
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	if window < 2 || n < window {
		return out
	}
	for i := window - 1; i < n; i++ {
		out[i] = pearson(s1[i-window+1:i+1], s2[i-window+1:i+1])
	}
	return out
}

func pearson(x, y []float64) float64 {
	n := len(x)
	mx, my := mean(x), mean(y)
	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		dx, dy := x[i]-mx, y[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return math.NaN()
	}
	return sxy / math.Sqrt(sxx*syy)
}

// ComputeLiquidity summarizes rolling volume behavior. All fields are zero
// when fewer than window observations exist. VolumeTrend is the step change
// of the rolling mean at the series end, 0 when only one complete window
// fits.
func ComputeLiquidity(volumes []float64, window int) models.LiquidityMetrics {
	var out models.LiquidityMetrics
	n := len(volumes)
	if window < 1 || n < window {
		return out
	}
	last := volumes[n-window:]
	out.AvgVolume = mean(last)
	out.VolumeStd = sampleStd(last)
	out.LastVolume = volumes[n-1]
	if n > window {
		prev := volumes[n-window-1 : n-1]
		out.VolumeTrend = out.AvgVolume - mean(prev)
	}
	return out
}
