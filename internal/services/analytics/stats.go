// Package analytics implements the pure numerical kernels for pair
// analysis: descriptive statistics, regression, Kalman hedge ratio
// estimation, stationarity testing and rolling indicators. Every function
// is side-effect free and guards its own degenerate inputs so callers can
// feed raw market data without pre-validation.
package analytics

import (
	"math"

	"PairFlow/internal/domain/models"
)

// ComputePriceStats summarizes a price series and its simple returns.
// Returns a zero value for an empty series. Skew needs at least 3 return
// points and kurtosis at least 4; below that they stay 0.
func ComputePriceStats(prices []float64) models.PriceStats {
	var out models.PriceStats
	if len(prices) == 0 {
		return out
	}

	out.Mean = mean(prices)
	out.Std = sampleStd(prices)
	out.Last = prices[len(prices)-1]
	out.Min, out.Max = prices[0], prices[0]
	for _, p := range prices[1:] {
		if p < out.Min {
			out.Min = p
		}
		if p > out.Max {
			out.Max = p
		}
	}

	rets := simpleReturns(prices)
	if len(rets) == 0 {
		return out
	}
	out.ReturnMean = mean(rets)
	out.ReturnStd = sampleStd(rets)
	if len(rets) >= 3 {
		out.Skew = skewness(rets)
	}
	if len(rets) >= 4 {
		out.Kurtosis = excessKurtosis(rets)
	}
	return out
}

// VWAP is the volume-weighted average price over aligned price and volume
// series. Zero when total volume is zero.
func VWAP(prices, volumes []float64) float64 {
	n := len(prices)
	if len(volumes) < n {
		n = len(volumes)
	}
	var pv, vol float64
	for i := 0; i < n; i++ {
		pv += prices[i] * volumes[i]
		vol += volumes[i]
	}
	if vol == 0 {
		return 0
	}
	return pv / vol
}

// simpleReturns computes p[i]/p[i-1] - 1, skipping steps with a zero base.
func simpleReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	rets := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		rets = append(rets, prices[i]/prices[i-1]-1)
	}
	return rets
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStd is the ddof=1 standard deviation. Zero when fewer than two
// observations.
func sampleStd(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// skewness is the bias-corrected Fisher-Pearson coefficient.
func skewness(xs []float64) float64 {
	n := float64(len(xs))
	s := sampleStd(xs)
	if s == 0 {
		return 0
	}
	m := mean(xs)
	var sum float64
	for _, x := range xs {
		z := (x - m) / s
		sum += z * z * z
	}
	return n / ((n - 1) * (n - 2)) * sum
}

// excessKurtosis is the bias-corrected excess kurtosis (normal -> 0).
func excessKurtosis(xs []float64) float64 {
	n := float64(len(xs))
	s := sampleStd(xs)
	if s == 0 {
		return 0
	}
	m := mean(xs)
	var sum float64
	for _, x := range xs {
		z := (x - m) / s
		sum += z * z * z * z
	}
	num := n * (n + 1) / ((n - 1) * (n - 2) * (n - 3)) * sum
	corr := 3 * (n - 1) * (n - 1) / ((n - 2) * (n - 3))
	return num - corr
}
