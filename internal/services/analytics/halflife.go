package analytics

import "math"

// HalfLife estimates the mean reversion half-life of a series in bars by
// regressing its first difference on its lagged level. A non-negative
// reversion coefficient means no measurable reversion and yields NaN, as
// does a series shorter than 10 points or fewer than 5 clean aligned pairs.
func HalfLife(series []float64) float64 {
	n := len(series)
	if n < 10 {
		return math.NaN()
	}

	lagged := make([]float64, 0, n-1)
	delta := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		a, b := series[i-1], series[i]
		if math.IsNaN(a) || math.IsNaN(b) || math.IsInf(a, 0) || math.IsInf(b, 0) {
			continue
		}
		lagged = append(lagged, a)
		delta = append(delta, b-a)
	}
	if len(lagged) < 5 {
		return math.NaN()
	}

	fit := OLSRegression(delta, lagged)
	if fit.Residuals == nil || fit.Beta >= 0 {
		return math.NaN()
	}
	return -math.Ln2 / fit.Beta
}
