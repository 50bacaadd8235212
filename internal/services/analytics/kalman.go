package analytics

import "PairFlow/internal/domain/models"

// kalmanDelta controls how quickly the filtered hedge ratio adapts; the
// process noise covariance is delta/(1-delta) * I.
const kalmanDelta = 1e-5

// KalmanHedgeRatio runs a two-dimensional Kalman filter estimating a
// time-varying hedge ratio and intercept for price1 ~ beta*price2 + alpha.
// State starts at zero with identity covariance and observation noise 1.
// Fewer than 10 aligned observations yields an empty result.
func KalmanHedgeRatio(price1, price2 []float64) models.KalmanResult {
	var out models.KalmanResult
	n := len(price1)
	if len(price2) < n {
		n = len(price2)
	}
	if n < 10 {
		return out
	}

	q := kalmanDelta / (1 - kalmanDelta)
	const r = 1.0

	// state: [beta, alpha]; p is the 2x2 state covariance
	var beta, alpha float64
	p := [2][2]float64{{1, 0}, {0, 1}}

	out.HedgeRatios = make([]float64, n)
	out.Intercepts = make([]float64, n)

	for t := 0; t < n; t++ {
		// predict: random-walk state, covariance grows by process noise
		p[0][0] += q
		p[1][1] += q

		// observation row h = [price2, 1]
		h0 := price2[t]

		// innovation variance s = h P h' + r
		ph0 := p[0][0]*h0 + p[0][1]
		ph1 := p[1][0]*h0 + p[1][1]
		s := h0*ph0 + ph1 + r

		k0 := ph0 / s
		k1 := ph1 / s

		resid := price1[t] - (beta*h0 + alpha)
		beta += k0 * resid
		alpha += k1 * resid

		// P = (I - K h) P
		row0 := [2]float64{p[0][0], p[0][1]}
		row1 := [2]float64{p[1][0], p[1][1]}
		p[0][0] = row0[0] - k0*(h0*row0[0]+row1[0])
		p[0][1] = row0[1] - k0*(h0*row0[1]+row1[1])
		p[1][0] = row1[0] - k1*(h0*row0[0]+row1[0])
		p[1][1] = row1[1] - k1*(h0*row0[1]+row1[1])

		out.HedgeRatios[t] = beta
		out.Intercepts[t] = alpha
	}
	return out
}
