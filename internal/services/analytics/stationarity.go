package analytics

import (
	"math"

	"PairFlow/internal/domain/models"
)

// ADFTest runs an augmented Dickey-Fuller unit root test with a constant
// term. Lag order is chosen by minimizing AIC up to the Schwert rule bound.
// Fewer than 10 observations returns the conservative default: statistic 0,
// p-value 1, not stationary, no test run.
func ADFTest(series []float64) models.StationarityResult {
	out := models.StationarityResult{PValue: 1}
	n := len(series)
	if n < 10 {
		return out
	}

	// Schwert (1989) rule of thumb, bounded so the common estimation
	// sample keeps enough degrees of freedom.
	maxLag := int(math.Floor(12 * math.Pow(float64(n)/100, 0.25)))
	if bound := n/2 - 3; maxLag > bound {
		maxLag = bound
	}
	if maxLag < 0 {
		maxLag = 0
	}

	diff := make([]float64, n-1)
	for i := 1; i < n; i++ {
		diff[i-1] = series[i] - series[i-1]
	}
	lagged := series[:n-1]

	// Pick the lag by AIC over a common sample so the criteria are
	// comparable, then refit on the longest sample for that lag.
	bestLag, bestAIC := 0, math.Inf(1)
	for lag := 0; lag <= maxLag; lag++ {
		fit, ok := adfFit(diff, lagged, lag, maxLag)
		if !ok {
			continue
		}
		aic := fit.aic()
		if aic < bestAIC {
			bestAIC = aic
			bestLag = lag
		}
	}

	fit, ok := adfFit(diff, lagged, bestLag, bestLag)
	if !ok {
		return out
	}

	out.Statistic = fit.tau()
	out.UsedLag = bestLag
	out.NObs = fit.nobs
	out.CriticalValues = adfCriticalValues(fit.nobs)
	out.PValue = adfPValue(out.Statistic)
	out.IsStationary = out.PValue < 0.05
	return out
}

// adfFitResult holds one ADF regression of diff[t] on
// [lagged[t], diff[t-1..t-lag], const] starting at index start.
type adfFitResult struct {
	coefs []float64
	ses   []float64
	ssr   float64
	nobs  int
}

func (f *adfFitResult) tau() float64 {
	if f.ses[0] == 0 {
		return 0
	}
	return f.coefs[0] / f.ses[0]
}

func (f *adfFitResult) aic() float64 {
	n := float64(f.nobs)
	if f.ssr <= 0 {
		return math.Inf(-1)
	}
	return n*math.Log(f.ssr/n) + 2*float64(len(f.coefs))
}

func adfFit(diff, lagged []float64, lag, start int) (*adfFitResult, bool) {
	ncols := lag + 2 // level, lagged diffs, constant
	rows := len(diff) - start
	if rows <= ncols {
		return nil, false
	}

	x := make([][]float64, rows)
	y := make([]float64, rows)
	for i := 0; i < rows; i++ {
		t := start + i
		row := make([]float64, ncols)
		row[0] = lagged[t]
		for j := 1; j <= lag; j++ {
			row[j] = diff[t-j]
		}
		row[ncols-1] = 1
		x[i] = row
		y[i] = diff[t]
	}

	coefs, ses, ssr, ok := olsMulti(x, y)
	if !ok {
		return nil, false
	}
	return &adfFitResult{coefs: coefs, ses: ses, ssr: ssr, nobs: rows}, true
}

// olsMulti solves a multiple regression by normal equations with partial
// pivoting. Returns coefficients, their standard errors and the residual
// sum of squares. ok is false for singular designs.
func olsMulti(x [][]float64, y []float64) (coefs, ses []float64, ssr float64, ok bool) {
	n := len(x)
	if n == 0 {
		return nil, nil, 0, false
	}
	p := len(x[0])
	if n <= p {
		return nil, nil, 0, false
	}

	xtx := make([][]float64, p)
	xty := make([]float64, p)
	for i := 0; i < p; i++ {
		xtx[i] = make([]float64, p)
	}
	for r := 0; r < n; r++ {
		for i := 0; i < p; i++ {
			xty[i] += x[r][i] * y[r]
			for j := i; j < p; j++ {
				xtx[i][j] += x[r][i] * x[r][j]
			}
		}
	}
	for i := 0; i < p; i++ {
		for j := 0; j < i; j++ {
			xtx[i][j] = xtx[j][i]
		}
	}

	inv, ok := invertMatrix(xtx)
	if !ok {
		return nil, nil, 0, false
	}

	coefs = make([]float64, p)
	for i := 0; i < p; i++ {
		for j := 0; j < p; j++ {
			coefs[i] += inv[i][j] * xty[j]
		}
	}

	for r := 0; r < n; r++ {
		pred := 0.0
		for i := 0; i < p; i++ {
			pred += x[r][i] * coefs[i]
		}
		d := y[r] - pred
		ssr += d * d
	}

	sigma2 := ssr / float64(n-p)
	ses = make([]float64, p)
	for i := 0; i < p; i++ {
		v := sigma2 * inv[i][i]
		if v > 0 {
			ses[i] = math.Sqrt(v)
		}
	}
	return coefs, ses, ssr, true
}

// invertMatrix inverts a square matrix by Gauss-Jordan elimination with
// partial pivoting.
func invertMatrix(m [][]float64) ([][]float64, bool) {
	p := len(m)
	a := make([][]float64, p)
	inv := make([][]float64, p)
	for i := 0; i < p; i++ {
		a[i] = append([]float64(nil), m[i]...)
		inv[i] = make([]float64, p)
		inv[i][i] = 1
	}
	for col := 0; col < p; col++ {
		pivot := col
		for r := col + 1; r < p; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, false
		}
		a[col], a[pivot] = a[pivot], a[col]
		inv[col], inv[pivot] = inv[pivot], inv[col]

		pv := a[col][col]
		for j := 0; j < p; j++ {
			a[col][j] /= pv
			inv[col][j] /= pv
		}
		for r := 0; r < p; r++ {
			if r == col {
				continue
			}
			f := a[r][col]
			if f == 0 {
				continue
			}
			for j := 0; j < p; j++ {
				a[r][j] -= f * a[col][j]
				inv[r][j] -= f * inv[col][j]
			}
		}
	}
	return inv, true
}

// adfCriticalValues evaluates the MacKinnon (2010) response surface for a
// constant-only regression at the given sample size.
func adfCriticalValues(nobs int) map[string]float64 {
	n := float64(nobs)
	return map[string]float64{
		"1%":  -3.43035 - 6.5393/n - 16.786/(n*n) - 79.433/(n*n*n),
		"5%":  -2.86154 - 2.8903/n - 4.234/(n*n) - 40.04/(n*n*n),
		"10%": -2.56677 - 1.5384/n - 2.809/(n*n),
	}
}

// adfPValue approximates the MacKinnon (1994) asymptotic p-value for the
// constant-only tau statistic. Deep in the rejection region it follows the
// published small-p polynomial; above the polynomial's validity bound the
// value is ramped to 1, which is the non-stationary verdict regardless.
func adfPValue(tau float64) float64 {
	const (
		tauMin  = -18.83
		tauMax  = 2.74
		tauStar = -1.61
	)
	switch {
	case tau <= tauMin:
		return 0
	case tau >= tauMax:
		return 1
	case tau <= tauStar:
		return normCDF(2.1659 + 1.4412*tau + 0.038269*tau*tau)
	default:
		pStar := normCDF(2.1659 + 1.4412*tauStar + 0.038269*tauStar*tauStar)
		return pStar + (1-pStar)*(tau-tauStar)/(tauMax-tauStar)
	}
}

func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}
