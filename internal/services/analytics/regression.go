package analytics

import (
	"math"
	"sort"

	"PairFlow/internal/domain/models"
)

// OLSRegression fits y = alpha + beta*x by ordinary least squares over the
// shorter of the two series. Fewer than 2 aligned points, or a constant x,
// yields the degenerate zero result with nil residuals. The p-value is the
// two-sided Student-t test of beta against zero; a perfect fit reports 0.
func OLSRegression(y, x []float64) models.RegressionResult {
	var out models.RegressionResult
	n := len(y)
	if len(x) < n {
		n = len(x)
	}
	if n < 2 {
		return out
	}

	mx, my := mean(x[:n]), mean(y[:n])
	var sxx, sxy, syy float64
	for i := 0; i < n; i++ {
		dx, dy := x[i]-mx, y[i]-my
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
	}
	if sxx == 0 {
		return out
	}

	out.Beta = sxy / sxx
	out.Alpha = my - out.Beta*mx

	out.Residuals = make([]float64, n)
	var ssr float64
	for i := 0; i < n; i++ {
		r := y[i] - (out.Alpha + out.Beta*x[i])
		out.Residuals[i] = r
		ssr += r * r
	}
	if syy > 0 {
		out.RSquared = 1 - ssr/syy
	} else {
		out.RSquared = 1
	}

	df := n - 2
	if df <= 0 {
		out.PValue = 1
		return out
	}
	out.StdErr = math.Sqrt(ssr / float64(df) / sxx)
	if out.StdErr == 0 {
		if out.Beta != 0 {
			out.PValue = 0
		} else {
			out.PValue = 1
		}
		return out
	}
	t := out.Beta / out.StdErr
	out.PValue = studentTTwoSided(t, float64(df))
	return out
}

// HuberRegression fits y = alpha + beta*x by iteratively reweighted least
// squares with Huber weights, downweighting residuals beyond 1.345 robust
// scale units. Any numerical failure (zero scale, degenerate weighted fit,
// non-finite estimates) falls back to the plain OLS result.
func HuberRegression(y, x []float64) models.RegressionResult {
	ols := OLSRegression(y, x)

	n := len(y)
	if len(x) < n {
		n = len(x)
	}
	if n < 2 {
		return ols
	}

	const (
		epsilon = 1.345
		maxIter = 50
		tol     = 1e-8
	)

	beta, alpha := ols.Beta, ols.Alpha
	resid := make([]float64, n)
	w := make([]float64, n)
	for iter := 0; iter < maxIter; iter++ {
		for i := 0; i < n; i++ {
			resid[i] = y[i] - alpha - beta*x[i]
		}
		s := madScale(resid)
		if s == 0 || math.IsNaN(s) {
			// most points fit exactly, keep the current estimate
			break
		}
		for i, r := range resid {
			if u := math.Abs(r) / s; u > epsilon {
				w[i] = epsilon / u
			} else {
				w[i] = 1
			}
		}

		var sw, swx, swy float64
		for i := 0; i < n; i++ {
			sw += w[i]
			swx += w[i] * x[i]
			swy += w[i] * y[i]
		}
		mx, my := swx/sw, swy/sw
		var sxx, sxy float64
		for i := 0; i < n; i++ {
			dx := x[i] - mx
			sxx += w[i] * dx * dx
			sxy += w[i] * dx * (y[i] - my)
		}
		if sxx == 0 {
			return ols
		}

		nb := sxy / sxx
		na := my - nb*mx
		done := math.Abs(nb-beta) < tol && math.Abs(na-alpha) < tol
		beta, alpha = nb, na
		if done {
			break
		}
	}
	if math.IsNaN(beta) || math.IsInf(beta, 0) || math.IsNaN(alpha) {
		return ols
	}

	out := models.RegressionResult{Beta: beta, Alpha: alpha}
	out.Residuals = make([]float64, n)
	my := mean(y[:n])
	var ssr, syy float64
	for i := 0; i < n; i++ {
		r := y[i] - (alpha + beta*x[i])
		out.Residuals[i] = r
		ssr += r * r
		d := y[i] - my
		syy += d * d
	}
	if syy > 0 {
		out.RSquared = 1 - ssr/syy
	} else {
		out.RSquared = 1
	}
	return out
}

// madScale is the median absolute deviation scaled to the normal
// distribution (factor 1.4826). Zero for an empty slice.
func madScale(resid []float64) float64 {
	if len(resid) == 0 {
		return 0
	}
	abs := make([]float64, len(resid))
	for i, r := range resid {
		abs[i] = math.Abs(r)
	}
	sort.Float64s(abs)
	var med float64
	m := len(abs) / 2
	if len(abs)%2 == 1 {
		med = abs[m]
	} else {
		med = (abs[m-1] + abs[m]) / 2
	}
	return 1.4826 * med
}

// studentTTwoSided is the two-sided p-value of a t statistic with df
// degrees of freedom, via the regularized incomplete beta function.
func studentTTwoSided(t, df float64) float64 {
	if math.IsInf(t, 0) {
		return 0
	}
	return regIncBeta(df/2, 0.5, df/(df+t*t))
}

// regIncBeta is the regularized incomplete beta function I_x(a, b),
// computed with the continued fraction expansion.
func regIncBeta(a, b, x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	la, _ := math.Lgamma(a)
	lb, _ := math.Lgamma(b)
	lab, _ := math.Lgamma(a + b)
	front := math.Exp(lab - la - lb + a*math.Log(x) + b*math.Log(1-x))
	if x < (a+1)/(a+b+2) {
		return front * betaCF(a, b, x) / a
	}
	return 1 - front*betaCF(b, a, 1-x)/b
}

// betaCF evaluates the continued fraction for regIncBeta using the
// modified Lentz method.
func betaCF(a, b, x float64) float64 {
	const (
		maxIter = 200
		eps     = 3e-14
		tiny    = 1e-30
	)
	qab, qap, qam := a+b, a+1, a-1
	c := 1.0
	d := 1 - qab*x/qap
	if math.Abs(d) < tiny {
		d = tiny
	}
	d = 1 / d
	h := d
	for m := 1; m <= maxIter; m++ {
		m2 := float64(2 * m)
		aa := float64(m) * (b - float64(m)) * x / ((qam + m2) * (a + m2))
		d = 1 + aa*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + aa/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		h *= d * c
		aa = -(a + float64(m)) * (qab + float64(m)) * x / ((a + m2) * (qap + m2))
		d = 1 + aa*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + aa/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		del := d * c
		h *= del
		if math.Abs(del-1) < eps {
			break
		}
	}
	return h
}
