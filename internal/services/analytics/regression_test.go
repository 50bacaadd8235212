package analytics

import (
	"math"
	"testing"
)

func TestOLSRegressionPerfectFit(t *testing.T) {
	fit := OLSRegression([]float64{2, 4, 6, 8}, []float64{1, 2, 3, 4})

	if !almostEqual(fit.Beta, 2, 1e-12) {
		t.Errorf("beta = %v, want 2", fit.Beta)
	}
	if !almostEqual(fit.Alpha, 0, 1e-12) {
		t.Errorf("alpha = %v, want 0", fit.Alpha)
	}
	if !almostEqual(fit.RSquared, 1, 1e-12) {
		t.Errorf("r2 = %v, want 1", fit.RSquared)
	}
	if fit.PValue != 0 {
		t.Errorf("pvalue = %v, want 0 for perfect fit", fit.PValue)
	}
	for i, r := range fit.Residuals {
		if !almostEqual(r, 0, 1e-12) {
			t.Errorf("residual[%d] = %v, want 0", i, r)
		}
	}
}

func TestOLSRegressionNoisyFit(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	y := []float64{2.1, 3.9, 6.2, 7.8, 10.1, 11.9, 14.2, 15.8}
	fit := OLSRegression(y, x)

	if !almostEqual(fit.Beta, 2, 0.05) {
		t.Errorf("beta = %v, want ~2", fit.Beta)
	}
	if fit.RSquared < 0.99 {
		t.Errorf("r2 = %v, want > 0.99", fit.RSquared)
	}
	if fit.PValue <= 0 || fit.PValue >= 0.001 {
		t.Errorf("pvalue = %v, want strongly significant", fit.PValue)
	}
}

func TestOLSRegressionDegenerate(t *testing.T) {
	cases := []struct {
		name string
		y, x []float64
	}{
		{"empty", nil, nil},
		{"one point", []float64{1}, []float64{1}},
		{"constant x", []float64{1, 2, 3}, []float64{5, 5, 5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fit := OLSRegression(tc.y, tc.x)
			if fit.Beta != 0 || fit.Alpha != 0 || fit.Residuals != nil {
				t.Errorf("want degenerate zero result, got %+v", fit)
			}
		})
	}
}

func TestHuberRegressionResistsOutliers(t *testing.T) {
	n := 20
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = float64(i + 1)
		y[i] = 2*x[i] + 1
	}
	y[10] += 40

	ols := OLSRegression(y, x)
	fit := HuberRegression(y, x)

	if !almostEqual(fit.Beta, 2, 0.01) {
		t.Errorf("huber beta = %v, want ~2", fit.Beta)
	}
	if !almostEqual(fit.Alpha, 1, 0.05) {
		t.Errorf("huber alpha = %v, want ~1", fit.Alpha)
	}
	// the outlier drags the plain OLS intercept well away from 1
	if math.Abs(ols.Alpha-1) < math.Abs(fit.Alpha-1) {
		t.Errorf("huber (alpha %v) should beat ols (alpha %v)", fit.Alpha, ols.Alpha)
	}
}

func TestHuberRegressionCleanFit(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6}
	y := []float64{5, 8, 11, 14, 17, 20}
	fit := HuberRegression(y, x)

	if !almostEqual(fit.Beta, 3, 1e-9) {
		t.Errorf("beta = %v, want 3", fit.Beta)
	}
	if !almostEqual(fit.Alpha, 2, 1e-9) {
		t.Errorf("alpha = %v, want 2", fit.Alpha)
	}
}

func TestHuberRegressionDegenerateFallsBackToOLS(t *testing.T) {
	cases := []struct {
		name string
		y, x []float64
	}{
		{"one point", []float64{1}, []float64{1}},
		{"constant x", []float64{1, 2, 3}, []float64{5, 5, 5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fit := HuberRegression(tc.y, tc.x)
			if fit.Beta != 0 || fit.Alpha != 0 {
				t.Errorf("want degenerate zero result, got %+v", fit)
			}
		})
	}
}

func TestStudentTTwoSided(t *testing.T) {
	// t=2.228, df=10 is the classic 5% two-sided point
	p := studentTTwoSided(2.228, 10)
	if !almostEqual(p, 0.05, 1e-3) {
		t.Errorf("p = %v, want ~0.05", p)
	}
	if p0 := studentTTwoSided(0, 10); !almostEqual(p0, 1, 1e-12) {
		t.Errorf("p(0) = %v, want 1", p0)
	}
}

func TestKalmanHedgeRatioTooFewPoints(t *testing.T) {
	res := KalmanHedgeRatio(make([]float64, 9), make([]float64, 9))
	if len(res.HedgeRatios) != 0 || len(res.Intercepts) != 0 {
		t.Errorf("want empty result below 10 points, got %d ratios", len(res.HedgeRatios))
	}
	if res.Last() != 0 {
		t.Errorf("Last() on empty result = %v, want 0", res.Last())
	}
}

func TestKalmanHedgeRatioConverges(t *testing.T) {
	n := 200
	p2 := make([]float64, n)
	p1 := make([]float64, n)
	for i := 0; i < n; i++ {
		p2[i] = 100 + float64(i)
		p1[i] = 1.5*p2[i] + 3
	}
	res := KalmanHedgeRatio(p1, p2)

	if len(res.HedgeRatios) != n {
		t.Fatalf("got %d ratios, want %d", len(res.HedgeRatios), n)
	}
	if !almostEqual(res.Last(), 1.5, 0.05) {
		t.Errorf("final hedge ratio = %v, want ~1.5", res.Last())
	}
}

func TestHalfLifeMeanReverting(t *testing.T) {
	// AR(1) with phi=0.5: half-life = -ln2/ln(0.5) = 1 bar
	n := 100
	s := make([]float64, n)
	s[0] = 10
	for i := 1; i < n; i++ {
		s[i] = 0.5 * s[i-1]
		if i%2 == 0 {
			s[i] += 4 // keep the series from collapsing to zero
		}
	}
	hl := HalfLife(s)
	if math.IsNaN(hl) || hl <= 0 || hl > 5 {
		t.Errorf("half-life = %v, want small positive value", hl)
	}
}

func TestHalfLifeTrendingIsNaN(t *testing.T) {
	s := make([]float64, 50)
	for i := range s {
		s[i] = float64(i) * float64(i)
	}
	if hl := HalfLife(s); !math.IsNaN(hl) {
		t.Errorf("half-life = %v, want NaN for accelerating trend", hl)
	}
}

func TestHalfLifeShortSeries(t *testing.T) {
	if hl := HalfLife([]float64{1, 2, 3}); !math.IsNaN(hl) {
		t.Errorf("half-life = %v, want NaN below 10 points", hl)
	}
}
