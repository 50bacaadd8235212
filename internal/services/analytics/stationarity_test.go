package analytics

import (
	"math"
	"testing"
)

// deterministic LCG so test series are reproducible without seeding rand
func noiseSeq(n int) []float64 {
	out := make([]float64, n)
	state := uint64(42)
	for i := range out {
		state = state*6364136223846793005 + 1442695040888963407
		out[i] = float64(state>>33)/float64(1<<31) - 0.5
	}
	return out
}

func TestADFTestTooFewObservations(t *testing.T) {
	res := ADFTest(make([]float64, 9))
	if res.Statistic != 0 || res.PValue != 1 || res.IsStationary {
		t.Errorf("want conservative default, got %+v", res)
	}
	if res.CriticalValues != nil {
		t.Errorf("no critical values expected when the test did not run")
	}
}

func TestADFTestStationarySeries(t *testing.T) {
	// strongly mean-reverting AR(1), phi=0.2
	noise := noiseSeq(300)
	s := make([]float64, 300)
	for i := 1; i < len(s); i++ {
		s[i] = 0.2*s[i-1] + noise[i]
	}

	res := ADFTest(s)
	if !res.IsStationary {
		t.Fatalf("AR(0.2) series should test stationary, got stat=%v p=%v", res.Statistic, res.PValue)
	}
	if res.Statistic >= res.CriticalValues["5%"] {
		t.Errorf("stat %v should be below the 5%% critical value %v", res.Statistic, res.CriticalValues["5%"])
	}
	if res.NObs <= 0 || res.NObs >= len(s) {
		t.Errorf("nobs = %d out of range", res.NObs)
	}
}

func TestADFTestRandomWalk(t *testing.T) {
	noise := noiseSeq(300)
	s := make([]float64, 300)
	for i := 1; i < len(s); i++ {
		s[i] = s[i-1] + noise[i]
	}

	res := ADFTest(s)
	if res.IsStationary {
		t.Errorf("random walk should not test stationary, got stat=%v p=%v", res.Statistic, res.PValue)
	}
}

func TestADFCriticalValuesOrdering(t *testing.T) {
	cv := adfCriticalValues(100)
	if !(cv["1%"] < cv["5%"] && cv["5%"] < cv["10%"]) {
		t.Errorf("critical values out of order: %v", cv)
	}
	if !almostEqual(cv["5%"], -2.89, 0.02) {
		t.Errorf("5%% critical value at n=100 = %v, want ~-2.89", cv["5%"])
	}
}

func TestADFPValueAnchors(t *testing.T) {
	cases := []struct {
		tau, want, tol float64
	}{
		{-3.43, 0.01, 0.003},
		{-2.86, 0.05, 0.005},
		{-2.57, 0.10, 0.01},
		{-25, 0, 1e-12},
		{3, 1, 1e-12},
	}
	for _, tc := range cases {
		if got := adfPValue(tc.tau); !almostEqual(got, tc.want, tc.tol) {
			t.Errorf("adfPValue(%v) = %v, want ~%v", tc.tau, got, tc.want)
		}
	}
}

func TestADFPValueMonotone(t *testing.T) {
	prev := -1.0
	for tau := -19.0; tau <= 3.0; tau += 0.25 {
		p := adfPValue(tau)
		if p < prev-1e-12 {
			t.Fatalf("p-value not monotone at tau=%v: %v < %v", tau, p, prev)
		}
		if math.IsNaN(p) || p < 0 || p > 1 {
			t.Fatalf("p-value out of range at tau=%v: %v", tau, p)
		}
		prev = p
	}
}

func TestOLSMultiSingularDesign(t *testing.T) {
	// two identical columns
	x := [][]float64{{1, 1}, {2, 2}, {3, 3}, {4, 4}}
	y := []float64{1, 2, 3, 4}
	if _, _, _, ok := olsMulti(x, y); ok {
		t.Errorf("singular design should not solve")
	}
}
