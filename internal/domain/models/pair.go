package models

import "time"

// PairSnapshot is the inner join of two symbols' bar closes and volumes on
// shared bucket timestamps. Rows with a missing value on either side are
// dropped. Derived, never persisted.
type PairSnapshot struct {
	Index   []time.Time
	Price1  []float64
	Price2  []float64
	Volume1 []float64
	Volume2 []float64
}

// Len returns the number of aligned rows.
func (s *PairSnapshot) Len() int { return len(s.Index) }

// RegressionResult holds an OLS fit of price1 on price2. Beta is the hedge
// ratio. Degenerate (all zero, nil residuals) when fewer than 2 aligned points.
type RegressionResult struct {
	Beta      float64   `json:"beta"`
	Alpha     float64   `json:"alpha"`
	RSquared  float64   `json:"r_squared"`
	PValue    float64   `json:"p_value"`
	StdErr    float64   `json:"std_err"`
	Residuals []float64 `json:"-"`
}

// KalmanResult holds the filtered time-varying hedge ratio and intercept,
// one value per aligned observation. Empty when the fit was not attempted.
type KalmanResult struct {
	HedgeRatios []float64 `json:"hedge_ratios"`
	Intercepts  []float64 `json:"intercepts"`
}

// Last returns the most recent filtered hedge ratio, or 0 if empty.
func (k *KalmanResult) Last() float64 {
	if len(k.HedgeRatios) == 0 {
		return 0
	}
	return k.HedgeRatios[len(k.HedgeRatios)-1]
}

// StationarityResult holds an augmented Dickey-Fuller test outcome.
type StationarityResult struct {
	Statistic      float64            `json:"statistic"`
	PValue         float64            `json:"p_value"`
	UsedLag        int                `json:"used_lag"`
	NObs           int                `json:"n_obs"`
	CriticalValues map[string]float64 `json:"critical_values"`
	IsStationary   bool               `json:"is_stationary"`
}

// PriceStats summarizes a price series and its first-difference-ratio returns.
type PriceStats struct {
	Mean       float64 `json:"mean"`
	Std        float64 `json:"std"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Last       float64 `json:"last"`
	ReturnMean float64 `json:"return_mean"`
	ReturnStd  float64 `json:"return_std"`
	Skew       float64 `json:"skew"`
	Kurtosis   float64 `json:"kurtosis"`
}

// LiquidityMetrics summarizes rolling volume behavior. All fields are zero
// when fewer than window observations exist.
type LiquidityMetrics struct {
	AvgVolume   float64 `json:"avg_volume"`
	VolumeStd   float64 `json:"volume_std"`
	LastVolume  float64 `json:"last_volume"`
	VolumeTrend float64 `json:"volume_trend"`
}

// PairAnalytics is the full analytics bundle for one symbol pair.
type PairAnalytics struct {
	Symbol1    string    `json:"symbol1"`
	Symbol2    string    `json:"symbol2"`
	Timeframe  string    `json:"timeframe"`
	DataPoints int       `json:"data_points"`
	LastUpdate time.Time `json:"last_update"`

	Stats1 PriceStats `json:"stats1"`
	Stats2 PriceStats `json:"stats2"`

	Regression   RegressionResult   `json:"regression"`
	HedgeMethod  string             `json:"hedge_method"` // "ols", "huber" or "kalman"
	Kalman       *KalmanResult      `json:"kalman,omitempty"`
	Spread       []float64          `json:"spread"`
	SpreadLast   float64            `json:"spread_last"`
	ZScore       []float64          `json:"zscore"`
	ZScoreLast   float64            `json:"zscore_last"`
	Stationarity StationarityResult `json:"stationarity"`
	Correlation  []float64          `json:"correlation"`
	CorrLast     float64            `json:"correlation_last"`
	HalfLife     *float64           `json:"half_life,omitempty"` // nil when no mean reversion measurable
	Liquidity1   LiquidityMetrics   `json:"liquidity1"`
	Liquidity2   LiquidityMetrics   `json:"liquidity2"`
	VWAP1        float64            `json:"vwap1"`
	VWAP2        float64            `json:"vwap2"`
}

// AnalyticsSnapshot is the flat view handed to the alert registry after each
// analytics computation.
type AnalyticsSnapshot struct {
	ZScore        float64 `json:"zscore"`
	Spread        float64 `json:"spread"`
	Correlation   float64 `json:"correlation"`
	Price         float64 `json:"price"`
	CurrentVolume float64 `json:"current_volume"`
	AvgVolume     float64 `json:"avg_volume"`
	Value         float64 `json:"value"`
}
