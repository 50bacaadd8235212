package models

// Requests for market data and analytics HTTP endpoints. Defined in domain
// for consistency and reuse.

type TicksRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	Limit  int    `query:"limit" json:"limit" default:"10000" validate:"gte=1,lte=1000000"`
}

type BarsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	TF     string `query:"tf" json:"tf" default:"1m" validate:"oneof=1s 1m 5m 15m 1h"`
	From   string `query:"from" json:"from"`
}

type PairAnalyticsRequest struct {
	Symbol1   string `query:"symbol1" json:"symbol1" validate:"required"`
	Symbol2   string `query:"symbol2" json:"symbol2" validate:"required"`
	TF        string `query:"tf" json:"tf" default:"1m" validate:"oneof=1s 1m 5m 15m 1h"`
	Window    int    `query:"window" json:"window" default:"20" validate:"gte=2,lte=500"`
	UseKalman bool   `query:"use_kalman" json:"use_kalman"`
	Robust    bool   `query:"robust" json:"robust"`
}

type BacktestRequest struct {
	Symbol1        string  `query:"symbol1" json:"symbol1" validate:"required"`
	Symbol2        string  `query:"symbol2" json:"symbol2" validate:"required"`
	TF             string  `query:"tf" json:"tf" default:"1m" validate:"oneof=1s 1m 5m 15m 1h"`
	Window         int     `query:"window" json:"window" default:"20" validate:"gte=2,lte=500"`
	EntryThreshold float64 `query:"entry" json:"entry_threshold" default:"2.0" validate:"gt=0"`
	ExitThreshold  float64 `query:"exit" json:"exit_threshold" default:"0.0" validate:"gte=0"`
	StopLoss       float64 `query:"stop_loss" json:"stop_loss" validate:"gte=0"`
	TakeProfit     float64 `query:"take_profit" json:"take_profit" validate:"gte=0"`
}

type AddRuleRequest struct {
	Kind      string  `json:"kind" validate:"required,oneof=zscore price spread correlation volume_spike"`
	Symbol1   string  `json:"symbol1"`
	Symbol2   string  `json:"symbol2"`
	Threshold float64 `json:"threshold"`
	Direction string  `json:"direction" default:"above" validate:"oneof=above below"`
	Severity  string  `json:"severity" default:"info" validate:"oneof=info warning critical"`
}
