package models

import "time"

// Tick is a single normalized trade print. Ticks are immutable once stored;
// duplicates on (symbol, timestamp) are allowed since multiple trades can
// share a timestamp at the feed's resolution.
type Tick struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Size      float64   `json:"size"`
}

// Bar is an OHLCV aggregate for one timeframe bucket. Bucket is the
// bucket start. Bars are unique per (symbol, timeframe, bucket).
type Bar struct {
	Symbol     string    `json:"symbol"`
	Timeframe  string    `json:"timeframe"`
	Bucket     time.Time `json:"bucket"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	Volume     float64   `json:"volume"`
	TradeCount uint64    `json:"trade_count"`
}
