package models

import "time"

// Position is the state of the backtest machine.
type Position string

const (
	PositionFlat  Position = "flat"
	PositionLong  Position = "long"
	PositionShort Position = "short"
)

// Trade records one completed round trip of the spread position. Entry and
// exit prices are spread values. Immutable once created.
type Trade struct {
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Position   Position  `json:"position"`
	PnL        float64   `json:"pnl"`
	ReturnPct  float64   `json:"return_pct"`
}

// BacktestResult aggregates performance over completed trades. A run with
// insufficient input or zero trades yields the zero value with a nil Trades.
type BacktestResult struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`
	TotalPnL      float64 `json:"total_pnl"`
	AvgPnL        float64 `json:"avg_pnl"`
	MaxDrawdown   float64 `json:"max_drawdown"`
	SharpeRatio   float64 `json:"sharpe_ratio"`
	Trades        []Trade `json:"trades"`
}
