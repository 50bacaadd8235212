package usecase

import (
	"math"
	"testing"
	"time"

	"PairFlow/internal/domain/models"
)

func minuteIndex(n int) []time.Time {
	base := time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = base.Add(time.Duration(i) * time.Minute)
	}
	return out
}

func TestSimulateSpreadShortRoundTrip(t *testing.T) {
	zscore := []float64{0, 0, 2.5, 2.5, 2.5, -0.1, 0, 0, 0, 0}
	spread := []float64{0, 0, 5, 6, 7, 1, 0, 0, 0, 0}
	cfg := BacktestConfig{EntryThreshold: 2.0, ExitThreshold: 0.0}

	res := SimulateSpread(minuteIndex(len(spread)), spread, zscore, cfg)

	if res.TotalTrades != 1 {
		t.Fatalf("trades = %d, want 1", res.TotalTrades)
	}
	tr := res.Trades[0]
	if tr.Position != models.PositionShort {
		t.Errorf("position = %s, want short", tr.Position)
	}
	if tr.EntryPrice != 5 || tr.ExitPrice != 1 {
		t.Errorf("entry/exit = %v/%v, want 5/1", tr.EntryPrice, tr.ExitPrice)
	}
	if tr.PnL != 4 {
		t.Errorf("pnl = %v, want 4", tr.PnL)
	}
	if math.Abs(tr.ReturnPct-80) > 1e-9 {
		t.Errorf("return pct = %v, want 80", tr.ReturnPct)
	}
	if res.WinningTrades != 1 || res.WinRate != 1 {
		t.Errorf("win stats = %d/%v, want 1/1", res.WinningTrades, res.WinRate)
	}
	// one trade: sharpe stays 0 by the >1 trades guard
	if res.SharpeRatio != 0 {
		t.Errorf("sharpe = %v, want 0 for a single trade", res.SharpeRatio)
	}
}

func TestSimulateSpreadLongRoundTrip(t *testing.T) {
	zscore := []float64{0, -2.5, -2.5, 0.1, 0, 0, 0, 0, 0, 0}
	spread := []float64{0, 10, 12, 14, 0, 0, 0, 0, 0, 0}
	cfg := BacktestConfig{EntryThreshold: 2.0, ExitThreshold: 0.0}

	res := SimulateSpread(minuteIndex(len(spread)), spread, zscore, cfg)

	if res.TotalTrades != 1 {
		t.Fatalf("trades = %d, want 1", res.TotalTrades)
	}
	tr := res.Trades[0]
	if tr.Position != models.PositionLong {
		t.Errorf("position = %s, want long", tr.Position)
	}
	if tr.PnL != 4 {
		t.Errorf("pnl = %v, want 4", tr.PnL)
	}
	if math.Abs(tr.ReturnPct-40) > 1e-9 {
		t.Errorf("return pct = %v, want 40", tr.ReturnPct)
	}
}

func TestSimulateSpreadTooFewSamples(t *testing.T) {
	zscore := []float64{0, 0, 2.5, 2.5, 2.5, -0.1, 0}
	spread := []float64{0, 0, 5, 6, 7, 1, 0}
	res := SimulateSpread(minuteIndex(len(spread)), spread, zscore, BacktestConfig{EntryThreshold: 2})

	if res.TotalTrades != 0 || res.Trades != nil {
		t.Errorf("short series should produce the zero result, got %+v", res)
	}
}

func TestSimulateSpreadStopLoss(t *testing.T) {
	// short at z=2.5; the stop sits at entry z + 1.0 = 3.5, so z=3.8 must
	// close the trade even though the spread itself barely moved
	zscore := []float64{0, 2.5, 3.0, 3.8, 1, 1, 1, 1, 1, 1}
	spread := []float64{0, 200, 200.5, 201, 0, 0, 0, 0, 0, 0}
	cfg := BacktestConfig{EntryThreshold: 2.0, ExitThreshold: 0.0, StopLoss: 1.0}

	res := SimulateSpread(minuteIndex(len(spread)), spread, zscore, cfg)

	if res.TotalTrades != 1 {
		t.Fatalf("trades = %d, want 1", res.TotalTrades)
	}
	tr := res.Trades[0]
	if tr.ExitPrice != 201 {
		t.Errorf("stop should exit at 201, got %v", tr.ExitPrice)
	}
	if tr.PnL != -1 {
		t.Errorf("pnl = %v, want -1", tr.PnL)
	}
	if math.Abs(tr.ReturnPct-(-0.5)) > 1e-9 {
		t.Errorf("return pct = %v, want -0.5", tr.ReturnPct)
	}
	if res.LosingTrades != 1 {
		t.Errorf("losing trades = %d, want 1", res.LosingTrades)
	}
}

func TestSimulateSpreadLongStopLoss(t *testing.T) {
	// long at z=-2.5; the stop sits at entry z - 1.0 = -3.5
	zscore := []float64{0, -2.5, -3.0, -3.6, -1, -1, -1, -1, -1, -1}
	spread := []float64{0, 10, 9, 8, 0, 0, 0, 0, 0, 0}
	cfg := BacktestConfig{EntryThreshold: 2.0, ExitThreshold: 0.0, StopLoss: 1.0}

	res := SimulateSpread(minuteIndex(len(spread)), spread, zscore, cfg)

	if res.TotalTrades != 1 {
		t.Fatalf("trades = %d, want 1", res.TotalTrades)
	}
	if res.Trades[0].ExitPrice != 8 || res.Trades[0].PnL != -2 {
		t.Errorf("trade = %+v, want exit 8 pnl -2", res.Trades[0])
	}
}

func TestSimulateSpreadTakeProfit(t *testing.T) {
	// short at z=2.5; take-profit sits at entry z - 2.0 = 0.5, reached at
	// z=0.4 before the reversion exit through zero
	zscore := []float64{0, 2.5, 1.2, 0.4, 0, 0, 0, 0, 0, 0}
	spread := []float64{0, 10, 9, 6, 5, 4, 0, 0, 0, 0}
	cfg := BacktestConfig{EntryThreshold: 2.0, ExitThreshold: 0.0, TakeProfit: 2.0}

	res := SimulateSpread(minuteIndex(len(spread)), spread, zscore, cfg)

	if res.TotalTrades != 1 {
		t.Fatalf("trades = %d, want 1", res.TotalTrades)
	}
	if res.Trades[0].ExitPrice != 6 {
		t.Errorf("take profit should exit at 6, got %v", res.Trades[0].ExitPrice)
	}
	if res.Trades[0].PnL != 4 {
		t.Errorf("pnl = %v, want 4", res.Trades[0].PnL)
	}
}

func TestSimulateSpreadFlatTradeCountsNeither(t *testing.T) {
	// entry and exit at the same spread: zero PnL is neither a win nor a loss
	zscore := []float64{0, 2.5, -0.1, 0, 0, 0, 0, 0, 0, 0}
	spread := []float64{0, 5, 5, 0, 0, 0, 0, 0, 0, 0}

	res := SimulateSpread(minuteIndex(len(spread)), spread, zscore, BacktestConfig{EntryThreshold: 2})

	if res.TotalTrades != 1 {
		t.Fatalf("trades = %d, want 1", res.TotalTrades)
	}
	if res.WinningTrades != 0 || res.LosingTrades != 0 {
		t.Errorf("win/loss = %d/%d, want 0/0", res.WinningTrades, res.LosingTrades)
	}
	if res.WinRate != 0 {
		t.Errorf("win rate = %v, want 0", res.WinRate)
	}
}

func TestSimulateSpreadOpenPositionDiscarded(t *testing.T) {
	zscore := []float64{0, 0, 2.5, 2.5, 2.5, 2.5, 2.5, 2.5, 2.5, 2.5}
	spread := []float64{0, 0, 5, 6, 7, 7, 7, 7, 7, 7}
	res := SimulateSpread(minuteIndex(len(spread)), spread, zscore, BacktestConfig{EntryThreshold: 2})

	if res.TotalTrades != 0 {
		t.Errorf("unclosed position must not count, got %d trades", res.TotalTrades)
	}
}

func TestFillBacktestMetricsDrawdownAndSharpe(t *testing.T) {
	res := models.BacktestResult{Trades: []models.Trade{
		{PnL: 4, ReturnPct: 40},
		{PnL: -3, ReturnPct: -30},
		{PnL: 2, ReturnPct: 20},
	}}
	fillBacktestMetrics(&res)

	if res.TotalTrades != 3 || res.WinningTrades != 2 || res.LosingTrades != 1 {
		t.Fatalf("counts = %d/%d/%d", res.TotalTrades, res.WinningTrades, res.LosingTrades)
	}
	if math.Abs(res.TotalPnL-3) > 1e-9 || math.Abs(res.AvgPnL-1) > 1e-9 {
		t.Errorf("pnl = %v avg %v", res.TotalPnL, res.AvgPnL)
	}
	// equity path 4 -> 1 -> 3, peak 4, trough 1
	if math.Abs(res.MaxDrawdown-3) > 1e-9 {
		t.Errorf("drawdown = %v, want 3", res.MaxDrawdown)
	}
	// population std over {40, -30, 20}: sqrt(2600/3)
	wantSharpe := 10 / math.Sqrt(2600.0/3.0) * math.Sqrt(252)
	if math.Abs(res.SharpeRatio-wantSharpe) > 1e-9 {
		t.Errorf("sharpe = %v, want %v", res.SharpeRatio, wantSharpe)
	}
}
