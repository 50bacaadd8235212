package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"PairFlow/internal/domain/models"
	domrepo "PairFlow/internal/domain/repository"
	"PairFlow/internal/services/analytics"
	applogger "PairFlow/pkg/logger"
)

// minBacktestSamples is the shortest series worth simulating; below it the
// result is all zeros.
const minBacktestSamples = 10

// BacktestConfig holds simulation thresholds, all in z-score units.
// StopLoss and TakeProfit are offsets from the z-score at entry and
// disabled when zero.
type BacktestConfig struct {
	EntryThreshold float64
	ExitThreshold  float64
	StopLoss       float64
	TakeProfit     float64
}

// SimulateSpread runs the three-state machine over a z-score series. A
// flat book goes short the spread when z rises above the entry threshold
// and long when it falls below the negative entry threshold. Positions
// close on mean reversion through the exit level, or when the z-score
// runs past the entry z-score by the stop-loss offset (against the
// position) or the take-profit offset (in its favor). A position still
// open at the end is discarded.
func SimulateSpread(index []time.Time, spread, zscore []float64, cfg BacktestConfig) models.BacktestResult {
	var res models.BacktestResult

	n := len(spread)
	if len(zscore) < n {
		n = len(zscore)
	}
	if len(index) < n {
		n = len(index)
	}
	if n < minBacktestSamples {
		return res
	}

	position := models.PositionFlat
	var entryPrice float64
	var entryZ float64
	var entryTime time.Time

	closeTrade := func(i int) {
		exitPrice := spread[i]
		pnl := tradePnL(position, entryPrice, exitPrice)
		ret := tradeReturnPct(pnl, entryPrice)
		res.Trades = append(res.Trades, models.Trade{
			EntryTime:  entryTime,
			ExitTime:   index[i],
			EntryPrice: entryPrice,
			ExitPrice:  exitPrice,
			Position:   position,
			PnL:        pnl,
			ReturnPct:  ret,
		})
		position = models.PositionFlat
	}

	for i := 0; i < n; i++ {
		z := zscore[i]

		switch position {
		case models.PositionFlat:
			if z > cfg.EntryThreshold {
				position = models.PositionShort
				entryPrice = spread[i]
				entryZ = z
				entryTime = index[i]
			} else if z < -cfg.EntryThreshold {
				position = models.PositionLong
				entryPrice = spread[i]
				entryZ = z
				entryTime = index[i]
			}

		case models.PositionShort:
			switch {
			case z < cfg.ExitThreshold:
				closeTrade(i)
			case cfg.StopLoss > 0 && z > entryZ+cfg.StopLoss:
				closeTrade(i)
			case cfg.TakeProfit > 0 && z < entryZ-cfg.TakeProfit:
				closeTrade(i)
			}

		case models.PositionLong:
			switch {
			case z > -cfg.ExitThreshold:
				closeTrade(i)
			case cfg.StopLoss > 0 && z < entryZ-cfg.StopLoss:
				closeTrade(i)
			case cfg.TakeProfit > 0 && z > entryZ+cfg.TakeProfit:
				closeTrade(i)
			}
		}
	}

	fillBacktestMetrics(&res)
	return res
}

func tradePnL(position models.Position, entry, exit float64) float64 {
	if position == models.PositionShort {
		return entry - exit
	}
	return exit - entry
}

func tradeReturnPct(pnl, entry float64) float64 {
	if entry == 0 {
		return 0
	}
	return pnl / math.Abs(entry) * 100
}

func fillBacktestMetrics(res *models.BacktestResult) {
	res.TotalTrades = len(res.Trades)
	if res.TotalTrades == 0 {
		return
	}

	var cumPnL, peak, maxDD float64
	returns := make([]float64, 0, res.TotalTrades)
	for _, t := range res.Trades {
		res.TotalPnL += t.PnL
		// flat trades count in neither bucket
		if t.PnL > 0 {
			res.WinningTrades++
		} else if t.PnL < 0 {
			res.LosingTrades++
		}
		returns = append(returns, t.ReturnPct)

		// drawdown over the trade-indexed equity curve
		cumPnL += t.PnL
		if cumPnL > peak {
			peak = cumPnL
		}
		if dd := peak - cumPnL; dd > maxDD {
			maxDD = dd
		}
	}

	res.WinRate = float64(res.WinningTrades) / float64(res.TotalTrades)
	res.AvgPnL = res.TotalPnL / float64(res.TotalTrades)
	res.MaxDrawdown = maxDD

	if res.TotalTrades > 1 {
		m := meanOf(returns)
		sd := stdOf(returns, m)
		if sd > 0 {
			res.SharpeRatio = m / sd * math.Sqrt(252)
		}
	}
}

func meanOf(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdOf is the population standard deviation (ddof=0).
func stdOf(xs []float64, m float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// BacktestUseCase runs the spread strategy simulation for a pair, reusing
// the analytics pipeline to produce the z-score series.
type BacktestUseCase struct {
	pa *PairAnalyticsUseCase
	l  *applogger.Logger
}

func NewBacktestUseCase(pa *PairAnalyticsUseCase, l *applogger.Logger) *BacktestUseCase {
	return &BacktestUseCase{pa: pa, l: l}
}

type BacktestParams struct {
	Symbol1   string
	Symbol2   string
	Timeframe domrepo.Timeframe
	Window    int
	Config    BacktestConfig
}

func (uc *BacktestUseCase) Run(ctx context.Context, p BacktestParams) (*models.BacktestResult, error) {
	if p.Symbol1 == "" || p.Symbol2 == "" {
		return nil, fmt.Errorf("both symbols required")
	}
	if p.Window < 2 {
		p.Window = 20
	}
	if p.Config.EntryThreshold <= 0 {
		p.Config.EntryThreshold = 2.0
	}

	snap, err := uc.pa.loadSnapshot(ctx, p.Symbol1, p.Symbol2, p.Timeframe)
	if err != nil {
		return nil, err
	}

	reg := analytics.OLSRegression(snap.Price1, snap.Price2)
	spread := analytics.Spread(snap.Price1, snap.Price2, reg.Beta)
	zscore := analytics.RollingZScore(spread, p.Window)

	res := SimulateSpread(snap.Index, spread, zscore, p.Config)
	if uc.l != nil {
		uc.l.Info("backtest finished",
			applogger.String("symbol1", p.Symbol1),
			applogger.String("symbol2", p.Symbol2),
			applogger.Int("points", snap.Len()),
			applogger.Int("trades", res.TotalTrades),
			applogger.Float64("total_pnl", res.TotalPnL),
		)
	}
	return &res, nil
}
