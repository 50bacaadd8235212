package usecase

import (
	"sort"
	"time"

	"PairFlow/internal/domain/models"
	domrepo "PairFlow/internal/domain/repository"
)

// Resample folds raw ticks into OHLCV bars for one timeframe. Buckets with
// no ticks produce no bar. Output is ordered by bucket ascending. Input
// order does not matter; ticks are sorted by timestamp first.
func Resample(ticks []models.Tick, tf domrepo.Timeframe) []models.Bar {
	if len(ticks) == 0 {
		return nil
	}

	sorted := make([]models.Tick, len(ticks))
	copy(sorted, ticks)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	d := tf.Duration()
	var bars []models.Bar
	var cur *models.Bar
	var curBucket time.Time

	for _, t := range sorted {
		bucket := t.Timestamp.Truncate(d)
		if cur == nil || !bucket.Equal(curBucket) {
			if cur != nil {
				bars = append(bars, *cur)
			}
			curBucket = bucket
			cur = &models.Bar{
				Symbol:     t.Symbol,
				Timeframe:  string(tf),
				Bucket:     bucket,
				Open:       t.Price,
				High:       t.Price,
				Low:        t.Price,
				Close:      t.Price,
				Volume:     t.Size,
				TradeCount: 1,
			}
			continue
		}
		if t.Price > cur.High {
			cur.High = t.Price
		}
		if t.Price < cur.Low {
			cur.Low = t.Price
		}
		cur.Close = t.Price
		cur.Volume += t.Size
		cur.TradeCount++
	}
	if cur != nil {
		bars = append(bars, *cur)
	}
	return bars
}
