package usecase

import (
	"testing"
	"time"

	"PairFlow/internal/domain/models"
	domrepo "PairFlow/internal/domain/repository"
)

func tick(sym string, ts time.Time, price, size float64) models.Tick {
	return models.Tick{Symbol: sym, Timestamp: ts, Price: price, Size: size}
}

func TestResampleOHLCV(t *testing.T) {
	base := time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC)
	ticks := []models.Tick{
		tick("BTCUSDT", base.Add(1*time.Second), 100, 1),
		tick("BTCUSDT", base.Add(10*time.Second), 105, 2),
		tick("BTCUSDT", base.Add(20*time.Second), 95, 1),
		tick("BTCUSDT", base.Add(59*time.Second), 102, 3),
		tick("BTCUSDT", base.Add(61*time.Second), 110, 1),
	}

	bars := Resample(ticks, domrepo.TF1m)
	if len(bars) != 2 {
		t.Fatalf("got %d bars, want 2", len(bars))
	}

	b := bars[0]
	if !b.Bucket.Equal(base) {
		t.Errorf("bucket = %v, want %v", b.Bucket, base)
	}
	if b.Open != 100 || b.High != 105 || b.Low != 95 || b.Close != 102 {
		t.Errorf("ohlc = %v/%v/%v/%v, want 100/105/95/102", b.Open, b.High, b.Low, b.Close)
	}
	if b.Volume != 7 {
		t.Errorf("volume = %v, want 7", b.Volume)
	}
	if b.TradeCount != 4 {
		t.Errorf("trade count = %d, want 4", b.TradeCount)
	}

	if bars[1].Open != 110 || bars[1].TradeCount != 1 {
		t.Errorf("second bar = %+v", bars[1])
	}
}

func TestResampleUnsortedInput(t *testing.T) {
	base := time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC)
	ticks := []models.Tick{
		tick("ETHUSDT", base.Add(30*time.Second), 210, 1),
		tick("ETHUSDT", base.Add(5*time.Second), 200, 1),
		tick("ETHUSDT", base.Add(50*time.Second), 220, 1),
	}

	bars := Resample(ticks, domrepo.TF1m)
	if len(bars) != 1 {
		t.Fatalf("got %d bars, want 1", len(bars))
	}
	if bars[0].Open != 200 || bars[0].Close != 220 {
		t.Errorf("open/close = %v/%v, want 200/220", bars[0].Open, bars[0].Close)
	}
}

func TestResampleEmpty(t *testing.T) {
	if bars := Resample(nil, domrepo.TF1m); bars != nil {
		t.Errorf("empty input should produce no bars, got %v", bars)
	}
}

func TestResampleSkipsEmptyBuckets(t *testing.T) {
	base := time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC)
	ticks := []models.Tick{
		tick("BTCUSDT", base, 100, 1),
		tick("BTCUSDT", base.Add(10*time.Minute), 101, 1),
	}
	bars := Resample(ticks, domrepo.TF1m)
	if len(bars) != 2 {
		t.Fatalf("gap buckets must not produce bars, got %d", len(bars))
	}
}
