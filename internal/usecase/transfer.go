package usecase

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"PairFlow/internal/domain/models"
	domrepo "PairFlow/internal/domain/repository"
	applogger "PairFlow/pkg/logger"
	"PairFlow/pkg/util"
)

// TransferUseCase moves market data across the HTTP boundary in bulk:
// historical bar uploads in, tick dumps out.
type TransferUseCase struct {
	store domrepo.TickStore
	l     *applogger.Logger
}

func NewTransferUseCase(store domrepo.TickStore, l *applogger.Logger) *TransferUseCase {
	return &TransferUseCase{store: store, l: l}
}

// ImportBarsCSV reads rows of (ts, open, high, low, close, volume) and
// upserts them as bars. A header row is detected and skipped. Timestamps
// accept RFC3339 or unix seconds and are truncated to the bucket boundary.
// Returns the number of bars stored.
func (uc *TransferUseCase) ImportBarsCSV(ctx context.Context, symbol string, tf domrepo.Timeframe, r io.Reader) (int, error) {
	if symbol == "" {
		return 0, fmt.Errorf("symbol required")
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 6
	reader.TrimLeadingSpace = true

	var bars []models.Bar
	row := 0
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("csv row %d: %w", row+1, err)
		}
		row++

		ts, ok := util.ParseTime(rec[0])
		if !ok {
			if row == 1 {
				continue // header
			}
			return 0, fmt.Errorf("csv row %d: bad timestamp %q", row, rec[0])
		}

		vals := make([]float64, 5)
		for i := 0; i < 5; i++ {
			v, err := strconv.ParseFloat(rec[i+1], 64)
			if err != nil {
				return 0, fmt.Errorf("csv row %d: bad value %q", row, rec[i+1])
			}
			vals[i] = v
		}

		bars = append(bars, models.Bar{
			Symbol:    symbol,
			Timeframe: string(tf),
			Bucket:    ts.Truncate(tf.Duration()),
			Open:      vals[0],
			High:      vals[1],
			Low:       vals[2],
			Close:     vals[3],
			Volume:    vals[4],
		})
	}

	if len(bars) == 0 {
		return 0, fmt.Errorf("no rows")
	}
	if err := uc.store.StoreBars(ctx, symbol, tf, bars); err != nil {
		return 0, fmt.Errorf("store imported bars: %w", err)
	}
	if uc.l != nil {
		uc.l.Info("bars imported",
			applogger.String("symbol", symbol),
			applogger.String("tf", string(tf)),
			applogger.Int("rows", len(bars)),
		)
	}
	return len(bars), nil
}

// ExportTicksCSV streams ticks for a symbol as CSV with a header row.
// Returns the number of data rows written.
func (uc *TransferUseCase) ExportTicksCSV(ctx context.Context, symbol string, from, to time.Time, limit int, w io.Writer) (int, error) {
	if symbol == "" {
		return 0, fmt.Errorf("symbol required")
	}

	ticks, err := uc.store.GetTicks(ctx, symbol, from, to, limit)
	if err != nil {
		return 0, fmt.Errorf("export ticks: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"timestamp", "price", "size"}); err != nil {
		return 0, err
	}
	for _, t := range ticks {
		rec := []string{
			t.Timestamp.UTC().Format(time.RFC3339Nano),
			strconv.FormatFloat(t.Price, 'f', -1, 64),
			strconv.FormatFloat(t.Size, 'f', -1, 64),
		}
		if err := writer.Write(rec); err != nil {
			return 0, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, err
	}
	return len(ticks), nil
}
