package usecase

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	domrepo "PairFlow/internal/domain/repository"
)

func TestImportBarsCSV(t *testing.T) {
	store := newFakeTickStore()
	uc := NewTransferUseCase(store, nil)

	csvData := "ts,open,high,low,close,volume\n" +
		"2024-10-10T10:00:30Z,100,105,99,102,12.5\n" +
		"2024-10-10T10:01:00Z,102,103,101,101.5,8\n"

	n, err := uc.ImportBarsCSV(context.Background(), "BTCUSDT", domrepo.TF1m, strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 2 {
		t.Fatalf("imported %d rows, want 2", n)
	}

	bars, err := store.GetBars(context.Background(), "BTCUSDT", domrepo.TF1m, time.Time{})
	if err != nil {
		t.Fatalf("get bars: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("stored %d bars, want 2", len(bars))
	}
	// 10:00:30 truncates to the 10:00 bucket
	want := time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC)
	if !bars[0].Bucket.Equal(want) {
		t.Errorf("bucket = %v, want %v", bars[0].Bucket, want)
	}
	if bars[0].Close != 102 || bars[0].Volume != 12.5 {
		t.Errorf("bar = %+v", bars[0])
	}
}

func TestImportBarsCSVRejectsBadRow(t *testing.T) {
	uc := NewTransferUseCase(newFakeTickStore(), nil)
	csvData := "2024-10-10T10:00:00Z,100,105,99,not-a-number,12\n"
	if _, err := uc.ImportBarsCSV(context.Background(), "BTCUSDT", domrepo.TF1m, strings.NewReader(csvData)); err == nil {
		t.Fatalf("bad value should fail the import")
	}
}

func TestImportBarsCSVEmpty(t *testing.T) {
	uc := NewTransferUseCase(newFakeTickStore(), nil)
	if _, err := uc.ImportBarsCSV(context.Background(), "BTCUSDT", domrepo.TF1m, strings.NewReader("")); err == nil {
		t.Fatalf("empty body should fail")
	}
}

func TestExportTicksCSV(t *testing.T) {
	store := newFakeTickStore()
	base := time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		tk := tick("ETHUSDT", base.Add(time.Duration(i)*time.Second), 200+float64(i), 1)
		_ = store.StoreTick(context.Background(), &tk)
	}

	uc := NewTransferUseCase(store, nil)
	var buf bytes.Buffer
	n, err := uc.ExportTicksCSV(context.Background(), "ETHUSDT", time.Time{}, time.Time{}, 0, &buf)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if n != 3 {
		t.Fatalf("exported %d rows, want 3", n)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want header + 3", len(lines))
	}
	if lines[0] != "timestamp,price,size" {
		t.Errorf("header = %q", lines[0])
	}
	if strings.Contains(lines[1], "ETHUSDT") {
		t.Errorf("symbol must not appear in export rows, got %q", lines[1])
	}
	if !strings.Contains(lines[1], "200") {
		t.Errorf("first row = %q", lines[1])
	}
}
