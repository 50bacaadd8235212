package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestBucketStart(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 17, 42, 0, time.UTC)
	cases := []struct {
		tf   string
		want time.Time
	}{
		{"1s", time.Date(2024, 10, 10, 10, 17, 42, 0, time.UTC)},
		{"1m", time.Date(2024, 10, 10, 10, 17, 0, 0, time.UTC)},
		{"5m", time.Date(2024, 10, 10, 10, 15, 0, 0, time.UTC)},
		{"15m", time.Date(2024, 10, 10, 10, 15, 0, 0, time.UTC)},
		{"1h", time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC)},
		{"bogus", time.Date(2024, 10, 10, 10, 17, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		if got := BucketStart(ts, tc.tf); !got.Equal(tc.want) {
			t.Errorf("BucketStart(%s) = %v, want %v", tc.tf, got, tc.want)
		}
	}
}

func TestAlignFromTo(t *testing.T) {
	from := time.Date(2024, 10, 10, 10, 17, 42, 0, time.UTC)
	to := time.Date(2024, 10, 10, 11, 3, 9, 0, time.UTC)
	af, at := AlignFromTo(from, to, "5m")
	if !af.Equal(time.Date(2024, 10, 10, 10, 15, 0, 0, time.UTC)) {
		t.Fatalf("from = %v", af)
	}
	if !at.Equal(time.Date(2024, 10, 10, 11, 0, 0, 0, time.UTC)) {
		t.Fatalf("to = %v", at)
	}
}
