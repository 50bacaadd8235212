package alerts

import (
	"testing"
	"time"

	"PairFlow/internal/domain/models"
)

func TestZScoreRuleAbsolute(t *testing.T) {
	r := NewZScoreRule("r1", []string{"BTCUSDT", "ETHUSDT"}, 2.0, "above", models.SeverityWarning)

	if hit, _, _ := r.Evaluate(models.AnalyticsSnapshot{ZScore: 1.5}); hit {
		t.Errorf("should not fire below threshold")
	}
	if hit, v, _ := r.Evaluate(models.AnalyticsSnapshot{ZScore: -2.5}); !hit || v != 2.5 {
		t.Errorf("negative zscore should fire on magnitude, hit=%v v=%v", hit, v)
	}
}

func TestVolumeSpikeRuleZeroAverage(t *testing.T) {
	r := NewVolumeSpikeRule("r1", []string{"BTCUSDT"}, 3.0, models.SeverityInfo)
	if hit, _, _ := r.Evaluate(models.AnalyticsSnapshot{CurrentVolume: 100, AvgVolume: 0}); hit {
		t.Errorf("zero average should never fire")
	}
	if hit, _, _ := r.Evaluate(models.AnalyticsSnapshot{CurrentVolume: 400, AvgVolume: 100}); !hit {
		t.Errorf("4x average should fire at 3x threshold")
	}
}

func TestCorrelationRuleFloor(t *testing.T) {
	r := NewCorrelationRule("r1", []string{"A", "B"}, 0.5, models.SeverityCritical)
	if hit, _, _ := r.Evaluate(models.AnalyticsSnapshot{Correlation: 0.8}); hit {
		t.Errorf("should not fire above floor")
	}
	if hit, _, _ := r.Evaluate(models.AnalyticsSnapshot{Correlation: 0.2}); !hit {
		t.Errorf("should fire below floor")
	}
}

func TestManagerCooldown(t *testing.T) {
	m := NewManager(nil, WithCooldown(time.Hour))
	m.AddRule(NewZScoreRule("r1", []string{"A", "B"}, 2.0, "above", models.SeverityInfo))

	snap := models.AnalyticsSnapshot{ZScore: 3.0}
	if fired := m.Evaluate(snap); len(fired) != 1 {
		t.Fatalf("first evaluation should fire once, got %d", len(fired))
	}
	if fired := m.Evaluate(snap); len(fired) != 0 {
		t.Fatalf("cooldown should suppress second trigger, got %d", len(fired))
	}
	if got := len(m.History(0)); got != 1 {
		t.Errorf("history size = %d, want 1", got)
	}
}

func TestManagerCallbacksAndRemove(t *testing.T) {
	m := NewManager(nil, WithCooldown(time.Millisecond))

	var seen []models.Alert
	m.OnAlert(func(a models.Alert) { seen = append(seen, a) })
	m.AddRule(NewSpreadRule("spread-1", []string{"A", "B"}, 5.0, "above", models.SeverityWarning))

	m.Evaluate(models.AnalyticsSnapshot{Spread: 6.0})
	if len(seen) != 1 {
		t.Fatalf("callback should see 1 alert, got %d", len(seen))
	}
	if seen[0].RuleID != "spread-1" || seen[0].Severity != models.SeverityWarning {
		t.Errorf("unexpected alert %+v", seen[0])
	}

	if !m.RemoveRule("spread-1") {
		t.Fatalf("remove should succeed")
	}
	if m.RemoveRule("spread-1") {
		t.Fatalf("second remove should report missing")
	}
	if fired := m.Evaluate(models.AnalyticsSnapshot{Spread: 6.0}); len(fired) != 0 {
		t.Errorf("removed rule should not fire")
	}
}

func TestManagerHistoryCap(t *testing.T) {
	m := NewManager(nil, WithCooldown(time.Nanosecond), WithHistoryCap(3))
	m.AddRule(NewPriceThresholdRule("p1", []string{"A"}, 10, "above", models.SeverityInfo))

	for i := 0; i < 5; i++ {
		m.Evaluate(models.AnalyticsSnapshot{Price: 20})
		time.Sleep(2 * time.Nanosecond)
	}
	if got := len(m.History(0)); got > 3 {
		t.Errorf("history should be capped at 3, got %d", got)
	}
}
