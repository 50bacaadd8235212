// Package alerts holds the alert rule registry evaluated after each
// analytics pass. Rules are small tagged variants sharing one interface;
// the manager owns cooldowns, history and trigger callbacks.
package alerts

import (
	"fmt"
	"math"

	"PairFlow/internal/domain/models"
)

// Rule is one alert condition over an analytics snapshot.
type Rule interface {
	ID() string
	Kind() string
	Symbols() []string
	Severity() string
	// Evaluate returns whether the rule fired, the observed value, and a
	// human-readable message.
	Evaluate(snap models.AnalyticsSnapshot) (bool, float64, string)
}

type baseRule struct {
	id       string
	symbols  []string
	severity string
}

func (r baseRule) ID() string        { return r.id }
func (r baseRule) Symbols() []string { return r.symbols }
func (r baseRule) Severity() string  { return r.severity }

func crossed(value, threshold float64, direction string) bool {
	if direction == "below" {
		return value < threshold
	}
	return value > threshold
}

// ZScoreRule fires on the magnitude of the pair z-score. The absolute
// value is compared so both legs of a divergence trigger it.
type ZScoreRule struct {
	baseRule
	Threshold float64
	Direction string
}

func NewZScoreRule(id string, symbols []string, threshold float64, direction, severity string) *ZScoreRule {
	return &ZScoreRule{baseRule: baseRule{id: id, symbols: symbols, severity: severity}, Threshold: threshold, Direction: direction}
}

func (r *ZScoreRule) Kind() string { return "zscore" }

func (r *ZScoreRule) Evaluate(snap models.AnalyticsSnapshot) (bool, float64, string) {
	v := math.Abs(snap.ZScore)
	if !crossed(v, r.Threshold, r.Direction) {
		return false, v, ""
	}
	return true, v, fmt.Sprintf("|zscore| %.2f %s threshold %.2f", v, r.Direction, r.Threshold)
}

// PriceThresholdRule fires when the first symbol's last price crosses a level.
type PriceThresholdRule struct {
	baseRule
	Threshold float64
	Direction string
}

func NewPriceThresholdRule(id string, symbols []string, threshold float64, direction, severity string) *PriceThresholdRule {
	return &PriceThresholdRule{baseRule: baseRule{id: id, symbols: symbols, severity: severity}, Threshold: threshold, Direction: direction}
}

func (r *PriceThresholdRule) Kind() string { return "price" }

func (r *PriceThresholdRule) Evaluate(snap models.AnalyticsSnapshot) (bool, float64, string) {
	if !crossed(snap.Price, r.Threshold, r.Direction) {
		return false, snap.Price, ""
	}
	return true, snap.Price, fmt.Sprintf("price %.4f %s threshold %.4f", snap.Price, r.Direction, r.Threshold)
}

// SpreadRule fires when the pair spread crosses a level.
type SpreadRule struct {
	baseRule
	Threshold float64
	Direction string
}

func NewSpreadRule(id string, symbols []string, threshold float64, direction, severity string) *SpreadRule {
	return &SpreadRule{baseRule: baseRule{id: id, symbols: symbols, severity: severity}, Threshold: threshold, Direction: direction}
}

func (r *SpreadRule) Kind() string { return "spread" }

func (r *SpreadRule) Evaluate(snap models.AnalyticsSnapshot) (bool, float64, string) {
	if !crossed(snap.Spread, r.Threshold, r.Direction) {
		return false, snap.Spread, ""
	}
	return true, snap.Spread, fmt.Sprintf("spread %.4f %s threshold %.4f", snap.Spread, r.Direction, r.Threshold)
}

// CorrelationRule fires when the rolling correlation drops below a floor,
// signalling a potential pair breakdown.
type CorrelationRule struct {
	baseRule
	Floor float64
}

func NewCorrelationRule(id string, symbols []string, floor float64, severity string) *CorrelationRule {
	return &CorrelationRule{baseRule: baseRule{id: id, symbols: symbols, severity: severity}, Floor: floor}
}

func (r *CorrelationRule) Kind() string { return "correlation" }

func (r *CorrelationRule) Evaluate(snap models.AnalyticsSnapshot) (bool, float64, string) {
	if snap.Correlation >= r.Floor {
		return false, snap.Correlation, ""
	}
	return true, snap.Correlation, fmt.Sprintf("correlation %.3f fell below %.3f", snap.Correlation, r.Floor)
}

// VolumeSpikeRule fires when current volume exceeds a multiple of the
// rolling average. A zero average never fires.
type VolumeSpikeRule struct {
	baseRule
	Multiplier float64
}

func NewVolumeSpikeRule(id string, symbols []string, multiplier float64, severity string) *VolumeSpikeRule {
	return &VolumeSpikeRule{baseRule: baseRule{id: id, symbols: symbols, severity: severity}, Multiplier: multiplier}
}

func (r *VolumeSpikeRule) Kind() string { return "volume_spike" }

func (r *VolumeSpikeRule) Evaluate(snap models.AnalyticsSnapshot) (bool, float64, string) {
	if snap.AvgVolume <= 0 {
		return false, 0, ""
	}
	ratio := snap.CurrentVolume / snap.AvgVolume
	if ratio <= r.Multiplier {
		return false, ratio, ""
	}
	return true, ratio, fmt.Sprintf("volume %.1fx rolling average (threshold %.1fx)", ratio, r.Multiplier)
}
