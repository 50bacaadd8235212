package models

import "time"

// Severity levels for triggered alerts.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Alert is a triggered alert rule evaluation.
type Alert struct {
	ID          string    `json:"id"`
	RuleID      string    `json:"rule_id"`
	Name        string    `json:"name"`
	Symbols     []string  `json:"symbols"`
	TriggeredAt time.Time `json:"triggered_at"`
	Value       float64   `json:"value"`
	Message     string    `json:"message"`
	Severity    string    `json:"severity"`
}
