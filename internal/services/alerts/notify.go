package alerts

import (
	"context"
	"encoding/json"
	"fmt"

	"PairFlow/internal/domain/models"
	applogger "PairFlow/pkg/logger"
	"PairFlow/pkg/queue"
)

const alertMessageType = "alert.triggered"

// PublishTriggered registers a manager callback that pushes every triggered
// alert onto the notification queue. Publish failures are logged and
// dropped; alerting never blocks the analytics path.
func PublishTriggered(m *Manager, q queue.QueueService, l *applogger.Logger) {
	m.OnAlert(func(a models.Alert) {
		if err := q.PublishMessage(context.Background(), alertMessageType, a); err != nil && l != nil {
			l.Warn("alert publish failed",
				applogger.String("rule", a.RuleID),
				applogger.Error(err),
			)
		}
	})
}

// NotifyJob drains the alert notification queue. Delivery here is a
// structured log line; external sinks hang off the same job.
type NotifyJob struct {
	l *applogger.Logger
}

func NewNotifyJob(l *applogger.Logger) *NotifyJob {
	return &NotifyJob{l: l}
}

func (j *NotifyJob) Name() string { return "alert-notify" }
func (j *NotifyJob) Type() string { return alertMessageType }

func (j *NotifyJob) Handle(_ context.Context, payload interface{}) error {
	raw, ok := payload.(json.RawMessage)
	if !ok {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("alert payload: %w", err)
		}
		raw = b
	}

	var a models.Alert
	if err := json.Unmarshal(raw, &a); err != nil {
		return fmt.Errorf("decode alert: %w", err)
	}

	if j.l != nil {
		j.l.Info("alert delivered",
			applogger.String("id", a.ID),
			applogger.String("rule", a.RuleID),
			applogger.String("severity", a.Severity),
			applogger.Strings("symbols", a.Symbols),
			applogger.String("message", a.Message),
		)
	}
	return nil
}
