package alerts

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"PairFlow/internal/domain/models"
	applogger "PairFlow/pkg/logger"
)

const (
	defaultCooldown   = time.Minute
	defaultHistoryCap = 500
)

// Manager is the rule registry. It evaluates every registered rule against
// incoming snapshots, enforces a per-rule cooldown, keeps a bounded trigger
// history and fans triggered alerts out to callbacks.
type Manager struct {
	l          *applogger.Logger
	cooldown   time.Duration
	historyCap int
	seq        atomic.Uint64

	mu        sync.RWMutex
	rules     map[string]Rule
	lastFired map[string]time.Time
	history   []models.Alert
	callbacks []func(models.Alert)
}

type ManagerOption func(*Manager)

// WithCooldown sets the minimum interval between triggers of one rule.
func WithCooldown(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.cooldown = d
		}
	}
}

// WithHistoryCap bounds the retained trigger history.
func WithHistoryCap(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.historyCap = n
		}
	}
}

func NewManager(l *applogger.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		l:          l,
		cooldown:   defaultCooldown,
		historyCap: defaultHistoryCap,
		rules:      make(map[string]Rule),
		lastFired:  make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NextID hands out a process-unique rule identifier.
func (m *Manager) NextID(kind string) string {
	return fmt.Sprintf("%s-%d-%d", kind, time.Now().Unix(), m.seq.Add(1))
}

// AddRule registers a rule. Re-registering an ID replaces the old rule and
// resets its cooldown.
func (m *Manager) AddRule(r Rule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[r.ID()] = r
	delete(m.lastFired, r.ID())
}

// RemoveRule deletes a rule by ID. Returns false if it was not registered.
func (m *Manager) RemoveRule(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[id]; !ok {
		return false
	}
	delete(m.rules, id)
	delete(m.lastFired, id)
	return true
}

// Rules returns a snapshot of all registered rules.
func (m *Manager) Rules() []Rule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Rule, 0, len(m.rules))
	for _, r := range m.rules {
		out = append(out, r)
	}
	return out
}

// OnAlert registers a callback invoked for every triggered alert.
func (m *Manager) OnAlert(fn func(models.Alert)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// History returns the most recent triggered alerts, newest last.
func (m *Manager) History(limit int) []models.Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.Alert, n)
	copy(out, m.history[len(m.history)-n:])
	return out
}

// Evaluate runs every rule against the snapshot and returns triggered
// alerts. A rule inside its cooldown window stays silent.
func (m *Manager) Evaluate(snap models.AnalyticsSnapshot) []models.Alert {
	now := time.Now()

	m.mu.Lock()
	var fired []models.Alert
	for id, r := range m.rules {
		if last, ok := m.lastFired[id]; ok && now.Sub(last) < m.cooldown {
			continue
		}
		hit, value, msg := r.Evaluate(snap)
		if !hit {
			continue
		}
		m.lastFired[id] = now
		alert := models.Alert{
			ID:          fmt.Sprintf("alert-%d-%d", now.UnixNano(), m.seq.Add(1)),
			RuleID:      id,
			Name:        r.Kind(),
			Symbols:     r.Symbols(),
			TriggeredAt: now,
			Value:       value,
			Message:     msg,
			Severity:    r.Severity(),
		}
		fired = append(fired, alert)
		m.history = append(m.history, alert)
	}
	if over := len(m.history) - m.historyCap; over > 0 {
		m.history = m.history[over:]
	}
	callbacks := make([]func(models.Alert), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.Unlock()

	for _, alert := range fired {
		if m.l != nil {
			m.l.Info("alert triggered",
				applogger.String("rule", alert.RuleID),
				applogger.String("severity", alert.Severity),
				applogger.Float64("value", alert.Value),
				applogger.String("message", alert.Message),
			)
		}
		for _, fn := range callbacks {
			fn(alert)
		}
	}
	return fired
}
