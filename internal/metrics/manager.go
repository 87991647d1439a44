// Package metrics keeps per-provider run statistics: how long requests and
// stages take and how they end. Values persist in a small SQLite database.
package metrics

import (
	"database/sql"
	"sync"
	"time"
)

// Manager holds the metrics of this process plus anything loaded from disk.
// Values recorded since the last save are also kept as deltas, so several
// processes sharing one database add up instead of overwriting each other.
type Manager struct {
	mu       sync.RWMutex
	timings  map[string]*TimingMetric
	outcomes map[string]*OutcomeMetric

	pendingTimings  map[string]*TimingMetric
	pendingOutcomes map[string]*OutcomeMetric

	db *sql.DB
}

// New returns an in-memory manager. Use Open for a persistent one.
func New() *Manager {
	m := &Manager{
		timings:  make(map[string]*TimingMetric),
		outcomes: make(map[string]*OutcomeMetric),
	}
	m.resetPending()
	return m
}

func (m *Manager) resetPending() {
	m.pendingTimings = make(map[string]*TimingMetric)
	m.pendingOutcomes = make(map[string]*OutcomeMetric)
}

func timingFor(set map[string]*TimingMetric, path string) *TimingMetric {
	t, ok := set[path]
	if !ok {
		t = &TimingMetric{}
		set[path] = t
	}
	return t
}

func outcomeFor(set map[string]*OutcomeMetric, path string) *OutcomeMetric {
	o, ok := set[path]
	if !ok {
		o = &OutcomeMetric{}
		set[path] = o
	}
	return o
}

// buildPath joins topic and function, e.g. "chatgpt/wait_for_ui"
func buildPath(topic, function string) string {
	if function == "" {
		return topic
	}
	return topic + "/" + function
}

// RecordDuration records a duration. Safe on a nil manager.
func (m *Manager) RecordDuration(topic, function string, d time.Duration) {
	if m == nil {
		return
	}
	path := buildPath(topic, function)
	m.mu.Lock()
	live, delta := timingFor(m.timings, path), timingFor(m.pendingTimings, path)
	m.mu.Unlock()
	live.record(d)
	delta.record(d)
}

// RecordOutcome counts an outcome. Safe on a nil manager.
func (m *Manager) RecordOutcome(topic, function, outcome string) {
	if m == nil {
		return
	}
	path := buildPath(topic, function)
	m.mu.Lock()
	live, delta := outcomeFor(m.outcomes, path), outcomeFor(m.pendingOutcomes, path)
	m.mu.Unlock()
	live.record(outcome)
	delta.record(outcome)
}

// Snapshot returns every metric sorted by path.
func (m *Manager) Snapshot() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Snapshot, 0, len(m.timings)+len(m.outcomes))
	for path, t := range m.timings {
		t.mu.RLock()
		s := Snapshot{Path: path, Type: TypeTiming, Count: t.Count, Min: t.Min, Max: t.Max, Last: t.Last}
		if t.Count > 0 {
			s.Avg = t.Total / time.Duration(t.Count)
		}
		t.mu.RUnlock()
		out = append(out, s)
	}
	for path, o := range m.outcomes {
		o.mu.RLock()
		s := Snapshot{Path: path, Type: TypeOutcome, Counts: make(map[string]int64, len(o.Counts)), Outcome: o.Last}
		for k, v := range o.Counts {
			s.Counts[k] = v
			s.Count += v
		}
		o.mu.RUnlock()
		out = append(out, s)
	}
	sortSnapshots(out)
	return out
}
