package metrics

import (
	"sort"
	"sync"
	"time"
)

// MetricType represents the type of metric
type MetricType string

const (
	TypeTiming  MetricType = "timing"
	TypeOutcome MetricType = "outcome"
)

// TimingMetric tracks timing statistics
type TimingMetric struct {
	mu    sync.RWMutex
	Count int64
	Total time.Duration
	Min   time.Duration
	Max   time.Duration
	Last  time.Duration
}

func (t *TimingMetric) record(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Count == 0 || d < t.Min {
		t.Min = d
	}
	if d > t.Max {
		t.Max = d
	}
	t.Count++
	t.Total += d
	t.Last = d
}

// Avg returns the mean duration.
func (t *TimingMetric) Avg() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.Count == 0 {
		return 0
	}
	return t.Total / time.Duration(t.Count)
}

// OutcomeMetric counts results by outcome label ("ok", an error kind, ...)
type OutcomeMetric struct {
	mu     sync.RWMutex
	Counts map[string]int64
	Last   string
}

func (o *OutcomeMetric) record(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Counts == nil {
		o.Counts = map[string]int64{}
	}
	o.Counts[outcome]++
	o.Last = outcome
}

// Snapshot is a read-only copy of one metric.
type Snapshot struct {
	Path    string
	Type    MetricType
	Count   int64
	Avg     time.Duration
	Min     time.Duration
	Max     time.Duration
	Last    time.Duration
	Counts  map[string]int64
	Outcome string // last outcome
}

func sortSnapshots(s []Snapshot) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Path != s[j].Path {
			return s[i].Path < s[j].Path
		}
		return s[i].Type < s[j].Type
	})
}
