package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	. "github.com/roelfdiedericks/chatpilot/internal/logging"
	"github.com/roelfdiedericks/chatpilot/internal/metrics"
)

// openMetrics opens the run statistics database. Failures leave stats off.
func openMetrics() *metrics.Manager {
	path, err := metrics.DefaultPath()
	if err != nil {
		L_warn("stats disabled", "error", err)
		return nil
	}
	m, err := metrics.Open(path)
	if err != nil {
		L_warn("stats disabled", "error", err)
		return nil
	}
	return m
}

type StatsCmd struct{}

func (StatsCmd) Run() error {
	m := openMetrics()
	if m == nil {
		return fmt.Errorf("no statistics available")
	}
	defer m.Close()

	snaps := m.Snapshot()
	if len(snaps) == 0 {
		fmt.Println("no requests recorded yet")
		return nil
	}
	fmt.Println(headerStyle.Render(fmt.Sprintf("%-36s %6s  %s", "METRIC", "COUNT", "DETAIL")))
	for _, s := range snaps {
		fmt.Printf("%-36s %6d  %s\n", s.Path, s.Count, detail(s))
	}
	return nil
}

func detail(s metrics.Snapshot) string {
	if s.Type == metrics.TypeTiming {
		r := func(d time.Duration) time.Duration { return d.Round(100 * time.Millisecond) }
		return fmt.Sprintf("avg %s  min %s  max %s", r(s.Avg), r(s.Min), r(s.Max))
	}
	keys := make([]string, 0, len(s.Counts))
	for k := range s.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, s.Counts[k]))
	}
	return strings.Join(parts, " ")
}
