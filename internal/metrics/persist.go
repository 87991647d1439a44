package metrics

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	. "github.com/roelfdiedericks/chatpilot/internal/logging"
	"github.com/roelfdiedericks/chatpilot/internal/paths"
)

const (
	pruneMaxAge   = 30 * 24 * time.Hour
	dbFileName    = "metrics.db"
	dbOpenOptions = "?_busy_timeout=5000"
)

const schemaSQL = `CREATE TABLE IF NOT EXISTS metrics (
	path       TEXT NOT NULL,
	type       TEXT NOT NULL,
	data       BLOB NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (path, type)
)`

// DefaultPath is ~/.chatpilot/metrics.db
func DefaultPath() (string, error) {
	return paths.DataPath(dbFileName)
}

// Open loads the metrics stored at dbPath. Close writes them back.
func Open(dbPath string) (*Manager, error) {
	if err := paths.EnsureDir(filepath.Dir(dbPath)); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dbPath+dbOpenOptions)
	if err != nil {
		return nil, fmt.Errorf("open metrics database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create metrics schema: %w", err)
	}

	m := New()
	m.db = db
	if n, err := m.prune(); err != nil {
		L_warn("metrics: failed to prune stale data", "error", err)
	} else if n > 0 {
		L_debug("metrics: pruned stale metrics", "count", n)
	}
	loaded, err := m.load()
	if err != nil {
		L_warn("metrics: failed to load persisted data", "error", err)
	}
	L_trace("metrics: opened", "path", dbPath, "loaded", loaded)
	return m, nil
}

// Close saves and closes the database. Safe on an in-memory manager.
func (m *Manager) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	if err := m.save(); err != nil {
		L_warn("metrics: final save failed", "error", err)
	}
	err := m.db.Close()
	m.db = nil
	return err
}

type persistTiming struct {
	Count int64 `json:"count"`
	Total int64 `json:"total_ns"`
	Min   int64 `json:"min_ns"`
	Max   int64 `json:"max_ns"`
	Last  int64 `json:"last_ns"`
}

func (p *persistTiming) add(d persistTiming) {
	if d.Count == 0 {
		return
	}
	if p.Count == 0 || d.Min < p.Min {
		p.Min = d.Min
	}
	if d.Max > p.Max {
		p.Max = d.Max
	}
	p.Count += d.Count
	p.Total += d.Total
	p.Last = d.Last
}

func (t *TimingMetric) persisted() persistTiming {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return persistTiming{Count: t.Count, Total: int64(t.Total), Min: int64(t.Min), Max: int64(t.Max), Last: int64(t.Last)}
}

type persistOutcome struct {
	Counts map[string]int64 `json:"counts"`
	Last   string           `json:"last"`
}

func (p *persistOutcome) add(d persistOutcome) {
	if p.Counts == nil {
		p.Counts = make(map[string]int64, len(d.Counts))
	}
	for k, v := range d.Counts {
		p.Counts[k] += v
	}
	if d.Last != "" {
		p.Last = d.Last
	}
}

func (o *OutcomeMetric) persisted() persistOutcome {
	o.mu.RLock()
	defer o.mu.RUnlock()
	counts := make(map[string]int64, len(o.Counts))
	for k, v := range o.Counts {
		counts[k] = v
	}
	return persistOutcome{Counts: counts, Last: o.Last}
}

// save adds the pending deltas to the stored rows in one transaction.
func (m *Manager) save() error {
	m.mu.Lock()
	timings, outcomes := m.pendingTimings, m.pendingOutcomes
	m.resetPending()
	m.mu.Unlock()

	if len(timings) == 0 && len(outcomes) == 0 {
		return nil
	}

	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().Unix()
	for path, t := range timings {
		var stored persistTiming
		if err := readRow(tx, path, TypeTiming, &stored); err != nil {
			return err
		}
		stored.add(t.persisted())
		if err := writeRow(tx, path, TypeTiming, stored, now); err != nil {
			return err
		}
	}
	for path, o := range outcomes {
		var stored persistOutcome
		if err := readRow(tx, path, TypeOutcome, &stored); err != nil {
			return err
		}
		stored.add(o.persisted())
		if err := writeRow(tx, path, TypeOutcome, stored, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// readRow decodes the stored row into v. A missing or corrupt row leaves v zero.
func readRow(tx *sql.Tx, path string, typ MetricType, v any) error {
	var data []byte
	err := tx.QueryRow("SELECT data FROM metrics WHERE path = ? AND type = ?", path, string(typ)).Scan(&data)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		L_warn("metrics: replacing corrupt row", "path", path, "error", err)
	}
	return nil
}

func writeRow(tx *sql.Tx, path string, typ MetricType, v any, now int64) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`INSERT INTO metrics (path, type, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path, type) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		path, string(typ), data, now)
	return err
}

// load restores persisted metrics into memory.
func (m *Manager) load() (int, error) {
	rows, err := m.db.Query("SELECT path, type, data FROM metrics")
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for rows.Next() {
		var path, metricType string
		var data []byte
		if err := rows.Scan(&path, &metricType, &data); err != nil {
			L_warn("metrics: failed to scan row", "error", err)
			continue
		}
		switch MetricType(metricType) {
		case TypeTiming:
			var p persistTiming
			if err := json.Unmarshal(data, &p); err != nil {
				L_warn("metrics: bad timing row", "path", path, "error", err)
				continue
			}
			m.timings[path] = &TimingMetric{Count: p.Count, Total: time.Duration(p.Total),
				Min: time.Duration(p.Min), Max: time.Duration(p.Max), Last: time.Duration(p.Last)}
		case TypeOutcome:
			var p persistOutcome
			if err := json.Unmarshal(data, &p); err != nil {
				L_warn("metrics: bad outcome row", "path", path, "error", err)
				continue
			}
			m.outcomes[path] = &OutcomeMetric{Counts: p.Counts, Last: p.Last}
		default:
			continue
		}
		count++
	}
	return count, rows.Err()
}

// prune deletes metrics not updated within the retention period.
func (m *Manager) prune() (int, error) {
	cutoff := time.Now().Add(-pruneMaxAge).Unix()
	result, err := m.db.Exec("DELETE FROM metrics WHERE updated_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}
