// Package intern maps raw subject names to canonical interned handles.
//
// The table is a lookup cache in front of unique.Make: it is never
// authoritative and may be cleared at any time without changing which handle
// a name resolves to.
package intern

import (
	"sync"
	"unique"

	"github.com/c360/livebridge/errors"
)

// Handle is the canonical identity of a subject name. Two handles are equal
// exactly when their names are equal.
type Handle = unique.Handle[string]

// Table is a thread-safe name cache with hit/miss statistics.
type Table struct {
	mu      sync.RWMutex
	items   map[string]Handle
	stats   *Statistics
	metrics *tableMetrics
}

// New creates an empty table. It fails only when metrics were requested and
// could not be registered.
func New(opts ...Option) (*Table, error) {
	o := applyOptions(opts...)

	var metrics *tableMetrics
	if o.metricsReg != nil {
		var err error
		metrics, err = newTableMetrics(o.metricsReg, o.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "intern", "New", "metrics registration")
		}
	}

	return &Table{
		items:   make(map[string]Handle, o.initialSize),
		stats:   NewStatistics(),
		metrics: metrics,
	}, nil
}

// Intern returns the handle for name, caching it on first use.
func (t *Table) Intern(name string) Handle {
	t.mu.RLock()
	h, ok := t.items[name]
	t.mu.RUnlock()
	if ok {
		t.stats.Hit()
		t.metrics.recordHit()
		return h
	}

	t.stats.Miss()
	t.metrics.recordMiss()

	t.mu.Lock()
	defer t.mu.Unlock()
	if h, ok = t.items[name]; ok {
		return h
	}
	h = unique.Make(name)
	t.items[name] = h
	t.metrics.setSize(len(t.items))
	return h
}

// Len returns the number of cached names.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

// Clear drops every cached name and returns how many there were.
// Statistics are kept.
func (t *Table) Clear() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.items)
	t.items = make(map[string]Handle)
	t.metrics.setSize(0)
	return n
}

// Stats returns the table's statistics.
func (t *Table) Stats() *Statistics {
	return t.stats
}
