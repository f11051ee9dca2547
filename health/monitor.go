package health

import (
	"slices"
	"sync"
	"time"

	"github.com/c360/livebridge/natsclient"
	"github.com/c360/livebridge/registry"
)

// CheckFunc reports the current status of one component.
type CheckFunc func() Status

// Monitor polls named checks on demand and aggregates the results under one
// system name. The last result of each check stays readable between checks.
type Monitor struct {
	system string

	mu     sync.Mutex
	checks map[string]CheckFunc
	last   map[string]Status
}

// NewMonitor creates a monitor reporting as system.
func NewMonitor(system string) *Monitor {
	return &Monitor{
		system: system,
		checks: make(map[string]CheckFunc),
		last:   make(map[string]Status),
	}
}

// Watch adds or replaces the check for name.
func (m *Monitor) Watch(name string, fn CheckFunc) *Monitor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[name] = fn
	delete(m.last, name)
	return m
}

// WatchBridge checks a registry through FromBridge.
func (m *Monitor) WatchBridge(name string, reg *registry.Registry) *Monitor {
	return m.Watch(name, func() Status {
		return FromBridge(name, reg.Stats())
	})
}

// WatchNATS checks a client through FromNATS. A nil client reports
// unhealthy; lastErr may be nil.
func (m *Monitor) WatchNATS(name string, client *natsclient.Client, lastErr func() error) *Monitor {
	return m.Watch(name, func() Status {
		var ns *natsclient.Status
		if client != nil {
			ns = client.GetStatus()
		}
		var err error
		if lastErr != nil {
			err = lastErr()
		}
		return FromNATS(name, ns, err)
	})
}

// Check runs every check and returns the aggregate. Sub-statuses are ordered
// by component name.
func (m *Monitor) Check() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.checks))
	for name := range m.checks {
		names = append(names, name)
	}
	slices.Sort(names)

	subs := make([]Status, 0, len(names))
	for _, name := range names {
		st := m.checks[name]()
		st.Component = name
		if st.Timestamp.IsZero() {
			st.Timestamp = time.Now()
		}
		m.last[name] = st
		subs = append(subs, st)
	}
	return Aggregate(m.system, subs)
}

// Last returns the result of the most recent Check for name.
func (m *Monitor) Last(name string) (Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.last[name]
	return st, ok
}
