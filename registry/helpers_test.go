package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/c360/livebridge/provider"
)

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) hook(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) ofType(t EventType) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, e := range l.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	reg     *Registry
	factory *provider.RecorderFactory
	events  *eventLog
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		factory: provider.NewRecorderFactory(),
		events:  &eventLog{},
	}
	all := append([]Option{
		WithFactory(f.factory),
		WithEventHook(f.events.hook),
		WithLogEvery(1),
	}, opts...)
	f.reg = New(all...)
	return f
}

func (f *fixture) initialized(t *testing.T) *fixture {
	t.Helper()
	require.NoError(t, f.reg.Initialize("sim"))
	return f
}

func (f *fixture) source(t *testing.T) *provider.Recorder {
	t.Helper()
	src := f.factory.Last()
	require.NotNil(t, src, "no source was established")
	return src
}
