package viewer

import (
	"cmp"
	"maps"
	"slices"
	"sync"

	"github.com/c360/livebridge/provider"
	"github.com/c360/livebridge/subject"
)

// Entry is the latest known state of one subject.
type Entry struct {
	Provider   string             `json:"provider"`
	SourceID   string             `json:"source_id"`
	Kind       subject.Kind       `json:"kind"`
	Name       string             `json:"name"`
	Properties subject.Schema     `json:"properties,omitempty"`
	Transform  *subject.Transform `json:"transform,omitempty"`
	Values     []float32          `json:"values,omitempty"`
	Seq        uint64             `json:"seq"`
	Frames     uint64             `json:"frames"`
	UpdatedAt  int64              `json:"updated_at"`
}

type stateKey struct {
	provider string
	kind     subject.Kind
	name     string
}

// State is the viewer's table of live subjects, keyed by provider, kind and
// name. Each provider has at most one live source; events from any other
// source are stale and ignored, except hello, which starts a new session.
type State struct {
	mu      sync.RWMutex
	entries map[stateKey]*Entry
	sources map[string]string
}

// NewState returns an empty table.
func NewState() *State {
	return &State{
		entries: make(map[stateKey]*Entry),
		sources: make(map[string]string),
	}
}

// Apply folds one envelope into the table and reports whether anything
// changed.
func (s *State) Apply(env *provider.Envelope) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	live, known := s.sources[env.Provider]

	switch env.Type {
	case provider.EventHello:
		if known && live == env.SourceID {
			return false
		}
		s.dropProvider(env.Provider)
		s.sources[env.Provider] = env.SourceID
		return true

	case provider.EventGoodbye:
		if known && live != env.SourceID {
			return false
		}
		s.dropProvider(env.Provider)
		delete(s.sources, env.Provider)
		return true
	}

	if known && live != env.SourceID {
		return false
	}
	s.sources[env.Provider] = env.SourceID

	k := stateKey{provider: env.Provider, kind: env.Kind, name: env.Subject}
	e := s.entries[k]

	switch env.Type {
	case provider.EventStatic:
		if e == nil {
			e = s.add(k, env)
		}
		e.Properties = env.Properties
		if len(e.Values) != len(env.Properties) {
			e.Values = nil
		}
		e.UpdatedAt = env.Timestamp
		return true

	case provider.EventFrame:
		if e == nil {
			e = s.add(k, env)
		} else if env.Seq <= e.Seq {
			return false
		}
		e.Seq = env.Seq
		e.Frames++
		e.UpdatedAt = env.Timestamp
		if env.Transform != nil {
			t := *env.Transform
			e.Transform = &t
		}
		if env.Values != nil {
			e.Values = append(e.Values[:0], env.Values...)
		}
		return true

	case provider.EventRemoved:
		if e == nil {
			return false
		}
		delete(s.entries, k)
		return true
	}
	return false
}

func (s *State) add(k stateKey, env *provider.Envelope) *Entry {
	e := &Entry{
		Provider: env.Provider,
		SourceID: env.SourceID,
		Kind:     env.Kind,
		Name:     env.Subject,
	}
	s.entries[k] = e
	return e
}

func (s *State) dropProvider(p string) {
	for k := range s.entries {
		if k.provider == p {
			delete(s.entries, k)
		}
	}
}

// Get returns a copy of one entry.
func (s *State) Get(providerName string, kind subject.Kind, name string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[stateKey{provider: providerName, kind: kind, name: name}]
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

// Len returns the number of live subjects.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Sources returns the live source ID of every provider.
func (s *State) Sources() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.sources)
}

// Snapshot copies the table ordered by provider, kind and name.
func (s *State) Snapshot() []Entry {
	s.mu.RLock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.clone())
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b Entry) int {
		return cmp.Or(
			cmp.Compare(a.Provider, b.Provider),
			cmp.Compare(a.Kind, b.Kind),
			cmp.Compare(a.Name, b.Name),
		)
	})
	return out
}

func (e *Entry) clone() Entry {
	c := *e
	c.Properties = slices.Clone(e.Properties)
	c.Values = slices.Clone(e.Values)
	if e.Transform != nil {
		t := *e.Transform
		c.Transform = &t
	}
	return c
}
