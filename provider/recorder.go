package provider

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/c360/livebridge/errors"
	"github.com/c360/livebridge/pkg/timestamp"
	"github.com/c360/livebridge/subject"
)

// Recorder is an in-memory Source. Envelopes are copied on record so callers
// may reuse their buffers.
type Recorder struct {
	mu       sync.Mutex
	id       string
	provider string
	clock    *timestamp.Clock
	events   []Envelope
	closed   bool
	failWith error
}

// NewRecorder returns an open recorder that has recorded hello.
func NewRecorder(providerName string) *Recorder {
	r := &Recorder{
		id:       uuid.NewString(),
		provider: providerName,
		clock:    timestamp.NewClock(),
	}
	r.events = append(r.events, r.envelope(EventHello))
	return r
}

// ID returns the source ID.
func (r *Recorder) ID() string { return r.id }

// FailWith makes every later publish return err. nil restores success.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failWith = err
}

func (r *Recorder) envelope(t EventType) Envelope {
	return Envelope{Type: t, SourceID: r.id, Provider: r.provider, Timestamp: timestamp.Now()}
}

func (r *Recorder) check() error {
	if r.closed {
		return errors.ErrNoSource
	}
	return r.failWith
}

// PublishStatic records a static envelope.
func (r *Recorder) PublishStatic(_ context.Context, kind subject.Kind, name string, props subject.Schema) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(); err != nil {
		return err
	}
	env := r.envelope(EventStatic)
	env.Kind = kind
	env.Subject = name
	env.Properties = slices.Clone(props)
	r.events = append(r.events, env)
	return nil
}

// PublishFrame records a frame envelope.
func (r *Recorder) PublishFrame(_ context.Context, f Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(); err != nil {
		return err
	}
	seq, ms := r.clock.Stamp()
	env := Envelope{
		Type:      EventFrame,
		SourceID:  r.id,
		Provider:  r.provider,
		Kind:      f.Kind,
		Subject:   f.Name,
		Seq:       seq,
		Timestamp: ms,
		Values:    slices.Clone(f.Values),
	}
	if f.Transform != nil {
		t := *f.Transform
		env.Transform = &t
	}
	r.events = append(r.events, env)
	return nil
}

// PublishRemoved records a removal envelope.
func (r *Recorder) PublishRemoved(_ context.Context, kind subject.Kind, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(); err != nil {
		return err
	}
	env := r.envelope(EventRemoved)
	env.Kind = kind
	env.Subject = name
	r.events = append(r.events, env)
	return nil
}

// Close records goodbye. Only the first call has effect.
func (r *Recorder) Close(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.events = append(r.events, r.envelope(EventGoodbye))
	return nil
}

// Closed reports whether Close was called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// Count returns how many envelopes of type t were recorded.
func (r *Recorder) Count(t EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// Filter returns the envelopes of type t about one subject.
func (r *Recorder) Filter(t EventType, name string) []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Envelope
	for _, e := range r.events {
		if e.Type == t && e.Subject == name {
			out = append(out, e)
		}
	}
	return out
}

// RecorderFactory creates Recorders and can be told to fail.
type RecorderFactory struct {
	mu      sync.Mutex
	sources []*Recorder
	calls   int
	failN   int
	failErr error
	tokens  []BootstrapToken
}

// NewRecorderFactory returns a factory that succeeds until told otherwise.
func NewRecorderFactory() *RecorderFactory {
	return &RecorderFactory{}
}

// FailNext makes the next n NewSource calls return err.
func (f *RecorderFactory) FailNext(n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		err = errors.ErrConnectionLost
	}
	f.failN = n
	f.failErr = err
}

// NewSource returns a new Recorder unless a failure is pending.
func (f *RecorderFactory) NewSource(_ context.Context, token BootstrapToken, providerName string) (Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.tokens = append(f.tokens, token)
	if !token.Valid() {
		return nil, errors.WrapInvalid(errors.ErrNotInitialized, "RecorderFactory", "NewSource", "check bootstrap token")
	}
	if f.failN > 0 {
		f.failN--
		return nil, errors.WrapTransient(f.failErr, "RecorderFactory", "NewSource", "establish source")
	}

	r := NewRecorder(providerName)
	f.sources = append(f.sources, r)
	return r, nil
}

// Calls returns the number of NewSource calls.
func (f *RecorderFactory) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Sources returns every recorder created so far.
func (f *RecorderFactory) Sources() []*Recorder {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.sources)
}

// Last returns the most recent recorder, nil if none.
func (f *RecorderFactory) Last() *Recorder {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sources) == 0 {
		return nil
	}
	return f.sources[len(f.sources)-1]
}

// Tokens returns the bootstrap tokens passed to NewSource.
func (f *RecorderFactory) Tokens() []BootstrapToken {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.tokens)
}
