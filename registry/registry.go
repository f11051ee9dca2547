package registry

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/c360/livebridge/errors"
	"github.com/c360/livebridge/metric"
	"github.com/c360/livebridge/pkg/intern"
	"github.com/c360/livebridge/provider"
	"github.com/c360/livebridge/subject"
)

// Status is the connection state reported to callers.
type Status int

const (
	StatusNotInitialized Status = iota
	StatusNotConnected
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusNotInitialized:
		return "not_initialized"
	case StatusNotConnected:
		return "not_connected"
	case StatusConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Stats is a point-in-time summary of the registry.
type Stats struct {
	Status            Status `json:"status"`
	Provider          string `json:"provider,omitempty"`
	SourceID          string `json:"source_id,omitempty"`
	TransformSubjects int    `json:"transform_subjects"`
	DataSubjects      int    `json:"data_subjects"`
	CachedNames       int    `json:"cached_names"`
}

type key struct {
	kind subject.Kind
	name intern.Handle
}

type entry struct {
	seq          uint64
	name         string
	kind         subject.Kind
	schema       subject.Schema
	auto         bool
	registeredAt time.Time
	frames       uint64
	announced    bool
}

// Registry is the subject bridge. Create one per process with New.
type Registry struct {
	mu sync.Mutex

	logger        *slog.Logger
	factory       provider.Factory
	bootstrap     *Bootstrap
	metrics       *metric.BridgeMetrics
	onEvent       func(Event)
	names         *intern.Table
	throttle      *throttle
	retryInterval time.Duration
	sourceTimeout time.Duration
	now           func() time.Time

	initialized  bool
	providerName string
	token        provider.BootstrapToken
	source       provider.Source
	lastAttempt  time.Time
	nextSeq      uint64
	subjects     map[key]*entry
	counts       map[subject.Kind]int
	pending      []Event
}

// New creates a registry in the NotInitialized state.
func New(opts ...Option) *Registry {
	r := &Registry{
		logger:        slog.Default(),
		bootstrap:     NewBootstrap(nil),
		throttle:      newThrottle(DefaultLogEvery),
		retryInterval: DefaultSourceRetryInterval,
		sourceTimeout: DefaultSourceTimeout,
		now:           time.Now,
		subjects:      make(map[key]*entry),
		counts:        make(map[subject.Kind]int),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.names == nil {
		// cannot fail without metrics
		r.names, _ = intern.New()
	}
	r.logger = r.logger.With("component", "registry")
	return r
}

// InternName returns the canonical handle for a subject name.
func (r *Registry) InternName(name string) intern.Handle {
	return r.names.Intern(name)
}

func (r *Registry) lock() {
	r.mu.Lock()
}

// unlock releases the lock and then delivers the events recorded while it
// was held.
func (r *Registry) unlock() {
	events := r.pending
	r.pending = nil
	r.mu.Unlock()

	for _, e := range events {
		r.onEvent(e)
	}
}

func (r *Registry) record(e Event) {
	if r.onEvent == nil {
		return
	}
	e.At = r.now()
	e.Provider = r.providerName
	r.pending = append(r.pending, e)
}

// Initialize attaches a provider name and runs the process bootstrap on its
// first use. Calling it again while initialized succeeds without changing
// anything.
func (r *Registry) Initialize(providerName string) error {
	if providerName == "" {
		return errors.WrapInvalid(errors.ErrInvalidArgument, "Registry", "Initialize", "validate provider name")
	}

	r.lock()
	defer r.unlock()

	if r.initialized {
		if providerName != r.providerName {
			r.logger.Warn("Already initialized with a different provider, keeping it",
				"provider", r.providerName, "requested", providerName)
		} else {
			r.logger.Debug("Already initialized", "provider", providerName)
		}
		return nil
	}

	token, err := r.bootstrap.Do()
	if err != nil {
		r.logger.Error("Bootstrap failed", "provider", providerName, "error", err)
		return errors.WrapFatal(err, "Registry", "Initialize", "bootstrap")
	}

	r.initialized = true
	r.providerName = providerName
	r.token = token
	r.lastAttempt = time.Time{}

	r.logger.Info("Bridge initialized", "provider", providerName, "bootstrapped_at", token.At())
	return nil
}

// Shutdown clears every subject and the name cache, closes the source and
// returns to NotInitialized. It is a no-op when not initialized.
func (r *Registry) Shutdown() {
	r.lock()
	defer r.unlock()

	if !r.initialized {
		r.logger.Debug("Shutdown while not initialized")
		return
	}

	transforms, data := r.counts[subject.KindTransform], r.counts[subject.KindData]

	if r.source != nil {
		ctx, cancel := context.WithTimeout(context.Background(), r.sourceTimeout)
		if err := r.source.Close(ctx); err != nil {
			r.logger.Warn("Source close failed", "source_id", r.source.ID(), "error", err)
		}
		cancel()
		r.source = nil
		r.metrics.SourceEstablished(false)
	}

	clear(r.subjects)
	clear(r.counts)
	cached := r.names.Clear()
	r.metrics.SetSubjects(subject.KindTransform.String(), 0)
	r.metrics.SetSubjects(subject.KindData.String(), 0)

	r.record(Event{Type: EventShutdown})

	r.logger.Info("Bridge shut down",
		"provider", r.providerName,
		"transform_subjects", transforms,
		"data_subjects", data,
		"cached_names", cached)

	r.initialized = false
	r.providerName = ""
	r.token = provider.BootstrapToken{}
	r.lastAttempt = time.Time{}
}

// ConnectionStatus reports Connected only while initialized with an
// established source. It says nothing about remote subscribers.
func (r *Registry) ConnectionStatus() Status {
	r.lock()
	defer r.unlock()
	return r.statusLocked()
}

func (r *Registry) statusLocked() Status {
	switch {
	case !r.initialized:
		return StatusNotInitialized
	case r.source == nil:
		return StatusNotConnected
	default:
		return StatusConnected
	}
}

// Stats returns a summary for health reporting.
func (r *Registry) Stats() Stats {
	r.lock()
	defer r.unlock()

	s := Stats{
		Status:            r.statusLocked(),
		Provider:          r.providerName,
		TransformSubjects: r.counts[subject.KindTransform],
		DataSubjects:      r.counts[subject.KindData],
		CachedNames:       r.names.Len(),
	}
	if r.source != nil {
		s.SourceID = r.source.ID()
	}
	return s
}

// Len returns the number of tracked subjects of a kind.
func (r *Registry) Len(kind subject.Kind) int {
	r.lock()
	defer r.unlock()
	return r.counts[kind]
}

// Snapshot lists every tracked subject in registration order.
func (r *Registry) Snapshot() []subject.Info {
	r.lock()
	defer r.unlock()

	entries := r.sortedLocked()
	infos := make([]subject.Info, len(entries))
	for i, e := range entries {
		infos[i] = subject.Info{
			Name:           e.name,
			Kind:           e.kind,
			Properties:     slices.Clone(e.schema),
			AutoRegistered: e.auto,
			RegisteredAt:   e.registeredAt,
			Frames:         e.frames,
		}
	}
	return infos
}

func (r *Registry) sortedLocked() []*entry {
	entries := make([]*entry, 0, len(r.subjects))
	for _, e := range r.subjects {
		entries = append(entries, e)
	}
	slices.SortFunc(entries, func(a, b *entry) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})
	return entries
}

// RegisterTransformSubject registers a transform subject with no properties.
func (r *Registry) RegisterTransformSubject(name intern.Handle) error {
	return r.register("RegisterTransformSubject", subject.KindTransform, name, nil)
}

// RegisterTransformSubjectWithProperties registers a transform subject whose
// frames carry one float32 per property name.
func (r *Registry) RegisterTransformSubjectWithProperties(name intern.Handle, propertyNames []string) error {
	return r.register("RegisterTransformSubjectWithProperties", subject.KindTransform, name, subject.NewSchema(propertyNames))
}

// RegisterDataSubject registers a subject carrying only properties.
func (r *Registry) RegisterDataSubject(name intern.Handle, propertyNames []string) error {
	return r.register("RegisterDataSubject", subject.KindData, name, subject.NewSchema(propertyNames))
}

// UpdateTransformSubject publishes a pose. The subject is auto-registered
// without properties when unknown. Property counts are not checked.
func (r *Registry) UpdateTransformSubject(name intern.Handle, t subject.Transform) error {
	return r.update("UpdateTransformSubject", subject.KindTransform, name, &t, nil, nil, false)
}

// UpdateTransformSubjectWithProperties publishes a pose and property values.
// Values must match the schema's count.
func (r *Registry) UpdateTransformSubjectWithProperties(name intern.Handle, t subject.Transform, values []float32) error {
	return r.update("UpdateTransformSubjectWithProperties", subject.KindTransform, name, &t, nil, values, true)
}

// UpdateDataSubject publishes property values. When propertyNames is not nil
// it must equal the schema, in order.
func (r *Registry) UpdateDataSubject(name intern.Handle, propertyNames []string, values []float32) error {
	return r.update("UpdateDataSubject", subject.KindData, name, nil, propertyNames, values, true)
}

// RemoveTransformSubject stops tracking a transform subject. Unknown names
// are ignored.
func (r *Registry) RemoveTransformSubject(name intern.Handle) error {
	return r.remove("RemoveTransformSubject", subject.KindTransform, name)
}

// RemoveDataSubject stops tracking a data subject. Unknown names are
// ignored.
func (r *Registry) RemoveDataSubject(name intern.Handle) error {
	return r.remove("RemoveDataSubject", subject.KindData, name)
}

func (r *Registry) register(method string, kind subject.Kind, name intern.Handle, schema subject.Schema) error {
	r.lock()
	defer r.unlock()

	if !r.initialized {
		return r.notInitialized(method, name)
	}

	e, ok := r.subjects[key{kind, name}]
	if ok {
		if !e.schema.Equal(schema) {
			r.metrics.Conflict(kind.String())
			r.record(Event{Type: EventConflict, Kind: kind, Subject: e.name, Err: errors.ErrSchemaMismatch})
			r.logger.Warn("Registration conflicts with existing schema, ignored",
				"kind", kind, "subject", e.name,
				"registered", e.schema.Names(), "requested", schema.Names(),
				"auto_registered", e.auto)
			return errors.WrapInvalid(errors.ErrSchemaMismatch, "Registry", method, "register "+e.name)
		}
		r.logger.Debug("Subject already registered", "kind", kind, "subject", e.name)
	} else {
		e = r.trackLocked(kind, name, schema, false)
		r.logger.Info("Subject registered", "kind", kind, "subject", e.name, "properties", schema.Names())
	}

	r.ensureSourceLocked()
	r.announceLocked(e)
	return nil
}

func (r *Registry) update(
	method string, kind subject.Kind, name intern.Handle,
	t *subject.Transform, names []string, values []float32, checked bool,
) error {
	r.lock()
	defer r.unlock()

	if !r.initialized {
		r.metrics.FrameDropped(kind.String(), metric.DropNotInitialized)
		return r.notInitialized(method, name)
	}

	e, ok := r.subjects[key{kind, name}]
	if !ok {
		if names != nil && len(names) != len(values) {
			return r.reject(method, kind, name.Value(), metric.DropCountMismatch,
				subject.NewSchema(names).CheckCount(len(values)))
		}
		schema := subject.NewSchema(names)
		if names == nil {
			schema = subject.PositionalSchema(len(values))
		}
		e = r.trackLocked(kind, name, schema, true)
		r.metrics.AutoRegistered(kind.String())
		r.record(Event{Type: EventAutoRegistered, Kind: kind, Subject: e.name})
		r.logger.Info("Subject auto-registered", "kind", kind, "subject", e.name, "properties", schema.Names())

		r.ensureSourceLocked()
		r.announceLocked(e)
	}

	if checked {
		err := e.schema.CheckCount(len(values))
		if err == nil && names != nil {
			err = e.schema.CheckNames(names)
		}
		if err != nil {
			reason := metric.DropCountMismatch
			if errors.Is(err, errors.ErrSchemaMismatch) {
				reason = metric.DropSchemaMismatch
			}
			return r.reject(method, kind, e.name, reason, err)
		}
	}

	r.ensureSourceLocked()
	if r.source == nil {
		r.metrics.FrameDropped(kind.String(), metric.DropNoSource)
		if n, ok := r.throttle.allow(method, "no_source"); ok {
			r.logger.Warn("No source, frame dropped", "method", method, "subject", e.name, "count", n)
		}
		return errors.ErrNoSource
	}

	start := time.Now()
	err := r.source.PublishFrame(context.Background(), provider.Frame{
		Kind:      kind,
		Name:      e.name,
		Transform: t,
		Values:    values,
	})
	if err != nil {
		r.metrics.FrameDropped(kind.String(), metric.DropPublishError)
		if n, ok := r.throttle.allow(method, "publish_error"); ok {
			r.logger.Warn("Frame publish failed", "method", method, "subject", e.name, "count", n, "error", err)
		}
		return errors.WrapTransient(err, "Registry", method, "publish frame")
	}
	r.metrics.FramePublished(kind.String(), time.Since(start))
	e.frames++

	if n, ok := r.throttle.allow(method, "published"); ok {
		attrs := []any{"subject", e.name, "count", n, "values", len(values)}
		if t != nil {
			attrs = append(attrs, "position", t.Translation)
		}
		r.logger.Debug(method, attrs...)
	}
	return nil
}

func (r *Registry) remove(method string, kind subject.Kind, name intern.Handle) error {
	r.lock()
	defer r.unlock()

	if !r.initialized {
		return r.notInitialized(method, name)
	}

	k := key{kind, name}
	e, ok := r.subjects[k]
	if !ok {
		r.logger.Debug("Subject not found, nothing to remove", "kind", kind, "subject", name.Value())
		return nil
	}

	delete(r.subjects, k)
	r.counts[kind]--
	r.metrics.SetSubjects(kind.String(), r.counts[kind])

	if r.source != nil {
		if err := r.source.PublishRemoved(context.Background(), kind, e.name); err != nil {
			r.logger.Warn("Removal publish failed", "kind", kind, "subject", e.name, "error", err)
		}
	}
	r.record(Event{Type: EventRemoved, Kind: kind, Subject: e.name})
	r.logger.Info("Subject removed", "kind", kind, "subject", e.name, "frames", e.frames)
	return nil
}

func (r *Registry) notInitialized(method string, name intern.Handle) error {
	if n, ok := r.throttle.allow(method, "not_initialized"); ok {
		r.logger.Warn("Not initialized, ignoring call", "method", method, "subject", name.Value(), "count", n)
	}
	return errors.ErrNotInitialized
}

func (r *Registry) reject(method string, kind subject.Kind, name, reason string, err error) error {
	r.metrics.FrameDropped(kind.String(), reason)
	r.record(Event{Type: EventRejected, Kind: kind, Subject: name, Reason: reason, Err: err})
	if n, ok := r.throttle.allow(method, reason); ok {
		r.logger.Error("Update rejected", "method", method, "subject", name, "reason", reason, "count", n, "error", err)
	}
	return errors.WrapInvalid(err, "Registry", method, "validate "+name)
}

func (r *Registry) trackLocked(kind subject.Kind, name intern.Handle, schema subject.Schema, auto bool) *entry {
	r.nextSeq++
	e := &entry{
		seq:          r.nextSeq,
		name:         name.Value(),
		kind:         kind,
		schema:       schema,
		auto:         auto,
		registeredAt: r.now(),
	}
	r.subjects[key{kind, name}] = e
	r.counts[kind]++
	r.metrics.SetSubjects(kind.String(), r.counts[kind])
	return e
}

// ensureSourceLocked creates the source unless one exists or the last
// attempt was less than the retry interval ago. On success every tracked
// subject is announced in registration order.
func (r *Registry) ensureSourceLocked() {
	if r.source != nil {
		return
	}
	now := r.now()
	if !r.lastAttempt.IsZero() && now.Sub(r.lastAttempt) < r.retryInterval {
		return
	}
	r.lastAttempt = now

	var (
		src provider.Source
		err error
	)
	if r.factory == nil {
		err = errors.Wrap(errors.ErrNoSource, "Registry", "ensureSource", "find source factory")
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), r.sourceTimeout)
		src, err = r.factory.NewSource(ctx, r.token, r.providerName)
		cancel()
	}
	if err != nil {
		r.metrics.SourceFailed()
		r.record(Event{Type: EventSourceFailed, Err: err})
		r.logger.Error("Failed to establish source, subjects stay local",
			"provider", r.providerName, "retry_after", r.retryInterval, "error", err)
		return
	}

	r.source = src
	r.metrics.SourceEstablished(true)
	r.record(Event{Type: EventSourceUp})
	r.logger.Info("Source established", "provider", r.providerName, "source_id", src.ID())

	for _, e := range r.sortedLocked() {
		r.announceLocked(e)
	}
}

// announceLocked publishes static data once per subject and source.
func (r *Registry) announceLocked(e *entry) {
	if r.source == nil || e.announced {
		return
	}
	if err := r.source.PublishStatic(context.Background(), e.kind, e.name, e.schema); err != nil {
		r.logger.Warn("Static data publish failed", "kind", e.kind, "subject", e.name, "error", err)
		return
	}
	e.announced = true
}
