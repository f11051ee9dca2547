package viewer

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/c360/livebridge/errors"
	"github.com/c360/livebridge/natsclient"
	"github.com/c360/livebridge/provider"
	"github.com/c360/livebridge/subject"
)

// Viewer subscribes to every provider under a prefix and keeps a table of
// live subjects for HTTP and WebSocket clients.
type Viewer struct {
	client  *natsclient.Client
	prefix  string
	bucket  string
	wsPath  string
	logger  *slog.Logger
	metrics *Metrics

	state *State
	hub   *Hub
}

// Option configures a Viewer.
type Option func(*Viewer)

// WithPrefix sets the subject prefix.
func WithPrefix(prefix string) Option {
	return func(v *Viewer) { v.prefix = prefix }
}

// WithStaticBucket loads current static data from the named KV bucket on
// start. An empty name disables it.
func WithStaticBucket(bucket string) Option {
	return func(v *Viewer) { v.bucket = bucket }
}

// WithWSPath sets the WebSocket endpoint path.
func WithWSPath(path string) Option {
	return func(v *Viewer) {
		if path != "" {
			v.wsPath = path
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Viewer) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithMetrics records viewer metrics.
func WithMetrics(m *Metrics) Option {
	return func(v *Viewer) { v.metrics = m }
}

// New returns a viewer reading through client. client may be nil when
// envelopes are fed with HandleMessage directly.
func New(client *natsclient.Client, opts ...Option) *Viewer {
	v := &Viewer{
		client: client,
		prefix: provider.DefaultPrefix,
		bucket: provider.DefaultStaticBucket,
		wsPath: "/ws",
		logger: slog.Default(),
		state:  NewState(),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = v.logger.With("component", "viewer")
	v.hub = NewHub(func() any { return v.state.Snapshot() }, v.logger, v.metrics)
	return v
}

// State returns the subject table.
func (v *Viewer) State() *State { return v.state }

// Hub returns the WebSocket hub.
func (v *Viewer) Hub() *Hub { return v.hub }

// Start subscribes, then loads the static bucket so a subject registered
// before the viewer came up still has its schema. The hub's ping loop runs
// until ctx is done.
func (v *Viewer) Start(ctx context.Context) error {
	if v.client == nil {
		return errors.WrapFatal(errors.ErrNoConnection, "Viewer", "Start", "check client")
	}

	subj := provider.All(v.prefix)
	if err := v.client.Subscribe(ctx, subj, v.HandleMessage); err != nil {
		return errors.Wrap(err, "Viewer", "Start", "subscribe "+subj)
	}
	v.logger.Info("Viewer subscribed", "subject", subj)

	if v.bucket != "" {
		n, err := v.LoadStatic(ctx)
		if err != nil {
			v.logger.Warn("Static bucket not loaded, schemas arrive with the next registration",
				"bucket", v.bucket, "error", err)
		} else {
			v.logger.Info("Static bucket loaded", "bucket", v.bucket, "subjects", n)
		}
	}

	go v.hub.Run(ctx)
	return nil
}

// LoadStatic applies every static envelope found in the bucket and returns
// how many changed the table.
func (v *Viewer) LoadStatic(ctx context.Context) (int, error) {
	bucket, err := v.client.GetKeyValueBucket(ctx, v.bucket)
	if err != nil {
		return 0, err
	}
	kv := v.client.NewKVStore(bucket)

	keys, err := kv.Keys(ctx, "")
	if err != nil {
		return 0, errors.Wrap(err, "Viewer", "LoadStatic", "list keys")
	}

	applied := 0
	for _, key := range keys {
		entry, err := kv.Get(ctx, key)
		if err != nil {
			if errors.Is(err, natsclient.ErrKVKeyNotFound) {
				continue
			}
			return applied, errors.Wrap(err, "Viewer", "LoadStatic", "get "+key)
		}
		env, err := provider.DecodeEnvelope(entry.Value)
		if err != nil || env.Type != provider.EventStatic {
			v.logger.Warn("Skipping unexpected static entry", "key", key, "error", err)
			continue
		}
		if v.apply(env) {
			applied++
		}
	}
	return applied, nil
}

// HandleMessage decodes one NATS message, applies it and broadcasts it when
// the table changed.
func (v *Viewer) HandleMessage(_ context.Context, data []byte) {
	env, err := provider.DecodeEnvelope(data)
	if err != nil {
		v.metrics.decodeError()
		v.logger.Debug("Ignoring message", "error", err)
		return
	}
	if v.apply(env) {
		v.hub.Broadcast(MessageEvent, env)
	}
}

func (v *Viewer) apply(env *provider.Envelope) bool {
	changed := v.state.Apply(env)
	v.metrics.received(string(env.Type), changed, v.state.Len())
	return changed
}

// Handler serves:
//
//	GET /subjects                          every live subject
//	GET /subjects/{provider}/{kind}/{name} one subject
//	GET /sources                           live source per provider
//	<ws path>                              WebSocket stream
func (v *Viewer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /subjects", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, v.state.Snapshot())
	})
	mux.HandleFunc("GET /subjects/{provider}/{kind}/{name}", func(w http.ResponseWriter, r *http.Request) {
		kind, err := subject.ParseKind(r.PathValue("kind"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		e, ok := v.state.Get(r.PathValue("provider"), kind, r.PathValue("name"))
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "subject not found"})
			return
		}
		writeJSON(w, http.StatusOK, e)
	})
	mux.HandleFunc("GET /sources", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, v.state.Sources())
	})
	mux.Handle(v.wsPath, v.hub)
	return mux
}

// Close disconnects WebSocket clients. The NATS client is owned by the
// caller.
func (v *Viewer) Close() {
	v.hub.Close()
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
