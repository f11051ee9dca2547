package provider

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/livebridge/errors"
	"github.com/c360/livebridge/natsclient"
	"github.com/c360/livebridge/pkg/retry"
	"github.com/c360/livebridge/pkg/timestamp"
	"github.com/c360/livebridge/subject"
)

// Publisher is the fire-and-forget publish used by NATSSource.
// *natsclient.Client implements it.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// StaticStore keeps the current static envelope of every live subject.
// *natsclient.KVStore implements it.
type StaticStore interface {
	Put(ctx context.Context, key string, value []byte) (uint64, error)
	Delete(ctx context.Context, key string) error
	DeleteAll(ctx context.Context, filter string) (int, error)
}

const (
	kvQueueSize = 256
	kvOpTimeout = 2 * time.Second

	// how long one source attempt waits on an in-flight reconnect
	reconnectGrace = 500 * time.Millisecond
)

type kvOp struct {
	key   string
	value []byte
	purge bool
}

// SourceConfig configures a NATSSource.
type SourceConfig struct {
	// Prefix is the first subject token. Empty selects DefaultPrefix.
	Prefix string
	// Store, when set, mirrors static data for late subscribers.
	Store  StaticStore
	Logger *slog.Logger
}

// NATSSource publishes envelopes on NATS core subjects. Static store writes
// go through a single background worker so the caller never waits on a
// JetStream acknowledgement.
type NATSSource struct {
	id       string
	provider string
	subjects Subjects
	pub      Publisher
	store    StaticStore
	clock    *timestamp.Clock
	logger   *slog.Logger

	kvMu    sync.Mutex
	kvOps   chan kvOp
	kvDone  chan struct{}
	kvDrops atomic.Uint64
	closed  atomic.Bool
}

// NewNATSSource creates a source with a fresh ID. Nothing is published until
// Open.
func NewNATSSource(pub Publisher, providerName string, cfg SourceConfig) *NATSSource {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &NATSSource{
		id:       uuid.NewString(),
		provider: providerName,
		subjects: NewSubjects(cfg.Prefix, providerName),
		pub:      pub,
		store:    cfg.Store,
		clock:    timestamp.NewClock(),
	}
	s.logger = logger.With("component", "provider", "source_id", s.id)

	if s.store != nil {
		s.kvOps = make(chan kvOp, kvQueueSize)
		s.kvDone = make(chan struct{})
		go s.runKV()
	}
	return s
}

// ID returns the source ID.
func (s *NATSSource) ID() string { return s.id }

// Subjects returns the subject layout the source publishes on.
func (s *NATSSource) Subjects() Subjects { return s.subjects }

// KVDrops returns the number of static store writes dropped on a full queue.
func (s *NATSSource) KVDrops() uint64 { return s.kvDrops.Load() }

// Open announces the source with a hello envelope.
func (s *NATSSource) Open(ctx context.Context) error {
	env := s.envelope(EventHello)
	return s.publish(ctx, "Open", s.subjects.Source(), &env)
}

// PublishStatic publishes the schema of a subject and records it in the
// static store.
func (s *NATSSource) PublishStatic(ctx context.Context, kind subject.Kind, name string, props subject.Schema) error {
	if s.closed.Load() {
		return errors.ErrNoSource
	}
	env := s.envelope(EventStatic)
	env.Kind = kind
	env.Subject = name
	env.Properties = props

	data, err := env.Marshal()
	if err != nil {
		return err
	}
	if err := s.send(ctx, "PublishStatic", s.subjects.Event(EventStatic, kind, name), data); err != nil {
		return err
	}
	s.enqueue(kvOp{key: KVKey(kind, name), value: data})
	return nil
}

// PublishFrame publishes one update stamped with the next sequence number.
func (s *NATSSource) PublishFrame(ctx context.Context, f Frame) error {
	if s.closed.Load() {
		return errors.ErrNoSource
	}
	seq, ms := s.clock.Stamp()
	env := Envelope{
		Type:      EventFrame,
		SourceID:  s.id,
		Provider:  s.provider,
		Kind:      f.Kind,
		Subject:   f.Name,
		Seq:       seq,
		Timestamp: ms,
		Transform: f.Transform,
		Values:    f.Values,
	}
	return s.publish(ctx, "PublishFrame", s.subjects.Event(EventFrame, f.Kind, f.Name), &env)
}

// PublishRemoved announces a removal and drops the subject from the static
// store.
func (s *NATSSource) PublishRemoved(ctx context.Context, kind subject.Kind, name string) error {
	if s.closed.Load() {
		return errors.ErrNoSource
	}
	env := s.envelope(EventRemoved)
	env.Kind = kind
	env.Subject = name
	if err := s.publish(ctx, "PublishRemoved", s.subjects.Event(EventRemoved, kind, name), &env); err != nil {
		return err
	}
	s.enqueue(kvOp{key: KVKey(kind, name)})
	return nil
}

// Close publishes goodbye, purges the static store and waits for pending
// store writes until ctx is done. Only the first call has effect.
func (s *NATSSource) Close(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	var errs []error
	env := s.envelope(EventGoodbye)
	if err := s.publish(ctx, "Close", s.subjects.Source(), &env); err != nil {
		errs = append(errs, err)
	}

	if s.store != nil {
		s.kvMu.Lock()
		select {
		case s.kvOps <- kvOp{purge: true}:
		default:
			s.kvDrops.Add(1)
			s.logger.Warn("Static store queue full, purge skipped")
		}
		close(s.kvOps)
		s.kvOps = nil
		s.kvMu.Unlock()

		select {
		case <-s.kvDone:
		case <-ctx.Done():
			errs = append(errs, errors.Wrap(ctx.Err(), "NATSSource", "Close", "wait for static store"))
		}
	}

	s.logger.Debug("Source closed", "frames", s.clock.Last(), "kv_drops", s.kvDrops.Load())
	return errors.Join(errs...)
}

func (s *NATSSource) envelope(t EventType) Envelope {
	return Envelope{
		Type:      t,
		SourceID:  s.id,
		Provider:  s.provider,
		Timestamp: timestamp.Now(),
	}
}

func (s *NATSSource) publish(ctx context.Context, method, subj string, env *Envelope) error {
	data, err := env.Marshal()
	if err != nil {
		return err
	}
	return s.send(ctx, method, subj, data)
}

func (s *NATSSource) send(ctx context.Context, method, subj string, data []byte) error {
	if err := s.pub.Publish(ctx, subj, data); err != nil {
		return errors.WrapTransient(err, "NATSSource", method, "publish "+subj)
	}
	return nil
}

func (s *NATSSource) enqueue(op kvOp) {
	if s.store == nil {
		return
	}
	s.kvMu.Lock()
	defer s.kvMu.Unlock()
	if s.kvOps == nil {
		return
	}
	select {
	case s.kvOps <- op:
	default:
		s.kvDrops.Add(1)
		s.logger.Warn("Static store queue full, dropping update", "key", op.key)
	}
}

func (s *NATSSource) runKV() {
	defer close(s.kvDone)

	for op := range s.kvOps {
		ctx, cancel := context.WithTimeout(context.Background(), kvOpTimeout)
		var err error
		switch {
		case op.purge:
			var n int
			n, err = s.store.DeleteAll(ctx, "")
			if err == nil {
				s.logger.Debug("Static store purged", "keys", n)
			}
		case op.value == nil:
			err = s.store.Delete(ctx, op.key)
		default:
			_, err = s.store.Put(ctx, op.key, op.value)
		}
		cancel()

		if err != nil {
			s.logger.Warn("Static store update failed", "key", op.key, "purge", op.purge, "error", err)
		}
	}
}

// NATSFactory creates NATSSources on a shared client, connecting it first
// when needed.
type NATSFactory struct {
	client *natsclient.Client
	prefix string
	bucket string
	retry  retry.Config
	logger *slog.Logger
}

// FactoryOption configures a NATSFactory.
type FactoryOption func(*NATSFactory)

// WithPrefix sets the subject prefix.
func WithPrefix(prefix string) FactoryOption {
	return func(f *NATSFactory) { f.prefix = prefix }
}

// WithStaticBucket mirrors static data into the named KV bucket.
func WithStaticBucket(bucket string) FactoryOption {
	return func(f *NATSFactory) { f.bucket = bucket }
}

// WithConnectRetry sets the retry policy used while connecting.
func WithConnectRetry(cfg retry.Config) FactoryOption {
	return func(f *NATSFactory) { f.retry = cfg }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) FactoryOption {
	return func(f *NATSFactory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewNATSFactory returns a factory publishing through client.
func NewNATSFactory(client *natsclient.Client, opts ...FactoryOption) *NATSFactory {
	f := &NATSFactory{
		client: client,
		prefix: DefaultPrefix,
		retry:  retry.Quick(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewSource connects the client if needed, opens the static bucket when one
// is configured and publishes hello. A missing bucket is logged and the
// source runs without one.
func (f *NATSFactory) NewSource(ctx context.Context, token BootstrapToken, providerName string) (Source, error) {
	if !token.Valid() {
		return nil, errors.WrapInvalid(errors.ErrNotInitialized, "NATSFactory", "NewSource", "check bootstrap token")
	}

	if err := f.ensureConnected(ctx); err != nil {
		return nil, err
	}

	cfg := SourceConfig{Prefix: f.prefix, Logger: f.logger}
	if f.bucket != "" {
		store, err := f.staticStore(ctx)
		if err != nil {
			f.logger.Warn("Static bucket unavailable, late subscribers will miss schemas",
				"component", "provider", "bucket", f.bucket, "error", err)
		} else {
			cfg.Store = store
		}
	}

	src := NewNATSSource(f.client, providerName, cfg)
	if err := src.Open(ctx); err != nil {
		_ = src.Close(ctx)
		return nil, err
	}

	f.logger.Info("Source established",
		"component", "provider", "provider", providerName, "source_id", src.ID(), "static_bucket", cfg.Store != nil)
	return src, nil
}

func (f *NATSFactory) ensureConnected(ctx context.Context) error {
	err := retry.Do(ctx, f.retry, func() error {
		switch f.client.Status() {
		case natsclient.StatusConnected:
			return nil
		case natsclient.StatusReconnecting:
			// the nats.go reconnect loop owns the connection
			wctx, cancel := context.WithTimeout(ctx, reconnectGrace)
			defer cancel()
			if err := f.client.WaitForConnection(wctx, 20*time.Millisecond); err != nil {
				return errors.Wrap(errors.ErrConnectionLost, "NATSFactory", "NewSource", "wait for reconnect")
			}
			return nil
		}
		return f.client.Connect(ctx)
	})
	if err != nil {
		return errors.WrapTransient(err, "NATSFactory", "NewSource", "connect to "+f.client.URL())
	}
	return nil
}

func (f *NATSFactory) staticStore(ctx context.Context) (*natsclient.KVStore, error) {
	bucket, err := f.client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket:      f.bucket,
		Description: "livebridge static subject data",
		History:     1,
	})
	if err != nil {
		return nil, err
	}
	return f.client.NewKVStore(bucket), nil
}
