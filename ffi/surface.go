package ffi

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"

	"github.com/c360/livebridge/errors"
	"github.com/c360/livebridge/pkg/intern"
	"github.com/c360/livebridge/registry"
	"github.com/c360/livebridge/subject"
	"github.com/c360/livebridge/wire"
)

// Registry is the part of *registry.Registry the surface drives.
type Registry interface {
	Initialize(providerName string) error
	Shutdown()
	ConnectionStatus() registry.Status
	InternName(name string) intern.Handle

	RegisterTransformSubject(name intern.Handle) error
	RegisterTransformSubjectWithProperties(name intern.Handle, propertyNames []string) error
	UpdateTransformSubject(name intern.Handle, t subject.Transform) error
	UpdateTransformSubjectWithProperties(name intern.Handle, t subject.Transform, values []float32) error
	RemoveTransformSubject(name intern.Handle) error

	RegisterDataSubject(name intern.Handle, propertyNames []string) error
	UpdateDataSubject(name intern.Handle, propertyNames []string, values []float32) error
	RemoveDataSubject(name intern.Handle) error
}

// Surface validates C-shaped arguments and delegates to a Registry.
type Surface struct {
	reg      Registry
	logger   *slog.Logger
	logEvery uint64
	rejected atomic.Uint64
	panics   atomic.Uint64
}

// Option configures a Surface.
type Option func(*Surface)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Surface) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLogEvery logs rejected calls once every n. n <= 1 logs all.
func WithLogEvery(n int) Option {
	return func(s *Surface) {
		if n < 1 {
			n = 1
		}
		s.logEvery = uint64(n)
	}
}

// New returns a surface over reg.
func New(reg Registry, opts ...Option) *Surface {
	s := &Surface{
		reg:      reg,
		logger:   slog.Default(),
		logEvery: registry.DefaultLogEvery,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "ffi")
	return s
}

// Rejected returns how many calls failed validation.
func (s *Surface) Rejected() uint64 { return s.rejected.Load() }

// Panics returns how many panics were recovered.
func (s *Surface) Panics() uint64 { return s.panics.Load() }

// guard turns a panic into ReturnError. It must be deferred directly.
func (s *Surface) guard(op string, code *ReturnCode) {
	if r := recover(); r != nil {
		s.panics.Add(1)
		s.logger.Error("Recovered panic at bridge boundary", "op", op, "panic", r, "stack", string(debug.Stack()))
		*code = ReturnError
	}
}

func (s *Surface) reject(op string, err error) ReturnCode {
	n := s.rejected.Add(1)
	if s.logEvery <= 1 || n%s.logEvery == 1 {
		s.logger.Warn("Rejected call", "op", op, "rejected", n, "error", err)
	}
	return ReturnError
}

func invalid(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, errors.ErrInvalidArgument)...)
}

func (s *Surface) name(op string, p *string) (intern.Handle, bool) {
	if p == nil {
		s.reject(op, invalid("null subject name"))
		return intern.Handle{}, false
	}
	return s.reg.InternName(*p), true
}

// names converts a C string array. A NULL entry becomes an empty name.
func names(arr []*string, count int32) ([]string, error) {
	if count < 0 {
		return nil, invalid("negative count %d", count)
	}
	if count == 0 {
		return nil, nil
	}
	if arr == nil {
		return nil, invalid("null name array with count %d", count)
	}
	if len(arr) < int(count) {
		return nil, invalid("name array holds %d entries, count is %d", len(arr), count)
	}
	out := make([]string, count)
	for i, p := range arr[:count] {
		if p != nil {
			out[i] = *p
		}
	}
	return out, nil
}

func values(arr []float32, count int32) ([]float32, error) {
	if count < 0 {
		return nil, invalid("negative count %d", count)
	}
	if count == 0 {
		return nil, nil
	}
	if arr == nil {
		return nil, invalid("null value array with count %d", count)
	}
	if len(arr) < int(count) {
		return nil, invalid("value array holds %d entries, count is %d", len(arr), count)
	}
	return arr[:count], nil
}

func transform(t *wire.Transform) (subject.Transform, error) {
	if t == nil {
		return subject.Transform{}, invalid("null transform")
	}
	return subject.FromWire(*t), nil
}

// Initialize attaches the provider name. NULL and empty names are rejected.
func (s *Surface) Initialize(providerName *string) (code ReturnCode) {
	defer s.guard("Initialize", &code)

	if providerName == nil || *providerName == "" {
		return s.reject("Initialize", invalid("provider name is null or empty"))
	}
	if err := s.reg.Initialize(*providerName); err != nil {
		s.logger.Error("Initialize failed", "provider", *providerName, "error", err)
		return ReturnError
	}
	return ReturnOK
}

// Shutdown tears the bridge down. It never fails.
func (s *Surface) Shutdown() (code ReturnCode) {
	defer s.guard("Shutdown", &code)
	s.reg.Shutdown()
	return ReturnOK
}

// GetVersion returns APIVersion.
func (s *Surface) GetVersion() int32 {
	return APIVersion
}

// IsConnected returns ReturnOK when a source is established.
func (s *Surface) IsConnected() (code ReturnCode) {
	defer s.guard("IsConnected", &code)

	switch s.reg.ConnectionStatus() {
	case registry.StatusConnected:
		return ReturnOK
	case registry.StatusNotConnected:
		return ReturnNotConnected
	default:
		return ReturnNotInitialized
	}
}

// RegisterObject registers a transform subject without properties.
func (s *Surface) RegisterObject(name *string) (code ReturnCode) {
	const op = "RegisterObject"
	defer s.guard(op, &code)

	h, ok := s.name(op, name)
	if !ok {
		return ReturnError
	}
	return codeFor(s.reg.RegisterTransformSubject(h))
}

// RegisterObjectWithProperties registers a transform subject with property
// names.
func (s *Surface) RegisterObjectWithProperties(name *string, propertyNames []*string, count int32) (code ReturnCode) {
	const op = "RegisterObjectWithProperties"
	defer s.guard(op, &code)

	h, ok := s.name(op, name)
	if !ok {
		return ReturnError
	}
	props, err := names(propertyNames, count)
	if err != nil {
		return s.reject(op, err)
	}
	return codeFor(s.reg.RegisterTransformSubjectWithProperties(h, props))
}

// UpdateObject publishes a transform.
func (s *Surface) UpdateObject(name *string, t *wire.Transform) (code ReturnCode) {
	const op = "UpdateObject"
	defer s.guard(op, &code)

	h, ok := s.name(op, name)
	if !ok {
		return ReturnError
	}
	tr, err := transform(t)
	if err != nil {
		return s.reject(op, err)
	}
	return codeFor(s.reg.UpdateTransformSubject(h, tr))
}

// UpdateObjectWithProperties publishes a transform with property values.
func (s *Surface) UpdateObjectWithProperties(name *string, t *wire.Transform, propertyValues []float32, count int32) (code ReturnCode) {
	const op = "UpdateObjectWithProperties"
	defer s.guard(op, &code)

	h, ok := s.name(op, name)
	if !ok {
		return ReturnError
	}
	tr, err := transform(t)
	if err != nil {
		return s.reject(op, err)
	}
	vals, err := values(propertyValues, count)
	if err != nil {
		return s.reject(op, err)
	}
	return codeFor(s.reg.UpdateTransformSubjectWithProperties(h, tr, vals))
}

// RemoveObject removes a transform subject.
func (s *Surface) RemoveObject(name *string) (code ReturnCode) {
	const op = "RemoveObject"
	defer s.guard(op, &code)

	h, ok := s.name(op, name)
	if !ok {
		return ReturnError
	}
	return codeFor(s.reg.RemoveTransformSubject(h))
}

// RegisterDataSubject registers a properties-only subject.
func (s *Surface) RegisterDataSubject(name *string, propertyNames []*string, count int32) (code ReturnCode) {
	const op = "RegisterDataSubject"
	defer s.guard(op, &code)

	h, ok := s.name(op, name)
	if !ok {
		return ReturnError
	}
	props, err := names(propertyNames, count)
	if err != nil {
		return s.reject(op, err)
	}
	return codeFor(s.reg.RegisterDataSubject(h, props))
}

// UpdateDataSubject publishes property values. propertyNames may be nil;
// when present it holds count names validated against the schema.
func (s *Surface) UpdateDataSubject(name *string, propertyNames []*string, propertyValues []float32, count int32) (code ReturnCode) {
	const op = "UpdateDataSubject"
	defer s.guard(op, &code)

	h, ok := s.name(op, name)
	if !ok {
		return ReturnError
	}
	vals, err := values(propertyValues, count)
	if err != nil {
		return s.reject(op, err)
	}
	var props []string
	if propertyNames != nil {
		if props, err = names(propertyNames, count); err != nil {
			return s.reject(op, err)
		}
		if props == nil {
			props = []string{}
		}
	}
	return codeFor(s.reg.UpdateDataSubject(h, props, vals))
}

// RemoveDataSubject removes a data subject.
func (s *Surface) RemoveDataSubject(name *string) (code ReturnCode) {
	const op = "RemoveDataSubject"
	defer s.guard(op, &code)

	h, ok := s.name(op, name)
	if !ok {
		return ReturnError
	}
	return codeFor(s.reg.RemoveDataSubject(h))
}
