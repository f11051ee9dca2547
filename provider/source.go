package provider

import (
	"context"
	"time"

	"github.com/c360/livebridge/subject"
)

// Source is the publishing channel of one bridge session. The registry calls
// it under its own lock, so implementations need not serialize calls, but the
// publish methods must not block on the network.
type Source interface {
	// ID is unique per established source.
	ID() string
	PublishStatic(ctx context.Context, kind subject.Kind, name string, props subject.Schema) error
	PublishFrame(ctx context.Context, f Frame) error
	PublishRemoved(ctx context.Context, kind subject.Kind, name string) error
	// Close announces the end of the session and releases the source.
	Close(ctx context.Context) error
}

// BootstrapToken proves that the one-time process bootstrap has run. Source
// factories refuse a zero token.
type BootstrapToken struct {
	at time.Time
}

// IssueToken records a completed bootstrap.
func IssueToken(at time.Time) BootstrapToken {
	return BootstrapToken{at: at}
}

// Valid reports whether the token was issued.
func (t BootstrapToken) Valid() bool {
	return !t.at.IsZero()
}

// At returns when the bootstrap completed.
func (t BootstrapToken) At() time.Time {
	return t.at
}

// Factory creates sources.
type Factory interface {
	NewSource(ctx context.Context, token BootstrapToken, providerName string) (Source, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(ctx context.Context, token BootstrapToken, providerName string) (Source, error)

// NewSource calls f.
func (f FactoryFunc) NewSource(ctx context.Context, token BootstrapToken, providerName string) (Source, error) {
	return f(ctx, token, providerName)
}
