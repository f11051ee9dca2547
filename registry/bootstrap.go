package registry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/livebridge/provider"
)

// Bootstrap runs the process environment setup exactly once, no matter how
// many registries or Initialize calls share it. The outcome, including a
// failure, is sticky for the life of the process.
type Bootstrap struct {
	once  sync.Once
	fn    func() error
	runs  atomic.Int32
	token provider.BootstrapToken
	err   error
}

// NewBootstrap wraps fn. A nil fn only issues the token.
func NewBootstrap(fn func() error) *Bootstrap {
	return &Bootstrap{fn: fn}
}

// Do runs the setup on first use and returns its token.
func (b *Bootstrap) Do() (provider.BootstrapToken, error) {
	b.once.Do(func() {
		b.runs.Add(1)
		if b.fn != nil {
			if err := b.fn(); err != nil {
				b.err = err
				return
			}
		}
		b.token = provider.IssueToken(time.Now())
	})
	return b.token, b.err
}

// Runs reports how many times the setup function ran: 0 or 1.
func (b *Bootstrap) Runs() int {
	return int(b.runs.Load())
}
