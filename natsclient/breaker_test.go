package natsclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreaker_OpensOnceAndEscalates(t *testing.T) {
	b := newBreaker(2, time.Second, 4*time.Second)
	now := time.Unix(100, 0)

	assert.Zero(t, b.fail(now))
	assert.Equal(t, time.Second, b.fail(now), "second failure opens with the initial backoff")
	assert.Equal(t, 2*time.Second, b.currentBackoff())

	assert.Zero(t, b.fail(now))
	assert.Zero(t, b.fail(now), "already open: no second timer")
	assert.Equal(t, 4*time.Second, b.currentBackoff())

	b.fail(now)
	b.fail(now)
	assert.Equal(t, 4*time.Second, b.currentBackoff(), "capped")
	assert.Equal(t, int32(6), b.failures())
	assert.Equal(t, now, b.lastFailure())
}

func TestBreaker_HalfOpenThenReopen(t *testing.T) {
	b := newBreaker(1, time.Second, time.Minute)

	assert.Equal(t, time.Second, b.fail(time.Now()))
	assert.True(t, b.halfOpen())
	assert.False(t, b.halfOpen(), "already half-open")

	assert.Equal(t, 2*time.Second, b.fail(time.Now()), "reopens with the doubled backoff")
}

func TestBreaker_Reset(t *testing.T) {
	b := newBreaker(1, time.Second, time.Minute)
	b.fail(time.Now())
	b.fail(time.Now())

	b.reset()
	assert.Zero(t, b.failures())
	assert.Equal(t, time.Second, b.currentBackoff())
	assert.True(t, b.lastFailure().IsZero())
	assert.False(t, b.halfOpen())
}
