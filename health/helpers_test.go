package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	before := time.Now()

	h := NewHealthy("bridge", "publishing")
	d := NewDegraded("bridge", "no source")
	u := NewUnhealthy("bridge", "not initialized")

	assert.True(t, h.Healthy)
	assert.True(t, h.IsHealthy())
	assert.False(t, d.Healthy)
	assert.True(t, d.IsDegraded())
	assert.False(t, u.Healthy)
	assert.True(t, u.IsUnhealthy())

	for _, s := range []Status{h, d, u} {
		assert.Equal(t, "bridge", s.Component)
		assert.False(t, s.Timestamp.Before(before))
	}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name string
		subs []Status
		want string
	}{
		{"empty", nil, "healthy"},
		{"all healthy", []Status{NewHealthy("nats", ""), NewHealthy("bridge", "")}, "healthy"},
		{"one degraded", []Status{NewHealthy("nats", ""), NewDegraded("bridge", "")}, "degraded"},
		{"unhealthy wins", []Status{NewDegraded("nats", ""), NewUnhealthy("bridge", "")}, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate("livebridge", tt.subs)
			assert.Equal(t, "livebridge", got.Component)
			assert.Equal(t, tt.want, got.Status)
			assert.Len(t, got.SubStatuses, len(tt.subs))
		})
	}
}

func TestAggregate_DoesNotModifyInput(t *testing.T) {
	subs := []Status{NewHealthy("nats", ""), NewDegraded("bridge", "")}

	got := Aggregate("livebridge", subs)
	require.Len(t, got.SubStatuses, 2)

	got.SubStatuses[0].Status = "unhealthy"
	assert.Equal(t, "healthy", subs[0].Status)
}
