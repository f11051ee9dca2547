package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/livebridge/config"
	"github.com/c360/livebridge/ffi"
	"github.com/c360/livebridge/health"
	"github.com/c360/livebridge/provider"
	"github.com/c360/livebridge/registry"
)

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Provider = "sim"
	cfg.Bridge.LogEvery = 1
	return cfg
}

func ptr(s string) *string { return &s }

func TestNew_NilConfig(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestNew_RecorderRoundTrip(t *testing.T) {
	factory := provider.NewRecorderFactory()
	var events []registry.EventType

	rt, err := New(testConfig(),
		WithFactory(factory),
		WithLogWriter(io.Discard),
		WithEventHook(func(e registry.Event) { events = append(events, e.Type) }),
	)
	require.NoError(t, err)
	defer rt.Close(context.Background())

	assert.Nil(t, rt.Client, "no NATS client when a factory is supplied")
	assert.Empty(t, rt.MetricsAddress())

	s := rt.Surface
	assert.Equal(t, ffi.ReturnNotInitialized, s.IsConnected())
	require.Equal(t, ffi.ReturnOK, s.Initialize(ptr("sim")))
	require.Equal(t, ffi.ReturnOK, s.RegisterObject(ptr("Forklift_01")))
	assert.Equal(t, ffi.ReturnOK, s.IsConnected())

	rec := factory.Last()
	require.NotNil(t, rec)
	assert.Equal(t, 1, rec.Count(provider.EventStatic))
	assert.Contains(t, events, registry.EventSourceUp)

	st := rt.Health()
	assert.True(t, st.IsHealthy(), st.Message)
}

func TestNew_LogsToWriter(t *testing.T) {
	var buf bytes.Buffer
	cfg := testConfig()
	cfg.Log.Format = "json"

	rt, err := New(cfg, WithFactory(provider.NewRecorderFactory()), WithLogWriter(&buf), WithServiceName("sim-test"))
	require.NoError(t, err)

	require.NoError(t, rt.Close(context.Background()))
	assert.Contains(t, buf.String(), `"service":"sim-test"`)
	assert.Contains(t, buf.String(), "Runtime stopped")
}

func TestNew_MetricsServer(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Port = 0

	rt, err := New(cfg, WithFactory(provider.NewRecorderFactory()), WithLogWriter(io.Discard))
	require.NoError(t, err)
	defer rt.Close(context.Background())

	addr := rt.MetricsAddress()
	require.NotEmpty(t, addr)
	base := strings.TrimSuffix(addr, cfg.Metrics.Path)

	// not initialized yet
	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	require.Equal(t, ffi.ReturnOK, rt.Surface.Initialize(ptr("sim")))
	require.Equal(t, ffi.ReturnOK, rt.Surface.RegisterObject(ptr("Forklift_01")))

	resp, err = http.Get(base + "/health")
	require.NoError(t, err)
	var st health.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, st.Healthy)

	resp, err = http.Get(addr)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "livebridge_bridge_subjects")
}

func TestNew_NATSClientUnconnected(t *testing.T) {
	rt, err := New(testConfig(), WithLogWriter(io.Discard))
	require.NoError(t, err)

	require.NotNil(t, rt.Client)
	st := rt.Health()
	assert.False(t, st.IsHealthy())

	require.NoError(t, rt.Close(context.Background()))
	require.NoError(t, rt.Close(context.Background()), "second close is a no-op")
}
