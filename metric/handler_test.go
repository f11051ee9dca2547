package metric

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServer_ServesMetricsAndHealth(t *testing.T) {
	registry := NewMetricsRegistry()
	registry.CoreMetrics().RecordNATSStatus(true)

	server := NewServer(0, "", registry)
	require.NoError(t, server.Start())
	t.Cleanup(func() { _ = server.Stop() })

	url := server.Address()
	assert.True(t, strings.HasSuffix(url, "/metrics"))

	code, body := get(t, url)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "livebridge_nats_connected 1")

	code, body = get(t, strings.TrimSuffix(url, "/metrics")+"/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", body)
}

func TestServer_CustomHealthHandler(t *testing.T) {
	registry := NewMetricsRegistry()
	server := NewServer(0, "/m", registry, WithHealthHandler(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"healthy":false}`))
		})))
	require.NoError(t, server.Start())
	t.Cleanup(func() { _ = server.Stop() })

	code, body := get(t, strings.TrimSuffix(server.Address(), "/m")+"/health")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body, `"healthy":false`)
}

func TestServer_StartTwiceAndStop(t *testing.T) {
	server := NewServer(0, "", NewMetricsRegistry())
	require.NoError(t, server.Start())
	assert.Error(t, server.Start())
	assert.NoError(t, server.Stop())
	assert.NoError(t, server.Stop())
}

func TestServer_NilRegistry(t *testing.T) {
	assert.Error(t, NewServer(0, "", nil).Start())
}
