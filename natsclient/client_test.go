package natsclient

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/livebridge/errors"
	"github.com/c360/livebridge/metric"
)

func TestNewClient(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	assert.Equal(t, "nats://localhost:4222", client.URL())
	assert.Equal(t, StatusDisconnected, client.Status())
	assert.False(t, client.IsHealthy())
}

func TestNewClient_InvalidOption(t *testing.T) {
	_, err := NewClient("nats://localhost:4222", WithTimeout(0))
	assert.True(t, errors.IsInvalid(err))
}

func TestConnectionStatus_String(t *testing.T) {
	assert.Equal(t, "disconnected", StatusDisconnected.String())
	assert.Equal(t, "connecting", StatusConnecting.String())
	assert.Equal(t, "connected", StatusConnected.String())
	assert.Equal(t, "reconnecting", StatusReconnecting.String())
	assert.Equal(t, "circuit_open", StatusCircuitOpen.String())
	assert.Equal(t, "unknown", ConnectionStatus(99).String())
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	client, err := NewClient("nats://invalid:4222")
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		client.recordFailure()
	}
	assert.NotEqual(t, StatusCircuitOpen, client.Status())

	client.recordFailure()
	assert.Equal(t, StatusCircuitOpen, client.Status())
	assert.Equal(t, int32(5), client.Failures())

	err = client.Connect(context.Background())
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.True(t, errors.IsTransient(err))
}

func TestCircuitBreaker_Reset(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		client.recordFailure()
	}
	require.Equal(t, StatusCircuitOpen, client.Status())

	client.resetCircuit()
	assert.Equal(t, int32(0), client.Failures())
	assert.Equal(t, StatusDisconnected, client.Status())
	assert.Equal(t, time.Second, client.Backoff())
}

func TestCircuitBreaker_ExponentialBackoff(t *testing.T) {
	client, err := NewClient("nats://localhost:4222", WithMaxBackoff(4*time.Second))
	require.NoError(t, err)

	assert.Equal(t, time.Second, client.Backoff())

	for i := 0; i < 5; i++ {
		client.recordFailure()
	}
	assert.Equal(t, 2*time.Second, client.Backoff())

	for i := 0; i < 5; i++ {
		client.recordFailure()
	}
	assert.Equal(t, 4*time.Second, client.Backoff())

	for i := 0; i < 5; i++ {
		client.recordFailure()
	}
	assert.Equal(t, 4*time.Second, client.Backoff(), "capped at max backoff")
}

func TestCircuitBreaker_HalfOpensAfterBackoff(t *testing.T) {
	client, err := NewClient("nats://localhost:4222", WithCircuitBreakerThreshold(1))
	require.NoError(t, err)

	client.recordFailure()
	require.Equal(t, StatusCircuitOpen, client.Status())

	client.testCircuit()
	assert.Equal(t, StatusDisconnected, client.Status())
}

func TestCircuitBreaker_Metrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	client, err := NewClient("nats://localhost:4222", WithMetrics(registry), WithCircuitBreakerThreshold(1))
	require.NoError(t, err)

	client.recordFailure()
	assert.Equal(t, 1.0, testutil.ToFloat64(registry.CoreMetrics().NATSCircuitBreaker))

	client.resetCircuit()
	assert.Equal(t, 0.0, testutil.ToFloat64(registry.CoreMetrics().NATSCircuitBreaker))
}

func TestConcurrentFailures(t *testing.T) {
	client, err := NewClient("nats://localhost:4222", WithCircuitBreakerThreshold(1000))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				client.recordFailure()
				_ = client.Status()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(500), client.Failures())
}

func TestNotConnected(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, client.Publish(ctx, "livebridge.test", []byte("x")), ErrNotConnected)
	assert.ErrorIs(t, client.Subscribe(ctx, "livebridge.>", func(context.Context, []byte) {}), ErrNotConnected)
	assert.ErrorIs(t, client.Flush(ctx), ErrNotConnected)
	_, err = client.RTT()
	assert.ErrorIs(t, err, ErrNotConnected)
	_, err = client.GetKeyValueBucket(ctx, "x")
	assert.ErrorIs(t, err, ErrNotConnected)
	_, err = client.JetStream()
	assert.Error(t, err)
}

func TestWaitForConnection_Timeout(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err = client.WaitForConnection(ctx, 5*time.Millisecond)
	assert.ErrorIs(t, err, errors.ErrConnectionTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitForConnection_Closed(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)
	require.NoError(t, client.Close(context.Background()))

	err = client.WaitForConnection(context.Background(), time.Millisecond)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.True(t, errors.IsInvalid(err))
}

func TestClose_Idempotent(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	assert.NoError(t, client.Close(context.Background()))
	assert.NoError(t, client.Close(context.Background()))
	assert.Error(t, client.Connect(context.Background()))
}
