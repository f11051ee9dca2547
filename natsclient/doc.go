// Package natsclient manages the bridge's NATS connection.
//
// Client wraps a single *nats.Conn with a circuit breaker: after five failed
// connection attempts in a row the circuit opens and Connect returns
// ErrCircuitOpen without dialing until the backoff has elapsed. The backoff
// doubles per round up to a maximum.
//
//	client, err := natsclient.NewClient(url,
//	    natsclient.WithName("livebridge-sim"),
//	    natsclient.WithSlog(logger),
//	    natsclient.WithMetrics(registry))
//	if err := client.Connect(ctx); err != nil { ... }
//	defer client.Close(ctx)
//
// Publish is a core NATS publish into the connection's write buffer and never
// waits for the server, so it is safe on the per-frame path. KVStore wraps a
// JetStream key-value bucket with per-operation timeouts.
//
// NewTestClient starts a NATS server container through testcontainers for
// integration tests.
package natsclient
