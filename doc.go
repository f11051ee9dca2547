// Package livebridge streams entity poses and property values from a
// simulation to a live visualization over NATS.
//
// # Architecture
//
// The simulation calls a small C API (cmd/livebridge-native, built with
// -buildmode=c-shared). Each call passes through three layers:
//
//	ffi       validates C-shaped arguments, interns the subject name,
//	          turns errors and panics into return codes
//	registry  one mutex, subject table, schema checks, lazy source
//	provider  publishes static data, frames and removals
//
// Poses are converted from the simulation's convention (right-handed, Y up,
// meters, Euler degrees) to the engine's (left-handed, Z up, centimeters,
// quaternion) by package coord before the call, and cross the boundary as the
// fixed 80-byte wire.Transform.
//
// # Subjects
//
// A subject is a named entity of one kind:
//
//	transform  pose, optionally with float properties
//	data       float properties only
//
// Property names are fixed at registration. Updates with a different value
// count are dropped. Updating an unknown name registers it.
//
// # Transport
//
// Events are JSON envelopes on NATS core subjects:
//
//	<prefix>.<provider>.<event>.<kind>.<name token>
//	<prefix>.<provider>.source                        hello and goodbye
//
// The current static data of every live subject is also kept in a JetStream
// key-value bucket so a viewer that starts late can recover schemas.
//
// # Packages
//
//	bridge      composition root: config to runtime
//	config      JSON/YAML files layered over defaults, LIVEBRIDGE_* overrides
//	coord       coordinate conversion
//	errors      classified errors and bridge sentinels
//	ffi         call surface and return codes
//	health      health status from bridge and NATS state
//	metric      Prometheus registry, bridge metrics, metrics server
//	natsclient  NATS connection, circuit breaker, KV
//	provider    NATS source and in-memory recorder
//	registry    subject registry
//	subject     kinds, schemas, transforms
//	updater     per-subject wrapper for simulation code
//	viewer      current-state table with HTTP and WebSocket fan-out
//	wire        80-byte transform layout
//
// # Commands
//
//	livebridge-native  C shared library
//	livebridge-sim     publishes a simulated fleet, --dry-run needs no server
//	livebridge-viewer  serves the live state of every provider
package livebridge
