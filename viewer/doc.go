// Package viewer is the visualization side of the bridge.
//
// A Viewer subscribes to every provider under a subject prefix and folds the
// envelopes into a State: one Entry per live subject holding its schema,
// latest transform and values. On start it also reads the static KV bucket,
// so subjects registered before the viewer came up keep their property
// names.
//
// Frames are applied in sequence order per subject; an older or repeated
// sequence is ignored. A hello with a new source ID starts a new session and
// discards the provider's previous subjects, and goodbye discards them too.
//
// The HTTP handler serves the table as JSON and streams changes over a
// WebSocket: each client gets a "snapshot" message followed by one "event"
// message per applied envelope.
package viewer
