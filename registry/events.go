package registry

import (
	"time"

	"github.com/c360/livebridge/subject"
)

// EventType names a lifecycle transition reported to the event hook.
type EventType string

const (
	// EventAutoRegistered: an update created the subject.
	EventAutoRegistered EventType = "auto_registered"
	// EventConflict: a registration disagreed with the existing schema and
	// was ignored.
	EventConflict EventType = "registration_conflict"
	// EventRejected: an update did not fit the schema and was dropped.
	EventRejected     EventType = "update_rejected"
	EventRemoved      EventType = "removed"
	EventSourceUp     EventType = "source_established"
	EventSourceFailed EventType = "source_failed"
	EventShutdown     EventType = "shutdown"
)

// Event describes one observable transition. Events are delivered on the
// calling goroutine after the registry lock has been released, in the order
// they happened within the call.
type Event struct {
	Type     EventType
	Kind     subject.Kind
	Subject  string
	Provider string
	// Reason is a metric drop reason for EventRejected.
	Reason string
	Err    error
	At     time.Time
}
