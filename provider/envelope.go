package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/c360/livebridge/errors"
	"github.com/c360/livebridge/subject"
)

// DefaultPrefix is the first subject token used when none is configured.
const DefaultPrefix = "livebridge"

// DefaultStaticBucket is the KV bucket mirroring static subject data.
const DefaultStaticBucket = "LIVEBRIDGE_STATIC"

// EventType identifies an envelope.
type EventType string

const (
	EventStatic  EventType = "static"
	EventFrame   EventType = "frame"
	EventRemoved EventType = "removed"
	EventHello   EventType = "hello"
	EventGoodbye EventType = "goodbye"
)

// Envelope is the JSON document published for every event.
type Envelope struct {
	Type       EventType          `json:"type"`
	SourceID   string             `json:"source_id"`
	Provider   string             `json:"provider"`
	Kind       subject.Kind       `json:"kind,omitempty"`
	Subject    string             `json:"subject,omitempty"`
	Seq        uint64             `json:"seq,omitempty"`
	Timestamp  int64              `json:"timestamp"`
	Properties subject.Schema     `json:"properties,omitempty"`
	Transform  *subject.Transform `json:"transform,omitempty"`
	Values     []float32          `json:"values,omitempty"`
}

// Marshal encodes the envelope.
func (e *Envelope) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Envelope", "Marshal", "encode "+string(e.Type))
	}
	return data, nil
}

// DecodeEnvelope parses an envelope and checks that its type is known.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, errors.WrapInvalid(err, "Envelope", "Decode", "parse json")
	}
	switch e.Type {
	case EventStatic, EventFrame, EventRemoved, EventHello, EventGoodbye:
	default:
		return nil, errors.WrapInvalid(
			fmt.Errorf("unknown envelope type %q", e.Type), "Envelope", "Decode", "check type")
	}
	return &e, nil
}

// Frame is one update handed to a Source.
type Frame struct {
	Kind      subject.Kind
	Name      string
	Transform *subject.Transform
	Values    []float32
}

// Subjects builds NATS subjects for one provider.
type Subjects struct {
	prefix   string
	provider string
}

// NewSubjects returns the subject layout for provider under prefix. An empty
// prefix selects DefaultPrefix.
func NewSubjects(prefix, provider string) Subjects {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Subjects{prefix: prefix, provider: subject.Token(provider)}
}

// Event returns the subject for an event about one subject.
func (s Subjects) Event(ev EventType, kind subject.Kind, name string) string {
	return s.prefix + "." + s.provider + "." + string(ev) + "." + kind.String() + "." + subject.Token(name)
}

// Source returns the subject carrying hello and goodbye.
func (s Subjects) Source() string {
	return s.prefix + "." + s.provider + ".source"
}

// All matches every event of every provider under prefix.
func All(prefix string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + ".>"
}

// KVKey returns the static bucket key for a subject.
func KVKey(kind subject.Kind, name string) string {
	return kind.String() + "." + subject.Token(name)
}

// ParseKVKey is the inverse of KVKey.
func ParseKVKey(key string) (subject.Kind, string, error) {
	kindStr, tok, ok := strings.Cut(key, ".")
	if !ok {
		return 0, "", errors.WrapInvalid(errors.ErrInvalidArgument, "Subjects", "ParseKVKey", "split "+key)
	}
	kind, err := subject.ParseKind(kindStr)
	if err != nil {
		return 0, "", err
	}
	name, err := subject.ParseToken(tok)
	if err != nil {
		return 0, "", err
	}
	return kind, name, nil
}
