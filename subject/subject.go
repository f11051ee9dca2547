// Package subject defines the data model shared by the registry, the
// publishing source and the viewer: subject kinds, property schemas and the
// engine-side transform.
package subject

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/c360/livebridge/errors"
	"github.com/c360/livebridge/wire"
)

// Kind distinguishes subjects carrying a pose from those carrying only
// scalar properties. Names are unique within a kind.
type Kind uint8

const (
	KindTransform Kind = iota + 1
	KindData
)

func (k Kind) String() string {
	switch k {
	case KindTransform:
		return "transform"
	case KindData:
		return "data"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "transform":
		return KindTransform, nil
	case "data":
		return KindData, nil
	}
	return 0, fmt.Errorf("unknown subject kind %q: %w", s, errors.ErrInvalidArgument)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ValueType is the type of a property value. Only float32 is carried today.
type ValueType string

const ValueFloat32 ValueType = "float32"

// Property describes one value in a subject's frame.
type Property struct {
	Name string    `json:"name"`
	Type ValueType `json:"type"`
}

// Schema is the ordered property list captured at registration.
type Schema []Property

// NewSchema builds a float32 schema from property names.
func NewSchema(names []string) Schema {
	if len(names) == 0 {
		return nil
	}
	s := make(Schema, len(names))
	for i, n := range names {
		s[i] = Property{Name: n, Type: ValueFloat32}
	}
	return s
}

// PositionalSchema names n properties Property0 .. Property<n-1>.
func PositionalSchema(n int) Schema {
	if n <= 0 {
		return nil
	}
	s := make(Schema, n)
	for i := range s {
		s[i] = Property{Name: "Property" + strconv.Itoa(i), Type: ValueFloat32}
	}
	return s
}

// Names returns the property names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, p := range s {
		names[i] = p.Name
	}
	return names
}

// Equal reports whether both schemas list the same properties in order.
func (s Schema) Equal(o Schema) bool {
	return slices.Equal(s, o)
}

// CheckCount returns ErrPropertyCountMismatch unless n values fit the schema.
func (s Schema) CheckCount(n int) error {
	if n != len(s) {
		return fmt.Errorf("got %d values, schema declares %d: %w", n, len(s), errors.ErrPropertyCountMismatch)
	}
	return nil
}

// CheckNames validates names against the schema, count first and then order.
func (s Schema) CheckNames(names []string) error {
	if err := s.CheckCount(len(names)); err != nil {
		return err
	}
	for i, n := range names {
		if s[i].Name != n {
			return fmt.Errorf("property %d is %q, schema declares %q: %w", i, n, s[i].Name, errors.ErrSchemaMismatch)
		}
	}
	return nil
}

// Info is a point-in-time view of one registered subject.
type Info struct {
	Name           string    `json:"name"`
	Kind           Kind      `json:"kind"`
	Properties     Schema    `json:"properties"`
	AutoRegistered bool      `json:"auto_registered"`
	RegisteredAt   time.Time `json:"registered_at"`
	Frames         uint64    `json:"frames"`
}

// Transform is a pose in the engine's native representation.
type Transform struct {
	Translation [3]float64 `json:"position"`
	Rotation    Quat       `json:"rotation"`
	Scale       [3]float64 `json:"scale"`
}

// Quat is a rotation quaternion.
type Quat struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// FromWire reinterprets a wire transform. No normalization is applied.
func FromWire(t wire.Transform) Transform {
	return Transform{
		Translation: t.Position,
		Rotation:    Quat{X: t.Rotation[0], Y: t.Rotation[1], Z: t.Rotation[2], W: t.Rotation[3]},
		Scale:       t.Scale,
	}
}

// Wire is the inverse of FromWire.
func (t Transform) Wire() wire.Transform {
	return wire.Transform{
		Position: t.Translation,
		Rotation: [4]float64{t.Rotation.X, t.Rotation.Y, t.Rotation.Z, t.Rotation.W},
		Scale:    t.Scale,
	}
}

// IdentityTransform is the origin with no rotation and unit scale.
func IdentityTransform() Transform {
	return FromWire(wire.Identity())
}
