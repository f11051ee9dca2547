// Package updater is the simulation-side wrapper around one bridge subject.
//
// An Object remembers how its subject was first used and refuses calls from a
// different family with errors.ErrModeMismatch, before anything reaches the
// bridge. Poses are converted with package coord; property values are copied
// into a buffer owned by the Object and reused across frames.
package updater

import (
	"fmt"

	"github.com/c360/livebridge/coord"
	"github.com/c360/livebridge/errors"
	"github.com/c360/livebridge/ffi"
	"github.com/c360/livebridge/wire"
)

// Bridge is the call surface an Object drives. *ffi.Surface implements it.
type Bridge interface {
	RegisterObject(name *string) ffi.ReturnCode
	RegisterObjectWithProperties(name *string, propertyNames []*string, count int32) ffi.ReturnCode
	UpdateObject(name *string, t *wire.Transform) ffi.ReturnCode
	UpdateObjectWithProperties(name *string, t *wire.Transform, values []float32, count int32) ffi.ReturnCode
	RemoveObject(name *string) ffi.ReturnCode
	RegisterDataSubject(name *string, propertyNames []*string, count int32) ffi.ReturnCode
	UpdateDataSubject(name *string, propertyNames []*string, values []float32, count int32) ffi.ReturnCode
	RemoveDataSubject(name *string) ffi.ReturnCode
}

// Mode is the call family an Object is bound to.
type Mode int

const (
	ModeUnregistered Mode = iota
	ModeTransform
	ModeTransformWithProperties
	ModeData
)

func (m Mode) String() string {
	switch m {
	case ModeUnregistered:
		return "unregistered"
	case ModeTransform:
		return "transform"
	case ModeTransformWithProperties:
		return "transform_with_properties"
	case ModeData:
		return "data"
	default:
		return "unknown"
	}
}

// Object wraps one subject name. It is not safe for concurrent use; the
// simulation drives each entity from one goroutine.
type Object struct {
	bridge Bridge
	name   string
	mode   Mode
	names  []*string
	values []float32
	wire   wire.Transform
}

// New returns an unregistered object.
func New(bridge Bridge, name string) *Object {
	return &Object{bridge: bridge, name: name}
}

// Name returns the subject name.
func (o *Object) Name() string { return o.name }

// Mode returns the bound call family.
func (o *Object) Mode() Mode { return o.mode }

// PropertyNames returns the names given at registration.
func (o *Object) PropertyNames() []string {
	out := make([]string, len(o.names))
	for i, p := range o.names {
		out[i] = *p
	}
	return out
}

// bind moves an unregistered object into want, or checks that it is
// already there.
func (o *Object) bind(method string, want Mode) error {
	switch o.mode {
	case want:
		return nil
	case ModeUnregistered:
		o.mode = want
		return nil
	}
	return fmt.Errorf("object %q is bound to %s, %s called: %w", o.name, o.mode, method, errors.ErrModeMismatch)
}

func (o *Object) setNames(names []string) {
	o.names = make([]*string, len(names))
	for i := range names {
		n := names[i]
		o.names[i] = &n
	}
}

// fill converts values into the reused buffer.
func (o *Object) fill(values []float64) []float32 {
	if cap(o.values) < len(values) {
		o.values = make([]float32, len(values))
	}
	o.values = o.values[:len(values)]
	for i, v := range values {
		o.values[i] = float32(v)
	}
	return o.values
}

// Register registers the subject as a bare transform.
func (o *Object) Register() error {
	if err := o.bind("Register", ModeTransform); err != nil {
		return err
	}
	return o.bridge.RegisterObject(&o.name).Err()
}

// RegisterWithProperties registers a transform subject carrying properties.
func (o *Object) RegisterWithProperties(names []string) error {
	if err := o.bind("RegisterWithProperties", ModeTransformWithProperties); err != nil {
		return err
	}
	o.setNames(names)
	return o.bridge.RegisterObjectWithProperties(&o.name, o.names, int32(len(o.names))).Err()
}

// RegisterData registers a properties-only subject.
func (o *Object) RegisterData(names []string) error {
	if err := o.bind("RegisterData", ModeData); err != nil {
		return err
	}
	o.setNames(names)
	return o.bridge.RegisterDataSubject(&o.name, o.names, int32(len(o.names))).Err()
}

// UpdateTransform publishes a pose in simulation coordinates.
func (o *Object) UpdateTransform(pose coord.Pose) error {
	if err := o.bind("UpdateTransform", ModeTransform); err != nil {
		return err
	}
	o.wire = coord.ToWire(pose)
	return o.bridge.UpdateObject(&o.name, &o.wire).Err()
}

// UpdateTransformWithProperties publishes a pose and property values.
func (o *Object) UpdateTransformWithProperties(pose coord.Pose, values []float64) error {
	if err := o.bind("UpdateTransformWithProperties", ModeTransformWithProperties); err != nil {
		return err
	}
	o.wire = coord.ToWire(pose)
	buf := o.fill(values)
	return o.bridge.UpdateObjectWithProperties(&o.name, &o.wire, buf, int32(len(buf))).Err()
}

// UpdateData publishes property values. Names given at registration are sent
// along so the bridge checks their order.
func (o *Object) UpdateData(values []float64) error {
	if err := o.bind("UpdateData", ModeData); err != nil {
		return err
	}
	buf := o.fill(values)
	var names []*string
	if len(o.names) == len(buf) && len(buf) > 0 {
		names = o.names
	}
	return o.bridge.UpdateDataSubject(&o.name, names, buf, int32(len(buf))).Err()
}

// Remove removes the subject and returns the object to unregistered.
// Removing an unregistered object does nothing.
func (o *Object) Remove() error {
	var code ffi.ReturnCode
	switch o.mode {
	case ModeUnregistered:
		return nil
	case ModeData:
		code = o.bridge.RemoveDataSubject(&o.name)
	default:
		code = o.bridge.RemoveObject(&o.name)
	}
	o.mode = ModeUnregistered
	o.names = nil
	return code.Err()
}
