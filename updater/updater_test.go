package updater

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/livebridge/coord"
	"github.com/c360/livebridge/errors"
	"github.com/c360/livebridge/ffi"
	"github.com/c360/livebridge/provider"
	"github.com/c360/livebridge/registry"
	"github.com/c360/livebridge/subject"
	"github.com/c360/livebridge/wire"
)

type call struct {
	method string
	name   string
	names  []string
	values []float32
	wire   *wire.Transform
}

type fakeBridge struct {
	calls []call
	code  ffi.ReturnCode
}

func deref(ps []*string) []string {
	if ps == nil {
		return nil
	}
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = *p
	}
	return out
}

func (b *fakeBridge) add(c call) ffi.ReturnCode {
	b.calls = append(b.calls, c)
	return b.code
}

func (b *fakeBridge) RegisterObject(name *string) ffi.ReturnCode {
	return b.add(call{method: "RegisterObject", name: *name})
}

func (b *fakeBridge) RegisterObjectWithProperties(name *string, names []*string, count int32) ffi.ReturnCode {
	return b.add(call{method: "RegisterObjectWithProperties", name: *name, names: deref(names[:count])})
}

func (b *fakeBridge) UpdateObject(name *string, t *wire.Transform) ffi.ReturnCode {
	tt := *t
	return b.add(call{method: "UpdateObject", name: *name, wire: &tt})
}

func (b *fakeBridge) UpdateObjectWithProperties(name *string, t *wire.Transform, values []float32, count int32) ffi.ReturnCode {
	tt := *t
	return b.add(call{method: "UpdateObjectWithProperties", name: *name, wire: &tt, values: append([]float32(nil), values[:count]...)})
}

func (b *fakeBridge) RemoveObject(name *string) ffi.ReturnCode {
	return b.add(call{method: "RemoveObject", name: *name})
}

func (b *fakeBridge) RegisterDataSubject(name *string, names []*string, count int32) ffi.ReturnCode {
	return b.add(call{method: "RegisterDataSubject", name: *name, names: deref(names[:count])})
}

func (b *fakeBridge) UpdateDataSubject(name *string, names []*string, values []float32, count int32) ffi.ReturnCode {
	return b.add(call{method: "UpdateDataSubject", name: *name, names: deref(names), values: append([]float32(nil), values[:count]...)})
}

func (b *fakeBridge) RemoveDataSubject(name *string) ffi.ReturnCode {
	return b.add(call{method: "RemoveDataSubject", name: *name})
}

type nopBridge struct{}

func (nopBridge) RegisterObject(*string) ffi.ReturnCode { return ffi.ReturnOK }
func (nopBridge) RegisterObjectWithProperties(*string, []*string, int32) ffi.ReturnCode {
	return ffi.ReturnOK
}
func (nopBridge) UpdateObject(*string, *wire.Transform) ffi.ReturnCode { return ffi.ReturnOK }
func (nopBridge) UpdateObjectWithProperties(*string, *wire.Transform, []float32, int32) ffi.ReturnCode {
	return ffi.ReturnOK
}
func (nopBridge) RemoveObject(*string) ffi.ReturnCode { return ffi.ReturnOK }
func (nopBridge) RegisterDataSubject(*string, []*string, int32) ffi.ReturnCode {
	return ffi.ReturnOK
}
func (nopBridge) UpdateDataSubject(*string, []*string, []float32, int32) ffi.ReturnCode {
	return ffi.ReturnOK
}
func (nopBridge) RemoveDataSubject(*string) ffi.ReturnCode { return ffi.ReturnOK }

func TestMode_String(t *testing.T) {
	assert.Equal(t, "unregistered", ModeUnregistered.String())
	assert.Equal(t, "transform_with_properties", ModeTransformWithProperties.String())
	assert.Equal(t, "unknown", Mode(42).String())
}

func TestUpdateTransform_ConvertsPose(t *testing.T) {
	b := &fakeBridge{}
	obj := New(b, "Forklift_01")

	require.NoError(t, obj.UpdateTransform(coord.Pose{Position: [3]float64{1, 2, 3}}))
	assert.Equal(t, ModeTransform, obj.Mode())

	require.Len(t, b.calls, 1)
	got := b.calls[0]
	assert.Equal(t, "UpdateObject", got.method)
	assert.Equal(t, "Forklift_01", got.name)
	assert.Equal(t, [3]float64{100, -300, 200}, got.wire.Position)
	assert.Equal(t, [4]float64{0, 0, 0, 1}, got.wire.Rotation)
	assert.Equal(t, [3]float64{1, 1, 1}, got.wire.Scale)
}

func TestModeMismatch(t *testing.T) {
	pose := coord.Pose{}

	tests := []struct {
		name  string
		first func(*Object) error
		wrong func(*Object) error
	}{
		{"transform then properties",
			func(o *Object) error { return o.UpdateTransform(pose) },
			func(o *Object) error { return o.UpdateTransformWithProperties(pose, []float64{1}) }},
		{"properties then transform",
			func(o *Object) error { return o.RegisterWithProperties([]string{"Speed"}) },
			func(o *Object) error { return o.UpdateTransform(pose) }},
		{"data then transform",
			func(o *Object) error { return o.RegisterData([]string{"Queue"}) },
			func(o *Object) error { return o.UpdateTransformWithProperties(pose, []float64{1}) }},
		{"transform then data",
			func(o *Object) error { return o.Register() },
			func(o *Object) error { return o.UpdateData([]float64{1}) }},
		{"data then register",
			func(o *Object) error { return o.UpdateData([]float64{1}) },
			func(o *Object) error { return o.Register() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBridge{}
			obj := New(b, "x")
			require.NoError(t, tt.first(obj))
			calls := len(b.calls)
			mode := obj.Mode()

			err := tt.wrong(obj)
			assert.ErrorIs(t, err, errors.ErrModeMismatch)
			assert.True(t, errors.IsFatal(err))
			assert.NotErrorIs(t, err, errors.ErrPropertyCountMismatch)
			assert.Len(t, b.calls, calls, "bridge is not called")
			assert.Equal(t, mode, obj.Mode())
		})
	}
}

func TestValueBufferReused(t *testing.T) {
	b := &fakeBridge{}
	obj := New(b, "AGV")

	require.NoError(t, obj.UpdateTransformWithProperties(coord.Pose{}, []float64{1, 2, 3}))
	first := &obj.values[0]
	require.NoError(t, obj.UpdateTransformWithProperties(coord.Pose{}, []float64{4, 5}))
	assert.Same(t, first, &obj.values[0])
	assert.Equal(t, 3, cap(obj.values))
	assert.Equal(t, []float32{4, 5}, b.calls[1].values)

	obj.bridge = nopBridge{}
	allocs := testing.AllocsPerRun(100, func() {
		_ = obj.UpdateTransformWithProperties(coord.Pose{}, []float64{6, 7})
	})
	assert.Zero(t, allocs)
}

func TestUpdateData_SendsRegisteredNames(t *testing.T) {
	b := &fakeBridge{}
	obj := New(b, "Line 1")

	require.NoError(t, obj.RegisterData([]string{"Queue", "Busy"}))
	require.NoError(t, obj.UpdateData([]float64{3, 1}))
	require.NoError(t, obj.UpdateData([]float64{3}))

	assert.Equal(t, []string{"Queue", "Busy"}, obj.PropertyNames())
	assert.Equal(t, []string{"Queue", "Busy"}, b.calls[1].names)
	assert.Nil(t, b.calls[2].names)
}

func TestRemove(t *testing.T) {
	b := &fakeBridge{}

	obj := New(b, "x")
	require.NoError(t, obj.Remove(), "unregistered remove is a no-op")
	assert.Empty(t, b.calls)

	require.NoError(t, obj.RegisterData(nil))
	require.NoError(t, obj.Remove())
	assert.Equal(t, "RemoveDataSubject", b.calls[1].method)
	assert.Equal(t, ModeUnregistered, obj.Mode())

	require.NoError(t, obj.Register(), "object can be reused in another mode after removal")
	require.NoError(t, obj.Remove())
	assert.Equal(t, "RemoveObject", b.calls[3].method)
}

func TestBridgeCodesBecomeErrors(t *testing.T) {
	b := &fakeBridge{code: ffi.ReturnNotInitialized}
	obj := New(b, "x")
	assert.ErrorIs(t, obj.Register(), errors.ErrNotInitialized)

	b.code = ffi.ReturnNotConnected
	assert.ErrorIs(t, obj.UpdateTransform(coord.Pose{}), errors.ErrNoSource)

	b.code = ffi.ReturnError
	assert.ErrorIs(t, obj.UpdateTransform(coord.Pose{}), ffi.ErrCallFailed)
}

func TestThroughSurface(t *testing.T) {
	factory := provider.NewRecorderFactory()
	reg := registry.New(registry.WithFactory(factory))
	surface := ffi.New(reg)
	require.NoError(t, reg.Initialize("sim"))

	agv := New(surface, "AGV_1")
	require.NoError(t, agv.RegisterWithProperties([]string{"Speed", "Load"}))
	require.NoError(t, agv.UpdateTransformWithProperties(coord.Pose{Position: [3]float64{1, 0, 0}}, []float64{1.5, 20}))

	err := agv.UpdateTransformWithProperties(coord.Pose{}, []float64{1.5})
	assert.ErrorIs(t, err, ffi.ErrCallFailed, "count mismatch is a data error, not a mode mismatch")
	assert.NotErrorIs(t, err, errors.ErrModeMismatch)

	line := New(surface, "Line 1")
	require.NoError(t, line.UpdateData([]float64{4}))

	snap := reg.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, []string{"Speed", "Load"}, snap[0].Properties.Names())
	assert.Equal(t, uint64(1), snap[0].Frames)
	assert.True(t, snap[1].AutoRegistered)
	assert.Equal(t, subject.KindData, snap[1].Kind)

	frames := factory.Last().Filter(provider.EventFrame, "AGV_1")
	require.Len(t, frames, 1)
	assert.Equal(t, [3]float64{100, 0, 0}, frames[0].Transform.Translation)
	assert.Equal(t, []float32{1.5, 20}, frames[0].Values)

	require.NoError(t, agv.Remove())
	require.NoError(t, agv.Remove())
	reg.Shutdown()
}
