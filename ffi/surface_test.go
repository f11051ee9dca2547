package ffi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/livebridge/errors"
	"github.com/c360/livebridge/pkg/intern"
	"github.com/c360/livebridge/provider"
	"github.com/c360/livebridge/registry"
	"github.com/c360/livebridge/subject"
	"github.com/c360/livebridge/wire"
)

func str(s string) *string { return &s }

func strs(ss ...string) []*string {
	out := make([]*string, len(ss))
	for i := range ss {
		out[i] = &ss[i]
	}
	return out
}

func newSurface(t *testing.T) (*Surface, *registry.Registry, *provider.RecorderFactory) {
	t.Helper()
	factory := provider.NewRecorderFactory()
	reg := registry.New(registry.WithFactory(factory))
	return New(reg, WithLogEvery(1)), reg, factory
}

func TestReturnCode(t *testing.T) {
	assert.Equal(t, "ok", ReturnOK.String())
	assert.Equal(t, "not_connected", ReturnNotConnected.String())
	assert.Equal(t, "unknown", ReturnCode(7).String())

	assert.NoError(t, ReturnOK.Err())
	assert.ErrorIs(t, ReturnNotInitialized.Err(), errors.ErrNotInitialized)
	assert.ErrorIs(t, ReturnNotConnected.Err(), errors.ErrNoSource)
	assert.ErrorIs(t, ReturnError.Err(), ErrCallFailed)

	assert.Equal(t, ReturnNotInitialized, codeFor(errors.Wrap(errors.ErrNotInitialized, "a", "b", "c")))
	assert.Equal(t, ReturnError, codeFor(errors.ErrSchemaMismatch))
}

func TestGetVersion(t *testing.T) {
	s, _, _ := newSurface(t)
	assert.Equal(t, int32(1), s.GetVersion())
}

func TestInitialize(t *testing.T) {
	s, reg, _ := newSurface(t)

	assert.Equal(t, ReturnError, s.Initialize(nil))
	assert.Equal(t, ReturnError, s.Initialize(str("")))
	assert.Equal(t, ReturnNotInitialized, s.IsConnected())

	assert.Equal(t, ReturnOK, s.Initialize(str("sim")))
	assert.Equal(t, ReturnOK, s.Initialize(str("sim")))
	assert.Equal(t, ReturnNotConnected, s.IsConnected())
	assert.Equal(t, "sim", reg.Stats().Provider)

	assert.Equal(t, ReturnOK, s.RegisterObject(str("AGV_1")))
	assert.Equal(t, ReturnOK, s.IsConnected())

	assert.Equal(t, ReturnOK, s.Shutdown())
	assert.Equal(t, ReturnOK, s.Shutdown())
	assert.Equal(t, ReturnNotInitialized, s.IsConnected())
}

func TestNullArguments(t *testing.T) {
	s, reg, factory := newSurface(t)
	require.Equal(t, ReturnOK, s.Initialize(str("sim")))
	tr := wire.Identity()

	tests := []struct {
		name string
		call func() ReturnCode
	}{
		{"register null name", func() ReturnCode { return s.RegisterObject(nil) }},
		{"register props null name", func() ReturnCode { return s.RegisterObjectWithProperties(nil, strs("a"), 1) }},
		{"register props null array", func() ReturnCode { return s.RegisterObjectWithProperties(str("x"), nil, 1) }},
		{"register props negative count", func() ReturnCode { return s.RegisterObjectWithProperties(str("x"), strs("a"), -1) }},
		{"register props short array", func() ReturnCode { return s.RegisterObjectWithProperties(str("x"), strs("a"), 2) }},
		{"update null name", func() ReturnCode { return s.UpdateObject(nil, &tr) }},
		{"update null transform", func() ReturnCode { return s.UpdateObject(str("x"), nil) }},
		{"update props null transform", func() ReturnCode {
			return s.UpdateObjectWithProperties(str("x"), nil, []float32{1}, 1)
		}},
		{"update props null values", func() ReturnCode { return s.UpdateObjectWithProperties(str("x"), &tr, nil, 1) }},
		{"update props negative count", func() ReturnCode {
			return s.UpdateObjectWithProperties(str("x"), &tr, []float32{1}, -3)
		}},
		{"remove null name", func() ReturnCode { return s.RemoveObject(nil) }},
		{"register data null name", func() ReturnCode { return s.RegisterDataSubject(nil, strs("a"), 1) }},
		{"register data null array", func() ReturnCode { return s.RegisterDataSubject(str("d"), nil, 2) }},
		{"update data null values", func() ReturnCode { return s.UpdateDataSubject(str("d"), nil, nil, 1) }},
		{"update data short names", func() ReturnCode {
			return s.UpdateDataSubject(str("d"), strs("a"), []float32{1, 2}, 2)
		}},
		{"remove data null name", func() ReturnCode { return s.RemoveDataSubject(nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var code ReturnCode
			assert.NotPanics(t, func() { code = tt.call() })
			assert.Equal(t, ReturnError, code)
		})
	}

	assert.Equal(t, uint64(len(tests)), s.Rejected())
	assert.Empty(t, reg.Snapshot(), "rejected calls never reach the registry")
	assert.Zero(t, factory.Calls())
}

func TestZeroCountAcceptsNullArrays(t *testing.T) {
	s, reg, _ := newSurface(t)
	require.Equal(t, ReturnOK, s.Initialize(str("sim")))
	tr := wire.Identity()

	assert.Equal(t, ReturnOK, s.RegisterObjectWithProperties(str("a"), nil, 0))
	assert.Equal(t, ReturnOK, s.UpdateObjectWithProperties(str("a"), &tr, nil, 0))
	assert.Equal(t, ReturnOK, s.RegisterDataSubject(str("d"), nil, 0))
	assert.Equal(t, ReturnOK, s.UpdateDataSubject(str("d"), nil, nil, 0))

	assert.Len(t, reg.Snapshot(), 2)
}

func TestUpdateData_Flow(t *testing.T) {
	s, reg, factory := newSurface(t)
	require.Equal(t, ReturnOK, s.Initialize(str("sim")))

	require.Equal(t, ReturnOK, s.RegisterDataSubject(str("Line 1"), strs("Queue", "Busy"), 2))
	assert.Equal(t, ReturnOK, s.UpdateDataSubject(str("Line 1"), strs("Queue", "Busy"), []float32{3, 1}, 2))
	assert.Equal(t, ReturnOK, s.UpdateDataSubject(str("Line 1"), nil, []float32{4, 0, 99}, 2), "extra values beyond count are ignored")
	assert.Equal(t, ReturnError, s.UpdateDataSubject(str("Line 1"), strs("Busy", "Queue"), []float32{3, 1}, 2))
	assert.Equal(t, ReturnError, s.UpdateDataSubject(str("Line 1"), nil, []float32{3}, 1))

	frames := factory.Last().Filter(provider.EventFrame, "Line 1")
	require.Len(t, frames, 2)
	assert.Equal(t, []float32{4, 0}, frames[1].Values)

	assert.Equal(t, ReturnOK, s.RemoveDataSubject(str("Line 1")))
	assert.Equal(t, ReturnOK, s.RemoveDataSubject(str("Line 1")))
	assert.Zero(t, reg.Len(subject.KindData))
}

func TestNullPropertyNameEntry(t *testing.T) {
	s, reg, _ := newSurface(t)
	require.Equal(t, ReturnOK, s.Initialize(str("sim")))

	names := []*string{str("Speed"), nil}
	require.Equal(t, ReturnOK, s.RegisterObjectWithProperties(str("AGV"), names, 2))

	snap := reg.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, []string{"Speed", ""}, snap[0].Properties.Names())
}

func TestUpdateObject_TransformCrossesUnchanged(t *testing.T) {
	s, _, factory := newSurface(t)
	require.Equal(t, ReturnOK, s.Initialize(str("sim")))

	tr := wire.Transform{
		Position: [3]float64{100, -300, 200},
		Rotation: [4]float64{0, 0, 0.7071067811865476, 0.7071067811865476},
		Scale:    [3]float64{2, 3, 4},
	}
	require.Equal(t, ReturnOK, s.UpdateObject(str("AGV"), &tr))

	frames := factory.Last().Filter(provider.EventFrame, "AGV")
	require.Len(t, frames, 1)
	assert.Equal(t, tr, frames[0].Transform.Wire())
}

func TestNotInitializedCodes(t *testing.T) {
	s, _, _ := newSurface(t)
	tr := wire.Identity()

	assert.Equal(t, ReturnNotInitialized, s.RegisterObject(str("x")))
	assert.Equal(t, ReturnNotInitialized, s.UpdateObject(str("x"), &tr))
	assert.Equal(t, ReturnNotInitialized, s.RemoveDataSubject(str("x")))
}

type panicRegistry struct {
	Registry
}

func (panicRegistry) InternName(string) intern.Handle { panic("boom") }
func (panicRegistry) Initialize(string) error         { panic("boom") }
func (panicRegistry) Shutdown()                       { panic("boom") }
func (panicRegistry) ConnectionStatus() registry.Status {
	panic("boom")
}

func TestPanicsAreRecovered(t *testing.T) {
	s := New(&panicRegistry{})
	tr := wire.Identity()

	assert.NotPanics(t, func() {
		assert.Equal(t, ReturnError, s.Initialize(str("sim")))
		assert.Equal(t, ReturnError, s.Shutdown())
		assert.Equal(t, ReturnError, s.IsConnected())
		assert.Equal(t, ReturnError, s.RegisterObject(str("x")))
		assert.Equal(t, ReturnError, s.UpdateObject(str("x"), &tr))
		assert.Equal(t, ReturnError, s.UpdateDataSubject(str("x"), nil, []float32{1}, 1))
		assert.Equal(t, ReturnError, s.RemoveObject(str("x")))
	})
	assert.Equal(t, uint64(7), s.Panics())
}
