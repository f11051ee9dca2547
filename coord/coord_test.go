package coord

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertPosition(t *testing.T) {
	tests := []struct {
		name     string
		in, want [3]float64
	}{
		{"example", [3]float64{1, 2, 3}, [3]float64{100, -300, 200}},
		{"origin", [3]float64{0, 0, 0}, [3]float64{0, 0, 0}},
		{"negative", [3]float64{-0.5, 1.25, -2}, [3]float64{-50, 200, 125}},
		{"nan", [3]float64{math.NaN(), 1, 1}, [3]float64{0, 0, 0}},
		{"inf", [3]float64{1, math.Inf(-1), 1}, [3]float64{0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, z := ConvertPosition(tt.in[0], tt.in[1], tt.in[2])
			assert.Equal(t, tt.want, [3]float64{x, y, z})
		})
	}
}

func TestConvertScale(t *testing.T) {
	tests := []struct {
		name     string
		in, want [3]float64
	}{
		{"swap", [3]float64{1, 2, 3}, [3]float64{1, 3, 2}},
		{"zero", [3]float64{1, 0, 1}, [3]float64{1, 1, 1}},
		{"negative", [3]float64{-1, 2, 3}, [3]float64{1, 1, 1}},
		{"nan", [3]float64{1, 2, math.NaN()}, [3]float64{1, 1, 1}},
		{"inf", [3]float64{math.Inf(1), 2, 3}, [3]float64{1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, z := ConvertScale(tt.in[0], tt.in[1], tt.in[2])
			assert.Equal(t, tt.want, [3]float64{x, y, z})
		})
	}
}

func TestConvertScale_RoundTrip(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 1000; i++ {
		in := [3]float64{r.Float64()*10 + 0.01, r.Float64()*10 + 0.01, r.Float64()*10 + 0.01}
		x, y, z := UnswapScale(ConvertScale(in[0], in[1], in[2]))
		assert.Equal(t, in, [3]float64{x, y, z})
	}
}

func TestEulerDegreesToQuaternion_Identity(t *testing.T) {
	qx, qy, qz, qw := EulerDegreesToQuaternion(0, 0, 0)
	assert.Equal(t, [4]float64{0, 0, 0, 1}, [4]float64{qx, qy, qz, qw})
}

func TestEulerDegreesToQuaternion_AxisRemap(t *testing.T) {
	h := math.Sqrt2 / 2
	tests := []struct {
		name       string
		rx, ry, rz float64
		want       [4]float64
	}{
		{"about x", 90, 0, 0, [4]float64{h, 0, 0, h}},
		{"about up axis", 0, 90, 0, [4]float64{0, 0, -h, h}},
		{"about z", 0, 0, 90, [4]float64{0, h, 0, h}},
		{"half turn", 180, 0, 0, [4]float64{1, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qx, qy, qz, qw := EulerDegreesToQuaternion(tt.rx, tt.ry, tt.rz)
			got := [4]float64{qx, qy, qz, qw}
			for i := range got {
				assert.InDelta(t, tt.want[i], got[i], 1e-12, "component %d", i)
			}
		})
	}
}

func TestEulerDegreesToQuaternion_UnitMagnitude(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	for i := 0; i < 5000; i++ {
		rx := (r.Float64() - 0.5) * 2000
		ry := (r.Float64() - 0.5) * 2000
		rz := (r.Float64() - 0.5) * 2000
		qx, qy, qz, qw := EulerDegreesToQuaternion(rx, ry, rz)
		mag := math.Sqrt(qx*qx + qy*qy + qz*qz + qw*qw)
		assert.InDelta(t, 1.0, mag, 1e-6)
	}
}

func TestEulerDegreesToQuaternion_NonFinite(t *testing.T) {
	for _, in := range [][3]float64{
		{math.NaN(), 0, 0},
		{0, math.Inf(1), 0},
		{0, 0, math.Inf(-1)},
	} {
		qx, qy, qz, qw := EulerDegreesToQuaternion(in[0], in[1], in[2])
		assert.Equal(t, [4]float64{0, 0, 0, 1}, [4]float64{qx, qy, qz, qw})
	}
}

func TestToWire(t *testing.T) {
	tr := ToWire(Pose{Position: [3]float64{1, 2, 3}})
	assert.Equal(t, [3]float64{100, -300, 200}, tr.Position)
	assert.Equal(t, [4]float64{0, 0, 0, 1}, tr.Rotation)
	assert.Equal(t, [3]float64{1, 1, 1}, tr.Scale)

	scale := [3]float64{2, 3, 4}
	tr = ToWire(Pose{Scale: &scale, Rotation: [3]float64{math.NaN(), 0, 0}})
	assert.Equal(t, [3]float64{2, 4, 3}, tr.Scale)
	assert.Equal(t, [4]float64{0, 0, 0, 1}, tr.Rotation)
	assert.True(t, tr.IsFinite())
}
