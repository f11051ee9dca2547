// Package wire defines the fixed binary transform that crosses the
// foreign-function boundary.
//
// The layout is a hard contract shared with the calling side:
//
//	offset  0  position  [3]float64  engine units (centimeters)
//	offset 24  rotation  [4]float64  quaternion X, Y, Z, W
//	offset 56  scale     [3]float64
//	size   80
//
// Reordering fields or introducing padding breaks callers silently.
package wire

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/c360/livebridge/errors"
)

// Size is the encoded and in-memory size of a Transform in bytes.
const Size = 80

// Transform is position, rotation and scale in the visualization engine's
// convention. Rotation is expected to be a unit quaternion but the type does
// not enforce it.
type Transform struct {
	Position [3]float64
	Rotation [4]float64
	Scale    [3]float64
}

// Identity returns a transform at the origin with no rotation and unit scale.
func Identity() Transform {
	return Transform{
		Rotation: [4]float64{0, 0, 0, 1},
		Scale:    [3]float64{1, 1, 1},
	}
}

// IsFinite reports whether every component is neither NaN nor infinite.
func (t Transform) IsFinite() bool {
	for _, v := range t.components() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (t Transform) components() [10]float64 {
	return [10]float64{
		t.Position[0], t.Position[1], t.Position[2],
		t.Rotation[0], t.Rotation[1], t.Rotation[2], t.Rotation[3],
		t.Scale[0], t.Scale[1], t.Scale[2],
	}
}

// AppendBinary appends the 80-byte little-endian encoding of t to b.
func (t Transform) AppendBinary(b []byte) ([]byte, error) {
	for _, v := range t.components() {
		b = binary.LittleEndian.AppendUint64(b, math.Float64bits(v))
	}
	return b, nil
}

// MarshalBinary returns the 80-byte little-endian encoding of t.
func (t Transform) MarshalBinary() ([]byte, error) {
	return t.AppendBinary(make([]byte, 0, Size))
}

// UnmarshalBinary decodes exactly Size bytes into t.
func (t *Transform) UnmarshalBinary(b []byte) error {
	if len(b) != Size {
		return errors.WrapInvalid(
			fmt.Errorf("got %d bytes, want %d: %w", len(b), Size, errors.ErrInvalidArgument),
			"Transform", "UnmarshalBinary", "check length")
	}

	var c [10]float64
	for i := range c {
		c[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	t.Position = [3]float64{c[0], c[1], c[2]}
	t.Rotation = [4]float64{c[3], c[4], c[5], c[6]}
	t.Scale = [3]float64{c[7], c[8], c[9]}
	return nil
}
