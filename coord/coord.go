// Package coord converts poses from the simulation's convention to the
// visualization engine's.
//
//	simulation     right-handed, Y up, meters, Euler degrees
//	visualization  left-handed, Z up, centimeters, unit quaternion
//
// Every function is pure and safe for concurrent use. Invalid input never
// produces NaN: positions fall back to the origin, scales to (1,1,1) and
// rotations to the identity quaternion.
package coord

import (
	"math"

	"github.com/c360/livebridge/wire"
)

// CentimetersPerMeter is the linear unit factor applied to positions.
const CentimetersPerMeter = 100.0

// quatEpsilon is the smallest quaternion magnitude that is normalized rather
// than replaced by the identity.
const quatEpsilon = 1e-10

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ConvertPosition maps (x, y, z) meters to engine centimeters with
// x' = x, y' = -z, z' = y. Non-finite input yields the zero vector.
func ConvertPosition(x, y, z float64) (float64, float64, float64) {
	if !finite(x, y, z) {
		return 0, 0, 0
	}
	return x * CentimetersPerMeter, -z * CentimetersPerMeter, y * CentimetersPerMeter
}

// ConvertScale swaps the Y and Z scale factors. Non-finite or non-positive
// input yields unit scale.
func ConvertScale(sx, sy, sz float64) (float64, float64, float64) {
	if !finite(sx, sy, sz) || sx <= 0 || sy <= 0 || sz <= 0 {
		return 1, 1, 1
	}
	return sx, sz, sy
}

// UnswapScale maps an engine scale back to the simulation's axes.
func UnswapScale(sx, sy, sz float64) (float64, float64, float64) {
	return sx, sz, sy
}

// EulerDegreesToQuaternion converts simulation Euler angles in degrees to a
// unit quaternion (x, y, z, w) in the engine frame. The axes are remapped as
// x' = x, y' = z, z' = -y and the rotations applied X, then Y, then Z.
func EulerDegreesToQuaternion(rx, ry, rz float64) (qx, qy, qz, qw float64) {
	if !finite(rx, ry, rz) {
		return 0, 0, 0, 1
	}

	const deg2rad = math.Pi / 180
	ax := rx * deg2rad
	ay := rz * deg2rad
	az := -ry * deg2rad

	sx, cx := math.Sincos(ax / 2)
	sy, cy := math.Sincos(ay / 2)
	sz, cz := math.Sincos(az / 2)

	// q = qZ * qY * qX
	qw = cx*cy*cz + sx*sy*sz
	qx = sx*cy*cz - cx*sy*sz
	qy = cx*sy*cz + sx*cy*sz
	qz = cx*cy*sz - sx*sy*cz

	mag := math.Sqrt(qx*qx + qy*qy + qz*qz + qw*qw)
	if mag < quatEpsilon || !finite(mag) {
		return 0, 0, 0, 1
	}
	return qx / mag, qy / mag, qz / mag, qw / mag
}

// Pose is an entity pose in the simulation's convention.
type Pose struct {
	Position [3]float64 // meters
	Rotation [3]float64 // Euler degrees about X, Y, Z
	Scale    *[3]float64
}

// ToWire converts a simulation pose to a wire transform. A nil Scale means
// unit scale.
func ToWire(p Pose) wire.Transform {
	var t wire.Transform
	t.Position[0], t.Position[1], t.Position[2] = ConvertPosition(p.Position[0], p.Position[1], p.Position[2])
	t.Rotation[0], t.Rotation[1], t.Rotation[2], t.Rotation[3] =
		EulerDegreesToQuaternion(p.Rotation[0], p.Rotation[1], p.Rotation[2])

	s := [3]float64{1, 1, 1}
	if p.Scale != nil {
		s = *p.Scale
	}
	t.Scale[0], t.Scale[1], t.Scale[2] = ConvertScale(s[0], s[1], s[2])
	return t
}
