// Package spatial holds the listener/source geometry shared by the direction
// indicator and the positional audio graph.
//
// Axis convention: Y is up, yaw is measured about Y with atan2(x, z), so yaw 0
// faces world +Z and yaw π/2 faces world +X. Bearings use the same convention,
// which means a source straight along the listener's look direction has
// Bearing == Yaw.
package spatial

import "math"

// Yaw returns the listener's horizontal facing in radians, [0, 2π).
// Only the X and Z components of the look direction are read, so pitch and
// roll do not change the result.
func Yaw(p Pose) float64 {
	return NormalizeAngle(math.Atan2(p.Forward.X, p.Forward.Z))
}

// Bearing returns the horizontal angle from listener to source, (-π, π].
func Bearing(source, listener Vec3) float64 {
	dx := source.X - listener.X
	dz := source.Z - listener.Z
	return math.Atan2(dx, dz)
}

// Offset is a 2D position on the indicator ring plane.
type Offset struct {
	X, Y float64
}

// AngleToOffset places an angle on a circle of the given radius.
func AngleToOffset(angle, radius float64) Offset {
	return Offset{
		X: math.Cos(angle) * radius,
		Y: math.Sin(angle) * radius,
	}
}

// Distance is the Euclidean distance between a and b.
func Distance(a, b Vec3) float64 {
	return a.Sub(b).Len()
}

// NormalizeAngle wraps an angle to [0, 2π). NaN and infinities come back as NaN.
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	// Mod of a tiny negative value rounds back up to exactly 2π
	if a >= 2*math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// SignedAngle wraps an angle to (-π, π].
func SignedAngle(a float64) float64 {
	a = NormalizeAngle(a)
	if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}
