package spatial

import "math"

// cameraLook is the look direction of a camera with identity orientation.
var cameraLook = Vec3{0, 0, -1}

// Pose is the listener's position and look direction. It is a snapshot taken
// from the camera/XR system once per frame.
type Pose struct {
	Position Vec3
	Forward  Vec3
}

// PoseFromQuaternion derives the look direction from a camera orientation.
// A camera with identity orientation has its local +Z axis on world +Z and
// looks down world -Z.
func PoseFromQuaternion(pos Vec3, q Quat) Pose {
	return Pose{Position: pos, Forward: q.Rotate(cameraLook)}
}

// PoseFacing builds a level pose with the given yaw.
func PoseFacing(pos Vec3, yaw float64) Pose {
	s, c := math.Sincos(yaw)
	return Pose{Position: pos, Forward: Vec3{s, 0, c}}
}

// Turned rotates the look direction by delta radians about +Y.
// Positive delta turns from +Z toward +X.
func (p Pose) Turned(delta float64) Pose {
	p.Forward = QuatFromYaw(delta).Rotate(p.Forward)
	return p
}

// Moved walks the pose along its horizontal look direction and the matching
// right-hand axis.
func (p Pose) Moved(forward, right float64) Pose {
	yaw := Yaw(p)
	s, c := math.Sincos(yaw)
	ahead := Vec3{s, 0, c}
	side := Vec3{-c, 0, s} // look x up
	p.Position = p.Position.Add(ahead.Scale(forward)).Add(side.Scale(right))
	return p
}
