package indicator

import (
	"math"

	"github.com/google/uuid"

	"soundscape.klederson.com/internal/frame"
	"soundscape.klederson.com/internal/spatial"
	"soundscape.klederson.com/internal/spectrum"
)

// Target is a sound source the indicator can point at.
type Target interface {
	ID() uuid.UUID
	Position() spatial.Vec3
	Spectrum() spectrum.Sample
}

// Transform is the point's placement in ring space, ready for a renderer.
type Transform struct {
	Position spatial.Vec3
	Scale    float64
}

// BearingPoint tracks one target. It references the target and never owns it.
type BearingPoint struct {
	target     Target
	style      *PointStyle
	radius     float64
	initialYaw float64

	angle    float64
	distance float64
	offset   spatial.Offset
	size     float64
}

func newBearingPoint(t Target, ring Ring, style *PointStyle, ctx frame.Context) *BearingPoint {
	return &BearingPoint{
		target:     t,
		style:      style,
		radius:     ring.Radius,
		initialYaw: spatial.Yaw(ctx.Pose),
	}
}

// Update recomputes angle, offset and size from the frame's listener pose.
func (p *BearingPoint) Update(ctx frame.Context, mode HeadingMode) {
	pose := ctx.Pose
	src := p.target.Position()

	if mode == HeadingRelative {
		// Bearing from the source back to the listener, against the yaw
		// change since creation. From the default camera (yaw π) this
		// matches absolute mode.
		back := spatial.Bearing(pose.Position, src)
		p.angle = back - (spatial.Yaw(pose) - p.initialYaw)
	} else {
		p.angle = spatial.Bearing(src, pose.Position) - spatial.Yaw(pose)
	}
	p.offset = spatial.AngleToOffset(p.angle, p.radius)

	p.distance = spatial.Distance(pose.Position, src)
	intensity := p.target.Spectrum().PeakIntensity()
	p.size = ClampSize(intensity*p.style.SizeScale/p.distance, p.style.MinSize, p.style.MaxSize)
}

// ClampSize bounds v to [lo, hi]. NaN maps to lo.
func ClampSize(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(v, hi))
}

// ID returns the target's handle.
func (p *BearingPoint) ID() uuid.UUID { return p.target.ID() }

// Angle is the point's angle on the ring, radians, not normalized.
func (p *BearingPoint) Angle() float64 { return p.angle }

// Offset is the point's 2D position on the ring plane.
func (p *BearingPoint) Offset() spatial.Offset { return p.offset }

// Size is the point's uniform scale, always within the style's size bounds.
func (p *BearingPoint) Size() float64 { return p.size }

// Distance is the listener-to-source distance from the last update.
func (p *BearingPoint) Distance() float64 { return p.distance }

// InitialYaw is the listener yaw captured when the point was created.
func (p *BearingPoint) InitialYaw() float64 { return p.initialYaw }

// Transform returns the placement for the renderer.
func (p *BearingPoint) Transform() Transform {
	return Transform{
		Position: spatial.Vec3{X: p.offset.X, Y: p.offset.Y, Z: p.style.Z},
		Scale:    p.size,
	}
}
