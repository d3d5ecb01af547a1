// Package indicator implements the head-locked direction indicator: a fixed
// ring in front of the listener with one bearing point per sound source.
package indicator

import (
	"errors"
	"fmt"
	"strings"

	"soundscape.klederson.com/internal/config"
	"soundscape.klederson.com/internal/spatial"
)

// HeadingMode selects how a point's angle is measured.
type HeadingMode int

const (
	// HeadingAbsolute measures bearing against the listener's current yaw, so
	// a point at angle 0 is straight ahead right now.
	HeadingAbsolute HeadingMode = iota
	// HeadingRelative uses the bearing from source to listener and
	// subtracts only the yaw change since the point was created. It agrees
	// with HeadingAbsolute when the creation yaw is π (the identity camera)
	// and differs by π minus the creation yaw otherwise.
	HeadingRelative
)

func (m HeadingMode) String() string {
	if m == HeadingRelative {
		return "relative"
	}
	return "absolute"
}

// ParseHeadingMode accepts "absolute" or "relative".
func ParseHeadingMode(s string) (HeadingMode, error) {
	switch strings.ToLower(s) {
	case "", "absolute":
		return HeadingAbsolute, nil
	case "relative":
		return HeadingRelative, nil
	default:
		return HeadingAbsolute, fmt.Errorf("unknown heading mode %q (want absolute or relative)", s)
	}
}

// Ring is the fixed ring geometry. It is drawn screen-aligned with depth
// testing off; only the points move within it.
type Ring struct {
	Radius    float64
	Thickness float64
	Segments  int
	Color     string
	Opacity   float64
	Offset    spatial.Vec3 // relative to the listener's head
}

// InnerRadius is the inner edge of the ring band.
func (r Ring) InnerRadius() float64 { return r.Radius - r.Thickness/2 }

// OuterRadius is the outer edge of the ring band.
func (r Ring) OuterRadius() float64 { return r.Radius + r.Thickness/2 }

// PointStyle configures bearing point appearance and sizing.
type PointStyle struct {
	Color     string
	Opacity   float64
	MinSize   float64
	MaxSize   float64
	Z         float64 // depth offset in front of the ring
	SizeScale float64 // peak intensity per unit distance to size
}

// Options configures a DirectionIndicator.
type Options struct {
	Ring  Ring
	Point PointStyle
	Mode  HeadingMode
}

// DefaultOptions mirrors the forest scene defaults.
func DefaultOptions() Options {
	return Options{
		Ring: Ring{
			Radius:    config.RingRadius,
			Thickness: config.RingThickness,
			Segments:  config.RingSegments,
			Color:     config.RingColor,
			Opacity:   config.RingOpacity,
			Offset:    spatial.Vec3{Z: config.RingOffsetZ},
		},
		Point: PointStyle{
			Color:     config.PointColor,
			Opacity:   config.PointOpacity,
			MinSize:   config.PointMinSize,
			MaxSize:   config.PointMaxSize,
			Z:         config.PointZ,
			SizeScale: config.PointSizeScale,
		},
		Mode: HeadingAbsolute,
	}
}

// ErrInvalidOptions is wrapped by Validate failures.
var ErrInvalidOptions = errors.New("invalid indicator options")

// Validate checks ring and size bounds.
func (o Options) Validate() error {
	switch {
	case o.Ring.Radius <= 0:
		return fmt.Errorf("%w: ring radius %v must be positive", ErrInvalidOptions, o.Ring.Radius)
	case o.Ring.Thickness < 0 || o.Ring.Thickness > 2*o.Ring.Radius:
		return fmt.Errorf("%w: ring thickness %v out of range", ErrInvalidOptions, o.Ring.Thickness)
	case o.Point.MinSize < 0 || o.Point.MinSize > o.Point.MaxSize:
		return fmt.Errorf("%w: point size range [%v, %v]", ErrInvalidOptions, o.Point.MinSize, o.Point.MaxSize)
	}
	return nil
}
