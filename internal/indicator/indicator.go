package indicator

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"soundscape.klederson.com/internal/frame"
	"soundscape.klederson.com/internal/log"
	"soundscape.klederson.com/internal/spatial"
)

var (
	ErrNilTarget       = errors.New("indicator target is nil")
	ErrDuplicateTarget = errors.New("indicator target already registered")
)

// PointState is a snapshot of one bearing point for rendering.
type PointState struct {
	ID        uuid.UUID
	Angle     float64
	Offset    spatial.Offset
	Size      float64
	Distance  float64
	Transform Transform
}

// DirectionIndicator owns the ring and one bearing point per target.
// It is driven from the render loop and is not safe for concurrent use.
type DirectionIndicator struct {
	opts   Options
	points []*BearingPoint
	index  map[uuid.UUID]int
}

// New creates an indicator. Invalid options fall back to DefaultOptions.
func New(opts Options) *DirectionIndicator {
	if err := opts.Validate(); err != nil {
		log.Warn("indicator options rejected, using defaults", "err", err)
		opts = DefaultOptions()
	}
	return &DirectionIndicator{
		opts:  opts,
		index: make(map[uuid.UUID]int),
	}
}

// Ring returns the ring geometry.
func (d *DirectionIndicator) Ring() Ring { return d.opts.Ring }

// Mode returns the heading mode in use.
func (d *DirectionIndicator) Mode() HeadingMode { return d.opts.Mode }

// SetMode switches heading mode. Baselines captured at creation are kept.
func (d *DirectionIndicator) SetMode(m HeadingMode) { d.opts.Mode = m }

// AddTarget registers a target as a new point and places it for ctx.
func (d *DirectionIndicator) AddTarget(t Target, ctx frame.Context) error {
	if t == nil {
		return ErrNilTarget
	}
	id := t.ID()
	if _, ok := d.index[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTarget, id)
	}

	p := newBearingPoint(t, d.opts.Ring, &d.opts.Point, ctx)
	d.index[id] = len(d.points)
	d.points = append(d.points, p)
	d.updatePoint(p, ctx)
	return nil
}

// RemoveTarget drops the point for id. Remaining points keep their order.
func (d *DirectionIndicator) RemoveTarget(id uuid.UUID) bool {
	i, ok := d.index[id]
	if !ok {
		return false
	}
	d.points = append(d.points[:i], d.points[i+1:]...)
	delete(d.index, id)
	for j := i; j < len(d.points); j++ {
		d.index[d.points[j].ID()] = j
	}
	return true
}

// Len returns the number of points.
func (d *DirectionIndicator) Len() int { return len(d.points) }

// Point returns the point for id.
func (d *DirectionIndicator) Point(id uuid.UUID) (*BearingPoint, bool) {
	i, ok := d.index[id]
	if !ok {
		return nil, false
	}
	return d.points[i], true
}

// Update recomputes every point in insertion order.
func (d *DirectionIndicator) Update(ctx frame.Context) {
	for _, p := range d.points {
		d.updatePoint(p, ctx)
	}
}

// updatePoint keeps a misbehaving target from breaking the frame.
func (d *DirectionIndicator) updatePoint(p *BearingPoint, ctx frame.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("bearing point update failed", "target", p.ID(), "panic", r)
		}
	}()
	p.Update(ctx, d.opts.Mode)
}

// Points returns a snapshot of all points in insertion order.
func (d *DirectionIndicator) Points() []PointState {
	out := make([]PointState, len(d.points))
	for i, p := range d.points {
		out[i] = PointState{
			ID:        p.ID(),
			Angle:     p.Angle(),
			Offset:    p.Offset(),
			Size:      p.Size(),
			Distance:  p.Distance(),
			Transform: p.Transform(),
		}
	}
	return out
}
