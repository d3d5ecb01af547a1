package audio

import (
	"math"

	"github.com/gopxl/beep/v2"

	"soundscape.klederson.com/internal/spatial"
)

// Attenuation is the inverse distance model gain: full volume inside ref,
// then ref / (ref + rolloff*(d-ref)).
func Attenuation(distance, ref, rolloff float64) float64 {
	if ref <= 0 {
		return 1
	}
	d := max(distance, ref)
	return ref / (ref + rolloff*(d-ref))
}

// Pan maps a listener-relative angle (0 ahead, positive to the left) onto
// [-1, 1] with -1 hard left and +1 hard right.
func Pan(relative float64) float64 {
	return -math.Sin(relative)
}

// PanGains returns equal-power left and right gains for a pan position.
func PanGains(pan float64) (left, right float64) {
	pan = max(-1, min(pan, 1))
	theta := (pan + 1) * math.Pi / 4
	return math.Cos(theta), math.Sin(theta)
}

// Gains computes the stereo gains for a source heard from listener.
func Gains(source spatial.Vec3, listener spatial.Pose, ref, rolloff float64) (left, right float64) {
	g := Attenuation(spatial.Distance(source, listener.Position), ref, rolloff)
	rel := spatial.Bearing(source, listener.Position) - spatial.Yaw(listener)
	l, r := PanGains(Pan(rel))
	return g * l, g * r
}

// spatializer applies per-source stereo gains. Targets are set between
// Stream calls; each block ramps from the previous gains to avoid clicks.
type spatializer struct {
	s beep.Streamer

	left, right       float64 // target
	curLeft, curRight float64
	primed            bool
	done              bool // reports drained so the mixer drops it
}

func newSpatializer(s beep.Streamer) *spatializer {
	return &spatializer{s: s}
}

func (p *spatializer) set(left, right float64) {
	p.left, p.right = left, right
	if !p.primed {
		p.curLeft, p.curRight = left, right
		p.primed = true
	}
}

func (p *spatializer) Stream(samples [][2]float64) (int, bool) {
	if p.done {
		return 0, false
	}
	n, ok := p.s.Stream(samples)
	if n == 0 {
		return n, ok
	}
	dl := (p.left - p.curLeft) / float64(n)
	dr := (p.right - p.curRight) / float64(n)
	for i := range n {
		p.curLeft += dl
		p.curRight += dr
		samples[i][0] *= p.curLeft
		samples[i][1] *= p.curRight
	}
	p.curLeft, p.curRight = p.left, p.right
	return n, ok
}

func (p *spatializer) Err() error { return p.s.Err() }
