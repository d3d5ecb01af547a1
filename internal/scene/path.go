package scene

import (
	"math"
	"time"

	"soundscape.klederson.com/internal/config"
	"soundscape.klederson.com/internal/spatial"
)

// route walks a closed loop from a source's start through its waypoints.
type route struct {
	points []spatial.Vec3
	lens   []float64 // length of the leg leaving points[i]
	total  float64
	speed  float64
}

func newRoute(start spatial.Vec3, p *config.Path) *route {
	r := &route{points: []spatial.Vec3{start}, speed: p.Speed}
	for _, w := range p.Waypoints {
		r.points = append(r.points, spatial.Vec3{X: w.X, Y: w.Y, Z: w.Z})
	}
	for i, a := range r.points {
		b := r.points[(i+1)%len(r.points)]
		l := spatial.Distance(a, b)
		r.lens = append(r.lens, l)
		r.total += l
	}
	return r
}

// at is the position after walking for t.
func (r *route) at(t time.Duration) spatial.Vec3 {
	if r.total == 0 || t <= 0 {
		return r.points[0]
	}
	d := math.Mod(r.speed*t.Seconds(), r.total)
	for i, l := range r.lens {
		if d > l {
			d -= l
			continue
		}
		if l == 0 {
			return r.points[i]
		}
		a, b := r.points[i], r.points[(i+1)%len(r.points)]
		return a.Add(b.Sub(a).Scale(d / l))
	}
	return r.points[0]
}
