package hud

import (
	"math"
	"time"

	"soundscape.klederson.com/internal/config"
)

// Glow is the ring flash shown when a haptic pulse fires.
type Glow struct {
	level float64 // [0, 1]
	decay time.Duration
}

// NewGlow creates a Glow that fades over config.GlowDecay.
func NewGlow() *Glow {
	return &Glow{decay: config.GlowDecay}
}

// Trigger raises the glow to strength if it is brighter than the current level.
func (g *Glow) Trigger(strength float64) {
	if math.IsNaN(strength) {
		return
	}
	g.level = math.Max(g.level, math.Min(strength, 1))
}

// Update fades the glow by dt.
// Linear falloff: full strength fades to 0 over one decay period.
func (g *Glow) Update(dt time.Duration) {
	if g.decay <= 0 {
		g.level = 0
		return
	}
	g.level -= float64(dt) / float64(g.decay)
	if g.level < 0 {
		g.level = 0
	}
}

// Intensity returns the current glow [0, 1].
func (g *Glow) Intensity() float64 {
	if g == nil {
		return 0
	}
	return g.level
}
