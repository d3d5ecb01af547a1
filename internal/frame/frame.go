// Package frame carries the per-frame inputs every update reads: the listener
// pose, the connected controllers and the clock.
package frame

import (
	"time"

	"soundscape.klederson.com/internal/controller"
	"soundscape.klederson.com/internal/spatial"
)

// Context is a read-only snapshot for one rendered frame.
type Context struct {
	Pose        spatial.Pose
	Controllers []controller.Handle
	Elapsed     time.Duration // since the scene started
	Delta       time.Duration // since the previous frame
}

// HasControllers reports whether any controller is connected this frame.
func (c Context) HasControllers() bool {
	for _, h := range c.Controllers {
		if h != nil {
			return true
		}
	}
	return false
}
