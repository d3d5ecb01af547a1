// Package controller models hand controllers and their haptic actuators:
// simulated pads for the terminal HUD, remote pads reported by a WebXR page,
// and Bluetooth pads found by scanning.
package controller

import (
	"errors"
	"fmt"
	"time"
)

// Hand identifies which hand a controller is held in.
type Hand int

const (
	HandNone Hand = iota
	HandLeft
	HandRight
)

func (h Hand) String() string {
	switch h {
	case HandLeft:
		return "left"
	case HandRight:
		return "right"
	default:
		return "none"
	}
}

// ParseHand maps WebXR handedness strings to a Hand.
func ParseHand(s string) Hand {
	switch s {
	case "left":
		return HandLeft
	case "right":
		return HandRight
	default:
		return HandNone
	}
}

// Effect is a dual-rumble pulse. Magnitudes are in [0, 1].
type Effect struct {
	Duration time.Duration
	Strong   float64
	Weak     float64
}

// Actuator plays haptic effects on one controller.
type Actuator interface {
	Pulse(e Effect) error
}

// Handle is a connected controller. Actuator returns nil when the controller
// has no haptic support.
type Handle interface {
	ID() string
	Hand() Hand
	Actuator() Actuator
}

// Result is the outcome of a pulse request.
type Result int

const (
	ResultAbsent      Result = iota // no controller
	ResultUnsupported               // controller present, pulse not played
	ResultFired                     // pulse handed to the actuator
)

func (r Result) String() string {
	switch r {
	case ResultUnsupported:
		return "unsupported"
	case ResultFired:
		return "fired"
	default:
		return "absent"
	}
}

// ErrNoActuator is returned by actuators that have lost haptic support.
var ErrNoActuator = errors.New("controller has no haptic actuator")

// Trigger plays e on h. A missing actuator is not an error; a failing or
// panicking actuator is reported as ResultUnsupported with the cause.
func Trigger(h Handle, e Effect) (Result, error) {
	if h == nil {
		return ResultAbsent, nil
	}
	a := h.Actuator()
	if a == nil {
		return ResultUnsupported, nil
	}
	if err := safePulse(a, e); err != nil {
		return ResultUnsupported, err
	}
	return ResultFired, nil
}

func safePulse(a Actuator, e Effect) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("haptic actuator panicked: %v", r)
		}
	}()
	return a.Pulse(e)
}
