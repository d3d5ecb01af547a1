package controller

import (
	"sync"
	"time"
)

// Simulated is an in-process controller for demo mode. It remembers the last
// pulse so the HUD can draw a rumble meter that decays over the pulse length.
type Simulated struct {
	id   string
	hand Hand

	mu      sync.Mutex
	haptics bool
	last    Effect
	lastAt  time.Time
	pulses  int
	now     func() time.Time
}

// NewSimulated creates a simulated controller with a working actuator.
func NewSimulated(id string, hand Hand) *Simulated {
	return &Simulated{
		id:      id,
		hand:    hand,
		haptics: true,
		now:     time.Now,
	}
}

func (s *Simulated) ID() string { return s.id }
func (s *Simulated) Hand() Hand { return s.hand }

// Actuator returns the controller itself. The actuator is kept even when
// haptics are switched off so callers see a failing pulse rather than a
// missing actuator, like a gamepad that lists an actuator it cannot drive.
func (s *Simulated) Actuator() Actuator {
	return s
}

// Pulse records the effect.
func (s *Simulated) Pulse(e Effect) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.haptics {
		return ErrNoActuator
	}
	s.last = e
	s.lastAt = s.now()
	s.pulses++
	return nil
}

// SetHaptics switches the simulated actuator on or off.
func (s *Simulated) SetHaptics(on bool) {
	s.mu.Lock()
	s.haptics = on
	s.mu.Unlock()
}

// Haptics reports whether the simulated actuator works.
func (s *Simulated) Haptics() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.haptics
}

// Rumble returns the strong magnitude of the pulse still playing, 0 once it
// has run out.
func (s *Simulated) Rumble() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pulses == 0 || s.now().Sub(s.lastAt) > s.last.Duration {
		return 0
	}
	return s.last.Strong
}

// Pulses returns how many pulses were played.
func (s *Simulated) Pulses() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pulses
}

// Last returns the most recent effect.
func (s *Simulated) Last() Effect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
