package controller

import "sync"

// Command is a pulse to be played by a remote page on one of its gamepads.
type Command struct {
	Hand   Hand
	Effect Effect
}

// Outbox collects pulse commands for remote controllers during a frame.
type Outbox struct {
	mu   sync.Mutex
	cmds []Command
}

// Drain returns and clears the queued commands.
func (o *Outbox) Drain() []Command {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.cmds
	o.cmds = nil
	return out
}

func (o *Outbox) push(c Command) {
	o.mu.Lock()
	o.cmds = append(o.cmds, c)
	o.mu.Unlock()
}

// Remote is a gamepad reported by a WebXR page. Pulses are queued on the
// outbox and sent back with the frame reply.
type Remote struct {
	id      string
	hand    Hand
	haptics bool
	out     *Outbox
}

// NewRemote creates a remote controller. haptics reports whether the page
// saw a haptic actuator on the gamepad.
func NewRemote(id string, hand Hand, haptics bool, out *Outbox) *Remote {
	return &Remote{id: id, hand: hand, haptics: haptics, out: out}
}

func (r *Remote) ID() string { return r.id }
func (r *Remote) Hand() Hand { return r.hand }

// Actuator returns nil when the page reported no actuator.
func (r *Remote) Actuator() Actuator {
	if !r.haptics || r.out == nil {
		return nil
	}
	return r
}

// Pulse queues the effect for the page.
func (r *Remote) Pulse(e Effect) error {
	r.out.push(Command{Hand: r.hand, Effect: e})
	return nil
}
