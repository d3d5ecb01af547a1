package haptics

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"soundscape.klederson.com/internal/config"
	"soundscape.klederson.com/internal/controller"
	"soundscape.klederson.com/internal/frame"
	"soundscape.klederson.com/internal/log"
)

var (
	ErrNilSource        = errors.New("haptic source is nil")
	ErrDuplicateChannel = errors.New("haptic channel already registered")
)

// Pulse records one pulse request made during an update.
type Pulse struct {
	Source     uuid.UUID
	Controller string
	Hand       controller.Hand
	Effect     controller.Effect
	Result     controller.Result
}

// Feedback evaluates haptic channels once per frame. It is driven from the
// render loop and is not safe for concurrent use.
type Feedback struct {
	channels []*Channel
	index    map[uuid.UUID]int
	duration time.Duration
}

// New creates a Feedback with the standard pulse length.
func New() *Feedback {
	return &Feedback{
		index:    make(map[uuid.UUID]int),
		duration: config.PulseDuration,
	}
}

// RegisterChannel adds a channel for src.
func (f *Feedback) RegisterChannel(src Source, cfg ChannelConfig) error {
	if src == nil {
		return ErrNilSource
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	id := src.ID()
	if _, ok := f.index[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateChannel, id)
	}
	f.index[id] = len(f.channels)
	f.channels = append(f.channels, &Channel{source: src, config: cfg})
	return nil
}

// UnregisterChannel drops the channel for id.
func (f *Feedback) UnregisterChannel(id uuid.UUID) bool {
	i, ok := f.index[id]
	if !ok {
		return false
	}
	f.channels = append(f.channels[:i], f.channels[i+1:]...)
	delete(f.index, id)
	for j := i; j < len(f.channels); j++ {
		f.index[f.channels[j].source.ID()] = j
	}
	return true
}

// Channel returns the channel for id.
func (f *Feedback) Channel(id uuid.UUID) (*Channel, bool) {
	i, ok := f.index[id]
	if !ok {
		return nil, false
	}
	return f.channels[i], true
}

// Len returns the number of channels.
func (f *Feedback) Len() int { return len(f.channels) }

// noteResult warns once when a controller starts failing and again only
// after it has recovered.
func (ch *Channel) noteResult(h controller.Handle, err error) {
	id := h.ID()
	if err == nil {
		if ch.failing[id] {
			delete(ch.failing, id)
			log.Debug("haptics recovered", "source", ch.source.ID(), "controller", id)
		}
		return
	}
	if ch.failing[id] {
		return
	}
	if ch.failing == nil {
		ch.failing = make(map[string]bool)
	}
	ch.failing[id] = true
	log.Warn("haptics not supported",
		"source", ch.source.ID(),
		"controller", id,
		"hand", h.Hand(),
		"err", err)
}

// Update fires pulses for every playing channel at or above its threshold on
// every connected controller. With no controllers it returns immediately.
func (f *Feedback) Update(ctx frame.Context) []Pulse {
	if !ctx.HasControllers() {
		return nil
	}

	var pulses []Pulse
	for _, ch := range f.channels {
		pulses = f.updateChannel(ch, ctx, pulses)
	}
	return pulses
}

func (f *Feedback) updateChannel(ch *Channel, ctx frame.Context, pulses []Pulse) (out []Pulse) {
	out = pulses
	defer func() {
		if r := recover(); r != nil {
			log.Warn("haptic channel update failed", "source", ch.source.ID(), "panic", r)
		}
	}()

	ch.lastFired = false
	if !ch.source.Playing() {
		return out
	}

	intensity := ch.config.Intensity(ch.source.Spectrum())
	ch.lastIntensity = intensity
	if !ch.config.Fires(intensity) {
		return out
	}
	ch.lastFired = true

	effect := controller.Effect{
		Duration: f.duration,
		Strong:   intensity,
		Weak:     intensity,
	}
	for _, h := range ctx.Controllers {
		if h == nil {
			continue
		}
		res, err := controller.Trigger(h, effect)
		ch.noteResult(h, err)
		out = append(out, Pulse{
			Source:     ch.source.ID(),
			Controller: h.ID(),
			Hand:       h.Hand(),
			Effect:     effect,
			Result:     res,
		})
	}
	return out
}
