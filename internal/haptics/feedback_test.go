package haptics

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"soundscape.klederson.com/internal/controller"
	"soundscape.klederson.com/internal/frame"
	"soundscape.klederson.com/internal/log"
	"soundscape.klederson.com/internal/spectrum"
)

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

type fakeSource struct {
	id      uuid.UUID
	playing bool
	spc     spectrum.Sample
	reads   int
}

func newSource(playing bool, spc spectrum.Sample) *fakeSource {
	return &fakeSource{id: uuid.New(), playing: playing, spc: spc}
}

func (s *fakeSource) ID() uuid.UUID { return s.id }
func (s *fakeSource) Playing() bool { return s.playing }
func (s *fakeSource) Spectrum() spectrum.Sample {
	s.reads++
	return s.spc
}

// half averages to exactly 0.5.
var half = spectrum.Sample{127, 128}

func configWith(threshold float64) ChannelConfig {
	cfg := DefaultChannelConfig()
	cfg.FrequencyRange = [2]int{0, 1}
	cfg.Threshold = threshold
	return cfg
}

func TestUpdate_ThresholdDecides(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		wantFire  bool
	}{
		{"below intensity", 0.3, true},
		{"exactly at intensity", 0.5, true},
		{"above intensity", 0.6, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New()
			src := newSource(true, half)
			if err := f.RegisterChannel(src, configWith(tt.threshold)); err != nil {
				t.Fatal(err)
			}
			pad := controller.NewSimulated("right", controller.HandRight)

			pulses := f.Update(frame.Context{Controllers: []controller.Handle{pad}})
			if fired := len(pulses) == 1; fired != tt.wantFire {
				t.Fatalf("pulses = %+v, want fire=%v", pulses, tt.wantFire)
			}
			ch, _ := f.Channel(src.ID())
			if !floatEquals(ch.LastIntensity(), 0.5) || ch.LastFired() != tt.wantFire {
				t.Errorf("channel state: intensity %v fired %v", ch.LastIntensity(), ch.LastFired())
			}
			if !tt.wantFire {
				return
			}
			p := pulses[0]
			if p.Result != controller.ResultFired || !floatEquals(p.Effect.Strong, 0.5) || p.Effect.Strong != p.Effect.Weak {
				t.Errorf("pulse = %+v", p)
			}
			if p.Effect.Duration != 100*time.Millisecond {
				t.Errorf("duration = %v", p.Effect.Duration)
			}
			if pad.Pulses() != 1 {
				t.Errorf("pad saw %d pulses", pad.Pulses())
			}
		})
	}
}

func TestUpdate_NoControllersIsNoop(t *testing.T) {
	f := New()
	src := newSource(true, half)
	_ = f.RegisterChannel(src, configWith(0.1))

	if pulses := f.Update(frame.Context{}); pulses != nil {
		t.Errorf("pulses = %+v", pulses)
	}
	if pulses := f.Update(frame.Context{Controllers: []controller.Handle{nil, nil}}); pulses != nil {
		t.Errorf("nil handles: pulses = %+v", pulses)
	}
	if src.reads != 0 {
		t.Errorf("spectrum read %d times without controllers", src.reads)
	}
}

func TestUpdate_SkipsSilentSources(t *testing.T) {
	f := New()
	stopped := newSource(false, spectrum.Uniform(16, 255))
	_ = f.RegisterChannel(stopped, DefaultChannelConfig())
	pad := controller.NewSimulated("left", controller.HandLeft)

	if pulses := f.Update(frame.Context{Controllers: []controller.Handle{pad}}); len(pulses) != 0 {
		t.Errorf("stopped source pulsed: %+v", pulses)
	}
}

func TestUpdate_EveryControllerEveryChannel(t *testing.T) {
	f := New()
	a := newSource(true, spectrum.Uniform(16, 255))
	b := newSource(true, spectrum.Uniform(16, 200))
	_ = f.RegisterChannel(a, DefaultChannelConfig())
	_ = f.RegisterChannel(b, DefaultChannelConfig())

	left := controller.NewSimulated("left", controller.HandLeft)
	right := controller.NewSimulated("right", controller.HandRight)
	pulses := f.Update(frame.Context{Controllers: []controller.Handle{left, right}})

	if len(pulses) != 4 {
		t.Fatalf("got %d pulses, want 4", len(pulses))
	}
	if left.Pulses() != 2 || right.Pulses() != 2 {
		t.Errorf("left %d right %d", left.Pulses(), right.Pulses())
	}
	// Last channel wins on the actuator.
	if !floatEquals(right.Last().Strong, 200.0/255) {
		t.Errorf("last strong = %v", right.Last().Strong)
	}
}

func TestUpdate_IntensityClamped(t *testing.T) {
	f := New()
	cfg := DefaultChannelConfig()
	cfg.IntensityMultiplier = 10
	cfg.MaxIntensity = 0.8
	src := newSource(true, spectrum.Uniform(16, 255))
	_ = f.RegisterChannel(src, cfg)
	pad := controller.NewSimulated("left", controller.HandLeft)

	pulses := f.Update(frame.Context{Controllers: []controller.Handle{pad}})
	if len(pulses) != 1 || !floatEquals(pulses[0].Effect.Strong, 0.8) {
		t.Errorf("pulses = %+v", pulses)
	}

	cfg = DefaultChannelConfig()
	cfg.Threshold = 0.001
	quiet := newSource(true, make(spectrum.Sample, 16))
	f2 := New()
	_ = f2.RegisterChannel(quiet, cfg)
	// Zero energy clamps up to MinIntensity, which meets a threshold set at it.
	pulses = f2.Update(frame.Context{Controllers: []controller.Handle{pad}})
	if len(pulses) != 1 || !floatEquals(pulses[0].Effect.Strong, 0.001) {
		t.Errorf("min clamp pulses = %+v", pulses)
	}
}

type brokenActuator struct{}

func (brokenActuator) Pulse(controller.Effect) error { panic("actuator gone") }

type brokenPad struct{}

func (brokenPad) ID() string                    { return "broken" }
func (brokenPad) Hand() controller.Hand         { return controller.HandLeft }
func (brokenPad) Actuator() controller.Actuator { return brokenActuator{} }

func TestUpdate_FailingControllerDoesNotStopOthers(t *testing.T) {
	f := New()
	src := newSource(true, half)
	_ = f.RegisterChannel(src, configWith(0.3))

	noRumble := &controller.Pad{Address: "AA:BB:CC:DD:EE:FF"}
	good := controller.NewSimulated("right", controller.HandRight)
	ctx := frame.Context{Controllers: []controller.Handle{brokenPad{}, noRumble, good}}

	for range 2 {
		pulses := f.Update(ctx)
		if len(pulses) != 3 {
			t.Fatalf("pulses = %+v", pulses)
		}
		want := []controller.Result{controller.ResultUnsupported, controller.ResultUnsupported, controller.ResultFired}
		for i, p := range pulses {
			if p.Result != want[i] {
				t.Errorf("pulse %d result %v, want %v", i, p.Result, want[i])
			}
		}
	}
	if good.Pulses() != 2 {
		t.Errorf("good pad pulses = %d", good.Pulses())
	}
}

func TestUpdate_WarnsOncePerFailingController(t *testing.T) {
	t.Setenv("GO_ENV", "")
	var buf bytes.Buffer
	log.Init(&buf, "warn")
	defer log.Discard()

	f := New()
	_ = f.RegisterChannel(newSource(true, half), configWith(0.3))
	pad := controller.NewSimulated("left", controller.HandLeft)
	pad.SetHaptics(false)
	ctx := frame.Context{Controllers: []controller.Handle{pad}}

	for range 30 {
		f.Update(ctx)
	}
	if n := strings.Count(buf.String(), "haptics not supported"); n != 1 {
		t.Fatalf("warnings while off = %d, want 1", n)
	}

	pad.SetHaptics(true)
	f.Update(ctx)
	pad.SetHaptics(false)
	f.Update(ctx)
	f.Update(ctx)
	if n := strings.Count(buf.String(), "haptics not supported"); n != 2 {
		t.Errorf("warnings after recovery = %d, want 2", n)
	}
}

func TestRegisterChannel_Errors(t *testing.T) {
	f := New()
	if err := f.RegisterChannel(nil, DefaultChannelConfig()); !errors.Is(err, ErrNilSource) {
		t.Errorf("nil: %v", err)
	}
	bad := DefaultChannelConfig()
	bad.FrequencyRange = [2]int{10, 2}
	if err := f.RegisterChannel(newSource(true, nil), bad); !errors.Is(err, ErrInvalidChannel) {
		t.Errorf("invalid: %v", err)
	}
	src := newSource(true, nil)
	_ = f.RegisterChannel(src, DefaultChannelConfig())
	if err := f.RegisterChannel(src, DefaultChannelConfig()); !errors.Is(err, ErrDuplicateChannel) {
		t.Errorf("duplicate: %v", err)
	}
}

func TestUnregisterChannel(t *testing.T) {
	f := New()
	a, b := newSource(true, nil), newSource(true, nil)
	_ = f.RegisterChannel(a, DefaultChannelConfig())
	_ = f.RegisterChannel(b, DefaultChannelConfig())

	if !f.UnregisterChannel(a.ID()) || f.UnregisterChannel(a.ID()) {
		t.Fatal("unregister results wrong")
	}
	if ch, ok := f.Channel(b.ID()); !ok || ch.Source().ID() != b.ID() || f.Len() != 1 {
		t.Error("index not rebuilt")
	}
}

func TestChannelConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ChannelConfig)
		ok     bool
	}{
		{"default", func(*ChannelConfig) {}, true},
		{"negative lo", func(c *ChannelConfig) { c.FrequencyRange[0] = -1 }, false},
		{"min above max", func(c *ChannelConfig) { c.MinIntensity = 0.9; c.MaxIntensity = 0.5 }, false},
		{"max above one", func(c *ChannelConfig) { c.MaxIntensity = 1.5 }, false},
		{"negative multiplier", func(c *ChannelConfig) { c.IntensityMultiplier = -2 }, false},
		{"NaN threshold", func(c *ChannelConfig) { c.Threshold = math.NaN() }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultChannelConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}
