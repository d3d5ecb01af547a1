// Package scene wires the positional audio engine, the direction indicator
// and haptic feedback together and steps them once per frame.
package scene

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gopxl/beep/v2"

	"soundscape.klederson.com/internal/audio"
	"soundscape.klederson.com/internal/config"
	"soundscape.klederson.com/internal/frame"
	"soundscape.klederson.com/internal/haptics"
	"soundscape.klederson.com/internal/indicator"
	"soundscape.klederson.com/internal/log"
	"soundscape.klederson.com/internal/spatial"
)

var (
	// ErrUnknownSource is returned for IDs that are not in the scene.
	ErrUnknownSource = errors.New("unknown source")
	// ErrAmbientSource is returned when moving a source heard everywhere.
	ErrAmbientSource = errors.New("ambient source has no position")
)

// Options control how a scene file is realised.
type Options struct {
	SampleRate beep.SampleRate
	BaseDir    string // relative call files resolve against it
	Heading    string // overrides the scene file when set
}

// Entry is one realised source.
type Entry struct {
	Name    string
	Source  *audio.Source
	Ambient bool
	Haptic  bool

	route *route // nil for still sources
}

// SourceState is a per-frame view of one source.
type SourceState struct {
	ID       uuid.UUID
	Name     string
	Position spatial.Vec3
	Distance float64
	Bearing  float64 // relative to current yaw, radians
	Peak     float64
	Left     float64 // stereo gains
	Right    float64
	Playing  bool
	Ambient  bool
}

// Snapshot is everything a front end needs to draw one frame.
type Snapshot struct {
	Frame   uint64
	Elapsed time.Duration
	Pose    spatial.Pose
	Yaw     float64
	Mode    string
	Ring    indicator.Ring
	Points  []indicator.PointState
	Pulses  []haptics.Pulse
	Sources []SourceState
}

// Scene owns the engine, the indicator and the haptics for one listener.
// Step is safe to call from several front ends; calls are serialized.
type Scene struct {
	mu        sync.Mutex
	name      string
	engine    *audio.Engine
	indicator *indicator.DirectionIndicator
	haptics   *haptics.Feedback
	entries   []*Entry
	start     spatial.Pose
	clock     time.Duration // drives source paths
	frames    uint64
	last      Snapshot
}

// Build realises a scene description. Sources that cannot be loaded are
// skipped with a warning; the scene fails only if none can be.
func Build(cfg config.Scene, opts Options) (*Scene, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.SampleRate == 0 {
		opts.SampleRate = config.SampleRate
	}

	iopts := indicatorOptions(cfg.Indicator)
	heading := cfg.Indicator.Heading
	if opts.Heading != "" {
		heading = opts.Heading
	}
	mode, err := indicator.ParseHeadingMode(heading)
	if err != nil {
		return nil, err
	}
	iopts.Mode = mode

	s := &Scene{
		name:      cfg.Name,
		engine:    audio.NewEngine(opts.SampleRate),
		indicator: indicator.New(iopts),
		haptics:   haptics.New(),
		start: spatial.PoseFromQuaternion(
			spatial.Vec3{X: cfg.Listener.X, Y: cfg.Listener.Y, Z: cfg.Listener.Z},
			spatial.IdentityQuat),
	}
	s.engine.SetListener(s.start)
	ctx := frame.Context{Pose: s.start}

	for _, sc := range cfg.Sources {
		if err := s.add(sc, opts, ctx); err != nil {
			log.Warn("skipping source", "source", sc.Name, "err", err)
		}
	}
	if len(cfg.Sources) > 0 && len(s.entries) == 0 {
		return nil, fmt.Errorf("scene %q: no source could be loaded", cfg.Name)
	}

	log.Info("scene ready",
		"scene", cfg.Name,
		"sources", len(s.entries),
		"points", s.indicator.Len(),
		"channels", s.haptics.Len(),
		"heading", mode)
	return s, nil
}

func (s *Scene) add(sc config.Source, opts Options, ctx frame.Context) error {
	pos := spatial.Vec3{X: sc.Position.X, Y: sc.Position.Y, Z: sc.Position.Z}

	var (
		src *audio.Source
		err error
	)
	switch {
	case sc.Ambient && sc.File != "":
		var st beep.Streamer
		st, err = audio.LoadMP3(resolve(opts.BaseDir, sc.File), opts.SampleRate)
		if err == nil {
			src = s.engine.AddAmbient(sc.Name, st)
		}
	case sc.Ambient:
		src, err = s.engine.AddAmbientCall(sc.Name, audio.Call(sc.Call))
	case sc.File != "":
		src, err = s.engine.AddFile(sc.Name, resolve(opts.BaseDir, sc.File), pos)
	default:
		var c audio.Call
		if c, err = audio.ParseCall(sc.Call); err == nil {
			src, err = s.engine.AddCall(sc.Name, c, pos)
		}
	}
	if err != nil {
		return err
	}

	e := &Entry{Name: sc.Name, Source: src, Ambient: sc.Ambient}
	if sc.Path != nil {
		e.route = newRoute(pos, sc.Path)
	}
	if !sc.Ambient {
		if err := s.indicator.AddTarget(src.View(config.IndicatorFFTSize), ctx); err != nil {
			return err
		}
		if sc.Haptics == nil || !sc.Haptics.Disabled {
			cfg := channelConfig(sc.Haptics)
			if err := s.haptics.RegisterChannel(src.View(config.HapticsFFTSize), cfg); err != nil {
				s.indicator.RemoveTarget(src.ID())
				return err
			}
			e.Haptic = true
		}
	}
	s.entries = append(s.entries, e)

	if !sc.Paused {
		src.Play()
	}
	return nil
}

func resolve(base, path string) string {
	if base == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

func indicatorOptions(c config.Indicator) indicator.Options {
	o := indicator.DefaultOptions()
	if c.RingRadius > 0 {
		o.Ring.Radius = c.RingRadius
	}
	if c.RingColor != "" {
		o.Ring.Color = c.RingColor
	}
	if c.PointColor != "" {
		o.Point.Color = c.PointColor
	}
	return o
}

func channelConfig(c *config.Channel) haptics.ChannelConfig {
	cfg := haptics.DefaultChannelConfig()
	if c == nil {
		return cfg
	}
	if c.IntensityMultiplier != nil {
		cfg.IntensityMultiplier = *c.IntensityMultiplier
	}
	if c.FrequencyRange != nil {
		cfg.FrequencyRange = *c.FrequencyRange
	}
	if c.MinIntensity != nil {
		cfg.MinIntensity = *c.MinIntensity
	}
	if c.MaxIntensity != nil {
		cfg.MaxIntensity = *c.MaxIntensity
	}
	if c.Threshold != nil {
		cfg.Threshold = *c.Threshold
	}
	return cfg
}

// Name returns the scene name.
func (s *Scene) Name() string { return s.name }

// Start is the listener pose the scene was built with.
func (s *Scene) Start() spatial.Pose { return s.start }

// Engine exposes the audio engine, for starting the speaker.
func (s *Scene) Engine() *audio.Engine { return s.engine }

// Entries returns the realised sources in scene order.
func (s *Scene) Entries() []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Step advances the scene by one frame: moving sources, listener, audio and
// spectra first, then the indicator, then haptics.
func (s *Scene) Step(ctx frame.Context) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx.Delta > 0 {
		s.clock += ctx.Delta
	}
	for _, e := range s.entries {
		if e.route != nil {
			e.Source.SetPosition(e.route.at(s.clock))
		}
	}

	s.engine.SetListener(ctx.Pose)
	s.engine.Advance(ctx.Delta)
	for _, e := range s.entries {
		e.Source.Refresh()
	}

	s.indicator.Update(ctx)
	pulses := s.haptics.Update(ctx)

	s.frames++
	s.last = s.snapshot(ctx, pulses)
	return s.last
}

func (s *Scene) snapshot(ctx frame.Context, pulses []haptics.Pulse) Snapshot {
	yaw := spatial.Yaw(ctx.Pose)
	snap := Snapshot{
		Frame:   s.frames,
		Elapsed: ctx.Elapsed,
		Pose:    ctx.Pose,
		Yaw:     yaw,
		Mode:    s.indicator.Mode().String(),
		Ring:    s.indicator.Ring(),
		Points:  s.indicator.Points(),
		Pulses:  pulses,
		Sources: make([]SourceState, 0, len(s.entries)),
	}
	for _, e := range s.entries {
		pos := e.Source.Position()
		st := SourceState{
			ID:       e.Source.ID(),
			Name:     e.Name,
			Position: pos,
			Playing:  e.Source.Playing(),
			Ambient:  e.Ambient,
		}
		st.Left, st.Right = e.Source.Gains()
		if !e.Ambient {
			st.Distance = spatial.Distance(pos, ctx.Pose.Position)
			st.Bearing = spatial.SignedAngle(spatial.Bearing(pos, ctx.Pose.Position) - yaw)
			st.Peak = e.Source.View(config.IndicatorFFTSize).Spectrum().PeakIntensity()
		}
		snap.Sources = append(snap.Sources, st)
	}
	return snap
}

// Last returns the snapshot from the most recent Step.
func (s *Scene) Last() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Mode returns the indicator heading mode.
func (s *Scene) Mode() indicator.HeadingMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indicator.Mode()
}

// SetMode switches the indicator heading mode.
func (s *Scene) SetMode(m indicator.HeadingMode) {
	s.mu.Lock()
	s.indicator.SetMode(m)
	s.mu.Unlock()
}

// SetPlaying starts or stops a source.
func (s *Scene) SetPlaying(id uuid.UUID, playing bool) error {
	e, ok := s.entry(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, id)
	}
	if playing {
		e.Source.Play()
	} else {
		e.Source.Stop()
	}
	return nil
}

// Toggle flips a source between playing and stopped.
func (s *Scene) Toggle(id uuid.UUID) error {
	e, ok := s.entry(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, id)
	}
	return s.SetPlaying(id, !e.Source.Playing())
}

// Move places a source at pos. A source on a path stops following it.
func (s *Scene) Move(id uuid.UUID, pos spatial.Vec3) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.Source.ID() != id {
			continue
		}
		if e.Ambient {
			return fmt.Errorf("%w: %s", ErrAmbientSource, e.Name)
		}
		e.route = nil
		e.Source.SetPosition(pos)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownSource, id)
}

// Remove takes a source out of the mix, the indicator and haptics.
func (s *Scene) Remove(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e.Source.ID() != id {
			continue
		}
		s.engine.RemoveSource(id)
		s.indicator.RemoveTarget(id)
		s.haptics.UnregisterChannel(id)
		s.entries = append(s.entries[:i], s.entries[i+1:]...)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownSource, id)
}

func (s *Scene) entry(id uuid.UUID) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.Source.ID() == id {
			return e, true
		}
	}
	return nil, false
}

// Close stops the audio.
func (s *Scene) Close() {
	s.engine.Close()
}
