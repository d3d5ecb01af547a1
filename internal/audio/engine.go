package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"

	"soundscape.klederson.com/internal/config"
	"soundscape.klederson.com/internal/log"
	"soundscape.klederson.com/internal/spatial"
)

// Engine mixes every source for one listener:
//
//	[Source...] -> [Mixer] -> [Master volume] -> [Speaker | Advance]
//
// Without a speaker the scene pumps audio itself through Advance so taps
// and analysers keep moving in muted or headless runs.
type Engine struct {
	mu       sync.Mutex
	sr       beep.SampleRate
	mixer    *beep.Mixer
	master   *effects.Volume
	sources  []*Source
	listener spatial.Pose
	speaking bool
	scratch  [][2]float64

	RefDistance   float64
	RolloffFactor float64
}

// NewEngine creates an engine at the given sample rate with the listener at
// the origin facing +Z.
func NewEngine(sr beep.SampleRate) *Engine {
	mixer := &beep.Mixer{}
	return &Engine{
		sr:            sr,
		mixer:         mixer,
		master:        &effects.Volume{Streamer: mixer, Base: 2},
		listener:      spatial.PoseFacing(spatial.Vec3{}, 0),
		scratch:       make([][2]float64, 512),
		RefDistance:   config.RefDistance,
		RolloffFactor: config.RolloffFactor,
	}
}

// SampleRate returns the mix rate.
func (e *Engine) SampleRate() beep.SampleRate { return e.sr }

// AddSource places a streamer in the scene. The source starts stopped.
func (e *Engine) AddSource(name string, s beep.Streamer, pos spatial.Vec3) *Source {
	return e.add(newSource(name, s, pos, &e.mu))
}

// AddAmbient adds a streamer heard at equal level everywhere, like wind.
func (e *Engine) AddAmbient(name string, s beep.Streamer) *Source {
	src := newSource(name, s, spatial.Vec3{}, &e.mu)
	src.ambient = true
	return e.add(src)
}

func (e *Engine) add(src *Source) *Source {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sources = append(e.sources, src)
	e.mixer.Add(src.pan)
	src.pan.set(e.gains(src))
	return src
}

// AddCall places a procedural call in the scene.
func (e *Engine) AddCall(name string, c Call, pos spatial.Vec3) (*Source, error) {
	s, err := e.synth(name, c)
	if err != nil {
		return nil, err
	}
	return e.AddSource(name, s, pos), nil
}

// AddAmbientCall adds a procedural ambient call.
func (e *Engine) AddAmbientCall(name string, c Call) (*Source, error) {
	s, err := e.synth(name, c)
	if err != nil {
		return nil, err
	}
	return e.AddAmbient(name, s), nil
}

// synth seeds each call by insertion order so scenes sound the same every run.
func (e *Engine) synth(name string, c Call) (beep.Streamer, error) {
	e.mu.Lock()
	seed := int64(len(e.sources) + 1)
	e.mu.Unlock()

	s, err := Synth(c, e.sr, seed)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", name, err)
	}
	return s, nil
}

// AddFile places a decoded MP3 loop in the scene.
func (e *Engine) AddFile(name, path string, pos spatial.Vec3) (*Source, error) {
	s, err := LoadMP3(path, e.sr)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", name, err)
	}
	return e.AddSource(name, s, pos), nil
}

// RemoveSource stops a source and takes it out of the mix. The mixer drops
// it on the next block.
func (e *Engine) RemoveSource(id uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, src := range e.sources {
		if src.id != id {
			continue
		}
		src.ctrl.Paused = true
		src.playing.Store(false)
		src.pan.done = true
		e.sources = append(e.sources[:i], e.sources[i+1:]...)
		return true
	}
	return false
}

// Sources returns the sources in insertion order.
func (e *Engine) Sources() []*Source {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Source, len(e.sources))
	copy(out, e.sources)
	return out
}

// SetListener moves the listener. Kept in step with the camera every frame.
func (e *Engine) SetListener(p spatial.Pose) {
	e.mu.Lock()
	e.listener = p
	e.mu.Unlock()
}

// Listener returns the listener pose.
func (e *Engine) Listener() spatial.Pose {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.listener
}

// SetMuted silences the master output. Taps still see the dry signal.
func (e *Engine) SetMuted(muted bool) {
	e.mu.Lock()
	e.master.Silent = muted
	e.mu.Unlock()
}

// Muted reports whether the master output is silent.
func (e *Engine) Muted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.master.Silent
}

// Stream renders the mix. It is what the speaker pulls from.
func (e *Engine) Stream(samples [][2]float64) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stream(samples)
}

// Err implements beep.Streamer.
func (e *Engine) Err() error { return nil }

func (e *Engine) stream(samples [][2]float64) (int, bool) {
	for _, src := range e.sources {
		src.pan.set(e.gains(src))
	}
	return e.master.Stream(samples)
}

func (e *Engine) gains(src *Source) (left, right float64) {
	if src.ambient {
		return PanGains(0)
	}
	return Gains(src.Position(), e.listener, e.RefDistance, e.RolloffFactor)
}

// Advance pulls d worth of audio through the graph and discards it. It is a
// no-op while the speaker is driving the engine. At most one second is
// rendered per call.
func (e *Engine) Advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.speaking || d <= 0 {
		return
	}
	n := e.sr.N(min(d, time.Second))
	for n > 0 {
		chunk := e.scratch[:min(n, len(e.scratch))]
		got, ok := e.stream(chunk)
		if !ok || got == 0 {
			return
		}
		n -= got
	}
}

// StartSpeaker opens the audio device and hands the engine to it.
func (e *Engine) StartSpeaker() error {
	if err := speaker.Init(e.sr, e.sr.N(time.Second/10)); err != nil {
		return fmt.Errorf("speaker init: %w", err)
	}
	e.mu.Lock()
	e.speaking = true
	e.mu.Unlock()
	speaker.Play(e)
	log.Info("speaker started", "sample_rate", int(e.sr))
	return nil
}

// Close stops every source and releases the speaker if it was opened.
func (e *Engine) Close() {
	for _, src := range e.Sources() {
		src.Stop()
	}
	e.mu.Lock()
	speaking := e.speaking
	e.speaking = false
	e.mu.Unlock()
	if speaking {
		speaker.Clear()
		speaker.Close()
	}
}
