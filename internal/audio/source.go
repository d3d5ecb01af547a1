package audio

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gopxl/beep/v2"

	"soundscape.klederson.com/internal/config"
	"soundscape.klederson.com/internal/spatial"
	"soundscape.klederson.com/internal/spectrum"
)

// Source is one positional sound in the scene:
//
//	[Call] -> [Ctrl] -> [Tap] -> [Spatializer] -> engine mixer
//
// The tap sits before spatialization so analysers see the dry signal.
type Source struct {
	id      uuid.UUID
	name    string
	ambient bool
	guard   sync.Locker // engine lock, held by the audio thread while streaming

	mu  sync.RWMutex
	pos spatial.Vec3

	ctrl    *beep.Ctrl
	tap     *Tap
	pan     *spatializer
	playing atomic.Bool

	viewMu sync.Mutex
	views  []*View
}

func newSource(name string, s beep.Streamer, pos spatial.Vec3, guard sync.Locker) *Source {
	src := &Source{
		id:    uuid.New(),
		name:  name,
		guard: guard,
		pos:   pos,
	}
	src.ctrl = &beep.Ctrl{Streamer: s, Paused: true}
	src.tap = NewTap(src.ctrl, config.TapBufferSize)
	src.pan = newSpatializer(src.tap)
	return src
}

// ID returns the source's stable handle.
func (s *Source) ID() uuid.UUID { return s.id }

// Name returns the scene name.
func (s *Source) Name() string { return s.name }

// Ambient reports whether the source is heard without position.
func (s *Source) Ambient() bool { return s.ambient }

// Position returns the world position.
func (s *Source) Position() spatial.Vec3 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pos
}

// SetPosition moves the source. Gains follow on the next audio block.
// Ambient sources ignore position.
func (s *Source) SetPosition(p spatial.Vec3) {
	s.mu.Lock()
	s.pos = p
	s.mu.Unlock()
}

// Gains returns the stereo gains set for the latest audio block.
func (s *Source) Gains() (left, right float64) {
	s.guard.Lock()
	defer s.guard.Unlock()
	return s.pan.left, s.pan.right
}

// Play starts or resumes the call.
func (s *Source) Play() { s.setPaused(false) }

// Stop silences the call. Analysers decay toward zero while stopped.
func (s *Source) Stop() { s.setPaused(true) }

func (s *Source) setPaused(paused bool) {
	s.guard.Lock()
	s.ctrl.Paused = paused
	s.guard.Unlock()
	s.playing.Store(!paused)
}

// Playing reports whether the call is audible.
func (s *Source) Playing() bool { return s.playing.Load() }

// Samples returns the latest n dry samples.
func (s *Source) Samples(n int) []float64 { return s.tap.Samples(n) }

// View returns the analyser view for fftSize, creating it on first use.
func (s *Source) View(fftSize int) *View {
	s.viewMu.Lock()
	defer s.viewMu.Unlock()
	for _, v := range s.views {
		if v.analyser.FFTSize() == fftSize {
			return v
		}
	}
	v := &View{src: s, analyser: NewAnalyser(fftSize)}
	v.sample = spectrum.Uniform(v.analyser.Bins(), 0)
	s.views = append(s.views, v)
	return v
}

// Refresh recomputes the spectrum of every view from the tap.
func (s *Source) Refresh() {
	s.viewMu.Lock()
	views := s.views
	s.viewMu.Unlock()
	for _, v := range views {
		v.refresh()
	}
}

// View is a source seen through one analyser. It satisfies the indicator's
// target and the haptics source contracts.
type View struct {
	src      *Source
	analyser *Analyser

	mu     sync.RWMutex
	sample spectrum.Sample
}

// ID returns the owning source's handle.
func (v *View) ID() uuid.UUID { return v.src.id }

// Position returns the owning source's position.
func (v *View) Position() spatial.Vec3 { return v.src.Position() }

// Playing reports whether the owning source is playing.
func (v *View) Playing() bool { return v.src.Playing() }

// Source returns the owning source.
func (v *View) Source() *Source { return v.src }

// FFTSize returns the analyser window length.
func (v *View) FFTSize() int { return v.analyser.FFTSize() }

// Spectrum returns the spectrum from the last refresh.
func (v *View) Spectrum() spectrum.Sample {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.sample
}

func (v *View) refresh() {
	samples := v.src.tap.Samples(v.analyser.FFTSize())
	v.mu.Lock()
	v.sample = v.analyser.Analyse(samples)
	v.mu.Unlock()
}
