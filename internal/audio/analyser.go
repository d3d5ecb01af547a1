package audio

import (
	"math"
	"math/cmplx"

	"github.com/madelynnblue/go-dsp/fft"

	"soundscape.klederson.com/internal/spectrum"
)

// Analyser defaults, matching a Web Audio AnalyserNode.
const (
	DefaultSmoothing   = 0.8
	DefaultMinDecibels = -100.0
	DefaultMaxDecibels = -30.0
)

// Analyser turns time-domain samples into byte frequency bins the way a Web
// Audio AnalyserNode does: Blackman window, magnitude smoothing over time,
// and a decibel range mapped onto 0-255.
type Analyser struct {
	Smoothing   float64
	MinDecibels float64
	MaxDecibels float64

	size   int
	window []float64
	buf    []float64
	prev   []float64
}

// NewAnalyser creates an analyser for fftSize samples producing fftSize/2 bins.
// fftSize must be a power of two.
func NewAnalyser(fftSize int) *Analyser {
	a := &Analyser{
		Smoothing:   DefaultSmoothing,
		MinDecibels: DefaultMinDecibels,
		MaxDecibels: DefaultMaxDecibels,
		size:        fftSize,
		window:      make([]float64, fftSize),
		buf:         make([]float64, fftSize),
		prev:        make([]float64, fftSize/2),
	}

	const a0, a1, a2 = 0.42, 0.5, 0.08
	n := float64(fftSize)
	for i := range fftSize {
		x := 2 * math.Pi * float64(i) / n
		a.window[i] = a0 - a1*math.Cos(x) + a2*math.Cos(2*x)
	}
	return a
}

// FFTSize returns the window length.
func (a *Analyser) FFTSize() int { return a.size }

// Bins returns the number of frequency bins produced.
func (a *Analyser) Bins() int { return a.size / 2 }

// Analyse consumes the latest samples (the most recent fftSize are used,
// missing ones are silence) and returns a fresh spectrum.
func (a *Analyser) Analyse(samples []float64) spectrum.Sample {
	clear(a.buf)
	if len(samples) > a.size {
		samples = samples[len(samples)-a.size:]
	}
	copy(a.buf[a.size-len(samples):], samples)
	for i := range a.buf {
		a.buf[i] *= a.window[i]
	}

	bins := fft.FFTReal(a.buf)

	out := make(spectrum.Sample, a.Bins())
	scale := spectrum.MaxMagnitude / (a.MaxDecibels - a.MinDecibels)
	for k := range out {
		mag := cmplx.Abs(bins[k]) / float64(a.size)
		a.prev[k] = a.Smoothing*a.prev[k] + (1-a.Smoothing)*mag
		db := 20 * math.Log10(a.prev[k])
		v := math.Floor(scale * (db - a.MinDecibels))
		// -Inf from silence lands below zero.
		out[k] = uint8(max(0, min(v, spectrum.MaxMagnitude)))
	}
	return out
}

// Reset drops smoothing history.
func (a *Analyser) Reset() {
	clear(a.prev)
}
