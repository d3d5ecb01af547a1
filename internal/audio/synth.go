package audio

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/gopxl/beep/v2"
)

// Call names a procedural creature call.
type Call string

const (
	CallParrot     Call = "parrot"
	CallWoodpecker Call = "woodpecker"
	CallWind       Call = "wind"
	CallTone       Call = "tone" // steady 440 Hz, for checks
)

// ParseCall maps a scene call name to a Call.
func ParseCall(s string) (Call, error) {
	switch c := Call(strings.ToLower(strings.TrimSpace(s))); c {
	case CallParrot, CallWoodpecker, CallWind, CallTone:
		return c, nil
	default:
		return "", fmt.Errorf("unknown call %q", s)
	}
}

// floatBuffer is mono samples at unity gain.
type floatBuffer []float64

func secondsToSamples(sr beep.SampleRate, sec float64) int {
	return int(sec * float64(sr))
}

// sweep adds a sine to buf[from:from+n] whose frequency follows freq(t),
// t running 0..1 across the span.
func sweep(buf floatBuffer, sr beep.SampleRate, from, n int, freq func(t float64) float64, gain float64) {
	phase := 0.0
	for i := range n {
		if from+i >= len(buf) {
			return
		}
		t := float64(i) / float64(n)
		buf[from+i] += gain * math.Sin(2*math.Pi*phase)
		phase += freq(t) / float64(sr)
		if phase >= 1 {
			phase--
		}
	}
}

// shape applies an attack/release envelope to buf[from:from+n].
func shape(buf floatBuffer, from, n, attack, release int) {
	for i := range n {
		if from+i >= len(buf) {
			return
		}
		vol := 1.0
		switch {
		case i < attack:
			vol = float64(i) / float64(attack)
		case i >= n-release:
			vol = float64(n-i) / float64(release)
		}
		buf[from+i] *= vol
	}
}

// parrot is two rising screeches around 2-3.5 kHz followed by a pause.
func parrot(sr beep.SampleRate) floatBuffer {
	buf := make(floatBuffer, secondsToSamples(sr, 2.5))
	n := secondsToSamples(sr, 0.22)
	for _, start := range []float64{0.1, 0.45} {
		from := secondsToSamples(sr, start)
		sweep(buf, sr, from, n, func(t float64) float64 {
			return 2000 + 1500*t + 300*math.Sin(2*math.Pi*12*t)
		}, 0.6)
		sweep(buf, sr, from, n, func(t float64) float64 {
			return 2*(2000+1500*t) + 300*math.Sin(2*math.Pi*12*t)
		}, 0.2)
		shape(buf, from, n, n/10, n/3)
	}
	return buf
}

// woodpecker is a fast drum roll of short knocks that slows down, then rests.
func woodpecker(sr beep.SampleRate, rng *rand.Rand) floatBuffer {
	buf := make(floatBuffer, secondsToSamples(sr, 3))
	knock := secondsToSamples(sr, 0.012)
	t := 0.2
	gap := 0.05
	for range 16 {
		from := secondsToSamples(sr, t)
		for i := range knock {
			if from+i >= len(buf) {
				break
			}
			decay := math.Exp(-float64(i) / float64(knock) * 5)
			tone := math.Sin(2 * math.Pi * 900 * float64(i) / float64(sr))
			buf[from+i] = decay * (0.6*tone + 0.4*(rng.Float64()*2-1))
		}
		t += gap
		gap *= 1.04
	}
	return buf
}

// wind is low-passed noise with a slow swell.
func wind(sr beep.SampleRate, rng *rand.Rand) floatBuffer {
	buf := make(floatBuffer, secondsToSamples(sr, 4))
	const alpha = 0.02
	y := 0.0
	for i := range buf {
		y += alpha * ((rng.Float64()*2 - 1) - y)
		swell := 0.6 + 0.4*math.Sin(2*math.Pi*float64(i)/float64(len(buf)))
		buf[i] = 4 * y * swell
	}
	// Fade the seam so the loop does not click.
	edge := secondsToSamples(sr, 0.05)
	shape(buf, 0, len(buf), edge, edge)
	return buf
}

func tone(sr beep.SampleRate) floatBuffer {
	buf := make(floatBuffer, int(sr)) // one second holds a whole number of 440 Hz cycles
	sweep(buf, sr, 0, len(buf), func(float64) float64 { return 440 }, 0.8)
	return buf
}

// generate renders one loop period of a call.
func generate(c Call, sr beep.SampleRate, seed int64) floatBuffer {
	rng := rand.New(rand.NewSource(seed))
	switch c {
	case CallParrot:
		return parrot(sr)
	case CallWoodpecker:
		return woodpecker(sr, rng)
	case CallWind:
		return wind(sr, rng)
	case CallTone:
		return tone(sr)
	default:
		return nil
	}
}

// Synth returns an endlessly looping streamer for a call.
func Synth(c Call, sr beep.SampleRate, seed int64) (beep.Streamer, error) {
	mono := generate(c, sr, seed)
	if len(mono) == 0 {
		return nil, fmt.Errorf("unknown call %q", c)
	}

	format := beep.Format{SampleRate: sr, NumChannels: 2, Precision: 2}
	buffer := beep.NewBuffer(format)
	pos := 0
	buffer.Append(beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if pos >= len(mono) {
			return 0, false
		}
		n := copy2(samples, mono[pos:])
		pos += n
		return n, true
	}))
	return beep.Loop2(buffer.Streamer(0, buffer.Len()))
}

func copy2(dst [][2]float64, src floatBuffer) int {
	n := min(len(dst), len(src))
	for i := range n {
		dst[i][0] = src[i]
		dst[i][1] = src[i]
	}
	return n
}
