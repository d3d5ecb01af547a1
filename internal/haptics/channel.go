// Package haptics turns the loudness of playing sound sources into rumble
// pulses on connected hand controllers.
package haptics

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"soundscape.klederson.com/internal/spectrum"
)

// Source is an audio source that can drive a haptic channel.
type Source interface {
	ID() uuid.UUID
	Playing() bool
	Spectrum() spectrum.Sample
}

// ChannelConfig maps a source's sub-band energy to pulse intensity.
type ChannelConfig struct {
	IntensityMultiplier float64 `yaml:"intensity_multiplier"`
	FrequencyRange      [2]int  `yaml:"frequency_range"` // bins, inclusive
	MinIntensity        float64 `yaml:"min_intensity"`
	MaxIntensity        float64 `yaml:"max_intensity"`
	Threshold           float64 `yaml:"threshold"`
}

// DefaultChannelConfig is the documented fallback used when a scene does not
// configure a channel.
func DefaultChannelConfig() ChannelConfig {
	return ChannelConfig{
		IntensityMultiplier: 1.0,
		FrequencyRange:      [2]int{0, 32},
		MinIntensity:        0.001,
		MaxIntensity:        1.0,
		Threshold:           0.3,
	}
}

// ErrInvalidChannel is wrapped by Validate failures.
var ErrInvalidChannel = errors.New("invalid haptic channel config")

// Validate rejects configs that could never produce a sensible pulse.
func (c ChannelConfig) Validate() error {
	lo, hi := c.FrequencyRange[0], c.FrequencyRange[1]
	switch {
	case lo < 0 || hi < lo:
		return fmt.Errorf("%w: frequency range [%d, %d]", ErrInvalidChannel, lo, hi)
	case c.IntensityMultiplier < 0 || math.IsNaN(c.IntensityMultiplier):
		return fmt.Errorf("%w: intensity multiplier %v", ErrInvalidChannel, c.IntensityMultiplier)
	case c.MinIntensity < 0 || c.MaxIntensity > 1 || c.MinIntensity > c.MaxIntensity:
		return fmt.Errorf("%w: intensity range [%v, %v] must sit inside [0, 1]", ErrInvalidChannel, c.MinIntensity, c.MaxIntensity)
	case math.IsNaN(c.Threshold):
		return fmt.Errorf("%w: threshold is NaN", ErrInvalidChannel)
	}
	return nil
}

// Intensity maps a spectrum to pulse strength, clamped to the config's range.
func (c ChannelConfig) Intensity(s spectrum.Sample) float64 {
	avg := s.BandAverage(c.FrequencyRange[0], c.FrequencyRange[1])
	return math.Min(math.Max(avg*c.IntensityMultiplier, c.MinIntensity), c.MaxIntensity)
}

// Fires reports whether an intensity reaches the threshold (inclusive).
func (c ChannelConfig) Fires(intensity float64) bool {
	return intensity >= c.Threshold
}

// Channel ties one source to its config and remembers the last evaluation.
type Channel struct {
	source Source
	config ChannelConfig

	lastIntensity float64
	lastFired     bool
	failing       map[string]bool // controller IDs whose last pulse failed
}

// Source returns the channel's source.
func (c *Channel) Source() Source { return c.source }

// Config returns the channel's config.
func (c *Channel) Config() ChannelConfig { return c.config }

// LastIntensity is the intensity computed on the last update the source was
// playing.
func (c *Channel) LastIntensity() float64 { return c.lastIntensity }

// LastFired reports whether the last update crossed the threshold.
func (c *Channel) LastFired() bool { return c.lastFired }
