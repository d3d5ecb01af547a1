package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Environment overrides.
const (
	EnvScene    = "SOUNDSCAPE_SCENE"
	EnvLogLevel = "SOUNDSCAPE_LOG_LEVEL"
)

// Vec is a position in a scene file.
type Vec struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// Channel mirrors a haptic channel's tuning. Nil pointers take defaults.
type Channel struct {
	IntensityMultiplier *float64 `yaml:"intensity_multiplier,omitempty"`
	FrequencyRange      *[2]int  `yaml:"frequency_range,omitempty"`
	MinIntensity        *float64 `yaml:"min_intensity,omitempty"`
	MaxIntensity        *float64 `yaml:"max_intensity,omitempty"`
	Threshold           *float64 `yaml:"threshold,omitempty"`
	Disabled            bool     `yaml:"disabled,omitempty"`
}

// Path loops a source from its position through the waypoints and back at
// a constant speed.
type Path struct {
	Waypoints []Vec   `yaml:"waypoints"`
	Speed     float64 `yaml:"speed"` // metres per second
}

// Source is one sound in the scene. Call names a procedural call; File, when
// set, is an MP3 that replaces it.
type Source struct {
	Name     string   `yaml:"name"`
	Call     string   `yaml:"call,omitempty"`
	File     string   `yaml:"file,omitempty"`
	Position Vec      `yaml:"position"`
	Ambient  bool     `yaml:"ambient,omitempty"` // heard everywhere, not indicated
	Paused   bool     `yaml:"paused,omitempty"`
	Path     *Path    `yaml:"path,omitempty"`
	Haptics  *Channel `yaml:"haptics,omitempty"`
}

// Indicator tunes the head-locked ring. Zero values take defaults.
type Indicator struct {
	Heading    string  `yaml:"heading,omitempty"`
	RingRadius float64 `yaml:"ring_radius,omitempty"`
	RingColor  string  `yaml:"ring_color,omitempty"`
	PointColor string  `yaml:"point_color,omitempty"`
}

// Scene is the on-disk description of a soundscape.
type Scene struct {
	Name      string    `yaml:"name"`
	Listener  Vec       `yaml:"listener"`
	Indicator Indicator `yaml:"indicator"`
	Sources   []Source  `yaml:"sources"`
}

// ErrInvalidScene is wrapped by Validate failures.
var ErrInvalidScene = errors.New("invalid scene")

// DefaultScene is the forest clearing: a parrot ahead and to the left of the
// start point, a woodpecker behind, and wind everywhere.
func DefaultScene() Scene {
	return Scene{
		Name:     "forest",
		Listener: Vec{ListenerStartX, ListenerStartY, ListenerStartZ},
		Sources: []Source{
			{Name: "parrot", Call: "parrot", Position: Vec{3, 2, -8}},
			{Name: "woodpecker", Call: "woodpecker", Position: Vec{5, 2, 2}},
			{Name: "wind", Call: "wind", Ambient: true},
		},
	}
}

// LoadScene reads a scene file. An empty path returns the default scene.
func LoadScene(path string) (Scene, error) {
	if path == "" {
		return DefaultScene(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Scene{}, fmt.Errorf("read scene: %w", err)
	}
	return ParseScene(data)
}

// ParseScene decodes and validates scene YAML. Unknown keys are rejected.
func ParseScene(data []byte) (Scene, error) {
	var s Scene
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return Scene{}, fmt.Errorf("parse scene: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Scene{}, err
	}
	return s, nil
}

// Validate checks names are unique and every source has something to play.
func (s Scene) Validate() error {
	seen := make(map[string]bool, len(s.Sources))
	for i, src := range s.Sources {
		if src.Name == "" {
			return fmt.Errorf("%w: source %d has no name", ErrInvalidScene, i)
		}
		if seen[src.Name] {
			return fmt.Errorf("%w: duplicate source %q", ErrInvalidScene, src.Name)
		}
		seen[src.Name] = true
		if src.Call == "" && src.File == "" {
			return fmt.Errorf("%w: source %q needs a call or a file", ErrInvalidScene, src.Name)
		}
		if p := src.Path; p != nil {
			switch {
			case src.Ambient:
				return fmt.Errorf("%w: ambient source %q cannot follow a path", ErrInvalidScene, src.Name)
			case len(p.Waypoints) == 0:
				return fmt.Errorf("%w: path of %q has no waypoints", ErrInvalidScene, src.Name)
			case !(p.Speed > 0):
				return fmt.Errorf("%w: path of %q needs a positive speed", ErrInvalidScene, src.Name)
			}
		}
	}
	return nil
}

// Marshal encodes the scene as YAML.
func (s Scene) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

// Resolve picks a flag value, then the environment, then def.
func Resolve(flag, env, def string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}
