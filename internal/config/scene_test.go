package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const sampleScene = `
name: clearing
listener: {x: 1, y: 1.7, z: 0}
indicator:
  heading: relative
  ring_radius: 3
sources:
  - name: parrot
    call: parrot
    position: {x: 3, y: 2, z: -8}
    path:
      waypoints: [{x: -3, y: 2, z: -8}]
      speed: 1.5
    haptics:
      threshold: 0.5
      frequency_range: [2, 8]
  - name: drums
    file: drums.mp3
    position: {x: -4, y: 0, z: 1}
    paused: true
    haptics:
      disabled: true
`

func TestParseScene(t *testing.T) {
	s, err := ParseScene([]byte(sampleScene))
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "clearing" || s.Listener != (Vec{1, 1.7, 0}) {
		t.Errorf("header = %+v", s)
	}
	if s.Indicator.Heading != "relative" || s.Indicator.RingRadius != 3 {
		t.Errorf("indicator = %+v", s.Indicator)
	}
	if len(s.Sources) != 2 {
		t.Fatalf("sources = %d", len(s.Sources))
	}

	parrot := s.Sources[0]
	if parrot.Haptics == nil || *parrot.Haptics.Threshold != 0.5 || *parrot.Haptics.FrequencyRange != [2]int{2, 8} {
		t.Errorf("parrot haptics = %+v", parrot.Haptics)
	}
	if parrot.Path == nil || parrot.Path.Speed != 1.5 || parrot.Path.Waypoints[0] != (Vec{-3, 2, -8}) {
		t.Errorf("parrot path = %+v", parrot.Path)
	}
	if parrot.Haptics.IntensityMultiplier != nil {
		t.Error("unset field decoded")
	}
	drums := s.Sources[1]
	if drums.File != "drums.mp3" || !drums.Paused || !drums.Haptics.Disabled {
		t.Errorf("drums = %+v", drums)
	}
}

func TestParseScene_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "sources:\n  - name: a\n    call: wind\n    colour: red\n"},
		{"no name", "sources:\n  - call: wind\n"},
		{"nothing to play", "sources:\n  - name: a\n"},
		{"duplicate", "sources:\n  - {name: a, call: wind}\n  - {name: a, call: tone}\n"},
		{"empty path", "sources:\n  - {name: a, call: tone, path: {speed: 1}}\n"},
		{"still path", "sources:\n  - {name: a, call: tone, path: {waypoints: [{x: 1}]}}\n"},
		{"ambient path", "sources:\n  - {name: a, call: wind, ambient: true, path: {waypoints: [{x: 1}], speed: 1}}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseScene([]byte(tt.yaml)); err == nil {
				t.Error("expected error")
			}
		})
	}

	_, err := ParseScene([]byte("sources:\n  - name: a\n"))
	if !errors.Is(err, ErrInvalidScene) {
		t.Errorf("err = %v, want ErrInvalidScene", err)
	}
}

func TestDefaultScene_RoundTrip(t *testing.T) {
	def := DefaultScene()
	if err := def.Validate(); err != nil {
		t.Fatal(err)
	}
	data, err := def.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "scene.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadScene(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Sources) != 3 || got.Sources[0].Position != (Vec{3, 2, -8}) || !got.Sources[2].Ambient {
		t.Errorf("round trip = %+v", got)
	}
}

func TestLoadScene_EmptyPathAndMissingFile(t *testing.T) {
	s, err := LoadScene("")
	if err != nil || s.Name != "forest" {
		t.Errorf("default = %+v, %v", s, err)
	}
	if _, err := LoadScene(filepath.Join(t.TempDir(), "nope.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file err = %v", err)
	}
}

func TestResolve(t *testing.T) {
	t.Setenv(EnvLogLevel, "debug")
	if got := Resolve("warn", EnvLogLevel, "info"); got != "warn" {
		t.Errorf("flag should win, got %q", got)
	}
	if got := Resolve("", EnvLogLevel, "info"); got != "debug" {
		t.Errorf("env should win over default, got %q", got)
	}
	t.Setenv(EnvLogLevel, "")
	if got := Resolve("", EnvLogLevel, "info"); got != "info" {
		t.Errorf("default, got %q", got)
	}
}
