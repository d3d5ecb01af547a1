package config

import "time"

const (
	// Direction indicator ring (head-locked)
	RingRadius    = 2.0
	RingThickness = 0.2
	RingSegments  = 32
	RingColor     = "#00FF00"
	RingOpacity   = 0.8
	RingOffsetZ   = -2.0 // Ring sits 2 units in front of the camera

	// Bearing points
	PointColor     = "#FF0000"
	PointOpacity   = 1.0
	PointMinSize   = 0.001
	PointMaxSize   = 0.2
	PointZ         = 0.001 // Drawn just in front of the ring
	PointSizeScale = 1.0 / 500.0

	// Analysers
	IndicatorFFTSize = 64 // 32 bins, peak intensity for point size
	HapticsFFTSize   = 32 // 16 bins, band averages for rumble
	TapBufferSize    = 4096

	// Positional audio (inverse distance model)
	RefDistance   = 5.0
	RolloffFactor = 2.0
	SampleRate    = 44100

	// Haptics
	PulseDuration = 100 * time.Millisecond

	// Listener start pose
	ListenerStartX = 10.0
	ListenerStartY = 1.7
	ListenerStartZ = 0.0

	// HUD
	AspectRatio  = 0.5 // Terminal char aspect correction (chars are ~2:1 tall)
	TargetFPS    = 30
	TurnStepDeg  = 15.0
	MoveStep     = 0.5
	GlowDecay    = 400 * time.Millisecond // ring flash after a pulse
	HistoryLen   = 120                    // peak samples kept per source
	MaxLabelLen  = 8
	FocusRange   = 20.0 // metres at which the focus trail is shortest

	// Controller discovery
	ControllerTimeout = 30 * time.Second
	EvictInterval     = 5 * time.Second
	ClassicScanSec    = 8

	// Bridge
	DefaultBridgeAddr = ":8090"

	// App
	AppName    = "SOUNDSCAPE"
	AppVersion = "1.0"
)
