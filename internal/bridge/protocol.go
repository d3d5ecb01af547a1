package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"soundscape.klederson.com/internal/controller"
	"soundscape.klederson.com/internal/scene"
	"soundscape.klederson.com/internal/spatial"
)

// MessageType identifies a websocket message.
type MessageType string

const (
	// Page → server
	TypeFrame  MessageType = "frame"  // XR pose and gamepads for one frame
	TypeToggle MessageType = "toggle" // play/stop a source
	TypeMode   MessageType = "mode"   // heading mode switch
	TypeMove   MessageType = "move"   // place a source

	// Server → page
	TypeState MessageType = "state" // indicator points and haptic pulses
	TypeError MessageType = "error"

	// Bidirectional
	TypePing MessageType = "ping"
	TypePong MessageType = "pong"
)

// Message is the envelope for every websocket message.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage wraps data with the current timestamp.
func NewMessage(t MessageType, data any) (*Message, error) {
	var raw json.RawMessage
	if data != nil {
		var err error
		raw, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", t, err)
		}
	}
	return &Message{Type: t, Timestamp: time.Now().UnixMilli(), Data: raw}, nil
}

// ParseMessage decodes an envelope.
func ParseMessage(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}
	if m.Type == "" {
		return nil, errors.New("parse message: missing type")
	}
	return &m, nil
}

// ParseData decodes the payload into v.
func (m *Message) ParseData(v any) error {
	if m.Data == nil {
		return fmt.Errorf("%s: missing data", m.Type)
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("%s: %w", m.Type, err)
	}
	return nil
}

// Bytes encodes the envelope.
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// =============================================================================
// Page → server
// =============================================================================

// Gamepad is one XR input source as the page sees it.
type Gamepad struct {
	Handedness string `json:"handedness"` // "left", "right" or "none"
	Haptics    bool   `json:"haptics"`    // hapticActuators[0] exists
}

// FrameData is the XR camera and inputs for one animation frame.
type FrameData struct {
	Position    [3]float64 `json:"position"`
	Orientation [4]float64 `json:"orientation"` // quaternion x, y, z, w
	Gamepads    []Gamepad  `json:"gamepads"`
	DT          float64    `json:"dt"` // seconds since the previous frame
}

// ErrBadFrame is wrapped when a frame carries unusable numbers.
var ErrBadFrame = errors.New("bad frame")

// Pose converts the camera transform. A zero quaternion is treated as identity.
func (f FrameData) Pose() (spatial.Pose, error) {
	for _, v := range f.Position {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return spatial.Pose{}, fmt.Errorf("%w: position %v", ErrBadFrame, f.Position)
		}
	}
	q := spatial.Quat{X: f.Orientation[0], Y: f.Orientation[1], Z: f.Orientation[2], W: f.Orientation[3]}
	n := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	switch {
	case math.IsNaN(n) || math.IsInf(n, 0):
		return spatial.Pose{}, fmt.Errorf("%w: orientation %v", ErrBadFrame, f.Orientation)
	case n == 0:
		q = spatial.IdentityQuat
	default:
		q = spatial.Quat{X: q.X / n, Y: q.Y / n, Z: q.Z / n, W: q.W / n}
	}
	pos := spatial.Vec3{X: f.Position[0], Y: f.Position[1], Z: f.Position[2]}
	return spatial.PoseFromQuaternion(pos, q), nil
}

// Delta returns the frame time, clamped to [0, 1s].
func (f FrameData) Delta() time.Duration {
	if math.IsNaN(f.DT) || f.DT <= 0 {
		return 0
	}
	return time.Duration(min(f.DT, 1) * float64(time.Second))
}

// ToggleData names a source to start or stop.
type ToggleData struct {
	ID      string `json:"id"`
	Playing *bool  `json:"playing,omitempty"` // nil flips
}

// MoveData places a source in world space.
type MoveData struct {
	ID       string     `json:"id"`
	Position [3]float64 `json:"position"`
}

// Vec checks the position is finite.
func (m MoveData) Vec() (spatial.Vec3, error) {
	for _, v := range m.Position {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return spatial.Vec3{}, fmt.Errorf("%w: position %v", ErrBadFrame, m.Position)
		}
	}
	return spatial.Vec3{X: m.Position[0], Y: m.Position[1], Z: m.Position[2]}, nil
}

// ModeData selects the heading mode.
type ModeData struct {
	Mode string `json:"mode"`
}

// =============================================================================
// Server → page
// =============================================================================

// PointData is one bearing point on the ring.
type PointData struct {
	ID       string  `json:"id"`
	Angle    float64 `json:"angle"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	Size     float64 `json:"size"`
	Distance float64 `json:"distance"`
}

// RingData is the ring geometry, sent so the page can draw it.
type RingData struct {
	Radius    float64    `json:"radius"`
	Thickness float64    `json:"thickness"`
	Segments  int        `json:"segments"`
	Color     string     `json:"color"`
	Opacity   float64    `json:"opacity"`
	Offset    [3]float64 `json:"offset"`
}

// PulseData is a haptic effect the page plays with
// hapticActuators[0].playEffect(type, {duration, strongMagnitude, weakMagnitude}).
type PulseData struct {
	Hand            string  `json:"hand"`
	Type            string  `json:"type"`
	Duration        float64 `json:"duration"` // milliseconds
	StrongMagnitude float64 `json:"strongMagnitude"`
	WeakMagnitude   float64 `json:"weakMagnitude"`
}

// SourceData describes one source.
type SourceData struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Position [3]float64 `json:"position"`
	Distance float64    `json:"distance"`
	Bearing  float64    `json:"bearing"`
	Peak     float64    `json:"peak"`
	Gains    [2]float64 `json:"gains"` // left, right
	Playing  bool       `json:"playing"`
	Ambient  bool       `json:"ambient,omitempty"`
}

// StateData is the reply to every frame.
type StateData struct {
	Frame   uint64       `json:"frame"`
	Yaw     float64      `json:"yaw"`
	Mode    string       `json:"mode"`
	Ring    RingData     `json:"ring"`
	Points  []PointData  `json:"points"`
	Pulses  []PulseData  `json:"pulses"`
	Sources []SourceData `json:"sources"`
}

func vec3(v spatial.Vec3) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

// newState builds the wire state from a snapshot and the pulses queued for
// this session's gamepads.
func newState(snap scene.Snapshot, cmds []controller.Command) StateData {
	st := StateData{
		Frame: snap.Frame,
		Yaw:   snap.Yaw,
		Mode:  snap.Mode,
		Ring: RingData{
			Radius:    snap.Ring.Radius,
			Thickness: snap.Ring.Thickness,
			Segments:  snap.Ring.Segments,
			Color:     snap.Ring.Color,
			Opacity:   snap.Ring.Opacity,
			Offset:    vec3(snap.Ring.Offset),
		},
		Points:  make([]PointData, 0, len(snap.Points)),
		Pulses:  make([]PulseData, 0, len(cmds)),
		Sources: make([]SourceData, 0, len(snap.Sources)),
	}
	for _, p := range snap.Points {
		st.Points = append(st.Points, PointData{
			ID:       p.ID.String(),
			Angle:    p.Angle,
			X:        p.Transform.Position.X,
			Y:        p.Transform.Position.Y,
			Z:        p.Transform.Position.Z,
			Size:     p.Size,
			Distance: p.Distance,
		})
	}
	for _, c := range cmds {
		st.Pulses = append(st.Pulses, PulseData{
			Hand:            c.Hand.String(),
			Type:            "dual-rumble",
			Duration:        float64(c.Effect.Duration) / float64(time.Millisecond),
			StrongMagnitude: c.Effect.Strong,
			WeakMagnitude:   c.Effect.Weak,
		})
	}
	for _, s := range snap.Sources {
		st.Sources = append(st.Sources, SourceData{
			ID:       s.ID.String(),
			Name:     s.Name,
			Position: vec3(s.Position),
			Distance: s.Distance,
			Bearing:  s.Bearing,
			Peak:     s.Peak,
			Gains:    [2]float64{s.Left, s.Right},
			Playing:  s.Playing,
			Ambient:  s.Ambient,
		})
	}
	return st
}
