package bridge

import (
	"encoding/json"
	"io"
	"math"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"soundscape.klederson.com/internal/config"
	"soundscape.klederson.com/internal/indicator"
	"soundscape.klederson.com/internal/scene"
	"soundscape.klederson.com/internal/spatial"
)

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func testScene(t *testing.T) *scene.Scene {
	t.Helper()
	mult := 10.0
	cfg := config.Scene{
		Name:     "bridge-test",
		Listener: config.Vec{X: 10, Y: 1.7},
		Sources: []config.Source{{
			Name:     "ahead",
			Call:     "tone",
			Position: config.Vec{X: 10, Y: 1.7, Z: -5},
			Haptics:  &config.Channel{IntensityMultiplier: &mult},
		}},
	}
	sc, err := scene.Build(cfg, scene.Options{SampleRate: 8000})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(sc.Close)
	return sc
}

func startServer(t *testing.T) (*Server, string) {
	t.Helper()
	srv := NewServer(testScene(t))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Shutdown() })
	return srv, ln.Addr().String()
}

func dial(t *testing.T, addr, path string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial("ws://"+addr+path, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, typ MessageType, data any) {
	t.Helper()
	msg, err := NewMessage(typ, data)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := msg.Bytes()
	if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
		t.Fatal(err)
	}
}

func receive(t *testing.T, ws *websocket.Conn) *Message {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	msg, err := ParseMessage(data)
	if err != nil {
		t.Fatal(err)
	}
	return msg
}

func startFrame() FrameData {
	return FrameData{
		Position:    [3]float64{10, 1.7, 0},
		Orientation: [4]float64{0, 0, 0, 1},
		Gamepads: []Gamepad{
			{Handedness: "right", Haptics: true},
			{Handedness: "left", Haptics: false},
		},
		DT: 0.2,
	}
}

func TestXR_FrameReturnsPointsAndPulses(t *testing.T) {
	srv, addr := startServer(t)
	ws := dial(t, addr, "/ws/xr/page-1")

	send(t, ws, TypeFrame, startFrame())
	msg := receive(t, ws)
	if msg.Type != TypeState {
		t.Fatalf("type = %s: %s", msg.Type, msg.Data)
	}
	var st StateData
	if err := msg.ParseData(&st); err != nil {
		t.Fatal(err)
	}

	if len(st.Points) != 1 {
		t.Fatalf("points = %+v", st.Points)
	}
	if p := st.Points[0]; !floatEquals(p.X, st.Ring.Radius) || !floatEquals(p.Y, 0) || !floatEquals(p.Distance, 5) {
		t.Errorf("point = %+v", p)
	}
	if st.Mode != "absolute" || st.Ring.Segments != config.RingSegments {
		t.Errorf("mode %s ring %+v", st.Mode, st.Ring)
	}

	// Only the right pad has an actuator.
	if len(st.Pulses) != 1 {
		t.Fatalf("pulses = %+v", st.Pulses)
	}
	p := st.Pulses[0]
	if p.Hand != "right" || p.Type != "dual-rumble" || p.Duration != 100 || !floatEquals(p.StrongMagnitude, 1) {
		t.Errorf("pulse = %+v", p)
	}

	if srv.SessionCount() != 1 {
		t.Errorf("sessions = %d", srv.SessionCount())
	}
	if stats := srv.GetStats(); stats.FramesStepped != 1 || stats.MessagesReceived != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if infos := srv.Sessions(); len(infos) != 1 || infos[0].ID != "page-1" || infos[0].Frames != 1 {
		t.Errorf("sessions = %+v", infos)
	}
}

func TestXR_QuarterTurnMovesPoint(t *testing.T) {
	_, addr := startServer(t)
	ws := dial(t, addr, "/ws/xr")

	f := startFrame()
	f.Gamepads = nil
	s2 := math.Sqrt2 / 2
	f.Orientation = [4]float64{0, s2, 0, s2}
	send(t, ws, TypeFrame, f)

	var st StateData
	if err := receive(t, ws).ParseData(&st); err != nil {
		t.Fatal(err)
	}
	if p := st.Points[0]; !floatEquals(p.X, 0) || !floatEquals(p.Y, -st.Ring.Radius) {
		t.Errorf("point after turn = %+v", p)
	}
	if len(st.Pulses) != 0 {
		t.Errorf("pulses without gamepads = %+v", st.Pulses)
	}
}

func TestXR_PingModeToggleAndErrors(t *testing.T) {
	srv, addr := startServer(t)
	ws := dial(t, addr, "/ws/xr")

	send(t, ws, TypePing, nil)
	if msg := receive(t, ws); msg.Type != TypePong {
		t.Errorf("ping reply = %s", msg.Type)
	}

	send(t, ws, TypeMode, ModeData{Mode: "relative"})
	send(t, ws, TypeFrame, startFrame())
	var st StateData
	if err := receive(t, ws).ParseData(&st); err != nil {
		t.Fatal(err)
	}
	if st.Mode != "relative" || srv.scene.Mode() != indicator.HeadingRelative {
		t.Errorf("mode = %s", st.Mode)
	}

	id := st.Sources[0].ID
	send(t, ws, TypeToggle, ToggleData{ID: id})
	send(t, ws, TypeFrame, startFrame())
	if err := receive(t, ws).ParseData(&st); err != nil {
		t.Fatal(err)
	}
	if st.Sources[0].Playing {
		t.Error("toggle did not stop the source")
	}

	bad := []string{
		`not json`,
		`{"type":"teleport"}`,
		`{"type":"frame"}`,
		`{"type":"mode","data":{"mode":"sideways"}}`,
		`{"type":"toggle","data":{"id":"nope"}}`,
		`{"type":"frame","data":{"position":[1e999,0,0]}}`,
	}
	for _, raw := range bad {
		if err := ws.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
			t.Fatal(err)
		}
		if msg := receive(t, ws); msg.Type != TypeError {
			t.Errorf("%s: reply %s", raw, msg.Type)
		}
	}
}

func TestXR_MoveRepositionsSource(t *testing.T) {
	srv, addr := startServer(t)
	ws := dial(t, addr, "/ws/xr")

	id := srv.scene.Entries()[0].Source.ID().String()
	send(t, ws, TypeMove, MoveData{ID: id, Position: [3]float64{15, 1.7, 0}})
	f := startFrame()
	f.Gamepads = nil
	send(t, ws, TypeFrame, f)

	var st StateData
	if err := receive(t, ws).ParseData(&st); err != nil {
		t.Fatal(err)
	}
	if p := st.Points[0]; !floatEquals(p.X, 0) || !floatEquals(p.Y, -st.Ring.Radius) || !floatEquals(p.Distance, 5) {
		t.Errorf("point after move = %+v", p)
	}
	if src := st.Sources[0]; src.Position != [3]float64{15, 1.7, 0} || src.Gains[1] <= src.Gains[0] {
		t.Errorf("source after move = %+v", src)
	}

	for _, raw := range []string{
		`{"type":"move","data":{"id":"nope","position":[0,0,0]}}`,
		`{"type":"move","data":{"id":"` + id + `","position":[1e999,0,0]}}`,
	} {
		if err := ws.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
			t.Fatal(err)
		}
		if msg := receive(t, ws); msg.Type != TypeError {
			t.Errorf("%s: reply %s", raw, msg.Type)
		}
	}
}

func TestXR_DuplicateSessionIDRejected(t *testing.T) {
	srv, addr := startServer(t)
	first := dial(t, addr, "/ws/xr/headset")
	send(t, first, TypePing, nil)
	receive(t, first)

	second := dial(t, addr, "/ws/xr/headset")
	if msg := receive(t, second); msg.Type != TypeError {
		t.Fatalf("duplicate got %s", msg.Type)
	}
	second.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := second.ReadMessage(); err == nil {
		t.Error("duplicate connection left open")
	}

	// The first page keeps its session after the duplicate goes away.
	send(t, first, TypePing, nil)
	if msg := receive(t, first); msg.Type != TypePong {
		t.Errorf("first page reply %s", msg.Type)
	}
	if n := srv.SessionCount(); n != 1 {
		t.Errorf("sessions = %d, want 1", n)
	}
}

func TestFramePose(t *testing.T) {
	f := FrameData{Position: [3]float64{1, 2, 3}}
	pose, err := f.Pose()
	if err != nil {
		t.Fatal(err)
	}
	if !floatEquals(pose.Forward.Z, -1) {
		t.Errorf("zero quaternion should look down -Z, got %+v", pose.Forward)
	}

	f.Orientation = [4]float64{0, 0, 0, 2} // unnormalised identity
	if pose, _ = f.Pose(); !floatEquals(pose.Forward.Z, -1) || !floatEquals(pose.Forward.Len(), 1) {
		t.Errorf("forward = %+v", pose.Forward)
	}

	f.Orientation = [4]float64{math.NaN(), 0, 0, 1}
	if _, err := f.Pose(); err == nil {
		t.Error("NaN orientation accepted")
	}

	if d := (FrameData{DT: 5}).Delta(); d != time.Second {
		t.Errorf("delta = %v", d)
	}
	if d := (FrameData{DT: -1}).Delta(); d != 0 {
		t.Errorf("negative delta = %v", d)
	}
}

func TestAPI(t *testing.T) {
	srv := NewServer(testScene(t))
	app := srv.App()

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 || !strings.Contains(string(body), "bridge-test") {
		t.Errorf("health = %d %s", resp.StatusCode, body)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/api/state", nil))
	var st StateData
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil || resp.StatusCode != 200 {
		t.Errorf("state = %d %v", resp.StatusCode, err)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/api/stats", nil))
	if resp.StatusCode != 200 {
		t.Errorf("stats status = %d", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/ws/xr", nil))
	if resp.StatusCode != 426 {
		t.Errorf("plain GET on ws = %d, want 426", resp.StatusCode)
	}

	id := srv.scene.Entries()[0].Source.ID().String()
	resp, _ = app.Test(httptest.NewRequest("POST", "/api/sources/"+id+"/toggle", nil))
	if resp.StatusCode != 200 || srv.scene.Entries()[0].Source.Playing() {
		t.Errorf("toggle = %d", resp.StatusCode)
	}
	resp, _ = app.Test(httptest.NewRequest("POST", "/api/sources/nope/toggle", nil))
	if resp.StatusCode != 404 {
		t.Errorf("bad toggle = %d", resp.StatusCode)
	}

	moveReq := func(id, body string) int {
		req := httptest.NewRequest("PUT", "/api/sources/"+id+"/position", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatal(err)
		}
		return resp.StatusCode
	}
	if code := moveReq(id, `{"position":[1,2,3]}`); code != 200 || srv.scene.Entries()[0].Source.Position() != (spatial.Vec3{X: 1, Y: 2, Z: 3}) {
		t.Errorf("move = %d", code)
	}
	if code := moveReq(uuid.NewString(), `{"position":[1,2,3]}`); code != 404 {
		t.Errorf("unknown move = %d", code)
	}
	if code := moveReq(id, `{"position":"up"}`); code != 400 {
		t.Errorf("bad move body = %d", code)
	}

	req := httptest.NewRequest("PUT", "/api/mode", strings.NewReader(`{"mode":"relative"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req)
	if resp.StatusCode != 200 || srv.scene.Mode() != indicator.HeadingRelative {
		t.Errorf("mode = %d", resp.StatusCode)
	}
	req = httptest.NewRequest("PUT", "/api/mode", strings.NewReader(`{"mode":"compass"}`))
	req.Header.Set("Content-Type", "application/json")
	if resp, _ = app.Test(req); resp.StatusCode != 400 {
		t.Errorf("bad mode = %d", resp.StatusCode)
	}
}
