package controller

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

type panickyActuator struct{}

func (panickyActuator) Pulse(Effect) error { panic("no rumble motor") }

type fixedHandle struct {
	act Actuator
}

func (h fixedHandle) ID() string         { return "fixed" }
func (h fixedHandle) Hand() Hand         { return HandRight }
func (h fixedHandle) Actuator() Actuator { return h.act }

func TestTrigger_TriState(t *testing.T) {
	effect := Effect{Duration: 100 * time.Millisecond, Strong: 0.5, Weak: 0.5}

	if res, err := Trigger(nil, effect); res != ResultAbsent || err != nil {
		t.Errorf("nil handle: got %v, %v", res, err)
	}

	pad := &Pad{Address: "AA:BB:CC:DD:EE:FF"}
	if res, err := Trigger(pad, effect); res != ResultUnsupported || err != nil {
		t.Errorf("pad without actuator: got %v, %v", res, err)
	}

	sim := NewSimulated("sim", HandLeft)
	if res, err := Trigger(sim, effect); res != ResultFired || err != nil {
		t.Errorf("simulated: got %v, %v", res, err)
	}
	if sim.Pulses() != 1 || sim.Last() != effect {
		t.Errorf("simulated recorded %d pulses, last %+v", sim.Pulses(), sim.Last())
	}

	sim.SetHaptics(false)
	res, err := Trigger(sim, effect)
	if res != ResultUnsupported || !errors.Is(err, ErrNoActuator) {
		t.Errorf("haptics off: got %v, %v", res, err)
	}
}

func TestTrigger_RecoversPanic(t *testing.T) {
	res, err := Trigger(fixedHandle{act: panickyActuator{}}, Effect{})
	if res != ResultUnsupported || err == nil {
		t.Fatalf("got %v, %v", res, err)
	}
	if !strings.Contains(err.Error(), "no rumble motor") {
		t.Errorf("error = %v", err)
	}
}

func TestSimulated_RumbleDecays(t *testing.T) {
	sim := NewSimulated("sim", HandLeft)
	now := time.Unix(100, 0)
	sim.now = func() time.Time { return now }

	if sim.Rumble() != 0 {
		t.Fatal("rumble before any pulse")
	}
	_ = sim.Pulse(Effect{Duration: 100 * time.Millisecond, Strong: 0.7, Weak: 0.7})
	if sim.Rumble() != 0.7 {
		t.Errorf("rumble = %v, want 0.7", sim.Rumble())
	}
	now = now.Add(150 * time.Millisecond)
	if sim.Rumble() != 0 {
		t.Errorf("rumble after pulse = %v, want 0", sim.Rumble())
	}
}

func TestRemote_QueuesOnOutbox(t *testing.T) {
	out := &Outbox{}
	left := NewRemote("l", HandLeft, true, out)
	right := NewRemote("r", HandRight, false, out)

	if res, _ := Trigger(left, Effect{Strong: 0.4}); res != ResultFired {
		t.Errorf("left: %v", res)
	}
	if res, _ := Trigger(right, Effect{Strong: 0.4}); res != ResultUnsupported {
		t.Errorf("right without actuator: %v", res)
	}

	cmds := out.Drain()
	if len(cmds) != 1 || cmds[0].Hand != HandLeft {
		t.Fatalf("commands = %+v", cmds)
	}
	if len(out.Drain()) != 0 {
		t.Error("outbox not cleared")
	}
}

func TestStore_UpsertEvictSnapshot(t *testing.T) {
	s := NewStore()
	s.Upsert("AA:00:00:00:00:01", "Joy-Con (L)", -60, TransportBLE)
	s.Upsert("AA:00:00:00:00:02", "Wireless Controller", -40, TransportClassic)
	s.Upsert("AA:00:00:00:00:01", "", -70, TransportBLE)

	snap := s.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("len = %d, want 2", len(snap))
	}
	if snap[0].Address != "AA:00:00:00:00:02" {
		t.Errorf("strongest first: got %s", snap[0].Address)
	}
	joy := snap[1]
	if joy.Name != "Joy-Con (L)" || joy.Hand() != HandLeft {
		t.Errorf("name/hand not kept: %+v", joy)
	}
	if want := -63.0; math.Abs(joy.RSSI-want) > 1e-9 {
		t.Errorf("RSSI = %v, want %v", joy.RSSI, want)
	}

	for _, h := range s.Handles() {
		if h.Actuator() != nil {
			t.Errorf("%s: scanned pads have no actuator", h.ID())
		}
	}

	time.Sleep(5 * time.Millisecond)
	if n := s.Evict(time.Millisecond); n != 2 || s.Count() != 0 {
		t.Errorf("evicted %d, remaining %d", n, s.Count())
	}
}

func TestParseHcitoolScan(t *testing.T) {
	input := "Scanning ...\n" +
		"\tAA:BB:CC:DD:EE:01\tWireless Controller\n" +
		"\tAA:BB:CC:DD:EE:02\tJBL Flip 6\n" +
		"\tnot-a-mac\tPro Controller\n"
	got := parseHcitoolScan(strings.NewReader(input))
	if len(got) != 1 {
		t.Fatalf("got %+v", got)
	}
	if got[0].Address != "AA:BB:CC:DD:EE:01" || got[0].Transport != TransportClassic {
		t.Errorf("got %+v", got[0])
	}
}

func TestLooksLikeController(t *testing.T) {
	tests := map[string]bool{
		"DualSense Wireless Controller": true,
		"Xbox Wireless":                 true,
		"8BitDo SN30 Pro":               true,
		"AirPods Pro":                   false,
		"":                              false,
	}
	for name, want := range tests {
		if got := LooksLikeController(name); got != want {
			t.Errorf("%q: got %v, want %v", name, got, want)
		}
	}
}

func TestParseHand(t *testing.T) {
	if ParseHand("left") != HandLeft || ParseHand("right") != HandRight || ParseHand("") != HandNone {
		t.Error("ParseHand mismatch")
	}
}
