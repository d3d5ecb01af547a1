package controller

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Transport distinguishes BLE from Classic Bluetooth pads.
type Transport int

const (
	TransportBLE Transport = iota
	TransportClassic
)

func (t Transport) String() string {
	if t == TransportClassic {
		return "Classic"
	}
	return "BLE"
}

// smoothingAlpha is the EMA factor for RSSI (30% new, 70% old).
const smoothingAlpha = 0.3

// Pad is a Bluetooth controller seen by a scanner. Scanning gives no rumble
// path, so pads are present but never play pulses.
type Pad struct {
	Address   string
	Name      string
	RSSI      float64
	Transport Transport
	LastSeen  time.Time
	hand      Hand
}

func (p *Pad) ID() string         { return p.Address }
func (p *Pad) Hand() Hand         { return p.hand }
func (p *Pad) Actuator() Actuator { return nil }

// DisplayName returns the pad name or "[unnamed]".
func (p *Pad) DisplayName() string {
	if p.Name == "" {
		return "[unnamed]"
	}
	return p.Name
}

// Store is a thread-safe set of discovered pads keyed by address.
type Store struct {
	mu   sync.RWMutex
	pads map[string]*Pad
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{pads: make(map[string]*Pad)}
}

// Upsert adds or refreshes a pad. RSSI is smoothed with an EMA.
func (s *Store) Upsert(addr, name string, rssi float64, tr Transport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, ok := s.pads[addr]; ok {
		existing.RSSI = existing.RSSI*(1-smoothingAlpha) + rssi*smoothingAlpha
		existing.LastSeen = now
		if name != "" {
			existing.Name = name
			existing.hand = HandFromName(name)
		}
		return
	}

	s.pads[addr] = &Pad{
		Address:   addr,
		Name:      name,
		RSSI:      rssi,
		Transport: tr,
		LastSeen:  now,
		hand:      HandFromName(name),
	}
}

// Evict removes pads not seen within timeout and returns how many went.
func (s *Store) Evict(timeout time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-timeout)
	count := 0
	for addr, p := range s.pads {
		if p.LastSeen.Before(cutoff) {
			delete(s.pads, addr)
			count++
		}
	}
	return count
}

// Snapshot returns copies of all pads, strongest signal first.
func (s *Store) Snapshot() []*Pad {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Pad, 0, len(s.pads))
	for _, p := range s.pads {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RSSI == out[j].RSSI {
			return out[i].Address < out[j].Address
		}
		return out[i].RSSI > out[j].RSSI
	})
	return out
}

// Handles returns the snapshot as controller handles.
func (s *Store) Handles() []Handle {
	pads := s.Snapshot()
	out := make([]Handle, len(pads))
	for i, p := range pads {
		out[i] = p
	}
	return out
}

// Count returns the number of tracked pads.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pads)
}

// HandFromName guesses handedness from names like "Joy-Con (L)" or
// "Left Touch Controller".
func HandFromName(name string) Hand {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "(l)"), strings.Contains(n, "left"):
		return HandLeft
	case strings.Contains(n, "(r)"), strings.Contains(n, "right"):
		return HandRight
	default:
		return HandNone
	}
}

var controllerKeywords = []string{
	"controller", "gamepad", "joy-con", "joycon", "dualshock", "dualsense",
	"wireless controller", "xbox", "pro controller", "touch", "stadia", "8bitdo",
}

// LooksLikeController reports whether an advertised name is a game or XR
// controller.
func LooksLikeController(name string) bool {
	n := strings.ToLower(name)
	for _, k := range controllerKeywords {
		if strings.Contains(n, k) {
			return true
		}
	}
	return false
}
