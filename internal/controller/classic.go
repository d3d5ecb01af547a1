package controller

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// classicRSSI is reported for classic pads; hcitool scan has no RSSI.
const classicRSSI = -75

// ClassicScanner discovers classic Bluetooth pads (DualShock, Switch Pro and
// most console pads pair as classic HID) via hcitool.
type ClassicScanner struct {
	program  *tea.Program
	running  atomic.Bool
	cancel   context.CancelFunc
	interval time.Duration
}

// NewClassicScanner creates a classic scanner that rescans every interval.
func NewClassicScanner(interval time.Duration) *ClassicScanner {
	return &ClassicScanner{interval: interval}
}

// Start begins periodic scans in a goroutine.
func (s *ClassicScanner) Start(p *tea.Program) error {
	s.program = p
	s.running.Store(true)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go s.loop(ctx)
	return nil
}

func (s *ClassicScanner) loop(ctx context.Context) {
	for s.running.Load() {
		s.scan(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.interval):
		}
	}
}

func (s *ClassicScanner) scan(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, 15*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "hcitool", "scan", "--flush")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return
	}
	if err := cmd.Start(); err != nil {
		return
	}

	for _, msg := range parseHcitoolScan(stdout) {
		if s.program != nil {
			s.program.Send(msg)
		}
	}

	_ = cmd.Wait()
}

// parseHcitoolScan reads "AA:BB:CC:DD:EE:FF\tName" lines and keeps the
// controllers.
func parseHcitoolScan(r io.Reader) []DiscoveredMsg {
	var out []DiscoveredMsg
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "Scanning") {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		addr := strings.TrimSpace(parts[0])
		name := ""
		if len(parts) == 2 {
			name = strings.TrimSpace(parts[1])
		}
		if !isValidMAC(addr) || !LooksLikeController(name) {
			continue
		}
		out = append(out, DiscoveredMsg{
			Address:   addr,
			Name:      name,
			RSSI:      classicRSSI,
			Transport: TransportClassic,
		})
	}
	return out
}

// Stop halts the scanner.
func (s *ClassicScanner) Stop() {
	s.running.Store(false)
	if s.cancel != nil {
		s.cancel()
	}
}

func isValidMAC(mac string) bool {
	if len(mac) != 17 {
		return false
	}
	for i, c := range mac {
		if (i+1)%3 == 0 {
			if c != ':' {
				return false
			}
		} else if !((c >= '0' && c <= '9') || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

// ClassicScannerAvailable checks if hcitool is on PATH.
func ClassicScannerAvailable() bool {
	_, err := exec.LookPath("hcitool")
	return err == nil
}
