package controller

import (
	"fmt"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"tinygo.org/x/bluetooth"
)

// DiscoveredMsg is sent via tea.Program.Send when a controller is found.
type DiscoveredMsg struct {
	Address   string
	Name      string
	RSSI      int16
	Transport Transport
}

// BLEScanner looks for controllers advertising over Bluetooth Low Energy.
type BLEScanner struct {
	adapter *bluetooth.Adapter
	program *tea.Program
	running atomic.Bool
}

// NewBLEScanner creates a scanner on the default adapter.
func NewBLEScanner() *BLEScanner {
	return &BLEScanner{
		adapter: bluetooth.DefaultAdapter,
	}
}

// Start begins scanning in a goroutine. Only advertisements whose local name
// looks like a controller are forwarded.
func (s *BLEScanner) Start(p *tea.Program) error {
	s.program = p

	if err := s.adapter.Enable(); err != nil {
		return fmt.Errorf("failed to enable BLE adapter: %w (try running with sudo or setcap cap_net_admin+ep)", err)
	}

	s.running.Store(true)
	go func() {
		_ = s.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			if !s.running.Load() {
				return
			}
			name := result.LocalName()
			if !LooksLikeController(name) {
				return
			}
			if s.program != nil {
				s.program.Send(DiscoveredMsg{
					Address:   result.Address.String(),
					Name:      name,
					RSSI:      result.RSSI,
					Transport: TransportBLE,
				})
			}
		})
	}()

	return nil
}

// Stop halts the scanner.
func (s *BLEScanner) Stop() {
	s.running.Store(false)
	_ = s.adapter.StopScan()
}
