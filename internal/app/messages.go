package app

import "time"

// TickMsg triggers a scene step and redraw.
type TickMsg time.Time

// EvictMsg triggers stale controller eviction.
type EvictMsg time.Time

// ScanErrorMsg reports scanner errors.
type ScanErrorMsg struct {
	Err error
}
