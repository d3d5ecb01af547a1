package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"soundscape.klederson.com/internal/spatial"
)

// Status is the data shown in the bottom bar.
type Status struct {
	Position    spatial.Vec3
	YawDeg      float64
	Mode        string
	Controllers int  // all connected pads
	Haptic      bool // simulated pad rumble enabled
	Rumble      float64
	Sessions    int    // bridge pages, 0 when not serving
	Notice      string // last scanner problem
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, st Status) string {
	rumble := StyleCheckOff.Render("[rumble off]")
	if st.Haptic {
		rumble = StyleCheckOn.Render("[rumble on]")
		if st.Rumble > 0 {
			rumble = StyleRumble.Render(fmt.Sprintf("[RUMBLE %3.0f%%]", st.Rumble*100))
		}
	}

	info := fmt.Sprintf(" Pos: %.1f,%.1f,%.1f  Heading: %03.0fdeg  Mode: %s  Pads: %d",
		st.Position.X, st.Position.Y, st.Position.Z, st.YawDeg, st.Mode, st.Controllers)
	if st.Sessions > 0 {
		info += fmt.Sprintf("  XR: %d", st.Sessions)
	}

	if st.Notice != "" {
		info += "  " + st.Notice
	}

	content := rumble + StyleStatusBar.Foreground(ColorGreen).Render(info)

	gap := width - lipgloss.Width(content)
	if gap < 0 {
		gap = 0
	}

	return StyleStatusBar.Width(width).Render(content + strings.Repeat(" ", gap))
}
