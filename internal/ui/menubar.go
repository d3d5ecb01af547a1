package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"soundscape.klederson.com/internal/config"
)

// RenderMenuBar renders the top menu bar.
func RenderMenuBar(width int, sceneName string, muted bool) string {
	title := fmt.Sprintf(" %s v%s ", config.AppName, config.AppVersion)

	keys := []struct{ key, label string }{
		{"<>", "turn"},
		{"WASD", "move"},
		{"SPC", "play"},
		{"M", "ode"},
		{"H", "aptics"},
		{"Q", "uit"},
	}

	menu := ""
	for _, k := range keys {
		menu += "  " + StyleMenuKey.Render("["+k.key+"]") + StyleMenuLabel.Render(k.label)
	}

	status := StyleStatusLive.Render("LIVE")
	if muted {
		status = StyleStatusMuted.Render("MUTED")
	}

	sceneInfo := StyleMenuLabel.Render(fmt.Sprintf("Scene: %s", sceneName))

	left := StyleMenuKey.Render(title) + menu
	right := status + "  " + sceneInfo + " "

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	return StyleMenuBar.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}
