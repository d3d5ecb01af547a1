package ui

import "github.com/charmbracelet/lipgloss"

// ComposeLayout joins the HUD panel and source list horizontally,
// with menu bar on top and status bar on bottom.
func ComposeLayout(menuBar, hudPanel, sourceList, statusBar string) string {
	middle := lipgloss.JoinHorizontal(lipgloss.Top, hudPanel, sourceList)
	return lipgloss.JoinVertical(lipgloss.Left, menuBar, middle, statusBar)
}

// RenderHUDPanel wraps HUD content with a styled border.
// The HUD itself is rendered by package hud to avoid import cycles.
func RenderHUDPanel(width, height int, hudContent, legend string) string {
	content := hudContent + "\n" + legend
	return StylePanelBorder.Width(width - 2).Height(height - 2).Render(content)
}
