package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"soundscape.klederson.com/internal/indicator"
	"soundscape.klederson.com/internal/scene"
)

// RenderDetailPanel renders the source detail overlay that replaces the HUD
// area. point is the source's bearing point, nil for ambient sources.
func RenderDetailPanel(s scene.SourceState, point *indicator.PointState, ring indicator.Ring, width, height int, peakHistory []float64) string {
	innerW := width - 4
	if innerW < 20 {
		innerW = 20
	}

	title := StylePanelTitle.Render("SOURCE DETAIL")
	escHint := StyleHelp.Render("[ESC]")
	titleLine := title + strings.Repeat(" ", max(0, innerW-lipgloss.Width(title)-lipgloss.Width(escHint))) + escHint

	sep := StyleSeparator.Render(strings.Repeat("-", innerW))

	lines := []string{titleLine, sep, ""}

	labelSty := lipgloss.NewStyle().Foreground(ColorMidGreen)
	valSty := lipgloss.NewStyle().Foreground(ColorMatrixGreen).Bold(true)

	state := "playing"
	if !s.Playing {
		state = "stopped"
	}
	kind := "positional"
	if s.Ambient {
		kind = "ambient"
	}

	fields := []struct{ label, value string }{
		{"Name", s.Name},
		{"Kind", kind},
		{"State", state},
		{"Position", fmt.Sprintf("%.1f, %.1f, %.1f", s.Position.X, s.Position.Y, s.Position.Z)},
	}
	if !s.Ambient {
		fields = append(fields,
			struct{ label, value string }{"Distance", fmt.Sprintf("~%.1fm", s.Distance)},
			struct{ label, value string }{"Bearing", BearingLabel(s.Bearing)},
			struct{ label, value string }{"Stereo", fmt.Sprintf("L %.2f  R %.2f", s.Left, s.Right)},
		)
	}

	for _, f := range fields {
		label := labelSty.Render(fmt.Sprintf("  %-10s", f.label))
		lines = append(lines, label+valSty.Render(f.value))
	}

	lines = append(lines, "")

	barWidth := innerW - 22
	if barWidth < 10 {
		barWidth = 10
	}
	lines = append(lines, labelSty.Render("  Peak   ")+renderPeakBar(s.Peak, barWidth)+valSty.Render(fmt.Sprintf(" %3.0f", s.Peak)))

	lines = append(lines, "")

	if len(peakHistory) > 0 {
		sparkW := innerW - 4
		if sparkW < 10 {
			sparkW = 10
		}
		lines = append(lines, labelSty.Render("  Peak History:"))
		lines = append(lines, "  "+lipgloss.NewStyle().Foreground(ColorGreen).Render(renderSparkline(peakHistory, sparkW, 255)))
	}

	lines = append(lines, "")

	if point != nil {
		focusH := height - len(lines) - 5 // leave room for label + border
		if focusH < 5 {
			focusH = 5
		}
		focusW := innerW
		if focusW > focusH*4 {
			focusW = focusH * 4
		}

		if focus := RenderFocus(focusW, focusH, ring, *point, s.Peak); focus != "" {
			prefix := strings.Repeat(" ", max(0, (innerW-focusW)/2))
			for _, cl := range strings.Split(focus, "\n") {
				lines = append(lines, prefix+cl)
			}
		}

		label := fmt.Sprintf("~%.1fm  %s", s.Distance, BearingLabel(s.Bearing))
		lines = append(lines, strings.Repeat(" ", max(0, (innerW-len(label))/2))+valSty.Render(label))
	}

	for len(lines) < height-2 {
		lines = append(lines, "")
	}

	content := strings.Join(lines, "\n")
	return StylePanelActive.Width(width - 2).Height(height - 2).Render(content)
}

// renderPeakBar maps a peak 0..255 to a filled bar.
func renderPeakBar(peak float64, width int) string {
	ratio := math.Max(0, math.Min(peak/255, 1))
	filled := int(math.Round(ratio * float64(width)))

	bar := strings.Repeat("|", filled) + strings.Repeat("-", width-filled)
	filledPart := lipgloss.NewStyle().Foreground(lipgloss.Color(loudnessColor(peak))).Render(bar[:filled])
	emptyPart := lipgloss.NewStyle().Foreground(ColorDimGreen).Render(bar[filled:])
	return StyleHelp.Render("[") + filledPart + emptyPart + StyleHelp.Render("]")
}

// renderSparkline draws the last width values scaled against [0, ceiling].
func renderSparkline(values []float64, width int, ceiling float64) string {
	if len(values) == 0 || ceiling <= 0 {
		return ""
	}

	chars := []byte{'_', '.', '-', '~', '^'}

	start := 0
	if len(values) > width {
		start = len(values) - width
	}

	var sb strings.Builder
	for i := start; i < len(values); i++ {
		idx := int(values[i] / ceiling * float64(len(chars)-1))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(chars) {
			idx = len(chars) - 1
		}
		sb.WriteByte(chars[idx])
	}

	return sb.String()
}
