package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"soundscape.klederson.com/internal/scene"
	"soundscape.klederson.com/internal/spatial"
)

// Cursor row style: black text on bright green = unmissable highlight
var cursorRowSty = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#000000")).
	Background(ColorMatrixGreen).
	Bold(true)

// Stopped source style: very dim
var stoppedSty = lipgloss.NewStyle().
	Foreground(ColorDimGreen)

// RenderSourceList renders the scrollable source list panel with a cursor.
// The title stays fixed at the top; only the entries scroll. history holds
// recent peak values per source, oldest first.
func RenderSourceList(sources []scene.SourceState, history map[string][]float64, width, height int, cursorIndex int) string {
	innerW := width - 4
	if innerW < 10 {
		innerW = 10
	}

	title := StylePanelTitle.Render(fmt.Sprintf("SOURCES [%d]", len(sources)))
	separator := StyleSeparator.Render(strings.Repeat("-", innerW))
	headerLines := []string{title, separator}
	headerCount := len(headerLines)

	// Total inner height (excluding border top+bottom)
	innerH := height - 2
	if innerH < headerCount+1 {
		innerH = headerCount + 1
	}

	srcSpace := innerH - headerCount
	if srcSpace < 1 {
		srcSpace = 1
	}

	var srcLines []string
	if len(sources) == 0 {
		srcLines = append(srcLines, "")
		srcLines = append(srcLines, StyleHelp.Render(" No sources..."))
	} else {
		linesPerSource := 4 // 3 content + 1 blank
		maxVisible := srcSpace / linesPerSource
		if maxVisible < 1 {
			maxVisible = 1
		}

		// Compute viewport start so cursor is always visible
		viewStart := 0
		if cursorIndex >= maxVisible {
			viewStart = cursorIndex - maxVisible + 1
		}

		count := 0
		for i := viewStart; i < len(sources) && count < srcSpace; i++ {
			entry := renderSourceEntry(sources[i], history[sources[i].ID.String()], innerW, i == cursorIndex)
			for _, l := range entry {
				if count >= srcSpace {
					break
				}
				srcLines = append(srcLines, l)
				count++
			}
		}
	}

	if len(srcLines) > srcSpace {
		srcLines = srcLines[:srcSpace]
	}
	for len(srcLines) < srcSpace {
		srcLines = append(srcLines, "")
	}

	all := make([]string, 0, innerH)
	all = append(all, headerLines...)
	all = append(all, srcLines...)

	content := strings.Join(all, "\n")
	rendered := StylePanelBorder.Width(width - 2).Height(innerH).Render(content)

	// Hard clamp rendered output to exactly `height` lines.
	// lipgloss Height() only sets a minimum; it won't truncate overflow.
	outLines := strings.Split(rendered, "\n")
	if len(outLines) > height {
		outLines = outLines[:height]
	}
	for len(outLines) < height {
		outLines = append(outLines, "")
	}
	return strings.Join(outLines, "\n")
}

func renderSourceEntry(s scene.SourceState, history []float64, maxW int, isCursor bool) []string {
	symbol, tag := "o", "[POS]"
	if s.Ambient {
		symbol, tag = "~", "[AMB]"
	}

	name := s.Name
	nameMax := maxW - 18
	if nameMax < 4 {
		nameMax = 4
	}
	if len(name) > nameMax {
		name = name[:nameMax]
	}

	check := "[>]"
	if !s.Playing {
		check = "[ ]"
	}

	cursor := "  "
	if isCursor {
		cursor = ">>"
	}

	where := "everywhere"
	if !s.Ambient {
		where = fmt.Sprintf("~%.1fm  %s", s.Distance, BearingLabel(s.Bearing))
	}

	sparkW := maxW - 7
	if sparkW < 4 {
		sparkW = 4
	}
	spark := renderSparkline(history, sparkW, 255)

	raw1 := truncRaw(fmt.Sprintf("%s %s %s %s %s", cursor, check, symbol, name, tag), maxW)
	raw2 := truncRaw("       "+where, maxW)
	raw3 := truncRaw("       "+spark, maxW)

	if isCursor {
		return []string{cursorRowSty.Render(raw1), cursorRowSty.Render(raw2), cursorRowSty.Render(raw3), ""}
	}
	if !s.Playing {
		return []string{stoppedSty.Render(raw1), stoppedSty.Render(raw2), stoppedSty.Render(raw3), ""}
	}

	symSty := StyleSourcePoint
	if s.Ambient {
		symSty = StyleSourceAmbient
	}
	line1 := fmt.Sprintf("   %s %s %s %s", StyleCheckOn.Render(check), symSty.Render(symbol), StyleSourceName.Render(name), symSty.Render(tag))
	line2 := "       " + StyleSourceInfo.Render(where)
	line3 := "       " + StyleSourceDim.Render(spark)
	return []string{line1, line2, line3, ""}
}

// BearingLabel describes a signed relative bearing (positive = left) as a
// short clock-face style hint.
func BearingLabel(bearing float64) string {
	deg := spatial.Degrees(spatial.SignedAngle(bearing))
	switch {
	case deg > -15 && deg < 15:
		return "ahead"
	case deg >= 165 || deg <= -165:
		return "behind"
	case deg > 0:
		return fmt.Sprintf("%.0fdeg L", deg)
	default:
		return fmt.Sprintf("%.0fdeg R", -deg)
	}
}

// truncRaw pads or truncates a raw string to exactly w characters.
func truncRaw(s string, w int) string {
	if len(s) > w {
		return s[:w]
	}
	if len(s) < w {
		return s + strings.Repeat(" ", w-len(s))
	}
	return s
}
