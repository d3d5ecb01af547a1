package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"soundscape.klederson.com/internal/config"
	"soundscape.klederson.com/internal/hud"
	"soundscape.klederson.com/internal/indicator"
)

type focusCell int

const (
	cellEmpty focusCell = iota
	cellRing
	cellMark
	cellTrail
	cellPoint
)

// RenderFocus zooms the indicator onto one source: its bearing point is
// plotted from the indicator offset on a ring of the full panel size, and a
// trail from the centre reaches further out the closer the source is.
func RenderFocus(width, height int, ring indicator.Ring, p indicator.PointState, peak float64) string {
	if width < 9 || height < 5 {
		return ""
	}

	cx, cy := width/2, height/2
	radius := math.Min(float64(cx-2), float64(cy-1)/config.AspectRatio)
	if radius < 3 {
		radius = 3
	}

	glyphs := make([][]rune, height)
	kinds := make([][]focusCell, height)
	for r := range glyphs {
		glyphs[r] = []rune(strings.Repeat(" ", width))
		kinds[r] = make([]focusCell, width)
	}
	put := func(col, row int, ch rune, k focusCell) {
		if col >= 0 && col < width && row >= 0 && row < height {
			glyphs[row][col] = ch
			kinds[row][col] = k
		}
	}

	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			if math.Abs(hud.CellDistance(col, row, cx, cy)-radius) < 0.6 {
				put(col, row, hud.RingChar(hud.CellAngle(col, row, cx, cy)), cellRing)
			}
		}
	}

	// Head-locked markers sit just outside the ring.
	rr := int(math.Round(radius * config.AspectRatio))
	ri := int(math.Round(radius))
	put(cx, cy-rr-1, 'F', cellMark)
	put(cx, cy+rr+1, 'B', cellMark)
	put(cx-ri-1, cy, 'L', cellMark)
	put(cx+ri+1, cy, 'R', cellMark)
	put(cx, cy, '+', cellMark)

	reach := 1 - 0.7*math.Min(p.Distance/config.FocusRange, 1)
	steps := int(radius)
	for s := 1; s < steps; s++ {
		t := float64(s) / float64(steps)
		if t > reach {
			break
		}
		step := p.Offset
		step.X *= t
		step.Y *= t
		col, row := hud.OffsetToCell(step, ring.Radius, radius, cx, cy)
		if kinds[row][col] == cellEmpty || kinds[row][col] == cellRing {
			put(col, row, '.', cellTrail)
		}
	}

	pc, pr := hud.OffsetToCell(p.Offset, ring.Radius, radius, cx, cy)
	put(pc, pr, rune(hud.PointGlyph(p.Size)), cellPoint)

	pointSty := lipgloss.NewStyle().Foreground(lipgloss.Color(loudnessColor(peak))).Bold(true)
	trailSty := lipgloss.NewStyle().Foreground(lipgloss.Color(loudnessColor(peak)))
	ringSty := lipgloss.NewStyle().Foreground(ColorDimGreen)
	markSty := lipgloss.NewStyle().Foreground(ColorMatrixGreen).Bold(true)

	var sb strings.Builder
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			ch := string(glyphs[row][col])
			switch kinds[row][col] {
			case cellRing:
				sb.WriteString(ringSty.Render(ch))
			case cellMark:
				sb.WriteString(markSty.Render(ch))
			case cellTrail:
				sb.WriteString(trailSty.Render(ch))
			case cellPoint:
				sb.WriteString(pointSty.Render(ch))
			default:
				sb.WriteString(ch)
			}
		}
		if row < height-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// loudnessColor maps an analyser peak (0..255) to a green shade (brighter = louder).
func loudnessColor(peak float64) string {
	switch {
	case peak > 200:
		return "#00FF41"
	case peak > 150:
		return "#00CC33"
	case peak > 100:
		return "#00AA22"
	case peak > 50:
		return "#008F11"
	default:
		return "#005511"
	}
}
