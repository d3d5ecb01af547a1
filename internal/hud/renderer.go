// Package hud draws the direction indicator as a head-locked ring in the
// terminal: straight ahead is up, each positional source is a point on the
// ring and the ring flashes when a haptic pulse fires.
package hud

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"soundscape.klederson.com/internal/config"
	"soundscape.klederson.com/internal/scene"
)

var (
	colorBright   = lipgloss.Color("#00FF41")
	colorMid      = lipgloss.Color("#008F11")
	colorDim      = lipgloss.Color("#004A0A")
	colorPoint    = lipgloss.Color("#FF3300")
	colorPointDim = lipgloss.Color("#882200")
	colorLabel    = lipgloss.Color("#00CC33")

	styleCenter   = lipgloss.NewStyle().Foreground(colorBright).Bold(true)
	styleRing     = lipgloss.NewStyle().Foreground(colorMid)
	styleDot      = lipgloss.NewStyle().Foreground(colorDim)
	stylePoint    = lipgloss.NewStyle().Foreground(colorPoint).Bold(true)
	stylePointDim = lipgloss.NewStyle().Foreground(colorPointDim)
	styleLabel    = lipgloss.NewStyle().Foreground(colorLabel)
	styleLabelSel = lipgloss.NewStyle().Foreground(colorBright).Bold(true).Underline(true)
	styleAhead    = lipgloss.NewStyle().Foreground(colorBright).Bold(true)
)

type pointPos struct {
	col, row int
	glyph    byte
	playing  bool
	label    string
	labelCol int
	labelRow int
	selected bool
}

// Render produces the HUD as a styled string. selected highlights one
// source's label; pass uuid.Nil for none.
func Render(width, height int, snap scene.Snapshot, glow *Glow, selected uuid.UUID) string {
	if width < 10 || height < 5 {
		return ""
	}

	centerX := width / 2
	centerY := height / 2
	radius := float64(min(centerX-1, int(float64(centerY-1)/config.AspectRatio)))
	if radius < 3 {
		radius = 3
	}

	// Ring band in cells, never thinner than one character
	band := 0.8
	if snap.Ring.Radius > 0 {
		band = math.Max(band, snap.Ring.Thickness/snap.Ring.Radius*radius/2)
	}

	pps := buildPointPositions(snap, centerX, centerY, radius, width, selected)

	type labelCell struct {
		ppIdx   int
		charIdx int
	}
	labelMap := make(map[int]labelCell)
	for i, pp := range pps {
		if pp.label == "" {
			continue
		}
		for ci := 0; ci < len(pp.label); ci++ {
			key := pp.labelRow*width + pp.labelCol + ci
			labelMap[key] = labelCell{ppIdx: i, charIdx: ci}
		}
	}

	intensity := glow.Intensity()

	var sb strings.Builder
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			key := row*width + col
			if lc, ok := labelMap[key]; ok {
				pp := pps[lc.ppIdx]
				sty := styleLabel
				if pp.selected {
					sty = styleLabelSel
				}
				sb.WriteString(sty.Render(string(pp.label[lc.charIdx])))
				continue
			}
			sb.WriteString(renderCell(col, row, centerX, centerY, radius, band, intensity, pps))
		}
		if row < height-1 {
			sb.WriteByte('\n')
		}
	}

	return sb.String()
}

// buildPointPositions places points and resolves label collisions.
func buildPointPositions(snap scene.Snapshot, centerX, centerY int, radius float64, width int, selected uuid.UUID) []pointPos {
	names := make(map[uuid.UUID]string, len(snap.Sources))
	playing := make(map[uuid.UUID]bool, len(snap.Sources))
	for _, s := range snap.Sources {
		names[s.ID] = s.Name
		playing[s.ID] = s.Playing
	}

	type segment struct{ start, end int }
	occupied := make(map[int][]segment)
	collides := func(row, col, n int) bool {
		for _, seg := range occupied[row] {
			if col < seg.end && col+n > seg.start {
				return true
			}
		}
		return false
	}

	pps := make([]pointPos, 0, len(snap.Points))
	for _, p := range snap.Points {
		pc, pr := OffsetToCell(p.Offset, snap.Ring.Radius, radius, centerX, centerY)
		occupied[pr] = append(occupied[pr], segment{pc, pc + 1})

		label := names[p.ID]
		if len(label) > config.MaxLabelLen {
			label = label[:config.MaxLabelLen]
		}

		// Labels go outside the ring: right of points on the right half
		lc := pc + 2
		if pc < centerX {
			lc = pc - len(label) - 1
		}
		if lc+len(label) >= width {
			lc = pc - len(label) - 1
		}
		if lc < 0 {
			lc = 0
		}

		lr := pr
		for _, try := range []int{pr, pr + 1, pr - 1} {
			lr = try
			if !collides(lr, lc, len(label)) {
				break
			}
		}
		if collides(lr, lc, len(label)) {
			label = ""
		}

		pps = append(pps, pointPos{
			col:      pc,
			row:      pr,
			glyph:    PointGlyph(p.Size),
			playing:  playing[p.ID],
			label:    label,
			labelCol: lc,
			labelRow: lr,
			selected: p.ID == selected,
		})

		if label != "" {
			occupied[lr] = append(occupied[lr], segment{lc, lc + len(label)})
		}
	}
	return pps
}

// PointGlyph scales the glyph with the point size.
func PointGlyph(size float64) byte {
	f := SizeFraction(size)
	switch {
	case f >= 0.6:
		return '@'
	case f >= 0.2:
		return 'O'
	case f > 0:
		return 'o'
	default:
		return '.'
	}
}

func renderCell(col, row, centerX, centerY int, radius, band, glow float64, pps []pointPos) string {
	for _, pp := range pps {
		if col == pp.col && row == pp.row {
			if pp.playing {
				return stylePoint.Render(string(pp.glyph))
			}
			return stylePointDim.Render(string(pp.glyph))
		}
	}

	dist := CellDistance(col, row, centerX, centerY)
	if dist > radius+band {
		return " "
	}

	if col == centerX && row == centerY {
		return styleCenter.Render("+")
	}

	angle := CellAngle(col, row, centerX, centerY)
	if math.Abs(dist-radius) < band {
		if col == centerX && row < centerY {
			return styleAhead.Render("^")
		}
		return renderGlowChar(RingChar(angle), glow)
	}

	if dist <= radius {
		if col == centerX && row < centerY {
			return styleDot.Render(":")
		}
	}

	return " "
}

func renderGlowChar(ch rune, intensity float64) string {
	color := glowColor(intensity)
	if color == "" {
		return styleRing.Render(string(ch))
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true).Render(string(ch))
}

func glowColor(intensity float64) string {
	if intensity <= 0 {
		return ""
	}
	if intensity > 0.8 {
		return "#00FF41"
	}
	if intensity > 0.5 {
		return "#00CC33"
	}
	if intensity > 0.3 {
		return "#00AA22"
	}
	return "#005511"
}

// RenderLegend produces the HUD legend line.
func RenderLegend(width int) string {
	legend := "   " +
		stylePoint.Render("@ loud") + "  " +
		stylePoint.Render("o quiet") + "  " +
		stylePointDim.Render(". stopped") + "  " +
		styleAhead.Render("^ ahead")

	pad := (width - lipgloss.Width(legend)) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + legend
}
