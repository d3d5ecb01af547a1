package hud

import (
	"math"

	"soundscape.klederson.com/internal/config"
	"soundscape.klederson.com/internal/spatial"
)

// CellDistance computes the distance from a cell to the HUD center,
// accounting for terminal aspect ratio.
func CellDistance(col, row, centerX, centerY int) float64 {
	dx := float64(col - centerX)
	dy := float64(row-centerY) / config.AspectRatio
	return math.Sqrt(dx*dx + dy*dy)
}

// CellAngle computes the screen angle from center to a cell.
// Returns radians in [0, 2π), where 0=up (ahead), increasing clockwise.
func CellAngle(col, row, centerX, centerY int) float64 {
	dx := float64(col - centerX)
	dy := float64(row-centerY) / config.AspectRatio
	return spatial.NormalizeAngle(math.Atan2(dx, -dy))
}

// RingChar returns the appropriate character for a ring at the given angle.
func RingChar(angle float64) rune {
	sector := int(math.Round(spatial.NormalizeAngle(angle)/(math.Pi/4))) % 8

	switch sector {
	case 0, 4: // top, bottom
		return '-'
	case 1, 5:
		return '/'
	case 2, 6: // sides
		return '|'
	case 3, 7:
		return '\\'
	default:
		return '.'
	}
}

// OffsetToCell maps a ring-plane offset onto the grid. The ring's +X axis
// (straight ahead) points up and +Y (left) points left, so the HUD reads
// like the view out of the listener's eyes.
func OffsetToCell(o spatial.Offset, ringRadius, radius float64, centerX, centerY int) (col, row int) {
	if ringRadius <= 0 {
		return centerX, centerY
	}
	scale := radius / ringRadius
	col = centerX - int(math.Round(o.Y*scale))
	row = centerY - int(math.Round(o.X*scale*config.AspectRatio))
	return col, row
}

// SizeFraction maps a point size onto [0, 1] between the point size limits.
func SizeFraction(size float64) float64 {
	f := (size - config.PointMinSize) / (config.PointMaxSize - config.PointMinSize)
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	return math.Min(f, 1)
}
