package mapview

import (
	"math"
	"strconv"
	"strings"

	"github.com/FeS1111/TSP/internal/theme"
	"github.com/charmbracelet/lipgloss"
)

// Ground dots are drawn every dotCols by dotRows world cells so that panning
// is visible on an empty map.
const (
	dotCols = 6
	dotRows = 3
)

var (
	styleGround  = lipgloss.NewStyle().Foreground(theme.ColorGraticule)
	styleCluster = lipgloss.NewStyle().Bold(true).Foreground(theme.ColorCluster)
	styleBalloon = lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWarning)
	styleCursor  = lipgloss.NewStyle().Bold(true).Foreground(theme.ColorCursor)
)

func markerStyle(kind MarkerKind) lipgloss.Style {
	switch kind {
	case MarkerMine:
		return lipgloss.NewStyle().Bold(true).Foreground(theme.ColorMine)
	case MarkerGoing:
		return lipgloss.NewStyle().Bold(true).Foreground(theme.ColorGoing)
	default:
		return lipgloss.NewStyle().Bold(true).Foreground(theme.ColorMarker)
	}
}

func markerGlyph(kind MarkerKind) string {
	switch kind {
	case MarkerMine:
		return theme.GlyphMine
	case MarkerGoing:
		return theme.GlyphGoing
	default:
		return theme.GlyphMarker
	}
}

// View renders the map as width x height cells.
func (m *Map) View() string {
	if !m.created {
		return strings.Repeat(strings.Repeat(" ", m.width)+"\n", m.height-1) + strings.Repeat(" ", m.width)
	}

	glyphs := make(map[[2]int]glyph)
	for _, g := range m.layout() {
		glyphs[[2]int{g.col, g.row}] = g
	}

	anchor := [2]int{-1, -1}
	if m.balloon != nil {
		if col, row, ok := m.cellOf(m.balloon.at); ok {
			anchor = [2]int{col, row}
		}
	}

	zoom := m.cam.zoom.pos
	cx, cy := project(m.cam.center(), zoom)
	originX := cx/cellW - float64(m.width)/2
	originY := cy/cellH - float64(m.height)/2
	rowsInWorld := int(math.Ceil(worldSize(zoom) / cellH))

	var b strings.Builder
	var ground strings.Builder
	flush := func() {
		if ground.Len() > 0 {
			b.WriteString(styleGround.Render(ground.String()))
			ground.Reset()
		}
	}

	for row := 0; row < m.height; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		wy := int(math.Floor(originY + float64(row)))
		for col := 0; col < m.width; col++ {
			key := [2]int{col, row}
			cursor := col == m.cursorCol && row == m.cursorRow

			if g, ok := glyphs[key]; ok {
				flush()
				b.WriteString(renderGlyph(g, cursor))
				continue
			}
			if key == anchor {
				flush()
				b.WriteString(styleBalloon.Render(theme.GlyphBalloon))
				continue
			}
			if cursor {
				flush()
				b.WriteString(styleCursor.Render(theme.GlyphCursor))
				continue
			}

			wx := int(math.Floor(originX + float64(col)))
			if wy < 0 || wy >= rowsInWorld {
				ground.WriteByte(' ')
			} else if floorMod(wx, dotCols) == 0 && floorMod(wy, dotRows) == 0 {
				ground.WriteString(theme.GlyphGround)
			} else {
				ground.WriteByte(' ')
			}
		}
		flush()
	}
	return b.String()
}

func renderGlyph(g glyph, cursor bool) string {
	var s string
	var style lipgloss.Style
	if len(g.ids) > 1 {
		s = theme.ClusterGlyph(len(g.ids))
		style = styleCluster
	} else {
		s = markerGlyph(g.kind)
		style = markerStyle(g.kind)
	}
	if cursor {
		style = style.Reverse(true)
	}
	return style.Render(s)
}

func floorMod(a, b int) int {
	r := a % b
	if r < 0 {
		r += b
	}
	return r
}

func pluralEvents(n int) string {
	if n == 1 {
		return "1 event"
	}
	return strconv.Itoa(n) + " events"
}
