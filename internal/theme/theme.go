// Package theme provides the Lip Gloss color palette and reusable styles
// for the event map TUI. It is a leaf package with no internal imports
// to avoid import cycles.
package theme

import "github.com/charmbracelet/lipgloss"

// Marker colors.
var (
	ColorMarker  = lipgloss.Color("#3b82f6")
	ColorMine    = lipgloss.Color("#a855f7")
	ColorGoing   = lipgloss.Color("#22c55e")
	ColorCluster = lipgloss.Color("#f59e0b")
	ColorCursor  = lipgloss.Color("#f9fafb")
)

// Map ground colors.
var (
	ColorGrid      = lipgloss.Color("#1f2937")
	ColorGraticule = lipgloss.Color("#374151")
)

// Reaction colors.
var (
	ColorReactGoing    = lipgloss.Color("#16a34a")
	ColorReactNotGoing = lipgloss.Color("#dc2626")
	ColorReactNone     = lipgloss.Color("#6b7280")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorBg      = lipgloss.Color("#111827")
	ColorDefault = lipgloss.Color("#9ca3af")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
)

// ReactionColor returns the color for a reaction type string.
func ReactionColor(reaction string) lipgloss.Color {
	switch reaction {
	case "going":
		return ColorReactGoing
	case "not_going":
		return ColorReactNotGoing
	default:
		return ColorReactNone
	}
}

// ReactionLabel returns a short human label for a reaction type string.
func ReactionLabel(reaction string) string {
	switch reaction {
	case "going":
		return "going"
	case "not_going":
		return "not going"
	default:
		return "no answer"
	}
}

// ErrorColor returns the color used to flash an error of the given kind name.
func ErrorColor(kind string) lipgloss.Color {
	switch {
	case contains(kind, "Validation"):
		return ColorWarning
	case contains(kind, "Network"):
		return ColorWarning
	case kind == "":
		return ColorDefault
	default:
		return ColorDanger
	}
}

// StatusColor returns the color for an HTTP status code.
func StatusColor(status int) lipgloss.Color {
	switch {
	case status == 0:
		return ColorDanger
	case status >= 500:
		return ColorDanger
	case status >= 400:
		return ColorWarning
	default:
		return ColorHealthy
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
		Foreground(ColorDimmed)

	StyleSelected = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorBright)

	StyleError = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorDanger)

	StyleOK = lipgloss.NewStyle().
		Foreground(ColorHealthy)
)

// Marker glyphs.
const (
	GlyphMarker  = "◆"
	GlyphMine    = "★"
	GlyphGoing   = "●"
	GlyphCursor  = "+"
	GlyphGround  = "·"
	GlyphBalloon = "▼"
)

// ClusterGlyph returns the glyph for a cluster of n markers.
func ClusterGlyph(n int) string {
	switch {
	case n < 2:
		return GlyphMarker
	case n < 10:
		return string(rune('0' + n))
	default:
		return "+"
	}
}

func contains(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
