package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// --- Color Palette (Dark Mode) ---
var (
	ColorPrimary = lipgloss.Color("#7D56F4") // Indigo/Purple
	ColorError   = lipgloss.Color("#FF5F87") // Pink/Red
	ColorText    = lipgloss.Color("#FAFAFA") // White-ish
	ColorSubtle  = lipgloss.Color("#767676") // Gray
)

// --- Base Styles ---

var (
	// Titles
	Title = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true).
		Padding(0, 1).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(ColorSubtle)

	Subtle = lipgloss.NewStyle().Foreground(ColorSubtle)

	Active = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)

	Error = lipgloss.NewStyle().Foreground(ColorError)
)

func RenderKey(key, desc string) string {
	return lipgloss.JoinHorizontal(lipgloss.Center,
		lipgloss.NewStyle().Foreground(ColorText).Bold(true).Render("<"+key+">"),
		" ",
		Subtle.Render(desc),
	)
}
