package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette adapts to the terminal background.
var (
	ColorPrimary = lipgloss.AdaptiveColor{Light: "125", Dark: "205"}
	ColorAccent  = lipgloss.AdaptiveColor{Light: "130", Dark: "214"}

	ColorSuccess = lipgloss.AdaptiveColor{Light: "22", Dark: "10"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "136", Dark: "11"}
	ColorError   = lipgloss.AdaptiveColor{Light: "160", Dark: "9"}

	ColorText      = lipgloss.AdaptiveColor{Light: "232", Dark: "252"}
	ColorTextMuted = lipgloss.AdaptiveColor{Light: "240", Dark: "244"}
	ColorTextDim   = lipgloss.AdaptiveColor{Light: "244", Dark: "240"}
	ColorBorder    = lipgloss.AdaptiveColor{Light: "248", Dark: "238"}
)

var (
	StyleTitle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	StyleTextMuted = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	StyleTextDim = lipgloss.NewStyle().
			Foreground(ColorTextDim)

	StyleFormLabel = lipgloss.NewStyle().
			Foreground(ColorText).
			Bold(true)

	StyleFormHelp = lipgloss.NewStyle().
			Foreground(ColorTextDim).
			Italic(true)

	StyleRequired = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	StyleSelected = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	StyleSuccess = lipgloss.NewStyle().
			Foreground(ColorSuccess).
			Bold(true)

	StyleWarning = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Bold(true)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	StyleCard = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)
)

// CreateStatus renders text in the style of its status type.
func CreateStatus(text string, statusType string) string {
	switch statusType {
	case "success":
		return StyleSuccess.Render(text)
	case "warning":
		return StyleWarning.Render(text)
	case "error":
		return StyleError.Render(text)
	default:
		return text
	}
}

// CreateHelp joins key hints into one dimmed line.
func CreateHelp(hints ...string) string {
	return StyleTextDim.Render(strings.Join(hints, " • "))
}
