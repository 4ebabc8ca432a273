package ui

import (
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// NewMarkdownRenderer picks a glamour style for the terminal. GLAMOUR_STYLE
// overrides detection.
func NewMarkdownRenderer(wordWrap int) (*glamour.TermRenderer, error) {
	if style := os.Getenv("GLAMOUR_STYLE"); style != "" {
		return glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(wordWrap),
		)
	}

	profile := termenv.ColorProfile()
	styleOption := glamour.WithAutoStyle()
	if profile == termenv.TrueColor || profile == termenv.ANSI256 {
		if lipgloss.HasDarkBackground() {
			styleOption = glamour.WithStandardStyle("dark")
		} else {
			styleOption = glamour.WithStandardStyle("light")
		}
	}

	return glamour.NewTermRenderer(
		styleOption,
		glamour.WithColorProfile(profile),
		glamour.WithWordWrap(wordWrap),
	)
}

// RenderMarkdown renders content for the terminal, falling back to the
// raw text if rendering fails.
func RenderMarkdown(content string, wordWrap int) string {
	r, err := NewMarkdownRenderer(wordWrap)
	if err != nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return out
}
