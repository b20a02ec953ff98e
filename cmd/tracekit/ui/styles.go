// Package ui provides terminal styling for tracekit reports.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Semantic colors
var (
	Success     = lipgloss.Color("#8BC34A") // Lime Green
	Destructive = lipgloss.Color("#e53935") // Red
	Info        = lipgloss.Color("#2196F3") // Blue
	Muted       = lipgloss.Color("#8a94a6")
)

// Theme holds the current color scheme
type Theme struct {
	Match      lipgloss.Color
	Divergence lipgloss.Color
	Header     lipgloss.Color
	Context    lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme
func LightTheme() Theme {
	return Theme{
		Match:      lipgloss.Color("#4e7a1f"),
		Divergence: Destructive,
		Header:     lipgloss.Color("#101F38"),
		Context:    Muted,
	}
}

// DarkTheme returns the dark mode theme
func DarkTheme() Theme {
	return Theme{
		Match:      Success,
		Divergence: Destructive,
		Header:     Info,
		Context:    Muted,
		IsDark:     true,
	}
}

// DetectTheme picks a theme from COLORFGBG ("foreground;background"),
// or TRACEKIT_DARK_MODE=1, defaulting to light.
func DetectTheme() Theme {
	if parts := strings.Split(os.Getenv("COLORFGBG"), ";"); len(parts) == 2 {
		// ANSI 0-6 and 8 (dark grey) are dark backgrounds
		if bg, err := strconv.Atoi(parts[1]); err == nil && ((bg >= 0 && bg <= 6) || bg == 8) {
			return DarkTheme()
		}
	}
	if os.Getenv("TRACEKIT_DARK_MODE") == "1" {
		return DarkTheme()
	}
	return LightTheme()
}

// Styles holds the styled components of the divergence report.
// It satisfies divergence.Highlighter.
type Styles struct {
	Theme Theme

	MatchStyle      lipgloss.Style
	DivergenceStyle lipgloss.Style
	HeaderStyle     lipgloss.Style
	AddedStyle      lipgloss.Style
	RemovedStyle    lipgloss.Style
	ContextStyle    lipgloss.Style
}

// NewStyles creates styles for theme
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme:           theme,
		MatchStyle:      lipgloss.NewStyle().Foreground(theme.Match).Bold(true),
		DivergenceStyle: lipgloss.NewStyle().Foreground(theme.Divergence).Bold(true),
		HeaderStyle:     lipgloss.NewStyle().Foreground(theme.Header).Bold(true),
		AddedStyle:      lipgloss.NewStyle().Foreground(theme.Match),
		RemovedStyle:    lipgloss.NewStyle().Foreground(theme.Divergence),
		ContextStyle:    lipgloss.NewStyle().Foreground(theme.Context),
	}
}

// DefaultStyles returns styles for the detected theme
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}

// Match renders a matching address.
func (s Styles) Match(v string) string {
	return s.MatchStyle.Render(v)
}

// Divergence renders a diverging address.
func (s Styles) Divergence(v string) string {
	return s.DivergenceStyle.Render(v)
}

// DiffLine renders one line of unified diff output by its leading marker.
func (s Styles) DiffLine(line string) string {
	switch {
	case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "@@"):
		return s.HeaderStyle.Render(line)
	case strings.HasPrefix(line, "+"):
		return s.AddedStyle.Render(line)
	case strings.HasPrefix(line, "-"):
		return s.RemovedStyle.Render(line)
	default:
		return s.ContextStyle.Render(line)
	}
}
