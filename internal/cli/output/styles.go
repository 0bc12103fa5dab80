package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Styles holds the lipgloss styles used in text mode.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Muted   lipgloss.Style
	Field   lipgloss.Style
	Value   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

// newStyles binds styles to w. Without color every style renders plain text.
func newStyles(w io.Writer, color bool) *Styles {
	lr := lipgloss.NewRenderer(w)
	if color {
		profile := termenv.NewOutput(w).EnvColorProfile()
		if profile == termenv.Ascii {
			profile = termenv.ANSI256
		}
		lr.SetColorProfile(profile)
	} else {
		lr.SetColorProfile(termenv.Ascii)
	}

	return &Styles{
		Header1: lr.NewStyle().Bold(true).Underline(true),
		Header2: lr.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Muted:   lr.NewStyle().Foreground(lipgloss.Color("244")),
		Field:   lr.NewStyle().Foreground(lipgloss.Color("39")),
		Value:   lr.NewStyle().Foreground(lipgloss.Color("222")),
		Success: lr.NewStyle().Foreground(lipgloss.Color("42")),
		Warning: lr.NewStyle().Foreground(lipgloss.Color("214")),
		Error:   lr.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
}
