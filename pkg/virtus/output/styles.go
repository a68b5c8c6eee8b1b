package output

import "github.com/charmbracelet/lipgloss"

// ANSI 256 palette shared by the pretty formatter and the CLI banners.
const (
	ColorPrimary = lipgloss.Color("39")  // entrypoint, headers
	ColorSuccess = lipgloss.Color("42")  // candidates, completed steps
	ColorWarning = lipgloss.Color("214") // empty archives, soft failures
	ColorDanger  = lipgloss.Color("196")
	ColorMuted   = lipgloss.Color("245")
	ColorText    = lipgloss.Color("255")
)

func box(border lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)
}

var (
	// HeaderBox frames the archive summary.
	HeaderBox = box(ColorPrimary).MarginBottom(1)
	// FooterBox frames entry counts.
	FooterBox = box(ColorMuted).MarginTop(1)
	// ErrorBox frames errors printed by the CLI.
	ErrorBox = box(ColorDanger)
)

var (
	LabelStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	ValueStyle   = lipgloss.NewStyle().Foreground(ColorText)
	PathStyle    = lipgloss.NewStyle().Foreground(ColorText)
	MutedStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
	WarningStyle = lipgloss.NewStyle().Foreground(ColorWarning)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ColorDanger)

	EntrypointStyle  = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	TableHeaderStyle = lipgloss.NewStyle().Foreground(ColorMuted).Bold(true)
)
