// Package tui provides the interactive entrypoint picker for the virtus CLI.
// It uses Charmbracelet's Bubble Tea, Lip Gloss, and Bubbles.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	primaryColor   = lipgloss.Color("#7D56F4")
	candidateColor = lipgloss.Color("#00D9FF")
	chosenColor    = lipgloss.Color("#28A745")
	mutedColor     = lipgloss.Color("#666666")
	borderColor    = lipgloss.Color("#333333")
)

var (
	outerBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	dividerStyle     = lipgloss.NewStyle().Foreground(borderColor)
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	mutedTextStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	successTextStyle = lipgloss.NewStyle().Foreground(chosenColor)

	keyStyle     = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	keyDescStyle = lipgloss.NewStyle().Foreground(mutedColor)
)

// Tree rows. The cursor row is highlighted; the icon color marks whether a
// file is a candidate or the chosen entrypoint.
var (
	treeRowHighlightStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("#4A2040")).
				Foreground(lipgloss.Color("#FFFFFF")).
				Bold(true)
	treeRowNormalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))

	treeCandidateColor = candidateColor
	treeChosenColor    = chosenColor
	treeTypeColor      = mutedColor
)

func renderDivider(width int) string {
	if width <= 0 {
		return ""
	}
	return dividerStyle.Render(strings.Repeat("─", width))
}

// truncatePath keeps the tail of path, which holds the archive name.
func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	if maxLen <= 3 {
		return path[:maxLen]
	}
	return "..." + path[len(path)-(maxLen-3):]
}

func center(s string, width int) string {
	if lipgloss.Width(s) >= width {
		return s
	}
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, s)
}
