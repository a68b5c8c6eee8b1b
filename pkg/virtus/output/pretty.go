package output

import (
	"bytes"
	"fmt"
	"strings"
)

// PrettyFormatter formats the report with colors and boxes using lipgloss.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Report) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")
	w.WriteString(f.formatCandidates(r))
	w.WriteString(f.formatFooter(r))

	if len(r.Warnings) > 0 {
		w.WriteString("\n")
		w.WriteString(f.formatWarnings(r.Warnings))
	}

	return nil
}

func (f *PrettyFormatter) formatHeader(r *Report) string {
	lines := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("Archive:"), ValueStyle.Render(r.Archive)),
		fmt.Sprintf("%s %s  %s %s",
			LabelStyle.Render("Size:"), ValueStyle.Render(r.SizeHuman),
			LabelStyle.Render("Mode:"), ValueStyle.Render(string(r.Mode))),
	}

	config := MutedStyle.Render("none")
	if r.HasConfig {
		config = ValueStyle.Render("present")
		if r.ConfigEntrypoint != "" {
			config = ValueStyle.Render("entrypoint = " + r.ConfigEntrypoint)
		}
	}
	lines = append(lines, fmt.Sprintf("%s %s", LabelStyle.Render("Config:"), config))

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

func (f *PrettyFormatter) formatCandidates(r *Report) string {
	if len(r.Candidates) == 0 {
		return MutedStyle.Render("  No entrypoint candidates found") + "\n"
	}

	var sb strings.Builder
	sb.WriteString("  " + TableHeaderStyle.Render("CANDIDATES") + "\n")

	for _, c := range r.Candidates {
		if c == r.Entrypoint {
			sb.WriteString("  " + EntrypointStyle.Render("> "+c) + "\n")
			continue
		}
		sb.WriteString("  " + PathStyle.Render("  "+c) + "\n")
	}

	return sb.String()
}

func (f *PrettyFormatter) formatFooter(r *Report) string {
	entrypoint := MutedStyle.Render("none")
	if r.Entrypoint != "" {
		entrypoint = EntrypointStyle.Render(r.Entrypoint)
	}

	parts := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("Entries:"), ValueStyle.Render(fmt.Sprintf("%d", len(r.Entries)))),
		fmt.Sprintf("%s %s", LabelStyle.Render("Candidates:"), SuccessStyle.Render(fmt.Sprintf("%d", len(r.Candidates)))),
		fmt.Sprintf("%s %s", LabelStyle.Render("Entrypoint:"), entrypoint),
		MutedStyle.Render("Use -o tree to see every file"),
	}

	return FooterBox.Render(strings.Join(parts, "  "))
}

func (f *PrettyFormatter) formatWarnings(warnings []string) string {
	var sb strings.Builder

	sb.WriteString(WarningStyle.Bold(true).Render("Warnings:"))
	sb.WriteString("\n")

	for _, warning := range warnings {
		sb.WriteString(WarningStyle.Render("  " + warning))
		sb.WriteString("\n")
	}

	return sb.String()
}

// RenderError returns err inside the error box, for terminal display.
func RenderError(err error) string {
	return ErrorBox.Render(ErrorStyle.Render("Error: ") + err.Error())
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
