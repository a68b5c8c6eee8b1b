package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

var tableHeader = []string{"PATH", "TYPE", "CANDIDATE", "ENTRYPOINT"}

func tableRow(e Entry) []string {
	return []string{e.Path, e.FileType, strconv.FormatBool(e.Candidate), strconv.FormatBool(e.Entrypoint)}
}

// TSVFormatter formats entries as tab-separated values.
type TSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *TSVFormatter) Format(w *bytes.Buffer, r *Report) error {
	w.WriteString(strings.Join(tableHeader, "\t"))
	w.WriteByte('\n')

	for _, e := range r.Entries {
		w.WriteString(strings.Join(tableRow(e), "\t"))
		w.WriteByte('\n')
	}

	return nil
}

func init() {
	Register("tsv", func() Formatter {
		return &TSVFormatter{}
	})
}

// Ensure TSVFormatter implements Formatter.
var _ Formatter = (*TSVFormatter)(nil)

// CSVFormatter formats entries as comma-separated values with proper quoting.
type CSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *CSVFormatter) Format(w *bytes.Buffer, r *Report) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(tableHeader); err != nil {
		return err
	}
	for _, e := range r.Entries {
		if err := writer.Write(tableRow(e)); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func init() {
	Register("csv", func() Formatter {
		return &CSVFormatter{}
	})
}

// Ensure CSVFormatter implements Formatter.
var _ Formatter = (*CSVFormatter)(nil)

// MarkdownFormatter formats entries as a GitHub-flavored Markdown table.
type MarkdownFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *MarkdownFormatter) Format(w *bytes.Buffer, r *Report) error {
	w.WriteString("| PATH | TYPE | ROLE |\n")
	w.WriteString("|------|------|------|\n")

	for _, e := range r.Entries {
		fmt.Fprintf(w, "| %s | %s | %s |\n", escapeMarkdownPipe(e.Path), e.FileType, e.Role())
	}

	return nil
}

// escapeMarkdownPipe escapes pipe characters in a string for Markdown tables.
func escapeMarkdownPipe(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func init() {
	Register("markdown", func() Formatter {
		return &MarkdownFormatter{}
	})
}

// Ensure MarkdownFormatter implements Formatter.
var _ Formatter = (*MarkdownFormatter)(nil)
