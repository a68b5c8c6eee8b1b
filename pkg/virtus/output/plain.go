package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/virtuscloud/virtus/pkg/virtus/tree"
)

// PlainFormatter formats the report as an aligned table without styling.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	if _, err := tw.Write([]byte("ROLE\tPATH\n")); err != nil {
		return err
	}
	for _, e := range r.Entries {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", e.Role(), e.Path); err != nil {
			return err
		}
	}

	return tw.Flush()
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)

// TreeFormatter draws the archive as an ASCII tree.
type TreeFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *TreeFormatter) Format(w *bytes.Buffer, r *Report) error {
	return tree.Render(w, r.Tree())
}

func init() {
	Register("tree", func() Formatter {
		return &TreeFormatter{}
	})
}

// Ensure TreeFormatter implements Formatter.
var _ Formatter = (*TreeFormatter)(nil)
