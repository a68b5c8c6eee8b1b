package tree

import (
	"io"
	"strings"
)

// Markers appended to file names by Render.
const (
	MarkCandidate  = " *"
	MarkEntrypoint = " <- entrypoint"
)

// Render writes an ASCII drawing of the tree rooted at n, ignoring the
// Expanded flag.
func Render(w io.Writer, n *Node) error {
	var sb strings.Builder
	sb.WriteString(n.Name)
	if n.IsDir && n.Name != "" && !strings.HasSuffix(n.Name, "/") {
		sb.WriteString("/")
	}
	sb.WriteString("\n")

	for i, child := range n.Children {
		renderNode(&sb, child, "", i == len(n.Children)-1)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func renderNode(sb *strings.Builder, n *Node, prefix string, last bool) {
	branch, next := "├── ", "│   "
	if last {
		branch, next = "└── ", "    "
	}

	sb.WriteString(prefix)
	sb.WriteString(branch)
	sb.WriteString(n.Name)
	switch {
	case n.IsDir:
		sb.WriteString("/")
	case n.Entrypoint:
		sb.WriteString(MarkEntrypoint)
	case n.Candidate:
		sb.WriteString(MarkCandidate)
	}
	sb.WriteString("\n")

	for i, child := range n.Children {
		renderNode(sb, child, prefix+next, i == len(n.Children)-1)
	}
}
