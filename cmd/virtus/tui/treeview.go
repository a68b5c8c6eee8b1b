package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/virtuscloud/virtus/pkg/virtus/tree"
)

// Tree view icons using Unicode symbols.
const (
	iconExpanded  = "▼" // Black down-pointing triangle
	iconCollapsed = "▶" // Black right-pointing triangle
	iconChosen    = "●" // Black circle (filled)
	iconCandidate = "○" // White circle (outline)
	iconFile      = "·" // Middle dot
)

// TreeView displays the archive tree with expand/collapse, a cursor and a
// single chosen entrypoint among the candidate files.
type TreeView struct {
	root   *tree.Node
	flat   []*tree.Node // Flattened visible nodes
	cursor int          // Index in flat slice
	offset int          // Scroll offset
	chosen string       // Path of the chosen candidate
}

// NewTreeView creates a TreeView over root. The node marked as entrypoint,
// if any, starts out chosen and under the cursor.
func NewTreeView(root *tree.Node) *TreeView {
	tv := &TreeView{root: root}
	tv.refresh()

	for i, node := range tv.flat {
		if node.Entrypoint {
			tv.chosen = node.Path
			tv.cursor = i
			break
		}
	}
	return tv
}

// refresh rebuilds the flat list from the current tree state.
func (tv *TreeView) refresh() {
	if tv.root == nil {
		tv.flat = nil
		return
	}
	tv.flat = tv.root.Flatten()

	if tv.cursor >= len(tv.flat) {
		tv.cursor = len(tv.flat) - 1
	}
	if tv.cursor < 0 {
		tv.cursor = 0
	}
}

// MoveUp moves the cursor up one position.
func (tv *TreeView) MoveUp() {
	if tv.cursor > 0 {
		tv.cursor--
	}
}

// MoveDown moves the cursor down one position.
func (tv *TreeView) MoveDown() {
	if tv.cursor < len(tv.flat)-1 {
		tv.cursor++
	}
}

// NextCandidate moves the cursor to the next visible candidate, if any.
func (tv *TreeView) NextCandidate() {
	for i := tv.cursor + 1; i < len(tv.flat); i++ {
		if tv.flat[i].Candidate {
			tv.cursor = i
			return
		}
	}
}

// Toggle expands or collapses the directory under the cursor, or chooses
// the candidate under the cursor. It reports whether a candidate was chosen.
func (tv *TreeView) Toggle() bool {
	node := tv.Selected()
	if node == nil {
		return false
	}

	if node.IsDir {
		node.Toggle()
		tv.refresh()
		return false
	}
	if !node.Candidate {
		return false
	}
	tv.chosen = node.Path
	return true
}

// ExpandAll expands every directory.
func (tv *TreeView) ExpandAll() {
	if tv.root != nil {
		tv.root.ExpandAll()
		tv.refresh()
	}
}

// CollapseAll collapses every directory below the root.
func (tv *TreeView) CollapseAll() {
	if tv.root == nil {
		return
	}
	for _, child := range tv.root.Children {
		child.CollapseAll()
	}
	tv.cursor = 0
	tv.refresh()
}

// Selected returns the node under the cursor.
func (tv *TreeView) Selected() *tree.Node {
	if len(tv.flat) == 0 || tv.cursor < 0 || tv.cursor >= len(tv.flat) {
		return nil
	}
	return tv.flat[tv.cursor]
}

// Chosen returns the chosen candidate path, or "".
func (tv *TreeView) Chosen() string {
	return tv.chosen
}

// View renders the tree view within the given dimensions.
func (tv *TreeView) View(width, height int) string {
	if len(tv.flat) == 0 {
		return center(mutedTextStyle.Render("No files to display"), width) + "\n"
	}

	visibleRows := height
	if visibleRows < 1 {
		visibleRows = 1
	}
	tv.ensureVisible(visibleRows)

	var b strings.Builder
	for i := tv.offset; i < tv.offset+visibleRows && i < len(tv.flat); i++ {
		b.WriteString(tv.renderNode(tv.flat[i], width, i == tv.cursor))
		b.WriteString("\n")
	}
	return b.String()
}

// ensureVisible adjusts offset to keep the cursor within visible rows.
func (tv *TreeView) ensureVisible(visible int) {
	if tv.cursor < tv.offset {
		tv.offset = tv.cursor
	} else if tv.cursor >= tv.offset+visible {
		tv.offset = tv.cursor - visible + 1
	}
	if tv.offset < 0 {
		tv.offset = 0
	}
}

func (tv *TreeView) icon(node *tree.Node) string {
	switch {
	case node.IsDir && node.Expanded:
		return iconExpanded
	case node.IsDir:
		return iconCollapsed
	case node.Path == tv.chosen:
		return iconChosen
	case node.Candidate:
		return iconCandidate
	default:
		return iconFile
	}
}

// renderNode renders a single node row.
func (tv *TreeView) renderNode(node *tree.Node, width int, isCursor bool) string {
	indent := strings.Repeat("  ", node.Depth())
	icon := tv.icon(node)
	name := node.Name
	if node.IsDir && node.Parent != nil {
		name += "/"
	}
	detail := node.FileType
	if node.Path == tv.chosen {
		detail = "entrypoint"
	}

	contentLen := lipgloss.Width(indent + icon + " " + name)
	padding := width - contentLen - lipgloss.Width(detail) - 1
	if padding < 1 {
		padding = 1
	}

	if isCursor {
		row := indent + icon + " " + name + strings.Repeat(" ", padding) + detail
		return treeRowHighlightStyle.Width(width).Render(row)
	}

	iconStyle := lipgloss.NewStyle().Foreground(treeTypeColor)
	switch {
	case node.Path == tv.chosen:
		iconStyle = lipgloss.NewStyle().Foreground(treeChosenColor)
	case node.Candidate:
		iconStyle = lipgloss.NewStyle().Foreground(treeCandidateColor)
	}

	var styled strings.Builder
	styled.WriteString(indent)
	styled.WriteString(iconStyle.Render(icon))
	styled.WriteString(" ")
	styled.WriteString(name)
	styled.WriteString(strings.Repeat(" ", padding))
	styled.WriteString(lipgloss.NewStyle().Foreground(treeTypeColor).Render(detail))
	return treeRowNormalStyle.Width(width).Render(styled.String())
}
