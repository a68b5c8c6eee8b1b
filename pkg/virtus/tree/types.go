// Package tree builds a browsable directory tree from an archive's member paths.
package tree

// Node represents a directory or file inside an archive.
type Node struct {
	// Path is the slash-separated member path; "" for the root.
	Path string `json:"path"`
	Name string `json:"name"`

	IsDir bool `json:"is_dir"`

	// FileType is a human-readable type derived from the extension (files only).
	FileType string `json:"file_type,omitempty"`

	// Candidate marks files that may serve as entrypoint.
	Candidate bool `json:"candidate,omitempty"`

	// Entrypoint marks the resolved entrypoint file.
	Entrypoint bool `json:"entrypoint,omitempty"`

	// FileCount is the number of files underneath a directory.
	FileCount int `json:"file_count,omitempty"`

	Children []*Node `json:"children,omitempty"`
	Parent   *Node   `json:"-"`

	// Expanded is UI state for collapsible views.
	Expanded bool `json:"-"`
}

// AddChild adds a child node and sets this node as the child's parent.
func (n *Node) AddChild(child *Node) {
	child.Parent = n
	n.Children = append(n.Children, child)
}

// Depth returns the distance from the root (root = 0).
func (n *Node) Depth() int {
	depth := 0
	for p := n.Parent; p != nil; p = p.Parent {
		depth++
	}
	return depth
}

// Flatten returns the visible nodes in display order.
// Collapsed directories hide their children.
func (n *Node) Flatten() []*Node {
	result := []*Node{n}
	if n.IsDir && n.Expanded {
		for _, child := range n.Children {
			result = append(result, child.Flatten()...)
		}
	}
	return result
}

// Toggle expands or collapses a directory node.
func (n *Node) Toggle() {
	if n.IsDir {
		n.Expanded = !n.Expanded
	}
}

// ExpandAll expands this node and all descendant directories.
func (n *Node) ExpandAll() {
	if !n.IsDir {
		return
	}
	n.Expanded = true
	for _, child := range n.Children {
		child.ExpandAll()
	}
}

// CollapseAll collapses this node and all descendant directories.
func (n *Node) CollapseAll() {
	if !n.IsDir {
		return
	}
	n.Expanded = false
	for _, child := range n.Children {
		child.CollapseAll()
	}
}

// Find returns the node with the given member path, or nil.
func (n *Node) Find(path string) *Node {
	if n.Path == path {
		return n
	}
	for _, child := range n.Children {
		if found := child.Find(path); found != nil {
			return found
		}
	}
	return nil
}
