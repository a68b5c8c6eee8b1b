package tree

import (
	"path"
	"strings"
)

// Build constructs a tree from archive member paths. Siblings keep the order
// in which they first appear in entries. Files listed in candidates are
// marked, as is the entrypoint.
func Build(name string, entries, candidates []string, entrypoint string) *Node {
	root := &Node{Name: name, IsDir: true, Expanded: true}

	isCandidate := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		isCandidate[c] = true
	}

	dirs := map[string]*Node{"": root}

	for _, entry := range entries {
		clean := strings.TrimPrefix(path.Clean("/"+entry), "/")
		if clean == "" {
			continue
		}

		parent := ensureDir(path.Dir(clean), dirs)
		parent.AddChild(&Node{
			Path:       entry,
			Name:       path.Base(clean),
			FileType:   DetectFileType(clean),
			Candidate:  isCandidate[entry],
			Entrypoint: entrypoint != "" && entry == entrypoint,
		})
	}

	countFiles(root)
	return root
}

// ensureDir returns the directory node for dir, creating missing ancestors.
func ensureDir(dir string, dirs map[string]*Node) *Node {
	if dir == "." || dir == "/" {
		dir = ""
	}
	if node, ok := dirs[dir]; ok {
		return node
	}

	parent := ensureDir(path.Dir(dir), dirs)
	node := &Node{Path: dir + "/", Name: path.Base(dir), IsDir: true, Expanded: true}
	parent.AddChild(node)
	dirs[dir] = node
	return node
}

func countFiles(n *Node) int {
	if !n.IsDir {
		return 1
	}
	total := 0
	for _, child := range n.Children {
		total += countFiles(child)
	}
	n.FileCount = total
	return total
}

// fileTypeMap maps file extensions to human-readable type names.
var fileTypeMap = map[string]string{
	".go":   "Go",
	".py":   "Python",
	".js":   "JavaScript",
	".mjs":  "JavaScript",
	".cjs":  "JavaScript",
	".jsx":  "JSX",
	".ts":   "TypeScript",
	".tsx":  "TSX",
	".rs":   "Rust",
	".c":    "C",
	".h":    "C",
	".cc":   "C++",
	".cpp":  "C++",
	".cs":   "C#",
	".java": "Java",
	".kt":   "Kotlin",
	".rb":   "Ruby",
	".php":  "PHP",
	".lua":  "Lua",
	".sh":   "Shell",

	".html": "HTML",
	".htm":  "HTML",
	".css":  "CSS",

	".json":   "JSON",
	".yaml":   "YAML",
	".yml":    "YAML",
	".toml":   "TOML",
	".virtus": "Config",

	".md":  "Markdown",
	".txt": "Text",

	".png":  "Image",
	".jpg":  "Image",
	".jpeg": "Image",
	".gif":  "Image",
	".svg":  "Image",
}

// DetectFileType returns a human-readable file type based on the extension.
func DetectFileType(p string) string {
	if t, ok := fileTypeMap[strings.ToLower(path.Ext(p))]; ok {
		return t
	}
	return "File"
}
