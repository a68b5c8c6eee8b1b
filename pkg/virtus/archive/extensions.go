package archive

import (
	"strings"
)

// DefaultExtensions is the allow-list of source-file suffixes that make an
// archive member a plausible entrypoint.
var DefaultExtensions = []string{
	// Scripts
	".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx",
	".py", ".rb", ".php", ".lua", ".sh",

	// Markup
	".html", ".htm",

	// Systems and JVM languages
	".go", ".rs", ".c", ".cc", ".cpp", ".h", ".cs", ".java", ".kt",
}

// NormalizeExtensions lowercases exts and ensures each starts with a dot.
// Empty values are dropped.
func NormalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

// IsCandidate reports whether path ends with one of exts.
// The comparison is case-insensitive; exts must already be normalized.
func IsCandidate(path string, exts []string) bool {
	lower := strings.ToLower(path)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// FilterCandidates returns the entries that end with a recognised extension,
// preserving their order. A nil exts uses DefaultExtensions.
func FilterCandidates(entries []string, exts []string) []string {
	if exts == nil {
		exts = DefaultExtensions
	}
	candidates := make([]string, 0)
	for _, entry := range entries {
		if IsCandidate(entry, exts) {
			candidates = append(candidates, entry)
		}
	}
	return candidates
}
