package archive

import (
	"regexp"
	"strings"
)

// ConfigMember is the root-level archive member that may declare the entrypoint.
const ConfigMember = "config.virtus"

// maxConfigSize bounds how much of the configuration member is read.
const maxConfigSize = 1 << 20

// configSpace is the whitespace class around "=": ASCII whitespace plus vertical
// tab, Unicode space separators, line/paragraph separators and BOM.
const configSpace = `[\s\v\p{Zs}\x{2028}\x{2029}\x{FEFF}]*`

// entrypointPattern matches the first "entrypoint = value" occurrence.
// "." does not cross newlines, so the capture ends at the line break.
var entrypointPattern = regexp.MustCompile(`entrypoint` + configSpace + `=` + configSpace + `(.+)`)

// ParseEntrypoint extracts the trimmed entrypoint value from configuration text.
// It returns "" when the text declares none.
func ParseEntrypoint(text string) string {
	m := entrypointPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
