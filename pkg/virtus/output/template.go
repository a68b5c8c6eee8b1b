package output

import (
	"bytes"
	"strings"
	"sync"
	"text/template"

	"github.com/dustin/go-humanize"
)

// DefaultTemplate prints one tab-separated line per archive: name, size and
// entrypoint ("-" when none).
const DefaultTemplate = "{{.Archive}}\t{{bytes .Size}}\t{{or .Entrypoint \"-\"}}\n"

// TemplateFormatter renders the report with a user-supplied text/template.
// The template is parsed on first use.
type TemplateFormatter struct {
	mu     sync.Mutex
	source string
	parsed *template.Template
}

// NewTemplateFormatter returns a formatter for source.
func NewTemplateFormatter(source string) *TemplateFormatter {
	return &TemplateFormatter{source: source}
}

// SetTemplate replaces the template source.
func (f *TemplateFormatter) SetTemplate(source string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.source = source
	f.parsed = nil
}

// Template functions:
//
//	{{bytes .Size}}              humanized size
//	{{join .Candidates ","}}     joined list
//	{{role (index .Entries 0)}}  entrypoint, candidate or -
var templateFuncs = template.FuncMap{
	"bytes": func(size int64) string { return humanize.IBytes(uint64(size)) },
	"join":  strings.Join,
	"role":  Entry.Role,
}

// Format executes the template against r.
func (f *TemplateFormatter) Format(w *bytes.Buffer, r *Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.parsed == nil {
		tmpl, err := template.New("report").Funcs(templateFuncs).Parse(f.source)
		if err != nil {
			return err
		}
		f.parsed = tmpl
	}
	return f.parsed.Execute(w, r)
}

func init() {
	Register("template", func() Formatter { return NewTemplateFormatter(DefaultTemplate) })
}

var _ Formatter = (*TemplateFormatter)(nil)
