// Package output renders archive inspection reports in various formats
// (pretty, plain, tree, json, yaml, etc.).
//
// Formatters are registered by name and selected at runtime:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, report); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/virtuscloud/virtus/pkg/virtus/archive"
	"github.com/virtuscloud/virtus/pkg/virtus/tree"
	"github.com/virtuscloud/virtus/pkg/virtus/types"
)

// Entry is one archive member in a report.
type Entry struct {
	Path       string `json:"path" yaml:"path"`
	FileType   string `json:"file_type" yaml:"file_type"`
	Candidate  bool   `json:"candidate" yaml:"candidate"`
	Entrypoint bool   `json:"entrypoint" yaml:"entrypoint"`
}

// Role returns "entrypoint", "candidate" or "-".
func (e Entry) Role() string {
	switch {
	case e.Entrypoint:
		return "entrypoint"
	case e.Candidate:
		return "candidate"
	default:
		return "-"
	}
}

// Report is the formatter input. It is built from an inspection result and
// the entrypoint chosen for it.
type Report struct {
	Archive          string        `json:"archive" yaml:"archive"`
	Size             int64         `json:"size" yaml:"size"`
	SizeHuman        string        `json:"size_human" yaml:"size_human"`
	Digest           string        `json:"digest,omitempty" yaml:"digest,omitempty"`
	Mode             types.Mode    `json:"mode" yaml:"mode"`
	Entries          []Entry       `json:"entries" yaml:"entries"`
	Candidates       []string      `json:"candidates" yaml:"candidates"`
	Entrypoint       string        `json:"entrypoint" yaml:"entrypoint"`
	HasConfig        bool          `json:"has_config" yaml:"has_config"`
	ConfigEntrypoint string        `json:"config_entrypoint,omitempty" yaml:"config_entrypoint,omitempty"`
	Elapsed          time.Duration `json:"-" yaml:"-"`
	Warnings         []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// NewReport assembles a report for r. entrypoint is the effective
// selection, which may differ from the resolved one after a manual choice.
func NewReport(r *archive.Result, mode types.Mode, entrypoint string) *Report {
	candidates := make(map[string]bool, len(r.Candidates))
	for _, c := range r.Candidates {
		candidates[c] = true
	}

	entries := make([]Entry, len(r.Entries))
	for i, p := range r.Entries {
		entries[i] = Entry{
			Path:       p,
			FileType:   tree.DetectFileType(p),
			Candidate:  candidates[p],
			Entrypoint: entrypoint != "" && p == entrypoint,
		}
	}

	report := &Report{
		Archive:          r.Archive,
		Size:             r.Size,
		SizeHuman:        types.FormatSize(r.Size),
		Digest:           r.Digest,
		Mode:             mode,
		Entries:          entries,
		Candidates:       append([]string{}, r.Candidates...),
		Entrypoint:       entrypoint,
		HasConfig:        r.HasConfig,
		ConfigEntrypoint: r.ConfigEntrypoint,
		Elapsed:          r.Elapsed,
	}

	if r.HasConfig && r.ConfigEntrypoint == "" {
		report.Warnings = append(report.Warnings, archive.ConfigMember+" has no entrypoint line")
	}
	if mode.Manual() && entrypoint == "" && len(r.Candidates) > 0 {
		report.Warnings = append(report.Warnings, "manual mode: choose an entrypoint with --entrypoint or --pick")
	}
	return report
}

// Tree builds the file tree for the report.
func (r *Report) Tree() *tree.Node {
	paths := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		paths[i] = e.Path
	}
	return tree.Build(r.Archive, paths, r.Candidates, r.Entrypoint)
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	Format(w *bytes.Buffer, r *Report) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry.
// It will replace any existing formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
