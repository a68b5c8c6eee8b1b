package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/virtuscloud/virtus/pkg/virtus/archive"
	"github.com/virtuscloud/virtus/pkg/virtus/types"
)

func sampleReport() *Report {
	return NewReport(&archive.Result{
		Archive:          "app.zip",
		Size:             2048,
		Digest:           "abc",
		Entries:          []string{"config.virtus", "src/main.py", "src/util.py", "README.md"},
		Candidates:       []string{"src/main.py", "src/util.py"},
		HasConfig:        true,
		ConfigEntrypoint: "src/main.py",
	}, types.ModeAuto, "src/main.py")
}

func TestNewReport(t *testing.T) {
	r := sampleReport()

	assert.Equal(t, "app.zip", r.Archive)
	assert.Equal(t, "2.0 KiB", r.SizeHuman)
	require.Len(t, r.Entries, 4)
	assert.Equal(t, "Config", r.Entries[0].FileType)
	assert.True(t, r.Entries[1].Entrypoint)
	assert.True(t, r.Entries[1].Candidate)
	assert.True(t, r.Entries[2].Candidate)
	assert.False(t, r.Entries[2].Entrypoint)
	assert.False(t, r.Entries[3].Candidate)
	assert.Empty(t, r.Warnings)
}

func TestNewReport_Warnings(t *testing.T) {
	r := NewReport(&archive.Result{
		Archive:    "a.zip",
		Entries:    []string{"config.virtus", "a.js"},
		Candidates: []string{"a.js"},
		HasConfig:  true,
	}, types.ModeManual, "")

	require.Len(t, r.Warnings, 2)
	assert.Contains(t, r.Warnings[0], "config.virtus")
	assert.Contains(t, r.Warnings[1], "manual mode")
}

func TestEntryRole(t *testing.T) {
	assert.Equal(t, "entrypoint", Entry{Candidate: true, Entrypoint: true}.Role())
	assert.Equal(t, "candidate", Entry{Candidate: true}.Role())
	assert.Equal(t, "-", Entry{}.Role())
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register("x", func() Formatter { return &PlainFormatter{} })

	f, err := reg.Get("x")
	require.NoError(t, err)
	assert.IsType(t, &PlainFormatter{}, f)

	_, err = reg.Get("missing")
	assert.Error(t, err)
	assert.Equal(t, []string{"x"}, reg.Available())
}

func TestDefaultRegistry(t *testing.T) {
	assert.Equal(t,
		[]string{"csv", "json", "jsonl", "markdown", "plain", "pretty", "template", "tree", "tsv", "yaml"},
		Available())
}

func format(t *testing.T, name string, r *Report) string {
	t.Helper()
	f, err := Get(name)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, r))
	return buf.String()
}

func TestJSONFormatter(t *testing.T) {
	out := format(t, "json", sampleReport())

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "app.zip", decoded["archive"])
	assert.Equal(t, "src/main.py", decoded["entrypoint"])
	assert.Equal(t, "auto", decoded["mode"])
	assert.Len(t, decoded["entries"], 4)
	assert.Len(t, decoded["candidates"], 2)
}

func TestJSONFormatter_EmptyLists(t *testing.T) {
	r := NewReport(&archive.Result{Archive: "e.zip", Entries: []string{}, Candidates: []string{}}, types.ModeAuto, "")
	out := format(t, "json", r)
	assert.Contains(t, out, `"entries": []`)
	assert.Contains(t, out, `"candidates": []`)
	assert.Contains(t, out, `"entrypoint": ""`)
}

func TestJSONLFormatter(t *testing.T) {
	out := format(t, "jsonl", sampleReport())
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)

	var e Entry
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &e))
	assert.Equal(t, "src/main.py", e.Path)
	assert.True(t, e.Entrypoint)
}

func TestYAMLFormatter(t *testing.T) {
	out := format(t, "yaml", sampleReport())

	var decoded Report
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "app.zip", decoded.Archive)
	assert.Equal(t, types.ModeAuto, decoded.Mode)
	assert.Equal(t, []string{"src/main.py", "src/util.py"}, decoded.Candidates)
}

func TestPlainFormatter(t *testing.T) {
	out := format(t, "plain", sampleReport())
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "ROLE"))
	assert.Contains(t, lines[2], "entrypoint")
	assert.Contains(t, lines[2], "src/main.py")
	assert.Contains(t, lines[3], "candidate")
}

func TestTreeFormatter(t *testing.T) {
	out := format(t, "tree", sampleReport())
	assert.True(t, strings.HasPrefix(out, "app.zip/\n"))
	assert.Contains(t, out, "main.py <- entrypoint")
	assert.Contains(t, out, "util.py *")
}

func TestTSVFormatter(t *testing.T) {
	out := format(t, "tsv", sampleReport())
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "PATH\tTYPE\tCANDIDATE\tENTRYPOINT", lines[0])
	assert.Equal(t, "src/main.py\tPython\ttrue\ttrue", lines[2])
}

func TestCSVFormatter(t *testing.T) {
	r := NewReport(&archive.Result{Archive: "q.zip", Entries: []string{"a,b.js"}, Candidates: []string{"a,b.js"}}, types.ModeAuto, "")
	out := format(t, "csv", r)

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"a,b.js", "JavaScript", "true", "false"}, records[1])
}

func TestMarkdownFormatter(t *testing.T) {
	r := NewReport(&archive.Result{Archive: "m.zip", Entries: []string{"a|b.go"}}, types.ModeAuto, "")
	out := format(t, "markdown", r)
	assert.Contains(t, out, "| PATH | TYPE | ROLE |")
	assert.Contains(t, out, `| a\|b.go | Go | - |`)
}

func TestTemplateFormatter(t *testing.T) {
	t.Run("default template", func(t *testing.T) {
		out := format(t, "template", sampleReport())
		assert.Equal(t, "app.zip\t2.0 KiB\tsrc/main.py\n", out)
	})

	t.Run("custom template", func(t *testing.T) {
		f := NewTemplateFormatter(`{{join .Candidates ","}}`)
		var buf bytes.Buffer
		require.NoError(t, f.Format(&buf, sampleReport()))
		assert.Equal(t, "src/main.py,src/util.py", buf.String())

		f.SetTemplate(`{{len .Entries}}`)
		buf.Reset()
		require.NoError(t, f.Format(&buf, sampleReport()))
		assert.Equal(t, "4", buf.String())
	})

	t.Run("invalid template", func(t *testing.T) {
		f := NewTemplateFormatter(`{{.Broken`)
		var buf bytes.Buffer
		assert.Error(t, f.Format(&buf, sampleReport()))
	})
}

func TestPrettyFormatter(t *testing.T) {
	out := format(t, "pretty", sampleReport())
	assert.Contains(t, out, "app.zip")
	assert.Contains(t, out, "CANDIDATES")
	assert.Contains(t, out, "> src/main.py")
	assert.Contains(t, out, "src/util.py")

	empty := NewReport(&archive.Result{Archive: "e.zip"}, types.ModeManual, "")
	out = format(t, "pretty", empty)
	assert.Contains(t, out, "No entrypoint candidates found")
}

func TestRenderError(t *testing.T) {
	assert.Contains(t, RenderError(errors.New("boom")), "boom")
}
