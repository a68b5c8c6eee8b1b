package tree_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtuscloud/virtus/pkg/virtus/tree"
)

func TestBuild(t *testing.T) {
	t.Run("nests files under directories in enumeration order", func(t *testing.T) {
		entries := []string{"readme.md", "src/main.go", "src/internal/util.go", "config.virtus"}

		root := tree.Build("app.zip", entries, []string{"src/main.go", "src/internal/util.go"}, "src/main.go")

		require.NotNil(t, root)
		assert.True(t, root.IsDir)
		assert.Equal(t, "app.zip", root.Name)
		assert.Equal(t, 4, root.FileCount)

		require.Len(t, root.Children, 3)
		assert.Equal(t, "readme.md", root.Children[0].Name)
		assert.Equal(t, "src", root.Children[1].Name)
		assert.Equal(t, "config.virtus", root.Children[2].Name)

		src := root.Children[1]
		assert.True(t, src.IsDir)
		assert.Equal(t, "src/", src.Path)
		assert.Equal(t, 2, src.FileCount)
		require.Len(t, src.Children, 2)
		assert.Equal(t, "main.go", src.Children[0].Name)
		assert.Equal(t, "internal", src.Children[1].Name)
	})

	t.Run("marks candidates and entrypoint", func(t *testing.T) {
		root := tree.Build("app.zip", []string{"a.js", "b.js", "c.css"}, []string{"a.js", "b.js"}, "b.js")

		a := root.Find("a.js")
		require.NotNil(t, a)
		assert.True(t, a.Candidate)
		assert.False(t, a.Entrypoint)

		b := root.Find("b.js")
		require.NotNil(t, b)
		assert.True(t, b.Entrypoint)

		c := root.Find("c.css")
		require.NotNil(t, c)
		assert.False(t, c.Candidate)
		assert.Equal(t, "CSS", c.FileType)
	})

	t.Run("sets parents and depth", func(t *testing.T) {
		root := tree.Build("x", []string{"a/b/c.py"}, nil, "")
		c := root.Find("a/b/c.py")
		require.NotNil(t, c)
		assert.Equal(t, 3, c.Depth())
		assert.Equal(t, "b", c.Parent.Name)
	})

	t.Run("empty entries give empty root", func(t *testing.T) {
		root := tree.Build("empty.zip", nil, nil, "")
		assert.Empty(t, root.Children)
		assert.Equal(t, 0, root.FileCount)
	})
}

func TestNode_FlattenRespectsExpansion(t *testing.T) {
	root := tree.Build("app", []string{"src/a.go", "src/b.go", "main.go"}, nil, "")
	assert.Len(t, root.Flatten(), 5)

	src := root.Find("src/")
	require.NotNil(t, src)
	src.Toggle()
	assert.Len(t, root.Flatten(), 3)

	root.ExpandAll()
	assert.Len(t, root.Flatten(), 5)

	root.CollapseAll()
	assert.Len(t, root.Flatten(), 1)
}

func TestDetectFileType(t *testing.T) {
	assert.Equal(t, "Go", tree.DetectFileType("cmd/main.go"))
	assert.Equal(t, "Config", tree.DetectFileType("config.virtus"))
	assert.Equal(t, "File", tree.DetectFileType("Makefile"))
}

func TestRender(t *testing.T) {
	root := tree.Build("app.zip", []string{"src/main.go", "src/util.go", "readme.md"}, []string{"src/main.go", "src/util.go"}, "src/main.go")

	var buf bytes.Buffer
	require.NoError(t, tree.Render(&buf, root))

	want := "app.zip/\n" +
		"├── src/\n" +
		"│   ├── main.go <- entrypoint\n" +
		"│   └── util.go *\n" +
		"└── readme.md\n"
	assert.Equal(t, want, buf.String())
}
