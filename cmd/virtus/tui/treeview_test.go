package tui

import (
	"strings"
	"testing"

	"github.com/virtuscloud/virtus/pkg/virtus/tree"
)

// createTestTree builds:
//
//	app.zip/
//	  readme.md
//	  src/
//	    main.go
//	    util.go
//	  index.js   (entrypoint)
func createTestTree() *tree.Node {
	return tree.Build("app.zip",
		[]string{"readme.md", "src/main.go", "src/util.go", "index.js"},
		[]string{"src/main.go", "src/util.go", "index.js"},
		"index.js",
	)
}

func TestNewTreeView_StartsOnEntrypoint(t *testing.T) {
	tv := NewTreeView(createTestTree())

	if len(tv.flat) != 6 {
		t.Fatalf("flat len = %d, want 6", len(tv.flat))
	}
	if got := tv.Chosen(); got != "index.js" {
		t.Errorf("Chosen() = %q, want index.js", got)
	}
	if sel := tv.Selected(); sel == nil || sel.Path != "index.js" {
		t.Errorf("Selected() = %v, want index.js", sel)
	}
}

func TestTreeView_Navigation(t *testing.T) {
	tv := NewTreeView(createTestTree())

	tv.MoveDown()
	if tv.cursor != 5 {
		t.Errorf("MoveDown past end moved cursor to %d", tv.cursor)
	}

	for i := 0; i < 10; i++ {
		tv.MoveUp()
	}
	if tv.cursor != 0 {
		t.Errorf("cursor = %d after moving to top, want 0", tv.cursor)
	}

	tv.NextCandidate()
	if sel := tv.Selected(); sel.Path != "src/main.go" {
		t.Errorf("NextCandidate selected %q, want src/main.go", sel.Path)
	}
}

func TestTreeView_ToggleChoosesCandidates(t *testing.T) {
	tv := NewTreeView(createTestTree())

	tv.MoveUp() // src/util.go
	if !tv.Toggle() {
		t.Fatal("Toggle on a candidate should choose it")
	}
	if tv.Chosen() != "src/util.go" {
		t.Errorf("Chosen() = %q, want src/util.go", tv.Chosen())
	}

	tv.cursor = 1 // readme.md
	if tv.Toggle() {
		t.Error("Toggle on a non-candidate should not choose it")
	}
	if tv.Chosen() != "src/util.go" {
		t.Errorf("Chosen() changed to %q", tv.Chosen())
	}
}

func TestTreeView_ToggleDirectory(t *testing.T) {
	tv := NewTreeView(createTestTree())

	tv.cursor = 2 // src/
	if tv.Toggle() {
		t.Error("Toggle on a directory should not choose")
	}
	if len(tv.flat) != 4 {
		t.Errorf("flat len after collapse = %d, want 4", len(tv.flat))
	}

	tv.Toggle()
	if len(tv.flat) != 6 {
		t.Errorf("flat len after expand = %d, want 6", len(tv.flat))
	}
}

func TestTreeView_ExpandCollapseAll(t *testing.T) {
	tv := NewTreeView(createTestTree())

	tv.CollapseAll()
	if len(tv.flat) != 4 {
		t.Errorf("flat len after CollapseAll = %d, want 4", len(tv.flat))
	}
	if tv.cursor != 0 {
		t.Errorf("cursor = %d after CollapseAll, want 0", tv.cursor)
	}

	tv.NextCandidate()
	if sel := tv.Selected(); sel.Path != "index.js" {
		t.Errorf("NextCandidate with src collapsed selected %q, want index.js", sel.Path)
	}

	tv.ExpandAll()
	if len(tv.flat) != 6 {
		t.Errorf("flat len after ExpandAll = %d, want 6", len(tv.flat))
	}
}

func TestTreeView_View(t *testing.T) {
	tv := NewTreeView(createTestTree())

	view := tv.View(60, 10)
	for _, want := range []string{"readme.md", "src/", "main.go", "index.js", "entrypoint"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}

	// Scrolling keeps the cursor row in view.
	tv.cursor = 5
	view = tv.View(60, 2)
	if !strings.Contains(view, "index.js") {
		t.Errorf("View() with 2 rows should contain the cursor row:\n%s", view)
	}
	if strings.Contains(view, "readme.md") {
		t.Errorf("View() with 2 rows should scroll past readme.md:\n%s", view)
	}
}

func TestTreeView_Empty(t *testing.T) {
	tv := NewTreeView(nil)

	if tv.Selected() != nil {
		t.Error("Selected() on empty view should be nil")
	}
	if tv.Toggle() {
		t.Error("Toggle() on empty view should be false")
	}
	if !strings.Contains(tv.View(40, 5), "No files to display") {
		t.Error("empty view should say so")
	}
}
