package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/virtuscloud/virtus/pkg/virtus/archive"
	"github.com/virtuscloud/virtus/pkg/virtus/logging"
	"github.com/virtuscloud/virtus/pkg/virtus/tree"
	"github.com/virtuscloud/virtus/pkg/virtus/types"
)

var (
	// ErrCanceled is returned when the picker is dismissed without a choice.
	ErrCanceled = errors.New("entrypoint selection canceled")
	// ErrNoCandidates is returned when the archive has nothing to choose from.
	ErrNoCandidates = errors.New("archive has no entrypoint candidates")
)

// DefaultTimeout bounds the inspection run by the picker.
const DefaultTimeout = 30 * time.Second

var logger = logging.Get("tui")

// AppState represents the current state of the picker.
type AppState int

const (
	StateInspecting AppState = iota
	StatePicking
	StateDone
)

// Options configures a picker that inspects the archive itself.
type Options struct {
	Archive    types.Handle
	Manual     bool
	Cache      archive.Cache
	Extensions []string
	Timeout    time.Duration
}

// InspectedMsg carries the outcome of the background inspection.
type InspectedMsg struct {
	Result     *archive.Result
	Entrypoint string
	Err        error
}

// Model is the Bubble Tea model for the entrypoint picker.
type Model struct {
	state   AppState
	options Options
	name    string

	spinner spinner.Model
	tree    *TreeView
	result  *archive.Result

	chosen   string
	canceled bool
	err      error

	width  int
	height int
}

// NewModel creates a picker that inspects opts.Archive before showing the tree.
func NewModel(opts Options) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	name := ""
	if opts.Archive != nil {
		name = opts.Archive.Name()
	}

	return Model{
		state:   StateInspecting,
		options: opts,
		name:    name,
		spinner: s,
		width:   80,
		height:  24,
	}
}

// NewPickerModel creates a picker over an already inspected entry list.
func NewPickerModel(name string, entries, candidates []string, current string) Model {
	m := NewModel(Options{})
	m.name = name
	return m.showTree(&archive.Result{Archive: name, Entries: entries, Candidates: candidates}, current)
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	if m.state != StateInspecting {
		return nil
	}
	return tea.Batch(m.spinner.Tick, m.inspect())
}

// inspect runs one inspection of the configured archive.
func (m Model) inspect() tea.Cmd {
	opts := m.options
	return func() tea.Msg {
		if opts.Archive == nil {
			return InspectedMsg{Err: errors.New("no archive selected")}
		}

		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		insp := archive.NewInspector(archive.Options{
			ManualMode: opts.Manual,
			Cache:      opts.Cache,
			Extensions: opts.Extensions,
		})
		defer insp.Close()

		insp.Select(ctx, opts.Archive)
		if err := insp.Wait(ctx); err != nil {
			return InspectedMsg{Err: err}
		}
		if err := ctx.Err(); err != nil {
			return InspectedMsg{Err: fmt.Errorf("inspecting %s: %w", opts.Archive.Name(), err)}
		}
		snap := insp.Snapshot()
		return InspectedMsg{Result: snap.Result, Entrypoint: snap.Entrypoint}
	}
}

func (m Model) showTree(r *archive.Result, entrypoint string) Model {
	m.result = r
	m.tree = NewTreeView(tree.Build(m.name, r.Entries, r.Candidates, entrypoint))
	m.state = StatePicking
	return m
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case InspectedMsg:
		switch {
		case msg.Err != nil:
			m.err = msg.Err
		case msg.Result == nil:
			m.err = errors.New("inspection produced no result")
		case len(msg.Result.Candidates) == 0:
			m.err = ErrNoCandidates
		}
		if m.err != nil {
			logger.Warn("picker inspection failed", "archive", m.name, "error", m.err)
			m.state = StateDone
			return m, tea.Quit
		}
		return m.showTree(msg.Result, msg.Entrypoint), nil

	case spinner.TickMsg:
		if m.state != StateInspecting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		m.canceled = true
		m.state = StateDone
		return m, tea.Quit
	}

	if m.state != StatePicking {
		return m, nil
	}

	switch msg.String() {
	case "up", "k":
		m.tree.MoveUp()
	case "down", "j":
		m.tree.MoveDown()
	case "tab":
		m.tree.NextCandidate()
	case "e":
		m.tree.ExpandAll()
	case "c":
		m.tree.CollapseAll()
	case " ":
		m.tree.Toggle()
	case "enter":
		node := m.tree.Selected()
		if node == nil || node.IsDir {
			m.tree.Toggle()
			return m, nil
		}
		if m.tree.Toggle() {
			m.chosen = m.tree.Chosen()
			m.state = StateDone
			return m, tea.Quit
		}
	}
	return m, nil
}

// View renders the UI.
func (m Model) View() string {
	switch m.state {
	case StateInspecting:
		return fmt.Sprintf("\n  %s Inspecting %s...\n", m.spinner.View(), m.name)
	case StateDone:
		return ""
	}

	innerWidth := m.width - 4
	if innerWidth < 20 {
		innerWidth = 20
	}

	var b strings.Builder
	b.WriteString(m.renderHeader(innerWidth))
	b.WriteString("\n")
	b.WriteString(renderDivider(innerWidth))
	b.WriteString("\n")
	b.WriteString(m.tree.View(innerWidth, m.height-8))
	b.WriteString(renderDivider(innerWidth))
	b.WriteString("\n")
	b.WriteString(m.renderFooter(innerWidth))

	return outerBoxStyle.Render(b.String())
}

func (m Model) renderHeader(width int) string {
	title := titleStyle.Render("virtus") + " " + mutedTextStyle.Render("pick an entrypoint")
	summary := fmt.Sprintf("%s  %d files, %d candidates",
		truncatePath(m.name, width/2),
		len(m.result.Entries),
		len(m.result.Candidates))
	if m.result.Size > 0 {
		summary += ", " + humanize.IBytes(uint64(m.result.Size))
	}
	chosen := mutedTextStyle.Render("none")
	if c := m.tree.Chosen(); c != "" {
		chosen = successTextStyle.Render(c)
	}
	return title + "\n" + summary + "\n" + "entrypoint: " + chosen
}

func (m Model) renderFooter(_ int) string {
	hints := []struct{ key, desc string }{
		{"↑/↓", "move"},
		{"tab", "next candidate"},
		{"enter", "choose"},
		{"e/c", "expand/collapse"},
		{"q", "cancel"},
	}
	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		parts = append(parts, keyStyle.Render(h.key)+" "+keyDescStyle.Render(h.desc))
	}
	return strings.Join(parts, "  ")
}

// Chosen returns the picked entrypoint, or "".
func (m Model) Chosen() string { return m.chosen }

// Canceled reports whether the user dismissed the picker.
func (m Model) Canceled() bool { return m.canceled }

// Err returns the inspection error, if any.
func (m Model) Err() error { return m.err }

// Result returns the inspection shown by the picker.
func (m Model) Result() *archive.Result { return m.result }

// Outcome converts a finished model into the caller-facing result.
func (m Model) Outcome() (string, error) {
	switch {
	case m.err != nil:
		return "", m.err
	case m.canceled || m.chosen == "":
		return "", ErrCanceled
	}
	return m.chosen, nil
}

func runProgram(m Model) (Model, error) {
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithOutput(os.Stderr),
	)
	final, err := p.Run()
	if err != nil {
		return m, fmt.Errorf("running picker: %w", err)
	}
	fm, ok := final.(Model)
	if !ok {
		return m, errors.New("unexpected picker model")
	}
	return fm, nil
}

// Run inspects opts.Archive and lets the user pick an entrypoint. It
// returns the chosen path together with the inspection.
func Run(opts Options) (string, *archive.Result, error) {
	m, err := runProgram(NewModel(opts))
	if err != nil {
		return "", nil, err
	}
	chosen, err := m.Outcome()
	return chosen, m.Result(), err
}

// Pick shows candidates as a tree and returns the chosen one.
func Pick(name string, candidates []string, current string) (string, error) {
	if len(candidates) == 0 {
		return "", ErrNoCandidates
	}
	m, err := runProgram(NewPickerModel(name, candidates, candidates, current))
	if err != nil {
		return "", err
	}
	return m.Outcome()
}
