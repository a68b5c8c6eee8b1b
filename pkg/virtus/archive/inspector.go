package archive

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/virtuscloud/virtus/pkg/virtus/logging"
	"github.com/virtuscloud/virtus/pkg/virtus/types"
)

var logger = logging.Get("archive")

// ErrNotCandidate is returned by Choose for paths outside the candidate list.
var ErrNotCandidate = errors.New("not an entrypoint candidate")

// ErrNotReady is returned by Choose when no inspection has completed.
var ErrNotReady = errors.New("no inspected archive")

// State is the inspector lifecycle state.
type State int

const (
	// StateEmpty means no archive is selected.
	StateEmpty State = iota
	// StateLoading means an inspection is in flight.
	StateLoading
	// StateReady means results for the current archive are available.
	// A failed inspection is also ready, with empty results.
	StateReady
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Cache stores inspection results by archive digest.
type Cache interface {
	Get(digest string) (*Result, error)
	Put(digest string, r *Result) error
}

// Options configures an Inspector. All callbacks are optional, run
// synchronously on the inspecting goroutine, and must not call back into
// the Inspector.
type Options struct {
	// OnFileSelect is invoked with each accepted archive.
	OnFileSelect func(types.Handle)

	// ManualMode selects the first candidate instead of the configured entrypoint.
	ManualMode bool

	// OnEntrypointSelect is invoked with the resolved or user-chosen entrypoint.
	OnEntrypointSelect func(string)

	// OnEntrypointListUpdate is invoked with the candidate list.
	OnEntrypointListUpdate func([]string)

	// OnTreeUpdate is invoked with the full entry path list.
	OnTreeUpdate func([]string)

	// Extensions overrides DefaultExtensions.
	Extensions []string

	// Cache, when set, short-circuits inspection of previously seen archives.
	Cache Cache
}

// Snapshot is a consistent copy of the inspector's visible state.
type Snapshot struct {
	State      State
	Handle     types.Handle
	Entries    []string
	Candidates []string
	Entrypoint string
	Manual     bool
	Result     *Result
}

// Inspector turns archive selections into entry lists, candidate lists and a
// resolved entrypoint, reported through Options callbacks.
//
// Each selection starts a new generation. Selecting again or resetting
// cancels the in-flight inspection, and results from superseded generations
// are discarded, so callbacks only ever describe the newest archive.
type Inspector struct {
	opts Options

	// emitMu serializes callback delivery with generation changes.
	emitMu sync.Mutex

	mu         sync.Mutex
	state      State
	handle     types.Handle
	result     *Result
	entrypoint string
	manual     bool
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
	resetToken any
	closed     bool

	wg sync.WaitGroup
}

// NewInspector returns an Inspector in the empty state.
func NewInspector(opts Options) *Inspector {
	return &Inspector{opts: opts, manual: opts.ManualMode}
}

// Select accepts the first of handles and starts inspecting it. Additional
// handles are ignored, and calling with none is a no-op.
func (i *Inspector) Select(ctx context.Context, handles ...types.Handle) {
	if len(handles) == 0 || handles[0] == nil {
		return
	}
	h := handles[0]

	i.emitMu.Lock()
	defer i.emitMu.Unlock()

	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return
	}
	if i.cancel != nil {
		i.cancel()
	}
	i.generation++
	gen := i.generation
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	i.cancel = cancel
	i.done = done
	i.state = StateLoading
	i.handle = h
	i.result = nil
	i.entrypoint = ""
	i.wg.Add(1)
	i.mu.Unlock()

	logger.Debug("archive selected", "name", h.Name(), "size", h.Size(), "generation", gen)

	if i.opts.OnFileSelect != nil {
		i.opts.OnFileSelect(h)
	}

	go i.run(runCtx, gen, h, done)
}

func (i *Inspector) run(ctx context.Context, gen uint64, h types.Handle, done chan struct{}) {
	defer i.wg.Done()
	defer close(done)

	result, err := i.inspect(ctx, h)
	i.finish(ctx, gen, result, err)
}

func (i *Inspector) inspect(ctx context.Context, h types.Handle) (*Result, error) {
	if i.opts.Cache == nil {
		return Inspect(ctx, h, i.opts.Extensions)
	}

	digest, err := Digest(ctx, h)
	if err != nil {
		return nil, err
	}

	if cached, err := i.opts.Cache.Get(digest); err == nil && cached != nil {
		logger.Debug("inspection cache hit", "name", h.Name(), "digest", digest)
		hit := *cached
		hit.Archive = h.Name()
		hit.Candidates = FilterCandidates(hit.Entries, normalizedOrNil(i.opts.Extensions))
		return &hit, nil
	}

	result, err := Inspect(ctx, h, i.opts.Extensions)
	if err != nil {
		return nil, err
	}
	result.Digest = digest
	if err := i.opts.Cache.Put(digest, result); err != nil {
		logger.Warn("failed to cache inspection", "name", h.Name(), "error", err)
	}
	return result, nil
}

func normalizedOrNil(exts []string) []string {
	if exts == nil {
		return nil
	}
	return NormalizeExtensions(exts)
}

func (i *Inspector) finish(ctx context.Context, gen uint64, result *Result, err error) {
	i.emitMu.Lock()
	defer i.emitMu.Unlock()

	i.mu.Lock()
	if gen != i.generation {
		i.mu.Unlock()
		logger.Debug("discarding superseded inspection", "generation", gen)
		return
	}

	name := ""
	if i.handle != nil {
		name = i.handle.Name()
	}
	if err != nil {
		if ctx.Err() != nil {
			logger.Warn("archive inspection canceled", "name", name, "error", err)
		} else {
			logger.Error("archive inspection failed", "name", name, "error", err)
		}
		result = &Result{Archive: name, Entries: []string{}, Candidates: []string{}}
	}

	mode := types.ModeAuto
	if i.manual {
		mode = types.ModeManual
	}
	i.result = result
	i.entrypoint = Resolve(result, mode)
	i.state = StateReady
	i.cancel = nil
	entries := slices.Clone(result.Entries)
	candidates := slices.Clone(result.Candidates)
	entrypoint := i.entrypoint
	i.mu.Unlock()

	if err == nil {
		logger.Info("archive inspected",
			"name", name,
			"entries", len(entries),
			"candidates", len(candidates),
			"entrypoint", entrypoint,
		)
	}

	if i.opts.OnTreeUpdate != nil {
		i.opts.OnTreeUpdate(entries)
	}
	if i.opts.OnEntrypointListUpdate != nil {
		i.opts.OnEntrypointListUpdate(candidates)
	}
	if i.opts.OnEntrypointSelect != nil {
		i.opts.OnEntrypointSelect(entrypoint)
	}
}

// Reset clears the inspector when token differs from the last token seen.
// Tokens are compared with ==; non-comparable tokens always reset.
func (i *Inspector) Reset(token any) {
	i.emitMu.Lock()
	defer i.emitMu.Unlock()

	i.mu.Lock()
	defer i.mu.Unlock()

	if tokenEqual(token, i.resetToken) {
		return
	}
	i.resetToken = token
	i.clearLocked()
	logger.Debug("inspector reset")
}

func tokenEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// clearLocked must be called with i.mu held.
func (i *Inspector) clearLocked() {
	if i.cancel != nil {
		i.cancel()
		i.cancel = nil
	}
	i.generation++
	i.state = StateEmpty
	i.handle = nil
	i.result = nil
	i.entrypoint = ""
}

// SetManualMode switches the resolution policy and, when results are
// available, reports the re-resolved entrypoint.
func (i *Inspector) SetManualMode(manual bool) {
	i.emitMu.Lock()
	defer i.emitMu.Unlock()

	i.mu.Lock()
	if i.manual == manual {
		i.mu.Unlock()
		return
	}
	i.manual = manual
	if i.state != StateReady {
		i.mu.Unlock()
		return
	}
	mode := types.ModeAuto
	if manual {
		mode = types.ModeManual
	}
	i.entrypoint = Resolve(i.result, mode)
	entrypoint := i.entrypoint
	i.mu.Unlock()

	if i.opts.OnEntrypointSelect != nil {
		i.opts.OnEntrypointSelect(entrypoint)
	}
}

// Choose overrides the resolved entrypoint with one of the candidates.
func (i *Inspector) Choose(path string) error {
	i.emitMu.Lock()
	defer i.emitMu.Unlock()

	i.mu.Lock()
	if i.state != StateReady || i.result == nil {
		i.mu.Unlock()
		return ErrNotReady
	}
	if !slices.Contains(i.result.Candidates, path) {
		i.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotCandidate, path)
	}
	i.entrypoint = path
	i.mu.Unlock()

	if i.opts.OnEntrypointSelect != nil {
		i.opts.OnEntrypointSelect(path)
	}
	return nil
}

// Wait blocks until the current inspection, if any, has delivered its results.
func (i *Inspector) Wait(ctx context.Context) error {
	i.mu.Lock()
	done := i.done
	i.mu.Unlock()

	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current lifecycle state.
func (i *Inspector) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Snapshot returns a copy of the visible state. Lists are empty unless the
// state is ready.
func (i *Inspector) Snapshot() Snapshot {
	i.mu.Lock()
	defer i.mu.Unlock()

	snap := Snapshot{
		State:      i.state,
		Handle:     i.handle,
		Entries:    []string{},
		Candidates: []string{},
		Entrypoint: i.entrypoint,
		Manual:     i.manual,
	}
	if i.state == StateReady && i.result != nil {
		snap.Entries = slices.Clone(i.result.Entries)
		snap.Candidates = slices.Clone(i.result.Candidates)
		copied := *i.result
		copied.Entries = snap.Entries
		copied.Candidates = snap.Candidates
		snap.Result = &copied
	}
	return snap
}

// Close cancels any in-flight inspection and waits for its goroutine to exit.
// Later selections are ignored.
func (i *Inspector) Close() {
	i.mu.Lock()
	i.closed = true
	if i.cancel != nil {
		i.cancel()
		i.cancel = nil
	}
	i.generation++
	i.mu.Unlock()

	i.wg.Wait()
}
