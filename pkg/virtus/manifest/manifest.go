package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
)

// ErrNotFound is returned by Get when no entry has the requested ID.
var ErrNotFound = errors.New("entry not found")

// DefaultDir returns $XDG_DATA_HOME/virtus/history.
func DefaultDir() string {
	return filepath.Join(xdg.DataHome, "virtus", "history")
}

// Manifest manages operation logging to the filesystem.
type Manifest struct {
	dir string
	mu  sync.Mutex
}

// New creates a new Manifest with the given directory.
// The directory is not created until EnsureDir is called.
func New(dir string) (*Manifest, error) {
	if dir == "" {
		return nil, errors.New("manifest directory cannot be empty")
	}
	return &Manifest{dir: dir}, nil
}

// Dir returns the history directory.
func (m *Manifest) Dir() string { return m.dir }

// EnsureDir creates the manifest directory if it does not exist.
func (m *Manifest) EnsureDir() error {
	return os.MkdirAll(m.dir, 0o755)
}

// LogInspect records an inspection and returns the created entry.
func (m *Manifest) LogInspect(rec Record) (*Entry, error) {
	return m.log(OpInspect, rec)
}

// LogDeploy records an upload attempt and returns the created entry.
func (m *Manifest) LogDeploy(rec Record) (*Entry, error) {
	return m.log(OpDeploy, rec)
}

func (m *Manifest) log(op OperationType, rec Record) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidates := rec.Candidates
	if candidates == nil {
		candidates = []string{}
	}

	entry := &Entry{
		ID:         generateID(op),
		Timestamp:  time.Now().UTC(),
		Operation:  op,
		Archive:    rec.Archive,
		Mode:       rec.Mode,
		Entrypoint: rec.Entrypoint,
		Candidates: candidates,
		Plan:       rec.Plan,
		AppID:      rec.AppID,
		Status:     StatusOK,
	}
	if rec.Err != nil {
		entry.Status = StatusFailed
		entry.Error = rec.Err.Error()
	}

	if err := m.writeEntry(entry); err != nil {
		return nil, fmt.Errorf("failed to write manifest entry: %w", err)
	}

	return entry, nil
}

func (m *Manifest) writeEntry(entry *Entry) error {
	filePath := filepath.Join(m.dir, entry.ID+".json")

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// List returns entries sorted newest first. If op is non-empty only entries
// of that operation are returned. A limit of 0 or less returns everything.
func (m *Manifest) List(op OperationType, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all, err := m.readAll()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(all))
	for _, e := range all {
		if op != "" && e.Operation != op {
			continue
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}

// Get retrieves a specific entry by ID.
func (m *Manifest) Get(id string) (*Entry, error) {
	if id == "" {
		return nil, errors.New("entry ID cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, err := m.readEntryFile(id + ".json")
	if err == nil && entry.ID == id {
		return entry, nil
	}

	all, err := m.readAll()
	if err != nil {
		return nil, err
	}
	for _, e := range all {
		if e.ID == id {
			return &e, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (m *Manifest) readAll() ([]Entry, error) {
	files, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to read manifest directory: %w", err)
	}

	entries := []Entry{}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}

		entry, err := m.readEntryFile(f.Name())
		if err != nil {
			// Skip files that can't be parsed
			continue
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

func (m *Manifest) readEntryFile(filename string) (*Entry, error) {
	data, err := os.ReadFile(filepath.Join(m.dir, filename))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}

	return &entry, nil
}

// Cleanup removes entries whose files are older than retentionDays and
// returns how many were removed. A non-positive retention keeps everything.
func (m *Manifest) Cleanup(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	files, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read manifest directory: %w", err)
	}

	removed := 0
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}

		info, err := f.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(m.dir, f.Name())); err != nil {
				continue
			}
			removed++
		}
	}

	return removed, nil
}

// generateID creates an ID like "deploy-2026-06-15T10-30-00-1b4e28ba".
func generateID(op OperationType) string {
	ts := time.Now().UTC().Format("2006-01-02T15-04-05")
	return fmt.Sprintf("%s-%s-%s", op, ts, strings.Split(uuid.NewString(), "-")[0])
}
