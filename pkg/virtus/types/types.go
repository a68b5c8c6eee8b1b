// Package types provides core data types shared across virtus packages:
// archive handles, execution modes and size helpers.
package types

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Size constants for binary (IEC) units.
const (
	KiB int64 = 1024
	MiB int64 = 1024 * KiB
	GiB int64 = 1024 * MiB
)

// Mode selects how the deploy entrypoint is resolved.
type Mode string

const (
	// ModeAuto uses the entrypoint declared in the archive's configuration member.
	ModeAuto Mode = "auto"
	// ModeManual uses the first recognised source file, or a user choice.
	ModeManual Mode = "manual"
)

// ErrInvalidMode is returned when a mode string is neither auto nor manual.
var ErrInvalidMode = errors.New("invalid execution mode")

// ParseMode parses an execution mode. The empty string means auto.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "manual":
		return ModeManual, nil
	default:
		return ModeAuto, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Manual reports whether the mode is manual.
func (m Mode) Manual() bool {
	return m == ModeManual
}

// ReadAtCloser is the random-access view of an opened archive.
type ReadAtCloser interface {
	io.ReaderAt
	io.Closer
}

// Handle is an immutable reference to a user-selected archive.
type Handle interface {
	// Name is the display name of the archive (usually the base file name).
	Name() string

	// Size is the archive size in bytes.
	Size() int64

	// ModTime is the archive modification time; zero when unknown.
	ModTime() time.Time

	// Open returns a random-access reader over the archive bytes.
	Open() (ReadAtCloser, error)
}

// FileHandle is a Handle backed by a file on disk.
type FileHandle struct {
	path    string
	size    int64
	modTime time.Time
}

// OpenFile stats path and returns a handle for it.
func OpenFile(path string) (*FileHandle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &FileHandle{path: path, size: info.Size(), modTime: info.ModTime()}, nil
}

// Path returns the file path backing the handle.
func (h *FileHandle) Path() string { return h.path }

// Name returns the base name of the file.
func (h *FileHandle) Name() string { return filepath.Base(h.path) }

// Size returns the size recorded when the handle was created.
func (h *FileHandle) Size() int64 { return h.size }

// ModTime returns the modification time recorded when the handle was created.
func (h *FileHandle) ModTime() time.Time { return h.modTime }

// Open opens the file for reading.
func (h *FileHandle) Open() (ReadAtCloser, error) {
	return os.Open(h.path)
}

// MemoryHandle is a Handle over an in-memory byte slice.
type MemoryHandle struct {
	name string
	data []byte
}

// NewMemoryHandle returns a handle over data. The slice must not be modified afterwards.
func NewMemoryHandle(name string, data []byte) *MemoryHandle {
	return &MemoryHandle{name: name, data: data}
}

func (h *MemoryHandle) Name() string       { return h.name }
func (h *MemoryHandle) Size() int64        { return int64(len(h.data)) }
func (h *MemoryHandle) ModTime() time.Time { return time.Time{} }

// Open returns a reader over the in-memory bytes.
func (h *MemoryHandle) Open() (ReadAtCloser, error) {
	return nopCloser{bytes.NewReader(h.data)}, nil
}

type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }

// sizePattern matches size strings like "100M", "2G", "500K", "1.5GB".
var sizePattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*([KMG]?(?:i?B)?)\s*$`)

// ErrInvalidSize indicates that the size string could not be parsed.
var ErrInvalidSize = errors.New("invalid size format")

// ParseSize parses a human-readable size string ("512K", "50MB", "2GiB") into bytes.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSize)
	}

	matches := sizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	suffix := strings.ToUpper(matches[2])
	suffix = strings.TrimSuffix(suffix, "IB")
	suffix = strings.TrimSuffix(suffix, "B")

	var multiplier int64
	switch suffix {
	case "":
		multiplier = 1
	case "K":
		multiplier = KiB
	case "M":
		multiplier = MiB
	case "G":
		multiplier = GiB
	default:
		return 0, fmt.Errorf("%w: unknown suffix %q", ErrInvalidSize, suffix)
	}

	return int64(value * float64(multiplier)), nil
}

// FormatSize renders bytes with IEC units, e.g. "1.5 MiB".
func FormatSize(bytes int64) string {
	return humanize.IBytes(uint64(bytes))
}
