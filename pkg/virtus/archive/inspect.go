// Package archive inspects deploy archives: it enumerates ZIP members,
// discovers the entrypoint declared in config.virtus and derives the list of
// plausible entrypoint candidates.
package archive

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/virtuscloud/virtus/pkg/virtus/types"
)

// ErrNotArchive is returned when the input is not a readable ZIP archive.
var ErrNotArchive = errors.New("not a zip archive")

// Result is the outcome of inspecting one archive.
type Result struct {
	// Archive is the display name of the inspected archive.
	Archive string

	// Size is the archive size in bytes.
	Size int64

	// Digest is the hex SHA-256 of the archive bytes, set when a cache is in use.
	Digest string

	// Entries lists file members in central-directory order.
	Entries []string

	// Candidates lists the entries with a recognised source extension, same order.
	Candidates []string

	// HasConfig reports whether the config.virtus member exists.
	HasConfig bool

	// ConfigEntrypoint is the entrypoint declared in config.virtus, or "".
	ConfigEntrypoint string

	// Elapsed is how long the inspection took.
	Elapsed time.Duration
}

// Resolve picks the entrypoint for mode. Manual mode takes the first
// candidate; auto mode takes the configured entrypoint. Either may be "".
func Resolve(r *Result, mode types.Mode) string {
	if r == nil {
		return ""
	}
	if mode.Manual() {
		if len(r.Candidates) == 0 {
			return ""
		}
		return r.Candidates[0]
	}
	return r.ConfigEntrypoint
}

// Inspect reads the archive behind h. exts overrides the candidate
// allow-list; nil uses DefaultExtensions.
func Inspect(ctx context.Context, h types.Handle, exts []string) (*Result, error) {
	start := time.Now()

	r, err := h.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", h.Name(), err)
	}
	defer r.Close()

	result, err := inspectReader(ctx, r, h.Size(), exts)
	if err != nil {
		return nil, err
	}

	result.Archive = h.Name()
	result.Size = h.Size()
	result.Elapsed = time.Since(start)
	return result, nil
}

func inspectReader(ctx context.Context, r io.ReaderAt, size int64, exts []string) (*Result, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil && !(errors.Is(err, zip.ErrInsecurePath) && zr != nil) {
		return nil, fmt.Errorf("%w: %v", ErrNotArchive, err)
	}

	result := &Result{Entries: make([]string, 0, len(zr.File))}
	var configFile *zip.File

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		result.Entries = append(result.Entries, f.Name)
		if f.Name == ConfigMember && configFile == nil {
			configFile = f
		}
	}

	if configFile != nil {
		result.HasConfig = true
		text, err := readMember(configFile)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", ConfigMember, err)
		}
		result.ConfigEntrypoint = ParseEntrypoint(text)
	}

	if exts != nil {
		exts = NormalizeExtensions(exts)
	}
	result.Candidates = FilterCandidates(result.Entries, exts)

	return result, ctx.Err()
}

func readMember(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxConfigSize))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Digest returns the hex SHA-256 of the archive behind h.
func Digest(ctx context.Context, h types.Handle) (string, error) {
	r, err := h.Open()
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", h.Name(), err)
	}
	defer r.Close()

	sum := sha256.New()
	if _, err := io.Copy(sum, &ctxReader{ctx: ctx, r: io.NewSectionReader(r, 0, h.Size())}); err != nil {
		return "", fmt.Errorf("hashing %s: %w", h.Name(), err)
	}
	return hex.EncodeToString(sum.Sum(nil)), nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
