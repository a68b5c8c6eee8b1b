// Package pack builds deployable ZIP archives from project directories.
//
// Output is deterministic: members are written in sorted order with a fixed
// timestamp, so packing the same tree twice yields identical bytes and the
// same inspection cache digest.
package pack

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/gobwas/glob"

	"github.com/virtuscloud/virtus/pkg/virtus/logging"
)

// DefaultExclude lists patterns skipped unless overridden.
var DefaultExclude = []string{".git/**", "node_modules/**"}

// Epoch is the modification time stamped on every member, the earliest
// time the ZIP format can represent.
var Epoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// ErrEmpty is returned when no files remain after exclusion.
var ErrEmpty = errors.New("no files to pack")

// Options configures a pack run.
type Options struct {
	// Exclude holds glob patterns matched against slash-separated paths
	// relative to the project root. Nil means DefaultExclude.
	Exclude []string
}

// Summary describes a written archive.
type Summary struct {
	Files []string
	Bytes int64
}

// Pack walks dir and writes a ZIP of its regular files to w.
func Pack(ctx context.Context, dir string, w io.Writer, opts Options) (*Summary, error) {
	return pack(ctx, dir, w, opts)
}

// PackFile packs dir into the file at out, replacing it atomically. The
// output file is never packed into itself.
func PackFile(ctx context.Context, dir, out string, opts Options) (*Summary, error) {
	absOut, err := filepath.Abs(out)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(absOut), ".virtus-pack-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp archive: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck

	summary, err := pack(ctx, dir, tmp, opts, absOut, tmpPath)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}

	if err := os.Rename(tmpPath, absOut); err != nil {
		return nil, fmt.Errorf("renaming archive: %w", err)
	}
	return summary, nil
}

func pack(ctx context.Context, dir string, w io.Writer, opts Options, skip ...string) (*Summary, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", dir)
	}

	matcher, err := compile(opts.Exclude)
	if err != nil {
		return nil, err
	}

	files, err := collect(ctx, root, matcher, skip...)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrEmpty
	}

	return write(ctx, root, files, w)
}

type matcherFunc func(rel string, isDir bool) bool

func compile(patterns []string) (matcherFunc, error) {
	if patterns == nil {
		patterns = DefaultExclude
	}
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return func(rel string, isDir bool) bool {
		for _, g := range globs {
			if g.Match(rel) || (isDir && g.Match(rel+"/")) {
				return true
			}
		}
		return false
	}, nil
}

// collect returns sorted slash paths of regular files under root. Paths in
// skip are never included.
func collect(ctx context.Context, root string, excluded matcherFunc, skip ...string) ([]string, error) {
	var (
		mu    sync.Mutex
		files []string
	)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			logging.Get("pack").Warn("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if excluded(rel, d.IsDir()) {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		for _, s := range skip {
			if path == s {
				return nil
			}
		}

		mu.Lock()
		files = append(files, rel)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

func write(ctx context.Context, root string, files []string, w io.Writer) (*Summary, error) {
	zw := zip.NewWriter(w)
	summary := &Summary{Files: files}

	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := addFile(zw, root, rel)
		if err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", rel, err)
		}
		summary.Bytes += n
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	logging.Get("pack").Debug("archive packed", "files", len(files), "bytes", summary.Bytes)
	return summary, nil
}

func addFile(zw *zip.Writer, root, rel string) (int64, error) {
	f, err := os.Open(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return 0, err
	}
	defer f.Close()

	header := &zip.FileHeader{
		Name:     rel,
		Method:   zip.Deflate,
		Modified: Epoch,
	}
	header.SetMode(0o644)

	dst, err := zw.CreateHeader(header)
	if err != nil {
		return 0, err
	}
	return io.Copy(dst, f)
}
