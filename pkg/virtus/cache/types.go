// Package cache persists archive inspection results in a Badger store keyed by
// the archive's SHA-256 digest, so re-selecting an unchanged archive skips
// the ZIP walk.
package cache

import (
	"bytes"
	"encoding/gob"
	"time"

	"github.com/virtuscloud/virtus/pkg/virtus/archive"
)

// CacheVersion is incremented when the encoded entry format changes.
// Entries written with another version are treated as misses.
const CacheVersion = 1

// keyPrefix namespaces inspection entries inside the store.
const keyPrefix = "inspect\x00"

// Entry is the encoded form of a cached inspection.
type Entry struct {
	Version          int
	Size             int64
	Entries          []string
	HasConfig        bool
	ConfigEntrypoint string
	StoredAt         int64 // UnixNano
}

// NewEntry captures the parts of r that do not depend on caller options.
func NewEntry(r *archive.Result) *Entry {
	return &Entry{
		Version:          CacheVersion,
		Size:             r.Size,
		Entries:          r.Entries,
		HasConfig:        r.HasConfig,
		ConfigEntrypoint: r.ConfigEntrypoint,
		StoredAt:         time.Now().UnixNano(),
	}
}

// Result converts the entry back into an inspection result. Candidates are
// left for the caller to derive with its own extension list.
func (e *Entry) Result(digest string) *archive.Result {
	entries := e.Entries
	if entries == nil {
		entries = []string{}
	}
	return &archive.Result{
		Size:             e.Size,
		Digest:           digest,
		Entries:          entries,
		Candidates:       []string{},
		HasConfig:        e.HasConfig,
		ConfigEntrypoint: e.ConfigEntrypoint,
	}
}

// Encode serializes the entry using gob.
func (e *Entry) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes gob bytes into the entry.
func (e *Entry) Decode(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(e)
}

// MakeKey returns the store key for an archive digest.
func MakeKey(digest string) []byte {
	return []byte(keyPrefix + digest)
}
