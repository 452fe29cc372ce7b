// Package file provides a directory-backed Storage implementation: one
// os.File per named container, rooted under a base directory. Uses
// plain ReadAt/WriteAt/Truncate since RandomAccess's contract already
// matches os.File's native random-access methods — no custom binary
// log framing is needed here.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/marmos91/feedstore/pkg/feedstore"
)

// Storage roots every container under Dir, creating it if needed.
type Storage struct {
	dir string

	mu    sync.Mutex
	files map[string]*os.File
}

// New returns a Storage rooted at dir, creating dir if it does not
// already exist.
func New(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("feedstore/storage/file: create %s: %w", dir, err)
	}
	return &Storage{dir: dir, files: make(map[string]*os.File)}, nil
}

// Open returns the os.File-backed container named name, relative to
// Storage's root directory, creating it (and any parent directories,
// since names embed "<hex(key)>/" prefixes) on first use.
func (s *Storage) Open(ctx context.Context, name string) (feedstore.RandomAccess, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f, ok := s.files[name]; ok {
		return &handle{f: f}, nil
	}

	path := filepath.Join(s.dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("feedstore/storage/file: create dir for %s: %w", name, err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("feedstore/storage/file: open %s: %w", name, err)
	}

	s.files[name] = f
	return &handle{f: f}, nil
}

// Close closes every container file opened through this Storage.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for name, f := range s.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("feedstore/storage/file: close %s: %w", name, err)
		}
	}
	s.files = make(map[string]*os.File)
	return firstErr
}

// handle wraps *os.File as a feedstore.RandomAccess. Concurrent access
// to a single os.File's ReadAt/WriteAt is already safe in the Go
// runtime (pread/pwrite under the hood), so no extra locking is added
// here.
type handle struct {
	f *os.File
}

func (h *handle) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	return h.f.ReadAt(p, off)
}

func (h *handle) WriteAt(ctx context.Context, p []byte, off int64) (int, error) {
	return h.f.WriteAt(p, off)
}

func (h *handle) Truncate(ctx context.Context, size int64) error {
	return h.f.Truncate(size)
}

// Close is a no-op: the underlying *os.File is owned and closed by the
// Storage that produced it, so concurrent descriptors sharing a
// container are never left with a dangling fd.
func (h *handle) Close() error { return nil }
