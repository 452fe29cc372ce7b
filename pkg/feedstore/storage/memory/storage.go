// Package memory provides an in-memory Storage implementation for
// tests and ephemeral feeds.
package memory

import (
	"context"
	"sync"

	"github.com/marmos91/feedstore/pkg/feedstore"
)

// Storage is an in-memory feedstore.Storage. Every named container
// lives only as long as the process.
type Storage struct {
	mu     sync.Mutex
	files  map[string]*file
	closed bool
}

// New creates an empty in-memory storage backend.
func New() *Storage {
	return &Storage{files: make(map[string]*file)}
}

// Open returns the named container, creating it on first use.
func (s *Storage) Open(ctx context.Context, name string) (feedstore.RandomAccess, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errClosed
	}

	f, ok := s.files[name]
	if !ok {
		f = &file{}
		s.files[name] = f
	}
	return f, nil
}

// Close releases every container. Storage is unusable afterward.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.files = nil
	return nil
}

type file struct {
	mu   sync.RWMutex
	data []byte
}

func (f *file) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if off < 0 || off >= int64(len(f.data)) {
		return 0, errOutOfRange
	}
	n := copy(p, f.data[off:])
	return n, nil
}

func (f *file) WriteAt(ctx context.Context, p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	end := off + int64(len(p))
	if end > int64(len(f.data)) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	n := copy(f.data[off:end], p)
	return n, nil
}

func (f *file) Truncate(ctx context.Context, size int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case size <= int64(len(f.data)):
		f.data = f.data[:size]
	default:
		grown := make([]byte, size)
		copy(grown, f.data)
		f.data = grown
	}
	return nil
}

func (f *file) Close() error { return nil }
