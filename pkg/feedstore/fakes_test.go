package feedstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// fakeTrie is a minimal in-memory Trie for tests, avoiding an import
// cycle with pkg/feedstore/trie/memory (which imports this package).
type fakeTrie struct {
	mu     sync.Mutex
	values map[string][]byte
}

func newFakeTrie() *fakeTrie {
	return &fakeTrie{values: make(map[string][]byte)}
}

func (t *fakeTrie) Ready(ctx context.Context) error { return nil }

func (t *fakeTrie) Put(ctx context.Context, key string, value []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	t.values[key] = cp
	return nil
}

func (t *fakeTrie) Get(ctx context.Context, key string) ([]byte, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.values[key]
	return v, ok, nil
}

func (t *fakeTrie) Delete(ctx context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.values, key)
	return nil
}

func (t *fakeTrie) List(ctx context.Context, prefix string) ([]TrieEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var keys []string
	for k := range t.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	entries := make([]TrieEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, TrieEntry{Key: k, Value: t.values[k]})
	}
	return entries, nil
}

func (t *fakeTrie) Close(ctx context.Context) error { return nil }

// fakeStorage is an in-memory Storage for tests.
type fakeStorage struct {
	mu    sync.Mutex
	files map[string]*fakeFile
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{files: make(map[string]*fakeFile)}
}

func (s *fakeStorage) Open(ctx context.Context, name string) (RandomAccess, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[name]
	if !ok {
		f = &fakeFile{}
		s.files[name] = f
	}
	return f, nil
}

type fakeFile struct {
	mu   sync.Mutex
	data []byte
}

func (f *fakeFile) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if off < 0 || off >= int64(len(f.data)) {
		return 0, fmt.Errorf("out of range")
	}
	return copy(p, f.data[off:]), nil
}

func (f *fakeFile) WriteAt(ctx context.Context, p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	end := off + int64(len(p))
	if end > int64(len(f.data)) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	return copy(f.data[off:end], p), nil
}

func (f *fakeFile) Truncate(ctx context.Context, size int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if size <= int64(len(f.data)) {
		f.data = f.data[:size]
		return nil
	}
	grown := make([]byte, size)
	copy(grown, f.data)
	f.data = grown
	return nil
}

func (f *fakeFile) Close() error { return nil }

// fakeEngine constructs fakeHandles backed directly by an in-memory
// slice, independent of storage, simplifying reader and descriptor
// tests that only care about append/read/notify semantics.
type fakeEngine struct{}

func (fakeEngine) Open(ctx context.Context, storage Storage, key []byte, opts LogEngineOpts) (LogHandle, error) {
	return newFakeHandle(), nil
}

type fakeHandle struct {
	mu       sync.Mutex
	blocks   [][]byte
	closed   bool
	appendNs *notifier
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{appendNs: newNotifier()}
}

func (h *fakeHandle) Ready(ctx context.Context) error { return nil }

func (h *fakeHandle) Close(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

func (h *fakeHandle) Append(ctx context.Context, blocks ...[]byte) (uint64, error) {
	h.mu.Lock()
	seq := uint64(len(h.blocks))
	h.blocks = append(h.blocks, blocks...)
	h.mu.Unlock()
	h.appendNs.emit()
	return seq, nil
}

func (h *fakeHandle) Get(ctx context.Context, seq uint64) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if seq >= uint64(len(h.blocks)) {
		return nil, fmt.Errorf("out of range")
	}
	return h.blocks[seq], nil
}

func (h *fakeHandle) GetBatch(ctx context.Context, start, end uint64, live bool) ([][]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if end > uint64(len(h.blocks)) || start > end {
		return nil, fmt.Errorf("out of range")
	}
	out := make([][]byte, end-start)
	copy(out, h.blocks[start:end])
	return out, nil
}

func (h *fakeHandle) Download(ctx context.Context, start, end uint64) error { return nil }

func (h *fakeHandle) Length() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return uint64(len(h.blocks))
}

func (h *fakeHandle) Opened() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.closed
}

func (h *fakeHandle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *fakeHandle) OnAppend(fn func()) func() {
	return h.appendNs.subscribe(fn)
}

func (h *fakeHandle) OnDownload(fn func(index uint64, data []byte)) func() {
	return func() {}
}

// notifier mirrors pkg/feedstore/engine/memlog's local subscriber list,
// reimplemented here to keep this test helper import-cycle-free.
type notifier struct {
	mu   sync.Mutex
	subs map[int]func()
	next int
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[int]func())}
}

func (n *notifier) subscribe(fn func()) func() {
	n.mu.Lock()
	id := n.next
	n.next++
	n.subs[id] = fn
	n.mu.Unlock()
	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

func (n *notifier) emit() {
	n.mu.Lock()
	fns := make([]func(), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

var (
	_ Storage     = (*fakeStorage)(nil)
	_ RandomAccess = (*fakeFile)(nil)
	_ LogEngine   = fakeEngine{}
	_ LogHandle   = (*fakeHandle)(nil)
	_ Trie        = (*fakeTrie)(nil)
)
