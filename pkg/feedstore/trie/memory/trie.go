// Package memory provides an in-memory Trie for tests and ephemeral
// stores, backed by a map whose matching keys are sorted on each prefix
// scan.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/marmos91/feedstore/pkg/feedstore"
)

// Trie is an in-memory feedstore.Trie.
type Trie struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// New returns an empty in-memory Trie.
func New() *Trie {
	return &Trie{values: make(map[string][]byte)}
}

func (t *Trie) Ready(ctx context.Context) error { return nil }

func (t *Trie) Put(ctx context.Context, key string, value []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	t.values[key] = cp
	return nil
}

func (t *Trie) Get(ctx context.Context, key string) ([]byte, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.values[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, true, nil
}

func (t *Trie) Delete(ctx context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.values, key)
	return nil
}

func (t *Trie) List(ctx context.Context, prefix string) ([]feedstore.TrieEntry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var keys []string
	for k := range t.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	entries := make([]feedstore.TrieEntry, 0, len(keys))
	for _, k := range keys {
		v := t.values[k]
		cp := make([]byte, len(v))
		copy(cp, v)
		entries = append(entries, feedstore.TrieEntry{Key: k, Value: cp})
	}
	return entries, nil
}

func (t *Trie) Close(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.values = nil
	return nil
}

var _ feedstore.Trie = (*Trie)(nil)
