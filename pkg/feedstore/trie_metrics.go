package feedstore

import (
	"context"
	"time"

	"github.com/marmos91/feedstore/pkg/feedstore/metrics"
)

// InstrumentTrie wraps a Trie so every operation records latency and
// error counts through m, labeled with backend ("memory", "badger",
// "sql"). A nil m returns trie unchanged.
func InstrumentTrie(trie Trie, m metrics.Metrics, backend string) Trie {
	if m == nil {
		return trie
	}
	return &instrumentedTrie{next: trie, metrics: m, backend: backend}
}

type instrumentedTrie struct {
	next    Trie
	metrics metrics.Metrics
	backend string
}

func (t *instrumentedTrie) Ready(ctx context.Context) error {
	return t.next.Ready(ctx)
}

func (t *instrumentedTrie) Put(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := t.next.Put(ctx, key, value)
	t.metrics.RecordTrieOp(t.backend, "put", time.Since(start), err)
	return err
}

func (t *instrumentedTrie) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	value, ok, err := t.next.Get(ctx, key)
	t.metrics.RecordTrieOp(t.backend, "get", time.Since(start), err)
	return value, ok, err
}

func (t *instrumentedTrie) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := t.next.Delete(ctx, key)
	t.metrics.RecordTrieOp(t.backend, "delete", time.Since(start), err)
	return err
}

func (t *instrumentedTrie) List(ctx context.Context, prefix string) ([]TrieEntry, error) {
	start := time.Now()
	entries, err := t.next.List(ctx, prefix)
	t.metrics.RecordTrieOp(t.backend, "list", time.Since(start), err)
	return entries, err
}

func (t *instrumentedTrie) Close(ctx context.Context) error {
	return t.next.Close(ctx)
}
