// Package badger provides a BadgerDB-backed Trie, using BadgerDB's
// transaction-scoped Set/Get/Delete and prefix-scan iterator APIs.
package badger

import (
	"context"
	"errors"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/feedstore/pkg/feedstore"
)

// Trie is a feedstore.Trie backed by an already-open BadgerDB handle.
type Trie struct {
	db *badgerdb.DB
}

// Open opens (or creates) a BadgerDB database at dir and wraps it as a
// Trie.
func Open(dir string) (*Trie, error) {
	opts := badgerdb.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("feedstore/trie/badger: open %s: %w", dir, err)
	}
	return &Trie{db: db}, nil
}

// New wraps an already-open BadgerDB handle, e.g. an in-memory one
// constructed with badger.DefaultOptions("").WithInMemory(true).
func New(db *badgerdb.DB) *Trie {
	return &Trie{db: db}
}

func (t *Trie) Ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func (t *Trie) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (t *Trie) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var value []byte
	err := t.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			value = append([]byte(nil), v...)
			return nil
		})
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("feedstore/trie/badger: get %s: %w", key, err)
	}
	return value, true, nil
}

func (t *Trie) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (t *Trie) List(ctx context.Context, prefix string) ([]feedstore.TrieEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entries []feedstore.TrieEntry
	err := t.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			item := it.Item()
			key := string(item.KeyCopy(nil))
			var value []byte
			if err := item.Value(func(v []byte) error {
				value = append([]byte(nil), v...)
				return nil
			}); err != nil {
				return err
			}
			entries = append(entries, feedstore.TrieEntry{Key: key, Value: value})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("feedstore/trie/badger: list %s: %w", prefix, err)
	}
	return entries, nil
}

func (t *Trie) Close(ctx context.Context) error {
	return t.db.Close()
}

var _ feedstore.Trie = (*Trie)(nil)
