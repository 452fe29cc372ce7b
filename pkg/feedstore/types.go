package feedstore

import (
	"context"
	"time"
)

// Storage is the block-storage abstraction a FeedStore is rooted on.
// It is consumed through this minimal contract; concrete adapters live
// under pkg/feedstore/storage/{memory,file,s3}.
type Storage interface {
	// Open returns a random-access handle for the named container,
	// creating it if it does not already exist.
	Open(ctx context.Context, name string) (RandomAccess, error)
}

// RandomAccess is a named, byte-addressable container backing one
// storage file of one feed (e.g. "<hex(key)>/data", "<hex(key)>/bitfield").
type RandomAccess interface {
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	WriteAt(ctx context.Context, p []byte, off int64) (int, error)
	Truncate(ctx context.Context, size int64) error
	Close() error
}

// LogHandle is the per-feed handle produced by a LogEngine. It mirrors
// the hypercore-style feed contract: ready/close lifecycle, append,
// point and batch reads, a read-stream, download requests, length, and
// append/download notifications.
type LogHandle interface {
	// Ready blocks until the feed's header/metadata has been loaded
	// from storage and the feed is safe to read and append to.
	Ready(ctx context.Context) error

	// Close releases the feed's storage handles.
	Close(ctx context.Context) error

	// Append writes one or more blocks, returning the sequence number
	// of the first appended block.
	Append(ctx context.Context, blocks ...[]byte) (seq uint64, err error)

	// Get reads a single block by sequence number.
	Get(ctx context.Context, seq uint64) ([]byte, error)

	// GetBatch reads a contiguous range [start, end) of blocks. A
	// request beyond Length() blocks until data arrives or ctx is
	// cancelled, unless live is false.
	GetBatch(ctx context.Context, start, end uint64, live bool) ([][]byte, error)

	// Download requests a range be fetched (a no-op for local-only
	// handles; meaningful for replicating engines). Out of scope for
	// this package's own reference engine beyond satisfying the
	// interface.
	Download(ctx context.Context, start, end uint64) error

	// Length returns the number of blocks currently appended.
	Length() uint64

	// Opened reports whether Ready has completed successfully.
	Opened() bool

	// Closed reports whether Close has completed.
	Closed() bool

	// OnAppend registers a callback invoked after each successful
	// Append. OnDownload registers a callback invoked after blocks
	// arrive via Download. Both return an unsubscribe function.
	OnAppend(func()) (unsubscribe func())
	OnDownload(func(index uint64, data []byte)) (unsubscribe func())
}

// LogEngineOpts carries the per-open parameters a LogEngine factory
// needs beyond the public key.
type LogEngineOpts struct {
	SecretKey     []byte
	ValueEncoding string
}

// LogEngine constructs LogHandle instances rooted on a Storage. Exactly
// one LogEngine is configured per FeedStore.
type LogEngine interface {
	Open(ctx context.Context, storage Storage, key []byte, opts LogEngineOpts) (LogHandle, error)
}

// Trie is the pluggable, prefix-scannable KV store IndexDB persists
// descriptor records in. Concrete adapters live under
// pkg/feedstore/trie/{memory,badger,sql}.
type Trie interface {
	Ready(ctx context.Context) error
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
	// List returns every (key, value) pair whose key has the given
	// prefix. Order is unspecified; callers must not rely on it.
	List(ctx context.Context, prefix string) ([]TrieEntry, error)
	Close(ctx context.Context) error
}

// TrieEntry is one record returned by Trie.List.
type TrieEntry struct {
	Key   string
	Value []byte
}

// Codec encodes/decodes values for a named value-encoding.
type Codec interface {
	Encode(value []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
}

// DiscoveryKeyFunc derives a feed's discovery key from its public key.
// The default implementation (NewDefaultDiscoveryKeyFunc) uses
// BLAKE2b-256; callers needing protocol compatibility with a specific
// external discovery-key scheme may inject their own.
type DiscoveryKeyFunc func(key []byte) []byte

// defaultOpenTimeout is the default duration FeedDescriptor.Open and
// Close wait for the underlying log engine before failing with
// ErrTimeout.
const defaultOpenTimeout = 10 * time.Second
