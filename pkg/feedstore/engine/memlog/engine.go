// Package memlog is the reference LogEngine: an append-only per-feed
// log with its own offset index, using two RandomAccess containers
// ("data", "index") instead of one mixed-record file, since
// RandomAccess has no way to report a container's current size and
// the index's own 8-byte entry-count header is what lets Ready
// reconstruct exactly how many index bytes are valid without one.
package memlog

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/marmos91/feedstore/pkg/feedstore"
)

const indexEntrySize = 12 // offset int64 + length uint32
const indexHeaderSize = 8 // entry count uint64

type indexEntry struct {
	Offset int64
	Length uint32
}

// Engine constructs Handles. One Engine is shared by every feed in a
// FeedStore.
type Engine struct {
	codecs *feedstore.CodecRegistry
}

// New returns an Engine resolving block encodings against codecs. A
// nil codecs uses feedstore.NewCodecRegistry()'s built-ins.
func New(codecs *feedstore.CodecRegistry) *Engine {
	if codecs == nil {
		codecs = feedstore.NewCodecRegistry()
	}
	return &Engine{codecs: codecs}
}

// Open wires up the feed's data and index containers. It performs no
// I/O itself: Handle.Ready does the blocking index load.
func (e *Engine) Open(ctx context.Context, storage feedstore.Storage, key []byte, opts feedstore.LogEngineOpts) (feedstore.LogHandle, error) {
	encoding := opts.ValueEncoding
	if encoding == "" {
		encoding = "binary"
	}
	codec, ok := e.codecs.Resolve(encoding)
	if !ok {
		return nil, fmt.Errorf("feedstore/engine/memlog: no codec registered for %q", encoding)
	}

	dataFile, err := storage.Open(ctx, "data")
	if err != nil {
		return nil, fmt.Errorf("feedstore/engine/memlog: open data: %w", err)
	}
	indexFile, err := storage.Open(ctx, "index")
	if err != nil {
		return nil, fmt.Errorf("feedstore/engine/memlog: open index: %w", err)
	}

	return &Handle{
		dataFile:     dataFile,
		indexFile:    indexFile,
		codec:        codec,
		appendSubs:   newNotifier(),
		downloadSubs: newDownloadNotifier(),
	}, nil
}

// Handle is a memlog feed: a contiguous data file of encoded blocks
// addressed by an in-memory offset index, itself mirrored to the
// index container on every append.
type Handle struct {
	dataFile  feedstore.RandomAccess
	indexFile feedstore.RandomAccess
	codec     feedstore.Codec

	mu      sync.Mutex
	entries []indexEntry
	ready   bool
	closed  bool

	appendSubs   *notifier
	downloadSubs *downloadNotifier
}

// Ready loads the persisted index, reconstructing the feed's length
// and block offsets from a prior run.
func (h *Handle) Ready(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ready {
		return nil
	}

	header := make([]byte, indexHeaderSize)
	n, err := h.indexFile.ReadAt(ctx, header, 0)
	if err != nil || n < indexHeaderSize {
		h.ready = true
		return nil
	}

	count := binary.BigEndian.Uint64(header)
	if count > 0 {
		buf := make([]byte, count*indexEntrySize)
		if _, err := h.indexFile.ReadAt(ctx, buf, indexHeaderSize); err != nil {
			return fmt.Errorf("feedstore/engine/memlog: read index: %w", err)
		}
		entries := make([]indexEntry, count)
		for i := range entries {
			off := i * indexEntrySize
			entries[i] = indexEntry{
				Offset: int64(binary.BigEndian.Uint64(buf[off : off+8])),
				Length: binary.BigEndian.Uint32(buf[off+8 : off+12]),
			}
		}
		h.entries = entries
	}

	h.ready = true
	return nil
}

func (h *Handle) Opened() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ready && !h.closed
}

func (h *Handle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Close releases the underlying containers.
func (h *Handle) Close(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	if err := h.dataFile.Close(); err != nil {
		return err
	}
	return h.indexFile.Close()
}

// Length returns the number of blocks appended so far.
func (h *Handle) Length() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return uint64(len(h.entries))
}

// Append encodes and writes blocks, persisting the new index entries
// before returning, and notifies OnAppend subscribers once all blocks
// have landed.
func (h *Handle) Append(ctx context.Context, blocks ...[]byte) (uint64, error) {
	h.mu.Lock()

	if h.closed {
		h.mu.Unlock()
		return 0, fmt.Errorf("feedstore/engine/memlog: append on closed feed")
	}

	seq := uint64(len(h.entries))
	nextOffset := int64(0)
	if n := len(h.entries); n > 0 {
		last := h.entries[n-1]
		nextOffset = last.Offset + int64(last.Length)
	}

	newEntries := make([]indexEntry, 0, len(blocks))
	for _, block := range blocks {
		encoded, err := h.codec.Encode(block)
		if err != nil {
			h.mu.Unlock()
			return 0, fmt.Errorf("feedstore/engine/memlog: encode block: %w", err)
		}
		if _, err := h.dataFile.WriteAt(ctx, encoded, nextOffset); err != nil {
			h.mu.Unlock()
			return 0, fmt.Errorf("feedstore/engine/memlog: write block: %w", err)
		}
		entry := indexEntry{Offset: nextOffset, Length: uint32(len(encoded))}
		newEntries = append(newEntries, entry)
		nextOffset += int64(len(encoded))
	}

	startCount := len(h.entries)
	h.entries = append(h.entries, newEntries...)

	if err := h.persistIndexLocked(ctx, startCount, newEntries); err != nil {
		h.mu.Unlock()
		return 0, err
	}

	h.mu.Unlock()
	h.appendSubs.emit()
	return seq, nil
}

// persistIndexLocked must be called with h.mu held. It rewrites the
// 8-byte entry-count header and appends the new entries' 12-byte
// records after any already on disk.
func (h *Handle) persistIndexLocked(ctx context.Context, startCount int, newEntries []indexEntry) error {
	header := make([]byte, indexHeaderSize)
	binary.BigEndian.PutUint64(header, uint64(len(h.entries)))
	if _, err := h.indexFile.WriteAt(ctx, header, 0); err != nil {
		return fmt.Errorf("feedstore/engine/memlog: write index header: %w", err)
	}

	buf := make([]byte, len(newEntries)*indexEntrySize)
	for i, e := range newEntries {
		off := i * indexEntrySize
		binary.BigEndian.PutUint64(buf[off:off+8], uint64(e.Offset))
		binary.BigEndian.PutUint32(buf[off+8:off+12], e.Length)
	}
	writeOffset := int64(indexHeaderSize + startCount*indexEntrySize)
	if _, err := h.indexFile.WriteAt(ctx, buf, writeOffset); err != nil {
		return fmt.Errorf("feedstore/engine/memlog: write index entries: %w", err)
	}
	return nil
}

// Get reads and decodes a single block.
func (h *Handle) Get(ctx context.Context, seq uint64) ([]byte, error) {
	h.mu.Lock()
	if seq >= uint64(len(h.entries)) {
		h.mu.Unlock()
		return nil, fmt.Errorf("feedstore/engine/memlog: seq %d out of range", seq)
	}
	e := h.entries[seq]
	h.mu.Unlock()

	buf := make([]byte, e.Length)
	if _, err := h.dataFile.ReadAt(ctx, buf, e.Offset); err != nil {
		return nil, fmt.Errorf("feedstore/engine/memlog: read block %d: %w", seq, err)
	}
	return h.codec.Decode(buf)
}

// GetBatch reads and decodes a contiguous range [start, end). The
// range is always within Length() by the time BatchStream calls this
// (it trims its own request to the feed's current length first), so
// live is not consulted here.
func (h *Handle) GetBatch(ctx context.Context, start, end uint64, live bool) ([][]byte, error) {
	h.mu.Lock()
	if end > uint64(len(h.entries)) || start > end {
		h.mu.Unlock()
		return nil, fmt.Errorf("feedstore/engine/memlog: range [%d,%d) out of range", start, end)
	}
	entries := make([]indexEntry, end-start)
	copy(entries, h.entries[start:end])
	h.mu.Unlock()

	blocks := make([][]byte, len(entries))
	for i, e := range entries {
		buf := make([]byte, e.Length)
		if _, err := h.dataFile.ReadAt(ctx, buf, e.Offset); err != nil {
			return nil, fmt.Errorf("feedstore/engine/memlog: read block %d: %w", start+uint64(i), err)
		}
		decoded, err := h.codec.Decode(buf)
		if err != nil {
			return nil, err
		}
		blocks[i] = decoded
	}
	return blocks, nil
}

// Download is a no-op: memlog is a local-only reference engine with no
// replication to request blocks from.
func (h *Handle) Download(ctx context.Context, start, end uint64) error {
	return nil
}

// OnAppend registers fn to be called after each successful Append.
func (h *Handle) OnAppend(fn func()) func() {
	return h.appendSubs.subscribe(fn)
}

// OnDownload registers fn to be called when blocks arrive via
// Download. Never invoked by this engine.
func (h *Handle) OnDownload(fn func(index uint64, data []byte)) func() {
	return h.downloadSubs.subscribe(fn)
}

var _ feedstore.LogEngine = (*Engine)(nil)
var _ feedstore.LogHandle = (*Handle)(nil)
