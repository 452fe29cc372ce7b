package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for feed store span operations.
const (
	AttrPath       = "feed.path"        // Feed path
	AttrDiscovery  = "feed.discovery"   // Discovery key (hex)
	AttrReaderKind = "reader.kind"      // bulk, selective, ordered
	AttrReaderID   = "reader.id"        // Read stream identifier
	AttrOperation  = "feedstore.operation"

	AttrSeq       = "batch.seq"
	AttrOffset    = "batch.offset"
	AttrLength    = "batch.length"
	AttrCount     = "batch.count"
	AttrFork      = "batch.fork"

	AttrStoreType   = "storage.type" // memory, file, s3
	AttrBucket      = "storage.bucket"
	AttrKey         = "storage.key"
	AttrRegion      = "storage.region"
	AttrTrieBackend = "trie.backend" // memory, badger, sql

	AttrCacheHit = "cache.hit"
	AttrSynced   = "reader.synced"
)

// Span names for store operations.
const (
	SpanOpenFeed        = "feedstore.open_feed"
	SpanCloseFeed       = "feedstore.close_feed"
	SpanDeleteFeed      = "feedstore.delete_feed"
	SpanAppend          = "feed.append"
	SpanAppendBatch     = "feed.append_batch"
	SpanCreateBulkReader      = "reader.create_bulk"
	SpanCreateSelectiveReader = "reader.create_selective"
	SpanCreateOrderedReader   = "reader.create_ordered"
	SpanReaderRecv            = "reader.recv"
	SpanReaderAttach          = "reader.attach"
	SpanReaderDetach          = "reader.detach"

	SpanStorageGet   = "storage.get"
	SpanStoragePut   = "storage.put"
	SpanStorageRange = "storage.range"

	SpanTrieGet    = "trie.get"
	SpanTriePut    = "trie.put"
	SpanTrieDelete = "trie.delete"
	SpanTrieScan   = "trie.scan_prefix"
)

// Path returns an attribute for a feed path
func Path(p string) attribute.KeyValue {
	return attribute.String(AttrPath, p)
}

// Discovery returns an attribute for a discovery key (hex)
func Discovery(hex string) attribute.KeyValue {
	return attribute.String(AttrDiscovery, hex)
}

// ReaderKind returns an attribute for a read-stream kind
func ReaderKind(kind string) attribute.KeyValue {
	return attribute.String(AttrReaderKind, kind)
}

// ReaderID returns an attribute for a read stream identifier
func ReaderID(id string) attribute.KeyValue {
	return attribute.String(AttrReaderID, id)
}

// Operation returns an attribute for a sub-operation name
func Operation(op string) attribute.KeyValue {
	return attribute.String(AttrOperation, op)
}

// Seq returns an attribute for a batch sequence number
func Seq(seq uint64) attribute.KeyValue {
	return attribute.Int64(AttrSeq, int64(seq))
}

// Offset returns an attribute for a byte offset within a feed
func Offset(offset uint64) attribute.KeyValue {
	return attribute.Int64(AttrOffset, int64(offset))
}

// Length returns an attribute for a message/batch length
func Length(n int) attribute.KeyValue {
	return attribute.Int(AttrLength, n)
}

// Count returns an attribute for a message count
func Count(n int) attribute.KeyValue {
	return attribute.Int(AttrCount, n)
}

// Fork returns an attribute for a fork index
func Fork(idx int) attribute.KeyValue {
	return attribute.Int(AttrFork, idx)
}

// StoreType returns an attribute for the storage backend type
func StoreType(t string) attribute.KeyValue {
	return attribute.String(AttrStoreType, t)
}

// Bucket returns an attribute for an S3 bucket name
func Bucket(name string) attribute.KeyValue {
	return attribute.String(AttrBucket, name)
}

// StorageKey returns an attribute for an S3 object key
func StorageKey(key string) attribute.KeyValue {
	return attribute.String(AttrKey, key)
}

// Region returns an attribute for a cloud region
func Region(region string) attribute.KeyValue {
	return attribute.String(AttrRegion, region)
}

// TrieBackend returns an attribute for the metadata trie backend
func TrieBackend(backend string) attribute.KeyValue {
	return attribute.String(AttrTrieBackend, backend)
}

// CacheHit returns an attribute for a cache hit indicator
func CacheHit(hit bool) attribute.KeyValue {
	return attribute.Bool(AttrCacheHit, hit)
}

// Synced returns an attribute for reader cohort sync state
func Synced(synced bool) attribute.KeyValue {
	return attribute.Bool(AttrSynced, synced)
}

// StartFeedSpan starts a span for an operation scoped to a single feed path.
func StartFeedSpan(ctx context.Context, spanName, path string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{Path(path)}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, spanName, trace.WithAttributes(allAttrs...))
}

// StartReaderSpan starts a span for a read-stream operation.
func StartReaderSpan(ctx context.Context, spanName, readerID, kind string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{ReaderID(readerID), ReaderKind(kind)}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, spanName, trace.WithAttributes(allAttrs...))
}

// StartStorageSpan starts a span for a storage backend operation.
func StartStorageSpan(ctx context.Context, spanName, storeType, key string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{StoreType(storeType)}
	if key != "" {
		allAttrs = append(allAttrs, StorageKey(key))
	}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, spanName, trace.WithAttributes(allAttrs...))
}

// StartTrieSpan starts a span for a metadata trie operation.
func StartTrieSpan(ctx context.Context, spanName, backend string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{TrieBackend(backend)}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, spanName, trace.WithAttributes(allAttrs...))
}
