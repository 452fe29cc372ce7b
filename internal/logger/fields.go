package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Feed Identification
	// ========================================================================
	KeyPath       = "path"        // Feed path
	KeyDiscovery  = "discovery"   // Discovery key (hex)
	KeyReaderKind = "reader_kind" // bulk, selective, ordered
	KeyReaderID   = "reader_id"   // Read stream identifier
	KeyRequestID  = "request_id"  // HTTP API request ID

	// ========================================================================
	// Batch / Append Operations
	// ========================================================================
	KeySeq       = "seq"        // Batch sequence number
	KeyOffset    = "offset"     // Byte offset within the feed
	KeyLength    = "length"     // Message/batch length in bytes
	KeyCount     = "count"      // Number of messages
	KeyFork      = "fork"       // Fork index
	KeyBatchSize = "batch_size" // Batch byte size

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorKind  = "error_kind"  // FeedStoreError kind
	KeyOperation  = "operation"   // Sub-operation type for complex operations
	KeyAttempt    = "attempt"     // Retry attempt number
	KeyMaxRetries = "max_retries" // Maximum retry attempts

	// ========================================================================
	// Storage Backend
	// ========================================================================
	KeyStoreType = "store_type" // Store type: memory, file, s3
	KeyBucket    = "bucket"     // Cloud bucket name (S3)
	KeyKey       = "key"        // Object key in cloud storage
	KeyRegion    = "region"     // Cloud region

	// ========================================================================
	// Trie / Metadata Store
	// ========================================================================
	KeyTrieBackend = "trie_backend" // memory, badger, sql
	KeyDescriptors = "descriptors"  // Number of known descriptors

	// ========================================================================
	// Cache / Batch Stream
	// ========================================================================
	KeyCacheHit   = "cache_hit"   // Cache hit indicator
	KeySynced     = "synced"      // Whether a cohort has caught up to live
	KeyBacklog    = "backlog"     // Pending message backlog size
	KeySubscribed = "subscribed"  // Number of attached feeds on a reader
)

// ============================================================================
// Field constructors for type safety
// These functions provide type-safe construction of slog.Attr values.
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Path returns a slog.Attr for a feed path
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Discovery returns a slog.Attr for a discovery key (formatted as hex)
func Discovery(hex string) slog.Attr {
	return slog.String(KeyDiscovery, hex)
}

// ReaderKind returns a slog.Attr for the read-stream kind
func ReaderKind(kind string) slog.Attr {
	return slog.String(KeyReaderKind, kind)
}

// ReaderID returns a slog.Attr for a read stream identifier
func ReaderID(id string) slog.Attr {
	return slog.String(KeyReaderID, id)
}

// RequestIDStr returns a slog.Attr for an HTTP API request ID
func RequestIDStr(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

// Seq returns a slog.Attr for a batch sequence number
func Seq(seq uint64) slog.Attr {
	return slog.Uint64(KeySeq, seq)
}

// Offset returns a slog.Attr for a byte offset
func Offset(off uint64) slog.Attr {
	return slog.Uint64(KeyOffset, off)
}

// Length returns a slog.Attr for a message/batch length
func Length(n int) slog.Attr {
	return slog.Int(KeyLength, n)
}

// Count returns a slog.Attr for a message count
func Count(n int) slog.Attr {
	return slog.Int(KeyCount, n)
}

// Fork returns a slog.Attr for a fork index
func Fork(idx int) slog.Attr {
	return slog.Int(KeyFork, idx)
}

// BatchSize returns a slog.Attr for a batch byte size
func BatchSize(n int) slog.Attr {
	return slog.Int(KeyBatchSize, n)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorKind returns a slog.Attr for a FeedStoreError kind
func ErrorKind(kind string) slog.Attr {
	return slog.String(KeyErrorKind, kind)
}

// Operation returns a slog.Attr for sub-operation type
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Attempt returns a slog.Attr for retry attempt number
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// MaxRetries returns a slog.Attr for maximum retry attempts
func MaxRetries(n int) slog.Attr {
	return slog.Int(KeyMaxRetries, n)
}

// StoreType returns a slog.Attr for storage backend type
func StoreType(t string) slog.Attr {
	return slog.String(KeyStoreType, t)
}

// Bucket returns a slog.Attr for a cloud bucket name
func Bucket(name string) slog.Attr {
	return slog.String(KeyBucket, name)
}

// Key returns a slog.Attr for an object key in cloud storage
func Key(k string) slog.Attr {
	return slog.String(KeyKey, k)
}

// Region returns a slog.Attr for a cloud region
func Region(r string) slog.Attr {
	return slog.String(KeyRegion, r)
}

// TrieBackend returns a slog.Attr for the metadata trie backend
func TrieBackend(backend string) slog.Attr {
	return slog.String(KeyTrieBackend, backend)
}

// Descriptors returns a slog.Attr for a descriptor count
func Descriptors(n int) slog.Attr {
	return slog.Int(KeyDescriptors, n)
}

// CacheHit returns a slog.Attr for a cache hit indicator
func CacheHit(hit bool) slog.Attr {
	return slog.Bool(KeyCacheHit, hit)
}

// Synced returns a slog.Attr for cohort sync state
func Synced(synced bool) slog.Attr {
	return slog.Bool(KeySynced, synced)
}

// Backlog returns a slog.Attr for pending message backlog size
func Backlog(n int) slog.Attr {
	return slog.Int(KeyBacklog, n)
}

// Subscribed returns a slog.Attr for the number of feeds attached to a reader
func Subscribed(n int) slog.Attr {
	return slog.Int(KeySubscribed, n)
}
