package metrics

import "time"

// Metrics provides observability for FeedStore operations: appends,
// reads across the three reader kinds, and the storage/trie backend
// operations a feed touches underneath. Implementations are optional -
// pass nil to disable metrics collection with zero overhead.
//
// Example usage:
//
//	metrics.InitRegistry()
//	m := metrics.New()
//	store := feedstore.New(feedstore.Options{Metrics: m, ...})
type Metrics interface {
	// RecordAppend records a single-message append to a feed.
	RecordAppend(path string, bytes int, duration time.Duration)

	// RecordAppendBatch records a batch append to a feed.
	RecordAppendBatch(path string, messages int, bytes int, duration time.Duration)

	// RecordReaderCreated increments the active reader gauge for kind
	// ("bulk", "selective", "ordered").
	RecordReaderCreated(kind string)

	// RecordReaderDestroyed decrements the active reader gauge for kind.
	RecordReaderDestroyed(kind string)

	// RecordReaderRecv records a Recv call returning a batch of messages
	// to a reader of the given kind.
	RecordReaderRecv(kind string, messages int, duration time.Duration)

	// SetOpenFeeds reports the current count of open feed descriptors.
	SetOpenFeeds(count int)

	// RecordStorageOp records a Storage backend operation (open/read/write/truncate)
	// for the named backend ("memory", "file", "s3").
	RecordStorageOp(backend, op string, bytes int, duration time.Duration, err error)

	// RecordTrieOp records a Trie backend operation (get/put/delete/list)
	// for the named backend ("memory", "badger", "sql").
	RecordTrieOp(backend, op string, duration time.Duration, err error)
}

// New creates a new Prometheus-backed Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called),
// in which case callers should pass nil into feedstore.Options.Metrics
// for zero overhead.
func New() Metrics {
	if !IsEnabled() {
		return nil
	}
	if newPrometheusMetrics == nil {
		return nil
	}
	return newPrometheusMetrics()
}

// newPrometheusMetrics is supplied by pkg/feedstore/metrics/prometheus's
// init(). The indirection avoids an import cycle: the prometheus
// implementation needs GetRegistry/IsEnabled from this package, so this
// package cannot import it back directly.
var newPrometheusMetrics func() Metrics

// RegisterConstructor installs the Prometheus metrics constructor.
// Called by pkg/feedstore/metrics/prometheus during package init.
func RegisterConstructor(constructor func() Metrics) {
	newPrometheusMetrics = constructor
}
