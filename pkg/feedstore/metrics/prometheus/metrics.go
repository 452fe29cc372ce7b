// Package prometheus implements pkg/feedstore/metrics.Metrics on top of
// github.com/prometheus/client_golang, following the same
// promauto.With(reg) + nil-receiver pattern used throughout the rest of
// the metrics stack.
package prometheus

import (
	"time"

	"github.com/marmos91/feedstore/pkg/feedstore/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func init() {
	metrics.RegisterConstructor(func() metrics.Metrics {
		return newFeedStoreMetrics()
	})
}

type feedStoreMetrics struct {
	appendOps       prometheus.Counter
	appendBytes     prometheus.Histogram
	appendDuration  prometheus.Histogram
	appendBatchOps  prometheus.Counter
	appendBatchSize prometheus.Histogram

	activeReaders *prometheus.GaugeVec
	readerRecvOps *prometheus.CounterVec
	readerRecvDur *prometheus.HistogramVec

	openFeeds prometheus.Gauge

	storageOps      *prometheus.CounterVec
	storageErrors   *prometheus.CounterVec
	storageDuration *prometheus.HistogramVec
	storageBytes    *prometheus.HistogramVec

	trieOps      *prometheus.CounterVec
	trieErrors   *prometheus.CounterVec
	trieDuration *prometheus.HistogramVec
}

var byteBuckets = []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576, 4194304}
var durationBucketsMs = []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000}

// newFeedStoreMetrics creates a new Prometheus-backed Metrics instance.
func newFeedStoreMetrics() *feedStoreMetrics {
	reg := metrics.GetRegistry()

	return &feedStoreMetrics{
		appendOps: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "feedstore_append_operations_total",
			Help: "Total number of single-message append operations",
		}),
		appendBytes: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "feedstore_append_bytes",
			Help:    "Distribution of appended message sizes in bytes",
			Buckets: byteBuckets,
		}),
		appendDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "feedstore_append_duration_milliseconds",
			Help:    "Duration of append operations in milliseconds",
			Buckets: durationBucketsMs,
		}),
		appendBatchOps: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "feedstore_append_batch_operations_total",
			Help: "Total number of batch append operations",
		}),
		appendBatchSize: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "feedstore_append_batch_messages",
			Help:    "Distribution of message counts per batch append",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128},
		}),
		activeReaders: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "feedstore_active_readers",
			Help: "Current number of live read streams by kind",
		}, []string{"kind"}), // "bulk", "selective", "ordered"
		readerRecvOps: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "feedstore_reader_recv_operations_total",
			Help: "Total number of Recv calls by reader kind",
		}, []string{"kind"}),
		readerRecvDur: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "feedstore_reader_recv_duration_milliseconds",
			Help:    "Duration of Recv calls in milliseconds by reader kind",
			Buckets: durationBucketsMs,
		}, []string{"kind"}),
		openFeeds: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "feedstore_open_feeds",
			Help: "Current number of open feed descriptors",
		}),
		storageOps: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "feedstore_storage_operations_total",
			Help: "Total number of storage backend operations by backend and op",
		}, []string{"backend", "op"}), // op: "open", "read", "write", "truncate"
		storageErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "feedstore_storage_errors_total",
			Help: "Total number of failed storage backend operations by backend and op",
		}, []string{"backend", "op"}),
		storageDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "feedstore_storage_duration_milliseconds",
			Help:    "Duration of storage backend operations in milliseconds",
			Buckets: durationBucketsMs,
		}, []string{"backend", "op"}),
		storageBytes: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "feedstore_storage_bytes",
			Help:    "Distribution of bytes moved by storage backend operations",
			Buckets: byteBuckets,
		}, []string{"backend", "op"}),
		trieOps: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "feedstore_trie_operations_total",
			Help: "Total number of metadata trie operations by backend and op",
		}, []string{"backend", "op"}), // op: "get", "put", "delete", "list"
		trieErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "feedstore_trie_errors_total",
			Help: "Total number of failed metadata trie operations by backend and op",
		}, []string{"backend", "op"}),
		trieDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "feedstore_trie_duration_milliseconds",
			Help:    "Duration of metadata trie operations in milliseconds",
			Buckets: durationBucketsMs,
		}, []string{"backend", "op"}),
	}
}

func (m *feedStoreMetrics) RecordAppend(path string, bytes int, duration time.Duration) {
	if m == nil {
		return
	}
	m.appendOps.Inc()
	m.appendBytes.Observe(float64(bytes))
	m.appendDuration.Observe(float64(duration.Milliseconds()))
}

func (m *feedStoreMetrics) RecordAppendBatch(path string, messages int, bytes int, duration time.Duration) {
	if m == nil {
		return
	}
	m.appendBatchOps.Inc()
	m.appendBatchSize.Observe(float64(messages))
	m.appendBytes.Observe(float64(bytes))
	m.appendDuration.Observe(float64(duration.Milliseconds()))
}

func (m *feedStoreMetrics) RecordReaderCreated(kind string) {
	if m == nil {
		return
	}
	m.activeReaders.WithLabelValues(kind).Inc()
}

func (m *feedStoreMetrics) RecordReaderDestroyed(kind string) {
	if m == nil {
		return
	}
	m.activeReaders.WithLabelValues(kind).Dec()
}

func (m *feedStoreMetrics) RecordReaderRecv(kind string, messages int, duration time.Duration) {
	if m == nil {
		return
	}
	m.readerRecvOps.WithLabelValues(kind).Inc()
	m.readerRecvDur.WithLabelValues(kind).Observe(float64(duration.Milliseconds()))
}

func (m *feedStoreMetrics) SetOpenFeeds(count int) {
	if m == nil {
		return
	}
	m.openFeeds.Set(float64(count))
}

func (m *feedStoreMetrics) RecordStorageOp(backend, op string, bytes int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.storageOps.WithLabelValues(backend, op).Inc()
	if err != nil {
		m.storageErrors.WithLabelValues(backend, op).Inc()
	}
	m.storageDuration.WithLabelValues(backend, op).Observe(float64(duration.Milliseconds()))
	if bytes > 0 {
		m.storageBytes.WithLabelValues(backend, op).Observe(float64(bytes))
	}
}

func (m *feedStoreMetrics) RecordTrieOp(backend, op string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.trieOps.WithLabelValues(backend, op).Inc()
	if err != nil {
		m.trieErrors.WithLabelValues(backend, op).Inc()
	}
	m.trieDuration.WithLabelValues(backend, op).Observe(float64(duration.Milliseconds()))
}
