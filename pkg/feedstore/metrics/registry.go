// Package metrics defines the optional observability surface for a
// feedstore server: append/read throughput, reader lifecycle, and the
// per-backend storage/trie operation counters. Implementations are
// nil-able throughout, so a caller that never calls InitRegistry pays
// zero overhead.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registry *prometheus.Registry
	enabled  atomic.Bool
)

// InitRegistry creates the package-level Prometheus registry and marks
// metrics collection enabled. Must be called before any NewXMetrics
// constructor for that constructor to return a non-nil implementation.
func InitRegistry() *prometheus.Registry {
	registry = prometheus.NewRegistry()
	enabled.Store(true)
	return registry
}

// GetRegistry returns the package-level registry, creating it via
// InitRegistry if one has not been created yet.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return enabled.Load()
}
