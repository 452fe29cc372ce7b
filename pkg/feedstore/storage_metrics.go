package feedstore

import (
	"context"
	"time"

	"github.com/marmos91/feedstore/pkg/feedstore/metrics"
)

// InstrumentStorage wraps a Storage so every RandomAccess operation it
// produces records throughput and latency through m. backend names the
// underlying implementation ("memory", "file", "s3") for metric labels.
// A nil m returns storage unchanged.
func InstrumentStorage(storage Storage, m metrics.Metrics, backend string) Storage {
	if m == nil {
		return storage
	}
	return &instrumentedStorage{next: storage, metrics: m, backend: backend}
}

type instrumentedStorage struct {
	next    Storage
	metrics metrics.Metrics
	backend string
}

func (s *instrumentedStorage) Open(ctx context.Context, name string) (RandomAccess, error) {
	start := time.Now()
	ra, err := s.next.Open(ctx, name)
	s.metrics.RecordStorageOp(s.backend, "open", 0, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return &instrumentedRandomAccess{next: ra, metrics: s.metrics, backend: s.backend}, nil
}

type instrumentedRandomAccess struct {
	next    RandomAccess
	metrics metrics.Metrics
	backend string
}

func (r *instrumentedRandomAccess) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	start := time.Now()
	n, err := r.next.ReadAt(ctx, p, off)
	r.metrics.RecordStorageOp(r.backend, "read", n, time.Since(start), err)
	return n, err
}

func (r *instrumentedRandomAccess) WriteAt(ctx context.Context, p []byte, off int64) (int, error) {
	start := time.Now()
	n, err := r.next.WriteAt(ctx, p, off)
	r.metrics.RecordStorageOp(r.backend, "write", n, time.Since(start), err)
	return n, err
}

func (r *instrumentedRandomAccess) Truncate(ctx context.Context, size int64) error {
	start := time.Now()
	err := r.next.Truncate(ctx, size)
	r.metrics.RecordStorageOp(r.backend, "truncate", 0, time.Since(start), err)
	return err
}

func (r *instrumentedRandomAccess) Close() error {
	return r.next.Close()
}
