package feedstore

import (
	"context"
	"time"

	"github.com/marmos91/feedstore/pkg/feedstore/metrics"
)

// InstrumentEngine wraps a LogEngine so every handle it opens records
// append throughput and latency through m. A nil m returns engine
// unchanged.
func InstrumentEngine(engine LogEngine, m metrics.Metrics) LogEngine {
	if m == nil {
		return engine
	}
	return &instrumentedEngine{next: engine, metrics: m}
}

type instrumentedEngine struct {
	next    LogEngine
	metrics metrics.Metrics
}

func (e *instrumentedEngine) Open(ctx context.Context, storage Storage, key []byte, opts LogEngineOpts) (LogHandle, error) {
	handle, err := e.next.Open(ctx, storage, key, opts)
	if err != nil {
		return nil, err
	}
	return &instrumentedHandle{next: handle, metrics: e.metrics}, nil
}

type instrumentedHandle struct {
	next    LogHandle
	metrics metrics.Metrics
}

func (h *instrumentedHandle) Ready(ctx context.Context) error { return h.next.Ready(ctx) }
func (h *instrumentedHandle) Close(ctx context.Context) error { return h.next.Close(ctx) }

// Append records throughput against an empty path label: LogHandle is
// opened by key alone, so the engine has no feed path to
// attach to the metric here. Callers that need path-labeled append
// metrics should record them at the FeedDescriptor/FeedStore layer
// instead, which does know the path.
func (h *instrumentedHandle) Append(ctx context.Context, blocks ...[]byte) (uint64, error) {
	start := time.Now()
	seq, err := h.next.Append(ctx, blocks...)
	if err != nil {
		return seq, err
	}
	bytes := 0
	for _, b := range blocks {
		bytes += len(b)
	}
	if len(blocks) > 1 {
		h.metrics.RecordAppendBatch("", len(blocks), bytes, time.Since(start))
	} else {
		h.metrics.RecordAppend("", bytes, time.Since(start))
	}
	return seq, nil
}

func (h *instrumentedHandle) Get(ctx context.Context, seq uint64) ([]byte, error) {
	return h.next.Get(ctx, seq)
}

func (h *instrumentedHandle) GetBatch(ctx context.Context, start, end uint64, live bool) ([][]byte, error) {
	return h.next.GetBatch(ctx, start, end, live)
}

func (h *instrumentedHandle) Download(ctx context.Context, start, end uint64) error {
	return h.next.Download(ctx, start, end)
}

func (h *instrumentedHandle) Length() uint64 { return h.next.Length() }
func (h *instrumentedHandle) Opened() bool   { return h.next.Opened() }
func (h *instrumentedHandle) Closed() bool   { return h.next.Closed() }

func (h *instrumentedHandle) OnAppend(fn func()) (unsubscribe func()) {
	return h.next.OnAppend(fn)
}

func (h *instrumentedHandle) OnDownload(fn func(index uint64, data []byte)) (unsubscribe func()) {
	return h.next.OnDownload(fn)
}
