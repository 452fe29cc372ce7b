package feedstore

import (
	"context"
	"sync"
)

// OrderedMessage is one element of an Ordered read stream.
type OrderedMessage struct {
	Data []byte
	Seq  uint64
	Key  []byte
	Path string
}

// OrderedPredicate is the same shape of admission function as
// SelectivePredicate; encoders of cross-feed ordering constraints
// write it against feed counters/state captured in its closure.
type OrderedPredicate = admissionPredicate

// OrderedFilter decides, at attach time, whether a feed participates
// and from where.
type OrderedFilter func(d *FeedDescriptor) (participate bool, start uint64, live bool)

// AllowAllOrdered attaches every feed from the beginning, live.
func AllowAllOrdered(d *FeedDescriptor) (bool, uint64, bool) {
	return true, 0, true
}

type orderedItem struct {
	Msg OrderedMessage
	Err error
}

// OrderedReader admits messages through the same kind of predicate as
// SelectiveReader, but visits feeds in a fixed order — the order they
// were attached — on every pass, and never advances past a feed whose
// head the predicate rejects: that feed is skipped for the rest of
// the pass and retried on the next one. This guarantees the output
// interleaves feeds deterministically pass-by-pass while preserving
// each feed's internal sequence.
type OrderedReader struct {
	filter OrderedFilter
	core   *admissionCore

	out    chan orderedItem
	doneCh chan struct{}

	mu        sync.Mutex
	destroyed bool
}

// NewOrderedReader constructs an Ordered reader. filter nil means
// AllowAllOrdered; predicate must not be nil.
func NewOrderedReader(ctx context.Context, filter OrderedFilter, predicate OrderedPredicate) *OrderedReader {
	if filter == nil {
		filter = AllowAllOrdered
	}
	r := &OrderedReader{
		filter: filter,
		out:    make(chan orderedItem),
		doneCh: make(chan struct{}),
	}
	r.core = newAdmissionCore(ctx, predicate, r.onAdmit, r.onFail)
	return r
}

func (r *OrderedReader) onAdmit(d *FeedDescriptor, msg BatchMessage) {
	item := orderedItem{Msg: OrderedMessage{Data: msg.Data, Seq: msg.Seq, Key: d.Key, Path: d.Path}}
	select {
	case r.out <- item:
	case <-r.core.ctx.Done():
	}
}

func (r *OrderedReader) onFail(err error) {
	select {
	case r.out <- orderedItem{Err: err}:
	case <-r.core.ctx.Done():
	}
	r.Destroy(err)
}

// Recv returns the next message, in the reader's deterministic
// pass-by-pass feed order.
func (r *OrderedReader) Recv(ctx context.Context) (msg OrderedMessage, err error, ok bool) {
	select {
	case item, open := <-r.out:
		if !open {
			return OrderedMessage{}, nil, false
		}
		return item.Msg, item.Err, true
	case <-ctx.Done():
		return OrderedMessage{}, ctx.Err(), true
	}
}

func (r *OrderedReader) done() <-chan struct{} {
	return r.doneCh
}

func (r *OrderedReader) cohortComplete() {}

func (r *OrderedReader) attach(ctx context.Context, d *FeedDescriptor, cohort bool) error {
	participate, start, live := r.filter(d)
	if !participate {
		return nil
	}

	feed := d.Feed()
	if feed == nil {
		return nil
	}

	opts := DefaultBatchStreamOptions()
	opts.Start = start
	opts.Live = live
	opts.BatchSize = 1 // head-only admission: never read ahead of the current position.
	bs := NewBatchStream(feed, opts)

	if !r.core.attach(d, bs) {
		bs.Close()
	}
	return nil
}

// Destroy ends the stream. Safe to call more than once.
func (r *OrderedReader) Destroy(err error) {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return
	}
	r.destroyed = true
	r.mu.Unlock()

	r.core.destroy()
	go func() {
		r.core.wait()
		close(r.out)
		close(r.doneCh)
	}()
}
