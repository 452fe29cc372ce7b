package feedstore

import (
	"context"
	"sync"
)

// SelectiveMessage is one admitted element of a Selective read stream.
type SelectiveMessage struct {
	Data []byte
	Seq  uint64
	Key  []byte
	Path string
}

// SelectivePredicate decides, per message, whether it is admitted into
// the merged output. It may block — e.g. to consult
// another feed's current state — and is never invoked again for the
// same feed until its previous call has returned, so a predicate may
// safely assume it is not reentered concurrently with itself.
type SelectivePredicate = admissionPredicate

// SelectiveFilter decides, at attach time, whether a feed participates
// and from where.
type SelectiveFilter func(d *FeedDescriptor) (participate bool, start uint64, live bool)

// AllowAllSelective attaches every feed from the beginning, live.
func AllowAllSelective(d *FeedDescriptor) (bool, uint64, bool) {
	return true, 0, true
}

type selectiveItem struct {
	Msg SelectiveMessage
	Err error
}

// SelectiveReader merges matching feeds, admitting each message
// through an async predicate before forwarding it. A rejected message
// stays at the head of its feed's buffer and is re-evaluated on the
// next pass rather than dropped, so a predicate whose decision depends
// on prior admissions eventually admits it, per the
// starvation-avoidance liveness property).
type SelectiveReader struct {
	filter SelectiveFilter
	core   *admissionCore

	out    chan selectiveItem
	doneCh chan struct{}

	mu        sync.Mutex
	destroyed bool
}

// NewSelectiveReader constructs a Selective reader. filter nil means
// AllowAllSelective; predicate must not be nil.
func NewSelectiveReader(ctx context.Context, filter SelectiveFilter, predicate SelectivePredicate) *SelectiveReader {
	if filter == nil {
		filter = AllowAllSelective
	}
	r := &SelectiveReader{
		filter: filter,
		out:    make(chan selectiveItem),
		doneCh: make(chan struct{}),
	}
	r.core = newAdmissionCore(ctx, predicate, r.onAdmit, r.onFail)
	return r
}

func (r *SelectiveReader) onAdmit(d *FeedDescriptor, msg BatchMessage) {
	item := selectiveItem{Msg: SelectiveMessage{Data: msg.Data, Seq: msg.Seq, Key: d.Key, Path: d.Path}}
	select {
	case r.out <- item:
	case <-r.core.ctx.Done():
	}
}

func (r *SelectiveReader) onFail(err error) {
	select {
	case r.out <- selectiveItem{Err: err}:
	case <-r.core.ctx.Done():
	}
	r.Destroy(err)
}

// Recv returns the next admitted message.
func (r *SelectiveReader) Recv(ctx context.Context) (msg SelectiveMessage, err error, ok bool) {
	select {
	case item, open := <-r.out:
		if !open {
			return SelectiveMessage{}, nil, false
		}
		return item.Msg, item.Err, true
	case <-ctx.Done():
		return SelectiveMessage{}, ctx.Err(), true
	}
}

func (r *SelectiveReader) done() <-chan struct{} {
	return r.doneCh
}

func (r *SelectiveReader) cohortComplete() {}

func (r *SelectiveReader) attach(ctx context.Context, d *FeedDescriptor, cohort bool) error {
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
	bs := NewBatchStream(feed, opts)

	if !r.core.attach(d, bs) {
		bs.Close()
	}
	return nil
}

// Destroy ends the stream. Safe to call more than once.
func (r *SelectiveReader) Destroy(err error) {
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
