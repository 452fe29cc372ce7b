package feedstore

import "context"

// defaultBatchSize is the default number of blocks fetched per Next
// call.
const defaultBatchSize = 100

// BatchMessage is one block delivered by a BatchStream.
type BatchMessage struct {
	Data []byte
	Seq  uint64
	// Sync is true on the final element of the first batch whose
	// range crosses the snapshot head recorded when the stream was
	// created.
	Sync bool
}

// BatchStreamOptions configures a BatchStream.
type BatchStreamOptions struct {
	// Start is the first sequence number to read. Ignored if Tail is set.
	Start uint64
	// End, if non-nil, bounds the range exclusively.
	End *uint64
	// Live keeps the stream open past the current head, blocking Next
	// until new blocks arrive.
	Live bool
	// Snapshot, when true (the default produced by
	// DefaultBatchStreamOptions), records the feed's length at
	// creation time and marks the batch that crosses it.
	Snapshot bool
	// Tail starts the stream at the feed's current head instead of Start.
	Tail bool
	// BatchSize caps blocks per Next call; zero means defaultBatchSize.
	BatchSize int
}

// DefaultBatchStreamOptions returns options reading from the
// beginning, non-live, with snapshot tracking enabled.
func DefaultBatchStreamOptions() BatchStreamOptions {
	return BatchStreamOptions{Snapshot: true, BatchSize: defaultBatchSize}
}

// BatchStream reads contiguous ranges of one feed's log in batches,
// owned by exactly one reader at a time.
type BatchStream struct {
	feed      LogHandle
	batchSize int
	end       *uint64
	live      bool

	hasSnapshot  bool
	snapshotHead uint64
	syncSignaled bool

	readable *broadcaster[struct{}]
	unsub    func()

	cur    uint64
	closed bool
}

// NewBatchStream opens a batch stream over feed with the given
// options.
func NewBatchStream(feed LogHandle, opts BatchStreamOptions) *BatchStream {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}

	start := opts.Start
	if opts.Tail {
		start = feed.Length()
	}

	bs := &BatchStream{
		feed:      feed,
		batchSize: opts.BatchSize,
		end:       opts.End,
		live:      opts.Live,
		cur:       start,
		readable:  newBroadcaster[struct{}](),
	}

	if opts.Snapshot {
		bs.hasSnapshot = true
		bs.snapshotHead = feed.Length()
	}

	bs.unsub = feed.OnAppend(func() { bs.readable.Emit(struct{}{}) })
	return bs
}

// SnapshotHead returns the feed length recorded at creation and
// whether snapshot tracking is enabled. Used by the Bulk reader to
// seed its sync watermark.
func (bs *BatchStream) SnapshotHead() (head uint64, ok bool) {
	return bs.snapshotHead, bs.hasSnapshot
}

// OnReadable registers fn to be called whenever the underlying feed
// appends new blocks. The returned function unsubscribes it. This is
// the wake signal the Selective and Ordered readers suspend on.
func (bs *BatchStream) OnReadable(fn func()) (unsubscribe func()) {
	return bs.readable.Subscribe(func(struct{}) { fn() })
}

// Next returns the next batch of messages. done is true when the
// range is exhausted (non-live) or the stream has been closed; a
// live, non-done call may return zero messages when no new data has
// arrived yet — callers loop or wait on OnReadable.
func (bs *BatchStream) Next(ctx context.Context) (batch []BatchMessage, done bool, err error) {
	if bs.closed {
		return nil, true, nil
	}

	if bs.end != nil && bs.cur >= *bs.end {
		return nil, true, nil
	}

	length := bs.feed.Length()
	if bs.cur >= length {
		if !bs.live {
			return nil, true, nil
		}
		if err := bs.waitReadable(ctx); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}

	batchEnd := bs.cur + uint64(bs.batchSize)
	if batchEnd > length {
		batchEnd = length
	}
	if bs.end != nil && batchEnd > *bs.end {
		batchEnd = *bs.end
	}

	blocks, err := bs.feed.GetBatch(ctx, bs.cur, batchEnd, bs.live)
	if err != nil {
		return nil, false, err
	}

	messages := make([]BatchMessage, len(blocks))
	for i, b := range blocks {
		messages[i] = BatchMessage{Data: b, Seq: bs.cur + uint64(i)}
	}

	if bs.hasSnapshot && !bs.syncSignaled && len(messages) > 0 && batchEnd >= bs.snapshotHead {
		messages[len(messages)-1].Sync = true
		bs.syncSignaled = true
	}

	bs.cur = batchEnd
	return messages, false, nil
}

// waitReadable blocks until the feed emits a readable signal or ctx
// is done.
func (bs *BatchStream) waitReadable(ctx context.Context) error {
	woke := make(chan struct{}, 1)
	unsub := bs.readable.Subscribe(func(struct{}) {
		select {
		case woke <- struct{}{}:
		default:
		}
	})
	defer unsub()

	select {
	case <-woke:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the stream's subscription to the feed.
func (bs *BatchStream) Close() {
	if bs.closed {
		return
	}
	bs.closed = true
	if bs.unsub != nil {
		bs.unsub()
	}
}
