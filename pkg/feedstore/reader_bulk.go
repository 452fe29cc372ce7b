package feedstore

import (
	"context"
	"sync"
)

// BulkMessage is one element of a Bulk read stream.
// Key, Path, and Metadata are populated only when the matching
// BulkFilterDecision set FeedStoreInfo.
type BulkMessage struct {
	Data     []byte
	Seq      uint64
	Key      []byte
	Path     string
	Metadata any
}

// BulkFilterDecision is returned per-feed by a BulkFilter to decide
// whether, and how, a feed is merged into a Bulk stream.
type BulkFilterDecision struct {
	Skip          bool
	Start         uint64
	Live          bool
	FeedStoreInfo bool
}

// BulkFilter is evaluated once per feed, at attach time.
type BulkFilter func(d *FeedDescriptor) BulkFilterDecision

// AllowAllBulk attaches every feed from the beginning, non-live,
// without feedstore info.
func AllowAllBulk(d *FeedDescriptor) BulkFilterDecision {
	return BulkFilterDecision{}
}

type bulkItem struct {
	Msg BulkMessage
	Err error
}

// bulkFeedStream tracks one attached feed's batch pump.
type bulkFeedStream struct {
	bs *BatchStream
}

// BulkReader merges every matching feed into a single object sequence
// and emits a SyncedEvent once every feed present at attach time has
// caught up to the length it had when the stream was created
// §4.5).
type BulkReader struct {
	filter BulkFilter

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	out      chan bulkItem
	syncedCh chan SyncedEvent
	doneCh   chan struct{}

	mu            sync.Mutex
	streams       map[string]*bulkFeedStream
	pending       map[string]bool
	watermarks    map[string]uint64
	cohortClosed  bool
	syncedEmitted bool
	destroyed     bool
}

// NewBulkReader constructs a Bulk reader. filter nil means AllowAllBulk.
func NewBulkReader(ctx context.Context, filter BulkFilter) *BulkReader {
	if filter == nil {
		filter = AllowAllBulk
	}
	rctx, cancel := context.WithCancel(ctx)
	return &BulkReader{
		filter:     filter,
		ctx:        rctx,
		cancel:     cancel,
		out:        make(chan bulkItem),
		syncedCh:   make(chan SyncedEvent, 1),
		doneCh:     make(chan struct{}),
		streams:    make(map[string]*bulkFeedStream),
		pending:    make(map[string]bool),
		watermarks: make(map[string]uint64),
	}
}

// Recv returns the next merged message. ok is false once the stream has
// ended (Destroy was called); err, when non-nil, is the terminal error
// that ended it.
func (r *BulkReader) Recv(ctx context.Context) (msg BulkMessage, err error, ok bool) {
	select {
	case item, open := <-r.out:
		if !open {
			return BulkMessage{}, nil, false
		}
		return item.Msg, item.Err, true
	case <-ctx.Done():
		return BulkMessage{}, ctx.Err(), true
	}
}

// Synced delivers the reader's single sync watermark event, if any.
func (r *BulkReader) Synced() <-chan SyncedEvent {
	return r.syncedCh
}

func (r *BulkReader) done() <-chan struct{} {
	return r.doneCh
}

func (r *BulkReader) cohortComplete() {
	r.mu.Lock()
	r.cohortClosed = true
	emit, snapshot := r.checkSyncedLocked()
	r.mu.Unlock()
	if emit {
		r.emitSynced(snapshot)
	}
}

// attach subscribes the reader to d's feed. cohort marks that d was
// already open when the stream was created, making it part of the
// sync watermark.
func (r *BulkReader) attach(ctx context.Context, d *FeedDescriptor, cohort bool) error {
	decision := r.filter(d)
	if decision.Skip {
		return nil
	}

	feed := d.Feed()
	if feed == nil {
		return nil
	}

	key := hexKey(d.Key)

	r.mu.Lock()
	if _, exists := r.streams[key]; exists {
		r.mu.Unlock()
		return nil
	}
	opts := DefaultBatchStreamOptions()
	opts.Start = decision.Start
	opts.Live = decision.Live
	bs := NewBatchStream(feed, opts)
	r.streams[key] = &bulkFeedStream{bs: bs}

	if cohort {
		if head, hasSnapshot := bs.SnapshotHead(); hasSnapshot && head > 0 {
			r.pending[key] = true
		}
	}
	r.mu.Unlock()

	r.wg.Add(1)
	go r.pump(key, d, bs, decision.FeedStoreInfo)
	return nil
}

func (r *BulkReader) pump(key string, d *FeedDescriptor, bs *BatchStream, enrich bool) {
	defer r.wg.Done()
	defer bs.Close()

	for {
		batch, done, err := bs.Next(r.ctx)
		if err != nil {
			r.fail(err)
			return
		}
		if done {
			return
		}
		for _, m := range batch {
			msg := BulkMessage{Data: m.Data, Seq: m.Seq}
			if enrich {
				msg.Key = d.Key
				msg.Path = d.Path
				msg.Metadata = d.Metadata()
			}
			select {
			case r.out <- bulkItem{Msg: msg}:
			case <-r.ctx.Done():
				return
			}
			if m.Sync {
				r.markSynced(key, m.Seq)
			}
		}
	}
}

func (r *BulkReader) markSynced(key string, seq uint64) {
	r.mu.Lock()
	if r.pending[key] {
		delete(r.pending, key)
		r.watermarks[key] = seq
	}
	emit, snapshot := r.checkSyncedLocked()
	r.mu.Unlock()
	if emit {
		r.emitSynced(snapshot)
	}
}

// checkSyncedLocked must be called with r.mu held. It reports whether
// the watermark should fire now, and a snapshot of it if so.
func (r *BulkReader) checkSyncedLocked() (emit bool, snapshot map[string]uint64) {
	if r.syncedEmitted || !r.cohortClosed || len(r.pending) != 0 {
		return false, nil
	}
	r.syncedEmitted = true
	snapshot = make(map[string]uint64, len(r.watermarks))
	for k, v := range r.watermarks {
		snapshot[k] = v
	}
	return true, snapshot
}

func (r *BulkReader) emitSynced(watermarks map[string]uint64) {
	select {
	case r.syncedCh <- SyncedEvent{Watermarks: watermarks}:
	default:
	}
}

func (r *BulkReader) fail(err error) {
	select {
	case r.out <- bulkItem{Err: err}:
	case <-r.ctx.Done():
	}
	r.Destroy(err)
}

// Destroy ends the stream and detaches every attached feed. Safe to
// call more than once.
func (r *BulkReader) Destroy(err error) {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return
	}
	r.destroyed = true
	r.mu.Unlock()

	r.cancel()
	go func() {
		r.wg.Wait()
		close(r.out)
		close(r.doneCh)
	}()
}
