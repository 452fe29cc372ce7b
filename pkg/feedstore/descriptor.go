package feedstore

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DescriptorState is the lifecycle state of a FeedDescriptor.
type DescriptorState int

const (
	StateClosed DescriptorState = iota
	StateOpening
	StateOpened
	StateClosing
)

// String renders the state for logging.
func (s DescriptorState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpening:
		return "opening"
	case StateOpened:
		return "opened"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// DescriptorRecord is the persistable identity of a FeedDescriptor,
// stored by IndexDB under "@feedstore/<hex(key)>".
type DescriptorRecord struct {
	Path          string `json:"path"`
	Key           []byte `json:"key"`
	SecretKey     []byte `json:"secretKey,omitempty"`
	ValueEncoding string `json:"valueEncoding"`
	Metadata      any    `json:"metadata,omitempty"`
}

// FeedDescriptor is the persistable identity plus in-memory lifecycle
// object for a single feed. State transitions are
// serialized by lock; a plain mutex (mu) additionally guards field
// reads/writes so cheap snapshot reads (State, Feed, Metadata) never
// race with a transition in flight, without requiring every reader to
// wait out a full open/close.
type FeedDescriptor struct {
	Path          string
	Key           []byte
	SecretKey     []byte
	DiscoveryKey  []byte
	ValueEncoding string

	lock     *AsyncMutex
	watchers *broadcaster[WatcherEvent]

	engine      LogEngine
	storage     Storage
	openTimeout time.Duration

	mu       sync.Mutex
	state    DescriptorState
	feed     LogHandle
	metadata any
}

// newFeedDescriptor constructs a descriptor in state closed, without
// opening its feed.
func newFeedDescriptor(
	path string,
	key, secretKey []byte,
	discoveryKey []byte,
	valueEncoding string,
	metadata any,
	engine LogEngine,
	storage Storage,
	openTimeout time.Duration,
) *FeedDescriptor {
	if openTimeout <= 0 {
		openTimeout = defaultOpenTimeout
	}
	return &FeedDescriptor{
		Path:          path,
		Key:           key,
		SecretKey:     secretKey,
		DiscoveryKey:  discoveryKey,
		ValueEncoding: valueEncoding,
		lock:          NewAsyncMutex(),
		watchers:      newBroadcaster[WatcherEvent](),
		engine:        engine,
		storage:       storage,
		openTimeout:   openTimeout,
		metadata:      metadata,
	}
}

// State returns the descriptor's current lifecycle state.
func (d *FeedDescriptor) State() DescriptorState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Feed returns the bound log handle, or nil when not opened. It is
// non-nil iff State() == StateOpened.
func (d *FeedDescriptor) Feed() LogHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.feed
}

// Metadata returns the current metadata value.
func (d *FeedDescriptor) Metadata() any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.metadata
}

// Record snapshots the descriptor's persistable identity.
func (d *FeedDescriptor) Record() DescriptorRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return DescriptorRecord{
		Path:          d.Path,
		Key:           d.Key,
		SecretKey:     d.SecretKey,
		ValueEncoding: d.ValueEncoding,
		Metadata:      d.metadata,
	}
}

// Watch registers a callback invoked on WatcherOpened, WatcherUpdated,
// and WatcherClosed events. The returned function unsubscribes it.
func (d *FeedDescriptor) Watch(fn func(WatcherEvent)) (unsubscribe func()) {
	return d.watchers.Subscribe(fn)
}

// Lock exposes the descriptor's mutex for cross-cutting critical
// sections such as deletion.
func (d *FeedDescriptor) Lock(ctx context.Context) (ReleaseFunc, error) {
	return d.lock.Acquire(ctx)
}

// Open acquires the descriptor lock and returns the bound feed handle,
// opening the underlying log engine if necessary. Idempotent: a second
// Open on an already-opened descriptor returns the existing handle
// without reconstructing the log.
func (d *FeedDescriptor) Open(ctx context.Context) (LogHandle, error) {
	release, err := d.lock.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	if d.state == StateOpened {
		feed := d.feed
		d.mu.Unlock()
		release()
		return feed, nil
	}
	d.state = StateOpening
	d.mu.Unlock()

	openCtx, cancel := context.WithTimeout(ctx, d.openTimeout)
	defer cancel()

	storage := newPrefixedStorage(d.storage, hexKey(d.Key)+"/")
	handle, err := d.engine.Open(openCtx, storage, d.Key, LogEngineOpts{
		SecretKey:     d.SecretKey,
		ValueEncoding: d.ValueEncoding,
	})
	if err == nil {
		err = handle.Ready(openCtx)
	}
	if err != nil {
		d.mu.Lock()
		d.state = StateClosed
		d.mu.Unlock()
		release()
		return nil, wrapOpenCloseError("open", openCtx, err)
	}

	d.mu.Lock()
	d.feed = handle
	d.state = StateOpened
	d.mu.Unlock()

	d.watchers.Emit(WatcherEvent{Kind: WatcherOpened, Descriptor: d})
	release()
	return handle, nil
}

// Close acquires the descriptor lock and closes the bound feed handle,
// if any. Idempotent: closing an already-closed descriptor is a no-op.
// A failed close leaves the
// descriptor in StateClosing so a later Close can retry.
func (d *FeedDescriptor) Close(ctx context.Context) error {
	release, err := d.lock.Acquire(ctx)
	if err != nil {
		return err
	}

	d.mu.Lock()
	if d.state != StateOpened && d.state != StateClosing {
		d.mu.Unlock()
		release()
		return nil
	}
	d.state = StateClosing
	feed := d.feed
	d.mu.Unlock()

	closeCtx, cancel := context.WithTimeout(ctx, d.openTimeout)
	defer cancel()

	if err := feed.Close(closeCtx); err != nil {
		release()
		return wrapOpenCloseError("close", closeCtx, err)
	}

	d.mu.Lock()
	d.feed = nil
	d.state = StateClosed
	d.mu.Unlock()

	d.watchers.Emit(WatcherEvent{Kind: WatcherClosed, Descriptor: d})
	release()
	return nil
}

// SetMetadata replaces the descriptor's metadata under lock and fires
// WatcherUpdated so the owning FeedStore can re-persist the record.
func (d *FeedDescriptor) SetMetadata(ctx context.Context, metadata any) error {
	release, err := d.lock.Acquire(ctx)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.metadata = metadata
	d.mu.Unlock()

	d.watchers.Emit(WatcherEvent{Kind: WatcherUpdated, Descriptor: d})
	release()
	return nil
}

func wrapOpenCloseError(op string, ctx context.Context, cause error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return newTimeoutError(op)
	}
	return newEngineError(op, cause)
}
