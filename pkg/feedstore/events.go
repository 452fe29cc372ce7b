package feedstore

import (
	"sort"
	"sync"
)

// broadcaster is a minimal typed observer list: subscribers register a
// callback and receive every subsequent Emit synchronously, on the
// emitting goroutine. This replaces a loose event-emitter with one
// explicit, strictly-typed channel per signal.
type broadcaster[T any] struct {
	mu   sync.Mutex
	subs map[int]func(T)
	next int
}

func newBroadcaster[T any]() *broadcaster[T] {
	return &broadcaster[T]{subs: make(map[int]func(T))}
}

// Subscribe registers fn and returns an unsubscribe function.
func (b *broadcaster[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Emit invokes every current subscriber with value, in registration
// order. Subscribers added or removed during Emit do not affect the
// current pass's callback set.
func (b *broadcaster[T]) Emit(value T) {
	b.mu.Lock()
	fns := make([]func(T), 0, len(b.subs))
	ids := make([]int, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		fns = append(fns, b.subs[id])
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(value)
	}
}

// WatcherEventKind is the event kind delivered to a FeedDescriptor
// watcher.
type WatcherEventKind int

const (
	WatcherOpened WatcherEventKind = iota
	WatcherUpdated
	WatcherClosed
)

// WatcherEvent is delivered to callbacks registered via
// FeedDescriptor.Watch.
type WatcherEvent struct {
	Kind       WatcherEventKind
	Descriptor *FeedDescriptor
}

// AppendEvent is forwarded by FeedStore after a feed's underlying log
// reports a successful append.
type AppendEvent struct {
	Handle     LogHandle
	Descriptor *FeedDescriptor
}

// DownloadEvent is forwarded by FeedStore after a feed's underlying
// log reports downloaded blocks.
type DownloadEvent struct {
	Index      uint64
	Data       []byte
	Handle     LogHandle
	Descriptor *FeedDescriptor
}

// FeedEvent is emitted exactly once per open-to-close interval, after
// a feed's first successful open.
type FeedEvent struct {
	Handle     LogHandle
	Descriptor *FeedDescriptor
}

// DescriptorRemoveEvent is emitted by FeedStore after DeleteDescriptor
// removes a descriptor's index record and unregisters it. The feed's
// log handle, if open, is not affected.
type DescriptorRemoveEvent struct {
	Descriptor *FeedDescriptor
}

// SyncedEvent is emitted by a Bulk reader once every feed in its
// attach-time cohort has caught up to the sequence number recorded at
// attach. Keyed by hex(key).
type SyncedEvent struct {
	Watermarks map[string]uint64
}
