package feedstore

import "context"

// ReleaseFunc releases an AsyncMutex previously acquired with Acquire.
// It is single-use: invoking it a second time is a programming error
// and panics.
type ReleaseFunc func()

// AsyncMutex is a mutex whose Acquire suspends the caller until the
// mutex is free and returns an explicit release handle, rather than a
// scoped block. This shape exists because the holder and the releaser
// are frequently different logical steps of the same goroutine
// separated by a callback (e.g. a descriptor opens, fires watchers,
// and only then releases). Waiters are served FIFO.
//
// Implemented as a one-slot buffered channel holding a single token:
// Acquire receives the token and release sends it back, which hands
// it to one waiting Acquire.
type AsyncMutex struct {
	ch chan struct{}
}

// NewAsyncMutex returns an unlocked mutex.
func NewAsyncMutex() *AsyncMutex {
	m := &AsyncMutex{ch: make(chan struct{}, 1)}
	m.ch <- struct{}{}
	return m
}

// Acquire blocks until the mutex is free or ctx is cancelled. On
// success it returns a ReleaseFunc that must be called exactly once.
func (m *AsyncMutex) Acquire(ctx context.Context) (ReleaseFunc, error) {
	select {
	case <-m.ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var released bool
	return func() {
		if released {
			panic("feedstore: AsyncMutex released twice")
		}
		released = true
		m.ch <- struct{}{}
	}, nil
}

// TryAcquire attempts to acquire the mutex without blocking. ok is
// false if the mutex is currently held.
func (m *AsyncMutex) TryAcquire() (release ReleaseFunc, ok bool) {
	select {
	case <-m.ch:
	default:
		return nil, false
	}

	var released bool
	return func() {
		if released {
			panic("feedstore: AsyncMutex released twice")
		}
		released = true
		m.ch <- struct{}{}
	}, true
}
