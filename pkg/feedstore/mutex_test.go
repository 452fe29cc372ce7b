package feedstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsyncMutexSerializesAcquires(t *testing.T) {
	m := NewAsyncMutex()

	release1, err := m.Acquire(context.Background())
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		release2, err := m.Acquire(context.Background())
		require.NoError(t, err)
		close(acquired)
		release2()
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire returned before first was released")
	case <-time.After(20 * time.Millisecond):
	}

	release1()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Acquire never returned after release")
	}
}

func TestAsyncMutexTryAcquire(t *testing.T) {
	m := NewAsyncMutex()

	release, ok := m.TryAcquire()
	require.True(t, ok)

	_, ok = m.TryAcquire()
	assert.False(t, ok)

	release()

	release2, ok := m.TryAcquire()
	require.True(t, ok)
	release2()
}

func TestAsyncMutexAcquireRespectsContext(t *testing.T) {
	m := NewAsyncMutex()
	_, err := m.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = m.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAsyncMutexDoubleReleasePanics(t *testing.T) {
	m := NewAsyncMutex()
	release, err := m.Acquire(context.Background())
	require.NoError(t, err)

	release()
	assert.Panics(t, func() { release() })
}
