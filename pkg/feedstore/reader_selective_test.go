package feedstore

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSelectiveReaderHoldsHeadUntilGateOpens exercises the
// core guarantee directly: a message the predicate currently rejects
// stays at the head of its feed's buffer — the per-feed ordering
// invariant (within one feed, messages are delivered in strictly
// increasing sequence) forbids skipping ahead to a later message —
// and is re-evaluated once the predicate's external state changes, at
// which point it and everything behind it are delivered in order.
func TestSelectiveReaderHoldsHeadUntilGateOpens(t *testing.T) {
	a := openedTestDescriptor(t, "/sel-gate", 0)
	feed := a.Feed()
	for _, v := range []byte{1, 2, 3, 4} {
		_, err := feed.Append(context.Background(), []byte{v})
		require.NoError(t, err)
	}

	var gateOpen atomic.Bool
	predicate := func(ctx context.Context, d *FeedDescriptor, msg BatchMessage) (bool, error) {
		return gateOpen.Load(), nil
	}

	filter := func(d *FeedDescriptor) (bool, uint64, bool) { return true, 0, false }

	r := NewSelectiveReader(context.Background(), filter, predicate)
	require.NoError(t, r.attach(context.Background(), a, true))

	shortCtx, shortCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	_, err, _ := r.Recv(shortCtx)
	shortCancel()
	assert.ErrorIs(t, err, context.DeadlineExceeded, "nothing should be admitted while the gate is closed")

	gateOpen.Store(true)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var got []byte
	for len(got) < 4 {
		msg, err, ok := r.Recv(ctx)
		require.True(t, ok)
		require.NoError(t, err)
		got = append(got, msg.Data[0])
	}
	assert.Equal(t, []byte{1, 2, 3, 4}, got)

	r.Destroy(nil)
}

func TestSelectiveReaderPredicateIsNeverReenteredConcurrently(t *testing.T) {
	a := openedTestDescriptor(t, "/sel-serial", 0)
	feed := a.Feed()
	for i := 0; i < 20; i++ {
		_, err := feed.Append(context.Background(), []byte{byte(i)})
		require.NoError(t, err)
	}

	var active, maxActive int
	predicate := func(ctx context.Context, d *FeedDescriptor, msg BatchMessage) (bool, error) {
		active++
		if active > maxActive {
			maxActive = active
		}
		active--
		return true, nil
	}

	filter := func(d *FeedDescriptor) (bool, uint64, bool) { return true, 0, false }
	r := NewSelectiveReader(context.Background(), filter, predicate)
	require.NoError(t, r.attach(context.Background(), a, true))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < 20; i++ {
		_, _, ok := r.Recv(ctx)
		require.True(t, ok)
	}

	assert.Equal(t, 1, maxActive)
	r.Destroy(nil)
}

// TestSelectiveReaderStarvationAvoidance verifies starvation avoidance:
// two ten-message feeds; feed2 always admits, feed1 admits only once
// ten feed2 messages have been admitted. The first ten delivered
// messages must all be feed2's, then all ten of feed1's, twenty
// total, no duplicates, no drops.
func TestSelectiveReaderStarvationAvoidance(t *testing.T) {
	f1 := openedTestDescriptor(t, "/starve-feed1", 0)
	f2 := openedTestDescriptor(t, "/starve-feed2", 0)
	for i := 0; i < 10; i++ {
		_, err := f1.Feed().Append(context.Background(), []byte{byte(i)})
		require.NoError(t, err)
		_, err = f2.Feed().Append(context.Background(), []byte{byte(i)})
		require.NoError(t, err)
	}

	var feed2Admitted atomic.Int32
	predicate := func(ctx context.Context, d *FeedDescriptor, msg BatchMessage) (bool, error) {
		if d.Path == "/starve-feed2" {
			return true, nil
		}
		return feed2Admitted.Load() >= 10, nil
	}

	filter := func(d *FeedDescriptor) (bool, uint64, bool) { return true, 0, false }
	r := NewSelectiveReader(context.Background(), filter, predicate)
	require.NoError(t, r.attach(context.Background(), f1, true))
	require.NoError(t, r.attach(context.Background(), f2, true))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var paths []string
	seen := map[string]map[uint64]bool{"/starve-feed1": {}, "/starve-feed2": {}}
	for i := 0; i < 20; i++ {
		msg, err, ok := r.Recv(ctx)
		require.True(t, ok)
		require.NoError(t, err)
		require.False(t, seen[msg.Path][msg.Seq], "duplicate delivery of %s#%d", msg.Path, msg.Seq)
		seen[msg.Path][msg.Seq] = true
		paths = append(paths, msg.Path)
		if msg.Path == "/starve-feed2" {
			feed2Admitted.Add(1)
		}
	}

	for i := 0; i < 10; i++ {
		assert.Equal(t, "/starve-feed2", paths[i])
	}
	for i := 10; i < 20; i++ {
		assert.Equal(t, "/starve-feed1", paths[i])
	}

	r.Destroy(nil)
}
