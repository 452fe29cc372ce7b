package feedstore

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allowAllOrderedPredicate(ctx context.Context, d *FeedDescriptor, msg BatchMessage) (bool, error) {
	return true, nil
}

func TestOrderedReaderDrainsAttachmentOrder(t *testing.T) {
	a := openedTestDescriptor(t, "/ord-a", 3)
	b := openedTestDescriptor(t, "/ord-b", 2)

	filter := func(d *FeedDescriptor) (bool, uint64, bool) { return true, 0, false }

	r := NewOrderedReader(context.Background(), filter, allowAllOrderedPredicate)
	require.NoError(t, r.attach(context.Background(), a, true))
	require.NoError(t, r.attach(context.Background(), b, true))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var paths []string
	for i := 0; i < 5; i++ {
		msg, err, ok := r.Recv(ctx)
		require.True(t, ok)
		require.NoError(t, err)
		paths = append(paths, msg.Path)
	}

	assert.Equal(t, []string{"/ord-a", "/ord-a", "/ord-a", "/ord-b", "/ord-b"}, paths)
	r.Destroy(nil)
}

func TestOrderedReaderSkipsNonParticipatingFeed(t *testing.T) {
	a := openedTestDescriptor(t, "/ord-skip-a", 1)
	b := openedTestDescriptor(t, "/ord-skip-b", 1)

	filter := func(d *FeedDescriptor) (bool, uint64, bool) {
		return d.Path != "/ord-skip-a", 0, false
	}

	r := NewOrderedReader(context.Background(), filter, allowAllOrderedPredicate)
	require.NoError(t, r.attach(context.Background(), a, true))
	require.NoError(t, r.attach(context.Background(), b, true))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	msg, err, ok := r.Recv(ctx)
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, "/ord-skip-b", msg.Path)

	r.Destroy(nil)
}

// TestOrderedReaderNeverSkipsRejectedHead verifies the ordered reader's core
// guarantee: the reader must not advance feed A past a head message
// the predicate rejects, even while feed B keeps admitting, until the
// predicate's own state (here, a count of admitted B messages) makes
// A's head admissible.
func TestOrderedReaderNeverSkipsRejectedHead(t *testing.T) {
	a := openedTestDescriptor(t, "/ord-wait", 3)
	b := openedTestDescriptor(t, "/ord-gate", 3)

	var bAdmitted atomic.Int32
	predicate := func(ctx context.Context, d *FeedDescriptor, msg BatchMessage) (bool, error) {
		if d.Path == "/ord-gate" {
			return true, nil
		}
		return bAdmitted.Load() >= 3, nil
	}

	filter := func(d *FeedDescriptor) (bool, uint64, bool) { return true, 0, false }

	r := NewOrderedReader(context.Background(), filter, predicate)
	require.NoError(t, r.attach(context.Background(), a, true))
	require.NoError(t, r.attach(context.Background(), b, true))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var paths []string
	for i := 0; i < 3; i++ {
		msg, err, ok := r.Recv(ctx)
		require.True(t, ok)
		require.NoError(t, err)
		paths = append(paths, msg.Path)
		bAdmitted.Add(1)
	}
	assert.Equal(t, []string{"/ord-gate", "/ord-gate", "/ord-gate"}, paths)

	for i := 0; i < 3; i++ {
		msg, err, ok := r.Recv(ctx)
		require.True(t, ok)
		require.NoError(t, err)
		assert.Equal(t, "/ord-wait", msg.Path)
	}

	r.Destroy(nil)
}
