package feedstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDescriptor(path string) *FeedDescriptor {
	return newFeedDescriptor(
		path,
		[]byte("public-key-"+path),
		[]byte("secret-key-"+path),
		[]byte("discovery-key-"+path),
		"binary",
		nil,
		fakeEngine{},
		newFakeStorage(),
		time.Second,
	)
}

func TestFeedDescriptorOpenIsIdempotent(t *testing.T) {
	d := newTestDescriptor("/a")
	ctx := context.Background()

	handle1, err := d.Open(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateOpened, d.State())

	handle2, err := d.Open(ctx)
	require.NoError(t, err)
	assert.Same(t, handle1, handle2)
}

func TestFeedDescriptorCloseIsIdempotent(t *testing.T) {
	d := newTestDescriptor("/a")
	ctx := context.Background()

	_, err := d.Open(ctx)
	require.NoError(t, err)

	require.NoError(t, d.Close(ctx))
	assert.Equal(t, StateClosed, d.State())

	require.NoError(t, d.Close(ctx))
	assert.Equal(t, StateClosed, d.State())
}

func TestFeedDescriptorCloseWithoutOpenIsNoop(t *testing.T) {
	d := newTestDescriptor("/a")
	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, StateClosed, d.State())
}

func TestFeedDescriptorWatchersFireOnOpenAndClose(t *testing.T) {
	d := newTestDescriptor("/a")
	ctx := context.Background()

	var events []WatcherEventKind
	unsub := d.Watch(func(ev WatcherEvent) {
		events = append(events, ev.Kind)
	})
	defer unsub()

	_, err := d.Open(ctx)
	require.NoError(t, err)
	require.NoError(t, d.Close(ctx))

	require.Len(t, events, 2)
	assert.Equal(t, WatcherOpened, events[0])
	assert.Equal(t, WatcherClosed, events[1])
}

func TestFeedDescriptorSetMetadataFiresUpdated(t *testing.T) {
	d := newTestDescriptor("/a")

	var gotUpdate bool
	unsub := d.Watch(func(ev WatcherEvent) {
		if ev.Kind == WatcherUpdated {
			gotUpdate = true
		}
	})
	defer unsub()

	require.NoError(t, d.SetMetadata(context.Background(), map[string]any{"k": "v"}))
	assert.True(t, gotUpdate)
	assert.Equal(t, map[string]any{"k": "v"}, d.Metadata())
}

func TestFeedDescriptorRecordSnapshotsIdentity(t *testing.T) {
	d := newTestDescriptor("/a")
	rec := d.Record()
	assert.Equal(t, "/a", rec.Path)
	assert.Equal(t, []byte("public-key-/a"), rec.Key)
	assert.Equal(t, "binary", rec.ValueEncoding)
}
