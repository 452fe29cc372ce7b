package feedstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexDBPutGetDelete(t *testing.T) {
	ctx := context.Background()
	idx := NewIndexDB(newFakeTrie())

	rec := DescriptorRecord{
		Path:          "/a/feed",
		Key:           []byte("0123456789abcdef0123456789abcdef"),
		ValueEncoding: "binary",
		Metadata:      map[string]any{"owner": "alice"},
	}

	require.NoError(t, idx.Put(ctx, rec))

	got, ok, err := idx.Get(ctx, rec.Key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec.Path, got.Path)
	assert.Equal(t, rec.Key, got.Key)
	assert.Equal(t, "binary", got.ValueEncoding)

	require.NoError(t, idx.Delete(ctx, rec.Key))
	_, ok, err = idx.Get(ctx, rec.Key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIndexDBListReturnsUnderNamespace(t *testing.T) {
	ctx := context.Background()
	trie := newFakeTrie()
	idx := NewIndexDB(trie)

	require.NoError(t, idx.Put(ctx, DescriptorRecord{Path: "/one", Key: []byte("key-one"), ValueEncoding: "binary"}))
	require.NoError(t, idx.Put(ctx, DescriptorRecord{Path: "/two", Key: []byte("key-two"), ValueEncoding: "binary"}))
	require.NoError(t, trie.Put(ctx, "unrelated-namespace/thing", []byte("ignored")))

	records, err := idx.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestIndexDBPutElidesUnchangedWrite(t *testing.T) {
	ctx := context.Background()
	trie := newFakeTrie()
	idx := NewIndexDB(trie)

	rec := DescriptorRecord{Path: "/a", Key: []byte("key-a"), ValueEncoding: "binary"}
	require.NoError(t, idx.Put(ctx, rec))

	before, _, err := trie.Get(ctx, indexKey(rec.Key))
	require.NoError(t, err)

	require.NoError(t, idx.Put(ctx, rec))

	after, _, err := trie.Get(ctx, indexKey(rec.Key))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
