package feedstore

import "context"

// prefixedStorage roots every Open call under a fixed prefix, so a
// single backend (memory/file/S3 bucket) can host many feeds without
// collisions: each feed directs its
// block files to "<hex(key)>/<name>".
type prefixedStorage struct {
	inner  Storage
	prefix string
}

func newPrefixedStorage(inner Storage, prefix string) Storage {
	return &prefixedStorage{inner: inner, prefix: prefix}
}

func (p *prefixedStorage) Open(ctx context.Context, name string) (RandomAccess, error) {
	return p.inner.Open(ctx, p.prefix+name)
}
