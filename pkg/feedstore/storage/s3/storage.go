// Package s3 implements a Storage backed by Amazon S3 (or an
// S3-compatible service).
//
// S3 objects have no true random-access write API, so each container
// is staged entirely in memory on first access (one GetObject) and
// written back whole with a PutObject after every WriteAt or Truncate;
// Close does not flush. This whole-object
// read/modify/write trade-off is acceptable here since feed logs are
// append-mostly and small relative to S3 object limits.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/marmos91/feedstore/pkg/feedstore"
)

// Config configures an S3-backed Storage.
type Config struct {
	Client *s3.Client
	Bucket string
	// KeyPrefix namespaces every object key, e.g. "feedstore/".
	KeyPrefix string
}

// Storage is a feedstore.Storage backed by one S3 bucket. Every named
// container maps to one object at KeyPrefix+name.
type Storage struct {
	client    *s3.Client
	bucket    string
	keyPrefix string

	mu      sync.Mutex
	objects map[string]*object
}

// New returns a Storage over cfg.
func New(cfg Config) *Storage {
	return &Storage{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
		objects:   make(map[string]*object),
	}
}

// Open returns the container for name, backed by the S3 object
// KeyPrefix+name. The same *object is returned for repeated Opens of
// the same name so concurrent writers share one staged buffer.
func (s *Storage) Open(ctx context.Context, name string) (feedstore.RandomAccess, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o, ok := s.objects[name]; ok {
		return o, nil
	}

	o := &object{
		client: s.client,
		bucket: s.bucket,
		key:    s.keyPrefix + name,
	}
	s.objects[name] = o
	return o, nil
}

// object stages one S3 object's bytes in memory.
type object struct {
	client *s3.Client
	bucket string
	key    string

	mu     sync.Mutex
	loaded bool
	dirty  bool
	data   []byte
}

func (o *object) load(ctx context.Context) error {
	if o.loaded {
		return nil
	}

	out, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			o.data = nil
			o.loaded = true
			return nil
		}
		return fmt.Errorf("feedstore/storage/s3: get %s: %w", o.key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return fmt.Errorf("feedstore/storage/s3: read %s: %w", o.key, err)
	}
	o.data = data
	o.loaded = true
	return nil
}

func (o *object) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.load(ctx); err != nil {
		return 0, err
	}
	if off < 0 || off >= int64(len(o.data)) {
		return 0, fmt.Errorf("feedstore/storage/s3: read offset %d out of range for %s", off, o.key)
	}
	return copy(p, o.data[off:]), nil
}

func (o *object) WriteAt(ctx context.Context, p []byte, off int64) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.load(ctx); err != nil {
		return 0, err
	}

	end := off + int64(len(p))
	if end > int64(len(o.data)) {
		grown := make([]byte, end)
		copy(grown, o.data)
		o.data = grown
	}
	n := copy(o.data[off:end], p)
	o.dirty = true
	return n, o.flushLocked(ctx)
}

func (o *object) Truncate(ctx context.Context, size int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.load(ctx); err != nil {
		return err
	}

	switch {
	case size <= int64(len(o.data)):
		o.data = o.data[:size]
	default:
		grown := make([]byte, size)
		copy(grown, o.data)
		o.data = grown
	}
	o.dirty = true
	return o.flushLocked(ctx)
}

// flushLocked writes the staged buffer back to S3. Called with o.mu
// held, after every mutation rather than only on Close, since
// RandomAccess has no explicit Sync/Flush call in its contract.
func (o *object) flushLocked(ctx context.Context) error {
	if !o.dirty {
		return nil
	}
	_, err := o.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.key),
		Body:   bytes.NewReader(o.data),
	})
	if err != nil {
		return fmt.Errorf("feedstore/storage/s3: put %s: %w", o.key, err)
	}
	o.dirty = false
	return nil
}

func (o *object) Close() error { return nil }
