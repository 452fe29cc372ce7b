package feedstore

import (
	"context"
	"crypto/rand"
	"log/slog"
	"sync"
	"time"

	"github.com/marmos91/feedstore/pkg/feedstore/metrics"
)

// StoreState is the lifecycle state of a FeedStore.
type StoreState int

const (
	StoreClosed StoreState = iota
	StoreOpening
	StoreOpened
	StoreClosing
)

func (s StoreState) String() string {
	switch s {
	case StoreClosed:
		return "closed"
	case StoreOpening:
		return "opening"
	case StoreOpened:
		return "opened"
	case StoreClosing:
		return "closing"
	default:
		return "unknown"
	}
}

const defaultKeySize = 32

// Options configures a FeedStore. Storage, Engine, and Trie are the
// three injected external collaborators; Codecs and DiscoveryKeyFunc
// default to the package's built-ins when left nil.
type Options struct {
	Storage          Storage
	Engine           LogEngine
	Trie             Trie
	Codecs           *CodecRegistry
	DiscoveryKeyFunc DiscoveryKeyFunc
	OpenTimeout      time.Duration
	Logger           *slog.Logger
	// Metrics, when non-nil, receives reader lifecycle and open-feed
	// counts. Storage/Trie/Engine throughput metrics are wired by
	// instrumenting those collaborators directly (InstrumentStorage,
	// InstrumentTrie, InstrumentEngine) before they reach Options.
	Metrics metrics.Metrics
}

// OpenFeedOptions parameterizes FeedStore.OpenFeed.
type OpenFeedOptions struct {
	// Key is the feed's public key. Nil means "create a new feed":
	// FeedStore generates a random key.
	Key       []byte
	SecretKey []byte
	// ValueEncoding names a codec registered in Options.Codecs; the
	// empty string means "binary".
	ValueEncoding string
	Metadata      any
}

// FeedStore coordinates a set of FeedDescriptors rooted on one
// Storage/LogEngine pair and indexed by one Trie. Its
// own lifecycle is guarded by an AsyncMutex exactly like a descriptor's,
// so Open/Close calls racing each other resolve deterministically
// rather than corrupting the descriptor maps.
type FeedStore struct {
	storage          Storage
	engine           LogEngine
	codecs           *CodecRegistry
	discoveryKeyFunc DiscoveryKeyFunc
	openTimeout      time.Duration
	logger           *slog.Logger

	index *IndexDB

	metrics metrics.Metrics

	lock *AsyncMutex

	ctx    context.Context
	cancel context.CancelFunc

	mu             sync.Mutex
	state          StoreState
	byPath         map[string]*FeedDescriptor
	byHexKey       map[string]*FeedDescriptor
	byDiscoveryDK  map[string]*FeedDescriptor
	appendUnsubs   map[string]func()
	downloadUnsubs map[string]func()
	readers        map[reader]struct{}

	feedEvents             *broadcaster[FeedEvent]
	appendEvents           *broadcaster[AppendEvent]
	downloadEvents         *broadcaster[DownloadEvent]
	descriptorRemoveEvents *broadcaster[DescriptorRemoveEvent]
}

// New constructs a FeedStore in state closed. Call Open before use.
func New(opts Options) *FeedStore {
	codecs := opts.Codecs
	if codecs == nil {
		codecs = NewCodecRegistry()
	}
	dkFunc := opts.DiscoveryKeyFunc
	if dkFunc == nil {
		dkFunc = NewDefaultDiscoveryKeyFunc()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &FeedStore{
		storage:                opts.Storage,
		engine:                 opts.Engine,
		codecs:                 codecs,
		discoveryKeyFunc:       dkFunc,
		openTimeout:            opts.OpenTimeout,
		logger:                 logger,
		index:                  NewIndexDB(opts.Trie),
		metrics:                opts.Metrics,
		lock:                   NewAsyncMutex(),
		ctx:                    ctx,
		cancel:                 cancel,
		byPath:                 make(map[string]*FeedDescriptor),
		byHexKey:               make(map[string]*FeedDescriptor),
		byDiscoveryDK:          make(map[string]*FeedDescriptor),
		appendUnsubs:           make(map[string]func()),
		downloadUnsubs:         make(map[string]func()),
		readers:                make(map[reader]struct{}),
		feedEvents:             newBroadcaster[FeedEvent](),
		appendEvents:           newBroadcaster[AppendEvent](),
		downloadEvents:         newBroadcaster[DownloadEvent](),
		descriptorRemoveEvents: newBroadcaster[DescriptorRemoveEvent](),
	}
}

// Open transitions the store from closed to opened, waiting for the
// index to become ready and loading every previously persisted
// descriptor record. Idempotent.
func (s *FeedStore) Open(ctx context.Context) error {
	release, err := s.lock.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	s.mu.Lock()
	if s.state == StoreOpened {
		s.mu.Unlock()
		return nil
	}
	s.state = StoreOpening
	s.mu.Unlock()

	if err := s.index.Ready(ctx); err != nil {
		s.mu.Lock()
		s.state = StoreClosed
		s.mu.Unlock()
		return newEngineError("open index", err)
	}

	records, err := s.index.List(ctx)
	if err != nil {
		s.mu.Lock()
		s.state = StoreClosed
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	for _, rec := range records {
		s.registerDescriptorLocked(rec.Path, rec.Key, rec.SecretKey, rec.ValueEncoding, rec.Metadata)
	}
	s.state = StoreOpened
	s.mu.Unlock()

	s.logger.Info("feedstore opened", "feeds", len(records))
	s.reportOpenFeeds()
	return nil
}

// registerDescriptorLocked must be called with s.mu held.
func (s *FeedStore) registerDescriptorLocked(path string, key, secretKey []byte, valueEncoding string, metadata any) *FeedDescriptor {
	if valueEncoding == "" {
		valueEncoding = "binary"
	}
	dk := s.discoveryKeyFunc(key)
	d := newFeedDescriptor(path, key, secretKey, dk, valueEncoding, metadata, s.engine, s.storage, s.openTimeout)
	d.Watch(s.onWatcherEvent)

	s.byPath[path] = d
	s.byHexKey[hexKey(key)] = d
	s.byDiscoveryDK[hexKey(dk)] = d
	return d
}

// OpenFeed finds or creates the descriptor for path and opens its
// underlying feed: opening an already-open path returns the same
// handle rather than reopening it. A path opened for the first time
// with no Key generates a fresh random key; re-opening an existing
// path with a mismatched Key, or opening a Key already bound to a
// different path, fails with ErrKeyMismatch / ErrDuplicateKey.
func (s *FeedStore) OpenFeed(ctx context.Context, path string, opts OpenFeedOptions) (*FeedDescriptor, error) {
	if path == "" {
		return nil, newMissingPathError()
	}
	if err := s.requireOpened(); err != nil {
		return nil, err
	}
	if opts.ValueEncoding != "" {
		if _, ok := s.codecs.Resolve(opts.ValueEncoding); !ok {
			return nil, newBadEncodingError(opts.ValueEncoding)
		}
	}

	s.mu.Lock()
	d, existed := s.byPath[path]
	if existed {
		if len(opts.Key) > 0 && hexKey(opts.Key) != hexKey(d.Key) {
			s.mu.Unlock()
			return nil, newKeyMismatchError(path)
		}
	} else {
		key := opts.Key
		if len(key) == 0 {
			generated := make([]byte, defaultKeySize)
			if _, err := rand.Read(generated); err != nil {
				s.mu.Unlock()
				return nil, newEngineError("generate key", err)
			}
			key = generated
		} else if len(key) != defaultKeySize {
			s.mu.Unlock()
			return nil, newBadKeyError("key must be 32 bytes")
		}
		if other, ok := s.byHexKey[hexKey(key)]; ok && other.Path != path {
			s.mu.Unlock()
			return nil, newDuplicateKeyError(path)
		}
		d = s.registerDescriptorLocked(path, key, opts.SecretKey, opts.ValueEncoding, opts.Metadata)
	}
	s.mu.Unlock()

	if _, err := d.Open(ctx); err != nil {
		return nil, err
	}

	if err := s.index.Put(ctx, d.Record()); err != nil {
		return nil, err
	}

	s.reportOpenFeeds()
	return d, nil
}

// CloseFeed closes the feed at path, if open. Closing an
// already-closed or unknown path is a no-op.
func (s *FeedStore) CloseFeed(ctx context.Context, path string) error {
	s.mu.Lock()
	d, ok := s.byPath[path]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	err := d.Close(ctx)
	s.reportOpenFeeds()
	return err
}

// DeleteDescriptor removes path's record from the index and the
// store's maps permanently. It does not close the feed: any open
// LogHandle stays live until an explicit CloseFeed.
func (s *FeedStore) DeleteDescriptor(ctx context.Context, path string) error {
	s.mu.Lock()
	d, ok := s.byPath[path]
	s.mu.Unlock()
	if !ok {
		return newNotFoundError(path)
	}

	release, err := d.Lock(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := s.index.Delete(ctx, d.Key); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.byPath, path)
	delete(s.byHexKey, hexKey(d.Key))
	delete(s.byDiscoveryDK, hexKey(d.DiscoveryKey))
	s.mu.Unlock()

	s.descriptorRemoveEvents.Emit(DescriptorRemoveEvent{Descriptor: d})
	s.reportOpenFeeds()
	return nil
}

// GetOpenFeed returns the handle for path if a feed is currently open
// there.
func (s *FeedStore) GetOpenFeed(path string) (LogHandle, bool) {
	s.mu.Lock()
	d, ok := s.byPath[path]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	feed := d.Feed()
	return feed, feed != nil
}

// GetOpenFeeds returns every descriptor currently in state opened.
func (s *FeedStore) GetOpenFeeds() []*FeedDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*FeedDescriptor, 0, len(s.byPath))
	for _, d := range s.byPath {
		if d.State() == StateOpened {
			out = append(out, d)
		}
	}
	return out
}

// GetDescriptors returns every known descriptor, regardless of state.
func (s *FeedStore) GetDescriptors() []*FeedDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*FeedDescriptor, 0, len(s.byPath))
	for _, d := range s.byPath {
		out = append(out, d)
	}
	return out
}

// GetDescriptorByDiscoveryKey looks a descriptor up by its derived
// discovery key.
func (s *FeedStore) GetDescriptorByDiscoveryKey(discoveryKey []byte) (*FeedDescriptor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.byDiscoveryDK[hexKey(discoveryKey)]
	return d, ok
}

// OnFeed subscribes to FeedEvent, emitted once per feed's first
// successful open.
func (s *FeedStore) OnFeed(fn func(FeedEvent)) (unsubscribe func()) {
	return s.feedEvents.Subscribe(fn)
}

// OnAppend subscribes to AppendEvent, forwarded from every open feed's
// own append notifications.
func (s *FeedStore) OnAppend(fn func(AppendEvent)) (unsubscribe func()) {
	return s.appendEvents.Subscribe(fn)
}

// OnDownload subscribes to DownloadEvent, forwarded from every open
// feed's own download notifications.
func (s *FeedStore) OnDownload(fn func(DownloadEvent)) (unsubscribe func()) {
	return s.downloadEvents.Subscribe(fn)
}

// OnDescriptorRemove subscribes to DescriptorRemoveEvent, emitted
// after DeleteDescriptor removes a descriptor's index record.
func (s *FeedStore) OnDescriptorRemove(fn func(DescriptorRemoveEvent)) (unsubscribe func()) {
	return s.descriptorRemoveEvents.Subscribe(fn)
}

// CreateBulkReadStream starts a Bulk reader over every feed currently
// open, plus every feed opened afterward.
func (s *FeedStore) CreateBulkReadStream(ctx context.Context, filter BulkFilter) (*BulkReader, error) {
	r := NewBulkReader(s.ctx, filter)
	if err := s.registerReader(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// CreateSelectiveReadStream starts a Selective reader.
func (s *FeedStore) CreateSelectiveReadStream(ctx context.Context, filter SelectiveFilter, predicate SelectivePredicate) (*SelectiveReader, error) {
	r := NewSelectiveReader(s.ctx, filter, predicate)
	if err := s.registerReader(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// CreateOrderedReadStream starts an Ordered reader.
func (s *FeedStore) CreateOrderedReadStream(ctx context.Context, filter OrderedFilter, predicate OrderedPredicate) (*OrderedReader, error) {
	r := NewOrderedReader(s.ctx, filter, predicate)
	if err := s.registerReader(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// registerReader tracks r so future first-opens attach it live, then
// attaches it, synchronously, to every feed already open (the
// attach-time cohort) and marks the cohort complete.
func (s *FeedStore) registerReader(ctx context.Context, r reader) error {
	s.mu.Lock()
	cohort := make([]*FeedDescriptor, 0, len(s.byPath))
	for _, d := range s.byPath {
		if d.State() == StateOpened {
			cohort = append(cohort, d)
		}
	}
	s.readers[r] = struct{}{}
	s.mu.Unlock()

	for _, d := range cohort {
		if err := r.attach(ctx, d, true); err != nil {
			r.Destroy(err)
			s.untrackReader(r)
			return err
		}
	}
	r.cohortComplete()

	if s.metrics != nil {
		s.metrics.RecordReaderCreated(readerKindLabel(r))
	}

	go func() {
		<-r.done()
		s.untrackReader(r)
		if s.metrics != nil {
			s.metrics.RecordReaderDestroyed(readerKindLabel(r))
		}
	}()
	return nil
}

func (s *FeedStore) untrackReader(r reader) {
	s.mu.Lock()
	delete(s.readers, r)
	s.mu.Unlock()
}

// readerKindLabel names r for the RecordReaderCreated/Destroyed metric
// label, matching the reader-family names used throughout this package.
func readerKindLabel(r reader) string {
	switch r.(type) {
	case *BulkReader:
		return "bulk"
	case *SelectiveReader:
		return "selective"
	case *OrderedReader:
		return "ordered"
	default:
		return "unknown"
	}
}

// reportOpenFeeds reports the current open-feed count to Metrics, if
// configured. Must not be called with s.mu held.
func (s *FeedStore) reportOpenFeeds() {
	if s.metrics == nil {
		return
	}
	s.metrics.SetOpenFeeds(len(s.GetOpenFeeds()))
}

// onWatcherEvent is subscribed to every descriptor's Watch at
// registration time and fans events out to the store's own
// subscribers and live readers.
func (s *FeedStore) onWatcherEvent(ev WatcherEvent) {
	switch ev.Kind {
	case WatcherOpened:
		handle := ev.Descriptor.Feed()
		if handle == nil {
			return
		}
		key := hexKey(ev.Descriptor.Key)
		appendUnsub := handle.OnAppend(func() {
			s.appendEvents.Emit(AppendEvent{Handle: handle, Descriptor: ev.Descriptor})
		})
		downloadUnsub := handle.OnDownload(func(index uint64, data []byte) {
			s.downloadEvents.Emit(DownloadEvent{Index: index, Data: data, Handle: handle, Descriptor: ev.Descriptor})
		})
		s.mu.Lock()
		s.appendUnsubs[key] = appendUnsub
		s.downloadUnsubs[key] = downloadUnsub
		s.mu.Unlock()

		s.feedEvents.Emit(FeedEvent{Handle: handle, Descriptor: ev.Descriptor})

		s.mu.Lock()
		readers := make([]reader, 0, len(s.readers))
		for r := range s.readers {
			readers = append(readers, r)
		}
		s.mu.Unlock()
		for _, r := range readers {
			r := r
			go func() {
				if err := r.attach(s.ctx, ev.Descriptor, false); err != nil {
					r.Destroy(err)
				}
			}()
		}

	case WatcherClosed:
		key := hexKey(ev.Descriptor.Key)
		s.mu.Lock()
		if unsub, ok := s.appendUnsubs[key]; ok {
			unsub()
			delete(s.appendUnsubs, key)
		}
		if unsub, ok := s.downloadUnsubs[key]; ok {
			unsub()
			delete(s.downloadUnsubs, key)
		}
		s.mu.Unlock()

	case WatcherUpdated:
		if err := s.index.Put(s.ctx, ev.Descriptor.Record()); err != nil {
			s.logger.Error("persist descriptor metadata", "path", ev.Descriptor.Path, "error", err)
		}
	}
}

// Close transitions the store to closing, closes every open feed,
// destroys every live reader, and closes the index.
func (s *FeedStore) Close(ctx context.Context) error {
	release, err := s.lock.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	s.mu.Lock()
	if s.state == StoreClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = StoreClosing
	descriptors := make([]*FeedDescriptor, 0, len(s.byPath))
	for _, d := range s.byPath {
		descriptors = append(descriptors, d)
	}
	readers := make([]reader, 0, len(s.readers))
	for r := range s.readers {
		readers = append(readers, r)
	}
	s.mu.Unlock()

	for _, r := range readers {
		r.Destroy(newClosedError("feedstore"))
	}

	for _, d := range descriptors {
		if cerr := d.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}

	s.cancel()

	if cerr := s.index.Close(ctx); cerr != nil && err == nil {
		err = cerr
	}

	s.mu.Lock()
	s.state = StoreClosed
	s.mu.Unlock()
	return err
}

func (s *FeedStore) requireOpened() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StoreOpened {
		return newClosedError("feedstore")
	}
	return nil
}
