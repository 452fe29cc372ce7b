package feedstore

// ErrorKind categorizes a FeedStoreError so callers can branch on
// failure class without string matching.
type ErrorKind int

const (
	// ErrMissingPath indicates a caller supplied an empty feed path.
	ErrMissingPath ErrorKind = iota

	// ErrBadKey indicates a malformed or wrong-length public key.
	ErrBadKey

	// ErrBadSecretKey indicates a malformed or wrong-length secret key.
	ErrBadSecretKey

	// ErrBadEncoding indicates a value-encoding name has no registered codec.
	ErrBadEncoding

	// ErrKeyMismatch indicates openFeed was called with a path that
	// already exists under a different public key.
	ErrKeyMismatch

	// ErrDuplicateKey indicates openFeed was called with a key already
	// bound to a different path.
	ErrDuplicateKey

	// ErrNotFound indicates the requested path has no descriptor.
	ErrNotFound

	// ErrClosed indicates an operation was attempted on a store or
	// descriptor that is not in a serviceable state.
	ErrClosed

	// ErrTimeout indicates a descriptor open/close did not complete
	// within the configured duration.
	ErrTimeout

	// ErrEngine wraps a fault surfaced by the log engine, storage
	// backend, or trie.
	ErrEngine

	// ErrReaderFailed indicates a reader destroyed itself because its
	// predicate panicked/errored or an attach callback failed.
	ErrReaderFailed
)

// String returns a short, stable name for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrMissingPath:
		return "MissingPath"
	case ErrBadKey:
		return "BadKey"
	case ErrBadSecretKey:
		return "BadSecretKey"
	case ErrBadEncoding:
		return "BadEncoding"
	case ErrKeyMismatch:
		return "KeyMismatch"
	case ErrDuplicateKey:
		return "DuplicateKey"
	case ErrNotFound:
		return "NotFound"
	case ErrClosed:
		return "Closed"
	case ErrTimeout:
		return "Timeout"
	case ErrEngine:
		return "EngineError"
	case ErrReaderFailed:
		return "ReaderFailed"
	default:
		return "Unknown"
	}
}

// FeedStoreError is the error type returned by every exported
// operation in this package. Protocol-agnostic callers can switch on
// Kind; humans get Message (and Path, when relevant).
type FeedStoreError struct {
	Kind    ErrorKind
	Message string
	Path    string
	Err     error // wrapped cause, set for ErrEngine
}

// Error implements the error interface.
func (e *FeedStoreError) Error() string {
	msg := e.Kind.String() + ": " + e.Message
	if e.Path != "" {
		msg += " (path=" + e.Path + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the wrapped cause, if any, so errors.Is/As work
// against the underlying engine/storage/trie error.
func (e *FeedStoreError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a FeedStoreError with the same Kind,
// allowing callers to write errors.Is(err, feedstore.ErrNotFound) style
// checks via the sentinel helpers below.
func (e *FeedStoreError) Is(target error) bool {
	other, ok := target.(*FeedStoreError)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

func newMissingPathError() *FeedStoreError {
	return &FeedStoreError{Kind: ErrMissingPath, Message: "path must not be empty"}
}

func newBadKeyError(reason string) *FeedStoreError {
	return &FeedStoreError{Kind: ErrBadKey, Message: reason}
}

func newBadSecretKeyError(reason string) *FeedStoreError {
	return &FeedStoreError{Kind: ErrBadSecretKey, Message: reason}
}

func newBadEncodingError(name string) *FeedStoreError {
	return &FeedStoreError{Kind: ErrBadEncoding, Message: "no codec registered", Path: name}
}

func newKeyMismatchError(path string) *FeedStoreError {
	return &FeedStoreError{Kind: ErrKeyMismatch, Message: "path already open under a different key", Path: path}
}

func newDuplicateKeyError(path string) *FeedStoreError {
	return &FeedStoreError{Kind: ErrDuplicateKey, Message: "key already bound to another path", Path: path}
}

func newNotFoundError(path string) *FeedStoreError {
	return &FeedStoreError{Kind: ErrNotFound, Message: "no descriptor for path", Path: path}
}

func newClosedError(what string) *FeedStoreError {
	return &FeedStoreError{Kind: ErrClosed, Message: what + " is not serviceable"}
}

func newTimeoutError(op string) *FeedStoreError {
	return &FeedStoreError{Kind: ErrTimeout, Message: op + " timed out"}
}

func newEngineError(op string, cause error) *FeedStoreError {
	return &FeedStoreError{Kind: ErrEngine, Message: op + " failed", Err: cause}
}

func newReaderFailedError(cause error) *FeedStoreError {
	return &FeedStoreError{Kind: ErrReaderFailed, Message: "reader destroyed", Err: cause}
}
