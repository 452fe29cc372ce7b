package memory

import "errors"

var (
	errClosed     = errors.New("feedstore/storage/memory: storage is closed")
	errOutOfRange = errors.New("feedstore/storage/memory: read offset out of range")
)
