package feedstore

import "context"

// reader is the internal contract FeedStore uses to fan feed events
// out to whichever of the three read strategies a caller instantiated
// via CreateReadStream.
type reader interface {
	// attach is invoked once per matching feed: synchronously, for
	// every already-open descriptor at stream-creation time (cohort
	// is true), and again for every subsequent first-open (cohort is
	// false). An attach error destroys only this reader.
	attach(ctx context.Context, d *FeedDescriptor, cohort bool) error

	// cohortComplete signals that the initial synchronous attach pass
	// has finished; readers that track an attach-time cohort (Bulk's
	// sync watermark) use this to know the pending set is final.
	cohortComplete()

	// Destroy ends the reader's output and detaches it from the
	// store. err, if non-nil, is surfaced to the consumer.
	Destroy(err error)

	// done is closed once the reader has fully shut down.
	done() <-chan struct{}
}
