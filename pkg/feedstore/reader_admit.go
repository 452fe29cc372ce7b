package feedstore

import (
	"context"
	"sync"
)

// admissionPredicate is the asynchronous classifier both the
// Selective and Ordered readers admit messages through
// §4.7: "Same predicate as the Selective reader"). It is called at
// most once at a time per feed: pump serializes calls for its own
// feed, so a predicate is never reentered concurrently with itself
// for the same feed.
type admissionPredicate func(ctx context.Context, d *FeedDescriptor, msg BatchMessage) (bool, error)

// admissionBuffer holds the messages one feed's batch stream has
// pulled but the admission pass has not yet consumed, preserving
// per-feed sequence order. A rejected message stays at index 0 until a
// later pass re-evaluates it.
type admissionBuffer struct {
	mu   sync.Mutex
	d    *FeedDescriptor
	bs   *BatchStream
	msgs []BatchMessage
	done bool
	err  error
}

func (b *admissionBuffer) peek() (BatchMessage, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.msgs) == 0 {
		return BatchMessage{}, false
	}
	return b.msgs[0], true
}

func (b *admissionBuffer) popHead() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.msgs) > 0 {
		b.msgs = b.msgs[1:]
	}
}

func (b *admissionBuffer) fill(batch []BatchMessage) {
	b.mu.Lock()
	b.msgs = append(b.msgs, batch...)
	b.mu.Unlock()
}

func (b *admissionBuffer) fail(err error) {
	b.mu.Lock()
	b.err = err
	b.done = true
	b.mu.Unlock()
}

func (b *admissionBuffer) finish() {
	b.mu.Lock()
	b.done = true
	b.mu.Unlock()
}

// admissionCore implements the pull/admit/buffer/wake loop shared by
// the Selective and Ordered readers: a single active pass over every
// attached feed in a fixed order, per-feed buffers fed by independent
// prefetch goroutines, a rejected head that halts that feed for the
// rest of the pass, and suspension on a wake completion after a pass
// admits nothing. The wake completion generalizes a simple
// closed-channel broadcast from "wake one waiter on one event" to
// "wake the single pass loop on any of N feeds becoming readable".
type admissionCore struct {
	ctx       context.Context
	cancel    context.CancelFunc
	predicate admissionPredicate
	emit      func(d *FeedDescriptor, msg BatchMessage)
	failOut   func(err error)

	wake chan struct{}

	mu      sync.Mutex
	order   []string
	buffers map[string]*admissionBuffer
	started bool
	wg      sync.WaitGroup
}

func newAdmissionCore(ctx context.Context, predicate admissionPredicate, emit func(*FeedDescriptor, BatchMessage), failOut func(error)) *admissionCore {
	rctx, cancel := context.WithCancel(ctx)
	return &admissionCore{
		ctx:       rctx,
		cancel:    cancel,
		predicate: predicate,
		emit:      emit,
		failOut:   failOut,
		wake:      make(chan struct{}, 1),
		buffers:   make(map[string]*admissionBuffer),
	}
}

func (c *admissionCore) poke() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// attach registers d's batch stream and starts its prefetch pump, in
// attachment order. Returns false if key was already attached.
func (c *admissionCore) attach(d *FeedDescriptor, bs *BatchStream) bool {
	key := hexKey(d.Key)

	c.mu.Lock()
	if _, exists := c.buffers[key]; exists {
		c.mu.Unlock()
		return false
	}
	buf := &admissionBuffer{d: d, bs: bs}
	c.buffers[key] = buf
	c.order = append(c.order, key)
	c.mu.Unlock()

	c.wg.Add(1)
	go c.prefetch(buf)

	c.mu.Lock()
	started := c.started
	c.started = true
	c.mu.Unlock()
	if !started {
		c.wg.Add(1)
		go c.runPasses()
	} else {
		c.poke()
	}
	return true
}

// prefetch continuously pulls batches from bs into buf, independent of
// the admission pass, so a slow-to-admit feed never blocks another
// feed's data from arriving.
func (c *admissionCore) prefetch(buf *admissionBuffer) {
	defer c.wg.Done()
	defer buf.bs.Close()

	for {
		batch, done, err := buf.bs.Next(c.ctx)
		if err != nil {
			buf.fail(err)
			c.failOut(err)
			c.poke()
			return
		}
		if done {
			buf.finish()
			c.poke()
			return
		}
		if len(batch) > 0 {
			buf.fill(batch)
			c.poke()
		}
	}
}

// runPasses is the single active-pass loop: one goroutine, started on
// first attach, runs for the reader's lifetime.
func (c *admissionCore) runPasses() {
	defer c.wg.Done()

	for {
		admittedAny, sawErr := c.onePass()
		if sawErr {
			return
		}
		if admittedAny {
			continue
		}
		select {
		case <-c.wake:
			continue
		case <-c.ctx.Done():
			return
		}
	}
}

// onePass visits every attached feed in attachment order, admitting
// messages from the head of each buffer until the predicate rejects
// one (at which point that feed halts for the rest of this pass)
// or its buffer is exhausted.
func (c *admissionCore) onePass() (admittedAny bool, sawErr bool) {
	c.mu.Lock()
	order := append([]string(nil), c.order...)
	c.mu.Unlock()

	for _, key := range order {
		c.mu.Lock()
		buf := c.buffers[key]
		c.mu.Unlock()

		for {
			msg, ok := buf.peek()
			if !ok {
				break
			}
			admit, err := c.predicate(c.ctx, buf.d, msg)
			if err != nil {
				c.failOut(err)
				return admittedAny, true
			}
			if !admit {
				break
			}
			buf.popHead()
			c.emit(buf.d, msg)
			admittedAny = true
		}
	}
	return admittedAny, false
}

func (c *admissionCore) destroy() {
	c.cancel()
}

func (c *admissionCore) wait() {
	c.wg.Wait()
}
