package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// RecvStatus is the outcome of Channel.Receive.
type RecvStatus int

const (
	// RecvItem means an event was dequeued.
	RecvItem RecvStatus = iota
	// RecvTimeout means nothing arrived within the timeout.
	RecvTimeout
	// RecvClosed means the channel is closed and drained.
	RecvClosed
)

// Channel is an unbounded, ordered event queue for one job. Pushes never
// block. Close marks the end of the stream; a closed channel still yields
// its queued items before reporting RecvClosed.
type Channel struct {
	mu       sync.Mutex
	items    []model.Event
	closed   bool
	attached bool
	notify   chan struct{}
}

// NewChannel returns an empty open channel.
func NewChannel() *Channel {
	return &Channel{notify: make(chan struct{}, 1)}
}

// Push appends ev. It reports false if the channel is already closed.
func (c *Channel) Push(ev model.Event) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.items = append(c.items, ev)
	c.mu.Unlock()
	c.wake()
	return true
}

// Close pushes the closure sentinel. Closing twice is a no-op.
func (c *Channel) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.wake()
}

// Closed reports whether Close has been called.
func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Len returns the number of queued events.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Attach claims the single reader slot. Progress events queued before the
// reader attached are dropped; terminal events stay queued.
func (c *Channel) Attach() error {
	return c.attach(false)
}

// AttachReplay claims the reader slot keeping every queued event. It is
// for the caller that started the job and wants its stream from the first
// event.
func (c *Channel) AttachReplay() error {
	return c.attach(true)
}

func (c *Channel) attach(replay bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attached {
		return ErrSubscribed
	}
	c.attached = true
	if replay {
		return nil
	}

	kept := c.items[:0]
	for _, ev := range c.items {
		if ev.Terminal() {
			kept = append(kept, ev)
		}
	}
	clear(c.items[len(kept):])
	c.items = kept
	return nil
}

// Release frees the reader slot.
func (c *Channel) Release() {
	c.mu.Lock()
	c.attached = false
	c.mu.Unlock()
}

// Receive waits up to timeout for the next event. A zero timeout waits
// until an event arrives, the channel closes, or ctx ends.
func (c *Channel) Receive(ctx context.Context, timeout time.Duration) (model.Event, RecvStatus, error) {
	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	for {
		c.mu.Lock()
		if len(c.items) > 0 {
			ev := c.items[0]
			c.items[0] = model.Event{}
			c.items = c.items[1:]
			c.mu.Unlock()
			return ev, RecvItem, nil
		}
		if c.closed {
			c.mu.Unlock()
			return model.Event{}, RecvClosed, nil
		}
		c.mu.Unlock()

		select {
		case <-c.notify:
		case <-timer:
			return model.Event{}, RecvTimeout, nil
		case <-ctx.Done():
			return model.Event{}, RecvClosed, ctx.Err()
		}
	}
}

func (c *Channel) wake() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}
