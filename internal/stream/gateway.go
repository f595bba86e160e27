// Package stream relays a job's event channel to one subscriber as
// Server-Sent Events.
package stream

import (
	"context"
	"iter"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/jobs"
	"github.com/sells-group/leadgen-cli/internal/model"
)

// DefaultKeepalive is how long a subscriber waits for an event before a
// ping is sent.
const DefaultKeepalive = 30 * time.Second

// SSE event names.
const (
	EventProgress = "progress"
	EventDone     = "done"
	EventError    = "error"
	EventPing     = "ping"
)

// Message is one wire message. Data is JSON-encoded as the event payload.
type Message struct {
	Event string
	Data  any
}

// DonePayload is the data of a done message.
type DonePayload struct {
	JobID string `json:"job_id"`
}

// ErrorPayload is the data of an error message.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Terminal reports whether m ends the stream.
func (m Message) Terminal() bool {
	return m.Event == EventDone || m.Event == EventError
}

// Gateway hands out subscriptions to job channels.
type Gateway struct {
	registry  *jobs.Registry
	keepalive time.Duration
}

// NewGateway creates a gateway. A non-positive keepalive uses
// DefaultKeepalive.
func NewGateway(registry *jobs.Registry, keepalive time.Duration) *Gateway {
	if keepalive <= 0 {
		keepalive = DefaultKeepalive
	}
	return &Gateway{registry: registry, keepalive: keepalive}
}

// Subscribe attaches to the job's channel. It fails with jobs.ErrNotFound
// for an unknown job and jobs.ErrSubscribed while another subscription
// holds the channel. Events queued before the call are not replayed,
// except a terminal one.
func (g *Gateway) Subscribe(jobID string) (*Subscription, error) {
	return g.subscribe(jobID, false)
}

// SubscribeReplay is Subscribe without dropping queued progress: the
// subscription starts at the job's first event still in the channel.
func (g *Gateway) SubscribeReplay(jobID string) (*Subscription, error) {
	return g.subscribe(jobID, true)
}

func (g *Gateway) subscribe(jobID string, replay bool) (*Subscription, error) {
	ch, err := g.registry.Channel(jobID)
	if err != nil {
		return nil, err
	}
	attach := ch.Attach
	if replay {
		attach = ch.AttachReplay
	}
	if err := attach(); err != nil {
		return nil, eris.Wrapf(err, "stream: subscribe %s", jobID)
	}
	return &Subscription{ch: ch, keepalive: g.keepalive}, nil
}

// Subscription is a live, non-restartable view of one job's events.
type Subscription struct {
	ch        *jobs.Channel
	keepalive time.Duration
	ended     bool
	once      sync.Once
}

// Next returns the next wire message. ok is false once the stream has
// ended: after a terminal message, or when the channel is closed. A ping
// is returned when nothing arrives within the keepalive interval.
func (s *Subscription) Next(ctx context.Context) (msg Message, ok bool, err error) {
	if s.ended {
		return Message{}, false, nil
	}

	ev, st, err := s.ch.Receive(ctx, s.keepalive)
	if err != nil {
		return Message{}, false, err
	}

	switch st {
	case jobs.RecvTimeout:
		return Message{Event: EventPing, Data: struct{}{}}, true, nil
	case jobs.RecvClosed:
		s.ended = true
		return Message{}, false, nil
	}

	msg = toMessage(ev)
	if msg.Terminal() {
		s.ended = true
	}
	return msg, true, nil
}

// Messages returns the subscription as a sequence. It ends with the
// stream or when ctx is done.
func (s *Subscription) Messages(ctx context.Context) iter.Seq[Message] {
	return func(yield func(Message) bool) {
		for {
			msg, ok, err := s.Next(ctx)
			if err != nil || !ok {
				return
			}
			if !yield(msg) {
				return
			}
		}
	}
}

// Close releases the channel for a later subscriber.
func (s *Subscription) Close() {
	s.once.Do(s.ch.Release)
}

func toMessage(ev model.Event) Message {
	switch ev.Kind {
	case model.EventDone:
		return Message{Event: EventDone, Data: DonePayload{JobID: ev.JobID}}
	case model.EventError:
		return Message{Event: EventError, Data: ErrorPayload{Message: ev.Message}}
	default:
		var p model.ProgressEvent
		if ev.Progress != nil {
			p = *ev.Progress
		}
		return Message{Event: EventProgress, Data: p}
	}
}
