package event

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dshills/agentcore/internal/event/dispatch"
	"github.com/dshills/agentcore/internal/event/topic"
)

// Bus is a synchronous publish/subscribe hub.
type Bus interface {
	// Publish runs every matching handler before returning. It fails only
	// for an event without a topic.
	Publish(ctx context.Context, event any) error

	Subscribe(pattern topic.Topic, handler Handler, opts ...SubscriptionOption) (Subscription, error)
	SubscribeFunc(pattern topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (Subscription, error)
	Unsubscribe(sub Subscription) error

	// Pause discards published events until Resume.
	Pause()
	Resume()
	IsPaused() bool

	Stats() Stats
}

type bus struct {
	subs   *table
	report ErrorReporter

	seq    atomic.Uint64
	paused atomic.Bool

	published atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
	panicked  atomic.Uint64
}

// NewBus returns an empty bus.
func NewBus(opts ...BusOption) Bus {
	b := &bus{
		subs:   newTable(),
		report: func(any, error) {},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Pause drops published events until Resume.
func (b *bus) Pause()         { b.paused.Store(true) }
// Resume restarts delivery after a Pause.
func (b *bus) Resume()        { b.paused.Store(false) }
// IsPaused returns true if the bus is paused.
func (b *bus) IsPaused() bool { return b.paused.Load() }

// Publish delivers event to every matching subscription in the caller's
// goroutine.
func (b *bus) Publish(ctx context.Context, event any) error {
	tp, ok := event.(TopicProvider)
	if !ok || tp.EventTopic() == "" {
		return ErrInvalidEvent
	}
	if b.paused.Load() {
		return nil
	}
	b.published.Add(1)

	for _, s := range b.subs.snapshot(tp.EventTopic()) {
		if !s.wants(event) {
			continue
		}
		out := dispatch.Invoke(ctx, event, s.handler)
		switch out.Status {
		case dispatch.Delivered:
			b.delivered.Add(1)
			if s.opts.once {
				s.Unsubscribe()
			}
		case dispatch.Failed:
			b.failed.Add(1)
			b.fail(event, &DeliveryError{Subscription: s.id, Pattern: string(s.pattern), Err: out.Err})
		case dispatch.Panicked:
			b.panicked.Add(1)
			b.fail(event, &DeliveryError{
				Subscription: s.id,
				Pattern:      string(s.pattern),
				Recovered:    out.Recovered,
				Stack:        out.Stack,
			})
		case dispatch.Skipped:
			// The context is done; every remaining handler would be skipped too.
			return nil
		}
	}
	return nil
}

func (b *bus) fail(event any, err error) {
	defer func() { _ = recover() }()
	b.report(event, err)
}

// Subscribe registers handler for a topic pattern.
// This method is safe to call concurrently.
func (b *bus) Subscribe(pattern topic.Topic, handler Handler, opts ...SubscriptionOption) (Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if !pattern.IsValid() {
		return nil, ErrInvalidTopic
	}

	s := &subscriber{
		id:      uuid.NewString(),
		seq:     b.seq.Add(1),
		pattern: pattern,
		handler: handler,
		detach:  b.subs.remove,
	}
	for _, opt := range opts {
		opt(&s.opts)
	}
	b.subs.insert(s)
	return s, nil
}

// SubscribeFunc is Subscribe for a plain function.
func (b *bus) SubscribeFunc(pattern topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return b.Subscribe(pattern, fn, opts...)
}

// Unsubscribe cancels sub. It fails for a nil or already-cancelled
// subscription.
func (b *bus) Unsubscribe(sub Subscription) error {
	s, ok := sub.(*subscriber)
	if !ok || s == nil || s.closed.Load() {
		return ErrNotSubscribed
	}
	s.Unsubscribe()
	return nil
}

// Stats returns the cumulative counters.
func (b *bus) Stats() Stats {
	return Stats{
		Published:   b.published.Load(),
		Delivered:   b.delivered.Load(),
		Failed:      b.failed.Load(),
		Panicked:    b.panicked.Load(),
		Subscribers: b.subs.active(),
	}
}
