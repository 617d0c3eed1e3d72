package event

import (
	"sync/atomic"

	"github.com/dshills/agentcore/internal/event/topic"
)

// Subscription is the handle returned by Subscribe.
type Subscription interface {
	ID() string
	Topic() topic.Topic

	// Active is false while paused and after Unsubscribe.
	Active() bool
	Pause()
	Resume()

	// Unsubscribe removes the subscription from its bus. Repeated calls do nothing.
	Unsubscribe()
}

// SubscriptionOption tunes a single subscription.
type SubscriptionOption func(*subOptions)

type subOptions struct {
	priority Priority
	filter   FilterFunc
	once     bool
}

// WithPriority changes where the subscription runs relative to others.
func WithPriority(p Priority) SubscriptionOption {
	return func(o *subOptions) { o.priority = p }
}

// WithFilter drops events for which f returns false.
func WithFilter(f FilterFunc) SubscriptionOption {
	return func(o *subOptions) { o.filter = f }
}

// WithOnce cancels the subscription after its first successful delivery.
func WithOnce() SubscriptionOption {
	return func(o *subOptions) { o.once = true }
}

type subscriber struct {
	id      string
	seq     uint64
	pattern topic.Topic
	handler Handler
	opts    subOptions

	paused atomic.Bool
	closed atomic.Bool
	detach func(*subscriber)
}

// ID, Topic, Pause and Resume implement Subscription.
func (s *subscriber) ID() string         { return s.id }
func (s *subscriber) Topic() topic.Topic { return s.pattern }
func (s *subscriber) Pause()             { s.paused.Store(true) }
func (s *subscriber) Resume()            { s.paused.Store(false) }

// Active reports whether the subscription receives events.
func (s *subscriber) Active() bool {
	return !s.closed.Load() && !s.paused.Load()
}

// Unsubscribe detaches the subscription from its bus once.
func (s *subscriber) Unsubscribe() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if s.detach != nil {
		s.detach(s)
	}
}

// wants applies the active flag and the filter.
func (s *subscriber) wants(event any) bool {
	if !s.Active() {
		return false
	}
	return s.opts.filter == nil || s.opts.filter(event)
}
