package event

import (
	"context"

	"github.com/dshills/agentcore/internal/event/topic"
)

// Handler receives published events. Implementations type-switch on event.
type Handler interface {
	Handle(ctx context.Context, event any) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event any) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, event any) error {
	return f(ctx, event)
}

// FilterFunc decides per event whether a subscription sees it.
type FilterFunc func(event any) bool

// TopicProvider is implemented by every publishable event.
type TopicProvider interface {
	EventTopic() topic.Topic
}

// ErrorReporter receives every *DeliveryError the bus recovers.
type ErrorReporter func(event any, err error)

// Priority orders delivery; smaller runs earlier. Equal priorities run in
// subscription order.
type Priority int

const (
	// PriorityFirst is for mirrors that must see a change before anyone else.
	PriorityFirst Priority = -100
	// PriorityDefault is used when no priority is given.
	PriorityDefault Priority = 0
	// PriorityLast is for console echo and other sinks.
	PriorityLast Priority = 100
)

// Stats are cumulative bus counters.
type Stats struct {
	Published   uint64
	Delivered   uint64
	Failed      uint64
	Panicked    uint64
	Subscribers int
}
